// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package signatures

import (
	"github.com/flowsig/flowsig/analysis/propagation"
)

// Sink identifiers used by the predefined signatures.
const (
	SinkCommandExec   = "command-execution"
	SinkSQLQuery      = "sql-query"
	SinkOpenRedirect  = "open-redirect"
	SinkPathTraversal = "path-traversal"
	SinkLogOutput     = "log-output"
)

// Source identifiers used by the predefined signatures.
const (
	SourceHTTPRequest = "http-request"
	SourceEnviron     = "os-environ"
	SourceStdin       = "process-stdin"
	SourceFileContent = "file-content"
)

// Predefined returns the built-in catalog: signatures and sources for common standard
// library functions. Callers merge user catalogs on top of it.
func Predefined() *Catalog {
	c := NewCatalog()

	for _, sig := range predefinedSignatures {
		// built-in signatures are well-formed by construction
		c.Add(sig)
	}
	for fn, id := range predefinedSources {
		c.AddSource(fn, id)
	}
	return c
}

var star = propagation.IndexOffset()

// sink declares "taint on from reaches the sink id".
func sink(from propagation.SigRef, id string) propagation.SigEffect {
	return propagation.SigToSink{From: from, Sink: propagation.Sink{ID: id}}
}

// ret declares "taint on from flows to the return value".
func ret(from propagation.SigRef) propagation.SigEffect {
	return propagation.SigToReturn{From: from}
}

var predefinedSignatures = []*propagation.Signature{
	// func Command(name string, arg ...string) *Cmd
	{
		Func:    "os/exec.Command",
		Formals: []string{"name", "arg"},
		Effects: []propagation.SigEffect{
			sink(propagation.Ref(propagation.Param(0)), SinkCommandExec),
			sink(propagation.Ref(propagation.Param(1), star), SinkCommandExec),
			ret(propagation.Ref(propagation.Param(0))),
			ret(propagation.Ref(propagation.Param(1), star)),
		},
	},
	// func CommandContext(ctx context.Context, name string, arg ...string) *Cmd
	{
		Func:    "os/exec.CommandContext",
		Formals: []string{"ctx", "name", "arg"},
		Effects: []propagation.SigEffect{
			sink(propagation.Ref(propagation.Param(1)), SinkCommandExec),
			sink(propagation.Ref(propagation.Param(2), star), SinkCommandExec),
			ret(propagation.Ref(propagation.Param(1))),
			ret(propagation.Ref(propagation.Param(2), star)),
		},
	},
	// func (db *DB) Query(query string, args ...any) (*Rows, error)
	{
		Func:    "(*database/sql.DB).Query",
		Formals: []string{"query", "args"},
		Effects: []propagation.SigEffect{
			sink(propagation.Ref(propagation.Param(0)), SinkSQLQuery),
		},
	},
	// func (db *DB) Exec(query string, args ...any) (Result, error)
	{
		Func:    "(*database/sql.DB).Exec",
		Formals: []string{"query", "args"},
		Effects: []propagation.SigEffect{
			sink(propagation.Ref(propagation.Param(0)), SinkSQLQuery),
		},
	},
	// func Redirect(w ResponseWriter, r *Request, url string, code int)
	{
		Func:    "net/http.Redirect",
		Formals: []string{"w", "r", "url", "code"},
		Effects: []propagation.SigEffect{
			sink(propagation.Ref(propagation.Param(2)), SinkOpenRedirect),
		},
	},
	// func Open(name string) (*File, error)
	{
		Func:    "os.Open",
		Formals: []string{"name"},
		Effects: []propagation.SigEffect{
			sink(propagation.Ref(propagation.Param(0)), SinkPathTraversal),
		},
	},
	// func OpenFile(name string, flag int, perm FileMode) (*File, error)
	{
		Func:    "os.OpenFile",
		Formals: []string{"name", "flag", "perm"},
		Effects: []propagation.SigEffect{
			sink(propagation.Ref(propagation.Param(0)), SinkPathTraversal),
		},
	},
	// func Printf(format string, v ...any)
	{
		Func:    "log.Printf",
		Formals: []string{"format", "v"},
		Effects: []propagation.SigEffect{
			sink(propagation.Ref(propagation.Param(0)), SinkLogOutput),
			sink(propagation.Ref(propagation.Param(1), star), SinkLogOutput),
		},
	},

	// Pure propagation summaries: taint moves, no sink is involved.

	// func Sprintf(format string, a ...any) string
	{
		Func:    "fmt.Sprintf",
		Formals: []string{"format", "a"},
		Effects: []propagation.SigEffect{
			ret(propagation.Ref(propagation.Param(0))),
			ret(propagation.Ref(propagation.Param(1), star)),
		},
	},
	// func Sprint(a ...any) string
	{
		Func:    "fmt.Sprint",
		Formals: []string{"a"},
		Effects: []propagation.SigEffect{
			ret(propagation.Ref(propagation.Param(0), star)),
		},
	},
	// func Join(elem ...string) string
	{
		Func:    "path/filepath.Join",
		Formals: []string{"elem"},
		Effects: []propagation.SigEffect{
			ret(propagation.Ref(propagation.Param(0), star)),
		},
	},
	// func ToUpper(s string) string
	{
		Func:    "strings.ToUpper",
		Formals: []string{"s"},
		Effects: []propagation.SigEffect{ret(propagation.Ref(propagation.Param(0)))},
	},
	// func ToLower(s string) string
	{
		Func:    "strings.ToLower",
		Formals: []string{"s"},
		Effects: []propagation.SigEffect{ret(propagation.Ref(propagation.Param(0)))},
	},
	// func TrimSpace(s string) string
	{
		Func:    "strings.TrimSpace",
		Formals: []string{"s"},
		Effects: []propagation.SigEffect{ret(propagation.Ref(propagation.Param(0)))},
	},
	// func Split(s, sep string) []string
	{
		Func:    "strings.Split",
		Formals: []string{"s", "sep"},
		Effects: []propagation.SigEffect{
			propagation.SigToReturn{
				From: propagation.Ref(propagation.Param(0)),
				To:   []propagation.Offset{star},
			},
		},
	},
}

var predefinedSources = map[string]string{
	// func Getenv(key string) string
	"os.Getenv": SourceEnviron,
	// func Environ() []string
	"os.Environ": SourceEnviron,
	// func (r *Request) FormValue(key string) string
	"(*net/http.Request).FormValue": SourceHTTPRequest,
	// func (r *Request) PostFormValue(key string) string
	"(*net/http.Request).PostFormValue": SourceHTTPRequest,
	// func (b *Reader) ReadString(delim byte) (string, error)
	"(*bufio.Reader).ReadString": SourceStdin,
	// func ReadFile(name string) ([]byte, error)
	"os.ReadFile": SourceFileContent,
}
