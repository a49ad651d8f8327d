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
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flowsig/flowsig/analysis/propagation"
)

// The YAML catalog format:
//
//	signatures:
//	  - func: "mypkg.Handle"
//	    formals: [req, out]
//	    effects:
//	      - kind: sink
//	        from: arg0.Cmd
//	        sink: command-execution
//	      - kind: return
//	        from: arg0
//	        to: .Field
//	      - kind: lval
//	        from: arg0
//	        to: arg1.Buf
//	sources:
//	  - func: "mypkg.ReadInput"
//	    id: user-input
//
// References are written as "argN", "recv" or "var:NAME", each optionally followed by
// an access path such as ".Field[*]".

type catalogFile struct {
	Signatures []signatureEntry `yaml:"signatures"`
	Sources    []sourceEntry    `yaml:"sources"`
}

type signatureEntry struct {
	Func    string        `yaml:"func"`
	Formals []string      `yaml:"formals"`
	Effects []effectEntry `yaml:"effects"`
}

type effectEntry struct {
	Kind string `yaml:"kind"`
	From string `yaml:"from"`
	Sink string `yaml:"sink"`
	To   string `yaml:"to"`
}

type sourceEntry struct {
	Func string `yaml:"func"`
	ID   string `yaml:"id"`
}

// LoadFile reads a YAML signature catalog. Malformed entries are skipped and reported
// as warnings rather than failing the load: a partially usable catalog is preferable
// to none (the worst outcome is a missed finding).
func LoadFile(filename string) (*Catalog, []error, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read signature file %s: %w", filename, err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(b, &file); err != nil {
		return nil, nil, fmt.Errorf("could not parse signature file %s: %w", filename, err)
	}

	c := NewCatalog()
	var warnings []error
	for _, entry := range file.Signatures {
		sig, errs := entry.signature()
		warnings = append(warnings, errs...)
		if sig == nil {
			continue
		}
		warnings = append(warnings, c.Add(sig)...)
	}
	for _, src := range file.Sources {
		if src.Func == "" || src.ID == "" {
			warnings = append(warnings, fmt.Errorf("%s: source entry needs both func and id", filename))
			continue
		}
		c.AddSource(src.Func, src.ID)
	}
	return c, warnings, nil
}

func (e signatureEntry) signature() (*propagation.Signature, []error) {
	if e.Func == "" {
		return nil, []error{fmt.Errorf("signature entry with no func name")}
	}
	var errs []error
	var effects []propagation.SigEffect
	for _, eff := range e.Effects {
		parsed, err := eff.effect()
		if err != nil {
			errs = append(errs, fmt.Errorf("signature of %s: %w", e.Func, err))
			continue
		}
		effects = append(effects, parsed)
	}
	return &propagation.Signature{Func: e.Func, Formals: e.Formals, Effects: effects}, errs
}

func (e effectEntry) effect() (propagation.SigEffect, error) {
	from, err := parseRef(e.From)
	if err != nil {
		return nil, err
	}
	switch e.Kind {
	case "sink":
		if e.Sink == "" {
			return nil, fmt.Errorf("sink effect needs a sink id")
		}
		return propagation.SigToSink{From: from, Sink: propagation.Sink{ID: e.Sink}}, nil
	case "return":
		to, err := propagation.ParseOffsets(e.To)
		if err != nil {
			return nil, fmt.Errorf("return offsets: %w", err)
		}
		return propagation.SigToReturn{From: from, To: to}, nil
	case "lval":
		to, err := parseRef(e.To)
		if err != nil {
			return nil, fmt.Errorf("lval target: %w", err)
		}
		return propagation.SigToLval{From: from, To: to}, nil
	default:
		return nil, fmt.Errorf("unknown effect kind %q", e.Kind)
	}
}

// parseRef parses a placeholder reference such as "arg0.Field[*]", "recv.Conn" or
// "var:buf".
func parseRef(s string) (propagation.SigRef, error) {
	if s == "" {
		return propagation.SigRef{}, fmt.Errorf("empty placeholder reference")
	}
	head := s
	if n := strings.IndexAny(s, ".["); n >= 0 {
		head = s[:n]
	}
	path := s[len(head):]

	var p propagation.Placeholder
	switch {
	case head == "recv":
		p = propagation.Recv()
	case strings.HasPrefix(head, "arg"):
		i, err := strconv.Atoi(head[len("arg"):])
		if err != nil || i < 0 {
			return propagation.SigRef{}, fmt.Errorf("invalid argument reference %q", head)
		}
		p = propagation.Param(i)
	case strings.HasPrefix(head, "var:"):
		name := head[len("var:"):]
		if name == "" {
			return propagation.SigRef{}, fmt.Errorf("empty captured variable name in %q", s)
		}
		p = propagation.FreeVar(name)
	default:
		return propagation.SigRef{}, fmt.Errorf("invalid placeholder reference %q", s)
	}

	offsets, err := propagation.ParseOffsets(path)
	if err != nil {
		return propagation.SigRef{}, err
	}
	return propagation.Ref(p, offsets...), nil
}
