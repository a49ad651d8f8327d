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

package lang

import (
	"path"
	"strings"
	"testing"

	"golang.org/x/tools/go/loader"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

func loadProgram(t *testing.T, file string) *ssa.Program {
	t.Helper()
	cfg := loader.Config{}
	cfg.CreateFromFilenames("main", file)
	prog, err := cfg.Load()
	if err != nil {
		t.Fatalf("could not load %s: %v", file, err)
	}
	program := ssautil.CreateProgram(prog, 0)
	program.Build()
	return program
}

func findFunction(t *testing.T, program *ssa.Program, name string) *ssa.Function {
	t.Helper()
	for f := range ssautil.AllFunctions(program) {
		if f.Name() == name && PackageNameFromFunction(f) == "main" {
			return f
		}
	}
	t.Fatalf("function %s not found", name)
	return nil
}

func TestFunctionNaming(t *testing.T) {
	program := loadProgram(t, path.Join("testdata", "src", "lang", "basic.go"))

	use := findFunction(t, program, "use")
	if got := PackageNameFromFunction(use); got != "main" {
		t.Errorf("PackageNameFromFunction(use) = %q, want main", got)
	}
	if got := ReceiverNameFromFunction(use); got != "" {
		t.Errorf("ReceiverNameFromFunction(use) = %q, want empty", got)
	}

	incr := findFunction(t, program, "incr")
	if got := ReceiverNameFromFunction(incr); got != "counter" {
		t.Errorf("ReceiverNameFromFunction(incr) = %q, want counter", got)
	}

	if got := PackageNameFromFunction(nil); got != "" {
		t.Errorf("PackageNameFromFunction(nil) = %q", got)
	}
}

func TestCalleeName(t *testing.T) {
	program := loadProgram(t, path.Join("testdata", "src", "lang", "basic.go"))

	callees := map[string]bool{}
	for _, fn := range []*ssa.Function{
		findFunction(t, program, "main"),
		findFunction(t, program, "use"),
		findFunction(t, program, "callRunner"),
	} {
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				if call, ok := instr.(ssa.CallInstruction); ok {
					if name, named := CalleeName(call); named {
						callees[name] = true
					}
				}
			}
		}
	}

	for _, want := range []string{"main.use", "main.global", "(*main.counter).incr"} {
		if !callees[want] {
			t.Errorf("static callee %s not named; got %v", want, callees)
		}
	}
	// the interface dispatch resolves to the interface method's full name
	foundInvoke := false
	for name := range callees {
		if strings.Contains(name, "runner") && strings.HasSuffix(name, "run") {
			foundInvoke = true
		}
	}
	if !foundInvoke {
		t.Errorf("invoke callee not named; got %v", callees)
	}
}

func TestAddressableExpr(t *testing.T) {
	program := loadProgram(t, path.Join("testdata", "src", "lang", "basic.go"))
	use := findFunction(t, program, "use")

	exprs := map[string]bool{}
	for _, b := range use.Blocks {
		for _, instr := range b.Instrs {
			if v, ok := instr.(ssa.Value); ok {
				if expr, addressable := AddressableExpr(v); addressable {
					exprs[expr.String()] = true
				}
			}
		}
	}
	// the field write address and the slice element address
	if !exprs["b.data"] {
		t.Errorf("field address of parameter not recognized; got %v", exprs)
	}
	if !exprs["xs[*]"] {
		t.Errorf("index address of parameter not recognized; got %v", exprs)
	}

	// parameters themselves are addressable
	for _, p := range use.Params {
		expr, ok := AddressableExpr(p)
		if !ok || expr.Base != p.Name() {
			t.Errorf("parameter %s not addressable", p.Name())
		}
	}

	// a call result denotes no stable location
	for _, b := range findFunction(t, program, "main").Blocks {
		for _, instr := range b.Instrs {
			if call, ok := instr.(*ssa.Call); ok {
				if _, addressable := AddressableExpr(call); addressable {
					t.Errorf("call result %s should not be addressable", call)
				}
			}
		}
	}
}

func TestPosition(t *testing.T) {
	program := loadProgram(t, path.Join("testdata", "src", "lang", "basic.go"))
	use := findFunction(t, program, "use")

	pos := Position(program, use.Pos())
	if !pos.IsValid() {
		t.Fatalf("invalid position for a source function")
	}
	if !strings.HasSuffix(pos.Filename, "basic.go") {
		t.Errorf("position file = %s, want basic.go", pos.Filename)
	}
}
