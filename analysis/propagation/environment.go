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

package propagation

import (
	"go/token"
)

// An LvalExpr is an addressable expression in the caller's frame as written at the
// call site: a base name (local, parameter, global or captured variable) followed by
// offsets, e.g. "req.Header". Escaping taint can only attach to such expressions;
// transient computed values have no caller-side location.
type LvalExpr struct {
	Base    string
	Offsets []Offset
}

func (e LvalExpr) String() string {
	return e.Base + OffsetsString(e.Offsets)
}

// extend returns the expression with extra offsets composed after the expression's own
// offsets. The receiver is not modified.
func (e LvalExpr) extend(offsets []Offset) LvalExpr {
	if len(offsets) == 0 {
		return e
	}
	combined := make([]Offset, 0, len(e.Offsets)+len(offsets))
	combined = append(combined, e.Offsets...)
	combined = append(combined, offsets...)
	return LvalExpr{Base: e.Base, Offsets: combined}
}

// An Actual is what the caller knows about one actual argument at the call site: the
// argument expression when it is addressable (nil otherwise, e.g. for a literal or a
// freshly computed value), and the taint/shape state of the argument value, computed
// by the statement-level pass.
type Actual struct {
	Expr  *LvalExpr
	State *Shape
}

// A CallSite gathers the caller-side information for one call. It identifies the
// callee (for trace construction only), the optional receiver, and the actual
// arguments in call order. ArgsUnknown marks an argument list that could not be
// statically resolved, e.g. spread forwarding; Args must then be ignored.
type CallSite struct {
	Callee      string
	Pos         token.Position
	Recv        *Actual
	Args        []Actual
	ArgsUnknown bool
}

// Step returns the trace step recording a crossing of this call site.
func (c CallSite) Step() TraceStep {
	return TraceStep{Callee: c.Callee, Pos: c.Pos}
}

// An Env is the call-site environment: the taint/shape state of the addressable
// locations of the caller's frame at the moment of the call, keyed by base name. It is
// owned by the per-function pass and read-only during instantiation.
type Env map[string]*Shape

// StateOf returns the state of the named location. Unknown locations are empty and
// untainted, never an error.
func (e Env) StateOf(name string) *Shape {
	if s, ok := e[name]; ok {
		return s
	}
	return emptyShape
}

// Taint unions taints into the state of target. This is the write half used by the
// caller's propagation step when folding ToLval effects back into its environment; the
// instantiation engine itself never calls it.
func (e Env) Taint(target LvalExpr, taints TaintSet) {
	if taints.IsEmpty() {
		return
	}
	e[target.Base] = e.StateOf(target.Base).Update(target.Offsets, taints)
}
