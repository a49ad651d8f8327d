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

// Package propagation implements the interprocedural propagation core of the taint
// analysis: the data model for taints, value shapes and function signatures, and the
// instantiation engine that turns a callee's symbolic signature into the concrete
// taint effects of one call site.
package propagation

import (
	"fmt"
	"go/token"
	"strings"

	"github.com/flowsig/flowsig/internal/funcutil"
)

// A Source identifies a taint origin: the identifier of the source (e.g. the qualified
// name of a function designated as a source by the signature catalog) and the position
// where the taint entered the program.
type Source struct {
	ID  string
	Pos token.Position
}

func (s Source) String() string {
	return fmt.Sprintf("%s@%s", s.ID, s.Pos)
}

// A TraceStep records one call boundary crossed by a taint: the identity of the callee
// whose signature was instantiated and the position of the call site.
type TraceStep struct {
	Callee string
	Pos    token.Position
}

func (t TraceStep) String() string {
	return fmt.Sprintf("%s@%s", t.Callee, t.Pos)
}

// A Trace is a persistent chain of trace steps. Traces are immutable: Extend allocates
// a new node sharing the previous chain. The nil trace is the empty trace.
//
// Traces exist for reporting only. No analysis decision may depend on a trace.
type Trace struct {
	step   TraceStep
	parent *Trace
	height int
	key    string
}

// Extend returns a new trace with step appended as the most recent step.
func (t *Trace) Extend(step TraceStep) *Trace {
	if t == nil {
		return &Trace{step: step, height: 1, key: step.String()}
	}
	return &Trace{step: step, parent: t, height: t.height + 1, key: t.key + "-" + step.String()}
}

// Key returns a string that identifies the chain of steps of the trace. Two traces with
// the same steps in the same order have the same key.
func (t *Trace) Key() string {
	if t == nil {
		return ""
	}
	return t.key
}

// Len returns the number of steps in the trace.
func (t *Trace) Len() int {
	if t == nil {
		return 0
	}
	return t.height
}

// Steps returns the steps of the trace, oldest first and most recent last.
func (t *Trace) Steps() []TraceStep {
	if t == nil {
		return nil
	}
	s := make([]TraceStep, t.height)
	for cur := t; cur != nil; cur = cur.parent {
		s[cur.height-1] = cur.step
	}
	return s
}

func (t *Trace) String() string {
	steps := funcutil.Map(t.Steps(), func(s TraceStep) string { return s.String() })
	return strings.Join(steps, " -> ")
}

// A Taint is the atomic fact that a value, or a part of a value, is influenced by a
// source. Taints are immutable: passing through a call produces a new taint with a
// longer trace, the original is never modified.
type Taint struct {
	Source Source
	trace  *Trace
}

// NewTaint returns a fresh taint for source with an empty trace.
func NewTaint(source Source) Taint {
	return Taint{Source: source}
}

// Trace returns the provenance trace of the taint. May be nil (empty trace).
func (t Taint) Trace() *Trace {
	return t.trace
}

// Through returns a new taint whose trace records that t crossed the call boundary
// identified by step.
func (t Taint) Through(step TraceStep) Taint {
	return Taint{Source: t.Source, trace: t.trace.Extend(step)}
}

// Key identifies the taint by its source and its provenance. Two taints from the same
// source through different call chains have different keys: collapsing them is a
// reporting-layer policy, not a model invariant.
func (t Taint) Key() string {
	return t.Source.String() + "!" + t.trace.Key()
}

func (t Taint) String() string {
	if t.trace == nil {
		return t.Source.String()
	}
	return t.Source.String() + " via " + t.trace.String()
}

// A TaintSet is a set of taints, deduplicated by taint key. The zero value (nil) is the
// empty set. Union is the only merge operation.
type TaintSet map[string]Taint

// NewTaintSet returns a set containing the given taints.
func NewTaintSet(taints ...Taint) TaintSet {
	ts := make(TaintSet, len(taints))
	for _, t := range taints {
		ts[t.Key()] = t
	}
	return ts
}

// IsEmpty returns true if the set contains no taint. The nil set is empty.
func (ts TaintSet) IsEmpty() bool {
	return len(ts) == 0
}

// Contains returns true if the set contains a taint with the same source and trace.
func (ts TaintSet) Contains(t Taint) bool {
	_, ok := ts[t.Key()]
	return ok
}

// ContainsSource returns true if any taint in the set originates from a source with
// the given identifier, regardless of provenance.
func (ts TaintSet) ContainsSource(id string) bool {
	for _, t := range ts {
		if t.Source.ID == id {
			return true
		}
	}
	return false
}

// Union returns the union of ts and other. Neither input is modified; when one side is
// empty the other is returned as is. Union is idempotent and commutative.
func (ts TaintSet) Union(other TaintSet) TaintSet {
	if other.IsEmpty() {
		return ts
	}
	if ts.IsEmpty() {
		return other
	}
	r := make(TaintSet, len(ts)+len(other))
	for k, t := range ts {
		r[k] = t
	}
	for k, t := range other {
		r[k] = t
	}
	return r
}

// Through returns a new set where every taint has crossed the call boundary step.
func (ts TaintSet) Through(step TraceStep) TaintSet {
	if ts.IsEmpty() {
		return nil
	}
	r := make(TaintSet, len(ts))
	for _, t := range ts {
		t2 := t.Through(step)
		r[t2.Key()] = t2
	}
	return r
}

// Sorted returns the taints in deterministic (key) order, for reproducible reports.
func (ts TaintSet) Sorted() []Taint {
	keys := funcutil.SortedKeys(ts)
	return funcutil.Map(keys, func(k string) Taint { return ts[k] })
}

func (ts TaintSet) String() string {
	elems := funcutil.Map(ts.Sorted(), func(t Taint) string { return t.String() })
	return "{" + strings.Join(elems, ", ") + "}"
}
