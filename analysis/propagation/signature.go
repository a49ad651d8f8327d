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
	"fmt"
	"go/token"
	"strings"
)

// PlaceholderKind identifies the kind of symbolic placeholder a signature effect can
// refer to.
type PlaceholderKind int

const (
	// ParamPlaceholder is a positional formal parameter of the summarized function.
	ParamPlaceholder PlaceholderKind = iota
	// RecvPlaceholder is the receiver of a method, implicitly available.
	RecvPlaceholder
	// RetPlaceholder is the return value, implicitly available. It is only ever the
	// target of a taint-to-return effect, never a substitution source.
	RetPlaceholder
	// FreeVarPlaceholder is a variable captured by reference from the caller's frame,
	// resolved through the call-site environment.
	FreeVarPlaceholder
)

func (k PlaceholderKind) String() string {
	switch k {
	case ParamPlaceholder:
		return "param"
	case RecvPlaceholder:
		return "recv"
	case RetPlaceholder:
		return "ret"
	case FreeVarPlaceholder:
		return "freevar"
	default:
		return "invalid"
	}
}

// A Placeholder stands for a value of the summarized function, independently of any
// call site.
type Placeholder struct {
	Kind  PlaceholderKind
	Index int    // position, for ParamPlaceholder
	Name  string // variable name, for FreeVarPlaceholder
}

// Param returns the placeholder for the i-th formal parameter.
func Param(i int) Placeholder {
	return Placeholder{Kind: ParamPlaceholder, Index: i}
}

// Recv returns the receiver placeholder.
func Recv() Placeholder {
	return Placeholder{Kind: RecvPlaceholder}
}

// Ret returns the return value placeholder.
func Ret() Placeholder {
	return Placeholder{Kind: RetPlaceholder}
}

// FreeVar returns the placeholder for the captured variable name.
func FreeVar(name string) Placeholder {
	return Placeholder{Kind: FreeVarPlaceholder, Name: name}
}

func (p Placeholder) String() string {
	switch p.Kind {
	case ParamPlaceholder:
		return fmt.Sprintf("param(%d)", p.Index)
	case FreeVarPlaceholder:
		return fmt.Sprintf("freevar(%s)", p.Name)
	default:
		return p.Kind.String()
	}
}

// A SigRef addresses a sub-part of a placeholder: the placeholder plus a sequence of
// offsets into it.
type SigRef struct {
	Placeholder Placeholder
	Offsets     []Offset
}

// Ref builds a SigRef from a placeholder and offsets.
func Ref(p Placeholder, offsets ...Offset) SigRef {
	return SigRef{Placeholder: p, Offsets: offsets}
}

func (r SigRef) String() string {
	return r.Placeholder.String() + OffsetsString(r.Offsets)
}

// A Sink identifies a taint-sensitive operation inside the summarized function.
type Sink struct {
	ID  string
	Pos token.Position
}

func (s Sink) String() string {
	if s.Pos.IsValid() {
		return fmt.Sprintf("%s@%s", s.ID, s.Pos)
	}
	return s.ID
}

// A SigEffect is one declared effect of a function signature, expressed purely over
// symbolic placeholders. The three variants form a sealed family, distinct from the
// instantiated CallEffect family, so that substitution stays total and exhaustive.
type SigEffect interface {
	sigEffect()
	String() string
}

// SigToSink declares that taint on From reaches the sink when the function is called.
type SigToSink struct {
	From SigRef
	Sink Sink
}

// SigToReturn declares that taint on From flows into the return value at offsets To.
type SigToReturn struct {
	From SigRef
	To   []Offset
}

// SigToLval declares that taint on From escapes into the addressable placeholder To:
// an output parameter, the receiver, or a captured variable.
type SigToLval struct {
	From SigRef
	To   SigRef
}

func (SigToSink) sigEffect()   {}
func (SigToReturn) sigEffect() {}
func (SigToLval) sigEffect()   {}

func (e SigToSink) String() string {
	return fmt.Sprintf("%s -> sink %s", e.From, e.Sink)
}

func (e SigToReturn) String() string {
	return fmt.Sprintf("%s -> ret%s", e.From, OffsetsString(e.To))
}

func (e SigToLval) String() string {
	return fmt.Sprintf("%s -> %s", e.From, e.To)
}

// A Signature is the call-site-independent taint summary of one function: its ordered
// formal parameters and the declared effects over them. Signatures are produced by the
// bottom-up summarization (or loaded from a catalog) and are read-only here.
type Signature struct {
	// Func is the qualified name of the summarized function.
	Func string

	// Pos is the declaration position of the function, when known.
	Pos token.Position

	// Formals are the names of the formal parameters, in declaration order. Effects
	// refer to them by position.
	Formals []string

	// Effects are the declared effects, unordered as a set but kept in a slice so
	// instantiation output is deterministic.
	Effects []SigEffect
}

// IsTrivial returns true when the signature declares no effect. A nil signature is
// trivial.
func (s *Signature) IsTrivial() bool {
	return s == nil || len(s.Effects) == 0
}

// Validate returns a signature containing only the well-formed effects of s, and one
// error per dropped effect. Signatures computed over a large heterogeneous codebase
// cannot be assumed perfectly well-formed; a malformed effect costs precision, never a
// crash.
func (s *Signature) Validate() (*Signature, []error) {
	if s == nil {
		return nil, nil
	}
	var errs []error
	keep := make([]SigEffect, 0, len(s.Effects))
	for _, eff := range s.Effects {
		if err := s.checkEffect(eff); err != nil {
			errs = append(errs, fmt.Errorf("signature of %s: dropping effect %s: %w", s.Func, eff, err))
			continue
		}
		keep = append(keep, eff)
	}
	if len(errs) == 0 {
		return s, nil
	}
	return &Signature{Func: s.Func, Pos: s.Pos, Formals: s.Formals, Effects: keep}, errs
}

func (s *Signature) checkEffect(eff SigEffect) error {
	switch e := eff.(type) {
	case SigToSink:
		return s.checkSource(e.From)
	case SigToReturn:
		return s.checkSource(e.From)
	case SigToLval:
		if err := s.checkSource(e.From); err != nil {
			return err
		}
		switch e.To.Placeholder.Kind {
		case RetPlaceholder:
			return fmt.Errorf("lval target cannot be the return placeholder")
		case ParamPlaceholder:
			return s.checkParamBounds(e.To.Placeholder)
		}
		return nil
	default:
		return fmt.Errorf("unknown effect kind %T", eff)
	}
}

func (s *Signature) checkSource(ref SigRef) error {
	switch ref.Placeholder.Kind {
	case RetPlaceholder:
		return fmt.Errorf("the return placeholder is not a substitution source")
	case ParamPlaceholder:
		return s.checkParamBounds(ref.Placeholder)
	case RecvPlaceholder, FreeVarPlaceholder:
		return nil
	default:
		return fmt.Errorf("invalid placeholder kind %d", ref.Placeholder.Kind)
	}
}

func (s *Signature) checkParamBounds(p Placeholder) error {
	if p.Index < 0 || p.Index >= len(s.Formals) {
		return fmt.Errorf("parameter index %d out of bounds (%d formals)", p.Index, len(s.Formals))
	}
	return nil
}

func (s *Signature) String() string {
	if s == nil {
		return "<nil signature>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s(%s):", s.Func, strings.Join(s.Formals, ", "))
	for _, eff := range s.Effects {
		fmt.Fprintf(&b, "\n  %s", eff)
	}
	return b.String()
}
