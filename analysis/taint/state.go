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

package taint

import (
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ssa"

	"github.com/flowsig/flowsig/analysis/lang"
	"github.com/flowsig/flowsig/analysis/propagation"
)

// flowState is the per-function state of the forward pass: the environment of
// addressable locations, the taint shape of each SSA register, and the findings
// produced so far. It is private to the analysis of its function; nothing here is
// shared across goroutines.
type flowState struct {
	an       *analyzer
	fn       *ssa.Function
	env      propagation.Env
	vals     map[ssa.Value]*propagation.Shape
	findings map[string]Finding
}

// size is the convergence metric of the fixpoint: the total number of taints tracked.
// It only grows, so the sweep loop stops when it is stable.
func (s *flowState) size() int {
	total := len(s.findings)
	for _, sh := range s.vals {
		total += len(sh.AllTaints())
	}
	for _, sh := range s.env {
		total += len(sh.AllTaints())
	}
	return total
}

// valueState returns the taint shape of an SSA value: the recorded register state,
// or the environment state of the location the value denotes, or empty.
func (s *flowState) valueState(v ssa.Value) *propagation.Shape {
	if sh, ok := s.vals[v]; ok {
		return sh
	}
	if expr, ok := lang.AddressableExpr(v); ok {
		return s.locState(*expr)
	}
	return propagation.EmptyShape()
}

// locState reads the environment at an addressable expression, folding whole-value
// taint of the base into the result.
func (s *flowState) locState(expr propagation.LvalExpr) *propagation.Shape {
	taints, sub := s.env.StateOf(expr.Base).Lookup(expr.Offsets)
	return sub.Update(nil, taints)
}

func (s *flowState) setVal(v ssa.Value, sh *propagation.Shape) {
	if sh.IsEmpty() {
		return
	}
	s.vals[v] = s.valueState(v).Union(sh)
}

func (s *flowState) addFinding(f Finding) {
	s.findings[f.key()] = f
}

//gocyclo:ignore
func (s *flowState) transfer(instr ssa.Instruction) {
	switch v := instr.(type) {
	case ssa.CallInstruction:
		s.call(v)

	case *ssa.Store:
		if expr, ok := lang.AddressableExpr(v.Addr); ok {
			val := s.valueState(v.Val)
			if !val.IsEmpty() {
				s.env[expr.Base] = s.env.StateOf(expr.Base).Graft(expr.Offsets, val)
			}
		}

	case *ssa.UnOp:
		if v.Op == token.MUL {
			if expr, ok := lang.AddressableExpr(v.X); ok {
				s.setVal(v, s.locState(*expr))
				return
			}
		}
		s.setVal(v, s.valueState(v.X))

	case *ssa.Phi:
		var merged *propagation.Shape
		for _, e := range v.Edges {
			merged = merged.Union(s.valueState(e))
		}
		s.setVal(v, merged)

	case *ssa.BinOp:
		taints := s.valueState(v.X).AllTaints().Union(s.valueState(v.Y).AllTaints())
		s.setVal(v, propagation.Scalar(taints))

	case *ssa.ChangeType:
		s.setVal(v, s.valueState(v.X))
	case *ssa.Convert:
		s.setVal(v, s.valueState(v.X))
	case *ssa.MakeInterface:
		s.setVal(v, s.valueState(v.X))
	case *ssa.ChangeInterface:
		s.setVal(v, s.valueState(v.X))
	case *ssa.Slice:
		s.setVal(v, s.valueState(v.X))
	case *ssa.TypeAssert:
		s.setVal(v, s.valueState(v.X))

	case *ssa.Extract:
		// tuple components are not tracked separately
		s.setVal(v, s.valueState(v.Tuple))

	case *ssa.Field:
		name := fieldNameOf(v)
		taints, sub := s.valueState(v.X).Lookup([]propagation.Offset{propagation.FieldOffset(name)})
		s.setVal(v, sub.Update(nil, taints))

	case *ssa.Index:
		taints, sub := s.valueState(v.X).Lookup([]propagation.Offset{propagation.IndexOffset()})
		s.setVal(v, sub.Update(nil, taints))

	case *ssa.Lookup:
		taints, sub := s.valueState(v.X).Lookup([]propagation.Offset{propagation.IndexOffset()})
		s.setVal(v, sub.Update(nil, taints))

	case *ssa.MapUpdate:
		if expr, ok := lang.AddressableExpr(v.Map); ok {
			val := s.valueState(v.Value)
			if !val.IsEmpty() {
				offsets := append(append([]propagation.Offset{}, expr.Offsets...), propagation.IndexOffset())
				s.env[expr.Base] = s.env.StateOf(expr.Base).Graft(offsets, val)
			}
		}

	case *ssa.Return:
		// intraprocedural pass: nothing flows out of the function here
	}
}

// call instantiates the callee's signature at this call site and folds the resulting
// effects into the local state.
func (s *flowState) call(instr ssa.CallInstruction) {
	common := instr.Common()
	pos := lang.Position(s.an.prog, instr.Pos())

	actuals := make([]propagation.Actual, len(common.Args))
	for i, a := range common.Args {
		expr, _ := lang.AddressableExpr(a)
		actuals[i] = propagation.Actual{Expr: expr, State: s.valueState(a)}
	}
	var recv *propagation.Actual
	args := actuals
	if common.IsInvoke() {
		expr, _ := lang.AddressableExpr(common.Value)
		recv = &propagation.Actual{Expr: expr, State: s.valueState(common.Value)}
	} else if common.Signature().Recv() != nil && len(actuals) > 0 {
		recv = &actuals[0]
		args = actuals[1:]
	}

	name, named := lang.CalleeName(instr)
	if !named {
		s.unknownCall(instr, recv, args)
		return
	}
	site := propagation.CallSite{Callee: name, Pos: pos, Recv: recv, Args: args}

	if srcID, isSource := s.an.cat.SourceOf(name); isSource {
		s.freshTaint(instr, srcID, pos)
		return
	}
	if callee := common.StaticCallee(); callee != nil && s.an.isConfigSource(callee) {
		s.freshTaint(instr, name, pos)
		return
	}
	if callee := common.StaticCallee(); callee != nil && s.an.isConfigSink(callee) {
		s.configSink(name, pos, recv, args)
	}

	sig, found := s.an.cat.SignatureOf(name)
	if !found {
		s.unknownCall(instr, recv, args)
		return
	}

	effects, ok := propagation.Instantiate(s.env, sig, site)
	if !ok {
		s.an.logger.Debugf("could not instantiate %s at %s, using unknown-call policy", name, pos)
		s.unknownCall(instr, recv, args)
		return
	}
	for _, eff := range effects {
		switch e := eff.(type) {
		case propagation.ToSink:
			sink := e.Sink
			if !sink.Pos.IsValid() {
				sink.Pos = pos
			}
			for _, t := range e.Taints.Sorted() {
				s.addFinding(Finding{Sink: sink, Taint: t})
			}
		case propagation.ToReturn:
			if call, isCall := instr.(*ssa.Call); isCall {
				s.setVal(call, e.Result)
			}
		case propagation.ToLval:
			s.env.Taint(e.Target, e.Taints)
		}
	}
}

// freshTaint marks the result of a source call with a new taint with an empty trace.
func (s *flowState) freshTaint(instr ssa.CallInstruction, sourceID string, pos token.Position) {
	call, isCall := instr.(*ssa.Call)
	if !isCall {
		return
	}
	t := propagation.NewTaint(propagation.Source{ID: sourceID, Pos: pos})
	s.setVal(call, propagation.Scalar(propagation.NewTaintSet(t)))
}

// configSink reports every tainted argument of a call designated as a sink by the
// configuration (as opposed to a sink declared inside a signature).
func (s *flowState) configSink(name string, pos token.Position, recv *propagation.Actual, args []propagation.Actual) {
	step := propagation.TraceStep{Callee: name, Pos: pos}
	sink := propagation.Sink{ID: name, Pos: pos}
	report := func(a propagation.Actual) {
		for _, t := range a.State.AllTaints().Through(step).Sorted() {
			s.addFinding(Finding{Sink: sink, Taint: t})
		}
	}
	if recv != nil {
		report(*recv)
	}
	for _, a := range args {
		report(a)
	}
}

// unknownCall is the conservative policy for calls without a usable signature: the
// result is tainted by everything the arguments carry. Nothing is assumed about
// by-reference escapes.
func (s *flowState) unknownCall(instr ssa.CallInstruction, recv *propagation.Actual, args []propagation.Actual) {
	call, isCall := instr.(*ssa.Call)
	if !isCall {
		return
	}
	var taints propagation.TaintSet
	if recv != nil {
		taints = taints.Union(recv.State.AllTaints())
	}
	for _, a := range args {
		taints = taints.Union(a.State.AllTaints())
	}
	if taints.IsEmpty() {
		return
	}
	name, _ := lang.CalleeName(instr)
	if name == "" {
		name = "<dynamic>"
	}
	step := propagation.TraceStep{Callee: name, Pos: lang.Position(s.an.prog, instr.Pos())}
	s.setVal(call, propagation.Scalar(taints.Through(step)))
}

func (an *analyzer) isConfigSource(f *ssa.Function) bool {
	return an.cfg.IsExtraSource(lang.PackageNameFromFunction(f), lang.ReceiverNameFromFunction(f), f.Name())
}

func (an *analyzer) isConfigSink(f *ssa.Function) bool {
	return an.cfg.IsExtraSink(lang.PackageNameFromFunction(f), lang.ReceiverNameFromFunction(f), f.Name())
}

func fieldNameOf(f *ssa.Field) string {
	if st, ok := f.X.Type().Underlying().(*types.Struct); ok {
		return st.Field(f.Field).Name()
	}
	return ""
}
