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
	"reflect"
	"testing"
)

func taintedArg(id string) Actual {
	return Actual{State: Scalar(NewTaintSet(NewTaint(Source{ID: id})))}
}

func cleanArg() Actual {
	return Actual{State: EmptyShape()}
}

func sinkSig(formals ...string) *Signature {
	return &Signature{
		Func:    "pkg.sinkWrapper",
		Formals: formals,
		Effects: []SigEffect{SigToSink{From: Ref(Param(0)), Sink: Sink{ID: "command-execution"}}},
	}
}

func TestInstantiateTrivial(t *testing.T) {
	call := CallSite{Callee: "pkg.f", Args: []Actual{taintedArg("src")}}

	effects, ok := Instantiate(Env{}, nil, call)
	if !ok || effects != nil {
		t.Errorf("nil signature: got (%v, %v), want (nil, true)", effects, ok)
	}
	effects, ok = Instantiate(Env{}, &Signature{Func: "pkg.f", Formals: []string{"x"}}, call)
	if !ok || effects != nil {
		t.Errorf("effect-free signature: got (%v, %v), want (nil, true)", effects, ok)
	}
}

func TestInstantiateArgsUnknown(t *testing.T) {
	call := CallSite{Callee: "pkg.sinkWrapper", ArgsUnknown: true}

	effects, ok := Instantiate(Env{}, sinkSig("x"), call)
	if ok {
		t.Errorf("unknown argument list must be inapplicable, got effects %v", effects)
	}

	// trivial signature stays applicable even with unknown arguments
	if _, ok := Instantiate(Env{}, nil, call); !ok {
		t.Errorf("trivial signature should not be inapplicable")
	}
}

func TestInstantiateToSink(t *testing.T) {
	call := CallSite{Callee: "pkg.sinkWrapper", Args: []Actual{taintedArg("os.Getenv")}}

	effects, ok := Instantiate(Env{}, sinkSig("cmd"), call)
	if !ok || len(effects) != 1 {
		t.Fatalf("got (%v, %v), want one effect", effects, ok)
	}
	sink, isSink := effects[0].(ToSink)
	if !isSink {
		t.Fatalf("effect = %T, want ToSink", effects[0])
	}
	if sink.Sink.ID != "command-execution" {
		t.Errorf("sink = %s, want command-execution", sink.Sink.ID)
	}
	if !sink.Taints.ContainsSource("os.Getenv") {
		t.Errorf("taint lost on the way to the sink: %v", sink.Taints)
	}
	for _, taint := range sink.Taints.Sorted() {
		steps := taint.Trace().Steps()
		if len(steps) != 1 || steps[0].Callee != "pkg.sinkWrapper" {
			t.Errorf("trace %v does not record the crossed boundary", steps)
		}
	}
}

func TestInstantiateNoTaintNoEffect(t *testing.T) {
	call := CallSite{Callee: "pkg.sinkWrapper", Args: []Actual{cleanArg()}}

	effects, ok := Instantiate(Env{}, sinkSig("cmd"), call)
	if !ok {
		t.Fatalf("instantiation inapplicable on a resolvable call")
	}
	if len(effects) != 0 {
		t.Errorf("untainted input produced effects: %v", effects)
	}
}

func TestInstantiateToReturn(t *testing.T) {
	sig := &Signature{
		Func:    "pkg.wrap",
		Formals: []string{"x"},
		Effects: []SigEffect{
			SigToReturn{From: Ref(Param(0)), To: mustOffsets(t, ".wrapped")},
		},
	}
	call := CallSite{Callee: "pkg.wrap", Args: []Actual{taintedArg("src")}}

	effects, ok := Instantiate(Env{}, sig, call)
	if !ok || len(effects) != 1 {
		t.Fatalf("got (%v, %v), want one effect", effects, ok)
	}
	ret, isRet := effects[0].(ToReturn)
	if !isRet {
		t.Fatalf("effect = %T, want ToReturn", effects[0])
	}
	taints, _ := ret.Result.Lookup(mustOffsets(t, ".wrapped"))
	if !taints.ContainsSource("src") {
		t.Errorf("return shape misses taint at declared offset: %v", ret.Result)
	}
	if taints, _ := ret.Result.Lookup(mustOffsets(t, ".other")); !taints.IsEmpty() {
		t.Errorf("return shape tainted outside declared offset")
	}
}

func TestInstantiateReturnEffectsCombine(t *testing.T) {
	// two declared flows into the same return value yield one combined ToReturn
	sig := &Signature{
		Func:    "pkg.pair",
		Formals: []string{"a", "b"},
		Effects: []SigEffect{
			SigToReturn{From: Ref(Param(0)), To: mustOffsets(t, ".first")},
			SigToReturn{From: Ref(Param(1)), To: mustOffsets(t, ".second")},
		},
	}
	call := CallSite{Callee: "pkg.pair", Args: []Actual{taintedArg("one"), taintedArg("two")}}

	effects, ok := Instantiate(Env{}, sig, call)
	if !ok || len(effects) != 1 {
		t.Fatalf("got %d effects, want one combined ToReturn", len(effects))
	}
	ret := effects[0].(ToReturn)
	if taints, _ := ret.Result.Lookup(mustOffsets(t, ".first")); !taints.ContainsSource("one") {
		t.Errorf("first flow lost")
	}
	if taints, _ := ret.Result.Lookup(mustOffsets(t, ".second")); !taints.ContainsSource("two") {
		t.Errorf("second flow lost")
	}
}

func TestInstantiateToLval(t *testing.T) {
	// pkg.appendTo(data, buf) writes taint from data into *buf
	sig := &Signature{
		Func:    "pkg.appendTo",
		Formals: []string{"data", "buf"},
		Effects: []SigEffect{
			SigToLval{From: Ref(Param(0)), To: Ref(Param(1))},
		},
	}
	buf := &LvalExpr{Base: "buf"}
	call := CallSite{
		Callee: "pkg.appendTo",
		Args:   []Actual{taintedArg("src"), {Expr: buf, State: EmptyShape()}},
	}

	effects, ok := Instantiate(Env{}, sig, call)
	if !ok || len(effects) != 1 {
		t.Fatalf("got (%v, %v), want one effect", effects, ok)
	}
	lval, isLval := effects[0].(ToLval)
	if !isLval {
		t.Fatalf("effect = %T, want ToLval", effects[0])
	}
	if lval.Target.String() != "buf" {
		t.Errorf("target = %s, want buf", lval.Target)
	}
	if !lval.Taints.ContainsSource("src") {
		t.Errorf("escaping taint lost: %v", lval.Taints)
	}
}

func TestInstantiateLvalOffsetsCompose(t *testing.T) {
	// the actual is itself an access path; declared target offsets compose after it
	sig := &Signature{
		Func:    "pkg.fill",
		Formals: []string{"data", "out"},
		Effects: []SigEffect{
			SigToLval{From: Ref(Param(0)), To: Ref(Param(1), FieldOffset("body"))},
		},
	}
	out := &LvalExpr{Base: "resp", Offsets: mustOffsets(t, ".inner")}
	call := CallSite{
		Callee: "pkg.fill",
		Args:   []Actual{taintedArg("src"), {Expr: out, State: EmptyShape()}},
	}

	effects, ok := Instantiate(Env{}, sig, call)
	if !ok || len(effects) != 1 {
		t.Fatalf("got (%v, %v), want one effect", effects, ok)
	}
	lval := effects[0].(ToLval)
	if got := lval.Target.String(); got != "resp.inner.body" {
		t.Errorf("target = %s, want resp.inner.body", got)
	}
}

func TestInstantiateLvalNotAddressable(t *testing.T) {
	// the tainted write would land on a transient value: the effect is dropped,
	// the rest of the signature still applies
	sig := &Signature{
		Func:    "pkg.mixed",
		Formals: []string{"data", "out"},
		Effects: []SigEffect{
			SigToLval{From: Ref(Param(0)), To: Ref(Param(1))},
			SigToSink{From: Ref(Param(0)), Sink: Sink{ID: "log-output"}},
		},
	}
	call := CallSite{
		Callee: "pkg.mixed",
		Args:   []Actual{taintedArg("src"), cleanArg()}, // out has no Expr
	}

	effects, ok := Instantiate(Env{}, sig, call)
	if !ok || len(effects) != 1 {
		t.Fatalf("got (%v, %v), want the sink effect only", effects, ok)
	}
	if _, isSink := effects[0].(ToSink); !isSink {
		t.Errorf("surviving effect = %T, want ToSink", effects[0])
	}
}

func TestInstantiateReceiver(t *testing.T) {
	sig := &Signature{
		Func:    "(*pkg.Buffer).WriteString",
		Formals: []string{"s"},
		Effects: []SigEffect{
			SigToLval{From: Ref(Param(0)), To: Ref(Recv())},
		},
	}
	recv := &Actual{Expr: &LvalExpr{Base: "b"}, State: EmptyShape()}
	call := CallSite{
		Callee: "(*pkg.Buffer).WriteString",
		Recv:   recv,
		Args:   []Actual{taintedArg("src")},
	}

	effects, ok := Instantiate(Env{}, sig, call)
	if !ok || len(effects) != 1 {
		t.Fatalf("got (%v, %v), want one effect", effects, ok)
	}
	lval := effects[0].(ToLval)
	if lval.Target.Base != "b" {
		t.Errorf("target = %s, want the receiver expression", lval.Target)
	}

	// no receiver at the call site: the effect is silently dropped
	call.Recv = nil
	effects, ok = Instantiate(Env{}, sig, call)
	if !ok || len(effects) != 0 {
		t.Errorf("missing receiver: got (%v, %v), want (none, true)", effects, ok)
	}
}

func TestInstantiateFreeVar(t *testing.T) {
	// closure summary: taint on the captured variable acc reaches a sink
	sig := &Signature{
		Func: "pkg.worker$1",
		Effects: []SigEffect{
			SigToSink{From: Ref(FreeVar("acc")), Sink: Sink{ID: "sql-query"}},
		},
	}
	env := Env{"acc": Scalar(NewTaintSet(NewTaint(Source{ID: "form"})))}
	call := CallSite{Callee: "pkg.worker$1"}

	effects, ok := Instantiate(env, sig, call)
	if !ok || len(effects) != 1 {
		t.Fatalf("got (%v, %v), want one effect", effects, ok)
	}
	sink := effects[0].(ToSink)
	if !sink.Taints.ContainsSource("form") {
		t.Errorf("captured taint lost: %v", sink.Taints)
	}

	// clean environment, no effect
	effects, ok = Instantiate(Env{}, sig, call)
	if !ok || len(effects) != 0 {
		t.Errorf("clean env: got (%v, %v), want (none, true)", effects, ok)
	}
}

func TestInstantiateArityTolerance(t *testing.T) {
	// the signature declares more parameters than the call provides; the
	// unresolvable positions read as untainted
	sig := &Signature{
		Func:    "pkg.variadicish",
		Formals: []string{"a", "b", "c"},
		Effects: []SigEffect{
			SigToSink{From: Ref(Param(2)), Sink: Sink{ID: "s"}},
			SigToSink{From: Ref(Param(0)), Sink: Sink{ID: "s"}},
		},
	}
	call := CallSite{Callee: "pkg.variadicish", Args: []Actual{taintedArg("src")}}

	effects, ok := Instantiate(Env{}, sig, call)
	if !ok || len(effects) != 1 {
		t.Fatalf("got (%v, %v), want the in-range effect only", effects, ok)
	}
}

func TestInstantiateOffsetsInSource(t *testing.T) {
	// only taint under the declared sub-part flows
	sig := &Signature{
		Func:    "pkg.useHeader",
		Formals: []string{"req"},
		Effects: []SigEffect{
			SigToSink{From: Ref(Param(0), FieldOffset("header")), Sink: Sink{ID: "s"}},
		},
	}
	tainted := EmptyShape().Update(mustOffsets(t, ".body"), NewTaintSet(NewTaint(Source{ID: "src"})))
	call := CallSite{Callee: "pkg.useHeader", Args: []Actual{{State: tainted}}}

	effects, ok := Instantiate(Env{}, sig, call)
	if !ok || len(effects) != 0 {
		t.Errorf("taint outside the declared sub-part flowed: %v", effects)
	}

	// whole-value taint on the argument covers the sub-part
	call.Args[0].State = Scalar(NewTaintSet(NewTaint(Source{ID: "src"})))
	effects, ok = Instantiate(Env{}, sig, call)
	if !ok || len(effects) != 1 {
		t.Errorf("whole-value taint did not cover the sub-part: %v", effects)
	}
}

func TestInstantiateMonotone(t *testing.T) {
	sig := sinkSig("cmd")
	small := CallSite{Callee: "pkg.sinkWrapper", Args: []Actual{taintedArg("one")}}
	bigState := Scalar(NewTaintSet(NewTaint(Source{ID: "one"}), NewTaint(Source{ID: "two"})))
	big := CallSite{Callee: "pkg.sinkWrapper", Args: []Actual{{State: bigState}}}

	smallEffects, _ := Instantiate(Env{}, sig, small)
	bigEffects, _ := Instantiate(Env{}, sig, big)
	if len(smallEffects) != 1 || len(bigEffects) != 1 {
		t.Fatalf("want one sink effect each, got %d and %d", len(smallEffects), len(bigEffects))
	}
	for key := range smallEffects[0].(ToSink).Taints {
		if _, ok := bigEffects[0].(ToSink).Taints[key]; !ok {
			t.Errorf("more input taint produced fewer output taints (missing %s)", key)
		}
	}
}

func TestInstantiatePure(t *testing.T) {
	sig := &Signature{
		Func:    "pkg.mix",
		Formals: []string{"data", "out"},
		Effects: []SigEffect{
			SigToSink{From: Ref(Param(0)), Sink: Sink{ID: "s"}},
			SigToLval{From: Ref(Param(0)), To: Ref(Param(1))},
			SigToReturn{From: Ref(Param(0))},
		},
	}
	env := Env{"acc": Scalar(NewTaintSet(NewTaint(Source{ID: "form"})))}
	call := CallSite{
		Callee: "pkg.mix",
		Args: []Actual{
			taintedArg("src"),
			{Expr: &LvalExpr{Base: "out"}, State: EmptyShape()},
		},
	}

	envBefore := fmt.Sprint(env)
	sigBefore := sig.String()
	argBefore := call.Args[0].State.String()

	first, ok1 := Instantiate(env, sig, call)
	second, ok2 := Instantiate(env, sig, call)

	if fmt.Sprint(env) != envBefore || sig.String() != sigBefore || call.Args[0].State.String() != argBefore {
		t.Errorf("Instantiate modified one of its inputs")
	}
	if ok1 != ok2 || !reflect.DeepEqual(first, second) {
		t.Errorf("Instantiate not deterministic:\n%v\n%v", first, second)
	}
}
