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

// Instantiate substitutes the concrete argument taint/shape of one call site for the
// symbolic placeholders of the callee's signature and returns the concrete effects of
// that call.
//
// The second return value is false only when instantiation is inapplicable for the
// whole call: the argument list is unknown and the signature is non-trivial. The
// caller must then fall back to its own conservative unknown-call policy. Otherwise it
// is true, and an empty effect list is the legitimate result "this call, with this
// input, propagates nothing".
//
// Everything that cannot be resolved soundly at the level of a single effect (an
// out-of-range parameter, a non-addressable lval target, a malformed placeholder) is
// dropped silently: reduced precision, never an error.
//
// Instantiate is pure. It does not modify env, sig or call, performs no I/O, and may
// be called concurrently from independent function analyses.
func Instantiate(env Env, sig *Signature, call CallSite) ([]CallEffect, bool) {
	if sig.IsTrivial() {
		return nil, true
	}
	if call.ArgsUnknown {
		return nil, false
	}

	step := call.Step()
	var effects []CallEffect
	var ret *Shape

	for _, eff := range sig.Effects {
		switch e := eff.(type) {
		case SigToSink:
			taints, _ := subst(env, call, e.From)
			if taints.IsEmpty() {
				// the sink is not reachable through this call with this information
				continue
			}
			effects = append(effects, ToSink{Taints: taints.Through(step), Sink: e.Sink})

		case SigToReturn:
			taints, sub := subst(env, call, e.From)
			part := sub.Update(nil, taints)
			if part.IsEmpty() {
				continue
			}
			ret = ret.Graft(e.To, part.Through(step))

		case SigToLval:
			taints, _ := subst(env, call, e.From)
			if taints.IsEmpty() {
				continue
			}
			target, ok := resolveTarget(call, e.To)
			if !ok {
				// no caller-side location to attach the escaping taint to
				continue
			}
			effects = append(effects, ToLval{Target: target, Taints: taints.Through(step)})
		}
	}

	if !ret.IsEmpty() {
		effects = append(effects, ToReturn{Result: ret})
	}
	return effects, true
}

// subst resolves a symbolic reference to the concrete taint and shape available at the
// call site. Unresolvable references are empty, not errors: a parameter position with
// no actual (arity mismatch, defaulted trailing parameter) is treated as untainted.
func subst(env Env, call CallSite, ref SigRef) (TaintSet, *Shape) {
	switch ref.Placeholder.Kind {
	case ParamPlaceholder:
		i := ref.Placeholder.Index
		if i < 0 || i >= len(call.Args) {
			return nil, emptyShape
		}
		return call.Args[i].State.Lookup(ref.Offsets)
	case RecvPlaceholder:
		if call.Recv == nil {
			return nil, emptyShape
		}
		return call.Recv.State.Lookup(ref.Offsets)
	case FreeVarPlaceholder:
		return env.StateOf(ref.Placeholder.Name).Lookup(ref.Offsets)
	default:
		// RetPlaceholder is only ever a target; anything else is malformed
		return nil, emptyShape
	}
}

// resolveTarget maps the symbolic target of a taint-to-lval effect to a concrete
// addressable location of the caller. This is only possible when the actual expression
// at that position is itself addressable; the declared target offsets compose after
// the offsets already present in the actual expression.
func resolveTarget(call CallSite, ref SigRef) (LvalExpr, bool) {
	switch ref.Placeholder.Kind {
	case ParamPlaceholder:
		i := ref.Placeholder.Index
		if i < 0 || i >= len(call.Args) || call.Args[i].Expr == nil {
			return LvalExpr{}, false
		}
		return call.Args[i].Expr.extend(ref.Offsets), true
	case RecvPlaceholder:
		if call.Recv == nil || call.Recv.Expr == nil {
			return LvalExpr{}, false
		}
		return call.Recv.Expr.extend(ref.Offsets), true
	case FreeVarPlaceholder:
		return LvalExpr{Base: ref.Placeholder.Name, Offsets: ref.Offsets}, true
	default:
		return LvalExpr{}, false
	}
}
