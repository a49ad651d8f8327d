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

// Package lang bridges the SSA program representation and the IR-agnostic propagation
// model: it names functions the way the signature catalogs do, and maps SSA values to
// addressable caller-side expressions when possible.
package lang

import (
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ssa"

	"github.com/flowsig/flowsig/analysis/propagation"
)

// PackageNameFromFunction returns the package path of a function, or "" when it has
// none (e.g. a shared wrapper).
func PackageNameFromFunction(f *ssa.Function) string {
	if f == nil {
		return ""
	}
	if pkg := f.Package(); pkg != nil {
		return pkg.Pkg.Path()
	}
	// methods may only carry their package through their Object
	if obj := f.Object(); obj != nil && obj.Pkg() != nil {
		return obj.Pkg().Path()
	}
	return ""
}

// ReceiverNameFromFunction returns the name of the receiver type of a method, without
// package or pointer qualifiers, or "" for a plain function.
func ReceiverNameFromFunction(f *ssa.Function) string {
	if f == nil || f.Signature.Recv() == nil {
		return ""
	}
	t := f.Signature.Recv().Type()
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	if named, ok := t.(*types.Named); ok {
		return named.Obj().Name()
	}
	return ""
}

// CalleeName returns the catalog key of the callee of a call instruction: the
// qualified name in ssa.Function.String() form for static calls, the interface method
// full name for invoke calls. The second result is false when the callee cannot be
// named (e.g. a call through a computed function value).
func CalleeName(call ssa.CallInstruction) (string, bool) {
	common := call.Common()
	if common.IsInvoke() {
		return common.Method.FullName(), true
	}
	if callee := common.StaticCallee(); callee != nil {
		return callee.String(), true
	}
	return "", false
}

// Position returns the position of a token in the program's file set.
func Position(prog *ssa.Program, pos token.Pos) token.Position {
	return prog.Fset.Position(pos)
}

// AddressableExpr maps an SSA value to the addressable caller-side expression it
// denotes, when it does: a parameter, free variable, global or local allocation,
// possibly behind a chain of field and index addressing and loads. Values that do not
// denote a stable location (literals, arithmetic results, call results) are not
// addressable and yield false: escaping taint cannot soundly attach to them.
func AddressableExpr(v ssa.Value) (*propagation.LvalExpr, bool) {
	switch val := v.(type) {
	case *ssa.Parameter:
		return &propagation.LvalExpr{Base: val.Name()}, true
	case *ssa.FreeVar:
		return &propagation.LvalExpr{Base: val.Name()}, true
	case *ssa.Global:
		return &propagation.LvalExpr{Base: val.String()}, true
	case *ssa.Alloc:
		return &propagation.LvalExpr{Base: allocName(val)}, true
	case *ssa.FieldAddr:
		base, ok := AddressableExpr(val.X)
		if !ok {
			return nil, false
		}
		return extendExpr(base, propagation.FieldOffset(fieldName(val))), true
	case *ssa.IndexAddr:
		base, ok := AddressableExpr(val.X)
		if !ok {
			return nil, false
		}
		return extendExpr(base, propagation.IndexOffset()), true
	case *ssa.UnOp:
		// a load denotes the same location as its operand
		if val.Op == token.MUL {
			return AddressableExpr(val.X)
		}
		return nil, false
	case *ssa.MakeInterface:
		return AddressableExpr(val.X)
	case *ssa.ChangeType:
		return AddressableExpr(val.X)
	case *ssa.Convert:
		return AddressableExpr(val.X)
	default:
		return nil, false
	}
}

// allocName prefers the source variable name recorded in the Alloc's comment over the
// register name, so locations are stable across SSA renumbering.
func allocName(a *ssa.Alloc) string {
	if a.Comment != "" {
		return a.Comment
	}
	return a.Name()
}

func fieldName(fa *ssa.FieldAddr) string {
	t := fa.X.Type()
	if ptr, ok := t.Underlying().(*types.Pointer); ok {
		t = ptr.Elem()
	}
	if st, ok := t.Underlying().(*types.Struct); ok {
		return st.Field(fa.Field).Name()
	}
	return ""
}

func extendExpr(e *propagation.LvalExpr, o propagation.Offset) *propagation.LvalExpr {
	offsets := make([]propagation.Offset, 0, len(e.Offsets)+1)
	offsets = append(offsets, e.Offsets...)
	offsets = append(offsets, o)
	return &propagation.LvalExpr{Base: e.Base, Offsets: offsets}
}
