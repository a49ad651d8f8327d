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
	"testing"
)

func TestEnvStateOf(t *testing.T) {
	env := Env{}
	if got := env.StateOf("missing"); !got.IsEmpty() {
		t.Errorf("unknown location not empty: %v", got)
	}

	taint := NewTaintSet(NewTaint(Source{ID: "src"}))
	env.Taint(LvalExpr{Base: "x", Offsets: mustOffsets(t, ".field")}, taint)
	if taints, _ := env.StateOf("x").Lookup(mustOffsets(t, ".field")); !taints.ContainsSource("src") {
		t.Errorf("Taint write not visible through StateOf")
	}

	// writing an empty set is a no-op
	env.Taint(LvalExpr{Base: "y"}, nil)
	if _, ok := env["y"]; ok {
		t.Errorf("empty taint write created a location")
	}
}

func TestLvalExprString(t *testing.T) {
	tests := []struct {
		name string
		expr LvalExpr
		want string
	}{
		{name: "bare name", expr: LvalExpr{Base: "x"}, want: "x"},
		{name: "with path", expr: LvalExpr{Base: "req", Offsets: mustOffsets(t, ".header[*]")}, want: "req.header[*]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.expr.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
