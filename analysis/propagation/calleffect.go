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
)

// A CallEffect is one concrete, call-site-specific taint effect produced by
// instantiating a signature. The variants mirror the SigEffect family but are fully
// resolved: taint sets are concrete, lval targets are caller-side locations. A slice
// of call effects has no identity of its own; the caller's propagation step consumes
// it and discards it.
type CallEffect interface {
	callEffect()
	String() string
}

// ToSink is concrete taint reaching a sink through this call. Every taint in the set
// carries a trace extended with this call boundary.
type ToSink struct {
	Taints TaintSet
	Sink   Sink
}

// ToReturn is the accumulated taint/shape flowing into the call expression's result.
// At most one ToReturn is emitted per instantiation; overlapping declared effects are
// combined by union, never overwritten.
type ToReturn struct {
	Result *Shape
}

// ToLval is concrete taint escaping into an addressable location of the caller's
// frame.
type ToLval struct {
	Target LvalExpr
	Taints TaintSet
}

func (ToSink) callEffect()   {}
func (ToReturn) callEffect() {}
func (ToLval) callEffect()   {}

func (e ToSink) String() string {
	return fmt.Sprintf("%s -> sink %s", e.Taints, e.Sink)
}

func (e ToReturn) String() string {
	return fmt.Sprintf("%s -> ret", e.Result)
}

func (e ToLval) String() string {
	return fmt.Sprintf("%s -> %s", e.Taints, e.Target)
}
