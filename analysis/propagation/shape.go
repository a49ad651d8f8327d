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
	"strings"

	"github.com/flowsig/flowsig/internal/funcutil"
)

// maxShapeDepth bounds the depth of the offset paths materialized in shapes. Updates
// beyond that depth collapse onto the deepest representable node. This value does not
// affect soundness, only precision.
var maxShapeDepth = 3

// SetMaxShapeDepth sets the maximum materialized offset depth. This should only be set
// once, before any analysis runs.
func SetMaxShapeDepth(n int) {
	if n > 0 {
		maxShapeDepth = n
	}
}

// An Offset is one step of a path into a structured value: either a field selector or
// an any-index selector. A sequence of offsets addresses a sub-part of a value.
type Offset struct {
	field string // empty for the any-index selector
}

// FieldOffset returns the offset selecting field name.
func FieldOffset(name string) Offset {
	return Offset{field: name}
}

// IndexOffset returns the offset selecting any element of an array, slice or map.
func IndexOffset() Offset {
	return Offset{}
}

// IsIndex returns true if the offset is the any-index selector.
func (o Offset) IsIndex() bool {
	return o.field == ""
}

func (o Offset) String() string {
	if o.IsIndex() {
		return "[*]"
	}
	return "." + o.field
}

// OffsetsString renders a sequence of offsets as an access path, e.g. ".field[*].x".
func OffsetsString(offsets []Offset) string {
	var b strings.Builder
	for _, o := range offsets {
		b.WriteString(o.String())
	}
	return b.String()
}

// ParseOffsets parses an access path such as ".field[*].x" into its offsets. The empty
// path parses to no offsets.
func ParseOffsets(path string) ([]Offset, error) {
	var offsets []Offset
	rest := path
	for rest != "" {
		if suffix, ok := strings.CutPrefix(rest, "[*]"); ok {
			offsets = append(offsets, IndexOffset())
			rest = suffix
			continue
		}
		if suffix, ok := strings.CutPrefix(rest, "."); ok {
			n := strings.IndexAny(suffix, ".[")
			if n < 0 {
				n = len(suffix)
			}
			if n == 0 {
				return nil, fmt.Errorf("empty field name in access path %q", path)
			}
			offsets = append(offsets, FieldOffset(suffix[:n]))
			rest = suffix[n:]
			continue
		}
		return nil, fmt.Errorf("invalid access path %q", path)
	}
	return offsets, nil
}

// A Shape is the structural abstraction of a value: a finite tree where each node
// carries the taints attached to that sub-part of the value, and composite nodes map a
// bounded set of offsets to child shapes. Cycles are not representable; recursive
// structures must be widened before they reach this package.
//
// Shapes are persistent: Update and Graft return new shapes sharing unchanged subtrees
// with their input. The nil shape is the empty, untainted, unknown-structure shape.
type Shape struct {
	taints   TaintSet
	children map[Offset]*Shape

	// scalar marks a value known to have no decomposable structure. Offsets running
	// through a scalar collapse onto it instead of materializing children.
	scalar bool
}

// emptyShape is what Lookup returns for absent paths: no taint, no structure.
var emptyShape = &Shape{}

// EmptyShape returns the empty untainted shape.
func EmptyShape() *Shape {
	return emptyShape
}

// Scalar returns a non-decomposable shape carrying the given taints.
func Scalar(taints TaintSet) *Shape {
	return &Shape{taints: taints, scalar: true}
}

func orEmpty(s *Shape) *Shape {
	if s == nil {
		return emptyShape
	}
	return s
}

// Taints returns the taints attached at the root of the shape, nil-safe.
func (s *Shape) Taints() TaintSet {
	if s == nil {
		return nil
	}
	return s.taints
}

// IsEmpty returns true if no taint is attached anywhere in the shape.
func (s *Shape) IsEmpty() bool {
	if s == nil {
		return true
	}
	if !s.taints.IsEmpty() {
		return false
	}
	for _, child := range s.children {
		if !child.IsEmpty() {
			return false
		}
	}
	return true
}

// AllTaints returns the union of the taints attached at every node of the shape.
func (s *Shape) AllTaints() TaintSet {
	if s == nil {
		return nil
	}
	all := s.taints
	for _, child := range s.children {
		all = all.Union(child.AllTaints())
	}
	return all
}

// Lookup addresses the sub-part of the value at the given offsets. It never fails:
// absent paths yield the empty shape, and offsets running through a scalar treat the
// rest of the path as absent. The returned taint set is the taint of the addressed
// part considered as a whole: taints attached below the addressed node and taints
// attached on any prefix of the path (whole-value taint covers its parts) are included.
func (s *Shape) Lookup(offsets []Offset) (TaintSet, *Shape) {
	cur := orEmpty(s)
	prefix := cur.taints
	for _, o := range offsets {
		child, ok := cur.children[o]
		if !ok || cur.scalar {
			return prefix, emptyShape
		}
		cur = child
		prefix = prefix.Union(cur.taints)
	}
	// prefix already includes cur's own taints
	return prefix.Union(cur.AllTaints()), cur
}

// Update returns a new shape with taints unioned in at the addressed sub-part. Paths
// deeper than the depth bound, or running through a scalar, collapse onto the deepest
// representable node. Taint already present is never removed.
func (s *Shape) Update(offsets []Offset, taints TaintSet) *Shape {
	if taints.IsEmpty() {
		return orEmpty(s)
	}
	if len(offsets) > maxShapeDepth {
		offsets = offsets[:maxShapeDepth]
	}
	return orEmpty(s).update(offsets, taints)
}

func (s *Shape) update(offsets []Offset, taints TaintSet) *Shape {
	if len(offsets) == 0 || s.scalar {
		return &Shape{taints: s.taints.Union(taints), children: s.children, scalar: s.scalar}
	}
	head := offsets[0]
	children := make(map[Offset]*Shape, len(s.children)+1)
	for o, child := range s.children {
		children[o] = child
	}
	children[head] = orEmpty(s.children[head]).update(offsets[1:], taints)
	return &Shape{taints: s.taints, children: children}
}

// Union returns the recursive union of two shapes: taints are unioned node-wise and
// children are merged. Neither input is modified.
func (s *Shape) Union(other *Shape) *Shape {
	if other.IsEmpty() && other.Taints().IsEmpty() {
		return orEmpty(s)
	}
	if s == nil || (s.taints.IsEmpty() && len(s.children) == 0) {
		return orEmpty(other)
	}
	other = orEmpty(other)
	children := make(map[Offset]*Shape, len(s.children)+len(other.children))
	for o, child := range s.children {
		children[o] = child
	}
	for o, child := range other.children {
		children[o] = children[o].Union(child)
	}
	return &Shape{
		taints:   s.taints.Union(other.taints),
		children: children,
		scalar:   s.scalar && other.scalar,
	}
}

// Graft returns a new shape where sub has been union-merged at the addressed sub-part.
// Like Update, deep or scalar-crossing paths collapse conservatively: the grafted
// sub-shape's taints are then attached flat at the collapse point.
func (s *Shape) Graft(offsets []Offset, sub *Shape) *Shape {
	if sub.IsEmpty() {
		return orEmpty(s)
	}
	if len(offsets) > maxShapeDepth {
		offsets = offsets[:maxShapeDepth]
		sub = Scalar(sub.AllTaints())
	}
	return orEmpty(s).graft(offsets, sub)
}

func (s *Shape) graft(offsets []Offset, sub *Shape) *Shape {
	if s.scalar && len(offsets) > 0 {
		return &Shape{taints: s.taints.Union(sub.AllTaints()), children: s.children, scalar: true}
	}
	if len(offsets) == 0 {
		return s.Union(sub)
	}
	head := offsets[0]
	children := make(map[Offset]*Shape, len(s.children)+1)
	for o, child := range s.children {
		children[o] = child
	}
	children[head] = orEmpty(s.children[head]).graft(offsets[1:], sub)
	return &Shape{taints: s.taints, children: children}
}

// Through returns a new shape where every taint at every node has crossed the call
// boundary step.
func (s *Shape) Through(step TraceStep) *Shape {
	if s.IsEmpty() {
		return orEmpty(s)
	}
	children := make(map[Offset]*Shape, len(s.children))
	for o, child := range s.children {
		children[o] = child.Through(step)
	}
	if len(children) == 0 {
		children = nil
	}
	return &Shape{taints: s.taints.Through(step), children: children, scalar: s.scalar}
}

func (s *Shape) String() string {
	if s == nil {
		return "{}"
	}
	var parts []string
	if !s.taints.IsEmpty() {
		parts = append(parts, s.taints.String())
	}
	for _, o := range funcutil.SortedKeysFunc(s.children, func(o Offset) string { return o.String() }) {
		parts = append(parts, fmt.Sprintf("%s%s", o, s.children[o]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
