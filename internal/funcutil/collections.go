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

// Package funcutil provides generic helpers over slices and maps used across the
// analyses.
package funcutil

import (
	"sync"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Map returns a new slice b such that b[i] = f(a[i]).
func Map[T any, S any](a []T, f func(T) S) []S {
	var b []S
	for _, x := range a {
		b = append(b, f(x))
	}
	return b
}

// Merge merges map b into map a.
// If x is in b but not in a, then a[x] := b[x].
// If x is in both a and b, then a[x] := both(a[x], b[x]).
// @mutates a
func Merge[T comparable, S any](a map[T]S, b map[T]S, both func(x S, y S) S) {
	for x, yb := range b {
		if ya, ina := a[x]; ina {
			a[x] = both(ya, yb)
		} else {
			a[x] = yb
		}
	}
}

// Union returns the union of map-represented sets a and b.
// @mutates a
func Union[T comparable](a map[T]bool, b map[T]bool) map[T]bool {
	Merge(a, b, func(x bool, y bool) bool { return x || y })
	return a
}

// Contains returns true if x appears in the slice.
func Contains[T comparable](a []T, x T) bool {
	for _, y := range a {
		if y == x {
			return true
		}
	}
	return false
}

// SortedKeys returns the keys of the map in ascending order.
func SortedKeys[T constraints.Ordered, S any](m map[T]S) []T {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

// SortedKeysFunc returns the keys of the map ordered by the projection proj.
func SortedKeysFunc[T comparable, S any, P constraints.Ordered](m map[T]S, proj func(T) P) []T {
	keys := maps.Keys(m)
	slices.SortFunc(keys, func(a, b T) bool { return proj(a) < proj(b) })
	return keys
}

// elt pairs an element with its index so MapParallel can restore input order.
type elt[T any] struct {
	idx int
	x   T
}

// MapParallel is a parallel version of Map using numRoutines goroutines. The output
// order matches the input order.
func MapParallel[T any, S any](a []T, f func(T) S, numRoutines int) []S {
	if numRoutines <= 0 {
		numRoutines = 1
	}
	in := make(chan elt[T])
	go func() {
		defer close(in)
		for i, x := range a {
			in <- elt[T]{i, x}
		}
	}()

	out := make(chan elt[S])
	wg := &sync.WaitGroup{}
	wg.Add(numRoutines)
	for i := 0; i < numRoutines; i++ {
		go func() {
			defer wg.Done()
			for e := range in {
				out <- elt[S]{e.idx, f(e.x)}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	b := make([]S, len(a))
	for e := range out {
		b[e.idx] = e.x
	}
	return b
}
