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

// Package signatures manages the catalog of function taint signatures consumed by the
// instantiation engine: predefined signatures for standard library functions, and
// user-provided signatures loaded from YAML files.
package signatures

import (
	"github.com/flowsig/flowsig/analysis/propagation"
	"github.com/flowsig/flowsig/internal/funcutil"
)

// A Catalog maps qualified function names (in the form produced by
// ssa.Function.String(), e.g. "os/exec.Command" or "(*net/http.Request).FormValue")
// to their taint signatures, and records which functions are taint sources.
//
// A source cannot be expressed as a propagation effect (it introduces taint rather
// than moving it), so sources are kept as a separate table mapping the function to
// the source identifier used in findings.
type Catalog struct {
	sigs    map[string]*propagation.Signature
	sources map[string]string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		sigs:    map[string]*propagation.Signature{},
		sources: map[string]string{},
	}
}

// Add validates sig and stores the well-formed part of it, overwriting any previous
// signature for the same function. The returned errors describe dropped effects.
func (c *Catalog) Add(sig *propagation.Signature) []error {
	valid, errs := sig.Validate()
	if valid != nil {
		c.sigs[valid.Func] = valid
	}
	return errs
}

// AddSource registers fn as a taint source producing taints identified by sourceID.
func (c *Catalog) AddSource(fn string, sourceID string) {
	c.sources[fn] = sourceID
}

// SignatureOf returns the signature of the named function, if the catalog has one.
func (c *Catalog) SignatureOf(fn string) (*propagation.Signature, bool) {
	sig, ok := c.sigs[fn]
	return sig, ok
}

// SourceOf returns the source identifier of the named function, if it is a source.
func (c *Catalog) SourceOf(fn string) (string, bool) {
	id, ok := c.sources[fn]
	return id, ok
}

// Size returns the number of signatures in the catalog.
func (c *Catalog) Size() int {
	return len(c.sigs)
}

// Merge adds all the signatures and sources of other into c. Entries of other win on
// conflict.
func (c *Catalog) Merge(other *Catalog) {
	if other == nil {
		return
	}
	funcutil.Merge(c.sigs, other.sigs,
		func(_ *propagation.Signature, b *propagation.Signature) *propagation.Signature { return b })
	funcutil.Merge(c.sources, other.sources, func(_ string, b string) string { return b })
}

// Functions returns the summarized function names in deterministic order.
func (c *Catalog) Functions() []string {
	return funcutil.SortedKeys(c.sigs)
}
