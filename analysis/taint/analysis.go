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

// Package taint drives the taint analysis: it runs a statement-level forward pass over
// every analyzed function, instantiates the cataloged signature of each resolvable
// call through the propagation engine, and collects the source-to-sink findings.
package taint

import (
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/flowsig/flowsig/analysis/callgraph"
	"github.com/flowsig/flowsig/analysis/config"
	"github.com/flowsig/flowsig/analysis/lang"
	"github.com/flowsig/flowsig/analysis/propagation"
	"github.com/flowsig/flowsig/analysis/signatures"
	"github.com/flowsig/flowsig/internal/funcutil"
)

// A Finding is one complete source-to-sink flow: the taint that reached the sink,
// carrying its full trace through the call graph.
type Finding struct {
	Sink  propagation.Sink
	Taint propagation.Taint
}

func (f Finding) String() string {
	return fmt.Sprintf("%s reaches sink %s", f.Taint, f.Sink)
}

// key identifies a finding for deduplication across fixpoint sweeps.
func (f Finding) key() string {
	return f.Sink.String() + "!" + f.Taint.Key()
}

// An AnalysisResult gathers the findings and the call graph of one analysis run.
type AnalysisResult struct {
	Findings []Finding
	Graph    *callgraph.Graph

	// FunctionsAnalyzed is the number of function bodies the pass visited.
	FunctionsAnalyzed int
}

type analyzer struct {
	logger *config.LogGroup
	cfg    *config.Config
	cat    *signatures.Catalog
	prog   *ssa.Program
}

// Analyze runs the taint analysis over every function of the program whose package
// matches the configured filter. Function bodies are independent (the engine is pure
// and signatures are read-only), so they are analyzed in parallel.
func Analyze(logger *config.LogGroup, cfg *config.Config, program *ssa.Program,
	cat *signatures.Catalog) (*AnalysisResult, error) {
	if program == nil {
		return nil, fmt.Errorf("no program to analyze")
	}
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if cat == nil {
		cat = signatures.Predefined()
	}
	if cfg.MaxShapeDepth > 0 {
		propagation.SetMaxShapeDepth(cfg.MaxShapeDepth)
	}
	an := &analyzer{logger: logger, cfg: cfg, cat: cat, prog: program}

	var functions []*ssa.Function
	for fn := range ssautil.AllFunctions(program) {
		if len(fn.Blocks) == 0 {
			continue
		}
		if !cfg.MatchPkgFilter(lang.PackageNameFromFunction(fn)) {
			continue
		}
		functions = append(functions, fn)
	}
	sort.Slice(functions, func(i, j int) bool { return functions[i].String() < functions[j].String() })

	logger.Infof("Analyzing %d functions against %d signatures...", len(functions), cat.Size())

	graph := callgraph.NewGraph()
	for _, fn := range functions {
		graph.AddFunc(fn.String())
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				if call, ok := instr.(ssa.CallInstruction); ok {
					if callee, named := lang.CalleeName(call); named {
						graph.AddCall(fn.String(), callee)
					}
				}
			}
		}
	}
	for _, group := range graph.RecursiveGroups() {
		logger.Debugf("recursive group (widened upstream): %v", group)
	}

	perFunction := funcutil.MapParallel(functions,
		func(fn *ssa.Function) []Finding { return an.runFunction(fn) },
		runtime.NumCPU())

	seen := map[string]bool{}
	var findings []Finding
	for _, fs := range perFunction {
		for _, f := range fs {
			if !seen[f.key()] {
				seen[f.key()] = true
				findings = append(findings, f)
			}
		}
	}
	sort.Slice(findings, func(i, j int) bool { return findings[i].key() < findings[j].key() })

	return &AnalysisResult{
		Findings:          findings,
		Graph:             graph,
		FunctionsAnalyzed: len(functions),
	}, nil
}

// maxSweeps caps the per-function fixpoint iteration. Taint only grows, so the pass
// converges; the cap is a guard against pathological bodies.
const maxSweeps = 20

// runFunction runs the forward pass over one function body until its taint state is
// stable.
func (an *analyzer) runFunction(fn *ssa.Function) []Finding {
	s := &flowState{
		an:       an,
		fn:       fn,
		env:      propagation.Env{},
		vals:     map[ssa.Value]*propagation.Shape{},
		findings: map[string]Finding{},
	}
	prev := -1
	for i := 0; i < maxSweeps; i++ {
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				s.transfer(instr)
			}
		}
		if size := s.size(); size == prev {
			break
		} else {
			prev = size
		}
	}

	out := make([]Finding, 0, len(s.findings))
	for _, k := range funcutil.SortedKeys(s.findings) {
		out = append(out, s.findings[k])
	}
	return out
}
