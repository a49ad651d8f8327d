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

package callgraph

import (
	"fmt"
	"sort"

	ybgraph "github.com/yourbasic/graph"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/flowsig/flowsig/internal/funcutil"
)

// StrongComponents returns the strongly connected components of the call graph as
// groups of function names. Functions in the same component of size > 1 (or with a
// self call) are mutually recursive.
func (g *Graph) StrongComponents() [][]string {
	comps := ybgraph.StrongComponents(g)
	result := make([][]string, len(comps))
	for i, comp := range comps {
		names := funcutil.Map(comp, func(v int) string { return g.names[v] })
		sort.Strings(names)
		result[i] = names
	}
	return result
}

// RecursiveGroups returns the strongly connected components that contain recursion:
// components of more than one function, and single functions that call themselves.
// Signatures of these groups must be widened by the summarization fixpoint before they
// reach the instantiation engine, since shapes cannot represent cyclic structure.
func (g *Graph) RecursiveGroups() [][]string {
	var groups [][]string
	for _, comp := range ybgraph.StrongComponents(g) {
		if len(comp) > 1 {
			names := funcutil.Map(comp, func(v int) string { return g.names[v] })
			sort.Strings(names)
			groups = append(groups, names)
		} else if v := comp[0]; g.out[v][int64(v)] {
			groups = append(groups, []string{g.names[v]})
		}
	}
	return groups
}

// SummarizationOrder returns the strongly connected components of the call graph
// ordered callees first: when components are processed in this order, every signature
// is fully computed before any caller outside its component instantiates it. This is
// the publish-after-compute order the concurrency model relies on.
func (g *Graph) SummarizationOrder() ([][]string, error) {
	comps := ybgraph.StrongComponents(g)

	// map every node to its component
	compOf := make([]int64, len(g.names))
	for i, comp := range comps {
		for _, v := range comp {
			compOf[v] = int64(i)
		}
	}

	cond := &condensation{order: len(comps), out: make([]map[int64]bool, len(comps))}
	for i := range comps {
		cond.out[i] = map[int64]bool{}
	}
	for v, succs := range g.out {
		for w := range succs {
			if compOf[v] != compOf[w] {
				cond.out[compOf[v]][compOf[w]] = true
			}
		}
	}

	// The condensation is a DAG, so the topological sort cannot fail; edges run from
	// caller component to callee component, so the sorted order is callers first.
	sorted, err := topo.Sort(cond)
	if err != nil {
		return nil, fmt.Errorf("condensation is not acyclic: %w", err)
	}

	result := make([][]string, len(sorted))
	for i, node := range sorted {
		comp := comps[node.ID()]
		names := funcutil.Map(comp, func(v int) string { return g.names[v] })
		sort.Strings(names)
		// reverse: callees first
		result[len(sorted)-1-i] = names
	}
	return result, nil
}

// condensation is the component DAG of a call graph, in the shape gonum's topological
// sort consumes.
type condensation struct {
	order int
	out   []map[int64]bool
}

func (c *condensation) Node(id int64) graph.Node {
	if id < 0 || id >= int64(c.order) {
		return nil
	}
	return simple.Node(id)
}

func (c *condensation) Nodes() graph.Nodes {
	nodes := make([]graph.Node, c.order)
	for i := range nodes {
		nodes[i] = simple.Node(i)
	}
	return iterator.NewOrderedNodes(nodes)
}

func (c *condensation) From(id int64) graph.Nodes {
	if id < 0 || id >= int64(c.order) {
		return iterator.NewOrderedNodes(nil)
	}
	nodes := make([]graph.Node, 0, len(c.out[id]))
	for w := range c.out[id] {
		nodes = append(nodes, simple.Node(w))
	}
	return iterator.NewOrderedNodes(nodes)
}

func (c *condensation) To(id int64) graph.Nodes {
	var nodes []graph.Node
	for v, succs := range c.out {
		if succs[id] {
			nodes = append(nodes, simple.Node(v))
		}
	}
	return iterator.NewOrderedNodes(nodes)
}

func (c *condensation) HasEdgeBetween(xid, yid int64) bool {
	return c.HasEdgeFromTo(xid, yid) || c.HasEdgeFromTo(yid, xid)
}

func (c *condensation) HasEdgeFromTo(uid, vid int64) bool {
	if uid < 0 || uid >= int64(c.order) {
		return false
	}
	return c.out[uid][vid]
}

func (c *condensation) Edge(uid, vid int64) graph.Edge {
	if !c.HasEdgeFromTo(uid, vid) {
		return nil
	}
	return simple.Edge{F: simple.Node(uid), T: simple.Node(vid)}
}
