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

// Package callgraph maintains a lightweight call graph over function names and
// computes the bottom-up orderings the signature publication step needs: a function's
// signature must be fully computed before any caller instantiates it.
package callgraph

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
)

// A Graph is a directed call graph over function names. Nodes are created on demand by
// AddFunc and AddCall. The zero value is not usable; use NewGraph.
//
// Graph implements both the iterator interface of yourbasic/graph (Order/Visit) and
// gonum's graph.Directed, so both libraries' algorithms apply to it directly.
type Graph struct {
	ids   map[string]int64
	names []string
	out   []map[int64]bool
	in    []map[int64]bool
}

// NewGraph returns an empty call graph.
func NewGraph() *Graph {
	return &Graph{ids: map[string]int64{}}
}

// AddFunc ensures a node exists for the function and returns its id.
func (g *Graph) AddFunc(name string) int64 {
	if id, ok := g.ids[name]; ok {
		return id
	}
	id := int64(len(g.names))
	g.ids[name] = id
	g.names = append(g.names, name)
	g.out = append(g.out, map[int64]bool{})
	g.in = append(g.in, map[int64]bool{})
	return id
}

// AddCall records a call edge from caller to callee.
func (g *Graph) AddCall(caller string, callee string) {
	from := g.AddFunc(caller)
	to := g.AddFunc(callee)
	g.out[from][to] = true
	g.in[to][from] = true
}

// Name returns the function name of a node id.
func (g *Graph) Name(id int64) string {
	return g.names[id]
}

// Order returns the number of nodes. Part of the yourbasic graph.Iterator interface.
func (g *Graph) Order() int {
	return len(g.names)
}

// Visit calls do for every out-neighbor of v. Part of the yourbasic graph.Iterator
// interface.
func (g *Graph) Visit(v int, do func(w int, c int64) bool) bool {
	if v < 0 || v >= len(g.out) {
		return false
	}
	for w := range g.out[v] {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// Node implements gonum's graph.Graph.
func (g *Graph) Node(id int64) graph.Node {
	if id < 0 || id >= int64(len(g.names)) {
		return nil
	}
	return simple.Node(id)
}

// Nodes implements gonum's graph.Graph.
func (g *Graph) Nodes() graph.Nodes {
	nodes := make([]graph.Node, len(g.names))
	for i := range g.names {
		nodes[i] = simple.Node(i)
	}
	return iterator.NewOrderedNodes(nodes)
}

// From implements gonum's graph.Graph.
func (g *Graph) From(id int64) graph.Nodes {
	return neighborNodes(g.out, id)
}

// To implements gonum's graph.Directed.
func (g *Graph) To(id int64) graph.Nodes {
	return neighborNodes(g.in, id)
}

// HasEdgeBetween implements gonum's graph.Graph.
func (g *Graph) HasEdgeBetween(xid, yid int64) bool {
	return g.HasEdgeFromTo(xid, yid) || g.HasEdgeFromTo(yid, xid)
}

// HasEdgeFromTo implements gonum's graph.Directed.
func (g *Graph) HasEdgeFromTo(uid, vid int64) bool {
	if uid < 0 || uid >= int64(len(g.out)) {
		return false
	}
	return g.out[uid][vid]
}

// Edge implements gonum's graph.Graph.
func (g *Graph) Edge(uid, vid int64) graph.Edge {
	if !g.HasEdgeFromTo(uid, vid) {
		return nil
	}
	return simple.Edge{F: simple.Node(uid), T: simple.Node(vid)}
}

func neighborNodes(adj []map[int64]bool, id int64) graph.Nodes {
	if id < 0 || id >= int64(len(adj)) {
		return iterator.NewOrderedNodes(nil)
	}
	nodes := make([]graph.Node, 0, len(adj[id]))
	for w := range adj[id] {
		nodes = append(nodes, simple.Node(w))
	}
	return iterator.NewOrderedNodes(nodes)
}
