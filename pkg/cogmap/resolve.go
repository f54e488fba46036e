package cogmap

import (
	"slices"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ResolvedEdge is an edge whose endpoints were found, as node indices.
type ResolvedEdge struct {
	Edge
	Source int
	Target int
}

// Resolution is the index of a node/edge list used for layout and
// diagnostics. Edges stay canonical by id; indices are only valid for the
// node slice they were resolved against.
type Resolution struct {
	graph      *simple.UndirectedGraph
	index      map[ID]int
	Edges      []ResolvedEdge
	Unresolved []Edge
	SelfLoops  []Edge
	Duplicates []ID
}

// Resolve indexes nodes by id and resolves every edge endpoint. Edges with a
// missing endpoint and self loops are reported, not dropped silently. When
// ids repeat, the first node wins.
func Resolve(nodes []Node, edges []Edge) *Resolution {
	r := &Resolution{
		graph: simple.NewUndirectedGraph(),
		index: make(map[ID]int, len(nodes)),
	}

	for i, n := range nodes {
		if _, dup := r.index[n.ID]; dup {
			r.Duplicates = append(r.Duplicates, n.ID)
			continue
		}
		r.index[n.ID] = i
		r.graph.AddNode(simple.Node(int64(i)))
	}

	for _, e := range edges {
		s, okS := r.index[e.Source]
		t, okT := r.index[e.Target]
		if !okS || !okT {
			r.Unresolved = append(r.Unresolved, e)
			continue
		}
		if s == t {
			r.SelfLoops = append(r.SelfLoops, e)
			continue
		}
		r.Edges = append(r.Edges, ResolvedEdge{Edge: e, Source: s, Target: t})

		if !r.graph.HasEdgeBetween(int64(s), int64(t)) {
			r.graph.SetEdge(r.graph.NewEdge(simple.Node(int64(s)), simple.Node(int64(t))))
		}
	}
	return r
}

// Index returns the node index for id.
func (r *Resolution) Index(id ID) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}

// Neighbors returns the indices of nodes sharing an edge with node i, in
// ascending order.
func (r *Resolution) Neighbors(i int) []int {
	var out []int
	it := r.graph.From(int64(i))
	for it.Next() {
		out = append(out, int(it.Node().ID()))
	}
	slices.Sort(out)
	return out
}

// Degree counts resolved edge ends per node, duplicates included.
func (r *Resolution) Degree(nodeCount int) []int {
	deg := make([]int, nodeCount)
	for _, e := range r.Edges {
		deg[e.Source]++
		deg[e.Target]++
	}
	return deg
}

// Components is the number of connected components of the resolved graph.
func (r *Resolution) Components() int {
	return len(topo.ConnectedComponents(r.graph))
}
