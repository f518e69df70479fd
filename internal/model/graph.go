package model

import (
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// NodeAttrs carries the per-address attributes spec §3 attaches to every
// graph node.
type NodeAttrs struct {
	Address        string
	TotalVolumeUSD decimal.Decimal
}

// EdgeAttrs carries the per-flow attributes attached to every edge.
type EdgeAttrs struct {
	AmountUSDSum decimal.Decimal
	TxCount      int64
}

type edgeKey struct{ from, to int64 }

// Graph is a directed weighted multigraph-forbidding wrapper around
// gonum's simple.WeightedDirectedGraph, keyed by address string instead
// of gonum's int64 node IDs. One edge per ordered address pair; a second
// Flow for the same pair is rejected by the builder as DuplicateFlow
// before it ever reaches AddEdge.
type Graph struct {
	g           *simple.WeightedDirectedGraph
	addrToID    map[string]int64
	idToAddr    map[int64]string
	nodeAttrs   map[int64]*NodeAttrs
	edgeAttrs   map[edgeKey]*EdgeAttrs
	nextID      int64
}

func NewGraph() *Graph {
	return &Graph{
		g:         simple.NewWeightedDirectedGraph(0, 0),
		addrToID:  make(map[string]int64),
		idToAddr:  make(map[int64]string),
		nodeAttrs: make(map[int64]*NodeAttrs),
		edgeAttrs: make(map[edgeKey]*EdgeAttrs),
	}
}

// EnsureNode returns the address's node ID, creating the node on first use.
func (gr *Graph) EnsureNode(address string) int64 {
	if id, ok := gr.addrToID[address]; ok {
		return id
	}
	id := gr.nextID
	gr.nextID++
	gr.addrToID[address] = id
	gr.idToAddr[id] = address
	gr.nodeAttrs[id] = &NodeAttrs{Address: address}
	gr.g.AddNode(simple.Node(id))
	return id
}

// HasEdge reports whether an edge already exists for the ordered pair, so
// the builder can detect a duplicate flow before mutating the graph.
func (gr *Graph) HasEdge(from, to string) bool {
	fromID, ok1 := gr.addrToID[from]
	toID, ok2 := gr.addrToID[to]
	if !ok1 || !ok2 {
		return false
	}
	_, exists := gr.edgeAttrs[edgeKey{fromID, toID}]
	return exists
}

// AddEdge adds the single edge for an ordered address pair. Callers must
// check HasEdge first; AddEdge does not itself enforce the no-multi-edge
// invariant so the builder can produce a precise DuplicateFlow error.
func (gr *Graph) AddEdge(from, to string, amountUSDSum decimal.Decimal, txCount int64) {
	fromID := gr.EnsureNode(from)
	toID := gr.EnsureNode(to)
	w, _ := amountUSDSum.Float64()
	gr.g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(fromID), T: simple.Node(toID), W: w})
	gr.edgeAttrs[edgeKey{fromID, toID}] = &EdgeAttrs{AmountUSDSum: amountUSDSum, TxCount: txCount}
}

func (gr *Graph) NodeID(address string) (int64, bool) {
	id, ok := gr.addrToID[address]
	return id, ok
}

func (gr *Graph) Address(id int64) string { return gr.idToAddr[id] }

func (gr *Graph) NodeAttrs(address string) *NodeAttrs {
	id, ok := gr.addrToID[address]
	if !ok {
		return nil
	}
	return gr.nodeAttrs[id]
}

func (gr *Graph) EdgeAttrsBetween(from, to string) *EdgeAttrs {
	fromID, ok1 := gr.addrToID[from]
	toID, ok2 := gr.addrToID[to]
	if !ok1 || !ok2 {
		return nil
	}
	return gr.edgeAttrs[edgeKey{fromID, toID}]
}

// Addresses returns every node address, in no particular order. Callers
// that need a canonical order must sort.
func (gr *Graph) Addresses() []string {
	out := make([]string, 0, len(gr.addrToID))
	for a := range gr.addrToID {
		out = append(out, a)
	}
	return out
}

func (gr *Graph) NodeCount() int { return gr.g.Nodes().Len() }

// Successors/Predecessors return neighbor addresses for a given address.
func (gr *Graph) Successors(address string) []string {
	id, ok := gr.addrToID[address]
	if !ok {
		return nil
	}
	it := gr.g.From(id)
	out := make([]string, 0, it.Len())
	for it.Next() {
		out = append(out, gr.idToAddr[it.Node().ID()])
	}
	return out
}

func (gr *Graph) Predecessors(address string) []string {
	id, ok := gr.addrToID[address]
	if !ok {
		return nil
	}
	it := gr.g.To(id)
	out := make([]string, 0, it.Len())
	for it.Next() {
		out = append(out, gr.idToAddr[it.Node().ID()])
	}
	return out
}

func (gr *Graph) InDegree(address string) int {
	id, ok := gr.addrToID[address]
	if !ok {
		return 0
	}
	return gr.g.To(id).Len()
}

func (gr *Graph) OutDegree(address string) int {
	id, ok := gr.addrToID[address]
	if !ok {
		return 0
	}
	return gr.g.From(id).Len()
}

// Directed exposes the underlying gonum graph for algorithms (SCC, paths,
// PageRank, ...) that operate on graph.Directed/graph.Weighted.
func (gr *Graph) Directed() graph.Directed { return gr.g }

// Weighted exposes the weighted view used by weighted algorithms.
func (gr *Graph) Weighted() graph.WeightedDirected { return gr.g }

// UndirectedProjection builds the undirected projection used by
// community detection, k-core, clustering coefficient and proximity BFS.
// Parallel edges between the same pair (u->v and v->u) are summed into a
// single undirected edge weight.
func (gr *Graph) UndirectedProjection() *simple.WeightedUndirectedGraph {
	ug := simple.NewWeightedUndirectedGraph(0, 0)
	for id := range gr.idToAddr {
		ug.AddNode(simple.Node(id))
	}
	seen := make(map[edgeKey]bool)
	for k, attrs := range gr.edgeAttrs {
		rev := edgeKey{k.to, k.from}
		if seen[k] || seen[rev] {
			continue
		}
		w, _ := attrs.AmountUSDSum.Float64()
		if revAttrs, ok := gr.edgeAttrs[rev]; ok {
			rw, _ := revAttrs.AmountUSDSum.Float64()
			w += rw
		}
		ug.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(k.from), T: simple.Node(k.to), W: w})
		seen[k] = true
		seen[rev] = true
	}
	return ug
}

// RecomputeNodeVolumes sets each node's TotalVolumeUSD to the sum of
// incident edge AmountUSDSum (in + out), per spec §3/§4.2.
func (gr *Graph) RecomputeNodeVolumes() {
	totals := make(map[int64]decimal.Decimal, len(gr.idToAddr))
	for k, attrs := range gr.edgeAttrs {
		totals[k.from] = totals[k.from].Add(attrs.AmountUSDSum)
		totals[k.to] = totals[k.to].Add(attrs.AmountUSDSum)
	}
	for id, attrs := range gr.nodeAttrs {
		attrs.TotalVolumeUSD = totals[id]
	}
}
