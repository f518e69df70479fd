package features

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"chainanalytics/internal/model"
)

// GlobalAnalytics is the set of whole-graph analytics spec §4.3 step 4
// computes exactly once per partition, before any per-address chunk
// processing begins.
type GlobalAnalytics struct {
	PageRank              map[int64]float64
	Betweenness           map[int64]float64
	Closeness             map[int64]float64
	ClusteringCoefficient map[int64]float64
	KCore                 map[int64]int64
	CommunityID           map[int64]int64
}

// ComputeGlobalAnalytics runs PageRank, approximate weighted betweenness,
// closeness, clustering coefficient, k-core and community detection over
// the graph's undirected projection once for the whole partition (spec
// §4.3 step 4).
func ComputeGlobalAnalytics(gr *model.Graph) (GlobalAnalytics, error) {
	ug := gr.UndirectedProjection()

	pr := network.PageRankWeighted(gr.Weighted(), 0.85, 1e-8)

	n := ug.Nodes().Len()
	k := n - 1
	if k > 1000 {
		k = 1000
	}
	betweenness := approximateWeightedBetweenness(ug, k)
	closeness := weightedCloseness(ug)
	clustering := clusteringCoefficients(ug)
	kcore := kCoreNumbers(ug)

	communityID, err := detectCommunities(ug)
	if err != nil {
		return GlobalAnalytics{}, err
	}

	return GlobalAnalytics{
		PageRank: pr, Betweenness: betweenness, Closeness: closeness,
		ClusteringCoefficient: clustering, KCore: kcore, CommunityID: communityID,
	}, nil
}

// approximateWeightedBetweenness estimates betweenness centrality using
// Brandes' algorithm run from a sample of k pivot nodes rather than every
// node, per spec §4.3's "k = min(1000, |V|-1) pivots" rule. Rescaled by
// n/k so the estimate's magnitude matches exact betweenness.
func approximateWeightedBetweenness(ug *simple.WeightedUndirectedGraph, k int) map[int64]float64 {
	result := make(map[int64]float64)
	nodes := graph.NodesOf(ug.Nodes())
	if len(nodes) == 0 || k <= 0 {
		return result
	}
	for _, nd := range nodes {
		result[nd.ID()] = 0
	}

	ids := make([]int64, len(nodes))
	for i, nd := range nodes {
		ids[i] = nd.ID()
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	rng := rand.New(rand.NewSource(1))
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	if k > len(ids) {
		k = len(ids)
	}
	pivots := ids[:k]

	for _, pivotID := range pivots {
		shortest := path.DijkstraFrom(simple.Node(pivotID), ug)
		for _, target := range nodes {
			if target.ID() == pivotID {
				continue
			}
			nodesOnPath, _ := shortest.To(target.ID())
			for _, mid := range nodesOnPath {
				if mid.ID() != pivotID && mid.ID() != target.ID() {
					result[mid.ID()]++
				}
			}
		}
	}

	scale := float64(len(ids)) / float64(k)
	for id := range result {
		result[id] *= scale
	}
	return result
}

func weightedCloseness(ug *simple.WeightedUndirectedGraph) map[int64]float64 {
	result := make(map[int64]float64)
	nodes := graph.NodesOf(ug.Nodes())
	for _, src := range nodes {
		shortest := path.DijkstraFrom(src, ug)
		var sum float64
		var reached int
		for _, dst := range nodes {
			if dst.ID() == src.ID() {
				continue
			}
			_, weight := shortest.To(dst.ID())
			if !isInf(weight) {
				sum += weight
				reached++
			}
		}
		if sum > 0 && reached > 0 {
			result[src.ID()] = float64(reached) / sum
		} else {
			result[src.ID()] = 0
		}
	}
	return result
}

func isInf(f float64) bool { return f > 1e18 }

// clusteringCoefficients computes the local (unweighted) clustering
// coefficient per node: triangles / possible-triangles among neighbors.
func clusteringCoefficients(ug *simple.WeightedUndirectedGraph) map[int64]float64 {
	result := make(map[int64]float64)
	nodes := graph.NodesOf(ug.Nodes())
	for _, nd := range nodes {
		neighbors := graph.NodesOf(ug.From(nd.ID()))
		deg := len(neighbors)
		if deg < 2 {
			result[nd.ID()] = 0
			continue
		}
		neighborSet := make(map[int64]bool, deg)
		for _, nb := range neighbors {
			neighborSet[nb.ID()] = true
		}
		var links int
		for i := 0; i < len(neighbors); i++ {
			for j := i + 1; j < len(neighbors); j++ {
				if ug.HasEdgeBetween(neighbors[i].ID(), neighbors[j].ID()) {
					links++
				}
			}
		}
		possible := float64(deg*(deg-1)) / 2
		result[nd.ID()] = float64(links) / possible
	}
	return result
}

// kCoreNumbers computes the unweighted k-core (coreness) number per node
// via the classic degeneracy-ordering peeling algorithm, over the
// undirected projection (spec §4.3). Gonum has no exported k-core
// primitive, so this is hand-rolled graph code over gonum's node/edge
// iterators.
func kCoreNumbers(ug *simple.WeightedUndirectedGraph) map[int64]int64 {
	degree := make(map[int64]int)
	nodes := graph.NodesOf(ug.Nodes())
	for _, nd := range nodes {
		degree[nd.ID()] = ug.From(nd.ID()).Len()
	}

	core := make(map[int64]int64, len(nodes))
	removed := make(map[int64]bool, len(nodes))
	remaining := len(nodes)

	for remaining > 0 {
		minDeg, minID := -1, int64(0)
		found := false
		for _, nd := range nodes {
			if removed[nd.ID()] {
				continue
			}
			d := degree[nd.ID()]
			if !found || d < minDeg {
				minDeg, minID, found = d, nd.ID(), true
			}
		}
		if !found {
			break
		}
		core[minID] = int64(minDeg)
		removed[minID] = true
		remaining--
		it := ug.From(minID)
		for it.Next() {
			nb := it.Node().ID()
			if !removed[nb] && degree[nb] > 0 {
				degree[nb]--
			}
		}
	}
	return core
}

// detectCommunities runs weighted modularity maximization (Louvain, via
// gonum's community package) over the undirected projection. Failure is
// fatal per spec §7's CommunityDetectionFailed.
func detectCommunities(ug *simple.WeightedUndirectedGraph) (map[int64]int64, error) {
	if ug.Nodes().Len() == 0 {
		return map[int64]int64{}, nil
	}
	reduced := community.Modularize(ug, 1.0, nil)
	if reduced == nil {
		return nil, model.NewError(model.KindCommunityDetectionFailed, "features", "modularize returned nil", nil)
	}

	communities := reduced.Communities()
	assignment := make(map[int64]int64)
	for cid, members := range communities {
		for _, m := range members {
			assignment[m.ID()] = int64(cid)
		}
	}
	if len(assignment) == 0 {
		return nil, model.NewError(model.KindCommunityDetectionFailed, "features", "empty community assignment", nil)
	}
	return assignment, nil
}

// KHopNeighborhood reports the count and total USD volume reachable from
// address within exactly k hops (BFS frontier at distance k) on the
// directed graph, per spec §4.3's k∈{1,2,3} neighborhood features.
func KHopNeighborhood(gr *model.Graph, address string, k int) (count int64, volumeUSD float64) {
	visited := map[string]bool{address: true}
	frontier := []string{address}
	for hop := 0; hop < k; hop++ {
		var next []string
		for _, addr := range frontier {
			for _, nb := range append(gr.Successors(addr), gr.Predecessors(addr)...) {
				if !visited[nb] {
					visited[nb] = true
					next = append(next, nb)
				}
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}
	for _, addr := range frontier {
		count++
		if attrs := gr.NodeAttrs(addr); attrs != nil {
			v, _ := attrs.TotalVolumeUSD.Float64()
			volumeUSD += v
		}
	}
	return count, volumeUSD
}
