// Package graphbuild turns windowed flow rows into the directed weighted
// graph the feature builder and pattern detectors share (spec §4.2).
package graphbuild

import (
	"chainanalytics/internal/model"
)

// Build constructs a Graph from the flow rows of a single window. Each
// flow yields exactly one edge; a repeated ordered pair is rejected with
// DuplicateFlow, and an empty flow set is rejected with EmptyWindow,
// exactly per spec §4.2.
func Build(flows []model.Flow) (*model.Graph, error) {
	if len(flows) == 0 {
		return nil, model.NewError(model.KindEmptyWindow, "graph_builder", "no flows in window", nil)
	}

	g := model.NewGraph()
	for _, f := range flows {
		if g.HasEdge(f.From, f.To) {
			return nil, model.NewError(model.KindDuplicateFlow, "graph_builder",
				"duplicate flow for ordered pair "+f.From+"->"+f.To, nil)
		}
		g.AddEdge(f.From, f.To, f.AmountUSDSum, f.TxCount)
	}
	g.RecomputeNodeVolumes()
	return g, nil
}
