// Package journey builds visitor Journeys by walking the chains formed by
// accepted associations (the Journey Builder, C4).
package journey

import (
	"fmt"
	"sort"

	"github.com/your-org/mallid/internal/errs"
	"github.com/your-org/mallid/internal/models"
)

// chain is one simple path of tracklet IDs in arrival order, with the
// link_score that produced each edge (nil for the head).
type chain struct {
	trackletIDs []string
	linkScores  []*float64 // len == len(trackletIDs); index 0 always nil
}

// buildChains turns every tracklet into a graph node and the accepted
// ("linked") associations into its edges, then decomposes the graph into
// disjoint simple chains. A tracklet touched by no association is its own
// single-node chain. It fails loudly if the graph branches: per-source
// arbitration guarantees at most one outgoing edge per source and the
// per-target top1 rule guarantees at most one incoming edge per target, so
// branching here means an upstream invariant was violated.
func buildChains(allTrackletIDs []string, linked []models.Association) ([]chain, error) {
	outgoing := make(map[string]models.Association, len(linked))
	incomingCount := make(map[string]int, len(linked))
	nodes := make(map[string]bool, len(allTrackletIDs))
	for _, id := range allTrackletIDs {
		nodes[id] = true
	}

	for _, a := range linked {
		if existing, ok := outgoing[a.FromTrackletID]; ok {
			return nil, errs.DataModelViolation("journey.buildChains",
				fmt.Errorf("source %s has more than one outgoing link (to %s and %s)",
					a.FromTrackletID, existing.ToTrackletID, a.ToTrackletID))
		}
		outgoing[a.FromTrackletID] = a
		incomingCount[a.ToTrackletID]++
		nodes[a.FromTrackletID] = true
		nodes[a.ToTrackletID] = true
	}
	for target, count := range incomingCount {
		if count > 1 {
			return nil, errs.DataModelViolation("journey.buildChains",
				fmt.Errorf("target %s has %d incoming links", target, count))
		}
	}

	hasIncoming := make(map[string]bool, len(incomingCount))
	for target := range incomingCount {
		hasIncoming[target] = true
	}

	var heads []string
	for id := range nodes {
		if !hasIncoming[id] {
			heads = append(heads, id)
		}
	}
	sort.Strings(heads)

	chains := make([]chain, 0, len(heads))
	for _, head := range heads {
		c := chain{trackletIDs: []string{head}, linkScores: []*float64{nil}}
		cur := head
		for {
			edge, ok := outgoing[cur]
			if !ok {
				break
			}
			score := edge.FinalScore
			c.trackletIDs = append(c.trackletIDs, edge.ToTrackletID)
			c.linkScores = append(c.linkScores, &score)
			cur = edge.ToTrackletID
		}
		chains = append(chains, c)
	}
	return chains, nil
}
