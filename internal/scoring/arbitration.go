package scoring

import (
	"sort"

	"github.com/your-org/mallid/internal/models"
)

// Arbitrate resolves collisions where two or more targets would each claim
// the same source tracklet as "linked". Losing targets fall back to their
// next-best candidate and are re-decided, repeating until every source is
// claimed by at most one target or every target has exhausted its
// candidate list. Targets are always processed in ascending tracklet-ID
// order so the outcome does not depend on input order.
//
// scoredByTarget must hold, per target ID, every Scored candidate produced
// by Score for that target (unsorted is fine; Arbitrate ranks internally).
func Arbitrate(targets []models.Tracklet, scoredByTarget map[string][]Scored, cfg DecisionConfig, cooldown *CooldownRegistry) ([]*models.Association, int) {
	targetByID := make(map[string]models.Tracklet, len(targets))
	order := make([]string, 0, len(targets))
	for _, t := range targets {
		targetByID[t.ID] = t
		order = append(order, t.ID)
	}
	sort.Strings(order)

	ranked := make(map[string][]Scored, len(scoredByTarget))
	for id, scored := range scoredByTarget {
		cp := make([]Scored, len(scored))
		copy(cp, scored)
		sort.SliceStable(cp, func(i, j int) bool {
			if cp[i].FinalScore != cp[j].FinalScore {
				return cp[i].FinalScore > cp[j].FinalScore
			}
			return cp[i].Candidate.Source.TOut.Before(cp[j].Candidate.Source.TOut)
		})
		ranked[id] = cp
	}

	cursor := make(map[string]int, len(order))

	maxRounds := len(order) + 8
	var decisions map[string]TargetDecision
	roundsUsed := 0

	for round := 0; round < maxRounds; round++ {
		roundsUsed = round + 1
		decisions = make(map[string]TargetDecision, len(order))
		for _, id := range order {
			list := ranked[id]
			skip := cursor[id]
			var window []Scored
			if skip < len(list) {
				window = list[skip:]
			}
			decisions[id] = Decide(id, window, len(list), cfg)
		}

		claimants := make(map[string][]string) // source -> target IDs claiming it
		for _, id := range order {
			d := decisions[id]
			if d.Top1Linked && d.Top1 != nil {
				src := d.Top1.Candidate.Source.ID
				claimants[src] = append(claimants[src], id)
			}
		}

		conflictedSources := make([]string, 0)
		for src, ids := range claimants {
			if len(ids) > 1 {
				conflictedSources = append(conflictedSources, src)
			}
		}
		if len(conflictedSources) == 0 {
			break
		}
		sort.Strings(conflictedSources)

		for _, src := range conflictedSources {
			ids := claimants[src]
			sort.Strings(ids)
			winner := ids[0]
			bestScore := decisions[winner].Top1.FinalScore
			for _, id := range ids[1:] {
				if decisions[id].Top1.FinalScore > bestScore {
					winner = id
					bestScore = decisions[id].Top1.FinalScore
				}
			}
			for _, id := range ids {
				if id != winner {
					cursor[id]++
				}
			}
		}
	}

	result := make([]*models.Association, 0, len(order))
	for _, id := range order {
		d := decisions[id]
		if d.Association == nil {
			continue
		}
		assoc := d.Association
		if d.Top1Linked && cooldown != nil {
			target := targetByID[id]
			if !cooldown.Allow(assoc.FromTrackletID, target.PinID, target.TIn) {
				assoc.Decision = models.DecisionNewVisitor
			} else {
				cooldown.Record(assoc.FromTrackletID, target.PinID, target.TIn)
			}
		}
		result = append(result, assoc)
	}
	return result, roundsUsed
}
