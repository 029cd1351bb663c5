package scoring

import (
	"sort"

	"github.com/your-org/mallid/internal/models"
)

// DecisionConfig carries the thresholds needed by the per-target decision
// rule.
type DecisionConfig struct {
	MatchThreshold           float64
	OutfitMin                float64
	AmbiguityGap             float64
	RushHourCandidateTrigger int
	RushHourThresholdBump    float64
}

// TargetDecision is the outcome of evaluating one target's scored
// candidate list: the Association record to audit (nil only when the
// candidate list was empty, i.e. the retriever already determined "new
// visitor" with nothing to attempt against), plus the chosen top1
// candidate when the decision is "linked" (consumed by arbitration).
type TargetDecision struct {
	Association *models.Association
	Top1        *Scored // non-nil whenever at least one candidate was scored
	Top1Linked  bool
}

// Decide applies the per-target decision rule to an already-scored
// candidate list. scored must come from scoring.Score for every
// admissible candidate of one target.
//
// poolSize is the target's full retrieval-time candidate pool, fixed
// regardless of how far arbitration has advanced this target's cursor.
// It drives both the rush-hour threshold bump and the persisted
// CandidateCount, so a loser re-decided against a shrunken window still
// reports and is gated on the pool size it was originally retrieved
// against, not the remainder left after earlier rounds claimed the head
// of its ranked list.
func Decide(targetID string, scored []Scored, poolSize int, cfg DecisionConfig) TargetDecision {
	if len(scored) == 0 {
		return TargetDecision{}
	}

	ranked := make([]Scored, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalScore != ranked[j].FinalScore {
			return ranked[i].FinalScore > ranked[j].FinalScore
		}
		// Deterministic tie-break: earlier source t_out first.
		return ranked[i].Candidate.Source.TOut.Before(ranked[j].Candidate.Source.TOut)
	})

	top1 := ranked[0]
	var second Scored
	hasSecond := len(ranked) > 1
	if hasSecond {
		second = ranked[1]
	}

	threshold := cfg.MatchThreshold + RushHourBump(poolSize, cfg)

	decision := models.DecisionNewVisitor
	meetsThreshold := top1.FinalScore >= threshold && top1.SubScores.OutfitSim >= cfg.OutfitMin
	gap := top1.FinalScore
	if hasSecond {
		gap = top1.FinalScore - second.FinalScore
	}

	switch {
	case meetsThreshold && gap >= cfg.AmbiguityGap:
		decision = models.DecisionLinked
	case meetsThreshold:
		decision = models.DecisionAmbiguous
	default:
		decision = models.DecisionNewVisitor
	}

	assoc := &models.Association{
		FromTrackletID: top1.Candidate.Source.ID,
		ToTrackletID:   targetID,
		Decision:       decision,
		FinalScore:     top1.FinalScore,
		SubScores:      top1.SubScores,
		Components:     top1.Components,
		CandidateCount: poolSize,
	}

	return TargetDecision{
		Association: assoc,
		Top1:        &top1,
		Top1Linked:  decision == models.DecisionLinked,
	}
}

// RushHourBump returns the threshold bump applied when a target's
// candidate pool exceeds RushHourCandidateTrigger.
func RushHourBump(candidateCount int, cfg DecisionConfig) float64 {
	if candidateCount > cfg.RushHourCandidateTrigger {
		return cfg.RushHourThresholdBump
	}
	return 0
}
