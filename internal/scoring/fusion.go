package scoring

import (
	"github.com/your-org/mallid/internal/candidates"
	"github.com/your-org/mallid/internal/models"
)

// Scored is one fully-scored candidate for a target, prior to the decision
// rule and arbitration.
type Scored struct {
	Candidate      candidates.Candidate
	SubScores      models.SubScores
	Components     models.Components
	FinalScore     float64
	TimeGatePassed bool
}

// Score computes every sub-score and the fused final_score for one
// (source, target) pair. The weighted sum always adds terms in the same
// order (outfit, time, adjacency, physique) with no parallel reduction, so
// the result is bit-reproducible across runs.
func Score(cand candidates.Candidate, target models.Tracklet, mu, tau float64) Scored {
	deltaT, embedCosine, hop := candidateSourceView(cand)
	source := cand.Source

	gatePassed := TimeGatePasses(deltaT, mu, tau)

	typeScoreVal := TypeScore(source, target)
	colorScoreVal := ColorScore(source, target)
	outfitSim := OutfitSim(typeScoreVal, colorScoreVal, embedCosine)
	timeScoreVal := TimeScore(deltaT, mu, tau)
	adjScoreVal := AdjScore(hop)
	physiqueScoreVal := PhysiqueScore(source, target)

	sub := models.SubScores{
		OutfitSim:     outfitSim,
		TimeScore:     timeScoreVal,
		AdjScore:      adjScoreVal,
		PhysiqueScore: physiqueScoreVal,
	}

	var final float64
	if gatePassed {
		// Fixed coefficient order: outfit, time, adjacency, physique.
		final = WeightOutfit*sub.OutfitSim + WeightTime*sub.TimeScore +
			WeightAdjacency*sub.AdjScore + WeightPhysique*sub.PhysiqueScore
	} else {
		// Hard gate: reject regardless of other signals.
		final = 0
	}

	return Scored{
		Candidate:      cand,
		SubScores:      sub,
		TimeGatePassed: gatePassed,
		FinalScore:     final,
		Components: models.Components{
			TypeScore:             typeScoreVal,
			ColorDeltaEPerGarment: GarmentColorDeltaEs(source, target),
			EmbedCosine:           embedCosine,
			DeltaTSec:             deltaT,
			ExpectedMuSec:         mu,
			TauSec:                tau,
		},
	}
}
