// Package scoring implements per-candidate sub-scores, fusion into a final
// score, the decision rule, collision arbitration, and the cooldown
// registry.
package scoring

import (
	"math"

	"github.com/your-org/mallid/internal/candidates"
	"github.com/your-org/mallid/internal/colorspace"
	"github.com/your-org/mallid/internal/models"
	"github.com/your-org/mallid/internal/topology"
)

// Outfit weighting constants.
const (
	typeWeight   = 0.35
	colorWeight  = 0.35
	embedWeight  = 0.30
	heightWeight = 0.7
	aspectWeight = 0.3
)

// Fusion weighting constants.
const (
	WeightOutfit    = 0.55
	WeightTime      = 0.20
	WeightAdjacency = 0.15
	WeightPhysique  = 0.10
)

// GarmentTypeScore scores a single garment type pair: 1.0 exact match, 0.6
// visually-close equivalence class, 0.0 otherwise. GarmentOther on either
// side always scores 0.0.
func GarmentTypeScore(a, b models.GarmentType) float64 {
	if a == models.GarmentOther || b == models.GarmentOther {
		return 0.0
	}
	if a == b {
		return 1.0
	}
	if models.VisuallyClose(a, b) {
		return 0.6
	}
	return 0.0
}

// garmentVisibility turns a tracklet's overall quality into a per-garment
// visibility weight. resolves the open question: quality is a
// per-garment visibility multiplier, never a tracklet-level veto.
func garmentVisibility(quality float64) float64 {
	if quality < 0 {
		return 0
	}
	if quality > 1 {
		return 1
	}
	return quality
}

// TypeScore computes the visibility-weighted average type_score across the
// three garment slots.
func TypeScore(source, target models.Tracklet) float64 {
	vSource := garmentVisibility(source.Quality)
	vTarget := garmentVisibility(target.Quality)

	slots := []struct {
		a, b models.GarmentType
	}{
		{source.Outfit.Top.Type, target.Outfit.Top.Type},
		{source.Outfit.Bottom.Type, target.Outfit.Bottom.Type},
		{source.Outfit.Shoes.Type, target.Outfit.Shoes.Type},
	}

	var weightedSum, weightTotal float64
	for _, slot := range slots {
		w := vSource * vTarget
		weightedSum += w * GarmentTypeScore(slot.a, slot.b)
		weightTotal += w
	}
	if weightTotal == 0 {
		return 0
	}
	return weightedSum / weightTotal
}

// GarmentColorDeltaEs returns the per-garment CIEDE2000 deltas, keyed by
// slot name, for the Association.components audit trail.
func GarmentColorDeltaEs(source, target models.Tracklet) map[string]float64 {
	return map[string]float64{
		"top":    colorspace.DeltaE2000(source.Outfit.Top.ColorLAB, target.Outfit.Top.ColorLAB),
		"bottom": colorspace.DeltaE2000(source.Outfit.Bottom.ColorLAB, target.Outfit.Bottom.ColorLAB),
		"shoes":  colorspace.DeltaE2000(source.Outfit.Shoes.ColorLAB, target.Outfit.Shoes.ColorLAB),
	}
}

// ColorScore computes the visibility-weighted average color_score across
// the three garment slots: exp(-ΔE/12) per garment.
func ColorScore(source, target models.Tracklet) float64 {
	vSource := garmentVisibility(source.Quality)
	vTarget := garmentVisibility(target.Quality)

	pairs := []struct {
		a, b colorspace.LAB
	}{
		{source.Outfit.Top.ColorLAB, target.Outfit.Top.ColorLAB},
		{source.Outfit.Bottom.ColorLAB, target.Outfit.Bottom.ColorLAB},
		{source.Outfit.Shoes.ColorLAB, target.Outfit.Shoes.ColorLAB},
	}

	var weightedSum, weightTotal float64
	for _, p := range pairs {
		w := vSource * vTarget
		weightedSum += w * colorspace.ColorScore(p.a, p.b)
		weightTotal += w
	}
	if weightTotal == 0 {
		return 0
	}
	return weightedSum / weightTotal
}

// OutfitSim combines type, color, and embedding similarity into the
// outfit_sim sub-score.
func OutfitSim(typeScore, colorScoreVal, embedCosine float64) float64 {
	return typeWeight*typeScore + colorWeight*colorScoreVal + embedWeight*embedCosine
}

// TimeScore computes time_score = exp(-max(0, |Δt-mu|)/tau), clamped to
// [0,1].
func TimeScore(deltaT, mu, tau float64) float64 {
	if tau <= 0 {
		return 0
	}
	diff := math.Abs(deltaT - mu)
	if diff < 0 {
		diff = 0
	}
	score := math.Exp(-diff / tau)
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

// TimeGatePasses reports whether (deltaT, mu, tau) clears the hard time
// gate of: reject if deltaT < 1s or deltaT > mu+3*tau.
func TimeGatePasses(deltaT, mu, tau float64) bool {
	if deltaT < 1.0 {
		return false
	}
	if deltaT > mu+3*tau {
		return false
	}
	return true
}

// AdjScore maps hop distance to the adjacency sub-score: 1.0 for 1-hop,
// 0.5 for 2-hop, 0.0 otherwise.
func AdjScore(hop topology.HopDistance) float64 {
	switch hop {
	case 1:
		return 1.0
	case 2:
		return 0.5
	default:
		return 0.0
	}
}

// HeightScore scores the physique height-category pair: 1.0 same, 0.5
// adjacent, 0.0 otherwise.
func HeightScore(a, b models.HeightCategory) float64 {
	if a == b {
		return 1.0
	}
	if a.Adjacent(b) {
		return 0.5
	}
	return 0.0
}

// AspectScore scores aspect-ratio closeness: 1 - min(1, |a-b|/0.3).
func AspectScore(a, b float64) float64 {
	diff := math.Abs(a - b)
	score := 1 - math.Min(1, diff/0.3)
	if score < 0 {
		return 0
	}
	return score
}

// PhysiqueScore fuses height and aspect scores.
func PhysiqueScore(source, target models.Tracklet) float64 {
	h := HeightScore(source.Physique.HeightCategory, target.Physique.HeightCategory)
	a := AspectScore(source.Physique.AspectRatio, target.Physique.AspectRatio)
	return heightWeight*h + aspectWeight*a
}

// candidateSourceView adapts a candidates.Candidate into the (deltaT,
// embedCosine, hop) tuple scoring needs, keeping the scoring package
// decoupled from the candidate retriever's internal struct shape beyond
// this narrow accessor.
func candidateSourceView(c candidates.Candidate) (float64, float64, topology.HopDistance) {
	return c.DeltaTSec, c.EmbedCosine, c.HopDistance
}
