package journey

import (
	"sort"

	"github.com/your-org/mallid/internal/colorspace"
	"github.com/your-org/mallid/internal/models"
)

// Summarize builds the journey-level outfit descriptor from the tracklets
// making up one journey's path: the majority-voted garment type and the
// quality-weighted mean LAB color, independently per slot.
func Summarize(tracklets []models.Tracklet) models.OutfitSummary {
	return models.OutfitSummary{
		Top:    summarizeSlot(tracklets, func(o models.Outfit) models.Garment { return o.Top }),
		Bottom: summarizeSlot(tracklets, func(o models.Outfit) models.Garment { return o.Bottom }),
		Shoes:  summarizeSlot(tracklets, func(o models.Outfit) models.Garment { return o.Shoes }),
	}
}

func summarizeSlot(tracklets []models.Tracklet, pick func(models.Outfit) models.Garment) models.Garment {
	votes := make(map[models.GarmentType]float64)
	colors := make([]colorspace.LAB, 0, len(tracklets))
	weights := make([]float64, 0, len(tracklets))

	for _, t := range tracklets {
		g := pick(t.Outfit)
		w := t.Quality
		if w <= 0 {
			w = 0.01
		}
		votes[g.Type] += w
		colors = append(colors, g.ColorLAB)
		weights = append(weights, w)
	}

	types := make([]models.GarmentType, 0, len(votes))
	for gt := range votes {
		types = append(types, gt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	best := models.GarmentOther
	bestWeight := -1.0
	for _, gt := range types {
		if votes[gt] > bestWeight {
			best = gt
			bestWeight = votes[gt]
		}
	}

	return models.Garment{
		Type:     best,
		ColorLAB: colorspace.MeanWeighted(colors, weights),
	}
}
