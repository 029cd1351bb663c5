package candidates

import (
	"math"
	"sort"

	"github.com/your-org/mallid/internal/models"
	"github.com/your-org/mallid/internal/topology"
)

// CosineSimilarity computes cosine similarity between two L2-normalized
// embedding vectors, clipped to [0,1]. The implementation mirrors
// vision.CosineSimilarity from the upstream detection service this core
// consumes tracklets from, adapted to operate on the already-normalized
// embeddings carried on models.Tracklet.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	if dot < 0 {
		dot = 0
	}
	if dot > 1 {
		dot = 1
	}
	return dot
}

// Candidate is one admissible source tracklet for a target, carrying the
// cheap pre-score used to rank and truncate the candidate list.
type Candidate struct {
	Source      models.Tracklet
	PreScore    float64
	DeltaTSec   float64
	EmbedCosine float64
	HopDistance topology.HopDistance
}

// Options configures the admissibility gates and pre-score weighting used
// by admit and Retrieve.
type Options struct {
	MaxCandidateWindowSec   float64
	EmbedFloor              float64
	TopK                    int
	FrequentOutfitThreshold int
	FrequentOutfitPenalty   float64
}

// Retrieve returns at most Options.TopK source candidates for target,
// sorted by descending pre-score (tie-broken by earlier source TOut).
func Retrieve(idx *topology.Index, target models.Tracklet, sources []models.Tracklet, outfitCounts map[string]int, opts Options) []Candidate {
	out := make([]Candidate, 0, len(sources))

	for _, s := range sources {
		cand, ok := admit(idx, s, target, opts)
		if !ok {
			continue
		}
		if count := outfitCounts[s.OutfitFingerprint]; count > opts.FrequentOutfitThreshold {
			cand.PreScore *= opts.FrequentOutfitPenalty
		}
		out = append(out, cand)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PreScore != out[j].PreScore {
			return out[i].PreScore > out[j].PreScore
		}
		return out[i].Source.TOut.Before(out[j].Source.TOut)
	})

	k := opts.TopK
	if k <= 0 || k > len(out) {
		k = len(out)
	}
	return out[:k]
}

// admit evaluates the six admissibility gates in order and, if all pass,
// returns the candidate with its cheap pre-score computed.
func admit(idx *topology.Index, s, t models.Tracklet, opts Options) (Candidate, bool) {
	if s.PinID == t.PinID {
		return Candidate{}, false // gate 1: cross-camera only
	}

	hop := idx.HopDistance(s.PinID, t.PinID)
	if hop == topology.Infinite || hop > 2 {
		return Candidate{}, false // gate 2
	}

	deltaT := models.DeltaTSeconds(s, t)
	if deltaT < 1.0 {
		return Candidate{}, false // gate 3: physically impossible transit
	}

	tp, ok := idx.TransitParams(s.PinID, t.PinID)
	if !ok {
		return Candidate{}, false
	}
	if deltaT > tp.MuSec+3*tp.TauSec {
		return Candidate{}, false // gate 4: cheap upper gate
	}

	if opts.MaxCandidateWindowSec > 0 && deltaT > opts.MaxCandidateWindowSec {
		return Candidate{}, false // gate 5: hard ceiling
	}

	cosine := CosineSimilarity(s.Embedding, t.Embedding)
	if cosine < opts.EmbedFloor {
		return Candidate{}, false // gate 6
	}

	timeTerm := math.Exp(-math.Abs(deltaT-tp.MuSec) / tp.TauSec)
	preScore := 0.7*cosine + 0.3*timeTerm

	return Candidate{
		Source:      s,
		PreScore:    preScore,
		DeltaTSec:   deltaT,
		EmbedCosine: cosine,
		HopDistance: hop,
	}, true
}

// RushHourThresholdBump returns the additional match-threshold bump that
// applies to a target whose candidate pool exceeds the configured
// rush-hour trigger size.
func RushHourThresholdBump(candidateCount, trigger int, bump float64) float64 {
	if candidateCount > trigger {
		return bump
	}
	return 0
}
