package journey

import "math"

const (
	weightLinkScore         = 0.6
	weightPathLength        = 0.2
	weightTimingConsistency = 0.2
)

// pathLengthScore is a saturating function of path length (number of
// tracklets in the journey) that favours 3-or-more-camera paths without
// letting arbitrarily long paths dominate the confidence score.
func pathLengthScore(steps int) float64 {
	if steps <= 1 {
		return 0
	}
	return 1 - math.Exp(-float64(steps-1)/2.0)
}

func meanLinkScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// timingConsistencyScore folds each step's standardized timing residual
// (Δt-mu)/tau into exp(-std): tight, expected transit times yield a score
// near 1, erratic ones decay toward 0.
func timingConsistencyScore(residuals []float64) float64 {
	if len(residuals) == 0 {
		return 1
	}
	mean := 0.0
	for _, r := range residuals {
		mean += r
	}
	mean /= float64(len(residuals))

	var variance float64
	for _, r := range residuals {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(residuals))
	return math.Exp(-math.Sqrt(variance))
}

// Confidence fuses the three signals into the journey-level confidence
// score, weights {0.6, 0.2, 0.2}.
func Confidence(linkScores []float64, pathLen int, timingResiduals []float64) float64 {
	score := weightLinkScore*meanLinkScore(linkScores) +
		weightPathLength*pathLengthScore(pathLen) +
		weightTimingConsistency*timingConsistencyScore(timingResiduals)
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}
