package models

// SubScores holds the four weighted sub-scores fused into FinalScore.
type SubScores struct {
	OutfitSim     float64
	TimeScore     float64
	AdjScore      float64
	PhysiqueScore float64
}

// Components carries the raw, unfused measurements behind SubScores, kept
// for audit and debugging.
type Components struct {
	TypeScore             float64
	ColorDeltaEPerGarment map[string]float64
	EmbedCosine           float64
	DeltaTSec             float64
	ExpectedMuSec         float64
	TauSec                float64
}

// Association is a scored candidate link between a source tracklet and a
// target tracklet. Produced once by the scoring engine; never mutated
// afterwards.
type Association struct {
	FromTrackletID string
	ToTrackletID   string
	Decision       Decision
	FinalScore     float64
	SubScores      SubScores
	Components     Components
	CandidateCount int
}
