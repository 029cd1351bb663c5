package models

import "time"

// JourneyStep is one pin visited within a journey's path.
type JourneyStep struct {
	PinID       string
	PinName     string
	TIn         time.Time
	TOut        time.Time
	DurationSec float64
	// LinkScore is nil for the head step (no incoming link); otherwise the
	// final_score of the association that produced this step.
	LinkScore *float64
}

// OutfitSummary is the journey-level outfit descriptor: a majority-voted
// garment type plus quality-weighted mean color per slot.
type OutfitSummary struct {
	Top    Garment
	Bottom Garment
	Shoes  Garment
}

// Journey is a visitor's reconstructed path through the mall, anchored at
// an entrance camera.
type Journey struct {
	ID            string
	VisitorID     string
	MallID        string
	EntryPoint    string
	ExitPoint     string // empty if still open
	EntryTime     time.Time
	ExitTime      time.Time // zero if still open
	Path          []JourneyStep
	Confidence    float64
	OutfitSummary OutfitSummary
	Closed        bool
}
