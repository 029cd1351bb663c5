package dto

import (
	"time"

	"github.com/your-org/mallid/internal/models"
)

// JourneyStepResponse is one pin visited within a reconstructed journey.
type JourneyStepResponse struct {
	PinID       string    `json:"pin_id"`
	PinName     string    `json:"pin_name"`
	TIn         time.Time `json:"t_in"`
	TOut        time.Time `json:"t_out"`
	DurationSec float64   `json:"duration_sec"`
	LinkScore   *float64  `json:"link_score,omitempty"`
}

// JourneyResponse is the wire shape for GET /v1/journeys.
type JourneyResponse struct {
	ID            string                `json:"id"`
	VisitorID     string                `json:"visitor_id"`
	MallID        string                `json:"mall_id"`
	EntryPoint    string                `json:"entry_point"`
	ExitPoint     string                `json:"exit_point,omitempty"`
	EntryTime     time.Time             `json:"entry_time"`
	ExitTime      *time.Time            `json:"exit_time,omitempty"`
	Path          []JourneyStepResponse `json:"path"`
	Confidence    float64               `json:"confidence"`
	OutfitSummary OutfitSummaryResponse `json:"outfit_summary"`
	Closed        bool                  `json:"closed"`
}

type OutfitSummaryResponse struct {
	Top    GarmentResponse `json:"top"`
	Bottom GarmentResponse `json:"bottom"`
	Shoes  GarmentResponse `json:"shoes"`
}

type GarmentResponse struct {
	Type string `json:"type"`
}

type JourneyListResponse struct {
	Journeys []JourneyResponse `json:"journeys"`
	Total    int               `json:"total"`
}

func FromJourney(j models.Journey) JourneyResponse {
	steps := make([]JourneyStepResponse, 0, len(j.Path))
	for _, s := range j.Path {
		steps = append(steps, JourneyStepResponse{
			PinID:       s.PinID,
			PinName:     s.PinName,
			TIn:         s.TIn,
			TOut:        s.TOut,
			DurationSec: s.DurationSec,
			LinkScore:   s.LinkScore,
		})
	}

	var exitTime *time.Time
	if j.Closed {
		t := j.ExitTime
		exitTime = &t
	}

	return JourneyResponse{
		ID:         j.ID,
		VisitorID:  j.VisitorID,
		MallID:     j.MallID,
		EntryPoint: j.EntryPoint,
		ExitPoint:  j.ExitPoint,
		EntryTime:  j.EntryTime,
		ExitTime:   exitTime,
		Path:       steps,
		Confidence: j.Confidence,
		OutfitSummary: OutfitSummaryResponse{
			Top:    GarmentResponse{Type: string(j.OutfitSummary.Top.Type)},
			Bottom: GarmentResponse{Type: string(j.OutfitSummary.Bottom.Type)},
			Shoes:  GarmentResponse{Type: string(j.OutfitSummary.Shoes.Type)},
		},
		Closed: j.Closed,
	}
}
