package dto

import (
	"testing"
	"time"

	"github.com/your-org/mallid/internal/models"
)

func TestFromJourney_OpenJourneyHasNilExitTime(t *testing.T) {
	j := models.Journey{
		ID:         "j1",
		VisitorID:  "v1",
		MallID:     "mall-1",
		EntryPoint: "entrance-a",
		EntryTime:  time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC),
		Closed:     false,
		OutfitSummary: models.OutfitSummary{
			Top:    models.Garment{Type: models.GarmentJacket},
			Bottom: models.Garment{Type: models.GarmentJeans},
			Shoes:  models.Garment{Type: models.GarmentSneaker},
		},
	}

	resp := FromJourney(j)

	if resp.ExitTime != nil {
		t.Fatalf("expected nil ExitTime for an open journey, got %v", *resp.ExitTime)
	}
	if resp.Closed {
		t.Fatalf("expected Closed=false")
	}
	if resp.OutfitSummary.Top.Type != "jacket" {
		t.Errorf("top type = %q, want jacket", resp.OutfitSummary.Top.Type)
	}
}

func TestFromJourney_ClosedJourneyHasExitTime(t *testing.T) {
	exit := time.Date(2026, 7, 30, 11, 30, 0, 0, time.UTC)
	j := models.Journey{
		ID:         "j2",
		VisitorID:  "v2",
		MallID:     "mall-1",
		EntryPoint: "entrance-a",
		ExitPoint:  "entrance-b",
		EntryTime:  time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC),
		ExitTime:   exit,
		Closed:     true,
		Confidence: 0.82,
		Path: []models.JourneyStep{
			{PinID: "cam-1", PinName: "Entrance A", DurationSec: 45},
		},
	}

	resp := FromJourney(j)

	if resp.ExitTime == nil {
		t.Fatal("expected non-nil ExitTime for a closed journey")
	}
	if !resp.ExitTime.Equal(exit) {
		t.Errorf("ExitTime = %v, want %v", *resp.ExitTime, exit)
	}
	if len(resp.Path) != 1 || resp.Path[0].PinID != "cam-1" {
		t.Errorf("path not carried through: %+v", resp.Path)
	}
}
