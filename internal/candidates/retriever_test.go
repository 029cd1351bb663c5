package candidates

import (
	"testing"
	"time"

	"github.com/your-org/mallid/internal/models"
	"github.com/your-org/mallid/internal/ports"
	"github.com/your-org/mallid/internal/topology"
)

func buildLinearTopo(t *testing.T) *topology.Index {
	t.Helper()
	data := ports.TopologyData{
		Pins: []models.CameraPin{
			{ID: "A", Kind: models.PinEntrance, AdjacentTo: []string{"B"}},
			{ID: "B", Kind: models.PinNormal, AdjacentTo: []string{"A", "C"}},
			{ID: "C", Kind: models.PinNormal, AdjacentTo: []string{"B"}},
		},
	}
	idx, err := topology.Build("m1", data, topology.DefaultBuildOptions())
	if err != nil {
		t.Fatalf("build topology: %v", err)
	}
	return idx
}

func mkTracklet(id, pin string, tIn, tOut time.Time, emb []float32) models.Tracklet {
	return models.Tracklet{
		ID: id, MallID: "m1", PinID: pin,
		TIn: tIn, TOut: tOut, Embedding: emb, Quality: 1,
	}
}

func TestRetrieve_SameCameraExcluded(t *testing.T) {
	idx := buildLinearTopo(t)
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	target := mkTracklet("t1", "A", base.Add(40*time.Second), base.Add(45*time.Second), []float32{1, 0})
	source := mkTracklet("s1", "A", base, base.Add(5*time.Second), []float32{1, 0})

	got := Retrieve(idx, target, []models.Tracklet{source}, nil, Options{MaxCandidateWindowSec: 480, EmbedFloor: 0.75, TopK: 50})
	if len(got) != 0 {
		t.Fatalf("expected 0 candidates (same pin), got %d", len(got))
	}
}

func TestRetrieve_EmbeddingFloorExcludes(t *testing.T) {
	idx := buildLinearTopo(t)
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	target := mkTracklet("t1", "B", base.Add(40*time.Second), base.Add(45*time.Second), []float32{1, 0})
	source := mkTracklet("s1", "A", base, base.Add(5*time.Second), []float32{0, 1}) // orthogonal: cosine 0

	got := Retrieve(idx, target, []models.Tracklet{source}, nil, Options{MaxCandidateWindowSec: 480, EmbedFloor: 0.75, TopK: 50})
	if len(got) != 0 {
		t.Fatalf("expected 0 candidates (below embed floor), got %d", len(got))
	}
}

func TestRetrieve_NegativeDeltaTExcludes(t *testing.T) {
	idx := buildLinearTopo(t)
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	// source ends after target starts: impossible transit
	source := mkTracklet("s1", "A", base, base.Add(50*time.Second), []float32{1, 0})
	target := mkTracklet("t1", "B", base.Add(10*time.Second), base.Add(15*time.Second), []float32{1, 0})

	got := Retrieve(idx, target, []models.Tracklet{source}, nil, Options{MaxCandidateWindowSec: 480, EmbedFloor: 0.75, TopK: 50})
	if len(got) != 0 {
		t.Fatalf("expected 0 candidates (negative/too-small delta t), got %d", len(got))
	}
}

func TestRetrieve_AdmitsPlausibleCandidate(t *testing.T) {
	idx := buildLinearTopo(t)
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	source := mkTracklet("s1", "A", base, base.Add(5*time.Second), []float32{1, 0})
	// A-B default mu ~= 25/1.2 ~= 20.8s; place target ~20s later
	target := mkTracklet("t1", "B", base.Add(25*time.Second), base.Add(30*time.Second), []float32{1, 0})

	got := Retrieve(idx, target, []models.Tracklet{source}, nil, Options{MaxCandidateWindowSec: 480, EmbedFloor: 0.75, TopK: 50})
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].PreScore <= 0 {
		t.Errorf("expected positive pre-score, got %v", got[0].PreScore)
	}
}

func TestRetrieve_FrequentOutfitDownweights(t *testing.T) {
	idx := buildLinearTopo(t)
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	source := mkTracklet("s1", "A", base, base.Add(5*time.Second), []float32{1, 0})
	source.OutfitFingerprint = "uniform"
	target := mkTracklet("t1", "B", base.Add(25*time.Second), base.Add(30*time.Second), []float32{1, 0})

	opts := Options{MaxCandidateWindowSec: 480, EmbedFloor: 0.75, TopK: 50, FrequentOutfitThreshold: 5, FrequentOutfitPenalty: 0.8}

	withoutPenalty := Retrieve(idx, target, []models.Tracklet{source}, map[string]int{"uniform": 3}, opts)
	withPenalty := Retrieve(idx, target, []models.Tracklet{source}, map[string]int{"uniform": 6}, opts)

	if len(withoutPenalty) != 1 || len(withPenalty) != 1 {
		t.Fatalf("expected 1 candidate in both cases")
	}
	if withPenalty[0].PreScore >= withoutPenalty[0].PreScore {
		t.Errorf("frequent outfit should downweight pre-score: got %v vs %v", withPenalty[0].PreScore, withoutPenalty[0].PreScore)
	}
}

func TestRetrieve_TopKTruncation(t *testing.T) {
	idx := buildLinearTopo(t)
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	target := mkTracklet("t1", "B", base.Add(60*time.Second), base.Add(65*time.Second), []float32{1, 0})

	var sources []models.Tracklet
	for i := 0; i < 10; i++ {
		sources = append(sources, mkTracklet("s"+string(rune('a'+i)), "A", base, base.Add(time.Duration(i)*time.Second), []float32{1, 0}))
	}

	got := Retrieve(idx, target, sources, nil, Options{MaxCandidateWindowSec: 480, EmbedFloor: 0.75, TopK: 3})
	if len(got) != 3 {
		t.Fatalf("expected topK=3 candidates, got %d", len(got))
	}
}

func TestRushHourThresholdBump(t *testing.T) {
	if b := RushHourThresholdBump(15, 12, 0.05); b != 0.05 {
		t.Errorf("expected bump 0.05 for pool > trigger, got %v", b)
	}
	if b := RushHourThresholdBump(5, 12, 0.05); b != 0 {
		t.Errorf("expected no bump for pool <= trigger, got %v", b)
	}
}
