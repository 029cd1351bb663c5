package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/your-org/mallid/internal/candidates"
	"github.com/your-org/mallid/internal/colorspace"
	"github.com/your-org/mallid/internal/models"
	"github.com/your-org/mallid/internal/ports"
	"github.com/your-org/mallid/internal/scoring"
)

// --- fake ports ---

type fixedTrackletSource struct{ tracklets []models.Tracklet }

func (f fixedTrackletSource) Fetch(ctx context.Context, mallID string, from, to time.Time) ([]models.Tracklet, error) {
	return f.tracklets, nil
}

type fixedTopologyRepo struct{ data ports.TopologyData }

func (f fixedTopologyRepo) Load(ctx context.Context, mallID string) (ports.TopologyData, error) {
	return f.data, nil
}

type emptyFrequentOutfitRepo struct{}

func (emptyFrequentOutfitRepo) Snapshot(ctx context.Context, mallID string, hourBucket int64) (map[string]int, error) {
	return map[string]int{}, nil
}

type recordingAssocSink struct{ batch []models.Association }

func (r *recordingAssocSink) Write(ctx context.Context, batch []models.Association) error {
	r.batch = batch
	return nil
}

type recordingJourneySink struct{ batch []models.Journey }

func (r *recordingJourneySink) Write(ctx context.Context, batch []models.Journey) error {
	r.batch = batch
	return nil
}

type noopFrequentOutfitSink struct{}

func (noopFrequentOutfitSink) Increment(ctx context.Context, mallID, fingerprint string, hourBucket int64, byCount int) error {
	return nil
}

func defaultTestConfig() Config {
	return Config{
		WorkerCount: 4,
		RetrieverOptions: candidates.Options{
			MaxCandidateWindowSec:   1_000_000,
			EmbedFloor:              0.75,
			TopK:                    50,
			FrequentOutfitThreshold: 5,
			FrequentOutfitPenalty:   0.8,
		},
		DecisionConfig: scoring.DecisionConfig{
			MatchThreshold:           0.78,
			OutfitMin:                0.70,
			AmbiguityGap:             0.04,
			RushHourCandidateTrigger: 12,
			RushHourThresholdBump:    0.05,
		},
		CooldownSec:              15,
		IdleTimeoutSec:           1800,
		FrequentOutfitRatePerSec: 10,
		FrequentOutfitBurst:      10,
	}
}

func newTestEngine(tracklets []models.Tracklet, data ports.TopologyData, cfg Config) (*Engine, *recordingAssocSink, *recordingJourneySink) {
	assocSink := &recordingAssocSink{}
	journeySink := &recordingJourneySink{}
	e := New(
		fixedTrackletSource{tracklets: tracklets},
		fixedTopologyRepo{data: data},
		emptyFrequentOutfitRepo{},
		assocSink,
		journeySink,
		noopFrequentOutfitSink{},
		cfg,
	)
	return e, assocSink, journeySink
}

var matchingOutfit = models.Outfit{
	Top:    models.Garment{Type: models.GarmentJacket, ColorLAB: colorspace.LAB{L: 50, A: 10, B: 10}},
	Bottom: models.Garment{Type: models.GarmentJeans, ColorLAB: colorspace.LAB{L: 30, A: 0, B: 0}},
	Shoes:  models.Garment{Type: models.GarmentSneaker, ColorLAB: colorspace.LAB{L: 20, A: 5, B: 5}},
}

var mismatchOutfit = models.Outfit{
	Top:    models.Garment{Type: models.GarmentDress, ColorLAB: colorspace.LAB{L: 90, A: -20, B: 60}},
	Bottom: models.Garment{Type: models.GarmentSkirt, ColorLAB: colorspace.LAB{L: 10, A: 40, B: -40}},
	Shoes:  models.Garment{Type: models.GarmentSandal, ColorLAB: colorspace.LAB{L: 5, A: -30, B: 30}},
}

func sameEmbedding() []float32 { return []float32{1, 0} }

func mkTracklet(id, pin string, tIn, tOut time.Time, outfit models.Outfit, embed []float32, physique models.Physique) models.Tracklet {
	return models.Tracklet{
		ID: id, MallID: "m1", PinID: pin, TIn: tIn, TOut: tOut,
		Outfit: outfit, Embedding: embed, Physique: physique, Quality: 1,
	}
}

func findAssoc(batch []models.Association, toID string) (models.Association, bool) {
	for _, a := range batch {
		if a.ToTrackletID == toID {
			return a, true
		}
	}
	return models.Association{}, false
}

// Straight, unambiguous traversal across three cameras: one chain should
// come out linked end to end with high confidence.
func TestRunBatch_StraightTraversalProducesOneJourney(t *testing.T) {
	data := ports.TopologyData{
		Pins: []models.CameraPin{
			{ID: "A", Kind: models.PinEntrance, AdjacentTo: []string{"B"}},
			{ID: "B", Kind: models.PinNormal, AdjacentTo: []string{"A", "C"}},
			{ID: "C", Kind: models.PinNormal, AdjacentTo: []string{"B"}},
		},
		TransitOverrides: map[ports.PinPair]models.TransitParams{
			{From: "A", To: "B"}: {MuSec: 35, TauSec: 5},
			{From: "B", To: "A"}: {MuSec: 35, TauSec: 5},
			{From: "B", To: "C"}: {MuSec: 55, TauSec: 5},
			{From: "C", To: "B"}: {MuSec: 55, TauSec: 5},
		},
	}

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	physique := models.Physique{HeightCategory: models.HeightMedium, AspectRatio: 0.5}

	a := mkTracklet("a", "A", base, base.Add(5*time.Second), matchingOutfit, sameEmbedding(), physique)
	b := mkTracklet("b", "B", base.Add(40*time.Second), base.Add(55*time.Second), matchingOutfit, sameEmbedding(), physique)
	c := mkTracklet("c", "C", base.Add(110*time.Second), base.Add(140*time.Second), matchingOutfit, sameEmbedding(), physique)

	e, assocSink, journeySink := newTestEngine([]models.Tracklet{a, b, c}, data, defaultTestConfig())

	summary, err := e.RunBatch(context.Background(), "m1", base.Add(-time.Hour), base.Add(time.Hour), "2026-01-01")
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if summary.LinkedCount != 2 {
		t.Fatalf("expected 2 linked associations, got %d (batch=%v)", summary.LinkedCount, assocSink.batch)
	}
	if len(journeySink.batch) != 1 {
		t.Fatalf("expected 1 journey, got %d", len(journeySink.batch))
	}
	j := journeySink.batch[0]
	if len(j.Path) != 3 {
		t.Fatalf("expected 3-step path, got %d", len(j.Path))
	}
	if j.Confidence < 0.80 {
		t.Errorf("expected confidence >= 0.80, got %v", j.Confidence)
	}
	for i, step := range j.Path {
		if i == 0 {
			continue
		}
		if step.LinkScore == nil || *step.LinkScore < 0.80 {
			t.Errorf("expected step %d link score >= 0.80, got %v", i, step.LinkScore)
		}
	}
}

// Two visually-identical employees crossing the same two cameras should
// never be merged into one visitor; at least one side must come out
// ambiguous rather than linked.
func TestRunBatch_UniformOutfitCollisionStaysAmbiguous(t *testing.T) {
	data := ports.TopologyData{
		Pins: []models.CameraPin{
			{ID: "A", Kind: models.PinEntrance, AdjacentTo: []string{"B"}},
			{ID: "B", Kind: models.PinNormal, AdjacentTo: []string{"A"}},
		},
		TransitOverrides: map[ports.PinPair]models.TransitParams{
			{From: "A", To: "B"}: {MuSec: 35, TauSec: 5},
			{From: "B", To: "A"}: {MuSec: 35, TauSec: 5},
		},
	}

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	physique := models.Physique{HeightCategory: models.HeightMedium, AspectRatio: 0.5}

	s1 := mkTracklet("s1", "A", base, base.Add(5*time.Second), matchingOutfit, sameEmbedding(), physique)
	s2 := mkTracklet("s2", "A", base.Add(2*time.Second), base.Add(7*time.Second), matchingOutfit, sameEmbedding(), physique)
	t1 := mkTracklet("t1", "B", base.Add(45*time.Second), base.Add(50*time.Second), matchingOutfit, sameEmbedding(), physique)
	t2 := mkTracklet("t2", "B", base.Add(47*time.Second), base.Add(52*time.Second), matchingOutfit, sameEmbedding(), physique)

	e, assocSink, _ := newTestEngine([]models.Tracklet{s1, s2, t1, t2}, data, defaultTestConfig())

	summary, err := e.RunBatch(context.Background(), "m1", base.Add(-time.Hour), base.Add(time.Hour), "2026-01-01")
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if summary.LinkedCount != 0 {
		t.Fatalf("expected no merge between the two employees, got %d linked", summary.LinkedCount)
	}
	if summary.AmbiguousCount < 1 {
		t.Fatalf("expected at least one ambiguous association, got %d (batch=%v)", summary.AmbiguousCount, assocSink.batch)
	}
}

// A tracklet two hops away with a poor time match should be rejected by
// the decision threshold even though every other signal lines up.
func TestRunBatch_TimeGateRejectsDistantPoorMatch(t *testing.T) {
	tauLeg := 40.0 / math.Sqrt2
	data := ports.TopologyData{
		Pins: []models.CameraPin{
			{ID: "A", Kind: models.PinEntrance, AdjacentTo: []string{"B"}},
			{ID: "B", Kind: models.PinNormal, AdjacentTo: []string{"A", "D"}},
			{ID: "D", Kind: models.PinNormal, AdjacentTo: []string{"B"}},
		},
		TransitOverrides: map[ports.PinPair]models.TransitParams{
			{From: "A", To: "B"}: {MuSec: 60, TauSec: tauLeg},
			{From: "B", To: "A"}: {MuSec: 60, TauSec: tauLeg},
			{From: "B", To: "D"}: {MuSec: 60, TauSec: tauLeg},
			{From: "D", To: "B"}: {MuSec: 60, TauSec: tauLeg},
		},
	}

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	physique := models.Physique{HeightCategory: models.HeightMedium, AspectRatio: 0.5}

	a := mkTracklet("a", "A", base, base, matchingOutfit, sameEmbedding(), physique)
	d := mkTracklet("d", "D", base.Add(2*time.Second), base.Add(8*time.Second), matchingOutfit, sameEmbedding(), physique)

	e, assocSink, _ := newTestEngine([]models.Tracklet{a, d}, data, defaultTestConfig())

	_, err := e.RunBatch(context.Background(), "m1", base.Add(-time.Hour), base.Add(time.Hour), "2026-01-01")
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	assoc, ok := findAssoc(assocSink.batch, "d")
	if !ok {
		t.Fatalf("expected an association targeting d, got none (batch=%v)", assocSink.batch)
	}
	if assoc.Decision == models.DecisionLinked {
		t.Errorf("expected the 2-hop, 2-second transit to fail the time gate, got linked at %v", assoc.FinalScore)
	}
}

// A source two targets both prefer goes to the higher scorer; the loser
// falls back to its next-best candidate and links there if it still
// clears the threshold.
func TestRunBatch_CollisionArbitrationFallsBackToNextCandidate(t *testing.T) {
	data := ports.TopologyData{
		Pins: []models.CameraPin{
			{ID: "A", Kind: models.PinEntrance, AdjacentTo: []string{"B"}},
			{ID: "B", Kind: models.PinNormal, AdjacentTo: []string{"A"}},
		},
		TransitOverrides: map[ports.PinPair]models.TransitParams{
			{From: "A", To: "B"}: {MuSec: 20, TauSec: 10},
			{From: "B", To: "A"}: {MuSec: 20, TauSec: 10},
		},
	}

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	physique := models.Physique{HeightCategory: models.HeightMedium, AspectRatio: 0.5}

	s1 := mkTracklet("s1", "A", base, base, matchingOutfit, sameEmbedding(), physique)
	s2 := mkTracklet("s2", "A", base.Add(-2877*time.Millisecond), base.Add(-2877*time.Millisecond), matchingOutfit, sameEmbedding(), physique)
	tt := mkTracklet("t", "B", base.Add(22231*time.Millisecond), base.Add(22231*time.Millisecond+5*time.Second), matchingOutfit, sameEmbedding(), physique)
	tPrime := mkTracklet("tprime", "B", base.Add(20513*time.Millisecond), base.Add(20513*time.Millisecond+5*time.Second), matchingOutfit, sameEmbedding(), physique)

	e, assocSink, _ := newTestEngine([]models.Tracklet{s1, s2, tt, tPrime}, data, defaultTestConfig())

	summary, err := e.RunBatch(context.Background(), "m1", base.Add(-time.Hour), base.Add(time.Hour), "2026-01-01")
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	tAssoc, ok := findAssoc(assocSink.batch, "t")
	if !ok || tAssoc.Decision != models.DecisionLinked {
		t.Fatalf("expected t to fall back and link to s2, got %+v", tAssoc)
	}
	if tAssoc.FromTrackletID != "s2" {
		t.Errorf("expected t linked to s2, got %s", tAssoc.FromTrackletID)
	}

	tPrimeAssoc, ok := findAssoc(assocSink.batch, "tprime")
	if !ok || tPrimeAssoc.Decision != models.DecisionLinked || tPrimeAssoc.FromTrackletID != "s1" {
		t.Fatalf("expected tprime linked to s1, got %+v", tPrimeAssoc)
	}
	if summary.LinkedCount != 2 {
		t.Fatalf("expected 2 linked associations total, got %d", summary.LinkedCount)
	}
}

// An idle gap far past the configured timeout splits a chain in two: the
// earlier half closes at the gap, the later half is discarded as an
// orphan because its head never lands on an entrance pin.
func TestRunBatch_IdleTimeoutSplitsChainAndOrphansTail(t *testing.T) {
	data := ports.TopologyData{
		Pins: []models.CameraPin{
			{ID: "A", Kind: models.PinEntrance, AdjacentTo: []string{"B"}},
			{ID: "B", Kind: models.PinNormal, AdjacentTo: []string{"A", "C"}},
			{ID: "C", Kind: models.PinNormal, AdjacentTo: []string{"B", "D"}},
			{ID: "D", Kind: models.PinNormal, AdjacentTo: []string{"C", "E"}},
			{ID: "E", Kind: models.PinNormal, AdjacentTo: []string{"D"}},
		},
		TransitOverrides: map[ports.PinPair]models.TransitParams{
			{From: "A", To: "B"}: {MuSec: 20, TauSec: 3},
			{From: "B", To: "A"}: {MuSec: 20, TauSec: 3},
			{From: "B", To: "C"}: {MuSec: 20, TauSec: 3},
			{From: "C", To: "B"}: {MuSec: 20, TauSec: 3},
			{From: "C", To: "D"}: {MuSec: 10800, TauSec: 2000},
			{From: "D", To: "C"}: {MuSec: 10800, TauSec: 2000},
			{From: "D", To: "E"}: {MuSec: 20, TauSec: 3},
			{From: "E", To: "D"}: {MuSec: 20, TauSec: 3},
		},
	}

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	physique := models.Physique{HeightCategory: models.HeightMedium, AspectRatio: 0.5}

	a := mkTracklet("a", "A", base, base.Add(5*time.Second), matchingOutfit, sameEmbedding(), physique)
	b := mkTracklet("b", "B", base.Add(25*time.Second), base.Add(30*time.Second), matchingOutfit, sameEmbedding(), physique)
	c := mkTracklet("c", "C", base.Add(50*time.Second), base.Add(55*time.Second), matchingOutfit, sameEmbedding(), physique)
	d := mkTracklet("d", "D", base.Add(55*time.Second+10800*time.Second), base.Add(60*time.Second+10800*time.Second), matchingOutfit, sameEmbedding(), physique)
	e2 := mkTracklet("e", "E", base.Add(80*time.Second+10800*time.Second), base.Add(85*time.Second+10800*time.Second), matchingOutfit, sameEmbedding(), physique)

	e, _, journeySink := newTestEngine([]models.Tracklet{a, b, c, d, e2}, data, defaultTestConfig())

	summary, err := e.RunBatch(context.Background(), "m1", base.Add(-time.Hour), base.Add(4*time.Hour), "2026-01-01")
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if summary.JourneyCount != 1 {
		t.Fatalf("expected 1 journey after the idle-timeout split, got %d", summary.JourneyCount)
	}
	if summary.OrphanCount != 1 {
		t.Fatalf("expected 1 orphan chain (d,e headed by a non-entrance pin), got %d", summary.OrphanCount)
	}
	j := journeySink.batch[0]
	if !j.Closed {
		t.Errorf("expected the earlier segment to be closed by the idle timeout")
	}
	if j.ExitPoint != "C" {
		t.Errorf("expected exit_point C, got %s", j.ExitPoint)
	}
	if len(j.Path) != 3 {
		t.Errorf("expected 3 steps in the closed segment, got %d", len(j.Path))
	}
}

// A target whose candidate pool exceeds the rush-hour trigger gets a
// raised match threshold; a candidate that would link at the default
// threshold misses at the raised one and the target comes out new.
func TestRunBatch_RushHourRaisesThresholdPastTopCandidate(t *testing.T) {
	data := ports.TopologyData{
		Pins: []models.CameraPin{
			{ID: "A", Kind: models.PinEntrance, AdjacentTo: []string{"B", "Z"}},
			{ID: "B", Kind: models.PinNormal, AdjacentTo: []string{"A"}},
			{ID: "Z", Kind: models.PinNormal, AdjacentTo: []string{"A"}},
		},
		TransitOverrides: map[ports.PinPair]models.TransitParams{
			{From: "A", To: "B"}: {MuSec: 20, TauSec: 5},
			{From: "B", To: "A"}: {MuSec: 20, TauSec: 5},
			{From: "A", To: "Z"}: {MuSec: 10, TauSec: 3},
			{From: "Z", To: "A"}: {MuSec: 10, TauSec: 3},
		},
	}

	base := time.Date(2026, 1, 1, 17, 0, 0, 0, time.UTC)
	targetPhysique := models.Physique{HeightCategory: models.HeightShort, AspectRatio: 0.5}
	fillerPhysique := models.Physique{HeightCategory: models.HeightTall, AspectRatio: 1.2}
	strongEmbed := []float32{0.75, 0.661438}

	target := mkTracklet("target", "B", base.Add(28*time.Second), base.Add(33*time.Second), matchingOutfit, []float32{1, 0}, targetPhysique)

	tracklets := []models.Tracklet{target}

	// The real candidate: matching outfit, boundary-floor embedding, and a
	// transit time close enough to score just above the default threshold
	// but below the rush-hour-bumped one.
	real := mkTracklet("real-source", "A", base, base, matchingOutfit, strongEmbed, targetPhysique)
	tracklets = append(tracklets, real)

	// 14 fillers that pad the candidate pool past the rush-hour trigger
	// without coming close to winning.
	for i := 0; i < 14; i++ {
		id := "filler-" + string(rune('a'+i))
		filler := mkTracklet(id, "Z", base.Add(-12*time.Second), base.Add(-2*time.Second), mismatchOutfit, strongEmbed, fillerPhysique)
		tracklets = append(tracklets, filler)
	}

	e, assocSink, _ := newTestEngine(tracklets, data, defaultTestConfig())

	_, err := e.RunBatch(context.Background(), "m1", base.Add(-time.Hour), base.Add(time.Hour), "2026-01-01")
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	assoc, ok := findAssoc(assocSink.batch, "target")
	if !ok {
		t.Fatalf("expected an association targeting target, got none")
	}
	if assoc.Decision == models.DecisionLinked {
		t.Errorf("expected rush-hour bump to push the decision to new_visitor, got linked at %v (candidates=%d)",
			assoc.FinalScore, assoc.CandidateCount)
	}
	if assoc.CandidateCount <= 12 {
		t.Errorf("expected candidate pool > rush-hour trigger, got %d", assoc.CandidateCount)
	}
}

// Running the same batch twice end to end must produce byte-for-byte
// identical associations and journeys: no goroutine-scheduling-dependent
// ordering or floating point drift should leak into the output.
func TestRunBatch_DeterministicAcrossRepeatedRuns(t *testing.T) {
	data := ports.TopologyData{
		Pins: []models.CameraPin{
			{ID: "A", Kind: models.PinEntrance, AdjacentTo: []string{"B"}},
			{ID: "B", Kind: models.PinNormal, AdjacentTo: []string{"A", "C"}},
			{ID: "C", Kind: models.PinNormal, AdjacentTo: []string{"B"}},
		},
		TransitOverrides: map[ports.PinPair]models.TransitParams{
			{From: "A", To: "B"}: {MuSec: 35, TauSec: 5},
			{From: "B", To: "A"}: {MuSec: 35, TauSec: 5},
			{From: "B", To: "C"}: {MuSec: 55, TauSec: 5},
			{From: "C", To: "B"}: {MuSec: 55, TauSec: 5},
		},
	}

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	physique := models.Physique{HeightCategory: models.HeightMedium, AspectRatio: 0.5}

	a := mkTracklet("a", "A", base, base.Add(5*time.Second), matchingOutfit, sameEmbedding(), physique)
	b := mkTracklet("b", "B", base.Add(40*time.Second), base.Add(55*time.Second), matchingOutfit, sameEmbedding(), physique)
	c := mkTracklet("c", "C", base.Add(110*time.Second), base.Add(140*time.Second), matchingOutfit, sameEmbedding(), physique)

	run := func() ([]models.Association, []models.Journey) {
		e, assocSink, journeySink := newTestEngine([]models.Tracklet{a, b, c}, data, defaultTestConfig())
		if _, err := e.RunBatch(context.Background(), "m1", base.Add(-time.Hour), base.Add(time.Hour), "2026-01-01"); err != nil {
			t.Fatalf("RunBatch: %v", err)
		}
		return assocSink.batch, journeySink.batch
	}

	assocs1, journeys1 := run()
	assocs2, journeys2 := run()

	if diff := cmp.Diff(assocs1, assocs2); diff != "" {
		t.Errorf("associations differ between repeated runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(journeys1, journeys2); diff != "" {
		t.Errorf("journeys differ between repeated runs (-first +second):\n%s", diff)
	}
}
