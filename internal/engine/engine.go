package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/your-org/mallid/internal/candidates"
	"github.com/your-org/mallid/internal/errs"
	"github.com/your-org/mallid/internal/journey"
	"github.com/your-org/mallid/internal/models"
	"github.com/your-org/mallid/internal/observability"
	"github.com/your-org/mallid/internal/ports"
	"github.com/your-org/mallid/internal/scoring"
	"github.com/your-org/mallid/internal/topology"
)

// Engine runs one mall's batch over a time window: load tracklets and
// topology, retrieve and score candidates across a worker pool, arbitrate
// collisions on a single coordinator, build journeys, and publish the
// results.
type Engine struct {
	tracklets ports.TrackletSource
	topology  ports.TopologyRepo
	freqRepo  ports.FrequentOutfitRepo
	assocSink ports.AssociationSink
	journSink ports.JourneySink
	freqSink  ports.FrequentOutfitSink

	cfg Config

	assocBreaker   *gobreaker.CircuitBreaker[struct{}]
	journeyBreaker *gobreaker.CircuitBreaker[struct{}]
	freqBreaker    *gobreaker.CircuitBreaker[struct{}]
}

// New builds an Engine from its output/input ports and run configuration.
func New(
	tracklets ports.TrackletSource,
	topologyRepo ports.TopologyRepo,
	freqRepo ports.FrequentOutfitRepo,
	assocSink ports.AssociationSink,
	journSink ports.JourneySink,
	freqSink ports.FrequentOutfitSink,
	cfg Config,
) *Engine {
	return &Engine{
		tracklets:      tracklets,
		topology:       topologyRepo,
		freqRepo:       freqRepo,
		assocSink:      assocSink,
		journSink:      journSink,
		freqSink:       freqSink,
		cfg:            cfg,
		assocBreaker:   newSinkBreaker("association-sink"),
		journeyBreaker: newSinkBreaker("journey-sink"),
		freqBreaker:    newSinkBreaker("frequent-outfit-sink"),
	}
}

// Summary reports the outcome of one RunBatch call.
type Summary struct {
	MallID            string
	TrackletCount     int
	AssociationCount  int
	LinkedCount       int
	AmbiguousCount    int
	NewVisitorCount   int
	JourneyCount      int
	OrphanCount       int
	ArbitrationRounds int
	Duration          time.Duration
}

// RunBatch runs the full pipeline for mallID over [from, to). journeyDate
// seeds the deterministic visitor-ID hash and should be the calendar date
// the run covers (e.g. "2026-07-30").
func (e *Engine) RunBatch(ctx context.Context, mallID string, from, to time.Time, journeyDate string) (Summary, error) {
	start := time.Now()

	idx, err := topology.BuildFromRepo(ctx, e.topology, mallID, e.cfg.topologyOptions())
	if err != nil {
		return Summary{}, fmt.Errorf("build topology index: %w", err)
	}

	tracklets, err := e.tracklets.Fetch(ctx, mallID, from, to)
	if err != nil {
		return Summary{}, fmt.Errorf("fetch tracklets: %w", err)
	}
	if len(tracklets) == 0 {
		slog.Info("no tracklets in window", "mall_id", mallID, "kind", errs.KindInputEmpty, "from", from, "to", to)
		return Summary{MallID: mallID}, nil
	}
	for _, t := range tracklets {
		if _, err := idx.RequirePin(t.PinID); err != nil {
			return Summary{}, fmt.Errorf("tracklet %s: %w", t.ID, err)
		}
	}

	buckets, err := e.loadFrequentOutfitBuckets(ctx, mallID, tracklets)
	if err != nil {
		return Summary{}, err
	}

	scoredByTarget, err := e.scoreAll(ctx, mallID, idx, tracklets, buckets)
	if err != nil {
		return Summary{}, err
	}

	cooldown := scoring.NewCooldownRegistry(e.cfg.CooldownSec)
	associations, rounds := scoring.Arbitrate(tracklets, scoredByTarget, e.cfg.DecisionConfig, cooldown)
	observability.ArbitrationRounds.WithLabelValues(mallID).Observe(float64(rounds))

	summary := Summary{MallID: mallID, TrackletCount: len(tracklets), ArbitrationRounds: rounds}
	assocBatch := make([]models.Association, 0, len(associations))
	linked := make([]models.Association, 0, len(associations))
	for _, a := range associations {
		assocBatch = append(assocBatch, *a)
		summary.AssociationCount++
		switch a.Decision {
		case models.DecisionLinked:
			summary.LinkedCount++
			linked = append(linked, *a)
		case models.DecisionAmbiguous:
			summary.AmbiguousCount++
		default:
			summary.NewVisitorCount++
		}
		observability.AssociationsTotal.WithLabelValues(mallID, string(a.Decision)).Inc()
	}

	result, err := journey.Build(mallID, journeyDate, tracklets, linked, idx, e.cfg.IdleTimeoutSec)
	if err != nil {
		return Summary{}, fmt.Errorf("build journeys: %w", err)
	}
	summary.JourneyCount = len(result.Journeys)
	summary.OrphanCount = result.OrphanCount
	observability.OrphanChainsTotal.WithLabelValues(mallID).Add(float64(result.OrphanCount))
	for _, j := range result.Journeys {
		observability.JourneysTotal.WithLabelValues(mallID, strconv.FormatBool(j.Closed)).Inc()
	}

	if err := writeWithRetry(ctx, e.assocBreaker, "write associations", func(ctx context.Context) error {
		return e.assocSink.Write(ctx, assocBatch)
	}); err != nil {
		return Summary{}, err
	}

	if err := writeWithRetry(ctx, e.journeyBreaker, "write journeys", func(ctx context.Context) error {
		return e.journSink.Write(ctx, result.Journeys)
	}); err != nil {
		return Summary{}, err
	}

	if err := e.publishFrequentOutfitDeltas(ctx, mallID, tracklets); err != nil {
		slog.Warn("publish frequent-outfit deltas", "error", err, "mall_id", mallID)
	}

	summary.Duration = time.Since(start)
	observability.BatchDuration.WithLabelValues(mallID, "total").Observe(summary.Duration.Seconds())
	return summary, nil
}

// scoreJob is one unit of work handed to the scoring worker pool: retrieve
// and score one target's candidates against every other tracklet in the
// batch.
type scoreJob struct {
	target models.Tracklet
}

type scoreResult struct {
	targetID string
	scored   []scoring.Scored
	err      error
}

// scoreAll fans target tracklets out across Config.WorkerCount goroutines.
// Every worker reads the same immutable Index, tracklet slice, and
// frequent-outfit buckets; none of them is mutated during the pass, so no
// locking is required on the hot path.
func (e *Engine) scoreAll(ctx context.Context, mallID string, idx *topology.Index, targets []models.Tracklet, buckets map[int64]map[string]int) (map[string][]scoring.Scored, error) {
	workerCount := e.cfg.workerCount()
	if workerCount > len(targets) {
		workerCount = len(targets)
	}
	if workerCount < 1 {
		workerCount = 1
	}

	jobs := make(chan scoreJob)
	results := make(chan scoreResult, len(targets))

	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			observability.WorkerPoolActive.WithLabelValues(mallID).Inc()
			defer observability.WorkerPoolActive.WithLabelValues(mallID).Dec()
			for job := range jobs {
				if ctx.Err() != nil {
					results <- scoreResult{targetID: job.target.ID, err: errs.Cancelled("scoring")}
					continue
				}
				started := time.Now()
				scored := e.scoreOne(idx, job.target, targets, buckets)
				observability.ScoringDuration.WithLabelValues(mallID).Observe(time.Since(started).Seconds())
				observability.CandidatePoolSize.WithLabelValues(mallID).Observe(float64(len(scored)))
				results <- scoreResult{targetID: job.target.ID, scored: scored}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, t := range targets {
			select {
			case jobs <- scoreJob{target: t}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[string][]scoring.Scored, len(targets))
	for r := range results {
		if r.err != nil {
			return nil, r.err
		}
		out[r.targetID] = r.scored
	}
	return out, nil
}

// scoreOne retrieves and scores every admissible candidate source for
// target against the rest of the batch.
func (e *Engine) scoreOne(idx *topology.Index, target models.Tracklet, all []models.Tracklet, buckets map[int64]map[string]int) []scoring.Scored {
	sources := make([]models.Tracklet, 0, len(all))
	for _, s := range all {
		if s.ID == target.ID {
			continue
		}
		sources = append(sources, s)
	}

	outfitCounts := buckets[hourBucket(target.TIn)]
	cands := candidates.Retrieve(idx, target, sources, outfitCounts, e.cfg.RetrieverOptions)

	scored := make([]scoring.Scored, 0, len(cands))
	for _, c := range cands {
		tp, ok := idx.TransitParams(c.Source.PinID, target.PinID)
		if !ok {
			continue
		}
		scored = append(scored, scoring.Score(c, target, tp.MuSec, tp.TauSec))
	}
	return scored
}

// loadFrequentOutfitBuckets pre-loads every distinct hour-bucket snapshot
// the batch's targets will need, sequentially and before the worker pool
// starts, so the per-target lookup the pool performs during scoring never
// touches the network.
func (e *Engine) loadFrequentOutfitBuckets(ctx context.Context, mallID string, tracklets []models.Tracklet) (map[int64]map[string]int, error) {
	snapshotter := candidates.NewFrequentOutfitSnapshotter(e.freqRepo, e.cfg.FrequentOutfitRatePerSec, e.cfg.FrequentOutfitBurst)

	buckets := make(map[int64]map[string]int)
	for _, t := range tracklets {
		b := hourBucket(t.TIn)
		if _, ok := buckets[b]; ok {
			continue
		}
		snap, err := snapshotter.Snapshot(ctx, mallID, b)
		if err != nil {
			return nil, fmt.Errorf("load frequent-outfit snapshot for bucket %d: %w", b, err)
		}
		buckets[b] = snap
	}
	return buckets, nil
}

// publishFrequentOutfitDeltas tallies how many times each outfit
// fingerprint appeared as a source tracklet this run and publishes the
// counts so the next run's retriever can down-weight repeat uniforms.
func (e *Engine) publishFrequentOutfitDeltas(ctx context.Context, mallID string, tracklets []models.Tracklet) error {
	type key struct {
		fingerprint string
		bucket      int64
	}
	counts := make(map[key]int)
	for _, t := range tracklets {
		if t.OutfitFingerprint == "" {
			continue
		}
		counts[key{t.OutfitFingerprint, hourBucket(t.TIn)}]++
	}

	for k, n := range counts {
		k, n := k, n
		err := writeWithRetry(ctx, e.freqBreaker, "increment frequent-outfit count", func(ctx context.Context) error {
			return e.freqSink.Increment(ctx, mallID, k.fingerprint, k.bucket, n)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func hourBucket(t time.Time) int64 {
	return t.Unix() / 3600
}
