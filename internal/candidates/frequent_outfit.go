package candidates

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/your-org/mallid/internal/ports"
)

// FrequentOutfitSnapshotter wraps a ports.FrequentOutfitRepo with a rate
// limiter so a long batch spanning many hour buckets can't thundering-herd
// the frequent-outfit repository with back-to-back snapshot reloads as the
// candidate retriever crosses bucket boundaries.
type FrequentOutfitSnapshotter struct {
	repo    ports.FrequentOutfitRepo
	limiter *rate.Limiter

	lastMallID string
	lastBucket int64
	cached     map[string]int
}

// NewFrequentOutfitSnapshotter builds a snapshotter allowing at most
// ratePerSec reloads per second, bursting up to burst.
func NewFrequentOutfitSnapshotter(repo ports.FrequentOutfitRepo, ratePerSec float64, burst int) *FrequentOutfitSnapshotter {
	if ratePerSec <= 0 {
		ratePerSec = 2
	}
	if burst <= 0 {
		burst = 2
	}
	return &FrequentOutfitSnapshotter{
		repo:    repo,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

// Snapshot returns the cached outfit-fingerprint counts for (mallID,
// hourBucket), reloading from the repository only when the bucket changes
// and the rate limiter permits it immediately (never blocks the caller;
// forbids I/O-driven blocking on the scoring hot path).
func (f *FrequentOutfitSnapshotter) Snapshot(ctx context.Context, mallID string, hourBucket int64) (map[string]int, error) {
	if f.cached != nil && f.lastMallID == mallID && f.lastBucket == hourBucket {
		return f.cached, nil
	}
	if !f.limiter.Allow() && f.cached != nil {
		// Serve the stale snapshot rather than block; a missed refresh
		// only delays the frequent-outfit down-weight by one bucket.
		return f.cached, nil
	}

	snap, err := f.repo.Snapshot(ctx, mallID, hourBucket)
	if err != nil {
		return nil, fmt.Errorf("snapshot frequent outfits: %w", err)
	}
	f.cached = snap
	f.lastMallID = mallID
	f.lastBucket = hourBucket
	return snap, nil
}
