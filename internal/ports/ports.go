// Package ports defines the narrow interfaces the core consumes from and
// publishes to its external collaborators. Concrete adapters
// live in internal/storage and internal/queue; the core packages
// (topology, candidates, scoring, journey, engine) depend only on these
// interfaces.
package ports

import (
	"context"
	"time"

	"github.com/your-org/mallid/internal/models"
)

// TrackletSource fetches the finite, unordered set of tracklets observed
// in a mall within a time window.
type TrackletSource interface {
	Fetch(ctx context.Context, mallID string, from, to time.Time) ([]models.Tracklet, error)
}

// TopologyData is the raw camera topology as loaded from the repository,
// before TopologyIndex precomputes transit parameters.
type TopologyData struct {
	Pins             []models.CameraPin
	TransitOverrides map[PinPair]models.TransitParams
}

// PinPair is an ordered pair of pin IDs, used as a map key for transit
// overrides.
type PinPair struct {
	From, To string
}

// TopologyRepo loads a mall's camera graph.
type TopologyRepo interface {
	Load(ctx context.Context, mallID string) (TopologyData, error)
}

// FrequentOutfitRepo reads a point-in-time snapshot of outfit fingerprint
// counts for the given mall and hour bucket, used to down-weight uniforms.
type FrequentOutfitRepo interface {
	Snapshot(ctx context.Context, mallID string, hourBucket int64) (map[string]int, error)
}

// AssociationSink publishes a batch of associations atomically.
type AssociationSink interface {
	Write(ctx context.Context, batch []models.Association) error
}

// JourneySink publishes a batch of journeys atomically.
type JourneySink interface {
	Write(ctx context.Context, batch []models.Journey) error
}

// FrequentOutfitSink publishes post-run deltas to the frequent-outfit
// statistics table for future runs to consume via FrequentOutfitRepo.
type FrequentOutfitSink interface {
	Increment(ctx context.Context, mallID, fingerprint string, hourBucket int64, byCount int) error
}
