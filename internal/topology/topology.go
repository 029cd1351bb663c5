// Package topology implements the camera-topology index: the camera
// adjacency graph, entrance flags, and precomputed 1- and 2-hop transit
// parameters (mu, tau) answering neighbourhood and transit-plausibility
// queries.
//
// The shape of this index (pins, transitions with expected/variance
// timing, and a pre-flight validity check) follows the camera-topology
// model of a cross-camera handoff-matching reference
// (CameraTransition.ExpectedTransitTime/TransitTimeVariance and
// TrackManager.TestHandoff's pre-flight diagnostic), adapted from a live
// handoff-matching service into an immutable, precomputed index built once
// per batch run.
package topology

import (
	"context"
	"fmt"
	"math"

	"github.com/your-org/mallid/internal/errs"
	"github.com/your-org/mallid/internal/models"
	"github.com/your-org/mallid/internal/ports"
)

const (
	// DefaultWalkSpeedMS is the default walking speed (m/s) used to derive
	// mu when a pin pair has no explicit transit override.
	DefaultWalkSpeedMS = 1.2
	// DefaultToleranceSec is the default tau used when a pin pair has no
	// explicit transit override.
	DefaultToleranceSec = 30.0
	// DefaultEdgeDistanceM is the assumed walking distance (meters) for an
	// adjacency edge that carries no explicit mu/tau override. Camera pins
	// carry no geometric position, only adjacency, so a graph hop has no
	// inherent physical length; this constant treats every unannotated edge
	// as a fixed-length corridor segment instead.
	DefaultEdgeDistanceM = 25.0
	// hopInfinity is the sentinel returned by HopDistance for pins more
	// than two hops apart.
	hopInfinity = -1
)

// HopDistance is the result of Index.HopDistance: 0 (same pin), 1, 2, or
// Infinite.
type HopDistance int

const Infinite HopDistance = hopInfinity

// Index is the precomputed, read-only topology for one batch run. It is
// built once, single-threaded, and then shared, unmutated, across the
// worker pool.
type Index struct {
	mallID       string
	pins         map[string]models.CameraPin
	neighbours   map[string]map[string]bool
	hopDistances map[ports.PinPair]HopDistance
	transit      map[ports.PinPair]models.TransitParams

	walkSpeedMS  float64
	toleranceSec float64
}

// BuildOptions configures the default transit derivation for pin pairs
// without an explicit override.
type BuildOptions struct {
	WalkSpeedMS  float64
	ToleranceSec float64
}

// DefaultBuildOptions returns the documented defaults for walk speed and
// tolerance.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{WalkSpeedMS: DefaultWalkSpeedMS, ToleranceSec: DefaultToleranceSec}
}

// Build constructs an Index from raw topology data for one mall. It
// precomputes 1-hop and 2-hop transit parameters and validates adjacency
// symmetry before returning.
func Build(mallID string, data ports.TopologyData, opts BuildOptions) (*Index, error) {
	if opts.WalkSpeedMS <= 0 {
		opts.WalkSpeedMS = DefaultWalkSpeedMS
	}
	if opts.ToleranceSec <= 0 {
		opts.ToleranceSec = DefaultToleranceSec
	}

	idx := &Index{
		mallID:       mallID,
		pins:         make(map[string]models.CameraPin, len(data.Pins)),
		neighbours:   make(map[string]map[string]bool, len(data.Pins)),
		hopDistances: make(map[ports.PinPair]HopDistance),
		transit:      make(map[ports.PinPair]models.TransitParams),
		walkSpeedMS:  opts.WalkSpeedMS,
		toleranceSec: opts.ToleranceSec,
	}

	for _, pin := range data.Pins {
		idx.pins[pin.ID] = pin
		set := make(map[string]bool, len(pin.AdjacentTo))
		for _, n := range pin.AdjacentTo {
			set[n] = true
		}
		idx.neighbours[pin.ID] = set
	}

	if err := idx.validateSymmetry(); err != nil {
		return nil, err
	}

	idx.computeHopsAndTransit(data.TransitOverrides)

	return idx, nil
}

func (idx *Index) validateSymmetry() error {
	for a, neighbours := range idx.neighbours {
		for b := range neighbours {
			bn, ok := idx.neighbours[b]
			if !ok {
				return errs.DataModelViolation("topology adjacency",
					fmt.Errorf("pin %s references unknown neighbour %s", a, b))
			}
			if !bn[a] {
				return errs.DataModelViolation("topology adjacency",
					fmt.Errorf("asymmetric adjacency: %s -> %s but not %s -> %s", a, b, b, a))
			}
		}
	}
	return nil
}

// computeHopsAndTransit fills in 1-hop direct pairs and 2-hop pairs
// reachable through exactly one intermediate pin.
func (idx *Index) computeHopsAndTransit(overrides map[ports.PinPair]models.TransitParams) {
	for a := range idx.pins {
		idx.hopDistances[ports.PinPair{From: a, To: a}] = 0
	}

	for a, neighbours := range idx.neighbours {
		for b := range neighbours {
			pair := ports.PinPair{From: a, To: b}
			idx.hopDistances[pair] = 1
			idx.transit[pair] = idx.oneHopParams(a, b, overrides)
		}
	}

	type twoHopCandidate struct {
		intermediate string
		transit      models.TransitParams
	}
	best := make(map[ports.PinPair]twoHopCandidate)

	for a := range idx.pins {
		for b := range idx.neighbours[a] {
			for c := range idx.neighbours[b] {
				if c == a {
					continue
				}
				pair := ports.PinPair{From: a, To: c}
				if _, already := idx.hopDistances[pair]; already {
					continue // 0- or 1-hop already known and takes precedence
				}
				ab := idx.transit[ports.PinPair{From: a, To: b}]
				bc := idx.transit[ports.PinPair{From: b, To: c}]
				// mu sums along the shortest path; tau is enlarged by
				// sqrt(2) to reflect the added variance of a two-segment
				// transit. The factor is a fixed constant.
				cand := twoHopCandidate{
					intermediate: b,
					transit: models.TransitParams{
						MuSec:  ab.MuSec + bc.MuSec,
						TauSec: (ab.TauSec + bc.TauSec) / 2 * math.Sqrt2,
					},
				}
				cur, ok := best[pair]
				if !ok || cand.transit.MuSec < cur.transit.MuSec ||
					(cand.transit.MuSec == cur.transit.MuSec && cand.intermediate < cur.intermediate) {
					best[pair] = cand
				}
			}
		}
	}

	for pair, cand := range best {
		idx.hopDistances[pair] = 2
		idx.transit[pair] = cand.transit
	}
}

func (idx *Index) oneHopParams(a, b string, overrides map[ports.PinPair]models.TransitParams) models.TransitParams {
	if tp, ok := overrides[ports.PinPair{From: a, To: b}]; ok {
		return tp
	}
	if pin, ok := idx.pins[a]; ok {
		if tp, ok := pin.Transit[b]; ok {
			return tp
		}
	}
	return models.TransitParams{
		MuSec:  DefaultEdgeDistanceM / idx.walkSpeedMS,
		TauSec: idx.toleranceSec,
	}
}

// Neighbours returns the 1-hop neighbour set of pin.
func (idx *Index) Neighbours(pin string) map[string]bool {
	return idx.neighbours[pin]
}

// HopDistance returns 0 when a == b, otherwise 1, 2, or Infinite for the
// given ordered pin pair. Values three hops and beyond collapse to Infinite.
func (idx *Index) HopDistance(a, b string) HopDistance {
	if a == b {
		return 0
	}
	if d, ok := idx.hopDistances[ports.PinPair{From: a, To: b}]; ok {
		return d
	}
	return Infinite
}

// TransitParams returns the precomputed (mu, tau) for a and b if they are
// 1- or 2-hop neighbours; ok is false otherwise.
func (idx *Index) TransitParams(a, b string) (models.TransitParams, bool) {
	tp, ok := idx.transit[ports.PinPair{From: a, To: b}]
	return tp, ok
}

// IsEntrance reports whether pin is an entrance/exit camera.
func (idx *Index) IsEntrance(pin string) bool {
	p, ok := idx.pins[pin]
	return ok && p.IsEntrance()
}

// Pin returns the CameraPin by ID, and whether it exists.
func (idx *Index) Pin(id string) (models.CameraPin, bool) {
	p, ok := idx.pins[id]
	return p, ok
}

// RequirePin resolves a pin ID or returns a DataModelViolation error, used
// whenever a tracklet references a pin_id that must exist.
func (idx *Index) RequirePin(id string) (models.CameraPin, error) {
	p, ok := idx.pins[id]
	if !ok {
		return models.CameraPin{}, errs.DataModelViolation("pin lookup",
			fmt.Errorf("pin %q not found in topology for mall %q", id, idx.mallID))
	}
	return p, nil
}

// BuildFromRepo loads and builds the topology index for mallID via repo.
func BuildFromRepo(ctx context.Context, repo ports.TopologyRepo, mallID string, opts BuildOptions) (*Index, error) {
	data, err := repo.Load(ctx, mallID)
	if err != nil {
		return nil, errs.DataModelViolation("load topology", err)
	}
	return Build(mallID, data, opts)
}
