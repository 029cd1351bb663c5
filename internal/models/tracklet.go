package models

import (
	"time"

	"github.com/your-org/mallid/internal/colorspace"
)

// Garment is a single garment observation: its classified type and mean
// quantized CIELAB color (plus a small histogram, carried on ColorHist).
type Garment struct {
	Type      GarmentType
	ColorLAB  colorspace.LAB
	ColorHist []colorspace.LAB // small quantized histogram, informational only
}

// Outfit is the three-garment descriptor carried by every tracklet.
type Outfit struct {
	Top    Garment
	Bottom Garment
	Shoes  Garment
}

// Physique carries coarse body-shape descriptors used as a weak signal.
type Physique struct {
	HeightCategory HeightCategory
	AspectRatio    float64
}

// Tracklet is a contiguous within-camera observation of one person,
// produced by the upstream detection/tracking/embedding pipeline (out of
// scope for this module) and consumed here as an immutable input.
type Tracklet struct {
	ID       string
	MallID   string
	PinID    string
	VideoID  string
	TIn      time.Time
	TOut     time.Time
	Outfit   Outfit
	// Embedding is a fixed-length, L2-normalized appearance vector. Length
	// is constant mall-wide but is not validated here; the candidate
	// retriever and scoring only ever compare embeddings within one mall.
	Embedding []float32
	Physique  Physique
	// Quality is a per-tracklet confidence in [0,1]. It is used as a
	// per-garment visibility multiplier, never as a tracklet-level veto.
	Quality float64
	// OutfitFingerprint is a stable hash of the discretised outfit, used by
	// the frequent-outfit table. Computed once upstream and carried as-is;
	// candidates.Fingerprint derives a value of the same shape, but nothing
	// in this module recomputes this field.
	OutfitFingerprint string
}

// DeltaTSeconds returns t.TIn - s.TOut in seconds. Negative values indicate
// t starts before s ends and are physically impossible as a source->target
// transition.
func DeltaTSeconds(source, target Tracklet) float64 {
	return target.TIn.Sub(source.TOut).Seconds()
}
