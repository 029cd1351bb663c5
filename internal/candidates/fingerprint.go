// Package candidates implements the candidate retriever: cheap
// pre-filtering and pre-scoring of source tracklets for a given target,
// plus the frequent-outfit down-weighting and rush-hour pool-size signal
// consumed by the scoring engine.
package candidates

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/your-org/mallid/internal/models"
)

// Fingerprint derives a stable outfit fingerprint from the discretised
// outfit, in the same hex shape as Tracklet.OutfitFingerprint. The engine
// does not call it: tracklets that arrive without a fingerprint are left
// out of the frequent-outfit tally.
func Fingerprint(o models.Outfit) string {
	// Truncate LAB components toward zero to integers to keep the
	// fingerprint stable across minor color noise.
	key := fmt.Sprintf("%s|%d,%d,%d|%s|%d,%d,%d|%s|%d,%d,%d",
		o.Top.Type, int(o.Top.ColorLAB.L), int(o.Top.ColorLAB.A), int(o.Top.ColorLAB.B),
		o.Bottom.Type, int(o.Bottom.ColorLAB.L), int(o.Bottom.ColorLAB.A), int(o.Bottom.ColorLAB.B),
		o.Shoes.Type, int(o.Shoes.ColorLAB.L), int(o.Shoes.ColorLAB.A), int(o.Shoes.ColorLAB.B),
	)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// HourBucket converts a tracklet's t_out into a Unix-hour bucket number.
// The engine does not call it; it keys the frequent-outfit table by t_in.
func HourBucket(t models.Tracklet) int64 {
	return t.TOut.Unix() / 3600
}
