package journey

import (
	"crypto/sha256"
	"encoding/hex"
)

// VisitorID derives a stable deterministic identifier for a chain head, so
// the same physical chain always produces the same visitor_id across
// independent runs and regardless of input ordering.
func VisitorID(mallID, journeyDate, headTrackletID string) string {
	h := sha256.Sum256([]byte(mallID + "|" + journeyDate + "|" + headTrackletID))
	return hex.EncodeToString(h[:16])
}
