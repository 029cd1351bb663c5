package scoring

import "time"

// CooldownRegistry suppresses a second association from being raised for
// the same source tracklet arriving at the same pin within a short window,
// guarding against duplicate detections of a single physical transit
// (two overlapping tracklets emitted for one real person crossing one
// camera boundary). Keyed on the source tracklet rather than a visitor_id:
// visitor identity is only assigned once the journey builder walks the
// accepted chains, so arbitration uses the chain's current head as its
// stand-in identity.
type CooldownRegistry struct {
	windowSec float64
	lastSeen  map[string]time.Time
}

// NewCooldownRegistry builds a registry enforcing windowSec of silence
// between repeated (sourceID, pinID) links.
func NewCooldownRegistry(windowSec float64) *CooldownRegistry {
	return &CooldownRegistry{
		windowSec: windowSec,
		lastSeen:  make(map[string]time.Time),
	}
}

func cooldownKey(sourceID, pinID string) string {
	return sourceID + "|" + pinID
}

// Allow reports whether a link from sourceID into pinID at time at clears
// the cooldown window, without recording it.
func (c *CooldownRegistry) Allow(sourceID, pinID string, at time.Time) bool {
	last, ok := c.lastSeen[cooldownKey(sourceID, pinID)]
	if !ok {
		return true
	}
	return at.Sub(last).Seconds() >= c.windowSec
}

// Record marks sourceID's arrival at pinID at time at as accepted, starting
// a fresh cooldown window for that pair.
func (c *CooldownRegistry) Record(sourceID, pinID string, at time.Time) {
	key := cooldownKey(sourceID, pinID)
	if existing, ok := c.lastSeen[key]; ok && existing.After(at) {
		return
	}
	c.lastSeen[key] = at
}
