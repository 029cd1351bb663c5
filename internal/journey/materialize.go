package journey

import (
	"fmt"
	"sort"

	"github.com/your-org/mallid/internal/errs"
	"github.com/your-org/mallid/internal/models"
	"github.com/your-org/mallid/internal/topology"
)

// Result is the output of one journey-build pass: the materialized
// journeys plus a count of orphan chains (chains not anchored at an
// entrance pin) discarded along the way.
type Result struct {
	Journeys    []models.Journey
	OrphanCount int
}

// Build walks every accepted ("linked") association into chains, splits
// them at idle-timeout gaps and entrance re-visits, and materializes a
// Journey for every segment whose head sits on an entrance pin.
func Build(mallID, journeyDate string, tracklets []models.Tracklet, linked []models.Association, idx *topology.Index, idleTimeoutSec float64) (Result, error) {
	trackletByID := make(map[string]models.Tracklet, len(tracklets))
	allIDs := make([]string, 0, len(tracklets))
	for _, t := range tracklets {
		trackletByID[t.ID] = t
		allIDs = append(allIDs, t.ID)
	}

	assocByTarget := make(map[string]models.Association, len(linked))
	for _, a := range linked {
		assocByTarget[a.ToTrackletID] = a
	}

	chains, err := buildChains(allIDs, linked)
	if err != nil {
		return Result{}, err
	}

	result := Result{}
	for _, c := range chains {
		segments, orphans, err := splitChain(c, trackletByID, idx, idleTimeoutSec)
		if err != nil {
			return Result{}, err
		}
		result.OrphanCount += orphans
		for _, seg := range segments {
			j, err := materializeSegment(mallID, journeyDate, seg, trackletByID, assocByTarget, idx)
			if err != nil {
				return Result{}, err
			}
			result.Journeys = append(result.Journeys, j)
		}
	}

	sort.Slice(result.Journeys, func(i, j int) bool {
		return result.Journeys[i].ID < result.Journeys[j].ID
	})
	return result, nil
}

// segment is one (possibly final) slice of a chain destined to become a
// single Journey, or to be discarded as an orphan if its head is not an
// entrance pin.
type segment struct {
	trackletIDs []string
	linkScores  []*float64
	closed      bool
}

func splitChain(c chain, trackletByID map[string]models.Tracklet, idx *topology.Index, idleTimeoutSec float64) ([]segment, int, error) {
	var segments []segment
	orphans := 0

	start := 0
	for i := 1; i <= len(c.trackletIDs); i++ {
		atEnd := i == len(c.trackletIDs)

		forceClose := false
		if !atEnd {
			prev, ok1 := trackletByID[c.trackletIDs[i-1]]
			next, ok2 := trackletByID[c.trackletIDs[i]]
			if !ok1 || !ok2 {
				return nil, 0, errs.DataModelViolation("journey.splitChain", fmt.Errorf("missing tracklet in chain"))
			}
			gap := next.TIn.Sub(prev.TOut).Seconds()
			if gap > idleTimeoutSec {
				forceClose = true
			}
		}

		reachedEntrance := false
		if !atEnd && i > start {
			pin := c.trackletIDs[i]
			t, ok := trackletByID[pin]
			if !ok {
				return nil, 0, errs.DataModelViolation("journey.splitChain", fmt.Errorf("missing tracklet %s", pin))
			}
			if idx.IsEntrance(t.PinID) {
				reachedEntrance = true
			}
		}

		switch {
		case forceClose:
			seg := newSegment(c, start, i, true)
			segments = append(segments, withOrphanCheck(seg, trackletByID, idx, &orphans))
			start = i
		case reachedEntrance:
			seg := newSegment(c, start, i+1, true)
			segments = append(segments, withOrphanCheck(seg, trackletByID, idx, &orphans))
			start = i + 1
		case atEnd && start < i:
			seg := newSegment(c, start, i, false)
			segments = append(segments, withOrphanCheck(seg, trackletByID, idx, &orphans))
			start = i
		}
	}

	kept := make([]segment, 0, len(segments))
	for _, s := range segments {
		if s.trackletIDs != nil {
			kept = append(kept, s)
		}
	}
	return kept, orphans, nil
}

// newSegment slices [start,end) out of a chain into a standalone segment.
// The sliced-off head never carries an incoming link score within this
// segment, even if it did within the original chain.
func newSegment(c chain, start, end int, closed bool) segment {
	ids := append([]string(nil), c.trackletIDs[start:end]...)
	scores := append([]*float64(nil), c.linkScores[start:end]...)
	if len(scores) > 0 {
		scores[0] = nil
	}
	return segment{trackletIDs: ids, linkScores: scores, closed: closed}
}

// withOrphanCheck returns seg unchanged if its head sits on an entrance
// pin, otherwise increments *orphans and returns a zero-value segment that
// the caller filters out.
func withOrphanCheck(seg segment, trackletByID map[string]models.Tracklet, idx *topology.Index, orphans *int) segment {
	head, ok := trackletByID[seg.trackletIDs[0]]
	if !ok || !idx.IsEntrance(head.PinID) {
		*orphans++
		return segment{}
	}
	return seg
}

func materializeSegment(mallID, journeyDate string, seg segment, trackletByID map[string]models.Tracklet, assocByTarget map[string]models.Association, idx *topology.Index) (models.Journey, error) {
	headID := seg.trackletIDs[0]
	head := trackletByID[headID]

	steps := make([]models.JourneyStep, 0, len(seg.trackletIDs))
	segTracklets := make([]models.Tracklet, 0, len(seg.trackletIDs))
	var linkScores []float64
	var timingResiduals []float64

	for i, id := range seg.trackletIDs {
		t, ok := trackletByID[id]
		if !ok {
			return models.Journey{}, errs.DataModelViolation("journey.materializeSegment", fmt.Errorf("missing tracklet %s", id))
		}
		segTracklets = append(segTracklets, t)

		pinName := t.PinID
		if pin, ok := idx.Pin(t.PinID); ok && pin.Name != "" {
			pinName = pin.Name
		}

		step := models.JourneyStep{
			PinID:       t.PinID,
			PinName:     pinName,
			TIn:         t.TIn,
			TOut:        t.TOut,
			DurationSec: t.TOut.Sub(t.TIn).Seconds(),
		}
		if seg.linkScores[i] != nil {
			step.LinkScore = seg.linkScores[i]
			linkScores = append(linkScores, *seg.linkScores[i])
			if a, ok := assocByTarget[id]; ok && a.Components.TauSec > 0 {
				residual := (a.Components.DeltaTSec - a.Components.ExpectedMuSec) / a.Components.TauSec
				timingResiduals = append(timingResiduals, residual)
			}
		}
		steps = append(steps, step)
	}

	last := segTracklets[len(segTracklets)-1]
	exitPoint := ""
	if seg.closed {
		exitPoint = last.PinID
	}

	visitorID := VisitorID(mallID, journeyDate, headID)
	journey := models.Journey{
		ID:            visitorID + ":" + headID,
		VisitorID:     visitorID,
		MallID:        mallID,
		EntryPoint:    head.PinID,
		ExitPoint:     exitPoint,
		EntryTime:     head.TIn,
		Path:          steps,
		Confidence:    Confidence(linkScores, len(segTracklets), timingResiduals),
		OutfitSummary: Summarize(segTracklets),
		Closed:        seg.closed,
	}
	if seg.closed {
		journey.ExitTime = last.TOut
	}
	return journey, nil
}
