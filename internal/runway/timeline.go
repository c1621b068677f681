package runway

import (
	"sort"

	"github.com/runwayscope/runwayscope/internal/tracking"
)

// Timeline is one flight's pings in ascending timestamp order. Two pings
// with the same timestamp are ordered by ingestion ID, which makes the order
// total and deterministic.
type Timeline struct {
	pings []*tracking.Ping
}

// NewTimeline sorts the given pings into a timeline. All pings must belong
// to the same flight; the slice is sorted in place.
func NewTimeline(pings []*tracking.Ping) Timeline {
	sort.SliceStable(pings, func(i, j int) bool {
		if pings[i].Timestamp.Equal(pings[j].Timestamp) {
			return pings[i].ID < pings[j].ID
		}
		return pings[i].Timestamp.Before(pings[j].Timestamp)
	})
	return Timeline{pings: pings}
}

// Pings returns the ordered pings
func (t Timeline) Pings() []*tracking.Ping {
	return t.pings
}

// Len returns the number of pings in the timeline
func (t Timeline) Len() int {
	return len(t.pings)
}

// Previous returns the ping before index i, or nil at the start boundary
func (t Timeline) Previous(i int) *tracking.Ping {
	if i <= 0 || i >= len(t.pings) {
		return nil
	}
	return t.pings[i-1]
}

// Next returns the ping after index i, or nil at the end boundary
func (t Timeline) Next(i int) *tracking.Ping {
	if i < 0 || i >= len(t.pings)-1 {
		return nil
	}
	return t.pings[i+1]
}
