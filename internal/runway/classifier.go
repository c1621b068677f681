package runway

import "github.com/runwayscope/runwayscope/internal/tracking"

// classifyEvents assigns runway-event labels to a flight's region-crossing
// pings. It looks only at the subsequence of pings with a non-zero
// transition, in time order; prev and next below refer to neighbors within
// that subsequence, not the raw timeline.
//
// Rules, first match wins:
//   - takeoff: an exit with no earlier crossing. The flight's first recorded
//     crossing leaves the region, so it started inside and departed.
//   - landing: an entry with no later crossing (the track ends while the
//     aircraft is still in the region), or a final exit whose matching entry
//     was the flight's one and only earlier crossing. A track that ends
//     inside the region counts as landed even if the data simply stopped;
//     that approximation is deliberate.
//   - touch-n-go: an exit directly preceded by an entry, with at least one
//     further crossing after it. The aircraft came in, went out, and its
//     track continued.
//
// Every other crossing is an intermediate state and stays unlabeled. Pings
// with a zero transition never carry an event.
func classifyEvents(tl Timeline) {
	crossings := make([]*tracking.Ping, 0, 4)
	for _, p := range tl.Pings() {
		p.Event = tracking.EventNone
		if p.Transition != 0 {
			crossings = append(crossings, p)
		}
	}

	last := len(crossings) - 1
	for i, p := range crossings {
		switch {
		case p.Transition == -1 && i == 0:
			p.Event = tracking.EventTakeoff
		case p.Transition == 1 && i == last:
			p.Event = tracking.EventLanding
		case p.Transition == -1 && crossings[i-1].Transition == 1 && i < last:
			p.Event = tracking.EventTouchNGo
		case p.Transition == -1 && crossings[i-1].Transition == 1 && i == last && i == 1:
			// The flight's only crossings are one entry and this final
			// exit: it descended through the region and the track ended.
			p.Event = tracking.EventLanding
		}
	}
}
