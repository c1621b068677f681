package runway

// annotateContainment runs the zone predicate over every ping of a timeline,
// writing the InRegion flag.
func annotateContainment(pred *ZonePredicate, tl Timeline) {
	for _, p := range tl.Pings() {
		p.InRegion = pred.Contains(p.Point(), p.Altitude)
	}
}

// computeTransitions writes the signed edge of the containment signal onto
// each ping of a timeline: in_region(t) - in_region(t-1), carried as a
// single previous-containment accumulator along the sorted sequence. The
// missing predecessor of the first ping is treated as not-in-region, so a
// flight that starts inside the region opens with a +1.
func computeTransitions(tl Timeline) {
	prev := false
	for _, p := range tl.Pings() {
		p.Transition = boolToUnit(p.InRegion) - boolToUnit(prev)
		prev = p.InRegion
	}
}

func boolToUnit(b bool) int8 {
	if b {
		return 1
	}
	return 0
}
