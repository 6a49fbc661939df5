package ctatracks

const (
	// DefaultOffsetStep is lateral distance in pixels between parallel lines on regular track
	DefaultOffsetStep = 3.5
	// DefaultLoopOffsetStep is lateral distance in pixels between parallel lines on the Loop
	DefaultLoopOffsetStep = 2.0
)

// Explode turns every raw segment into one single-line segment per enabled line.
//
// Lines of each raw segment are filtered by filter, deduplicated and sorted canonically;
// line at rank i of n gets offset (i - (n-1)/2) * step where step is loopOffsetStep
// for loop segments and offsetStep otherwise.
// Segments with less than two points or without enabled lines produce nothing.
// Output keeps input order of raw segments and canonical order of lines inside each.
func Explode(segments []RawSegment, filter LineFilter, offsetStep, loopOffsetStep float64) []ExplodedSegment {
	return explode(segments, filter, offsetStep, loopOffsetStep, nil)
}

func explode(segments []RawSegment, filter LineFilter, offsetStep, loopOffsetStep float64, diag *Diagnostics) []ExplodedSegment {
	exploded := make([]ExplodedSegment, 0, len(segments))
	for i := range segments {
		segment := &segments[i]
		if !validGeom(segment.Geom) {
			diag.skipMalformed(segment.SegmentID)
			continue
		}
		lines := activeLines(segment.Lines, filter)
		if len(lines) == 0 {
			continue
		}
		step := offsetStep
		if segment.IsLoop {
			step = loopOffsetStep
		}
		sharedCount := len(lines)
		for index, line := range lines {
			exploded = append(exploded, ExplodedSegment{
				SegmentID:   segment.SegmentID,
				Corridor:    segment.Corridor,
				IsLoop:      segment.IsLoop,
				Line:        line,
				SharedCount: sharedCount,
				SharedIndex: index,
				OffsetPx:    parallelOffset(index, sharedCount, step),
				Geom:        segment.Geom,
			})
			diag.countExploded(line)
		}
	}
	return exploded
}

// activeLines returns distinct enabled lines in canonical order
func activeLines(lines []Line, filter LineFilter) []Line {
	seen := make(map[Line]struct{}, len(lines))
	active := make([]Line, 0, len(lines))
	for _, line := range lines {
		if !filter[line] {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		active = append(active, line)
	}
	SortLines(active)
	return active
}

// parallelOffset centers n parallel lines around the original centerline
func parallelOffset(index, count int, step float64) float64 {
	return (float64(index) - float64(count-1)/2) * step
}
