package ctatracks

import (
	"github.com/paulmach/orb"
)

// RawSegment is a piece of physical track shared by one or more lines
type RawSegment struct {
	SegmentID string
	Corridor  string
	IsLoop    bool
	// Lines may contain duplicates and unknown names
	Lines []Line
	Geom  orb.LineString
}

// ExplodedSegment is a single-line copy of RawSegment with lateral paint offset.
// Geom is shared with the source RawSegment and must not be mutated.
type ExplodedSegment struct {
	SegmentID   string
	Corridor    string
	IsLoop      bool
	Line        Line
	SharedCount int
	SharedIndex int
	OffsetPx    float64
	Geom        orb.LineString
}

// StitchedSegment is a run of contiguous exploded segments with identical paint parameters
type StitchedSegment struct {
	ExplodedSegment
	// SegmentCount is number of exploded segments merged into this one
	SegmentCount int
}

// groupKey holds every attribute which affects painting of a segment
type groupKey struct {
	line     Line
	offsetPx float64
	isLoop   bool
	corridor string
}

func (seg *ExplodedSegment) groupKey() groupKey {
	return groupKey{
		line:     seg.Line,
		offsetPx: seg.OffsetPx,
		isLoop:   seg.IsLoop,
		corridor: seg.Corridor,
	}
}

// single wraps exploded segment as is
func (seg ExplodedSegment) single() StitchedSegment {
	return StitchedSegment{
		ExplodedSegment: seg,
		SegmentCount:    1,
	}
}

// validGeom reports whether line has enough points to have two distinct ends
func validGeom(line orb.LineString) bool {
	return len(line) >= 2
}
