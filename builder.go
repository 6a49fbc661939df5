package ctatracks

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

const (
	// CorridorLoop is the corridor of downtown elevated Loop
	CorridorLoop = "Loop"

	DefaultSimplifyEpsilon   = 0.00003
	DefaultPrecision         = 5
	DefaultLoopPrecision     = 4
	DefaultLongSegmentMeters = 1000.0
)

// DefaultLoopBound is rough bounding box of Chicago Loop
var DefaultLoopBound = orb.Bound{
	Min: orb.Point{-87.64, 41.87},
	Max: orb.Point{-87.62, 41.89},
}

// loopLines are lines which share the elevated Loop tracks
var loopLines = []Line{LineBrown, LineGreen, LineOrange, LinePink, LinePurple}

// Shape is a polyline driven by a single line, e.g. GTFS shape or member way of OSM route
type Shape struct {
	ShapeID string
	Line    Line
	Geom    orb.LineString
}

// BuildStats is summary of segments building
type BuildStats struct {
	Shapes       int
	Pairs        int
	Segments     int
	LongSegments int
	// SharedBy maps number of lines to number of segments shared by that many lines
	SharedBy map[int]int
	Bound    orb.Bound
}

func (stats *BuildStats) String() string {
	return fmt.Sprintf("shapes: %d, point pairs: %d, unique segments: %d, long segments: %d, bound: %v - %v",
		stats.Shapes, stats.Pairs, stats.Segments, stats.LongSegments, stats.Bound.Min, stats.Bound.Max)
}

// Builder splits line shapes into raw segments shared between lines
type Builder struct {
	simplifyEpsilon   float64
	precision         int
	loopPrecision     int
	loopBound         orb.Bound
	longSegmentMeters float64
}

func NewBuilder(options ...func(*Builder)) *Builder {
	builder := &Builder{
		simplifyEpsilon:   DefaultSimplifyEpsilon,
		precision:         DefaultPrecision,
		loopPrecision:     DefaultLoopPrecision,
		loopBound:         DefaultLoopBound,
		longSegmentMeters: DefaultLongSegmentMeters,
	}
	for _, option := range options {
		option(builder)
	}
	return builder
}

// WithSimplifyEpsilon sets Douglas-Peucker threshold (coordinate units). Zero disables simplification
func WithSimplifyEpsilon(epsilon float64) func(*Builder) {
	return func(builder *Builder) {
		builder.simplifyEpsilon = epsilon
	}
}

// WithPrecision sets number of decimals used to match points outside of the Loop
func WithPrecision(precision int) func(*Builder) {
	return func(builder *Builder) {
		builder.precision = precision
	}
}

// WithLoopPrecision sets number of decimals used to match points inside the Loop
func WithLoopPrecision(precision int) func(*Builder) {
	return func(builder *Builder) {
		builder.loopPrecision = precision
	}
}

func WithLoopBound(bound orb.Bound) func(*Builder) {
	return func(builder *Builder) {
		builder.loopBound = bound
	}
}

// WithLongSegmentMeters sets length above which point pair is reported as suspicious
func WithLongSegmentMeters(meters float64) func(*Builder) {
	return func(builder *Builder) {
		builder.longSegmentMeters = meters
	}
}

// BuildSegments is shortcut for NewBuilder(options...).Build(shapes)
func BuildSegments(shapes []Shape, options ...func(*Builder)) ([]RawSegment, *BuildStats) {
	return NewBuilder(options...).Build(shapes)
}

type pairKey struct {
	a endpointKey
	b endpointKey
}

type pairData struct {
	lines map[Line]struct{}
	geom  orb.LineString
}

// Build simplifies every shape, cuts it into consecutive point pairs and merges pairs
// travelled by several lines into one segment. Corridor and loop flag are derived from
// the set of lines on each segment.
func (builder *Builder) Build(shapes []Shape) ([]RawSegment, *BuildStats) {
	stats := &BuildStats{
		SharedBy: make(map[int]int),
	}
	order := []pairKey{}
	pairs := make(map[pairKey]*pairData)
	for _, shape := range shapes {
		if len(shape.Geom) < 2 {
			continue
		}
		stats.Shapes++
		simplified := builder.simplify(shape.Geom)
		for i := 1; i < len(simplified); i++ {
			p1, p2 := simplified[i-1], simplified[i]
			if 1000*greatCircleDistance(p1, p2) > builder.longSegmentMeters {
				stats.LongSegments++
			}
			key := builder.pairKey(p1, p2)
			data, ok := pairs[key]
			if !ok {
				data = &pairData{lines: make(map[Line]struct{})}
				pairs[key] = data
				order = append(order, key)
			}
			data.lines[shape.Line] = struct{}{}
			// Coordinates are kept in lexicographic order, last shape wins
			if pointLess(p1, p2) {
				data.geom = orb.LineString{p1, p2}
			} else {
				data.geom = orb.LineString{p2, p1}
			}
			stats.Pairs++
		}
	}

	segments := make([]RawSegment, 0, len(order))
	for i, key := range order {
		data := pairs[key]
		lines := make([]Line, 0, len(data.lines))
		for line := range data.lines {
			lines = append(lines, line)
		}
		SortLines(lines)
		corridor := detectCorridor(lines)
		segments = append(segments, RawSegment{
			SegmentID: fmt.Sprintf("seg_%04d", i),
			Corridor:  corridor,
			IsLoop:    corridor == CorridorLoop,
			Lines:     lines,
			Geom:      data.geom,
		})
		stats.SharedBy[len(lines)]++
		if i == 0 {
			stats.Bound = data.geom.Bound()
		} else {
			stats.Bound = stats.Bound.Union(data.geom.Bound())
		}
	}
	stats.Segments = len(segments)
	return segments, stats
}

func (builder *Builder) simplify(line orb.LineString) orb.LineString {
	if builder.simplifyEpsilon <= 0 || len(line) <= 2 {
		return line
	}
	simplified, ok := simplify.DouglasPeucker(builder.simplifyEpsilon).Simplify(line.Clone()).(orb.LineString)
	if !ok || len(simplified) < 2 {
		return line
	}
	return simplified
}

// pairKey returns direction-invariant key of two points snapped to grid.
// Points inside the Loop are snapped coarser so its densely overlapping shapes match.
func (builder *Builder) pairKey(p1, p2 orb.Point) pairKey {
	precision := builder.precision
	if builder.loopBound.Contains(p1) && builder.loopBound.Contains(p2) {
		precision = builder.loopPrecision
	}
	k1 := snap(p1, precision)
	k2 := snap(p2, precision)
	if endpointLess(k2, k1) {
		k1, k2 = k2, k1
	}
	return pairKey{a: k1, b: k2}
}

func snap(pt orb.Point, precision int) endpointKey {
	scale := math.Pow(10, float64(precision))
	return endpointKey{
		x: int64(math.Round(pt[0] * scale)),
		y: int64(math.Round(pt[1] * scale)),
	}
}

func endpointLess(a, b endpointKey) bool {
	if a.x != b.x {
		return a.x < b.x
	}
	return a.y < b.y
}

func pointLess(a, b orb.Point) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

// detectCorridor names physical right-of-way by the set of lines using it
func detectCorridor(lines []Line) string {
	set := make(map[Line]struct{}, len(lines))
	for _, line := range lines {
		set[line] = struct{}{}
	}
	has := func(wanted ...Line) bool {
		for _, line := range wanted {
			if _, ok := set[line]; !ok {
				return false
			}
		}
		return true
	}
	exactly := func(wanted ...Line) bool {
		return len(set) == len(wanted) && has(wanted...)
	}
	loopShared := 0
	for _, line := range loopLines {
		if has(line) {
			loopShared++
		}
	}
	switch {
	case loopShared >= 3:
		return CorridorLoop
	case has(LineBrown, LinePurple):
		return "North Main"
	case has(LineRed, LineGreen):
		return "South Side"
	case exactly(LineBlue, LinePink):
		return "Forest Park"
	case exactly(LineGreen, LinePink):
		return "West Side"
	case len(lines) > 1:
		return "Shared"
	case len(lines) == 1:
		return string(lines[0])
	}
	return "Unknown"
}
