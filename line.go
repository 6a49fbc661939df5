package ctatracks

import (
	"regexp"
	"sort"
	"strings"
)

// Line is a CTA rail line name, e.g. "Red" or "Brown"
type Line string

const (
	LineRed    Line = "Red"
	LineBlue   Line = "Blue"
	LineBrown  Line = "Brown"
	LineGreen  Line = "Green"
	LineOrange Line = "Orange"
	LinePurple Line = "Purple"
	LinePink   Line = "Pink"
	LineYellow Line = "Yellow"
)

// UnknownLineColor is used for lines which are not in LineOrder
const UnknownLineColor = "#666666"

// LineOrder is the canonical line order. It decides the sign of parallel offsets and tie-breaks
var LineOrder = []Line{
	LineRed, LineBlue, LineBrown, LineGreen, LineOrange, LinePurple, LinePink, LineYellow,
}

// LineColors maps each known line to its display color
var LineColors = map[Line]string{
	LineRed:    "#F25757",
	LineBlue:   "#0090C1",
	LineBrown:  "#513B3C",
	LineGreen:  "#06D6A0",
	LineOrange: "#F58549",
	LinePurple: "#4F1271",
	LinePink:   "#FF6B6B",
	LineYellow: "#F7E733",
}

var lineRanks = func() map[Line]int {
	ranks := make(map[Line]int, len(LineOrder))
	for i, line := range LineOrder {
		ranks[line] = i
	}
	return ranks
}()

// lineAliases are lower-cased spellings found in GTFS route ids, OSM refs and station names
var lineAliases = map[string]Line{
	"red":            LineRed,
	"blue":           LineBlue,
	"brown":          LineBrown,
	"brn":            LineBrown,
	"green":          LineGreen,
	"grn":            LineGreen,
	"g":              LineGreen,
	"orange":         LineOrange,
	"org":            LineOrange,
	"purple":         LinePurple,
	"purple express": LinePurple,
	"purpleexpress":  LinePurple,
	"prp":            LinePurple,
	"pexp":           LinePurple,
	"p":              LinePurple,
	"pink":           LinePink,
	"pnk":            LinePink,
	"yellow":         LineYellow,
	"y":              LineYellow,
}

// Rank returns position of the line in LineOrder or -1 for unknown line
func (l Line) Rank() int {
	if rank, ok := lineRanks[l]; ok {
		return rank
	}
	return -1
}

// Known reports whether the line is one of LineOrder
func (l Line) Known() bool {
	return l.Rank() >= 0
}

// Color returns display color of the line
func (l Line) Color() string {
	if color, ok := LineColors[l]; ok {
		return color
	}
	return UnknownLineColor
}

// lineLess orders known lines canonically; unknown lines go last, lexicographically
func lineLess(a, b Line) bool {
	ra, rb := a.Rank(), b.Rank()
	switch {
	case ra >= 0 && rb >= 0:
		return ra < rb
	case ra >= 0:
		return true
	case rb >= 0:
		return false
	}
	return a < b
}

// SortLines sorts lines in canonical order in place
func SortLines(lines []Line) {
	sort.SliceStable(lines, func(i, j int) bool {
		return lineLess(lines[i], lines[j])
	})
}

// LineFilter tells which lines are currently enabled.
// Missing entries are treated as disabled.
type LineFilter map[Line]bool

// AllLines returns filter with every known line set to enabled
func AllLines(enabled bool) LineFilter {
	filter := make(LineFilter, len(LineOrder))
	for _, line := range LineOrder {
		filter[line] = enabled
	}
	return filter
}

// NewLineFilter returns filter where only given lines are enabled
func NewLineFilter(lines ...Line) LineFilter {
	filter := AllLines(false)
	for _, line := range lines {
		filter[line] = true
	}
	return filter
}

// Enabled reports whether line is active
func (filter LineFilter) Enabled(line Line) bool {
	return filter[line]
}

// EnabledLines returns active lines in canonical order
func (filter LineFilter) EnabledLines() []Line {
	lines := make([]Line, 0, len(filter))
	for line, on := range filter {
		if on {
			lines = append(lines, line)
		}
	}
	SortLines(lines)
	return lines
}

// IsStationActiveByLineFilter reports whether any of station's lines is enabled
func IsStationActiveByLineFilter(stationLines []Line, filter LineFilter) bool {
	for _, line := range stationLines {
		if filter[line] {
			return true
		}
	}
	return false
}

// ParseLine normalizes a single line name. Returns false for anything which is not a CTA rail line
func ParseLine(s string) (Line, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return "", false
	}
	normalized = strings.TrimSuffix(strings.TrimSuffix(normalized, " lines"), " line")
	if line, ok := lineAliases[normalized]; ok {
		return line, true
	}
	return "", false
}

var lineListSeparators = regexp.MustCompile(`(?i)[/,&]|\s+and\s+`)

// ParseLineList splits strings like "Brown/Purple" or "Red, Blue & Green" into
// canonically ordered distinct lines. Unknown parts are dropped.
func ParseLineList(s string) []Line {
	seen := make(map[Line]struct{})
	lines := []Line{}
	for _, part := range lineListSeparators.Split(s, -1) {
		line, ok := ParseLine(part)
		if !ok {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		lines = append(lines, line)
	}
	SortLines(lines)
	return lines
}

var stationParentheses = regexp.MustCompile(`^(.+?)\s*\(([^)]+)\)\s*$`)

// NormalizeStationName strips trailing parenthesized line list from station name.
// "Sedgwick (Brown/Purple)" gives "Sedgwick" and [Brown Purple].
// Parentheses which do not contain any line name are left untouched.
func NormalizeStationName(name string) (string, []Line) {
	match := stationParentheses.FindStringSubmatch(name)
	if match == nil {
		return strings.TrimSpace(name), []Line{}
	}
	lines := ParseLineList(match[2])
	if len(lines) == 0 {
		return strings.TrimSpace(name), []Line{}
	}
	return strings.TrimSpace(match[1]), lines
}
