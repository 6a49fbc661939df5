package ctatracks

import (
	"fmt"

	"github.com/rs/zerolog"
)

// UnmergedChain describes a chain which could not be walked end to end during merging
type UnmergedChain struct {
	Line      Line
	OffsetPx  float64
	IsLoop    bool
	Corridor  string
	Connected int
	Total     int
}

func (chain UnmergedChain) String() string {
	return fmt.Sprintf("%s|%v|%t|%s: connected %d of %d", chain.Line, chain.OffsetPx, chain.IsLoop, chain.Corridor, chain.Connected, chain.Total)
}

// Diagnostics is bookkeeping collected while exploding and stitching.
// It never affects produced segments.
// All methods are safe to call on nil *Diagnostics
type Diagnostics struct {
	// SkippedMalformed holds IDs of raw segments with less than two points
	SkippedMalformed []string
	ExplodedByLine   map[Line]int
	StitchedByLine   map[Line]int
	Unmerged         []UnmergedChain
	// LostLines lists lines which had exploded segments but no stitched ones. Expected to be empty
	LostLines []Line
}

func newDiagnostics() *Diagnostics {
	return &Diagnostics{
		SkippedMalformed: []string{},
		ExplodedByLine:   make(map[Line]int),
		StitchedByLine:   make(map[Line]int),
		Unmerged:         []UnmergedChain{},
		LostLines:        []Line{},
	}
}

func (diag *Diagnostics) skipMalformed(segmentID string) {
	if diag == nil {
		return
	}
	diag.SkippedMalformed = append(diag.SkippedMalformed, segmentID)
}

func (diag *Diagnostics) countExploded(line Line) {
	if diag == nil {
		return
	}
	diag.ExplodedByLine[line]++
}

func (diag *Diagnostics) unmerged(key groupKey, connected, total int) {
	if diag == nil {
		return
	}
	diag.Unmerged = append(diag.Unmerged, UnmergedChain{
		Line:      key.line,
		OffsetPx:  key.offsetPx,
		IsLoop:    key.isLoop,
		Corridor:  key.corridor,
		Connected: connected,
		Total:     total,
	})
}

// finish counts stitched output and checks that no line vanished
func (diag *Diagnostics) finish(stitched []StitchedSegment) {
	if diag == nil {
		return
	}
	diag.StitchedByLine = CountByLine(stitched)
	for _, line := range sortedLineKeys(diag.ExplodedByLine) {
		if diag.ExplodedByLine[line] > 0 && diag.StitchedByLine[line] == 0 {
			diag.LostLines = append(diag.LostLines, line)
		}
	}
}

// Log writes diagnostics: counts at debug level, anomalies at warn/error level
func (diag *Diagnostics) Log(logger zerolog.Logger) {
	if diag == nil {
		return
	}
	logger.Debug().Interface("by_line", diag.ExplodedByLine).Msg("Exploded segments (before stitching)")
	logger.Debug().Interface("by_line", diag.StitchedByLine).Msg("Stitched segments (after stitching)")
	if len(diag.SkippedMalformed) > 0 {
		logger.Warn().Strs("segment_ids", diag.SkippedMalformed).Msg("Skipped segments with less than two points")
	}
	for _, chain := range diag.Unmerged {
		logger.Warn().
			Str("line", string(chain.Line)).
			Float64("offset_px", chain.OffsetPx).
			Bool("is_loop", chain.IsLoop).
			Str("corridor", chain.Corridor).
			Int("connected", chain.Connected).
			Int("total", chain.Total).
			Msg("Could not connect all segments in path")
	}
	for _, line := range diag.LostLines {
		logger.Error().
			Str("line", string(line)).
			Int("before", diag.ExplodedByLine[line]).
			Msg("Line lost all of its segments during stitching")
	}
}

// CountByLine returns number of features per line
func CountByLine(segments []StitchedSegment) map[Line]int {
	counts := make(map[Line]int)
	for i := range segments {
		counts[segments[i].Line]++
	}
	return counts
}

func sortedLineKeys(counts map[Line]int) []Line {
	lines := make([]Line, 0, len(counts))
	for line := range counts {
		lines = append(lines, line)
	}
	SortLines(lines)
	return lines
}
