package ctatracks

import (
	"bytes"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
)

func sampleRawSegments() []RawSegment {
	return []RawSegment{
		{SegmentID: "seg_0000", Corridor: "Red", Lines: []Line{LineRed}, Geom: orb.LineString{{-87.66, 42.01}, {-87.66, 42.00}}},
		{SegmentID: "seg_0001", Corridor: "Red", Lines: []Line{LineRed}, Geom: orb.LineString{{-87.66, 42.00}, {-87.65, 41.99}}},
		{SegmentID: "seg_0002", Corridor: CorridorLoop, IsLoop: true, Lines: []Line{LineBrown, LineOrange, LinePink}, Geom: orb.LineString{{-87.634, 41.886}, {-87.626, 41.886}}},
		{SegmentID: "seg_0003", Corridor: CorridorLoop, IsLoop: true, Lines: []Line{LineBrown, LineOrange, LinePink}, Geom: orb.LineString{{-87.626, 41.886}, {-87.626, 41.877}}},
		{SegmentID: "seg_0004", Corridor: "Broken", Lines: []Line{LineBlue}, Geom: orb.LineString{{-87.7, 41.9}}},
	}
}

func TestProcessor(t *testing.T) {
	processor := NewProcessor(
		WithOffsetStep(3.5),
		WithLoopOffsetStep(2.0),
		WithStitchOnlyLoop(true),
	)
	t.Log(processor)

	stitched, diag := processor.Process(sampleRawSegments(), AllLines(true))
	// 2 unstitched Red + 3 Loop lines stitched
	if len(stitched) != 5 {
		t.Errorf("Number of features should be %d, but got %d", 5, len(stitched))
		return
	}
	for i := 0; i < 2; i++ {
		if stitched[i].IsLoop || stitched[i].SegmentCount != 1 {
			t.Errorf("Feature #%d should be unstitched non-Loop segment, but got %+v", i, stitched[i])
		}
	}
	correctLines := []Line{LineBrown, LineOrange, LinePink}
	correctOffsets := []float64{-2, 0, 2}
	for i := 2; i < 5; i++ {
		seg := stitched[i]
		if !seg.IsLoop || seg.SegmentCount != 2 {
			t.Errorf("Feature #%d should be stitched Loop segment of 2, but got loop=%t count=%d", i, seg.IsLoop, seg.SegmentCount)
		}
		if seg.Line != correctLines[i-2] || seg.OffsetPx != correctOffsets[i-2] {
			t.Errorf("Feature #%d should be %s at %f, but got %s at %f", i, correctLines[i-2], correctOffsets[i-2], seg.Line, seg.OffsetPx)
		}
		if len(seg.Geom) != 3 {
			t.Errorf("Feature #%d should have 3 points, but got %d", i, len(seg.Geom))
		}
	}

	if len(diag.SkippedMalformed) != 1 || diag.SkippedMalformed[0] != "seg_0004" {
		t.Errorf("Malformed segment should be reported, but got %v", diag.SkippedMalformed)
	}
	if len(diag.LostLines) != 0 {
		t.Errorf("No line should be lost, but got %v", diag.LostLines)
	}
	if diag.ExplodedByLine[LineRed] != 2 || diag.StitchedByLine[LineRed] != 2 {
		t.Errorf("Red should have 2 segments before and after stitching, but got %d and %d", diag.ExplodedByLine[LineRed], diag.StitchedByLine[LineRed])
	}
	if diag.ExplodedByLine[LineBrown] != 2 || diag.StitchedByLine[LineBrown] != 1 {
		t.Errorf("Brown should have 2 segments before and 1 after stitching, but got %d and %d", diag.ExplodedByLine[LineBrown], diag.StitchedByLine[LineBrown])
	}
}

func TestProcessorStitchAll(t *testing.T) {
	stitched := ExplodeAndStitch(sampleRawSegments(), AllLines(true), DefaultOffsetStep, DefaultLoopOffsetStep, false)
	if len(stitched) != 4 {
		t.Errorf("Number of features should be %d, but got %d", 4, len(stitched))
		return
	}
	if stitched[0].Line != LineRed || stitched[0].SegmentCount != 2 {
		t.Errorf("Red should be stitched into single feature, but got %s with count %d", stitched[0].Line, stitched[0].SegmentCount)
	}
	correct := "[[-87.660000, 42.010000],[-87.660000, 42.000000],[-87.650000, 41.990000]]"
	if lineAsString(stitched[0].Geom) != correct {
		t.Errorf("Red geometry should be '%s', but got '%s'", correct, lineAsString(stitched[0].Geom))
	}
}

func TestProcessorLineFilter(t *testing.T) {
	processor := NewProcessor()
	stitched, diag := processor.Process(sampleRawSegments(), NewLineFilter(LineOrange))
	if len(stitched) != 1 {
		t.Errorf("Number of features should be %d, but got %d", 1, len(stitched))
		return
	}
	if stitched[0].Line != LineOrange || stitched[0].OffsetPx != 0 || stitched[0].SharedCount != 1 {
		t.Errorf("Lone Orange should be centered, but got %s at %f (shared by %d)", stitched[0].Line, stitched[0].OffsetPx, stitched[0].SharedCount)
	}
	if diag.ExplodedByLine[LineBrown] != 0 {
		t.Errorf("Disabled Brown should not be exploded, but got %d", diag.ExplodedByLine[LineBrown])
	}

	stitched, _ = processor.Process(sampleRawSegments(), AllLines(false))
	if len(stitched) != 0 {
		t.Errorf("Nothing should be produced with every line disabled, but got %d features", len(stitched))
	}
}

func TestProcessorLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	processor := NewProcessor(WithLogger(zerolog.New(buf).Level(zerolog.DebugLevel)))
	processor.Process(sampleRawSegments(), AllLines(true))
	logged := buf.String()
	for _, msg := range []string{"Segments processed", "Skipped segments with less than two points"} {
		if !strings.Contains(logged, msg) {
			t.Errorf("Log should contain '%s', but got:\n%s", msg, logged)
		}
	}
}
