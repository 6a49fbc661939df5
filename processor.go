package ctatracks

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Processor explodes raw track segments into per-line segments and stitches them back into longer polylines
type Processor struct {
	offsetStep     float64
	loopOffsetStep float64
	stitchOnlyLoop bool
	logger         zerolog.Logger
}

func (processor *Processor) String() string {
	return fmt.Sprintf(`
Segment processor parameters:
	offset_step: %f
	loop_offset_step: %f
	stitch_only_loop: %t
	`,
		processor.offsetStep,
		processor.loopOffsetStep,
		processor.stitchOnlyLoop,
	)
}

// NewProcessor returns processor with default offsets (3.5 and 2.0 pixels) which stitches Loop segments only
func NewProcessor(options ...func(*Processor)) *Processor {
	processor := &Processor{
		offsetStep:     DefaultOffsetStep,
		loopOffsetStep: DefaultLoopOffsetStep,
		stitchOnlyLoop: true,
		logger:         zerolog.Nop(),
	}
	for _, option := range options {
		option(processor)
	}
	return processor
}

func WithOffsetStep(offsetStep float64) func(*Processor) {
	return func(processor *Processor) {
		processor.offsetStep = offsetStep
	}
}

func WithLoopOffsetStep(loopOffsetStep float64) func(*Processor) {
	return func(processor *Processor) {
		processor.loopOffsetStep = loopOffsetStep
	}
}

// WithStitchOnlyLoop when true (default) leaves non-Loop segments unstitched
func WithStitchOnlyLoop(stitchOnlyLoop bool) func(*Processor) {
	return func(processor *Processor) {
		processor.stitchOnlyLoop = stitchOnlyLoop
	}
}

func WithLogger(logger zerolog.Logger) func(*Processor) {
	return func(processor *Processor) {
		processor.logger = logger
	}
}

// Process explodes segments for enabled lines and stitches the result.
// Loop segments are always stitched; other segments are stitched only when stitch_only_loop is off.
// Non-Loop features come first in the output.
func (processor *Processor) Process(segments []RawSegment, filter LineFilter) ([]StitchedSegment, *Diagnostics) {
	diag := newDiagnostics()
	exploded := explode(segments, filter, processor.offsetStep, processor.loopOffsetStep, diag)

	loopFeatures := make([]ExplodedSegment, 0)
	nonLoopFeatures := make([]ExplodedSegment, 0, len(exploded))
	for i := range exploded {
		if exploded[i].IsLoop {
			loopFeatures = append(loopFeatures, exploded[i])
		} else {
			nonLoopFeatures = append(nonLoopFeatures, exploded[i])
		}
	}

	stitched := make([]StitchedSegment, 0, len(exploded))
	if processor.stitchOnlyLoop {
		for i := range nonLoopFeatures {
			stitched = append(stitched, nonLoopFeatures[i].single())
		}
	} else {
		stitched = append(stitched, stitch(nonLoopFeatures, diag)...)
	}
	stitched = append(stitched, stitch(loopFeatures, diag)...)

	diag.finish(stitched)
	processor.logger.Debug().
		Str("lines", joinLines(filter.EnabledLines())).
		Int("raw", len(segments)).
		Int("exploded", len(exploded)).
		Int("stitched", len(stitched)).
		Msg("Segments processed")
	diag.Log(processor.logger)
	return stitched, diag
}

// ExplodeAndStitch is shortcut for NewProcessor(...).Process(...) without diagnostics
func ExplodeAndStitch(segments []RawSegment, filter LineFilter, offsetStep, loopOffsetStep float64, stitchOnlyLoop bool) []StitchedSegment {
	processor := NewProcessor(
		WithOffsetStep(offsetStep),
		WithLoopOffsetStep(loopOffsetStep),
		WithStitchOnlyLoop(stitchOnlyLoop),
	)
	stitched, _ := processor.Process(segments, filter)
	return stitched
}

func joinLines(lines []Line) string {
	names := make([]string, len(lines))
	for i, line := range lines {
		names[i] = string(line)
	}
	return strings.Join(names, ",")
}
