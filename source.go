package ctatracks

import (
	"context"
)

// SegmentSource provides raw track segments. Loaded data is treated as immutable.
type SegmentSource interface {
	LoadSegments(ctx context.Context) ([]RawSegment, error)
}

// GeoJSONFileSource reads raw segments from a GeoJSON file on every call
type GeoJSONFileSource struct {
	Path string
}

// LoadSegments implements SegmentSource
func (source GeoJSONFileSource) LoadSegments(ctx context.Context) ([]RawSegment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadRawSegmentsGeoJSONFile(source.Path)
}
