package ctatracks

import (
	"fmt"
	"io"
	"os"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// ReadRawSegmentsGeoJSONFile reads raw segments from GeoJSON file
func ReadRawSegmentsGeoJSONFile(fname string) ([]RawSegment, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open file")
	}
	defer file.Close()
	return ReadRawSegmentsGeoJSON(file)
}

// ReadRawSegmentsGeoJSON reads FeatureCollection of track segments.
// Every feature is expected to carry "segment_id", "corridor", "is_loop" and "lines" properties.
// MultiLineString features are split into one segment per part, IDs get "#<part>" suffix.
func ReadRawSegmentsGeoJSON(r io.Reader) ([]RawSegment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read GeoJSON")
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(err, "Can't parse FeatureCollection")
	}
	segments := make([]RawSegment, 0, len(fc.Features))
	for i, feature := range fc.Features {
		props := segmentProperties(feature)
		if feature.Geometry == nil {
			// No geometry: keep the segment so the Exploder reports it
			segments = append(segments, props)
			continue
		}
		switch feature.Geometry.Type {
		case geojson.GeometryLineString:
			geom, err := coordinatesToLine(feature.Geometry.LineString)
			if err != nil {
				return nil, errors.Wrapf(err, "Bad geometry for feature #%d", i)
			}
			props.Geom = geom
			segments = append(segments, props)
		case geojson.GeometryMultiLineString:
			for part, coords := range feature.Geometry.MultiLineString {
				geom, err := coordinatesToLine(coords)
				if err != nil {
					return nil, errors.Wrapf(err, "Bad geometry for feature #%d (part %d)", i, part)
				}
				partSegment := props
				partSegment.SegmentID = fmt.Sprintf("%s#%d", props.SegmentID, part)
				partSegment.Lines = append([]Line(nil), props.Lines...)
				partSegment.Geom = geom
				segments = append(segments, partSegment)
			}
		default:
			return nil, fmt.Errorf("Feature #%d has geometry type '%s', only LineString and MultiLineString are handled", i, feature.Geometry.Type)
		}
	}
	return segments, nil
}

// segmentProperties extracts everything except geometry
func segmentProperties(feature *geojson.Feature) RawSegment {
	segment := RawSegment{
		SegmentID: propertyString(feature.Properties, "segment_id"),
		Corridor:  propertyString(feature.Properties, "corridor"),
		Lines:     []Line{},
	}
	if segment.SegmentID == "" && feature.ID != nil {
		segment.SegmentID = fmt.Sprintf("%v", feature.ID)
	}
	if isLoop, ok := feature.Properties["is_loop"].(bool); ok {
		segment.IsLoop = isLoop
	}
	switch lines := feature.Properties["lines"].(type) {
	case []interface{}:
		for _, line := range lines {
			if name, ok := line.(string); ok {
				segment.Lines = append(segment.Lines, Line(name))
			}
		}
	case string:
		segment.Lines = append(segment.Lines, ParseLineList(lines)...)
	}
	return segment
}

func propertyString(props map[string]interface{}, key string) string {
	value, ok := props[key]
	if !ok || value == nil {
		return ""
	}
	if str, ok := value.(string); ok {
		return str
	}
	return fmt.Sprintf("%v", value)
}

func coordinatesToLine(coords [][]float64) (orb.LineString, error) {
	line := make(orb.LineString, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("Coordinate #%d has %d dimension(s)", i, len(coord))
		}
		line[i] = orb.Point{coord[0], coord[1]}
	}
	return line, nil
}

func lineToCoordinates(line orb.LineString) [][]float64 {
	coords := make([][]float64, len(line))
	for i := range line {
		coords[i] = []float64{line[i][0], line[i][1]}
	}
	return coords
}

// RawSegmentsToFeatureCollection returns GeoJSON representation of raw segments
func RawSegmentsToFeatureCollection(segments []RawSegment) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range segments {
		segment := &segments[i]
		lines := make([]string, len(segment.Lines))
		for j, line := range segment.Lines {
			lines[j] = string(line)
		}
		feature := geojson.NewLineStringFeature(lineToCoordinates(segment.Geom))
		feature.SetProperty("segment_id", segment.SegmentID)
		feature.SetProperty("corridor", segment.Corridor)
		feature.SetProperty("is_loop", segment.IsLoop)
		feature.SetProperty("lines", lines)
		fc.AddFeature(feature)
	}
	return fc
}

// StitchedToFeatureCollection returns paint-ready GeoJSON.
// When withColor is set every feature gets "color" property with line's display color
func StitchedToFeatureCollection(segments []StitchedSegment, withColor bool) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range segments {
		segment := &segments[i]
		feature := geojson.NewLineStringFeature(lineToCoordinates(segment.Geom))
		feature.SetProperty("segment_id", segment.SegmentID)
		feature.SetProperty("corridor", segment.Corridor)
		feature.SetProperty("is_loop", segment.IsLoop)
		feature.SetProperty("line", string(segment.Line))
		feature.SetProperty("shared_count", segment.SharedCount)
		feature.SetProperty("shared_index", segment.SharedIndex)
		feature.SetProperty("offset_px", segment.OffsetPx)
		feature.SetProperty("segment_count", segment.SegmentCount)
		if withColor {
			feature.SetProperty("color", segment.Line.Color())
		}
		fc.AddFeature(feature)
	}
	return fc
}

// WriteFeatureCollectionFile writes GeoJSON to file
func WriteFeatureCollectionFile(fname string, fc *geojson.FeatureCollection) error {
	b, err := fc.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "Can't marshal FeatureCollection")
	}
	err = os.WriteFile(fname, b, 0644)
	if err != nil {
		return errors.Wrap(err, "Can't write file")
	}
	return nil
}

// PrepareGeoJSONLinestring returns GeoJSON representation of LineString
func PrepareGeoJSONLinestring(line orb.LineString) string {
	b, err := geojson.NewLineStringGeometry(lineToCoordinates(line)).MarshalJSON()
	if err != nil {
		fmt.Printf("Warning. Can not convert geometry to geojson format: %s", err.Error())
		return ""
	}
	return string(b)
}

// PrepareGeoJSONPoint returns GeoJSON representation of Point
func PrepareGeoJSONPoint(pt orb.Point) string {
	b, err := geojson.NewPointGeometry([]float64{pt[0], pt[1]}).MarshalJSON()
	if err != nil {
		fmt.Printf("Warning. Can not convert geometry to geojson format: %s", err.Error())
		return ""
	}
	return string(b)
}
