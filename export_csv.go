package ctatracks

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ExportStitchedToCSV writes stitched segments as ';'-separated CSV.
// geomFormat is either "wkt" (default) or "geojson"
func ExportStitchedToCSV(fname string, segments []StitchedSegment, geomFormat string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"segment_id", "corridor", "is_loop", "line", "color", "shared_count", "shared_index", "offset_px", "segment_count", "length_meters", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for i := range segments {
		segment := &segments[i]
		err = writer.Write([]string{
			segment.SegmentID,
			segment.Corridor,
			fmt.Sprintf("%t", segment.IsLoop),
			string(segment.Line),
			segment.Line.Color(),
			fmt.Sprintf("%d", segment.SharedCount),
			fmt.Sprintf("%d", segment.SharedIndex),
			fmt.Sprintf("%f", segment.OffsetPx),
			fmt.Sprintf("%d", segment.SegmentCount),
			fmt.Sprintf("%f", LengthMeters(segment.Geom)),
			prepareGeom(segment.Geom, strings.ToLower(geomFormat)),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write segment")
		}
	}
	return nil
}

// ExportRawToCSV writes raw segments as ';'-separated CSV
func ExportRawToCSV(fname string, segments []RawSegment, geomFormat string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"segment_id", "corridor", "is_loop", "lines", "length_meters", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for i := range segments {
		segment := &segments[i]
		err = writer.Write([]string{
			segment.SegmentID,
			segment.Corridor,
			fmt.Sprintf("%t", segment.IsLoop),
			joinLines(segment.Lines),
			fmt.Sprintf("%f", LengthMeters(segment.Geom)),
			prepareGeom(segment.Geom, strings.ToLower(geomFormat)),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write segment")
		}
	}
	return nil
}
