package ctatracks

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// GTFSRouteLines maps CTA GTFS route_id of rail routes to lines
var GTFSRouteLines = map[string]Line{
	"Red":  LineRed,
	"Blue": LineBlue,
	"Brn":  LineBrown,
	"G":    LineGreen,
	"Org":  LineOrange,
	"P":    LinePurple,
	"Pink": LinePink,
	"Y":    LineYellow,
}

type shapePoint struct {
	seq int
	pt  orb.Point
}

// ReadGTFSShapes extracts shapes of rail routes from GTFS zip archive.
// Every shape_id is kept as separate Shape, points are ordered by shape_pt_sequence.
// Shapes are returned ordered by line, then by shape_id.
func ReadGTFSShapes(zipPath string) ([]Shape, error) {
	archive, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open GTFS zip")
	}
	defer archive.Close()

	railRoutes := make(map[string]Line)
	err = readGTFSTable(&archive.Reader, "routes.txt", []string{"route_id"}, func(row map[string]string) error {
		if line, ok := GTFSRouteLines[row["route_id"]]; ok {
			railRoutes[row["route_id"]] = line
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	shapeLines := make(map[string]Line)
	err = readGTFSTable(&archive.Reader, "trips.txt", []string{"route_id", "shape_id"}, func(row map[string]string) error {
		line, ok := railRoutes[row["route_id"]]
		if !ok || row["shape_id"] == "" {
			return nil
		}
		shapeLines[row["shape_id"]] = line
		return nil
	})
	if err != nil {
		return nil, err
	}

	points := make(map[string][]shapePoint)
	err = readGTFSTable(&archive.Reader, "shapes.txt", []string{"shape_id", "shape_pt_lat", "shape_pt_lon", "shape_pt_sequence"}, func(row map[string]string) error {
		shapeID := row["shape_id"]
		if _, ok := shapeLines[shapeID]; !ok {
			return nil
		}
		lat, err := strconv.ParseFloat(row["shape_pt_lat"], 64)
		if err != nil {
			return errors.Wrapf(err, "Bad shape_pt_lat for shape '%s'", shapeID)
		}
		lon, err := strconv.ParseFloat(row["shape_pt_lon"], 64)
		if err != nil {
			return errors.Wrapf(err, "Bad shape_pt_lon for shape '%s'", shapeID)
		}
		seq, err := strconv.Atoi(row["shape_pt_sequence"])
		if err != nil {
			return errors.Wrapf(err, "Bad shape_pt_sequence for shape '%s'", shapeID)
		}
		points[shapeID] = append(points[shapeID], shapePoint{seq: seq, pt: orb.Point{lon, lat}})
		return nil
	})
	if err != nil {
		return nil, err
	}

	shapes := make([]Shape, 0, len(points))
	for shapeID, pts := range points {
		sort.SliceStable(pts, func(i, j int) bool {
			return pts[i].seq < pts[j].seq
		})
		geom := make(orb.LineString, len(pts))
		for i := range pts {
			geom[i] = pts[i].pt
		}
		shapes = append(shapes, Shape{
			ShapeID: shapeID,
			Line:    shapeLines[shapeID],
			Geom:    geom,
		})
	}
	sort.Slice(shapes, func(i, j int) bool {
		if shapes[i].Line != shapes[j].Line {
			return lineLess(shapes[i].Line, shapes[j].Line)
		}
		return shapes[i].ShapeID < shapes[j].ShapeID
	})
	return shapes, nil
}

// readGTFSTable calls fn for every row of given table. Row is mapped by header names
func readGTFSTable(archive *zip.Reader, table string, required []string, fn func(row map[string]string) error) error {
	var tableFile *zip.File
	for _, f := range archive.File {
		if f.Name == table || strings.HasSuffix(f.Name, "/"+table) {
			tableFile = f
			break
		}
	}
	if tableFile == nil {
		return fmt.Errorf("%s not found in GTFS zip", table)
	}
	rc, err := tableFile.Open()
	if err != nil {
		return errors.Wrapf(err, "Can't open %s", table)
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return errors.Wrapf(err, "Can't read header of %s", table)
	}
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		// Strip UTF-8 BOM which is common in GTFS exports
		colIndex[strings.TrimPrefix(strings.TrimSpace(col), "\ufeff")] = i
	}
	for _, col := range required {
		if _, ok := colIndex[col]; !ok {
			return fmt.Errorf("%s: missing required column: %s", table, col)
		}
	}

	row := make(map[string]string, len(colIndex))
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "Can't read record of %s", table)
		}
		for col, i := range colIndex {
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			} else {
				row[col] = ""
			}
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}
