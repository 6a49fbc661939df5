package ctatracks

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeGTFSZip(t *testing.T, tables map[string]string) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "google_transit.zip")
	file, err := os.Create(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	archive := zip.NewWriter(file)
	for name, content := range tables {
		w, err := archive.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := archive.Close(); err != nil {
		t.Fatal(err)
	}
	return fname
}

func TestReadGTFSShapes(t *testing.T) {
	fname := writeGTFSZip(t, map[string]string{
		"routes.txt": "\ufeffroute_id,route_short_name,route_long_name,route_type\n" +
			"Red,,Red Line,1\n" +
			"Brn,,Brown Line,1\n" +
			"22,22,Clark,3\n",
		"trips.txt": "route_id,service_id,trip_id,shape_id\n" +
			"Red,1,t1,308500036\n" +
			"Red,1,t2,308500036\n" +
			"Brn,1,t3,304500033\n" +
			"22,1,t4,62200001\n",
		"shapes.txt": "shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence\n" +
			"308500036,42.0190,-87.6727,2\n" +
			"308500036,42.0190,-87.6730,1\n" +
			"308500036,42.0150,-87.6720,3\n" +
			"304500033,41.9660,-87.7130,1\n" +
			"304500033,41.9660,-87.7080,2\n" +
			"62200001,41.9,-87.6,1\n" +
			"62200001,41.8,-87.6,2\n",
	})
	shapes, err := ReadGTFSShapes(fname)
	if err != nil {
		t.Error(err)
		return
	}
	if len(shapes) != 2 {
		t.Errorf("Only rail shapes should be read: expected %d, but got %d", 2, len(shapes))
		return
	}
	red := shapes[0]
	if red.Line != LineRed || red.ShapeID != "308500036" {
		t.Errorf("First shape should be Red '308500036', but got %s '%s'", red.Line, red.ShapeID)
	}
	correct := "[[-87.673000, 42.019000],[-87.672700, 42.019000],[-87.672000, 42.015000]]"
	if lineAsString(red.Geom) != correct {
		t.Errorf("Points should be ordered by sequence: expected '%s', but got '%s'", correct, lineAsString(red.Geom))
	}
	if shapes[1].Line != LineBrown || len(shapes[1].Geom) != 2 {
		t.Errorf("Second shape should be Brown with 2 points, but got %s with %d", shapes[1].Line, len(shapes[1].Geom))
	}
}

func TestReadGTFSShapesMissingColumn(t *testing.T) {
	fname := writeGTFSZip(t, map[string]string{
		"routes.txt": "route_id\nRed\n",
		"trips.txt":  "route_id,shape_id\nRed,1\n",
		"shapes.txt": "shape_id,shape_pt_lat,shape_pt_lon\n1,42,-87\n",
	})
	if _, err := ReadGTFSShapes(fname); err == nil {
		t.Errorf("Missing shape_pt_sequence should be reported")
	}
	fname = writeGTFSZip(t, map[string]string{
		"routes.txt": "route_id\nRed\n",
	})
	if _, err := ReadGTFSShapes(fname); err == nil {
		t.Errorf("Missing trips.txt should be reported")
	}
}
