package ctatracks

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

func TestGreatCircleDistance(t *testing.T) {
	p1 := orb.Point{37.6417350769043, 55.751849391735284}
	p2 := orb.Point{37.668514251708984, 55.73261980350401}
	res := 2.71693096539 // kilometers
	gcd := greatCircleDistance(p1, p2)
	if Round(gcd, 0.0005) != Round(res, 0.0005) {
		t.Errorf("Great circle dist must be %f, but got %f", res, gcd)
	}
}

func Round(x, unit float64) float64 {
	if x > 0 {
		return float64(int64(x/unit+0.5)) * unit
	}
	return float64(int64(x/unit-0.5)) * unit
}

func lineAsString(l orb.LineString) string {
	agg := []string{}
	for _, pt := range l {
		agg = append(agg, fmt.Sprintf("[%f, %f]", pt.X(), pt.Y()))
	}
	return "[" + strings.Join(agg, ",") + "]"
}

func TestOffset(t *testing.T) {
	line := orb.LineString{{10.0, 10.0}, {15.0, 10.0}, {18.0, 15.0}, {18.0, 20.0}, {15.0, 24.0}, {12.0, 24.0}, {10.0, 18.0}, {10.0, 15.0}, {13.0, 12.0}, {15.0, 16.0}}
	distance := 1.0

	leftL := lineAsString(offsetCurve(line, distance))
	rightL := lineAsString(offsetCurve(line, -distance))

	correctLeft := "[[10.000000, 11.000000],[14.433810, 11.000000],[17.000000, 15.276984],[17.000000, 19.666667],[14.500000, 23.000000],[12.720759, 23.000000],[11.000000, 17.837722],[11.000000, 15.414214],[12.726049, 13.688165],[14.105573, 16.447214]]"
	if leftL != correctLeft {
		t.Errorf("Left offset line should be '%s' but got '%s'", correctLeft, leftL)
	}
	correctRight := "[[10.000000, 9.000000],[15.566190, 9.000000],[19.000000, 14.723016],[19.000000, 20.333333],[15.500000, 25.000000],[11.279241, 25.000000],[9.000000, 18.162278],[9.000000, 14.585786],[13.273951, 10.311835],[15.894427, 15.552786]]"
	if rightL != correctRight {
		t.Errorf("Right offset line should be '%s' but got '%s'", correctRight, rightL)
	}
}

func TestOffsetCollinear(t *testing.T) {
	line := orb.LineString{{0, 0}, {1, 0}, {1, 0}, {2, 0}}
	shifted := lineAsString(offsetCurve(line, 1))
	correct := "[[0.000000, 1.000000],[1.000000, 1.000000],[2.000000, 1.000000]]"
	if shifted != correct {
		t.Errorf("Offset line should be '%s' but got '%s'", correct, shifted)
	}
}

func TestIntersectParallel(t *testing.T) {
	_, err := intersect(orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{0, 1}, orb.Point{1, 1})
	if err == nil {
		t.Errorf("Parallel lines should not intersect")
	}
	pt, err := intersect(orb.Point{0, 0}, orb.Point{2, 2}, orb.Point{0, 2}, orb.Point{2, 0})
	if err != nil {
		t.Error(err)
		return
	}
	if pt != (orb.Point{1, 1}) {
		t.Errorf("Intersection should be %v, but got %v", orb.Point{1, 1}, pt)
	}
}

func TestReverseLine(t *testing.T) {
	line := orb.LineString{{0, 0}, {1, 0}, {2, 1}}
	reversed := reverseLine(line)
	correct := "[[2.000000, 1.000000],[1.000000, 0.000000],[0.000000, 0.000000]]"
	if lineAsString(reversed) != correct {
		t.Errorf("Reversed line should be '%s' but got '%s'", correct, lineAsString(reversed))
	}
	if line[0] != (orb.Point{0, 0}) {
		t.Errorf("Source line should not be modified, but got %v", line)
	}
}

func TestQuantize(t *testing.T) {
	if quantize(orb.Point{-87.6298, 41.8781}) != quantize(orb.Point{-87.62980000004, 41.87809999996}) {
		t.Errorf("Points differing below precision should share key")
	}
	if quantize(orb.Point{-87.6298, 41.8781}) == quantize(orb.Point{-87.62981, 41.8781}) {
		t.Errorf("Points differing above precision should not share key")
	}
}

func TestOffsetGeometry(t *testing.T) {
	line := orb.LineString{{-87.63, 41.88}, {-87.62, 41.88}}

	same := OffsetGeometry(line, 0, 10)
	if lineAsString(same) != lineAsString(line) {
		t.Errorf("Zero offset should keep geometry '%s', but got '%s'", lineAsString(line), lineAsString(same))
	}
	same[0] = orb.Point{0, 0}
	if line[0] == same[0] {
		t.Errorf("Zero offset should return copy of geometry")
	}

	left := OffsetGeometry(line, 1.75, 10)
	right := OffsetGeometry(line, -1.75, 10)
	if len(left) != 2 || len(right) != 2 {
		t.Errorf("Offset lines should have 2 points, but got %d and %d", len(left), len(right))
		return
	}
	for i := range line {
		// Eastbound line: left is north
		if left[i].Lat() <= line[i].Lat() {
			t.Errorf("Point #%d of positive offset should be north of %v, but got %v", i, line[i], left[i])
		}
		if right[i].Lat() >= line[i].Lat() {
			t.Errorf("Point #%d of negative offset should be south of %v, but got %v", i, line[i], right[i])
		}
		if math.Abs(left[i].Lon()-line[i].Lon()) > 1e-9 {
			t.Errorf("Longitude of point #%d should be %f, but got %f", i, line[i].Lon(), left[i].Lon())
		}
		mid := (left[i].Lat() + right[i].Lat()) / 2
		if math.Abs(mid-line[i].Lat()) > 1e-7 {
			t.Errorf("Offsets should be symmetric around %f, but middle is %f", line[i].Lat(), mid)
		}
	}
	// 17.5 web mercator meters at ~41.88N are ~13 ground meters
	shiftMeters := 1000 * greatCircleDistance(line[0], left[0])
	if shiftMeters < 12 || shiftMeters > 14 {
		t.Errorf("Shift should be about 13 meters, but got %f", shiftMeters)
	}
}

func TestLengthMeters(t *testing.T) {
	line := orb.LineString{{37.6417350769043, 55.751849391735284}, {37.668514251708984, 55.73261980350401}}
	length := LengthMeters(line)
	if math.Abs(length-2716.93) > 5 {
		t.Errorf("Length should be about %f, but got %f", 2716.93, length)
	}
}
