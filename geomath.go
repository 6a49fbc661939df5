package ctatracks

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const (
	earthRadius = 6370.986884258304
	pi180       = math.Pi / 180.0

	// endpointPrecision is number of decimal digits kept when endpoints are used as map keys
	endpointPrecision = 6
	// endpointTolerance is absolute tolerance for endpoint comparison (coordinate units)
	endpointTolerance = 1e-6
)

// endpointKey is quantized coordinate of segment's end
type endpointKey struct {
	x int64
	y int64
}

// quantize rounds point to endpointPrecision digits
func quantize(pt orb.Point) endpointKey {
	return snap(pt, endpointPrecision)
}

// pointsEqual compares two points with endpointTolerance
func pointsEqual(p, q orb.Point) bool {
	return math.Abs(p[0]-q[0]) < endpointTolerance && math.Abs(p[1]-q[1]) < endpointTolerance
}

// firstPoint returns starting point of line
//
// Note: panics on empty line
//
func firstPoint(line orb.LineString) orb.Point {
	return line[0]
}

// lastPoint returns ending point of line
//
// Note: panics on empty line
//
func lastPoint(line orb.LineString) orb.Point {
	return line[len(line)-1]
}

// degreesToRadians deg = r * pi / 180
func degreesToRadians(d float64) float64 {
	return d * pi180
}

// greatCircleDistance returns distance between two lon/lat points (kilometers)
func greatCircleDistance(p, q orb.Point) float64 {
	lat1 := degreesToRadians(p.Lat())
	lon1 := degreesToRadians(p.Lon())
	lat2 := degreesToRadians(q.Lat())
	lon2 := degreesToRadians(q.Lon())
	diffLat := lat2 - lat1
	diffLon := lon2 - lon1
	a := math.Pow(math.Sin(diffLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(diffLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	ans := c * earthRadius
	return ans
}

// Check if two segments intersects and returns intersections Point
// p1, p2 - first segment
// p3, p4 - second segment
// Note: Euclidean space
func intersect(p1, p2, p3, p4 orb.Point) (orb.Point, error) {
	a1 := p2[1] - p1[1]
	b1 := p1[0] - p2[0]
	c1 := a1*p1[0] + b1*p1[1]
	a2 := p4[1] - p3[1]
	b2 := p3[0] - p4[0]
	c2 := a2*p3[0] + b2*p3[1]

	det := a1*b2 - a2*b1
	if det == 0 {
		return orb.Point{}, fmt.Errorf("The lines are parallel")
	}

	x := (b2*c1 - b1*c2) / det
	y := (a1*c2 - a2*c1) / det
	return orb.Point{x, y}, nil
}

// offsetCurve returns line shifted by distance to the left of travel direction (right for negative distance).
// Consecutive shifted pieces are joined at their intersection; zero-length pieces are ignored.
func offsetCurve(line orb.LineString, distance float64) orb.LineString {
	var segments [][2]orb.Point
	for i := 1; i < len(line); i++ {
		p1 := line[i-1]
		p2 := line[i]
		vec := [2]float64{p2[0] - p1[0], p2[1] - p1[1]}
		vecLen := math.Sqrt(vec[0]*vec[0] + vec[1]*vec[1])
		if vecLen == 0 {
			continue
		}
		vec = [2]float64{vec[0] / vecLen, vec[1] / vecLen}
		// Rotate by 90 degrees and scale
		offset := [2]float64{-vec[1] * distance, vec[0] * distance}
		op1 := orb.Point{p1[0] + offset[0], p1[1] + offset[1]}
		op2 := orb.Point{p2[0] + offset[0], p2[1] + offset[1]}
		segments = append(segments, [2]orb.Point{op1, op2})
	}
	if len(segments) == 0 {
		return copyLine(line)
	}

	result := orb.LineString{segments[0][0]}
	for i := 1; i < len(segments); i++ {
		seg1 := segments[i-1]
		seg2 := segments[i]
		intersection, err := intersect(seg1[0], seg1[1], seg2[0], seg2[1])
		if err != nil {
			// Collinear pieces: shared vertex is shifted by the same vector
			result = append(result, seg2[0])
			continue
		}
		result = append(result, intersection)
	}
	result = append(result, segments[len(segments)-1][1])
	return result
}

// reverseLine reverses order of points in given line. Returns new slice
func reverseLine(pts orb.LineString) orb.LineString {
	inputLen := len(pts)
	output := make(orb.LineString, inputLen)
	for i, n := range pts {
		j := inputLen - i - 1
		output[j] = n
	}
	return output
}

// copyLine copies given line. Returns new slice
func copyLine(pts orb.LineString) orb.LineString {
	output := make(orb.LineString, len(pts))
	copy(output, pts)
	return output
}
