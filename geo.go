package ctatracks

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const (
	earthR = 20037508.34
)

func epsg3857To4326(x, y float64) (float64, float64) {
	lon := x * 180 / earthR
	lat := math.Atan(math.Exp(y*math.Pi/earthR))*360/math.Pi - 90
	return lon, lat
}

func epsg4326To3857(lon, lat float64) (float64, float64) {
	x := lon * earthR / 180
	y := math.Log(math.Tan((90+lat)*math.Pi/360)) / (math.Pi / 180)
	y = y * earthR / 180
	return x, y
}

func lineToEuclidean(line orb.LineString) orb.LineString {
	newLine := make(orb.LineString, len(line))
	for i, pt := range line {
		x, y := epsg4326To3857(pt.Lon(), pt.Lat())
		newLine[i] = orb.Point{x, y}
	}
	return newLine
}

func lineToGeographic(line orb.LineString) orb.LineString {
	newLine := make(orb.LineString, len(line))
	for i, pt := range line {
		lon, lat := epsg3857To4326(pt[0], pt[1])
		newLine[i] = orb.Point{lon, lat}
	}
	return newLine
}

// OffsetGeometry materializes paint offset as real geometry for consumers which can't offset lines themselves.
// Line is expected in lon/lat. Offset is measured in Web Mercator meters: offsetPx * metersPerPixel.
// Positive offset shifts the line to the left of its direction.
func OffsetGeometry(line orb.LineString, offsetPx, metersPerPixel float64) orb.LineString {
	if offsetPx == 0 || metersPerPixel == 0 || len(line) < 2 {
		return copyLine(line)
	}
	shifted := offsetCurve(lineToEuclidean(line), offsetPx*metersPerPixel)
	return lineToGeographic(shifted)
}

// LengthMeters returns haversine length of lon/lat line
func LengthMeters(line orb.LineString) float64 {
	return geo.LengthHaversine(line)
}
