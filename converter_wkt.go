package ctatracks

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// PrepareWKTLinestring returns WKT representation of LineString
func PrepareWKTLinestring(line orb.LineString) string {
	return wkt.MarshalString(line)
}

// PrepareWKTPoint returns WKT representation of Point
func PrepareWKTPoint(pt orb.Point) string {
	return wkt.MarshalString(pt)
}

// prepareGeom returns WKT or GeoJSON representation of line depending on format ("wkt" is default)
func prepareGeom(line orb.LineString, geomFormat string) string {
	if geomFormat == "geojson" {
		return PrepareGeoJSONLinestring(line)
	}
	return PrepareWKTLinestring(line)
}

// preparePointGeom is the same as prepareGeom, but for points
func preparePointGeom(pt orb.Point, geomFormat string) string {
	if geomFormat == "geojson" {
		return PrepareGeoJSONPoint(pt)
	}
	return PrepareWKTPoint(pt)
}
