package ctatracks

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/LdDl/ch"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// ErrNoPath is returned when target can't be reached from source
var ErrNoPath = errors.New("No path between given points")

type edgeKey struct {
	from int64
	to   int64
}

// TrackGraph is routable graph of physical track built on top of contraction hierarchies.
// Vertices are quantized segment endpoints, edges are raw segments.
type TrackGraph struct {
	graph     ch.Graph
	vertexIDs map[endpointKey]int64
	vertices  []orb.Point
	// edges keeps cheapest geometry between two vertices oriented from -> to
	edges   map[edgeKey]orb.LineString
	weights map[edgeKey]float64
}

// NewTrackGraph creates graph from raw segments carrying at least one enabled line.
// Every segment becomes edge in both directions weighted by its length in meters.
// Contraction is done before returning.
func NewTrackGraph(segments []RawSegment, filter LineFilter) (*TrackGraph, error) {
	trackGraph := &TrackGraph{
		graph:     ch.Graph{},
		vertexIDs: make(map[endpointKey]int64),
		vertices:  []orb.Point{},
		edges:     make(map[edgeKey]orb.LineString),
		weights:   make(map[edgeKey]float64),
	}
	order := []edgeKey{}
	for i := range segments {
		segment := &segments[i]
		if !validGeom(segment.Geom) || !IsStationActiveByLineFilter(segment.Lines, filter) {
			continue
		}
		source := trackGraph.vertexID(firstPoint(segment.Geom))
		target := trackGraph.vertexID(lastPoint(segment.Geom))
		if source == target {
			continue
		}
		cost := LengthMeters(segment.Geom)
		forward := edgeKey{from: source, to: target}
		backward := edgeKey{from: target, to: source}
		if weight, ok := trackGraph.weights[forward]; ok {
			if weight <= cost {
				continue
			}
		} else {
			order = append(order, forward, backward)
		}
		trackGraph.weights[forward] = cost
		trackGraph.weights[backward] = cost
		trackGraph.edges[forward] = copyLine(segment.Geom)
		trackGraph.edges[backward] = reverseLine(segment.Geom)
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("There are no segments for enabled lines")
	}

	for _, key := range order {
		err := trackGraph.graph.CreateVertex(key.from)
		if err != nil {
			return nil, errors.Wrap(err, "Can not create source vertex")
		}
		err = trackGraph.graph.CreateVertex(key.to)
		if err != nil {
			return nil, errors.Wrap(err, "Can not create target vertex")
		}
		err = trackGraph.graph.AddEdge(key.from, key.to, trackGraph.weights[key])
		if err != nil {
			return nil, errors.Wrap(err, "Can not wrap Source and Target vertices as Edge")
		}
	}
	trackGraph.graph.PrepareContractionHierarchies()
	return trackGraph, nil
}

func (trackGraph *TrackGraph) vertexID(pt orb.Point) int64 {
	key := quantize(pt)
	if id, ok := trackGraph.vertexIDs[key]; ok {
		return id
	}
	id := int64(len(trackGraph.vertices))
	trackGraph.vertexIDs[key] = id
	trackGraph.vertices = append(trackGraph.vertices, pt)
	return id
}

// VerticesNum returns number of distinct segment endpoints in graph
func (trackGraph *TrackGraph) VerticesNum() int {
	return len(trackGraph.vertices)
}

// nearestVertex returns vertex closest to given lon/lat point
func (trackGraph *TrackGraph) nearestVertex(pt orb.Point) int64 {
	best := int64(-1)
	bestDistance := math.MaxFloat64
	for id, vertex := range trackGraph.vertices {
		distance := greatCircleDistance(pt, vertex)
		if distance < bestDistance {
			bestDistance = distance
			best = int64(id)
		}
	}
	return best
}

// ShortestPath finds route along the track between vertices nearest to given points.
// Returns length of route in meters and its geometry.
func (trackGraph *TrackGraph) ShortestPath(from, to orb.Point) (float64, orb.LineString, error) {
	source := trackGraph.nearestVertex(from)
	target := trackGraph.nearestVertex(to)
	if source < 0 || target < 0 {
		return 0, nil, ErrNoPath
	}
	if source == target {
		return 0, orb.LineString{trackGraph.vertices[source]}, nil
	}
	meters, path := trackGraph.graph.ShortestPath(source, target)
	if meters < 0 || len(path) < 2 {
		return 0, nil, ErrNoPath
	}
	route := orb.LineString{trackGraph.vertices[path[0]]}
	for i := 1; i < len(path); i++ {
		geom, ok := trackGraph.edges[edgeKey{from: path[i-1], to: path[i]}]
		if !ok {
			return 0, nil, fmt.Errorf("Missing edge between vertices %d and %d", path[i-1], path[i])
		}
		route = append(route, geom[1:]...)
	}
	return meters, route, nil
}

// ExportVerticesToCSV writes vertices with their position in hierarchies as ';'-separated CSV
func (trackGraph *TrackGraph) ExportVerticesToCSV(fname string, geomFormat string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	// 		vertex_id - int64, ID of vertex
	// 		order_pos - int, Position of vertex in hierarchies (evaluted by library)
	// 		importance - int, Importance of vertex in graph (evaluted by library)
	//      geom - geometry (WKT or GeoJSON representation)
	err = writer.Write([]string{"vertex_id", "order_pos", "importance", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}
	vertices := trackGraph.graph.Vertices
	for i := 0; i < len(vertices); i++ {
		label := vertices[i].Label
		if label < 0 || label >= int64(len(trackGraph.vertices)) {
			continue
		}
		err = writer.Write([]string{
			fmt.Sprintf("%d", label),
			fmt.Sprintf("%d", vertices[i].OrderPos()),
			fmt.Sprintf("%d", vertices[i].Importance()),
			preparePointGeom(trackGraph.vertices[label], strings.ToLower(geomFormat)),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write vertex")
		}
	}
	return nil
}

// ExportShortcutsToFile writes shortcuts produced by contraction
//
// 	from_vertex_id - int64, ID of source vertex
// 	to_vertex_id - int64, ID of arget vertex
// 	weight - float64, Weight of an edge
// 	via_vertex_id - int64, ID of vertex through which the shortcut exists
func (trackGraph *TrackGraph) ExportShortcutsToFile(fname string) error {
	err := trackGraph.graph.ExportShortcutsToFile(fname)
	if err != nil {
		return errors.Wrap(err, "Can't export shortcuts")
	}
	return nil
}
