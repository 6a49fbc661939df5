package ctatracks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
)

type OSMScanner interface {
	Scan() bool
	Close() error
	Err() error
	Object() osm.Object
}

// railRouteTypes are values of "route" tag for relations describing rail lines
var railRouteTypes = map[string]struct{}{
	"subway":     {},
	"light_rail": {},
	"train":      {},
	"railway":    {},
}

// Member roles which never point to track geometry
var nonTrackRoles = map[string]struct{}{
	"platform":            {},
	"platform_entry_only": {},
	"platform_exit_only":  {},
	"stop":                {},
	"stop_entry_only":     {},
	"stop_exit_only":      {},
}

type routeWay struct {
	relationID osm.RelationID
	wayID      osm.WayID
	line       Line
}

// ReadOSMShapes extracts track shapes from rail route relations of OSM file (.osm, .xml or .pbf).
// Every member way of a relation which could be matched to a line becomes one Shape
// with ID "<relation>/<way>".
func ReadOSMShapes(filename string) ([]Shape, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open file")
	}
	defer file.Close()

	/* Process relations */
	members := []routeWay{}
	waysSeen := make(map[osm.WayID]struct{})
	err = scanOSM(file, filename, func(obj osm.Object) {
		if obj.ObjectID().Type() != "relation" {
			return
		}
		relation := obj.(*osm.Relation)
		if relation.Tags.Find("type") != "route" {
			return
		}
		if _, ok := railRouteTypes[relation.Tags.Find("route")]; !ok {
			return
		}
		line, ok := relationLine(relation.Tags)
		if !ok {
			return
		}
		for _, member := range relation.Members {
			if member.Type != osm.TypeWay {
				continue
			}
			if _, ok := nonTrackRoles[member.Role]; ok {
				continue
			}
			wayID := osm.WayID(member.Ref)
			members = append(members, routeWay{relationID: relation.ID, wayID: wayID, line: line})
			waysSeen[wayID] = struct{}{}
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "Can't scan relations")
	}
	if len(members) == 0 {
		return []Shape{}, nil
	}

	/* Process ways */
	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "Can't repeat seeking after relations scanning")
	}
	ways := make(map[osm.WayID][]osm.NodeID, len(waysSeen))
	nodesSeen := make(map[osm.NodeID]struct{})
	err = scanOSM(file, filename, func(obj osm.Object) {
		if obj.ObjectID().Type() != "way" {
			return
		}
		way := obj.(*osm.Way)
		if _, ok := waysSeen[way.ID]; !ok {
			return
		}
		nodeIDs := make([]osm.NodeID, 0, len(way.Nodes))
		for _, node := range way.Nodes {
			nodeIDs = append(nodeIDs, node.ID)
			nodesSeen[node.ID] = struct{}{}
		}
		ways[way.ID] = nodeIDs
	})
	if err != nil {
		return nil, errors.Wrap(err, "Can't scan ways")
	}

	/* Process nodes */
	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "Can't repeat seeking after ways scanning")
	}
	nodes := make(map[osm.NodeID]orb.Point, len(nodesSeen))
	err = scanOSM(file, filename, func(obj osm.Object) {
		if obj.ObjectID().Type() != "node" {
			return
		}
		node := obj.(*osm.Node)
		if _, ok := nodesSeen[node.ID]; ok {
			nodes[node.ID] = orb.Point{node.Lon, node.Lat}
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "Can't scan nodes")
	}

	shapes := make([]Shape, 0, len(members))
	for _, member := range members {
		nodeIDs, ok := ways[member.wayID]
		if !ok {
			// Way is outside of extract
			continue
		}
		geom := make(orb.LineString, 0, len(nodeIDs))
		for _, nodeID := range nodeIDs {
			if pt, ok := nodes[nodeID]; ok {
				geom = append(geom, pt)
			}
		}
		if len(geom) < 2 {
			continue
		}
		shapes = append(shapes, Shape{
			ShapeID: fmt.Sprintf("%d/%d", member.relationID, member.wayID),
			Line:    member.line,
			Geom:    geom,
		})
	}
	sort.SliceStable(shapes, func(i, j int) bool {
		return lineLess(shapes[i].Line, shapes[j].Line)
	})
	return shapes, nil
}

// scanOSM picks scanner by file extension and feeds every object to fn
func scanOSM(file *os.File, filename string, fn func(obj osm.Object)) error {
	var scanner OSMScanner
	ext := filepath.Ext(filename)
	switch ext {
	case ".osm", ".xml":
		scanner = osmxml.New(context.Background(), file)
	case ".pbf":
		scanner = osmpbf.New(context.Background(), file, 4)
	default:
		return fmt.Errorf("File extension '%s' for file '%s' is not handled yet", ext, filename)
	}
	defer scanner.Close()
	for scanner.Scan() {
		fn(scanner.Object())
	}
	return scanner.Err()
}

// relationLine guesses line of route relation: "ref" first, then "name", then "colour"
func relationLine(tags osm.Tags) (Line, bool) {
	if line, ok := ParseLine(tags.Find("ref")); ok {
		return line, true
	}
	if lines := ParseLineList(tags.Find("name")); len(lines) > 0 {
		return lines[0], true
	}
	// e.g. "CTA Red Line: Howard => 95th/Dan Ryan"
	name := strings.ToLower(tags.Find("name"))
	for _, line := range LineOrder {
		if strings.Contains(name, strings.ToLower(string(line))+" line") {
			return line, true
		}
	}
	colour := tags.Find("colour")
	if line, ok := ParseLine(colour); ok {
		return line, true
	}
	for _, line := range LineOrder {
		if strings.EqualFold(line.Color(), colour) {
			return line, true
		}
	}
	return "", false
}
