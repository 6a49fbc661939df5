package ctatracks

import (
	"github.com/paulmach/orb"
)

// Stitch merges contiguous exploded segments which share line, offset, loop flag and corridor.
//
// Segments are partitioned into groups by those attributes (groups keep order of first appearance).
// Inside a group segments are chained through shared endpoints and every chain becomes
// a single polyline. At a junction where more than one unvisited segment could extend a chain
// the segment which comes first in the input wins.
// Sum of SegmentCount over output of a group always equals size of the group.
func Stitch(segments []ExplodedSegment) []StitchedSegment {
	return stitch(segments, nil)
}

func stitch(segments []ExplodedSegment, diag *Diagnostics) []StitchedSegment {
	stitched := make([]StitchedSegment, 0, len(segments))
	if len(segments) == 0 {
		return stitched
	}

	keys := []groupKey{}
	groups := make(map[groupKey][]ExplodedSegment)
	for i := range segments {
		key := segments[i].groupKey()
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], segments[i])
	}

	for _, key := range keys {
		group := groups[key]
		if len(group) == 1 {
			stitched = append(stitched, group[0].single())
			continue
		}
		// Segments without two ends can't be chained: pass them as is
		valid := make([]ExplodedSegment, 0, len(group))
		for _, seg := range group {
			if !validGeom(seg.Geom) {
				stitched = append(stitched, seg.single())
				continue
			}
			valid = append(valid, seg)
		}
		for _, path := range buildPaths(valid) {
			if len(path) == 1 {
				stitched = append(stitched, valid[path[0]].single())
				continue
			}
			stitched = append(stitched, mergeChain(valid, path, key, diag)...)
		}
	}
	return stitched
}

// segmentEnd references one end of a segment
type segmentEnd struct {
	idx     int
	isStart bool
}

// buildPaths splits segments into chains connected through shared quantized endpoints.
// Every segment belongs to exactly one chain. Chains are returned in order of their seeds.
func buildPaths(segments []ExplodedSegment) [][]int {
	n := len(segments)
	connections := make(map[endpointKey][]segmentEnd, 2*n)
	for i := range segments {
		startKey := quantize(firstPoint(segments[i].Geom))
		endKey := quantize(lastPoint(segments[i].Geom))
		connections[startKey] = append(connections[startKey], segmentEnd{idx: i, isStart: true})
		connections[endKey] = append(connections[endKey], segmentEnd{idx: i, isStart: false})
	}

	// freeEnd returns the end of segment which is left open once it was attached by attached end
	freeEnd := func(attached segmentEnd) endpointKey {
		if attached.isStart {
			return quantize(lastPoint(segments[attached.idx].Geom))
		}
		return quantize(firstPoint(segments[attached.idx].Geom))
	}

	visited := make([]bool, n)
	nextUnvisited := func(key endpointKey) (segmentEnd, bool) {
		for _, conn := range connections[key] {
			if !visited[conn.idx] {
				return conn, true
			}
		}
		return segmentEnd{}, false
	}

	paths := [][]int{}
	for seed := 0; seed < n; seed++ {
		if visited[seed] {
			continue
		}
		visited[seed] = true
		path := []int{seed}
		head := quantize(firstPoint(segments[seed].Geom))
		tail := quantize(lastPoint(segments[seed].Geom))
		for {
			if next, ok := nextUnvisited(tail); ok {
				visited[next.idx] = true
				path = append(path, next.idx)
				tail = freeEnd(next)
				continue
			}
			if next, ok := nextUnvisited(head); ok {
				visited[next.idx] = true
				path = append([]int{next.idx}, path...)
				head = freeEnd(next)
				continue
			}
			break
		}
		paths = append(paths, path)
	}
	return paths
}

// connectionType tells which ends of two segments touch: first word is about the segment
// owning the adjacency entry, second one is about its neighbour
type connectionType int

const (
	startStart connectionType = iota
	startEnd
	endStart
	endEnd
)

func (conn connectionType) fromStart() bool {
	return conn == startStart || conn == startEnd
}

type adjacentSegment struct {
	idx  int
	conn connectionType
}

type orientedSegment struct {
	idx      int
	reversed bool
}

// mergeChain glues segments of a chain into one polyline.
// Segments which can't be reached by walking the chain are returned separately, unmerged.
func mergeChain(segments []ExplodedSegment, chain []int, key groupKey, diag *Diagnostics) []StitchedSegment {
	adjacency := chainAdjacency(segments, chain)

	// Start from a terminus (exactly one connection) when there is one
	origin := chain[0]
	for _, idx := range chain {
		if len(adjacency[idx]) == 1 {
			origin = idx
			break
		}
	}
	// Orient origin so that its connections are at its tail
	hasStartLink, hasEndLink := false, false
	for _, adj := range adjacency[origin] {
		if adj.conn.fromStart() {
			hasStartLink = true
		} else {
			hasEndLink = true
		}
	}

	ordered := []orientedSegment{{idx: origin, reversed: hasStartLink && !hasEndLink}}
	used := map[int]bool{origin: true}
	for len(ordered) < len(chain) {
		last := ordered[len(ordered)-1]
		found := false
		for _, adj := range adjacency[last.idx] {
			if used[adj.idx] {
				continue
			}
			nextReversed := false
			if last.reversed {
				// Start of reversed segment is its active end
				switch adj.conn {
				case startStart:
					nextReversed = false
				case startEnd:
					nextReversed = true
				default:
					continue
				}
			} else {
				switch adj.conn {
				case endStart:
					nextReversed = false
				case endEnd:
					nextReversed = true
				default:
					continue
				}
			}
			ordered = append(ordered, orientedSegment{idx: adj.idx, reversed: nextReversed})
			used[adj.idx] = true
			found = true
			break
		}
		if !found {
			diag.unmerged(key, len(ordered), len(chain))
			break
		}
	}

	result := make([]StitchedSegment, 0, 1+len(chain)-len(ordered))
	if len(ordered) == 1 {
		result = append(result, segments[origin].single())
	} else {
		merged := StitchedSegment{
			ExplodedSegment: segments[origin],
			SegmentCount:    len(ordered),
		}
		merged.Geom = mergeCoordinates(segments, ordered)
		result = append(result, merged)
	}
	for _, idx := range chain {
		if !used[idx] {
			result = append(result, segments[idx].single())
		}
	}
	return result
}

// chainAdjacency finds which segments of the chain touch each other and how.
// Only the first matching relation is recorded for a pair.
func chainAdjacency(segments []ExplodedSegment, chain []int) map[int][]adjacentSegment {
	adjacency := make(map[int][]adjacentSegment, len(chain))
	link := func(from, to int, conn connectionType) {
		adjacency[from] = append(adjacency[from], adjacentSegment{idx: to, conn: conn})
	}
	for i, idx1 := range chain {
		start1 := firstPoint(segments[idx1].Geom)
		end1 := lastPoint(segments[idx1].Geom)
		for _, idx2 := range chain[i+1:] {
			start2 := firstPoint(segments[idx2].Geom)
			end2 := lastPoint(segments[idx2].Geom)
			switch {
			case pointsEqual(end1, start2):
				link(idx1, idx2, endStart)
				link(idx2, idx1, startEnd)
			case pointsEqual(end1, end2):
				link(idx1, idx2, endEnd)
				link(idx2, idx1, endEnd)
			case pointsEqual(start1, start2):
				link(idx1, idx2, startStart)
				link(idx2, idx1, startStart)
			case pointsEqual(start1, end2):
				link(idx1, idx2, startEnd)
				link(idx2, idx1, endStart)
			}
		}
	}
	return adjacency
}

// mergeCoordinates concatenates oriented segments skipping the junction point repeated by each next segment
func mergeCoordinates(segments []ExplodedSegment, ordered []orientedSegment) orb.LineString {
	total := 0
	for _, seg := range ordered {
		total += len(segments[seg.idx].Geom)
	}
	merged := make(orb.LineString, 0, total)
	for i, seg := range ordered {
		coords := segments[seg.idx].Geom
		if seg.reversed {
			coords = reverseLine(coords)
		}
		if i == 0 {
			merged = append(merged, coords...)
			continue
		}
		merged = append(merged, coords[1:]...)
	}
	return merged
}
