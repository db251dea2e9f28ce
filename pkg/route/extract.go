package route

import (
	"sort"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/geom"
)

// GroupKey identifies one (net, layer) family of segments. Chains are
// never assembled across nets or layers.
type GroupKey struct {
	Net   string
	Layer string
}

// GroupSegments buckets a raw segment set by net and layer. Zero
// length segments are dropped here so the adjacency index never sees a
// self-loop.
func GroupSegments(segs []Segment) map[GroupKey][]Segment {
	groups := make(map[GroupKey][]Segment)
	for _, s := range segs {
		if geom.Keyed(s.Start) == geom.Keyed(s.End) {
			tracer().Debugf("dropping zero-length segment %s at %s", s.ID, s.Start)
			continue
		}
		k := GroupKey{Net: s.Net, Layer: s.Layer}
		groups[k] = append(groups[k], s)
	}
	return groups
}

// adjacency maps a quantized endpoint to the indices of the segments
// incident on it.
type adjacency map[geom.Key][]int

func buildAdjacency(segs []Segment) adjacency {
	adj := make(adjacency, len(segs)*2)
	for i, s := range segs {
		adj[geom.Keyed(s.Start)] = append(adj[geom.Keyed(s.Start)], i)
		adj[geom.Keyed(s.End)] = append(adj[geom.Keyed(s.End)], i)
	}
	return adj
}

// Terminators marks coordinates a chain must never pass through even
// when only two segments meet there: via barrels, pad anchors. A
// corner cut at such a point would pull the copper off whatever sits
// there.
type Terminators map[geom.Key]bool

// ExtractPaths recovers every maximal simple chain of 3 or more points
// from one net+layer family of segments. Extension stops at tee and
// cross points (endpoint degree above 2) and at dead ends; an isolated
// segment yields no path because there is no interior corner to
// smooth. The result is independent of the input ordering.
func ExtractPaths(segs []Segment) []Path {
	return ExtractPathsStopping(segs, nil)
}

// ExtractPathsStopping is ExtractPaths with a set of hard chain
// terminators. Chains end at a terminator coordinate instead of
// treating it as an interior corner.
func ExtractPathsStopping(segs []Segment, stop Terminators) []Path {
	// Work on a filtered copy so indices stay stable.
	var clean []Segment
	for _, s := range segs {
		if geom.Keyed(s.Start) != geom.Keyed(s.End) {
			clean = append(clean, s)
		}
	}
	if len(clean) == 0 {
		return nil
	}

	// A canonical ordering makes the walk deterministic regardless of
	// how the caller ordered the input.
	sort.Slice(clean, func(i, j int) bool {
		a, b := canonKey(clean[i]), canonKey(clean[j])
		if a != b {
			return less(a, b)
		}
		return clean[i].ID < clean[j].ID
	})

	adj := buildAdjacency(clean)
	visited := make([]bool, len(clean))

	var paths []Path
	for i := range clean {
		if visited[i] {
			continue
		}
		p := growChain(clean, adj, stop, visited, i)
		if len(p.Points) >= 3 {
			paths = append(paths, p)
		}
	}
	tracer().Infof("extracted %d chains from %d segments", len(paths), len(clean))
	return paths
}

// growChain seeds a chain with segment i and extends it at both ends.
func growChain(segs []Segment, adj adjacency, stop Terminators, visited []bool, i int) Path {
	seed := segs[i]
	visited[i] = true

	points := []geom.Point{seed.Start, seed.End}
	chain := []Segment{seed}

	// Forward from the seed's end.
	points, chain = extend(segs, adj, stop, visited, points, chain, false)
	// Backward from the seed's start.
	points, chain = extend(segs, adj, stop, visited, points, chain, true)

	return Path{
		Net:      seed.Net,
		Layer:    seed.Layer,
		Points:   points,
		Segments: chain,
	}
}

// extend grows one end of the chain until it hits a branch point, a
// terminator, a dead end, or its own starting coordinate (a closed
// loop).
func extend(segs []Segment, adj adjacency, stop Terminators, visited []bool, points []geom.Point, chain []Segment, backward bool) ([]geom.Point, []Segment) {
	for {
		var tip geom.Point
		if backward {
			tip = points[0]
		} else {
			tip = points[len(points)-1]
		}
		key := geom.Keyed(tip)

		incident := adj[key]
		if len(incident) > 2 || stop[key] {
			// Tee, cross, or terminator: the chain must not pass
			// through.
			return points, chain
		}

		next := -1
		for _, j := range incident {
			if !visited[j] {
				next = j
				break
			}
		}
		if next < 0 {
			return points, chain
		}

		visited[next] = true
		far := segs[next].Other(key)

		// Orient the segment along the chain before storing it.
		oriented := segs[next]
		if backward {
			oriented.Start, oriented.End = far, tip
			points = append([]geom.Point{far}, points...)
			chain = append([]Segment{oriented}, chain...)
		} else {
			oriented.Start, oriented.End = tip, far
			points = append(points, far)
			chain = append(chain, oriented)
		}

		// Closed loop: arriving back at the opposite tip terminates
		// the walk instead of cycling forever.
		var opposite geom.Point
		if backward {
			opposite = points[len(points)-1]
		} else {
			opposite = points[0]
		}
		if geom.Keyed(far) == geom.Keyed(opposite) {
			return points, chain
		}
	}
}

func canonKey(s Segment) geom.Key {
	a, b := geom.Keyed(s.Start), geom.Keyed(s.End)
	if less(b, a) {
		return b
	}
	return a
}

func less(a, b geom.Key) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}
