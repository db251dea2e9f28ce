package route

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/geom"
)

func seg(id string, x1, y1, x2, y2 float64) Segment {
	return Segment{
		ID:    PrimID(id),
		Start: geom.Pt(x1, y1),
		End:   geom.Pt(x2, y2),
		Width: 0.25,
		Net:   "GND",
		Layer: "F.Cu",
	}
}

func TestGroupSegmentsDropsZeroLength(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	groups := GroupSegments([]Segment{
		seg("a", 0, 0, 10, 0),
		seg("b", 5, 5, 5, 5),
	})
	g := groups[GroupKey{Net: "GND", Layer: "F.Cu"}]
	if len(g) != 1 || g[0].ID != "a" {
		t.Errorf("expected only the non-degenerate segment, got %v", g)
	}
}

func TestGroupSegmentsSplitsNetAndLayer(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	a := seg("a", 0, 0, 10, 0)
	b := seg("b", 0, 0, 10, 0)
	b.Layer = "B.Cu"
	c := seg("c", 0, 0, 10, 0)
	c.Net = "VCC"
	groups := GroupSegments([]Segment{a, b, c})
	if len(groups) != 3 {
		t.Errorf("expected 3 groups, got %d", len(groups))
	}
}

func TestExtractSimpleChain(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	paths := ExtractPaths([]Segment{
		seg("a", 0, 0, 10, 0),
		seg("b", 10, 0, 10, 10),
		seg("c", 10, 10, 20, 10),
	})
	if len(paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(paths))
	}
	p := paths[0]
	if len(p.Points) != 4 || p.Corners() != 2 {
		t.Fatalf("expected 4 points / 2 corners, got %d points", len(p.Points))
	}
	// Segments must be oriented along the chain.
	for i, s := range p.Segments {
		if s.Start != p.Points[i] || s.End != p.Points[i+1] {
			t.Errorf("segment %d not oriented along the chain", i)
		}
	}
}

func TestExtractIgnoresIsolatedSegment(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	paths := ExtractPaths([]Segment{seg("a", 0, 0, 10, 0)})
	if len(paths) != 0 {
		t.Errorf("an isolated segment has no corner to smooth, got %d paths", len(paths))
	}
}

func TestExtractStopsAtBranchPoint(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	// Three segments meet at (10,0): a tee. No chain may pass through,
	// and each branch alone is too short to smooth.
	paths := ExtractPaths([]Segment{
		seg("a", 0, 0, 10, 0),
		seg("b", 10, 0, 20, 0),
		seg("c", 10, 0, 10, 10),
	})
	if len(paths) != 0 {
		t.Errorf("expected no chains through a tee, got %d", len(paths))
	}
}

func TestExtractChainEndsAtBranch(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	// A two-corner chain leading into a tee: the chain must stop at the
	// tee point, not swallow the branches.
	paths := ExtractPaths([]Segment{
		seg("a", -10, 10, 0, 0),
		seg("b", 0, 0, 10, 0),
		seg("c", 10, 0, 20, 0),
		seg("d", 20, 0, 30, 0),  // tee at (20,0)
		seg("e", 20, 0, 20, 10), // branch
	})
	var longest Path
	for _, p := range paths {
		if len(p.Points) > len(longest.Points) {
			longest = p
		}
	}
	if len(longest.Points) != 4 {
		t.Fatalf("expected the chain to stop at the tee with 4 points, got %d", len(longest.Points))
	}
	last := longest.Points[len(longest.Points)-1]
	first := longest.Points[0]
	at := geom.Keyed(geom.Pt(20, 0))
	if geom.Keyed(last) != at && geom.Keyed(first) != at {
		t.Errorf("expected the chain to end at the tee point")
	}
}

func TestExtractStopsAtTerminator(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	segs := []Segment{
		seg("a", 0, 0, 10, 0),
		seg("b", 10, 0, 10, 10),
		seg("c", 10, 10, 20, 10),
		seg("d", 20, 10, 20, 20),
		seg("e", 20, 20, 30, 20),
	}
	via := geom.Keyed(geom.Pt(10, 10))

	// Without a terminator the five segments form one chain.
	if got := ExtractPaths(segs); len(got) != 1 || len(got[0].Points) != 6 {
		t.Fatalf("expected one 6-point chain without terminators, got %v", got)
	}

	// A via at (10,10) splits the walk: the corner there must stay a
	// chain endpoint, never an interior point.
	paths := ExtractPathsStopping(segs, Terminators{via: true})
	if len(paths) != 2 {
		t.Fatalf("expected the chain split in two at the via, got %d paths", len(paths))
	}
	for _, p := range paths {
		ends := 0
		if geom.Keyed(p.Points[0]) == via {
			ends++
		}
		if geom.Keyed(p.Points[len(p.Points)-1]) == via {
			ends++
		}
		if ends != 1 {
			t.Errorf("expected each chain to end at the via exactly once")
		}
		for _, pt := range p.Points[1 : len(p.Points)-1] {
			if geom.Keyed(pt) == via {
				t.Errorf("via position appeared as an interior corner")
			}
		}
	}
}

func TestExtractClosedLoop(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	paths := ExtractPaths([]Segment{
		seg("a", 0, 0, 10, 0),
		seg("b", 10, 0, 10, 10),
		seg("c", 10, 10, 0, 10),
		seg("d", 0, 10, 0, 0),
	})
	if len(paths) != 1 {
		t.Fatalf("expected 1 loop path, got %d", len(paths))
	}
	p := paths[0]
	if !p.Closed() {
		t.Errorf("expected the chain to report itself closed")
	}
	if len(p.Segments) != 4 || len(p.Points) != 5 {
		t.Errorf("expected 4 segments / 5 points, got %d / %d", len(p.Segments), len(p.Points))
	}
}

func TestExtractOrderIndependent(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	segs := []Segment{
		seg("a", 0, 0, 10, 0),
		seg("b", 10, 0, 10, 10),
		seg("c", 10, 10, 20, 10),
		seg("d", 20, 10, 30, 10),
	}
	want := ExtractPaths(segs)

	// Reverse the input and flip every segment: the recovered chain
	// must be identical.
	flipped := make([]Segment, 0, len(segs))
	for i := len(segs) - 1; i >= 0; i-- {
		s := segs[i]
		s.Start, s.End = s.End, s.Start
		flipped = append(flipped, s)
	}
	got := ExtractPaths(flipped)

	if len(want) != 1 || len(got) != 1 {
		t.Fatalf("expected exactly one chain from both orderings")
	}
	a, b := want[0].Points, got[0].Points
	if len(a) != len(b) {
		t.Fatalf("chains differ in length: %d vs %d", len(a), len(b))
	}
	// The same chain may come out walked in the opposite direction.
	if geom.Keyed(a[0]) != geom.Keyed(b[0]) {
		for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
	}
	for i := range a {
		if geom.Keyed(a[i]) != geom.Keyed(b[i]) {
			t.Fatalf("point %d differs between orderings", i)
		}
	}
}
