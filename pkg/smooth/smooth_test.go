package smooth

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/route"
)

// chain builds a test path from corner points, all segments sharing one
// width.
func chain(width float64, pts ...geom.Point) route.Path {
	p := route.Path{Net: "GND", Layer: "F.Cu", Points: pts}
	for i := 0; i+1 < len(pts); i++ {
		p.Segments = append(p.Segments, route.Segment{
			Start: pts[i],
			End:   pts[i+1],
			Width: width,
			Net:   "GND",
			Layer: "F.Cu",
		})
	}
	return p
}

func opts() route.Options {
	o := route.DefaultOptions()
	o.EnableDRC = false
	return o
}

func arcs(r Result) []route.PathOp {
	var out []route.PathOp
	for _, op := range r.Ops {
		if op.Kind == route.OpArc {
			out = append(out, op)
		}
	}
	return out
}

func TestRightAngleCorner(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	// Width 10 and ratio 3 give a nominal radius of 15. With 100 mm
	// legs nothing clamps: one arc, tangent points 15 mm from the apex.
	p := chain(10, geom.Pt(0, 0), geom.Pt(100, 0), geom.Pt(100, 100))
	res := Path(p, opts(), nil)

	as := arcs(res)
	if len(as) != 1 {
		t.Fatalf("expected exactly 1 arc, got %d", len(as))
	}
	a := as[0]
	assert.InDelta(t, 85.0, a.Start.X, 1e-9)
	assert.InDelta(t, 0.0, a.Start.Y, 1e-9)
	assert.InDelta(t, 100.0, a.End.X, 1e-9)
	assert.InDelta(t, 15.0, a.End.Y, 1e-9)
	assert.InDelta(t, 90.0, a.Sweep, 1e-9)
	assert.Equal(t, 1, a.Corner)
	if res.Clamped != 0 || res.Straightened != 0 {
		t.Errorf("expected clean fit, got %d clamped / %d sharp", res.Clamped, res.Straightened)
	}

	// The three ops connect head to tail from chain start to chain end.
	assert.Equal(t, geom.Pt(0, 0), res.Ops[0].Start)
	last := res.Ops[len(res.Ops)-1]
	assert.Equal(t, geom.Pt(100, 100), last.End)
	for i := 1; i < len(res.Ops); i++ {
		assert.Equal(t, res.Ops[i-1].End, res.Ops[i].Start, "op %d not contiguous", i)
	}
}

func TestCornerSweepSign(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	// Mirrored corner turns the other way: negative sweep.
	p := chain(10, geom.Pt(0, 0), geom.Pt(100, 0), geom.Pt(100, -100))
	res := Path(p, opts(), nil)
	as := arcs(res)
	if len(as) != 1 {
		t.Fatalf("expected 1 arc, got %d", len(as))
	}
	assert.InDelta(t, -90.0, as[0].Sweep, 1e-9)
}

func TestShortLegsRevertToSharp(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	// Radius 1.5 wants a 1.5 mm tangent but 45% of a 2 mm leg is only
	// 0.9 mm: clamped, and without force the corner stays sharp.
	p := chain(1, geom.Pt(0, 0), geom.Pt(2, 0), geom.Pt(2, 2))
	res := Path(p, opts(), nil)
	if len(arcs(res)) != 0 {
		t.Fatalf("expected no arc on clamped corner")
	}
	if res.Straightened != 1 {
		t.Errorf("expected 1 sharp corner, got %d", res.Straightened)
	}
	// Sharp joint reproduces the original polyline.
	assert.Equal(t, geom.Pt(2, 0), res.Ops[0].End)
}

func TestForceArcAcceptsClampedCorner(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	o := opts()
	o.ForceArc = true
	p := chain(1, geom.Pt(0, 0), geom.Pt(2, 0), geom.Pt(2, 2))
	res := Path(p, o, nil)
	as := arcs(res)
	if len(as) != 1 {
		t.Fatalf("expected forced arc, got %d arcs", len(as))
	}
	if res.Clamped != 1 {
		t.Errorf("expected the forced arc to count as clamped")
	}
	// Tangent length is 45% of the 2 mm leg.
	assert.InDelta(t, 2.0-0.9, as[0].Start.X, 1e-9)
}

func TestWidthFloorBeatsForceArc(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	// Ratio 0.5 on a 10 mm trace asks for a 2.5 mm radius, narrower
	// than the 5 mm half-width. Not even ForceArc may accept that.
	o := opts()
	o.CornerRadiusRatio = 0.5
	o.ForceArc = true
	p := chain(10, geom.Pt(0, 0), geom.Pt(100, 0), geom.Pt(100, 100))
	res := Path(p, o, nil)
	if len(arcs(res)) != 0 {
		t.Fatalf("expected the width floor to reject the arc")
	}
	if res.Straightened != 1 {
		t.Errorf("expected 1 sharp corner, got %d", res.Straightened)
	}
}

func TestCollinearPassThrough(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	p := chain(1, geom.Pt(0, 0), geom.Pt(50, 0), geom.Pt(100, 0))
	res := Path(p, opts(), nil)
	if len(arcs(res)) != 0 {
		t.Errorf("expected no arc on a straight pass-through")
	}
}

func TestForcedStraightState(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	states := map[int]*route.CornerState{
		1: {Scale: 1.0, ForcedStraight: true},
	}
	p := chain(10, geom.Pt(0, 0), geom.Pt(100, 0), geom.Pt(100, 100))
	res := Path(p, opts(), states)
	if len(arcs(res)) != 0 {
		t.Fatalf("a forced-straight corner must never get an arc")
	}
	if res.Straightened != 1 {
		t.Errorf("expected 1 sharp corner, got %d", res.Straightened)
	}
}

func TestCornerScaleShrinksRadius(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	states := map[int]*route.CornerState{
		1: {Scale: 0.5},
	}
	p := chain(10, geom.Pt(0, 0), geom.Pt(100, 0), geom.Pt(100, 100))
	res := Path(p, opts(), states)
	as := arcs(res)
	if len(as) != 1 {
		t.Fatalf("expected 1 arc at half radius, got %d", len(as))
	}
	// Half the nominal 15 mm radius moves the tangent to 7.5 mm.
	assert.InDelta(t, 92.5, as[0].Start.X, 1e-9)
	assert.InDelta(t, 7.5, as[0].End.Y, 1e-9)
}

func TestFixedRadiusOverridesRatio(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	o := opts()
	o.FixedRadius = 5
	p := chain(2, geom.Pt(0, 0), geom.Pt(100, 0), geom.Pt(100, 100))
	res := Path(p, o, nil)
	as := arcs(res)
	if len(as) != 1 {
		t.Fatalf("expected 1 arc, got %d", len(as))
	}
	assert.InDelta(t, 95.0, as[0].Start.X, 1e-9)
}

func TestMergeChamferedCorner(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	// A 90° bend routed as two 45° corners with a short chamfer stub.
	// The merge replaces both with one arc fitted at the projected
	// apex (10, 0).
	p := chain(1,
		geom.Pt(0, 0),
		geom.Pt(9.7, 0),
		geom.Pt(10, 0.3),
		geom.Pt(10, 10),
	)
	res := Path(p, opts(), nil)
	as := arcs(res)
	if len(as) != 1 {
		t.Fatalf("expected one merged arc, got %d", len(as))
	}
	a := as[0]
	assert.InDelta(t, 8.5, a.Start.X, 1e-9)
	assert.InDelta(t, 0.0, a.Start.Y, 1e-9)
	assert.InDelta(t, 10.0, a.End.X, 1e-9)
	assert.InDelta(t, 1.5, a.End.Y, 1e-9)
	assert.InDelta(t, 90.0, a.Sweep, 1e-9)
	if res.Straightened != 0 {
		t.Errorf("merged corners must not count as sharp")
	}
}

func TestMergeUTurnHalfCircle(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	// A 2 mm wide U-turn stub between antiparallel legs becomes one
	// half circle of radius 1.
	p := chain(1,
		geom.Pt(0, 0),
		geom.Pt(10, 0),
		geom.Pt(10, 2),
		geom.Pt(0, 2),
	)
	res := Path(p, opts(), nil)
	as := arcs(res)
	if len(as) != 1 {
		t.Fatalf("expected one half-circle arc, got %d", len(as))
	}
	a := as[0]
	assert.InDelta(t, 9.0, a.Start.X, 1e-9)
	assert.InDelta(t, 0.0, a.Start.Y, 1e-9)
	assert.InDelta(t, 9.0, a.End.X, 1e-9)
	assert.InDelta(t, 2.0, a.End.Y, 1e-9)
	assert.InDelta(t, 180.0, a.Sweep, 1e-9)
}

func TestSkewedUTurnStubDoesNotMerge(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	// The legs run antiparallel but the stub leans along them, so the
	// chord between the tangent points is no longer the circle's
	// diameter: a forced half circle would meet both legs with a kink.
	p := chain(1,
		geom.Pt(0, 0),
		geom.Pt(10, 0),
		geom.Pt(10.5, 2),
		geom.Pt(0, 2),
	)
	res := Path(p, opts(), nil)
	for _, a := range arcs(res) {
		if a.Sweep > 170 || a.Sweep < -170 {
			t.Errorf("a skewed stub must not produce a merged half circle")
		}
	}
}

func TestMergeDisabledKeepsTwoCorners(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	o := opts()
	o.MergeUTurns = false
	o.ForceArc = true
	p := chain(1,
		geom.Pt(0, 0),
		geom.Pt(10, 0),
		geom.Pt(10, 2),
		geom.Pt(0, 2),
	)
	res := Path(p, o, nil)
	// Without merging each corner is fitted (or clamped) on its own.
	if len(arcs(res)) < 2 && res.Straightened == 0 {
		t.Errorf("expected two independently handled corners")
	}
}

func TestOppositeTurnsDoNotMerge(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	// An S-bend: the two corners turn opposite ways and must be fitted
	// independently even though the connecting leg is short.
	p := chain(1,
		geom.Pt(0, 0),
		geom.Pt(10, 0),
		geom.Pt(10, 2),
		geom.Pt(20, 2),
	)
	res := Path(p, opts(), nil)
	for _, a := range arcs(res) {
		if a.Sweep > 170 || a.Sweep < -170 {
			t.Errorf("an S-bend must not produce a merged half circle")
		}
	}
}
