package drc

import (
	"context"
	"errors"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/route"
)

// chain builds a test path from corner points, one width throughout.
func chain(net string, width float64, pts ...geom.Point) route.Path {
	p := route.Path{Net: net, Layer: "F.Cu", Points: pts}
	for i := 0; i+1 < len(pts); i++ {
		p.Segments = append(p.Segments, route.Segment{
			ID:    route.PrimID(net + string(rune('a'+i))),
			Start: pts[i],
			End:   pts[i+1],
			Width: width,
			Net:   net,
			Layer: "F.Cu",
		})
	}
	return p
}

func rightAngle(net string, width float64) route.Path {
	return chain(net, width, geom.Pt(0, 0), geom.Pt(100, 0), geom.Pt(100, 100))
}

func opts() route.Options {
	return route.DefaultOptions()
}

// arcFlagger implicates every arc currently on the sink, for the first
// `limit` checks. A later check sees a clean board.
type arcFlagger struct {
	sink  *route.MemSink
	limit int
	calls int
}

func (o *arcFlagger) Check(ctx context.Context) (map[route.PrimID]struct{}, error) {
	o.calls++
	out := make(map[route.PrimID]struct{})
	if o.calls > o.limit {
		return out, nil
	}
	for id := range o.sink.Arcs {
		out[id] = struct{}{}
	}
	return out, nil
}

func singleArc(t *testing.T, sink *route.MemSink) route.MemArc {
	t.Helper()
	if len(sink.Arcs) != 1 {
		t.Fatalf("expected exactly 1 arc on the board, got %d", len(sink.Arcs))
	}
	for _, a := range sink.Arcs {
		return a
	}
	return route.MemArc{}
}

func TestRunWithoutDRCEmitsAndStops(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	sink := route.NewMemSink()
	o := opts()
	o.EnableDRC = false

	oracle := &arcFlagger{sink: sink, limit: 99}
	sum, err := NewController(sink, oracle, o, nil).Run(context.Background(), []route.Path{rightAngle("GND", 10)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if oracle.calls != 0 {
		t.Errorf("oracle must not be consulted when the check is disabled")
	}
	assert.Equal(t, 1, sum.Arcs)
	assert.Equal(t, 0, sum.Cycles)
	if !sum.Clean {
		t.Errorf("a run without checking reports clean")
	}
	a := singleArc(t, sink)
	assert.InDelta(t, 85.0, a.Start.X, 1e-9)
}

func TestRunDeletesSourceSegments(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	ctx := context.Background()
	sink := route.NewMemSink()
	// The path's segments exist on the board before the run.
	id1, _ := sink.CreateLine(ctx, "GND", "F.Cu", geom.Pt(0, 0), geom.Pt(100, 0), 10)
	id2, _ := sink.CreateLine(ctx, "GND", "F.Cu", geom.Pt(100, 0), geom.Pt(100, 100), 10)
	p := rightAngle("GND", 10)
	p.Segments[0].ID = id1
	p.Segments[1].ID = id2

	o := opts()
	o.EnableDRC = false
	if _, err := NewController(sink, nil, o, nil).Run(ctx, []route.Path{p}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, ok := sink.Lines[id1]; ok {
		t.Errorf("source segment %s must be replaced by the smoothed chain", id1)
	}
	if _, ok := sink.Lines[id2]; ok {
		t.Errorf("source segment %s must be replaced by the smoothed chain", id2)
	}
	// Replaced by two lines and one arc.
	assert.Equal(t, 3, sink.Count())
}

func TestViolationHalvesRadiusOnce(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	sink := route.NewMemSink()
	oracle := &arcFlagger{sink: sink, limit: 1}

	sum, err := NewController(sink, oracle, opts(), nil).Run(context.Background(), []route.Path{rightAngle("GND", 10)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// First check flags the arc, second confirms the repair.
	assert.Equal(t, 2, sum.Cycles)
	if !sum.Clean {
		t.Errorf("expected a clean result after one repair")
	}
	assert.Equal(t, 1, sum.Arcs)
	assert.Equal(t, 0, sum.ForcedStraight)

	// The nominal 15 mm radius backed off to 7.5 mm.
	a := singleArc(t, sink)
	assert.InDelta(t, 92.5, a.Start.X, 1e-9)
	assert.InDelta(t, 7.5, a.End.Y, 1e-9)
}

func TestRetryExhaustionForcesStraight(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	sink := route.NewMemSink()
	oracle := &arcFlagger{sink: sink, limit: 99}
	o := opts()
	o.DRCRetryCount = 2
	// The fixed 8 mm radius stays above the half-width floor through
	// both halvings (8 -> 4 -> 2), so only the retry budget ends the
	// back-off.
	o.FixedRadius = 8

	sum, err := NewController(sink, oracle, o, nil).Run(context.Background(), []route.Path{rightAngle("GND", 1)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	assert.Equal(t, o.DRCRetryCount+1, sum.Cycles)
	assert.Equal(t, 1, sum.ForcedStraight)
	assert.Equal(t, 0, sum.Arcs)
	if sum.Clean {
		t.Errorf("an exhausted retry budget must not report clean")
	}
	if len(sink.Arcs) != 0 {
		t.Errorf("the forced-straight corner must leave no arc behind")
	}
	// The sharp polyline is back on the board.
	assert.Equal(t, 2, len(sink.Lines))
}

func TestWidthFloorEndsBackoffClean(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	sink := route.NewMemSink()
	oracle := &arcFlagger{sink: sink, limit: 99}

	// Nominal radius 1.5 for width 1. The first halving still clears
	// the half-width floor (0.75), the second does not (0.375), so the
	// corner reverts to a sharp joint mid-budget and the next check
	// finds nothing left to flag.
	sum, err := NewController(sink, oracle, opts(), nil).Run(context.Background(), []route.Path{rightAngle("GND", 1)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	assert.Equal(t, 3, sum.Cycles)
	assert.Equal(t, 0, sum.ForcedStraight)
	assert.Equal(t, 1, sum.Straightened)
	assert.Equal(t, 0, sum.Arcs)
	if !sum.Clean {
		t.Errorf("a corner reverted by the width floor leaves a clean board")
	}
}

func TestScaleFloorForcesStraight(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	sink := route.NewMemSink()
	oracle := &arcFlagger{sink: sink, limit: 99}
	o := opts()
	// A budget large enough that the 0.1 scale floor, not the retry
	// count, ends the back-off: 1 -> 0.5 -> 0.25 -> 0.125 -> sharp.
	// The fixed 8 mm radius stays above the half-width floor at every
	// scale on the way down.
	o.DRCRetryCount = 10
	o.FixedRadius = 8

	sum, err := NewController(sink, oracle, o, nil).Run(context.Background(), []route.Path{rightAngle("GND", 1)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	assert.Equal(t, 1, sum.ForcedStraight)
	assert.Equal(t, 5, sum.Cycles)
	if !sum.Clean {
		t.Errorf("the board is clean once the corner is sharp")
	}
}

func TestViolatingSharpLineIsAttributed(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	sink := route.NewMemSink()

	// Legs of 2 mm clamp the nominal 1.5 mm radius hard enough that the
	// corner stays sharp on the first emit; the joint line carries the
	// corner index.
	p := chain("GND", 1, geom.Pt(0, 0), geom.Pt(2, 0), geom.Pt(2, 2))
	oracle := &lineFlagger{sink: sink, end: geom.Pt(2, 0), limit: 1}

	sum, err := NewController(sink, oracle, opts(), nil).Run(context.Background(), []route.Path{p})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// A violation on the sharp joint line must back its corner off, not
	// read as unrelated: the halved radius clears the leg clamp and the
	// second check confirms the arc.
	assert.Equal(t, 2, sum.Cycles)
	assert.Equal(t, 1, sum.Arcs)
	assert.Equal(t, 0, sum.ForcedStraight)
	if !sum.Clean {
		t.Errorf("expected a clean result after the corner backed off")
	}
}

func TestOnlyAffectedPathReEmitted(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	sink := route.NewMemSink()
	counting := &countingSink{MemSink: sink, arcCreates: make(map[string]int)}

	// The oracle flags only GND arcs, once.
	oracle := &netFlagger{sink: sink, net: "GND", limit: 1}
	paths := []route.Path{rightAngle("GND", 10), rightAngle("VCC", 10)}

	sum, err := NewController(counting, oracle, opts(), nil).Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !sum.Clean {
		t.Errorf("expected a clean result")
	}
	assert.Equal(t, 2, counting.arcCreates["GND"], "flagged path re-emits")
	assert.Equal(t, 1, counting.arcCreates["VCC"], "untouched path emits once")
}

func TestOracleErrorFailsOpen(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	sink := route.NewMemSink()

	sum, err := NewController(sink, failingOracle{}, opts(), nil).Run(context.Background(), []route.Path{rightAngle("GND", 10)})
	if err != nil {
		t.Fatalf("a broken checker must not abort the run: %v", err)
	}
	assert.Equal(t, 1, sum.Cycles)
	if sum.Clean {
		t.Errorf("an unverified result must not claim to be clean")
	}
	// The smoothed geometry stays on the board.
	assert.Equal(t, 1, len(sink.Arcs))
}

func TestUnrelatedViolationsStopTheLoop(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	sink := route.NewMemSink()
	oracle := staticOracle{ids: []route.PrimID{"pre-existing-zone"}}

	sum, err := NewController(sink, oracle, opts(), nil).Run(context.Background(), []route.Path{rightAngle("GND", 10)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Violations the run did not cause are not the run's to fix.
	assert.Equal(t, 1, sum.Cycles)
	if sum.Clean {
		t.Errorf("pre-existing violations must surface as not clean")
	}
	a := singleArc(t, sink)
	assert.InDelta(t, 85.0, a.Start.X, 1e-9)
}

func TestHostCreateFailureIsCountedNotFatal(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	sink := route.NewMemSink()
	sink.FailCreate = func(net, layer string) error {
		return errors.New("board locked")
	}
	o := opts()
	o.EnableDRC = false

	sum, err := NewController(sink, nil, o, nil).Run(context.Background(), []route.Path{rightAngle("GND", 10)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	assert.Equal(t, 1, sum.HostFailures)
	// The remaining two primitives still land.
	assert.Equal(t, 2, sink.Count())
}

func TestWidthTableRecordsArcWidths(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()
	sink := route.NewMemSink()
	widths := make(route.WidthTable)
	o := opts()
	o.EnableDRC = false

	if _, err := NewController(sink, nil, o, widths).Run(context.Background(), []route.Path{rightAngle("GND", 10)}); err != nil {
		t.Fatalf("run: %v", err)
	}
	a := singleArc(t, sink)
	w, ok := widths[a.ID]
	if !ok {
		t.Fatalf("expected the arc width to be recorded")
	}
	assert.InDelta(t, 10.0, w, 1e-9)
}

// countingSink tallies arc creations per net on top of a MemSink.
type countingSink struct {
	*route.MemSink
	arcCreates map[string]int
}

func (s *countingSink) CreateArc(ctx context.Context, net, layer string, start, end geom.Point, sweepDeg, width float64) (route.PrimID, error) {
	s.arcCreates[net]++
	return s.MemSink.CreateArc(ctx, net, layer, start, end, sweepDeg, width)
}

// lineFlagger implicates every line ending at one point, for the first
// `limit` checks.
type lineFlagger struct {
	sink  *route.MemSink
	end   geom.Point
	limit int
	calls int
}

func (o *lineFlagger) Check(ctx context.Context) (map[route.PrimID]struct{}, error) {
	o.calls++
	out := make(map[route.PrimID]struct{})
	if o.calls > o.limit {
		return out, nil
	}
	for id, l := range o.sink.Lines {
		if geom.Keyed(l.End) == geom.Keyed(o.end) {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

// netFlagger implicates arcs of one net, for the first `limit` checks.
type netFlagger struct {
	sink  *route.MemSink
	net   string
	limit int
	calls int
}

func (o *netFlagger) Check(ctx context.Context) (map[route.PrimID]struct{}, error) {
	o.calls++
	out := make(map[route.PrimID]struct{})
	if o.calls > o.limit {
		return out, nil
	}
	for id, a := range o.sink.Arcs {
		if a.Net == o.net {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

type failingOracle struct{}

func (failingOracle) Check(ctx context.Context) (map[route.PrimID]struct{}, error) {
	return nil, errors.New("checker crashed")
}

type staticOracle struct{ ids []route.PrimID }

func (o staticOracle) Check(ctx context.Context) (map[route.PrimID]struct{}, error) {
	out := make(map[route.PrimID]struct{})
	for _, id := range o.ids {
		out[id] = struct{}{}
	}
	return out, nil
}
