package board

import (
	"context"
	"fmt"
	"math"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/drc/check"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/route"
)

// Adapter exposes a Board through the engine interfaces: it yields
// tracks as segments, materializes created lines and arcs back into
// the board, and feeds the clearance checker flattened centerlines.
type Adapter struct {
	Board *Board

	// Selected limits ScopeSelected passes. Nil means no selection.
	Selected map[route.PrimID]bool
}

// NewAdapter wraps a parsed board.
func NewAdapter(b *Board) *Adapter {
	return &Adapter{Board: b}
}

func netName(n *Net) string {
	if n == nil {
		return ""
	}
	return n.Name
}

// Segments implements route.SegmentProvider. Arcs are not offered for
// re-smoothing; only straight tracks feed path extraction.
func (a *Adapter) Segments(ctx context.Context, scope route.Scope) ([]route.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []route.Segment
	for _, t := range a.Board.Tracks {
		if scope == route.ScopeSelected && !a.Selected[t.ID] {
			continue
		}
		out = append(out, route.Segment{
			ID:    t.ID,
			Start: t.Start,
			End:   t.End,
			Width: t.Width,
			Net:   netName(t.Net),
			Layer: t.Layer,
		})
	}
	return out, nil
}

// ViaTerminators returns the quantized position of every via. Chains
// must end there: smoothing a corner that sits on a via would pull the
// copper off the barrel and break the inter-layer connection.
func (a *Adapter) ViaTerminators() route.Terminators {
	if len(a.Board.Vias) == 0 {
		return nil
	}
	stop := make(route.Terminators, len(a.Board.Vias))
	for _, v := range a.Board.Vias {
		stop[geom.Keyed(v.Position)] = true
	}
	return stop
}

// CreateLine implements route.PrimitiveSink.
func (a *Adapter) CreateLine(ctx context.Context, net, layer string, start, end geom.Point, width float64) (route.PrimID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t := Track{
		ID:    a.Board.newID("seg"),
		Start: start,
		End:   end,
		Width: width,
		Layer: layer,
		Net:   a.Board.GetNet(net),
	}
	a.Board.Tracks = append(a.Board.Tracks, t)
	return t.ID, nil
}

// CreateArc implements route.PrimitiveSink. The signed sweep is
// converted to KiCad's three-point form.
func (a *Adapter) CreateArc(ctx context.Context, net, layer string, start, end geom.Point, sweepDeg, width float64) (route.PrimID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	arc := Arc{
		ID:    a.Board.newID("arc"),
		Start: start,
		Mid:   geom.ArcMidpoint(start, end, sweepDeg),
		End:   end,
		Width: width,
		Layer: layer,
		Net:   a.Board.GetNet(net),
	}
	a.Board.Arcs = append(a.Board.Arcs, arc)
	return arc.ID, nil
}

// Delete implements route.PrimitiveSink. Unknown ids are an error, as
// a host editor would report them.
func (a *Adapter) Delete(ctx context.Context, ids []route.PrimID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	want := make(map[route.PrimID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	tracks := a.Board.Tracks[:0]
	for _, t := range a.Board.Tracks {
		if want[t.ID] {
			delete(want, t.ID)
			continue
		}
		tracks = append(tracks, t)
	}
	a.Board.Tracks = tracks

	arcs := a.Board.Arcs[:0]
	for _, arc := range a.Board.Arcs {
		if want[arc.ID] {
			delete(want, arc.ID)
			continue
		}
		arcs = append(arcs, arc)
	}
	a.Board.Arcs = arcs

	if len(want) > 0 {
		for id := range want {
			return fmt.Errorf("delete: no primitive with id %s", id)
		}
	}
	return nil
}

// Primitives implements check.Source. Arcs are flattened so the
// clearance checker only ever sees polylines.
func (a *Adapter) Primitives(ctx context.Context) ([]check.Primitive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]check.Primitive, 0, len(a.Board.Tracks)+len(a.Board.Arcs))
	for _, t := range a.Board.Tracks {
		out = append(out, check.Primitive{
			ID:     t.ID,
			Net:    netName(t.Net),
			Layer:  t.Layer,
			Width:  t.Width,
			Points: []geom.Point{t.Start, t.End},
		})
	}
	for _, arc := range a.Board.Arcs {
		out = append(out, check.Primitive{
			ID:     arc.ID,
			Net:    netName(arc.Net),
			Layer:  arc.Layer,
			Width:  arc.Width,
			Points: flattenArc(arc),
		})
	}
	return out, nil
}

func flattenArc(a Arc) []geom.Point {
	sweep, ok := geom.ArcSweepFromMid(a.Start, a.Mid, a.End)
	if !ok {
		return []geom.Point{a.Start, a.End}
	}
	steps := int(math.Ceil(math.Abs(sweep) / 5))
	if steps < 8 {
		steps = 8
	}
	return geom.FlattenArc(a.Start, a.End, sweep, steps)
}
