// Package drc drives the emit/check/repair cycle that keeps generated
// arcs inside the board's design rules. The checker itself is opaque:
// the controller only learns which primitive ids are implicated and
// reacts by backing off the radius of the corners that produced them.
package drc

import (
	"context"

	"github.com/npillmayer/schuko/tracing"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/route"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/smooth"
)

// tracer writes to the trace channel with key 'otsm.drc'
func tracer() tracing.Trace {
	return tracing.Select("otsm.drc")
}

// minScale is the usability floor: a corner whose scale would drop
// below this reverts to a sharp joint instead of shrinking further.
const minScale = 0.1

// Oracle runs one design check and reports the implicated primitive
// ids as a flat set. Adapters must flatten whatever report structure
// the host produces before it reaches the controller.
type Oracle interface {
	Check(ctx context.Context) (map[route.PrimID]struct{}, error)
}

// Summary is the user-visible outcome of one smoothing run.
type Summary struct {
	Paths          int
	Arcs           int
	Clamped        int
	Straightened   int
	ForcedStraight int
	Cycles         int
	Clean          bool
	HostFailures   int
}

// Controller owns the corner states for one run and replays affected
// paths through the sink until the oracle stops complaining or the
// retry budget runs out.
type Controller struct {
	sink   route.PrimitiveSink
	oracle Oracle
	opts   route.Options
	widths route.WidthTable
}

// NewController wires a controller. widths may be nil when no later
// consumer needs true arc widths.
func NewController(sink route.PrimitiveSink, oracle Oracle, opts route.Options, widths route.WidthTable) *Controller {
	return &Controller{
		sink:   sink,
		oracle: oracle,
		opts:   opts,
		widths: widths,
	}
}

// pathRecord tracks one chain's emitted primitives across repair
// cycles.
type pathRecord struct {
	path   route.Path
	states map[int]*route.CornerState
	prims  []route.PrimID
	corner map[route.PrimID]int
	last   smooth.Result
}

// Run smooths every path, then iterates the check/repair loop. On
// each violating cycle every implicated corner's radius scale is
// halved; on the final allowed cycle, or when a scale would fall below
// the usability floor, the corner is forced straight instead. Only
// paths containing an affected corner are re-emitted.
func (c *Controller) Run(ctx context.Context, paths []route.Path) (Summary, error) {
	var sum Summary
	sum.Paths = len(paths)

	records := make([]*pathRecord, len(paths))
	for i, p := range paths {
		records[i] = &pathRecord{
			path:   p,
			states: make(map[int]*route.CornerState),
		}
		// Seed with the source segments so the first emit replaces
		// them on the board.
		for _, s := range p.Segments {
			records[i].prims = append(records[i].prims, s.ID)
		}
		if err := c.emit(ctx, records[i], &sum); err != nil {
			return sum, err
		}
	}

	if c.opts.EnableDRC && c.oracle != nil {
		if err := c.repairLoop(ctx, records, &sum); err != nil {
			return sum, err
		}
	} else {
		sum.Clean = true
	}

	c.tally(records, &sum)
	tracer().Infof("run finished: %d paths, %d arcs, %d forced straight, %d cycles",
		sum.Paths, sum.Arcs, sum.ForcedStraight, sum.Cycles)
	return sum, nil
}

func (c *Controller) repairLoop(ctx context.Context, records []*pathRecord, sum *Summary) error {
	for cycle := 0; ; cycle++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		vios, err := c.oracle.Check(ctx)
		sum.Cycles++
		if err != nil {
			// Fail open: a broken checker must not block normal
			// beautification.
			tracer().Errorf("design check unavailable, accepting result: %v", err)
			return nil
		}

		affected := c.attribute(records, vios)
		if len(affected) == 0 {
			sum.Clean = len(vios) == 0
			if !sum.Clean {
				tracer().Infof("%d violations do not involve generated arcs, stopping", len(vios))
			}
			return nil
		}

		final := cycle >= c.opts.DRCRetryCount
		for ri, corners := range affected {
			rec := records[ri]
			for corner := range corners {
				st, ok := rec.states[corner]
				if !ok {
					st = route.NewCornerState()
					rec.states[corner] = st
				}
				if final || st.Scale/2 < minScale {
					st.ForcedStraight = true
					tracer().Debugf("corner %d of path %d reverts to sharp joint", corner, ri)
				} else {
					st.Scale /= 2
					tracer().Debugf("corner %d of path %d backs off to scale %.3f", corner, ri, st.Scale)
				}
			}
			if err := c.emit(ctx, rec, sum); err != nil {
				return err
			}
		}
		if final {
			return nil
		}
	}
}

// attribute maps violating primitive ids back to the path and corner
// that emitted them.
func (c *Controller) attribute(records []*pathRecord, vios map[route.PrimID]struct{}) map[int]map[int]struct{} {
	affected := make(map[int]map[int]struct{})
	for id := range vios {
		for ri, rec := range records {
			if corner, ok := rec.corner[id]; ok {
				if affected[ri] == nil {
					affected[ri] = make(map[int]struct{})
				}
				affected[ri][corner] = struct{}{}
			}
		}
	}
	return affected
}

// emit deletes the record's previous primitives, smooths the path with
// its current corner states, and materializes the result through the
// sink. Individual create failures are logged and skipped; a partial
// result beats an aborted pass.
func (c *Controller) emit(ctx context.Context, rec *pathRecord, sum *Summary) error {
	if len(rec.prims) > 0 {
		if err := c.sink.Delete(ctx, rec.prims); err != nil {
			tracer().Errorf("stale primitive delete failed: %v", err)
			sum.HostFailures++
		}
	}
	rec.prims = nil
	rec.corner = make(map[route.PrimID]int)

	rec.last = smoothSafely(rec.path, c.opts, rec.states)

	for _, op := range rec.last.Ops {
		var id route.PrimID
		var err error
		switch op.Kind {
		case route.OpArc:
			id, err = c.sink.CreateArc(ctx, rec.path.Net, rec.path.Layer, op.Start, op.End, op.Sweep, op.Width)
		default:
			id, err = c.sink.CreateLine(ctx, rec.path.Net, rec.path.Layer, op.Start, op.End, op.Width)
		}
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			tracer().Errorf("create rejected by host, continuing: %v", err)
			sum.HostFailures++
			continue
		}
		rec.prims = append(rec.prims, id)
		// Lines carry a corner index too when they span a joint that
		// stayed sharp; a violation on one must still back that corner
		// off.
		if op.Corner != route.NoCorner {
			rec.corner[id] = op.Corner
		}
		if op.Kind == route.OpArc && c.widths != nil {
			c.widths[id] = op.Width
		}
	}
	return nil
}

// smoothSafely treats a panic out of a single chain's corner math as a
// degenerate-geometry condition: the chain falls back to its original
// sharp polyline rather than taking the session down.
func smoothSafely(p route.Path, opts route.Options, states map[int]*route.CornerState) (res smooth.Result) {
	defer func() {
		if r := recover(); r != nil {
			tracer().Errorf("degenerate chain %s/%s: %v", p.Net, p.Layer, r)
			res = fallbackSharp(p)
		}
	}()
	return smooth.Path(p, opts, states)
}

// fallbackSharp re-emits the chain exactly as it came in.
func fallbackSharp(p route.Path) smooth.Result {
	var res smooth.Result
	for i, s := range p.Segments {
		res.Ops = append(res.Ops, route.PathOp{
			Kind:   route.OpLine,
			Start:  p.Points[i],
			End:    p.Points[i+1],
			Width:  s.Width,
			Corner: route.NoCorner,
		})
	}
	res.Straightened = p.Corners()
	return res
}

func (c *Controller) tally(records []*pathRecord, sum *Summary) {
	sum.Arcs = 0
	sum.Clamped = 0
	sum.Straightened = 0
	for _, rec := range records {
		sum.Arcs += rec.last.Arcs
		sum.Clamped += rec.last.Clamped
		sum.Straightened += rec.last.Straightened
		for _, st := range rec.states {
			if st.ForcedStraight {
				sum.ForcedStraight++
			}
		}
	}
}
