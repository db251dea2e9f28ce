// Package smooth replaces the sharp interior corners of a track chain
// with tangent-circle arcs. Every corner is fitted independently: the
// tangent length is clamped against the adjacent leg lengths, arcs
// narrower than the trace itself are rejected, and corners the repair
// loop has given up on stay sharp.
package smooth

import (
	"math"

	"github.com/npillmayer/schuko/tracing"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/route"
)

// tracer writes to the trace channel with key 'otsm.smooth'
func tracer() tracing.Trace {
	return tracing.Select("otsm.smooth")
}

const (
	// maxLegFraction caps the tangent length at 45% of the shorter
	// adjacent leg, leaving room for the neighboring corner's arc.
	maxLegFraction = 0.45

	// clampFlagRatio marks a corner as radius-clamped when the usable
	// tangent length fell below 90% of the requested one.
	clampFlagRatio = 0.90

	// minTangent is the shortest tangent length still worth an arc.
	minTangent = 0.05

	// widthTol absorbs rounding when comparing the effective radius
	// against the half-width floor.
	widthTol = 1e-3

	// collinearTol treats corners within ~0.1° of a straight line as
	// pass-throughs; their tangent length is indistinguishable from
	// zero.
	collinearTol = 1e-3
)

// Result is the outcome of smoothing one chain.
type Result struct {
	Ops          []route.PathOp
	Arcs         int // arcs emitted
	Clamped      int // arcs emitted with a clamped tangent length
	Straightened int // corners left sharp
}

// Path converts one chain into drawing instructions. states carries
// the per-corner radius back-off accumulated by the repair loop; a
// missing entry means the corner is still at full radius.
func Path(p route.Path, opts route.Options, states map[int]*route.CornerState) Result {
	e := &emitter{
		path:   p,
		opts:   opts,
		states: states,
		cursor: p.Points[0],
	}
	n := len(p.Points)

	for i := 1; i <= n-2; {
		if opts.MergeUTurns && i+1 <= n-2 {
			if e.tryMerge(i) {
				i += 2
				continue
			}
		}
		e.corner(i)
		i++
	}

	// Tail from the last cursor position to the chain's end.
	e.line(e.cursor, p.Points[n-1], p.Segments[n-2].Width, route.NoCorner)

	tracer().Debugf("chain %s/%s: %d arcs, %d clamped, %d sharp",
		p.Net, p.Layer, e.result.Arcs, e.result.Clamped, e.result.Straightened)
	return e.result
}

type emitter struct {
	path   route.Path
	opts   route.Options
	states map[int]*route.CornerState
	cursor geom.Point
	result Result
}

func (e *emitter) state(i int) *route.CornerState {
	if st, ok := e.states[i]; ok {
		return st
	}
	return nil
}

func (e *emitter) line(a, b geom.Point, width float64, corner int) {
	if a.Distance(b) < geom.Epsilon {
		return
	}
	e.result.Ops = append(e.result.Ops, route.PathOp{
		Kind:   route.OpLine,
		Start:  a,
		End:    b,
		Width:  width,
		Corner: corner,
	})
}

func (e *emitter) arc(a, b geom.Point, sweepDeg, width float64, corner int) {
	e.result.Ops = append(e.result.Ops, route.PathOp{
		Kind:   route.OpArc,
		Start:  a,
		End:    b,
		Sweep:  sweepDeg,
		Width:  width,
		Corner: corner,
	})
	e.result.Arcs++
}

// sharp joins the corner without an arc and advances the cursor onto
// the corner point.
func (e *emitter) sharp(i int, width float64) {
	e.line(e.cursor, e.path.Points[i], width, i)
	e.cursor = e.path.Points[i]
	e.result.Straightened++
}

// fit holds the solved tangent-circle geometry for one corner.
type fit struct {
	tangent1  geom.Point
	tangent2  geom.Point
	sweepDeg  float64
	effRadius float64
	clamped   bool
}

// solveCorner fits a tangent circle of the given radius at apex with
// legs toward a and b. It returns false when the corner is degenerate,
// the tangent length is unusable, or the arc would be narrower than
// the wider adjacent trace. forceArc only rescues the length clamp,
// never the width floor.
func solveCorner(apex, a, b geom.Point, radius, maxWidth float64, forceArc bool) (fit, bool) {
	leg1 := a.Sub(apex)
	leg2 := b.Sub(apex)
	l1 := leg1.Length()
	l2 := leg2.Length()
	if l1 < geom.Epsilon || l2 < geom.Epsilon || radius <= 0 {
		return fit{}, false
	}

	angle := geom.AngleBetween(leg1, leg2)
	if angle > math.Pi-collinearTol || angle < collinearTol {
		// Straight pass-through or a fold-back; the tangent length is
		// zero or unbounded and either way there is nothing to fit.
		return fit{}, false
	}

	halfTan := math.Tan(angle / 2)
	d := radius / halfTan
	maxD := maxLegFraction * math.Min(l1, l2)

	actualD := d
	clamped := false
	if actualD > maxD {
		actualD = maxD
		clamped = actualD < clampFlagRatio*d
	}
	if actualD < minTangent {
		return fit{}, false
	}

	effRadius := actualD * halfTan
	if effRadius < maxWidth/2-widthTol {
		// The arc would be narrower than the trace. Never overridable.
		return fit{}, false
	}
	if clamped && !forceArc {
		return fit{}, false
	}

	dir1, ok1 := leg1.Normalize()
	dir2, ok2 := leg2.Normalize()
	if !ok1 || !ok2 {
		return fit{}, false
	}

	// Turn direction of incoming leg into outgoing leg fixes the
	// sweep sign: positive is counterclockwise.
	sweep := (math.Pi - angle) / geom.Deg2Rad
	if dir1.Scale(-1).Cross(dir2) < 0 {
		sweep = -sweep
	}

	return fit{
		tangent1:  apex.Add(dir1.Scale(actualD)),
		tangent2:  apex.Add(dir2.Scale(actualD)),
		sweepDeg:  sweep,
		effRadius: effRadius,
		clamped:   clamped,
	}, true
}

// corner processes interior point i: either an arc between the two
// tangent points or a sharp join straight through the corner.
func (e *emitter) corner(i int) {
	p := e.path
	wPrev := p.Segments[i-1].Width
	wNext := p.Segments[i].Width

	if st := e.state(i); st != nil && st.ForcedStraight {
		e.sharp(i, wPrev)
		return
	}

	radius := e.opts.Radius(math.Max(wPrev, wNext))
	if st := e.state(i); st != nil {
		radius *= st.Scale
	}

	f, ok := solveCorner(p.Points[i], p.Points[i-1], p.Points[i+1], radius, math.Max(wPrev, wNext), e.opts.ForceArc)
	if !ok {
		e.sharp(i, wPrev)
		return
	}

	e.line(e.cursor, f.tangent1, wPrev, route.NoCorner)
	// The arc takes the outgoing width so it reads as part of the
	// segment it leads into.
	e.arc(f.tangent1, f.tangent2, f.sweepDeg, wNext, i)
	e.cursor = f.tangent2
	if f.clamped {
		e.result.Clamped++
	}
}
