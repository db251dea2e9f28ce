package smooth

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/route"
)

// mergeLegFactor: two corners joined by a leg shorter than this many
// nominal radii are candidates for a single combined arc.
const mergeLegFactor = 1.5

// tryMerge looks at corners i and i+1 and, when they form a tight
// same-direction double bend, replaces both with one arc fitted at the
// intersection of the two outer legs. Two separate arcs on a short
// connecting stub nearly touch and read as a dog-bone; one larger arc
// does not. Returns true when the merged arc was emitted and the
// caller should skip both corners.
func (e *emitter) tryMerge(i int) bool {
	p := e.path
	c1 := p.Points[i]
	c2 := p.Points[i+1]
	before := p.Points[i-1]
	after := p.Points[i+2]

	st1 := e.state(i)
	st2 := e.state(i + 1)
	if (st1 != nil && st1.ForcedStraight) || (st2 != nil && st2.ForcedStraight) {
		return false
	}

	wIn := p.Segments[i-1].Width
	wMid := p.Segments[i].Width
	wOut := p.Segments[i+1].Width
	maxWidth := math.Max(wIn, math.Max(wMid, wOut))

	radius := e.opts.Radius(maxWidth)
	// The combined arc backs off with the more conservative of the
	// two corner states.
	scale := 1.0
	if st1 != nil && st1.Scale < scale {
		scale = st1.Scale
	}
	if st2 != nil && st2.Scale < scale {
		scale = st2.Scale
	}
	radius *= scale

	if c1.Distance(c2) >= mergeLegFactor*radius {
		return false
	}

	// Both corners must bend the same way.
	turn1 := c1.Sub(before).Cross(c2.Sub(c1))
	turn2 := c2.Sub(c1).Cross(after.Sub(c2))
	if turn1*turn2 <= 0 {
		return false
	}

	// Apex of the combined corner: the outer legs extended through
	// both corner points. Antiparallel outer legs (a true 180° U-turn)
	// have no apex and take the half-circle branch instead.
	apex, ok := geom.LineIntersection(before, c1.Sub(before), after, c2.Sub(after))
	if !ok {
		return e.mergeHalfCircle(i, before, c1, c2, after, maxWidth, wIn, wOut, turn1)
	}

	// The fitted arc must not reach past the far endpoints, so the
	// legs are measured from the apex to the outer points.
	f, ok := solveCorner(apex, before, after, radius, maxWidth, e.opts.ForceArc)
	if !ok {
		return false
	}

	// Tangent points landing between the apex and the corner points
	// would put the arc on the stub itself; the merge only helps when
	// the arc spans both corners.
	if apex.Distance(f.tangent1) < apex.Distance(c1)-geom.Epsilon ||
		apex.Distance(f.tangent2) < apex.Distance(c2)-geom.Epsilon {
		return false
	}

	tracer().Debugf("merged corners %d+%d into one arc, radius %.3f", i, i+1, f.effRadius)

	e.line(e.cursor, f.tangent1, wIn, route.NoCorner)
	e.arc(f.tangent1, f.tangent2, f.sweepDeg, wOut, i)
	e.cursor = f.tangent2
	if f.clamped {
		e.result.Clamped++
	}
	return true
}

// mergeHalfCircle fits a 180° arc across a U-turn whose outer legs run
// antiparallel. The radius is fixed by the gap between the two legs.
func (e *emitter) mergeHalfCircle(i int, before, c1, c2, after geom.Point, maxWidth, wIn, wOut, turn1 float64) bool {
	dirIn, ok1 := c1.Sub(before).Normalize()
	dirOut, ok2 := after.Sub(c2).Normalize()
	if !ok1 || !ok2 || dirIn.Dot(dirOut) > 0 {
		return false
	}

	// A stub with a component along the legs skews the chord: the
	// half circle would be tangent to neither leg and leave a kink at
	// the tangent points.
	if math.Abs(c2.Sub(c1).Dot(dirIn)) > minTangent {
		return false
	}

	// Gap between the two parallel legs, measured across dirIn.
	n := geom.Pt(-dirIn.Y, dirIn.X)
	radius := math.Abs(c2.Sub(c1).Dot(n)) / 2
	if radius < minTangent {
		return false
	}
	if radius < maxWidth/2-widthTol {
		return false
	}
	// Both legs must reach back far enough for their tangent point.
	if before.Distance(c1) < radius || after.Distance(c2) < radius {
		return false
	}

	t1 := c1.Sub(dirIn.Scale(radius))
	t2 := c2.Add(dirOut.Scale(radius))
	sweep := 180.0
	if turn1 < 0 {
		sweep = -sweep
	}

	tracer().Debugf("merged corners %d+%d into a half circle, radius %.3f", i, i+1, radius)

	e.line(e.cursor, t1, wIn, route.NoCorner)
	e.arc(t1, t2, sweep, wOut, i)
	e.cursor = t2
	return true
}
