package geom

import "math"

// ArcCenter computes the center of the circle through start and end
// subtending the signed sweep angle in degrees (positive =
// counterclockwise from start to end). The second return value is
// false for degenerate chords or near-zero sweeps.
func ArcCenter(start, end Point, sweepDeg float64) (Point, bool) {
	chord := end.Sub(start)
	length := chord.Length()
	half := math.Abs(sweepDeg) * Deg2Rad / 2
	if length < Epsilon || half < Epsilon {
		return Point{}, false
	}

	u, _ := chord.Normalize()
	// Left-hand normal of the chord.
	n := Point{X: -u.Y, Y: u.X}
	apothem := (length / 2) / math.Tan(half)
	mid := Lerp(start, end, 0.5)
	if sweepDeg > 0 {
		return mid.Add(n.Scale(apothem)), true
	}
	return mid.Sub(n.Scale(apothem)), true
}

// ArcMidpoint returns the point halfway along the arc, the third
// coordinate of KiCad's three-point arc form.
func ArcMidpoint(start, end Point, sweepDeg float64) Point {
	c, ok := ArcCenter(start, end, sweepDeg)
	if !ok {
		return Lerp(start, end, 0.5)
	}
	return c.Add(start.Sub(c).Rotate(sweepDeg / 2 * Deg2Rad))
}

// Circumcenter returns the center of the circle through three points.
// The second return value is false when they are (nearly) collinear.
func Circumcenter(a, b, c Point) (Point, bool) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	d := 2 * ab.Cross(ac)
	if math.Abs(d) < Epsilon {
		return Point{}, false
	}
	abLen2 := ab.Dot(ab)
	acLen2 := ac.Dot(ac)
	ux := (ac.Y*abLen2 - ab.Y*acLen2) / d
	uy := (ab.X*acLen2 - ac.X*abLen2) / d
	return Point{X: a.X + ux, Y: a.Y + uy}, true
}

// ArcSweepFromMid recovers the signed sweep in degrees of an arc given
// in KiCad's three-point form. The second return value is false when
// the points are collinear.
func ArcSweepFromMid(start, mid, end Point) (float64, bool) {
	c, ok := Circumcenter(start, mid, end)
	if !ok {
		return 0, false
	}
	a0 := math.Atan2(start.Y-c.Y, start.X-c.X)
	am := math.Atan2(mid.Y-c.Y, mid.X-c.X)
	a2 := math.Atan2(end.Y-c.Y, end.X-c.X)

	ccwEnd := mod2pi(a2 - a0)
	ccwMid := mod2pi(am - a0)
	if ccwMid <= ccwEnd {
		return ccwEnd / Deg2Rad, true
	}
	return (ccwEnd - 2*math.Pi) / Deg2Rad, true
}

func mod2pi(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// FlattenArc approximates the arc by a polyline of steps+1 points,
// start and end included. Degenerate arcs collapse to their chord.
func FlattenArc(start, end Point, sweepDeg float64, steps int) []Point {
	c, ok := ArcCenter(start, end, sweepDeg)
	if !ok || steps < 2 {
		return []Point{start, end}
	}
	pts := make([]Point, 0, steps+1)
	r0 := start.Sub(c)
	for k := 0; k <= steps; k++ {
		a := sweepDeg * Deg2Rad * float64(k) / float64(steps)
		pts = append(pts, c.Add(r0.Rotate(a)))
	}
	// Snap the last point onto the exact endpoint.
	pts[len(pts)-1] = end
	return pts
}
