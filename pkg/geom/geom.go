// Package geom provides the 2D vector math used by the track smoothing
// and taper generation engine. All coordinates are in millimeters, the
// KiCad board unit.
package geom

import (
	"fmt"
	"math"
)

// Epsilon is the length below which a vector is considered degenerate.
const Epsilon = 1e-9

// Deg2Rad converts from degrees to radians when multiplied.
const Deg2Rad = math.Pi / 180.0

// Point is a 2D coordinate or vector in mm.
type Point struct {
	X float64
	Y float64
}

// Pt is a shorthand constructor.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", p.X, p.Y)
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns p scaled by s.
func (p Point) Scale(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Cross returns the Z component of the cross product p × q.
// Positive means q is counterclockwise from p.
func (p Point) Cross(q Point) float64 {
	return p.X*q.Y - p.Y*q.X
}

// Length returns the Euclidean length of p as a vector.
func (p Point) Length() float64 {
	return math.Hypot(p.X, p.Y)
}

// Distance returns the distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Normalize returns the unit vector of p. The second return value is
// false if p is too short to have a direction.
func (p Point) Normalize() (Point, bool) {
	l := p.Length()
	if l < Epsilon {
		return Point{}, false
	}
	return Point{X: p.X / l, Y: p.Y / l}, true
}

// Rotate returns p rotated counterclockwise by the given angle in radians.
func (p Point) Rotate(rad float64) Point {
	sin, cos := math.Sincos(rad)
	return Point{X: p.X*cos - p.Y*sin, Y: p.X*sin + p.Y*cos}
}

// Lerp linearly interpolates between a and b. t=0 gives a, t=1 gives b.
func Lerp(a, b Point, t float64) Point {
	return Point{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
	}
}

// LerpScalar linearly interpolates between two scalars.
func LerpScalar(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Smootherstep evaluates the quintic ease t³(t(6t−15)+10) with t
// clamped to [0,1]. It has zero first and second derivatives at both
// ends, which keeps width tapers free of visible kinks.
func Smootherstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * t * (t*(t*6-15) + 10)
}

// CubicBezier evaluates a cubic Bezier curve at parameter t.
func CubicBezier(p0, p1, p2, p3 Point, t float64) Point {
	u := 1 - t
	b0 := u * u * u
	b1 := 3 * u * u * t
	b2 := 3 * u * t * t
	b3 := t * t * t
	return Point{
		X: b0*p0.X + b1*p1.X + b2*p2.X + b3*p3.X,
		Y: b0*p0.Y + b1*p1.Y + b2*p2.Y + b3*p3.Y,
	}
}

// AngleBetween returns the unsigned angle in radians between vectors u
// and v, in [0, π]. The cosine is clamped before acos to absorb
// floating point error on nearly (anti)parallel vectors.
func AngleBetween(u, v Point) float64 {
	lu := u.Length()
	lv := v.Length()
	if lu < Epsilon || lv < Epsilon {
		return 0
	}
	c := u.Dot(v) / (lu * lv)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}

// LineIntersection intersects the infinite line through p1 with
// direction d1 and the infinite line through p2 with direction d2.
// The second return value is false when the lines are parallel.
func LineIntersection(p1, d1, p2, d2 Point) (Point, bool) {
	denom := d1.Cross(d2)
	if math.Abs(denom) < Epsilon {
		return Point{}, false
	}
	t := p2.Sub(p1).Cross(d2) / denom
	return p1.Add(d1.Scale(t)), true
}

// PointSegmentDistance returns the minimum distance from p to the
// segment a-b.
func PointSegmentDistance(p, a, b Point) float64 {
	d := b.Sub(a)
	l2 := d.Dot(d)
	if l2 < Epsilon*Epsilon {
		return p.Distance(a)
	}
	t := p.Sub(a).Dot(d) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return p.Distance(a.Add(d.Scale(t)))
}

// SegmentDistance returns the minimum distance between segments a1-a2
// and b1-b2. Crossing segments have distance zero.
func SegmentDistance(a1, a2, b1, b2 Point) float64 {
	if segmentsCross(a1, a2, b1, b2) {
		return 0
	}
	d := PointSegmentDistance(a1, b1, b2)
	if v := PointSegmentDistance(a2, b1, b2); v < d {
		d = v
	}
	if v := PointSegmentDistance(b1, a1, a2); v < d {
		d = v
	}
	if v := PointSegmentDistance(b2, a1, a2); v < d {
		d = v
	}
	return d
}

func segmentsCross(a1, a2, b1, b2 Point) bool {
	da := a2.Sub(a1)
	db := b2.Sub(b1)
	d1 := da.Cross(b1.Sub(a1))
	d2 := da.Cross(b2.Sub(a1))
	d3 := db.Cross(a1.Sub(b1))
	d4 := db.Cross(a2.Sub(b1))
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

// coordScale quantizes endpoint coordinates to 3 decimal places (1 µm
// at mm scale) so that endpoints that drifted apart by floating point
// round-trip error still hash to the same key.
const coordScale = 1000.0

// Key is a quantized coordinate usable as a map key for endpoint
// adjacency lookups.
type Key struct {
	X int64
	Y int64
}

// Keyed returns the quantized key for p.
func Keyed(p Point) Key {
	return Key{
		X: int64(math.Round(p.X * coordScale)),
		Y: int64(math.Round(p.Y * coordScale)),
	}
}

// Point returns the coordinate at the center of the key's cell.
func (k Key) Point() Point {
	return Point{X: float64(k.X) / coordScale, Y: float64(k.Y) / coordScale}
}
