// Package route models copper track geometry for one electrical net on
// one layer and recovers maximal point chains from an unordered segment
// soup. The chains feed the corner smoother and the width taper
// generator.
package route

import (
	"github.com/npillmayer/schuko/tracing"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/geom"
)

// tracer writes to the trace channel with key 'otsm.route'
func tracer() tracing.Trace {
	return tracing.Select("otsm.route")
}

// PrimID is an opaque identifier for a board primitive (track segment
// or track arc). The engine never interprets its contents; it only
// compares ids for identity.
type PrimID string

// Segment is one straight copper trace as read from the host board.
// Which end is Start carries no meaning; extraction flips segments
// freely while assembling chains.
type Segment struct {
	Start geom.Point
	End   geom.Point
	Width float64
	Net   string
	Layer string
	ID    PrimID
}

// Length returns the segment's centerline length.
func (s Segment) Length() float64 {
	return s.Start.Distance(s.End)
}

// Other returns the endpoint opposite to the one matching key k.
func (s Segment) Other(k geom.Key) geom.Point {
	if geom.Keyed(s.Start) == k {
		return s.End
	}
	return s.Start
}

// Path is an ordered chain of 3 or more points, together with the
// segments that produced them, all on one net and layer. Points[i] and
// Points[i+1] are the endpoints of Segments[i], already oriented along
// the chain.
type Path struct {
	Net      string
	Layer    string
	Points   []geom.Point
	Segments []Segment
}

// Corners returns the number of interior points of the path.
func (p *Path) Corners() int {
	if len(p.Points) < 3 {
		return 0
	}
	return len(p.Points) - 2
}

// Closed reports whether the chain returns to its own first point.
func (p *Path) Closed() bool {
	if len(p.Points) < 3 {
		return false
	}
	return geom.Keyed(p.Points[0]) == geom.Keyed(p.Points[len(p.Points)-1])
}

// OpKind discriminates the two drawing instructions a smoothed path is
// made of.
type OpKind int

const (
	OpLine OpKind = iota
	OpArc
)

// NoCorner marks a PathOp that cannot be attributed to a specific
// interior point.
const NoCorner = -1

// PathOp is one drawing instruction derived from a path: a straight
// segment, or an arc with a signed sweep angle in degrees (positive =
// counterclockwise). Corner binds the op back to the interior point
// index that produced it, so that a violation on an emitted primitive
// can be traced to the corner whose radius must back off.
type PathOp struct {
	Kind   OpKind
	Start  geom.Point
	End    geom.Point
	Sweep  float64
	Width  float64
	Corner int
}

// CornerState carries the per-corner radius adjustment accumulated by
// the check/repair loop. Scale is the fraction of the nominal radius
// currently in effect. Once ForcedStraight is set the corner reverts
// to a sharp joint for the rest of the session and is never retried.
type CornerState struct {
	Scale          float64
	ForcedStraight bool
}

// NewCornerState returns the initial, optimistic state.
func NewCornerState() *CornerState {
	return &CornerState{Scale: 1.0}
}

// WidthTable records the true width of freshly emitted arcs, keyed by
// primitive id. The host's width accessor for arc primitives is not
// reliable immediately after creation, so anything that later needs an
// arc width (the snapshot layer in particular) must consult this table
// first. The table is owned by one engine invocation and passed
// explicitly.
type WidthTable map[PrimID]float64

// Lookup returns the recorded width and whether one exists.
func (w WidthTable) Lookup(id PrimID) (float64, bool) {
	v, ok := w[id]
	return v, ok
}

// Options collects every knob the smoothing and taper passes
// recognize.
type Options struct {
	// CornerRadiusRatio sets the nominal arc radius to the wider
	// adjacent trace half-width times this ratio, so a ratio of 1 is
	// the smallest arc that is not narrower than the trace. Ignored
	// when FixedRadius is positive.
	CornerRadiusRatio float64

	// FixedRadius, when positive, uses one radius for every corner.
	FixedRadius float64

	// ForceArc accepts arcs whose tangent length was clamped by a
	// short leg. It never overrides the width floor: an arc narrower
	// than the trace itself is always rejected.
	ForceArc bool

	// MergeUTurns replaces two close same-direction corners with a
	// single larger arc when the connecting leg is shorter than 1.5
	// times the nominal radius.
	MergeUTurns bool

	// EnableDRC runs the check/repair loop after the optimistic pass.
	EnableDRC bool

	// DRCRetryCount bounds the number of repair cycles.
	DRCRetryCount int

	// WidthTransitionRatio sets the ideal taper length to the width
	// delta times this ratio.
	WidthTransitionRatio float64

	// WidthTransitionSegments caps the number of taper sub-segments.
	WidthTransitionSegments int

	// WidthTransitionBalance splits the taper length between the two
	// sides of a junction: 0 puts it entirely on the narrow side, 100
	// entirely on the wide side.
	WidthTransitionBalance int
}

// DefaultOptions returns the settings used when the caller does not
// configure anything.
func DefaultOptions() Options {
	return Options{
		CornerRadiusRatio:       3.0,
		ForceArc:                false,
		MergeUTurns:             true,
		EnableDRC:               true,
		DRCRetryCount:           4,
		WidthTransitionRatio:    3.0,
		WidthTransitionSegments: 10,
		WidthTransitionBalance:  50,
	}
}

// Radius returns the nominal corner radius for the given adjacent
// trace width (the wider of the two legs).
func (o Options) Radius(width float64) float64 {
	if o.FixedRadius > 0 {
		return o.FixedRadius
	}
	return width / 2 * o.CornerRadiusRatio
}
