// Package transition grows a tapered width profile where two traces of
// different width meet end to end. The taper is a chain of short
// straight sub-segments whose widths follow a smootherstep blend from
// the wide value down to the narrow one, so the junction loses its
// visible step without changing the routing.
package transition

import (
	"context"
	"math"

	"github.com/npillmayer/schuko/tracing"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/route"
)

// tracer writes to the trace channel with key 'otsm.taper'
func tracer() tracing.Trace {
	return tracing.Select("otsm.taper")
}

const (
	// widthTol: width differences at or below this are not worth a
	// taper.
	widthTol = 1e-3

	// joinTol is the endpoint coincidence tolerance in mm.
	joinTol = 0.01

	// collinearDeg: the adjoining directions must be within this many
	// degrees of a straight line.
	collinearDeg = 7.5

	// sideCapFraction caps each side's share of the taper at 90% of
	// that side's own segment, so the taper never swallows a segment
	// whole.
	sideCapFraction = 0.90

	// minSubSegments is the smallest useful taper resolution.
	minSubSegments = 3
)

// Junction is a point where a wide and a narrow segment of the same
// net and layer meet nearly collinearly.
type Junction struct {
	At     geom.Point
	Wide   route.Segment
	Narrow route.Segment
}

// SubSegment is one straight piece of a taper with its blended width.
type SubSegment struct {
	Start geom.Point
	End   geom.Point
	Width float64
}

// Profile is the fully solved taper for one junction.
type Profile struct {
	Total         float64
	WidePortion   float64
	NarrowPortion float64
	Subs          []SubSegment

	// ShortenedWide is the wide segment trimmed back by WidePortion
	// from the junction, replacing the original. Nil when the balance
	// puts the whole taper on the narrow side.
	ShortenedWide *route.Segment
}

// FindJunctions scans one net+layer family for taper sites. Every
// unordered pair with a material width difference is tested on all
// four endpoint pairings.
func FindJunctions(segs []route.Segment) []Junction {
	minCos := -math.Cos(collinearDeg * geom.Deg2Rad)

	var out []Junction
	for i := 0; i < len(segs); i++ {
		for j := i + 1; j < len(segs); j++ {
			a, b := segs[i], segs[j]
			if math.Abs(a.Width-b.Width) <= widthTol {
				continue
			}
			at, ok := meetingPoint(a, b)
			if !ok {
				continue
			}

			dirA, okA := a.Other(geom.Keyed(at)).Sub(at).Normalize()
			dirB, okB := b.Other(geom.Keyed(at)).Sub(at).Normalize()
			if !okA || !okB {
				continue
			}
			// Nearly opposite directions mean the two traces continue
			// through the junction in a straight-enough line.
			if dirA.Dot(dirB) > minCos {
				continue
			}

			jn := Junction{At: at}
			if a.Width > b.Width {
				jn.Wide, jn.Narrow = a, b
			} else {
				jn.Wide, jn.Narrow = b, a
			}
			out = append(out, jn)
		}
	}
	return out
}

// meetingPoint tests the four endpoint pairings of a and b for
// coincidence within joinTol.
func meetingPoint(a, b route.Segment) (geom.Point, bool) {
	for _, pa := range []geom.Point{a.Start, a.End} {
		for _, pb := range []geom.Point{b.Start, b.End} {
			if pa.Distance(pb) <= joinTol {
				return pa, true
			}
		}
	}
	return geom.Point{}, false
}

// BuildProfile solves the taper geometry for one junction. Returns
// false when the junction collapses to nothing (zero length budget or
// degenerate directions).
func BuildProfile(j Junction, opts route.Options) (Profile, bool) {
	delta := j.Wide.Width - j.Narrow.Width
	ideal := delta * opts.WidthTransitionRatio
	if ideal <= 0 {
		return Profile{}, false
	}

	balance := opts.WidthTransitionBalance
	if balance < 0 {
		balance = 0
	} else if balance > 100 {
		balance = 100
	}

	wideLen := j.Wide.Length()
	narrowLen := j.Narrow.Length()

	widePortion := math.Min(ideal*float64(balance)/100, sideCapFraction*wideLen)
	narrowPortion := math.Min(ideal*float64(100-balance)/100, sideCapFraction*narrowLen)
	total := widePortion + narrowPortion
	if total < geom.Epsilon {
		return Profile{}, false
	}

	atKey := geom.Keyed(j.At)
	dirWide, okW := j.Wide.Other(atKey).Sub(j.At).Normalize()
	dirNarrow, okN := j.Narrow.Other(atKey).Sub(j.At).Normalize()
	if !okW || !okN {
		return Profile{}, false
	}

	// Walk the taper axis from the wide end toward the narrow end.
	// The axis bends at the junction by up to the collinearity
	// tolerance; positions are measured by arc length along it.
	at := func(s float64) geom.Point {
		if s <= widePortion {
			return j.At.Add(dirWide.Scale(widePortion - s))
		}
		return j.At.Add(dirNarrow.Scale(s - widePortion))
	}

	n := subSegmentCount(total, delta, opts)
	subs := make([]SubSegment, 0, n)
	prev := at(0)
	for k := 1; k <= n; k++ {
		s := total * float64(k) / float64(n)
		end := at(s)
		// Width is sampled at the trailing end of each sub-segment so
		// the final one lands exactly on the narrow width.
		t := geom.Smootherstep(float64(k) / float64(n))
		subs = append(subs, SubSegment{
			Start: prev,
			End:   end,
			Width: geom.LerpScalar(j.Wide.Width, j.Narrow.Width, t),
		})
		prev = end
	}

	p := Profile{
		Total:         total,
		WidePortion:   widePortion,
		NarrowPortion: narrowPortion,
		Subs:          subs,
	}

	if widePortion > geom.Epsilon {
		short := j.Wide
		// Trim from the junction end.
		newEnd := j.At.Add(dirWide.Scale(widePortion))
		if geom.Keyed(short.Start) == atKey {
			short.Start = newEnd
		} else {
			short.End = newEnd
		}
		p.ShortenedWide = &short
	}
	return p, true
}

// subSegmentCount derives the taper resolution from its length and the
// width delta, bounded below by minSubSegments and above by the
// configured cap.
func subSegmentCount(total, delta float64, opts route.Options) int {
	max := opts.WidthTransitionSegments
	if max < minSubSegments {
		max = minSubSegments
	}
	// One step per half width-unit of change, but never finer than
	// four steps per mm of taper length.
	n := int(math.Ceil(math.Min(delta*2, total*4)))
	if n < minSubSegments {
		n = minSubSegments
	}
	if n > max {
		n = max
	}
	return n
}

// Summary reports what one taper pass did.
type Summary struct {
	Junctions int
	Created   int
	Deleted   int
	Failed    int
}

// Generator applies taper profiles through a primitive sink. It keeps
// a coordinate-keyed table of the primitives it created at each
// junction so a re-run deletes the previous taper before growing a new
// one instead of compounding them.
type Generator struct {
	sink route.PrimitiveSink
	made map[geom.Key][]route.PrimID
}

// NewGenerator returns a generator writing through sink.
func NewGenerator(sink route.PrimitiveSink) *Generator {
	return &Generator{
		sink: sink,
		made: make(map[geom.Key][]route.PrimID),
	}
}

// Apply regenerates tapers for every junction in the given segment
// set. Segments must already belong to one net+layer family; use
// route.GroupSegments to split a board-wide set. Failures on a single
// junction are logged and skipped, never fatal.
func (g *Generator) Apply(ctx context.Context, segs []route.Segment, opts route.Options) (Summary, error) {
	var sum Summary
	for _, j := range FindJunctions(segs) {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Junctions++
		if err := g.applyOne(ctx, j, opts, &sum); err != nil {
			tracer().Errorf("taper at %s failed: %v", j.At, err)
			sum.Failed++
		}
	}
	return sum, nil
}

func (g *Generator) applyOne(ctx context.Context, j Junction, opts route.Options, sum *Summary) error {
	prof, ok := BuildProfile(j, opts)
	if !ok {
		return nil
	}

	key := geom.Keyed(j.At)
	if old := g.made[key]; len(old) > 0 {
		if err := g.sink.Delete(ctx, old); err != nil {
			return err
		}
		sum.Deleted += len(old)
		delete(g.made, key)
	}

	var created []route.PrimID
	if prof.ShortenedWide != nil {
		// Delete-and-recreate: the host has no resize operation.
		if err := g.sink.Delete(ctx, []route.PrimID{j.Wide.ID}); err != nil {
			return err
		}
		sum.Deleted++
		s := *prof.ShortenedWide
		id, err := g.sink.CreateLine(ctx, s.Net, s.Layer, s.Start, s.End, s.Width)
		if err != nil {
			return err
		}
		created = append(created, id)
	}

	for _, sub := range prof.Subs {
		id, err := g.sink.CreateLine(ctx, j.Narrow.Net, j.Narrow.Layer, sub.Start, sub.End, sub.Width)
		if err != nil {
			// Per-primitive failure: keep going with the rest.
			tracer().Errorf("taper sub-segment at %s rejected: %v", sub.Start, err)
			sum.Failed++
			continue
		}
		created = append(created, id)
	}
	g.made[key] = created
	sum.Created += len(created)
	return nil
}
