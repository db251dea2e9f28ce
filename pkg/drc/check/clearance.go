// Package check implements a self-contained clearance checker usable
// as the design oracle when no host checker is available. It compares
// copper centerlines pairwise per layer and flags any pair of
// different-net primitives closer than the resolved clearance.
package check

import (
	"context"

	"github.com/npillmayer/schuko/tracing"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/drc/rules"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/route"
)

// tracer writes to the trace channel with key 'otsm.check'
func tracer() tracing.Trace {
	return tracing.Select("otsm.check")
}

// DefaultClearance applies when no rule file is loaded or nothing
// matches a layer.
const DefaultClearance = 0.2

// Primitive is one copper item prepared for checking: a centerline
// polyline (arcs pre-flattened by the adapter) with a width.
type Primitive struct {
	ID     route.PrimID
	Net    string
	Layer  string
	Width  float64
	Points []geom.Point
}

// Source yields the current primitive set. The checker re-reads it on
// every pass so repairs are checked against the materialized board,
// not a stale copy.
type Source interface {
	Primitives(ctx context.Context) ([]Primitive, error)
}

// Checker is a rules-driven clearance oracle.
type Checker struct {
	src   Source
	rules *rules.RuleSet
}

// NewChecker builds a checker. rs may be nil, in which case
// DefaultClearance applies everywhere.
func NewChecker(src Source, rs *rules.RuleSet) *Checker {
	return &Checker{src: src, rules: rs}
}

func (c *Checker) clearance(layer string) float64 {
	if c.rules == nil {
		return DefaultClearance
	}
	return c.rules.Clearance(layer, DefaultClearance)
}

// Check implements drc.Oracle. Two primitives violate when they are on
// the same layer, belong to different nets, and their copper outlines
// come closer than the layer's clearance.
func (c *Checker) Check(ctx context.Context) (map[route.PrimID]struct{}, error) {
	prims, err := c.src.Primitives(ctx)
	if err != nil {
		return nil, err
	}

	// Bucket per layer; cross-layer pairs can never clash.
	byLayer := make(map[string][]Primitive)
	for _, p := range prims {
		if len(p.Points) >= 2 {
			byLayer[p.Layer] = append(byLayer[p.Layer], p)
		}
	}

	vios := make(map[route.PrimID]struct{})
	for layer, list := range byLayer {
		gap := c.clearance(layer)
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				a, b := list[i], list[j]
				if a.Net == b.Net {
					continue
				}
				limit := a.Width/2 + b.Width/2 + gap
				if polylineDistance(a.Points, b.Points) < limit {
					vios[a.ID] = struct{}{}
					vios[b.ID] = struct{}{}
				}
			}
		}
	}
	if len(vios) > 0 {
		tracer().Infof("clearance check flagged %d primitives", len(vios))
	}
	return vios, nil
}

func polylineDistance(a, b []geom.Point) float64 {
	best := a[0].Distance(b[0])
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			d := geom.SegmentDistance(a[i], a[i+1], b[j], b[j+1])
			if d < best {
				best = d
			}
		}
	}
	return best
}
