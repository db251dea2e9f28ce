// Package board holds the trimmed KiCad board model the smoothing
// pipeline works on: layers, nets, copper tracks and arcs, and vias.
// Everything else in a .kicad_pcb file is carried through untouched so
// a modified board can be written back.
package board

import (
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/route"
)

// Layer represents a PCB layer
type Layer struct {
	Number int    // Layer number (ordinal)
	Name   string // Layer name (e.g., "F.Cu", "B.Cu")
	Type   string // Layer type (e.g., "signal", "user")
}

// Net represents an electrical net
type Net struct {
	Number int
	Name   string
}

// Track is one straight copper trace.
type Track struct {
	ID     route.PrimID
	Start  geom.Point
	End    geom.Point
	Width  float64
	Layer  string
	Net    *Net
	Locked bool
}

// Arc is one copper arc in KiCad's three-point form.
type Arc struct {
	ID    route.PrimID
	Start geom.Point
	Mid   geom.Point
	End   geom.Point
	Width float64
	Layer string
	Net   *Net
}

// Via is a layer-to-layer barrel. The engine never edits vias; they
// matter as branch points and for net statistics.
type Via struct {
	Position geom.Point
	Size     float64
	Drill    float64
	Layers   []string
	Net      *Net
}

// Board is a parsed .kicad_pcb restricted to what track smoothing
// needs. The unparsed remainder of the file lives in rest and is
// emitted verbatim on write.
type Board struct {
	Version   int
	Generator string
	Layers    []Layer
	Nets      []Net
	Tracks    []Track
	Arcs      []Arc
	Vias      []Via

	// rest holds the root list's children minus segment and arc
	// nodes, in original order.
	rest   []sexp.Sexp
	nextID int
}

// GetNet returns a net by name, or nil if not found.
func (b *Board) GetNet(name string) *Net {
	for i := range b.Nets {
		if b.Nets[i].Name == name {
			return &b.Nets[i]
		}
	}
	return nil
}

// NetByNumber returns a net by ordinal, or nil.
func (b *Board) NetByNumber(num int) *Net {
	for i := range b.Nets {
		if b.Nets[i].Number == num {
			return &b.Nets[i]
		}
	}
	return nil
}

// CopperLayers returns the names of all signal-carrying layers.
func (b *Board) CopperLayers() []string {
	var out []string
	for _, l := range b.Layers {
		if l.Type == "signal" || l.Type == "power" || l.Type == "mixed" {
			out = append(out, l.Name)
		}
	}
	return out
}

// NetTracks returns all tracks on a named net.
func (b *Board) NetTracks(netName string) []Track {
	var out []Track
	for _, t := range b.Tracks {
		if t.Net != nil && t.Net.Name == netName {
			out = append(out, t)
		}
	}
	return out
}

// BoundingBox returns the extent of the board's copper, tracks and
// vias included.
type BoundingBox struct {
	Min geom.Point
	Max geom.Point
}

// IsEmpty reports whether nothing contributed to the box.
func (bb BoundingBox) IsEmpty() bool {
	return bb.Min.X > bb.Max.X || bb.Min.Y > bb.Max.Y
}

// Width returns the horizontal extent.
func (bb BoundingBox) Width() float64 { return bb.Max.X - bb.Min.X }

// Height returns the vertical extent.
func (bb BoundingBox) Height() float64 { return bb.Max.Y - bb.Min.Y }

// Center returns the box midpoint.
func (bb BoundingBox) Center() geom.Point {
	return geom.Lerp(bb.Min, bb.Max, 0.5)
}

// Expand grows the box to include p.
func (bb *BoundingBox) Expand(p geom.Point) {
	if p.X < bb.Min.X {
		bb.Min.X = p.X
	}
	if p.Y < bb.Min.Y {
		bb.Min.Y = p.Y
	}
	if p.X > bb.Max.X {
		bb.Max.X = p.X
	}
	if p.Y > bb.Max.Y {
		bb.Max.Y = p.Y
	}
}

// GetBoundingBox computes the copper bounding box.
func (b *Board) GetBoundingBox() BoundingBox {
	bb := BoundingBox{
		Min: geom.Pt(1e9, 1e9),
		Max: geom.Pt(-1e9, -1e9),
	}
	for _, t := range b.Tracks {
		bb.Expand(t.Start)
		bb.Expand(t.End)
	}
	for _, a := range b.Arcs {
		bb.Expand(a.Start)
		bb.Expand(a.Mid)
		bb.Expand(a.End)
	}
	for _, v := range b.Vias {
		bb.Expand(v.Position)
	}
	return bb
}
