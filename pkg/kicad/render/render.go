// Package render draws a board's copper with Gio operations. It is a
// track-and-arc viewer for inspecting smoothing results, with an
// optional ghost overlay showing the board as it looked before the
// pass.
package render

import (
	"image"
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/kicad/board"
)

// RenderBoard renders the board's copper.
func RenderBoard(gtx layout.Context, camera *Camera, b *board.Board) {
	RenderBoardWithHighlight(gtx, camera, b, "")
}

// RenderBoardWithHighlight renders the board with a specific net
// highlighted; everything else is dimmed.
func RenderBoardWithHighlight(gtx layout.Context, camera *Camera, b *board.Board, highlightNet string) {
	for _, t := range b.Tracks {
		c, w := trackStyle(GetLayerColor(t.Layer), t.Net, highlightNet, t.Width*camera.Zoom)
		x1, y1 := camera.WorldToScreen(t.Start)
		x2, y2 := camera.WorldToScreen(t.End)
		renderLine(gtx, x1, y1, x2, y2, w, c)
	}
	for _, a := range b.Arcs {
		c, w := trackStyle(GetLayerColor(a.Layer), a.Net, highlightNet, a.Width*camera.Zoom)
		renderArc(gtx, camera, a, w, c)
	}
	renderVias(gtx, camera, b)
}

// RenderGhost draws a board's tracks and arcs in a dim overlay color.
// Drawn under the live board it shows what a smoothing pass replaced.
func RenderGhost(gtx layout.Context, camera *Camera, b *board.Board) {
	for _, t := range b.Tracks {
		x1, y1 := camera.WorldToScreen(t.Start)
		x2, y2 := camera.WorldToScreen(t.End)
		renderLine(gtx, x1, y1, x2, y2, minStroke(t.Width*camera.Zoom), ColorGhost)
	}
	for _, a := range b.Arcs {
		renderArc(gtx, camera, a, minStroke(a.Width*camera.Zoom), ColorGhost)
	}
}

func trackStyle(c color.NRGBA, net *board.Net, highlightNet string, stroke float64) (color.NRGBA, float64) {
	stroke = minStroke(stroke)
	if highlightNet == "" {
		return c, stroke
	}
	if net != nil && net.Name == highlightNet {
		return ColorHighlight, stroke * 1.5
	}
	c.A = 60
	return c, stroke
}

func minStroke(w float64) float64 {
	if w < 1.0 {
		return 1.0
	}
	return w
}

// renderLine renders a line with given width.
func renderLine(gtx layout.Context, x1, y1, x2, y2, width float64, lineColor color.NRGBA) {
	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(float32(x1), float32(y1)))
	path.LineTo(f32.Pt(float32(x2), float32(y2)))

	stroke := clip.Stroke{
		Path:  path.End(),
		Width: float32(width),
	}.Op()

	paint.FillShape(gtx.Ops, lineColor, stroke)
}

// renderArc flattens the three-point arc and strokes the polyline.
func renderArc(gtx layout.Context, camera *Camera, a board.Arc, strokeWidth float64, c color.NRGBA) {
	pts := arcPolyline(a)

	var path clip.Path
	path.Begin(gtx.Ops)
	for i, p := range pts {
		x, y := camera.WorldToScreen(p)
		if i == 0 {
			path.MoveTo(f32.Pt(float32(x), float32(y)))
		} else {
			path.LineTo(f32.Pt(float32(x), float32(y)))
		}
	}

	stroke := clip.Stroke{Path: path.End(), Width: float32(strokeWidth)}.Op()
	paint.FillShape(gtx.Ops, c, stroke)
}

func arcPolyline(a board.Arc) []geom.Point {
	sweep, ok := geom.ArcSweepFromMid(a.Start, a.Mid, a.End)
	if !ok {
		return []geom.Point{a.Start, a.Mid, a.End}
	}
	steps := int(math.Ceil(math.Abs(sweep) / 3))
	if steps < 16 {
		steps = 16
	}
	return geom.FlattenArc(a.Start, a.End, sweep, steps)
}

// renderVias renders all vias.
func renderVias(gtx layout.Context, camera *Camera, b *board.Board) {
	for _, via := range b.Vias {
		x, y := camera.WorldToScreen(via.Position)
		radius := via.Size / 2.0 * camera.Zoom
		if radius < 2.0 {
			radius = 2.0
		}
		renderCircle(gtx, x, y, radius, ColorVia)

		drillRadius := via.Drill / 2.0 * camera.Zoom
		if drillRadius < 1.0 {
			drillRadius = 1.0
		}
		if drillRadius < radius {
			renderCircle(gtx, x, y, drillRadius, ColorViaDrill)
		}
	}
}

// renderCircle renders a simple filled circle.
func renderCircle(gtx layout.Context, x, y, radius float64, fillColor color.NRGBA) {
	stack := op.Affine(f32.Affine2D{}.Offset(f32.Pt(float32(x), float32(y)))).Push(gtx.Ops)
	defer stack.Pop()

	rect := image.Rectangle{
		Min: image.Pt(int(-radius), int(-radius)),
		Max: image.Pt(int(radius), int(radius)),
	}
	paint.FillShape(gtx.Ops, fillColor, clip.Ellipse(rect).Op(gtx.Ops))
}
