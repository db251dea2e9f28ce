package render

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceSmooth/pkg/kicad/board"
)

// Camera represents a viewport onto a board.
type Camera struct {
	// Center position in world coordinates (mm)
	CenterX float64
	CenterY float64

	// Zoom level (pixels per mm)
	Zoom float64

	// Screen dimensions (pixels)
	ScreenWidth  int
	ScreenHeight int

	// View controls
	FlipView bool    // true = mirrored view
	Rotation float64 // rotation in degrees

	// Rotation center (world coordinates in mm)
	RotationCenterX float64
	RotationCenterY float64
}

// NewCamera creates a camera with default settings.
func NewCamera(screenWidth, screenHeight int) *Camera {
	return &Camera{
		Zoom:         10.0, // 10 pixels per mm is a reasonable default
		ScreenWidth:  screenWidth,
		ScreenHeight: screenHeight,
	}
}

// WorldToScreen converts world coordinates (mm) to screen coordinates
// (pixels). Board files have Y increasing downward, same as the
// screen, so no axis flip happens here.
func (c *Camera) WorldToScreen(pos geom.Point) (float64, float64) {
	pos = c.applyViewTransform(pos)

	x := (pos.X - c.CenterX) * c.Zoom
	y := (pos.Y - c.CenterY) * c.Zoom

	x += float64(c.ScreenWidth) / 2.0
	y += float64(c.ScreenHeight) / 2.0
	return x, y
}

// ScreenToWorld converts screen coordinates (pixels) to world
// coordinates (mm).
func (c *Camera) ScreenToWorld(screenX, screenY float64) geom.Point {
	x := screenX - float64(c.ScreenWidth)/2.0
	y := screenY - float64(c.ScreenHeight)/2.0

	x /= c.Zoom
	y /= c.Zoom

	x += c.CenterX
	y += c.CenterY

	return c.applyInverseViewTransform(geom.Pt(x, y))
}

// Pan moves the camera by screen pixel offsets.
func (c *Camera) Pan(deltaX, deltaY float64) {
	c.CenterX -= deltaX / c.Zoom
	c.CenterY -= deltaY / c.Zoom
}

// ZoomAt zooms in/out at a specific screen position.
// factor > 1 zooms in, factor < 1 zooms out.
func (c *Camera) ZoomAt(screenX, screenY, factor float64) {
	worldPos := c.ScreenToWorld(screenX, screenY)

	c.Zoom *= factor
	if c.Zoom < 0.1 {
		c.Zoom = 0.1
	}
	if c.Zoom > 1000.0 {
		c.Zoom = 1000.0
	}

	// Keep the point under the cursor stationary.
	newWorldPos := c.ScreenToWorld(screenX, screenY)
	c.CenterX += worldPos.X - newWorldPos.X
	c.CenterY += worldPos.Y - newWorldPos.Y
}

// Fit adjusts the camera to fit the entire content in view.
func (c *Camera) Fit(bbox board.BoundingBox) {
	width := bbox.Width()
	height := bbox.Height()
	if width <= 0 || height <= 0 {
		return
	}

	center := bbox.Center()
	c.CenterX = center.X
	c.CenterY = center.Y
	c.RotationCenterX = center.X
	c.RotationCenterY = center.Y

	// Fit content with some padding (90% of screen).
	zoomX := float64(c.ScreenWidth) * 0.9 / width
	zoomY := float64(c.ScreenHeight) * 0.9 / height
	if zoomX < zoomY {
		c.Zoom = zoomX
	} else {
		c.Zoom = zoomY
	}
}

// UpdateScreenSize updates the camera when the window is resized.
func (c *Camera) UpdateScreenSize(width, height int) {
	c.ScreenWidth = width
	c.ScreenHeight = height
}

// Flip toggles the view flip state (mirrored/normal).
func (c *Camera) Flip() {
	c.FlipView = !c.FlipView
}

// Rotate rotates the view by the given degrees.
func (c *Camera) Rotate(degrees float64) {
	c.Rotation = c.Rotation + degrees
	for c.Rotation >= 360 {
		c.Rotation -= 360
	}
	for c.Rotation < 0 {
		c.Rotation += 360
	}
}

// applyViewTransform applies flip and rotation to a world position.
func (c *Camera) applyViewTransform(pos geom.Point) geom.Point {
	x := pos.X - c.RotationCenterX
	y := pos.Y - c.RotationCenterY

	if c.Rotation != 0 {
		rad := c.Rotation * math.Pi / 180.0
		cos := math.Cos(rad)
		sin := math.Sin(rad)
		x, y = x*cos-y*sin, x*sin+y*cos
	}
	if c.FlipView {
		x = -x
	}

	return geom.Pt(x+c.RotationCenterX, y+c.RotationCenterY)
}

// applyInverseViewTransform applies inverse flip and rotation.
func (c *Camera) applyInverseViewTransform(pos geom.Point) geom.Point {
	x := pos.X - c.RotationCenterX
	y := pos.Y - c.RotationCenterY

	// Inverse flip first, then inverse rotation.
	if c.FlipView {
		x = -x
	}
	if c.Rotation != 0 {
		rad := -c.Rotation * math.Pi / 180.0
		cos := math.Cos(rad)
		sin := math.Sin(rad)
		x, y = x*cos-y*sin, x*sin+y*cos
	}

	return geom.Pt(x+c.RotationCenterX, y+c.RotationCenterY)
}
