package render

import "image/color"

// Copper layer colors, KiCad classic theme.
var layerColors = map[string]color.NRGBA{
	"F.Cu":   {R: 200, G: 52, B: 52, A: 255},  // Front copper (red)
	"B.Cu":   {R: 77, G: 127, B: 196, A: 255}, // Back copper (blue)
	"In1.Cu": {R: 127, G: 200, B: 127, A: 255},
	"In2.Cu": {R: 206, G: 125, B: 44, A: 255},
}

// Special colors
var (
	ColorVia        = color.NRGBA{R: 236, G: 236, B: 236, A: 255} // Via (light gray)
	ColorViaDrill   = color.NRGBA{R: 227, G: 183, B: 46, A: 255}  // Via drill (gold)
	ColorBackground = color.NRGBA{R: 0, G: 16, B: 35, A: 255}     // Background (dark blue)
	ColorHighlight  = color.NRGBA{R: 255, G: 255, B: 0, A: 255}   // Highlighted net (yellow)
	ColorGhost      = color.NRGBA{R: 160, G: 160, B: 160, A: 90}  // Pre-smoothing overlay
)

// GetLayerColor returns the color for a given copper layer name.
func GetLayerColor(layer string) color.NRGBA {
	if c, ok := layerColors[layer]; ok {
		return c
	}
	// Default to gray for unknown layers
	return color.NRGBA{R: 128, G: 128, B: 128, A: 255}
}
