package layout

import "math"

// Preview zoom bounds. Zoom only affects the on-screen preview; exports are
// always rendered at scale 1 on the fixed canvas.
const (
	MinZoom     = 0.2
	MaxZoom     = 1.5
	ZoomStep    = 0.1
	DefaultZoom = 0.6
)

// ClampZoom bounds z to [MinZoom, MaxZoom] and snaps it to the zoom step.
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return DefaultZoom
	}
	z = math.Round(z/ZoomStep) * ZoomStep
	// Undo float noise from the step multiplication (0.30000000000000004).
	z = math.Round(z*100) / 100
	return clamp(z, MinZoom, MaxZoom)
}

// ZoomIn returns the next zoom level up.
func ZoomIn(z float64) float64 {
	return ClampZoom(z + ZoomStep)
}

// ZoomOut returns the next zoom level down.
func ZoomOut(z float64) float64 {
	return ClampZoom(z - ZoomStep)
}

// ZoomPercent is the zoom as shown in the toolbar.
func ZoomPercent(z float64) int {
	return int(math.Round(ClampZoom(z) * 100))
}
