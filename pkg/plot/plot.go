// Package plot renders a recorded pose trace to a PNG so a class can
// compare the shape the robot thought it drove with the one on the floor.
package plot

import (
	"fmt"
	"math"

	"github.com/fogleman/gg"

	"github.com/kiwibots/spikedrive/pkg/sequence"
)

const (
	canvasPx = 800
	marginPx = 40
)

// Render draws the trace as a polyline, start marker (green) and end
// marker (red), and writes it to path as a PNG.
func Render(trace []sequence.Pose, path string) error {
	if len(trace) < 2 {
		return fmt.Errorf("trace too short to plot: %d poses", len(trace))
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range trace {
		minX = math.Min(minX, p.XMM)
		minY = math.Min(minY, p.YMM)
		maxX = math.Max(maxX, p.XMM)
		maxY = math.Max(maxY, p.YMM)
	}
	span := math.Max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	scale := float64(canvasPx-2*marginPx) / span

	// Flip Y so +Y (robot's left) is up in the image.
	toCanvas := func(p sequence.Pose) (float64, float64) {
		x := marginPx + (p.XMM-minX)*scale
		y := canvasPx - marginPx - (p.YMM-minY)*scale
		return x, y
	}

	dc := gg.NewContext(canvasPx, canvasPx)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGB(0.1, 0.1, 0.1)
	dc.SetLineWidth(2)
	for i := 1; i < len(trace); i++ {
		x0, y0 := toCanvas(trace[i-1])
		x1, y1 := toCanvas(trace[i])
		dc.DrawLine(x0, y0, x1, y1)
	}
	dc.Stroke()

	x, y := toCanvas(trace[0])
	dc.SetRGB(0, 0.7, 0)
	dc.DrawCircle(x, y, 6)
	dc.Fill()

	x, y = toCanvas(trace[len(trace)-1])
	dc.SetRGB(0.8, 0, 0)
	dc.DrawCircle(x, y, 6)
	dc.Fill()

	return dc.SavePNG(path)
}
