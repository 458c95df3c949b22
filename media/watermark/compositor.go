package watermark

import (
	"image"
	"math"

	"github.com/nfnt/resize"

	"github.com/leeforge/imageproc/media/canvas"
)

// Tile grid step of repeated text marks.
const (
	TileStepX = 200
	TileStepY = 100
)

// Margins of a single text mark.
const (
	marginX   = 10
	topY      = 30
	bottomGap = 10
)

// DrawImage composites an image mark over the full canvas. Cover tiles the mark at its
// native size; every other mode draws it once, scaled to the canvas. Position is not
// used for image marks.
func DrawImage(d canvas.Drawer, mark image.Image, spec *Spec) {
	w, h := d.Width(), d.Height()
	if mark == nil || w == 0 || h == 0 {
		return
	}
	d.Save()
	defer d.Restore()

	full := canvas.Rect{W: float64(w), H: float64(h)}
	if spec.Repeat == Cover {
		d.FillPattern(mark, true, full)
		return
	}
	scaled := resize.Resize(uint(w), uint(h), mark, resize.Lanczos3)
	d.FillPattern(scaled, false, full)
}

// DrawText draws a text mark with the spec's font, colour and opacity. The drawing
// state is restored on return.
func DrawText(d canvas.Drawer, spec *Spec) {
	w, h := float64(d.Width()), float64(d.Height())
	d.Save()
	defer d.Restore()

	d.SetFont(spec.Font)
	d.SetFillColor(spec.Color)
	d.SetGlobalAlpha(spec.Opacity)

	if spec.Tiled() {
		angle := spec.Angle * math.Pi / 180
		d.Translate(w/2, h/2)
		d.Rotate(angle)
		for x := -w; x < w; x += TileStepX {
			for y := -h; y < h; y += TileStepY {
				d.FillText(spec.Text, x, y)
			}
		}
		d.Rotate(-angle)
		d.Translate(-w/2, -h/2)
		return
	}

	x, y := Anchor(spec.Position, w, h, d.MeasureText(spec.Text))
	d.FillText(spec.Text, x, y)
}

// Anchor returns the baseline origin of a single text mark of the given width.
func Anchor(p Position, w, h, textWidth float64) (float64, float64) {
	if p == Center {
		return (w - textWidth) / 2, h / 2
	}
	x, y := float64(marginX), float64(topY)
	if p == TopRight || p == BottomRight {
		x = w - textWidth - marginX
	}
	if p == BottomLeft || p == BottomRight {
		y = h - bottomGap
	}
	return x, y
}

// TileCount is the number of FillText calls a tiled text mark makes on a w×h canvas.
func TileCount(w, h int) int {
	cols := int(math.Ceil(float64(2*w) / TileStepX))
	rows := int(math.Ceil(float64(2*h) / TileStepY))
	return cols * rows
}
