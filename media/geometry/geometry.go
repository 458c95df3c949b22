// Package geometry resolves the crop, target size and rotation of a request and
// issues the single draw of the source onto the target surface.
package geometry

import (
	"image"
	"math"

	"github.com/leeforge/imageproc/media/canvas"
	"github.com/leeforge/imageproc/media/filter"
	"github.com/leeforge/imageproc/media/options"
)

// Plan is the resolved geometry of one request. Width and Height are fixed once resolved.
type Plan struct {
	// Crop is the source region, in source pixels.
	Crop   canvas.Rect
	Width  int
	Height int
	// Angle in degrees, normalised into [0, 360).
	Angle float64
}

// Resolve computes the plan for a srcW×srcH source. The crop origin is clamped into the
// source; the crop extent defaults to the full source size and is otherwise kept as
// given, so a crop running past the source edge draws only the overlapping part.
// A zero dimension counts as unset. Crop and target size are independent.
func Resolve(srcW, srcH int, cfg options.Config) Plan {
	p := Plan{
		Width:  orDefault(cfg.Width, srcW),
		Height: orDefault(cfg.Height, srcH),
		Angle:  NormalizeAngle(cfg.Rotate),
	}

	p.Crop = canvas.Rect{
		X: float64(clamp(cfg.Crop.X, 0, srcW)),
		Y: float64(clamp(cfg.Crop.Y, 0, srcH)),
		W: float64(orDefault(cfg.Crop.Width, srcW)),
		H: float64(orDefault(cfg.Crop.Height, srcH)),
	}
	return p
}

// Draw renders img onto d. Rotation pivots on the centre of the target: the origin is
// moved to the centre, rotated and moved back before the draw. The transform and the
// filter are scoped to this draw.
func (p Plan) Draw(d canvas.Drawer, img image.Image, chain filter.Chain) {
	d.Save()
	defer d.Restore()

	if p.Angle != 0 {
		cx, cy := float64(p.Width)/2, float64(p.Height)/2
		d.Translate(cx, cy)
		d.Rotate(p.Angle * math.Pi / 180)
		d.Translate(-cx, -cy)
	}
	d.SetFilter(chain)
	d.DrawImage(img, p.Crop, canvas.Rect{W: float64(p.Width), H: float64(p.Height)})
}

// NormalizeAngle maps any angle in degrees into [0, 360).
func NormalizeAngle(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	return a
}

func orDefault(v *int, def int) int {
	if v == nil || *v <= 0 {
		return def
	}
	return *v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
