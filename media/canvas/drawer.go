// Package canvas provides the 2D drawing surface the pipeline renders into. A Surface
// keeps a stack of drawing states (transform, filter, font, fill colour and global
// alpha) so that stages can scope their changes with Save and Restore.
package canvas

import (
	"image"

	"github.com/leeforge/imageproc/media/filter"
)

// Rect is an axis-aligned rectangle in user space.
type Rect struct {
	X, Y, W, H float64
}

// Drawer is the set of drawing operations the pipeline stages depend on.
type Drawer interface {
	Width() int
	Height() int

	Save()
	Restore()

	Translate(x, y float64)
	// Rotate rotates the user space clockwise by angle radians.
	Rotate(angle float64)

	SetFilter(chain filter.Chain)
	SetFont(font string)
	SetFillColor(color string)
	SetGlobalAlpha(alpha float64)

	// DrawImage draws the src region of img scaled into dst. The src region may extend
	// past the image bounds, only the overlapping part is sampled.
	DrawImage(img image.Image, src, dst Rect)
	// FillPattern fills dst with img, tiled when repeat is true.
	FillPattern(img image.Image, repeat bool, dst Rect)
	// FillText draws text with its alphabetic baseline starting at (x, y).
	FillText(text string, x, y float64)
	MeasureText(text string) float64
}
