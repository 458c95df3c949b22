package filter

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
)

// Apply runs every operation of the chain over img in order and returns the result.
// Amounts are handed to the primitives unvalidated; each primitive clamps on its own.
// The primitives see straight (non-premultiplied) channels so that transparent pixels
// stay transparent.
func (c Chain) Apply(img image.Image) image.Image {
	if c.IsIdentity() {
		return img
	}
	var out image.Image = straight(img)
	for _, op := range c {
		if op.identity() {
			continue
		}
		out = op.apply(out)
	}
	return asNRGBA(out)
}

// straight returns img as an *image.RGBA whose Pix holds non-premultiplied values.
func straight(img image.Image) *image.RGBA {
	b := img.Bounds()
	n := image.NewNRGBA(b)
	draw.Draw(n, b, img, b.Min, draw.Src)
	return &image.RGBA{Pix: n.Pix, Stride: n.Stride, Rect: n.Rect}
}

// asNRGBA reinterprets the straight buffer produced by straight and the
// primitives as the *image.NRGBA it really is.
func asNRGBA(img image.Image) image.Image {
	rgba, ok := img.(*image.RGBA)
	if !ok {
		b := img.Bounds()
		rgba = image.NewRGBA(b)
		draw.Draw(rgba, b, img, b.Min, draw.Src)
	}
	return &image.NRGBA{Pix: rgba.Pix, Stride: rgba.Stride, Rect: rgba.Rect}
}

func (o Op) apply(img image.Image) image.Image {
	switch o.Kind {
	case Grayscale:
		// effect.Grayscale returns an opaque *image.Gray, so the luma is computed per
		// pixel to keep the alpha channel of rotated or transparent sources.
		return adjust.Apply(img, func(c color.RGBA) color.RGBA {
			return mix(c, luma(c), o.Amount)
		})
	case Sepia:
		return effect.Sepia(img)
	case Invert:
		return effect.Invert(img)
	case Brightness:
		return adjust.Brightness(img, o.Amount-1)
	case Contrast:
		return adjust.Contrast(img, o.Amount-1)
	case Blur:
		return blur.Gaussian(img, o.Amount)
	case Saturate:
		return adjust.Saturation(img, o.Amount-1)
	case HueRotate:
		return adjust.Hue(img, int(math.Round(o.Amount)))
	case Opacity:
		a := clamp01(o.Amount)
		return adjust.Apply(img, func(c color.RGBA) color.RGBA {
			c.A = uint8(float64(c.A)*a + 0.5)
			return c
		})
	}
	return img
}

// luma uses the Rec. 709 coefficients used by the CSS grayscale() primitive.
func luma(c color.RGBA) uint8 {
	y := 0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)
	return uint8(math.Min(255, y+0.5))
}

func mix(c color.RGBA, y uint8, amount float64) color.RGBA {
	t := clamp01(amount)
	lerp := func(v uint8) uint8 {
		return uint8(float64(v)*(1-t) + float64(y)*t + 0.5)
	}
	return color.RGBA{R: lerp(c.R), G: lerp(c.G), B: lerp(c.B), A: c.A}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
