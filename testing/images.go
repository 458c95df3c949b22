package testing

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

var (
	Red   = color.RGBA{R: 255, A: 255}
	Green = color.RGBA{G: 255, A: 255}
	Blue  = color.RGBA{B: 255, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Solid returns a w×h image filled with c.
func Solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// Quadrants returns a w×h image split into red, green, blue and white quadrants,
// clockwise from the top-left.
func Quadrants(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			switch {
			case x < w/2 && y < h/2:
				img.SetRGBA(x, y, Red)
			case y < h/2:
				img.SetRGBA(x, y, Green)
			case x >= w/2:
				img.SetRGBA(x, y, Blue)
			default:
				img.SetRGBA(x, y, White)
			}
		}
	}
	return img
}

// PNG encodes img.
func PNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// DataURI encodes img as a base64 PNG data URI.
func DataURI(t testing.TB, img image.Image) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(PNG(t, img))
}

// SameColor reports whether got is within tolerance of want on every channel.
func SameColor(want color.RGBA, got color.Color, tolerance int) bool {
	r, g, b, a := got.RGBA()
	near := func(w uint8, g uint32) bool {
		d := int(w) - int(g>>8)
		return d <= tolerance && d >= -tolerance
	}
	return near(want.R, r) && near(want.G, g) && near(want.B, b) && near(want.A, a)
}
