package canvas

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/imageproc/media/filter"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// quadrants builds a w×h image with red, green, blue and white quadrants (clockwise from top-left).
func quadrants(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			switch {
			case x < w/2 && y < h/2:
				img.SetRGBA(x, y, red)
			case y < h/2:
				img.SetRGBA(x, y, green)
			case x >= w/2:
				img.SetRGBA(x, y, blue)
			default:
				img.SetRGBA(x, y, white)
			}
		}
	}
	return img
}

func assertColor(t *testing.T, want color.RGBA, got color.Color, msgAndArgs ...any) {
	t.Helper()
	r, g, b, a := got.RGBA()
	assert.InDelta(t, want.R, r>>8, 2, msgAndArgs...)
	assert.InDelta(t, want.G, g>>8, 2, msgAndArgs...)
	assert.InDelta(t, want.B, b>>8, 2, msgAndArgs...)
	assert.InDelta(t, want.A, a>>8, 2, msgAndArgs...)
}

func TestNewSurface(t *testing.T) {
	s := NewSurface(40, 30)
	assert.Equal(t, 40, s.Width())
	assert.Equal(t, 30, s.Height())
	assertColor(t, color.RGBA{}, s.Image().At(5, 5))

	empty := NewSurface(-1, 10)
	assert.Zero(t, empty.Width())
}

func TestDrawImageIdentity(t *testing.T) {
	src := quadrants(40, 40)
	s := NewSurface(40, 40)
	s.DrawImage(src, Rect{W: 40, H: 40}, Rect{W: 40, H: 40})

	assertColor(t, red, s.Image().At(5, 5))
	assertColor(t, green, s.Image().At(35, 5))
	assertColor(t, blue, s.Image().At(35, 35))
	assertColor(t, white, s.Image().At(5, 35))
}

func TestDrawImageRotateAboutCentre(t *testing.T) {
	src := quadrants(40, 20)
	s := NewSurface(40, 20)
	s.Save()
	s.Translate(20, 10)
	s.Rotate(math.Pi)
	s.Translate(-20, -10)
	s.DrawImage(src, Rect{W: 40, H: 20}, Rect{W: 40, H: 20})
	s.Restore()

	// (x, y) lands at (W-x, H-y)
	assertColor(t, blue, s.Image().At(5, 3))
	assertColor(t, white, s.Image().At(35, 3))
	assertColor(t, red, s.Image().At(35, 16))
	assertColor(t, green, s.Image().At(5, 16))
	assert.Equal(t, identity(), s.Transform())
}

func TestDrawImageScalesCrop(t *testing.T) {
	src := quadrants(40, 40)
	s := NewSurface(10, 10)
	s.DrawImage(src, Rect{X: 20, Y: 20, W: 20, H: 20}, Rect{W: 10, H: 10})

	assertColor(t, blue, s.Image().At(5, 5))
}

func TestDrawImageCropPastBounds(t *testing.T) {
	src := quadrants(20, 20)
	s := NewSurface(40, 40)
	// the crop extends 20px beyond the raster on both axes
	s.DrawImage(src, Rect{W: 40, H: 40}, Rect{W: 40, H: 40})

	assertColor(t, red, s.Image().At(2, 2))
	assertColor(t, color.RGBA{}, s.Image().At(30, 30))
	assertColor(t, color.RGBA{}, s.Image().At(2, 30))
}

func TestDrawImageWithFilter(t *testing.T) {
	src := quadrants(20, 20)
	s := NewSurface(20, 20)
	s.Save()
	s.SetFilter(filter.Chain{{Kind: filter.Invert, Amount: 1}})
	s.DrawImage(src, Rect{W: 20, H: 20}, Rect{W: 20, H: 20})
	s.Restore()

	assertColor(t, color.RGBA{G: 255, B: 255, A: 255}, s.Image().At(2, 2))
	assertColor(t, color.RGBA{A: 255}, s.Image().At(2, 17))
}

func TestGlobalAlpha(t *testing.T) {
	s := NewSurface(10, 10)
	s.SetGlobalAlpha(0.5)
	s.SetGlobalAlpha(3)
	s.FillPattern(quadrants(10, 10), false, Rect{W: 10, H: 10})

	_, _, _, a := s.Image().At(2, 2).RGBA()
	assert.InDelta(t, 128, int(a>>8), 1)
}

func TestFillPatternRepeat(t *testing.T) {
	tile := quadrants(10, 10)
	s := NewSurface(30, 20)
	s.FillPattern(tile, true, Rect{W: 30, H: 20})

	assertColor(t, red, s.Image().At(12, 2))
	assertColor(t, blue, s.Image().At(28, 18))

	single := NewSurface(30, 20)
	single.FillPattern(tile, false, Rect{W: 30, H: 20})
	assertColor(t, color.RGBA{}, single.Image().At(22, 2))
}

func TestSaveRestore(t *testing.T) {
	s := NewSurface(10, 10)
	s.SetFont("24px serif")
	s.SetGlobalAlpha(0.3)
	s.Save()
	s.SetFont("48px serif")
	s.SetGlobalAlpha(0.9)
	s.Translate(3, 4)
	wide := s.MeasureText("watermark")
	s.Restore()
	s.Restore()

	assert.Equal(t, 0.3, s.cur.alpha)
	assert.Equal(t, identity(), s.Transform())
	assert.Less(t, s.MeasureText("watermark"), wide)
}

func TestSetFillColor(t *testing.T) {
	s := NewSurface(1, 1)
	s.SetFillColor("rgba(255, 0, 0, 0.5)")
	assert.Equal(t, uint8(255), s.cur.fill.R)
	assert.InDelta(t, 128, int(s.cur.fill.A), 1)

	s.SetFillColor("not a colour")
	assert.Equal(t, uint8(255), s.cur.fill.R)
	assert.InDelta(t, 128, int(s.cur.fill.A), 1)
}

func TestFillText(t *testing.T) {
	s := NewSurface(200, 60)
	s.SetFont("32px sans-serif")
	s.SetFillColor("#ffffff")
	s.FillText("Hello", 10, 40)

	painted := 0
	for y := 0; y < 60; y++ {
		for x := 0; x < 200; x++ {
			if _, _, _, a := s.Image().At(x, y).RGBA(); a > 0 {
				painted++
			}
		}
	}
	assert.Positive(t, painted)
	assertColor(t, color.RGBA{}, s.Image().At(195, 5))
}

func TestMeasureText(t *testing.T) {
	s := NewSurface(1, 1)
	s.SetFont("20px sans-serif")
	short := s.MeasureText("ab")
	long := s.MeasureText("abcdef")
	assert.Positive(t, short)
	assert.Greater(t, long, short)
	assert.Zero(t, s.MeasureText(""))
}

func TestParseFont(t *testing.T) {
	tests := []struct {
		in   string
		want FontSpec
		ok   bool
	}{
		{"24px Arial", FontSpec{Size: 24}, true},
		{"bold 16px sans-serif", FontSpec{Size: 16, Bold: true}, true},
		{"italic bold 12pt monospace", FontSpec{Size: 16, Bold: true, Italic: true, Mono: true}, true},
		{"14px/1.5 'Courier New'", FontSpec{Size: 14, Mono: true}, true},
		{"24px", FontSpec{}, false},
		{"Arial", FontSpec{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseFont(tt.in)
			require.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want.Size, got.Size, 1e-9)
			assert.Equal(t, tt.want.Bold, got.Bold)
			assert.Equal(t, tt.want.Italic, got.Italic)
			assert.Equal(t, tt.want.Mono, got.Mono)
		})
	}
}
