package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/imageproc/errors"
	"github.com/leeforge/imageproc/media/raster"
	"github.com/leeforge/imageproc/media/watermark"
)

func TestDefaults(t *testing.T) {
	c := Defaults()
	assert.Nil(t, c.Width)
	assert.Nil(t, c.Height)
	assert.Nil(t, c.Crop.Width)
	assert.Equal(t, "image/png", c.Format)
	assert.Equal(t, 0.92, c.Quality)
	assert.Equal(t, "Processed image", c.AltText)
	assert.Equal(t, 1.0, c.Filters.Brightness)
	assert.Equal(t, 1.0, c.Filters.Contrast)
	assert.Equal(t, 1.0, c.Filters.Saturation)
	assert.Equal(t, 1.0, c.Filters.Opacity)
	assert.Equal(t, "anonymous", c.Hints.CrossOrigin)
	assert.Equal(t, "no-referrer", c.Hints.ReferrerPolicy)
	assert.Nil(t, c.Watermark)
	assert.NoError(t, c.Validate())
	assert.Equal(t, "brightness(1) contrast(1) saturate(1) opacity(1)", c.FilterChain().String())
}

func TestMergeDoesNotMutateBase(t *testing.T) {
	base := Defaults()
	base.Width = Int(10)
	base.Style = map[string]string{"border": "1px"}

	merged := Merge(base, Overlay{
		Width: Int(300),
		Style: map[string]string{"margin": "2px"},
	})

	assert.Equal(t, 10, *base.Width)
	assert.Equal(t, map[string]string{"border": "1px"}, base.Style)
	assert.Equal(t, 300, *merged.Width)
	assert.Equal(t, map[string]string{"border": "1px", "margin": "2px"}, merged.Style)

	*merged.Width = 1
	assert.Equal(t, 10, *base.Width)
}

func TestMergeOrder(t *testing.T) {
	b := func(v float64) *float64 { return &v }
	merged := Merge(Defaults(), Overlay{Brightness: b(2)}, Overlay{Brightness: b(0.5), Contrast: b(3)})
	assert.Equal(t, 0.5, merged.Filters.Brightness)
	assert.Equal(t, 3.0, merged.Filters.Contrast)
}

func TestParseOverlay(t *testing.T) {
	o, err := ParseOverlay([]byte(`{
		"width": 400,
		"cropX": 5,
		"cropWidth": 50,
		"grayscale": true,
		"hueRotate": 90,
		"rotate": -90,
		"outputFormat": "image/jpeg",
		"quality": 0.7,
		"referrerPolicy": "origin",
		"watermark": "© Example",
		"watermarkPosition": "top-left",
		"watermarkRepeat": "repeat",
		"watermarkAngle": 30,
		"watermarkStyle": {"fontSize": "18px", "color": "#000"}
	}`))
	require.NoError(t, err)

	c := Merge(Defaults(), o)
	assert.Equal(t, 400, *c.Width)
	assert.Nil(t, c.Height)
	assert.Equal(t, 5, c.Crop.X)
	assert.Equal(t, 50, *c.Crop.Width)
	assert.True(t, c.Filters.Grayscale)
	assert.Equal(t, 90.0, c.Filters.HueRotate)
	assert.Equal(t, -90.0, c.Rotate)
	assert.Equal(t, "image/jpeg", c.Format)
	assert.Equal(t, 0.7, c.Quality)
	assert.Equal(t, "origin", c.Hints.ReferrerPolicy)

	require.NotNil(t, c.Watermark)
	wm := c.Watermark
	assert.Equal(t, watermark.KindText, wm.Kind)
	assert.Equal(t, "© Example", wm.Text)
	assert.Equal(t, watermark.TopLeft, wm.Position)
	assert.Equal(t, watermark.Tile, wm.Repeat)
	assert.Equal(t, 30.0, wm.Angle)
	assert.Equal(t, "18px Arial", wm.Font)
	assert.Equal(t, "#000", wm.Color)
	assert.Equal(t, watermark.DefaultOpacity, wm.Opacity)
	assert.NoError(t, c.Validate())
}

func TestParseOverlayMalformed(t *testing.T) {
	_, err := ParseOverlay([]byte(`{"width": "wide"`))
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidConfig))
}

func TestWatermarkAttributeImage(t *testing.T) {
	url := "https://cdn.example/logo.png"
	c := Merge(Defaults(), Overlay{WatermarkAttr: &url, WatermarkRepeat: strPtr("cover")})

	require.NotNil(t, c.Watermark)
	assert.Equal(t, watermark.KindImage, c.Watermark.Kind)
	assert.Equal(t, url, c.Watermark.Image.URL)
	assert.Equal(t, watermark.Cover, c.Watermark.Repeat)

	cleared := Merge(c, Overlay{WatermarkAttr: strPtr("")})
	assert.Nil(t, cleared.Watermark)
	assert.NotNil(t, c.Watermark)
}

func TestTypedWatermarkWins(t *testing.T) {
	spec := watermark.NewImage(raster.FromURL("https://a/b.png", raster.Hints{}))
	c := Merge(Defaults(), Overlay{Watermark: spec, WatermarkAttr: strPtr("text")})

	require.NotNil(t, c.Watermark)
	assert.Equal(t, watermark.KindImage, c.Watermark.Kind)
	assert.NotSame(t, spec, c.Watermark)
}

func TestValidate(t *testing.T) {
	c := Defaults()
	c.Format = ""
	assert.True(t, errors.IsType(c.Validate(), errors.ErrorTypeInvalidConfig))

	c = Defaults()
	c.Width = Int(-1)
	assert.True(t, errors.IsType(c.Validate(), errors.ErrorTypeInvalidConfig))

	c = Merge(Defaults(), Overlay{WatermarkAttr: strPtr("x"), WatermarkPosition: strPtr("middle")})
	assert.True(t, errors.IsType(c.Validate(), errors.ErrorTypeInvalidConfig))

	// out-of-range filter values are passed through
	c = Defaults()
	c.Filters.Blur = -4
	c.Filters.Opacity = 7
	c.Quality = 3
	assert.NoError(t, c.Validate())
}

func strPtr(s string) *string { return &s }
