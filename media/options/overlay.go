package options

import (
	"github.com/leeforge/imageproc/errors"
	"github.com/leeforge/imageproc/json"
	"github.com/leeforge/imageproc/media/raster"
	"github.com/leeforge/imageproc/media/watermark"
)

// Overlay is a partial configuration. Nil fields leave the underlying value untouched.
// JSON and mapstructure names follow the markup attribute names.
type Overlay struct {
	Width      *int `json:"width,omitempty" mapstructure:"width"`
	Height     *int `json:"height,omitempty" mapstructure:"height"`
	CropX      *int `json:"cropX,omitempty" mapstructure:"crop-x"`
	CropY      *int `json:"cropY,omitempty" mapstructure:"crop-y"`
	CropWidth  *int `json:"cropWidth,omitempty" mapstructure:"crop-width"`
	CropHeight *int `json:"cropHeight,omitempty" mapstructure:"crop-height"`

	Grayscale  *bool    `json:"grayscale,omitempty" mapstructure:"grayscale"`
	Sepia      *bool    `json:"sepia,omitempty" mapstructure:"sepia"`
	Invert     *bool    `json:"invert,omitempty" mapstructure:"invert"`
	Brightness *float64 `json:"brightness,omitempty" mapstructure:"brightness"`
	Contrast   *float64 `json:"contrast,omitempty" mapstructure:"contrast"`
	Blur       *float64 `json:"blur,omitempty" mapstructure:"blur"`
	Saturation *float64 `json:"saturation,omitempty" mapstructure:"saturation"`
	HueRotate  *float64 `json:"hueRotate,omitempty" mapstructure:"hue-rotate"`
	Opacity    *float64 `json:"opacity,omitempty" mapstructure:"opacity"`
	Rotate     *float64 `json:"rotate,omitempty" mapstructure:"rotate"`

	Format  *string  `json:"outputFormat,omitempty" mapstructure:"output-format"`
	Quality *float64 `json:"quality,omitempty" mapstructure:"quality"`

	AltText        *string           `json:"altText,omitempty" mapstructure:"alt-text"`
	Style          map[string]string `json:"style,omitempty" mapstructure:"style"`
	CrossOrigin    *string           `json:"crossorigin,omitempty" mapstructure:"crossorigin"`
	Decoding       *string           `json:"decoding,omitempty" mapstructure:"decoding"`
	ReferrerPolicy *string           `json:"referrerPolicy,omitempty" mapstructure:"referrer-policy"`
	Loading        *string           `json:"loading,omitempty" mapstructure:"loading"`
	Srcset         *string           `json:"srcset,omitempty" mapstructure:"srcset"`
	Sizes          *string           `json:"sizes,omitempty" mapstructure:"sizes"`

	// Watermark is an already typed mark. It takes precedence over WatermarkAttr.
	Watermark *watermark.Spec `json:"-" mapstructure:"-"`

	// WatermarkAttr is the single markup attribute: a URL for image marks, otherwise text.
	WatermarkAttr     *string         `json:"watermark,omitempty" mapstructure:"watermark"`
	WatermarkPosition *string         `json:"watermarkPosition,omitempty" mapstructure:"watermark-position"`
	WatermarkRepeat   *string         `json:"watermarkRepeat,omitempty" mapstructure:"watermark-repeat"`
	WatermarkAngle    *float64        `json:"watermarkAngle,omitempty" mapstructure:"watermark-angle"`
	WatermarkStyle    *WatermarkStyle `json:"watermarkStyle,omitempty" mapstructure:"watermark-style"`
}

// WatermarkStyle carries the text mark styling attributes.
type WatermarkStyle struct {
	FontSize   *string  `json:"fontSize,omitempty" mapstructure:"font-size"`
	FontFamily *string  `json:"fontFamily,omitempty" mapstructure:"font-family"`
	Color      *string  `json:"color,omitempty" mapstructure:"color"`
	Opacity    *float64 `json:"opacity,omitempty" mapstructure:"opacity"`
}

// ParseOverlay decodes a JSON overlay.
func ParseOverlay(data []byte) (Overlay, error) {
	var o Overlay
	if err := json.Unmarshal(data, &o); err != nil {
		return Overlay{}, errors.NewInvalidConfig("overlay", string(data), "malformed JSON").WithInnerError(err)
	}
	return o, nil
}

// Merge applies overlays over base in order and returns a new Config. base is not
// modified.
func Merge(base Config, overlays ...Overlay) Config {
	out := base.Clone()
	for _, o := range overlays {
		o.apply(&out)
	}
	return out
}

func (o Overlay) apply(c *Config) {
	if o.Width != nil {
		c.Width = clonePtr(o.Width)
	}
	if o.Height != nil {
		c.Height = clonePtr(o.Height)
	}
	set(&c.Crop.X, o.CropX)
	set(&c.Crop.Y, o.CropY)
	if o.CropWidth != nil {
		c.Crop.Width = clonePtr(o.CropWidth)
	}
	if o.CropHeight != nil {
		c.Crop.Height = clonePtr(o.CropHeight)
	}

	f := &c.Filters
	set(&f.Grayscale, o.Grayscale)
	set(&f.Sepia, o.Sepia)
	set(&f.Invert, o.Invert)
	set(&f.Brightness, o.Brightness)
	set(&f.Contrast, o.Contrast)
	set(&f.Blur, o.Blur)
	set(&f.Saturation, o.Saturation)
	set(&f.HueRotate, o.HueRotate)
	set(&f.Opacity, o.Opacity)
	set(&c.Rotate, o.Rotate)

	set(&c.Format, o.Format)
	set(&c.Quality, o.Quality)
	set(&c.AltText, o.AltText)
	if o.Style != nil {
		style := make(map[string]string, len(c.Style)+len(o.Style))
		for k, v := range c.Style {
			style[k] = v
		}
		for k, v := range o.Style {
			style[k] = v
		}
		c.Style = style
	}

	h := &c.Hints
	set(&h.CrossOrigin, o.CrossOrigin)
	set(&h.Decoding, o.Decoding)
	set(&h.ReferrerPolicy, o.ReferrerPolicy)
	set(&h.Loading, o.Loading)
	set(&h.Srcset, o.Srcset)
	set(&h.Sizes, o.Sizes)

	o.applyWatermark(c)
}

func (o Overlay) applyWatermark(c *Config) {
	switch {
	case o.Watermark != nil:
		wm := *o.Watermark
		c.Watermark = &wm
	case o.WatermarkAttr != nil && *o.WatermarkAttr == "":
		c.Watermark = nil
	case o.WatermarkAttr != nil:
		c.Watermark = watermark.FromAttribute(*o.WatermarkAttr, raster.Hints{CrossOrigin: "anonymous"})
	}
	if c.Watermark == nil {
		return
	}

	wm := *c.Watermark
	if o.WatermarkPosition != nil {
		wm.Position = watermark.Position(*o.WatermarkPosition)
	}
	if o.WatermarkRepeat != nil {
		wm.Repeat = watermark.Repeat(*o.WatermarkRepeat)
	}
	set(&wm.Angle, o.WatermarkAngle)
	if s := o.WatermarkStyle; s != nil && wm.Kind == watermark.KindText {
		size, family := splitFont(wm.Font)
		set(&size, s.FontSize)
		set(&family, s.FontFamily)
		wm.Font = size + " " + family
		set(&wm.Color, s.Color)
		set(&wm.Opacity, s.Opacity)
	}
	c.Watermark = &wm
}

// splitFont splits "24px Arial" into its size and family parts.
func splitFont(font string) (string, string) {
	for i := 0; i < len(font); i++ {
		if font[i] == ' ' {
			return font[:i], font[i+1:]
		}
	}
	return font, "sans-serif"
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
