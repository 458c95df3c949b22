// Package options holds the immutable per-request configuration and the partial
// overlays merged on top of a default template.
package options

import (
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/leeforge/imageproc/errors"
	"github.com/leeforge/imageproc/media/filter"
	"github.com/leeforge/imageproc/media/raster"
	"github.com/leeforge/imageproc/media/watermark"
)

// Crop selects the source sub-region. Nil or zero Width/Height mean the full source extent.
type Crop struct {
	X      int
	Y      int
	Width  *int
	Height *int
}

// Config is the merged configuration of one request. Treat it as a value: Merge and
// the With* helpers return copies.
type Config struct {
	// Nil dimensions fall back to the source size.
	Width  *int
	Height *int
	Crop   Crop

	Filters filter.Params
	// Rotate in degrees, any real value.
	Rotate float64

	Watermark *watermark.Spec

	Format  string  `default:"image/png" validate:"required"`
	Quality float64 `default:"0.92"`

	Hints   raster.Hints
	AltText string `default:"Processed image"`
	Style   map[string]string
}

var validate = validator.New()

// Defaults returns the library-wide default configuration.
func Defaults() Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(err)
	}
	return c
}

// Validate rejects structurally invalid configurations. Filter amounts, rotation and
// quality are never range checked.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewInvalidConfig(fe.Namespace(), fe.Value(), fe.Tag())
		}
		return errors.NewInvalidConfig("config", nil, err.Error())
	}
	if c.Width != nil && *c.Width < 0 {
		return errors.NewInvalidConfig("width", *c.Width, "negative dimension")
	}
	if c.Height != nil && *c.Height < 0 {
		return errors.NewInvalidConfig("height", *c.Height, "negative dimension")
	}
	if c.Watermark != nil {
		return c.Watermark.Validate()
	}
	return nil
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := c
	out.Width = clonePtr(c.Width)
	out.Height = clonePtr(c.Height)
	out.Crop.Width = clonePtr(c.Crop.Width)
	out.Crop.Height = clonePtr(c.Crop.Height)
	if c.Watermark != nil {
		wm := *c.Watermark
		out.Watermark = &wm
	}
	if c.Style != nil {
		out.Style = make(map[string]string, len(c.Style))
		for k, v := range c.Style {
			out.Style[k] = v
		}
	}
	return out
}

// FilterChain derives the composed filter chain from the typed parameters.
func (c Config) FilterChain() filter.Chain {
	return filter.Compose(c.Filters)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Int returns a pointer to v, for optional dimension fields.
func Int(v int) *int { return &v }
