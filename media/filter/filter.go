// Package filter composes colour and effect operations into a single chain that is
// applied atomically when a raster is drawn.
//
// Operations always run in the canonical order
//
//	grayscale → sepia → invert → brightness → contrast → blur → saturate → hue-rotate → opacity
//
// regardless of how the parameters were supplied, because the visual result of the
// composition is order sensitive.
package filter

import (
	"strconv"
	"strings"
)

// Kind identifies a single filter primitive.
type Kind int

const (
	Grayscale Kind = iota
	Sepia
	Invert
	Brightness
	Contrast
	Blur
	Saturate
	HueRotate
	Opacity
)

var kindNames = [...]string{
	Grayscale:  "grayscale",
	Sepia:      "sepia",
	Invert:     "invert",
	Brightness: "brightness",
	Contrast:   "contrast",
	Blur:       "blur",
	Saturate:   "saturate",
	HueRotate:  "hue-rotate",
	Opacity:    "opacity",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Params holds the typed filter parameters of a configuration.
type Params struct {
	Grayscale bool `json:"grayscale" mapstructure:"grayscale"`
	Sepia     bool `json:"sepia" mapstructure:"sepia"`
	Invert    bool `json:"invert" mapstructure:"invert"`

	// Multipliers, 1 is identity.
	Brightness float64 `json:"brightness" mapstructure:"brightness" default:"1"`
	Contrast   float64 `json:"contrast" mapstructure:"contrast" default:"1"`
	Saturation float64 `json:"saturation" mapstructure:"saturation" default:"1"`

	// Blur radius in pixels.
	Blur float64 `json:"blur" mapstructure:"blur"`
	// HueRotate in degrees.
	HueRotate float64 `json:"hueRotate" mapstructure:"hue-rotate"`
	// Opacity multiplier in [0,1].
	Opacity float64 `json:"opacity" mapstructure:"opacity" default:"1"`
}

// Identity returns parameters that leave a raster unchanged.
func Identity() Params {
	return Params{Brightness: 1, Contrast: 1, Saturation: 1, Opacity: 1}
}

// Op is one operation of a Chain.
type Op struct {
	Kind   Kind
	Amount float64
}

// String renders the op as a filter token, e.g. "blur(2px)".
func (o Op) String() string {
	switch o.Kind {
	case Grayscale, Sepia, Invert:
		return o.Kind.String() + "(" + formatFloat(o.Amount*100) + "%)"
	case Blur:
		return o.Kind.String() + "(" + formatFloat(o.Amount) + "px)"
	case HueRotate:
		return o.Kind.String() + "(" + formatFloat(o.Amount) + "deg)"
	default:
		return o.Kind.String() + "(" + formatFloat(o.Amount) + ")"
	}
}

// identity reports whether the op leaves pixels unchanged.
func (o Op) identity() bool {
	switch o.Kind {
	case Grayscale, Sepia, Invert, Blur, HueRotate:
		return o.Amount == 0
	default:
		return o.Amount == 1
	}
}

// Chain is an ordered list of filter operations.
type Chain []Op

// Compose builds the chain for p in canonical order. Disabled toggles, a zero blur and a
// zero hue rotation are omitted; the multipliers are always present since their
// identity tokens are harmless.
func Compose(p Params) Chain {
	chain := make(Chain, 0, len(kindNames))
	if p.Grayscale {
		chain = append(chain, Op{Kind: Grayscale, Amount: 1})
	}
	if p.Sepia {
		chain = append(chain, Op{Kind: Sepia, Amount: 1})
	}
	if p.Invert {
		chain = append(chain, Op{Kind: Invert, Amount: 1})
	}
	chain = append(chain,
		Op{Kind: Brightness, Amount: p.Brightness},
		Op{Kind: Contrast, Amount: p.Contrast},
	)
	if p.Blur != 0 {
		chain = append(chain, Op{Kind: Blur, Amount: p.Blur})
	}
	chain = append(chain, Op{Kind: Saturate, Amount: p.Saturation})
	if p.HueRotate != 0 {
		chain = append(chain, Op{Kind: HueRotate, Amount: p.HueRotate})
	}
	return append(chain, Op{Kind: Opacity, Amount: p.Opacity})
}

// String renders the space-joined filter expression.
func (c Chain) String() string {
	if len(c) == 0 {
		return "none"
	}
	tokens := make([]string, len(c))
	for i, op := range c {
		tokens[i] = op.String()
	}
	return strings.Join(tokens, " ")
}

// IsIdentity reports whether applying the chain would leave pixels unchanged.
func (c Chain) IsIdentity() bool {
	for _, op := range c {
		if !op.identity() {
			return false
		}
	}
	return true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
