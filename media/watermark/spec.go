// Package watermark draws image or text marks onto an already rendered surface.
package watermark

import (
	"fmt"
	"strings"

	"github.com/leeforge/imageproc/errors"
	"github.com/leeforge/imageproc/media/raster"
)

// Kind tags the watermark variant.
type Kind string

const (
	KindImage Kind = "image"
	KindText  Kind = "text"
)

// Position anchors a single (non-tiled) text mark.
type Position string

const (
	TopLeft     Position = "top-left"
	TopRight    Position = "top-right"
	BottomLeft  Position = "bottom-left"
	BottomRight Position = "bottom-right"
	Center      Position = "center"
)

// Repeat selects between a single placement and tiling.
type Repeat string

const (
	NoRepeat Repeat = "no-repeat"
	Tile     Repeat = "repeat"
	Cover    Repeat = "cover"
)

const (
	DefaultFont    = "24px Arial"
	DefaultColor   = "rgba(255, 255, 255, 0.5)"
	DefaultOpacity = 0.5
)

// Spec describes one watermark. Build it with NewImage or NewText.
type Spec struct {
	Kind     Kind
	Position Position
	Repeat   Repeat

	// Image marks only.
	Image raster.Source

	// Text marks only.
	Text    string
	Font    string
	Color   string
	Opacity float64
	// Angle rotates tiled text, in degrees.
	Angle float64
}

// Option customises a Spec.
type Option func(*Spec)

func WithPosition(p Position) Option { return func(s *Spec) { s.Position = p } }
func WithRepeat(r Repeat) Option     { return func(s *Spec) { s.Repeat = r } }
func WithFont(font string) Option    { return func(s *Spec) { s.Font = font } }
func WithColor(color string) Option  { return func(s *Spec) { s.Color = color } }
func WithOpacity(o float64) Option   { return func(s *Spec) { s.Opacity = o } }
func WithAngle(deg float64) Option   { return func(s *Spec) { s.Angle = deg } }

// NewImage returns an image watermark loaded from src.
func NewImage(src raster.Source, opts ...Option) *Spec {
	return build(&Spec{Kind: KindImage, Image: src}, opts)
}

// NewText returns a text watermark.
func NewText(text string, opts ...Option) *Spec {
	return build(&Spec{
		Kind:    KindText,
		Text:    text,
		Font:    DefaultFont,
		Color:   DefaultColor,
		Opacity: DefaultOpacity,
	}, opts)
}

func build(s *Spec, opts []Option) *Spec {
	s.Position = BottomRight
	s.Repeat = NoRepeat
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tiled reports whether the mark is repeated across the canvas.
func (s *Spec) Tiled() bool {
	return s.Repeat == Tile || s.Repeat == Cover
}

// Validate rejects structurally unusable specs. Numeric values are not range checked.
func (s *Spec) Validate() error {
	switch s.Kind {
	case KindImage:
		if s.Image.URL == "" && s.Image.Image == nil {
			return errors.NewInvalidConfig("watermark.image", "", "image watermark without source")
		}
	case KindText:
		if s.Text == "" {
			return errors.NewInvalidConfig("watermark.text", "", "text watermark without text")
		}
	default:
		return errors.NewInvalidConfig("watermark.kind", s.Kind, "unknown watermark kind")
	}
	switch s.Position {
	case TopLeft, TopRight, BottomLeft, BottomRight, Center:
	default:
		return errors.NewInvalidConfig("watermark.position", s.Position, "unknown position")
	}
	switch s.Repeat {
	case NoRepeat, Tile, Cover:
	default:
		return errors.NewInvalidConfig("watermark.repeat", s.Repeat, "unknown repeat mode")
	}
	return nil
}

func (s *Spec) String() string {
	if s.Kind == KindImage {
		return fmt.Sprintf("image(%s, %s)", s.Image, s.Repeat)
	}
	return fmt.Sprintf("text(%q, %s, %s)", s.Text, s.Position, s.Repeat)
}

// FromAttribute converts the single string attribute used by markup collaborators:
// http(s) and data URIs become image marks, anything else is text.
func FromAttribute(value string, hints raster.Hints, opts ...Option) *Spec {
	lower := strings.ToLower(value)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:") {
		return NewImage(raster.FromURL(value, hints), opts...)
	}
	return NewText(value, opts...)
}
