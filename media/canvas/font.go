package canvas

import (
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// DefaultFont matches the initial font of a 2D drawing context.
const DefaultFont = "10px sans-serif"

// FontSpec is a parsed CSS font shorthand.
type FontSpec struct {
	Size   float64
	Bold   bool
	Italic bool
	Mono   bool
}

// ParseFont parses shorthands such as "24px Arial" or "italic bold 12pt monospace".
// Family names are matched loosely: anything naming a monospace face selects Go Mono,
// every other family renders with Go Regular.
func ParseFont(s string) (FontSpec, bool) {
	fields := strings.Fields(strings.ToLower(s))
	spec := FontSpec{}
	sizeAt := -1
	for i, f := range fields {
		switch f {
		case "bold", "bolder", "600", "700", "800", "900":
			spec.Bold = true
			continue
		case "italic", "oblique":
			spec.Italic = true
			continue
		case "normal", "lighter", "small-caps":
			continue
		}
		if size, ok := parseSize(f); ok {
			spec.Size = size
			sizeAt = i
			break
		}
	}
	if sizeAt < 0 || sizeAt == len(fields)-1 {
		return FontSpec{}, false
	}
	family := strings.Join(fields[sizeAt+1:], " ")
	for _, m := range []string{"mono", "courier", "consolas", "menlo"} {
		if strings.Contains(family, m) {
			spec.Mono = true
		}
	}
	return spec, true
}

func parseSize(f string) (float64, bool) {
	// a line height such as "12px/1.5" only contributes its size
	if i := strings.IndexByte(f, '/'); i > 0 {
		f = f[:i]
	}
	unit := 1.0
	switch {
	case strings.HasSuffix(f, "px"):
		f = strings.TrimSuffix(f, "px")
	case strings.HasSuffix(f, "pt"):
		f = strings.TrimSuffix(f, "pt")
		unit = 4.0 / 3.0
	default:
		return 0, false
	}
	v, err := strconv.ParseFloat(f, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v * unit, true
}

var (
	fontsOnce sync.Once
	fonts     map[string]*opentype.Font
	fontsErr  error
)

func loadFonts() {
	sources := map[string][]byte{
		"regular":     goregular.TTF,
		"bold":        gobold.TTF,
		"italic":      goitalic.TTF,
		"bold-italic": gobolditalic.TTF,
		"mono":        gomono.TTF,
		"mono-bold":   gomonobold.TTF,
	}
	fonts = make(map[string]*opentype.Font, len(sources))
	for name, ttf := range sources {
		f, err := opentype.Parse(ttf)
		if err != nil {
			fontsErr = err
			return
		}
		fonts[name] = f
	}
}

func (s FontSpec) key() string {
	switch {
	case s.Mono && s.Bold:
		return "mono-bold"
	case s.Mono:
		return "mono"
	case s.Bold && s.Italic:
		return "bold-italic"
	case s.Bold:
		return "bold"
	case s.Italic:
		return "italic"
	}
	return "regular"
}

// newFace creates a face sized in CSS pixels. Faces are not safe for concurrent use,
// each Surface keeps its own.
func newFace(spec FontSpec) (font.Face, error) {
	fontsOnce.Do(loadFonts)
	if fontsErr != nil {
		return nil, fontsErr
	}
	return opentype.NewFace(fonts[spec.key()], &opentype.FaceOptions{
		Size:    spec.Size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}
