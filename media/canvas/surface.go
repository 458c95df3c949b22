package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/mazznoer/csscolorparser"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"

	"github.com/leeforge/imageproc/media/filter"
)

type state struct {
	matrix Matrix
	filter filter.Chain
	font   FontSpec
	fill   color.NRGBA
	alpha  float64
}

// Surface is an RGBA drawing surface implementing Drawer. It starts fully transparent.
// A Surface is not safe for concurrent use.
type Surface struct {
	img    *image.RGBA
	stack  []state
	cur    state
	faces  map[FontSpec]font.Face
	interp xdraw.Interpolator
}

// NewSurface creates a surface of w×h pixels. Negative sizes are treated as zero.
func NewSurface(w, h int) *Surface {
	spec, _ := ParseFont(DefaultFont)
	return &Surface{
		img: image.NewRGBA(image.Rect(0, 0, max(w, 0), max(h, 0))),
		cur: state{
			matrix: identity(),
			font:   spec,
			fill:   color.NRGBA{A: 0xff},
			alpha:  1,
		},
		faces:  make(map[FontSpec]font.Face),
		interp: xdraw.BiLinear,
	}
}

// Image returns the backing raster.
func (s *Surface) Image() *image.RGBA { return s.img }

func (s *Surface) Width() int  { return s.img.Rect.Dx() }
func (s *Surface) Height() int { return s.img.Rect.Dy() }

// Save pushes the current drawing state.
func (s *Surface) Save() {
	s.stack = append(s.stack, s.cur)
}

// Restore pops the last saved state. Unbalanced calls are ignored.
func (s *Surface) Restore() {
	if len(s.stack) == 0 {
		return
	}
	s.cur = s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
}

func (s *Surface) Translate(x, y float64) {
	s.cur.matrix = mul(s.cur.matrix, translation(x, y))
}

func (s *Surface) Rotate(angle float64) {
	s.cur.matrix = mul(s.cur.matrix, rotation(angle))
}

// Transform returns the current transformation matrix.
func (s *Surface) Transform() Matrix { return s.cur.matrix }

func (s *Surface) SetFilter(chain filter.Chain) {
	s.cur.filter = chain
}

// SetFont sets the font from a CSS shorthand. Unparseable values are ignored.
func (s *Surface) SetFont(f string) {
	if spec, ok := ParseFont(f); ok {
		s.cur.font = spec
	}
}

// SetFillColor sets the fill colour from any CSS colour string. Unparseable values are ignored.
func (s *Surface) SetFillColor(c string) {
	parsed, err := csscolorparser.Parse(c)
	if err != nil {
		return
	}
	r, g, b, a := parsed.RGBA255()
	s.cur.fill = color.NRGBA{R: r, G: g, B: b, A: a}
}

// SetGlobalAlpha sets the alpha applied to every draw. Values outside [0,1] are ignored.
func (s *Surface) SetGlobalAlpha(alpha float64) {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return
	}
	s.cur.alpha = alpha
}

func (s *Surface) DrawImage(img image.Image, src, dst Rect) {
	if img == nil || src.W == 0 || src.H == 0 || dst.W == 0 || dst.H == 0 {
		return
	}
	b := img.Bounds()
	// source region in image coordinates, the part outside the raster stays empty
	region := image.Rect(
		b.Min.X+int(math.Floor(src.X)), b.Min.Y+int(math.Floor(src.Y)),
		b.Min.X+int(math.Ceil(src.X+src.W)), b.Min.Y+int(math.Ceil(src.Y+src.H)),
	).Canon()
	sr := region.Intersect(b)
	if sr.Empty() {
		return
	}

	m := mul(s.cur.matrix, translation(dst.X, dst.Y))
	m = mul(m, scaling(dst.W/src.W, dst.H/src.H))
	m = mul(m, translation(-src.X-float64(b.Min.X), -src.Y-float64(b.Min.Y)))

	s.paint(func(dstImg draw.Image) {
		s.interp.Transform(dstImg, m, img, sr, xdraw.Over, nil)
	})
}

func (s *Surface) FillPattern(img image.Image, repeat bool, dst Rect) {
	if img == nil || dst.W <= 0 || dst.H <= 0 {
		return
	}
	tile := image.NewRGBA(image.Rect(0, 0, int(math.Ceil(dst.W)), int(math.Ceil(dst.H))))
	b := img.Bounds()
	if repeat && b.Dx() > 0 && b.Dy() > 0 {
		for y := 0; y < tile.Rect.Dy(); y += b.Dy() {
			for x := 0; x < tile.Rect.Dx(); x += b.Dx() {
				draw.Draw(tile, image.Rect(x, y, x+b.Dx(), y+b.Dy()), img, b.Min, draw.Over)
			}
		}
	} else {
		draw.Draw(tile, image.Rect(0, 0, b.Dx(), b.Dy()), img, b.Min, draw.Over)
	}

	m := mul(s.cur.matrix, translation(dst.X, dst.Y))
	s.paint(func(dstImg draw.Image) {
		xdraw.NearestNeighbor.Transform(dstImg, m, tile, tile.Bounds(), xdraw.Over, nil)
	})
}

func (s *Surface) FillText(text string, x, y float64) {
	text = norm.NFC.String(text)
	if text == "" {
		return
	}
	face, err := s.face()
	if err != nil {
		return
	}
	bounds, _ := font.BoundString(face, text)
	minX, minY := bounds.Min.X.Floor(), bounds.Min.Y.Floor()
	w, h := bounds.Max.X.Ceil()-minX, bounds.Max.Y.Ceil()-minY
	if w <= 0 || h <= 0 {
		return
	}

	glyphs := image.NewRGBA(image.Rect(0, 0, w, h))
	d := font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(s.cur.fill),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(-minX), Y: fixed.I(-minY)},
	}
	d.DrawString(text)

	m := mul(s.cur.matrix, translation(x+float64(minX), y+float64(minY)))
	s.paint(func(dstImg draw.Image) {
		s.interp.Transform(dstImg, m, glyphs, glyphs.Bounds(), xdraw.Over, nil)
	})
}

// MeasureText returns the advance width of text in the current font.
func (s *Surface) MeasureText(text string) float64 {
	face, err := s.face()
	if err != nil {
		return 0
	}
	return float64(font.MeasureString(face, norm.NFC.String(text))) / 64
}

func (s *Surface) face() (font.Face, error) {
	if f, ok := s.faces[s.cur.font]; ok {
		return f, nil
	}
	f, err := newFace(s.cur.font)
	if err != nil {
		return nil, err
	}
	s.faces[s.cur.font] = f
	return f, nil
}

// paint runs fn against the surface. With an active filter or a global alpha the draw
// goes to a transparent layer first, the filter chain is applied to the whole layer
// once and the result is composited.
func (s *Surface) paint(fn func(dst draw.Image)) {
	filtered := len(s.cur.filter) > 0 && !s.cur.filter.IsIdentity()
	if !filtered && s.cur.alpha >= 1 {
		fn(s.img)
		return
	}

	layer := image.NewRGBA(s.img.Rect)
	fn(layer)

	var src image.Image = layer
	if filtered {
		src = s.cur.filter.Apply(layer)
	}
	mask := image.NewUniform(color.Alpha{A: uint8(s.cur.alpha*0xff + 0.5)})
	draw.DrawMask(s.img, s.img.Rect, src, src.Bounds().Min, mask, image.Point{}, draw.Over)
}

var _ Drawer = (*Surface)(nil)
