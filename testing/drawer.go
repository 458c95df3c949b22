package testing

import (
	"image"
	"sync"

	"github.com/leeforge/imageproc/media/canvas"
	"github.com/leeforge/imageproc/media/filter"
)

// Call is one recorded drawing operation.
type Call struct {
	Op     string
	Text   string
	X, Y   float64
	Src    canvas.Rect
	Dst    canvas.Rect
	Repeat bool
	Value  string
	Amount float64
	Filter filter.Chain
	Image  image.Image
}

// RecordingDrawer is a canvas.Drawer that records every call instead of drawing.
// MeasureText returns CharWidth per rune.
type RecordingDrawer struct {
	W, H      int
	CharWidth float64

	mu    sync.Mutex
	calls []Call
	depth int
}

// NewRecordingDrawer returns a w×h recorder measuring 10px per rune.
func NewRecordingDrawer(w, h int) *RecordingDrawer {
	return &RecordingDrawer{W: w, H: h, CharWidth: 10}
}

func (r *RecordingDrawer) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *RecordingDrawer) Width() int  { return r.W }
func (r *RecordingDrawer) Height() int { return r.H }

func (r *RecordingDrawer) Save() {
	r.mu.Lock()
	r.depth++
	r.mu.Unlock()
	r.record(Call{Op: "save"})
}

func (r *RecordingDrawer) Restore() {
	r.mu.Lock()
	r.depth--
	r.mu.Unlock()
	r.record(Call{Op: "restore"})
}

func (r *RecordingDrawer) Translate(x, y float64) { r.record(Call{Op: "translate", X: x, Y: y}) }
func (r *RecordingDrawer) Rotate(angle float64)   { r.record(Call{Op: "rotate", Amount: angle}) }

func (r *RecordingDrawer) SetFilter(chain filter.Chain) {
	r.record(Call{Op: "filter", Filter: chain, Value: chain.String()})
}

func (r *RecordingDrawer) SetFont(font string)       { r.record(Call{Op: "font", Value: font}) }
func (r *RecordingDrawer) SetFillColor(color string) { r.record(Call{Op: "fill", Value: color}) }
func (r *RecordingDrawer) SetGlobalAlpha(a float64)  { r.record(Call{Op: "alpha", Amount: a}) }

func (r *RecordingDrawer) DrawImage(img image.Image, src, dst canvas.Rect) {
	r.record(Call{Op: "drawImage", Image: img, Src: src, Dst: dst})
}

func (r *RecordingDrawer) FillPattern(img image.Image, repeat bool, dst canvas.Rect) {
	r.record(Call{Op: "fillPattern", Image: img, Repeat: repeat, Dst: dst})
}

func (r *RecordingDrawer) FillText(text string, x, y float64) {
	r.record(Call{Op: "fillText", Text: text, X: x, Y: y})
}

func (r *RecordingDrawer) MeasureText(text string) float64 {
	return float64(len([]rune(text))) * r.CharWidth
}

// Calls returns a copy of the recorded calls.
func (r *RecordingDrawer) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Ops returns the recorded operation names in order.
func (r *RecordingDrawer) Ops() []string {
	calls := r.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}

// Count returns how many times op was recorded.
func (r *RecordingDrawer) Count(op string) int {
	n := 0
	for _, c := range r.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Find returns the calls recorded for op.
func (r *RecordingDrawer) Find(op string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Balanced reports whether every Save was matched by a Restore.
func (r *RecordingDrawer) Balanced() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.depth == 0
}

var _ canvas.Drawer = (*RecordingDrawer)(nil)
