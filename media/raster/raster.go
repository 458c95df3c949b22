// Package raster resolves raster sources (URLs, data URIs, files or pre-decoded images)
// into decoded images with known pixel dimensions.
package raster

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/leeforge/imageproc/errors"
)

// Hints are load parameters handed to the fetch primitive unmodified.
type Hints struct {
	CrossOrigin    string `json:"crossorigin" mapstructure:"crossorigin" default:"anonymous"`
	Decoding       string `json:"decoding" mapstructure:"decoding" default:"auto"`
	ReferrerPolicy string `json:"referrerPolicy" mapstructure:"referrer-policy" default:"no-referrer"`
	Loading        string `json:"loading" mapstructure:"loading" default:"auto"`
	Srcset         string `json:"srcset" mapstructure:"srcset"`
	Sizes          string `json:"sizes" mapstructure:"sizes"`
}

// Source names a raster: either a URL or an already decoded image.
type Source struct {
	URL   string
	Image image.Image
	Hints Hints
}

// FromURL returns a URL source.
func FromURL(url string, hints Hints) Source {
	return Source{URL: url, Hints: hints}
}

// FromImage returns a source that resolves to img without any I/O.
func FromImage(img image.Image) Source {
	return Source{Image: img}
}

// String identifies the source in logs and errors.
func (s Source) String() string {
	if s.URL != "" {
		return s.URL
	}
	if s.Image != nil {
		b := s.Image.Bounds()
		return fmt.Sprintf("image:%dx%d", b.Dx(), b.Dy())
	}
	return ""
}

// Handle is a decoded raster.
type Handle struct {
	Image  image.Image
	Width  int
	Height int
	// Format is the decoder name, e.g. "png".
	Format string
	Source string
}

// NewHandle wraps a decoded image.
func NewHandle(img image.Image, format, source string) *Handle {
	b := img.Bounds()
	return &Handle{Image: img, Width: b.Dx(), Height: b.Dy(), Format: format, Source: source}
}

// Loader starts a raster load. The returned Pending resolves exactly once.
type Loader interface {
	Load(ctx context.Context, src Source) *Pending
}

// LoaderFunc adapts a synchronous function to Loader; each call runs on its own goroutine.
type LoaderFunc func(ctx context.Context, src Source) (*Handle, error)

func (f LoaderFunc) Load(ctx context.Context, src Source) *Pending {
	p := NewPending()
	go func() {
		p.Resolve(f(ctx, src))
	}()
	return p
}

// Pending is the single-assignment result of a load.
type Pending struct {
	once   sync.Once
	done   chan struct{}
	handle *Handle
	err    error
}

func NewPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// Resolve settles the load. Only the first call has an effect.
func (p *Pending) Resolve(h *Handle, err error) {
	p.once.Do(func() {
		p.handle, p.err = h, err
		close(p.done)
	})
}

// Done is closed once the load has resolved.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the load resolves or ctx is done.
func (p *Pending) Wait(ctx context.Context) (*Handle, error) {
	select {
	case <-p.done:
		return p.handle, p.err
	case <-ctx.Done():
		return nil, errors.NewLoadFailure("", "wait canceled", ctx.Err())
	}
}
