package testing

import (
	"context"
	"image"
	"sync"

	"github.com/leeforge/imageproc/errors"
	"github.com/leeforge/imageproc/media/raster"
)

// MemoryLoader is a raster.Loader serving images registered by URL. Unknown URLs fail
// with a LoadFailure. Loads resolve on their own goroutine like a network load.
type MemoryLoader struct {
	mu     sync.Mutex
	images map[string]image.Image
	fails  map[string]error
	loads  map[string]int
}

func NewMemoryLoader() *MemoryLoader {
	return &MemoryLoader{
		images: make(map[string]image.Image),
		fails:  make(map[string]error),
		loads:  make(map[string]int),
	}
}

// Add registers img under url.
func (m *MemoryLoader) Add(url string, img image.Image) *MemoryLoader {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[url] = img
	return m
}

// Fail makes every load of url fail with err.
func (m *MemoryLoader) Fail(url string, err error) *MemoryLoader {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fails[url] = err
	return m
}

// Loads returns how many times url was requested.
func (m *MemoryLoader) Loads(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads[url]
}

func (m *MemoryLoader) Load(ctx context.Context, src raster.Source) *raster.Pending {
	p := raster.NewPending()
	if src.Image != nil {
		p.Resolve(raster.NewHandle(src.Image, "image", src.String()), nil)
		return p
	}

	m.mu.Lock()
	m.loads[src.URL]++
	img, ok := m.images[src.URL]
	failure := m.fails[src.URL]
	m.mu.Unlock()

	go func() {
		switch {
		case failure != nil:
			p.Resolve(nil, errors.Wrap(failure, errors.ErrorTypeLoadFailure, src.URL, "injected failure"))
		case !ok:
			p.Resolve(nil, errors.NewLoadFailure(src.URL, "failed to load image", nil))
		default:
			p.Resolve(raster.NewHandle(img, "png", src.URL), nil)
		}
	}()
	return p
}

var _ raster.Loader = (*MemoryLoader)(nil)
