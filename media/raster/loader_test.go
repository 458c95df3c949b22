package raster

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/imageproc/errors"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func wait(t *testing.T, p *Pending) (*Handle, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.Wait(ctx)
}

func TestLoadHTTP(t *testing.T) {
	payload := pngBytes(t, 12, 7)
	headers := make(chan http.Header, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	l := NewLoader(WithReferrer("https://page.example/"), WithOrigin("https://page.example"))
	h, err := wait(t, l.Load(context.Background(), FromURL(srv.URL+"/a.png", Hints{
		CrossOrigin:    "anonymous",
		ReferrerPolicy: "no-referrer",
	})))
	require.NoError(t, err)
	assert.Equal(t, 12, h.Width)
	assert.Equal(t, 7, h.Height)
	assert.Equal(t, "png", h.Format)
	hdr := <-headers
	assert.Empty(t, hdr.Get("Referer"))
	assert.Equal(t, "https://page.example", hdr.Get("Origin"))

	_, err = wait(t, l.Load(context.Background(), FromURL(srv.URL+"/a.png", Hints{ReferrerPolicy: "origin"})))
	require.NoError(t, err)
	hdr = <-headers
	assert.Equal(t, "https://page.example/", hdr.Get("Referer"))
	assert.Empty(t, hdr.Get("Origin"))
}

func TestLoadHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := wait(t, NewLoader().Load(context.Background(), FromURL(srv.URL+"/missing.png", Hints{})))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeLoadFailure))
	assert.Contains(t, err.Error(), "unexpected status 404")
}

func TestLoadNotAnImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not an image</html>"))
	}))
	defer srv.Close()

	_, err := wait(t, NewLoader().Load(context.Background(), FromURL(srv.URL, Hints{})))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeLoadFailure))
}

func TestLoadPayloadTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pngBytes(t, 64, 64))
	}))
	defer srv.Close()

	_, err := wait(t, NewLoader(WithMaxBytes(16)).Load(context.Background(), FromURL(srv.URL, Hints{})))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payload too large")
}

func TestLoadDataURI(t *testing.T) {
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 3, 4))
	h, err := wait(t, NewLoader().Load(context.Background(), FromURL(uri, Hints{})))
	require.NoError(t, err)
	assert.Equal(t, 3, h.Width)
	assert.Equal(t, 4, h.Height)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 5, 5), 0o644))

	l := NewLoader(WithFileAccess())
	h, err := wait(t, l.Load(context.Background(), FromURL("file://"+path, Hints{})))
	require.NoError(t, err)
	assert.Equal(t, 5, h.Width)

	_, err = wait(t, l.Load(context.Background(), FromURL(path+".missing", Hints{})))
	assert.True(t, errors.IsType(err, errors.ErrorTypeLoadFailure))
}

func TestLoadFileDisabledByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 5, 5), 0o644))

	for _, src := range []string{path, "file://" + path} {
		_, err := wait(t, NewLoader().Load(context.Background(), FromURL(src, Hints{})))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeLoadFailure))
		assert.Contains(t, err.Error(), "filesystem access disabled")
	}
}

func TestTimeoutLeavesCallerClientAlone(t *testing.T) {
	shared := &http.Client{}
	l := NewLoader(WithHTTPClient(shared), WithTimeout(time.Second)).(*loader)
	assert.Zero(t, shared.Timeout)
	assert.NotSame(t, shared, l.client)
	assert.Equal(t, time.Second, l.client.Timeout)

	l = NewLoader(WithHTTPClient(nil), WithTimeout(2*time.Second)).(*loader)
	assert.Equal(t, 2*time.Second, l.client.Timeout)

	l = NewLoader().(*loader)
	assert.Equal(t, defaultTimeout, l.client.Timeout)
}

func TestLoadPreDecoded(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 9, 2))
	p := NewLoader().Load(context.Background(), FromImage(img))

	select {
	case <-p.Done():
	default:
		t.Fatal("pre-decoded source should resolve immediately")
	}
	h, err := wait(t, p)
	require.NoError(t, err)
	assert.Same(t, image.Image(img), h.Image)
	assert.Equal(t, "image:9x2", h.Source)
}

func TestLoadEmptySource(t *testing.T) {
	_, err := wait(t, NewLoader().Load(context.Background(), Source{}))
	assert.True(t, errors.IsType(err, errors.ErrorTypeLoadFailure))
}

func TestPendingResolvesOnce(t *testing.T) {
	p := NewPending()
	first := &Handle{Width: 1}
	p.Resolve(first, nil)
	p.Resolve(nil, errors.NewLoadFailure("x", "late", nil))

	h, err := wait(t, p)
	require.NoError(t, err)
	assert.Same(t, first, h)
}

func TestPendingWaitCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPending().Wait(ctx)
	assert.True(t, errors.IsType(err, errors.ErrorTypeLoadFailure))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoaderFunc(t *testing.T) {
	l := LoaderFunc(func(ctx context.Context, src Source) (*Handle, error) {
		return nil, errors.NewLoadFailure(src.String(), "injected", nil)
	})
	_, err := wait(t, l.Load(context.Background(), FromURL("mem://a", Hints{})))
	assert.Contains(t, err.Error(), "injected")
}

func TestPickCandidate(t *testing.T) {
	tests := []struct {
		name, base, srcset, want string
	}{
		{"width descriptors", "https://cdn.example/img/a.png", "small.png 480w, large.png 1200w, mid.png 800w", "https://cdn.example/img/large.png"},
		{"density descriptors", "https://cdn.example/a.png", "a1.png 1x, a2.png 2x", "https://cdn.example/a2.png"},
		{"absolute candidate", "https://cdn.example/a.png", "https://other.example/b.png 2x", "https://other.example/b.png"},
		{"no descriptor", "", "only.png", "only.png"},
		{"garbage", "https://cdn.example/a.png", " , bad.png 2q", "https://cdn.example/a.png"},
		{"data uri skipped", "https://cdn.example/a.png", "data:image/png;base64,QUJD 1x, big.png 2x", "https://cdn.example/big.png"},
		{"data uri chosen", "https://cdn.example/a.png", "small.png 1x,data:image/png;base64,QUJD 2x", "data:image/png;base64,QUJD"},
		{"trailing comma ends candidate", "", "a.png, b.png 3x", "b.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pickCandidate(tt.base, tt.srcset))
		})
	}
}
