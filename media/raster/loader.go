package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/vincent-petithory/dataurl"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/leeforge/imageproc/errors"
	"github.com/leeforge/imageproc/logging"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxBytes = 32 << 20
)

type loader struct {
	client     *http.Client
	timeout    time.Duration
	fileAccess bool
	maxBytes   int64
	userAgent string
	referrer  string
	origin    string
	logger    logging.Logger
}

// Option configures the default loader.
type Option func(*loader)

// WithHTTPClient replaces the HTTP client used for http(s) sources.
func WithHTTPClient(c *http.Client) Option {
	return func(l *loader) { l.client = c }
}

// WithTimeout sets the per-request timeout. It applies to a copy of the HTTP client;
// the client passed to WithHTTPClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(l *loader) { l.timeout = d }
}

// WithFileAccess lets plain paths and file:// URLs read the local filesystem.
// Without it such sources fail with a load failure.
func WithFileAccess() Option {
	return func(l *loader) { l.fileAccess = true }
}

// WithMaxBytes caps the size of a fetched payload.
func WithMaxBytes(n int64) Option {
	return func(l *loader) { l.maxBytes = n }
}

func WithUserAgent(ua string) Option {
	return func(l *loader) { l.userAgent = ua }
}

// WithReferrer sets the Referer sent when the referrer policy allows it.
func WithReferrer(ref string) Option {
	return func(l *loader) { l.referrer = ref }
}

// WithOrigin sets the Origin header sent for cross-origin loads.
func WithOrigin(origin string) Option {
	return func(l *loader) { l.origin = origin }
}

func WithLogger(logger logging.Logger) Option {
	return func(l *loader) { l.logger = logger }
}

// NewLoader returns the default Loader. It resolves http(s) URLs, data URIs and
// pre-decoded images, plus file:// URLs and plain paths when WithFileAccess is given.
// Nothing is cached: identical sources are loaded again on every call.
func NewLoader(opts ...Option) Loader {
	l := &loader{
		maxBytes: defaultMaxBytes,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}

	var client http.Client
	if l.client != nil {
		client = *l.client
	} else {
		client.Timeout = defaultTimeout
	}
	if l.timeout > 0 {
		client.Timeout = l.timeout
	}
	l.client = &client
	return l
}

func (l *loader) Load(ctx context.Context, src Source) *Pending {
	p := NewPending()
	if src.Image != nil {
		p.Resolve(NewHandle(src.Image, "image", src.String()), nil)
		return p
	}
	go func() {
		p.Resolve(l.load(ctx, src))
	}()
	return p
}

func (l *loader) load(ctx context.Context, src Source) (*Handle, error) {
	target := src.URL
	if src.Hints.Srcset != "" {
		target = pickCandidate(src.URL, src.Hints.Srcset)
	}
	if target == "" {
		return nil, errors.NewLoadFailure(src.String(), "empty source", nil)
	}

	start := time.Now()
	data, err := l.fetch(ctx, target, src.Hints)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeLoadFailure, src.String(), "fetch failed")
	}
	h, err := decode(data, src.String())
	if err != nil {
		return nil, err
	}
	l.logger.Debug("raster loaded",
		zap.String("source", src.String()),
		zap.String("format", h.Format),
		zap.Int("width", h.Width),
		zap.Int("height", h.Height),
		zap.Duration("duration", time.Since(start)),
	)
	return h, nil
}

func (l *loader) fetch(ctx context.Context, target string, hints Hints) ([]byte, error) {
	switch {
	case strings.HasPrefix(target, "http://"), strings.HasPrefix(target, "https://"):
		return l.fetchHTTP(ctx, target, hints)
	case strings.HasPrefix(target, "data:"):
		du, err := dataurl.DecodeString(target)
		if err != nil {
			return nil, errors.NewLoadFailure(target, "malformed data URI", err)
		}
		return du.Data, nil
	default:
		if !l.fileAccess {
			return nil, errors.NewLoadFailure(target, "filesystem access disabled", nil)
		}
		path := strings.TrimPrefix(target, "file://")
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.NewLoadFailure(target, "open failed", err)
		}
		defer f.Close()
		return l.readAll(f, target)
	}
}

func (l *loader) fetchHTTP(ctx context.Context, target string, hints Hints) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.NewLoadFailure(target, "invalid request", err)
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}
	if l.referrer != "" && hints.ReferrerPolicy != "no-referrer" {
		req.Header.Set("Referer", l.referrer)
	}
	if hints.CrossOrigin != "" && l.origin != "" {
		req.Header.Set("Origin", l.origin)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, errors.NewLoadFailure(target, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewLoadFailure(target, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil).
			WithDetail("status", resp.StatusCode)
	}
	return l.readAll(resp.Body, target)
}

func (l *loader) readAll(r io.Reader, target string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, errors.NewLoadFailure(target, "read failed", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, errors.NewLoadFailure(target, "payload too large", nil).WithDetail("max_bytes", l.maxBytes)
	}
	return data, nil
}

// decode sniffs the payload and decodes it with the registered image decoders.
func decode(data []byte, source string) (*Handle, error) {
	if len(data) == 0 {
		return nil, errors.NewLoadFailure(source, "empty payload", nil)
	}
	if !filetype.IsImage(data) {
		kind, _ := filetype.Match(data)
		return nil, errors.NewLoadFailure(source, "not an image", nil).WithDetail("mime", kind.MIME.Value)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewLoadFailure(source, "decode failed", err)
	}
	return NewHandle(img, format, source), nil
}
