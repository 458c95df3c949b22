// Package encoder serializes a rendered surface into an encoded asset.
package encoder

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"strings"

	"github.com/vincent-petithory/dataurl"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/leeforge/imageproc/errors"
)

const (
	FormatPNG  = "image/png"
	FormatJPEG = "image/jpeg"
	FormatGIF  = "image/gif"
	FormatBMP  = "image/bmp"
	FormatTIFF = "image/tiff"

	// DefaultQuality is used when the requested quality is not a number.
	DefaultQuality = 0.92
)

type encodeFunc func(w io.Writer, img image.Image, quality float64) error

var encoders = map[string]encodeFunc{
	FormatPNG: func(w io.Writer, img image.Image, _ float64) error {
		return png.Encode(w, img)
	},
	FormatJPEG: func(w io.Writer, img image.Image, q float64) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality(q)})
	},
	FormatGIF: func(w io.Writer, img image.Image, _ float64) error {
		return gif.Encode(w, img, &gif.Options{NumColors: 256})
	},
	FormatBMP: func(w io.Writer, img image.Image, _ float64) error {
		return bmp.Encode(w, img)
	},
	FormatTIFF: func(w io.Writer, img image.Image, _ float64) error {
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	},
}

// Asset is an encoded raster.
type Asset struct {
	// Format is the MIME type actually produced.
	Format  string  `json:"format"`
	Quality float64 `json:"quality"`
	Data    []byte  `json:"-"`
}

// DataURI returns the asset as a base64 data URI.
func (a Asset) DataURI() string {
	return dataurl.New(a.Data, a.Format).String()
}

// Size returns the payload size in bytes.
func (a Asset) Size() int {
	return len(a.Data)
}

// Supported reports whether format is produced as requested.
func Supported(format string) bool {
	_, ok := encoders[Normalize(format)]
	return ok
}

// Normalize lower-cases a MIME type and maps common aliases.
func Normalize(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	switch f {
	case "image/jpg", "jpg", "jpeg":
		return FormatJPEG
	case "png", "gif", "bmp", "tiff":
		return "image/" + f
	case "image/tif", "tif":
		return FormatTIFF
	}
	return f
}

// ClampQuality maps any quality into [0,1]. NaN selects DefaultQuality.
func ClampQuality(q float64) float64 {
	switch {
	case math.IsNaN(q):
		return DefaultQuality
	case q < 0:
		return 0
	case q > 1:
		return 1
	}
	return q
}

// JPEGQuality converts a [0,1] quality into the 1–100 scale of image/jpeg.
func JPEGQuality(q float64) int {
	v := int(math.Round(ClampQuality(q) * 100))
	if v < 1 {
		return 1
	}
	return v
}

// Encode serializes img. Quality is clamped into [0,1] first. Formats that cannot be
// produced fall back to PNG and the asset reports the format actually written.
func Encode(img image.Image, format string, quality float64) (Asset, error) {
	f := Normalize(format)
	enc, ok := encoders[f]
	if !ok {
		f, enc = FormatPNG, encoders[FormatPNG]
	}
	q := ClampQuality(quality)

	var buf bytes.Buffer
	if err := enc(&buf, img, q); err != nil {
		return Asset{}, errors.NewEncodingFailure("", f, err)
	}
	return Asset{Format: f, Quality: q, Data: buf.Bytes()}, nil
}
