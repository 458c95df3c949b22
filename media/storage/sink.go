package storage

import (
	"bytes"
	"context"
	"path"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leeforge/imageproc/logging"
	"github.com/leeforge/imageproc/media/encoder"
)

// Object describes a stored asset.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

// Sink writes encoded assets to a Provider under generated keys.
type Sink struct {
	provider Provider
	folder   string
	logger   logging.Logger
}

// NewSink returns a sink storing below folder.
func NewSink(provider Provider, folder string, logger logging.Logger) *Sink {
	if logger == nil {
		logger = logging.Named("storage")
	}
	return &Sink{provider: provider, folder: folder, logger: logger}
}

// Store uploads asset under a fresh key.
func (s *Sink) Store(ctx context.Context, asset encoder.Asset) (Object, error) {
	key := Key(s.folder, asset.Format)
	url, err := s.provider.Upload(ctx, bytes.NewReader(asset.Data), key, asset.Format)
	if err != nil {
		s.logger.Error("upload failed",
			zap.String("provider", s.provider.Name()),
			zap.String("key", key),
			zap.Error(err))
		return Object{}, err
	}
	s.logger.Debug("asset stored",
		zap.String("provider", s.provider.Name()),
		zap.String("key", key),
		zap.Int("bytes", asset.Size()))
	return Object{Key: key, URL: url, ContentType: asset.Format, Size: asset.Size()}, nil
}

// Key returns folder/<uuid><ext> for an asset of the given MIME format.
func Key(folder, format string) string {
	return path.Join(folder, uuid.NewString()+Extension(format))
}

// Extension maps an encoder format to a file extension.
func Extension(format string) string {
	switch format {
	case encoder.FormatJPEG:
		return ".jpg"
	case encoder.FormatGIF:
		return ".gif"
	case encoder.FormatBMP:
		return ".bmp"
	case encoder.FormatTIFF:
		return ".tiff"
	default:
		return ".png"
	}
}
