package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/leeforge/imageproc/utils"
)

// LocalProvider stores objects below a directory.
type LocalProvider struct {
	basePath string
	baseURL  string
}

// NewLocalProvider creates basePath if needed.
func NewLocalProvider(basePath, baseURL string) (*LocalProvider, error) {
	if err := utils.CreateDir(basePath); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalProvider{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (p *LocalProvider) path(key string) string {
	return filepath.Join(p.basePath, filepath.FromSlash(strings.TrimPrefix(key, "/")))
}

// Upload writes r to the file named by key. contentType is implied by the extension.
func (p *LocalProvider) Upload(ctx context.Context, r io.Reader, key, contentType string) (url string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fullPath := p.path(key)
	if err := utils.CreateDir(filepath.Dir(fullPath)); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		err = multierr.Append(err, dst.Close())
		if err != nil {
			url = ""
		}
	}()

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("failed to write file content: %w", err)
	}

	// URLs always use forward slashes
	return p.baseURL + "/" + strings.TrimPrefix(key, "/"), nil
}

// Delete removes key. A missing file is not an error.
func (p *LocalProvider) Delete(ctx context.Context, key string) error {
	err := os.Remove(p.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (p *LocalProvider) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := utils.Exists(p.path(key))
	return ok, err
}

// GetSignedURL returns the public URL; local files need no signature.
func (p *LocalProvider) GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return p.baseURL + "/" + strings.TrimPrefix(key, "/"), nil
}

func (p *LocalProvider) Name() string {
	return "local"
}

var _ Provider = (*LocalProvider)(nil)
