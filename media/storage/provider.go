// Package storage persists encoded assets to a local directory or an Aliyun OSS bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Provider stores objects by key.
type Provider interface {
	// Upload writes r under key and returns its public URL.
	Upload(ctx context.Context, r io.Reader, key, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// GetSignedURL returns a URL granting temporary read access to key.
	GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	Name() string
}

// Config selects and configures a provider.
type Config struct {
	Type   string      `json:"type" mapstructure:"type" default:"local"`
	Folder string      `json:"folder" mapstructure:"folder"`
	Local  LocalConfig `json:"local" mapstructure:"local"`
	OSS    OSSConfig   `json:"oss" mapstructure:"oss"`
}

type LocalConfig struct {
	BasePath string `json:"basePath" mapstructure:"base-path" default:"media"`
	BaseURL  string `json:"baseUrl" mapstructure:"base-url" default:"/media"`
}

type OSSConfig struct {
	Endpoint        string `json:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `json:"accessKeyId" mapstructure:"access-key-id"`
	AccessKeySecret string `json:"accessKeySecret" mapstructure:"access-key-secret"`
	Bucket          string `json:"bucket" mapstructure:"bucket"`
	Domain          string `json:"domain" mapstructure:"domain"`
}

// New creates the provider named by cfg.Type.
func New(cfg Config) (Provider, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalProvider(cfg.Local.BasePath, cfg.Local.BaseURL)
	case "oss":
		o := cfg.OSS
		if o.Endpoint == "" || o.Bucket == "" {
			return nil, fmt.Errorf("oss provider requires endpoint and bucket")
		}
		return NewOSSProvider(o.Endpoint, o.AccessKeyID, o.AccessKeySecret, o.Bucket, o.Domain)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Type)
	}
}
