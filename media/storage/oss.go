package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSProvider stores objects in an Aliyun OSS bucket.
type OSSProvider struct {
	client     *oss.Client
	bucket     *oss.Bucket
	endpoint   string
	bucketName string
	domain     string // custom or CDN domain
}

// NewOSSProvider creates an OSS provider.
// Endpoint: oss-cn-hangzhou.aliyuncs.com
func NewOSSProvider(endpoint, accessKeyID, accessKeySecret, bucketName, domain string) (*OSSProvider, error) {
	client, err := oss.New(endpoint, accessKeyID, accessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", bucketName, err)
	}

	return &OSSProvider{
		client:     client,
		bucket:     bucket,
		endpoint:   endpoint,
		bucketName: bucketName,
		domain:     publicDomain(endpoint, bucketName, domain),
	}, nil
}

func publicDomain(endpoint, bucket, domain string) string {
	if domain == "" {
		return fmt.Sprintf("https://%s.%s", bucket, strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://"))
	}
	if !strings.HasPrefix(domain, "http") {
		domain = "https://" + domain
	}
	return strings.TrimSuffix(domain, "/")
}

func objectKey(key string) string {
	return strings.TrimPrefix(key, "/")
}

// Upload puts r under key with the asset's content type.
func (p *OSSProvider) Upload(ctx context.Context, r io.Reader, key, contentType string) (string, error) {
	k := objectKey(key)
	opts := []oss.Option{oss.WithContext(ctx)}
	if contentType != "" {
		opts = append(opts, oss.ContentType(contentType))
	}
	if err := p.bucket.PutObject(k, r, opts...); err != nil {
		return "", fmt.Errorf("failed to upload to OSS: %w", err)
	}
	return fmt.Sprintf("%s/%s", p.domain, k), nil
}

func (p *OSSProvider) Delete(ctx context.Context, key string) error {
	if err := p.bucket.DeleteObject(objectKey(key), oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete from OSS: %w", err)
	}
	return nil
}

// GetSignedURL signs a GET for key. Expiry defaults to one hour.
func (p *OSSProvider) GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	expirySec := int64(expiry.Seconds())
	if expirySec <= 0 {
		expirySec = 3600
	}

	url, err := p.bucket.SignURL(objectKey(key), oss.HTTPGet, expirySec)
	if err != nil {
		return "", fmt.Errorf("failed to sign URL: %w", err)
	}
	return url, nil
}

func (p *OSSProvider) Exists(ctx context.Context, key string) (bool, error) {
	return p.bucket.IsObjectExist(objectKey(key), oss.WithContext(ctx))
}

func (p *OSSProvider) Name() string {
	return "oss"
}

var _ Provider = (*OSSProvider)(nil)
