package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"launchpad/api/internal/config"
)

// PutOptions describes how an uploaded object is served back.
type PutOptions struct {
	ContentType        string
	ContentDisposition string
	CacheControl       string
	Metadata           map[string]string
	PublicRead         bool
}

// ObjectStore talks to any S3-compatible endpoint (DigitalOcean Spaces,
// MinIO, AWS).
type ObjectStore struct {
	client *minio.Client
	cfg    config.StorageConfig
}

func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage.bucket is required")
	}

	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ObjectStore{
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.cfg.Bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.cfg.Bucket, err)
		}
	}
	return nil
}

// Put uploads an object and returns its public https URL.
func (s *ObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, opts PutOptions) (string, error) {
	meta := make(map[string]string, len(opts.Metadata)+1)
	for k, v := range opts.Metadata {
		meta[k] = v
	}
	if opts.PublicRead {
		meta["x-amz-acl"] = "public-read"
	}

	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, r, size, minio.PutObjectOptions{
		ContentType:        opts.ContentType,
		ContentDisposition: opts.ContentDisposition,
		CacheControl:       opts.CacheControl,
		UserMetadata:       meta,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return PublicURL(s.cfg, key), nil
}

func (s *ObjectStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// PublicURL builds the virtual-hosted style URL of key, always over https.
// A configured public base URL (CDN) takes precedence.
func PublicURL(cfg config.StorageConfig, key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()

	if cfg.PublicBaseURL != "" {
		return strings.TrimSuffix(forceHTTPS(cfg.PublicBaseURL), "/") + "/" + escaped
	}

	host := strings.TrimSuffix(cfg.Endpoint, "/")
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", cfg.Bucket, host, escaped)
}

// KeyFromURL recovers the object key from a URL produced by PublicURL for
// the same configuration. URLs pointing anywhere else are rejected.
func KeyFromURL(cfg config.StorageConfig, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse object url: %w", err)
	}
	base, err := url.Parse(PublicURL(cfg, ""))
	if err != nil {
		return "", fmt.Errorf("parse public url: %w", err)
	}
	if !strings.EqualFold(u.Host, base.Host) || !strings.HasPrefix(u.Path, base.Path) {
		return "", errors.New("object url does not belong to this bucket")
	}
	key := strings.TrimPrefix(u.Path, base.Path)
	if key == "" {
		return "", errors.New("object url has no key")
	}
	return key, nil
}

// KeyFromURL resolves a public URL of this store back to its key.
func (s *ObjectStore) KeyFromURL(raw string) (string, error) {
	return KeyFromURL(s.cfg, raw)
}

func forceHTTPS(raw string) string {
	switch {
	case strings.HasPrefix(raw, "https://"):
		return raw
	case strings.HasPrefix(raw, "http://"):
		return "https://" + strings.TrimPrefix(raw, "http://")
	default:
		return "https://" + raw
	}
}
