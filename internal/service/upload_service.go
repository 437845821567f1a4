package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"launchpad/api/internal/media"
	"launchpad/api/internal/storage"
)

// FileInput is one uploaded file as received from the transport layer.
type FileInput struct {
	Name    string
	Size    int64
	Content io.Reader
}

type UploadOptions struct {
	MaxFileBytes int64
	MaxFiles     int
}

type UploadService struct {
	store ObjectStorage
	opts  UploadOptions
	log   zerolog.Logger
	now   func() time.Time
}

func NewUploadService(store ObjectStorage, opts UploadOptions, log zerolog.Logger) *UploadService {
	return &UploadService{
		store: store,
		opts:  opts,
		log:   log,
		now:   time.Now,
	}
}

// UploadImages validates every file as an image and stores it publicly.
// It returns the public URLs in input order. If any file fails, objects
// already written by this call are removed.
func (s *UploadService) UploadImages(ctx context.Context, files []FileInput) ([]string, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", ErrBadRequest)
	}
	if s.opts.MaxFiles > 0 && len(files) > s.opts.MaxFiles {
		return nil, fmt.Errorf("%w: at most %d files per request", ErrBadRequest, s.opts.MaxFiles)
	}

	urls := make([]string, 0, len(files))
	keys := make([]string, 0, len(files))
	for _, file := range files {
		url, key, err := s.uploadImage(ctx, file)
		if err != nil {
			s.rollback(keys)
			return nil, err
		}
		urls = append(urls, url)
		keys = append(keys, key)
	}

	return urls, nil
}

func (s *UploadService) uploadImage(ctx context.Context, file FileInput) (string, string, error) {
	if file.Content == nil {
		return "", "", fmt.Errorf("%w: invalid file payload", ErrBadRequest)
	}
	if s.opts.MaxFileBytes > 0 && file.Size > s.opts.MaxFileBytes {
		return "", "", fmt.Errorf("%w: %s exceeds %d bytes", ErrBadRequest, file.Name, s.opts.MaxFileBytes)
	}

	reader := file.Content
	if s.opts.MaxFileBytes > 0 {
		reader = io.LimitReader(reader, s.opts.MaxFileBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", file.Name, err)
	}
	if len(data) == 0 {
		return "", "", fmt.Errorf("%w: %s is empty", ErrBadRequest, file.Name)
	}
	if s.opts.MaxFileBytes > 0 && int64(len(data)) > s.opts.MaxFileBytes {
		return "", "", fmt.Errorf("%w: %s exceeds %d bytes", ErrBadRequest, file.Name, s.opts.MaxFileBytes)
	}

	kind, err := media.Detect(data)
	if err != nil {
		if errors.Is(err, media.ErrNotImage) {
			return "", "", fmt.Errorf("%w: %s is not an image", ErrBadRequest, file.Name)
		}
		return "", "", err
	}

	if kind == media.KindSVG {
		data, err = media.SanitizeSVG(data)
		if err != nil {
			return "", "", fmt.Errorf("%w: %s is not an image", ErrBadRequest, file.Name)
		}
	}

	key := objectKey(file.Name, kind)
	url, err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{
		ContentType:        kind.MIME,
		ContentDisposition: "inline",
		CacheControl:       "public, max-age=31536000",
		PublicRead:         true,
		Metadata: map[string]string{
			"original-name": file.Name,
			"upload-date":   s.now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("upload %s: %w", file.Name, err)
	}

	s.log.Debug().Str("key", key).Int("bytes", len(data)).Msg("image uploaded")
	return url, key, nil
}

// Remove deletes a previously uploaded object by its public URL.
// Remove deletes a previously uploaded image by its public URL. URLs that
// do not belong to the store are rejected.
func (s *UploadService) Remove(ctx context.Context, url string) error {
	key, err := s.store.KeyFromURL(url)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if err := s.store.Remove(ctx, key); err != nil {
		return fmt.Errorf("remove image: %w", err)
	}
	s.log.Info().Str("key", key).Msg("image removed")
	return nil
}

func (s *UploadService) rollback(keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, key := range keys {
		if err := s.store.Remove(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("rollback upload failed")
		}
	}
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// objectKey is "<uuid>-<sanitized name>" with the extension forced to match
// the detected content.
func objectKey(name string, kind media.Kind) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.Trim(unsafeNameChars.ReplaceAllString(base, "-"), "-.")
	if base == "" {
		base = "image"
	}
	if len(base) > 80 {
		base = base[:80]
	}
	return fmt.Sprintf("%s-%s.%s", uuid.NewString(), base, kind.Ext)
}
