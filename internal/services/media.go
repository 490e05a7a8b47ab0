package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/lovestory/apiserver/internal/storage"
)

// ErrObjectNotFound is returned when a media object does not exist.
var ErrObjectNotFound = storage.ErrObjectNotFound

// FileStore defines the object-storage operations the media service needs.
type FileStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// MediaService stores uploaded story images in object storage and maps
// between object keys and the public URLs handed to clients. Uploads and
// deletes are independent calls; nothing ties an image's existence to the
// story that references it.
type MediaService struct {
	store         FileStore
	publicBaseURL string
}

const (
	uploadsPrefix   = "/uploads/"
	placeholderFile = "placeholder.jpg"
)

func NewMediaService(store FileStore, publicBaseURL string) *MediaService {
	return &MediaService{
		store:         store,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Upload stores the image under a fresh key and returns its public URL.
func (s *MediaService) Upload(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error) {
	key := uuid.NewString() + strings.ToLower(path.Ext(filename))
	if err := s.store.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}
	return s.publicBaseURL + uploadsPrefix + key, nil
}

// Open streams a stored image by key, returning the reader and content type.
func (s *MediaService) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return s.store.Get(ctx, key)
}

// Delete removes the image behind a public URL. URLs that do not point at
// this service's uploads, including the placeholder, are ignored, and an
// already-absent object counts as deleted.
func (s *MediaService) Delete(ctx context.Context, imageURL string) error {
	key, ok := s.keyFromURL(imageURL)
	if !ok {
		return nil
	}
	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return err
	}
	return nil
}

// PlaceholderURL is the fixed image used when an edit omits imageUrl.
func (s *MediaService) PlaceholderURL() string {
	return fmt.Sprintf("%s/assets/%s", s.publicBaseURL, placeholderFile)
}

func (s *MediaService) keyFromURL(imageURL string) (string, bool) {
	prefix := s.publicBaseURL + uploadsPrefix
	if !strings.HasPrefix(imageURL, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(imageURL, prefix)
	if key == "" || strings.Contains(key, "/") {
		return "", false
	}
	return key, true
}
