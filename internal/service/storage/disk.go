package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kuldeep456789/VisionIQ/internal/common"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
)

type bufferedImage struct {
	key  string
	data []byte
}

// DiskArchive buffers images in memory and periodically flushes them to disk.
// Buffered images are readable before they are flushed.
type DiskArchive struct {
	imagesDir   string
	bufferLimit int
	images      []bufferedImage
	mu          sync.Mutex
	logger      *logger.Logger
}

var _ Archive = (*DiskArchive)(nil)

// NewDiskArchive creates a DiskArchive rooted at dir. A bufferLimit below 1
// writes every image immediately.
func NewDiskArchive(dir string, bufferLimit int, log *logger.Logger) (*DiskArchive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating directory: %w", err)
	}
	return &DiskArchive{
		imagesDir:   dir,
		bufferLimit: bufferLimit,
		logger:      log,
	}, nil
}

func (s *DiskArchive) Name() string { return "disk" }

// Run flushes the buffer every interval until ctx is done, then flushes once more.
func (s *DiskArchive) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Flush()
		case <-ctx.Done():
			s.Flush()
			return
		}
	}
}

// Put buffers data under key. When the buffer is full it is flushed first.
func (s *DiskArchive) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := validKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bufferLimit < 1 {
		return s.write(key, data)
	}
	if len(s.images) >= s.bufferLimit {
		s.flushLocked()
	}
	s.images = append(s.images, bufferedImage{key: key, data: data})
	s.logger.Debug("Archive buffer size: %d/%d", len(s.images), s.bufferLimit)
	return nil
}

func (s *DiskArchive) Get(ctx context.Context, key string) ([]byte, string, error) {
	if err := validKey(key); err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	for _, img := range s.images {
		if img.key == key {
			data := img.data
			s.mu.Unlock()
			return data, ContentTypeForKey(key), nil
		}
	}
	s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", common.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("error reading image %s: %w", key, err)
	}
	return data, ContentTypeForKey(key), nil
}

// Delete removes key from the buffer and from disk. Missing keys are not an error.
func (s *DiskArchive) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.images[:0]
	for _, img := range s.images {
		if img.key != key {
			kept = append(kept, img)
		}
	}
	s.images = kept
	s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error deleting image %s: %w", key, err)
	}
	return nil
}

// Flush writes buffered images to disk and resets the buffer.
func (s *DiskArchive) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

// Buffered is the number of images waiting to be flushed.
func (s *DiskArchive) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

func (s *DiskArchive) flushLocked() {
	if len(s.images) == 0 {
		return
	}

	savedCount := 0
	var failed []bufferedImage
	for _, img := range s.images {
		if err := s.write(img.key, img.data); err != nil {
			s.logger.Error("Error saving image %s: %v", img.key, err)
			failed = append(failed, img)
			continue
		}
		savedCount++
	}

	s.logger.Info("Flushed %d images to disk", savedCount)
	s.images = failed
}

func (s *DiskArchive) write(key string, data []byte) error {
	full := s.path(key)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0644)
}

func (s *DiskArchive) path(key string) string {
	return filepath.Join(s.imagesDir, filepath.FromSlash(key))
}
