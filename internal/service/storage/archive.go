// Package storage archives source images of saved detections on disk or S3.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kuldeep456789/VisionIQ/internal/common"
)

// Archive stores image bytes under opaque keys.
type Archive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns common.ErrNotFound for unknown keys.
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
	Name() string
}

// Presigner is implemented by archives that can hand out direct download URLs.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

var extByType = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/bmp":  "bmp",
	"image/webp": "webp",
	"image/tiff": "tiff",
}

// NewKey returns <yyyy>/<mm>/<dd>/<uuid>.<ext> for an image of contentType.
func NewKey(now time.Time, contentType string) string {
	ext, ok := extByType[contentType]
	if !ok {
		ext = "bin"
	}
	now = now.UTC()
	return fmt.Sprintf("%04d/%02d/%02d/%s.%s", now.Year(), now.Month(), now.Day(), uuid.NewString(), ext)
}

// ContentTypeForKey maps a key's extension back to its MIME type.
func ContentTypeForKey(key string) string {
	ext := strings.TrimPrefix(path.Ext(key), ".")
	for ct, e := range extByType {
		if e == ext {
			return ct
		}
	}
	return "application/octet-stream"
}

// validKey rejects keys that could escape the archive root.
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") || strings.ContainsRune(key, 0) {
		return fmt.Errorf("%w: bad archive key %q", common.ErrInvalidInput, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: bad archive key %q", common.ErrInvalidInput, key)
		}
	}
	return nil
}
