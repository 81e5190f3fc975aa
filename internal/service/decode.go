package service

import (
	"bytes"
	"encoding/base64"
	"image"
	"strings"

	// decoders available to uploaded images
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/kuldeep456789/VisionIQ/internal/common"
)

// DecodeImage decodes a base64 payload, optionally wrapped in a data: URI,
// and checks that a registered codec recognises it. It returns the raw bytes
// and their MIME type.
func DecodeImage(encoded string) ([]byte, string, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		comma := strings.IndexByte(encoded, ',')
		if comma < 0 || !strings.HasSuffix(encoded[:comma], ";base64") {
			return nil, "", common.ErrDecodeImage
		}
		encoded = encoded[comma+1:]
	}
	if encoded == "" {
		return nil, "", common.ErrNoImage
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, "", common.ErrDecodeImage
		}
	}

	contentType, err := SniffImage(data)
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

// SniffImage returns the MIME type of an encoded image, or
// common.ErrDecodeImage if no codec accepts it.
func SniffImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", common.ErrNoImage
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return "", common.ErrDecodeImage
	}
	return "image/" + format, nil
}
