package model

import (
	"encoding/json"
	"time"
)

// Detection sources.
const (
	SourceImage = "image"
	SourceLive  = "live"
	SourceVideo = "video"
)

// DetectionLog is one persisted detection request. Detections holds the JSON
// array returned to the client, stored as-is.
type DetectionLog struct {
	ID         int64
	UserID     *int64
	Source     string
	Detections json.RawMessage
	ImageKey   string
	CreatedAt  time.Time
}

// HasImage reports whether the source image was archived.
func (l *DetectionLog) HasImage() bool {
	return l.ImageKey != ""
}

// ValidSource reports whether s is a known detection source.
func ValidSource(s string) bool {
	switch s {
	case SourceImage, SourceLive, SourceVideo:
		return true
	}
	return false
}
