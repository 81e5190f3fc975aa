package dto

import "time"

// DetectionEvent is broadcast to event viewers and MQTT after each
// successful detection.
type DetectionEvent struct {
	ID         string      `json:"id"`
	Source     string      `json:"source"`
	UserID     *int64      `json:"userId,omitempty"`
	LogID      int64       `json:"logId,omitempty"`
	Detections []Detection `json:"detections"`
	Timestamp  time.Time   `json:"timestamp"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Detector string `json:"detector"`
	Storage  string `json:"storage"`
}
