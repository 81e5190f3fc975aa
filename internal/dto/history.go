package dto

import (
	"encoding/json"
	"time"
)

// HistoryItem is one saved detection as shown in the history list.
type HistoryItem struct {
	ID          int64          `json:"id"`
	Type        string         `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	Description string         `json:"description"`
	ObjectCount int            `json:"objectCount"`
	Details     map[string]int `json:"details"`
	Detections  []Detection    `json:"detections"`
	HasImage    bool           `json:"hasImage"`
}

// MarshalJSON formats the timestamp as RFC 3339 in UTC.
func (h HistoryItem) MarshalJSON() ([]byte, error) {
	type Alias HistoryItem
	return json.Marshal(&struct {
		Timestamp string `json:"timestamp"`
		Alias
	}{
		Timestamp: h.Timestamp.UTC().Format(time.RFC3339),
		Alias:     (Alias)(h),
	})
}

type HistoryPage struct {
	Items      []HistoryItem `json:"items"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
}

type HistoryStats struct {
	Entries  int            `json:"entries"`
	Objects  int            `json:"objects"`
	PerLabel map[string]int `json:"perLabel"`
}
