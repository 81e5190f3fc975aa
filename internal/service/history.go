package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kuldeep456789/VisionIQ/internal/common"
	"github.com/kuldeep456789/VisionIQ/internal/dto"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/kuldeep456789/VisionIQ/internal/model"
	"github.com/kuldeep456789/VisionIQ/internal/repository"
	"github.com/kuldeep456789/VisionIQ/internal/service/storage"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200

	presignTTL = 15 * time.Minute
	statsBatch = 500
)

type HistoryService struct {
	logs    repository.DetectionLogRepository // nil when storage is disabled
	archive storage.Archive                   // nil when archiving is disabled
	logger  *logger.Logger
}

func NewHistoryService(logs repository.DetectionLogRepository, archive storage.Archive, logger *logger.Logger) *HistoryService {
	return &HistoryService{logs: logs, archive: archive, logger: logger}
}

// List returns one page of the user's entries, newest first. Page is 1-based;
// a non-positive limit means DefaultHistoryLimit.
func (s *HistoryService) List(ctx context.Context, userID int64, page, limit int) (*dto.HistoryPage, error) {
	if s.logs == nil {
		return nil, common.ErrStoreDisabled
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	total, err := s.logs.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.logs.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	items := make([]dto.HistoryItem, 0, len(entries))
	for i := range entries {
		items = append(items, s.toItem(&entries[i]))
	}

	return &dto.HistoryPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// Stats totals every entry of the user.
func (s *HistoryService) Stats(ctx context.Context, userID int64) (*dto.HistoryStats, error) {
	if s.logs == nil {
		return nil, common.ErrStoreDisabled
	}

	stats := &dto.HistoryStats{PerLabel: map[string]int{}}
	for offset := 0; ; offset += statsBatch {
		entries, err := s.logs.ListByUser(ctx, userID, statsBatch, offset)
		if err != nil {
			return nil, err
		}
		for i := range entries {
			stats.Entries++
			for _, d := range s.detections(&entries[i]) {
				stats.Objects++
				stats.PerLabel[d.Label]++
			}
		}
		if len(entries) < statsBatch {
			return stats, nil
		}
	}
}

// Image is an archived source image, either inline or as a download URL.
type Image struct {
	Data        []byte
	ContentType string
	RedirectURL string
}

// Image returns the archived image of entry id. Entries without an image, or
// owned by someone else, return common.ErrNotFound.
func (s *HistoryService) Image(ctx context.Context, userID, id int64) (*Image, error) {
	if s.logs == nil {
		return nil, common.ErrStoreDisabled
	}
	entry, err := s.logs.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !entry.HasImage() || s.archive == nil {
		return nil, fmt.Errorf("image of entry %d: %w", id, common.ErrNotFound)
	}

	if p, ok := s.archive.(storage.Presigner); ok {
		url, err := p.PresignGet(ctx, entry.ImageKey, presignTTL)
		if err != nil {
			return nil, err
		}
		return &Image{RedirectURL: url}, nil
	}

	data, contentType, err := s.archive.Get(ctx, entry.ImageKey)
	if err != nil {
		return nil, err
	}
	return &Image{Data: data, ContentType: contentType}, nil
}

// Delete removes one entry and its archived image.
func (s *HistoryService) Delete(ctx context.Context, userID, id int64) error {
	if s.logs == nil {
		return common.ErrStoreDisabled
	}
	entry, err := s.logs.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.logs.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.removeImages(ctx, entry.ImageKey)
	return nil
}

// DeleteAll removes every entry of the user and their archived images.
func (s *HistoryService) DeleteAll(ctx context.Context, userID int64) error {
	if s.logs == nil {
		return common.ErrStoreDisabled
	}
	keys, err := s.logs.DeleteAllByUser(ctx, userID)
	if err != nil {
		return err
	}
	s.removeImages(ctx, keys...)
	s.logger.Info("History cleared for user %d (%d images)", userID, len(keys))
	return nil
}

func (s *HistoryService) removeImages(ctx context.Context, keys ...string) {
	if s.archive == nil {
		return
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.archive.Delete(ctx, key); err != nil && !errors.Is(err, common.ErrNotFound) {
			s.logger.Warning("Failed to delete archived image %s: %v", key, err)
		}
	}
}

func (s *HistoryService) detections(entry *model.DetectionLog) []dto.Detection {
	var out []dto.Detection
	if len(entry.Detections) == 0 {
		return out
	}
	if err := json.Unmarshal(entry.Detections, &out); err != nil {
		s.logger.Warning("Detection log %d has unreadable detections: %v", entry.ID, err)
		return nil
	}
	return out
}

func (s *HistoryService) toItem(entry *model.DetectionLog) dto.HistoryItem {
	detections := s.detections(entry)
	if detections == nil {
		detections = []dto.Detection{}
	}

	details := make(map[string]int)
	for _, d := range detections {
		details[d.Label]++
	}

	return dto.HistoryItem{
		ID:          entry.ID,
		Type:        entry.Source,
		Timestamp:   entry.CreatedAt,
		Description: Describe(details),
		ObjectCount: len(detections),
		Details:     details,
		Detections:  detections,
		HasImage:    entry.HasImage(),
	}
}

// Describe summarises label counts, most frequent first ("2 person, 1 car").
func Describe(counts map[string]int) string {
	if len(counts) == 0 {
		return "No objects detected"
	}
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	parts := make([]string, len(labels))
	for i, label := range labels {
		parts[i] = fmt.Sprintf("%d %s", counts[label], label)
	}
	return strings.Join(parts, ", ")
}
