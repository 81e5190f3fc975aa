// Package service holds the business logic between HTTP handlers and the
// detector, storage and event backends.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kuldeep456789/VisionIQ/internal/common"
	"github.com/kuldeep456789/VisionIQ/internal/dto"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/kuldeep456789/VisionIQ/internal/model"
	"github.com/kuldeep456789/VisionIQ/internal/repository"
	"github.com/kuldeep456789/VisionIQ/internal/service/ai"
	"github.com/kuldeep456789/VisionIQ/internal/service/events"
	"github.com/kuldeep456789/VisionIQ/internal/service/storage"
)

type DetectionOptions struct {
	ConfidenceThreshold float64
	// PersistByDefault applies when a request does not say whether to save.
	PersistByDefault bool
}

type DetectionService struct {
	detector  ai.Detector
	logs      repository.DetectionLogRepository // nil when storage is disabled
	archive   storage.Archive                   // nil when archiving is disabled
	publisher events.Publisher
	opts      DetectionOptions
	logger    *logger.Logger
	now       func() time.Time
}

func NewDetectionService(
	detector ai.Detector,
	logs repository.DetectionLogRepository,
	archive storage.Archive,
	publisher events.Publisher,
	opts DetectionOptions,
	logger *logger.Logger,
) *DetectionService {
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = ai.DefaultConfidenceThreshold
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &DetectionService{
		detector:  detector,
		logs:      logs,
		archive:   archive,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// DetectInput is one already decoded image to run detection on.
type DetectInput struct {
	Image       []byte
	ContentType string
	Source      string
	UserID      *int64
	Save        *bool
}

// DetectEncoded decodes req and runs Detect on it.
func (s *DetectionService) DetectEncoded(ctx context.Context, req dto.DetectRequest, userID *int64) ([]dto.Detection, error) {
	data, contentType, err := DecodeImage(req.Image)
	if err != nil {
		return nil, err
	}
	return s.Detect(ctx, DetectInput{
		Image:       data,
		ContentType: contentType,
		Source:      req.Source,
		UserID:      userID,
		Save:        req.Save,
	})
}

// Detect runs the detector and returns detections above the confidence
// threshold, highest first. Saving and publishing failures are logged and
// never fail the call.
func (s *DetectionService) Detect(ctx context.Context, in DetectInput) ([]dto.Detection, error) {
	source, err := normalizeSource(in.Source)
	if err != nil {
		return nil, err
	}

	result, err := s.detector.Detect(ctx, in.Image)
	if err != nil {
		return nil, err
	}
	detections := ai.ToDetections(result, float32(s.opts.ConfidenceThreshold))

	var logID int64
	if s.shouldSave(in.Save) {
		logID = s.save(ctx, in, source, detections)
	}

	event := dto.DetectionEvent{
		ID:         uuid.NewString(),
		Source:     source,
		UserID:     in.UserID,
		LogID:      logID,
		Detections: detections,
		Timestamp:  s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warning("Failed to publish detection event: %v", err)
	}

	return detections, nil
}

// Annotate draws the detections onto the image and returns it as JPEG.
func (s *DetectionService) Annotate(ctx context.Context, req dto.DetectRequest) ([]byte, error) {
	annotator, ok := s.detector.(ai.Annotator)
	if !ok {
		return nil, fmt.Errorf("annotation with %s detector: %w", s.detector.Name(), common.ErrNotSupported)
	}

	data, _, err := DecodeImage(req.Image)
	if err != nil {
		return nil, err
	}
	result, err := s.detector.Detect(ctx, data)
	if err != nil {
		return nil, err
	}

	threshold := float32(s.opts.ConfidenceThreshold)
	kept := make([]ai.Object, 0, len(result.Objects))
	for _, o := range result.Objects {
		if o.Confidence >= threshold {
			kept = append(kept, o)
		}
	}
	return annotator.Annotate(ctx, data, kept)
}

func (s *DetectionService) DetectorName() string {
	return s.detector.Name()
}

// CheckDetector reports whether the detector's backing service is reachable.
func (s *DetectionService) CheckDetector(ctx context.Context) error {
	if hc, ok := s.detector.(ai.HealthChecker); ok {
		return hc.CheckHealth(ctx)
	}
	return nil
}

func (s *DetectionService) shouldSave(save *bool) bool {
	if s.logs == nil {
		return false
	}
	if save != nil {
		return *save
	}
	return s.opts.PersistByDefault
}

// save archives the image and appends a log entry. It returns the entry id,
// or 0 if nothing was stored.
func (s *DetectionService) save(ctx context.Context, in DetectInput, source string, detections []dto.Detection) int64 {
	payload, err := json.Marshal(detections)
	if err != nil {
		s.logger.Error("Failed to encode detections for storage: %v", err)
		return 0
	}

	entry := &model.DetectionLog{
		UserID:     in.UserID,
		Source:     source,
		Detections: payload,
	}

	if s.archive != nil {
		key := storage.NewKey(s.now(), in.ContentType)
		if err := s.archive.Put(ctx, key, in.Image, in.ContentType); err != nil {
			s.logger.Error("Failed to archive image: %v", err)
		} else {
			entry.ImageKey = key
		}
	}

	id, err := s.logs.Insert(ctx, entry)
	if err != nil {
		s.logger.Error("Failed to save detection log: %v", err)
		if entry.ImageKey != "" {
			if err := s.archive.Delete(ctx, entry.ImageKey); err != nil {
				s.logger.Warning("Failed to remove orphaned image %s: %v", entry.ImageKey, err)
			}
		}
		return 0
	}
	return id
}

func normalizeSource(source string) (string, error) {
	if source == "" {
		return model.SourceImage, nil
	}
	if !model.ValidSource(source) {
		return "", fmt.Errorf("%w: unknown source %q", common.ErrInvalidInput, source)
	}
	return source, nil
}
