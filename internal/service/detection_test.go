package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kuldeep456789/VisionIQ/internal/common"
	"github.com/kuldeep456789/VisionIQ/internal/dto"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/kuldeep456789/VisionIQ/internal/service/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *ai.Result {
	return &ai.Result{
		Width:  100,
		Height: 50,
		Objects: []ai.Object{
			{Label: "car", Confidence: 0.6, X1: 0, Y1: 0, X2: 50, Y2: 25},
			{Label: "person", Confidence: 0.9, X1: 10, Y1: 10, X2: 20, Y2: 40},
			{Label: "dog", Confidence: 0.1, X1: 0, Y1: 0, X2: 10, Y2: 10},
		},
	}
}

type detectionFixture struct {
	svc       *DetectionService
	detector  *fakeDetector
	logs      *fakeLogs
	archive   *fakeArchive
	publisher *fakePublisher
}

func newDetectionFixture(persist bool) *detectionFixture {
	f := &detectionFixture{
		detector:  &fakeDetector{result: sampleResult()},
		logs:      newFakeLogs(),
		archive:   newFakeArchive(),
		publisher: &fakePublisher{},
	}
	f.svc = NewDetectionService(f.detector, f.logs, f.archive, f.publisher,
		DetectionOptions{ConfidenceThreshold: ai.DefaultConfidenceThreshold, PersistByDefault: persist},
		logger.Discard())
	return f
}

func TestDetectionService_DetectEncoded(t *testing.T) {
	f := newDetectionFixture(true)
	uid := int64(3)

	got, err := f.svc.DetectEncoded(context.Background(), dto.DetectRequest{Image: pngBase64(t)}, &uid)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "person", got[0].Label)
	assert.Equal(t, "car", got[1].Label)
	assert.InDelta(t, 0.5, got[1].Box.Width, 1e-9)

	entry, err := f.logs.GetByID(context.Background(), uid, 1)
	require.NoError(t, err)
	assert.Equal(t, "image", entry.Source)
	assert.True(t, entry.HasImage())
	assert.Contains(t, f.archive.objects, entry.ImageKey)

	var stored []dto.Detection
	require.NoError(t, json.Unmarshal(entry.Detections, &stored))
	assert.Equal(t, got, stored)

	require.Len(t, f.publisher.events, 1)
	ev := f.publisher.events[0]
	assert.Equal(t, int64(1), ev.LogID)
	assert.Equal(t, &uid, ev.UserID)
	assert.Equal(t, got, ev.Detections)
	assert.NotEmpty(t, ev.ID)
}

func TestDetectionService_SaveOverride(t *testing.T) {
	f := newDetectionFixture(true)
	no := false

	_, err := f.svc.DetectEncoded(context.Background(), dto.DetectRequest{Image: pngBase64(t), Save: &no}, nil)
	require.NoError(t, err)
	n, _ := f.logs.Count(context.Background())
	assert.Zero(t, n)
	assert.Empty(t, f.archive.objects)
	assert.Len(t, f.publisher.events, 1)
	assert.Zero(t, f.publisher.events[0].LogID)

	f = newDetectionFixture(false)
	yes := true
	_, err = f.svc.DetectEncoded(context.Background(), dto.DetectRequest{Image: pngBase64(t), Save: &yes}, nil)
	require.NoError(t, err)
	n, _ = f.logs.Count(context.Background())
	assert.Equal(t, 1, n)
}

func TestDetectionService_PersistFailureDoesNotFail(t *testing.T) {
	f := newDetectionFixture(true)
	f.logs.insertErr = errors.New("disk full")

	got, err := f.svc.DetectEncoded(context.Background(), dto.DetectRequest{Image: pngBase64(t)}, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Empty(t, f.archive.objects, "orphaned image should be removed")
}

func TestDetectionService_ArchiveFailureStillSaves(t *testing.T) {
	f := newDetectionFixture(true)
	f.archive.putErr = errors.New("bucket gone")

	_, err := f.svc.DetectEncoded(context.Background(), dto.DetectRequest{Image: pngBase64(t)}, nil)
	require.NoError(t, err)
	require.Len(t, f.logs.entries, 1)
	assert.False(t, f.logs.entries[1].HasImage())
}

func TestDetectionService_PublishFailureDoesNotFail(t *testing.T) {
	f := newDetectionFixture(false)
	f.publisher.err = errors.New("broker down")

	_, err := f.svc.DetectEncoded(context.Background(), dto.DetectRequest{Image: pngBase64(t)}, nil)
	assert.NoError(t, err)
}

func TestDetectionService_Errors(t *testing.T) {
	f := newDetectionFixture(true)

	_, err := f.svc.DetectEncoded(context.Background(), dto.DetectRequest{}, nil)
	assert.ErrorIs(t, err, common.ErrNoImage)

	_, err = f.svc.DetectEncoded(context.Background(), dto.DetectRequest{Image: "!!!"}, nil)
	assert.ErrorIs(t, err, common.ErrDecodeImage)

	_, err = f.svc.DetectEncoded(context.Background(), dto.DetectRequest{Image: pngBase64(t), Source: "radar"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Zero(t, f.detector.calls)

	f.detector.err = errors.New("model exploded")
	_, err = f.svc.DetectEncoded(context.Background(), dto.DetectRequest{Image: pngBase64(t)}, nil)
	assert.EqualError(t, err, "model exploded")
	assert.Empty(t, f.publisher.events)
}

func TestDetectionService_NoStore(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewDetectionService(&fakeDetector{result: sampleResult()}, nil, nil, pub, DetectionOptions{PersistByDefault: true}, logger.Discard())

	got, err := svc.DetectEncoded(context.Background(), dto.DetectRequest{Image: pngBase64(t), Source: "live"}, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "live", pub.events[0].Source)
}

func TestDetectionService_EmptyResultIsEmptyArray(t *testing.T) {
	svc := NewDetectionService(&fakeDetector{result: &ai.Result{Width: 10, Height: 10}}, nil, nil, nil, DetectionOptions{}, logger.Discard())

	got, err := svc.DetectEncoded(context.Background(), dto.DetectRequest{Image: pngBase64(t)}, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	data, _ := json.Marshal(got)
	assert.JSONEq(t, "[]", string(data))
}

func TestDetectionService_Annotate(t *testing.T) {
	det := &annotatingDetector{fakeDetector: fakeDetector{result: sampleResult()}}
	svc := NewDetectionService(det, nil, nil, nil, DetectionOptions{}, logger.Discard())

	out, err := svc.Annotate(context.Background(), dto.DetectRequest{Image: pngBase64(t)})
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), out)
	assert.Len(t, det.got, 2)
}

func TestDetectionService_AnnotateNotSupported(t *testing.T) {
	svc := NewDetectionService(&fakeDetector{result: sampleResult()}, nil, nil, nil, DetectionOptions{}, logger.Discard())

	_, err := svc.Annotate(context.Background(), dto.DetectRequest{Image: pngBase64(t)})
	assert.ErrorIs(t, err, common.ErrNotSupported)
}
