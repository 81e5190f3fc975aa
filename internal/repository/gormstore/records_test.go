package gormstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kuldeep456789/VisionIQ/internal/common"
	"github.com/kuldeep456789/VisionIQ/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRecordConversion(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	u := &model.User{ID: 5, Email: "a@b.c", PasswordHash: "h", Name: "A", CreatedAt: now}

	rec := userFromModel(u)
	assert.Equal(t, "users", rec.TableName())
	assert.Equal(t, u, rec.toModel())
}

func TestDetectionLogRecordConversion(t *testing.T) {
	uid := int64(9)
	l := &model.DetectionLog{
		ID:         3,
		UserID:     &uid,
		Source:     model.SourceVideo,
		Detections: json.RawMessage(`[{"label":"dog"}]`),
		ImageKey:   "2025/06/15/x.jpg",
		CreatedAt:  time.Now().UTC(),
	}

	rec := logFromModel(l)
	require.NotNil(t, rec.ImageKey)
	assert.Equal(t, "2025/06/15/x.jpg", *rec.ImageKey)
	assert.Equal(t, "detection_logs", rec.TableName())
	assert.Equal(t, *l, rec.toModel())

	anon := logFromModel(&model.DetectionLog{Source: model.SourceImage, Detections: json.RawMessage(`[]`)})
	assert.Nil(t, anon.ImageKey)
	assert.Nil(t, anon.UserID)
	assert.False(t, func() *model.DetectionLog { m := anon.toModel(); return &m }().HasImage())
}

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), common.ErrNotFound)
	assert.ErrorIs(t, translate(fmt.Errorf("wrap: %w", gorm.ErrDuplicatedKey)), common.ErrAlreadyExists)

	boom := errors.New("boom")
	err := translate(boom)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "db error")
}
