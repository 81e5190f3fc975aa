package gormstore

import (
	"encoding/json"
	"time"

	"github.com/kuldeep456789/VisionIQ/internal/model"
)

type userRecord struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Email        string    `gorm:"uniqueIndex;size:320;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	Name         string    `gorm:"size:120;not null;default:''"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (userRecord) TableName() string { return "users" }

type detectionLogRecord struct {
	ID         int64       `gorm:"primaryKey;autoIncrement"`
	UserID     *int64      `gorm:"index:idx_detection_logs_user_created,priority:1"`
	User       *userRecord `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
	Source     string      `gorm:"size:16;not null"`
	Detections string      `gorm:"type:jsonb;not null"`
	ImageKey   *string     `gorm:"size:255"`
	CreatedAt  time.Time   `gorm:"not null;index:idx_detection_logs_user_created,priority:2"`
}

func (detectionLogRecord) TableName() string { return "detection_logs" }

func userFromModel(u *model.User) *userRecord {
	return &userRecord{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		CreatedAt:    u.CreatedAt,
	}
}

func (r *userRecord) toModel() *model.User {
	return &model.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Name:         r.Name,
		CreatedAt:    r.CreatedAt,
	}
}

func logFromModel(l *model.DetectionLog) *detectionLogRecord {
	rec := &detectionLogRecord{
		ID:         l.ID,
		UserID:     l.UserID,
		Source:     l.Source,
		Detections: string(l.Detections),
		CreatedAt:  l.CreatedAt,
	}
	if l.ImageKey != "" {
		key := l.ImageKey
		rec.ImageKey = &key
	}
	return rec
}

func (r *detectionLogRecord) toModel() model.DetectionLog {
	l := model.DetectionLog{
		ID:         r.ID,
		UserID:     r.UserID,
		Source:     r.Source,
		Detections: json.RawMessage(r.Detections),
		CreatedAt:  r.CreatedAt,
	}
	if r.ImageKey != nil {
		l.ImageKey = *r.ImageKey
	}
	return l
}
