// Package gormstore is the ORM storage backend: the same schema as the
// postgres package, managed by gorm AutoMigrate.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kuldeep456789/VisionIQ/internal/common"
	"github.com/kuldeep456789/VisionIQ/internal/model"
	"github.com/kuldeep456789/VisionIQ/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Store struct {
	db    *gorm.DB
	users *UserRepository
	logs  *DetectionLogRepository
}

var _ repository.Store = (*Store)(nil)

// Open connects to dsn and auto-migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("gorm open error: %w", err)
	}
	if err := db.AutoMigrate(&userRecord{}, &detectionLogRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate error: %w", err)
	}
	return New(db), nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	}
}

// New wraps an existing gorm handle.
func New(db *gorm.DB) *Store {
	return &Store{
		db:    db,
		users: &UserRepository{db: db},
		logs:  &DetectionLogRepository{db: db},
	}
}

func (s *Store) Users() repository.UserRepository { return s.users }

func (s *Store) DetectionLogs() repository.DetectionLogRepository { return s.logs }

func (s *Store) Name() string { return "gorm" }

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type UserRepository struct {
	db *gorm.DB
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	rec := userFromModel(u)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return translate(err)
	}
	u.ID = rec.ID
	u.CreatedAt = rec.CreatedAt
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var rec userRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return rec.toModel(), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var rec userRecord
	if err := r.db.WithContext(ctx).First(&rec, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return rec.toModel(), nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&userRecord{}).Count(&n).Error; err != nil {
		return 0, translate(err)
	}
	return int(n), nil
}

type DetectionLogRepository struct {
	db *gorm.DB
}

func (r *DetectionLogRepository) Insert(ctx context.Context, l *model.DetectionLog) (int64, error) {
	rec := logFromModel(l)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Omit("User").Create(rec).Error; err != nil {
		return 0, translate(err)
	}
	l.ID = rec.ID
	l.CreatedAt = rec.CreatedAt
	return rec.ID, nil
}

func (r *DetectionLogRepository) GetByID(ctx context.Context, userID, id int64) (*model.DetectionLog, error) {
	var rec detectionLogRecord
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&rec).Error
	if err != nil {
		return nil, translate(err)
	}
	l := rec.toModel()
	return &l, nil
}

func (r *DetectionLogRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]model.DetectionLog, error) {
	var recs []detectionLogRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&recs).Error
	if err != nil {
		return nil, translate(err)
	}
	logs := make([]model.DetectionLog, 0, len(recs))
	for i := range recs {
		logs = append(logs, recs[i].toModel())
	}
	return logs, nil
}

func (r *DetectionLogRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&detectionLogRecord{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, translate(err)
	}
	return int(n), nil
}

func (r *DetectionLogRepository) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&detectionLogRecord{}).Count(&n).Error; err != nil {
		return 0, translate(err)
	}
	return int(n), nil
}

func (r *DetectionLogRepository) Delete(ctx context.Context, userID, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&detectionLogRecord{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *DetectionLogRepository) DeleteAllByUser(ctx context.Context, userID int64) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&detectionLogRecord{}).
			Where("user_id = ? AND image_key IS NOT NULL", userID).
			Pluck("image_key", &keys).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&detectionLogRecord{}).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return keys, nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return common.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return common.ErrAlreadyExists
	default:
		return fmt.Errorf("db error: %w", err)
	}
}
