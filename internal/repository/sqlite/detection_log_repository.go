package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kuldeep456789/VisionIQ/internal/common"
	"github.com/kuldeep456789/VisionIQ/internal/dbx"
	"github.com/kuldeep456789/VisionIQ/internal/model"
)

// DetectionLogRepository implements repository.DetectionLogRepository for SQLite.
type DetectionLogRepository struct {
	db *DB
}

// NewDetectionLogRepository creates a new SQLite detection log repository.
func NewDetectionLogRepository(db *DB) *DetectionLogRepository {
	return &DetectionLogRepository{db: db}
}

// Insert appends a detection log entry.
func (r *DetectionLogRepository) Insert(ctx context.Context, l *model.DetectionLog) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO detection_logs (user_id, source, detections, image_key, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, nullableID(l.UserID), l.Source, string(l.Detections), nullableKey(l.ImageKey), l.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert detection log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read detection log id: %w", err)
	}
	l.ID = id
	return id, nil
}

// GetByID retrieves one of the user's entries.
func (r *DetectionLogRepository) GetByID(ctx context.Context, userID, id int64) (*model.DetectionLog, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRowContext(ctx, `
		SELECT id, user_id, source, detections, image_key, created_at
		FROM detection_logs WHERE id = ? AND user_id = ?
	`, id, userID)

	l, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get detection log: %w", err)
	}
	return l, nil
}

// ListByUser returns the user's entries, newest first.
func (r *DetectionLogRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]model.DetectionLog, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, user_id, source, detections, image_key, created_at
		FROM detection_logs WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query detection logs: %w", err)
	}
	defer rows.Close()

	var logs []model.DetectionLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan detection log: %w", err)
		}
		logs = append(logs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate detection logs: %w", err)
	}
	return logs, nil
}

// CountByUser returns how many entries the user has.
func (r *DetectionLogRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var n int
	err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM detection_logs WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count detection logs: %w", err)
	}
	return n, nil
}

// Count returns the number of entries across all users.
func (r *DetectionLogRepository) Count(ctx context.Context) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var n int
	if err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM detection_logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count detection logs: %w", err)
	}
	return n, nil
}

// Delete removes one of the user's entries.
func (r *DetectionLogRepository) Delete(ctx context.Context, userID, id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().ExecContext(ctx, `DELETE FROM detection_logs WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete detection log: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete detection log: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// DeleteAllByUser removes all of the user's entries and returns their image keys.
func (r *DetectionLogRepository) DeleteAllByUser(ctx context.Context, userID int64) ([]string, error) {
	r.db.Lock()
	defer r.db.Unlock()

	var keys []string
	err := dbx.WithTx(ctx, r.db.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT image_key FROM detection_logs
			WHERE user_id = ? AND image_key IS NOT NULL
		`, userID)
		if err != nil {
			return err
		}
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				rows.Close()
				return err
			}
			keys = append(keys, key)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM detection_logs WHERE user_id = ?`, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clear detection logs: %w", err)
	}
	return keys, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLog(s scanner) (*model.DetectionLog, error) {
	var (
		l          model.DetectionLog
		userID     sql.NullInt64
		detections string
		imageKey   sql.NullString
	)
	if err := s.Scan(&l.ID, &userID, &l.Source, &detections, &imageKey, &l.CreatedAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		id := userID.Int64
		l.UserID = &id
	}
	l.Detections = []byte(detections)
	l.ImageKey = imageKey.String
	return &l, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func nullableKey(key string) sql.NullString {
	return sql.NullString{String: key, Valid: key != ""}
}
