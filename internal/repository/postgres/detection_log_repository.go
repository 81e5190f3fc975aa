package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kuldeep456789/VisionIQ/internal/common"
	"github.com/kuldeep456789/VisionIQ/internal/dbx"
	"github.com/kuldeep456789/VisionIQ/internal/model"
)

type DetectionLogRepository struct {
	db *sql.DB
}

func NewDetectionLogRepository(db *sql.DB) *DetectionLogRepository {
	return &DetectionLogRepository{db: db}
}

func (r *DetectionLogRepository) Insert(ctx context.Context, l *model.DetectionLog) (int64, error) {
	query :=
		`INSERT INTO detection_logs (user_id, source, detections, image_key)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		nullableID(l.UserID), l.Source, string(l.Detections), nullableKey(l.ImageKey)).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return l.ID, nil
}

func (r *DetectionLogRepository) GetByID(ctx context.Context, userID, id int64) (*model.DetectionLog, error) {
	query :=
		`SELECT id, user_id, source, detections, image_key, created_at FROM detection_logs
		 WHERE id = $1 AND user_id = $2`

	l, err := scanLog(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

func (r *DetectionLogRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]model.DetectionLog, error) {
	query :=
		`SELECT id, user_id, source, detections, image_key, created_at FROM detection_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var logs []model.DetectionLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		logs = append(logs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return logs, nil
}

func (r *DetectionLogRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM detection_logs WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *DetectionLogRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM detection_logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *DetectionLogRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM detection_logs WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *DetectionLogRepository) DeleteAllByUser(ctx context.Context, userID int64) ([]string, error) {
	query :=
		`DELETE FROM detection_logs
		 WHERE user_id = $1
		 RETURNING image_key`

	var keys []string
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rows, err := tx.QueryContext(ctx, query, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var key sql.NullString
			if err := rows.Scan(&key); err != nil {
				return err
			}
			if key.Valid && key.String != "" {
				keys = append(keys, key.String)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
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
		detections []byte
		imageKey   sql.NullString
	)
	if err := s.Scan(&l.ID, &userID, &l.Source, &detections, &imageKey, &l.CreatedAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		id := userID.Int64
		l.UserID = &id
	}
	l.Detections = detections
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
