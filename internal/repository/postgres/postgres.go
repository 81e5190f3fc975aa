// Package postgres is the PostgreSQL storage backend. Queries go through
// database/sql with the pgx driver; the schema is managed by goose.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/kuldeep456789/VisionIQ/internal/repository"
	"github.com/kuldeep456789/VisionIQ/internal/repository/postgres/migrations"
	"github.com/pressly/goose/v3"
)

const uniqueViolation = "23505"

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// Store vends the Postgres repositories.
type Store struct {
	db    *sql.DB
	users *UserRepository
	logs  *DetectionLogRepository
}

var _ repository.Store = (*Store)(nil)

// Open connects to dsn and migrates the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return NewStore(db), nil
}

// NewStore wraps an already migrated connection.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:    db,
		users: NewUserRepository(db),
		logs:  NewDetectionLogRepository(db),
	}
}

func (s *Store) Users() repository.UserRepository { return s.users }

func (s *Store) DetectionLogs() repository.DetectionLogRepository { return s.logs }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Name() string { return "postgres" }

func (s *Store) Close() error { return s.db.Close() }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
