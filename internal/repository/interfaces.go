package repository

import (
	"context"

	"github.com/kuldeep456789/VisionIQ/internal/model"
)

// UserRepository defines user account operations.
type UserRepository interface {
	// Create stores u and fills in its ID and CreatedAt. A taken email
	// returns common.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error

	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Count(ctx context.Context) (int, error)
}

// DetectionLogRepository defines detection history operations. Reads and
// deletes are scoped to one user; missing rows return common.ErrNotFound.
type DetectionLogRepository interface {
	// Create operations
	Insert(ctx context.Context, l *model.DetectionLog) (int64, error)

	// Read operations
	GetByID(ctx context.Context, userID, id int64) (*model.DetectionLog, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]model.DetectionLog, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	Count(ctx context.Context) (int, error)

	// Delete operations
	Delete(ctx context.Context, userID, id int64) error
	// DeleteAllByUser removes every entry of the user in one transaction and
	// returns the archive keys of the removed entries.
	DeleteAllByUser(ctx context.Context, userID int64) ([]string, error)
}

// Store is a storage backend holding both repositories.
type Store interface {
	Users() UserRepository
	DetectionLogs() DetectionLogRepository
	Ping(ctx context.Context) error
	Name() string
	Close() error
}
