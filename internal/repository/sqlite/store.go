package sqlite

import (
	"github.com/kuldeep456789/VisionIQ/internal/repository"
)

// Store bundles the SQLite repositories behind repository.Store.
type Store struct {
	*DB
	users *UserRepository
	logs  *DetectionLogRepository
}

var _ repository.Store = (*Store)(nil)

// Open opens the database at path and builds the repositories.
func Open(path string) (*Store, error) {
	db, err := New(path)
	if err != nil {
		return nil, err
	}
	return &Store{
		DB:    db,
		users: NewUserRepository(db),
		logs:  NewDetectionLogRepository(db),
	}, nil
}

func (s *Store) Users() repository.UserRepository { return s.users }

func (s *Store) DetectionLogs() repository.DetectionLogRepository { return s.logs }

func (s *Store) Name() string { return "sqlite" }
