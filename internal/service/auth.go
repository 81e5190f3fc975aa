package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/kuldeep456789/VisionIQ/internal/auth"
	"github.com/kuldeep456789/VisionIQ/internal/common"
	"github.com/kuldeep456789/VisionIQ/internal/dto"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/kuldeep456789/VisionIQ/internal/model"
	"github.com/kuldeep456789/VisionIQ/internal/repository"
)

const (
	MinPasswordLength = 6
	// bcrypt rejects longer input
	MaxPasswordLength = 72
)

type AuthService struct {
	users  repository.UserRepository // nil when storage is disabled
	tokens *auth.TokenManager
	hasher *auth.Hasher
	logger *logger.Logger
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager, hasher *auth.Hasher, logger *logger.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, hasher: hasher, logger: logger}
}

// Register creates an account and returns a token for it. A taken email
// returns common.ErrAlreadyExists.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	if s.users == nil {
		return nil, common.ErrStoreDisabled
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrInvalidInput, MinPasswordLength)
	}
	if len(req.Password) > MaxPasswordLength {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", common.ErrInvalidInput, MaxPasswordLength)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = email[:strings.IndexByte(email, '@')]
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{Email: email, PasswordHash: hash, Name: name}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, fmt.Errorf("email %s: %w", email, common.ErrAlreadyExists)
		}
		return nil, err
	}
	s.logger.Info("User registered: id=%d", user.ID)

	return s.respond(user)
}

// Login checks credentials. Unknown emails and wrong passwords both return
// common.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	if s.users == nil {
		return nil, common.ErrStoreDisabled
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, err
	}

	ok, err := s.hasher.Compare(user.PasswordHash, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrUnauthorized
	}

	return s.respond(user)
}

// Me returns the account of userID.
func (s *AuthService) Me(ctx context.Context, userID int64) (*dto.UserInfo, error) {
	if s.users == nil {
		return nil, common.ErrStoreDisabled
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, err
	}
	info := userInfo(user)
	return &info, nil
}

func (s *AuthService) respond(user *model.User) (*dto.AuthResponse, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{Token: token, User: userInfo(user)}, nil
}

func userInfo(u *model.User) dto.UserInfo {
	return dto.UserInfo{ID: u.ID, Email: u.Email, Name: u.Name}
}

// normalizeEmail accepts a bare address and returns it trimmed and lower-cased.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", fmt.Errorf("%w: invalid email address", common.ErrInvalidInput)
	}
	return email, nil
}
