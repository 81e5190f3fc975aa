package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kuldeep456789/VisionIQ/internal/auth"
	"github.com/kuldeep456789/VisionIQ/internal/common"
	"github.com/kuldeep456789/VisionIQ/internal/dto"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService() (*AuthService, *auth.TokenManager) {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewAuthService(newFakeUsers(), tokens, auth.NewHasher(bcrypt.MinCost), logger.Discard()), tokens
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, tokens := newAuthService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, dto.RegisterRequest{Email: "  Alice@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", reg.User.Email)
	assert.Equal(t, "alice", reg.User.Name)

	uid, err := tokens.Parse(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, uid)

	login, err := svc.Login(ctx, dto.LoginRequest{Email: "ALICE@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, reg.User, login.User)

	me, err := svc.Me(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, reg.User, *me)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc, _ := newAuthService()

	tests := []struct {
		name string
		req  dto.RegisterRequest
	}{
		{"empty email", dto.RegisterRequest{Password: "secret1"}},
		{"bad email", dto.RegisterRequest{Email: "not-an-email", Password: "secret1"}},
		{"display name form", dto.RegisterRequest{Email: "Bob <bob@example.com>", Password: "secret1"}},
		{"short password", dto.RegisterRequest{Email: "bob@example.com", Password: "12345"}},
		{"long password", dto.RegisterRequest{Email: "bob@example.com", Password: strings.Repeat("a", MaxPasswordLength+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.req)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, dto.RegisterRequest{Email: "bob@example.com", Password: "secret1", Name: "Bob"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, dto.RegisterRequest{Email: "BOB@example.com", Password: "other12"})
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestAuthService_LoginFailures(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()
	_, err := svc.Register(ctx, dto.RegisterRequest{Email: "carol@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "carol@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestAuthService_MeUnknownUser(t *testing.T) {
	svc, _ := newAuthService()
	_, err := svc.Me(context.Background(), 42)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestAuthService_StoreDisabled(t *testing.T) {
	svc := NewAuthService(nil, auth.NewTokenManager("s", time.Hour), auth.NewHasher(bcrypt.MinCost), logger.Discard())

	_, err := svc.Register(context.Background(), dto.RegisterRequest{Email: "a@b.c", Password: "secret1"})
	assert.ErrorIs(t, err, common.ErrStoreDisabled)
	_, err = svc.Login(context.Background(), dto.LoginRequest{})
	assert.ErrorIs(t, err, common.ErrStoreDisabled)
}
