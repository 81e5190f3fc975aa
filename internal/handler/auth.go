package handler

import (
	"errors"
	"net/http"

	"github.com/kuldeep456789/VisionIQ/internal/common"
	"github.com/kuldeep456789/VisionIQ/internal/dto"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
	"github.com/kuldeep456789/VisionIQ/internal/middleware"
	"github.com/kuldeep456789/VisionIQ/internal/service"
)

// RegisterHandler creates an account and answers 201 with a token.
func RegisterHandler(svc *service.AuthService, logger *logger.Logger) http.HandlerFunc {
	return MakeHandler(logger, func(w http.ResponseWriter, r *http.Request) error {
		var req dto.RegisterRequest
		if err := decodeJSON(r, &req); err != nil {
			return err
		}

		resp, err := svc.Register(r.Context(), req)
		if err != nil {
			if errors.Is(err, common.ErrAlreadyExists) {
				return NewStatusError(http.StatusConflict, "Email already registered")
			}
			return err
		}
		return writeJSON(w, http.StatusCreated, resp)
	})
}

// LoginHandler exchanges credentials for a token.
func LoginHandler(svc *service.AuthService, logger *logger.Logger) http.HandlerFunc {
	return MakeHandler(logger, func(w http.ResponseWriter, r *http.Request) error {
		var req dto.LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			return err
		}

		resp, err := svc.Login(r.Context(), req)
		if err != nil {
			if errors.Is(err, common.ErrUnauthorized) {
				return NewStatusError(http.StatusUnauthorized, "Invalid email or password")
			}
			return err
		}
		return writeJSON(w, http.StatusOK, resp)
	})
}

// MeHandler returns the authenticated user.
func MeHandler(svc *service.AuthService, logger *logger.Logger) http.HandlerFunc {
	return MakeHandler(logger, func(w http.ResponseWriter, r *http.Request) error {
		userID, ok := middleware.UserID(r.Context())
		if !ok {
			return common.ErrUnauthorized
		}
		user, err := svc.Me(r.Context(), userID)
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, user)
	})
}
