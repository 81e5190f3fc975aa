// Package common defines sentinel errors shared by repositories, services and
// handlers. Callers should match them with errors.Is.
package common

import "errors"

var (
	// repository errors
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// service errors
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotSupported  = errors.New("not supported")
	ErrStoreDisabled = errors.New("storage is disabled")

	// detection input errors
	ErrNoImage     = errors.New("No image provided")
	ErrDecodeImage = errors.New("Failed to decode image")

	// token errors
	ErrInvalidToken = errors.New("invalid token")
)
