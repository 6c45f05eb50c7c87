package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for the auth service; the HTTP handler maps them to status codes.
var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInvalidToken          = errors.New("invalid token")
	ErrTokenRevoked          = errors.New("token revoked")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired refresh token")
	ErrSessionNotFound       = errors.New("session not found")
	ErrSessionExpired        = errors.New("session expired")
	ErrSessionInactive       = errors.New("session inactive")
	ErrStorageFailure        = errors.New("storage failure")
	ErrConfiguration         = errors.New("configuration error")
)

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}

func configErr(err error) error {
	return fmt.Errorf("%w: %w", ErrConfiguration, err)
}

// outcome is the metric and span label for err.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenRevoked):
		return "invalid_token"
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return "invalid_refresh_token"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrSessionInactive):
		return "session_inactive"
	case errors.Is(err, ErrStorageFailure):
		return "storage_failure"
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	default:
		return "error"
	}
}

// unexpected reports whether err is a server-side failure rather than a rejected request.
func unexpected(err error) bool {
	return err != nil && (errors.Is(err, ErrStorageFailure) || errors.Is(err, ErrConfiguration) || outcome(err) == "error")
}
