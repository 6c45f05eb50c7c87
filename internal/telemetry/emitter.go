// Package telemetry carries authentication events to the configured sink (OTel logs) without blocking requests.
package telemetry

import (
	"context"
	"time"
)

// Auth event types.
const (
	EventLoginSuccess   = "login_success"
	EventLoginFailure   = "login_failure"
	EventRefresh        = "refresh"
	EventSessionExpired = "session_expired"
	EventLogout         = "logout"
)

// Event is one authentication event. Tokens and passwords never appear here.
type Event struct {
	Type      string
	UserID    string
	SessionID string
	// Reason is a short machine-readable cause for failures (e.g. "invalid_credentials").
	Reason    string
	CreatedAt time.Time
}

// EventEmitter emits auth events. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
