package core

import "time"

// EventKind enumerates the security events the gateway records.
type EventKind string

const (
	EventLoginSuccess       EventKind = "login_success"
	EventLoginFailure       EventKind = "login_failure"
	EventTokenExpired       EventKind = "token_expired"
	EventUnauthorizedAccess EventKind = "unauthorized_access"
	EventRateLimitExceeded  EventKind = "rate_limit_exceeded"
	EventChallengeFailure   EventKind = "csrf_failure"
)

// SecurityEvent is an immutable audit record. Entries are write-once;
// retention and rotation are external concerns.
type SecurityEvent struct {
	Kind      EventKind      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}
