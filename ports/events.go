package ports

import (
	"context"

	"github.com/odoodash/gateway/core"
)

// EventPublisher forwards security events to an external stream.
type EventPublisher interface {
	PublishSecurityEvent(ctx context.Context, event core.SecurityEvent) error
}
