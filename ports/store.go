package ports

import "context"

// ChallengeStore issues and consumes one-time challenge tokens.
type ChallengeStore interface {
	// Issue creates a fresh single-use token of the form "id:secret".
	Issue(ctx context.Context) (string, error)

	// Consume validates a token and atomically removes it. Two concurrent
	// calls with the same token succeed at most once.
	Consume(ctx context.Context, token string) (bool, error)
}
