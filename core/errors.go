package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection is returned when the ERP backend cannot be reached or
	// returns an unparseable response.
	ErrConnection = errors.New("erp backend unreachable")

	// ErrInvalidCredentials is returned when the ERP rejects a login/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenExpired is returned when a session token has expired.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid is returned when a session token is malformed or its
	// signature does not verify.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenVerification is returned for any other token decode failure.
	ErrTokenVerification = errors.New("token verification failed")

	// ErrChallengeInvalid is returned when a challenge token is missing,
	// malformed, expired or already consumed.
	ErrChallengeInvalid = errors.New("challenge token invalid or already used")

	// ErrRateLimited is returned when a client exceeded its request quota.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrStoreOperationFailed is returned when a store operation fails.
	ErrStoreOperationFailed = errors.New("store operation failed")
)

// BackendError is an ERP-reported fault that is neither a connectivity
// problem nor a credential rejection. Code and Message carry the ERP's own
// error envelope.
type BackendError struct {
	Code    int
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("erp error (code %d): %s", e.Code, e.Message)
}
