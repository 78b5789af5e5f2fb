package ports

import "github.com/odoodash/gateway/core"

// Tokenizer issues and verifies signed session tokens.
type Tokenizer interface {
	// Issue embeds the identity in a signed, self-contained, time-bound token.
	Issue(identity core.Identity) (string, error)

	// Verify checks signature and expiry and reconstructs the claim.
	// Fails with core.ErrTokenExpired, core.ErrTokenInvalid or
	// core.ErrTokenVerification; verification is binary.
	Verify(token string) (*core.Claim, error)
}
