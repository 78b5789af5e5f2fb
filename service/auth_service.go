package service

import (
	"context"

	"github.com/odoodash/gateway/core"
	"github.com/odoodash/gateway/ports"
)

// AuthService handles authentication business logic: credential verification
// against the ERP and session token issuance/validation.
type AuthService struct {
	authenticator ports.Authenticator
	tokenizer     ports.Tokenizer
	session       ports.ErpSession
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	authenticator ports.Authenticator,
	tokenizer ports.Tokenizer,
	session ports.ErpSession,
) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		tokenizer:     tokenizer,
		session:       session,
	}
}

// Login verifies the credential pair against the ERP and issues a session
// token for the verified identity. A failed ERP call is surfaced directly;
// there is no retry.
func (s *AuthService) Login(ctx context.Context, login, password string) (*core.Identity, string, error) {
	identity, err := s.authenticator.Authenticate(ctx, login, password)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokenizer.Issue(*identity)
	if err != nil {
		return nil, "", err
	}

	return identity, token, nil
}

// Logout clears the shared ERP session. Issued session tokens stay valid
// until their embedded expiry; only client-held and server-side bridge state
// is dropped.
func (s *AuthService) Logout(ctx context.Context) error {
	s.session.Clear()
	return nil
}

// VerifyToken validates a session token and reconstructs its claim.
func (s *AuthService) VerifyToken(token string) (*core.Claim, error) {
	return s.tokenizer.Verify(token)
}

// ProbeBackend authenticates the service account and reports the resulting
// identity, exercising the full ERP round trip.
func (s *AuthService) ProbeBackend(ctx context.Context) (*core.Identity, error) {
	return s.session.Ensure(ctx)
}
