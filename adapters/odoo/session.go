package odoo

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/odoodash/gateway/core"
	"github.com/odoodash/gateway/ports"
)

// State tags the session handle's lifecycle.
type State int

const (
	StateEmpty State = iota
	StateAuthenticating
	StateAuthenticated
)

// Session is the process-wide external session handle: the service-account
// identity plus the transport cookies needed to reuse the authenticated ERP
// session. Exactly one logical session is cached per process; end-user
// identity travels in the signed session token, never here.
type Session struct {
	client   *Client
	login    string
	password string

	mu       sync.Mutex
	state    State
	identity *core.Identity
	cookies  []string
}

// NewSession creates an empty handle bound to the service credential.
func NewSession(client *Client, login, password string) *Session {
	return &Session{client: client, login: login, password: password}
}

// Ensure returns the cached identity, revalidating it with a cheap probe and
// re-authenticating once on probe failure. The lock spans the outbound calls
// so only one re-authentication is ever in flight.
func (s *Session) Ensure(ctx context.Context) (*core.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateAuthenticated && s.probeLocked(ctx) {
		return s.identity, nil
	}

	s.state = StateAuthenticating
	s.identity = nil
	s.cookies = nil

	identity, cookies, err := s.client.authenticate(ctx, s.login, s.password)
	if err != nil {
		s.state = StateEmpty
		return nil, err
	}

	s.state = StateAuthenticated
	s.identity = identity
	s.cookies = cookies
	return identity, nil
}

// probeLocked makes a cheap read of the authenticated user to check the
// cached cookies are still honored.
func (s *Session) probeLocked(ctx context.Context) bool {
	params := map[string]any{
		"model":  "res.users",
		"method": "read",
		"args":   []any{[]any{s.identity.UID}, []any{"id", "name"}},
		"kwargs": map[string]any{},
		"context": map[string]any{
			"uid": s.identity.UID,
		},
	}
	_, setCookies, err := s.client.Do(ctx, callKwPath, params, s.cookies)
	if err != nil {
		return false
	}
	s.cookies = append(s.cookies, setCookies...)
	return true
}

// CallKw executes a model method through the authenticated session. The
// session is ensured first; the call itself is not retried.
func (s *Session) CallKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	identity, err := s.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	params := map[string]any{
		"model":  model,
		"method": method,
		"args":   args,
		"kwargs": kwargs,
		"context": map[string]any{
			"uid": identity.UID,
		},
	}

	s.mu.Lock()
	cookies := append([]string(nil), s.cookies...)
	s.mu.Unlock()

	result, setCookies, err := s.client.Do(ctx, callKwPath, params, cookies)
	if err != nil {
		return nil, err
	}

	if len(setCookies) > 0 {
		s.mu.Lock()
		s.cookies = append(s.cookies, setCookies...)
		s.mu.Unlock()
	}
	return result, nil
}

// Clear drops the cached session. The next Ensure re-authenticates from
// scratch.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateEmpty
	s.identity = nil
	s.cookies = nil
}

// State reports the current lifecycle tag.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

var _ ports.ErpSession = (*Session)(nil)
