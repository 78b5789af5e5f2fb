package ports

import (
	"context"
	"encoding/json"

	"github.com/odoodash/gateway/core"
)

// Authenticator verifies a login/password pair against the ERP. A failed
// attempt is surfaced immediately; implementations never retry.
type Authenticator interface {
	Authenticate(ctx context.Context, login, password string) (*core.Identity, error)
}

// ErpSession is the shared authenticated bridge to the ERP. One logical
// session is cached per process; all data reads execute under the
// service-account identity.
type ErpSession interface {
	// Ensure returns the cached identity, probing and transparently
	// re-authenticating with the service credential when the probe fails.
	Ensure(ctx context.Context) (*core.Identity, error)

	// CallKw executes a model method through the authenticated session.
	CallKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error)

	// Clear drops the cached session state.
	Clear()
}
