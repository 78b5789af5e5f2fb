// Package odoo bridges the gateway to an Odoo server over its JSON-RPC web
// API. The client normalizes transport and ERP-level failures into the core
// error taxonomy; the session keeps the single shared authenticated bridge
// used for data reads.
package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/odoodash/gateway/core"
	"github.com/odoodash/gateway/ports"
)

const (
	authenticatePath = "/web/session/authenticate"
	callKwPath       = "/web/dataset/call_kw"
)

// Client talks JSON-RPC to one Odoo instance. Calls are never retried; a
// failed attempt surfaces immediately.
type Client struct {
	baseURL string
	db      string
	http    *http.Client
}

// NewClient creates a client for the given base URL and database.
func NewClient(baseURL, db string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		db:      db,
		http:    httpClient,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      string `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// Do executes one JSON-RPC call. Cookies are replayed on the request and any
// Set-Cookie values from the response are returned for the caller's jar.
// Transport and decode failures map to core.ErrConnection; ERP-reported
// errors map to *core.BackendError.
func (c *Client) Do(ctx context.Context, path string, params any, cookies []string) (json.RawMessage, []string, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  params,
		ID:      uuid.New().String(),
	})
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if len(cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(cookies, "; "))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", core.ErrConnection, err)
	}
	defer resp.Body.Close()

	setCookies := resp.Header.Values("Set-Cookie")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, setCookies, fmt.Errorf("%w: http status %d", core.ErrConnection, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, setCookies, fmt.Errorf("%w: malformed response: %v", core.ErrConnection, err)
	}

	if rpcResp.Error != nil {
		message := rpcResp.Error.Message
		if rpcResp.Error.Data.Message != "" {
			message = rpcResp.Error.Data.Message
		}
		return nil, setCookies, &core.BackendError{
			Code:    rpcResp.Error.Code,
			Message: message,
		}
	}

	return rpcResp.Result, setCookies, nil
}

type authResult struct {
	UID                json.RawMessage `json:"uid"`
	Name               string          `json:"name"`
	Username           string          `json:"username"`
	PartnerDisplayName string          `json:"partner_display_name"`
	CompanyID          int             `json:"company_id"`
	PartnerID          int             `json:"partner_id"`
	ServerVersion      string          `json:"server_version"`
	DB                 string          `json:"db"`
	IsAdmin            bool            `json:"is_admin"`
	IsSystem           bool            `json:"is_system"`
}

// Authenticate verifies a login/password pair and returns the normalized
// identity. Odoo signals bad credentials either with an AccessDenied error
// or with a false uid in an otherwise successful response.
func (c *Client) Authenticate(ctx context.Context, login, password string) (*core.Identity, error) {
	identity, _, err := c.authenticate(ctx, login, password)
	return identity, err
}

func (c *Client) authenticate(ctx context.Context, login, password string) (*core.Identity, []string, error) {
	params := map[string]any{
		"db":       c.db,
		"login":    login,
		"password": password,
	}

	result, setCookies, err := c.Do(ctx, authenticatePath, params, nil)
	if err != nil {
		var backendErr *core.BackendError
		if errors.As(err, &backendErr) && isCredentialRejection(backendErr) {
			return nil, nil, core.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	var res authResult
	if err := json.Unmarshal(result, &res); err != nil {
		return nil, setCookies, fmt.Errorf("%w: malformed auth result: %v", core.ErrConnection, err)
	}

	uid, err := strconv.Atoi(string(res.UID))
	if err != nil || uid <= 0 {
		// uid is false or absent: the ERP did not recognize the user.
		return nil, setCookies, core.ErrInvalidCredentials
	}

	return &core.Identity{
		UID:                uid,
		Username:           res.Username,
		Name:               res.Name,
		PartnerDisplayName: res.PartnerDisplayName,
		CompanyID:          res.CompanyID,
		PartnerID:          res.PartnerID,
		ServerVersion:      res.ServerVersion,
		DB:                 res.DB,
		IsAdmin:            res.IsAdmin,
		IsSystem:           res.IsSystem,
	}, setCookies, nil
}

func isCredentialRejection(err *core.BackendError) bool {
	if err.Code == 200 {
		return true
	}
	msg := strings.ToLower(err.Message)
	return strings.Contains(msg, "wrong login") ||
		strings.Contains(msg, "invalid credentials") ||
		strings.Contains(msg, "access denied")
}

var _ ports.Authenticator = (*Client)(nil)
