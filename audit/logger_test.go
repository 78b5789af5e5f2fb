package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/odoodash/gateway/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedPublisher struct {
	events []core.SecurityEvent
}

func (p *capturedPublisher) PublishSecurityEvent(_ context.Context, event core.SecurityEvent) error {
	p.events = append(p.events, event)
	return nil
}

func TestRecordWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	pub := &capturedPublisher{}
	l := NewLoggerWithOutput(&buf, pub)

	req := httptest.NewRequest("POST", "/api/auth/login", nil)
	req.Header.Set("User-Agent", "test-agent")
	req.RemoteAddr = "203.0.113.9:49152"

	l.Record(req, core.EventLoginFailure, map[string]any{
		"username": "mperez",
		"reason":   "invalid_credentials",
	})

	line := buf.String()
	require.True(t, strings.HasPrefix(line, "[SECURITY] "))

	var event core.SecurityEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "[SECURITY] ")), &event))
	assert.Equal(t, core.EventLoginFailure, event.Kind)
	assert.Equal(t, "203.0.113.9", event.IP)
	assert.Equal(t, "test-agent", event.UserAgent)
	assert.Equal(t, "mperez", event.Details["username"])
	assert.False(t, event.Timestamp.IsZero())

	require.Len(t, pub.events, 1)
	assert.Equal(t, core.EventLoginFailure, pub.events[0].Kind)
}

func TestClientIPPrecedence(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	assert.Equal(t, "192.0.2.1", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", ClientIP(req))
}

func TestClientIPNormalizesIPv6(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "2001:0db8:0000:0000:0000:0000:0000:0001")

	assert.Equal(t, "2001:db8::1", ClientIP(req))
}
