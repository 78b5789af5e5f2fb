// Package audit records security events: structured JSON lines on the local
// log plus best-effort publication to an event stream. Recording is
// fire-and-forget and never fails the request path.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/odoodash/gateway/core"
	"github.com/odoodash/gateway/ports"
)

// Logger writes security events. The publisher is optional.
type Logger struct {
	out io.Writer
	pub ports.EventPublisher
	now func() time.Time
}

// NewLogger creates a logger writing to stdout.
func NewLogger(pub ports.EventPublisher) *Logger {
	return &Logger{out: os.Stdout, pub: pub, now: time.Now}
}

// NewLoggerWithOutput creates a logger writing to out. Used in tests.
func NewLoggerWithOutput(out io.Writer, pub ports.EventPublisher) *Logger {
	return &Logger{out: out, pub: pub, now: time.Now}
}

// Record captures one security event from the request context.
func (l *Logger) Record(r *http.Request, kind core.EventKind, details map[string]any) {
	event := core.SecurityEvent{
		Kind:      kind,
		Timestamp: l.now().UTC(),
		Details:   details,
	}
	if r != nil {
		event.IP = ClientIP(r)
		event.UserAgent = r.UserAgent()
	}

	line, err := json.Marshal(event)
	if err != nil {
		log.Printf("audit: failed to encode security event: %v", err)
		return
	}
	fmt.Fprintf(l.out, "[SECURITY] %s\n", line)

	if l.pub != nil {
		// Best effort: a dead stream must not fail the request.
		if err := l.pub.PublishSecurityEvent(context.Background(), event); err != nil {
			log.Printf("audit: failed to publish security event: %v", err)
		}
	}
}

// ClientIP extracts the best-effort client address, preferring proxy headers
// over the socket address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := fwd
		if i := strings.Index(fwd, ","); i > 0 {
			first = fwd[:i]
		}
		if s := strings.TrimSpace(first); s != "" {
			return canonicalIP(s)
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return canonicalIP(real)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return canonicalIP(host)
	}
	return canonicalIP(r.RemoteAddr)
}

// canonicalIP normalizes textual addresses so equivalent IPv6 spellings map
// to one rate-limit key.
func canonicalIP(addr string) string {
	if ip := net.ParseIP(addr); ip != nil {
		return ip.String()
	}
	return addr
}
