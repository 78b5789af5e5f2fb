package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/odoodash/gateway/audit"
	"github.com/odoodash/gateway/core"
	"github.com/odoodash/gateway/ports"
	"github.com/odoodash/gateway/service"
)

const (
	claimContextKey = "sessionClaim"
	bodyContextKey  = "requestBody"

	// CSRFHeader carries challenge tokens both ways: issued on safe
	// responses, presented on mutating requests.
	CSRFHeader = "X-CSRF-Token"
)

// respondError writes the JSON error envelope and stops the chain.
func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// ClaimFrom returns the verified identity claim attached by RequireAuth.
func ClaimFrom(c *gin.Context) (*core.Claim, bool) {
	v, ok := c.Get(claimContextKey)
	if !ok {
		return nil, false
	}
	claim, ok := v.(*core.Claim)
	return claim, ok
}

// clientKey derives the rate-limit key: the authenticated user id when a
// verified claim is already attached, otherwise the normalized client IP.
func clientKey(c *gin.Context) string {
	if claim, ok := ClaimFrom(c); ok {
		return fmt.Sprintf("user:%d", claim.UID)
	}
	return "ip:" + audit.ClientIP(c.Request)
}

// RateLimit gates requests against one admission policy. The decision
// headers follow the standard RateLimit-* draft. A limiter backend failure
// fails open: admission control protects the ERP, it must not take the
// gateway down with it.
func RateLimit(limiter ports.RateLimiter, logger *audit.Logger, policy core.RatePolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := policy.Name + ":" + clientKey(c)
		decision, err := limiter.Allow(c.Request.Context(), key, policy.Limit, policy.Window)
		if err != nil {
			c.Next()
			return
		}

		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.ResetAt.IsZero() {
			c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		}

		if !decision.Allowed {
			retryAfter := int64(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			logger.Record(c.Request, core.EventRateLimitExceeded, map[string]any{
				"endpoint": c.FullPath(),
				"method":   c.Request.Method,
			})
			respondError(c, http.StatusTooManyRequests, "Too many requests. Please wait before trying again")
			return
		}

		c.Next()
	}
}

type validatable interface {
	Validate() error
}

// ValidateBody binds and validates the JSON body into T before any
// downstream stage runs. Shape violations are a client bug, not a security
// event: 400, no audit record.
func ValidateBody[T any]() gin.HandlerFunc {
	return func(c *gin.Context) {
		req := new(T)
		if err := c.ShouldBindBodyWith(req, binding.JSON); err != nil {
			respondError(c, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
		if v, ok := any(req).(validatable); ok {
			if err := v.Validate(); err != nil {
				respondError(c, http.StatusBadRequest, "Validation error: "+err.Error())
				return
			}
		}
		c.Set(bodyContextKey, req)
		c.Next()
	}
}

// Body returns the validated request body attached by ValidateBody.
func Body[T any](c *gin.Context) *T {
	return c.MustGet(bodyContextKey).(*T)
}

// RequireAuth verifies the bearer session token and attaches the claim to
// the request context.
func RequireAuth(authService *service.AuthService, logger *audit.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if len(auth) < 8 || auth[:7] != "Bearer " {
			logger.Record(c.Request, core.EventUnauthorizedAccess, map[string]any{
				"endpoint": c.FullPath(),
				"method":   c.Request.Method,
				"reason":   "missing_token",
			})
			respondError(c, http.StatusUnauthorized, "Authentication token required")
			return
		}

		claim, err := authService.VerifyToken(auth[7:])
		if err != nil {
			if errors.Is(err, core.ErrTokenExpired) {
				logger.Record(c.Request, core.EventTokenExpired, map[string]any{
					"endpoint": c.FullPath(),
				})
				respondError(c, http.StatusUnauthorized, "Token expired. Please sign in again")
				return
			}
			logger.Record(c.Request, core.EventUnauthorizedAccess, map[string]any{
				"endpoint": c.FullPath(),
				"method":   c.Request.Method,
				"reason":   "invalid_token",
			})
			respondError(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		c.Set(claimContextKey, claim)
		c.Next()
	}
}

// IssueChallenge hands out a fresh one-time challenge token on every safe
// response so the client always holds a current one for its next mutation.
func IssueChallenge(store ports.ChallengeStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			token, err := store.Issue(c.Request.Context())
			if err == nil {
				c.Header(CSRFHeader, token)
			}
		}
		c.Next()
	}
}

// RequireChallenge consumes a one-time challenge token on state-changing
// methods. Consumption is destructive: replay of a spent token always fails.
func RequireChallenge(store ports.ChallengeStore, logger *audit.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		token := c.GetHeader(CSRFHeader)
		ok, err := store.Consume(c.Request.Context(), token)
		if err != nil || !ok {
			logger.Record(c.Request, core.EventChallengeFailure, map[string]any{
				"endpoint": c.FullPath(),
				"method":   c.Request.Method,
			})
			respondError(c, http.StatusForbidden, "Invalid or missing CSRF token")
			return
		}

		c.Next()
	}
}
