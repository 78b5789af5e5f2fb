package tokenizer

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/odoodash/gateway/core"
	"github.com/odoodash/gateway/ports"
)

const AudienceSession = "session:access"

// DefaultSessionTTL is the validity window embedded in issued tokens.
const DefaultSessionTTL = 24 * time.Hour

// JWTTokenizer implements the Tokenizer interface with HMAC-signed JWTs.
// Tokens are stateless; there is no revocation, a token stays valid until
// its embedded expiry even after logout.
type JWTTokenizer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTTokenizer creates a tokenizer signing with the given secret.
func NewJWTTokenizer(secret []byte, ttl time.Duration) ports.Tokenizer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &JWTTokenizer{secret: secret, ttl: ttl, now: time.Now}
}

// Issue embeds the identity in a signed token valid for the configured window.
func (j *JWTTokenizer) Issue(identity core.Identity) (string, error) {
	now := j.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(identity.UID),
			Audience:  jwt.ClaimStrings{AudienceSession},
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UID:      identity.UID,
		Username: identity.Username,
		Name:     identity.Name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify parses and validates a token and reconstructs the claim.
func (j *JWTTokenizer) Verify(tokenStr string) (*core.Claim, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, core.ErrTokenInvalid
		}
		return j.secret, nil
	}, jwt.WithAudience(AudienceSession), jwt.WithTimeFunc(j.now))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, core.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed),
			errors.Is(err, jwt.ErrTokenSignatureInvalid),
			errors.Is(err, jwt.ErrTokenInvalidAudience),
			errors.Is(err, jwt.ErrTokenUnverifiable),
			errors.Is(err, core.ErrTokenInvalid):
			return nil, core.ErrTokenInvalid
		default:
			return nil, core.ErrTokenVerification
		}
	}

	if !token.Valid {
		return nil, core.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, core.ErrTokenVerification
	}

	return &core.Claim{
		UID:       claims.UID,
		Username:  claims.Username,
		Name:      claims.Name,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
