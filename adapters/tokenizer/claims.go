package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with the verified identity fields
type SessionClaims struct {
	jwt.RegisteredClaims
	UID      int    `json:"uid"`
	Username string `json:"username"`
	Name     string `json:"name"`
}
