package core

import "time"

// Identity is the normalized result of authenticating against the ERP
type Identity struct {
	UID                int    // ERP user id
	Username           string // login name
	Name               string // display name
	PartnerDisplayName string
	CompanyID          int
	PartnerID          int
	ServerVersion      string
	DB                 string
	IsAdmin            bool
	IsSystem           bool
}

// Claim is the decoded, verified payload of a session token. It is
// reconstructed fresh on every verification and carries no mutable state.
type Claim struct {
	UID       int       // ERP user id
	Username  string    // login name
	Name      string    // display name
	ExpiresAt time.Time // embedded expiry instant
}
