package core

import "time"

// RateDecision is the outcome of a single admission check.
type RateDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RatePolicy is a request ceiling over a fixed window. Name namespaces the
// limiter keys so policies never share counters.
type RatePolicy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Admission policies. Login is deliberately strict; it guards the
// credential-verification entry point.
var (
	LoginPolicy   = RatePolicy{Name: "login", Limit: 5, Window: 15 * time.Minute}
	ReportsPolicy = RatePolicy{Name: "reports", Limit: 30, Window: time.Minute}
	GeneralPolicy = RatePolicy{Name: "general", Limit: 100, Window: time.Minute}
)
