package http

import (
	"github.com/gin-gonic/gin"
	"github.com/odoodash/gateway/audit"
	"github.com/odoodash/gateway/core"
	"github.com/odoodash/gateway/ports"
	"github.com/odoodash/gateway/service"
)

// Deps carries everything the router wires into the middleware chains.
type Deps struct {
	Auth       *service.AuthService
	Reports    *service.ReportService
	Challenges ports.ChallengeStore
	Limiter    ports.RateLimiter
	Audit      *audit.Logger
	Production bool
}

// SetupRouter builds the gin engine with all routes and their gate chains.
// Every route runs its gates in fixed order: rate limit, body validation,
// bearer verification, challenge consumption, handler.
func SetupRouter(d Deps) *gin.Engine {
	h := NewHandlers(d.Auth, d.Reports, d.Challenges, d.Audit, d.Production)

	router := gin.New()
	router.Use(gin.Recovery())

	rateLogin := RateLimit(d.Limiter, d.Audit, core.LoginPolicy)
	rateReports := RateLimit(d.Limiter, d.Audit, core.ReportsPolicy)
	rateGeneral := RateLimit(d.Limiter, d.Audit, core.GeneralPolicy)
	requireAuth := RequireAuth(d.Auth, d.Audit)
	requireChallenge := RequireChallenge(d.Challenges, d.Audit)

	router.GET("/healthz", h.Health)

	api := router.Group("/api")
	api.Use(IssueChallenge(d.Challenges))

	api.POST("/auth/login", rateLogin, ValidateBody[LoginRequest](), h.Login)
	api.POST("/auth/logout", rateGeneral, requireAuth, requireChallenge, h.Logout)
	api.GET("/csrf-token", rateGeneral, h.CsrfToken)
	api.POST("/test-odoo", rateGeneral, h.TestOdoo)
	api.GET("/me", rateGeneral, requireAuth, h.Me)

	reports := api.Group("/reports")
	reports.POST("/daily-payments", rateReports, ValidateBody[DateRangeRequest](), requireAuth, requireChallenge, h.DailyPayments)
	reports.POST("/payment-table", rateReports, ValidateBody[PaymentTableRequest](), requireAuth, requireChallenge, h.PaymentTable)
	reports.POST("/invoices", rateReports, ValidateBody[DateRangeRequest](), requireAuth, requireChallenge, h.Invoices)
	reports.POST("/quotations", rateReports, ValidateBody[DateRangeRequest](), requireAuth, requireChallenge, h.Quotations)

	return router
}
