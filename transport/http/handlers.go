package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/odoodash/gateway/audit"
	"github.com/odoodash/gateway/core"
	"github.com/odoodash/gateway/ports"
	"github.com/odoodash/gateway/service"
)

// Handlers holds the route handlers and their dependencies.
type Handlers struct {
	auth       *service.AuthService
	reports    *service.ReportService
	challenges ports.ChallengeStore
	logger     *audit.Logger
	production bool
}

// NewHandlers creates the handler set.
func NewHandlers(
	auth *service.AuthService,
	reports *service.ReportService,
	challenges ports.ChallengeStore,
	logger *audit.Logger,
	production bool,
) *Handlers {
	return &Handlers{
		auth:       auth,
		reports:    reports,
		challenges: challenges,
		logger:     logger,
		production: production,
	}
}

// LoginRequest is the credential pair presented at login.
type LoginRequest struct {
	Login    string `json:"login" binding:"required,min=3,max=255"`
	Password string `json:"password" binding:"required"`
}

// DateRangeRequest bounds a reporting query.
type DateRangeRequest struct {
	DateFrom  string `json:"dateFrom" binding:"required"`
	DateTo    string `json:"dateTo" binding:"required"`
	EstadoRep string `json:"estadoRep"`
}

func parseReportDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Validate checks date shapes and ordering beyond what binding covers.
func (r *DateRangeRequest) Validate() error {
	from, err := parseReportDate(r.DateFrom)
	if err != nil {
		return errors.New("dateFrom must be a valid date (YYYY-MM-DD)")
	}
	to, err := parseReportDate(r.DateTo)
	if err != nil {
		return errors.New("dateTo must be a valid date (YYYY-MM-DD)")
	}
	if to.Before(from) {
		return errors.New("dateTo must not be before dateFrom")
	}
	return nil
}

func (r *DateRangeRequest) filter() service.PaymentFilter {
	return service.PaymentFilter{
		DateFrom:  r.DateFrom,
		DateTo:    r.DateTo,
		EstadoRep: r.EstadoRep,
	}
}

// PaymentTableRequest adds pagination to the date range.
type PaymentTableRequest struct {
	DateRangeRequest
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Validate normalizes pagination defaults and rejects out-of-range values.
func (r *PaymentTableRequest) Validate() error {
	if err := r.DateRangeRequest.Validate(); err != nil {
		return err
	}
	if r.Page == 0 {
		r.Page = 1
	}
	if r.Page < 1 {
		return errors.New("page must be at least 1")
	}
	if r.PageSize == 0 {
		r.PageSize = 10
	}
	if r.PageSize < 1 || r.PageSize > 100 {
		return errors.New("pageSize must be between 1 and 100")
	}
	return nil
}

// Login verifies credentials against the ERP and issues a session token.
func (h *Handlers) Login(c *gin.Context) {
	req := Body[LoginRequest](c)

	identity, token, err := h.auth.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		h.loginFailure(c, req.Login, err)
		return
	}

	h.logger.Record(c.Request, core.EventLoginSuccess, map[string]any{
		"login": req.Login,
		"uid":   identity.UID,
	})
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Authentication successful",
		"data": gin.H{
			"uid":                  identity.UID,
			"name":                 identity.Name,
			"username":             identity.Username,
			"partner_display_name": identity.PartnerDisplayName,
			"company_id":           identity.CompanyID,
			"partner_id":           identity.PartnerID,
			"server_version":       identity.ServerVersion,
			"db":                   identity.DB,
			"is_admin":             identity.IsAdmin,
			"is_system":            identity.IsSystem,
			"token":                token,
		},
	})
}

func (h *Handlers) loginFailure(c *gin.Context, login string, err error) {
	details := map[string]any{"login": login}

	var backendErr *core.BackendError
	switch {
	case errors.Is(err, core.ErrInvalidCredentials):
		details["reason"] = "invalid_credentials"
	case errors.Is(err, core.ErrConnection):
		details["reason"] = "connection_error"
	case errors.As(err, &backendErr):
		details["reason"] = "backend_error"
		details["code"] = backendErr.Code
	default:
		details["reason"] = "internal_error"
	}
	h.logger.Record(c.Request, core.EventLoginFailure, details)

	message := "Invalid username or password"
	if details["reason"] == "connection_error" {
		message = "Unable to reach the authentication backend"
	}
	if !h.production && details["reason"] != "invalid_credentials" {
		message = message + ": " + err.Error()
	}
	respondError(c, http.StatusUnauthorized, message)
}

// Logout drops the shared ERP session. The presented bearer token stays
// valid until its embedded expiry.
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context()); err != nil {
		respondError(c, http.StatusInternalServerError, "Logout failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

// CsrfToken hands out a fresh one-time challenge token.
func (h *Handlers) CsrfToken(c *gin.Context) {
	token, err := h.challenges.Issue(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	c.Header(CSRFHeader, token)
	c.JSON(http.StatusOK, gin.H{"success": true, "csrfToken": token})
}

// TestOdoo authenticates the service account and reports ERP connectivity.
func (h *Handlers) TestOdoo(c *gin.Context) {
	identity, err := h.auth.ProbeBackend(c.Request.Context())
	if err != nil {
		message := "ERP connection failed"
		if !h.production {
			message = message + ": " + err.Error()
		}
		respondError(c, http.StatusBadGateway, message)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "ERP connection ok",
		"data": gin.H{
			"uid":            identity.UID,
			"db":             identity.DB,
			"server_version": identity.ServerVersion,
		},
	})
}

func (h *Handlers) reportError(c *gin.Context, err error) {
	message := "Failed to fetch report data"
	if errors.Is(err, core.ErrConnection) {
		message = "Unable to reach the reporting backend"
	}
	if !h.production {
		message = message + ": " + err.Error()
	}
	respondError(c, http.StatusInternalServerError, message)
}

// DailyPayments returns per-day payment aggregates for the range.
func (h *Handlers) DailyPayments(c *gin.Context) {
	req := Body[DateRangeRequest](c)
	stats, err := h.reports.DailyPayments(c.Request.Context(), req.filter())
	if err != nil {
		h.reportError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

// PaymentTable returns one page of payment rows.
func (h *Handlers) PaymentTable(c *gin.Context) {
	req := Body[PaymentTableRequest](c)
	table, err := h.reports.PaymentTablePage(c.Request.Context(), req.filter(), req.Page, req.PageSize)
	if err != nil {
		h.reportError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": table})
}

// Invoices returns posted customer invoices for the range.
func (h *Handlers) Invoices(c *gin.Context) {
	req := Body[DateRangeRequest](c)
	report, err := h.reports.Invoices(c.Request.Context(), req.filter())
	if err != nil {
		h.reportError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}

// Quotations returns open quotations for the range.
func (h *Handlers) Quotations(c *gin.Context) {
	req := Body[DateRangeRequest](c)
	report, err := h.reports.Quotations(c.Request.Context(), req.filter())
	if err != nil {
		h.reportError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}

// Me echoes the identity embedded in the presented session token.
func (h *Handlers) Me(c *gin.Context) {
	claim, ok := ClaimFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Authentication token required")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"uid":        claim.UID,
			"username":   claim.Username,
			"name":       claim.Name,
			"expires_at": claim.ExpiresAt.UTC().Format(time.RFC3339),
		},
	})
}

// Health is the liveness probe.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
