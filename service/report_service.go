package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/odoodash/gateway/ports"
	"github.com/shopspring/decimal"
)

const queryLimit = 1000

// ReportService runs filtered reporting queries against the ERP through the
// shared session. It only does the query shaping the dashboard needs; all
// access control happens in the transport layer before a request gets here.
type ReportService struct {
	session ports.ErpSession
}

// NewReportService creates a new report service.
func NewReportService(session ports.ErpSession) *ReportService {
	return &ReportService{session: session}
}

// PaymentFilter bounds a payment query. EstadoRep optionally narrows by the
// REP payment status field.
type PaymentFilter struct {
	DateFrom  string
	DateTo    string
	EstadoRep string
}

// PaymentRow is one posted payment.
type PaymentRow struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	PartnerID   json.RawMessage `json:"partner_id"`
	JournalID   json.RawMessage `json:"journal_id"`
	EstadoPago  string          `json:"estado_pago"`
	State       string          `json:"state"`
	Ref         string          `json:"ref"`
	PaymentType string          `json:"payment_type"`
}

// DailyTotal aggregates one day of payments.
type DailyTotal struct {
	Date   string          `json:"date"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// PaymentStatistics is the daily-payments report payload.
type PaymentStatistics struct {
	DailyData []DailyTotal    `json:"dailyData"`
	Total     decimal.Decimal `json:"totalAmount"`
	Count     int             `json:"totalPayments"`
}

// PaymentTable is one page of payment rows.
type PaymentTable struct {
	Rows     []PaymentRow `json:"rows"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
	Total    int          `json:"total"`
}

func (f PaymentFilter) domain() []any {
	domain := []any{
		[]any{"state", "=", "posted"},
		[]any{"date", ">=", f.DateFrom},
		[]any{"date", "<=", f.DateTo},
	}
	if f.EstadoRep != "" {
		domain = append(domain, []any{"estado_pago", "=", f.EstadoRep})
	}
	return domain
}

func (s *ReportService) fetchPayments(ctx context.Context, f PaymentFilter) ([]PaymentRow, error) {
	result, err := s.session.CallKw(ctx, "account.payment", "search_read",
		[]any{f.domain()},
		map[string]any{
			"fields": []string{
				"id", "name", "date", "amount", "currency_id",
				"partner_id", "journal_id",
				"estado_pago", "state", "ref", "payment_type",
			},
			"order": "date desc",
			"limit": queryLimit,
		})
	if err != nil {
		return nil, err
	}

	var rows []PaymentRow
	if err := json.Unmarshal(result, &rows); err != nil {
		return nil, fmt.Errorf("malformed payment rows: %w", err)
	}
	return rows, nil
}

// DailyPayments aggregates posted payments per day within the range.
func (s *ReportService) DailyPayments(ctx context.Context, f PaymentFilter) (*PaymentStatistics, error) {
	rows, err := s.fetchPayments(ctx, f)
	if err != nil {
		return nil, err
	}

	perDay := make(map[string]*DailyTotal)
	total := decimal.Zero
	for _, row := range rows {
		day, ok := perDay[row.Date]
		if !ok {
			day = &DailyTotal{Date: row.Date, Amount: decimal.Zero}
			perDay[row.Date] = day
		}
		day.Count++
		day.Amount = day.Amount.Add(row.Amount)
		total = total.Add(row.Amount)
	}

	daily := make([]DailyTotal, 0, len(perDay))
	for _, day := range perDay {
		daily = append(daily, *day)
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })

	return &PaymentStatistics{
		DailyData: daily,
		Total:     total,
		Count:     len(rows),
	}, nil
}

// PaymentTablePage returns one page of payment rows, newest first.
func (s *ReportService) PaymentTablePage(ctx context.Context, f PaymentFilter, page, pageSize int) (*PaymentTable, error) {
	rows, err := s.fetchPayments(ctx, f)
	if err != nil {
		return nil, err
	}

	start := (page - 1) * pageSize
	if start > len(rows) {
		start = len(rows)
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}

	return &PaymentTable{
		Rows:     rows[start:end],
		Page:     page,
		PageSize: pageSize,
		Total:    len(rows),
	}, nil
}

// InvoiceRow is one customer invoice.
type InvoiceRow struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	InvoiceDate  string          `json:"invoice_date"`
	AmountTotal  decimal.Decimal `json:"amount_total"`
	PartnerID    json.RawMessage `json:"partner_id"`
	PaymentState string          `json:"payment_state"`
	State        string          `json:"state"`
}

// InvoiceReport is the invoices report payload.
type InvoiceReport struct {
	Rows  []InvoiceRow    `json:"rows"`
	Total decimal.Decimal `json:"totalAmount"`
	Count int             `json:"totalInvoices"`
}

// Invoices lists posted customer invoices within the range with totals.
func (s *ReportService) Invoices(ctx context.Context, f PaymentFilter) (*InvoiceReport, error) {
	domain := []any{
		[]any{"move_type", "=", "out_invoice"},
		[]any{"state", "=", "posted"},
		[]any{"invoice_date", ">=", f.DateFrom},
		[]any{"invoice_date", "<=", f.DateTo},
	}
	result, err := s.session.CallKw(ctx, "account.move", "search_read",
		[]any{domain},
		map[string]any{
			"fields": []string{
				"id", "name", "invoice_date", "amount_total",
				"partner_id", "payment_state", "state",
			},
			"order": "invoice_date desc",
			"limit": queryLimit,
		})
	if err != nil {
		return nil, err
	}

	var rows []InvoiceRow
	if err := json.Unmarshal(result, &rows); err != nil {
		return nil, fmt.Errorf("malformed invoice rows: %w", err)
	}

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.AmountTotal)
	}

	return &InvoiceReport{Rows: rows, Total: total, Count: len(rows)}, nil
}

// QuotationRow is one sale quotation.
type QuotationRow struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	DateOrder   string          `json:"date_order"`
	AmountTotal decimal.Decimal `json:"amount_total"`
	PartnerID   json.RawMessage `json:"partner_id"`
	State       string          `json:"state"`
}

// QuotationReport is the quotations report payload.
type QuotationReport struct {
	Rows  []QuotationRow  `json:"rows"`
	Total decimal.Decimal `json:"totalAmount"`
	Count int             `json:"totalQuotations"`
}

// Quotations lists open quotations within the range with totals.
func (s *ReportService) Quotations(ctx context.Context, f PaymentFilter) (*QuotationReport, error) {
	domain := []any{
		[]any{"state", "in", []string{"draft", "sent"}},
		[]any{"date_order", ">=", f.DateFrom},
		[]any{"date_order", "<=", f.DateTo},
	}
	result, err := s.session.CallKw(ctx, "sale.order", "search_read",
		[]any{domain},
		map[string]any{
			"fields": []string{
				"id", "name", "date_order", "amount_total",
				"partner_id", "state",
			},
			"order": "date_order desc",
			"limit": queryLimit,
		})
	if err != nil {
		return nil, err
	}

	var rows []QuotationRow
	if err := json.Unmarshal(result, &rows); err != nil {
		return nil, fmt.Errorf("malformed quotation rows: %w", err)
	}

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.AmountTotal)
	}

	return &QuotationReport{Rows: rows, Total: total, Count: len(rows)}, nil
}
