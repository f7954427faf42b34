/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the tips domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients (some double as ingestion input)
  - *Request: Request body types from clients

FORMATS:
  Dates are "YYYY-MM-DD". Clock times are "HH:MM"; hours 24-47 mean after
  midnight of the same business day. Money is a decimal string rendered
  with the server's currency places; inputs accept strings or numbers.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/store.go: StoreConfigJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/tip-engine/tips"
)

// =============================================================================
// INGESTION
// =============================================================================

// ShiftDTO is a normalized shift row. Blank fields are allowed on input and
// reported as incomplete by the next run.
type ShiftDTO struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Date             string   `json:"date,omitempty"`
	Start            string   `json:"start,omitempty"`
	End              string   `json:"end,omitempty"`
	Role             string   `json:"role"`
	ImportedComplete bool     `json:"imported_complete"`
	Complete         bool     `json:"complete"`
	MissingFields    []string `json:"missing_fields,omitempty"`
}

// TipTransactionDTO is a point-of-sale tip event.
type TipTransactionDTO struct {
	ID                  string          `json:"id"`
	Date                string          `json:"date"`
	PaymentTime         string          `json:"payment_time,omitempty"`
	Amount              decimal.Decimal `json:"amount"`
	Adjusted            bool            `json:"adjusted"`
	OriginalPaymentTime string          `json:"original_payment_time,omitempty"`
}

// CashTipDayDTO is a day's aggregate cash tips.
type CashTipDayDTO struct {
	ID     string          `json:"id"`
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// ImportResponse reports how many rows an ingestion call stored.
type ImportResponse struct {
	Imported int `json:"imported"`
}

// PaymentTimeRequest corrects a tip transaction's payment time.
type PaymentTimeRequest struct {
	PaymentTime string `json:"payment_time"`
}

// =============================================================================
// CALCULATIONS
// =============================================================================

// ComputeRequest runs the engine for a store and period.
type ComputeRequest struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	Restart     bool   `json:"restart"`
}

// CalculationDTO represents a calculation in API responses.
type CalculationDTO struct {
	ID          string  `json:"id"`
	StoreID     string  `json:"store_id"`
	PeriodStart string  `json:"period_start"`
	PeriodEnd   string  `json:"period_end"`
	Status      string  `json:"status"`
	CreatedBy   string  `json:"created_by"`
	CreatedAt   string  `json:"created_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

// ExceptionDTO is one blocking condition of a run.
type ExceptionDTO struct {
	Kind     string `json:"kind"`
	RecordID string `json:"record_id,omitempty"`
	Date     string `json:"date,omitempty"`
	At       string `json:"at,omitempty"`
	Pattern  string `json:"pattern,omitempty"`
	Group    string `json:"group,omitempty"`
	Message  string `json:"message"`
}

// OutcomeDTO is the response of a compute call.
type OutcomeDTO struct {
	Calculation CalculationDTO `json:"calculation"`
	Exceptions  []ExceptionDTO `json:"exceptions"`
	Results     []ResultDTO    `json:"results"`
	TipPool     string         `json:"tip_pool"`
	CashPool    string         `json:"cash_pool"`
}

// TipStatusRequest toggles an employee's participation.
type TipStatusRequest struct {
	Tipped bool `json:"tipped"`
}

// =============================================================================
// RESULTS
// =============================================================================

// ResultDTO is one employee's row.
type ResultDTO struct {
	ID            string `json:"id"`
	CalculationID string `json:"calculation_id"`
	Employee      string `json:"employee"`
	Tips          string `json:"tips"`
	CashTips      string `json:"cash_tips"`
	Total         string `json:"total"`
	Archived      bool   `json:"archived"`
	Version       int    `json:"version"`
	UpdatedAt     string `json:"updated_at"`
	UpdatedBy     string `json:"updated_by"`
}

// EditResultRequest overwrites a completed row's amounts.
type EditResultRequest struct {
	Tips     decimal.Decimal `json:"tips"`
	CashTips decimal.Decimal `json:"cash_tips"`
	Version  int             `json:"version"`
}

// VersionRequest carries the version a caller last read.
type VersionRequest struct {
	Version int `json:"version"`
}

// AuditDTO is one entry of a result's history.
type AuditDTO struct {
	ID        string     `json:"id"`
	ResultID  string     `json:"result_id"`
	Action    string     `json:"action"`
	Actor     string     `json:"actor"`
	Previous  ResultDTO  `json:"previous"`
	Current   *ResultDTO `json:"current,omitempty"`
	Timestamp string     `json:"timestamp"`
}

// =============================================================================
// MISC
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StoreID     string `json:"store_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func formatClock(c *tips.Clock) string {
	if c == nil {
		return ""
	}
	return c.String()
}

func toShiftDTO(s tips.ShiftRecord) ShiftDTO {
	dto := ShiftDTO{
		ID:               s.ID,
		Name:             s.Name,
		Start:            formatClock(s.Start),
		End:              formatClock(s.End),
		Role:             s.Role,
		ImportedComplete: s.ImportedComplete,
		Complete:         s.IsComplete(),
		MissingFields:    s.MissingFields(),
	}
	if s.Date != nil {
		dto.Date = tips.FormatDate(*s.Date)
	}
	return dto
}

func toTipTransactionDTO(tx tips.TipTransaction, places int32) TipTransactionDTO {
	return TipTransactionDTO{
		ID:                  tx.ID,
		Date:                tips.FormatDate(tx.Date),
		PaymentTime:         formatClock(tx.PaymentTime),
		Amount:              tx.Amount.Round(places),
		Adjusted:            tx.Adjusted,
		OriginalPaymentTime: formatClock(tx.OriginalPaymentTime),
	}
}

func toCalculationDTO(c tips.TipCalculation) CalculationDTO {
	dto := CalculationDTO{
		ID:          string(c.ID),
		StoreID:     string(c.StoreID),
		PeriodStart: tips.FormatDate(c.Period.Start),
		PeriodEnd:   tips.FormatDate(c.Period.End),
		Status:      string(c.Status),
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
	if c.CompletedAt != nil {
		at := c.CompletedAt.Format(time.RFC3339)
		dto.CompletedAt = &at
	}
	return dto
}

func toExceptionDTO(e tips.Exception) ExceptionDTO {
	dto := ExceptionDTO{
		Kind:     string(e.Kind),
		RecordID: e.RecordID,
		At:       formatClock(e.At),
		Message:  e.Message,
	}
	if !e.Date.IsZero() {
		dto.Date = tips.FormatDate(e.Date)
	}
	if !e.Pattern.IsEmpty() {
		dto.Pattern = e.Pattern.String()
	}
	if e.Group != 0 {
		dto.Group = e.Group.String()
	}
	return dto
}

func toExceptionDTOs(items []tips.Exception) []ExceptionDTO {
	dtos := make([]ExceptionDTO, len(items))
	for i, e := range items {
		dtos[i] = toExceptionDTO(e)
	}
	return dtos
}

func toResultDTO(r tips.TipCalculationResult, places int32) ResultDTO {
	return ResultDTO{
		ID:            string(r.ID),
		CalculationID: string(r.CalculationID),
		Employee:      r.Employee,
		Tips:          r.Tips.StringFixed(places),
		CashTips:      r.CashTips.StringFixed(places),
		Total:         r.Total().StringFixed(places),
		Archived:      r.Archived,
		Version:       r.Version,
		UpdatedAt:     r.UpdatedAt.Format(time.RFC3339),
		UpdatedBy:     r.UpdatedBy,
	}
}

func toResultDTOs(rows []tips.TipCalculationResult, places int32) []ResultDTO {
	dtos := make([]ResultDTO, len(rows))
	for i, r := range rows {
		dtos[i] = toResultDTO(r, places)
	}
	return dtos
}

func toAuditDTO(a tips.ResultAudit, places int32) AuditDTO {
	dto := AuditDTO{
		ID:        a.ID,
		ResultID:  string(a.ResultID),
		Action:    string(a.Action),
		Actor:     a.Actor,
		Previous:  toResultDTO(a.Previous, places),
		Timestamp: a.Timestamp.Format(time.RFC3339),
	}
	if a.Current != nil {
		cur := toResultDTO(*a.Current, places)
		dto.Current = &cur
	}
	return dto
}
