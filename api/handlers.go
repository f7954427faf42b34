/*
handlers.go - HTTP API handlers for the tip distribution engine

PURPOSE:
  Exposes tip calculation via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the lifecycle controller.

ENDPOINTS:
  Stores:
    GET    /api/stores                              List stores
    GET    /api/stores/{storeID}/config             Window, mappings, patterns
    PUT    /api/stores/{storeID}/config             Replace configuration

  Ingestion:
    POST   /api/stores/{storeID}/shifts             Bulk shift rows
    GET    /api/stores/{storeID}/shifts?start=&end= Shifts with completeness
    PUT    /api/shifts/{id}                         Manual shift edit
    DELETE /api/shifts/{id}                         Remove a shift
    POST   /api/stores/{storeID}/tips               Bulk tip transactions
    GET    /api/stores/{storeID}/tips?start=&end=   Tip transactions
    PATCH  /api/tips/{id}/payment-time              Correct a payment time
    POST   /api/stores/{storeID}/cash-tips          Bulk cash tip days

  Calculations:
    POST   /api/stores/{storeID}/calculations       Compute (restart=true discards)
    GET    /api/stores/{storeID}/calculations/active
    GET    /api/calculations/{id}
    GET    /api/calculations/{id}/exceptions        Open exceptions, no writes
    PUT    /api/calculations/{id}/employees/{name}/status
    GET    /api/calculations/{id}/results
    GET    /api/calculations/{id}/export            xlsx workbook

  Results:
    PUT    /api/results/{id}                        Version-checked edit
    POST   /api/results/{id}/archive
    DELETE /api/results/{id}?version=N
    GET    /api/results/{id}/audit

ACTOR:
  The acting user comes from the X-Actor header. Post-completion edits
  require it; other mutations fall back to "api".

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, unmapped roles
  - 404: Resource not found
  - 409: Conflict (stale version, calculation state)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/tip-engine/export"
	"github.com/warp/tip-engine/factory"
	"github.com/warp/tip-engine/store/sqlite"
	"github.com/warp/tip-engine/tips"
)

const actorHeader = "X-Actor"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Controller *tips.Controller

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over the store and controller.
func NewHandler(store *sqlite.Store, controller *tips.Controller) *Handler {
	return &Handler{Store: store, Controller: controller}
}

func (h *Handler) places() int32 { return h.Controller.Engine.Places }

// =============================================================================
// STORE CONFIGURATION
// =============================================================================

// ListStores returns every configured store.
func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.Store.ListStores(r.Context())
	if err != nil {
		respondError(w, "Failed to list stores", err)
		return
	}
	dtos := make([]factory.StoreConfigJSON, len(stores))
	for i, s := range stores {
		dtos[i] = factory.FromConfig(s, nil, nil)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStoreConfig returns a store's window, mappings and patterns.
func (h *Handler) GetStoreConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := tips.StoreID(chi.URLParam(r, "storeID"))

	store, err := h.Store.GetStore(ctx, storeID)
	if err != nil {
		respondError(w, "Store not found", err)
		return
	}
	mappings, err := h.Store.RoleMappings(ctx, storeID)
	if err != nil {
		respondError(w, "Failed to load role mappings", err)
		return
	}
	patterns, err := h.Store.Patterns(ctx, storeID)
	if err != nil {
		respondError(w, "Failed to load patterns", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.FromConfig(*store, mappings, patterns))
}

// PutStoreConfig validates and replaces a store's configuration.
func (h *Handler) PutStoreConfig(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")

	var raw factory.StoreConfigJSON
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if raw.ID == "" {
		raw.ID = storeID
	}
	if raw.ID != storeID {
		writeError(w, http.StatusBadRequest, "Store id does not match URL", nil)
		return
	}

	cfg, err := raw.ToConfig()
	if err != nil {
		respondError(w, "Invalid store configuration", err)
		return
	}
	if err := h.Store.SaveConfig(r.Context(), cfg.Store, cfg.Mappings, cfg.Patterns); err != nil {
		respondError(w, "Failed to save configuration", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.FromConfig(cfg.Store, cfg.Mappings, cfg.Patterns))
}

// =============================================================================
// INGESTION
// =============================================================================

// ImportShifts stores normalized shift rows. Blank fields are kept and
// surface as incomplete-shift exceptions on the next run.
func (h *Handler) ImportShifts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := tips.StoreID(chi.URLParam(r, "storeID"))
	if _, err := h.Store.GetStore(ctx, storeID); err != nil {
		respondError(w, "Store not found", err)
		return
	}

	var req []ShiftDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	now := time.Now().UTC()
	records := make([]tips.ShiftRecord, 0, len(req))
	for i, dto := range req {
		rec, err := shiftFromDTO(dto, storeID)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("shifts[%d]", i), err)
			return
		}
		rec.ImportedComplete = rec.IsComplete()
		rec.UpdatedAt = now
		records = append(records, rec)
	}
	if err := h.Store.SaveShifts(ctx, records); err != nil {
		respondError(w, "Failed to save shifts", err)
		return
	}
	writeJSON(w, http.StatusCreated, ImportResponse{Imported: len(records)})
}

// ListShifts returns the store's shifts for a period.
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	storeID := tips.StoreID(chi.URLParam(r, "storeID"))
	period, err := periodFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}
	shifts, err := h.Store.Shifts(r.Context(), storeID, period)
	if err != nil {
		respondError(w, "Failed to list shifts", err)
		return
	}
	dtos := make([]ShiftDTO, len(shifts))
	for i, s := range shifts {
		dtos[i] = toShiftDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpdateShift applies a manual edit. Completeness is recomputed from the
// fields; imported_complete keeps its import-time value.
func (h *Handler) UpdateShift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	existing, err := h.Store.GetShift(ctx, id)
	if err != nil {
		respondError(w, "Shift not found", err)
		return
	}

	var dto ShiftDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	dto.ID = id
	rec, err := shiftFromDTO(dto, existing.StoreID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift", err)
		return
	}
	rec.ImportedComplete = existing.ImportedComplete
	rec.UpdatedAt = time.Now().UTC()

	if err := h.Store.SaveShift(ctx, rec); err != nil {
		respondError(w, "Failed to save shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(rec))
}

// DeleteShift removes a shift row.
func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteShift(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, "Failed to delete shift", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ImportTips stores tip transactions. Amounts must fit the currency places.
func (h *Handler) ImportTips(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := tips.StoreID(chi.URLParam(r, "storeID"))
	if _, err := h.Store.GetStore(ctx, storeID); err != nil {
		respondError(w, "Store not found", err)
		return
	}

	var req []TipTransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	txs := make([]tips.TipTransaction, 0, len(req))
	for i, dto := range req {
		tx, err := h.tipFromDTO(dto, storeID)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("tips[%d]", i), err)
			return
		}
		txs = append(txs, tx)
	}
	if err := h.Store.SaveTipTransactions(ctx, txs); err != nil {
		respondError(w, "Failed to save tip transactions", err)
		return
	}
	writeJSON(w, http.StatusCreated, ImportResponse{Imported: len(txs)})
}

// ListTips returns the store's tip transactions for a period.
func (h *Handler) ListTips(w http.ResponseWriter, r *http.Request) {
	storeID := tips.StoreID(chi.URLParam(r, "storeID"))
	period, err := periodFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}
	txs, err := h.Store.TipTransactions(r.Context(), storeID, period)
	if err != nil {
		respondError(w, "Failed to list tip transactions", err)
		return
	}
	dtos := make([]TipTransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTipTransactionDTO(tx, h.places())
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CorrectPaymentTime fixes an out-of-range or missing payment time.
func (h *Handler) CorrectPaymentTime(w http.ResponseWriter, r *http.Request) {
	var req PaymentTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	at, err := tips.ParseClock(req.PaymentTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment_time", err)
		return
	}

	tx, err := h.Controller.CorrectPaymentTime(r.Context(), chi.URLParam(r, "id"), at, actorOrDefault(r))
	if err != nil {
		respondError(w, "Failed to correct payment time", err)
		return
	}
	writeJSON(w, http.StatusOK, toTipTransactionDTO(*tx, h.places()))
}

// ImportCashTips stores daily cash totals.
func (h *Handler) ImportCashTips(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := tips.StoreID(chi.URLParam(r, "storeID"))
	if _, err := h.Store.GetStore(ctx, storeID); err != nil {
		respondError(w, "Store not found", err)
		return
	}

	var req []CashTipDayDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	days := make([]tips.CashTipDay, 0, len(req))
	for i, dto := range req {
		date, err := tips.ParseDate(dto.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("cash_tips[%d]: invalid date", i), err)
			return
		}
		if err := h.checkAmount(dto.Amount); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("cash_tips[%d]", i), err)
			return
		}
		id := dto.ID
		if id == "" {
			id = string(storeID) + "/" + tips.FormatDate(date)
		}
		days = append(days, tips.CashTipDay{ID: id, StoreID: storeID, Date: date, Amount: dto.Amount})
	}
	if err := h.Store.SaveCashTipDays(ctx, days); err != nil {
		respondError(w, "Failed to save cash tips", err)
		return
	}
	writeJSON(w, http.StatusCreated, ImportResponse{Imported: len(days)})
}

// =============================================================================
// CALCULATIONS
// =============================================================================

// Compute runs the engine for the store's period. With restart=true the
// processing calculation, if any, is discarded first.
func (h *Handler) Compute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID := tips.StoreID(chi.URLParam(r, "storeID"))

	var req ComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	period, err := parsePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}
	actor := actorOrDefault(r)

	if req.Restart {
		if _, err := h.Controller.Restart(ctx, storeID, period, actor); err != nil {
			respondError(w, "Failed to restart calculation", err)
			return
		}
	}

	outcome, err := h.Controller.Compute(ctx, storeID, period, actor)
	if err != nil {
		respondError(w, "Calculation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, OutcomeDTO{
		Calculation: toCalculationDTO(outcome.Calculation),
		Exceptions:  toExceptionDTOs(outcome.Exceptions.Items),
		Results:     toResultDTOs(outcome.Results, h.places()),
		TipPool:     outcome.TipPool.StringFixed(h.places()),
		CashPool:    outcome.CashPool.StringFixed(h.places()),
	})
}

// GetActiveCalculation returns the store's processing calculation or null.
func (h *Handler) GetActiveCalculation(w http.ResponseWriter, r *http.Request) {
	calc, err := h.Controller.Active(r.Context(), tips.StoreID(chi.URLParam(r, "storeID")))
	if err != nil {
		respondError(w, "Failed to load active calculation", err)
		return
	}
	if calc == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, toCalculationDTO(*calc))
}

// GetCalculation returns one calculation.
func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	calc, err := h.Store.GetCalculation(r.Context(), tips.CalculationID(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, "Calculation not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toCalculationDTO(*calc))
}

// GetOpenExceptions reports what still blocks completion on current inputs.
func (h *Handler) GetOpenExceptions(w http.ResponseWriter, r *http.Request) {
	report, err := h.Controller.OpenExceptions(r.Context(), tips.CalculationID(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, "Failed to review calculation", err)
		return
	}
	writeJSON(w, http.StatusOK, toExceptionDTOs(report.Items))
}

// SetTipStatus toggles whether an employee shares in pooled tips.
func (h *Handler) SetTipStatus(w http.ResponseWriter, r *http.Request) {
	var req TipStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	calcID := tips.CalculationID(chi.URLParam(r, "id"))
	employee := strings.TrimSpace(chi.URLParam(r, "name"))
	if employee == "" {
		writeError(w, http.StatusBadRequest, "Employee name is required", nil)
		return
	}

	if err := h.Controller.SetTipStatus(r.Context(), calcID, employee, req.Tipped); err != nil {
		respondError(w, "Failed to set tip status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"employee": employee, "tipped": req.Tipped})
}

// GetResults returns the result set of a calculation.
func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Controller.Results(r.Context(), tips.CalculationID(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, "Failed to load results", err)
		return
	}
	writeJSON(w, http.StatusOK, toResultDTOs(rows, h.places()))
}

// ExportResults streams the result set as an xlsx workbook.
func (h *Handler) ExportResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	calcID := tips.CalculationID(chi.URLParam(r, "id"))

	calc, err := h.Store.GetCalculation(ctx, calcID)
	if err != nil {
		respondError(w, "Calculation not found", err)
		return
	}
	store, err := h.Store.GetStore(ctx, calc.StoreID)
	if err != nil {
		respondError(w, "Store not found", err)
		return
	}
	rows, err := h.Controller.Results(ctx, calcID)
	if err != nil {
		respondError(w, "Failed to load results", err)
		return
	}
	report, err := h.Controller.OpenExceptions(ctx, calcID)
	if err != nil && !errors.Is(err, tips.ErrUnmappedRole) {
		respondError(w, "Failed to review calculation", err)
		return
	}

	var buf bytes.Buffer
	err = export.WriteXLSX(&buf, export.Workbook{
		Store:       *store,
		Calculation: *calc,
		Results:     rows,
		Exceptions:  report.Items,
		Places:      h.places(),
	})
	if err != nil {
		respondError(w, "Failed to render export", err)
		return
	}

	filename := fmt.Sprintf("tips-%s-%s.xlsx", store.Abbreviation, tips.FormatDate(calc.Period.Start))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, &buf)
}

// =============================================================================
// RESULT EDITS
// =============================================================================

// EditResult overwrites a completed row's amounts.
func (h *Handler) EditResult(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req EditResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	for _, amount := range []decimal.Decimal{req.Tips, req.CashTips} {
		if err := h.checkAmount(amount); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount", err)
			return
		}
	}

	row, err := h.Controller.EditResult(r.Context(), tips.ResultEdit{
		ID:              tips.ResultID(chi.URLParam(r, "id")),
		Tips:            req.Tips,
		CashTips:        req.CashTips,
		ExpectedVersion: req.Version,
		Actor:           actor,
	})
	if err != nil {
		respondError(w, "Failed to edit result", err)
		return
	}
	writeJSON(w, http.StatusOK, toResultDTO(*row, h.places()))
}

// ArchiveResult marks a completed row archived.
func (h *Handler) ArchiveResult(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req VersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	row, err := h.Controller.ArchiveResult(r.Context(), tips.ResultID(chi.URLParam(r, "id")), req.Version, actor)
	if err != nil {
		respondError(w, "Failed to archive result", err)
		return
	}
	writeJSON(w, http.StatusOK, toResultDTO(*row, h.places()))
}

// DeleteResult removes a completed row. The expected version is a query
// parameter so the request carries no body.
func (h *Handler) DeleteResult(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	version, err := strconv.Atoi(r.URL.Query().Get("version"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "version query parameter is required", err)
		return
	}

	if err := h.Controller.DeleteResult(r.Context(), tips.ResultID(chi.URLParam(r, "id")), version, actor); err != nil {
		respondError(w, "Failed to delete result", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetAuditTrail returns the edit history of a result row.
func (h *Handler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Controller.AuditTrail(r.Context(), tips.ResultID(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, "Failed to load audit trail", err)
		return
	}
	dtos := make([]AuditDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditDTO(e, h.places())
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// respondError maps domain errors onto HTTP statuses.
func respondError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: message, Details: err.Error()}

	var unmapped *tips.UnmappedRoleError
	var cfgErr *tips.ConfigError
	switch {
	case errors.As(err, &unmapped):
		resp.Code = "unmapped_role"
		resp.Details = unmapped.Labels
	case errors.As(err, &cfgErr):
		resp.Code = "invalid_config"
		resp.Details = cfgErr.Problems
	case tips.IsRetryable(err):
		resp.Code = "stale_version"
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case tips.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, tips.ErrConcurrentModification),
		errors.Is(err, tips.ErrCalculationInProgress),
		errors.Is(err, tips.ErrCalculationCompleted),
		errors.Is(err, tips.ErrCalculationNotCompleted),
		errors.Is(err, tips.ErrPeriodMismatch):
		return http.StatusConflict
	case tips.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func actorOrDefault(r *http.Request) string {
	if actor := strings.TrimSpace(r.Header.Get(actorHeader)); actor != "" {
		return actor
	}
	return "api"
}

func requireActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor := strings.TrimSpace(r.Header.Get(actorHeader))
	if actor == "" {
		writeError(w, http.StatusBadRequest, actorHeader+" header is required", nil)
		return "", false
	}
	return actor, true
}

// checkAmount rejects negative amounts and amounts finer than the currency unit.
func (h *Handler) checkAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("amount %s is negative", d)
	}
	if !d.Equal(d.Round(h.places())) {
		return fmt.Errorf("amount %s has more than %d decimal places", d, h.places())
	}
	return nil
}

func parsePeriod(start, end string) (tips.Period, error) {
	s, err := tips.ParseDate(start)
	if err != nil {
		return tips.Period{}, fmt.Errorf("period_start: %w", err)
	}
	e, err := tips.ParseDate(end)
	if err != nil {
		return tips.Period{}, fmt.Errorf("period_end: %w", err)
	}
	return tips.NewPeriod(s, e)
}

func periodFromQuery(r *http.Request) (tips.Period, error) {
	q := r.URL.Query()
	return parsePeriod(q.Get("start"), q.Get("end"))
}

func optionalClock(s string) (*tips.Clock, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	c, err := tips.ParseClock(s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func shiftFromDTO(dto ShiftDTO, storeID tips.StoreID) (tips.ShiftRecord, error) {
	if dto.ID == "" {
		return tips.ShiftRecord{}, errors.New("id is required")
	}
	rec := tips.ShiftRecord{ID: dto.ID, StoreID: storeID, Name: dto.Name, Role: dto.Role}
	if strings.TrimSpace(dto.Date) != "" {
		d, err := tips.ParseDate(dto.Date)
		if err != nil {
			return tips.ShiftRecord{}, fmt.Errorf("date: %w", err)
		}
		rec.Date = &d
	}
	var err error
	if rec.Start, err = optionalClock(dto.Start); err != nil {
		return tips.ShiftRecord{}, fmt.Errorf("start: %w", err)
	}
	if rec.End, err = optionalClock(dto.End); err != nil {
		return tips.ShiftRecord{}, fmt.Errorf("end: %w", err)
	}
	return rec, nil
}

func (h *Handler) tipFromDTO(dto TipTransactionDTO, storeID tips.StoreID) (tips.TipTransaction, error) {
	if dto.ID == "" {
		return tips.TipTransaction{}, errors.New("id is required")
	}
	date, err := tips.ParseDate(dto.Date)
	if err != nil {
		return tips.TipTransaction{}, fmt.Errorf("date: %w", err)
	}
	at, err := optionalClock(dto.PaymentTime)
	if err != nil {
		return tips.TipTransaction{}, fmt.Errorf("payment_time: %w", err)
	}
	if err := h.checkAmount(dto.Amount); err != nil {
		return tips.TipTransaction{}, err
	}
	return tips.TipTransaction{ID: dto.ID, StoreID: storeID, Date: date, PaymentTime: at, Amount: dto.Amount}, nil
}
