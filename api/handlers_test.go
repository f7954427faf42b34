/*
handlers_test.go - HTTP tests for the tip engine API

Tests for:
- Store configuration round trip and validation
- Compute over demo scenarios (completion, exceptions, corrections)
- Post-completion edits, archive, delete and audit
- Ingestion validation and status mapping
- xlsx export
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/tip-engine/export"
	"github.com/warp/tip-engine/store/sqlite"
	"github.com/warp/tip-engine/tips"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) (*chi.Mux, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctrl := tips.NewController(store, tips.NewEngine(), log.New(io.Discard, "", 0))
	return NewRouter(NewHandler(store, ctrl), []string{"http://localhost:5173"}), store
}

func do(t *testing.T, router http.Handler, method, path string, body any, actor string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(actorHeader, actor)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func loadScenario(t *testing.T, router http.Handler, id string) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": id}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func compute(t *testing.T, router http.Handler, restart bool) *httptest.ResponseRecorder {
	t.Helper()
	req := ComputeRequest{PeriodStart: demoPeriodStart, PeriodEnd: demoPeriodEnd, Restart: restart}
	return do(t, router, http.MethodPost, "/api/stores/"+demoStoreID+"/calculations", req, "manager@store")
}

func resultByEmployee(t *testing.T, rows []ResultDTO, name string) ResultDTO {
	t.Helper()
	for _, r := range rows {
		if r.Employee == name {
			return r
		}
	}
	t.Fatalf("no result for %s", name)
	return ResultDTO{}
}

func countKind(items []ExceptionDTO, kind tips.ExceptionKind) int {
	n := 0
	for _, e := range items {
		if e.Kind == string(kind) {
			n++
		}
	}
	return n
}

// =============================================================================
// STORE CONFIGURATION
// =============================================================================

func TestStoreConfig_PutAndGet(t *testing.T) {
	// GIVEN: A store configuration closing after midnight
	// WHEN: Saving it and reading it back
	// THEN: The window renders as entered and every pattern is kept

	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPut, "/api/stores/"+demoStoreID+"/config", demoStoreJSON("02:00"), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/stores/"+demoStoreID+"/config", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var cfg struct {
		Window struct {
			Open  string `json:"open"`
			Close string `json:"close"`
		} `json:"window"`
		RoleMappings []json.RawMessage `json:"role_mappings"`
		Patterns     []json.RawMessage `json:"patterns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, "08:00", cfg.Window.Open)
	assert.Equal(t, "02:00", cfg.Window.Close)
	assert.Len(t, cfg.RoleMappings, 3)
	assert.Len(t, cfg.Patterns, 7)

	rec = do(t, router, http.MethodGet, "/api/stores", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), demoStoreID)
}

func TestStoreConfig_IncompletePatternTableRejected(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{
		"window": {"open": "08:00", "close": "23:00"},
		"role_mappings": [{"group": "FRONT", "label": "Server"}, {"group": "BACK", "label": "Cook"}],
		"patterns": [{"groups": "FRONT+BACK", "percentages": {"FRONT": "70", "BACK": "30"}}]
	}`
	rec := do(t, router, http.MethodPut, "/api/stores/store-x/config", body, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "invalid_config", resp.Code)

	rec = do(t, router, http.MethodGet, "/api/stores/store-x/config", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStoreConfig_IDMismatch(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodPut, "/api/stores/other/config", demoStoreJSON("23:00"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// COMPUTE
// =============================================================================

func TestCompute_TraineeScenario_Completes(t *testing.T) {
	// GIVEN: Ana (server), Finn (50% trainee server) and Ben (cook) on duty
	// WHEN: Computing the week
	// THEN: FRONT's 70% splits 2:1 and the cash day follows the same split

	router, _ := newTestRouter(t)
	loadScenario(t, router, "trainee-floor")

	rec := compute(t, router, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	outcome := decode[OutcomeDTO](t, rec)

	assert.Equal(t, "completed", outcome.Calculation.Status)
	assert.NotNil(t, outcome.Calculation.CompletedAt)
	assert.Empty(t, outcome.Exceptions)
	assert.Equal(t, "90.00", outcome.TipPool)
	assert.Equal(t, "30.00", outcome.CashPool)

	ana := resultByEmployee(t, outcome.Results, "Ana")
	assert.Equal(t, "42.00", ana.Tips)
	assert.Equal(t, "14.00", ana.CashTips)
	assert.Equal(t, "56.00", ana.Total)

	finn := resultByEmployee(t, outcome.Results, "Finn")
	assert.Equal(t, "21.00", finn.Tips)
	assert.Equal(t, "7.00", finn.CashTips)

	ben := resultByEmployee(t, outcome.Results, "Ben")
	assert.Equal(t, "27.00", ben.Tips)
	assert.Equal(t, "9.00", ben.CashTips)

	rec = do(t, router, http.MethodGet, "/api/calculations/"+outcome.Calculation.ID+"/results", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ResultDTO](t, rec), 3)

	rec = do(t, router, http.MethodGet, "/api/stores/"+demoStoreID+"/calculations/active", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", string(bytes.TrimSpace(rec.Body.Bytes())))
}

func TestCompute_LateNight_ExceptionsThenCorrected(t *testing.T) {
	// GIVEN: A tip before opening and a shift row without a role
	// WHEN: Computing, correcting both, computing again
	// THEN: The first run stays processing; the second completes

	router, _ := newTestRouter(t)
	loadScenario(t, router, "late-night")

	rec := compute(t, router, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[OutcomeDTO](t, rec)

	assert.Equal(t, "processing", first.Calculation.Status)
	assert.Equal(t, 1, countKind(first.Exceptions, tips.ExceptionOutOfRange))
	assert.Equal(t, 1, countKind(first.Exceptions, tips.ExceptionIncompleteShift))

	rec = do(t, router, http.MethodGet, "/api/calculations/"+first.Calculation.ID+"/exceptions", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ExceptionDTO](t, rec), len(first.Exceptions))

	rec = do(t, router, http.MethodPatch, "/api/tips/tip-003/payment-time", PaymentTimeRequest{PaymentTime: "22:00"}, "manager@store")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	corrected := decode[TipTransactionDTO](t, rec)
	assert.True(t, corrected.Adjusted)
	assert.Equal(t, "06:40", corrected.OriginalPaymentTime)

	edit := ShiftDTO{Name: "Eli", Date: "2025-01-07", Start: "16:00", End: "00:00", Role: "Cook"}
	rec = do(t, router, http.MethodPut, "/api/shifts/shift-004", edit, "manager@store")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	shift := decode[ShiftDTO](t, rec)
	assert.True(t, shift.Complete)
	assert.False(t, shift.ImportedComplete)

	rec = compute(t, router, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[OutcomeDTO](t, rec)
	assert.Equal(t, first.Calculation.ID, second.Calculation.ID)
	assert.Equal(t, "completed", second.Calculation.Status)
	assert.Empty(t, second.Exceptions)
	assert.Equal(t, "147.00", second.TipPool)
}

func TestCompute_PeriodMismatchThenRestart(t *testing.T) {
	router, _ := newTestRouter(t)
	loadScenario(t, router, "late-night")

	rec := compute(t, router, false)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[OutcomeDTO](t, rec)

	other := ComputeRequest{PeriodStart: "2025-01-13", PeriodEnd: "2025-01-19"}
	rec = do(t, router, http.MethodPost, "/api/stores/"+demoStoreID+"/calculations", other, "manager@store")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = compute(t, router, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	restarted := decode[OutcomeDTO](t, rec)
	assert.NotEqual(t, first.Calculation.ID, restarted.Calculation.ID)

	rec = do(t, router, http.MethodGet, "/api/calculations/"+first.Calculation.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/stores/"+demoStoreID+"/calculations/active", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, restarted.Calculation.ID, decode[CalculationDTO](t, rec).ID)
}

func TestCompute_UnmappedRole(t *testing.T) {
	router, _ := newTestRouter(t)
	loadScenario(t, router, "trainee-floor")

	shifts := []ShiftDTO{{ID: "x1", Name: "Gus", Date: "2025-01-08", Start: "10:00", End: "12:00", Role: "Host"}}
	rec := do(t, router, http.MethodPost, "/api/stores/"+demoStoreID+"/shifts", shifts, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = compute(t, router, false)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "unmapped_role", resp.Code)
	assert.Equal(t, []any{"Host"}, resp.Details)
}

func TestCompute_InvalidPeriod(t *testing.T) {
	router, _ := newTestRouter(t)
	loadScenario(t, router, "trainee-floor")

	req := ComputeRequest{PeriodStart: "2025-01-12", PeriodEnd: "2025-01-06"}
	rec := do(t, router, http.MethodPost, "/api/stores/"+demoStoreID+"/calculations", req, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = ComputeRequest{PeriodStart: demoPeriodStart, PeriodEnd: demoPeriodEnd}
	rec = do(t, router, http.MethodPost, "/api/stores/missing/calculations", req, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetTipStatus_ProcessingOnly(t *testing.T) {
	router, _ := newTestRouter(t)
	loadScenario(t, router, "late-night")

	rec := compute(t, router, false)
	require.Equal(t, http.StatusOK, rec.Code)
	calcID := decode[OutcomeDTO](t, rec).Calculation.ID

	path := "/api/calculations/" + calcID + "/employees/Ben/status"
	rec = do(t, router, http.MethodPut, path, TipStatusRequest{Tipped: false}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPut, "/api/calculations/missing/employees/Ben/status", TipStatusRequest{}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	loadScenario(t, router, "trainee-floor")
	rec = compute(t, router, false)
	require.Equal(t, http.StatusOK, rec.Code)
	done := decode[OutcomeDTO](t, rec).Calculation.ID

	rec = do(t, router, http.MethodPut, "/api/calculations/"+done+"/employees/Ben/status", TipStatusRequest{}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// =============================================================================
// RESULT EDITS
// =============================================================================

func TestResultEdits_VersionedAuditedIdempotent(t *testing.T) {
	// GIVEN: A completed calculation
	// WHEN: Editing, retrying, archiving and deleting rows
	// THEN: Versions advance, stale writes conflict and every change is audited

	router, _ := newTestRouter(t)
	loadScenario(t, router, "trainee-floor")
	rec := compute(t, router, false)
	require.Equal(t, http.StatusOK, rec.Code)
	outcome := decode[OutcomeDTO](t, rec)
	ana := resultByEmployee(t, outcome.Results, "Ana")
	path := "/api/results/" + ana.ID

	edit := map[string]any{"tips": "40.00", "cash_tips": "16.00", "version": 1}
	rec = do(t, router, http.MethodPut, path, edit, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "actor is required")

	rec = do(t, router, http.MethodPut, path, edit, "reviewer@store")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[ResultDTO](t, rec)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "40.00", updated.Tips)
	assert.Equal(t, "reviewer@store", updated.UpdatedBy)

	rec = do(t, router, http.MethodPut, path, edit, "reviewer@store")
	require.Equal(t, http.StatusOK, rec.Code, "retry of an applied edit succeeds")
	assert.Equal(t, 2, decode[ResultDTO](t, rec).Version)

	stale := map[string]any{"tips": "41.00", "cash_tips": "16.00", "version": 1}
	rec = do(t, router, http.MethodPut, path, stale, "other@store")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "stale_version", decode[ErrorResponse](t, rec).Code)

	subCent := map[string]any{"tips": "40.001", "cash_tips": "16.00", "version": 2}
	rec = do(t, router, http.MethodPut, path, subCent, "reviewer@store")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, path+"/archive", VersionRequest{Version: 2}, "reviewer@store")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	archived := decode[ResultDTO](t, rec)
	assert.True(t, archived.Archived)
	assert.Equal(t, 3, archived.Version)

	rec = do(t, router, http.MethodDelete, path+"?version=3", nil, "reviewer@store")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, router, http.MethodDelete, path+"?version=3", nil, "reviewer@store")
	assert.Equal(t, http.StatusOK, rec.Code, "deleting twice is a no-op")
	rec = do(t, router, http.MethodDelete, path, nil, "reviewer@store")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, path+"/audit", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	trail := decode[[]AuditDTO](t, rec)
	require.Len(t, trail, 3)
	assert.Equal(t, "edited", trail[0].Action)
	assert.Equal(t, "42.00", trail[0].Previous.Tips)
	assert.Equal(t, "archived", trail[1].Action)
	assert.Equal(t, "deleted", trail[2].Action)
	assert.Nil(t, trail[2].Current)

	rec = do(t, router, http.MethodGet, "/api/calculations/"+outcome.Calculation.ID+"/results", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ResultDTO](t, rec), 2)
}

func TestResultEdits_ProcessingCalculationRejected(t *testing.T) {
	router, _ := newTestRouter(t)
	loadScenario(t, router, "late-night")
	rec := compute(t, router, false)
	require.Equal(t, http.StatusOK, rec.Code)
	outcome := decode[OutcomeDTO](t, rec)
	require.NotEmpty(t, outcome.Results)

	path := "/api/results/" + outcome.Results[0].ID
	rec = do(t, router, http.MethodPost, path+"/archive", VersionRequest{Version: 1}, "reviewer@store")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPut, "/api/results/missing", map[string]any{"tips": "1", "cash_tips": "0", "version": 1}, "reviewer@store")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// INGESTION
// =============================================================================

func TestImport_ValidatesRows(t *testing.T) {
	router, store := newTestRouter(t)
	rec := do(t, router, http.MethodPut, "/api/stores/"+demoStoreID+"/config", demoStoreJSON("23:00"), "")
	require.Equal(t, http.StatusOK, rec.Code)

	base := "/api/stores/" + demoStoreID

	rec = do(t, router, http.MethodPost, base+"/tips", `[{"id": "t1", "date": "2025-01-06", "payment_time": "12:00", "amount": "1.005"}]`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, base+"/tips", `[{"id": "t1", "date": "2025-01-06", "payment_time": "12:00", "amount": -4}]`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, base+"/tips", `[{"id": "t1", "date": "2025-01-06", "amount": 12.5}]`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[ImportResponse](t, rec).Imported)

	rec = do(t, router, http.MethodGet, base+"/tips?start=2025-01-06&end=2025-01-12", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[[]TipTransactionDTO](t, rec)
	require.Len(t, listed, 1)
	assert.Empty(t, listed[0].PaymentTime)

	rec = do(t, router, http.MethodPost, base+"/shifts", `[{"id": "s1", "name": "Ana", "date": "2025-01-06", "start": "9am"}]`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, base+"/shifts", `[{"id": "s1", "name": "Ana", "date": "2025-01-06", "start": "09:00"}]`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, router, http.MethodGet, base+"/shifts?start=2025-01-06&end=2025-01-12", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	shifts := decode[[]ShiftDTO](t, rec)
	require.Len(t, shifts, 1)
	assert.False(t, shifts[0].Complete)
	assert.Equal(t, []string{"end", "role"}, shifts[0].MissingFields)

	rec = do(t, router, http.MethodPost, base+"/cash-tips", `[{"date": "2025-01-06", "amount": "20.00"}]`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodDelete, "/api/shifts/s1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, err := store.GetShift(context.Background(), "s1")
	assert.ErrorIs(t, err, tips.ErrShiftNotFound)
	rec = do(t, router, http.MethodDelete, "/api/shifts/s1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/stores/missing/tips", `[]`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, router, http.MethodPatch, "/api/tips/missing/payment-time", PaymentTimeRequest{PaymentTime: "10:00"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// EXPORT
// =============================================================================

func TestExportResults_Workbook(t *testing.T) {
	router, _ := newTestRouter(t)
	loadScenario(t, router, "trainee-floor")
	rec := compute(t, router, false)
	require.Equal(t, http.StatusOK, rec.Code)
	calcID := decode[OutcomeDTO](t, rec).Calculation.ID

	rec = do(t, router, http.MethodGet, "/api/calculations/"+calcID+"/export", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tips-DT-2025-01-06.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.ResultsSheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	// title, blank, header, three employees, total
	require.Len(t, rows, 7)
	assert.Equal(t, "Total", rows[6][0])
	assert.Equal(t, "90.00", rows[6][1])
	assert.Equal(t, "30.00", rows[6][2])

	rec = do(t, router, http.MethodGet, "/api/calculations/missing/export", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarios_ListAndLoad(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/scenarios", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]ScenarioDTO](t, rec)
	require.Len(t, list, len(scenarios))
	assert.Equal(t, demoPeriodStart, list[0].PeriodStart)

	rec = do(t, router, http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": "nope"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, s := range scenarios {
		loadScenario(t, router, s.ID)
		rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, s.ID, decode[ScenarioDTO](t, rec).ID)
	}

	loadScenario(t, router, "clean-week")
	rec = compute(t, router, false)
	require.Equal(t, http.StatusOK, rec.Code)
	outcome := decode[OutcomeDTO](t, rec)
	assert.Equal(t, "completed", outcome.Calculation.Status, outcome.Exceptions)
	assert.Equal(t, "922.25", outcome.TipPool)

	rec = do(t, router, http.MethodPost, "/api/scenarios/reset", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil, "")
	assert.Equal(t, "null", string(bytes.TrimSpace(rec.Body.Bytes())))
}
