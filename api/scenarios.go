/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with a store,
	its configuration and a week of shifts, tips and cash totals. Each
	scenario demonstrates a specific part of the engine.

AVAILABLE SCENARIOS:

	clean-week:   Front and back of house, one week, completes on first run
	late-night:   Store closing at 02:00 with an overnight shift, one
	              out-of-range tip and one blank shift row
	trainee-floor: Trainee server at 50% sharing with a full-rate server

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Save store configuration via factory
 3. Save shifts, tip transactions and cash tip days

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "late-night"}

	then POST /api/stores/{store_id}/calculations with the scenario period.

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Compute and result handlers
  - factory/store.go: Store configuration JSON
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/tip-engine/factory"
	"github.com/warp/tip-engine/tips"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

const (
	demoStoreID     = "store-downtown"
	demoPeriodStart = "2025-01-06"
	demoPeriodEnd   = "2025-01-12"
)

var scenarios = []ScenarioDTO{
	{
		ID:          "clean-week",
		Name:        "Clean Week",
		Description: "Servers, cooks and a busser over one week; completes on the first run",
	},
	{
		ID:          "late-night",
		Name:        "Late Night",
		Description: "Closes at 02:00 with an overnight shift, an out-of-range tip and a blank shift row",
	},
	{
		ID:          "trainee-floor",
		Name:        "Trainee on the Floor",
		Description: "A 50% trainee server sharing the front-of-house pool",
	},
}

func init() {
	for i := range scenarios {
		scenarios[i].StoreID = demoStoreID
		scenarios[i].PeriodStart = demoPeriodStart
		scenarios[i].PeriodEnd = demoPeriodEnd
	}
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "clean-week":
		load = h.loadCleanWeekScenario
	case "late-night":
		load = h.loadLateNightScenario
	case "trainee-floor":
		load = h.loadTraineeFloorScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func demoStoreJSON(closing string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"abbreviation": "DT",
		"name": "Downtown",
		"window": {"open": "08:00", "close": %q},
		"role_mappings": [
			{"group": "FRONT", "label": "Server", "trainee_label": "Server Trainee", "trainee_percentage": "50"},
			{"group": "BACK", "label": "Cook"},
			{"group": "FLOATER", "label": "Busser"}
		],
		"patterns": [
			{"groups": "FRONT", "percentages": {"FRONT": "100"}},
			{"groups": "BACK", "percentages": {"BACK": "100"}},
			{"groups": "FLOATER", "percentages": {"FLOATER": "100"}},
			{"groups": "FRONT+BACK", "percentages": {"FRONT": "70", "BACK": "30"}},
			{"groups": "FRONT+FLOATER", "percentages": {"FRONT": "85", "FLOATER": "15"}},
			{"groups": "BACK+FLOATER", "percentages": {"BACK": "80", "FLOATER": "20"}},
			{"groups": "FRONT+BACK+FLOATER", "percentages": {"FRONT": "60", "BACK": "25", "FLOATER": "15"}}
		]
	}`, demoStoreID, closing)
}

func (h *Handler) saveDemoStore(ctx context.Context, closing string) error {
	cfg, err := factory.ParseStoreConfig([]byte(demoStoreJSON(closing)))
	if err != nil {
		return err
	}
	return h.Store.SaveConfig(ctx, cfg.Store, cfg.Mappings, cfg.Patterns)
}

// demoSeed is a compact description of one scenario's inputs.
type demoSeed struct {
	shifts []demoShift
	tips   []demoTip
	cash   map[int]string // day offset -> amount
}

type demoShift struct {
	day        int
	name, role string
	start, end string
	blankRole  bool
}

type demoTip struct {
	day    int
	at     string
	amount string
}

func (h *Handler) saveSeed(ctx context.Context, seed demoSeed) error {
	start, _ := tips.ParseDate(demoPeriodStart)
	now := time.Now().UTC()

	shifts := make([]tips.ShiftRecord, 0, len(seed.shifts))
	for i, s := range seed.shifts {
		date := start.AddDate(0, 0, s.day)
		rec := tips.ShiftRecord{
			ID:        fmt.Sprintf("shift-%03d", i+1),
			StoreID:   demoStoreID,
			Name:      s.name,
			Date:      &date,
			Start:     tips.ClockPtr(s.start),
			End:       tips.ClockPtr(s.end),
			Role:      s.role,
			UpdatedAt: now,
		}
		if s.blankRole {
			rec.Role = ""
		}
		rec.ImportedComplete = rec.IsComplete()
		shifts = append(shifts, rec)
	}
	if err := h.Store.SaveShifts(ctx, shifts); err != nil {
		return err
	}

	txs := make([]tips.TipTransaction, 0, len(seed.tips))
	for i, t := range seed.tips {
		txs = append(txs, tips.TipTransaction{
			ID:          fmt.Sprintf("tip-%03d", i+1),
			StoreID:     demoStoreID,
			Date:        start.AddDate(0, 0, t.day),
			PaymentTime: tips.ClockPtr(t.at),
			Amount:      decimal.RequireFromString(t.amount),
		})
	}
	if err := h.Store.SaveTipTransactions(ctx, txs); err != nil {
		return err
	}

	days := make([]tips.CashTipDay, 0, len(seed.cash))
	for day, amount := range seed.cash {
		date := start.AddDate(0, 0, day)
		days = append(days, tips.CashTipDay{
			ID:      demoStoreID + "/" + tips.FormatDate(date),
			StoreID: demoStoreID,
			Date:    date,
			Amount:  decimal.RequireFromString(amount),
		})
	}
	return h.Store.SaveCashTipDays(ctx, days)
}

// loadCleanWeekScenario: every tip lands inside a covered, configured pattern.
func (h *Handler) loadCleanWeekScenario(ctx context.Context) error {
	if err := h.saveDemoStore(ctx, "23:00"); err != nil {
		return err
	}
	seed := demoSeed{cash: map[int]string{}}
	for day := 0; day < 7; day++ {
		seed.shifts = append(seed.shifts,
			demoShift{day: day, name: "Ana", role: "Server", start: "10:00", end: "18:00"},
			demoShift{day: day, name: "Ben", role: "Cook", start: "09:00", end: "17:00"},
			demoShift{day: day, name: "Cara", role: "Server", start: "16:00", end: "23:00"},
			demoShift{day: day, name: "Dev", role: "Busser", start: "17:00", end: "23:00"},
		)
		seed.tips = append(seed.tips,
			demoTip{day: day, at: "12:30", amount: "48.00"},
			demoTip{day: day, at: "16:45", amount: "22.50"},
			demoTip{day: day, at: "20:15", amount: "61.25"},
		)
		seed.cash[day] = "35.00"
	}
	return h.saveSeed(ctx, seed)
}

// loadLateNightScenario: an overnight shift, a tip after midnight inside the
// window, a tip before opening, and a shift row with no role.
func (h *Handler) loadLateNightScenario(ctx context.Context) error {
	if err := h.saveDemoStore(ctx, "02:00"); err != nil {
		return err
	}
	seed := demoSeed{
		shifts: []demoShift{
			{day: 0, name: "Ana", role: "Server", start: "17:00", end: "01:30"},
			{day: 0, name: "Ben", role: "Cook", start: "16:00", end: "00:00"},
			{day: 1, name: "Ana", role: "Server", start: "17:00", end: "01:30"},
			{day: 1, name: "Eli", role: "Cook", start: "16:00", end: "00:00", blankRole: true},
		},
		tips: []demoTip{
			{day: 0, at: "21:00", amount: "80.00"},
			{day: 0, at: "01:10", amount: "15.00"},
			{day: 1, at: "06:40", amount: "12.00"},
			{day: 1, at: "22:30", amount: "40.00"},
		},
		cash: map[int]string{0: "20.00"},
	}
	return h.saveSeed(ctx, seed)
}

// loadTraineeFloorScenario: the trainee receives half of a full server's share.
func (h *Handler) loadTraineeFloorScenario(ctx context.Context) error {
	if err := h.saveDemoStore(ctx, "23:00"); err != nil {
		return err
	}
	seed := demoSeed{
		shifts: []demoShift{
			{day: 2, name: "Ana", role: "Server", start: "10:00", end: "18:00"},
			{day: 2, name: "Finn", role: "Server Trainee", start: "10:00", end: "18:00"},
			{day: 2, name: "Ben", role: "Cook", start: "10:00", end: "18:00"},
		},
		tips: []demoTip{
			{day: 2, at: "13:00", amount: "90.00"},
		},
		cash: map[int]string{2: "30.00"},
	}
	return h.saveSeed(ctx, seed)
}
