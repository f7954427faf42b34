/*
Package tips provides the tip attribution and distribution engine.

PURPOSE:
  Takes a store's shift schedule, point-of-sale tip transactions and pooled
  cash tips for a pay period and produces a per-employee monetary allocation.
  The engine itself is pure: every input is loaded up front, the computation
  is deterministic, and only the lifecycle controller touches persistence.

KEY CONCEPTS IN THIS FILE (types.go):
  - RoleGroup: The fixed FRONT/BACK/FLOATER taxonomy, as bit flags
  - PatternID: A bitmask over role groups (one per on-duty combination)
  - Store, RoleMapping, DistributionPattern: Per-store configuration
  - ShiftRecord, TipTransaction, CashTipDay: Normalized imported inputs
  - TipCalculation, TipCalculationResult: One pay-period run and its rows

DESIGN PRINCIPLES:
  1. Precision: All money is decimal.Decimal, rounded once per employee total
  2. Explicitness: Unmapped labels and unattributable shares are reported
  3. Determinism: Same inputs always produce the same result set

SEE ALSO:
  - timeline.go: Shift records to per-day intervals
  - pattern.go: Role presence and pattern lookup
  - engine.go: The full computation
  - lifecycle.go: processing -> completed transitions
*/
package tips

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROLE GROUPS
// =============================================================================

// RoleGroup is one of the standard groups every raw role label maps onto.
type RoleGroup uint8

const (
	RoleFront RoleGroup = 1 << iota
	RoleBack
	RoleFloater
)

// AllRoleGroups lists the groups in their canonical order.
var AllRoleGroups = []RoleGroup{RoleFront, RoleBack, RoleFloater}

func (g RoleGroup) String() string {
	switch g {
	case RoleFront:
		return "FRONT"
	case RoleBack:
		return "BACK"
	case RoleFloater:
		return "FLOATER"
	default:
		return fmt.Sprintf("RoleGroup(%d)", uint8(g))
	}
}

// ParseRoleGroup accepts the standard name in any case.
func ParseRoleGroup(s string) (RoleGroup, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FRONT":
		return RoleFront, true
	case "BACK":
		return RoleBack, true
	case "FLOATER":
		return RoleFloater, true
	default:
		return 0, false
	}
}

// =============================================================================
// PATTERN ID - bitmask over role groups
// =============================================================================

// PatternID identifies a combination of role groups simultaneously on duty.
// The zero value is the empty combination and is never attributed.
type PatternID uint8

// PatternOf builds the pattern id for the given groups.
func PatternOf(groups ...RoleGroup) PatternID {
	var p PatternID
	for _, g := range groups {
		p |= PatternID(g)
	}
	return p
}

func (p PatternID) Has(g RoleGroup) bool { return p&PatternID(g) != 0 }
func (p PatternID) IsEmpty() bool        { return p == 0 }
func (p PatternID) With(g RoleGroup) PatternID {
	return p | PatternID(g)
}

// Groups returns the member groups in canonical order.
func (p PatternID) Groups() []RoleGroup {
	var out []RoleGroup
	for _, g := range AllRoleGroups {
		if p.Has(g) {
			out = append(out, g)
		}
	}
	return out
}

func (p PatternID) String() string {
	if p == 0 {
		return "NONE"
	}
	names := make([]string, 0, 3)
	for _, g := range p.Groups() {
		names = append(names, g.String())
	}
	return strings.Join(names, "+")
}

// ParsePatternID parses "FRONT+BACK" style names.
func ParsePatternID(s string) (PatternID, error) {
	var p PatternID
	for _, part := range strings.Split(s, "+") {
		g, ok := ParseRoleGroup(part)
		if !ok {
			return 0, fmt.Errorf("unknown role group %q in pattern %q", part, s)
		}
		p = p.With(g)
	}
	return p, nil
}

// Subsets returns every non-empty subset of p, smallest id first.
func (p PatternID) Subsets() []PatternID {
	var out []PatternID
	for sub := p; sub != 0; sub = (sub - 1) & p {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StoreID string
type CalculationID string
type ResultID string

// =============================================================================
// CONFIGURATION
// =============================================================================

// Store carries the operating window used to trust payment times.
type Store struct {
	ID           StoreID
	Abbreviation string
	Name         string
	BeforeHours  Clock // window opens at dayStart + BeforeHours
	AfterHours   Clock // window closes at dayStart + AfterHours (exclusive)
}

// Window returns the store's in-range window.
func (s Store) Window() OperatingWindow {
	return OperatingWindow{Open: s.BeforeHours, Close: s.AfterHours}
}

// RoleMapping maps a standard group to the literal label used in imports.
type RoleMapping struct {
	StoreID           StoreID
	Group             RoleGroup
	Label             string
	TraineeLabel      string          // optional
	TraineePercentage decimal.Decimal // 0-100, weight of a trainee relative to a full-rate peer
}

// DistributionPattern is the percentage split for one on-duty combination.
type DistributionPattern struct {
	StoreID     StoreID
	ID          PatternID
	Percentages map[RoleGroup]decimal.Decimal
}

// Percentage returns the configured percentage for g, zero when absent.
func (p DistributionPattern) Percentage(g RoleGroup) decimal.Decimal {
	if pct, ok := p.Percentages[g]; ok {
		return pct
	}
	return decimal.Zero
}

// =============================================================================
// INPUTS
// =============================================================================

// ShiftRecord is one employee's scheduled interval as imported or edited.
// Optional fields are nil/empty when the import left them blank.
type ShiftRecord struct {
	ID               string
	StoreID          StoreID
	Name             string
	Date             *time.Time
	Start            *Clock
	End              *Clock
	Role             string
	ImportedComplete bool // complete at import time, false when completed by a later edit
	UpdatedAt        time.Time
}

// IsComplete is computed from the fields on every call, never cached.
func (s ShiftRecord) IsComplete() bool {
	return strings.TrimSpace(s.Name) != "" &&
		s.Date != nil && !s.Date.IsZero() &&
		s.Start != nil && s.End != nil &&
		strings.TrimSpace(s.Role) != ""
}

// MissingFields names the empty fields of an incomplete record.
func (s ShiftRecord) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(s.Name) == "" {
		missing = append(missing, "name")
	}
	if s.Date == nil || s.Date.IsZero() {
		missing = append(missing, "date")
	}
	if s.Start == nil {
		missing = append(missing, "start")
	}
	if s.End == nil {
		missing = append(missing, "end")
	}
	if strings.TrimSpace(s.Role) == "" {
		missing = append(missing, "role")
	}
	return missing
}

// TipTransaction is one point-of-sale tip event.
type TipTransaction struct {
	ID                  string
	StoreID             StoreID
	Date                time.Time
	PaymentTime         *Clock // nil until corrected
	Amount              decimal.Decimal
	Adjusted            bool   // payment time was edited after being out of range
	OriginalPaymentTime *Clock // first imported payment time, kept for audit
}

// CorrectPaymentTime records a manual correction, keeping the first original value.
func (t *TipTransaction) CorrectPaymentTime(at Clock) {
	if !t.Adjusted {
		t.OriginalPaymentTime = t.PaymentTime
	}
	c := at
	t.PaymentTime = &c
	t.Adjusted = true
}

// CashTipDay is the aggregate cash amount for a date.
type CashTipDay struct {
	ID      string
	StoreID StoreID
	Date    time.Time
	Amount  decimal.Decimal
}

// EmployeeTipStatus marks whether an employee takes part in pooled distribution.
type EmployeeTipStatus struct {
	CalculationID CalculationID
	Employee      string
	Tipped        bool
}

// =============================================================================
// CALCULATIONS
// =============================================================================

type CalculationStatus string

const (
	StatusProcessing CalculationStatus = "processing"
	StatusCompleted  CalculationStatus = "completed"
)

// TipCalculation is one pay-period run for a store.
type TipCalculation struct {
	ID          CalculationID
	StoreID     StoreID
	Period      Period
	Status      CalculationStatus
	CreatedBy   string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// TipCalculationResult is one employee's row in a calculation.
type TipCalculationResult struct {
	ID            ResultID
	CalculationID CalculationID
	Employee      string
	Tips          decimal.Decimal
	CashTips      decimal.Decimal
	Archived      bool
	Version       int
	UpdatedAt     time.Time
	UpdatedBy     string
}

// Total returns tips plus cash tips.
func (r TipCalculationResult) Total() decimal.Decimal {
	return r.Tips.Add(r.CashTips)
}

// ResultAction names a post-completion operation on a result row.
type ResultAction string

const (
	ResultEdited   ResultAction = "edited"
	ResultArchived ResultAction = "archived"
	ResultDeleted  ResultAction = "deleted"
)

// ResultAudit records who changed a result row and what it held before.
type ResultAudit struct {
	ID        string
	ResultID  ResultID
	Action    ResultAction
	Actor     string
	Previous  TipCalculationResult
	Current   *TipCalculationResult // nil after a delete
	Timestamp time.Time
}
