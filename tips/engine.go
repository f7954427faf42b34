package tips

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrencyPlaces is cents.
const DefaultCurrencyPlaces int32 = 2

// Input is everything a run needs, fetched up front.
type Input struct {
	Store        Store
	Period       Period
	Mappings     []RoleMapping
	Patterns     []DistributionPattern
	Shifts       []ShiftRecord
	Transactions []TipTransaction
	CashDays     []CashTipDay
	Statuses     []EmployeeTipStatus
}

// Allocation is one employee's rounded totals.
type Allocation struct {
	Employee string
	Tips     decimal.Decimal
	CashTips decimal.Decimal
}

// Output is the result of a run.
type Output struct {
	Allocations []Allocation
	TipPool     decimal.Decimal
	CashPool    decimal.Decimal
	Exceptions  ExceptionReport
}

// Engine computes allocations. It performs no I/O.
type Engine struct {
	CashPolicy CashPolicy
	TieBreak   TieBreaker
	Places     int32
}

// NewEngine returns an engine with day-roster cash, name-ascending ties and cents.
func NewEngine() *Engine {
	return &Engine{CashPolicy: DayRoster{}, TieBreak: NameAscending, Places: DefaultCurrencyPlaces}
}

// Run performs one deterministic computation. Fatal conditions (unmapped role,
// invalid window, rounding imbalance) return an error and no output; all
// recoverable conditions are reported in Output.Exceptions.
func (e *Engine) Run(in Input) (*Output, error) {
	window := in.Store.Window()
	if err := window.Validate(); err != nil {
		return nil, err
	}
	resolver, err := NewRoleResolver(in.Mappings)
	if err != nil {
		return nil, err
	}

	shifts := make([]ShiftRecord, 0, len(in.Shifts))
	for _, s := range in.Shifts {
		if s.Date != nil && !in.Period.Contains(*s.Date) {
			continue
		}
		shifts = append(shifts, s)
	}
	timeline, err := BuildTimeline(in.Store.ID, shifts, resolver)
	if err != nil {
		return nil, err
	}

	var report ExceptionReport
	report.Merge(timeline.IncompleteExceptions())

	txs := make([]TipTransaction, 0, len(in.Transactions))
	for _, tx := range in.Transactions {
		if in.Period.Contains(tx.Date) {
			txs = append(txs, tx)
		}
	}
	cleared, filtered := FilterTransactions(window, txs)
	report.Merge(filtered)

	cash := make([]CashTipDay, 0, len(in.CashDays))
	for _, cd := range in.CashDays {
		if in.Period.Contains(cd.Date) {
			cash = append(cash, cd)
		}
	}

	statuses := NewTipStatuses(in.Statuses)
	patterns := PatternResolver{Timeline: timeline, Patterns: NewPatternTable(in.Patterns)}

	tipResult := Attributor{Resolver: patterns, Statuses: statuses}.Attribute(cleared)
	report.Merge(tipResult.Exceptions)

	policy := e.CashPolicy
	if policy == nil {
		policy = DayRoster{}
	}
	cashResult := CashDistributor{Resolver: patterns, Policy: policy, Statuses: statuses}.Distribute(cash)
	report.Merge(cashResult.Exceptions)

	rounder := Rounder{Places: e.Places, TieBreak: e.TieBreak}
	tips, tipPool, err := rounder.Allocate("tips", tipResult.Shares, tipResult.Allocated)
	if err != nil {
		return nil, err
	}
	cashTips, cashPool, err := rounder.Allocate("cash", cashResult.Shares, cashResult.Allocated)
	if err != nil {
		return nil, err
	}

	names := make(map[string]bool)
	for _, n := range timeline.Employees() {
		names[n] = true
	}
	for n := range tips {
		names[n] = true
	}
	for n := range cashTips {
		names[n] = true
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	zero := decimal.New(0, -e.Places)
	out := &Output{TipPool: tipPool, CashPool: cashPool, Exceptions: report}
	for _, n := range sorted {
		a := Allocation{Employee: n, Tips: zero, CashTips: zero}
		if v, ok := tips[n]; ok {
			a.Tips = v
		}
		if v, ok := cashTips[n]; ok {
			a.CashTips = v
		}
		out.Allocations = append(out.Allocations, a)
	}
	out.Exceptions.Sort()
	return out, nil
}

// Results converts the allocations into result rows for a calculation.
func (o *Output) Results(calcID CalculationID, idFor func(CalculationID, string) ResultID, at time.Time, actor string) []TipCalculationResult {
	rows := make([]TipCalculationResult, 0, len(o.Allocations))
	for _, a := range o.Allocations {
		rows = append(rows, TipCalculationResult{
			ID:            idFor(calcID, a.Employee),
			CalculationID: calcID,
			Employee:      a.Employee,
			Tips:          a.Tips,
			CashTips:      a.CashTips,
			Version:       1,
			UpdatedAt:     at,
			UpdatedBy:     actor,
		})
	}
	return rows
}
