/*
attribution.go - Splitting a tip across role groups and employees

PURPOSE:
  For each in-range transaction, resolve the on-duty pattern at its payment
  instant, split the amount by the pattern's percentages, then subdivide each
  group's share across the tipped employees on duty in that group.

WEIGHTING:
  Full-rate employees weigh 1. Trainees weigh trainee% / 100. Weights are
  normalized within the group so the group's share is fully allocated.

  Example: $30.00 to FRONT, one full-rate (1.0) and one 50% trainee (0.5):
    full-rate: 30 * 1.0 / 1.5 = $20.00
    trainee:   30 * 0.5 / 1.5 = $10.00

UNATTRIBUTABLE SHARES:
  A group with a nonzero percentage and no eligible employee (nobody tipped on
  duty, or only zero-weight trainees) keeps its share out of the pool and
  raises an ExceptionUnattributableShare.

SEE ALSO:
  - cash.go: Same split at day granularity
  - rounding.go: Exact shares to currency units
*/
package tips

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// divisionPlaces bounds the precision of weight normalization. Every member's
// portion is rounded on its own so equal weights always yield equal portions.
// The residue against the group share stays below 10^-divisionPlaces per
// member and is settled by the rounder.
const divisionPlaces = 20

// =============================================================================
// SHARES
// =============================================================================

// Shares accumulates exact per-employee amounts.
type Shares map[string]decimal.Decimal

func (s Shares) Add(employee string, amount decimal.Decimal) {
	s[employee] = s[employee].Add(amount)
}

// Sum returns the total of all shares.
func (s Shares) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range s {
		total = total.Add(v)
	}
	return total
}

// Member is an employee eligible for part of a group share.
type Member struct {
	Employee string
	Weight   decimal.Decimal
}

// Roster is the eligible members per group.
type Roster map[RoleGroup][]Member

// TipStatuses answers whether an employee takes part in pooled distribution.
// Employees without an entry participate.
type TipStatuses map[string]bool

// NewTipStatuses indexes per-calculation statuses by employee name.
func NewTipStatuses(statuses []EmployeeTipStatus) TipStatuses {
	s := make(TipStatuses, len(statuses))
	for _, st := range statuses {
		s[st.Employee] = st.Tipped
	}
	return s
}

func (s TipStatuses) Tipped(employee string) bool {
	v, ok := s[employee]
	return !ok || v
}

// =============================================================================
// SPLIT
// =============================================================================

// splitResult is the allocation of one pool amount.
type splitResult struct {
	shares         Shares
	allocated      decimal.Decimal
	unattributable []RoleGroup
}

// splitPool divides amount by the pattern and subdivides each group share.
func splitPool(amount decimal.Decimal, pattern DistributionPattern, roster Roster) splitResult {
	res := splitResult{shares: make(Shares), allocated: decimal.Zero}
	for _, g := range pattern.ID.Groups() {
		pct := pattern.Percentage(g)
		if pct.IsZero() {
			continue
		}
		share := amount.Mul(pct.Shift(-2))
		members := roster[g]
		totalWeight := decimal.Zero
		for _, m := range members {
			totalWeight = totalWeight.Add(m.Weight)
		}
		if len(members) == 0 || !totalWeight.IsPositive() {
			res.unattributable = append(res.unattributable, g)
			continue
		}
		for _, m := range members {
			res.shares.Add(m.Employee, share.Mul(m.Weight).DivRound(totalWeight, divisionPlaces))
		}
		res.allocated = res.allocated.Add(share)
	}
	return res
}

// rosterAt collects the tipped employees covering t, one entry per employee
// per group. An employee on two overlapping shifts of one group keeps the
// higher weight.
func rosterAt(intervals []Interval, t Clock, tipped TipStatuses) Roster {
	best := make(map[RoleGroup]map[string]decimal.Decimal)
	for _, iv := range intervals {
		if !iv.Covers(t) || !tipped.Tipped(iv.Employee) {
			continue
		}
		if best[iv.Group] == nil {
			best[iv.Group] = make(map[string]decimal.Decimal)
		}
		if w, ok := best[iv.Group][iv.Employee]; !ok || iv.Weight.GreaterThan(w) {
			best[iv.Group][iv.Employee] = iv.Weight
		}
	}
	return rosterFrom(best)
}

// rosterFrom flattens per-group weights into name-sorted member lists.
func rosterFrom(weights map[RoleGroup]map[string]decimal.Decimal) Roster {
	roster := make(Roster, len(weights))
	for g, byName := range weights {
		members := make([]Member, 0, len(byName))
		for name, w := range byName {
			members = append(members, Member{Employee: name, Weight: w})
		}
		sort.Slice(members, func(i, j int) bool { return members[i].Employee < members[j].Employee })
		roster[g] = members
	}
	return roster
}

func unattributableException(recordID string, day time.Time, at *Clock, pattern PatternID, g RoleGroup, pct decimal.Decimal) Exception {
	return Exception{
		Kind:     ExceptionUnattributableShare,
		RecordID: recordID,
		Date:     day,
		At:       at,
		Pattern:  pattern,
		Group:    g,
		Message:  fmt.Sprintf("pattern %s gives %s %s%% but no eligible employee is on duty", pattern, g, pct),
	}
}

// =============================================================================
// ATTRIBUTOR
// =============================================================================

// PoolResult is the exact outcome of distributing one pool.
type PoolResult struct {
	Shares     Shares
	Allocated  decimal.Decimal
	Exceptions ExceptionReport
}

// Attributor attributes point-of-sale tips at their payment instant.
type Attributor struct {
	Resolver PatternResolver
	Statuses TipStatuses
}

// Attribute distributes every cleared transaction.
func (a Attributor) Attribute(txs []InRangeTransaction) PoolResult {
	out := PoolResult{Shares: make(Shares), Allocated: decimal.Zero}
	for _, tx := range txs {
		day := Day(tx.Date)
		at := tx.Instant
		res := a.Resolver.At(day, at)
		if ex, blocked := res.exceptionFor(tx.ID, day, &at); blocked {
			out.Exceptions.Add(ex)
			continue
		}
		roster := rosterAt(a.Resolver.Timeline.Intervals(day), at, a.Statuses)
		split := splitPool(tx.Amount, res.Pattern, roster)
		for _, g := range split.unattributable {
			out.Exceptions.Add(unattributableException(tx.ID, day, &at, res.Present, g, res.Pattern.Percentage(g)))
		}
		for name, amt := range split.shares {
			out.Shares.Add(name, amt)
		}
		out.Allocated = out.Allocated.Add(split.allocated)
	}
	return out
}
