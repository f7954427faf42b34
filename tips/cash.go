package tips

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CashPolicy decides who shares a day's cash pool and with what weight.
// The pattern is always resolved from the whole day's coverage; the policy
// only shapes the roster.
type CashPolicy interface {
	Name() string
	Roster(intervals []Interval, statuses TipStatuses) Roster
}

// DayRoster treats everyone with a complete shift that day alike: weight is
// governed by role group and trainee discount only, not hours worked.
type DayRoster struct{}

func (DayRoster) Name() string { return "day_roster" }

func (DayRoster) Roster(intervals []Interval, statuses TipStatuses) Roster {
	best := make(map[RoleGroup]map[string]decimal.Decimal)
	for _, iv := range intervals {
		if iv.Minutes() <= 0 || !statuses.Tipped(iv.Employee) {
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

// HoursWeighted weighs each employee by minutes worked in the group that day,
// scaled by the trainee discount.
type HoursWeighted struct{}

func (HoursWeighted) Name() string { return "hours_weighted" }

func (HoursWeighted) Roster(intervals []Interval, statuses TipStatuses) Roster {
	sum := make(map[RoleGroup]map[string]decimal.Decimal)
	for _, iv := range intervals {
		if iv.Minutes() <= 0 || !statuses.Tipped(iv.Employee) {
			continue
		}
		if sum[iv.Group] == nil {
			sum[iv.Group] = make(map[string]decimal.Decimal)
		}
		w := iv.Weight.Mul(decimal.NewFromInt(int64(iv.Minutes())))
		sum[iv.Group][iv.Employee] = sum[iv.Group][iv.Employee].Add(w)
	}
	return rosterFrom(sum)
}

// CashPolicyByName returns the named policy, or false.
func CashPolicyByName(name string) (CashPolicy, bool) {
	switch name {
	case "", DayRoster{}.Name():
		return DayRoster{}, true
	case HoursWeighted{}.Name():
		return HoursWeighted{}, true
	default:
		return nil, false
	}
}

// CashDistributor splits each day's cash total over that day's roster.
type CashDistributor struct {
	Resolver PatternResolver
	Policy   CashPolicy
	Statuses TipStatuses
}

// Distribute allocates every cash day.
func (d CashDistributor) Distribute(days []CashTipDay) PoolResult {
	out := PoolResult{Shares: make(Shares), Allocated: decimal.Zero}
	ordered := append([]CashTipDay(nil), days...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].ID < ordered[j].ID
	})

	for _, cd := range ordered {
		if cd.Amount.IsZero() {
			continue
		}
		day := Day(cd.Date)
		res := d.Resolver.OnDay(day)
		if ex, blocked := res.exceptionFor(cd.ID, day, nil); blocked {
			out.Exceptions.Add(ex)
			continue
		}
		roster := d.Policy.Roster(d.Resolver.Timeline.Intervals(day), d.Statuses)
		split := splitPool(cd.Amount, res.Pattern, roster)
		for _, g := range split.unattributable {
			out.Exceptions.Add(unattributableException(cd.ID, day, nil, res.Present, g, res.Pattern.Percentage(g)))
		}
		for name, amt := range split.shares {
			out.Shares.Add(name, amt)
		}
		out.Allocated = out.Allocated.Add(split.allocated)
	}
	return out
}
