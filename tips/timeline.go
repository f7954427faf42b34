/*
timeline.go - Shift records to per-day role intervals

PURPOSE:
  Turns the raw shift records of a pay period into per-date lists of
  [start, end) intervals, each tagged with the employee and the resolved
  standard role group. Incomplete records are set aside for the exception
  surface and never take part in attribution.

ROLE RESOLUTION:
  Raw labels are resolved through an explicit lookup table built from the
  store's RoleMappings. Standard names (FRONT/BACK/FLOATER) are accepted for
  groups the store has mapped. Anything else is an unmapped label, which
  aborts the run with an UnmappedRoleError listing every offending label.

OVERNIGHT SHIFTS:
  An end time earlier than the start time means the shift crosses midnight;
  the interval end is moved into the next day (end + 24h) on the same
  business date.
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
// ROLE RESOLVER
// =============================================================================

var hundred = decimal.NewFromInt(100)

// RoleAssignment is the resolved meaning of a raw role label.
type RoleAssignment struct {
	Group   RoleGroup
	Trainee bool
}

// RoleResolver is the total lookup table from role labels to groups.
type RoleResolver struct {
	labels         map[string]RoleAssignment
	traineeWeights map[RoleGroup]decimal.Decimal
	groups         PatternID
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NewRoleResolver builds the lookup table. It rejects two mappings for the
// same group and a label claimed by more than one group.
func NewRoleResolver(mappings []RoleMapping) (*RoleResolver, error) {
	r := &RoleResolver{
		labels:         make(map[string]RoleAssignment),
		traineeWeights: make(map[RoleGroup]decimal.Decimal),
	}
	var problems []string
	var storeID StoreID

	claim := func(label string, a RoleAssignment) {
		key := normalizeLabel(label)
		if key == "" {
			return
		}
		if prev, ok := r.labels[key]; ok && prev != a {
			problems = append(problems, fmt.Sprintf("label %q mapped to both %s and %s", label, prev.Group, a.Group))
			return
		}
		r.labels[key] = a
	}

	for _, m := range mappings {
		storeID = m.StoreID
		if r.groups.Has(m.Group) {
			problems = append(problems, fmt.Sprintf("more than one mapping for %s", m.Group))
			continue
		}
		if strings.TrimSpace(m.Label) == "" {
			problems = append(problems, fmt.Sprintf("empty label for %s", m.Group))
			continue
		}
		pct := m.TraineePercentage
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			problems = append(problems, fmt.Sprintf("trainee percentage %s for %s outside 0-100", pct, m.Group))
			continue
		}
		r.groups = r.groups.With(m.Group)
		r.traineeWeights[m.Group] = pct.Div(hundred)
		claim(m.Label, RoleAssignment{Group: m.Group})
		if m.TraineeLabel != "" {
			claim(m.TraineeLabel, RoleAssignment{Group: m.Group, Trainee: true})
		}
	}

	for _, g := range r.groups.Groups() {
		key := normalizeLabel(g.String())
		if _, ok := r.labels[key]; !ok {
			r.labels[key] = RoleAssignment{Group: g}
		}
	}

	if len(problems) > 0 {
		return nil, &ConfigError{StoreID: storeID, Problems: problems}
	}
	return r, nil
}

// Resolve maps a raw label onto its group.
func (r *RoleResolver) Resolve(label string) (RoleAssignment, bool) {
	a, ok := r.labels[normalizeLabel(label)]
	return a, ok
}

// Weight returns 1 for a full-rate employee and trainee% / 100 for a trainee.
func (r *RoleResolver) Weight(a RoleAssignment) decimal.Decimal {
	if !a.Trainee {
		return decimal.NewFromInt(1)
	}
	return r.traineeWeights[a.Group]
}

// Groups returns the set of mapped groups.
func (r *RoleResolver) Groups() PatternID { return r.groups }

// =============================================================================
// TIMELINE
// =============================================================================

// Interval is one complete shift on its business date.
type Interval struct {
	ShiftID  string
	Employee string
	Group    RoleGroup
	Trainee  bool
	Weight   decimal.Decimal
	Start    Clock
	End      Clock // exclusive, may exceed MinutesPerDay
}

// Covers reports whether t lies in [Start, End). An instant in the
// after-midnight tail (t >= MinutesPerDay) is also covered by a shift written
// with early-morning wall-clock times on the same business date.
func (iv Interval) Covers(t Clock) bool {
	if iv.Start <= t && t < iv.End {
		return true
	}
	if t >= MinutesPerDay && iv.End <= MinutesPerDay {
		w := t - MinutesPerDay
		return iv.Start <= w && w < iv.End
	}
	return false
}

// Minutes returns the interval length.
func (iv Interval) Minutes() int { return int(iv.End - iv.Start) }

// Timeline holds the complete intervals of a period, keyed by date.
type Timeline struct {
	Days       map[time.Time][]Interval
	Incomplete []ShiftRecord
}

// Intervals returns the intervals on a date.
func (t *Timeline) Intervals(day time.Time) []Interval {
	return t.Days[Day(day)]
}

// Dates returns the dates with at least one interval, ascending.
func (t *Timeline) Dates() []time.Time {
	dates := make([]time.Time, 0, len(t.Days))
	for d := range t.Days {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Employees returns every employee with a complete shift, sorted by name.
func (t *Timeline) Employees() []string {
	seen := make(map[string]bool)
	var names []string
	for _, ivs := range t.Days {
		for _, iv := range ivs {
			if !seen[iv.Employee] {
				seen[iv.Employee] = true
				names = append(names, iv.Employee)
			}
		}
	}
	sort.Strings(names)
	return names
}

// BuildTimeline resolves every complete record into an interval. Unmapped
// labels are collected across the whole input and reported together.
func BuildTimeline(storeID StoreID, shifts []ShiftRecord, resolver *RoleResolver) (*Timeline, error) {
	tl := &Timeline{Days: make(map[time.Time][]Interval)}
	unmapped := make(map[string]bool)

	for _, s := range shifts {
		if !s.IsComplete() {
			tl.Incomplete = append(tl.Incomplete, s)
			continue
		}
		role, ok := resolver.Resolve(s.Role)
		if !ok {
			unmapped[strings.TrimSpace(s.Role)] = true
			continue
		}
		start, end := *s.Start, *s.End
		if end < start {
			end += MinutesPerDay
		}
		day := Day(*s.Date)
		tl.Days[day] = append(tl.Days[day], Interval{
			ShiftID:  s.ID,
			Employee: strings.TrimSpace(s.Name),
			Group:    role.Group,
			Trainee:  role.Trainee,
			Weight:   resolver.Weight(role),
			Start:    start,
			End:      end,
		})
	}

	if len(unmapped) > 0 {
		labels := make([]string, 0, len(unmapped))
		for l := range unmapped {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		return nil, &UnmappedRoleError{StoreID: storeID, Labels: labels}
	}

	for day, ivs := range tl.Days {
		sort.Slice(ivs, func(i, j int) bool {
			if ivs[i].Start != ivs[j].Start {
				return ivs[i].Start < ivs[j].Start
			}
			if ivs[i].Employee != ivs[j].Employee {
				return ivs[i].Employee < ivs[j].Employee
			}
			return ivs[i].ShiftID < ivs[j].ShiftID
		})
		tl.Days[day] = ivs
	}
	sort.Slice(tl.Incomplete, func(i, j int) bool { return tl.Incomplete[i].ID < tl.Incomplete[j].ID })
	return tl, nil
}

// IncompleteExceptions turns the set-aside records into report entries.
func (t *Timeline) IncompleteExceptions() ExceptionReport {
	var r ExceptionReport
	for _, s := range t.Incomplete {
		e := Exception{
			Kind:     ExceptionIncompleteShift,
			RecordID: s.ID,
			Message:  fmt.Sprintf("shift for %q missing %s", s.Name, strings.Join(s.MissingFields(), ", ")),
		}
		if s.Date != nil {
			e.Date = Day(*s.Date)
		}
		r.Add(e)
	}
	return r
}
