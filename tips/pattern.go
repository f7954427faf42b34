package tips

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PATTERN TABLE - O(1) lookup by bitmask
// =============================================================================

// PatternTable holds a store's distribution patterns keyed by PatternID.
type PatternTable struct {
	patterns map[PatternID]DistributionPattern
}

// NewPatternTable indexes the patterns. It does not validate them; that
// happens at configuration time via Validate.
func NewPatternTable(patterns []DistributionPattern) PatternTable {
	t := PatternTable{patterns: make(map[PatternID]DistributionPattern, len(patterns))}
	for _, p := range patterns {
		t.patterns[p.ID] = p
	}
	return t
}

// Lookup returns the pattern for an on-duty combination.
func (t PatternTable) Lookup(id PatternID) (DistributionPattern, bool) {
	if id.IsEmpty() {
		return DistributionPattern{}, false
	}
	p, ok := t.patterns[id]
	return p, ok
}

// Validate checks that every non-empty subset of the configured groups has a
// pattern, that present groups sum to exactly 100, that absent groups are 0,
// and that no pattern references an unconfigured group.
func (t PatternTable) Validate(storeID StoreID, configured PatternID) error {
	var problems []string
	if configured.IsEmpty() {
		problems = append(problems, "no role groups mapped")
	}
	for _, id := range configured.Subsets() {
		if _, ok := t.patterns[id]; !ok {
			problems = append(problems, fmt.Sprintf("missing pattern %s", id))
		}
	}
	for _, id := range sortedPatternIDs(t.patterns) {
		p := t.patterns[id]
		if id.IsEmpty() {
			problems = append(problems, "empty pattern is not allowed")
			continue
		}
		if id&^configured != 0 {
			problems = append(problems, fmt.Sprintf("pattern %s uses unmapped role group", id))
			continue
		}
		if len(p.Percentages) > len(AllRoleGroups) {
			problems = append(problems, fmt.Sprintf("pattern %s: unknown role group in percentages", id))
		}
		sum := decimal.Zero
		for _, g := range AllRoleGroups {
			pct := p.Percentage(g)
			if pct.IsNegative() {
				problems = append(problems, fmt.Sprintf("pattern %s: negative percentage for %s", id, g))
			}
			if !id.Has(g) && !pct.IsZero() {
				problems = append(problems, fmt.Sprintf("pattern %s: %s is absent but has %s%%", id, g, pct))
			}
			sum = sum.Add(pct)
		}
		if !sum.Equal(hundred) {
			problems = append(problems, fmt.Sprintf("pattern %s: percentages sum to %s, want 100", id, sum))
		}
	}
	if len(problems) > 0 {
		return &ConfigError{StoreID: storeID, Problems: problems}
	}
	return nil
}

func sortedPatternIDs(m map[PatternID]DistributionPattern) []PatternID {
	ids := make([]PatternID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// =============================================================================
// PRESENCE RESOLVER
// =============================================================================

// PresenceAt returns the set of groups with at least one interval covering t.
// Several employees of one group still count once.
func PresenceAt(intervals []Interval, t Clock) PatternID {
	var p PatternID
	for _, iv := range intervals {
		if iv.Covers(t) {
			p = p.With(iv.Group)
		}
	}
	return p
}

// PresenceOnDay returns the groups with any coverage on the day.
func PresenceOnDay(intervals []Interval) PatternID {
	var p PatternID
	for _, iv := range intervals {
		if iv.Minutes() > 0 {
			p = p.With(iv.Group)
		}
	}
	return p
}

// PatternResolver maps an instant on a date to the store's pattern.
type PatternResolver struct {
	Timeline *Timeline
	Patterns PatternTable
}

// Resolution is the outcome of resolving one instant or day.
type Resolution struct {
	Present PatternID
	Pattern DistributionPattern
	Found   bool
}

// At resolves the pattern for an instant.
func (r PatternResolver) At(day time.Time, t Clock) Resolution {
	return r.resolve(PresenceAt(r.Timeline.Intervals(day), t))
}

// OnDay resolves the pattern for a whole day's roster.
func (r PatternResolver) OnDay(day time.Time) Resolution {
	return r.resolve(PresenceOnDay(r.Timeline.Intervals(day)))
}

func (r PatternResolver) resolve(present PatternID) Resolution {
	p, ok := r.Patterns.Lookup(present)
	return Resolution{Present: present, Pattern: p, Found: ok}
}

// exceptionFor converts an unresolved resolution into an exception.
// It returns false when the resolution is usable.
func (res Resolution) exceptionFor(recordID string, day time.Time, at *Clock) (Exception, bool) {
	if res.Present.IsEmpty() {
		return Exception{
			Kind:     ExceptionNoCoverage,
			RecordID: recordID,
			Date:     day,
			At:       at,
			Message:  "no complete shift on duty",
		}, true
	}
	if !res.Found {
		return Exception{
			Kind:     ExceptionMissingPattern,
			RecordID: recordID,
			Date:     day,
			At:       at,
			Pattern:  res.Present,
			Message:  fmt.Sprintf("no distribution pattern configured for %s", res.Present),
		}, true
	}
	return Exception{}, false
}
