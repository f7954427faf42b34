/*
Package factory provides JSON to Go store configuration conversion.

PURPOSE:
  Converts a store's JSON configuration (operating window, role mappings,
  distribution patterns) into tips types and validates it as a whole.
  Pattern exhaustiveness and the sum-to-100 rule are checked here, at
  configuration time, so the engine never sees an inconsistent table.

JSON SCHEMA:
  {
    "id": "store-1",
    "abbreviation": "DT",
    "name": "Downtown",
    "window": {"open": "08:00", "close": "02:00"},
    "role_mappings": [
      {"group": "FRONT", "label": "Server",
       "trainee_label": "Server Trainee", "trainee_percentage": "50"},
      {"group": "BACK", "label": "Cook"}
    ],
    "patterns": [
      {"groups": "FRONT",      "percentages": {"FRONT": "100"}},
      {"groups": "BACK",       "percentages": {"BACK": "100"}},
      {"groups": "FRONT+BACK", "percentages": {"FRONT": "70", "BACK": "30"}}
    ]
  }

  A close time earlier than the open time means the store closes after
  midnight; it is stored as close + 24h.

USAGE:
  cfg, err := factory.ParseStoreConfig(body)
  if err != nil {
      // *tips.ConfigError lists every problem
  }
  store.SaveConfig(ctx, cfg.Store, cfg.Mappings, cfg.Patterns)

SEE ALSO:
  - tips/pattern.go: PatternTable.Validate
  - tips/timeline.go: NewRoleResolver
*/
package factory

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/tip-engine/tips"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// StoreConfigJSON is the JSON representation of a store's configuration.
type StoreConfigJSON struct {
	ID           string            `json:"id"`
	Abbreviation string            `json:"abbreviation"`
	Name         string            `json:"name"`
	Window       WindowJSON        `json:"window"`
	RoleMappings []RoleMappingJSON `json:"role_mappings"`
	Patterns     []PatternJSON     `json:"patterns"`
}

// WindowJSON is the in-range window as wall-clock times.
type WindowJSON struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// RoleMappingJSON maps a standard group to its import label.
type RoleMappingJSON struct {
	Group             string          `json:"group"`
	Label             string          `json:"label"`
	TraineeLabel      string          `json:"trainee_label,omitempty"`
	TraineePercentage decimal.Decimal `json:"trainee_percentage"`
}

// PatternJSON is one on-duty combination, e.g. "FRONT+BACK".
type PatternJSON struct {
	Groups      string                     `json:"groups"`
	Percentages map[string]decimal.Decimal `json:"percentages"`
}

// StoreConfig is the validated configuration in domain types.
type StoreConfig struct {
	Store    tips.Store
	Mappings []tips.RoleMapping
	Patterns []tips.DistributionPattern
}

// =============================================================================
// PARSING
// =============================================================================

// ParseStoreConfig decodes and validates a JSON configuration.
func ParseStoreConfig(data []byte) (*StoreConfig, error) {
	var raw StoreConfigJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", tips.ErrInvalidConfig, err)
	}
	return raw.ToConfig()
}

// ToConfig converts to domain types, collecting every problem before failing.
func (j StoreConfigJSON) ToConfig() (*StoreConfig, error) {
	storeID := tips.StoreID(j.ID)
	var problems []string
	if j.ID == "" {
		problems = append(problems, "id is required")
	}

	store := tips.Store{ID: storeID, Abbreviation: j.Abbreviation, Name: j.Name}
	open, err := tips.ParseClock(j.Window.Open)
	if err != nil {
		problems = append(problems, "window.open: "+err.Error())
	}
	shut, err := tips.ParseClock(j.Window.Close)
	if err != nil {
		problems = append(problems, "window.close: "+err.Error())
	}
	if shut < open {
		shut += tips.MinutesPerDay
	}
	store.BeforeHours, store.AfterHours = open, shut
	if err := store.Window().Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	cfg := &StoreConfig{Store: store}
	for i, m := range j.RoleMappings {
		g, ok := tips.ParseRoleGroup(m.Group)
		if !ok {
			problems = append(problems, fmt.Sprintf("role_mappings[%d]: unknown group %q", i, m.Group))
			continue
		}
		cfg.Mappings = append(cfg.Mappings, tips.RoleMapping{
			StoreID:           storeID,
			Group:             g,
			Label:             m.Label,
			TraineeLabel:      m.TraineeLabel,
			TraineePercentage: m.TraineePercentage,
		})
	}

	for i, p := range j.Patterns {
		id, err := tips.ParsePatternID(p.Groups)
		if err != nil {
			problems = append(problems, fmt.Sprintf("patterns[%d]: %v", i, err))
			continue
		}
		dp := tips.DistributionPattern{StoreID: storeID, ID: id, Percentages: make(map[tips.RoleGroup]decimal.Decimal)}
		for name, pct := range p.Percentages {
			g, ok := tips.ParseRoleGroup(name)
			if !ok {
				problems = append(problems, fmt.Sprintf("patterns[%d]: unknown group %q", i, name))
				continue
			}
			dp.Percentages[g] = pct
		}
		cfg.Patterns = append(cfg.Patterns, dp)
	}
	sort.Slice(cfg.Patterns, func(a, b int) bool { return cfg.Patterns[a].ID < cfg.Patterns[b].ID })

	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, &tips.ConfigError{StoreID: storeID, Problems: problems}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the role mappings and the pattern table together.
func (c *StoreConfig) Validate() error {
	resolver, err := tips.NewRoleResolver(c.Mappings)
	if err != nil {
		return err
	}
	return tips.NewPatternTable(c.Patterns).Validate(c.Store.ID, resolver.Groups())
}

// =============================================================================
// RENDERING
// =============================================================================

// FromConfig renders domain configuration back to its JSON form.
func FromConfig(store tips.Store, mappings []tips.RoleMapping, patterns []tips.DistributionPattern) StoreConfigJSON {
	shut := store.AfterHours
	if shut > tips.MinutesPerDay {
		shut -= tips.MinutesPerDay
	}
	out := StoreConfigJSON{
		ID:           string(store.ID),
		Abbreviation: store.Abbreviation,
		Name:         store.Name,
		Window:       WindowJSON{Open: store.BeforeHours.String(), Close: shut.String()},
		RoleMappings: []RoleMappingJSON{},
		Patterns:     []PatternJSON{},
	}
	for _, m := range mappings {
		out.RoleMappings = append(out.RoleMappings, RoleMappingJSON{
			Group:             m.Group.String(),
			Label:             m.Label,
			TraineeLabel:      m.TraineeLabel,
			TraineePercentage: m.TraineePercentage,
		})
	}
	for _, p := range patterns {
		pj := PatternJSON{Groups: p.ID.String(), Percentages: make(map[string]decimal.Decimal)}
		for g, v := range p.Percentages {
			pj.Percentages[g.String()] = v
		}
		out.Patterns = append(out.Patterns, pj)
	}
	return out
}
