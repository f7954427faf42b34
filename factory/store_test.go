package factory_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/tip-engine/factory"
	"github.com/warp/tip-engine/tips"
)

const downtownJSON = `{
	"id": "store-1",
	"abbreviation": "DT",
	"name": "Downtown",
	"window": {"open": "08:00", "close": "02:00"},
	"role_mappings": [
		{"group": "FRONT", "label": "Server", "trainee_label": "Server Trainee", "trainee_percentage": "50"},
		{"group": "BACK", "label": "Cook", "trainee_percentage": 0}
	],
	"patterns": [
		{"groups": "FRONT+BACK", "percentages": {"FRONT": "70", "BACK": "30"}},
		{"groups": "FRONT", "percentages": {"FRONT": "100"}},
		{"groups": "BACK", "percentages": {"BACK": "100"}}
	]
}`

func TestParseStoreConfig_Valid(t *testing.T) {
	// GIVEN: A complete configuration closing after midnight
	// WHEN: Parsing it
	// THEN: The window wraps to 26:00 and patterns are ordered by id

	cfg, err := factory.ParseStoreConfig([]byte(downtownJSON))
	require.NoError(t, err)

	assert.Equal(t, tips.MustParseClock("08:00"), cfg.Store.BeforeHours)
	assert.Equal(t, tips.MustParseClock("26:00"), cfg.Store.AfterHours)
	require.Len(t, cfg.Mappings, 2)
	assert.Equal(t, "50", cfg.Mappings[0].TraineePercentage.String())
	require.Len(t, cfg.Patterns, 3)
	assert.Equal(t, tips.PatternOf(tips.RoleFront), cfg.Patterns[0].ID)
	assert.Equal(t, tips.PatternOf(tips.RoleFront, tips.RoleBack), cfg.Patterns[2].ID)
}

func TestParseStoreConfig_MissingPatternRejected(t *testing.T) {
	// GIVEN: FRONT and BACK are mapped but the BACK-only pattern is missing
	// WHEN: Parsing
	// THEN: A ConfigError names the missing combination

	var raw factory.StoreConfigJSON
	require.NoError(t, json.Unmarshal([]byte(downtownJSON), &raw))
	raw.Patterns = raw.Patterns[:2]

	_, err := raw.ToConfig()
	require.ErrorIs(t, err, tips.ErrInvalidConfig)

	var cfgErr *tips.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Problems, "missing pattern BACK")
}

func TestParseStoreConfig_CollectsEveryProblem(t *testing.T) {
	raw := factory.StoreConfigJSON{
		ID:     "store-1",
		Window: factory.WindowJSON{Open: "25:99", Close: "10:00"},
		RoleMappings: []factory.RoleMappingJSON{
			{Group: "HOST", Label: "Host"},
		},
		Patterns: []factory.PatternJSON{{Groups: "FRONT+HOST"}},
	}

	_, err := raw.ToConfig()
	var cfgErr *tips.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.GreaterOrEqual(t, len(cfgErr.Problems), 3)
}

func TestParseStoreConfig_MalformedJSON(t *testing.T) {
	_, err := factory.ParseStoreConfig([]byte(`{"id": `))
	assert.ErrorIs(t, err, tips.ErrInvalidConfig)
}

func TestFromConfig_RoundTrip(t *testing.T) {
	cfg, err := factory.ParseStoreConfig([]byte(downtownJSON))
	require.NoError(t, err)

	rendered := factory.FromConfig(cfg.Store, cfg.Mappings, cfg.Patterns)
	assert.Equal(t, "02:00", rendered.Window.Close)

	again, err := rendered.ToConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg.Store, again.Store)
	assert.Len(t, again.Patterns, 3)
}
