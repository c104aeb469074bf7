package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hegemon/internal/config"
	"github.com/talgya/hegemon/internal/demands"
	"github.com/talgya/hegemon/internal/organization"
	"github.com/talgya/hegemon/internal/vassal"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "data/hegemon.db", cfg.DBPath)
	assert.Equal(t, 8080, cfg.APIPort)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, "normal", cfg.Difficulty)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HEGEMON_API_PORT", "9090")
	t.Setenv("HEGEMON_TICK_INTERVAL", "250ms")
	t.Setenv("HEGEMON_LOG_LEVEL", "debug")
	t.Setenv("HEGEMON_DIFFICULTY", "hard")
	t.Setenv("CORS_ORIGINS", "https://hegemon.example,https://admin.hegemon.example")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.APIPort)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "hard", cfg.Difficulty)
	assert.Equal(t, []string{"https://hegemon.example", "https://admin.hegemon.example"}, cfg.CORSOrigins)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("HEGEMON_API_PORT", "not-a-port")
	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")

	t.Setenv("HEGEMON_API_PORT", "8080")
	t.Setenv("HEGEMON_SPEED", "0")
	_, err = config.Load()
	assert.Error(t, err)
}

func TestLoadSteward(t *testing.T) {
	t.Setenv("STEWARD_INTERVAL", "30s")
	cfg, err := config.LoadSteward()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
}

func TestDefaultCatalog(t *testing.T) {
	c, err := config.LoadCatalog("")
	require.NoError(t, err)
	require.NotNil(t, c.Strategic())
	assert.Len(t, c.Strategic().All(), 6)
	assert.Equal(t, []string{"easy", "hard", "normal"}, c.Difficulties())

	org, err := c.OrganizationFor("hard")
	require.NoError(t, err)
	assert.Equal(t, 1.25, org.Damping)

	_, err = c.OrganizationFor("nightmare")
	assert.ErrorIs(t, err, config.ErrUnknownDifficulty)
}

func TestCatalogOverlay(t *testing.T) {
	data := []byte(`
organization:
  growth_per_contribution: 0.2
demands:
  political:
    deadline_days: 60
    failure_penalty: 30
    min_stage: radical
    approval_bar: 65
vassal:
  cap_floor: 25
  types:
    colony:
      base_growth: 0.05
      baseline_autonomy: 5
      tribute_rate: 1.4
`)
	c, err := config.ParseCatalog(data)
	require.NoError(t, err)

	assert.Equal(t, 0.2, c.Organization.GrowthPerContribution)
	assert.Equal(t, 0.5, c.Organization.NaturalDecay, "untouched keys keep defaults")

	pol, err := c.Demands.Lookup(demands.TypePolitical)
	require.NoError(t, err)
	assert.Equal(t, organization.StageRadical, pol.MinStage)
	assert.Equal(t, 60, pol.DeadlineDays)

	colony, err := c.Vassal.LookupType(vassal.TypeColony)
	require.NoError(t, err)
	assert.Equal(t, 1.4, colony.TributeRate)
	assert.Equal(t, 25.0, c.Vassal.CapFloor)

	tributary, err := c.Vassal.LookupType(vassal.TypeTributary)
	require.NoError(t, err)
	assert.Equal(t, 0.10, tributary.BaseGrowth)
}

func TestCatalogRejectsUnknownNames(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown key":          "organisation:\n  natural_decay: 1\n",
		"unknown vassal type":  "vassal:\n  types:\n    dominion:\n      base_growth: 1\n",
		"unknown stage":        "demands:\n  resource:\n    deadline_days: 5\n    min_stage: restless\n",
		"unknown demand type":  "demands:\n  bread:\n    deadline_days: 5\n",
		"bad action catalog":   "actions:\n  - id: bribe\n    cost: -5\n",
		"non-positive damping": "difficulty:\n  brutal: 0\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := config.ParseCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vassal:\n  autonomy_drift: 0.2\n"), 0o644))

	c, err := config.LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 0.2, c.Vassal.AutonomyDrift)

	_, err = config.LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
