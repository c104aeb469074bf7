package scenario_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/engine"
	"github.com/talgya/hegemon/internal/officials"
	"github.com/talgya/hegemon/internal/scenario"
)

func TestGenerateDeterministic(t *testing.T) {
	cfg := scenario.SmallTestConfig()
	a := scenario.Generate(cfg)
	b := scenario.Generate(cfg)
	assert.Equal(t, a, b)

	cfg.Seed = 7
	c := scenario.Generate(cfg)
	assert.NotEqual(t, a.Economy.Strata, c.Economy.Strata)
}

func TestRandomSeedRecorded(t *testing.T) {
	cfg := scenario.SmallTestConfig()
	cfg.Seed = 0
	r := scenario.Generate(cfg)
	assert.NotZero(t, r.Seed)
	assert.Equal(t, r.Seed, r.Economy.Seed)
}

func TestGeneratedRealmShape(t *testing.T) {
	cfg := scenario.DefaultGenConfig()
	cfg.Seed = 99
	r := scenario.Generate(cfg)

	assert.Len(t, r.Economy.Strata, 6)
	for id, p := range r.Economy.Strata {
		assert.NotEmpty(t, p.Needs.Base, "stratum %s", id)
		assert.Positive(t, p.BaseIncome)
		assert.GreaterOrEqual(t, p.Approval, 40.0)
		assert.LessOrEqual(t, p.Approval, 65.0)
		assert.Equal(t, 1.0, p.Coalition.Sensitivity)
	}
	assert.True(t, r.Economy.Strata["nobility"].Coalition.InCoalition)
	assert.False(t, r.Economy.Strata["peasants"].Coalition.InCoalition)

	require.Len(t, r.Economy.Nations, cfg.Nations)
	for id, n := range r.Economy.Nations {
		assert.GreaterOrEqual(t, n.Wealth, 2000.0)
		assert.Len(t, n.Satisfaction, len(economy.SocialClasses))
		for other, rel := range n.Relations {
			assert.Equal(t, rel, r.Economy.Nations[other].Relations[id], "relations are symmetric")
		}
		assert.Len(t, n.Relations, cfg.Nations-1)
	}

	require.Len(t, r.Officials, cfg.Officials)
	seen := make(map[officials.OfficialID]bool)
	for _, o := range r.Officials {
		assert.False(t, seen[o.ID], "duplicate official id %s", o.ID)
		seen[o.ID] = true
		for _, v := range []float64{o.Prestige, o.Administrative, o.Military, o.Loyalty} {
			assert.GreaterOrEqual(t, v, 15.0)
			assert.LessOrEqual(t, v, 95.0)
		}
	}
}

func TestGeneratedRealmRuns(t *testing.T) {
	r := scenario.Generate(scenario.SmallTestConfig())
	model := economy.NewModel(r.Economy)
	sim, err := engine.New(engine.Options{Economy: model, Officials: officials.NewRegistry(r.Officials)})
	require.NoError(t, err)

	for day := 1; day <= 120; day++ {
		sim.TickDay(day)
	}
	assert.Len(t, sim.Strata(), 6)
	for _, v := range sim.Strata() {
		assert.GreaterOrEqual(t, v.Organization, 0.0)
		assert.LessOrEqual(t, v.Organization, 100.0)
	}
}
