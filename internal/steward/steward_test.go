package steward_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hegemon/internal/api"
	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/engine"
	"github.com/talgya/hegemon/internal/officials"
	"github.com/talgya/hegemon/internal/steward"
	"github.com/talgya/hegemon/internal/vassal"
)

func intp(v int) *int { return &v }

func TestTriageLevels(t *testing.T) {
	tests := []struct {
		name    string
		snap    steward.RealmSnapshot
		level   string
		hot     int
		flashes int
	}{
		{name: "calm", snap: steward.RealmSnapshot{
			Strata: []steward.StratumInfo{{Stratum: "peasants", Organization: 20}},
		}, level: steward.LevelHealthy},
		{name: "watch", snap: steward.RealmSnapshot{
			Strata: []steward.StratumInfo{{Stratum: "peasants", Organization: 55}},
		}, level: steward.LevelWatch, hot: 1},
		{name: "warning by countdown", snap: steward.RealmSnapshot{
			Strata: []steward.StratumInfo{{Stratum: "peasants", Organization: 40, DaysToUprising: intp(20)}},
		}, level: steward.LevelWarning, hot: 1},
		{name: "uprising", snap: steward.RealmSnapshot{
			Strata: []steward.StratumInfo{
				{Stratum: "clergy", Organization: 72},
				{Stratum: "peasants", Organization: 95},
			},
		}, level: steward.LevelCritical, hot: 2},
		{name: "vassal below war threshold", snap: steward.RealmSnapshot{
			Vassals: []steward.VassalInfo{{Nation: "vel", IndependencePressure: 59, IndependenceCap: 60}},
		}, level: steward.LevelHealthy},
		{name: "vassal near cap", snap: steward.RealmSnapshot{
			Vassals: []steward.VassalInfo{{Nation: "vel", IndependencePressure: 85, IndependenceCap: 90}},
		}, level: steward.LevelCritical, flashes: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := steward.Triage(&tt.snap)
			assert.Equal(t, tt.level, h.CrisisLevel)
			assert.Len(t, h.Hotspots, tt.hot)
			assert.Len(t, h.Flashpoints, tt.flashes)
		})
	}

	h := steward.Triage(&tests[3].snap)
	assert.Equal(t, "peasants", h.Hotspots[0].Stratum.Stratum, "most organized first")
}

func TestDecide(t *testing.T) {
	radical := steward.StratumInfo{
		Stratum: "peasants", Organization: 80, Stage: "radical",
		Actions: []steward.ActionInfo{
			{ID: "coopt_leaders", Cost: 800, Available: true},
			{ID: "concessions", Cost: 500, Available: false, Reason: "on cooldown"},
			{ID: "crackdown", Cost: 300, Available: true},
		},
	}
	snap := &steward.RealmSnapshot{
		Status: steward.RealmStatus{Treasury: 1000},
		Strata: []steward.StratumInfo{radical},
		Vassals: []steward.VassalInfo{{
			Nation: "vel", IndependencePressure: 70, IndependenceCap: 100,
			Measures:     map[string]steward.MeasureInfo{},
			MeasureCosts: map[string]float64{"garrison": 90, "governor": 55},
		}},
		Officials: []steward.OfficialInfo{
			{ID: "a", Name: "Aldric", Prestige: 60, Loyalty: 50},
			{ID: "b", Name: "Beatrix", Prestige: 60, Loyalty: 80},
		},
	}

	// 750 of budget rules out co-opting; concessions is on cooldown.
	d := steward.Decide(snap, steward.Triage(snap))
	require.NotNil(t, d.Intervention)
	assert.Equal(t, steward.KindAction, d.Action)
	assert.Equal(t, "crackdown", d.Intervention.Action)

	snap.Strata = nil
	d = steward.Decide(snap, steward.Triage(snap))
	require.NotNil(t, d.Intervention)
	assert.Equal(t, steward.KindMeasure, d.Action)
	assert.Equal(t, "garrison", d.Intervention.Measure)

	snap.Vassals[0].Measures["garrison"] = steward.MeasureInfo{Active: true}
	d = steward.Decide(snap, steward.Triage(snap))
	require.NotNil(t, d.Intervention)
	assert.Equal(t, steward.KindGovernor, d.Action)
	assert.Equal(t, "b", d.Intervention.Official)
	assert.Equal(t, "vel", d.Intervention.Target())

	snap.Vassals = nil
	d = steward.Decide(snap, steward.Triage(snap))
	assert.Equal(t, "none", d.Action)
	assert.Nil(t, d.Intervention)
}

func TestMemoryRing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	mem := steward.LoadMemory(path)
	_, ok := mem.Last()
	assert.False(t, ok)

	for day := 1; day <= 25; day++ {
		mem.Record(steward.CycleRecord{Day: day, Action: "none"})
	}
	mem.Save()

	loaded := steward.LoadMemory(path)
	assert.Len(t, loaded.Records, 20)
	last, ok := loaded.Last()
	require.True(t, ok)
	assert.Equal(t, 25, last.Day)
}

func realmAPI(t *testing.T) (*engine.Simulation, *httptest.Server) {
	t.Helper()
	model := economy.NewModel(economy.ModelState{
		Seed:    11,
		BaseTax: 2,
		Player:  economy.PlayerSnapshot{Treasury: 2000, Wealth: 40000, Military: 50, Stability: 60},
		Prices:  map[economy.Resource]float64{economy.ResGrain: 1},
		Strata: map[economy.StratumID]*economy.StratumProfile{
			"peasants": {BaseIncome: 8, HeadTaxMultiplier: 1, Influence: 10, Approval: 45},
		},
		Nations: map[economy.NationID]*economy.NationProfile{
			"vel": {Wealth: 6000, Military: 10, Satisfaction: map[economy.SocialClass]float64{economy.ClassCommoner: 50}},
		},
	})
	sim, err := engine.New(engine.Options{
		Economy: model,
		Officials: officials.NewRegistry([]officials.Official{
			{ID: "aldric", Name: "Aldric", Prestige: 60, Administrative: 50, Military: 40, Loyalty: 70},
		}),
	})
	require.NoError(t, err)
	sim.TickDay(1)

	srv := &api.Server{Sim: sim, AdminKey: "seal"}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return sim, ts
}

func TestRunCycleActs(t *testing.T) {
	sim, ts := realmAPI(t)
	st := sim.Export()
	st.Strata[0].Organization = 75
	sim.Import(st)

	mem := steward.LoadMemory("")
	d, err := steward.RunCycle(steward.NewObserver(ts.URL), steward.NewActor(ts.URL, "seal"), mem)
	require.NoError(t, err)
	require.NotNil(t, d.Intervention)
	assert.Equal(t, "coopt_leaders", d.Intervention.Action)

	v, err := sim.Stratum("peasants")
	require.NoError(t, err)
	assert.InDelta(t, 50.0, v.Organization, 1e-9)
	assert.Len(t, sim.Events(0, engine.CatAction), 1)

	last, ok := mem.Last()
	require.True(t, ok)
	assert.Equal(t, "peasants", last.Target)
	assert.Empty(t, last.Error)
}

func TestRunCycleRecordsFailure(t *testing.T) {
	sim, ts := realmAPI(t)
	_, err := sim.EstablishVassal("vel", vassal.TypeTributary)
	require.NoError(t, err)
	st := sim.Export()
	st.Vassals[0].IndependencePressure = 80
	sim.Import(st)

	mem := steward.LoadMemory("")
	_, err = steward.RunCycle(steward.NewObserver(ts.URL), steward.NewActor(ts.URL, "wrong"), mem)
	require.Error(t, err)

	last, ok := mem.Last()
	require.True(t, ok)
	assert.Equal(t, steward.KindMeasure, last.Action)
	assert.Contains(t, last.Error, "401")
}

func TestWaitForAPI(t *testing.T) {
	_, ts := realmAPI(t)
	require.NoError(t, steward.WaitForAPI(context.Background(), steward.NewObserver(ts.URL), time.Second))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	err := steward.WaitForAPI(context.Background(), steward.NewObserver(down.URL), 0)
	assert.ErrorIs(t, err, steward.ErrNotReady)
}
