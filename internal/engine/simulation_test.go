package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hegemon/internal/actions"
	"github.com/talgya/hegemon/internal/demands"
	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/engine"
	"github.com/talgya/hegemon/internal/entropy"
	"github.com/talgya/hegemon/internal/officials"
	"github.com/talgya/hegemon/internal/organization"
	"github.com/talgya/hegemon/internal/vassal"
)

// fakeEconomy reports the same snapshot every day and records flows.
type fakeEconomy struct {
	snap  economy.Snapshot
	flows []economy.Flows
}

func (f *fakeEconomy) Snapshot(day int) economy.Snapshot {
	s := f.snap
	s.Day = day
	return s
}

func (f *fakeEconomy) Apply(fl economy.Flows) { f.flows = append(f.flows, fl) }

type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

func taxedRealm() *fakeEconomy {
	return &fakeEconomy{snap: economy.Snapshot{
		Player: economy.PlayerSnapshot{Treasury: 1000, Wealth: 50000, Military: 40, Stability: 60},
		Strata: map[economy.StratumID]economy.StratumSnapshot{
			"peasants": {IncomePerCapita: 10, TaxPerCapita: 4, HeadTaxMultiplier: 1.5, Approval: 50},
		},
		Nations: map[economy.NationID]economy.NationSnapshot{
			"vel": {
				Wealth:       8000,
				Military:     10,
				Satisfaction: map[economy.SocialClass]float64{economy.ClassCommoner: 50, economy.ClassElite: 50},
				Inventory:    map[economy.Resource]float64{economy.ResGrain: 100},
			},
		},
	}}
}

func newSim(t *testing.T, econ economy.Economy, rng entropy.Source) *engine.Simulation {
	t.Helper()
	sim, err := engine.New(engine.Options{
		Economy: econ,
		Rand:    rng,
		Officials: officials.NewRegistry([]officials.Official{
			{ID: "aldric", Name: "Aldric", Prestige: 60, Administrative: 50, Military: 40, Loyalty: 70},
		}),
	})
	require.NoError(t, err)
	return sim
}

func withStratum(sim *engine.Simulation, id economy.StratumID, org float64) {
	st := sim.Export()
	st.Strata = append(st.Strata, engine.StratumState{State: organization.State{Stratum: id, Organization: org}})
	sim.Import(st)
}

func TestNewRequiresEconomy(t *testing.T) {
	_, err := engine.New(engine.Options{})
	assert.Error(t, err)

	_, err = engine.New(engine.Options{Economy: taxedRealm(), Difficulty: "brutal"})
	assert.Error(t, err)
}

func TestUprisingFiresOnce(t *testing.T) {
	sim := newSim(t, taxedRealm(), fixedRand(0.99))
	withStratum(sim, "peasants", 85)

	uprisings := 0
	for day := 1; day <= 90; day++ {
		rep := sim.TickDay(day)
		uprisings += len(rep.Uprisings)
	}
	assert.Equal(t, 1, uprisings)
	assert.Len(t, sim.Events(0, engine.CatUprising), 1)

	v, err := sim.Stratum("peasants")
	require.NoError(t, err)
	assert.Equal(t, organization.StageUprising, v.Stage)
	assert.LessOrEqual(t, v.Organization, 100.0)
}

func TestTaxReliefDemandRaised(t *testing.T) {
	sim := newSim(t, taxedRealm(), fixedRand(0.99))
	withStratum(sim, "peasants", 40)

	rep := sim.TickDay(1)
	require.Len(t, rep.NewDemands, 1)
	d := rep.NewDemands[0]
	assert.Equal(t, demands.TypeTaxRelief, d.Type)
	assert.Equal(t, 31, d.DeadlineDay)

	// No duplicate while one is open.
	rep = sim.TickDay(2)
	assert.Empty(t, rep.NewDemands)

	v, err := sim.Stratum("peasants")
	require.NoError(t, err)
	require.Len(t, v.Demands, 1)
	assert.Equal(t, 29, v.Demands[0].DaysLeft)
}

func TestFailedDemandRaisesOrganization(t *testing.T) {
	sim := newSim(t, taxedRealm(), fixedRand(0.99))
	withStratum(sim, "peasants", 40)

	var before, after float64
	for day := 1; day <= 31; day++ {
		if day == 31 {
			v, _ := sim.Stratum("peasants")
			before = v.Organization
		}
		sim.TickDay(day)
	}
	v, err := sim.Stratum("peasants")
	require.NoError(t, err)
	after = v.Organization

	// One day of growth plus the TaxRelief penalty.
	assert.InDelta(t, before+0.18+15, after, 1e-6)
	assert.NotEmpty(t, sim.Events(0, engine.CatDemand))
}

func TestInvokeAction(t *testing.T) {
	econ := taxedRealm()
	sim := newSim(t, econ, fixedRand(0.99))
	withStratum(sim, "peasants", 40)

	out, err := sim.InvokeAction("peasants", "concessions")
	require.NoError(t, err)
	assert.Equal(t, 500.0, out.Cost)

	v, err := sim.Stratum("peasants")
	require.NoError(t, err)
	assert.InDelta(t, 30.0, v.Organization, 1e-9)

	_, err = sim.InvokeAction("peasants", "concessions")
	assert.ErrorIs(t, err, actions.ErrOnCooldown)

	// 500 already committed leaves 500 of 1000.
	_, err = sim.InvokeAction("peasants", "promise_relief")
	require.NoError(t, err)
	_, err = sim.InvokeAction("peasants", "propaganda")
	require.NoError(t, err)
	_, err = sim.InvokeAction("peasants", "crackdown")
	assert.ErrorIs(t, err, actions.ErrInsufficientFunds)

	_, err = sim.InvokeAction("peasants", "coopt_leaders")
	assert.Error(t, err)
	_, err = sim.InvokeAction("peasants", "bribe")
	assert.ErrorIs(t, err, actions.ErrUnknownAction)
	_, err = sim.InvokeAction("monks", "propaganda")
	assert.ErrorIs(t, err, economy.ErrUnknownStratum)

	v, err = sim.Stratum("peasants")
	require.NoError(t, err)
	assert.Len(t, v.Promises, 1)
	assert.Len(t, v.Suppressions, 1)

	sim.TickDay(1)
	require.Len(t, econ.flows, 1)
	assert.Equal(t, 800.0, econ.flows[0].ActionCosts)
	assert.InDelta(t, 7.0, econ.flows[0].ApprovalDeltas["peasants"], 1e-9)
	assert.Len(t, sim.Events(0, engine.CatAction), 3)
}

func TestActionStatusInView(t *testing.T) {
	sim := newSim(t, taxedRealm(), fixedRand(0.99))
	withStratum(sim, "peasants", 40)
	_, err := sim.InvokeAction("peasants", "concessions")
	require.NoError(t, err)

	v, err := sim.Stratum("peasants")
	require.NoError(t, err)
	byID := make(map[string]engine.ActionStatus)
	for _, a := range v.Actions {
		byID[a.ID] = a
	}
	assert.False(t, byID["concessions"].Available)
	assert.Equal(t, 30, byID["concessions"].ReadyDay)
	assert.True(t, byID["propaganda"].Available)
	assert.False(t, byID["coopt_leaders"].Available)
}

func TestVassalLifecycle(t *testing.T) {
	sim := newSim(t, taxedRealm(), fixedRand(0.99))

	_, err := sim.EstablishVassal("ghost", vassal.TypeTributary)
	assert.ErrorIs(t, err, economy.ErrUnknownNation)

	v, err := sim.EstablishVassal("vel", vassal.TypeTributary)
	require.NoError(t, err)
	assert.Equal(t, 50.0, v.Autonomy)

	_, err = sim.EstablishVassal("vel", vassal.TypePuppet)
	assert.ErrorIs(t, err, engine.ErrAlreadyVassal)

	require.NoError(t, sim.SetMeasure("vel", vassal.MeasureGarrison, true))
	assert.ErrorIs(t, sim.SetMeasure("vel", vassal.MeasureID(9), true), vassal.ErrUnknownMeasure)
	assert.ErrorIs(t, sim.SetMeasure("none", vassal.MeasureGarrison, true), engine.ErrNotVassal)

	assert.ErrorIs(t, sim.AssignGovernor("vel", "nobody", vassal.MandatePacify), engine.ErrUnknownOfficial)
	require.NoError(t, sim.AssignGovernor("vel", "aldric", vassal.MandatePacify))

	costs, err := sim.MeasureCosts("vel")
	require.NoError(t, err)
	assert.Equal(t, 88.0, costs[vassal.MeasureGarrison])
	assert.Equal(t, 54.0, costs[vassal.MeasureGovernor])

	eff, err := sim.PreviewGovernor("vel", officials.Official{ID: "what-if", Prestige: 100, Loyalty: 100}, vassal.MandatePacify)
	require.NoError(t, err)
	assert.True(t, eff.HasGovernor)
	assert.InDelta(t, 6.0, eff.IndependenceReduction, 1e-9)

	view, err := sim.Vassal("vel")
	require.NoError(t, err)
	require.NotNil(t, view.Governor)
	assert.Equal(t, "Aldric", view.GovernorName)
	assert.Equal(t, 30, view.NextTributeDay)

	labor := vassal.LaborForced
	rate := 1.5
	require.NoError(t, sim.SetVassalPolicy("vel", engine.VassalPolicy{Labor: &labor, TributeRate: &rate}))
	bad := 3.0
	assert.Error(t, sim.SetVassalPolicy("vel", engine.VassalPolicy{TributeRate: &bad}))

	view, err = sim.Vassal("vel")
	require.NoError(t, err)
	assert.Equal(t, vassal.LaborForced, view.Labor)
	assert.Equal(t, 1.5, view.TributeRate)

	require.NoError(t, sim.ReleaseVassal("vel"))
	assert.ErrorIs(t, sim.ReleaseVassal("vel"), engine.ErrNotVassal)
	assert.Empty(t, sim.Vassals())
}

func TestDismissedGovernorStillBilled(t *testing.T) {
	econ := taxedRealm()
	sim := newSim(t, econ, fixedRand(0.99))
	_, err := sim.EstablishVassal("vel", vassal.TypeTributary)
	require.NoError(t, err)
	require.NoError(t, sim.AssignGovernor("vel", "aldric", vassal.MandatePacify))
	require.NoError(t, sim.DismissOfficial("aldric"))
	before := len(sim.Events(0, engine.CatGovernor))

	rep := sim.TickDay(1)
	require.Len(t, rep.Vassals, 1)
	res := rep.Vassals[0]
	assert.Nil(t, res.Governor)
	assert.NotEmpty(t, res.Warnings)
	assert.Equal(t, officials.OfficialID("aldric"), res.MissingGovernor)
	assert.Equal(t, 54.0, res.ControlCost)
	assert.Equal(t, 54.0, econ.flows[0].ControlCosts)

	sim.TickDay(2)
	sim.TickDay(3)
	vacancies := sim.Events(0, engine.CatGovernor)[before:]
	require.Len(t, vacancies, 1, "vacancy reported once")
	assert.Equal(t, 1, vacancies[0].Day)
}

func TestTributeSettledEveryThirtyDays(t *testing.T) {
	econ := taxedRealm()
	sim := newSim(t, econ, fixedRand(0.99))
	_, err := sim.EstablishVassal("vel", vassal.TypeTributary)
	require.NoError(t, err)

	var tributeDays []int
	for day := 1; day <= 60; day++ {
		sim.TickDay(day)
	}
	for _, f := range econ.flows {
		if len(f.Tribute) > 0 {
			tributeDays = append(tributeDays, f.Day)
			assert.Greater(t, f.Tribute[0].Silver, 0.0)
			assert.Equal(t, economy.NationID("vel"), f.Tribute[0].Nation)
		}
	}
	assert.Equal(t, []int{30, 60}, tributeDays)
	assert.Len(t, sim.Events(0, engine.CatTribute), 2)
}

func TestIndependenceWar(t *testing.T) {
	econ := taxedRealm()
	econ.snap.Player.AtWar = true
	sim := newSim(t, econ, fixedRand(0))

	v, err := vassal.Establish(&sim.Catalog().Vassal, "vel", vassal.TypeTributary, 0)
	require.NoError(t, err)
	v.IndependencePressure = 70
	st := sim.Export()
	st.Vassals = []*vassal.State{v}
	sim.Import(st)

	rep := sim.TickDay(1)
	assert.Equal(t, []economy.NationID{"vel"}, rep.Wars)
	assert.Equal(t, []economy.NationID{"vel"}, econ.flows[0].IndependenceWars)
	assert.Empty(t, sim.Vassals())

	wars := sim.Events(0, engine.CatWar)
	require.Len(t, wars, 1)
	assert.Equal(t, string(vassal.CausePlayerAtWar), wars[0].Meta["cause"])
}

func TestPolicyNeedsPolicyEconomy(t *testing.T) {
	sim := newSim(t, taxedRealm(), fixedRand(0.99))
	assert.ErrorIs(t, sim.SetHeadTax("peasants", 1), engine.ErrNoPolicy)
	assert.ErrorIs(t, sim.SetSubsidy("peasants", 1), engine.ErrNoPolicy)
}

func TestExportImportRoundTrip(t *testing.T) {
	sim := newSim(t, taxedRealm(), fixedRand(0.99))
	withStratum(sim, "peasants", 40)
	_, err := sim.EstablishVassal("vel", vassal.TypePuppet)
	require.NoError(t, err)
	_, err = sim.InvokeAction("peasants", "promise_reform")
	require.NoError(t, err)
	for day := 1; day <= 5; day++ {
		sim.TickDay(day)
	}

	st := sim.Export()
	other := newSim(t, taxedRealm(), fixedRand(0.99))
	other.Import(st)
	assert.Equal(t, st, other.Export())
	assert.Equal(t, 5, other.Day())
}

func TestStatus(t *testing.T) {
	sim := newSim(t, taxedRealm(), fixedRand(0.99))
	withStratum(sim, "peasants", 95)
	sim.TickDay(1)

	st := sim.Status()
	assert.Equal(t, 1, st.Day)
	assert.Equal(t, 1000.0, st.Treasury)
	assert.Equal(t, []economy.StratumID{"peasants"}, st.Rebelling)
	assert.Equal(t, 1, st.ActiveDemands)
}

func TestSubscribe(t *testing.T) {
	sim := newSim(t, taxedRealm(), fixedRand(0.99))
	id, ch := sim.Subscribe()

	sim.EmitEvent(engine.Event{Day: 1, Category: engine.CatPolicy, Description: "edict"})
	e := <-ch
	assert.Equal(t, "edict", e.Description)
	assert.Equal(t, int64(1), e.Seq)

	sim.Unsubscribe(id)
	_, open := <-ch
	assert.False(t, open)
}

// TestBoundsHold ticks a noisy realm for two years and checks the state
// invariants every day.
func TestBoundsHold(t *testing.T) {
	needs := economy.DefaultNeeds()
	model := economy.NewModel(economy.ModelState{
		Seed:    11,
		BaseTax: 3,
		Player:  economy.PlayerSnapshot{Treasury: 20000, Wealth: 60000, Military: 20, Stability: 45},
		Prices: map[economy.Resource]float64{
			economy.ResGrain: 1, economy.ResSalt: 0.8, economy.ResCloth: 2, economy.ResWine: 5,
			economy.ResIron: 3, economy.ResSpices: 9,
		},
		Strata: map[economy.StratumID]*economy.StratumProfile{
			"peasants": {BaseIncome: 5, HeadTaxMultiplier: 1.4, Influence: 10, Approval: 35, Needs: needs["peasants"]},
			"nobility": {BaseIncome: 80, HeadTaxMultiplier: 0.5, Influence: 45, Approval: 30, Needs: needs["nobility"]},
			"laborers": {BaseIncome: 4, HeadTaxMultiplier: 1, Influence: 5, Approval: 50, Needs: needs["laborers"]},
		},
		Nations: map[economy.NationID]*economy.NationProfile{
			"vel": {
				Wealth: 12000, Military: 30,
				Satisfaction: map[economy.SocialClass]float64{economy.ClassCommoner: 20, economy.ClassUnderclass: 15},
				Inventory:    map[economy.Resource]float64{economy.ResIron: 40},
				Relations:    map[economy.NationID]float64{"oster": 80},
			},
			"mar": {
				Wealth: 3000, Military: 5,
				Satisfaction: map[economy.SocialClass]float64{economy.ClassElite: 80, economy.ClassCommoner: 75},
			},
		},
	})
	sim := newSim(t, model, entropy.NewSeeded(7))

	_, err := sim.EstablishVassal("vel", vassal.TypeTributary)
	require.NoError(t, err)
	_, err = sim.EstablishVassal("mar", vassal.TypeColony)
	require.NoError(t, err)
	require.NoError(t, sim.SetMeasure("vel", vassal.MeasureGarrison, true))
	require.NoError(t, sim.SetMeasure("vel", vassal.MeasureAssimilation, true))
	require.NoError(t, sim.AssignGovernor("vel", "aldric", vassal.MandateExploit))
	require.NoError(t, sim.SetMeasure("mar", vassal.MeasureEconomicAid, true))
	require.NoError(t, sim.SetMeasure("mar", vassal.MeasureGovernor, true))

	caps := make(map[economy.NationID]float64)
	for day := 1; day <= 720; day++ {
		sim.TickDay(day)

		for _, s := range sim.Strata() {
			assert.GreaterOrEqual(t, s.Organization, 0.0, "day %d %s", day, s.Stratum)
			assert.LessOrEqual(t, s.Organization, 100.0, "day %d %s", day, s.Stratum)
			assert.Equal(t, organization.StageOf(s.Organization), s.Stage)

			seen := make(map[demands.Type]bool)
			for _, d := range s.Demands {
				assert.False(t, seen[d.Type], "day %d %s duplicate %s", day, s.Stratum, d.Type)
				seen[d.Type] = true
			}
		}
		for _, v := range sim.Vassals() {
			assert.GreaterOrEqual(t, v.IndependencePressure, 0.0)
			assert.LessOrEqual(t, v.IndependencePressure, v.IndependenceCap)
			if prev, ok := caps[v.Nation]; ok {
				assert.LessOrEqual(t, v.IndependenceCap, prev, "cap rose on day %d", day)
			}
			caps[v.Nation] = v.IndependenceCap
		}
	}
}
