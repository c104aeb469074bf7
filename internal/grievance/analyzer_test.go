package grievance_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/grievance"
)

func ptr(v float64) *float64 { return &v }

func peasantNeeds() economy.NeedSet {
	return economy.NeedSet{
		Base:   []economy.Resource{economy.ResGrain, economy.ResSalt, economy.ResTimber},
		Luxury: []economy.Resource{economy.ResCloth, economy.ResWine, economy.ResTea, economy.ResSilk},
	}
}

func TestTaxBurden(t *testing.T) {
	r := grievance.Analyze(economy.StratumSnapshot{
		IncomePerCapita: 10,
		TaxPerCapita:    4,
		Approval:        50,
	})

	src, ok := r.Find(grievance.SourceTax)
	require.True(t, ok)
	assert.InDelta(t, 1.2, src.Contribution, 1e-9)
	assert.Equal(t, grievance.SeverityWarning, src.Severity)
	assert.InDelta(t, 1.2, r.TotalContribution, 1e-9)
	assert.Len(t, r.Sources, 1)
}

func TestTaxBurdenThresholds(t *testing.T) {
	tests := []struct {
		name    string
		tax     float64
		present bool
		contrib float64
		sev     grievance.Severity
	}{
		{"at trigger", 3, false, 0, ""},
		{"just above", 3.1, true, 0.93, grievance.SeverityWarning},
		{"danger", 6, true, 1.8, grievance.SeverityDanger},
		{"capped", 9, true, 2, grievance.SeverityDanger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := grievance.Analyze(economy.StratumSnapshot{IncomePerCapita: 10, TaxPerCapita: tt.tax, Approval: 50})
			src, ok := r.Find(grievance.SourceTax)
			require.Equal(t, tt.present, ok)
			if ok {
				assert.InDelta(t, tt.contrib, src.Contribution, 1e-9)
				assert.Equal(t, tt.sev, src.Severity)
			}
		})
	}
}

func TestZeroIncomeContributesNothing(t *testing.T) {
	r := grievance.Analyze(economy.StratumSnapshot{IncomePerCapita: 0, TaxPerCapita: 5, Approval: 50})
	assert.False(t, r.Has(grievance.SourceTax))
	assert.Zero(t, r.TotalContribution)
}

func TestShortages(t *testing.T) {
	snap := economy.StratumSnapshot{
		Approval: 50,
		Needs:    peasantNeeds(),
		Shortages: []economy.Shortage{
			{Resource: economy.ResGrain, Kind: economy.ShortageUnaffordable},
			{Resource: economy.ResSalt, Kind: economy.ShortageUnaffordable},
			{Resource: economy.ResTimber, Kind: economy.ShortageOutOfStock},
			{Resource: economy.ResCloth, Kind: economy.ShortageUnaffordable},
			{Resource: economy.ResWine, Kind: economy.ShortageUnaffordable},
			{Resource: economy.ResIron, Kind: economy.ShortageOutOfStock}, // not a need
		},
	}
	r := grievance.Analyze(snap)

	basic, ok := r.Find(grievance.SourceBasicUnaffordable)
	require.True(t, ok)
	assert.InDelta(t, 0.8, basic.Contribution, 1e-9)
	assert.ElementsMatch(t, []economy.Resource{economy.ResGrain, economy.ResSalt}, basic.Resources)

	out, ok := r.Find(grievance.SourceBasicShortage)
	require.True(t, ok)
	assert.InDelta(t, 0.6, out.Contribution, 1e-9)
	assert.Equal(t, grievance.SeverityDanger, out.Severity)

	// Two luxury items are below the three-item floor.
	assert.False(t, r.Has(grievance.SourceLuxuryUnaffordable))
	assert.False(t, r.Has(grievance.SourceLuxuryShortage))
}

func TestLuxuryFloors(t *testing.T) {
	needs := peasantNeeds()
	unaff := economy.StratumSnapshot{Approval: 50, Needs: needs}
	out := economy.StratumSnapshot{Approval: 50, Needs: needs}
	for _, res := range needs.Luxury {
		unaff.Shortages = append(unaff.Shortages, economy.Shortage{Resource: res, Kind: economy.ShortageUnaffordable})
		out.Shortages = append(out.Shortages, economy.Shortage{Resource: res, Kind: economy.ShortageOutOfStock})
	}

	src, ok := grievance.Analyze(unaff).Find(grievance.SourceLuxuryUnaffordable)
	require.True(t, ok)
	assert.InDelta(t, 0.4, src.Contribution, 1e-9)
	assert.Equal(t, grievance.SeverityInfo, src.Severity)

	src, ok = grievance.Analyze(out).Find(grievance.SourceLuxuryShortage)
	require.True(t, ok)
	assert.InDelta(t, 0.2, src.Contribution, 1e-9)
}

func TestLivingStandard(t *testing.T) {
	r := grievance.Analyze(economy.StratumSnapshot{Approval: 50, LivingStandard: ptr(0.5)})
	src, ok := r.Find(grievance.SourceLivingStandard)
	require.True(t, ok)
	assert.InDelta(t, 0.75, src.Contribution, 1e-9)

	r = grievance.Analyze(economy.StratumSnapshot{Approval: 50, LivingStandard: ptr(0.1)})
	src, _ = r.Find(grievance.SourceLivingStandard)
	assert.InDelta(t, 1.0, src.Contribution, 1e-9)
	assert.Equal(t, grievance.SeverityDanger, src.Severity)

	assert.False(t, grievance.Analyze(economy.StratumSnapshot{Approval: 50}).Has(grievance.SourceLivingStandard))
	assert.False(t, grievance.Analyze(economy.StratumSnapshot{Approval: 50, LivingStandard: ptr(math.NaN())}).Has(grievance.SourceLivingStandard))
}

func TestPolitical(t *testing.T) {
	r := grievance.Analyze(economy.StratumSnapshot{Influence: 30, TotalInfluence: 100, Approval: 35})
	src, ok := r.Find(grievance.SourcePolitical)
	require.True(t, ok)
	assert.InDelta(t, 0.6, src.Contribution, 1e-9)

	assert.False(t, grievance.Analyze(economy.StratumSnapshot{Influence: 30, TotalInfluence: 100, Approval: 45}).Has(grievance.SourcePolitical))
	assert.False(t, grievance.Analyze(economy.StratumSnapshot{Influence: 30, TotalInfluence: 0, Approval: 10}).Has(grievance.SourcePolitical))
}

func TestSortedDescending(t *testing.T) {
	r := grievance.Analyze(economy.StratumSnapshot{
		IncomePerCapita: 10,
		TaxPerCapita:    8,
		LivingStandard:  ptr(0.6),
		Influence:       20,
		TotalInfluence:  100,
		Approval:        20,
		Needs:           peasantNeeds(),
		Shortages:       []economy.Shortage{{Resource: economy.ResGrain, Kind: economy.ShortageOutOfStock}},
	})
	require.Len(t, r.Sources, 4)
	for i := 1; i < len(r.Sources); i++ {
		assert.GreaterOrEqual(t, r.Sources[i-1].Contribution, r.Sources[i].Contribution)
	}
	assert.Equal(t, grievance.SourceTax, r.Sources[0].Type)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	snap := economy.StratumSnapshot{
		IncomePerCapita: 12,
		TaxPerCapita:    5,
		LivingStandard:  ptr(0.4),
		Approval:        30,
		Influence:       15,
		TotalInfluence:  60,
		Needs:           peasantNeeds(),
		Shortages: []economy.Shortage{
			{Resource: economy.ResSalt, Kind: economy.ShortageOutOfStock},
			{Resource: economy.ResGrain, Kind: economy.ShortageUnaffordable},
		},
	}
	assert.Equal(t, grievance.Analyze(snap), grievance.Analyze(snap))
}
