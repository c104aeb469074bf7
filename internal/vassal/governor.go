package vassal

import (
	"math"

	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/officials"
)

// GovernorEffects is the scored contribution of a governor to a vassal.
type GovernorEffects struct {
	HasGovernor bool                 `json:"has_governor"`
	Official    officials.OfficialID `json:"official,omitempty"`
	Mandate     Mandate              `json:"mandate"`

	IndependenceReduction    float64 `json:"independence_reduction"`
	EliteSatisfaction        float64 `json:"elite_satisfaction"`
	CommonerSatisfaction     float64 `json:"commoner_satisfaction"`
	Stability                float64 `json:"stability"`
	RawTributeModifier       float64 `json:"raw_tribute_modifier"`
	TributeModifier          float64 `json:"tribute_modifier"` // Net of corruption
	Corruption               float64 `json:"corruption"`
	DailyUnrest              float64 `json:"daily_unrest"`
	IndependenceCapReduction float64 `json:"independence_cap_reduction"`
	WealthGrowth             float64 `json:"wealth_growth"`
	CorruptionEventChance    float64 `json:"corruption_event_chance"`
	Upkeep                   float64 `json:"upkeep"`
	TotalCost                float64 `json:"total_cost"`
}

// ScoreGovernor evaluates official governing v under mandate. A nil official
// yields the zero effects with HasGovernor false. The function is pure; the
// corruption event is rolled by the caller with RollCorruption.
//
// The vassal is read only to bound the cap reduction by the cap floor.
func ScoreGovernor(cfg *Config, official *officials.Official, mandate Mandate, v *State) GovernorEffects {
	eff := GovernorEffects{Mandate: mandate}
	if official == nil {
		return eff
	}
	mc, err := cfg.LookupMandate(mandate)
	if err != nil {
		return eff
	}
	g := cfg.Governor
	eff.HasGovernor = true
	eff.Official = official.ID

	prestige := attribute(official.Prestige)
	admin := attribute(official.Administrative)
	military := attribute(official.Military)
	loyalty := attribute(official.Loyalty)
	upkeepPrestige := prestige

	switch mc.Focus {
	case AttrPrestige:
		prestige *= g.FocusMultiplier
	case AttrAdministrative:
		admin *= g.FocusMultiplier
	case AttrMilitary:
		military *= g.FocusMultiplier
	case AttrLoyalty:
		loyalty *= g.FocusMultiplier
	}

	eff.DailyUnrest = mc.DailyUnrest
	eff.IndependenceReduction = math.Max(g.ReductionFloor,
		prestige*g.PrestigeSuppression*mc.SuppressionModifier-mc.DailyUnrest)

	eff.Corruption = corruption(g, admin, loyalty)
	eff.RawTributeModifier = 1 + math.Min(g.AdminTributeMax, admin*g.AdminTribute)*mc.TributeModifier
	eff.TributeModifier = eff.RawTributeModifier * (1 - eff.Corruption)

	eff.EliteSatisfaction = prestige * g.EliteSatisfaction
	eff.CommonerSatisfaction = mc.CommonerDelta
	eff.Stability = military * g.StabilityPerMilitary
	eff.WealthGrowth = admin * mc.WealthPerAdmin

	if mc.CapReductionPerAdmin > 0 {
		reduction := admin * mc.CapReductionPerAdmin
		if v != nil {
			reduction = math.Min(reduction, math.Max(0, v.IndependenceCap-cfg.CapFloor))
		}
		eff.IndependenceCapReduction = reduction
	}

	if loyalty < g.LoyaltyThreshold && g.LoyaltyThreshold > 0 {
		eff.CorruptionEventChance = g.CorruptionChanceBase +
			g.CorruptionChanceSpread*(g.LoyaltyThreshold-loyalty)/g.LoyaltyThreshold
	}

	eff.Upkeep = g.BaseUpkeep + upkeepPrestige*g.PrestigeUpkeep
	eff.TotalCost = eff.Upkeep
	return eff
}

// RollCorruption draws against the corruption event chance. On a hit the
// independence reduction drops by the configured penalty, still respecting
// the floor.
func RollCorruption(cfg *Config, eff *GovernorEffects, rng Rand) bool {
	if !eff.HasGovernor || eff.CorruptionEventChance <= 0 || rng == nil {
		return false
	}
	if rng.Float64() >= eff.CorruptionEventChance {
		return false
	}
	eff.IndependenceReduction = math.Max(cfg.Governor.ReductionFloor,
		eff.IndependenceReduction-cfg.Governor.CorruptionEventPenalty)
	return true
}

func corruption(g GovernorConfig, admin, loyalty float64) float64 {
	c := g.BaseCorruption - admin*g.AdminCorruption
	if loyalty < g.LoyaltyThreshold {
		c += (g.LoyaltyThreshold - loyalty) * g.LoyaltyCorruption
	}
	return economy.Clamp(c, 0, g.MaxCorruption)
}

func attribute(v float64) float64 {
	return economy.Clamp(v, 0, 100)
}
