package vassal

import (
	"fmt"
	"math"

	"github.com/talgya/hegemon/internal/economy"
)

// TypeConfig holds the per-type vassal constants.
type TypeConfig struct {
	BaseGrowth         float64 `yaml:"base_growth" json:"base_growth"` // Pressure per day
	BaselineAutonomy   float64 `yaml:"baseline_autonomy" json:"baseline_autonomy"`
	TributeRate        float64 `yaml:"tribute_rate" json:"tribute_rate"`
	DiplomaticAutonomy bool    `yaml:"diplomatic_autonomy" json:"diplomatic_autonomy"`
}

// MeasureConfig holds the constants of one control measure.
type MeasureConfig struct {
	BaseCost              float64 `yaml:"base_cost" json:"base_cost"`
	ScalingFactor         float64 `yaml:"scaling_factor" json:"scaling_factor"` // Cost per unit of vassal wealth
	IndependenceReduction float64 `yaml:"independence_reduction" json:"independence_reduction"`

	// Daily satisfaction deltas applied while active.
	EliteDelta      float64 `yaml:"elite_delta,omitempty" json:"elite_delta,omitempty"`
	CommonerDelta   float64 `yaml:"commoner_delta,omitempty" json:"commoner_delta,omitempty"`
	UnderclassDelta float64 `yaml:"underclass_delta,omitempty" json:"underclass_delta,omitempty"`

	// Garrison: the player needs at least StrengthRatio of the vassal's
	// military for full effect, otherwise reduction is scaled by
	// IneffectiveFactor.
	StrengthRatio     float64 `yaml:"strength_ratio,omitempty" json:"strength_ratio,omitempty"`
	IneffectiveFactor float64 `yaml:"ineffective_factor,omitempty" json:"ineffective_factor,omitempty"`

	// Assimilation: daily cap reduction.
	CapReduction float64 `yaml:"cap_reduction,omitempty" json:"cap_reduction,omitempty"`

	// Economic aid: share of the cost credited to vassal wealth.
	WealthTransfer float64 `yaml:"wealth_transfer,omitempty" json:"wealth_transfer,omitempty"`
}

// Attribute names an official attribute.
type Attribute string

const (
	AttrPrestige       Attribute = "prestige"
	AttrAdministrative Attribute = "administrative"
	AttrMilitary       Attribute = "military"
	AttrLoyalty        Attribute = "loyalty"
)

// MandateConfig holds the modifiers of one governor mandate.
type MandateConfig struct {
	Focus                Attribute `yaml:"focus" json:"focus"`
	SuppressionModifier  float64   `yaml:"suppression_modifier" json:"suppression_modifier"`
	TributeModifier      float64   `yaml:"tribute_modifier" json:"tribute_modifier"`
	DailyUnrest          float64   `yaml:"daily_unrest,omitempty" json:"daily_unrest,omitempty"`
	CommonerDelta        float64   `yaml:"commoner_delta,omitempty" json:"commoner_delta,omitempty"`
	WealthPerAdmin       float64   `yaml:"wealth_per_admin,omitempty" json:"wealth_per_admin,omitempty"`
	CapReductionPerAdmin float64   `yaml:"cap_reduction_per_admin,omitempty" json:"cap_reduction_per_admin,omitempty"`
}

// GovernorConfig holds the governor scoring constants.
type GovernorConfig struct {
	FocusMultiplier        float64                   `yaml:"focus_multiplier" json:"focus_multiplier"`
	PrestigeSuppression    float64                   `yaml:"prestige_suppression" json:"prestige_suppression"`
	ReductionFloor         float64                   `yaml:"reduction_floor" json:"reduction_floor"`
	AdminTribute           float64                   `yaml:"admin_tribute" json:"admin_tribute"`
	AdminTributeMax        float64                   `yaml:"admin_tribute_max" json:"admin_tribute_max"`
	BaseCorruption         float64                   `yaml:"base_corruption" json:"base_corruption"`
	AdminCorruption        float64                   `yaml:"admin_corruption" json:"admin_corruption"`
	LoyaltyThreshold       float64                   `yaml:"loyalty_threshold" json:"loyalty_threshold"`
	LoyaltyCorruption      float64                   `yaml:"loyalty_corruption" json:"loyalty_corruption"`
	MaxCorruption          float64                   `yaml:"max_corruption" json:"max_corruption"`
	EliteSatisfaction      float64                   `yaml:"elite_satisfaction" json:"elite_satisfaction"`
	StabilityPerMilitary   float64                   `yaml:"stability_per_military" json:"stability_per_military"`
	BaseUpkeep             float64                   `yaml:"base_upkeep" json:"base_upkeep"`
	PrestigeUpkeep         float64                   `yaml:"prestige_upkeep" json:"prestige_upkeep"`
	CorruptionChanceBase   float64                   `yaml:"corruption_chance_base" json:"corruption_chance_base"`
	CorruptionChanceSpread float64                   `yaml:"corruption_chance_spread" json:"corruption_chance_spread"`
	CorruptionEventPenalty float64                   `yaml:"corruption_event_penalty" json:"corruption_event_penalty"`
	Mandates               map[Mandate]MandateConfig `yaml:"mandates" json:"mandates"`
}

// SizeBand maps vassal wealth below MaxWealth to a tribute multiplier.
// A band with MaxWealth 0 is open-ended.
type SizeBand struct {
	MaxWealth  float64 `yaml:"max_wealth" json:"max_wealth"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
}

// TributeConfig holds the tribute formula constants.
type TributeConfig struct {
	FixedMinimum  float64    `yaml:"fixed_minimum" json:"fixed_minimum"`
	PlayerRate    float64    `yaml:"player_rate" json:"player_rate"`
	VassalRate    float64    `yaml:"vassal_rate" json:"vassal_rate"`
	PeriodDays    int        `yaml:"period_days" json:"period_days"`
	ResourceShare float64    `yaml:"resource_share" json:"resource_share"`
	SizeBands     []SizeBand `yaml:"size_bands" json:"size_bands"`
}

// WarConfig holds the independence-war trigger constants.
type WarConfig struct {
	MinThreshold       float64 `yaml:"min_threshold" json:"min_threshold"`
	AtWarChance        float64 `yaml:"at_war_chance" json:"at_war_chance"`
	StabilityThreshold float64 `yaml:"stability_threshold" json:"stability_threshold"`
	InstabilityChance  float64 `yaml:"instability_chance" json:"instability_chance"`
	RelationThreshold  float64 `yaml:"relation_threshold" json:"relation_threshold"`
	ThirdPartyChance   float64 `yaml:"third_party_chance" json:"third_party_chance"`
}

// SatisfactionConfig scales pressure growth by average vassal satisfaction.
type SatisfactionConfig struct {
	Critical           float64 `yaml:"critical" json:"critical"`
	CriticalMultiplier float64 `yaml:"critical_multiplier" json:"critical_multiplier"`
	Low                float64 `yaml:"low" json:"low"`
	LowMultiplier      float64 `yaml:"low_multiplier" json:"low_multiplier"`
	High               float64 `yaml:"high" json:"high"`
	HighMultiplier     float64 `yaml:"high_multiplier" json:"high_multiplier"`
}

// Multiplier returns the growth factor for an average satisfaction.
func (s SatisfactionConfig) Multiplier(avg float64) float64 {
	switch {
	case avg < s.Critical:
		return s.CriticalMultiplier
	case avg < s.Low:
		return s.LowMultiplier
	case avg > s.High:
		return s.HighMultiplier
	}
	return 1
}

// Config is the full set of vassal constants.
type Config struct {
	Types          map[Type]TypeConfig         `yaml:"types" json:"types"`
	Measures       map[MeasureID]MeasureConfig `yaml:"measures" json:"measures"`
	EraMultipliers []float64                   `yaml:"era_multipliers" json:"era_multipliers"`
	Satisfaction   SatisfactionConfig          `yaml:"satisfaction" json:"satisfaction"`
	Labor          map[LaborPolicy]float64     `yaml:"labor" json:"labor"`
	Trade          map[TradePolicy]float64     `yaml:"trade" json:"trade"`
	InitialCap     float64                     `yaml:"initial_cap" json:"initial_cap"`
	CapFloor       float64                     `yaml:"cap_floor" json:"cap_floor"`
	AutonomyDrift  float64                     `yaml:"autonomy_drift" json:"autonomy_drift"`
	Governor       GovernorConfig              `yaml:"governor" json:"governor"`
	Tribute        TributeConfig               `yaml:"tribute" json:"tribute"`
	War            WarConfig                   `yaml:"war" json:"war"`
}

// DefaultConfig returns the standard vassal constants.
func DefaultConfig() Config {
	return Config{
		Types: map[Type]TypeConfig{
			TypeProtectorate: {BaseGrowth: 0.08, BaselineAutonomy: 70, TributeRate: 0.5, DiplomaticAutonomy: true},
			TypeTributary:    {BaseGrowth: 0.10, BaselineAutonomy: 50, TributeRate: 1.0, DiplomaticAutonomy: true},
			TypePuppet:       {BaseGrowth: 0.06, BaselineAutonomy: 30, TributeRate: 0.8},
			TypeColony:       {BaseGrowth: 0.04, BaselineAutonomy: 10, TributeRate: 1.2},
		},
		Measures: map[MeasureID]MeasureConfig{
			MeasureGovernor: {BaseCost: 50, ScalingFactor: 0.0005},
			MeasureGarrison: {
				BaseCost: 80, ScalingFactor: 0.001, IndependenceReduction: 0.15,
				CommonerDelta: -0.05, StrengthRatio: 0.5, IneffectiveFactor: 0.2,
			},
			MeasureAssimilation: {
				BaseCost: 60, ScalingFactor: 0.0008, IndependenceReduction: 0.02,
				EliteDelta: -0.02, CommonerDelta: -0.02, UnderclassDelta: -0.02, CapReduction: 0.02,
			},
			MeasureEconomicAid: {
				BaseCost: 100, ScalingFactor: 0.002, IndependenceReduction: 0.05,
				CommonerDelta: 0.05, UnderclassDelta: 0.08, WealthTransfer: 0.5,
			},
		},
		EraMultipliers: []float64{1.0, 1.1, 1.2, 1.35, 1.5},
		Satisfaction: SatisfactionConfig{
			Critical: 30, CriticalMultiplier: 2.0,
			Low: 45, LowMultiplier: 1.5,
			High: 70, HighMultiplier: 0.5,
		},
		Labor: map[LaborPolicy]float64{LaborStandard: 1.0, LaborForced: 1.5, LaborFree: 0.8},
		Trade: map[TradePolicy]float64{
			TradeStandard: 1.0, TradeMonopoly: 1.3, TradePreferential: 0.9, TradeFree: 0.8,
		},
		InitialCap:    100,
		CapFloor:      30,
		AutonomyDrift: 0.1,
		Governor: GovernorConfig{
			FocusMultiplier:        1.5,
			PrestigeSuppression:    0.02,
			ReductionFloor:         -0.5,
			AdminTribute:           0.02,
			AdminTributeMax:        2.0,
			BaseCorruption:         0.05,
			AdminCorruption:        0.002,
			LoyaltyThreshold:       40,
			LoyaltyCorruption:      0.002,
			MaxCorruption:          0.5,
			EliteSatisfaction:      0.005,
			StabilityPerMilitary:   0.01,
			BaseUpkeep:             30,
			PrestigeUpkeep:         0.5,
			CorruptionChanceBase:   0.01,
			CorruptionChanceSpread: 0.01,
			CorruptionEventPenalty: 0.3,
			Mandates: map[Mandate]MandateConfig{
				MandatePacify:  {Focus: AttrPrestige, SuppressionModifier: 2.0, TributeModifier: 0.8},
				MandateExploit: {Focus: AttrAdministrative, SuppressionModifier: 0.5, TributeModifier: 1.5, DailyUnrest: 0.1, CommonerDelta: -0.05},
				MandateDevelop: {Focus: AttrAdministrative, SuppressionModifier: 1.0, TributeModifier: 0.9, WealthPerAdmin: 0.5},
				MandateIntegrate: {
					Focus: AttrLoyalty, SuppressionModifier: 1.0, TributeModifier: 1.0,
					CapReductionPerAdmin: 0.001,
				},
			},
		},
		Tribute: TributeConfig{
			FixedMinimum:  50,
			PlayerRate:    0.002,
			VassalRate:    0.05,
			PeriodDays:    30,
			ResourceShare: 0.1,
			SizeBands: []SizeBand{
				{MaxWealth: 5000, Multiplier: 0.8},
				{MaxWealth: 20000, Multiplier: 1.0},
				{MaxWealth: 50000, Multiplier: 1.2},
				{Multiplier: 1.5},
			},
		},
		War: WarConfig{
			MinThreshold:       60,
			AtWarChance:        0.02,
			StabilityThreshold: 40,
			InstabilityChance:  0.015,
			RelationThreshold:  70,
			ThirdPartyChance:   0.01,
		},
	}
}

// LookupType returns the constants for t.
func (c *Config) LookupType(t Type) (TypeConfig, error) {
	tc, ok := c.Types[t]
	if !ok {
		return TypeConfig{}, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	return tc, nil
}

// LookupMeasure returns the constants for m.
func (c *Config) LookupMeasure(m MeasureID) (MeasureConfig, error) {
	mc, ok := c.Measures[m]
	if !ok {
		return MeasureConfig{}, fmt.Errorf("%w: %s", ErrUnknownMeasure, m)
	}
	return mc, nil
}

// LookupMandate returns the modifiers for m.
func (c *Config) LookupMandate(m Mandate) (MandateConfig, error) {
	mc, ok := c.Governor.Mandates[m]
	if !ok {
		return MandateConfig{}, fmt.Errorf("%w: %s", ErrUnknownMandate, m)
	}
	return mc, nil
}

// Era returns the pressure multiplier for an era index, clamped to the
// configured range.
func (c *Config) Era(era int) float64 {
	n := len(c.EraMultipliers)
	if n == 0 {
		return 1
	}
	if era < 0 {
		era = 0
	}
	if era >= n {
		era = n - 1
	}
	return c.EraMultipliers[era]
}

// SizeMultiplier returns the tribute multiplier for vassal wealth.
func (t TributeConfig) SizeMultiplier(wealth float64) float64 {
	for _, b := range t.SizeBands {
		if b.MaxWealth <= 0 || wealth < b.MaxWealth {
			return b.Multiplier
		}
	}
	return 1
}

// MeasureCost is the daily silver cost of a measure for a vassal of the
// given wealth.
func (c *Config) MeasureCost(m MeasureID, wealth float64) (float64, error) {
	mc, err := c.LookupMeasure(m)
	if err != nil {
		return 0, err
	}
	return measureCost(mc, wealth), nil
}

// Validate checks that every enum value has constants and that the configured
// ranges are coherent.
func (c *Config) Validate() error {
	for _, t := range Types {
		if _, err := c.LookupType(t); err != nil {
			return err
		}
	}
	for _, m := range MeasureIDs {
		if _, err := c.LookupMeasure(m); err != nil {
			return err
		}
	}
	for m := MandatePacify; m <= MandateIntegrate; m++ {
		if _, err := c.LookupMandate(m); err != nil {
			return err
		}
	}
	for l := LaborStandard; l <= LaborFree; l++ {
		if _, ok := c.Labor[l]; !ok {
			return fmt.Errorf("%w: labor %s has no multiplier", ErrUnknownPolicy, l)
		}
	}
	for t := TradeStandard; t <= TradeFree; t++ {
		if _, ok := c.Trade[t]; !ok {
			return fmt.Errorf("%w: trade %s has no multiplier", ErrUnknownPolicy, t)
		}
	}
	if c.CapFloor < 0 || c.CapFloor > c.InitialCap {
		return fmt.Errorf("cap floor %.1f outside [0, %.1f]", c.CapFloor, c.InitialCap)
	}
	if c.Tribute.PeriodDays <= 0 {
		return fmt.Errorf("tribute period must be positive, got %d", c.Tribute.PeriodDays)
	}
	return nil
}

func measureCost(mc MeasureConfig, wealth float64) float64 {
	return mc.BaseCost + math.Floor(economy.Sanitize(wealth)*mc.ScalingFactor)
}
