package vassal

import (
	"fmt"
	"math"

	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/officials"
)

// Officials resolves governor ids.
type Officials interface {
	Lookup(id officials.OfficialID) (officials.Official, bool)
}

// StepInput is the world state a daily vassal step reads.
type StepInput struct {
	Day       int
	Era       int
	Nation    economy.NationSnapshot
	Player    economy.PlayerSnapshot
	Officials Officials
	Rand      Rand
}

// MeasureReport is the daily effect of one active measure.
type MeasureReport struct {
	Measure   MeasureID `json:"measure"`
	Cost      float64   `json:"cost"`
	Reduction float64   `json:"reduction"`
	Effective bool      `json:"effective"`
	Warning   string    `json:"warning,omitempty"`
}

// StepResult is everything a daily step produced, for the caller to book.
type StepResult struct {
	Nation          economy.NationID                `json:"nation"`
	Measures        []MeasureReport                 `json:"measures"`
	ControlCost     float64                         `json:"control_cost"`
	RawGrowth       float64                         `json:"raw_growth"`
	Growth          float64                         `json:"growth"`
	PressureBefore  float64                         `json:"pressure_before"`
	PressureAfter   float64                         `json:"pressure_after"`
	CapBefore       float64                         `json:"cap_before"`
	CapAfter        float64                         `json:"cap_after"`
	Governor        *GovernorEffects                `json:"governor,omitempty"`
	CorruptionEvent bool                            `json:"corruption_event"`
	Satisfaction    map[economy.SocialClass]float64 `json:"satisfaction"`
	WealthCredit    float64                         `json:"wealth_credit"`
	MissingGovernor officials.OfficialID            `json:"missing_governor,omitempty"`
	Stability       float64                         `json:"stability"` // Realm stability from governors
	War             WarCheck                        `json:"war"`
	Warnings        []string                        `json:"warnings,omitempty"`
}

// GarrisonStatus reports the player military needed for a fully effective
// garrison against a vassal with the given military.
func GarrisonStatus(mc MeasureConfig, playerMilitary, vassalMilitary float64) (required float64, effective bool) {
	required = economy.Sanitize(vassalMilitary) * mc.StrengthRatio
	return required, economy.Sanitize(playerMilitary) >= required
}

// RawGrowth is the pressure growth before measures: base type growth scaled
// by era, satisfaction, labor and trade policy.
func RawGrowth(cfg *Config, v *State, era int, avgSatisfaction float64) (float64, error) {
	tc, err := cfg.LookupType(v.Type)
	if err != nil {
		return 0, err
	}
	labor, ok := cfg.Labor[v.Labor]
	if !ok {
		return 0, fmt.Errorf("%w: labor %s", ErrUnknownPolicy, v.Labor)
	}
	trade, ok := cfg.Trade[v.Trade]
	if !ok {
		return 0, fmt.Errorf("%w: trade %s", ErrUnknownPolicy, v.Trade)
	}
	return tc.BaseGrowth * cfg.Era(era) * cfg.Satisfaction.Multiplier(avgSatisfaction) * labor * trade, nil
}

// Step advances v by one day: measures are applied and billed, pressure is
// integrated against the cap, the war trigger is evaluated and autonomy
// drifts. A fired war leaves v untouched past the pressure step; the caller
// converts the nation back to a sovereign.
func Step(cfg *Config, v *State, in StepInput) (StepResult, error) {
	tc, err := cfg.LookupType(v.Type)
	if err != nil {
		return StepResult{}, err
	}
	v.Normalize(cfg)

	res := StepResult{
		Nation:         v.Nation,
		PressureBefore: v.IndependencePressure,
		CapBefore:      v.IndependenceCap,
		Satisfaction:   make(map[economy.SocialClass]float64),
	}
	wealth := economy.Sanitize(in.Nation.Wealth)

	var reduction float64
	for _, id := range v.ActiveMeasures() {
		mc, err := cfg.LookupMeasure(id)
		if err != nil {
			return StepResult{}, err
		}
		rep := MeasureReport{Measure: id, Cost: measureCost(mc, wealth)}

		switch id {
		case MeasureGovernor:
			if _, err := cfg.LookupMandate(v.Mandate); err != nil {
				return StepResult{}, err
			}
			var off officials.Official
			found := false
			if in.Officials != nil {
				off, found = in.Officials.Lookup(v.Measures[id].Governor)
			}
			if !found {
				res.MissingGovernor = v.Measures[id].Governor
				rep.Warning = fmt.Sprintf("governor %q not found, measure billed without effect", v.Measures[id].Governor)
				break
			}
			eff := ScoreGovernor(cfg, &off, v.Mandate, v)
			res.CorruptionEvent = RollCorruption(cfg, &eff, in.Rand)
			res.Governor = &eff
			rep.Effective = true
			rep.Cost += eff.TotalCost
			rep.Reduction = eff.IndependenceReduction
			res.Satisfaction[economy.ClassElite] += eff.EliteSatisfaction
			res.Satisfaction[economy.ClassCommoner] += eff.CommonerSatisfaction
			res.WealthCredit += eff.WealthGrowth
			res.Stability += eff.Stability
			v.IndependenceCap = math.Max(cfg.CapFloor, v.IndependenceCap-eff.IndependenceCapReduction)

		case MeasureGarrison:
			_, effective := GarrisonStatus(mc, in.Player.Military, in.Nation.Military)
			rep.Effective = effective
			rep.Reduction = mc.IndependenceReduction
			if !effective {
				rep.Reduction *= mc.IneffectiveFactor
				rep.Warning = "garrison under strength"
			}

		case MeasureAssimilation:
			rep.Effective = true
			rep.Reduction = mc.IndependenceReduction
			v.IndependenceCap = math.Max(cfg.CapFloor, v.IndependenceCap-mc.CapReduction)

		case MeasureEconomicAid:
			rep.Effective = true
			rep.Reduction = mc.IndependenceReduction
			res.WealthCredit += rep.Cost * mc.WealthTransfer
		}

		res.Satisfaction[economy.ClassElite] += mc.EliteDelta
		res.Satisfaction[economy.ClassCommoner] += mc.CommonerDelta
		res.Satisfaction[economy.ClassUnderclass] += mc.UnderclassDelta

		if rep.Warning != "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %s", id, rep.Warning))
		}
		reduction += rep.Reduction
		res.ControlCost += rep.Cost
		res.Measures = append(res.Measures, rep)
	}

	raw, err := RawGrowth(cfg, v, in.Era, in.Nation.AverageSatisfaction())
	if err != nil {
		return StepResult{}, err
	}
	res.RawGrowth = raw

	// A lowered cap pulls pressure down with it.
	v.IndependencePressure = math.Min(v.IndependencePressure, v.IndependenceCap)

	// Pressure at the cap holds; measures only act below it.
	growth := raw - reduction
	if v.IndependencePressure >= v.IndependenceCap {
		growth = 0
	}
	before := v.IndependencePressure
	v.IndependencePressure = economy.Clamp(v.IndependencePressure+growth, 0, v.IndependenceCap)
	res.Growth = v.IndependencePressure - before
	res.PressureAfter = v.IndependencePressure
	res.CapAfter = v.IndependenceCap

	res.War = CheckWar(cfg.War, WarInput{
		Pressure:  v.IndependencePressure,
		AtWar:     in.Player.AtWar,
		Stability: in.Player.Stability,
		Relations: in.Nation.Relations,
	}, in.Rand)
	if res.War.Fired {
		return res, nil
	}

	if v.IndependencePressure < v.IndependenceCap && v.Type != TypeColony {
		v.Autonomy = driftToward(v.Autonomy, tc.BaselineAutonomy, cfg.AutonomyDrift)
	}
	return res, nil
}

func driftToward(v, target, step float64) float64 {
	switch {
	case v < target:
		return math.Min(target, v+step)
	case v > target:
		return math.Max(target, v-step)
	}
	return v
}
