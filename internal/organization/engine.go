package organization

import (
	"math"

	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/grievance"
)

// Config holds the growth-rate policy.
type Config struct {
	GrowthPerContribution float64 `yaml:"growth_per_contribution"`
	NaturalDecay          float64 `yaml:"natural_decay"`       // Applied when there is no grievance
	HighApproval          float64 `yaml:"high_approval"`       // Approval at or above which calm deepens
	HighApprovalDecay     float64 `yaml:"high_approval_decay"` // Extra decay at high approval
	CoalitionDamping      float64 `yaml:"coalition_damping"`   // Fraction of growth removed per unit of coalition share
	Damping               float64 `yaml:"-"`                   // Difficulty multiplier, resolved by config
}

// DefaultConfig returns the standard growth policy at normal difficulty.
func DefaultConfig() Config {
	return Config{
		GrowthPerContribution: 0.15,
		NaturalDecay:          0.5,
		HighApproval:          70,
		HighApprovalDecay:     0.2,
		CoalitionDamping:      0.5,
		Damping:               1.0,
	}
}

// Suppression is a temporary dampener installed by a strategic action.
type Suppression struct {
	ActionID           string  `json:"action_id"`
	Multiplier         float64 `json:"multiplier"`           // Applied to positive growth
	OrganizationPerDay float64 `json:"organization_per_day"` // Flat daily delta, usually negative
	UntilDay           int     `json:"until_day"`            // Exclusive
}

// Active reports whether the suppression applies on day.
func (s Suppression) Active(day int) bool {
	return day < s.UntilDay
}

// State is one stratum's political state.
type State struct {
	Stratum      economy.StratumID `json:"stratum"`
	Organization float64           `json:"organization"`
	GrowthRate   float64           `json:"growth_rate"` // Derived each tick
	Suppressions []Suppression     `json:"suppressions,omitempty"`
}

// Stage is derived from Organization on every call.
func (s *State) Stage() Stage {
	return StageOf(s.Organization)
}

// Inputs are the per-tick drivers of growth.
type Inputs struct {
	Day      int
	Report   grievance.Report
	Approval float64
	Standing economy.CoalitionStanding
}

// Transition describes a change to the organization score.
type Transition struct {
	Before      float64 `json:"before"`
	After       float64 `json:"after"`
	StageBefore Stage   `json:"stage_before"`
	StageAfter  Stage   `json:"stage_after"`
	Uprising    bool    `json:"uprising"` // Crossed into the uprising band on this change
}

// GrowthRate computes the signed daily delta for the given inputs.
func GrowthRate(cfg Config, in Inputs, suppressions []Suppression) float64 {
	total := economy.Sanitize(in.Report.TotalContribution)

	growth := -cfg.NaturalDecay
	if total > 0 {
		growth = total * cfg.GrowthPerContribution
	}
	if economy.Clamp(in.Approval, 0, 100) >= cfg.HighApproval {
		growth -= cfg.HighApprovalDecay
	}

	if growth > 0 {
		sens := in.Standing.Sensitivity
		if math.IsNaN(sens) || sens < 0 {
			sens = 1
		}
		growth *= sens
		if in.Standing.InCoalition {
			growth *= 1 - cfg.CoalitionDamping*economy.Clamp(in.Standing.Share, 0, 1)
		}
		damping := cfg.Damping
		if damping <= 0 || math.IsNaN(damping) {
			damping = 1
		}
		growth *= damping
		for _, sup := range suppressions {
			if sup.Active(in.Day) {
				growth *= economy.Clamp(sup.Multiplier, 0, 1)
			}
		}
	}

	for _, sup := range suppressions {
		if sup.Active(in.Day) {
			growth += sup.OrganizationPerDay
		}
	}

	if math.IsNaN(growth) || math.IsInf(growth, 0) {
		return 0
	}
	return growth
}

// Step recomputes the growth rate, integrates it, and clamps the result.
func (s *State) Step(cfg Config, in Inputs) Transition {
	s.GrowthRate = GrowthRate(cfg, in, s.Suppressions)
	return s.Adjust(s.GrowthRate)
}

// Adjust applies a one-off delta (penalty or relief) to the score.
func (s *State) Adjust(delta float64) Transition {
	before := economy.Clamp(s.Organization, 0, MaxOrganization)
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		delta = 0
	}
	after := economy.Clamp(before+delta, 0, MaxOrganization)
	s.Organization = after
	return Transition{
		Before:      before,
		After:       after,
		StageBefore: StageOf(before),
		StageAfter:  StageOf(after),
		Uprising:    before < UprisingThreshold && after >= UprisingThreshold,
	}
}

// PruneSuppressions drops suppressions that no longer apply on day.
func (s *State) PruneSuppressions(day int) []Suppression {
	var expired []Suppression
	n := 0
	for _, sup := range s.Suppressions {
		if sup.Active(day) {
			s.Suppressions[n] = sup
			n++
		} else {
			expired = append(expired, sup)
		}
	}
	s.Suppressions = s.Suppressions[:n]
	return expired
}

// MaxPredictedDays bounds PredictDaysToUprising. Longer horizons report no
// uprising at all.
const MaxPredictedDays = 100_000

// PredictDaysToUprising estimates the days until organization reaches the
// top of the scale. ok is false when growth is not positive or the horizon
// exceeds MaxPredictedDays.
func PredictDaysToUprising(org, growth float64) (days int, ok bool) {
	if growth <= 0 || math.IsNaN(growth) || math.IsNaN(org) {
		return 0, false
	}
	remaining := MaxOrganization - economy.Clamp(org, 0, MaxOrganization)
	d := math.Ceil(remaining / growth)
	if d > MaxPredictedDays {
		return 0, false
	}
	return int(d), true
}
