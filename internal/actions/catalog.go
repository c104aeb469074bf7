// Package actions is the catalog of player counter-measures against
// stratum unrest, with their costs, cooldowns and preconditions.
package actions

import (
	"errors"
	"fmt"

	"github.com/talgya/hegemon/internal/organization"
)

var (
	ErrUnknownAction     = errors.New("unknown strategic action")
	ErrOnCooldown        = errors.New("action on cooldown")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPrecondition      = errors.New("stratum does not meet action precondition")
)

// SuppressionSpec installs a temporary growth dampener.
type SuppressionSpec struct {
	Multiplier         float64 `yaml:"multiplier" json:"multiplier"`
	OrganizationPerDay float64 `yaml:"organization_per_day,omitempty" json:"organization_per_day,omitempty"`
	Days               int     `yaml:"days" json:"days"`
}

// PromiseSpec creates an approval promise task.
type PromiseSpec struct {
	ApprovalGain float64 `yaml:"approval_gain" json:"approval_gain"`
	Days         int     `yaml:"days" json:"days"`
	Penalty      float64 `yaml:"penalty" json:"penalty"`
}

// Effect is what invoking an action does.
type Effect struct {
	Organization float64          `yaml:"organization,omitempty" json:"organization,omitempty"`
	Approval     float64          `yaml:"approval,omitempty" json:"approval,omitempty"`
	Suppression  *SuppressionSpec `yaml:"suppression,omitempty" json:"suppression,omitempty"`
	Promise      *PromiseSpec     `yaml:"promise,omitempty" json:"promise,omitempty"`
}

// Action is one entry of the catalog.
type Action struct {
	ID           string             `yaml:"id" json:"id"`
	Name         string             `yaml:"name" json:"name"`
	Cost         float64            `yaml:"cost" json:"cost"` // Silver
	CooldownDays int                `yaml:"cooldown_days" json:"cooldown_days"`
	MinStage     organization.Stage `yaml:"min_stage" json:"min_stage"`
	Effect       Effect             `yaml:"effect" json:"effect"`
}

// Catalog is the immutable set of actions, in declaration order.
type Catalog struct {
	actions []Action
	byID    map[string]int
}

// NewCatalog validates and indexes a list of actions.
func NewCatalog(list []Action) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(list))}
	for _, a := range list {
		if a.ID == "" {
			return nil, fmt.Errorf("action %q: missing id", a.Name)
		}
		if _, dup := c.byID[a.ID]; dup {
			return nil, fmt.Errorf("action %q: duplicate id", a.ID)
		}
		if a.Cost < 0 || a.CooldownDays < 0 {
			return nil, fmt.Errorf("action %q: cost and cooldown must not be negative", a.ID)
		}
		if p := a.Effect.Promise; p != nil && p.Days <= 0 {
			return nil, fmt.Errorf("action %q: promise days must be positive", a.ID)
		}
		if s := a.Effect.Suppression; s != nil && (s.Days <= 0 || s.Multiplier < 0) {
			return nil, fmt.Errorf("action %q: invalid suppression", a.ID)
		}
		c.byID[a.ID] = len(c.actions)
		c.actions = append(c.actions, a)
	}
	return c, nil
}

// Lookup returns the action with id.
func (c *Catalog) Lookup(id string) (Action, error) {
	i, ok := c.byID[id]
	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, id)
	}
	return c.actions[i], nil
}

// All returns a copy of the catalog in declaration order.
func (c *Catalog) All() []Action {
	return append([]Action(nil), c.actions...)
}

// DefaultActions returns the standard catalog.
func DefaultActions() []Action {
	return []Action{
		{
			ID: "concessions", Name: "Grant Concessions", Cost: 500, CooldownDays: 30,
			MinStage: organization.StageDiscontent,
			Effect:   Effect{Organization: -10, Approval: 5},
		},
		{
			ID: "crackdown", Name: "Crack Down", Cost: 300, CooldownDays: 20,
			MinStage: organization.StageMobilizing,
			Effect: Effect{
				Organization: -15, Approval: -10,
				Suppression: &SuppressionSpec{Multiplier: 0.5, Days: 15},
			},
		},
		{
			ID: "propaganda", Name: "Spread Propaganda", Cost: 200, CooldownDays: 15,
			MinStage: organization.StageCalm,
			Effect: Effect{
				Approval:    2,
				Suppression: &SuppressionSpec{Multiplier: 0.8, Days: 10},
			},
		},
		{
			ID: "coopt_leaders", Name: "Co-opt Leaders", Cost: 800, CooldownDays: 45,
			MinStage: organization.StageRadical,
			Effect:   Effect{Organization: -25},
		},
		{
			ID: "promise_reform", Name: "Promise Reform", Cost: 0, CooldownDays: 60,
			MinStage: organization.StageDiscontent,
			Effect: Effect{
				Organization: -8,
				Promise:      &PromiseSpec{ApprovalGain: 15, Days: 30, Penalty: 20},
			},
		},
		{
			ID: "promise_relief", Name: "Promise Relief", Cost: 100, CooldownDays: 40,
			MinStage: organization.StageDiscontent,
			Effect: Effect{
				Organization: -5,
				Promise:      &PromiseSpec{ApprovalGain: 10, Days: 20, Penalty: 15},
			},
		},
	}
}
