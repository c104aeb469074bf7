// Package demands generates and resolves the time-boxed asks a discontented
// stratum makes of the crown, and the approval promises the crown makes
// back. Failure of either escalates organization.
package demands

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/organization"
)

// ErrUnknownType is returned for a demand type with no configuration.
var ErrUnknownType = errors.New("unknown demand type")

// Type is the closed set of demand kinds.
type Type uint8

const (
	TypeTaxRelief   Type = iota // Lower the head tax
	TypeSubsidy                 // Pay living subsidies
	TypeResource                // Restock basic goods
	TypePriceRelief             // Make basic goods affordable again
	TypePolitical               // Grant representation
)

// Types lists every demand type in generation order.
var Types = [...]Type{TypeTaxRelief, TypeSubsidy, TypeResource, TypePriceRelief, TypePolitical}

var typeNames = [...]string{"tax_relief", "subsidy", "resource", "price_relief", "political"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("demand(%d)", uint8(t))
}

// MarshalText encodes the type by name.
func (t Type) MarshalText() ([]byte, error) {
	if int(t) >= len(typeNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
	return []byte(typeNames[t]), nil
}

// UnmarshalText decodes a type name, rejecting unknown names.
func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseType maps a name to a demand type.
func ParseType(name string) (Type, error) {
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// TypeConfig is the per-type policy.
type TypeConfig struct {
	DeadlineDays   int                `yaml:"deadline_days"`
	FailurePenalty float64            `yaml:"failure_penalty"`
	MinStage       organization.Stage `yaml:"min_stage"`
	RequiredDays   int                `yaml:"required_days,omitempty"`  // Consecutive compliant days
	TaxTarget      float64            `yaml:"tax_target,omitempty"`     // Head-tax multiplier to hold at or below
	LivingTrigger  float64            `yaml:"living_trigger,omitempty"` // Living-standard ratio below which subsidies are asked for
	SubsidyShare   float64            `yaml:"subsidy_share,omitempty"`  // Requested subsidy as a share of income
	ApprovalBar    float64            `yaml:"approval_bar,omitempty"`
}

// Config maps every type to its policy.
type Config map[Type]TypeConfig

// DefaultConfig returns the standard demand policy.
func DefaultConfig() Config {
	return Config{
		TypeTaxRelief: {
			DeadlineDays: 30, FailurePenalty: 15, MinStage: organization.StageDiscontent,
			RequiredDays: 10, TaxTarget: 1.0,
		},
		TypeSubsidy: {
			DeadlineDays: 35, FailurePenalty: 12, MinStage: organization.StageDiscontent,
			RequiredDays: 7, LivingTrigger: 0.5, SubsidyShare: 0.1,
		},
		TypeResource: {
			DeadlineDays: 20, FailurePenalty: 10, MinStage: organization.StageDiscontent,
		},
		TypePriceRelief: {
			DeadlineDays: 25, FailurePenalty: 10, MinStage: organization.StageDiscontent,
		},
		TypePolitical: {
			DeadlineDays: 45, FailurePenalty: 25, MinStage: organization.StageMobilizing,
			ApprovalBar: 60,
		},
	}
}

// Lookup returns the policy for t or ErrUnknownType.
func (c Config) Lookup(t Type) (TypeConfig, error) {
	tc, ok := c[t]
	if !ok {
		return TypeConfig{}, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	return tc, nil
}

// Validate checks that every known type is configured.
func (c Config) Validate() error {
	for _, t := range Types {
		tc, err := c.Lookup(t)
		if err != nil {
			return err
		}
		if tc.DeadlineDays <= 0 {
			return fmt.Errorf("demand %s: deadline_days must be positive", t)
		}
		if tc.FailurePenalty < 0 {
			return fmt.Errorf("demand %s: failure_penalty must not be negative", t)
		}
	}
	return nil
}

// Penalty is what a failed demand or promise costs.
type Penalty struct {
	Organization float64 `json:"organization"`
}

// Demand is an explicit ask with a deadline.
type Demand struct {
	ID             string             `json:"id"`
	Stratum        economy.StratumID  `json:"stratum"`
	Type           Type               `json:"type"`
	CreatedDay     int                `json:"created_day"`
	DeadlineDay    int                `json:"deadline_day"`
	Resources      []economy.Resource `json:"resources,omitempty"`
	TargetTax      float64            `json:"target_tax,omitempty"`
	TargetSubsidy  float64            `json:"target_subsidy,omitempty"`
	TargetApproval float64            `json:"target_approval,omitempty"`
	RequiredDays   int                `json:"required_days,omitempty"`
	ProgressDays   int                `json:"progress_days,omitempty"`
	FailurePenalty Penalty            `json:"failure_penalty"`
}

// RemainingDays is the number of days left before the deadline, never negative.
func (d Demand) RemainingDays(day int) int {
	if r := d.DeadlineDay - day; r > 0 {
		return r
	}
	return 0
}

// PromiseTask is a crown pledge to raise approval by a deadline.
type PromiseTask struct {
	ID             string            `json:"id"`
	Stratum        economy.StratumID `json:"stratum"`
	ActionID       string            `json:"action_id"`
	TargetApproval float64           `json:"target_approval"`
	CreatedDay     int               `json:"created_day"`
	DeadlineDay    int               `json:"deadline_day"`
	FailurePenalty Penalty           `json:"failure_penalty"`
}

// RemainingDays is the number of days left before the deadline, never negative.
func (p PromiseTask) RemainingDays(day int) int {
	if r := p.DeadlineDay - day; r > 0 {
		return r
	}
	return 0
}

// Outcome is how an ask ended.
type Outcome uint8

const (
	OutcomeFulfilled Outcome = iota
	OutcomeFailed
)

func (o Outcome) String() string {
	if o == OutcomeFulfilled {
		return "fulfilled"
	}
	return "failed"
}

// Resolution records a demand or promise leaving the active set.
type Resolution struct {
	ID      string            `json:"id"`
	Stratum economy.StratumID `json:"stratum"`
	Kind    string            `json:"kind"` // Demand type name, or "promise"
	Outcome Outcome           `json:"outcome"`
	Penalty float64           `json:"penalty"` // Organization points to apply, 0 on fulfillment
	Day     int               `json:"day"`
}

var idNamespace = uuid.MustParse("6f1c3a52-7f0e-4d5b-9a43-2d8f0b7e6c11")

// NewID derives a stable id from the parts that make an ask unique, so
// replays with the same inputs produce the same ids.
func NewID(kind string, stratum economy.StratumID, day int) string {
	name := fmt.Sprintf("%s/%s/%d", kind, stratum, day)
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}
