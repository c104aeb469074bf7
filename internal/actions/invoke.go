package actions

import (
	"fmt"
	"sort"

	"github.com/talgya/hegemon/internal/demands"
	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/organization"
)

// Key identifies a cooldown slot.
type Key struct {
	Stratum economy.StratumID `json:"stratum"`
	Action  string            `json:"action"`
}

// Cooldowns records the last day each (stratum, action) pair was invoked.
type Cooldowns map[Key]int

// ReadyDay is the first day the action may be invoked again for stratum.
// ok is false if the pair was never invoked.
func (c Cooldowns) ReadyDay(stratum economy.StratumID, a Action) (day int, ok bool) {
	last, ok := c[Key{stratum, a.ID}]
	if !ok {
		return 0, false
	}
	return last + a.CooldownDays, true
}

// Entries returns cooldowns sorted by stratum then action.
func (c Cooldowns) Entries() []CooldownEntry {
	out := make([]CooldownEntry, 0, len(c))
	for k, d := range c {
		out = append(out, CooldownEntry{Key: k, LastDay: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stratum != out[j].Stratum {
			return out[i].Stratum < out[j].Stratum
		}
		return out[i].Action < out[j].Action
	})
	return out
}

// CooldownEntry is a flattened cooldown for listing and persistence.
type CooldownEntry struct {
	Key
	LastDay int `json:"last_day"`
}

// Context is the state an eligibility check reads.
type Context struct {
	Stratum  economy.StratumID
	Day      int
	Stage    organization.Stage
	Approval float64
	Treasury float64
}

// Check returns nil if a may be invoked in ctx.
func Check(a Action, ctx Context, cd Cooldowns) error {
	if ready, ok := cd.ReadyDay(ctx.Stratum, a); ok && ctx.Day < ready {
		return fmt.Errorf("%w: %s ready on day %d", ErrOnCooldown, a.ID, ready)
	}
	if ctx.Treasury < a.Cost {
		return fmt.Errorf("%w: %s costs %.0f, treasury %.0f", ErrInsufficientFunds, a.ID, a.Cost, ctx.Treasury)
	}
	if ctx.Stage < a.MinStage {
		return fmt.Errorf("%w: %s requires %s, stratum is %s", ErrPrecondition, a.ID, a.MinStage, ctx.Stage)
	}
	return nil
}

// Outcome is the effect of a successful invocation, for the caller to apply.
type Outcome struct {
	Action            string                    `json:"action"`
	Stratum           economy.StratumID         `json:"stratum"`
	Day               int                       `json:"day"`
	Cost              float64                   `json:"cost"`
	OrganizationDelta float64                   `json:"organization_delta"`
	ApprovalDelta     float64                   `json:"approval_delta"`
	Suppression       *organization.Suppression `json:"suppression,omitempty"`
	Promise           *demands.PromiseTask      `json:"promise,omitempty"`
}

// Invoke checks eligibility, records the cooldown, and returns the effect.
func Invoke(a Action, ctx Context, cd Cooldowns) (Outcome, error) {
	if err := Check(a, ctx, cd); err != nil {
		return Outcome{}, err
	}
	cd[Key{ctx.Stratum, a.ID}] = ctx.Day

	out := Outcome{
		Action:            a.ID,
		Stratum:           ctx.Stratum,
		Day:               ctx.Day,
		Cost:              a.Cost,
		OrganizationDelta: a.Effect.Organization,
		ApprovalDelta:     a.Effect.Approval,
	}
	if s := a.Effect.Suppression; s != nil {
		out.Suppression = &organization.Suppression{
			ActionID:           a.ID,
			Multiplier:         s.Multiplier,
			OrganizationPerDay: s.OrganizationPerDay,
			UntilDay:           ctx.Day + s.Days,
		}
	}
	if p := a.Effect.Promise; p != nil {
		task := demands.NewPromise(ctx.Stratum, a.ID, ctx.Day, ctx.Approval, p.ApprovalGain, p.Days, p.Penalty)
		out.Promise = &task
	}
	return out, nil
}
