package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hegemon/internal/actions"
	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/officials"
	"github.com/talgya/hegemon/internal/vassal"
)

// MaxTributeRate bounds the tribute rate a player may impose.
const MaxTributeRate = 2.0

// InvokeAction applies a strategic counter-measure to a stratum. The
// organization effect is immediate; silver and approval are booked with the
// next tick's flows.
func (s *Simulation) InvokeAction(stratum economy.StratumID, actionID string) (actions.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.catalog.Strategic().Lookup(actionID)
	if err != nil {
		return actions.Outcome{}, err
	}
	if _, ok := s.lastSnap.Strata[stratum]; !ok {
		return actions.Outcome{}, fmt.Errorf("%w: %q", economy.ErrUnknownStratum, stratum)
	}
	st := s.stratum(stratum)
	out, err := actions.Invoke(a, actions.Context{
		Stratum:  stratum,
		Day:      s.day,
		Stage:    st.Stage(),
		Approval: st.Approval,
		Treasury: s.availableTreasury(),
	}, s.cooldowns)
	if err != nil {
		return actions.Outcome{}, err
	}

	if out.OrganizationDelta != 0 {
		tr := st.Adjust(out.OrganizationDelta)
		s.noteTransition(s.day, stratum, tr, "action "+a.ID, nil)
	}
	if out.Suppression != nil {
		st.Suppressions = append(st.Suppressions, *out.Suppression)
	}
	if out.Promise != nil {
		st.Promises = append(st.Promises, *out.Promise)
	}
	s.pending.ActionCosts += out.Cost
	s.pending.AddApproval(stratum, out.ApprovalDelta)

	slog.Info("strategic action", "stratum", stratum, "action", a.ID, "cost", humanize.Commaf(out.Cost), "organization", fmt.Sprintf("%.1f", st.Organization))
	s.events.emit(Event{
		Day:         s.day,
		Category:    CatAction,
		Description: fmt.Sprintf("The crown enacts %s toward the %s", a.Name, stratum),
		Meta:        map[string]any{"stratum": stratum, "action": a.ID, "cost": out.Cost},
	})
	return out, nil
}

// availableTreasury is the last reported treasury less silver already
// committed since.
func (s *Simulation) availableTreasury() float64 {
	return s.lastSnap.Player.Treasury - s.pending.ActionCosts
}

// EstablishVassal subordinates a nation the economy knows about.
func (s *Simulation) EstablishVassal(nation economy.NationID, t vassal.Type) (*vassal.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vassals[nation]; ok {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyVassal, nation)
	}
	if _, ok := s.lastSnap.Nations[nation]; !ok {
		return nil, fmt.Errorf("%w: %q", economy.ErrUnknownNation, nation)
	}
	v, err := vassal.Establish(&s.catalog.Vassal, nation, t, s.day)
	if err != nil {
		return nil, err
	}
	s.vassals[nation] = v

	slog.Info("vassal established", "nation", nation, "type", t.String())
	s.events.emit(Event{
		Day:         s.day,
		Category:    CatVassal,
		Description: fmt.Sprintf("%s becomes a %s of the crown", nation, t),
		Meta:        map[string]any{"nation": nation, "type": t.String()},
	})
	return copyVassal(v), nil
}

// ReleaseVassal ends a vassal relationship peacefully.
func (s *Simulation) ReleaseVassal(nation economy.NationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vassals[nation]; !ok {
		return fmt.Errorf("%w: %q", ErrNotVassal, nation)
	}
	delete(s.vassals, nation)
	delete(s.lastSteps, nation)

	slog.Info("vassal released", "nation", nation)
	s.events.emit(Event{
		Day:         s.day,
		Category:    CatVassal,
		Description: fmt.Sprintf("%s is released from vassalage", nation),
		Meta:        map[string]any{"nation": nation},
	})
	return nil
}

// SetMeasure turns a control measure on or off.
func (s *Simulation) SetMeasure(nation economy.NationID, m vassal.MeasureID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.vassal(nation)
	if err != nil {
		return err
	}
	if _, err := s.catalog.Vassal.LookupMeasure(m); err != nil {
		return err
	}
	v.SetMeasure(m, active)

	state := "lifted"
	if active {
		state = "imposed"
	}
	slog.Info("control measure", "nation", nation, "measure", m.String(), "active", active)
	s.events.emit(Event{
		Day:         s.day,
		Category:    CatVassal,
		Description: fmt.Sprintf("%s %s on %s", m, state, nation),
		Meta:        map[string]any{"nation": nation, "measure": m.String(), "active": active},
	})
	return nil
}

// AssignGovernor appoints an official to govern a vassal under mandate and
// activates the governor measure.
func (s *Simulation) AssignGovernor(nation economy.NationID, id officials.OfficialID, mandate vassal.Mandate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.vassal(nation)
	if err != nil {
		return err
	}
	if _, err := s.catalog.Vassal.LookupMandate(mandate); err != nil {
		return err
	}
	o, ok := s.officials.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOfficial, id)
	}
	v.Appoint(id, mandate)

	slog.Info("governor appointed", "nation", nation, "official", id, "mandate", mandate.String())
	s.events.emit(Event{
		Day:         s.day,
		Category:    CatGovernor,
		Description: fmt.Sprintf("%s is appointed governor of %s to %s", o.Name, nation, mandate),
		Meta:        map[string]any{"nation": nation, "official": id, "mandate": mandate.String()},
	})
	return nil
}

// VassalPolicy is a partial policy change; nil fields are left alone.
type VassalPolicy struct {
	Labor       *vassal.LaborPolicy `json:"labor,omitempty"`
	Trade       *vassal.TradePolicy `json:"trade,omitempty"`
	TributeRate *float64            `json:"tribute_rate,omitempty"`
}

// SetVassalPolicy changes a vassal's labor, trade or tribute policy.
func (s *Simulation) SetVassalPolicy(nation economy.NationID, p VassalPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.vassal(nation)
	if err != nil {
		return err
	}
	if p.Labor != nil {
		if _, ok := s.catalog.Vassal.Labor[*p.Labor]; !ok {
			return fmt.Errorf("%w: %d", vassal.ErrUnknownPolicy, *p.Labor)
		}
	}
	if p.Trade != nil {
		if _, ok := s.catalog.Vassal.Trade[*p.Trade]; !ok {
			return fmt.Errorf("%w: %d", vassal.ErrUnknownPolicy, *p.Trade)
		}
	}
	if r := p.TributeRate; r != nil && (*r < 0 || *r > MaxTributeRate || math.IsNaN(*r)) {
		return fmt.Errorf("%w: tribute rate %.2f outside [0, %.1f]", economy.ErrOutOfRange, *r, MaxTributeRate)
	}

	meta := map[string]any{"nation": nation}
	if p.Labor != nil {
		v.Labor = *p.Labor
		meta["labor"] = v.Labor.String()
	}
	if p.Trade != nil {
		v.Trade = *p.Trade
		meta["trade"] = v.Trade.String()
	}
	if p.TributeRate != nil {
		v.TributeRate = *p.TributeRate
		meta["tribute_rate"] = v.TributeRate
	}

	slog.Info("vassal policy", "nation", nation, "labor", v.Labor.String(), "trade", v.Trade.String(), "tribute_rate", v.TributeRate)
	s.events.emit(Event{
		Day:         s.day,
		Category:    CatPolicy,
		Description: fmt.Sprintf("New terms are imposed on %s", nation),
		Meta:        meta,
	})
	return nil
}

// SetHeadTax changes a stratum's head-tax multiplier in the economy.
func (s *Simulation) SetHeadTax(stratum economy.StratumID, multiplier float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.econ.(economy.Policy)
	if !ok {
		return ErrNoPolicy
	}
	if err := p.SetHeadTax(stratum, multiplier); err != nil {
		return err
	}
	slog.Info("head tax", "stratum", stratum, "multiplier", multiplier)
	s.events.emit(Event{
		Day:         s.day,
		Category:    CatPolicy,
		Description: fmt.Sprintf("Head tax on the %s set to %.2f×", stratum, multiplier),
		Meta:        map[string]any{"stratum": stratum, "head_tax_multiplier": multiplier},
	})
	return nil
}

// SetSubsidy changes a stratum's per-capita subsidy in the economy.
func (s *Simulation) SetSubsidy(stratum economy.StratumID, perCapita float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.econ.(economy.Policy)
	if !ok {
		return ErrNoPolicy
	}
	if err := p.SetSubsidy(stratum, perCapita); err != nil {
		return err
	}
	slog.Info("subsidy", "stratum", stratum, "per_capita", perCapita)
	s.events.emit(Event{
		Day:         s.day,
		Category:    CatPolicy,
		Description: fmt.Sprintf("Subsidy for the %s set to %.2f per head", stratum, perCapita),
		Meta:        map[string]any{"stratum": stratum, "subsidy_per_capita": perCapita},
	})
	return nil
}

// PutOfficial adds or replaces an official in the registry.
func (s *Simulation) PutOfficial(o officials.Official) error {
	if o.ID == "" {
		return fmt.Errorf("put official: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.officials.Put(o)
	return nil
}

// DismissOfficial removes an official. Governorships they held keep costing
// silver with no effect until reassigned.
func (s *Simulation) DismissOfficial(id officials.OfficialID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.officials.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOfficial, id)
	}
	s.officials.Remove(id)
	s.events.emit(Event{
		Day:         s.day,
		Category:    CatGovernor,
		Description: fmt.Sprintf("%s is dismissed from royal service", o.Name),
		Meta:        map[string]any{"official": id},
	})
	return nil
}

// PreviewGovernor scores a hypothetical official governing a vassal without
// changing anything.
func (s *Simulation) PreviewGovernor(nation economy.NationID, o officials.Official, mandate vassal.Mandate) (vassal.GovernorEffects, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, err := s.vassal(nation)
	if err != nil {
		return vassal.GovernorEffects{}, err
	}
	if _, err := s.catalog.Vassal.LookupMandate(mandate); err != nil {
		return vassal.GovernorEffects{}, err
	}
	return vassal.ScoreGovernor(&s.catalog.Vassal, &o, mandate, copyVassal(v)), nil
}

// MeasureCosts reports the daily cost of every measure at the vassal's
// current wealth, active or not.
func (s *Simulation) MeasureCosts(nation economy.NationID) (map[vassal.MeasureID]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.vassal(nation); err != nil {
		return nil, err
	}
	return s.measureCosts(nation), nil
}

func (s *Simulation) measureCosts(nation economy.NationID) map[vassal.MeasureID]float64 {
	wealth := s.lastSnap.Nations[nation].Wealth
	out := make(map[vassal.MeasureID]float64, len(vassal.MeasureIDs))
	for _, m := range vassal.MeasureIDs {
		if c, err := s.catalog.Vassal.MeasureCost(m, wealth); err == nil {
			out[m] = c
		}
	}
	return out
}

func (s *Simulation) vassal(nation economy.NationID) (*vassal.State, error) {
	v, ok := s.vassals[nation]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotVassal, nation)
	}
	return v, nil
}
