package engine

import (
	"fmt"

	"github.com/talgya/hegemon/internal/actions"
	"github.com/talgya/hegemon/internal/demands"
	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/grievance"
	"github.com/talgya/hegemon/internal/officials"
	"github.com/talgya/hegemon/internal/organization"
	"github.com/talgya/hegemon/internal/vassal"
)

// Status is the realm at a glance.
type Status struct {
	Day            int                 `json:"day"`
	Date           string              `json:"date"`
	Era            int                 `json:"era"`
	Treasury       float64             `json:"treasury"`
	Stability      float64             `json:"stability"`
	AtWar          bool                `json:"at_war"`
	Strata         int                 `json:"strata"`
	Rebelling      []economy.StratumID `json:"rebelling,omitempty"` // Strata in the uprising stage
	ActiveDemands  int                 `json:"active_demands"`
	ActivePromises int                 `json:"active_promises"`
	Vassals        int                 `json:"vassals"`
	LastNet        float64             `json:"last_net"` // Net silver of the last tick's flows
}

// DemandView is an active demand with its remaining time.
type DemandView struct {
	demands.Demand
	DaysLeft int `json:"days_left"`
}

// PromiseView is an outstanding promise with its remaining time.
type PromiseView struct {
	demands.PromiseTask
	DaysLeft int `json:"days_left"`
}

// ActionStatus is whether a strategic action could be invoked on a stratum
// right now.
type ActionStatus struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Cost      float64 `json:"cost"`
	Available bool    `json:"available"`
	ReadyDay  int     `json:"ready_day,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

// StratumView is the query surface for one stratum.
type StratumView struct {
	Stratum        economy.StratumID          `json:"stratum"`
	Organization   float64                    `json:"organization"`
	GrowthRate     float64                    `json:"growth_rate"`
	Stage          organization.Stage         `json:"stage"`
	DaysToUprising *int                       `json:"days_to_uprising"` // Nil means never
	Approval       float64                    `json:"approval"`
	Grievances     grievance.Report           `json:"grievances"`
	Demands        []DemandView               `json:"demands"`
	Promises       []PromiseView              `json:"promises"`
	Suppressions   []organization.Suppression `json:"suppressions,omitempty"`
	Actions        []ActionStatus             `json:"actions"`
}

// VassalView is the query surface for one vassal.
type VassalView struct {
	vassal.State
	MeasureCosts   map[vassal.MeasureID]float64 `json:"measure_costs"`
	Governor       *vassal.GovernorEffects      `json:"governor,omitempty"`
	GovernorName   string                       `json:"governor_name,omitempty"`
	LastStep       *vassal.StepResult           `json:"last_step,omitempty"`
	NextTributeDay int                          `json:"next_tribute_day"`
}

// Status summarizes the realm.
func (s *Simulation) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Day:       s.day,
		Date:      SimDate(s.day),
		Era:       s.era,
		Treasury:  s.lastSnap.Player.Treasury,
		Stability: s.lastSnap.Player.Stability,
		AtWar:     s.lastSnap.Player.AtWar,
		Strata:    len(s.strata),
		Vassals:   len(s.vassals),
		LastNet:   s.lastDay.Flows.Net(),
	}
	for _, id := range s.stratumIDs() {
		ss := s.strata[id]
		if ss.Stage() == organization.StageUprising {
			st.Rebelling = append(st.Rebelling, id)
		}
		st.ActiveDemands += len(ss.Demands)
		st.ActivePromises += len(ss.Promises)
	}
	return st
}

// Strata returns every stratum in id order.
func (s *Simulation) Strata() []StratumView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]StratumView, 0, len(s.strata))
	for _, id := range s.stratumIDs() {
		out = append(out, s.stratumView(s.strata[id]))
	}
	return out
}

// Stratum returns one stratum.
func (s *Simulation) Stratum(id economy.StratumID) (StratumView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.strata[id]
	if !ok {
		return StratumView{}, fmt.Errorf("%w: %q", economy.ErrUnknownStratum, id)
	}
	return s.stratumView(st), nil
}

func (s *Simulation) stratumView(st *StratumState) StratumView {
	cp := copyStratum(st)
	v := StratumView{
		Stratum:      cp.Stratum,
		Organization: cp.Organization,
		GrowthRate:   cp.GrowthRate,
		Stage:        cp.Stage(),
		Approval:     cp.Approval,
		Grievances:   cp.Report,
		Suppressions: cp.Suppressions,
		Demands:      make([]DemandView, 0, len(cp.Demands)),
		Promises:     make([]PromiseView, 0, len(cp.Promises)),
	}
	if days, ok := organization.PredictDaysToUprising(cp.Organization, cp.GrowthRate); ok {
		v.DaysToUprising = &days
	}
	for _, d := range cp.Demands {
		v.Demands = append(v.Demands, DemandView{Demand: d, DaysLeft: d.RemainingDays(s.day)})
	}
	for _, p := range cp.Promises {
		v.Promises = append(v.Promises, PromiseView{PromiseTask: p, DaysLeft: p.RemainingDays(s.day)})
	}

	treasury := s.availableTreasury()
	for _, a := range s.catalog.Strategic().All() {
		as := ActionStatus{ID: a.ID, Name: a.Name, Cost: a.Cost, Available: true}
		err := actions.Check(a, actions.Context{
			Stratum:  cp.Stratum,
			Day:      s.day,
			Stage:    v.Stage,
			Approval: cp.Approval,
			Treasury: treasury,
		}, s.cooldowns)
		if err != nil {
			as.Available = false
			as.Reason = err.Error()
		}
		if ready, ok := s.cooldowns.ReadyDay(cp.Stratum, a); ok && ready > s.day {
			as.ReadyDay = ready
		}
		v.Actions = append(v.Actions, as)
	}
	return v
}

// Vassals returns every vassal in nation order.
func (s *Simulation) Vassals() []VassalView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]VassalView, 0, len(s.vassals))
	for _, id := range s.vassalIDs() {
		out = append(out, s.vassalView(s.vassals[id]))
	}
	return out
}

// Vassal returns one vassal.
func (s *Simulation) Vassal(nation economy.NationID) (VassalView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, err := s.vassal(nation)
	if err != nil {
		return VassalView{}, err
	}
	return s.vassalView(v), nil
}

func (s *Simulation) vassalView(v *vassal.State) VassalView {
	cp := copyVassal(v)
	view := VassalView{
		State:          *cp,
		MeasureCosts:   s.measureCosts(cp.Nation),
		NextTributeDay: cp.LastTributeDay + s.catalog.Vassal.Tribute.PeriodDays,
	}
	if m := cp.Measures[vassal.MeasureGovernor]; m.Governor != "" {
		if o, ok := s.officials.Lookup(m.Governor); ok {
			eff := vassal.ScoreGovernor(&s.catalog.Vassal, &o, cp.Mandate, cp)
			view.Governor = &eff
			view.GovernorName = o.Name
		}
	}
	if res, ok := s.lastSteps[cp.Nation]; ok {
		view.LastStep = &res
	}
	return view
}

// Officials lists the registry in id order.
func (s *Simulation) Officials() []officials.Official {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.officials.All()
}

// Actions lists the strategic catalog.
func (s *Simulation) Actions() []actions.Action {
	return s.catalog.Strategic().All()
}

// LastReport returns the report of the last tick.
func (s *Simulation) LastReport() DayReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastDay
}
