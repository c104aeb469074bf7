package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/talgya/hegemon/internal/actions"
	"github.com/talgya/hegemon/internal/config"
	"github.com/talgya/hegemon/internal/demands"
	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/entropy"
	"github.com/talgya/hegemon/internal/grievance"
	"github.com/talgya/hegemon/internal/officials"
	"github.com/talgya/hegemon/internal/organization"
	"github.com/talgya/hegemon/internal/vassal"
)

var (
	ErrNotVassal       = errors.New("nation is not a vassal")
	ErrAlreadyVassal   = errors.New("nation is already a vassal")
	ErrUnknownOfficial = errors.New("unknown official")
	ErrNoPolicy        = errors.New("economy has no policy controls")
)

// StratumState is everything the engine owns about one stratum.
type StratumState struct {
	organization.State
	Approval float64               `json:"approval"` // Last value reported by the economy
	Demands  []demands.Demand      `json:"demands"`
	Promises []demands.PromiseTask `json:"promises"`
	Report   grievance.Report      `json:"report"`
}

// Options configure a new Simulation.
type Options struct {
	Catalog    *config.Catalog
	Difficulty string
	Economy    economy.Economy
	Rand       entropy.Source
	Officials  *officials.Registry
	Era        int
}

// Simulation holds the stability state of the realm and runs the daily
// systems against an external economy. All methods are safe for concurrent
// use.
type Simulation struct {
	mu sync.RWMutex

	catalog   *config.Catalog
	org       organization.Config
	econ      economy.Economy
	rng       entropy.Source
	officials *officials.Registry

	day       int
	era       int
	strata    map[economy.StratumID]*StratumState
	cooldowns actions.Cooldowns
	vassals   map[economy.NationID]*vassal.State

	pending   economy.Flows // Booked by interventions, merged into the next tick
	lastSnap  economy.Snapshot
	lastDay   DayReport
	lastSteps map[economy.NationID]vassal.StepResult

	events *eventLog
}

// New creates a simulation. Strata appear as the economy reports them.
func New(opts Options) (*Simulation, error) {
	if opts.Catalog == nil {
		opts.Catalog = config.DefaultCatalog()
	}
	if opts.Economy == nil {
		return nil, fmt.Errorf("new simulation: economy is required")
	}
	if opts.Difficulty == "" {
		opts.Difficulty = "normal"
	}
	org, err := opts.Catalog.OrganizationFor(opts.Difficulty)
	if err != nil {
		return nil, err
	}
	if opts.Rand == nil {
		opts.Rand = entropy.NewSeeded(1)
	}
	if opts.Officials == nil {
		opts.Officials = officials.NewRegistry(nil)
	}
	s := &Simulation{
		catalog:   opts.Catalog,
		org:       org,
		econ:      opts.Economy,
		rng:       opts.Rand,
		officials: opts.Officials,
		era:       opts.Era,
		strata:    make(map[economy.StratumID]*StratumState),
		cooldowns: make(actions.Cooldowns),
		vassals:   make(map[economy.NationID]*vassal.State),
		pending:   economy.NewFlows(0),
		lastSteps: make(map[economy.NationID]vassal.StepResult),
		events:    newEventLog(),
	}
	s.lastSnap = s.econ.Snapshot(0)
	return s, nil
}

// Day is the last day processed.
func (s *Simulation) Day() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.day
}

// Catalog returns the policy catalog in use.
func (s *Simulation) Catalog() *config.Catalog { return s.catalog }

// SetEra changes the era index used for vassal pressure.
func (s *Simulation) SetEra(era int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.era = era
}

// State is the persisted form of a simulation.
type State struct {
	Day       int                     `json:"day"`
	Era       int                     `json:"era"`
	Strata    []StratumState          `json:"strata"`
	Cooldowns []actions.CooldownEntry `json:"cooldowns"`
	Vassals   []*vassal.State         `json:"vassals"`
	Officials []officials.Official    `json:"officials"`
	Events    []Event                 `json:"events"`
}

// Export returns a deep copy of the engine-owned state.
func (s *Simulation) Export() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Day:       s.day,
		Era:       s.era,
		Cooldowns: s.cooldowns.Entries(),
		Officials: s.officials.All(),
		Events:    s.events.recent(0, ""),
	}
	for _, id := range s.stratumIDs() {
		st.Strata = append(st.Strata, copyStratum(s.strata[id]))
	}
	for _, id := range s.vassalIDs() {
		st.Vassals = append(st.Vassals, copyVassal(s.vassals[id]))
	}
	return st
}

// Import replaces the engine-owned state. Loaded vassals are normalized so
// bounds hold.
func (s *Simulation) Import(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.day = st.Day
	s.era = st.Era
	s.strata = make(map[economy.StratumID]*StratumState, len(st.Strata))
	for i := range st.Strata {
		cp := copyStratum(&st.Strata[i])
		s.strata[cp.Stratum] = &cp
	}
	s.cooldowns = make(actions.Cooldowns, len(st.Cooldowns))
	for _, c := range st.Cooldowns {
		s.cooldowns[c.Key] = c.LastDay
	}
	s.vassals = make(map[economy.NationID]*vassal.State, len(st.Vassals))
	for _, v := range st.Vassals {
		cp := copyVassal(v)
		cp.Normalize(&s.catalog.Vassal)
		s.vassals[cp.Nation] = cp
	}
	s.officials = officials.NewRegistry(st.Officials)
	s.events.restore(st.Events)
	s.pending = economy.NewFlows(s.day + 1)
	s.lastSnap = s.econ.Snapshot(s.day)
}

func (s *Simulation) stratum(id economy.StratumID) *StratumState {
	st, ok := s.strata[id]
	if !ok {
		st = &StratumState{State: organization.State{Stratum: id}}
		s.strata[id] = st
	}
	return st
}

func (s *Simulation) stratumIDs() []economy.StratumID {
	ids := make([]economy.StratumID, 0, len(s.strata))
	for id := range s.strata {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Simulation) vassalIDs() []economy.NationID {
	ids := make([]economy.NationID, 0, len(s.vassals))
	for id := range s.vassals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func copyStratum(st *StratumState) StratumState {
	cp := *st
	cp.Suppressions = append([]organization.Suppression(nil), st.Suppressions...)
	cp.Demands = append([]demands.Demand(nil), st.Demands...)
	cp.Promises = append([]demands.PromiseTask(nil), st.Promises...)
	cp.Report.Sources = append([]grievance.Source(nil), st.Report.Sources...)
	return cp
}

func copyVassal(v *vassal.State) *vassal.State {
	cp := *v
	cp.Measures = make(map[vassal.MeasureID]vassal.Measure, len(v.Measures))
	for k, m := range v.Measures {
		cp.Measures[k] = m
	}
	return &cp
}
