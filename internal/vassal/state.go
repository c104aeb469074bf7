package vassal

import (
	"fmt"
	"sort"

	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/officials"
)

// Rand is the randomness the engine consumes.
type Rand interface {
	Float64() float64
}

// Measure is the state of one control measure on a vassal. Governor holds
// the appointed official; it may dangle if the official left service.
type Measure struct {
	Active   bool                 `json:"active"`
	Governor officials.OfficialID `json:"governor,omitempty"`
}

// State is a vassal relationship owned by the player.
type State struct {
	Nation               economy.NationID      `json:"nation"`
	Type                 Type                  `json:"type"`
	IndependencePressure float64               `json:"independence_pressure"`
	IndependenceCap      float64               `json:"independence_cap"`
	Autonomy             float64               `json:"autonomy"`
	TributeRate          float64               `json:"tribute_rate"`
	Measures             map[MeasureID]Measure `json:"measures"`
	Mandate              Mandate               `json:"mandate"`
	Labor                LaborPolicy           `json:"labor"`
	Trade                TradePolicy           `json:"trade"`
	EstablishedDay       int                   `json:"established_day"`
	LastTributeDay       int                   `json:"last_tribute_day"`
}

// Establish creates the vassal state for nation with type defaults.
func Establish(cfg *Config, nation economy.NationID, t Type, day int) (*State, error) {
	tc, err := cfg.LookupType(t)
	if err != nil {
		return nil, err
	}
	if nation == "" {
		return nil, fmt.Errorf("establish vassal: empty nation id")
	}
	return &State{
		Nation:          nation,
		Type:            t,
		IndependenceCap: cfg.InitialCap,
		Autonomy:        tc.BaselineAutonomy,
		TributeRate:     tc.TributeRate,
		Measures:        make(map[MeasureID]Measure),
		EstablishedDay:  day,
		LastTributeDay:  day,
	}, nil
}

// SetMeasure toggles a measure. Toggling the governor measure keeps the
// appointed official.
func (v *State) SetMeasure(id MeasureID, active bool) {
	if v.Measures == nil {
		v.Measures = make(map[MeasureID]Measure)
	}
	m := v.Measures[id]
	m.Active = active
	v.Measures[id] = m
}

// Appoint installs an official as governor and activates the measure.
func (v *State) Appoint(id officials.OfficialID, mandate Mandate) {
	if v.Measures == nil {
		v.Measures = make(map[MeasureID]Measure)
	}
	v.Measures[MeasureGovernor] = Measure{Active: true, Governor: id}
	v.Mandate = mandate
}

// Active reports whether measure id is on.
func (v *State) Active(id MeasureID) bool {
	return v.Measures[id].Active
}

// ActiveMeasures lists active measures in application order.
func (v *State) ActiveMeasures() []MeasureID {
	var out []MeasureID
	for _, id := range MeasureIDs {
		if v.Active(id) {
			out = append(out, id)
		}
	}
	return out
}

// Normalize repairs a loaded state so bounds hold: cap in [floor, initial],
// pressure in [0, cap], autonomy in [0, 100].
func (v *State) Normalize(cfg *Config) {
	if v.Measures == nil {
		v.Measures = make(map[MeasureID]Measure)
	}
	v.IndependenceCap = economy.Clamp(v.IndependenceCap, cfg.CapFloor, cfg.InitialCap)
	v.IndependencePressure = economy.Clamp(v.IndependencePressure, 0, v.IndependenceCap)
	v.Autonomy = economy.Clamp(v.Autonomy, 0, 100)
	v.TributeRate = economy.Sanitize(v.TributeRate)
}

// SortStates orders vassals by nation id.
func SortStates(list []*State) {
	sort.Slice(list, func(i, j int) bool { return list[i].Nation < list[j].Nation })
}
