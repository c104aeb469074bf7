package steward

import "fmt"

// Treasury kept back from any single intervention.
const reserveFraction = 0.25

// Preferred counter-measures, strongest first. Unavailable ones are skipped.
var actionPreference = []string{
	"coopt_leaders",
	"concessions",
	"crackdown",
	"promise_reform",
	"promise_relief",
	"propaganda",
}

// Decision is the steward's chosen action for one cycle.
type Decision struct {
	Action       string        `json:"action"` // "none" or the intervention kind
	Rationale    string        `json:"rationale"`
	Intervention *Intervention `json:"intervention"`
}

// Intervention kinds.
const (
	KindAction   = "action"
	KindMeasure  = "measure"
	KindGovernor = "governor"
)

// Intervention is the payload for one admin POST.
type Intervention struct {
	Kind     string `json:"kind"`
	Stratum  string `json:"stratum,omitempty"`
	Action   string `json:"action,omitempty"`
	Nation   string `json:"nation,omitempty"`
	Measure  string `json:"measure,omitempty"`
	Official string `json:"official,omitempty"`
	Mandate  string `json:"mandate,omitempty"`
}

// Target names what an intervention is aimed at.
func (iv *Intervention) Target() string {
	if iv.Stratum != "" {
		return iv.Stratum
	}
	return iv.Nation
}

// Decide picks at most one intervention. Strata about to rise come first,
// then vassals near war, then lesser unrest. A healthy realm gets nothing.
func Decide(snap *RealmSnapshot, h *RealmHealth) *Decision {
	budget := snap.Status.Treasury * (1 - reserveFraction)

	if h.CrisisLevel == LevelHealthy {
		return &Decision{Action: "none", Rationale: "realm is calm"}
	}

	for _, hs := range h.Hotspots {
		if hs.Stratum.Organization < warningOrg && !(hs.DaysToUprising >= 0 && hs.DaysToUprising <= warningDays) {
			continue
		}
		if d := counterMeasure(hs, budget); d != nil {
			return d
		}
	}

	for _, fp := range h.Flashpoints {
		if d := controlVassal(fp, snap.Officials, budget); d != nil {
			return d
		}
	}

	// Watch-level unrest only gets cheap attention.
	for _, hs := range h.Hotspots {
		if d := counterMeasure(hs, budget*0.5); d != nil {
			return d
		}
	}

	return &Decision{Action: "none", Rationale: fmt.Sprintf("%s but nothing affordable is available", h.CrisisLevel)}
}

func counterMeasure(hs Hotspot, budget float64) *Decision {
	byID := make(map[string]ActionInfo, len(hs.Stratum.Actions))
	for _, a := range hs.Stratum.Actions {
		byID[a.ID] = a
	}
	for _, id := range actionPreference {
		a, ok := byID[id]
		if !ok || !a.Available || a.Cost > budget {
			continue
		}
		return &Decision{
			Action: KindAction,
			Rationale: fmt.Sprintf("%s at organization %.1f (%s), invoking %s",
				hs.Stratum.Stratum, hs.Stratum.Organization, hs.Stratum.Stage, id),
			Intervention: &Intervention{Kind: KindAction, Stratum: hs.Stratum.Stratum, Action: id},
		}
	}
	return nil
}

func controlVassal(fp Flashpoint, pool []OfficialInfo, budget float64) *Decision {
	v := fp.Vassal
	if !v.Measures["garrison"].Active && v.MeasureCosts["garrison"] <= budget {
		return &Decision{
			Action:       KindMeasure,
			Rationale:    fmt.Sprintf("%s pressure %.1f of %.1f, garrisoning", v.Nation, v.IndependencePressure, v.IndependenceCap),
			Intervention: &Intervention{Kind: KindMeasure, Nation: v.Nation, Measure: "garrison"},
		}
	}
	if v.Measures["governor"].Governor == "" && v.MeasureCosts["governor"] <= budget {
		if o, ok := bestPacifier(pool); ok {
			return &Decision{
				Action:       KindGovernor,
				Rationale:    fmt.Sprintf("%s pressure %.1f, sending %s to pacify", v.Nation, v.IndependencePressure, o.Name),
				Intervention: &Intervention{Kind: KindGovernor, Nation: v.Nation, Official: o.ID, Mandate: "pacify"},
			}
		}
	}
	return nil
}

// bestPacifier is the most prestigious official; loyalty breaks ties.
func bestPacifier(pool []OfficialInfo) (OfficialInfo, bool) {
	var best OfficialInfo
	found := false
	for _, o := range pool {
		if !found || o.Prestige > best.Prestige || (o.Prestige == best.Prestige && o.Loyalty > best.Loyalty) {
			best, found = o, true
		}
	}
	return best, found
}
