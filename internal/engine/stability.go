package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hegemon/internal/demands"
	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/grievance"
	"github.com/talgya/hegemon/internal/organization"
	"github.com/talgya/hegemon/internal/vassal"
)

// DayReport summarizes one simulated day.
type DayReport struct {
	Day         int                                           `json:"day"`
	Transitions map[economy.StratumID]organization.Transition `json:"transitions"`
	Uprisings   []economy.StratumID                           `json:"uprisings,omitempty"`
	NewDemands  []demands.Demand                              `json:"new_demands,omitempty"`
	Resolutions []demands.Resolution                          `json:"resolutions,omitempty"`
	Vassals     []vassal.StepResult                           `json:"vassals,omitempty"`
	Wars        []economy.NationID                            `json:"wars,omitempty"`
	Flows       economy.Flows                                 `json:"flows"`
}

// TickDay runs every stability system for day and books the resulting flows
// with the economy.
func (s *Simulation) TickDay(day int) DayReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.econ.Snapshot(day)
	s.lastSnap = snap
	s.day = day

	flows := s.pending
	flows.Day = day
	s.pending = economy.NewFlows(day + 1)

	rep := DayReport{Day: day, Transitions: make(map[economy.StratumID]organization.Transition)}

	ids := make([]economy.StratumID, 0, len(snap.Strata))
	for id := range snap.Strata {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		s.tickStratum(day, id, snap, &rep)
	}

	s.tickVassals(day, snap, &flows, &rep)

	s.econ.Apply(flows)
	rep.Flows = flows
	s.lastDay = rep
	s.logDay(rep)
	return rep
}

func (s *Simulation) tickStratum(day int, id economy.StratumID, snap economy.Snapshot, rep *DayReport) {
	ss := snap.Strata[id]
	st := s.stratum(id)
	st.Approval = ss.Approval

	report := grievance.Analyze(ss)
	st.Report = report
	st.PruneSuppressions(day)

	tr := st.Step(s.org, organization.Inputs{
		Day:      day,
		Report:   report,
		Approval: ss.Approval,
		Standing: snap.Standing(id),
	})
	rep.Transitions[id] = tr
	s.noteTransition(day, id, tr, "grievance", rep)

	kept, resolved := demands.Evaluate(day, ss, st.Demands)
	st.Demands = kept
	pkept, presolved := demands.EvaluatePromises(day, ss.Approval, st.Promises)
	st.Promises = pkept

	for _, r := range append(resolved, presolved...) {
		rep.Resolutions = append(rep.Resolutions, r)
		cat := CatDemand
		if r.Kind == "promise" {
			cat = CatPromise
		}
		s.events.emit(Event{
			Day:         day,
			Category:    cat,
			Description: fmt.Sprintf("%s %s of the %s %s", r.Kind, shortID(r.ID), id, r.Outcome),
			Meta:        map[string]any{"id": r.ID, "stratum": id, "outcome": r.Outcome.String(), "penalty": r.Penalty},
		})
		if r.Outcome == demands.OutcomeFailed && r.Penalty > 0 {
			ptr := st.Adjust(r.Penalty)
			rep.Transitions[id] = merge(rep.Transitions[id], ptr)
			s.noteTransition(day, id, ptr, "failed "+r.Kind, rep)
		}
	}

	created, err := demands.Generate(s.catalog.Demands, id, day, st.Stage(), report, ss, st.Demands)
	if err != nil {
		slog.Error("demand generation failed", "stratum", id, "error", err)
		return
	}
	for _, d := range created {
		st.Demands = append(st.Demands, d)
		rep.NewDemands = append(rep.NewDemands, d)
		s.events.emit(Event{
			Day:         day,
			Category:    CatDemand,
			Description: fmt.Sprintf("The %s demand %s within %d days", id, d.Type, d.DeadlineDay-day),
			Meta:        map[string]any{"id": d.ID, "stratum": id, "type": d.Type.String(), "deadline_day": d.DeadlineDay},
		})
	}
}

// noteTransition emits stage and uprising events for a change to one
// stratum's organization. rep may be nil outside a tick.
func (s *Simulation) noteTransition(day int, id economy.StratumID, tr organization.Transition, cause string, rep *DayReport) {
	if tr.StageBefore != tr.StageAfter {
		s.events.emit(Event{
			Day:         day,
			Category:    CatStage,
			Description: fmt.Sprintf("The %s move from %s to %s", id, tr.StageBefore, tr.StageAfter),
			Meta:        map[string]any{"stratum": id, "from": tr.StageBefore.String(), "to": tr.StageAfter.String(), "cause": cause},
		})
	}
	if tr.Uprising {
		if rep != nil {
			rep.Uprisings = append(rep.Uprisings, id)
		}
		slog.Warn("uprising", "stratum", id, "day", day, "organization", fmt.Sprintf("%.1f", tr.After), "cause", cause)
		s.events.emit(Event{
			Day:         day,
			Category:    CatUprising,
			Description: fmt.Sprintf("The %s rise in open revolt", id),
			Meta:        map[string]any{"stratum": id, "organization": tr.After, "cause": cause},
		})
	}
}

func (s *Simulation) tickVassals(day int, snap economy.Snapshot, flows *economy.Flows, rep *DayReport) {
	cfg := &s.catalog.Vassal
	for _, id := range s.vassalIDs() {
		v := s.vassals[id]
		nsnap, ok := snap.Nations[id]
		if !ok {
			slog.Warn("vassal missing from economy", "nation", id)
			continue
		}

		res, err := vassal.Step(cfg, v, vassal.StepInput{
			Day:       day,
			Era:       s.era,
			Nation:    nsnap,
			Player:    snap.Player,
			Officials: s.officials,
			Rand:      s.rng,
		})
		if err != nil {
			slog.Error("vassal step failed", "nation", id, "error", err)
			continue
		}
		prev := s.lastSteps[id]
		s.lastSteps[id] = res
		rep.Vassals = append(rep.Vassals, res)

		flows.ControlCosts += res.ControlCost
		for c, d := range res.Satisfaction {
			flows.AddSatisfaction(id, c, d)
		}
		flows.AddVassalWealth(id, res.WealthCredit)
		flows.Stability += res.Stability
		for _, w := range res.Warnings {
			slog.Debug("vassal measure", "nation", id, "warning", w)
		}
		if res.MissingGovernor != "" && res.MissingGovernor != prev.MissingGovernor {
			slog.Warn("governor no longer serves", "nation", id, "official", res.MissingGovernor)
			s.events.emit(Event{
				Day:         day,
				Category:    CatGovernor,
				Description: fmt.Sprintf("The governorship of %s stands empty; upkeep is still paid", id),
				Meta:        map[string]any{"nation": id, "official": res.MissingGovernor},
			})
		}
		if res.CorruptionEvent {
			s.events.emit(Event{
				Day:         day,
				Category:    CatGovernor,
				Description: fmt.Sprintf("Corruption scandal in the governorship of %s", id),
				Meta:        map[string]any{"nation": id, "official": res.Governor.Official},
			})
		}

		if res.War.Fired {
			delete(s.vassals, id)
			delete(s.lastSteps, id)
			flows.IndependenceWars = append(flows.IndependenceWars, id)
			rep.Wars = append(rep.Wars, id)
			slog.Warn("independence war", "nation", id, "cause", res.War.Cause, "pressure", fmt.Sprintf("%.1f", res.PressureAfter))
			s.events.emit(Event{
				Day:         day,
				Category:    CatWar,
				Description: fmt.Sprintf("%s declares independence and takes up arms", id),
				Meta:        map[string]any{"nation": id, "cause": string(res.War.Cause), "backer": res.War.Backer, "pressure": res.PressureAfter},
			})
			continue
		}

		if cfg.Tribute.Due(v, day) {
			pay := s.collectTribute(v, res, snap.Player, nsnap)
			v.LastTributeDay = day
			flows.Tribute = append(flows.Tribute, pay)
			s.events.emit(Event{
				Day:         day,
				Category:    CatTribute,
				Description: fmt.Sprintf("%s remits %s silver in tribute", id, humanize.Commaf(pay.Silver)),
				Meta:        map[string]any{"nation": id, "silver": pay.Silver, "skimmed": pay.Skimmed, "resources": pay.Resources},
			})
		}
	}
}

func (s *Simulation) collectTribute(v *vassal.State, res vassal.StepResult, player economy.PlayerSnapshot, n economy.NationSnapshot) economy.TributePayment {
	in := vassal.TributeInput{
		PlayerWealth: player.Wealth,
		VassalWealth: n.Wealth,
		TributeRate:  v.TributeRate,
		Autonomy:     v.Autonomy,
		Pressure:     v.IndependencePressure,
		Inventory:    n.Inventory,
	}
	if g := res.Governor; g != nil {
		in.GovernorModifier = g.RawTributeModifier
		in.Corruption = g.Corruption
	}
	t := vassal.CalculateTribute(s.catalog.Vassal.Tribute, in)
	return economy.TributePayment{Nation: v.Nation, Silver: t.Silver, Skimmed: t.Skimmed, Resources: t.Resources}
}

func (s *Simulation) logDay(rep DayReport) {
	active := 0
	for _, st := range s.strata {
		active += len(st.Demands)
	}
	slog.Info("realm report",
		"day", rep.Day,
		"date", SimDate(rep.Day),
		"strata", len(s.strata),
		"uprisings", len(rep.Uprisings),
		"active_demands", active,
		"vassals", len(s.vassals),
		"tribute", humanize.Commaf(rep.Flows.TributeSilver()),
		"control_costs", humanize.Commaf(rep.Flows.ControlCosts),
		"action_costs", humanize.Commaf(rep.Flows.ActionCosts),
		"net", humanize.Commaf(rep.Flows.Net()),
	)
}

// TickMonth logs the standing of every stratum and vassal.
func (s *Simulation) TickMonth(day int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.stratumIDs() {
		st := s.strata[id]
		attrs := []any{
			"stratum", id,
			"stage", st.Stage().String(),
			"organization", fmt.Sprintf("%.1f", st.Organization),
			"growth", fmt.Sprintf("%+.2f", st.GrowthRate),
			"demands", len(st.Demands),
		}
		if days, ok := organization.PredictDaysToUprising(st.Organization, st.GrowthRate); ok {
			attrs = append(attrs, "days_to_uprising", days)
		}
		slog.Info("monthly stratum", attrs...)
	}
	for _, id := range s.vassalIDs() {
		v := s.vassals[id]
		slog.Info("monthly vassal",
			"nation", id,
			"type", v.Type.String(),
			"pressure", fmt.Sprintf("%.1f", v.IndependencePressure),
			"cap", fmt.Sprintf("%.1f", v.IndependenceCap),
			"autonomy", fmt.Sprintf("%.1f", v.Autonomy),
		)
	}
	slog.Info("monthly summary", "day", day, "date", SimDate(day), "events", len(s.events.recent(0, "")))
}

// merge folds a follow-up change into the day's transition.
func merge(a, b organization.Transition) organization.Transition {
	return organization.Transition{
		Before:      a.Before,
		After:       b.After,
		StageBefore: a.StageBefore,
		StageAfter:  b.StageAfter,
		Uprising:    a.Uprising || b.Uprising,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
