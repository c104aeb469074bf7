package vassal

import (
	"sort"

	"github.com/talgya/hegemon/internal/economy"
)

// WarCause names the condition that set off an independence war.
type WarCause string

const (
	CausePlayerAtWar WarCause = "overlord_at_war"
	CauseInstability WarCause = "overlord_unstable"
	CauseForeignAlly WarCause = "foreign_backing"
)

// WarInput is what the trigger reads.
type WarInput struct {
	Pressure  float64
	AtWar     bool
	Stability float64
	// Relations are the vassal's relations with third parties.
	Relations map[economy.NationID]float64
}

// WarCheck is the result of one trigger evaluation.
type WarCheck struct {
	Evaluated bool             `json:"evaluated"`
	Fired     bool             `json:"fired"`
	Cause     WarCause         `json:"cause,omitempty"`
	Backer    economy.NationID `json:"backer,omitempty"`
}

// CheckWar evaluates the independence-war trigger. Below the minimum
// threshold nothing is drawn. Otherwise each applicable condition draws once,
// in order, and the first hit fires.
func CheckWar(cfg WarConfig, in WarInput, rng Rand) WarCheck {
	if in.Pressure < cfg.MinThreshold || rng == nil {
		return WarCheck{}
	}
	wc := WarCheck{Evaluated: true}
	if in.AtWar && rng.Float64() < cfg.AtWarChance {
		wc.Fired, wc.Cause = true, CausePlayerAtWar
		return wc
	}
	if in.Stability < cfg.StabilityThreshold && rng.Float64() < cfg.InstabilityChance {
		wc.Fired, wc.Cause = true, CauseInstability
		return wc
	}
	if backer, ok := strongestBacker(in.Relations, cfg.RelationThreshold); ok && rng.Float64() < cfg.ThirdPartyChance {
		wc.Fired, wc.Cause, wc.Backer = true, CauseForeignAlly, backer
	}
	return wc
}

func strongestBacker(relations map[economy.NationID]float64, threshold float64) (economy.NationID, bool) {
	ids := make([]economy.NationID, 0, len(relations))
	for id, r := range relations {
		if r >= threshold {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "", false
	}
	sort.Slice(ids, func(i, j int) bool {
		ri, rj := relations[ids[i]], relations[ids[j]]
		if ri != rj {
			return ri > rj
		}
		return ids[i] < ids[j]
	})
	return ids[0], true
}
