package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/officials"
	"github.com/talgya/hegemon/internal/vassal"
)

// storedMeasure accepts both current and early object encodings.
type storedMeasure struct {
	Active     bool                 `json:"active"`
	Governor   officials.OfficialID `json:"governor"`
	OfficialID officials.OfficialID `json:"official_id"`
}

// DecodeMeasures reads a measures column. Older saves stored a bare boolean
// per measure ({"garrison": true}); those become {active: true}. Unknown
// measure names are dropped with a warning.
func DecodeMeasures(data []byte) (map[vassal.MeasureID]vassal.Measure, error) {
	out := make(map[vassal.MeasureID]vassal.Measure)
	if len(data) == 0 || string(data) == "null" {
		return out, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode measures: %w", err)
	}
	for name, msg := range raw {
		id, err := vassal.ParseMeasure(name)
		if err != nil {
			slog.Warn("dropping unknown control measure", "measure", name)
			continue
		}

		var active bool
		if err := json.Unmarshal(msg, &active); err == nil {
			out[id] = vassal.Measure{Active: active}
			continue
		}

		var sm storedMeasure
		if err := json.Unmarshal(msg, &sm); err != nil {
			return nil, fmt.Errorf("decode measure %s: %w", name, err)
		}
		m := vassal.Measure{Active: sm.Active, Governor: sm.Governor}
		if m.Governor == "" {
			m.Governor = sm.OfficialID
		}
		out[id] = m
	}
	return out, nil
}

func (r vassalRow) state() (*vassal.State, error) {
	t, err := vassal.ParseType(r.Type)
	if err != nil {
		return nil, err
	}
	mandate, err := vassal.ParseMandate(r.Mandate)
	if err != nil {
		return nil, err
	}
	labor, err := vassal.ParseLabor(r.Labor)
	if err != nil {
		return nil, err
	}
	trade, err := vassal.ParseTrade(r.Trade)
	if err != nil {
		return nil, err
	}
	measures, err := DecodeMeasures([]byte(r.Measures))
	if err != nil {
		return nil, err
	}
	return &vassal.State{
		Nation:               economy.NationID(r.Nation),
		Type:                 t,
		IndependencePressure: r.IndependencePressure,
		IndependenceCap:      r.IndependenceCap,
		Autonomy:             r.Autonomy,
		TributeRate:          r.TributeRate,
		Measures:             measures,
		Mandate:              mandate,
		Labor:                labor,
		Trade:                trade,
		EstablishedDay:       r.EstablishedDay,
		LastTributeDay:       r.LastTributeDay,
	}, nil
}
