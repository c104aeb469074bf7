package vassal

import (
	"math"
	"sort"

	"github.com/talgya/hegemon/internal/economy"
)

// TributeInput is what the tribute formula reads.
type TributeInput struct {
	PlayerWealth float64
	VassalWealth float64
	TributeRate  float64
	Autonomy     float64
	Pressure     float64
	// GovernorModifier is the raw governor modifier, before corruption.
	// Zero means no governor.
	GovernorModifier float64
	Corruption       float64
	Inventory        map[economy.Resource]float64
}

// Tribute is one computed payment.
type Tribute struct {
	Base       float64                      `json:"base"`
	Size       float64                      `json:"size_multiplier"`
	Autonomy   float64                      `json:"autonomy_factor"`
	Resistance float64                      `json:"resistance_factor"`
	Gross      float64                      `json:"gross"`
	Skimmed    float64                      `json:"skimmed"`
	Silver     float64                      `json:"silver"`
	Resources  map[economy.Resource]float64 `json:"resources,omitempty"`
}

// CalculateTribute computes the periodic silver and resource tribute.
// Non-finite or negative inputs are treated as zero; the result is never
// negative.
func CalculateTribute(cfg TributeConfig, in TributeInput) Tribute {
	pw := economy.Sanitize(in.PlayerWealth)
	vw := economy.Sanitize(in.VassalWealth)
	rate := economy.Sanitize(in.TributeRate)
	autonomy := economy.Clamp(in.Autonomy, 0, 100)
	pressure := economy.Sanitize(in.Pressure)
	gov := economy.Sanitize(in.GovernorModifier)
	if gov == 0 {
		gov = 1
	}
	corr := economy.Clamp(in.Corruption, 0, 1)

	t := Tribute{
		Base:       math.Max(cfg.FixedMinimum, 0.5*pw*cfg.PlayerRate+0.5*vw*cfg.VassalRate),
		Size:       cfg.SizeMultiplier(vw),
		Autonomy:   1 - autonomy/200,
		Resistance: math.Max(0.3, 1-pressure/150),
	}
	t.Gross = economy.Sanitize(t.Base * rate * t.Size * t.Autonomy * t.Resistance * gov)
	t.Skimmed = t.Gross * corr
	t.Silver = math.Floor(t.Gross - t.Skimmed)

	factor := math.Min(1, rate*t.Size*t.Autonomy*t.Resistance*gov*(1-corr))
	share := economy.Clamp(cfg.ResourceShare, 0, 1)
	for r, have := range in.Inventory {
		have = economy.Sanitize(have)
		if have <= 0 {
			continue
		}
		amt := math.Floor(have * share * factor)
		if amt <= 0 {
			continue
		}
		if t.Resources == nil {
			t.Resources = make(map[economy.Resource]float64)
		}
		t.Resources[r] = amt
	}
	return t
}

// Due reports whether tribute is owed on day.
func (cfg TributeConfig) Due(v *State, day int) bool {
	return cfg.PeriodDays > 0 && day-v.LastTributeDay >= cfg.PeriodDays
}

// SortedResources returns the resource keys of a payment in name order.
func (t Tribute) SortedResources() []economy.Resource {
	out := make([]economy.Resource, 0, len(t.Resources))
	for r := range t.Resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
