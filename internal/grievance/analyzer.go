// Package grievance turns a stratum's economic snapshot into a ranked list
// of dissatisfaction sources. Everything here is pure: same snapshot in,
// same report out.
package grievance

import (
	"math"
	"sort"

	"github.com/talgya/hegemon/internal/economy"
)

// SourceType names a kind of grievance.
type SourceType string

const (
	SourceTax                SourceType = "tax"
	SourceBasicUnaffordable  SourceType = "basic_unaffordable"
	SourceLuxuryUnaffordable SourceType = "luxury_unaffordable"
	SourceBasicShortage      SourceType = "basic_shortage"
	SourceLuxuryShortage     SourceType = "luxury_shortage"
	SourceLivingStandard     SourceType = "living_standard"
	SourcePolitical          SourceType = "political"
)

// Severity is the presentation weight of a source.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Policy constants. These are fixed rules, not per-call tuning.
const (
	TaxBurdenTrigger     = 0.30
	TaxBurdenDanger      = 0.5
	TaxBurdenWeight      = 3.0
	TaxBurdenMax         = 2.0
	BasicUnaffordWeight  = 0.4
	BasicUnaffordMax     = 1.5
	LuxuryUnaffordMin    = 3
	LuxuryUnaffordWeight = 0.1
	LuxuryUnaffordMax    = 0.5
	BasicShortageWeight  = 0.6
	BasicShortageMax     = 2.0
	LuxuryShortageMin    = 4
	LuxuryShortageWeight = 0.05
	LuxuryShortageMax    = 0.3
	LivingTrigger        = 0.7
	LivingWeight         = 1.5
	LivingMax            = 1.0
	LivingDanger         = 0.4
	InfluenceTrigger     = 0.10
	ApprovalTrigger      = 40.0
	InfluenceWeight      = 2.0
	InfluenceMax         = 1.0
	BasicUnaffordDanger  = 3
)

// Source is one ranked dissatisfaction cause.
type Source struct {
	Type         SourceType         `json:"type"`
	Contribution float64            `json:"contribution"`
	Severity     Severity           `json:"severity"`
	Resources    []economy.Resource `json:"resources,omitempty"` // Shortage sources only
	Value        float64            `json:"value"`               // The measured input (burden, ratio, share, count)
}

// Report is the analyzer output for one stratum on one day.
type Report struct {
	Sources           []Source `json:"sources"` // Descending by contribution
	TotalContribution float64  `json:"total_contribution"`
}

// Find returns the source of type t, if present.
func (r Report) Find(t SourceType) (Source, bool) {
	for _, s := range r.Sources {
		if s.Type == t {
			return s, true
		}
	}
	return Source{}, false
}

// Has reports whether a source of type t is present.
func (r Report) Has(t SourceType) bool {
	_, ok := r.Find(t)
	return ok
}

// Analyze ranks the grievances implied by snap. Missing or invalid inputs
// contribute nothing.
func Analyze(snap economy.StratumSnapshot) Report {
	var sources []Source

	if s, ok := taxSource(snap); ok {
		sources = append(sources, s)
	}
	sources = append(sources, shortageSources(snap)...)
	if s, ok := livingSource(snap); ok {
		sources = append(sources, s)
	}
	if s, ok := politicalSource(snap); ok {
		sources = append(sources, s)
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Contribution > sources[j].Contribution
	})

	total := 0.0
	for _, s := range sources {
		total += s.Contribution
	}
	return Report{Sources: sources, TotalContribution: total}
}

func taxSource(snap economy.StratumSnapshot) (Source, bool) {
	income := economy.Sanitize(snap.IncomePerCapita)
	tax := economy.Sanitize(snap.TaxPerCapita)
	if income <= 0 || tax <= 0 {
		return Source{}, false
	}
	burden := tax / income
	if burden <= TaxBurdenTrigger {
		return Source{}, false
	}
	sev := SeverityWarning
	if burden > TaxBurdenDanger {
		sev = SeverityDanger
	}
	return Source{
		Type:         SourceTax,
		Contribution: math.Min(TaxBurdenMax, burden*TaxBurdenWeight),
		Severity:     sev,
		Value:        burden,
	}, true
}

func shortageSources(snap economy.StratumSnapshot) []Source {
	var basicUnaff, luxUnaff, basicOut, luxOut []economy.Resource
	seen := make(map[economy.Shortage]bool, len(snap.Shortages))

	for _, sh := range snap.Shortages {
		if seen[sh] {
			continue
		}
		seen[sh] = true

		class := snap.Needs.Classify(sh.Resource)
		switch {
		case class == economy.NeedBase && sh.Kind == economy.ShortageUnaffordable:
			basicUnaff = append(basicUnaff, sh.Resource)
		case class == economy.NeedLuxury && sh.Kind == economy.ShortageUnaffordable:
			luxUnaff = append(luxUnaff, sh.Resource)
		case class == economy.NeedBase && sh.Kind == economy.ShortageOutOfStock:
			basicOut = append(basicOut, sh.Resource)
		case class == economy.NeedLuxury && sh.Kind == economy.ShortageOutOfStock:
			luxOut = append(luxOut, sh.Resource)
		}
	}

	var out []Source
	if n := len(basicUnaff); n > 0 {
		sev := SeverityWarning
		if n >= BasicUnaffordDanger {
			sev = SeverityDanger
		}
		out = append(out, Source{
			Type:         SourceBasicUnaffordable,
			Contribution: math.Min(BasicUnaffordMax, float64(n)*BasicUnaffordWeight),
			Severity:     sev,
			Resources:    basicUnaff,
			Value:        float64(n),
		})
	}
	if n := len(luxUnaff); n >= LuxuryUnaffordMin {
		out = append(out, Source{
			Type:         SourceLuxuryUnaffordable,
			Contribution: math.Min(LuxuryUnaffordMax, float64(n)*LuxuryUnaffordWeight),
			Severity:     SeverityInfo,
			Resources:    luxUnaff,
			Value:        float64(n),
		})
	}
	if n := len(basicOut); n > 0 {
		out = append(out, Source{
			Type:         SourceBasicShortage,
			Contribution: math.Min(BasicShortageMax, float64(n)*BasicShortageWeight),
			Severity:     SeverityDanger,
			Resources:    basicOut,
			Value:        float64(n),
		})
	}
	if n := len(luxOut); n >= LuxuryShortageMin {
		out = append(out, Source{
			Type:         SourceLuxuryShortage,
			Contribution: math.Min(LuxuryShortageMax, float64(n)*LuxuryShortageWeight),
			Severity:     SeverityInfo,
			Resources:    luxOut,
			Value:        float64(n),
		})
	}
	return out
}

func livingSource(snap economy.StratumSnapshot) (Source, bool) {
	if snap.LivingStandard == nil {
		return Source{}, false
	}
	ratio := *snap.LivingStandard
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return Source{}, false
	}
	ratio = economy.Clamp(ratio, 0, math.MaxFloat64)
	if ratio >= LivingTrigger {
		return Source{}, false
	}
	sev := SeverityWarning
	if ratio < LivingDanger {
		sev = SeverityDanger
	}
	return Source{
		Type:         SourceLivingStandard,
		Contribution: math.Min(LivingMax, (1-ratio)*LivingWeight),
		Severity:     sev,
		Value:        ratio,
	}, true
}

func politicalSource(snap economy.StratumSnapshot) (Source, bool) {
	share := snap.InfluenceShare()
	if share <= InfluenceTrigger || economy.Clamp(snap.Approval, 0, 100) >= ApprovalTrigger {
		return Source{}, false
	}
	return Source{
		Type:         SourcePolitical,
		Contribution: math.Min(InfluenceMax, share*InfluenceWeight),
		Severity:     SeverityWarning,
		Value:        share,
	}, true
}
