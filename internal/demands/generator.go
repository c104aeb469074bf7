package demands

import (
	"math"

	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/grievance"
	"github.com/talgya/hegemon/internal/organization"
)

// Generate creates the demands the stratum now raises. At most one demand
// per type is active at a time; types already in active are skipped.
func Generate(cfg Config, stratum economy.StratumID, day int, stage organization.Stage,
	report grievance.Report, snap economy.StratumSnapshot, active []Demand) ([]Demand, error) {

	have := make(map[Type]bool, len(active))
	for _, d := range active {
		have[d.Type] = true
	}

	var created []Demand
	for _, t := range Types {
		if have[t] {
			continue
		}
		tc, err := cfg.Lookup(t)
		if err != nil {
			return nil, err
		}
		if stage < tc.MinStage {
			continue
		}
		d, ok := trigger(t, tc, report, snap)
		if !ok {
			continue
		}
		d.ID = NewID("demand/"+t.String(), stratum, day)
		d.Stratum = stratum
		d.Type = t
		d.CreatedDay = day
		d.DeadlineDay = day + tc.DeadlineDays
		d.FailurePenalty = Penalty{Organization: tc.FailurePenalty}
		created = append(created, d)
		have[t] = true
	}
	return created, nil
}

func trigger(t Type, tc TypeConfig, report grievance.Report, snap economy.StratumSnapshot) (Demand, bool) {
	switch t {
	case TypeTaxRelief:
		if report.Has(grievance.SourceTax) && snap.HeadTaxMultiplier > tc.TaxTarget {
			return Demand{TargetTax: tc.TaxTarget, RequiredDays: tc.RequiredDays}, true
		}
	case TypeSubsidy:
		if src, ok := report.Find(grievance.SourceLivingStandard); ok && src.Value < tc.LivingTrigger {
			target := math.Max(1, economy.Sanitize(snap.IncomePerCapita)*tc.SubsidyShare)
			return Demand{TargetSubsidy: target, RequiredDays: tc.RequiredDays}, true
		}
	case TypeResource:
		if src, ok := report.Find(grievance.SourceBasicShortage); ok {
			return Demand{Resources: append([]economy.Resource(nil), src.Resources...)}, true
		}
	case TypePriceRelief:
		if src, ok := report.Find(grievance.SourceBasicUnaffordable); ok {
			return Demand{Resources: append([]economy.Resource(nil), src.Resources...)}, true
		}
	case TypePolitical:
		if report.Has(grievance.SourcePolitical) {
			return Demand{TargetApproval: tc.ApprovalBar}, true
		}
	}
	return Demand{}, false
}

// Evaluate advances every active demand by one day. Fulfilled demands are
// removed without penalty; unfulfilled demands at or past their deadline are
// removed with their failure penalty. Fulfillment is checked first, so a
// demand met on its deadline day succeeds.
func Evaluate(day int, snap economy.StratumSnapshot, active []Demand) (kept []Demand, resolved []Resolution) {
	for _, d := range active {
		if fulfilled(&d, snap) {
			resolved = append(resolved, Resolution{
				ID: d.ID, Stratum: d.Stratum, Kind: d.Type.String(),
				Outcome: OutcomeFulfilled, Day: day,
			})
			continue
		}
		if day >= d.DeadlineDay {
			resolved = append(resolved, Resolution{
				ID: d.ID, Stratum: d.Stratum, Kind: d.Type.String(),
				Outcome: OutcomeFailed, Penalty: d.FailurePenalty.Organization, Day: day,
			})
			continue
		}
		kept = append(kept, d)
	}
	return kept, resolved
}

// fulfilled checks d against today's snapshot, advancing streak counters.
func fulfilled(d *Demand, snap economy.StratumSnapshot) bool {
	switch d.Type {
	case TypeTaxRelief:
		return streak(d, snap.HeadTaxMultiplier <= d.TargetTax)
	case TypeSubsidy:
		return streak(d, snap.SubsidyPerCapita >= d.TargetSubsidy)
	case TypeResource:
		for _, r := range d.Resources {
			if snap.HasShortage(r, economy.ShortageOutOfStock) {
				return false
			}
		}
		return true
	case TypePriceRelief:
		for _, r := range d.Resources {
			if snap.HasShortage(r, economy.ShortageUnaffordable) {
				return false
			}
		}
		return true
	case TypePolitical:
		return snap.Approval >= d.TargetApproval
	}
	return false
}

func streak(d *Demand, ok bool) bool {
	if !ok {
		d.ProgressDays = 0
		return false
	}
	d.ProgressDays++
	return d.ProgressDays >= d.RequiredDays
}

// NewPromise builds a promise task raising approval by gain within days.
func NewPromise(stratum economy.StratumID, actionID string, day int, approval, gain float64, days int, penalty float64) PromiseTask {
	return PromiseTask{
		ID:             NewID("promise/"+actionID, stratum, day),
		Stratum:        stratum,
		ActionID:       actionID,
		TargetApproval: math.Min(100, economy.Clamp(approval, 0, 100)+gain),
		CreatedDay:     day,
		DeadlineDay:    day + days,
		FailurePenalty: Penalty{Organization: penalty},
	}
}

// EvaluatePromises resolves promise tasks against today's approval.
func EvaluatePromises(day int, approval float64, tasks []PromiseTask) (kept []PromiseTask, resolved []Resolution) {
	for _, p := range tasks {
		switch {
		case approval >= p.TargetApproval:
			resolved = append(resolved, Resolution{
				ID: p.ID, Stratum: p.Stratum, Kind: "promise",
				Outcome: OutcomeFulfilled, Day: day,
			})
		case day >= p.DeadlineDay:
			resolved = append(resolved, Resolution{
				ID: p.ID, Stratum: p.Stratum, Kind: "promise",
				Outcome: OutcomeFailed, Penalty: p.FailurePenalty.Organization, Day: day,
			})
		default:
			kept = append(kept, p)
		}
	}
	return kept, resolved
}
