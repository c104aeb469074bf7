package economy

import "math"

// StratumID identifies a social stratum (nobility, peasants, ...).
type StratumID string

// NationID identifies a nation, sovereign or subordinate.
type NationID string

// ShortageKind distinguishes goods that exist but cost too much from goods
// that cannot be bought at any price.
type ShortageKind uint8

const (
	ShortageUnaffordable ShortageKind = iota
	ShortageOutOfStock
)

// Shortage is one unmet need of a stratum on a given day.
type Shortage struct {
	Resource Resource     `json:"resource"`
	Kind     ShortageKind `json:"kind"`
}

// SocialClass buckets a nation's population for satisfaction bookkeeping.
type SocialClass uint8

const (
	ClassElite SocialClass = iota
	ClassCommoner
	ClassUnderclass
)

// SocialClasses lists every class in a stable order.
var SocialClasses = [...]SocialClass{ClassElite, ClassCommoner, ClassUnderclass}

func (c SocialClass) String() string {
	switch c {
	case ClassElite:
		return "elite"
	case ClassCommoner:
		return "commoner"
	case ClassUnderclass:
		return "underclass"
	default:
		return "unknown"
	}
}

// StratumSnapshot is what the economy reports about one stratum for one day.
type StratumSnapshot struct {
	IncomePerCapita   float64    `json:"income_per_capita"`
	TaxPerCapita      float64    `json:"tax_per_capita"` // All taxes combined
	HeadTaxMultiplier float64    `json:"head_tax_multiplier"`
	SubsidyPerCapita  float64    `json:"subsidy_per_capita"`
	Shortages         []Shortage `json:"shortages"`
	LivingStandard    *float64   `json:"living_standard,omitempty"` // Satisfaction ratio, nil when unknown
	Influence         float64    `json:"influence"`
	TotalInfluence    float64    `json:"total_influence"`
	Approval          float64    `json:"approval"` // 0–100
	Needs             NeedSet    `json:"needs"`
}

// InfluenceShare returns influence / totalInfluence, or 0 when the total is
// not positive.
func (s StratumSnapshot) InfluenceShare() float64 {
	total := Sanitize(s.TotalInfluence)
	if total <= 0 {
		return 0
	}
	share := Sanitize(s.Influence) / total
	if share > 1 {
		return 1
	}
	return share
}

// HasShortage reports whether r currently shows the given shortage kind.
func (s StratumSnapshot) HasShortage(r Resource, kind ShortageKind) bool {
	for _, sh := range s.Shortages {
		if sh.Resource == r && sh.Kind == kind {
			return true
		}
	}
	return false
}

// CoalitionStanding is the ruling-coalition component's view of a stratum.
type CoalitionStanding struct {
	Sensitivity float64 `json:"sensitivity"` // Multiplier on organization growth, 1 = neutral
	InCoalition bool    `json:"in_coalition"`
	Share       float64 `json:"share"` // Fraction of coalition seats, 0–1
}

// NationSnapshot is the economy's view of a foreign or subordinate nation.
type NationSnapshot struct {
	Wealth       float64                 `json:"wealth"`
	Military     float64                 `json:"military"`
	Satisfaction map[SocialClass]float64 `json:"satisfaction"` // 0–100
	Inventory    map[Resource]float64    `json:"inventory"`
	Relations    map[NationID]float64    `json:"relations"` // Third-party relations, -100..100
}

// AverageSatisfaction is the unweighted mean over the classes present,
// 50 when nothing is reported.
func (n NationSnapshot) AverageSatisfaction() float64 {
	if len(n.Satisfaction) == 0 {
		return 50
	}
	total := 0.0
	for _, v := range n.Satisfaction {
		total += Clamp(v, 0, 100)
	}
	return total / float64(len(n.Satisfaction))
}

// PlayerSnapshot describes the player polity.
type PlayerSnapshot struct {
	Treasury  float64 `json:"treasury"`
	Wealth    float64 `json:"wealth"`
	Military  float64 `json:"military"`
	Stability float64 `json:"stability"` // 0–100
	AtWar     bool    `json:"at_war"`
}

// Snapshot is the immutable input to one simulated day.
type Snapshot struct {
	Day       int                             `json:"day"`
	Player    PlayerSnapshot                  `json:"player"`
	Strata    map[StratumID]StratumSnapshot   `json:"strata"`
	Coalition map[StratumID]CoalitionStanding `json:"coalition"`
	Nations   map[NationID]NationSnapshot     `json:"nations"`
}

// Standing returns the coalition standing of id, neutral if unreported.
func (s Snapshot) Standing(id StratumID) CoalitionStanding {
	if c, ok := s.Coalition[id]; ok {
		return c
	}
	return CoalitionStanding{Sensitivity: 1}
}

// Sanitize maps NaN and ±Inf to 0 and negative values to 0.
func Sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Clamp bounds v to [lo, hi]. NaN collapses to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
