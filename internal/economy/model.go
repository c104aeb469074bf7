package economy

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	opensimplex "github.com/ojrac/opensimplex-go"
)

var (
	ErrUnknownStratum = errors.New("unknown stratum")
	ErrUnknownNation  = errors.New("unknown nation")
	ErrOutOfRange     = errors.New("value out of range")
)

// Policy is the fiscal surface the player controls directly.
type Policy interface {
	SetHeadTax(id StratumID, multiplier float64) error
	SetSubsidy(id StratumID, perCapita float64) error
}

// StratumProfile seeds and carries one stratum inside the reference model.
type StratumProfile struct {
	BaseIncome        float64           `json:"base_income"`
	HeadTaxMultiplier float64           `json:"head_tax_multiplier"`
	SubsidyPerCapita  float64           `json:"subsidy_per_capita"`
	Influence         float64           `json:"influence"`
	Approval          float64           `json:"approval"`
	Needs             NeedSet           `json:"needs"`
	Coalition         CoalitionStanding `json:"coalition"`
	LastLiving        float64           `json:"last_living"`
	LastShortages     int               `json:"last_shortages"`
}

// NationProfile seeds and carries one foreign nation.
type NationProfile struct {
	Wealth       float64                 `json:"wealth"`
	Military     float64                 `json:"military"`
	Satisfaction map[SocialClass]float64 `json:"satisfaction"`
	Inventory    map[Resource]float64    `json:"inventory"`
	Relations    map[NationID]float64    `json:"relations"`
}

// ModelState is the persisted form of a Model.
type ModelState struct {
	Seed      int64                         `json:"seed"`
	BaseTax   float64                       `json:"base_tax"`
	Player    PlayerSnapshot                `json:"player"`
	Prices    map[Resource]float64          `json:"prices"`
	Strata    map[StratumID]*StratumProfile `json:"strata"`
	Nations   map[NationID]*NationProfile   `json:"nations"`
	Stockpile map[Resource]float64          `json:"stockpile"`
	Wars      map[NationID]int              `json:"wars"` // Nation → day the war ends
}

const (
	warDays          = 90
	approvalPull     = 0.1
	satisfactionPull = 0.02
	outOfStockBelow  = 0.12
)

// Model is a small self-contained economy driven by smooth noise. It stands
// in for a full market simulation and is safe for concurrent use.
type Model struct {
	mu    sync.Mutex
	noise opensimplex.Noise
	st    ModelState
}

// NewModel builds a model from its initial state. Maps are copied.
func NewModel(st ModelState) *Model {
	m := &Model{noise: opensimplex.NewNormalized(st.Seed)}
	m.st = cloneState(st)
	return m
}

// State returns a deep copy for persistence.
func (m *Model) State() ModelState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.st)
}

// Snapshot reports the economy on day. Repeated calls for the same day
// agree.
func (m *Model) Snapshot(day int) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := float64(day) / 30
	snap := Snapshot{
		Day:       day,
		Player:    m.st.Player,
		Strata:    make(map[StratumID]StratumSnapshot, len(m.st.Strata)),
		Coalition: make(map[StratumID]CoalitionStanding, len(m.st.Strata)),
		Nations:   make(map[NationID]NationSnapshot, len(m.st.Nations)),
	}
	snap.Player.AtWar = len(m.st.Wars) > 0

	totalInfluence := 0.0
	for _, p := range m.st.Strata {
		totalInfluence += Sanitize(p.Influence)
	}

	for i, id := range sortedStrata(m.st.Strata) {
		p := m.st.Strata[id]
		drift := m.noise.Eval2(t, float64(i)*7.3)*2 - 1
		income := Sanitize(p.BaseIncome * (1 + 0.15*drift))
		tax := Sanitize(m.st.BaseTax * p.HeadTaxMultiplier)
		disposable := math.Max(0, income-tax+Sanitize(p.SubsidyPerCapita))

		ss := StratumSnapshot{
			IncomePerCapita:   income,
			TaxPerCapita:      tax,
			HeadTaxMultiplier: p.HeadTaxMultiplier,
			SubsidyPerCapita:  p.SubsidyPerCapita,
			Influence:         p.Influence,
			TotalInfluence:    totalInfluence,
			Approval:          Clamp(p.Approval, 0, 100),
			Needs:             p.Needs,
		}

		basket := 0.0
		share := disposable
		if n := len(p.Needs.Base); n > 0 {
			share = disposable / float64(n)
		}
		for j, r := range p.Needs.Base {
			price := m.price(r, t)
			basket += price
			switch {
			case m.noise.Eval2(t*1.7+100, float64(j)*3.1+float64(i)) < outOfStockBelow:
				ss.Shortages = append(ss.Shortages, Shortage{Resource: r, Kind: ShortageOutOfStock})
			case price > share:
				ss.Shortages = append(ss.Shortages, Shortage{Resource: r, Kind: ShortageUnaffordable})
			}
		}
		left := math.Max(0, disposable-basket)
		for _, r := range p.Needs.Luxury {
			price := m.price(r, t)
			if price > left {
				ss.Shortages = append(ss.Shortages, Shortage{Resource: r, Kind: ShortageUnaffordable})
				continue
			}
			left -= price
		}
		if basket > 0 {
			living := disposable / basket
			ss.LivingStandard = &living
			p.LastLiving = living
		}
		p.LastShortages = len(ss.Shortages)

		snap.Strata[id] = ss
		if p.Coalition != (CoalitionStanding{}) {
			snap.Coalition[id] = p.Coalition
		}
	}

	for id, n := range m.st.Nations {
		snap.Nations[id] = NationSnapshot{
			Wealth:       n.Wealth,
			Military:     n.Military,
			Satisfaction: cloneMap(n.Satisfaction),
			Inventory:    cloneMap(n.Inventory),
			Relations:    cloneMap(n.Relations),
		}
	}
	return snap
}

// Apply books the flows of one day and advances slow drift.
func (m *Model) Apply(f Flows) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.st.Player.Treasury += f.Net()

	for _, p := range f.Tribute {
		n, ok := m.st.Nations[p.Nation]
		if !ok {
			continue
		}
		n.Wealth = math.Max(0, n.Wealth-p.Silver-p.Skimmed)
		for r, amt := range p.Resources {
			n.Inventory[r] = math.Max(0, n.Inventory[r]-amt)
			m.st.Stockpile[r] += amt
		}
	}
	for id, amt := range f.VassalWealth {
		if n, ok := m.st.Nations[id]; ok {
			n.Wealth = Sanitize(n.Wealth + amt)
		}
	}
	for id, deltas := range f.SatisfactionDeltas {
		n, ok := m.st.Nations[id]
		if !ok {
			continue
		}
		for c, d := range deltas {
			n.Satisfaction[c] = Clamp(n.Satisfaction[c]+d, 0, 100)
		}
	}
	for id, d := range f.ApprovalDeltas {
		if p, ok := m.st.Strata[id]; ok {
			p.Approval = Clamp(p.Approval+d, 0, 100)
		}
	}
	for _, id := range f.IndependenceWars {
		m.st.Wars[id] = f.Day + warDays
	}
	for id, until := range m.st.Wars {
		if f.Day >= until {
			delete(m.st.Wars, id)
		}
	}

	// Approval drifts toward what living conditions justify.
	sum := 0.0
	for _, p := range m.st.Strata {
		target := 50 + 40*(p.LastLiving-1) - 20*math.Max(0, p.HeadTaxMultiplier-1) - 5*float64(p.LastShortages)
		target = Clamp(target, 0, 100)
		p.Approval = Clamp(p.Approval+approvalPull*(target-p.Approval), 0, 100)
		sum += p.Approval
	}
	if len(m.st.Strata) > 0 {
		m.st.Player.Stability = sum / float64(len(m.st.Strata))
	}
	m.st.Player.Stability = Clamp(m.st.Player.Stability+f.Stability, 0, 100)

	for _, n := range m.st.Nations {
		for c, v := range n.Satisfaction {
			n.Satisfaction[c] = Clamp(v+satisfactionPull*(50-v), 0, 100)
		}
		n.Wealth *= 1.0005
	}
}

// SetHeadTax changes a stratum's head-tax multiplier.
func (m *Model) SetHeadTax(id StratumID, multiplier float64) error {
	if math.IsNaN(multiplier) || multiplier < 0 || multiplier > 5 {
		return fmt.Errorf("%w: head tax multiplier %v outside [0, 5]", ErrOutOfRange, multiplier)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.st.Strata[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStratum, id)
	}
	p.HeadTaxMultiplier = multiplier
	return nil
}

// SetSubsidy changes a stratum's per-capita subsidy.
func (m *Model) SetSubsidy(id StratumID, perCapita float64) error {
	if math.IsNaN(perCapita) || perCapita < 0 {
		return fmt.Errorf("%w: subsidy %v must not be negative", ErrOutOfRange, perCapita)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.st.Strata[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStratum, id)
	}
	p.SubsidyPerCapita = perCapita
	return nil
}

// Nation reports whether id is known to the model.
func (m *Model) Nation(id NationID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.st.Nations[id]
	return ok
}

func (m *Model) price(r Resource, t float64) float64 {
	base := m.st.Prices[r]
	if base <= 0 {
		base = 1
	}
	h := 0.0
	for _, c := range r {
		h = h*31 + float64(c)
	}
	h = math.Mod(h, 1000)
	return base * (0.8 + 0.4*m.noise.Eval2(t*0.9, h))
}

func sortedStrata(m map[StratumID]*StratumProfile) []StratumID {
	ids := make([]StratumID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneState(st ModelState) ModelState {
	out := st
	out.Prices = cloneMap(st.Prices)
	out.Stockpile = cloneMap(st.Stockpile)
	out.Wars = cloneMap(st.Wars)
	out.Strata = make(map[StratumID]*StratumProfile, len(st.Strata))
	for id, p := range st.Strata {
		cp := *p
		out.Strata[id] = &cp
	}
	out.Nations = make(map[NationID]*NationProfile, len(st.Nations))
	for id, n := range st.Nations {
		cp := *n
		cp.Satisfaction = cloneMap(n.Satisfaction)
		cp.Inventory = cloneMap(n.Inventory)
		cp.Relations = cloneMap(n.Relations)
		out.Nations[id] = &cp
	}
	return out
}
