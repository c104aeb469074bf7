package economy

// TributePayment is one vassal's periodic remittance.
type TributePayment struct {
	Nation    NationID             `json:"nation"`
	Silver    float64              `json:"silver"`
	Skimmed   float64              `json:"skimmed"` // Lost to governor corruption
	Resources map[Resource]float64 `json:"resources,omitempty"`
}

// Flows is everything the stability core asks the economy to book for a
// day. The core never mutates treasuries or wealth itself.
type Flows struct {
	Day                int                                  `json:"day"`
	Tribute            []TributePayment                     `json:"tribute,omitempty"`
	ControlCosts       float64                              `json:"control_costs"`
	ActionCosts        float64                              `json:"action_costs"`
	Stability          float64                              `json:"stability,omitempty"`
	VassalWealth       map[NationID]float64                 `json:"vassal_wealth,omitempty"` // Aid transfers and development
	SatisfactionDeltas map[NationID]map[SocialClass]float64 `json:"satisfaction_deltas,omitempty"`
	ApprovalDeltas     map[StratumID]float64                `json:"approval_deltas,omitempty"`
	IndependenceWars   []NationID                           `json:"independence_wars,omitempty"` // Former vassals now at war with the player
}

// NewFlows returns empty flows for day.
func NewFlows(day int) Flows {
	return Flows{
		Day:                day,
		VassalWealth:       make(map[NationID]float64),
		SatisfactionDeltas: make(map[NationID]map[SocialClass]float64),
		ApprovalDeltas:     make(map[StratumID]float64),
	}
}

// AddSatisfaction accumulates a satisfaction delta for one class of a nation.
func (f *Flows) AddSatisfaction(n NationID, c SocialClass, delta float64) {
	if delta == 0 {
		return
	}
	if f.SatisfactionDeltas == nil {
		f.SatisfactionDeltas = make(map[NationID]map[SocialClass]float64)
	}
	m, ok := f.SatisfactionDeltas[n]
	if !ok {
		m = make(map[SocialClass]float64)
		f.SatisfactionDeltas[n] = m
	}
	m[c] += delta
}

// AddVassalWealth credits wealth to a vassal.
func (f *Flows) AddVassalWealth(n NationID, amount float64) {
	if amount == 0 {
		return
	}
	if f.VassalWealth == nil {
		f.VassalWealth = make(map[NationID]float64)
	}
	f.VassalWealth[n] += amount
}

// AddApproval accumulates an approval delta for a stratum.
func (f *Flows) AddApproval(s StratumID, delta float64) {
	if delta == 0 {
		return
	}
	if f.ApprovalDeltas == nil {
		f.ApprovalDeltas = make(map[StratumID]float64)
	}
	f.ApprovalDeltas[s] += delta
}

// TributeSilver sums silver over all payments.
func (f Flows) TributeSilver() float64 {
	total := 0.0
	for _, p := range f.Tribute {
		total += p.Silver
	}
	return total
}

// Net is the change to the player treasury these flows imply.
func (f Flows) Net() float64 {
	return f.TributeSilver() - f.ControlCosts - f.ActionCosts
}

// Economy is the external collaborator that owns prices, wages, treasuries
// and satisfaction. Snapshot must not be mutated by the caller.
type Economy interface {
	Snapshot(day int) Snapshot
	Apply(f Flows)
}
