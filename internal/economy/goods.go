// Package economy defines the contract between the stability core and the
// resource economy: the read-only daily snapshot the core consumes and the
// flows (income, costs, transfers) it hands back. It also ships a reference
// Model so the simulation can run without an external economy.
package economy

// Resource names a tradeable good tracked by the economy.
type Resource string

const (
	ResGrain     Resource = "grain"
	ResFish      Resource = "fish"
	ResSalt      Resource = "salt"
	ResCloth     Resource = "cloth"
	ResTimber    Resource = "timber"
	ResIron      Resource = "iron"
	ResTools     Resource = "tools"
	ResWine      Resource = "wine"
	ResSpices    Resource = "spices"
	ResSilk      Resource = "silk"
	ResFurs      Resource = "furs"
	ResJewelry   Resource = "jewelry"
	ResBooks     Resource = "books"
	ResTea       Resource = "tea"
	ResPorcelain Resource = "porcelain"
)

// NeedClass tells whether a resource is a basic or a luxury need of a stratum.
type NeedClass uint8

const (
	NeedNone   NeedClass = iota // Not consumed by the stratum
	NeedBase                    // Survival / subsistence
	NeedLuxury                  // Comfort and status goods
)

// NeedSet lists the resources a stratum consumes, split by class.
type NeedSet struct {
	Base   []Resource `json:"base" yaml:"base"`
	Luxury []Resource `json:"luxury" yaml:"luxury"`
}

// Classify reports which need class r belongs to for this stratum.
// Base wins if a resource is listed in both.
func (n NeedSet) Classify(r Resource) NeedClass {
	for _, b := range n.Base {
		if b == r {
			return NeedBase
		}
	}
	for _, l := range n.Luxury {
		if l == r {
			return NeedLuxury
		}
	}
	return NeedNone
}

// All returns base then luxury needs in declaration order.
func (n NeedSet) All() []Resource {
	out := make([]Resource, 0, len(n.Base)+len(n.Luxury))
	out = append(out, n.Base...)
	return append(out, n.Luxury...)
}

// DefaultNeeds returns the need sets used by the reference strata.
func DefaultNeeds() map[string]NeedSet {
	return map[string]NeedSet{
		"nobility": {
			Base:   []Resource{ResGrain, ResCloth, ResWine},
			Luxury: []Resource{ResSilk, ResJewelry, ResSpices, ResPorcelain, ResFurs, ResBooks},
		},
		"clergy": {
			Base:   []Resource{ResGrain, ResCloth, ResBooks},
			Luxury: []Resource{ResWine, ResSilk, ResTea, ResPorcelain},
		},
		"merchants": {
			Base:   []Resource{ResGrain, ResFish, ResCloth, ResTools},
			Luxury: []Resource{ResWine, ResSpices, ResTea, ResSilk, ResPorcelain},
		},
		"peasants": {
			Base:   []Resource{ResGrain, ResSalt, ResTimber},
			Luxury: []Resource{ResCloth, ResWine, ResTea},
		},
		"laborers": {
			Base:   []Resource{ResGrain, ResFish, ResSalt, ResCloth},
			Luxury: []Resource{ResWine, ResTea, ResTools},
		},
		"soldiers": {
			Base:   []Resource{ResGrain, ResIron, ResCloth},
			Luxury: []Resource{ResWine, ResFurs, ResSpices},
		},
	}
}
