// Realm generation using layered simplex noise.
// One noise layer drives strata, one drives foreign nations and one drives
// the pool of officials, so the same seed always yields the same realm.
package scenario

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/google/uuid"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/officials"
)

// GenConfig holds realm generation parameters.
type GenConfig struct {
	Seed      int64   // Random seed (0 = random)
	Nations   int     // Foreign nations available for vassalage
	Officials int     // Size of the official pool
	Treasury  float64 // Starting crown treasury
}

// DefaultGenConfig returns the configuration used by the server binary.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:      0,
		Nations:   6,
		Officials: 8,
		Treasury:  5000,
	}
}

// SmallTestConfig returns a tiny realm for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Seed:      42,
		Nations:   3,
		Officials: 4,
		Treasury:  2000,
	}
}

// Realm is a freshly generated starting position.
type Realm struct {
	Seed      int64
	Economy   economy.ModelState
	Officials []officials.Official
}

// stratumBase is the unperturbed profile of a reference stratum.
type stratumBase struct {
	income    float64
	influence float64
	coalition bool
}

var strataBase = map[economy.StratumID]stratumBase{
	"nobility":  {income: 40, influence: 30, coalition: true},
	"clergy":    {income: 20, influence: 15, coalition: true},
	"merchants": {income: 30, influence: 20},
	"peasants":  {income: 6, influence: 10},
	"laborers":  {income: 8, influence: 8},
	"soldiers":  {income: 10, influence: 12},
}

var basePrices = map[economy.Resource]float64{
	economy.ResGrain:     1,
	economy.ResFish:      1.2,
	economy.ResSalt:      1.5,
	economy.ResTimber:    1.3,
	economy.ResCloth:     3,
	economy.ResIron:      4,
	economy.ResTools:     6,
	economy.ResWine:      5,
	economy.ResTea:       6,
	economy.ResFurs:      8,
	economy.ResBooks:     9,
	economy.ResSpices:    10,
	economy.ResSilk:      14,
	economy.ResPorcelain: 16,
	economy.ResJewelry:   25,
}

var (
	nationPrefixes = []string{
		"Vel", "Aster", "Kor", "Mar", "Thal", "Ori", "Sel", "Dun",
		"Bram", "Ely", "Tor", "Quen", "Ard", "Lys", "Hal", "Nor",
	}
	nationSuffixes = []string{
		"goria", "heim", "mark", "ovia", "land", "reach", "aria",
		"wyn", "mere", "thor", "uria", "dell", "esse", "holt",
	}
	givenNames = []string{
		"Aldric", "Beatrix", "Cedric", "Dagny", "Edmund", "Fenna", "Godric",
		"Hild", "Ingram", "Joscelin", "Konrad", "Liesel", "Merek", "Nesta",
		"Osric", "Perrin", "Rowena", "Sigrun", "Tamsin", "Ulric",
	}
	officialOrigins = []economy.StratumID{"nobility", "clergy", "merchants", "soldiers"}
)

var idNamespace = uuid.MustParse("0b9ad0c4-3f61-4c3e-8d2a-5e7f41a9c2d8")

// Generate creates a complete starting realm.
func Generate(cfg GenConfig) Realm {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	// Three noise generators for independent layers.
	strataNoise := opensimplex.NewNormalized(seed)
	nationNoise := opensimplex.NewNormalized(seed + 1)
	officialNoise := opensimplex.NewNormalized(seed + 2)

	st := economy.ModelState{
		Seed:      seed,
		BaseTax:   2,
		Player:    economy.PlayerSnapshot{Treasury: cfg.Treasury, Wealth: 30000, Military: 40, Stability: 60},
		Prices:    make(map[economy.Resource]float64, len(basePrices)),
		Strata:    generateStrata(strataNoise),
		Nations:   generateNations(nationNoise, cfg.Nations),
		Stockpile: make(map[economy.Resource]float64, len(basePrices)),
		Wars:      make(map[economy.NationID]int),
	}
	for i, r := range sortedResources() {
		// Prices vary ±15% around their base.
		st.Prices[r] = round2(basePrices[r] * (0.85 + 0.3*octaveNoise(strataNoise, float64(i)*0.7, 50, 3, 1, 0.5)))
		st.Stockpile[r] = math.Round(500 * octaveNoise(nationNoise, float64(i)*0.7, 50, 2, 1, 0.5))
	}

	return Realm{
		Seed:      seed,
		Economy:   st,
		Officials: generateOfficials(officialNoise, seed, cfg.Officials),
	}
}

func generateStrata(noise opensimplex.Noise) map[economy.StratumID]*economy.StratumProfile {
	needs := economy.DefaultNeeds()
	out := make(map[economy.StratumID]*economy.StratumProfile, len(strataBase))

	coalitionInfluence := 0.0
	for _, b := range strataBase {
		if b.coalition {
			coalitionInfluence += b.influence
		}
	}

	for i, id := range sortedStrataIDs() {
		b := strataBase[id]
		x := float64(i) * 1.3
		p := &economy.StratumProfile{
			BaseIncome:        round2(b.income * (0.8 + 0.4*octaveNoise(noise, x, 0, 4, 1, 0.5))),
			HeadTaxMultiplier: 1,
			Influence:         round2(b.influence * (0.9 + 0.2*octaveNoise(noise, x, 10, 2, 1, 0.5))),
			Approval:          math.Round(40 + 25*octaveNoise(noise, x, 20, 3, 1, 0.5)),
			Needs:             needs[string(id)],
			Coalition:         economy.CoalitionStanding{Sensitivity: 1},
		}
		if b.coalition {
			p.Coalition.InCoalition = true
			p.Coalition.Share = round2(b.influence / coalitionInfluence)
		}
		out[id] = p
	}
	return out
}

func generateNations(noise opensimplex.Noise, n int) map[economy.NationID]*economy.NationProfile {
	out := make(map[economy.NationID]*economy.NationProfile, n)
	ids := make([]economy.NationID, 0, n)
	resources := sortedResources()

	for i := 0; i < n; i++ {
		x := float64(i) * 2.1
		name := nationName(noise, x, out)
		id := economy.NationID(strings.ToLower(name))

		// Wealth spans small principalities to rich kingdoms.
		wealth := 2000 + 58000*math.Pow(octaveNoise(noise, x, 0, 4, 1, 0.5), 2)
		np := &economy.NationProfile{
			Wealth:       math.Round(wealth),
			Military:     math.Round(5 + 55*octaveNoise(noise, x, 30, 3, 1, 0.5)),
			Satisfaction: make(map[economy.SocialClass]float64, len(economy.SocialClasses)),
			Inventory:    make(map[economy.Resource]float64),
			Relations:    make(map[economy.NationID]float64),
		}
		for c, class := range economy.SocialClasses {
			np.Satisfaction[class] = math.Round(30 + 40*octaveNoise(noise, x, 40+float64(c)*5, 3, 1, 0.5))
		}
		for j, r := range resources {
			if v := octaveNoise(noise, x, 60+float64(j)*1.7, 2, 1, 0.5); v > 0.45 {
				np.Inventory[r] = math.Round(200 * v)
			}
		}
		out[id] = np
		ids = append(ids, id)
	}

	// Relations are symmetric and sampled once per pair.
	for i, a := range ids {
		for j := i + 1; j < len(ids); j++ {
			b := ids[j]
			v := math.Round(100 * octaveNoise(noise, float64(i)*3.3, float64(j)*3.3+90, 3, 1, 0.5))
			out[a].Relations[b] = v
			out[b].Relations[a] = v
		}
	}
	return out
}

// nationName picks an unused prefix/suffix pair guided by noise.
func nationName(noise opensimplex.Noise, x float64, existing map[economy.NationID]*economy.NationProfile) string {
	start := int(noise.Eval2(x, 200) * float64(len(nationPrefixes)*len(nationSuffixes)))
	for i := 0; i < len(nationPrefixes)*len(nationSuffixes); i++ {
		k := start + i*17
		name := nationPrefixes[k%len(nationPrefixes)] + nationSuffixes[(k/len(nationPrefixes))%len(nationSuffixes)]
		if _, taken := existing[economy.NationID(strings.ToLower(name))]; !taken {
			return name
		}
	}
	// Fallback: append the index.
	return fmt.Sprintf("Nation%d", len(existing))
}

func generateOfficials(noise opensimplex.Noise, seed int64, n int) []officials.Official {
	out := make([]officials.Official, 0, n)
	attr := func(x, y float64) float64 {
		return math.Round(15 + 80*octaveNoise(noise, x, y, 3, 1, 0.5))
	}
	for i := 0; i < n; i++ {
		x := float64(i) * 1.9
		name := givenNames[i%len(givenNames)]
		if i >= len(givenNames) {
			name = fmt.Sprintf("%s %d", name, i/len(givenNames)+1)
		}
		out = append(out, officials.Official{
			ID:             officials.OfficialID(uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("%d/official/%d", seed, i))).String()),
			Name:           name,
			Prestige:       attr(x, 0),
			Administrative: attr(x, 10),
			Military:       attr(x, 20),
			Loyalty:        attr(x, 30),
			SourceStratum:  officialOrigins[int(noise.Eval2(x, 40)*float64(len(officialOrigins)))%len(officialOrigins)],
		})
	}
	return out
}

// octaveNoise generates fractal noise by layering multiple frequencies.
// The result stays in [0, 1] for a normalized source.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

func sortedStrataIDs() []economy.StratumID {
	ids := make([]economy.StratumID, 0, len(strataBase))
	for id := range strataBase {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedResources() []economy.Resource {
	out := make([]economy.Resource, 0, len(basePrices))
	for r := range basePrices {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
