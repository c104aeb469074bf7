package steward

import "sort"

// Crisis levels, most severe first.
const (
	LevelCritical = "CRITICAL"
	LevelWarning  = "WARNING"
	LevelWatch    = "WATCH"
	LevelHealthy  = "HEALTHY"
)

const (
	uprisingAt        = 90.0
	warningOrg        = 70.0
	watchOrg          = 50.0
	warningDays       = 30
	warPressure       = 60.0 // Below this no independence war can start
	criticalCapFactor = 0.9
)

// Hotspot is a stratum worth acting on.
type Hotspot struct {
	Stratum        StratumInfo
	DaysToUprising int // -1 when the stratum is not heading for an uprising
}

// Flashpoint is a vassal whose pressure can trigger a war.
type Flashpoint struct {
	Vassal VassalInfo
	Ratio  float64 // Pressure over cap
}

// RealmHealth holds derived diagnostic signals computed from a RealmSnapshot.
type RealmHealth struct {
	Hotspots    []Hotspot    // Most organized first
	Flashpoints []Flashpoint // Highest pressure first
	CrisisLevel string
}

// Triage computes a RealmHealth from the snapshot's data.
func Triage(snap *RealmSnapshot) *RealmHealth {
	h := &RealmHealth{CrisisLevel: LevelHealthy}
	raise := func(level string) {
		if severity(level) > severity(h.CrisisLevel) {
			h.CrisisLevel = level
		}
	}

	for _, s := range snap.Strata {
		days := -1
		if s.DaysToUprising != nil {
			days = *s.DaysToUprising
		}
		switch {
		case s.Organization >= uprisingAt:
			raise(LevelCritical)
		case s.Organization >= warningOrg, days >= 0 && days <= warningDays:
			raise(LevelWarning)
		case s.Organization >= watchOrg:
			raise(LevelWatch)
		default:
			continue
		}
		h.Hotspots = append(h.Hotspots, Hotspot{Stratum: s, DaysToUprising: days})
	}
	sort.SliceStable(h.Hotspots, func(i, j int) bool {
		return h.Hotspots[i].Stratum.Organization > h.Hotspots[j].Stratum.Organization
	})

	for _, v := range snap.Vassals {
		if v.IndependencePressure < warPressure {
			continue
		}
		ratio := 1.0
		if v.IndependenceCap > 0 {
			ratio = v.IndependencePressure / v.IndependenceCap
		}
		if ratio >= criticalCapFactor {
			raise(LevelCritical)
		} else {
			raise(LevelWarning)
		}
		h.Flashpoints = append(h.Flashpoints, Flashpoint{Vassal: v, Ratio: ratio})
	}
	sort.SliceStable(h.Flashpoints, func(i, j int) bool {
		return h.Flashpoints[i].Vassal.IndependencePressure > h.Flashpoints[j].Vassal.IndependencePressure
	})

	return h
}

func severity(level string) int {
	switch level {
	case LevelCritical:
		return 3
	case LevelWarning:
		return 2
	case LevelWatch:
		return 1
	}
	return 0
}
