// Package organization tracks each stratum's rebellious momentum: a bounded
// score that grows with grievance, shrinks with calm, and is classified into
// discrete stages. The stage is always derived, never stored.
package organization

import "fmt"

// Stage is the discrete classification of an organization score.
type Stage uint8

const (
	StageCalm       Stage = iota // < 30
	StageDiscontent              // 30–49
	StageMobilizing              // 50–69
	StageRadical                 // 70–89
	StageUprising                // >= 90
)

// Stage thresholds on the 0–100 organization scale.
const (
	DiscontentThreshold = 30.0
	MobilizingThreshold = 50.0
	RadicalThreshold    = 70.0
	UprisingThreshold   = 90.0
	MaxOrganization     = 100.0
)

var stageNames = [...]string{"calm", "discontent", "mobilizing", "radical", "uprising"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	if int(s) >= len(stageNames) {
		return nil, fmt.Errorf("invalid stage %d", uint8(s))
	}
	return []byte(stageNames[s]), nil
}

// UnmarshalText decodes a stage name, rejecting unknown names.
func (s *Stage) UnmarshalText(b []byte) error {
	st, err := ParseStage(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseStage maps a stage name to its value.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}

// StageOf classifies an organization score.
func StageOf(org float64) Stage {
	switch {
	case org >= UprisingThreshold:
		return StageUprising
	case org >= RadicalThreshold:
		return StageRadical
	case org >= MobilizingThreshold:
		return StageMobilizing
	case org >= DiscontentThreshold:
		return StageDiscontent
	default:
		return StageCalm
	}
}
