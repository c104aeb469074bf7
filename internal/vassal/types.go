// Package vassal runs the control of subordinate nations: independence
// pressure, control measures, governors, tribute and the independence-war
// trigger.
package vassal

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownType    = errors.New("unknown vassal type")
	ErrUnknownMeasure = errors.New("unknown control measure")
	ErrUnknownMandate = errors.New("unknown governor mandate")
	ErrUnknownPolicy  = errors.New("unknown vassal policy")
)

// Type is the kind of subordination, set at establishment.
type Type uint8

const (
	TypeProtectorate Type = iota
	TypeTributary
	TypePuppet
	TypeColony
)

// Types lists every vassal type.
var Types = [...]Type{TypeProtectorate, TypeTributary, TypePuppet, TypeColony}

var typeNames = []string{"protectorate", "tributary", "puppet", "colony"}

func (t Type) String() string { return enumName(typeNames, int(t), "type") }

func (t Type) MarshalText() ([]byte, error) { return enumText(typeNames, int(t), ErrUnknownType) }

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	*t = v
	return err
}

// ParseType maps a name to a vassal type.
func ParseType(name string) (Type, error) {
	i, err := enumParse(typeNames, name, ErrUnknownType)
	return Type(i), err
}

// MeasureID names a control measure.
type MeasureID uint8

const (
	MeasureGovernor MeasureID = iota
	MeasureGarrison
	MeasureAssimilation
	MeasureEconomicAid
)

// MeasureIDs lists measures in application order.
var MeasureIDs = [...]MeasureID{MeasureGovernor, MeasureGarrison, MeasureAssimilation, MeasureEconomicAid}

var measureNames = []string{"governor", "garrison", "assimilation", "economic_aid"}

func (m MeasureID) String() string { return enumName(measureNames, int(m), "measure") }

func (m MeasureID) MarshalText() ([]byte, error) {
	return enumText(measureNames, int(m), ErrUnknownMeasure)
}

func (m *MeasureID) UnmarshalText(b []byte) error {
	v, err := ParseMeasure(string(b))
	*m = v
	return err
}

// ParseMeasure maps a name to a measure.
func ParseMeasure(name string) (MeasureID, error) {
	i, err := enumParse(measureNames, name, ErrUnknownMeasure)
	return MeasureID(i), err
}

// Mandate is a governor's policy focus.
type Mandate uint8

const (
	MandatePacify Mandate = iota
	MandateExploit
	MandateDevelop
	MandateIntegrate
)

var mandateNames = []string{"pacify", "exploit", "develop", "integrate"}

func (m Mandate) String() string { return enumName(mandateNames, int(m), "mandate") }

func (m Mandate) MarshalText() ([]byte, error) {
	return enumText(mandateNames, int(m), ErrUnknownMandate)
}

func (m *Mandate) UnmarshalText(b []byte) error {
	v, err := ParseMandate(string(b))
	*m = v
	return err
}

// ParseMandate maps a name to a mandate.
func ParseMandate(name string) (Mandate, error) {
	i, err := enumParse(mandateNames, name, ErrUnknownMandate)
	return Mandate(i), err
}

// LaborPolicy is the player's labor regime over the vassal.
type LaborPolicy uint8

const (
	LaborStandard LaborPolicy = iota
	LaborForced
	LaborFree
)

var laborNames = []string{"standard", "forced", "free"}

func (l LaborPolicy) String() string { return enumName(laborNames, int(l), "labor") }

func (l LaborPolicy) MarshalText() ([]byte, error) {
	return enumText(laborNames, int(l), ErrUnknownPolicy)
}

func (l *LaborPolicy) UnmarshalText(b []byte) error {
	v, err := ParseLabor(string(b))
	*l = v
	return err
}

// ParseLabor maps a name to a labor policy.
func ParseLabor(name string) (LaborPolicy, error) {
	i, err := enumParse(laborNames, name, ErrUnknownPolicy)
	return LaborPolicy(i), err
}

// TradePolicy is the player's trade regime over the vassal.
type TradePolicy uint8

const (
	TradeStandard TradePolicy = iota
	TradeMonopoly
	TradePreferential
	TradeFree
)

var tradeNames = []string{"standard", "monopoly", "preferential", "free"}

func (t TradePolicy) String() string { return enumName(tradeNames, int(t), "trade") }

func (t TradePolicy) MarshalText() ([]byte, error) {
	return enumText(tradeNames, int(t), ErrUnknownPolicy)
}

func (t *TradePolicy) UnmarshalText(b []byte) error {
	v, err := ParseTrade(string(b))
	*t = v
	return err
}

// ParseTrade maps a name to a trade policy.
func ParseTrade(name string) (TradePolicy, error) {
	i, err := enumParse(tradeNames, name, ErrUnknownPolicy)
	return TradePolicy(i), err
}

func enumName(names []string, i int, kind string) string {
	if i >= 0 && i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("%s(%d)", kind, i)
}

func enumText(names []string, i int, sentinel error) ([]byte, error) {
	if i < 0 || i >= len(names) {
		return nil, fmt.Errorf("%w: %d", sentinel, i)
	}
	return []byte(names[i]), nil
}

func enumParse(names []string, name string, sentinel error) (int, error) {
	for i, n := range names {
		if n == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", sentinel, name)
}
