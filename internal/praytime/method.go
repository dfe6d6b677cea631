package praytime

import (
	"fmt"
	"strings"
)

// Method names a published convention for the twilight angles used for
// Fajr and Isha.
type Method string

const (
	MethodMWL     Method = "MWL"
	MethodISNA    Method = "ISNA"
	MethodEgypt   Method = "Egypt"
	MethodMakkah  Method = "Makkah"
	MethodKarachi Method = "Karachi"
	MethodTehran  Method = "Tehran"
	MethodJafari  Method = "Jafari"
)

// MethodParams are the constants behind a Method. Angles are solar
// depression degrees below the horizon.
type MethodParams struct {
	Name           string
	FajrAngle      float64
	IshaAngle      float64
	IshaMinutes    float64 // after Maghrib, used when IshaAngle is zero
	MaghribAngle   float64 // zero means Maghrib is sunset plus MaghribMinutes
	MaghribMinutes float64
}

var methods = map[Method]MethodParams{
	MethodMWL:     {Name: "Muslim World League", FajrAngle: 18, IshaAngle: 17},
	MethodISNA:    {Name: "Islamic Society of North America", FajrAngle: 15, IshaAngle: 15},
	MethodEgypt:   {Name: "Egyptian General Authority of Survey", FajrAngle: 19.5, IshaAngle: 17.5},
	MethodMakkah:  {Name: "Umm Al-Qura University, Makkah", FajrAngle: 18.5, IshaMinutes: 90},
	MethodKarachi: {Name: "University of Islamic Sciences, Karachi", FajrAngle: 18, IshaAngle: 18},
	MethodTehran:  {Name: "Institute of Geophysics, University of Tehran", FajrAngle: 17.7, IshaAngle: 14, MaghribAngle: 4.5},
	MethodJafari:  {Name: "Shia Ithna-Ashari, Leva Institute, Qum", FajrAngle: 16, IshaAngle: 14, MaghribAngle: 4},
}

// Methods lists the supported methods in a stable order.
func Methods() []Method {
	return []Method{MethodMWL, MethodISNA, MethodEgypt, MethodMakkah, MethodKarachi, MethodTehran, MethodJafari}
}

// ParseMethod matches a method name case-insensitively.
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods() {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown calculation method %q", s)
}

func (m Method) Params() (MethodParams, bool) {
	p, ok := methods[m]
	return p, ok
}

// AsrMethod selects the shadow-length convention for Asr.
type AsrMethod string

const (
	AsrStandard AsrMethod = "standard" // shadow = object length + noon shadow
	AsrHanafi   AsrMethod = "hanafi"   // shadow = twice object length + noon shadow
)

func (a AsrMethod) factor() float64 {
	if a == AsrHanafi {
		return 2
	}
	return 1
}

func ParseAsrMethod(s string) (AsrMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(AsrStandard):
		return AsrStandard, nil
	case string(AsrHanafi):
		return AsrHanafi, nil
	}
	return "", fmt.Errorf("unknown asr method %q", s)
}

// HighLatitudeRule decides what happens when Fajr or Isha has no solution
// because the sun never gets deep enough below the horizon.
type HighLatitudeRule string

const (
	// HighLatitudeNone reports ErrComputationUndefined.
	HighLatitudeNone        HighLatitudeRule = "none"
	HighLatitudeNightMiddle HighLatitudeRule = "night-middle"
	HighLatitudeOneSeventh  HighLatitudeRule = "one-seventh"
	HighLatitudeAngleBased  HighLatitudeRule = "angle-based"
)

func ParseHighLatitudeRule(s string) (HighLatitudeRule, error) {
	r := HighLatitudeRule(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case "":
		return HighLatitudeNone, nil
	case HighLatitudeNone, HighLatitudeNightMiddle, HighLatitudeOneSeventh, HighLatitudeAngleBased:
		return r, nil
	}
	return "", fmt.Errorf("unknown high latitude rule %q", s)
}

// nightPortion is the part of the night (in hours) allowed between the
// twilight marker and sunrise/sunset.
func (r HighLatitudeRule) nightPortion(angle, night float64) float64 {
	switch r {
	case HighLatitudeAngleBased:
		return angle / 60 * night
	case HighLatitudeOneSeventh:
		return night / 7
	default:
		return night / 2
	}
}
