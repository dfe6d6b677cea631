// Package praytime computes the daily prayer time table for a location from
// solar geometry.
package praytime

import (
	"errors"
	"fmt"
	"math"
	"time"

	sunrise "github.com/nathan-osman/go-sunrise"
)

// ErrComputationUndefined is returned when the sun never reaches the angle a
// marker depends on (polar day or night, or twilight that never ends).
var ErrComputationUndefined = errors.New("prayer time undefined for this date and location")

// Marker names one entry of the daily table.
type Marker string

const (
	Fajr     Marker = "fajr"
	Sunrise  Marker = "sunrise"
	Dhuhr    Marker = "dhuhr"
	Asr      Marker = "asr"
	Maghrib  Marker = "maghrib"
	Isha     Marker = "isha"
	Midnight Marker = "midnight"
)

// Markers returns every marker in chronological order.
func Markers() []Marker {
	return []Marker{Fajr, Sunrise, Dhuhr, Asr, Maghrib, Isha, Midnight}
}

// Config is the location and convention a table is computed for.
type Config struct {
	Latitude     float64
	Longitude    float64
	Timezone     string
	Method       Method
	Asr          AsrMethod
	HighLatitude HighLatitudeRule
}

func (c Config) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", c.Longitude)
	}
	if _, ok := c.Method.Params(); !ok {
		return fmt.Errorf("unknown calculation method %q", c.Method)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location loads the configured IANA zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Table maps each marker to its HH:MM local clock time for one date.
type Table struct {
	Date  CalendarDate
	Times map[Marker]string
}

func (t Table) Time(m Marker) (string, bool) {
	v, ok := t.Times[m]
	return v, ok
}

// ComputeTimes returns the prayer time table for date at the configured
// location. It has no side effects.
func ComputeTimes(date CalendarDate, cfg Config) (Table, error) {
	if err := cfg.Validate(); err != nil {
		return Table{}, err
	}

	today, err := dayTimes(date, cfg)
	if err != nil {
		return Table{}, err
	}
	tomorrow, err := dayTimes(date.AddDays(1), cfg)
	if err != nil {
		return Table{}, fmt.Errorf("next day: %w", err)
	}

	hours := map[Marker]float64{
		Fajr:     today.fajr,
		Sunrise:  today.sunrise,
		Dhuhr:    today.dhuhr,
		Asr:      today.asr,
		Maghrib:  today.maghrib,
		Isha:     today.isha,
		Midnight: fixHour(today.sunset + timeDiff(today.sunset, tomorrow.fajr)/2),
	}

	table := Table{Date: date, Times: make(map[Marker]string, len(hours))}
	for m, h := range hours {
		table.Times[m] = formatClock(h)
	}
	return table, nil
}

// hours of the local clock, fractional
type solarDay struct {
	fajr, sunrise, dhuhr, asr, sunset, maghrib, isha float64
}

type calculation struct {
	lat, lng float64
	tz       float64
	jdate    float64
}

func dayTimes(date CalendarDate, cfg Config) (solarDay, error) {
	params, _ := cfg.Method.Params()
	loc, err := cfg.Location()
	if err != nil {
		return solarDay{}, err
	}

	_, offset := time.Date(date.Year, date.Month, date.Day, 12, 0, 0, 0, loc).Zone()
	c := calculation{
		lat:   cfg.Latitude,
		lng:   cfg.Longitude,
		tz:    float64(offset) / 3600,
		jdate: julianDate(date.Year, int(date.Month), date.Day) - cfg.Longitude/(15*24),
	}

	rise, set := sunrise.SunriseSunset(cfg.Latitude, cfg.Longitude, date.Year, date.Month, date.Day)
	if rise.IsZero() || set.IsZero() {
		return solarDay{}, fmt.Errorf("%s on %s: %w", Sunrise, date, ErrComputationUndefined)
	}

	var d solarDay
	d.sunrise = c.clockHours(rise)
	d.sunset = c.clockHours(set)
	d.fajr = c.adjust(c.sunAngleTime(params.FajrAngle, 5.0/24, true))
	d.dhuhr = c.adjust(c.midDay(12.0 / 24))
	d.asr = c.adjust(c.asrTime(cfg.Asr.factor(), 13.0/24))

	if params.MaghribAngle > 0 {
		d.maghrib = c.adjust(c.sunAngleTime(params.MaghribAngle, 18.0/24, false))
	} else {
		d.maghrib = fixHour(d.sunset + params.MaghribMinutes/60)
	}

	if params.IshaMinutes > 0 {
		d.isha = fixHour(d.maghrib + params.IshaMinutes/60)
	} else {
		d.isha = c.adjust(c.sunAngleTime(params.IshaAngle, 18.0/24, false))
	}

	if err := d.highLatitudes(cfg.HighLatitude, params); err != nil {
		return solarDay{}, fmt.Errorf("%s: %w", date, err)
	}
	if math.IsNaN(d.asr) {
		return solarDay{}, fmt.Errorf("%s on %s: %w", Asr, date, ErrComputationUndefined)
	}
	if err := d.order(); err != nil {
		return solarDay{}, fmt.Errorf("%s: %w", date, err)
	}
	return d, nil
}

// minuteHours is the smallest gap kept between two consecutive markers.
const (
	minuteHours = 1.0 / 60
	hourSlack   = 1e-12
)

// order keeps the markers in prayer order within one Fajr-to-Fajr cycle.
// Isha is held between Maghrib and the next Fajr, a minute clear of each;
// when the night is too short for that, or any other pair crosses, the
// day has no usable schedule.
func (d *solarDay) order() error {
	maghrib := timeDiff(d.sunset, d.maghrib)
	fajr := timeDiff(d.sunset, d.fajr)
	switch isha := timeDiff(d.sunset, d.isha); {
	case fajr-maghrib < 2*minuteHours:
		return fmt.Errorf("%s reaches next %s: %w", Maghrib, Fajr, ErrComputationUndefined)
	case isha < maghrib+minuteHours:
		d.isha = fixHour(d.maghrib + minuteHours)
	case isha > fajr-minuteHours:
		d.isha = fixHour(d.fajr - minuteHours)
	}

	seq := []struct {
		marker Marker
		hour   float64
	}{
		{Sunrise, d.sunrise},
		{Dhuhr, d.dhuhr},
		{Asr, d.asr},
		{Maghrib, d.maghrib},
		{Isha, d.isha},
	}
	prev, prevMarker := 0.0, Fajr
	for _, m := range seq {
		at := timeDiff(d.fajr, m.hour)
		if at < prev+minuteHours-hourSlack {
			return fmt.Errorf("%s reaches %s: %w", prevMarker, m.marker, ErrComputationUndefined)
		}
		prev, prevMarker = at, m.marker
	}
	if prev > 24-minuteHours+hourSlack {
		return fmt.Errorf("%s reaches next %s: %w", Isha, Fajr, ErrComputationUndefined)
	}
	return nil
}

// highLatitudes resolves twilight markers that have no solution, or that
// drift too far into the night, according to rule.
func (d *solarDay) highLatitudes(rule HighLatitudeRule, params MethodParams) error {
	if rule == HighLatitudeNone || rule == "" {
		switch {
		case math.IsNaN(d.fajr):
			return fmt.Errorf("%s: %w", Fajr, ErrComputationUndefined)
		case math.IsNaN(d.maghrib):
			return fmt.Errorf("%s: %w", Maghrib, ErrComputationUndefined)
		case math.IsNaN(d.isha):
			return fmt.Errorf("%s: %w", Isha, ErrComputationUndefined)
		}
		return nil
	}

	night := timeDiff(d.sunset, d.sunrise)

	portion := rule.nightPortion(params.FajrAngle, night)
	if math.IsNaN(d.fajr) || timeDiff(d.fajr, d.sunrise) > portion {
		d.fajr = fixHour(d.sunrise - portion)
	}

	if params.MaghribAngle > 0 {
		portion = rule.nightPortion(params.MaghribAngle, night)
		if math.IsNaN(d.maghrib) || timeDiff(d.sunset, d.maghrib) > portion {
			d.maghrib = fixHour(d.sunset + portion)
		}
	}

	if params.IshaMinutes == 0 {
		portion = rule.nightPortion(params.IshaAngle, night)
		if math.IsNaN(d.isha) || timeDiff(d.sunset, d.isha) > portion {
			d.isha = fixHour(d.sunset + portion)
		}
	}
	return nil
}

// midDay is apparent solar noon at day portion t, in hours of UT at the
// configured meridian.
func (c calculation) midDay(t float64) float64 {
	_, eqt := sunPosition(c.jdate + t)
	return fixHour(12 - eqt)
}

// sunAngleTime is when the sun is angle degrees below the horizon, before
// noon if ccw, after noon otherwise. NaN when it never gets there.
func (c calculation) sunAngleTime(angle, t float64, ccw bool) float64 {
	decl, _ := sunPosition(c.jdate + t)
	noon := c.midDay(t)
	cosH := (-dsin(angle) - dsin(decl)*dsin(c.lat)) / (dcos(decl) * dcos(c.lat))
	if cosH < -1 || cosH > 1 {
		return math.NaN()
	}
	h := darccos(cosH) / 15
	if ccw {
		return noon - h
	}
	return noon + h
}

func (c calculation) asrTime(factor, t float64) float64 {
	decl, _ := sunPosition(c.jdate + t)
	angle := -darccot(factor + dtan(math.Abs(c.lat-decl)))
	return c.sunAngleTime(angle, t, false)
}

// adjust moves a computed time onto the local clock of the zone.
func (c calculation) adjust(h float64) float64 {
	if math.IsNaN(h) {
		return h
	}
	return fixHour(h + c.tz - c.lng/15)
}

// clockHours converts an instant into fractional hours of the local clock
// using the zone offset of the day.
func (c calculation) clockHours(t time.Time) float64 {
	u := t.UTC()
	h := float64(u.Hour()) + float64(u.Minute())/60 + float64(u.Second())/3600
	return fixHour(h + c.tz)
}

// formatClock renders fractional hours as HH:MM, truncated to the minute.
func formatClock(h float64) string {
	minutes := int(math.Floor(fixHour(h)*60+1e-9)) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
