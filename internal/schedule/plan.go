// Package schedule turns a daily prayer table into the ordered list of
// alarms to arm for the day.
package schedule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Nixie-Tech-LLC/azaan/internal/praytime"
)

// Entry is one prayer that gets an alarm.
type Entry struct {
	Name    string `json:"name"`    // lowercase marker name, also the notification id
	Display string `json:"display"` // "Fajr"
	Time    string `json:"time"`    // "05:12"
	Hour    int    `json:"hour"`
	Minute  int    `json:"minute"`
}

// alarmed are the markers that get an alarm, in canonical order. Sunrise and
// midnight are informational only.
var alarmed = []praytime.Marker{
	praytime.Fajr,
	praytime.Dhuhr,
	praytime.Asr,
	praytime.Maghrib,
	praytime.Isha,
}

// BuildAlarmPlan selects the five obligatory prayers from table.
func BuildAlarmPlan(table praytime.Table) ([]Entry, error) {
	plan := make([]Entry, 0, len(alarmed))
	for _, m := range alarmed {
		raw, ok := table.Time(m)
		if !ok {
			return nil, fmt.Errorf("table for %s has no %s time", table.Date, m)
		}
		hour, minute, err := ParseClock(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m, err)
		}
		plan = append(plan, Entry{
			Name:    string(m),
			Display: DisplayName(string(m)),
			Time:    raw,
			Hour:    hour,
			Minute:  minute,
		})
	}
	return plan, nil
}

// ParseClock splits an HH:MM clock time.
func ParseClock(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok || len(h) != 2 || len(m) != 2 {
		return 0, 0, fmt.Errorf("malformed clock time %q", s)
	}
	if hour, err = strconv.Atoi(h); err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("malformed clock time %q", s)
	}
	if minute, err = strconv.Atoi(m); err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("malformed clock time %q", s)
	}
	return hour, minute, nil
}

func DisplayName(name string) string {
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
