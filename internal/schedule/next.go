package schedule

import (
	"errors"
	"time"

	"github.com/Nixie-Tech-LLC/azaan/internal/praytime"
)

var ErrEmptyPlan = errors.New("empty alarm plan")

// Upcoming is a plan entry resolved to a concrete instant.
type Upcoming struct {
	Entry
	At       time.Time `json:"at"`
	Tomorrow bool      `json:"tomorrow"`
}

// Occurrence returns the next instant at hour:minute strictly after now in
// loc. A time equal to now belongs to tomorrow.
func Occurrence(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	at := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !at.After(local) {
		at = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return at
}

// NextPrayer returns the first entry of plan still ahead of now today, or
// the first entry tomorrow once every prayer has passed.
func NextPrayer(plan []Entry, now time.Time, loc *time.Location) (Upcoming, error) {
	if len(plan) == 0 {
		return Upcoming{}, ErrEmptyPlan
	}
	local := now.In(loc)
	for _, e := range plan {
		at := time.Date(local.Year(), local.Month(), local.Day(), e.Hour, e.Minute, 0, 0, loc)
		if at.After(local) {
			return Upcoming{Entry: e, At: at}, nil
		}
	}
	first := plan[0]
	at := time.Date(local.Year(), local.Month(), local.Day()+1, first.Hour, first.Minute, 0, 0, loc)
	return Upcoming{Entry: first, At: at, Tomorrow: true}, nil
}

// PlanFunc builds the alarm plan for a calendar date.
type PlanFunc func(date praytime.CalendarDate) ([]Entry, error)

// PlanFor computes plans from cfg.
func PlanFor(cfg praytime.Config) PlanFunc {
	return func(date praytime.CalendarDate) ([]Entry, error) {
		table, err := praytime.ComputeTimes(date, cfg)
		if err != nil {
			return nil, err
		}
		return BuildAlarmPlan(table)
	}
}

// Next returns the next prayer after now and the time left until it. Once
// today's last prayer has passed the answer comes from tomorrow's plan.
func Next(plan PlanFunc, now time.Time, loc *time.Location) (Upcoming, Remaining, error) {
	local := now.In(loc)
	today := praytime.DateOf(local)
	entries, err := plan(today)
	if err != nil {
		return Upcoming{}, Remaining{}, err
	}
	next, err := NextPrayer(entries, local, loc)
	if err != nil {
		return Upcoming{}, Remaining{}, err
	}
	if next.Tomorrow {
		tomorrow := today.AddDays(1)
		entries, err = plan(tomorrow)
		if err != nil {
			return Upcoming{}, Remaining{}, err
		}
		if len(entries) == 0 {
			return Upcoming{}, Remaining{}, ErrEmptyPlan
		}
		first := entries[0]
		next = Upcoming{Entry: first, At: tomorrow.At(first.Hour, first.Minute, loc), Tomorrow: true}
	}
	return next, Countdown(local, next.At), nil
}

// Remaining is the time left until an upcoming prayer.
type Remaining struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

func Countdown(now, at time.Time) Remaining {
	d := at.Sub(now)
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return Remaining{
		Hours:   total / 3600,
		Minutes: total % 3600 / 60,
		Seconds: total % 60,
	}
}
