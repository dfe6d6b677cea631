package model

import "time"

type Priority int

const (
	PriorityMin Priority = iota
	PriorityLow
	PriorityDefault
	PriorityHigh
	PriorityMax
)

// PayloadReschedule marks the daily reschedule notification.
const PayloadReschedule = "reschedule"

// Payload travels with a notification and comes back on delivery or tap.
// Prayer alarms carry Prayer; the reschedule marker carries Type.
type Payload struct {
	Type   string `json:"_type,omitempty"`
	Prayer string `json:"prayer,omitempty"`
}

func (p Payload) IsReschedule() bool { return p.Type == PayloadReschedule }

func (p Payload) IsPrayer() bool { return p.Prayer != "" && p.Type == "" }

// Notification is a one-shot request handed to the notification platform.
type Notification struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Sound    string    `json:"sound,omitempty"`
	Priority Priority  `json:"priority"`
	Payload  Payload   `json:"data"`
	At       time.Time `json:"at"`
}
