// Package notify is the boundary to the notification platform that owns
// one-shot alarm timers and reports delivery and user interaction.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/Nixie-Tech-LLC/azaan/internal/model"
)

// ErrSchedulingFailure wraps every rejection of a Schedule call.
var ErrSchedulingFailure = errors.New("notification scheduling failed")

type EventKind string

const (
	// EventDelivered is raised when a notification fires.
	EventDelivered EventKind = "delivered"
	// EventTapped is raised when the user opens a delivered notification.
	EventTapped EventKind = "tapped"
	// EventBackground is raised by a background task woken by a
	// notification while the app is not in the foreground.
	EventBackground EventKind = "background"
)

func ParseEventKind(s string) (EventKind, bool) {
	switch k := EventKind(s); k {
	case EventDelivered, EventTapped, EventBackground:
		return k, true
	}
	return "", false
}

type Event struct {
	Kind         EventKind          `json:"kind"`
	Notification model.Notification `json:"notification"`
	At           time.Time          `json:"at"`
}

// Listener receives platform events. Listeners run on the goroutine that
// raised the event and must not block for long.
type Listener func(ctx context.Context, ev Event)

type Platform interface {
	// Permission reports whether the platform may post notifications.
	Permission(ctx context.Context) (bool, error)
	// Schedule arms n, replacing any pending notification with the same ID.
	Schedule(ctx context.Context, n model.Notification) error
	Cancel(ctx context.Context, id string) error
	CancelAll(ctx context.Context) error
	// Pending lists armed notifications ordered by fire time.
	Pending(ctx context.Context) ([]model.Notification, error)
	// Subscribe registers fn for every event and returns its disposer.
	Subscribe(fn Listener) func()
	// Dispatch feeds an externally observed event (a tap, a background
	// wake-up) to the subscribers.
	Dispatch(ctx context.Context, ev Event)
}
