// Package alarm arms one notification per prayer in a daily plan.
package alarm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/azaan/internal/metrics"
	"github.com/Nixie-Tech-LLC/azaan/internal/model"
	"github.com/Nixie-Tech-LLC/azaan/internal/notify"
	"github.com/Nixie-Tech-LLC/azaan/internal/schedule"
)

var ErrPermissionDenied = errors.New("notification permission denied")

const alarmBody = "Haiya Al Salah!"

// Manager owns the set of armed prayer alarms. Every SetAlarms call fully
// replaces what the platform has pending.
type Manager struct {
	platform notify.Platform
	clock    clockwork.Clock
	loc      *time.Location
	sound    string

	mu      sync.Mutex
	entries []model.AlarmEntry
}

func NewManager(platform notify.Platform, clock clockwork.Clock, loc *time.Location, sound string) *Manager {
	return &Manager{
		platform: platform,
		clock:    clock,
		loc:      loc,
		sound:    sound,
	}
}

// Request builds the notification that fires for e at the given instant.
func Request(e schedule.Entry, at time.Time, sound string) model.Notification {
	return model.Notification{
		ID:       e.Name,
		Title:    "⏰ " + e.Display,
		Body:     alarmBody,
		Sound:    sound,
		Priority: model.PriorityMax,
		Payload:  model.Payload{Prayer: e.Name},
		At:       at,
	}
}

// SetAlarms cancels everything pending on the platform and arms one alarm
// per plan entry at its next occurrence. A prayer whose time has passed
// today is armed for tomorrow. Alarms the platform rejects are logged and
// left out of the result.
func (m *Manager) SetAlarms(ctx context.Context, plan []schedule.Entry) ([]model.AlarmEntry, error) {
	granted, err := m.platform.Permission(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking notification permission: %w", err)
	}
	if !granted {
		log.Warn().Msg("notification permission not granted, alarms not scheduled")
		return nil, ErrPermissionDenied
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.platform.CancelAll(ctx); err != nil {
		return nil, fmt.Errorf("cancelling pending notifications: %w", err)
	}
	m.entries = nil

	now := m.clock.Now()
	entries := make([]model.AlarmEntry, 0, len(plan))
	for _, e := range plan {
		at := schedule.Occurrence(now, e.Hour, e.Minute, m.loc)
		if err := m.platform.Schedule(ctx, Request(e, at, m.sound)); err != nil {
			metrics.IncAlarmFailure(e.Name)
			log.Error().Err(err).Str("prayer", e.Name).Time("at", at).Msg("failed to schedule alarm")
			continue
		}
		metrics.IncAlarmScheduled(e.Name)
		log.Info().Str("prayer", e.Name).Time("at", at).Msg("alarm scheduled")
		entries = append(entries, model.AlarmEntry{
			Prayer:         e.Name,
			ScheduledAt:    at,
			NotificationID: e.Name,
		})
	}

	m.entries = entries
	metrics.SetPendingAlarms(len(entries))
	return append([]model.AlarmEntry(nil), entries...), nil
}

// CancelAll removes every pending notification, including any that were
// not scheduled through this manager.
func (m *Manager) CancelAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.platform.CancelAll(ctx); err != nil {
		return fmt.Errorf("cancelling pending notifications: %w", err)
	}
	m.entries = nil
	metrics.SetPendingAlarms(0)
	return nil
}

// Entries returns the alarms armed by the last SetAlarms call.
func (m *Manager) Entries() []model.AlarmEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AlarmEntry(nil), m.entries...)
}
