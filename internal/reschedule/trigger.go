// Package reschedule rebuilds the day's alarms once per calendar day, from
// a marker notification armed for just after midnight and from a periodic
// fallback that catches a missed marker.
package reschedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/azaan/internal/alarm"
	"github.com/Nixie-Tech-LLC/azaan/internal/kv"
	"github.com/Nixie-Tech-LLC/azaan/internal/metrics"
	"github.com/Nixie-Tech-LLC/azaan/internal/model"
	"github.com/Nixie-Tech-LLC/azaan/internal/notify"
	"github.com/Nixie-Tech-LLC/azaan/internal/praytime"
	"github.com/Nixie-Tech-LLC/azaan/internal/schedule"
)

const (
	MarkerID = "daily-reschedule"

	markerHour   = 0
	markerMinute = 5

	DefaultFallbackSpec = "@every 15m"
	DefaultLockTTL      = 2 * time.Minute
	fallbackTimeout     = time.Minute
)

// Rebuild paths, used in logs and metrics.
const (
	PathStartup  = "startup"
	PathMarker   = "marker"
	PathFallback = "fallback"
	PathManual   = "manual"
)

type State string

const (
	StateIdle  State = "idle"
	StateArmed State = "armed"
	StateFired State = "fired"
)

// PlanFunc builds the alarm plan for a day.
type PlanFunc func(date praytime.CalendarDate) ([]schedule.Entry, error)

type Config struct {
	Platform notify.Platform
	Alarms   *alarm.Manager
	Store    kv.Store
	Clock    clockwork.Clock
	Location *time.Location
	Plan     PlanFunc
	LockTTL  time.Duration
}

// Result describes one rebuild attempt.
type Result struct {
	Day     string             `json:"day"`
	Path    string             `json:"path"`
	Skipped bool               `json:"skipped"`
	Alarms  []model.AlarmEntry `json:"alarms,omitempty"`
}

type Trigger struct {
	platform notify.Platform
	alarms   *alarm.Manager
	store    kv.Store
	clock    clockwork.Clock
	loc      *time.Location
	plan     PlanFunc
	lockTTL  time.Duration

	mu    sync.Mutex
	fired bool
}

func New(cfg Config) *Trigger {
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Trigger{
		platform: cfg.Platform,
		alarms:   cfg.Alarms,
		store:    cfg.Store,
		clock:    clock,
		loc:      cfg.Location,
		plan:     cfg.Plan,
		lockTTL:  ttl,
	}
}

// Marker is the silent notification that starts the next day's rebuild.
func Marker(now time.Time, loc *time.Location) model.Notification {
	local := now.In(loc)
	return model.Notification{
		ID:       MarkerID,
		Priority: model.PriorityMin,
		Payload:  model.Payload{Type: model.PayloadReschedule},
		At:       time.Date(local.Year(), local.Month(), local.Day()+1, markerHour, markerMinute, 0, 0, loc),
	}
}

func (t *Trigger) today() praytime.CalendarDate {
	return praytime.DateOf(t.clock.Now().In(t.loc))
}

// Arm replaces the marker with one for 00:05 tomorrow.
func (t *Trigger) Arm(ctx context.Context) error {
	if err := t.platform.Cancel(ctx, MarkerID); err != nil {
		return fmt.Errorf("cancelling reschedule marker: %w", err)
	}
	m := Marker(t.clock.Now(), t.loc)
	if err := t.platform.Schedule(ctx, m); err != nil {
		return fmt.Errorf("arming reschedule marker: %w", err)
	}
	log.Debug().Time("at", m.At).Msg("reschedule marker armed")
	return nil
}

// State reports where the trigger is in its daily cycle.
func (t *Trigger) State(ctx context.Context) (State, error) {
	t.mu.Lock()
	fired := t.fired
	t.mu.Unlock()
	if fired {
		return StateFired, nil
	}

	armed, err := t.markerPending(ctx)
	if err != nil {
		return "", err
	}
	if armed {
		return StateArmed, nil
	}
	return StateIdle, nil
}

func (t *Trigger) markerPending(ctx context.Context) (bool, error) {
	pending, err := t.platform.Pending(ctx)
	if err != nil {
		return false, fmt.Errorf("listing pending notifications: %w", err)
	}
	for _, n := range pending {
		if n.ID == MarkerID {
			return true, nil
		}
	}
	return false, nil
}

// Rebuild computes today's plan, arms it, re-arms the marker and commits
// today's DayKey, all while holding the rebuild lock. A held lock means
// another path is already rebuilding and the call is a no-op.
func (t *Trigger) Rebuild(ctx context.Context, path string) (Result, error) {
	start := t.clock.Now()
	day := t.today()

	owner := uuid.NewString()
	if err := t.store.AcquireLock(ctx, owner, t.lockTTL); err != nil {
		if errors.Is(err, kv.ErrLockContention) {
			log.Info().Str("path", path).Str("day", day.String()).Msg("rebuild already in progress, skipping")
			metrics.ObserveRebuild(path, metrics.ResultSkipped, 0)
			return Result{Day: day.String(), Path: path, Skipped: true}, nil
		}
		return Result{}, err
	}
	defer t.releaseLock(ctx, owner)

	res, err := t.rebuildLocked(ctx, day, path)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveRebuild(path, result, t.clock.Since(start))
	return res, err
}

func (t *Trigger) releaseLock(ctx context.Context, owner string) {
	if err := t.store.ReleaseLock(context.WithoutCancel(ctx), owner); err != nil {
		log.Warn().Err(err).Msg("failed to release rebuild lock")
	}
}

func (t *Trigger) rebuildLocked(ctx context.Context, day praytime.CalendarDate, path string) (Result, error) {
	plan, err := t.plan(day)
	if err != nil {
		return Result{}, fmt.Errorf("building plan for %s: %w", day, err)
	}
	entries, err := t.alarms.SetAlarms(ctx, plan)
	if err != nil {
		return Result{}, fmt.Errorf("setting alarms for %s: %w", day, err)
	}
	if err := t.Arm(ctx); err != nil {
		return Result{}, err
	}
	if err := t.store.SetDayKey(ctx, day.String()); err != nil {
		return Result{}, err
	}

	log.Info().Str("path", path).Str("day", day.String()).Int("alarms", len(entries)).Msg("alarms rebuilt")
	return Result{Day: day.String(), Path: path, Alarms: entries}, nil
}

// HandleEvent rebuilds when the marker is delivered. Other notifications
// are ignored.
func (t *Trigger) HandleEvent(ctx context.Context, ev notify.Event) {
	if !ev.Notification.Payload.IsReschedule() {
		return
	}

	t.mu.Lock()
	t.fired = true
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.fired = false
		t.mu.Unlock()
	}()

	log.Info().Str("kind", string(ev.Kind)).Msg("reschedule marker fired")
	if _, err := t.Rebuild(ctx, PathMarker); err != nil {
		log.Error().Err(err).Msg("marker rebuild failed, previous alarms left in place")
	}
}

// CheckDay is the fallback path. It rebuilds when the committed DayKey is
// not today, or when the marker is no longer pending.
func (t *Trigger) CheckDay(ctx context.Context) (Result, error) {
	day := t.today()

	current, err := t.isCurrent(ctx, day)
	if err != nil {
		return Result{}, err
	}
	if current {
		return Result{Day: day.String(), Path: PathFallback, Skipped: true}, nil
	}

	start := t.clock.Now()
	owner := uuid.NewString()
	if err := t.store.AcquireLock(ctx, owner, t.lockTTL); err != nil {
		if errors.Is(err, kv.ErrLockContention) {
			metrics.ObserveRebuild(PathFallback, metrics.ResultSkipped, 0)
			return Result{Day: day.String(), Path: PathFallback, Skipped: true}, nil
		}
		return Result{}, err
	}
	defer t.releaseLock(ctx, owner)

	// another path may have committed while we waited for the lock
	current, err = t.isCurrent(ctx, day)
	if err != nil {
		return Result{}, err
	}
	if current {
		return Result{Day: day.String(), Path: PathFallback, Skipped: true}, nil
	}

	log.Info().Str("day", day.String()).Msg("day rollover missed, rebuilding")
	res, err := t.rebuildLocked(ctx, day, PathFallback)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveRebuild(PathFallback, result, t.clock.Since(start))
	return res, err
}

func (t *Trigger) isCurrent(ctx context.Context, day praytime.CalendarDate) (bool, error) {
	stored, ok, err := t.store.DayKey(ctx)
	if err != nil {
		return false, err
	}
	if !ok || stored != day.String() {
		return false, nil
	}
	return t.markerPending(ctx)
}

// Register subscribes the trigger to platform events and starts the
// fallback on spec. The returned func undoes both.
func (t *Trigger) Register(ctx context.Context, spec string) (func(), error) {
	if spec == "" {
		spec = DefaultFallbackSpec
	}

	c := cron.New(cron.WithLocation(t.loc))
	_, err := c.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, fallbackTimeout)
		defer cancel()
		if _, err := t.CheckDay(runCtx); err != nil {
			log.Error().Err(err).Msg("fallback day check failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid fallback schedule %q: %w", spec, err)
	}

	unsubscribe := t.platform.Subscribe(t.HandleEvent)
	c.Start()
	log.Info().Str("schedule", spec).Msg("reschedule trigger registered")

	return func() {
		unsubscribe()
		<-c.Stop().Done()
	}, nil
}
