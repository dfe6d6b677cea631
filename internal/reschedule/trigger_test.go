package reschedule

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/azaan/internal/alarm"
	"github.com/Nixie-Tech-LLC/azaan/internal/kv"
	"github.com/Nixie-Tech-LLC/azaan/internal/model"
	"github.com/Nixie-Tech-LLC/azaan/internal/notify"
	"github.com/Nixie-Tech-LLC/azaan/internal/praytime"
	"github.com/Nixie-Tech-LLC/azaan/internal/schedule"
)

var mumbai = praytime.Config{
	Latitude:  19.0760,
	Longitude: 72.8777,
	Timezone:  "Asia/Kolkata",
	Method:    praytime.MethodMWL,
}

type env struct {
	clock    *clockwork.FakeClock
	loc      *time.Location
	platform *notify.Local
	store    *kv.BoltStore
	trigger  *Trigger
	plans    atomic.Int32

	mu         sync.Mutex
	planStates []State
}

func newEnv(t *testing.T, start time.Time) *env {
	t.Helper()
	loc, err := mumbai.Location()
	require.NoError(t, err)

	e := &env{
		clock: clockwork.NewFakeClockAt(start.In(loc)),
		loc:   loc,
	}
	e.platform = notify.NewLocal(e.clock, true)
	e.store, err = kv.OpenBolt(filepath.Join(t.TempDir(), "state.db"), e.clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.store.Close() })

	e.trigger = New(Config{
		Platform: e.platform,
		Alarms:   alarm.NewManager(e.platform, e.clock, loc, "azaan.wav"),
		Store:    e.store,
		Clock:    e.clock,
		Location: loc,
		LockTTL:  2 * time.Minute,
		Plan: func(date praytime.CalendarDate) ([]schedule.Entry, error) {
			e.plans.Add(1)
			state, err := e.trigger.State(context.Background())
			if err == nil {
				e.mu.Lock()
				e.planStates = append(e.planStates, state)
				e.mu.Unlock()
			}
			table, err := praytime.ComputeTimes(date, mumbai)
			if err != nil {
				return nil, err
			}
			return schedule.BuildAlarmPlan(table)
		},
	})
	return e
}

func (e *env) dayKey(t *testing.T) string {
	t.Helper()
	key, _, err := e.store.DayKey(context.Background())
	require.NoError(t, err)
	return key
}

func (e *env) marker(t *testing.T) model.Notification {
	t.Helper()
	pending, err := e.platform.Pending(context.Background())
	require.NoError(t, err)
	for _, n := range pending {
		if n.ID == MarkerID {
			return n
		}
	}
	require.FailNow(t, "marker not pending")
	return model.Notification{}
}

func TestMarker(t *testing.T) {
	t.Parallel()
	loc, err := mumbai.Location()
	require.NoError(t, err)

	m := Marker(time.Date(2024, time.November, 3, 23, 59, 0, 0, loc), loc)
	assert.Equal(t, MarkerID, m.ID)
	assert.Equal(t, time.Date(2024, time.November, 4, 0, 5, 0, 0, loc), m.At)
	assert.Equal(t, model.PriorityMin, m.Priority)
	assert.True(t, m.Payload.IsReschedule())
	assert.Empty(t, m.Title)
	assert.Empty(t, m.Sound)

	// just after midnight the marker still goes to the next night
	m = Marker(time.Date(2024, time.November, 4, 0, 1, 0, 0, loc), loc)
	assert.Equal(t, time.Date(2024, time.November, 5, 0, 5, 0, 0, loc), m.At)
}

func TestRebuild_ArmsAlarmsAndMarker(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t, time.Date(2024, time.November, 3, 13, 0, 0, 0, time.UTC))

	state, err := e.trigger.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, state)

	res, err := e.trigger.Rebuild(ctx, PathStartup)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, "2024-11-03", res.Day)
	assert.Len(t, res.Alarms, 5)

	pending, err := e.platform.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 6)
	assert.Equal(t, "2024-11-03", e.dayKey(t))

	state, err = e.trigger.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateArmed, state)
}

func TestDayRolloverConvergence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	// 23:00 in Kolkata
	e := newEnv(t, time.Date(2024, time.November, 3, 17, 30, 0, 0, time.UTC))

	dispose, err := e.trigger.Register(ctx, "@every 1h")
	require.NoError(t, err)
	defer dispose()

	_, err = e.trigger.Rebuild(ctx, PathStartup)
	require.NoError(t, err)
	require.Equal(t, int32(1), e.plans.Load())

	today := e.clock.Now().In(e.loc)
	firstMarker := e.marker(t).At
	e.clock.Advance(firstMarker.Sub(today))

	nextDay := praytime.DateOf(firstMarker).String()
	require.Eventually(t, func() bool {
		key, _, err := e.store.DayKey(ctx)
		return err == nil && key == nextDay
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		s, err := e.trigger.State(ctx)
		return err == nil && s == StateArmed
	}, 2*time.Second, 10*time.Millisecond)

	// the fallback right after the marker finds nothing to do
	res, err := e.trigger.CheckDay(ctx)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, int32(2), e.plans.Load())

	e.mu.Lock()
	assert.Equal(t, []State{StateIdle, StateFired}, e.planStates)
	e.mu.Unlock()

	assert.Equal(t, firstMarker.AddDate(0, 0, 1), e.marker(t).At)
	pending, err := e.platform.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 6)
}

func TestRebuild_LockContentionIsNoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t, time.Date(2024, time.November, 3, 13, 0, 0, 0, time.UTC))

	require.NoError(t, e.store.AcquireLock(ctx, "other", time.Minute))

	res, err := e.trigger.Rebuild(ctx, PathMarker)
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	res, err = e.trigger.CheckDay(ctx)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, int32(0), e.plans.Load())

	require.NoError(t, e.store.ReleaseLock(ctx, "other"))
	res, err = e.trigger.CheckDay(ctx)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, int32(1), e.plans.Load())

	res, err = e.trigger.CheckDay(ctx)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, int32(1), e.plans.Load())
}

func TestCheckDay_StaleDayKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t, time.Date(2024, time.November, 3, 13, 0, 0, 0, time.UTC))

	_, err := e.trigger.Rebuild(ctx, PathStartup)
	require.NoError(t, err)
	require.NoError(t, e.store.SetDayKey(ctx, "2024-11-02"))

	res, err := e.trigger.CheckDay(ctx)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, "2024-11-03", e.dayKey(t))
	assert.Equal(t, int32(2), e.plans.Load())
}

func TestCheckDay_MissingMarker(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t, time.Date(2024, time.November, 3, 13, 0, 0, 0, time.UTC))

	// a DayKey from a previous process whose timers are gone
	require.NoError(t, e.store.SetDayKey(ctx, "2024-11-03"))

	res, err := e.trigger.CheckDay(ctx)
	require.NoError(t, err)
	assert.False(t, res.Skipped)

	state, err := e.trigger.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateArmed, state)
}

func TestRebuild_FailureKeepsPreviousAlarms(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t, time.Date(2024, time.November, 3, 13, 0, 0, 0, time.UTC))

	_, err := e.trigger.Rebuild(ctx, PathStartup)
	require.NoError(t, err)

	e.trigger.plan = func(praytime.CalendarDate) ([]schedule.Entry, error) {
		return nil, praytime.ErrComputationUndefined
	}
	_, err = e.trigger.Rebuild(ctx, PathManual)
	require.ErrorIs(t, err, praytime.ErrComputationUndefined)

	pending, err := e.platform.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 6)

	// the lock was released
	require.NoError(t, e.store.AcquireLock(ctx, "other-owner", time.Minute))
}

func TestRebuild_PermissionDenied(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t, time.Date(2024, time.November, 3, 13, 0, 0, 0, time.UTC))
	e.platform.SetPermission(false)

	_, err := e.trigger.Rebuild(ctx, PathStartup)
	require.ErrorIs(t, err, alarm.ErrPermissionDenied)

	_, ok, err := e.store.DayKey(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHandleEvent_IgnoresPrayers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t, time.Date(2024, time.November, 3, 13, 0, 0, 0, time.UTC))

	e.trigger.HandleEvent(ctx, notify.Event{
		Kind:         notify.EventDelivered,
		Notification: model.Notification{ID: "asr", Payload: model.Payload{Prayer: "asr"}},
	})
	assert.Equal(t, int32(0), e.plans.Load())

	e.trigger.HandleEvent(ctx, notify.Event{
		Kind:         notify.EventBackground,
		Notification: model.Notification{ID: MarkerID, Payload: model.Payload{Type: model.PayloadReschedule}},
	})
	assert.Equal(t, int32(1), e.plans.Load())
}

func TestRegister_InvalidSpec(t *testing.T) {
	t.Parallel()
	e := newEnv(t, time.Date(2024, time.November, 3, 13, 0, 0, 0, time.UTC))

	_, err := e.trigger.Register(context.Background(), "every now and then")
	assert.Error(t, err)
}

func TestRegister_FallbackRebuildsStaleDay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t, time.Date(2024, time.November, 3, 13, 0, 0, 0, time.UTC))

	_, err := e.trigger.Rebuild(ctx, PathStartup)
	require.NoError(t, err)
	require.NoError(t, e.store.SetDayKey(ctx, "2024-11-02"))

	dispose, err := e.trigger.Register(ctx, "@every 1s")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		key, _, err := e.store.DayKey(ctx)
		return err == nil && key == "2024-11-03"
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(2), e.plans.Load())

	done := make(chan struct{})
	go func() {
		dispose()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		require.FailNow(t, "dispose did not return")
	}

	// neither the fallback nor platform events reach the trigger anymore
	require.NoError(t, e.store.SetDayKey(ctx, "2024-11-02"))
	e.platform.Dispatch(ctx, notify.Event{
		Kind:         notify.EventBackground,
		Notification: model.Notification{ID: MarkerID, Payload: model.Payload{Type: model.PayloadReschedule}},
	})
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, "2024-11-02", e.dayKey(t))
	assert.Equal(t, int32(2), e.plans.Load())
}
