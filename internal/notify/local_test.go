package notify

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/azaan/internal/model"
)

var baseTime = time.Date(2024, time.November, 3, 13, 0, 0, 0, time.UTC)

func collect(p Platform) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	stop := p.Subscribe(func(_ context.Context, ev Event) { ch <- ev })
	return ch, stop
}

func expectEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for event")
	}
	return Event{}
}

func expectNoEvent(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case ev := <-ch:
		assert.Failf(t, "unexpected event", "%+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func prayerAt(name string, at time.Time) model.Notification {
	return model.Notification{
		ID:       name,
		Title:    name,
		Priority: model.PriorityMax,
		Payload:  model.Payload{Prayer: name},
		At:       at,
	}
}

func TestLocal_DeliversOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(baseTime)
	p := NewLocal(clock, true)
	events, stop := collect(p)
	defer stop()

	require.NoError(t, p.Schedule(ctx, prayerAt("asr", baseTime.Add(time.Hour))))

	clock.Advance(59 * time.Minute)
	expectNoEvent(t, events)

	clock.Advance(time.Minute)
	ev := expectEvent(t, events)
	assert.Equal(t, EventDelivered, ev.Kind)
	assert.Equal(t, "asr", ev.Notification.Payload.Prayer)

	pending, err := p.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	clock.Advance(24 * time.Hour)
	expectNoEvent(t, events)
}

func TestLocal_ScheduleReplacesSameID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(baseTime)
	p := NewLocal(clock, true)
	events, stop := collect(p)
	defer stop()

	require.NoError(t, p.Schedule(ctx, prayerAt("fajr", baseTime.Add(time.Hour))))
	require.NoError(t, p.Schedule(ctx, prayerAt("fajr", baseTime.Add(2*time.Hour))))

	pending, err := p.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, baseTime.Add(2*time.Hour), pending[0].At)

	clock.Advance(time.Hour)
	expectNoEvent(t, events)
	clock.Advance(time.Hour)
	expectEvent(t, events)
}

func TestLocal_RejectsPastAndUnpermitted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(baseTime)
	p := NewLocal(clock, true)

	err := p.Schedule(ctx, prayerAt("dhuhr", baseTime))
	require.ErrorIs(t, err, ErrSchedulingFailure)
	err = p.Schedule(ctx, prayerAt("dhuhr", baseTime.Add(-time.Minute)))
	require.ErrorIs(t, err, ErrSchedulingFailure)

	p.SetPermission(false)
	granted, err := p.Permission(ctx)
	require.NoError(t, err)
	assert.False(t, granted)
	err = p.Schedule(ctx, prayerAt("dhuhr", baseTime.Add(time.Hour)))
	require.ErrorIs(t, err, ErrSchedulingFailure)

	err = p.Schedule(ctx, model.Notification{At: baseTime.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrSchedulingFailure)
}

func TestLocal_CancelAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(baseTime)
	p := NewLocal(clock, true)
	events, stop := collect(p)
	defer stop()

	require.NoError(t, p.Schedule(ctx, prayerAt("asr", baseTime.Add(time.Hour))))
	require.NoError(t, p.Schedule(ctx, prayerAt("maghrib", baseTime.Add(3*time.Hour))))
	require.NoError(t, p.Cancel(ctx, "asr"))

	pending, err := p.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "maghrib", pending[0].ID)

	require.NoError(t, p.CancelAll(ctx))
	pending, err = p.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	clock.Advance(4 * time.Hour)
	expectNoEvent(t, events)
}

func TestLocal_PendingOrdered(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(baseTime)
	p := NewLocal(clock, true)

	require.NoError(t, p.Schedule(ctx, prayerAt("isha", baseTime.Add(6*time.Hour))))
	require.NoError(t, p.Schedule(ctx, prayerAt("asr", baseTime.Add(2*time.Hour))))
	require.NoError(t, p.Schedule(ctx, prayerAt("fajr", baseTime.Add(16*time.Hour))))

	pending, err := p.Pending(ctx)
	require.NoError(t, err)
	ids := []string{pending[0].ID, pending[1].ID, pending[2].ID}
	assert.Equal(t, []string{"asr", "isha", "fajr"}, ids)
}

func TestLocal_SubscribeDisposer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := NewLocal(clockwork.NewFakeClockAt(baseTime), true)
	events, stop := collect(p)

	p.Dispatch(ctx, Event{Kind: EventTapped, Notification: prayerAt("isha", baseTime)})
	ev := expectEvent(t, events)
	assert.Equal(t, EventTapped, ev.Kind)
	assert.Equal(t, baseTime, ev.At)

	stop()
	stop()
	p.Dispatch(ctx, Event{Kind: EventTapped, Notification: prayerAt("isha", baseTime)})
	expectNoEvent(t, events)
}
