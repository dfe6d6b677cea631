package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/azaan/internal/metrics"
	"github.com/Nixie-Tech-LLC/azaan/internal/model"
)

type pendingNotification struct {
	n     model.Notification
	timer clockwork.Timer
}

// Local is an in-process Platform backed by clock timers.
type Local struct {
	clock clockwork.Clock

	mu        sync.Mutex
	granted   bool
	pending   map[string]*pendingNotification
	listeners map[uint64]Listener
	nextSub   uint64
}

func NewLocal(clock clockwork.Clock, granted bool) *Local {
	return &Local{
		clock:     clock,
		granted:   granted,
		pending:   make(map[string]*pendingNotification),
		listeners: make(map[uint64]Listener),
	}
}

func (l *Local) Permission(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.granted, nil
}

// SetPermission grants or revokes notification permission.
func (l *Local) SetPermission(granted bool) {
	l.mu.Lock()
	l.granted = granted
	l.mu.Unlock()
}

func (l *Local) Schedule(ctx context.Context, n model.Notification) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSchedulingFailure, n.ID, err)
	}
	if n.ID == "" {
		return fmt.Errorf("%w: missing notification id", ErrSchedulingFailure)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.granted {
		return fmt.Errorf("%w: %s: permission not granted", ErrSchedulingFailure, n.ID)
	}
	delay := n.At.Sub(l.clock.Now())
	if delay <= 0 {
		return fmt.Errorf("%w: %s: trigger %s is not in the future", ErrSchedulingFailure, n.ID, n.At)
	}

	if prev, ok := l.pending[n.ID]; ok {
		prev.timer.Stop()
	}
	p := &pendingNotification{n: n}
	p.timer = l.clock.AfterFunc(delay, func() { l.fire(p) })
	l.pending[n.ID] = p

	log.Debug().Str("id", n.ID).Time("at", n.At).Msg("notification scheduled")
	return nil
}

func (l *Local) fire(p *pendingNotification) {
	l.mu.Lock()
	if cur, ok := l.pending[p.n.ID]; !ok || cur != p {
		// cancelled or replaced after the timer expired
		l.mu.Unlock()
		return
	}
	delete(l.pending, p.n.ID)
	l.mu.Unlock()

	log.Info().Str("id", p.n.ID).Msg("notification delivered")
	l.Dispatch(context.Background(), Event{Kind: EventDelivered, Notification: p.n, At: l.clock.Now()})
}

func (l *Local) Cancel(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.pending[id]; ok {
		p.timer.Stop()
		delete(l.pending, id)
	}
	return nil
}

func (l *Local) CancelAll(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, p := range l.pending {
		p.timer.Stop()
		delete(l.pending, id)
	}
	return nil
}

func (l *Local) Pending(context.Context) ([]model.Notification, error) {
	l.mu.Lock()
	out := make([]model.Notification, 0, len(l.pending))
	for _, p := range l.pending {
		out = append(out, p.n)
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].ID < out[j].ID
		}
		return out[i].At.Before(out[j].At)
	})
	return out, nil
}

func (l *Local) Subscribe(fn Listener) func() {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.listeners[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.listeners, id)
			l.mu.Unlock()
		})
	}
}

func (l *Local) Dispatch(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = l.clock.Now()
	}
	metrics.IncNotificationEvent(string(ev.Kind))

	l.mu.Lock()
	ids := make([]uint64, 0, len(l.listeners))
	for id := range l.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, l.listeners[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(ctx, ev)
	}
}
