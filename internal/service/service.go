// Package service assembles the prayer time engine, alarm manager,
// rescheduling trigger and player into one object with an explicit
// lifecycle.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/azaan/internal/alarm"
	"github.com/Nixie-Tech-LLC/azaan/internal/db"
	"github.com/Nixie-Tech-LLC/azaan/internal/kv"
	"github.com/Nixie-Tech-LLC/azaan/internal/metrics"
	"github.com/Nixie-Tech-LLC/azaan/internal/model"
	"github.com/Nixie-Tech-LLC/azaan/internal/notify"
	"github.com/Nixie-Tech-LLC/azaan/internal/playback"
	"github.com/Nixie-Tech-LLC/azaan/internal/praytime"
	"github.com/Nixie-Tech-LLC/azaan/internal/reschedule"
	"github.com/Nixie-Tech-LLC/azaan/internal/schedule"
	"github.com/Nixie-Tech-LLC/azaan/internal/storage"
)

var (
	ErrNoDatabase = errors.New("no database configured")
	ErrNoAudio    = errors.New("audio playback disabled")
)

type Options struct {
	Geo      praytime.Config
	Platform notify.Platform
	Store    kv.Store
	Clock    clockwork.Clock

	Assets    storage.Storage
	AssetName string
	// Output renders the Azaan. Nil disables playback.
	Output playback.Output
	// History records fired and tapped alarms. Nil disables it.
	History db.Store

	FallbackSchedule string
	LockTTL          time.Duration
}

type Service struct {
	geo      praytime.Config
	loc      *time.Location
	clock    clockwork.Clock
	platform notify.Platform
	store    kv.Store
	assets   storage.Storage
	asset    string
	history  db.Store
	fallback string

	alarms  *alarm.Manager
	trigger *reschedule.Trigger
	player  *playback.Player

	mu        sync.Mutex
	disposers []func()
}

func New(opts Options) (*Service, error) {
	if err := opts.Geo.Validate(); err != nil {
		return nil, fmt.Errorf("invalid location config: %w", err)
	}
	if opts.Platform == nil || opts.Store == nil {
		return nil, errors.New("service needs a notification platform and a state store")
	}
	loc, err := opts.Geo.Location()
	if err != nil {
		return nil, err
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	s := &Service{
		geo:      opts.Geo,
		loc:      loc,
		clock:    clock,
		platform: opts.Platform,
		store:    opts.Store,
		assets:   opts.Assets,
		asset:    opts.AssetName,
		history:  opts.History,
		fallback: opts.FallbackSchedule,
	}
	s.alarms = alarm.NewManager(opts.Platform, clock, loc, opts.AssetName)
	s.trigger = reschedule.New(reschedule.Config{
		Platform: opts.Platform,
		Alarms:   s.alarms,
		Store:    opts.Store,
		Clock:    clock,
		Location: loc,
		Plan:     s.PlanFor,
		LockTTL:  opts.LockTTL,
	})
	if opts.Output != nil && opts.Assets != nil {
		s.player = playback.NewPlayer(opts.Assets, opts.AssetName, opts.Output)
	}
	return s, nil
}

// Init loads the Azaan, subscribes the event handlers, starts the fallback
// schedule and performs the startup rebuild. A failed rebuild is logged and
// left to the fallback; only a failed registration is returned.
func (s *Service) Init(ctx context.Context) error {
	metrics.Init()

	if s.player != nil {
		if err := s.player.Initialize(ctx); err != nil {
			log.Error().Err(err).Msg("azaan not loaded, alarms will be silent")
		}
		s.addDisposer(s.platform.Subscribe(s.player.HandleEvent))
	}
	if s.history != nil {
		s.addDisposer(s.platform.Subscribe(s.recordEvent))
	}

	dispose, err := s.trigger.Register(ctx, s.fallback)
	if err != nil {
		s.dispose()
		return err
	}
	s.addDisposer(dispose)

	if _, err := s.trigger.Rebuild(ctx, reschedule.PathStartup); err != nil {
		log.Error().Err(err).Msg("startup rebuild failed, fallback will retry")
	}
	return nil
}

// Shutdown stops the fallback, detaches every handler and cancels the
// alarms still pending with the platform.
func (s *Service) Shutdown(ctx context.Context) error {
	s.dispose()
	if err := s.alarms.CancelAll(ctx); err != nil {
		return err
	}
	if s.player != nil {
		if err := s.player.Close(); err != nil {
			return err
		}
	}
	log.Info().Msg("azaan service stopped")
	return ctx.Err()
}

func (s *Service) addDisposer(fn func()) {
	s.mu.Lock()
	s.disposers = append(s.disposers, fn)
	s.mu.Unlock()
}

func (s *Service) dispose() {
	s.mu.Lock()
	fns := s.disposers
	s.disposers = nil
	s.mu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

func (s *Service) recordEvent(ctx context.Context, ev notify.Event) {
	if !ev.Notification.Payload.IsPrayer() || ev.Kind == notify.EventBackground {
		return
	}
	at := ev.Notification.At
	if at.IsZero() {
		at = ev.At
	}
	if err := s.history.RecordAlarmEvent(ctx, ev.Notification.Payload.Prayer, string(ev.Kind), at); err != nil {
		log.Warn().Err(err).Msg("alarm event not recorded")
	}
}

func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) Geo() praytime.Config { return s.geo }

func (s *Service) Now() time.Time { return s.clock.Now().In(s.loc) }

// TableFor computes the prayer table for date.
func (s *Service) TableFor(date praytime.CalendarDate) (praytime.Table, error) {
	return praytime.ComputeTimes(date, s.geo)
}

// Today is the prayer table for the current local day.
func (s *Service) Today() (praytime.Table, error) {
	return s.TableFor(praytime.DateOf(s.Now()))
}

// PlanFor is the alarm plan for date.
func (s *Service) PlanFor(date praytime.CalendarDate) ([]schedule.Entry, error) {
	table, err := s.TableFor(date)
	if err != nil {
		return nil, err
	}
	return schedule.BuildAlarmPlan(table)
}

// Next returns the next prayer after now. Once Isha has passed it is
// tomorrow's Fajr, taken from tomorrow's table.
func (s *Service) Next() (schedule.Upcoming, schedule.Remaining, error) {
	return schedule.Next(s.PlanFor, s.Now(), s.loc)
}

func (s *Service) Alarms() []model.AlarmEntry { return s.alarms.Entries() }

func (s *Service) Pending(ctx context.Context) ([]model.Notification, error) {
	return s.platform.Pending(ctx)
}

// Rebuild runs the rebuild sequence on demand.
func (s *Service) Rebuild(ctx context.Context) (reschedule.Result, error) {
	return s.trigger.Rebuild(ctx, reschedule.PathManual)
}

// CheckDay runs the fallback check on demand.
func (s *Service) CheckDay(ctx context.Context) (reschedule.Result, error) {
	return s.trigger.CheckDay(ctx)
}

// CancelAll removes every pending alarm and the marker. The next fallback
// check notices the missing marker and arms the day again.
func (s *Service) CancelAll(ctx context.Context) error {
	return s.alarms.CancelAll(ctx)
}

func (s *Service) State(ctx context.Context) (reschedule.State, error) {
	return s.trigger.State(ctx)
}

// DayKey is the last committed rebuild day.
func (s *Service) DayKey(ctx context.Context) (string, bool, error) {
	return s.store.DayKey(ctx)
}

// Dispatch feeds an externally observed notification event to every
// handler.
func (s *Service) Dispatch(ctx context.Context, ev notify.Event) {
	s.platform.Dispatch(ctx, ev)
}

func (s *Service) RegisterPushToken(ctx context.Context, token string, deviceIdentifier *string) (model.PushToken, error) {
	if s.history == nil {
		return model.PushToken{}, ErrNoDatabase
	}
	return s.history.UpsertPushToken(ctx, token, deviceIdentifier)
}

func (s *Service) PushTokens(ctx context.Context) ([]model.PushToken, error) {
	if s.history == nil {
		return nil, ErrNoDatabase
	}
	return s.history.ListPushTokens(ctx)
}

func (s *Service) History(ctx context.Context, limit int) ([]model.AlarmEvent, error) {
	if s.history == nil {
		return nil, ErrNoDatabase
	}
	return s.history.ListAlarmEvents(ctx, limit)
}

// ReplaceAsset stores a new Azaan recording and reloads the player. A
// recording that does not decode is rejected before anything is stored.
func (s *Service) ReplaceAsset(ctx context.Context, r io.Reader) (string, error) {
	if s.player == nil {
		return "", ErrNoAudio
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if err := s.player.Check(data); err != nil {
		return "", err
	}
	location, err := s.assets.Save(s.asset, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	if err := s.player.Initialize(ctx); err != nil {
		return "", fmt.Errorf("stored asset could not be loaded: %w", err)
	}
	return location, nil
}

// Play starts the Azaan immediately.
func (s *Service) Play() error {
	if s.player == nil {
		return ErrNoAudio
	}
	return s.player.Play()
}

// StopPlayback cuts off the Azaan if it is playing.
func (s *Service) StopPlayback() error {
	if s.player == nil {
		return ErrNoAudio
	}
	s.player.Stop()
	return nil
}

// Playing reports whether the Azaan is playing and how far it has got.
func (s *Service) Playing() (bool, time.Duration) {
	if s.player == nil {
		return false, 0
	}
	return s.player.Playing(), playback.SampleRate.D(s.player.Position())
}
