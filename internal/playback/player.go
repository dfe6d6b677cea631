// Package playback plays the Azaan recording when a prayer alarm fires.
package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/azaan/internal/metrics"
	"github.com/Nixie-Tech-LLC/azaan/internal/notify"
	"github.com/Nixie-Tech-LLC/azaan/internal/storage"
)

// SampleRate is the rate every asset is resampled to before buffering.
const SampleRate = beep.SampleRate(48000)

var ErrNotInitialized = errors.New("player not initialized")

// Output renders a stream, blocking until it ends or ctx is cancelled.
type Output interface {
	Play(ctx context.Context, s beep.Streamer) error
}

// Player keeps the decoded Azaan in memory. Each Play restarts it from the
// first sample, cutting off a playback still in progress.
type Player struct {
	assets storage.Storage
	asset  string
	output Output

	mu      sync.Mutex
	buffer  *beep.Buffer
	current *cursor
	cancel  context.CancelFunc
	gen     uint64
}

func NewPlayer(assets storage.Storage, asset string, output Output) *Player {
	return &Player{assets: assets, asset: asset, output: output}
}

// Initialize loads and decodes the asset. Calling it again reloads the
// asset, which is how an uploaded replacement takes effect.
func (p *Player) Initialize(ctx context.Context) error {
	rc, err := p.assets.Open(p.asset)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", p.asset, err)
	}
	data, err := io.ReadAll(rc)
	if closeErr := rc.Close(); closeErr != nil {
		log.Warn().Err(closeErr).Msg("failed to close asset reader")
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", p.asset, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	buffer, err := decode(p.asset, data)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.buffer = buffer
	p.mu.Unlock()

	log.Info().
		Str("asset", p.asset).
		Dur("length", SampleRate.D(buffer.Len())).
		Msg("azaan loaded")
	return nil
}

// Check reports whether data decodes as the configured asset format.
func (p *Player) Check(data []byte) error {
	_, err := decode(p.asset, data)
	return err
}

func decode(name string, data []byte) (*beep.Buffer, error) {
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".wav":
		streamer, format, err = wav.Decode(bytes.NewReader(data))
	case ".mp3":
		streamer, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .wav, .mp3)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	defer func() {
		if err := streamer.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close audio streamer")
		}
	}()

	buffer := beep.NewBuffer(beep.Format{SampleRate: SampleRate, NumChannels: 2, Precision: 4})
	buffer.Append(beep.Resample(4, format.SampleRate, SampleRate, streamer))
	return buffer, nil
}

// Play starts the Azaan from the beginning. It returns once playback has
// started.
func (p *Player) Play() error {
	p.mu.Lock()
	if p.buffer == nil {
		p.mu.Unlock()
		metrics.IncPlayback(metrics.ResultError)
		return ErrNotInitialized
	}
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	stream := &cursor{s: p.buffer.Streamer(0, p.buffer.Len())}
	p.current = stream
	p.cancel = cancel
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	metrics.IncPlayback(metrics.ResultSuccess)
	go func() {
		defer func() {
			p.mu.Lock()
			if p.gen == gen {
				p.cancel = nil
			}
			p.mu.Unlock()
			cancel()
		}()
		if err := p.output.Play(ctx, stream); err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Msg("failed to play azaan")
			}
			return
		}
		log.Debug().Msg("completed azaan playback")
	}()
	return nil
}

// cursor guards a buffer streamer read by the output goroutine.
type cursor struct {
	mu sync.Mutex
	s  beep.StreamSeeker
}

func (c *cursor) Stream(samples [][2]float64) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.Stream(samples)
}

func (c *cursor) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.Err()
}

func (c *cursor) Position() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.Position()
}

// Position is the current sample offset of the latest playback.
func (p *Player) Position() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return 0
	}
	return p.current.Position()
}

// Playing reports whether a playback is in progress.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// HandleEvent plays the Azaan for prayer alarms and ignores everything
// else, including the reschedule marker.
func (p *Player) HandleEvent(_ context.Context, ev notify.Event) {
	if !ev.Notification.Payload.IsPrayer() {
		return
	}
	log.Info().Str("prayer", ev.Notification.Payload.Prayer).Str("kind", string(ev.Kind)).Msg("playing azaan")
	if err := p.Play(); err != nil {
		log.Error().Err(err).Msg("failed to start azaan")
	}
}

// Close stops playback and drops the decoded buffer.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.buffer = nil
	p.current = nil
	return nil
}
