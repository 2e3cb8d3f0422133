package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"plantarcli/internal/infrastructure"
	"plantarcli/internal/playback"
	"plantarcli/pkg/contracts/events"
)

// DefaultFrameInterval is roughly 30 frames per second
const DefaultFrameInterval = 33 * time.Millisecond

// PlaybackService drives the cursor over the active recording and pushes a
// snapshot with the sample under the cursor whenever it changes.
type PlaybackService struct {
	store       *playback.Store
	player      *playback.Player
	broadcaster Broadcaster
	interval    time.Duration
	metrics     *infrastructure.AnalysisMetrics
	logger      *slog.Logger
	running     atomic.Bool
}

// NewPlaybackService creates the service; a nil broadcaster disables pushes
func NewPlaybackService(store *playback.Store, player *playback.Player, broadcaster Broadcaster, interval time.Duration, metrics *infrastructure.AnalysisMetrics, logger *slog.Logger) *PlaybackService {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	if metrics == nil {
		metrics = infrastructure.NoopAnalysisMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PlaybackService{
		store:       store,
		player:      player,
		broadcaster: broadcaster,
		interval:    interval,
		metrics:     metrics,
		logger:      logger.With(slog.String("component", "playback_service")),
	}
}

// Snapshot returns the player state and the active sample under the cursor
func (s *PlaybackService) Snapshot() events.PlaybackSnapshot {
	return s.enrich(s.player.Snapshot())
}

func (s *PlaybackService) enrich(snap playback.Snapshot) events.PlaybackSnapshot {
	out := events.PlaybackSnapshot{
		State:      string(snap.State),
		Cursor:     snap.Cursor,
		Speed:      snap.Speed,
		RangeStart: snap.RangeStart,
		RangeEnd:   snap.RangeEnd,
		Start:      snap.Start,
		End:        snap.End,
		Loaded:     snap.Loaded,
	}
	if !snap.Loaded {
		return out
	}
	rec, _, err := s.store.Active()
	if err != nil {
		return out
	}
	out.Recording = rec.ID
	out.Revision = rec.Revision
	out.Sample = playback.Lookup(rec.Samples, snap.Cursor)
	return out
}

// Greeting is the snapshot sent to a newly connected client
func (s *PlaybackService) Greeting() *events.WebSocketMessage {
	msg := events.NewMessage(events.MessageTypePlaybackSnapshot, s.Snapshot())
	return &msg
}

// Play starts or resumes playback
func (s *PlaybackService) Play(ctx context.Context) (events.PlaybackSnapshot, error) {
	if err := s.player.Play(); err != nil {
		return events.PlaybackSnapshot{}, err
	}
	s.logger.DebugContext(ctx, "playback started")
	return s.publish(ctx, s.player.Snapshot()), nil
}

// Pause freezes the cursor
func (s *PlaybackService) Pause(ctx context.Context) events.PlaybackSnapshot {
	s.player.Pause()
	return s.publish(ctx, s.player.Snapshot())
}

// Stop halts playback and rewinds to the range start
func (s *PlaybackService) Stop(ctx context.Context) events.PlaybackSnapshot {
	s.player.Stop()
	return s.publish(ctx, s.player.Snapshot())
}

// Seek moves the cursor. A slider seek pauses a playing cursor first.
func (s *PlaybackService) Seek(ctx context.Context, t float64, fromSlider bool) (events.PlaybackSnapshot, error) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return events.PlaybackSnapshot{}, fmt.Errorf("seek to %v: %w", t, ErrInvalidInput)
	}
	if !s.player.Snapshot().Loaded {
		return events.PlaybackSnapshot{}, playback.ErrNoActiveDataset
	}
	var snap playback.Snapshot
	if fromSlider {
		snap = s.player.SeekFromSlider(t)
	} else {
		snap = s.player.Seek(t)
	}
	return s.publish(ctx, snap), nil
}

// SetSpeed changes the playback multiplier
func (s *PlaybackService) SetSpeed(ctx context.Context, speed float64) (events.PlaybackSnapshot, error) {
	if err := s.player.SetSpeed(speed); err != nil {
		return events.PlaybackSnapshot{}, err
	}
	return s.publish(ctx, s.player.Snapshot()), nil
}

// SetRange restricts playback to start..end
func (s *PlaybackService) SetRange(ctx context.Context, start, end float64) (events.PlaybackSnapshot, error) {
	if err := s.player.SetRange(start, end); err != nil {
		return events.PlaybackSnapshot{}, err
	}
	return s.publish(ctx, s.player.Snapshot()), nil
}

// Tick advances a playing cursor by dt seconds and publishes the new
// position. It reports whether the cursor moved.
func (s *PlaybackService) Tick(ctx context.Context, dt float64) bool {
	snap, moved := s.player.Tick(dt)
	if !moved {
		return false
	}
	s.metrics.PlaybackTicks.Add(ctx, 1)
	s.publish(ctx, snap)
	return true
}

// Run ticks the player every frame interval until ctx is cancelled. The
// elapsed wall time is passed to each tick so a late frame catches up.
func (s *PlaybackService) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.InfoContext(ctx, "playback loop started", slog.Duration("interval", s.interval))

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "playback loop stopped")
			return nil
		case now := <-ticker.C:
			s.Tick(ctx, now.Sub(last).Seconds())
			last = now
		}
	}
}

func (s *PlaybackService) publish(ctx context.Context, snap playback.Snapshot) events.PlaybackSnapshot {
	out := s.enrich(snap)
	if s.broadcaster != nil {
		msg := events.NewMessage(events.MessageTypePlaybackSnapshot, out)
		msg.TraceID = infrastructure.GetTraceID(ctx)
		s.broadcaster.Broadcast(msg)
	}
	return out
}
