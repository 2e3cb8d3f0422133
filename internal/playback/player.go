package playback

import (
	"fmt"
	"sync"
)

// State is the playback state machine position
type State string

const (
	StateStopped State = "stopped"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// DefaultSpeed plays the recording in real time
const DefaultSpeed = 1.0

// Snapshot is the observable player state
type Snapshot struct {
	State      State   `json:"state"`
	Cursor     float64 `json:"cursor"`
	Speed      float64 `json:"speed"`
	RangeStart float64 `json:"range_start"`
	RangeEnd   float64 `json:"range_end"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Loaded     bool    `json:"loaded"`
}

// Player advances a time cursor over the active recording. Only the scalar
// cursor changes per tick, so stopping a tick loop at any point is safe.
type Player struct {
	mu         sync.Mutex
	state      State
	cursor     float64
	speed      float64
	start, end float64
	rangeStart float64
	rangeEnd   float64
	loaded     bool
}

// NewPlayer creates an unloaded player
func NewPlayer(speed float64) *Player {
	if speed <= 0 {
		speed = DefaultSpeed
	}
	return &Player{state: StateStopped, speed: speed}
}

// Load binds the player to a recording spanning start..end. The range is
// reset to the full recording and playback stops at the start.
func (p *Player) Load(start, end float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.start, p.end = start, end
	p.rangeStart, p.rangeEnd = start, end
	p.cursor = start
	p.state = StateStopped
	p.loaded = true
}

// Unload returns to the "no data" condition
func (p *Player) Unload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateStopped
	p.cursor, p.start, p.end, p.rangeStart, p.rangeEnd = 0, 0, 0, 0, 0
	p.loaded = false
}

// Play starts or resumes playback. Playing from the range end restarts at the range start.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return ErrNoActiveDataset
	}
	if p.cursor >= p.rangeEnd {
		p.cursor = p.rangeStart
	}
	p.state = StatePlaying
	return nil
}

// Pause freezes the cursor while playing
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StatePlaying {
		p.state = StatePaused
	}
}

// Stop halts playback and rewinds to the range start
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateStopped
	p.cursor = p.rangeStart
}

// Tick advances the cursor by dt*speed seconds while playing, clamped to the
// active range. Reaching the range end pauses playback. It reports whether
// the cursor moved or playback paused.
func (p *Player) Tick(dt float64) (Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePlaying || dt <= 0 {
		return p.snapshotLocked(), false
	}
	before := p.cursor
	p.cursor = p.clamp(p.cursor + dt*p.speed)
	if p.cursor >= p.rangeEnd {
		p.cursor = p.rangeEnd
		p.state = StatePaused
	}
	return p.snapshotLocked(), p.cursor != before || p.state != StatePlaying
}

// Seek moves the cursor within the active range without changing state
func (p *Player) Seek(t float64) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursor = p.clamp(t)
	return p.snapshotLocked()
}

// SeekFromSlider pauses a playing player before seeking; resuming is left to the user
func (p *Player) SeekFromSlider(t float64) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StatePlaying {
		p.state = StatePaused
	}
	p.cursor = p.clamp(t)
	return p.snapshotLocked()
}

// SetSpeed changes the playback multiplier
func (p *Player) SetSpeed(speed float64) error {
	if speed <= 0 {
		return fmt.Errorf("speed %.3f: %w", speed, ErrInvalidSpeed)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.speed = speed
	return nil
}

// SetRange restricts playback to start..end inside the recording bounds
func (p *Player) SetRange(start, end float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return ErrNoActiveDataset
	}
	if start > end || start < p.start || end > p.end {
		return fmt.Errorf("range %.3f..%.3f outside %.3f..%.3f: %w", start, end, p.start, p.end, ErrInvalidRange)
	}
	p.rangeStart, p.rangeEnd = start, end
	p.cursor = p.clamp(p.cursor)
	if p.state == StateStopped {
		p.cursor = start
	}
	return nil
}

// Snapshot returns the current state
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Player) clamp(t float64) float64 {
	return min(max(t, p.rangeStart), p.rangeEnd)
}

func (p *Player) snapshotLocked() Snapshot {
	return Snapshot{
		State:      p.state,
		Cursor:     p.cursor,
		Speed:      p.speed,
		RangeStart: p.rangeStart,
		RangeEnd:   p.rangeEnd,
		Start:      p.start,
		End:        p.end,
		Loaded:     p.loaded,
	}
}
