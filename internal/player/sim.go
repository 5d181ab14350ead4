package player

import (
	"context"
	"sync"
	"time"
)

const eventBufferSize = 32

// SimConfig controls the timing of a simulated player.
type SimConfig struct {
	// PrepareDelay is how long Prepare takes before the player reports
	// ready (or failed).
	PrepareDelay time.Duration
	// TickInterval is the wall-clock period between progress samples.
	TickInterval time.Duration
	// TickAdvance is how much media time each tick advances. Defaults to
	// TickInterval, i.e. real-time playback.
	TickAdvance time.Duration
	// FailPrepare makes Prepare report a failure instead of ready.
	FailPrepare bool
}

func (cfg *SimConfig) withDefaults() SimConfig {
	out := *cfg
	if out.PrepareDelay <= 0 {
		out.PrepareDelay = 100 * time.Millisecond
	}
	if out.TickInterval <= 0 {
		out.TickInterval = 250 * time.Millisecond
	}
	if out.TickAdvance <= 0 {
		out.TickAdvance = out.TickInterval
	}
	return out
}

// SimPlayer is a clock-driven Player. It stands in for a real media
// engine: ready after a prepare delay, progress samples while playing,
// completed when the position reaches the source duration.
type SimPlayer struct {
	cfg SimConfig

	mu       sync.Mutex
	src      Source
	pos      time.Duration
	playing  bool
	prepared bool
	pending  bool // Play was called before prepare finished
	muted    bool
	stopped  bool

	events chan Event
	stop   chan struct{}
}

// NewSimPlayer creates a simulated player. The player is inert until
// Prepare is called.
func NewSimPlayer(cfg SimConfig) *SimPlayer {
	return &SimPlayer{
		cfg:    cfg.withDefaults(),
		events: make(chan Event, eventBufferSize),
		stop:   make(chan struct{}),
	}
}

func (p *SimPlayer) Events() <-chan Event {
	return p.events
}

func (p *SimPlayer) Prepare(ctx context.Context, src Source) {
	p.mu.Lock()
	if p.stopped || p.prepared {
		p.mu.Unlock()
		return
	}
	p.src = src
	p.mu.Unlock()

	go p.run(ctx)
}

func (p *SimPlayer) run(ctx context.Context) {
	select {
	case <-time.After(p.cfg.PrepareDelay):
	case <-ctx.Done():
		p.emit(Event{Type: EventFailed, Message: ctx.Err().Error()})
		return
	case <-p.stop:
		return
	}

	if p.cfg.FailPrepare {
		p.emit(Event{Type: EventFailed, Message: "source unavailable"})
		return
	}

	p.mu.Lock()
	p.prepared = true
	start := p.pending
	p.pending = false
	p.mu.Unlock()

	p.emit(Event{Type: EventReady})
	if start {
		p.Play()
	}

	ticker := time.NewTicker(p.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.tick()
		case <-p.stop:
			return
		}
	}
}

func (p *SimPlayer) tick() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.pos += p.cfg.TickAdvance
	done := p.src.Duration > 0 && p.pos >= p.src.Duration
	if done {
		p.pos = p.src.Duration
		p.playing = false
	}
	pos, dur := p.pos, p.src.Duration
	p.mu.Unlock()

	p.emit(Event{Type: EventProgress, Position: pos, Duration: dur})
	if done {
		p.emit(Event{Type: EventCompleted})
	}
}

func (p *SimPlayer) Play() {
	p.mu.Lock()
	if p.stopped || p.playing {
		p.mu.Unlock()
		return
	}
	if !p.prepared {
		// Start as soon as prepare finishes.
		p.pending = true
		p.mu.Unlock()
		return
	}
	p.playing = true
	p.mu.Unlock()

	p.emit(Event{Type: EventPlaying})
}

func (p *SimPlayer) Pause() {
	p.mu.Lock()
	if p.stopped || (!p.playing && !p.pending) {
		p.mu.Unlock()
		return
	}
	p.playing = false
	p.pending = false
	p.mu.Unlock()

	p.emit(Event{Type: EventPaused})
}

func (p *SimPlayer) Seek(to time.Duration) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	if to < 0 {
		to = 0
	}
	if p.src.Duration > 0 && to > p.src.Duration {
		to = p.src.Duration
	}
	p.pos = to
	pos, dur := p.pos, p.src.Duration
	p.mu.Unlock()

	p.emit(Event{Type: EventProgress, Position: pos, Duration: dur})
}

func (p *SimPlayer) SetMuted(muted bool) {
	p.mu.Lock()
	p.muted = muted
	p.mu.Unlock()
}

// Muted reports the current mute flag.
func (p *SimPlayer) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

func (p *SimPlayer) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.playing = false
	close(p.stop)
	close(p.events)
	p.mu.Unlock()
}

// emit delivers an event without blocking; stale events are dropped if
// the consumer falls behind.
func (p *SimPlayer) emit(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	select {
	case p.events <- ev:
	default:
	}
}
