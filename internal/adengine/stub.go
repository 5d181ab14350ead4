package adengine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const eventBufferSize = 32

var ErrNoAdsAvailable = errors.New("no ads available for tag")

// StubConfig controls the timing of the stub engine.
type StubConfig struct {
	// RequestDelay simulates the ad-decision round trip.
	RequestDelay time.Duration
	// TickInterval is the wall-clock period between ad progress samples.
	TickInterval time.Duration
	// TickAdvance is how much ad time each tick advances. Defaults to
	// TickInterval.
	TickAdvance time.Duration
}

func (cfg *StubConfig) withDefaults() StubConfig {
	out := *cfg
	if out.TickInterval <= 0 {
		out.TickInterval = 250 * time.Millisecond
	}
	if out.TickAdvance <= 0 {
		out.TickAdvance = out.TickInterval
	}
	return out
}

// StubEngine serves scripted ad pods keyed by tag URL. It stands in for
// a real decisioning service: known tags load a manager that plays the
// pod on a clock, unknown tags fail the request so callers exercise
// their fallback path.
type StubEngine struct {
	cfg  StubConfig
	pods map[string][]AdMeta
}

// NewStubEngine creates a stub engine serving the given pods.
func NewStubEngine(pods map[string][]AdMeta, cfg StubConfig) *StubEngine {
	return &StubEngine{cfg: cfg.withDefaults(), pods: pods}
}

func (e *StubEngine) RequestAds(ctx context.Context, req Request) (Manager, error) {
	if e.cfg.RequestDelay > 0 {
		select {
		case <-time.After(e.cfg.RequestDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	pod, ok := e.pods[req.TagURL]
	if !ok || len(pod) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoAdsAvailable, req.TagURL)
	}

	m := &stubManager{
		cfg:    e.cfg,
		pod:    pod,
		events: make(chan Event, eventBufferSize),
		stop:   make(chan struct{}),
	}
	m.emit(Event{Type: EventLoaded})
	return m, nil
}

type stubManager struct {
	cfg StubConfig
	pod []AdMeta

	mu        sync.Mutex
	started   bool
	paused    bool
	skipReq   bool
	destroyed bool
	volume    float64

	events chan Event
	stop   chan struct{}
}

func (m *stubManager) Events() <-chan Event {
	return m.events
}

func (m *stubManager) Start() {
	m.mu.Lock()
	if m.started || m.destroyed {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	go m.run()
}

func (m *stubManager) run() {
	m.emit(Event{Type: EventContentPauseRequested})

	for i := range m.pod {
		ad := m.pod[i]
		ad.Position = i + 1
		ad.PodSize = len(m.pod)
		if !m.playAd(ad) {
			// Destroyed mid-pod or the ad was skipped; either way the
			// break is over.
			return
		}
		m.emit(Event{Type: EventCompleted})
	}

	m.emit(Event{Type: EventPodCompleted})
	m.emit(Event{Type: EventContentResumeRequested})
}

// playAd plays one creative to completion. It reports false if the pod
// must end early (skip honored or manager destroyed).
func (m *stubManager) playAd(ad AdMeta) bool {
	m.mu.Lock()
	m.skipReq = false // a skip never carries over into the next creative
	m.mu.Unlock()

	m.emit(Event{Type: EventStarted, Ad: &ad})

	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()

	var elapsed time.Duration
	for elapsed < ad.Duration {
		select {
		case <-m.stop:
			return false
		case <-ticker.C:
		}

		m.mu.Lock()
		if m.paused {
			m.mu.Unlock()
			continue
		}
		skip := m.skipReq && ad.Skippable && elapsed >= ad.SkipOffset
		if skip {
			m.skipReq = false
		}
		m.mu.Unlock()

		if skip {
			m.emit(Event{Type: EventSkipped})
			m.emit(Event{Type: EventContentResumeRequested})
			return false
		}

		elapsed += m.cfg.TickAdvance
		if elapsed > ad.Duration {
			elapsed = ad.Duration
		}
		m.emit(Event{Type: EventProgress, Position: elapsed, Duration: ad.Duration})
	}

	return true
}

func (m *stubManager) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed || m.paused {
		return
	}
	m.paused = true
	m.emitLocked(Event{Type: EventPaused})
}

func (m *stubManager) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed || !m.paused {
		return
	}
	m.paused = false
	m.emitLocked(Event{Type: EventResumed})
}

func (m *stubManager) Skip() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	m.skipReq = true
}

func (m *stubManager) SetVolume(volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = volume
}

// Volume reports the last set volume.
func (m *stubManager) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *stubManager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	m.destroyed = true
	close(m.stop)
	close(m.events)
}

func (m *stubManager) emit(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitLocked(ev)
}

// emitLocked delivers an event without blocking; stale events are
// dropped if the consumer falls behind.
func (m *stubManager) emitLocked(ev Event) {
	if m.destroyed {
		return
	}
	select {
	case m.events <- ev:
	default:
	}
}
