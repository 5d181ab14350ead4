package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/adbreak/server/internal/adengine"
	"github.com/adbreak/server/internal/domain"
	"github.com/adbreak/server/internal/player"
)

var (
	ErrLoadInProgress = errors.New("load already in progress")
	ErrClosed         = errors.New("coordinator is closed")
)

// Coordinator is the single authority over what is playing. It owns two
// independent player resources (content and advertisement), consumes
// their event streams and the ad-decision outcome, and enforces that
// exactly one mode is active at any time.
//
// All state lives behind one mutex: commands and collaborator events are
// serialized onto it, so there is never more than one writer. Commands
// never block; player calls are fire-and-forget and their outcomes are
// observed later on the event streams.
type Coordinator struct {
	logger *slog.Logger

	mu      sync.Mutex
	content player.Player
	engine  adengine.Engine
	manager adengine.Manager

	mode         domain.Mode
	contentState domain.PlayerState
	adState      domain.PlayerState

	adProgress   *domain.AdProgress
	adSkipOffset time.Duration

	contentTime     time.Duration
	contentDuration time.Duration

	muted      bool
	lastError  *domain.PlaybackError
	init       domain.InitState
	loading    bool
	wasPlaying bool

	subs   map[*Subscription]struct{}
	closed bool
}

// New creates a coordinator owning the given players. It immediately
// begins consuming the content player's event stream; nothing plays
// until Load.
func New(content player.Player, engine adengine.Engine, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		logger:  logger,
		content: content,
		engine:  engine,
		subs:    make(map[*Subscription]struct{}),
	}
	go c.pumpContentEvents()
	return c
}

// Load prepares the content source and concurrently issues the ad
// request. It returns once both are in flight; progress is observed on
// the snapshot. A second Load while one is in flight is rejected with
// ErrLoadInProgress.
func (c *Coordinator) Load(ctx context.Context, src player.Source, req adengine.Request) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.loading {
		c.mu.Unlock()
		return ErrLoadInProgress
	}
	c.loading = true
	c.init = domain.InitLoading
	c.lastError = nil
	c.contentState = domain.StateLoading
	c.contentTime = 0
	c.contentDuration = src.Duration
	c.publishLocked()
	c.mu.Unlock()

	c.content.Prepare(ctx, src)
	go c.requestAds(ctx, req)
	return nil
}

// Play resumes whichever player is active for the current mode. In idle
// mode it has no effect beyond republishing the snapshot.
func (c *Coordinator) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	switch c.mode {
	case domain.ModeContent:
		if c.contentState == domain.StateFailed {
			break
		}
		c.content.Play()
		c.contentState = domain.StatePlaying
	case domain.ModeAdvertisement:
		if c.manager != nil {
			c.manager.Resume()
		}
		c.adState = domain.StatePlaying
	}
	c.publishLocked()
}

// Pause pauses whichever player is active for the current mode.
func (c *Coordinator) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.pauseActiveLocked()
	c.publishLocked()
}

func (c *Coordinator) pauseActiveLocked() {
	switch c.mode {
	case domain.ModeContent:
		c.content.Pause()
		if c.contentState == domain.StatePlaying {
			c.contentState = domain.StatePaused
		}
	case domain.ModeAdvertisement:
		if c.manager != nil {
			c.manager.Pause()
		}
		if c.adState == domain.StatePlaying {
			c.adState = domain.StatePaused
		}
	}
}

// ToggleMute flips the mute flag and applies it to both players in one
// critical section, so a later mode switch can never change the audible
// state.
func (c *Coordinator) ToggleMute() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.muted = !c.muted
	c.content.SetMuted(c.muted)
	if c.manager != nil {
		c.manager.SetVolume(volumeFor(c.muted))
	}
	c.publishLocked()
}

func volumeFor(muted bool) float64 {
	if muted {
		return 0
	}
	return 1
}

// Seek moves the content position, clamped to [0, duration]. It reports
// false and changes nothing outside content mode.
func (c *Coordinator) Seek(to time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.mode != domain.ModeContent {
		return false
	}
	if to < 0 {
		to = 0
	}
	if c.contentDuration > 0 && to > c.contentDuration {
		to = c.contentDuration
	}
	c.content.Seek(to)
	c.contentTime = to
	c.publishLocked()
	return true
}

// SkipAd asks the ad engine to skip the current ad. The mode does not
// change here: the engine's skipped event drives the transition. It
// reports false if no skippable ad is playing.
func (c *Coordinator) SkipAd() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.mode != domain.ModeAdvertisement {
		return false
	}
	if c.adProgress == nil || !c.adProgress.Skippable || c.manager == nil {
		return false
	}
	c.manager.Skip()
	return true
}

// Suspend pauses playback when the surrounding screen leaves the
// foreground and remembers that it was playing.
func (c *Coordinator) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.snapshotLocked().IsPlaying() {
		c.wasPlaying = true
		c.pauseActiveLocked()
	}
	c.publishLocked()
}

// Resume is called when the screen returns to the foreground. Playback
// stays paused: resuming requires an explicit Play. This mirrors the
// product decision that backgrounded sessions never auto-resume.
func (c *Coordinator) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.wasPlaying = false
	c.publishLocked()
}

// Snapshot returns the current externally observable state.
func (c *Coordinator) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		Mode:           c.mode,
		ContentState:   c.contentState,
		AdState:        c.adState,
		CurrentTime:    c.contentTime,
		Duration:       c.contentDuration,
		Muted:          c.muted,
		CanSeek:        c.mode == domain.ModeContent,
		LastError:      c.lastError,
		Initialization: c.init,
	}
	if c.adProgress != nil {
		ap := *c.adProgress
		snap.AdProgress = &ap
	}
	if c.mode == domain.ModeAdvertisement {
		// The content clock is backgrounded here; between creatives
		// there is no position to show at all.
		snap.CurrentTime = 0
		snap.Duration = 0
		if snap.AdProgress != nil {
			snap.CurrentTime = snap.AdProgress.Elapsed
			snap.Duration = snap.AdProgress.Duration
			snap.CanSkip = snap.AdProgress.Skippable
		}
	}
	return snap
}

// Subscribe registers an observer. The current snapshot is delivered
// immediately so the observer never starts stale.
func (c *Coordinator) Subscribe() *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub := newSubscription()
	if c.closed {
		sub.close()
		return sub
	}
	c.subs[sub] = struct{}{}
	sub.send(c.snapshotLocked())
	return sub
}

// Unsubscribe detaches an observer.
func (c *Coordinator) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[sub]; !ok {
		return
	}
	delete(c.subs, sub)
	sub.close()
}

// Close stops both players, releases ad-engine resources and detaches
// all observers. Safe to call any number of times.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.content.Stop()
	if c.manager != nil {
		c.manager.Destroy()
		c.manager = nil
	}
	c.mode = domain.ModeIdle
	c.contentState = domain.StateIdle
	c.adState = domain.StateIdle
	c.adProgress = nil
	for sub := range c.subs {
		sub.close()
	}
	c.subs = nil
}

func (c *Coordinator) publishLocked() {
	snap := c.snapshotLocked()
	for sub := range c.subs {
		sub.send(snap)
	}
}
