package playback

import (
	"context"

	"github.com/adbreak/server/internal/adengine"
	"github.com/adbreak/server/internal/domain"
	"github.com/adbreak/server/internal/player"
)

// requestAds runs the ad decision off the caller's goroutine and folds
// the outcome back into coordinator state.
func (c *Coordinator) requestAds(ctx context.Context, req adengine.Request) {
	mgr, err := c.engine.RequestAds(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.init == domain.InitFailed {
		// The session ended or content preparation already failed while
		// the decision was in flight.
		if mgr != nil {
			mgr.Destroy()
		}
		return
	}

	c.loading = false
	c.init = domain.InitReady

	if err != nil {
		// Ads are optional: record the failure and start the content.
		c.logger.Info("ad request failed, falling back to content", "error", err)
		c.lastError = &domain.PlaybackError{Kind: domain.ErrKindAdRequestFailed, Message: err.Error()}
		c.enterContentLocked()
		c.publishLocked()
		return
	}

	c.manager = mgr
	mgr.SetVolume(volumeFor(c.muted))
	go c.pumpAdEvents(mgr)

	// Content keeps buffering in the background while the break plays.
	c.enterAdvertisementLocked()
	mgr.Start()
	c.publishLocked()
}

func (c *Coordinator) pumpContentEvents() {
	for ev := range c.content.Events() {
		c.handleContentEvent(ev)
	}
}

func (c *Coordinator) pumpAdEvents(mgr adengine.Manager) {
	for ev := range mgr.Events() {
		c.handleAdEvent(ev)
	}
}

// handleContentEvent is the single intake point for content player
// events; it mirrors the player lifecycle into contentState.
func (c *Coordinator) handleContentEvent(ev player.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	switch ev.Type {
	case player.EventReady:
		if c.contentState == domain.StateLoading {
			c.contentState = domain.StateReady
		}
	case player.EventPlaying:
		if c.mode == domain.ModeAdvertisement {
			// The backgrounded player must never play over an ad.
			c.content.Pause()
			c.contentState = domain.StatePaused
			break
		}
		c.contentState = domain.StatePlaying
	case player.EventPaused:
		c.contentState = domain.StatePaused
	case player.EventBuffering:
		c.contentState = domain.StateBuffering
	case player.EventCompleted:
		c.contentState = domain.StateCompleted
	case player.EventFailed:
		c.handleContentFailureLocked(ev.Message)
	case player.EventProgress:
		// Samples from a backgrounded player are stale by definition.
		if c.mode == domain.ModeContent {
			c.contentTime = ev.Position
			if ev.Duration > 0 {
				c.contentDuration = ev.Duration
			}
		}
	}
	c.publishLocked()
}

func (c *Coordinator) handleContentFailureLocked(message string) {
	// The ad decision can land before the content player reports in, so
	// init alone does not tell prepare failures from playback failures.
	wasPreparing := c.contentState == domain.StateLoading
	c.contentState = domain.StateFailed

	if wasPreparing {
		// Content is the irreplaceable asset: a prepare failure fails
		// the whole session.
		c.logger.Warn("content prepare failed", "error", message)
		c.init = domain.InitFailed
		c.loading = false
		c.lastError = &domain.PlaybackError{Kind: domain.ErrKindContentPrepareFailed, Message: message}
		c.mode = domain.ModeIdle
		c.adProgress = nil
		c.adState = domain.StateIdle
		if c.manager != nil {
			c.manager.Destroy()
			c.manager = nil
		}
		return
	}

	if c.mode == domain.ModeContent {
		c.logger.Warn("content playback failed", "error", message)
		c.lastError = &domain.PlaybackError{Kind: domain.ErrKindContentPlaybackFailed, Message: message}
	}
}

// handleAdEvent is the single intake point for ad engine events.
func (c *Coordinator) handleAdEvent(ev adengine.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	switch ev.Type {
	case adengine.EventLoaded:
		c.adState = domain.StateReady
	case adengine.EventStarted:
		c.enterAdvertisementLocked()
		c.adState = domain.StatePlaying
		if ev.Ad != nil {
			c.adProgress = &domain.AdProgress{
				AdIndex:   ev.Ad.Position,
				TotalAds:  ev.Ad.PodSize,
				Duration:  ev.Ad.Duration,
				Skippable: ev.Ad.Skippable,
			}
			c.adSkipOffset = ev.Ad.SkipOffset
			if ev.Ad.Skippable {
				c.adProgress.SkipUnlockRemaining = ev.Ad.SkipOffset
			}
		}
	case adengine.EventPaused:
		if c.adState == domain.StatePlaying {
			c.adState = domain.StatePaused
		}
	case adengine.EventResumed:
		if c.adState == domain.StatePaused {
			c.adState = domain.StatePlaying
		}
	case adengine.EventProgress:
		if c.mode == domain.ModeAdvertisement && c.adProgress != nil {
			elapsed := ev.Position
			if ev.Duration > 0 {
				c.adProgress.Duration = ev.Duration
			}
			if elapsed > c.adProgress.Duration {
				elapsed = c.adProgress.Duration
			}
			c.adProgress.Elapsed = elapsed
			if c.adProgress.Skippable {
				remaining := c.adSkipOffset - elapsed
				if remaining < 0 {
					remaining = 0
				}
				c.adProgress.SkipUnlockRemaining = remaining
			}
		}
	case adengine.EventCompleted:
		// More ads may follow in the pod; only the progress record goes.
		c.adProgress = nil
	case adengine.EventPodCompleted, adengine.EventSkipped:
		c.enterContentLocked()
	case adengine.EventError:
		c.logger.Info("ad playback failed, falling back to content", "error", ev.Message)
		c.lastError = &domain.PlaybackError{Kind: domain.ErrKindAdPlaybackFailed, Message: ev.Message}
		c.enterContentLocked()
	case adengine.EventContentPauseRequested:
		c.enterAdvertisementLocked()
	case adengine.EventContentResumeRequested:
		c.enterContentLocked()
	}
	c.publishLocked()
}

// enterAdvertisementLocked switches to advertisement mode, pausing the
// content player first. No-op when already there.
func (c *Coordinator) enterAdvertisementLocked() {
	if c.mode == domain.ModeAdvertisement {
		return
	}
	c.content.Pause()
	if c.contentState == domain.StatePlaying {
		c.contentState = domain.StatePaused
	}
	c.mode = domain.ModeAdvertisement
	c.adState = domain.StatePlaying
	c.logger.Debug("entered advertisement mode")
}

// enterContentLocked switches to content mode, clearing ad progress
// first and starting the content player. No-op when already there.
func (c *Coordinator) enterContentLocked() {
	if c.mode == domain.ModeContent {
		return
	}
	c.adProgress = nil
	c.adState = domain.StateIdle
	c.mode = domain.ModeContent
	if c.contentState == domain.StateFailed {
		// A dead content player cannot be resumed; keep the failure
		// visible rather than pretending to play.
		if c.lastError == nil {
			c.lastError = &domain.PlaybackError{Kind: domain.ErrKindContentPlaybackFailed, Message: "content player failed"}
		}
		return
	}
	c.content.Play()
	c.contentState = domain.StatePlaying
	c.logger.Debug("entered content mode")
}
