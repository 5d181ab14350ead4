package domain

import "time"

// Snapshot is the single externally observable record of playback state.
// It is recomputed and published on every transition; a presentation
// layer renders from it and from nothing else.
type Snapshot struct {
	Mode Mode `json:"mode"`

	ContentState PlayerState `json:"content_state"`
	AdState      PlayerState `json:"ad_state"`

	// CurrentTime and Duration belong to whichever player is active for
	// the current mode. Samples from a backgrounded player are never
	// reflected here.
	CurrentTime time.Duration `json:"current_time"`
	Duration    time.Duration `json:"duration"`

	Muted bool `json:"muted"`

	CanSeek bool `json:"can_seek"`
	CanSkip bool `json:"can_skip"`

	AdProgress *AdProgress `json:"ad_progress,omitempty"`

	LastError *PlaybackError `json:"last_error,omitempty"`

	Initialization InitState `json:"initialization"`
}

// IsPlaying reports whether the player active for the current mode is
// playing. At most one player is ever playing.
func (s Snapshot) IsPlaying() bool {
	switch s.Mode {
	case ModeContent:
		return s.ContentState == StatePlaying
	case ModeAdvertisement:
		return s.AdState == StatePlaying
	default:
		return false
	}
}
