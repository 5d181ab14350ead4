package player

import (
	"context"
	"time"
)

// Source identifies a piece of primary content.
type Source struct {
	ID       string
	Title    string
	URL      string
	Duration time.Duration
}

// EventType identifies a player lifecycle event.
type EventType int

const (
	EventReady EventType = iota
	EventPlaying
	EventPaused
	EventBuffering
	EventCompleted
	EventFailed
	EventProgress
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventReady:
		return "ready"
	case EventPlaying:
		return "playing"
	case EventPaused:
		return "paused"
	case EventBuffering:
		return "buffering"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventProgress:
		return "progress"
	default:
		return "unknown"
	}
}

// Event is a lifecycle or progress notification from a player.
// Position and Duration are set for EventProgress; Message is set for
// EventFailed.
type Event struct {
	Type     EventType
	Position time.Duration
	Duration time.Duration
	Message  string
}

// Player is the content-player collaborator. All commands are
// fire-and-forget: outcomes are observed on the Events stream, which the
// implementation closes once Stop has taken effect.
type Player interface {
	// Prepare loads the source without starting playback.
	Prepare(ctx context.Context, src Source)
	Play()
	Pause()
	Seek(to time.Duration)
	SetMuted(muted bool)
	// Stop releases the player. Idempotent.
	Stop()
	Events() <-chan Event
}
