package adengine

import (
	"context"
	"time"
)

// Request is the ad-request descriptor handed to the decisioning
// service.
type Request struct {
	TagURL string
}

// AdMeta describes a single creative within a pod.
type AdMeta struct {
	ID    string
	Title string
	// Position is the 1-based index of this ad in the pod.
	Position int
	PodSize  int
	Duration time.Duration

	Skippable bool
	// SkipOffset is how far into the ad the skip control unlocks. Only
	// meaningful when Skippable is set.
	SkipOffset time.Duration
}

// EventType identifies an ad-engine event.
type EventType int

const (
	EventLoaded EventType = iota
	EventStarted
	EventPaused
	EventResumed
	EventProgress
	EventCompleted
	EventPodCompleted
	EventSkipped
	EventError
	// EventContentPauseRequested is the engine asking for the content
	// player to be paused before ad playback.
	EventContentPauseRequested
	// EventContentResumeRequested is the engine releasing the content
	// player after the break.
	EventContentResumeRequested
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventLoaded:
		return "loaded"
	case EventStarted:
		return "started"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventPodCompleted:
		return "pod_completed"
	case EventSkipped:
		return "skipped"
	case EventError:
		return "error"
	case EventContentPauseRequested:
		return "content_pause_requested"
	case EventContentResumeRequested:
		return "content_resume_requested"
	default:
		return "unknown"
	}
}

// Event is a notification from a loaded ad manager. Ad is set for
// EventStarted; Position and Duration are set for EventProgress;
// Message is set for EventError.
type Event struct {
	Type     EventType
	Ad       *AdMeta
	Position time.Duration
	Duration time.Duration
	Message  string
}

// Engine is the ad-decisioning collaborator. RequestAds blocks until a
// decision is reached; the coordinator calls it from its own goroutine.
// A returned error means no ads will play for this session.
type Engine interface {
	RequestAds(ctx context.Context, req Request) (Manager, error)
}

// Manager drives playback of a loaded ad pod. Commands are
// fire-and-forget; outcomes arrive on the Events stream, which the
// implementation closes once Destroy has taken effect.
type Manager interface {
	Start()
	Pause()
	Resume()
	// Skip requests that the current ad be skipped. The engine decides
	// whether the skip is honored and reports it with EventSkipped.
	Skip()
	SetVolume(volume float64)
	// Destroy releases engine resources. Idempotent.
	Destroy()
	Events() <-chan Event
}
