package domain

// PlayerState is the lifecycle state of a single media player instance.
// Two independent instances exist, one for content and one for ads; each
// is mutated only by its own event source or by coordinator commands.
type PlayerState int

const (
	StateIdle PlayerState = iota
	StateLoading
	StateReady
	StatePlaying
	StatePaused
	StateBuffering
	StateCompleted
	StateFailed
)

// String returns the state name.
func (s PlayerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s PlayerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsActive reports whether the player is engaged with media (playing or
// paused mid-stream).
func (s PlayerState) IsActive() bool {
	return s == StatePlaying || s == StatePaused
}
