package domain

import "fmt"

// ErrorKind classifies playback failures. Ad failures are recovered by
// falling back to content playback; content failures surface to the
// caller and are not retried.
type ErrorKind int

const (
	ErrKindAdRequestFailed ErrorKind = iota
	ErrKindAdPlaybackFailed
	ErrKindContentPrepareFailed
	ErrKindContentPlaybackFailed
)

// String returns the error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrKindAdRequestFailed:
		return "ad_request_failed"
	case ErrKindAdPlaybackFailed:
		return "ad_playback_failed"
	case ErrKindContentPrepareFailed:
		return "content_prepare_failed"
	case ErrKindContentPlaybackFailed:
		return "content_playback_failed"
	default:
		return "unknown"
	}
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// PlaybackError is a classified playback failure with the collaborator's
// message attached.
type PlaybackError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsFatal reports whether the error ends the session from the caller's
// perspective. Ads are optional, content is not.
func (e *PlaybackError) IsFatal() bool {
	return e.Kind == ErrKindContentPrepareFailed
}
