package domain

// Mode is the playback mode. Exactly one mode is active at any time.
type Mode int

const (
	ModeIdle Mode = iota
	ModeContent
	ModeAdvertisement
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeContent:
		return "content"
	case ModeAdvertisement:
		return "advertisement"
	default:
		return "unknown"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// InitState tracks the progress of a session load.
type InitState int

const (
	InitNotStarted InitState = iota
	InitLoading
	InitReady
	InitFailed
)

// String returns the init state name.
func (s InitState) String() string {
	switch s {
	case InitNotStarted:
		return "not_started"
	case InitLoading:
		return "loading"
	case InitReady:
		return "ready"
	case InitFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s InitState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
