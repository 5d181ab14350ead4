package playback

import "github.com/adbreak/server/internal/domain"

const snapshotBufferSize = 16

// Subscription delivers snapshot updates to one observer. Snapshots is
// buffered and lossy: if the observer falls behind, intermediate
// snapshots are dropped and the latest state is always available from
// Coordinator.Snapshot. Done is closed when the coordinator shuts down.
type Subscription struct {
	Snapshots <-chan domain.Snapshot
	Done      <-chan struct{}

	ch   chan domain.Snapshot
	done chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		ch:   make(chan domain.Snapshot, snapshotBufferSize),
		done: make(chan struct{}),
	}
	s.Snapshots = s.ch
	s.Done = s.done
	return s
}

// send delivers a snapshot without blocking.
func (s *Subscription) send(snap domain.Snapshot) {
	select {
	case s.ch <- snap:
	default:
	}
}

func (s *Subscription) close() {
	close(s.done)
}
