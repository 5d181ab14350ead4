package playback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adbreak/server/internal/adengine"
	"github.com/adbreak/server/internal/domain"
)

func TestSubscribe_DeliversCurrentSnapshotImmediately(t *testing.T) {
	c := New(newFakePlayer(), &fakeEngine{}, nil)
	defer c.Close()

	sub := c.Subscribe()
	defer c.Unsubscribe(sub)

	select {
	case snap := <-sub.Snapshots:
		assert.Equal(t, domain.ModeIdle, snap.Mode)
		assert.Equal(t, domain.InitNotStarted, snap.Initialization)
	case <-time.After(waitFor):
		t.Fatal("no initial snapshot delivered")
	}
}

func TestSubscribe_ObservesTransitions(t *testing.T) {
	c := New(newFakePlayer(), &fakeEngine{err: errors.New("no fill")}, nil)
	defer c.Close()

	sub := c.Subscribe()
	defer c.Unsubscribe(sub)

	require.NoError(t, c.Load(context.Background(), testSource(), adengine.Request{}))

	deadline := time.After(waitFor)
	for {
		select {
		case snap := <-sub.Snapshots:
			if snap.Mode == domain.ModeContent && snap.ContentState == domain.StatePlaying {
				return
			}
		case <-deadline:
			t.Fatal("content playback never observed on the subscription")
		}
	}
}

func TestUnsubscribe_ClosesDoneAndStopsDelivery(t *testing.T) {
	c := New(newFakePlayer(), &fakeEngine{}, nil)
	defer c.Close()

	sub := c.Subscribe()
	c.Unsubscribe(sub)

	select {
	case <-sub.Done:
	case <-time.After(waitFor):
		t.Fatal("done not closed on unsubscribe")
	}

	// Idempotent.
	c.Unsubscribe(sub)
}

func TestSubscribe_AfterCloseIsAlreadyDone(t *testing.T) {
	c := New(newFakePlayer(), &fakeEngine{}, nil)
	c.Close()

	sub := c.Subscribe()
	select {
	case <-sub.Done:
	case <-time.After(waitFor):
		t.Fatal("subscription on a closed coordinator must be done")
	}
}
