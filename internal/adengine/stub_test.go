package adengine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastStubConfig() StubConfig {
	return StubConfig{
		TickInterval: 2 * time.Millisecond,
		TickAdvance:  100 * time.Millisecond,
	}
}

func testPods() map[string][]AdMeta {
	return map[string][]AdMeta{
		"tag-1": {
			{ID: "a1", Duration: 300 * time.Millisecond},
			{ID: "a2", Duration: 200 * time.Millisecond, Skippable: true, SkipOffset: 100 * time.Millisecond},
		},
	}
}

func drainUntil(t *testing.T, events <-chan Event, want EventType) []Event {
	t.Helper()
	var seen []Event
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("events closed before %s, saw %v", want, seen)
			}
			seen = append(seen, ev)
			if ev.Type == want {
				return seen
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s, saw %v", want, seen)
		}
	}
}

func TestStubEngine_UnknownTagFailsRequest(t *testing.T) {
	engine := NewStubEngine(testPods(), fastStubConfig())

	_, err := engine.RequestAds(context.Background(), Request{TagURL: "missing"})
	assert.ErrorIs(t, err, ErrNoAdsAvailable)
}

func TestStubEngine_RequestHonorsContext(t *testing.T) {
	cfg := fastStubConfig()
	cfg.RequestDelay = time.Minute
	engine := NewStubEngine(testPods(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.RequestAds(ctx, Request{TagURL: "tag-1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStubManager_PlaysPodInOrder(t *testing.T) {
	engine := NewStubEngine(testPods(), fastStubConfig())

	mgr, err := engine.RequestAds(context.Background(), Request{TagURL: "tag-1"})
	require.NoError(t, err)
	defer mgr.Destroy()

	mgr.Start()
	seen := drainUntil(t, mgr.Events(), EventPodCompleted)

	var starts []AdMeta
	sawPauseReq := false
	for _, ev := range seen {
		switch ev.Type {
		case EventStarted:
			require.NotNil(t, ev.Ad)
			starts = append(starts, *ev.Ad)
		case EventContentPauseRequested:
			sawPauseReq = true
		}
	}

	assert.True(t, sawPauseReq, "pod must request a content pause before playing")
	require.Len(t, starts, 2)
	assert.Equal(t, "a1", starts[0].ID)
	assert.Equal(t, 1, starts[0].Position)
	assert.Equal(t, 2, starts[0].PodSize)
	assert.Equal(t, "a2", starts[1].ID)
	assert.Equal(t, 2, starts[1].Position)

	drainUntil(t, mgr.Events(), EventContentResumeRequested)
}

func TestStubManager_SkipHonoredAfterOffset(t *testing.T) {
	pods := map[string][]AdMeta{
		"tag": {{ID: "a1", Duration: time.Minute, Skippable: true, SkipOffset: 100 * time.Millisecond}},
	}
	engine := NewStubEngine(pods, fastStubConfig())

	mgr, err := engine.RequestAds(context.Background(), Request{TagURL: "tag"})
	require.NoError(t, err)
	defer mgr.Destroy()

	mgr.Start()
	drainUntil(t, mgr.Events(), EventStarted)

	// Past the offset after a couple of ticks; ask for the skip and the
	// pod should end with a skipped event instead of completion.
	time.Sleep(20 * time.Millisecond)
	mgr.Skip()

	seen := drainUntil(t, mgr.Events(), EventSkipped)
	for _, ev := range seen {
		assert.NotEqual(t, EventPodCompleted, ev.Type)
		assert.NotEqual(t, EventCompleted, ev.Type)
	}
}

func TestStubManager_SkipIgnoredForUnskippableAd(t *testing.T) {
	pods := map[string][]AdMeta{
		"tag": {{ID: "a1", Duration: 300 * time.Millisecond}},
	}
	engine := NewStubEngine(pods, fastStubConfig())

	mgr, err := engine.RequestAds(context.Background(), Request{TagURL: "tag"})
	require.NoError(t, err)
	defer mgr.Destroy()

	mgr.Start()
	mgr.Skip()

	seen := drainUntil(t, mgr.Events(), EventPodCompleted)
	for _, ev := range seen {
		assert.NotEqual(t, EventSkipped, ev.Type)
	}
}

func TestStubManager_PauseStopsProgress(t *testing.T) {
	pods := map[string][]AdMeta{
		"tag": {{ID: "a1", Duration: time.Minute}},
	}
	engine := NewStubEngine(pods, fastStubConfig())

	mgr, err := engine.RequestAds(context.Background(), Request{TagURL: "tag"})
	require.NoError(t, err)
	defer mgr.Destroy()

	mgr.Start()
	drainUntil(t, mgr.Events(), EventProgress)

	mgr.Pause()
	drainUntil(t, mgr.Events(), EventPaused)

	// Drain whatever was in flight, then verify the clock is stopped.
	deadline := time.After(50 * time.Millisecond)
loop:
	for {
		select {
		case <-mgr.Events():
		case <-deadline:
			break loop
		}
	}
	select {
	case ev := <-mgr.Events():
		t.Fatalf("unexpected event while paused: %v", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}

	mgr.Resume()
	drainUntil(t, mgr.Events(), EventResumed)
	drainUntil(t, mgr.Events(), EventProgress)
}

func TestStubManager_DestroyIsIdempotent(t *testing.T) {
	engine := NewStubEngine(testPods(), fastStubConfig())

	mgr, err := engine.RequestAds(context.Background(), Request{TagURL: "tag-1"})
	require.NoError(t, err)

	mgr.Destroy()
	mgr.Destroy()
}
