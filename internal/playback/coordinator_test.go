package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adbreak/server/internal/adengine"
	"github.com/adbreak/server/internal/domain"
	"github.com/adbreak/server/internal/player"
)

const (
	waitFor = 2 * time.Second
	tick    = 2 * time.Millisecond
)

type fakePlayer struct {
	mu       sync.Mutex
	events   chan player.Event
	commands []string
	seeks    []time.Duration
	muted    bool
	stopped  bool
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{events: make(chan player.Event, 64)}
}

func (p *fakePlayer) record(cmd string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands = append(p.commands, cmd)
}

func (p *fakePlayer) calls(cmd string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.commands {
		if c == cmd {
			n++
		}
	}
	return n
}

func (p *fakePlayer) Prepare(_ context.Context, _ player.Source) { p.record("prepare") }
func (p *fakePlayer) Play()                                      { p.record("play") }
func (p *fakePlayer) Pause()                                     { p.record("pause") }

func (p *fakePlayer) Seek(to time.Duration) {
	p.mu.Lock()
	p.seeks = append(p.seeks, to)
	p.mu.Unlock()
	p.record("seek")
}

func (p *fakePlayer) SetMuted(muted bool) {
	p.mu.Lock()
	p.muted = muted
	p.mu.Unlock()
	p.record("set_muted")
}

func (p *fakePlayer) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	close(p.events)
}

func (p *fakePlayer) Events() <-chan player.Event { return p.events }

func (p *fakePlayer) emit(ev player.Event) { p.events <- ev }

type fakeManager struct {
	mu        sync.Mutex
	events    chan adengine.Event
	commands  []string
	volume    float64
	destroyed bool
}

func newFakeManager() *fakeManager {
	return &fakeManager{events: make(chan adengine.Event, 64), volume: 1}
}

func (m *fakeManager) record(cmd string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, cmd)
}

func (m *fakeManager) calls(cmd string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.commands {
		if c == cmd {
			n++
		}
	}
	return n
}

func (m *fakeManager) Start()  { m.record("start") }
func (m *fakeManager) Pause()  { m.record("pause") }
func (m *fakeManager) Resume() { m.record("resume") }
func (m *fakeManager) Skip()   { m.record("skip") }

func (m *fakeManager) SetVolume(volume float64) {
	m.mu.Lock()
	m.volume = volume
	m.mu.Unlock()
}

func (m *fakeManager) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *fakeManager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	m.destroyed = true
	close(m.events)
}

func (m *fakeManager) Destroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}

func (m *fakeManager) Events() <-chan adengine.Event { return m.events }

func (m *fakeManager) emit(ev adengine.Event) { m.events <- ev }

type fakeEngine struct {
	mgr     adengine.Manager
	err     error
	release chan struct{} // when set, RequestAds blocks until closed
}

func (e *fakeEngine) RequestAds(ctx context.Context, _ adengine.Request) (adengine.Manager, error) {
	if e.release != nil {
		select {
		case <-e.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return e.mgr, e.err
}

func testSource() player.Source {
	return player.Source{ID: "v1", Title: "Test", URL: "https://example.com/v1.m3u8", Duration: 10 * time.Minute}
}

func skippableAd() *adengine.AdMeta {
	return &adengine.AdMeta{ID: "ad1", Position: 1, PodSize: 1, Duration: 15 * time.Second, Skippable: true, SkipOffset: 5 * time.Second}
}

func unskippableAd() *adengine.AdMeta {
	return &adengine.AdMeta{ID: "ad1", Position: 1, PodSize: 1, Duration: 15 * time.Second}
}

func TestLoad_AdDecisionSuccessEntersAdvertisement(t *testing.T) {
	content := newFakePlayer()
	mgr := newFakeManager()
	c := New(content, &fakeEngine{mgr: mgr}, nil)
	defer c.Close()

	require.NoError(t, c.Load(context.Background(), testSource(), adengine.Request{TagURL: "tag"}))

	require.Eventually(t, func() bool {
		return c.Snapshot().Mode == domain.ModeAdvertisement
	}, waitFor, tick)

	snap := c.Snapshot()
	assert.Equal(t, domain.InitReady, snap.Initialization)
	assert.Equal(t, domain.StatePlaying, snap.AdState)
	assert.NotEqual(t, domain.StatePlaying, snap.ContentState)
	assert.False(t, snap.CanSeek)
	assert.Equal(t, 1, content.calls("pause"), "content must be paused before ads play")
	assert.Equal(t, 1, mgr.calls("start"))
}

func TestLoad_AdRequestFailureFallsBackToContent(t *testing.T) {
	content := newFakePlayer()
	c := New(content, &fakeEngine{err: errors.New("no fill")}, nil)
	defer c.Close()

	require.NoError(t, c.Load(context.Background(), testSource(), adengine.Request{TagURL: "tag"}))

	require.Eventually(t, func() bool {
		return c.Snapshot().Mode == domain.ModeContent
	}, waitFor, tick)

	snap := c.Snapshot()
	assert.Equal(t, domain.InitReady, snap.Initialization, "ad failure must not fail the session")
	assert.Equal(t, domain.StatePlaying, snap.ContentState)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, domain.ErrKindAdRequestFailed, snap.LastError.Kind)
	assert.Equal(t, 1, content.calls("play"))
}

func TestLoad_RejectsReentry(t *testing.T) {
	content := newFakePlayer()
	release := make(chan struct{})
	defer close(release)
	c := New(content, &fakeEngine{mgr: newFakeManager(), release: release}, nil)
	defer c.Close()

	require.NoError(t, c.Load(context.Background(), testSource(), adengine.Request{}))
	err := c.Load(context.Background(), testSource(), adengine.Request{})
	assert.ErrorIs(t, err, ErrLoadInProgress)
}

func TestLoad_ContentPrepareFailureFailsSession(t *testing.T) {
	content := newFakePlayer()
	release := make(chan struct{})
	mgr := newFakeManager()
	c := New(content, &fakeEngine{mgr: mgr, release: release}, nil)
	defer c.Close()

	require.NoError(t, c.Load(context.Background(), testSource(), adengine.Request{}))
	content.emit(player.Event{Type: player.EventFailed, Message: "bad manifest"})

	require.Eventually(t, func() bool {
		return c.Snapshot().Initialization == domain.InitFailed
	}, waitFor, tick)

	snap := c.Snapshot()
	assert.Equal(t, domain.ModeIdle, snap.Mode)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, domain.ErrKindContentPrepareFailed, snap.LastError.Kind)

	// A late ad decision must not resurrect the failed session.
	close(release)
	require.Eventually(t, mgr.Destroyed, waitFor, tick)
	assert.Equal(t, domain.ModeIdle, c.Snapshot().Mode)
}

func TestSeek_ClampsToContentDuration(t *testing.T) {
	content := newFakePlayer()
	c := New(content, &fakeEngine{err: errors.New("no fill")}, nil)
	defer c.Close()

	src := testSource()
	require.NoError(t, c.Load(context.Background(), src, adengine.Request{}))
	require.Eventually(t, func() bool {
		return c.Snapshot().Mode == domain.ModeContent
	}, waitFor, tick)

	assert.True(t, c.Seek(-5*time.Second))
	assert.Equal(t, time.Duration(0), c.Snapshot().CurrentTime)

	assert.True(t, c.Seek(src.Duration+time.Hour))
	assert.Equal(t, src.Duration, c.Snapshot().CurrentTime)
}

func TestSeek_RejectedOutsideContentMode(t *testing.T) {
	content := newFakePlayer()
	mgr := newFakeManager()
	c := New(content, &fakeEngine{mgr: mgr}, nil)
	defer c.Close()

	require.NoError(t, c.Load(context.Background(), testSource(), adengine.Request{}))
	require.Eventually(t, func() bool {
		return c.Snapshot().Mode == domain.ModeAdvertisement
	}, waitFor, tick)

	before := c.Snapshot().CurrentTime
	assert.False(t, c.Seek(30*time.Second))
	assert.Equal(t, before, c.Snapshot().CurrentTime)
	assert.Equal(t, 0, content.calls("seek"))
}

func TestSkipAd_RequiresSkippableAd(t *testing.T) {
	content := newFakePlayer()
	mgr := newFakeManager()
	c := New(content, &fakeEngine{mgr: mgr}, nil)
	defer c.Close()

	require.NoError(t, c.Load(context.Background(), testSource(), adengine.Request{}))
	mgr.emit(adengine.Event{Type: adengine.EventStarted, Ad: unskippableAd()})

	require.Eventually(t, func() bool {
		return c.Snapshot().AdProgress != nil
	}, waitFor, tick)

	before := c.Snapshot()
	assert.False(t, before.CanSkip)
	assert.False(t, c.SkipAd())
	assert.Equal(t, 0, mgr.calls("skip"))
	assert.Equal(t, before, c.Snapshot())
}

func TestSkipAd_EngineDrivesTransition(t *testing.T) {
	content := newFakePlayer()
	mgr := newFakeManager()
	c := New(content, &fakeEngine{mgr: mgr}, nil)
	defer c.Close()

	require.NoError(t, c.Load(context.Background(), testSource(), adengine.Request{}))
	mgr.emit(adengine.Event{Type: adengine.EventStarted, Ad: skippableAd()})

	require.Eventually(t, func() bool {
		return c.Snapshot().CanSkip
	}, waitFor, tick)

	assert.True(t, c.SkipAd())
	assert.Equal(t, 1, mgr.calls("skip"))
	// The mode does not change until the engine confirms the skip.
	assert.Equal(t, domain.ModeAdvertisement, c.Snapshot().Mode)

	mgr.emit(adengine.Event{Type: adengine.EventSkipped})
	require.Eventually(t, func() bool {
		return c.Snapshot().Mode == domain.ModeContent
	}, waitFor, tick)
	assert.Nil(t, c.Snapshot().AdProgress)
}

func TestToggleMute_AppliesToBothPlayersAndPersists(t *testing.T) {
	content := newFakePlayer()
	mgr := newFakeManager()
	c := New(content, &fakeEngine{mgr: mgr}, nil)
	defer c.Close()

	require.NoError(t, c.Load(context.Background(), testSource(), adengine.Request{}))
	require.Eventually(t, func() bool {
		return c.Snapshot().Mode == domain.ModeAdvertisement
	}, waitFor, tick)

	c.ToggleMute()
	assert.True(t, c.Snapshot().Muted)
	assert.True(t, content.Muted())
	assert.Equal(t, float64(0), mgr.Volume())

	mgr.emit(adengine.Event{Type: adengine.EventPodCompleted})
	require.Eventually(t, func() bool {
		return c.Snapshot().Mode == domain.ModeContent
	}, waitFor, tick)

	assert.True(t, c.Snapshot().Muted, "mute must survive the mode switch")
	assert.True(t, content.Muted())
}

func TestSuspend_PausesAndNeverAutoResumes(t *testing.T) {
	content := newFakePlayer()
	c := New(content, &fakeEngine{err: errors.New("no fill")}, nil)
	defer c.Close()

	require.NoError(t, c.Load(context.Background(), testSource(), adengine.Request{}))
	require.Eventually(t, func() bool {
		return c.Snapshot().IsPlaying()
	}, waitFor, tick)

	c.Suspend()
	assert.False(t, c.Snapshot().IsPlaying())

	c.Resume()
	assert.False(t, c.Snapshot().IsPlaying(), "resume must leave playback paused")

	c.Play()
	assert.True(t, c.Snapshot().IsPlaying())
}

func TestPlayPause_IdleModeIsConsistentNoop(t *testing.T) {
	content := newFakePlayer()
	c := New(content, &fakeEngine{}, nil)
	defer c.Close()

	c.Play()
	c.Pause()

	snap := c.Snapshot()
	assert.Equal(t, domain.ModeIdle, snap.Mode)
	assert.Equal(t, 0, content.calls("play"))
	assert.Equal(t, 0, content.calls("pause"))
}

func TestClose_Idempotent(t *testing.T) {
	content := newFakePlayer()
	mgr := newFakeManager()
	c := New(content, &fakeEngine{mgr: mgr}, nil)

	require.NoError(t, c.Load(context.Background(), testSource(), adengine.Request{}))
	require.Eventually(t, func() bool {
		return c.Snapshot().Mode == domain.ModeAdvertisement
	}, waitFor, tick)

	sub := c.Subscribe()

	c.Close()
	c.Close()

	select {
	case <-sub.Done:
	case <-time.After(waitFor):
		t.Fatal("subscription was not closed")
	}
	assert.True(t, mgr.Destroyed())
	assert.Equal(t, 1, content.calls("prepare"))
	assert.ErrorIs(t, c.Load(context.Background(), testSource(), adengine.Request{}), ErrClosed)
}
