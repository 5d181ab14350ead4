package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/adbreak/server/pkg/wsrouter"
)

type EmptyInput struct{}

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Use(c.wsRequestIdWSMw())
	mux.Use(c.loggerWSMw())

	wsrouter.Handle(mux, "ALIVE", c.handleAlive)

	// playback commands
	wsrouter.Handle(mux, "PLAY", c.handlePlay)
	wsrouter.Handle(mux, "PAUSE", c.handlePause)
	wsrouter.Handle(mux, "TOGGLE_MUTE", c.handleToggleMute)
	wsrouter.Handle(mux, "SEEK", c.handleSeek)
	wsrouter.Handle(mux, "SKIP_AD", c.handleSkipAd)

	// screen lifecycle
	wsrouter.Handle(mux, "SUSPEND", c.handleSuspend)
	wsrouter.Handle(mux, "RESUME", c.handleResume)

	return mux
}

func (c *controller) handleAlive(_ context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return nil
}

func (c *controller) handlePlay(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	sess, err := c.getSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	sess.Coordinator.Play()
	return nil
}

func (c *controller) handlePause(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	sess, err := c.getSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	sess.Coordinator.Pause()
	return nil
}

func (c *controller) handleToggleMute(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	sess, err := c.getSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	sess.Coordinator.ToggleMute()
	return nil
}

type SeekInput struct {
	Seconds float64 `json:"seconds"`
}

func (c *controller) handleSeek(ctx context.Context, conn *websocket.Conn, input SeekInput) error {
	sess, err := c.getSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	if ok := sess.Coordinator.Seek(time.Duration(input.Seconds * float64(time.Second))); !ok {
		c.rejectCommand(conn, "SEEK", "seeking is only available during content playback")
	}
	return nil
}

func (c *controller) handleSkipAd(ctx context.Context, conn *websocket.Conn, _ EmptyInput) error {
	sess, err := c.getSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	if ok := sess.Coordinator.SkipAd(); !ok {
		c.rejectCommand(conn, "SKIP_AD", "no skippable ad is playing")
	}
	return nil
}

func (c *controller) handleSuspend(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	sess, err := c.getSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	sess.Coordinator.Suspend()
	return nil
}

func (c *controller) handleResume(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	sess, err := c.getSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	sess.Coordinator.Resume()
	return nil
}
