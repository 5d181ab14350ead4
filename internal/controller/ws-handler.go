package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/adbreak/server/internal/domain"
	"github.com/adbreak/server/internal/service/session"
	"github.com/adbreak/server/pkg/rest"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type adProgressOutput struct {
	AdIndex           int     `json:"ad_index"`
	TotalAds          int     `json:"total_ads"`
	ElapsedSeconds    float64 `json:"elapsed_seconds"`
	DurationSeconds   float64 `json:"duration_seconds"`
	Skippable         bool    `json:"skippable"`
	SkipUnlockSeconds float64 `json:"skip_unlock_seconds"`
}

type snapshotOutput struct {
	Mode               domain.Mode           `json:"mode"`
	ContentState       domain.PlayerState    `json:"content_state"`
	AdState            domain.PlayerState    `json:"ad_state"`
	CurrentTimeSeconds float64               `json:"current_time_seconds"`
	DurationSeconds    float64               `json:"duration_seconds"`
	Muted              bool                  `json:"muted"`
	IsPlaying          bool                  `json:"is_playing"`
	CanSeek            bool                  `json:"can_seek"`
	CanSkip            bool                  `json:"can_skip"`
	AdProgress         *adProgressOutput     `json:"ad_progress,omitempty"`
	LastError          *domain.PlaybackError `json:"last_error,omitempty"`
	Initialization     domain.InitState      `json:"initialization"`
}

func toSnapshotOutput(snap domain.Snapshot) snapshotOutput {
	out := snapshotOutput{
		Mode:               snap.Mode,
		ContentState:       snap.ContentState,
		AdState:            snap.AdState,
		CurrentTimeSeconds: snap.CurrentTime.Seconds(),
		DurationSeconds:    snap.Duration.Seconds(),
		Muted:              snap.Muted,
		IsPlaying:          snap.IsPlaying(),
		CanSeek:            snap.CanSeek,
		CanSkip:            snap.CanSkip,
		LastError:          snap.LastError,
		Initialization:     snap.Initialization,
	}
	if snap.AdProgress != nil {
		out.AdProgress = &adProgressOutput{
			AdIndex:           snap.AdProgress.AdIndex,
			TotalAds:          snap.AdProgress.TotalAds,
			ElapsedSeconds:    snap.AdProgress.Elapsed.Seconds(),
			DurationSeconds:   snap.AdProgress.Duration.Seconds(),
			Skippable:         snap.AdProgress.Skippable,
			SkipUnlockSeconds: snap.AdProgress.SkipUnlockRemaining.Seconds(),
		}
	}
	return out
}

// connectSession upgrades to websocket and binds the connection to one
// playback session: snapshots stream out, commands come in.
func (c *controller) connectSession(w http.ResponseWriter, r *http.Request) {
	sessionId := chi.URLParam(r, "session-id")

	sess, err := c.sessionService.GetSession(sessionId)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "session not found"})
			return
		}
		c.logger.WarnContext(r.Context(), "failed to get session", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to get session"})
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	writer := c.registerWriter(conn)
	defer c.unregisterWriter(conn)

	sub := sess.Coordinator.Subscribe()
	defer sess.Coordinator.Unsubscribe(sub)

	go func() {
		for {
			select {
			case snap, ok := <-sub.Snapshots:
				if !ok {
					return
				}
				if err := writer.write(&Output{Type: "SNAPSHOT", Payload: toSnapshotOutput(snap)}); err != nil {
					return
				}
			case <-sub.Done:
				// Session closed underneath the connection.
				writer.write(&Output{Type: "SESSION_CLOSED"})
				conn.SetReadDeadline(time.Now())
				return
			}
		}
	}()

	ctx := context.WithValue(r.Context(), sessionIdCtxKey, sess.ID)
	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.InfoContext(r.Context(), "websocket connection closed", "error", err)
	}
}

// getSession resolves the session bound to the current connection,
// refreshing its idle timer.
func (c *controller) getSession(ctx context.Context) (*session.Session, error) {
	return c.sessionService.GetSession(c.getSessionIdFromCtx(ctx))
}

func (c *controller) rejectCommand(conn *websocket.Conn, command, reason string) {
	writer, ok := c.writerFor(conn)
	if !ok {
		return
	}
	writer.write(&Output{Type: "COMMAND_REJECTED", Payload: map[string]any{
		"command": command,
		"reason":  reason,
	}})
}
