package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adbreak/server/internal/catalog"
	"github.com/adbreak/server/internal/service/session"
	"github.com/adbreak/server/pkg/rest"
)

func (c *controller) listVideos(w http.ResponseWriter, r *http.Request) {
	videos := c.sessionService.Videos()
	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": videos})
}

type createSessionInput struct {
	VideoId string `json:"video_id" validate:"required"`
}

type createSessionResponse struct {
	SessionId string `json:"session_id"`
	VideoId   string `json:"video_id"`
}

func (c *controller) createSession(w http.ResponseWriter, r *http.Request) {
	var input createSessionInput

	if err := rest.ReadJSON(r, &input); err != nil {
		c.logger.DebugContext(r.Context(), "failed to read json", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.logger.DebugContext(r.Context(), "failed to validate input", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	resp, err := c.sessionService.CreateSession(r.Context(), &session.CreateSessionParams{
		VideoID: input.VideoId,
	})
	if err != nil {
		if errors.Is(err, catalog.ErrVideoNotFound) {
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "video not found"})
			return
		}
		c.logger.WarnContext(r.Context(), "failed to create session", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to create session"})
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": createSessionResponse{
		SessionId: resp.SessionID,
		VideoId:   resp.VideoID,
	}})
}

func (c *controller) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionId := chi.URLParam(r, "session-id")

	if err := c.sessionService.TerminateSession(sessionId); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "session not found"})
			return
		}
		c.logger.WarnContext(r.Context(), "failed to terminate session", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to terminate session"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
