package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adbreak/server/internal/adengine"
	"github.com/adbreak/server/internal/catalog"
	"github.com/adbreak/server/internal/playback"
	"github.com/adbreak/server/internal/player"
)

var ErrSessionNotFound = errors.New("session not found")

type iCatalog interface {
	Video(id string) (catalog.Video, error)
	List() []catalog.Video
}

// PlayerFactory builds a fresh content player for one session.
type PlayerFactory func() player.Player

// Session is one playback session: a coordinator created for a single
// video and torn down when the screen goes away.
type Session struct {
	ID          string
	VideoID     string
	Coordinator *playback.Coordinator
	CreatedAt   time.Time

	lastActive time.Time // guarded by the service mutex
}

// Config tunes the session service.
type Config struct {
	// SessionTTL is how long a session may go without commands or
	// observers before the reaper closes it. Zero disables reaping.
	SessionTTL time.Duration
}

type service struct {
	catalog   iCatalog
	newPlayer PlayerFactory
	engine    adengine.Engine
	ttl       time.Duration
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	stop     chan struct{}
	stopOnce sync.Once
}

// NewService creates the session service and starts its idle reaper.
func NewService(cat iCatalog, newPlayer PlayerFactory, engine adengine.Engine, cfg *Config, logger *slog.Logger) *service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &service{
		catalog:   cat,
		newPlayer: newPlayer,
		engine:    engine,
		ttl:       cfg.SessionTTL,
		logger:    logger,
		sessions:  make(map[string]*Session),
		stop:      make(chan struct{}),
	}
	if s.ttl > 0 {
		go s.reap()
	}
	return s
}

type CreateSessionParams struct {
	VideoID string
}

type CreateSessionResponse struct {
	SessionID string
	VideoID   string
}

// CreateSession builds a coordinator for the video and starts loading
// it. Ad decisioning failures do not fail creation; they fall back to
// content inside the coordinator.
func (s *service) CreateSession(ctx context.Context, params *CreateSessionParams) (CreateSessionResponse, error) {
	video, err := s.catalog.Video(params.VideoID)
	if err != nil {
		return CreateSessionResponse{}, fmt.Errorf("failed to get video: %w", err)
	}

	coord := playback.New(s.newPlayer(), s.engine, s.logger)
	// The session outlives the request that created it; TerminateSession
	// and the reaper own its shutdown.
	loadCtx := context.WithoutCancel(ctx)
	if err := coord.Load(loadCtx, video.Source(), adengine.Request{TagURL: video.AdTag}); err != nil {
		coord.Close()
		return CreateSessionResponse{}, fmt.Errorf("failed to load session: %w", err)
	}

	sess := &Session{
		ID:          uuid.NewString(),
		VideoID:     video.ID,
		Coordinator: coord,
		CreatedAt:   time.Now(),
		lastActive:  time.Now(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Info("session created", "session_id", sess.ID, "video_id", video.ID)
	return CreateSessionResponse{SessionID: sess.ID, VideoID: video.ID}, nil
}

// GetSession returns the session and marks it active.
func (s *service) GetSession(sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.lastActive = time.Now()
	return sess, nil
}

// TerminateSession closes the session's coordinator and forgets it.
func (s *service) TerminateSession(sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	sess.Coordinator.Close()
	s.logger.Info("session terminated", "session_id", sessionID)
	return nil
}

// Videos lists the content catalog.
func (s *service) Videos() []catalog.Video {
	return s.catalog.List()
}

func (s *service) reap() {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		var expired []*Session
		for id, sess := range s.sessions {
			if time.Since(sess.lastActive) > s.ttl {
				delete(s.sessions, id)
				expired = append(expired, sess)
			}
		}
		s.mu.Unlock()

		for _, sess := range expired {
			sess.Coordinator.Close()
			s.logger.Info("idle session reaped", "session_id", sess.ID)
		}
	}
}

// Close stops the reaper and closes every open session.
func (s *service) Close() {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Coordinator.Close()
	}
}
