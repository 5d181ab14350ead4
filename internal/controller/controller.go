package controller

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/adbreak/server/internal/catalog"
	"github.com/adbreak/server/internal/service/session"
	"github.com/adbreak/server/pkg/validator"
	"github.com/adbreak/server/pkg/wsrouter"
)

type iSessionService interface {
	CreateSession(ctx context.Context, params *session.CreateSessionParams) (session.CreateSessionResponse, error)
	GetSession(sessionID string) (*session.Session, error)
	TerminateSession(sessionID string) error
	Videos() []catalog.Video
}

type controller struct {
	sessionService iSessionService
	upgrader       websocket.Upgrader
	validate       *validator.Validator
	wsmux          *wsrouter.WSRouter
	logger         *slog.Logger

	mu      sync.Mutex
	writers map[*websocket.Conn]*connWriter
}

func NewController(sessionService iSessionService, logger *slog.Logger) *controller {
	c := &controller{
		sessionService: sessionService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
		writers:  make(map[*websocket.Conn]*connWriter),
	}
	c.wsmux = c.getWSRouter()
	return c
}

func (c *controller) generateTimeBasedId() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// connWriter serializes writes to one websocket connection; the snapshot
// pump and command handlers write concurrently.
type connWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *connWriter) write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

func (c *controller) registerWriter(conn *websocket.Conn) *connWriter {
	w := &connWriter{conn: conn}
	c.mu.Lock()
	c.writers[conn] = w
	c.mu.Unlock()
	return w
}

func (c *controller) unregisterWriter(conn *websocket.Conn) {
	c.mu.Lock()
	delete(c.writers, conn)
	c.mu.Unlock()
}

func (c *controller) writerFor(conn *websocket.Conn) (*connWriter, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.writers[conn]
	return w, ok
}
