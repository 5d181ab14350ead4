package wsrouter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// HandlerFunc handles one inbound message. Registered handlers receive
// their decoded payload type; middleware sees the payload as any.
type HandlerFunc[T any] func(ctx context.Context, conn *websocket.Conn, payload T) error

// Middleware wraps a handler in the untyped form.
type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

type WSRouter struct {
	routes      map[string]HandlerFunc[any]
	middlewares []Middleware
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc[any])}
}

// Use appends middleware applied to every handler, outermost first.
func (r *WSRouter) Use(mw ...Middleware) {
	r.middlewares = append(r.middlewares, mw...)
}

// Handle registers a typed handler for a message type. The raw payload
// is unmarshaled into T before the handler runs.
func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	r.routes[messageType] = func(ctx context.Context, conn *websocket.Conn, payload any) error {
		var in T
		raw, _ := payload.(json.RawMessage)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &in); err != nil {
				return fmt.Errorf("failed to unmarshal %q payload: %w", messageType, err)
			}
		}
		return handler(ctx, conn, in)
	}
}

// ServeConn reads messages from the connection until it fails or the
// context is done, dispatching each to its registered handler. Handler
// errors are returned to the caller and end the connection.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		handler, ok := r.routes[msg.Type]
		if !ok {
			return fmt.Errorf("unknown message type %q", msg.Type)
		}

		h := handler
		for i := len(r.middlewares) - 1; i >= 0; i-- {
			h = r.middlewares[i](h)
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		if err := h(msgCtx, conn, msg.Payload); err != nil {
			return fmt.Errorf("failed to handle %q: %w", msg.Type, err)
		}
	}
}
