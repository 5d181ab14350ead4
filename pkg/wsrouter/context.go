package wsrouter

import "context"

type ctxKey string

const (
	messageTypeKey ctxKey = "message_type"
)

// GetMessageTypeFromCtx returns the type of the message currently being
// handled, or "" outside a handler.
func GetMessageTypeFromCtx(ctx context.Context) string {
	messageType, ok := ctx.Value(messageTypeKey).(string)
	if !ok {
		return ""
	}

	return messageType
}
