package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const sessionIDKey ctxKey = "session_id"

func ContextWithSessionID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionIDKey, id)
}

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// WithContext adds the session id carried by ctx, if any, to logger.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if sid := SessionIDFromContext(ctx); sid != "" {
		return logger.With().Str(FieldSessionID, sid).Logger()
	}
	return logger
}
