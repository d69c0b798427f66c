package observability

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/salesask/salesask/internal/config"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

const redacted = "[REDACTED]"

var secretAttrs = map[string]bool{
	"api_key":           true,
	"authorization":     true,
	"dsn":               true,
	"secret_access_key": true,
}

func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	opts := &slog.HandlerOptions{Level: cfg.Observability.LogLevel, ReplaceAttr: redactSecrets}
	var handler slog.Handler
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}
	return slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("ai_provider", cfg.AI.Provider),
		slog.String("ai_model", cfg.AI.Model),
	)
}

func redactSecrets(_ []string, attr slog.Attr) slog.Attr {
	if secretAttrs[strings.ToLower(attr.Key)] {
		return slog.String(attr.Key, redacted)
	}
	return attr
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	value, ok := ctx.Value(traceIDKey).(string)
	if !ok {
		return ""
	}
	return value
}
