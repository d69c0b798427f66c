package oracle

import (
	"context"
	"log/slog"
	"time"

	"github.com/salesask/salesask/internal/observability"
)

// Retrying retries a failed call once, after Backoff, when the failure is a
// transport error or a timeout. Any other failure is returned as is.
type Retrying struct {
	Next    Oracle
	Backoff time.Duration
	Logger  *slog.Logger
}

func NewRetrying(next Oracle, backoff time.Duration, logger *slog.Logger) *Retrying {
	return &Retrying{Next: next, Backoff: backoff, Logger: logger}
}

func (r *Retrying) Generate(ctx context.Context, prompt string, purpose Purpose) (string, error) {
	text, err := r.attempt(ctx, prompt, purpose)
	if err == nil {
		return text, nil
	}
	failure := AsFailure(err, purpose)
	if !failure.Retryable() || ctx.Err() != nil {
		return "", failure
	}

	if r.Logger != nil {
		r.Logger.WarnContext(ctx, "oracle call failed, retrying",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.String("purpose", string(purpose)),
			slog.String("kind", string(failure.Kind)),
			slog.String("backoff", r.Backoff.String()),
		)
	}
	select {
	case <-ctx.Done():
		return "", failure
	case <-time.After(r.Backoff):
	}

	text, err = r.attempt(ctx, prompt, purpose)
	if err != nil {
		return "", AsFailure(err, purpose)
	}
	return text, nil
}

func (r *Retrying) attempt(ctx context.Context, prompt string, purpose Purpose) (string, error) {
	text, err := r.Next.Generate(ctx, prompt, purpose)
	outcome := "ok"
	if err != nil {
		outcome = string(AsFailure(err, purpose).Kind)
	}
	observability.ObserveOracleCall(string(purpose), outcome)
	return text, err
}
