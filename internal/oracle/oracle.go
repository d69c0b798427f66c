package oracle

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type Purpose string

const (
	PurposeTranslate Purpose = "translate"
	PurposeSummarize Purpose = "summarize"
)

type Kind string

const (
	KindTransport   Kind = "transport"
	KindTimeout     Kind = "timeout"
	KindRateLimited Kind = "rate_limited"
	KindEmpty       Kind = "empty"
	KindMalformed   Kind = "malformed"
	KindUpstream    Kind = "upstream"
)

// Oracle is an external text generator. Its output is untrusted data.
type Oracle interface {
	Generate(ctx context.Context, prompt string, purpose Purpose) (string, error)
}

type Failure struct {
	Purpose Purpose
	Kind    Kind
	Err     error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("generation failed purpose=%s kind=%s", f.Purpose, f.Kind)
	}
	return fmt.Sprintf("generation failed purpose=%s kind=%s: %v", f.Purpose, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func (f *Failure) Retryable() bool {
	return f.Kind == KindTransport || f.Kind == KindTimeout
}

func AsFailure(err error, purpose Purpose) *Failure {
	if err == nil {
		return nil
	}
	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}
	return &Failure{Purpose: purpose, Kind: classifyTransport(err), Err: err}
}

func classifyTransport(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindTransport
}

func classifyStatus(status int) Kind {
	switch {
	case status == 429:
		return KindRateLimited
	case status >= 500:
		return KindTransport
	default:
		return KindUpstream
	}
}

type PurposeParams struct {
	Temperature float64
	System      string
}

type Params struct {
	Translate PurposeParams
	Summarize PurposeParams
}

func DefaultParams() Params {
	return Params{
		Translate: PurposeParams{
			Temperature: 0,
			System: "You convert natural language questions about a sales database into a single read-only SQL SELECT query. " +
				"Return ONLY SQL. No markdown, no explanation.",
		},
		Summarize: PurposeParams{
			Temperature: 0.3,
			System: "You answer business questions using only the query result you are given. " +
				"Reply with one direct, complete sentence. Never mention SQL.",
		},
	}
}

func (p Params) For(purpose Purpose) PurposeParams {
	if purpose == PurposeSummarize {
		return p.Summarize
	}
	return p.Translate
}
