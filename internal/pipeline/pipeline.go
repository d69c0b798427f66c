package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/salesask/salesask/internal/observability"
	"github.com/salesask/salesask/internal/oracle"
	"github.com/salesask/salesask/internal/query"
	"github.com/salesask/salesask/internal/sqlguard"
	"github.com/salesask/salesask/internal/summarize"
)

type PromptBuilder interface {
	Build(question string) string
}

type Validator interface {
	Validate(text string) sqlguard.GeneratedQuery
}

type Executor interface {
	Execute(ctx context.Context, q sqlguard.GeneratedQuery) (query.Result, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, question string, result query.Result) summarize.Summary
}

type Config struct {
	RequestTimeout    time.Duration
	MaxConcurrent     int64
	MaxQuestionLength int
}

type Deps struct {
	Prompts    PromptBuilder
	Oracle     oracle.Oracle
	Validator  Validator
	Executor   Executor
	Summarizer Summarizer
	Logger     *slog.Logger
}

type Answer struct {
	RequestID string
	Text      string
	SQL       string
	Rows      int
	Truncated bool
	Fallback  bool
	Trace     []Phase
}

type Pipeline struct {
	deps  Deps
	cfg   Config
	slots *semaphore.Weighted
	newID func() string
}

func New(deps Deps, cfg Config) *Pipeline {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 16
	}
	if cfg.MaxQuestionLength <= 0 {
		cfg.MaxQuestionLength = 2000
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		deps:  deps,
		cfg:   cfg,
		slots: semaphore.NewWeighted(cfg.MaxConcurrent),
		newID: uuid.NewString,
	}
}

func (p *Pipeline) Ask(ctx context.Context, question string) (Answer, error) {
	requestID := p.newID()
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, p.finish(ctx, newFailure(State{}, requestID, PhaseReceived, KindInput, "empty_question", nil))
	}
	if utf8.RuneCountInString(question) > p.cfg.MaxQuestionLength {
		return Answer{}, p.finish(ctx, newFailure(State{}, requestID, PhaseReceived, KindInput, "question_too_long", nil))
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	state := received()
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return Answer{}, p.finish(ctx, newFailure(state, requestID, PhasePrompted, KindTimeout, "queue_wait", err))
	}
	defer p.slots.Release(1)
	observability.AddInflightAsks(1)
	defer observability.AddInflightAsks(-1)

	state, failure := p.run(ctx, requestID, question, state)
	if failure != nil {
		return Answer{}, p.finish(ctx, failure)
	}

	answer := Answer{
		RequestID: requestID,
		Text:      state.Summary.Text,
		SQL:       state.Query.Text,
		Rows:      len(state.Result.Rows),
		Truncated: state.Result.Truncated,
		Fallback:  state.Summary.Fallback,
		Trace:     state.Trace,
	}
	observability.ObserveAsk("ok")
	p.deps.Logger.InfoContext(ctx, "ask completed",
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("request_id", requestID),
		slog.Int("rows", answer.Rows),
		slog.Bool("truncated", answer.Truncated),
		slog.Bool("summary_fallback", answer.Fallback),
	)
	return answer, nil
}

func (p *Pipeline) run(ctx context.Context, requestID, question string, state State) (State, *Failure) {
	var err error
	fail := func(stage Phase, kind Kind, reason string, cause error) (State, *Failure) {
		if ctx.Err() != nil {
			kind, reason = KindTimeout, "request_deadline"
		}
		return state, newFailure(state, requestID, stage, kind, reason, cause)
	}
	step := func(next Phase) *Failure {
		state, err = state.advance(next)
		if err != nil {
			return newFailure(state, requestID, next, KindExecution, "invalid_transition", err)
		}
		return nil
	}

	start := time.Now()
	state.Prompt = p.deps.Prompts.Build(question)
	observability.ObserveStage(string(PhasePrompted), time.Since(start))
	if f := step(PhasePrompted); f != nil {
		return state, f
	}

	start = time.Now()
	raw, err := p.deps.Oracle.Generate(ctx, state.Prompt, oracle.PurposeTranslate)
	observability.ObserveStage(string(PhaseGenerated), time.Since(start))
	if err != nil {
		failure := oracle.AsFailure(err, oracle.PurposeTranslate)
		return fail(PhaseGenerated, KindGeneration, string(failure.Kind), failure)
	}
	state.Raw = raw
	if f := step(PhaseGenerated); f != nil {
		return state, f
	}

	state.Query = p.deps.Validator.Validate(raw)
	if !state.Query.Valid() {
		observability.IncrementValidationRejection(string(state.Query.Reason))
		return state, newFailure(state, requestID, PhaseValidated, KindValidation, string(state.Query.Reason),
			fmt.Errorf("generated query rejected: %s", state.Query.Detail))
	}
	if f := step(PhaseValidated); f != nil {
		return state, f
	}

	start = time.Now()
	state.Result, err = p.deps.Executor.Execute(ctx, state.Query)
	observability.ObserveStage(string(PhaseExecuted), time.Since(start))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fail(PhaseExecuted, KindTimeout, "statement_timeout", err)
		}
		return fail(PhaseExecuted, KindExecution, "store_error", err)
	}
	if f := step(PhaseExecuted); f != nil {
		return state, f
	}

	start = time.Now()
	state.Summary = p.deps.Summarizer.Summarize(ctx, question, state.Result)
	observability.ObserveStage(string(PhaseSummarized), time.Since(start))
	if ctx.Err() != nil {
		return state, newFailure(state, requestID, PhaseSummarized, KindTimeout, "request_deadline", ctx.Err())
	}
	if f := step(PhaseSummarized); f != nil {
		return state, f
	}
	if f := step(PhaseDone); f != nil {
		return state, f
	}
	return state, nil
}

func (p *Pipeline) finish(ctx context.Context, failure *Failure) *Failure {
	observability.ObserveAsk(string(failure.Kind))
	attrs := []any{
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("request_id", failure.RequestID),
		slog.String("stage", string(failure.Stage)),
		slog.String("kind", string(failure.Kind)),
		slog.String("reason", failure.Reason),
	}
	if failure.Err != nil {
		attrs = append(attrs, slog.String("error", failure.Err.Error()))
	}
	level := slog.LevelWarn
	if failure.Kind == KindExecution {
		level = slog.LevelError
	}
	p.deps.Logger.Log(ctx, level, "ask failed", attrs...)
	return failure
}
