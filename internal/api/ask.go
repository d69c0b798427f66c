package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/salesask/salesask/internal/auth"
	"github.com/salesask/salesask/internal/observability"
	"github.com/salesask/salesask/internal/pipeline"
)

const maxAskBodyBytes = 64 << 10

type askRequest struct {
	Question string `json:"question"`
}

var failureCodes = map[pipeline.Kind]string{
	pipeline.KindInput:      "INVALID_QUESTION",
	pipeline.KindGeneration: "GENERATION_FAILED",
	pipeline.KindValidation: "QUESTION_NOT_ANSWERABLE",
	pipeline.KindExecution:  "INTERNAL_ERROR",
	pipeline.KindTimeout:    "TIMEOUT",
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Asker == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "ask pipeline is not configured", false, nil)
		return
	}
	if err := auth.Authorize(r.Context(), auth.RoleSalesReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", "missing required role", false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAskBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, nil)
		return
	}

	answer, err := deps.Asker.Ask(r.Context(), request.Question)
	if err != nil {
		writeAskFailure(deps, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":       answer.Text,
		"request_id": answer.RequestID,
	})
}

func writeAskFailure(deps Dependencies, w http.ResponseWriter, r *http.Request, err error) {
	var failure *pipeline.Failure
	if !errors.As(err, &failure) {
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "ask returned an unexpected error",
				slog.String("trace_id", observability.TraceIDFromContext(r.Context())),
				slog.String("subject", auth.Subject(r.Context())),
				slog.Any("error", err),
			)
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL_ERROR", pipeline.UserMessage(pipeline.KindExecution), false, nil)
		return
	}

	status := http.StatusInternalServerError
	if failure.Kind == pipeline.KindInput {
		status = http.StatusBadRequest
	}
	code, ok := failureCodes[failure.Kind]
	if !ok {
		code = "INTERNAL_ERROR"
	}
	writeError(r.Context(), w, status, code, failure.Message, failure.Retryable(), map[string]any{"request_id": failure.RequestID})
}
