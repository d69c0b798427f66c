package pipeline

import "fmt"

type Kind string

const (
	KindInput      Kind = "input_error"
	KindGeneration Kind = "generation_failure"
	KindValidation Kind = "validation_rejected"
	KindExecution  Kind = "execution_failure"
	KindTimeout    Kind = "timeout"
)

var userMessages = map[Kind]string{
	KindInput:      "Please provide a non-empty question.",
	KindGeneration: "The answer service is temporarily unavailable. Please try again.",
	KindValidation: "Sorry, that question cannot be answered from the sales data.",
	KindExecution:  "Something went wrong while looking up the sales data.",
	KindTimeout:    "The request took too long. Please try again.",
}

// Failure is a terminal pipeline outcome. Stage, Reason and Err are for
// logs only; Message is the text that may be shown to a user.
type Failure struct {
	RequestID string
	Stage     Phase
	Kind      Kind
	Reason    string
	Message   string
	Trace     []Phase
	Err       error
}

func newFailure(state State, requestID string, stage Phase, kind Kind, reason string, err error) *Failure {
	return &Failure{
		RequestID: requestID,
		Stage:     stage,
		Kind:      kind,
		Reason:    reason,
		Message:   userMessages[kind],
		Trace:     state.fail().Trace,
		Err:       err,
	}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("ask failed stage=%s kind=%s reason=%s", f.Stage, f.Kind, f.Reason)
	}
	return fmt.Sprintf("ask failed stage=%s kind=%s reason=%s: %v", f.Stage, f.Kind, f.Reason, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func (f *Failure) Retryable() bool {
	return f.Kind == KindGeneration || f.Kind == KindTimeout
}

func UserMessage(kind Kind) string {
	return userMessages[kind]
}
