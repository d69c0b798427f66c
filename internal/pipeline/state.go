package pipeline

import (
	"fmt"

	"github.com/salesask/salesask/internal/query"
	"github.com/salesask/salesask/internal/sqlguard"
	"github.com/salesask/salesask/internal/summarize"
)

type Phase string

const (
	PhaseReceived   Phase = "received"
	PhasePrompted   Phase = "prompted"
	PhaseGenerated  Phase = "generated"
	PhaseValidated  Phase = "validated"
	PhaseExecuted   Phase = "executed"
	PhaseSummarized Phase = "summarized"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

var successor = map[Phase]Phase{
	PhaseReceived:   PhasePrompted,
	PhasePrompted:   PhaseGenerated,
	PhaseGenerated:  PhaseValidated,
	PhaseValidated:  PhaseExecuted,
	PhaseExecuted:   PhaseSummarized,
	PhaseSummarized: PhaseDone,
}

type State struct {
	Phase   Phase
	Trace   []Phase
	Prompt  string
	Raw     string
	Query   sqlguard.GeneratedQuery
	Result  query.Result
	Summary summarize.Summary
}

func received() State {
	return State{Phase: PhaseReceived, Trace: []Phase{PhaseReceived}}
}

func (s State) advance(next Phase) (State, error) {
	if want, ok := successor[s.Phase]; !ok || want != next {
		return s, fmt.Errorf("invalid transition %s -> %s", s.Phase, next)
	}
	s.Trace = append(append(make([]Phase, 0, len(s.Trace)+1), s.Trace...), next)
	s.Phase = next
	return s, nil
}

func (s State) Terminal() bool {
	return s.Phase == PhaseDone || s.Phase == PhaseFailed
}

func (s State) fail() State {
	s.Trace = append(append(make([]Phase, 0, len(s.Trace)+1), s.Trace...), PhaseFailed)
	s.Phase = PhaseFailed
	return s
}
