package conversation

import "fmt"

// Mode is the routing state between turns. It is one of Idle,
// AwaitingClarification or ReadyForFollowUp.
type Mode interface {
	mode()
}

// Idle is the mode before anything has succeeded.
type Idle struct{}

// AwaitingClarification holds an open clarifying question. LastQuery keeps
// the last successful question so an aborted reply falls back to follow-up
// routing.
type AwaitingClarification struct {
	Question      string
	OriginalQuery string
	LastQuery     string
}

// ReadyForFollowUp is the steady state after a successful result.
type ReadyForFollowUp struct {
	LastQuery string
}

func (Idle) mode()                  {}
func (AwaitingClarification) mode() {}
func (ReadyForFollowUp) mode()      {}

// lastQuery returns the last successful question recorded in m.
func lastQuery(m Mode) string {
	switch m := m.(type) {
	case AwaitingClarification:
		return m.LastQuery
	case ReadyForFollowUp:
		return m.LastQuery
	default:
		return ""
	}
}

// settledMode is the mode to return to when a turn ends without a new
// result or question.
func settledMode(last string) Mode {
	if last == "" {
		return Idle{}
	}
	return ReadyForFollowUp{LastQuery: last}
}

// Phase is the externally visible state of the controller.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingInterpretation
	PhaseAwaitingClarificationReply
	PhaseAwaitingExecution
	PhaseAwaitingObservations
	PhaseReadyForFollowUp
)

// phaseNone marks that no remote call is in flight.
const phaseNone Phase = -1

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingInterpretation:
		return "awaiting-interpretation"
	case PhaseAwaitingClarificationReply:
		return "awaiting-clarification-reply"
	case PhaseAwaitingExecution:
		return "awaiting-execution"
	case PhaseAwaitingObservations:
		return "awaiting-observations"
	case PhaseReadyForFollowUp:
		return "ready-for-follow-up"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ObservationState tracks the one-shot observation request.
type ObservationState int

const (
	ObservationsNotRequested ObservationState = iota
	ObservationsRequested
	ObservationsShown
	// ObservationsFailed covers transport and service failures as well as
	// an empty summary. Nothing was shown and nothing will be retried.
	ObservationsFailed
)

func (s ObservationState) String() string {
	switch s {
	case ObservationsNotRequested:
		return "not-requested"
	case ObservationsRequested:
		return "requested"
	case ObservationsShown:
		return "shown"
	case ObservationsFailed:
		return "failed"
	default:
		return fmt.Sprintf("observations(%d)", int(s))
	}
}

// Result is the outcome of the last successful execution.
type Result struct {
	// SQL is the statement the service actually ran.
	SQL string
	// CSV is the serialized result set.
	CSV string
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	Mode                  Mode
	Phase                 Phase
	OriginalQuery         string
	PendingTrueSQL        string
	PendingCSVData        string
	AwaitingClarification bool
	LastSuccessfulQuery   string
	Observations          ObservationState
	// ObservationsShown is true once observations have been requested,
	// whether or not anything was displayed.
	ObservationsShown bool
	// Turns counts accepted submissions.
	Turns uint64
}
