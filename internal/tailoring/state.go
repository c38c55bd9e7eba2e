// Package tailoring runs the generate-validate-retry state machine that
// rewrites one resume section for a job description.
package tailoring

import "github.com/jonathan/section-tailor/internal/types"

// State is a step of one tailoring session
type State string

const (
	StateRequested  State = "requested"
	StateGenerating State = "generating"
	StateValidating State = "validating"
	StateRetrying   State = "retrying"
	StateAccepted   State = "accepted"
)

// MaxAttempts bounds generation calls per session: one attempt plus one corrective retry.
const MaxAttempts = 2

// Transition is reported to the hook every time a session changes state.
type Transition struct {
	SessionID string
	Kind      types.SectionKind
	From      State
	To        State
	Attempt   int
}

// TransitionHook observes state changes. It runs synchronously on the session's goroutine.
type TransitionHook func(Transition)

var allowedTransitions = map[State][]State{
	"":              {StateRequested},
	StateRequested:  {StateGenerating},
	StateGenerating: {StateValidating},
	StateValidating: {StateRetrying, StateAccepted},
	StateRetrying:   {StateGenerating},
}

func canTransition(from, to State) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
