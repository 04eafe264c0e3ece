package voice

import (
	"fmt"

	"github.com/oatsaysai/voice-upi/internal/models"
)

// Phase is the position of a voice session in the transfer flow
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseParsed
	PhaseResolving
	PhaseAutoSelected
	PhaseAmbiguityPending
	PhaseNotFound
	PhaseConfirmationPending
	PhaseExecuted
	PhaseCancelled
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:                "idle",
	PhaseParsed:              "parsed",
	PhaseResolving:           "resolving",
	PhaseAutoSelected:        "auto_selected",
	PhaseAmbiguityPending:    "ambiguity_pending",
	PhaseNotFound:            "not_found",
	PhaseConfirmationPending: "confirmation_pending",
	PhaseExecuted:            "executed",
	PhaseCancelled:           "cancelled",
	PhaseFailed:              "failed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText renders the phase name in JSON responses
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Terminal reports whether the phase ends a flow. A controller that reaches a
// terminal phase reports it once and then rests at PhaseIdle.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseNotFound, PhaseExecuted, PhaseCancelled, PhaseFailed:
		return true
	}
	return false
}

// State is a snapshot of a voice session. Only the fields relevant to Phase are set.
type State struct {
	Phase       Phase                      `json:"phase"`
	Pending     *models.PendingTransaction `json:"pending,omitempty"`
	Candidates  []models.Candidate         `json:"candidates,omitempty"`
	Transaction *models.Transaction        `json:"transaction,omitempty"`
	Err         error                      `json:"-"`
}

// Options returns the candidates in display form
func (s State) Options() []models.CandidateOption {
	return models.CandidateOptions(s.Candidates)
}

func idleState() State {
	return State{Phase: PhaseIdle}
}

// parsed starts a flow from an intent. Any state may be left this way.
func parsed(intent models.Intent) State {
	return State{
		Phase: PhaseParsed,
		Pending: &models.PendingTransaction{
			Amount:           intent.Amount,
			RawRecipientName: intent.RawRecipientName,
		},
	}
}

func resolving(s State) (State, error) {
	if s.Phase != PhaseParsed {
		return s, invalidTransition(s.Phase, PhaseResolving)
	}
	s.Phase = PhaseResolving
	return s, nil
}

// resolved branches on the number of candidates
func resolved(s State, candidates []models.Candidate) (State, error) {
	if s.Phase != PhaseResolving {
		return s, invalidTransition(s.Phase, PhaseAmbiguityPending)
	}

	switch len(candidates) {
	case 0:
		return State{Phase: PhaseNotFound, Pending: s.Pending, Err: models.ErrContactNotFound}, nil
	case 1:
		pending := *s.Pending
		contact := candidates[0].Contact
		pending.SelectedContact = &contact
		return State{Phase: PhaseAutoSelected, Pending: &pending, Candidates: candidates}, nil
	default:
		return State{Phase: PhaseAmbiguityPending, Pending: s.Pending, Candidates: candidates}, nil
	}
}

// awaitConfirmation moves an auto-selected flow on to the confirmation prompt
func awaitConfirmation(s State) (State, error) {
	if s.Phase != PhaseAutoSelected {
		return s, invalidTransition(s.Phase, PhaseConfirmationPending)
	}
	s.Phase = PhaseConfirmationPending
	return s, nil
}

func selectCandidate(s State, index int) (State, error) {
	if s.Phase != PhaseAmbiguityPending {
		return s, invalidTransition(s.Phase, PhaseConfirmationPending)
	}
	if index < 0 || index >= len(s.Candidates) {
		return s, fmt.Errorf("%w: %d of %d", models.ErrInvalidSelection, index+1, len(s.Candidates))
	}

	pending := *s.Pending
	contact := s.Candidates[index].Contact
	pending.SelectedContact = &contact
	return State{Phase: PhaseConfirmationPending, Pending: &pending, Candidates: s.Candidates}, nil
}

// cancelled reports whether there was anything to cancel; Cancel at rest changes nothing
func cancelled(s State) (State, bool) {
	switch s.Phase {
	case PhaseAmbiguityPending, PhaseConfirmationPending:
		return State{Phase: PhaseCancelled, Pending: s.Pending}, true
	}
	return s, false
}

func confirmable(s State) error {
	if s.Phase != PhaseConfirmationPending || s.Pending == nil || s.Pending.SelectedContact == nil {
		return invalidTransition(s.Phase, PhaseExecuted)
	}
	return nil
}

func executed(s State, tx models.Transaction) State {
	return State{Phase: PhaseExecuted, Pending: s.Pending, Transaction: &tx}
}

func failed(s State, err error) State {
	return State{Phase: PhaseFailed, Pending: s.Pending, Err: err}
}

func invalidTransition(from, to Phase) error {
	return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, from, to)
}
