package voice

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/oatsaysai/voice-upi/internal/models"
)

// Controller drives one session through parse, resolve, disambiguate and confirm.
// Commands are serialised; Confirm holds the lock for the whole execution so a
// second Confirm cannot start a duplicate transfer.
type Controller struct {
	mu       sync.Mutex
	state    State
	ledger   Ledger
	resolver *Resolver
	executor *Executor
	log      zerolog.Logger
}

// NewController creates an idle controller
func NewController(ledger Ledger, resolver *Resolver, log zerolog.Logger) *Controller {
	if resolver == nil {
		resolver = NewResolver(Score, DefaultMatchThreshold)
	}
	return &Controller{
		state:    idleState(),
		ledger:   ledger,
		resolver: resolver,
		executor: NewExecutor(ledger, log),
		log:      log,
	}
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SubmitTranscript parses text and resolves its recipient, replacing any pending flow
func (c *Controller) SubmitTranscript(ctx context.Context, text string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.discardPending()

	intent, err := ParseTranscript(text)
	if err != nil {
		c.log.Info().Str("transcript", text).Msg("Transcript not understood")
		return c.finish(failed(c.state, err)), err
	}
	return c.submit(ctx, intent)
}

// SubmitIntent starts a flow from an already structured intent
func (c *Controller) SubmitIntent(ctx context.Context, intent models.Intent) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.discardPending()

	if intent.Amount <= 0 {
		return c.finish(failed(c.state, models.ErrInvalidAmount)), models.ErrInvalidAmount
	}
	return c.submit(ctx, intent)
}

func (c *Controller) submit(ctx context.Context, intent models.Intent) (State, error) {
	c.transition(parsed(intent))

	next, err := resolving(c.state)
	if err != nil {
		return c.state, err
	}
	c.transition(next)

	contacts, err := c.ledger.GetContacts(ctx)
	if err != nil {
		err = classifyStoreError(err)
		return c.finish(failed(c.state, err)), err
	}

	next, err = resolved(c.state, c.resolver.Resolve(contacts, intent.RawRecipientName))
	if err != nil {
		return c.state, err
	}

	switch next.Phase {
	case PhaseNotFound:
		return c.finish(next), next.Err
	case PhaseAutoSelected:
		c.transition(next)
		next, err = awaitConfirmation(next)
		if err != nil {
			return c.state, err
		}
	}

	c.transition(next)
	return c.state, nil
}

// SelectCandidate picks the candidate at index from an ambiguity prompt
func (c *Controller) SelectCandidate(index int) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := selectCandidate(c.state, index)
	if err != nil {
		return c.state, err
	}
	c.transition(next)
	return c.state, nil
}

// Confirm executes the pending transfer. Success or failure, the controller returns to idle.
func (c *Controller) Confirm(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := confirmable(c.state); err != nil {
		return c.state, err
	}

	pending := c.state.Pending
	tx, err := c.executor.Execute(ctx, *pending.SelectedContact, pending.Amount)
	if err != nil {
		return c.finish(failed(c.state, err)), err
	}
	return c.finish(executed(c.state, tx)), nil
}

// Cancel abandons a pending choice or confirmation without touching the ledger.
// Calling it with nothing pending is a no-op.
func (c *Controller) Cancel() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, ok := cancelled(c.state)
	if !ok {
		return c.state
	}
	return c.finish(next)
}

// Reset drops any pending flow without reporting an outcome
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discardPending()
}

func (c *Controller) discardPending() {
	if c.state.Phase != PhaseIdle {
		c.log.Debug().Stringer("phase", c.state.Phase).Msg("Discarding pending voice flow")
		c.state = idleState()
	}
}

func (c *Controller) transition(next State) {
	c.log.Debug().Stringer("from", c.state.Phase).Stringer("to", next.Phase).Msg("Voice state transition")
	c.state = next
}

// finish reports a terminal state and leaves the controller idle
func (c *Controller) finish(outcome State) State {
	c.transition(outcome)
	c.state = idleState()
	return outcome
}
