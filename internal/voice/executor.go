package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/oatsaysai/voice-upi/internal/models"
)

// Ledger is the part of the store the voice pipeline needs.
// DebitAndRecord must check the balance and append the transaction as one atomic step.
type Ledger interface {
	GetBalance(ctx context.Context) (int64, error)
	GetContacts(ctx context.Context) ([]models.Contact, error)
	DebitAndRecord(ctx context.Context, amount int64, receiverName string) (models.Transaction, error)
}

// Executor performs confirmed transfers against a Ledger
type Executor struct {
	ledger Ledger
	log    zerolog.Logger
}

// NewExecutor creates a new transaction executor
func NewExecutor(ledger Ledger, log zerolog.Logger) *Executor {
	return &Executor{ledger: ledger, log: log}
}

// Execute debits amount and records a transfer to contact.
// The pre-checks give early, specific errors; the store repeats them inside its
// critical section, so a race between check and debit still cannot overdraw.
func (e *Executor) Execute(ctx context.Context, contact models.Contact, amount int64) (models.Transaction, error) {
	if amount <= 0 {
		return models.Transaction{}, fmt.Errorf("%w: %d", models.ErrInvalidAmount, amount)
	}

	contacts, err := e.ledger.GetContacts(ctx)
	if err != nil {
		return models.Transaction{}, classifyStoreError(err)
	}
	if !containsContact(contacts, contact.Name) {
		return models.Transaction{}, fmt.Errorf("%w: %s", models.ErrRecipientRemoved, contact.Name)
	}

	balance, err := e.ledger.GetBalance(ctx)
	if err != nil {
		return models.Transaction{}, classifyStoreError(err)
	}
	if balance < amount {
		return models.Transaction{}, fmt.Errorf("%w: balance %d, requested %d", models.ErrInsufficientBalance, balance, amount)
	}

	tx, err := e.ledger.DebitAndRecord(ctx, amount, contact.Name)
	if err != nil {
		err = classifyStoreError(err)
		e.log.Warn().Err(err).Str("receiver", contact.Name).Int64("amount", amount).Msg("Transfer rejected by ledger")
		return models.Transaction{}, err
	}

	e.log.Info().
		Str("transaction_id", tx.ID).
		Str("receiver", tx.Receiver).
		Int64("amount", tx.Amount).
		Msg("Transfer executed")
	return tx, nil
}

// classifyStoreError keeps domain errors and folds everything else into ErrStoreUnavailable
func classifyStoreError(err error) error {
	switch {
	case errors.Is(err, models.ErrContactNotFound):
		return fmt.Errorf("%w: %w", models.ErrRecipientRemoved, err)
	case errors.Is(err, models.ErrInsufficientBalance),
		errors.Is(err, models.ErrRecipientRemoved),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
	}
}

func containsContact(contacts []models.Contact, name string) bool {
	for _, c := range contacts {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}
