package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oatsaysai/voice-upi/internal/models"
)

// Store is the ledger and contact directory.
// DebitAndRecord is the only operation that changes the balance; it checks the
// amount, the receiver and the balance and appends the transaction atomically.
type Store interface {
	GetBalance(ctx context.Context) (int64, error)
	GetContacts(ctx context.Context) ([]models.Contact, error)
	GetTransactions(ctx context.Context) ([]models.Transaction, error)
	AddContact(ctx context.Context, contact models.Contact) error
	DeleteContact(ctx context.Context, name string) error
	DebitAndRecord(ctx context.Context, amount int64, receiverName string) (models.Transaction, error)
	UpsertUser(ctx context.Context, user models.User) (models.User, error)
	Close() error
}

// Seed is the initial content of a freshly created store
type Seed struct {
	OpeningBalance int64
	Contacts       []models.Contact
}

// DefaultSeed matches a brand-new demo account
func DefaultSeed() Seed {
	return Seed{
		OpeningBalance: 5000,
		Contacts: []models.Contact{
			{Name: "Ramesh", Mobile: "9999999999", UPI: "ramesh@upi"},
			{Name: "Sita", Mobile: "8888888888", UPI: "sita@upi"},
		},
	}
}

// Clock returns the current time; stores take one so tests control timestamps
type Clock func() time.Time

// IDGenerator returns a fresh transaction id
type IDGenerator func() string

func newTransactionID() string {
	return uuid.NewString()
}

// sortTransactionsDesc orders newest first; equal timestamps keep reverse insertion order
func sortTransactionsDesc(txs []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, len(txs))
	for i := range txs {
		out[len(txs)-1-i] = txs[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func findContact(contacts []models.Contact, name string) (int, bool) {
	for i, c := range contacts {
		if strings.EqualFold(c.Name, name) {
			return i, true
		}
	}
	return -1, false
}

func normalizeContact(c models.Contact) models.Contact {
	return models.Contact{
		Name:   strings.TrimSpace(c.Name),
		Mobile: strings.TrimSpace(c.Mobile),
		UPI:    strings.TrimSpace(c.UPI),
	}
}

// amountCheckConstraint names the CHECK on transactions.amount in both SQL schemas
const amountCheckConstraint = "transactions_amount_check"

// checkViolationError maps a violated CHECK constraint to its domain error.
// detail is the constraint name, or the driver message that contains it.
func checkViolationError(detail string) error {
	if strings.Contains(detail, amountCheckConstraint) || strings.Contains(detail, "amount > 0") {
		return fmt.Errorf("%w: %s", models.ErrInvalidAmount, detail)
	}
	return fmt.Errorf("%w: %s", models.ErrInsufficientBalance, detail)
}
