package voice

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oatsaysai/voice-upi/internal/models"
)

type fakeLedger struct {
	mu           sync.Mutex
	balance      int64
	contacts     []models.Contact
	transactions []models.Transaction
	calls        int
	contactsErr  error
	debitErr     error
}

func newFakeLedger(balance int64, contacts ...models.Contact) *fakeLedger {
	return &fakeLedger{balance: balance, contacts: contacts}
}

func (f *fakeLedger) GetBalance(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.balance, nil
}

func (f *fakeLedger) GetContacts(ctx context.Context) ([]models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.contactsErr != nil {
		return nil, f.contactsErr
	}
	return append([]models.Contact(nil), f.contacts...), nil
}

func (f *fakeLedger) DebitAndRecord(ctx context.Context, amount int64, receiverName string) (models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.debitErr != nil {
		return models.Transaction{}, f.debitErr
	}
	if amount <= 0 {
		return models.Transaction{}, models.ErrInvalidAmount
	}
	found := false
	for _, c := range f.contacts {
		if strings.EqualFold(c.Name, receiverName) {
			found = true
			break
		}
	}
	if !found {
		return models.Transaction{}, models.ErrContactNotFound
	}
	if f.balance < amount {
		return models.Transaction{}, models.ErrInsufficientBalance
	}

	f.balance -= amount
	tx := models.Transaction{
		ID:        fmt.Sprintf("tx-%d", len(f.transactions)+1),
		Sender:    models.SenderSelf,
		Receiver:  receiverName,
		Amount:    amount,
		Timestamp: time.Now(),
	}
	f.transactions = append(f.transactions, tx)
	return tx, nil
}

func (f *fakeLedger) removeContact(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.contacts[:0]
	for _, c := range f.contacts {
		if !strings.EqualFold(c.Name, name) {
			kept = append(kept, c)
		}
	}
	f.contacts = kept
}

func (f *fakeLedger) snapshot() (int64, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, len(f.transactions), f.calls
}

var (
	ramesh = models.Contact{Name: "Ramesh", Mobile: "9999999999", UPI: "ramesh@upi"}
	sita   = models.Contact{Name: "Sita", Mobile: "8888888888", UPI: "sita@upi"}
	ram    = models.Contact{Name: "Ram", Mobile: "7777777777", UPI: "ram@upi"}
)
