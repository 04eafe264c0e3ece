package db

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oatsaysai/voice-upi/internal/models"
)

// ledgerState is everything a MemoryStore holds. Its JSON form is the FileStore format.
type ledgerState struct {
	Balance      int64                `json:"balance"`
	Contacts     []models.Contact     `json:"contacts"`
	Transactions []models.Transaction `json:"transactions"`
	Users        []models.User        `json:"users"`
}

func (s ledgerState) clone() ledgerState {
	return ledgerState{
		Balance:      s.Balance,
		Contacts:     cloneSlice(s.Contacts),
		Transactions: cloneSlice(s.Transactions),
		Users:        cloneSlice(s.Users),
	}
}

func cloneSlice[T any](in []T) []T {
	return append(make([]T, 0, len(in)), in...)
}

func seededState(seed Seed) ledgerState {
	state := ledgerState{
		Balance:      seed.OpeningBalance,
		Contacts:     []models.Contact{},
		Transactions: []models.Transaction{},
		Users:        []models.User{},
	}
	for _, c := range seed.Contacts {
		c = normalizeContact(c)
		if _, exists := findContact(state.Contacts, c.Name); !exists && c.Name != "" {
			state.Contacts = append(state.Contacts, c)
		}
	}
	return state
}

// backing is durable storage mirrored by a MemoryStore. lock guards it against
// other processes; load and save are only called while the lock is held.
type backing interface {
	lock(exclusive bool) (unlock func(), err error)
	load() (ledgerState, error)
	save(ledgerState) error
}

// MemoryStore is an in-process Store. Every mutation runs under one lock, builds
// the next state on a copy and only publishes it once the backing (if any) has saved it.
// With a backing, every call reloads the state under the backing's lock first.
type MemoryStore struct {
	mu      sync.RWMutex
	state   ledgerState
	backing backing
	now     Clock
	newID   IDGenerator
}

// Option configures a MemoryStore or FileStore
type Option func(*MemoryStore)

// WithClock overrides the transaction timestamp source
func WithClock(clock Clock) Option {
	return func(s *MemoryStore) { s.now = clock }
}

// WithIDGenerator overrides transaction id generation
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *MemoryStore) { s.newID = gen }
}

// NewMemoryStore creates a store holding seed
func NewMemoryStore(seed Seed, opts ...Option) *MemoryStore {
	return newMemoryStore(seededState(seed), nil, opts...)
}

func newMemoryStore(state ledgerState, b backing, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		state:   state,
		backing: b,
		now:     time.Now,
		newID:   newTransactionID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetBalance returns the current balance
func (s *MemoryStore) GetBalance(ctx context.Context) (int64, error) {
	state, err := s.current()
	if err != nil {
		return 0, err
	}
	return state.Balance, nil
}

// GetContacts returns a copy of the directory
func (s *MemoryStore) GetContacts(ctx context.Context) ([]models.Contact, error) {
	state, err := s.current()
	if err != nil {
		return nil, err
	}
	return append([]models.Contact{}, state.Contacts...), nil
}

// GetTransactions returns all transactions, newest first
func (s *MemoryStore) GetTransactions(ctx context.Context) ([]models.Transaction, error) {
	state, err := s.current()
	if err != nil {
		return nil, err
	}
	return sortTransactionsDesc(state.Transactions), nil
}

// AddContact appends a contact; names are unique ignoring case
func (s *MemoryStore) AddContact(ctx context.Context, contact models.Contact) error {
	contact = normalizeContact(contact)
	if contact.Name == "" {
		return fmt.Errorf("contact name is required")
	}

	return s.mutate(func(state *ledgerState) error {
		if _, exists := findContact(state.Contacts, contact.Name); exists {
			return fmt.Errorf("%w: %s", models.ErrDuplicateContact, contact.Name)
		}
		state.Contacts = append(state.Contacts, contact)
		return nil
	})
}

// DeleteContact removes the contact named name, ignoring case
func (s *MemoryStore) DeleteContact(ctx context.Context, name string) error {
	return s.mutate(func(state *ledgerState) error {
		i, exists := findContact(state.Contacts, strings.TrimSpace(name))
		if !exists {
			return fmt.Errorf("%w: %s", models.ErrContactNotFound, name)
		}
		state.Contacts = append(state.Contacts[:i], state.Contacts[i+1:]...)
		return nil
	})
}

// DebitAndRecord debits amount and appends a transaction to receiverName in one critical section
func (s *MemoryStore) DebitAndRecord(ctx context.Context, amount int64, receiverName string) (models.Transaction, error) {
	var tx models.Transaction
	err := s.mutate(func(state *ledgerState) error {
		if amount <= 0 {
			return fmt.Errorf("%w: %d", models.ErrInvalidAmount, amount)
		}
		i, exists := findContact(state.Contacts, receiverName)
		if !exists {
			return fmt.Errorf("%w: %s", models.ErrContactNotFound, receiverName)
		}
		if state.Balance < amount {
			return fmt.Errorf("%w: balance %d, requested %d", models.ErrInsufficientBalance, state.Balance, amount)
		}

		state.Balance -= amount
		tx = models.Transaction{
			ID:           s.newID(),
			Sender:       models.SenderSelf,
			Receiver:     state.Contacts[i].Name,
			Amount:       amount,
			BalanceAfter: state.Balance,
			Timestamp:    s.now().UTC(),
		}
		state.Transactions = append(state.Transactions, tx)
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}

// UpsertUser records a login. Users are keyed by UPI handle.
func (s *MemoryStore) UpsertUser(ctx context.Context, user models.User) (models.User, error) {
	var saved models.User
	err := s.mutate(func(state *ledgerState) error {
		now := s.now().UTC()
		for i, u := range state.Users {
			if u.UPI == user.UPI {
				u.Name = user.Name
				u.Mobile = user.Mobile
				u.Verified = true
				u.LastLogin = now
				state.Users[i] = u
				saved = u
				return nil
			}
		}

		user.Verified = true
		user.CreatedAt = now
		user.LastLogin = now
		state.Users = append(state.Users, user)
		saved = user
		return nil
	})
	return saved, err
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

// current returns the latest state. Published states are never modified in
// place, so callers may read the returned slices without holding the lock.
func (s *MemoryStore) current() (ledgerState, error) {
	if s.backing == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.state, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.backing.lock(false)
	if err != nil {
		return ledgerState{}, fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
	}
	defer unlock()

	state, err := s.backing.load()
	if err != nil {
		return ledgerState{}, fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
	}
	s.state = state
	return state, nil
}

// mutate applies fn to a copy of the latest state and publishes it when fn and
// the backing save succeed. The backing stays exclusively locked from load to save.
func (s *MemoryStore) mutate(fn func(*ledgerState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backing != nil {
		unlock, err := s.backing.lock(true)
		if err != nil {
			return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
		}
		defer unlock()

		loaded, err := s.backing.load()
		if err != nil {
			return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
		}
		s.state = loaded
	}

	next := s.state.clone()
	if err := fn(&next); err != nil {
		return err
	}

	if s.backing != nil {
		if err := s.backing.save(next); err != nil {
			return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
		}
	}

	s.state = next
	return nil
}
