package db

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oatsaysai/voice-upi/internal/models"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func sequentialIDs() IDGenerator {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("tx-%d", n)
	}
}

// stubBacking is an in-memory backing whose save can be made to fail
type stubBacking struct {
	state   ledgerState
	saveErr error
	locks   []bool
}

func (b *stubBacking) lock(exclusive bool) (func(), error) {
	b.locks = append(b.locks, exclusive)
	return func() {}, nil
}

func (b *stubBacking) load() (ledgerState, error) { return b.state, nil }

func (b *stubBacking) save(state ledgerState) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	b.state = state
	return nil
}

func newTestMemoryStore() *MemoryStore {
	clock := &fixedClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	return NewMemoryStore(DefaultSeed(), WithClock(clock.Now), WithIDGenerator(sequentialIDs()))
}

func TestMemoryStore_Seed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(DefaultSeed())

	balance, err := s.GetBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), balance)

	contacts, err := s.GetContacts(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "Ramesh", contacts[0].Name)
	assert.Equal(t, "sita@upi", contacts[1].UPI)

	txs, err := s.GetTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestMemoryStore_DebitAndRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore()

	tx, err := s.DebitAndRecord(ctx, 500, "ramesh")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", tx.ID)
	assert.Equal(t, "Ramesh", tx.Receiver)
	assert.Equal(t, models.SenderSelf, tx.Sender)
	assert.Equal(t, int64(500), tx.Amount)
	assert.Equal(t, int64(4500), tx.BalanceAfter)

	balance, _ := s.GetBalance(ctx)
	assert.Equal(t, int64(4500), balance)

	_, err = s.DebitAndRecord(ctx, 200, "Sita")
	require.NoError(t, err)

	txs, err := s.GetTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "Sita", txs[0].Receiver)
	assert.Equal(t, "Ramesh", txs[1].Receiver)
}

func TestMemoryStore_DebitRejections(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		receiver string
		wantErr  error
	}{
		{"insufficient", 5001, "Ramesh", models.ErrInsufficientBalance},
		{"unknown receiver", 10, "Nobody", models.ErrContactNotFound},
		{"zero", 0, "Ramesh", models.ErrInvalidAmount},
		{"negative", -1, "Ramesh", models.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := newTestMemoryStore()

			_, err := s.DebitAndRecord(ctx, tt.amount, tt.receiver)
			assert.ErrorIs(t, err, tt.wantErr)

			balance, _ := s.GetBalance(ctx)
			assert.Equal(t, int64(5000), balance)
			txs, _ := s.GetTransactions(ctx)
			assert.Empty(t, txs)
		})
	}
}

func TestMemoryStore_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(Seed{OpeningBalance: 1000, Contacts: DefaultSeed().Contacts})

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.DebitAndRecord(ctx, 70, "Sita")
		}()
	}
	wg.Wait()

	balance, _ := s.GetBalance(ctx)
	txs, _ := s.GetTransactions(ctx)
	assert.GreaterOrEqual(t, balance, int64(0))
	assert.Len(t, txs, 14)
	assert.Equal(t, int64(1000-14*70), balance)
}

func TestMemoryStore_Contacts(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore()

	require.NoError(t, s.AddContact(ctx, models.Contact{Name: " Ram ", Mobile: "7777777777", UPI: "ram@upi"}))
	err := s.AddContact(ctx, models.Contact{Name: "RAMESH"})
	assert.ErrorIs(t, err, models.ErrDuplicateContact)
	assert.Error(t, s.AddContact(ctx, models.Contact{Name: "  "}))

	contacts, _ := s.GetContacts(ctx)
	require.Len(t, contacts, 3)
	assert.Equal(t, "Ram", contacts[2].Name)

	require.NoError(t, s.DeleteContact(ctx, "sita"))
	assert.ErrorIs(t, s.DeleteContact(ctx, "sita"), models.ErrContactNotFound)

	contacts, _ = s.GetContacts(ctx)
	assert.Len(t, contacts, 2)

	// Mutating the returned slice must not leak into the store
	contacts[0].Name = "Changed"
	again, _ := s.GetContacts(ctx)
	assert.Equal(t, "Ramesh", again[0].Name)
}

func TestMemoryStore_UpsertUser(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore()

	first, err := s.UpsertUser(ctx, models.User{Name: "Asha", Mobile: "9123456789", UPI: "asha@okbank"})
	require.NoError(t, err)
	assert.True(t, first.Verified)
	assert.Equal(t, first.CreatedAt, first.LastLogin)

	second, err := s.UpsertUser(ctx, models.User{Name: "Asha K", Mobile: "9123456780", UPI: "asha@okbank"})
	require.NoError(t, err)
	assert.Equal(t, "Asha K", second.Name)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.LastLogin.After(first.LastLogin))
}

func TestMemoryStore_FailedPersistKeepsState(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(seededState(DefaultSeed()), &stubBacking{
		state:   seededState(DefaultSeed()),
		saveErr: fmt.Errorf("disk full"),
	})

	_, err := s.DebitAndRecord(ctx, 100, "Ramesh")
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	balance, _ := s.GetBalance(ctx)
	assert.Equal(t, int64(5000), balance)
	txs, _ := s.GetTransactions(ctx)
	assert.Empty(t, txs)
}

func TestMemoryStore_BackingLocking(t *testing.T) {
	ctx := context.Background()
	b := &stubBacking{state: seededState(DefaultSeed())}
	s := newMemoryStore(ledgerState{}, b)

	// the store reads through to the backing, not its construction-time copy
	balance, err := s.GetBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), balance)

	_, err = s.DebitAndRecord(ctx, 100, "Sita")
	require.NoError(t, err)
	assert.Equal(t, int64(4900), b.state.Balance)

	assert.Equal(t, []bool{false, true}, b.locks)
}

func TestSortTransactionsDesc(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		{ID: "a", Timestamp: base},
		{ID: "b", Timestamp: base.Add(time.Hour)},
		{ID: "c", Timestamp: base.Add(time.Hour)},
		{ID: "d", Timestamp: base.Add(-time.Hour)},
	}

	sorted := sortTransactionsDesc(txs)
	ids := make([]string, 0, len(sorted))
	for _, tx := range sorted {
		ids = append(ids, tx.ID)
	}
	assert.Equal(t, []string{"c", "b", "a", "d"}, ids)
	assert.Equal(t, "a", txs[0].ID)
}

func TestAddContacts(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore()

	result, err := AddContacts(ctx, s, []models.Contact{
		{Name: "Ram", Mobile: "7777777777", UPI: "ram@upi"},
		{Name: "sita", Mobile: "8888888888", UPI: "sita@upi"},
	})
	require.NoError(t, err)
	require.Len(t, result.Added, 1)
	assert.Equal(t, "Ram", result.Added[0].Name)
	assert.Equal(t, []string{"sita"}, result.Skipped)
}

func TestLookupContact(t *testing.T) {
	ctx := context.Background()
	s := newTestMemoryStore()

	c, err := LookupContact(ctx, s, " sita ")
	require.NoError(t, err)
	assert.Equal(t, "Sita", c.Name)

	_, err = LookupContact(ctx, s, "Ghost")
	assert.ErrorIs(t, err, models.ErrContactNotFound)
}
