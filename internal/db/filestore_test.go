package db

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oatsaysai/voice-upi/internal/models"
)

func TestFileStore_CreatesSeededFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "db.json")

	s, err := OpenFileStore(path, DefaultSeed())
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var onDisk map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.JSONEq(t, `5000`, string(onDisk["balance"]))
	assert.JSONEq(t, `[]`, string(onDisk["transactions"]))
	assert.Contains(t, string(onDisk["contacts"]), `"ramesh@upi"`)
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.json")

	s, err := OpenFileStore(path, DefaultSeed())
	require.NoError(t, err)

	tx, err := s.DebitAndRecord(ctx, 1200, "Sita")
	require.NoError(t, err)
	require.NoError(t, s.AddContact(ctx, models.Contact{Name: "Ram", Mobile: "7777777777", UPI: "ram@upi"}))
	require.NoError(t, s.Close())

	reopened, err := OpenFileStore(path, Seed{OpeningBalance: 1})
	require.NoError(t, err)

	balance, _ := reopened.GetBalance(ctx)
	assert.Equal(t, int64(3800), balance)

	txs, _ := reopened.GetTransactions(ctx)
	require.Len(t, txs, 1)
	assert.Equal(t, tx.ID, txs[0].ID)
	assert.True(t, tx.Timestamp.Equal(txs[0].Timestamp))

	contacts, _ := reopened.GetContacts(ctx)
	assert.Len(t, contacts, 3)
}

func TestFileStore_RejectedDebitLeavesFileUnchanged(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.json")

	s, err := OpenFileStore(path, DefaultSeed())
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = s.DebitAndRecord(ctx, 9000, "Ramesh")
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)
	_, err = s.DebitAndRecord(ctx, 10, "Ghost")
	assert.ErrorIs(t, err, models.ErrContactNotFound)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"db.json", "db.json.lock"}, names, "no temp files left behind")
}

func TestFileStore_SharedFileNeverOverdraws(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.json")

	a, err := OpenFileStore(path, DefaultSeed())
	require.NoError(t, err)
	defer a.Close()
	b, err := OpenFileStore(path, DefaultSeed())
	require.NoError(t, err)
	defer b.Close()

	first, err := a.DebitAndRecord(ctx, 4000, "Ramesh")
	require.NoError(t, err)
	_, err = b.DebitAndRecord(ctx, 4000, "Sita")
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)

	for _, s := range []*FileStore{a, b} {
		balance, err := s.GetBalance(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), balance)

		txs, err := s.GetTransactions(ctx)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, first.ID, txs[0].ID)
	}

	// contacts added through one handle are visible through the other
	require.NoError(t, b.AddContact(ctx, models.Contact{Name: "Ram", Mobile: "7777777777", UPI: "ram@upi"}))
	contacts, err := a.GetContacts(ctx)
	require.NoError(t, err)
	assert.Len(t, contacts, 3)
	assert.ErrorIs(t, a.AddContact(ctx, models.Contact{Name: "ram"}), models.ErrDuplicateContact)
}

func TestFileStore_ConcurrentDebitsAcrossHandles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.json")

	stores := make([]*FileStore, 2)
	for i := range stores {
		s, err := OpenFileStore(path, DefaultSeed())
		require.NoError(t, err)
		defer s.Close()
		stores[i] = s
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(s *FileStore) {
			defer wg.Done()
			_, _ = s.DebitAndRecord(ctx, 400, "Sita")
		}(stores[i%2])
	}
	wg.Wait()

	balance, err := stores[0].GetBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), balance)

	txs, err := stores[1].GetTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 12)
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0o600))
	_, err := OpenFileStore(garbage, DefaultSeed())
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	negative := filepath.Join(dir, "negative.json")
	require.NoError(t, os.WriteFile(negative, []byte(`{"balance": -5}`), 0o600))
	_, err = OpenFileStore(negative, DefaultSeed())
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}

func TestFileStore_ReadsLegacyFileWithoutUsers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	legacy := `{"balance": 250, "contacts": [{"name": "Ramesh", "mobile": "9999999999", "upi": "ramesh@upi"}], "transactions": []}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	s, err := OpenFileStore(path, DefaultSeed())
	require.NoError(t, err)

	_, err = s.UpsertUser(context.Background(), models.User{Name: "Asha", Mobile: "9123456789", UPI: "asha@upi"})
	require.NoError(t, err)

	balance, _ := s.GetBalance(context.Background())
	assert.Equal(t, int64(250), balance)
}
