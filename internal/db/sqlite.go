package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/oatsaysai/voice-upi/internal/models"
)

// SQLiteStore is a Store backed by a single SQLite file
type SQLiteStore struct {
	db    *sql.DB
	path  string
	log   zerolog.Logger
	now   Clock
	newID IDGenerator
}

// OpenSQLiteStore opens (creating if needed) the database at path, migrates and seeds it
func OpenSQLiteStore(ctx context.Context, path string, seed Seed, log zerolog.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
		}
	}

	// _txlock=immediate takes the write lock at BEGIN, so the balance read in
	// DebitAndRecord cannot go stale before the update
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{
		db:    db,
		path:  path,
		log:   log,
		now:   time.Now,
		newID: newTransactionID,
	}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := store.seed(ctx, seed); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("path", path).Msg("Opened SQLite ledger")
	return store, nil
}

// Path returns the database file
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS ledger_accounts (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			balance INTEGER NOT NULL CONSTRAINT ledger_accounts_balance_check CHECK (balance >= 0),
			updated_at DATETIME
		);

		CREATE TABLE IF NOT EXISTS contacts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			mobile TEXT NOT NULL DEFAULT '',
			upi TEXT NOT NULL DEFAULT ''
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_contacts_name_nocase ON contacts(name COLLATE NOCASE);

		CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			sender TEXT NOT NULL,
			receiver TEXT NOT NULL,
			amount INTEGER NOT NULL CONSTRAINT transactions_amount_check CHECK (amount > 0),
			balance_after INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at DESC);

		CREATE TABLE IF NOT EXISTS users (
			upi TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			mobile TEXT NOT NULL,
			is_verified INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			last_login DATETIME NOT NULL
		);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: failed to migrate sqlite schema: %w", models.ErrStoreUnavailable, err)
	}
	return nil
}

// seed creates the account and contacts the first time the file is opened
func (s *SQLiteStore) seed(ctx context.Context, seed Seed) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sqliteError(err, "begin seed")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO ledger_accounts (id, balance, updated_at) VALUES (1, ?, ?)`,
		seed.OpeningBalance, s.now().UTC(),
	)
	if err != nil {
		return sqliteError(err, "create ledger account")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	for _, c := range seed.Contacts {
		c = normalizeContact(c)
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO contacts (name, mobile, upi) VALUES (?, ?, ?)`, c.Name, c.Mobile, c.UPI)
		if err != nil {
			return sqliteError(err, "seed contact "+c.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return sqliteError(err, "commit seed")
	}
	s.log.Info().Int64("balance", seed.OpeningBalance).Int("contacts", len(seed.Contacts)).Msg("Seeded new ledger")
	return nil
}

func (s *SQLiteStore) GetBalance(ctx context.Context) (int64, error) {
	var balance int64
	if err := s.db.QueryRowContext(ctx, `SELECT balance FROM ledger_accounts WHERE id = 1`).Scan(&balance); err != nil {
		return 0, sqliteError(err, "read balance")
	}
	return balance, nil
}

func (s *SQLiteStore) GetContacts(ctx context.Context) ([]models.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, mobile, upi FROM contacts ORDER BY id`)
	if err != nil {
		return nil, sqliteError(err, "query contacts")
	}
	defer rows.Close()

	contacts := []models.Contact{}
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.Name, &c.Mobile, &c.UPI); err != nil {
			return nil, sqliteError(err, "scan contact")
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, sqliteError(err, "iterate contacts")
	}
	return contacts, nil
}

// GetTransactions returns all transactions, newest first; ties keep the latest insert first
func (s *SQLiteStore) GetTransactions(ctx context.Context) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sender, receiver, amount, balance_after, created_at FROM transactions ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, sqliteError(err, "query transactions")
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.Sender, &t.Receiver, &t.Amount, &t.BalanceAfter, &t.Timestamp); err != nil {
			return nil, sqliteError(err, "scan transaction")
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, sqliteError(err, "iterate transactions")
	}
	return txs, nil
}

func (s *SQLiteStore) AddContact(ctx context.Context, contact models.Contact) error {
	contact = normalizeContact(contact)
	if contact.Name == "" {
		return fmt.Errorf("contact name is required")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (name, mobile, upi) VALUES (?, ?, ?)`, contact.Name, contact.Mobile, contact.UPI)
	if err != nil {
		return sqliteError(err, "insert contact")
	}
	return nil
}

func (s *SQLiteStore) DeleteContact(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE name = ? COLLATE NOCASE`, strings.TrimSpace(name))
	if err != nil {
		return sqliteError(err, "delete contact")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", models.ErrContactNotFound, name)
	}
	return nil
}

// DebitAndRecord re-checks receiver and balance inside an immediate
// transaction, then debits and appends the record before committing
func (s *SQLiteStore) DebitAndRecord(ctx context.Context, amount int64, receiverName string) (models.Transaction, error) {
	if amount <= 0 {
		return models.Transaction{}, fmt.Errorf("%w: %d", models.ErrInvalidAmount, amount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Transaction{}, sqliteError(err, "begin database transaction")
	}
	defer tx.Rollback()

	var balance int64
	if err := tx.QueryRowContext(ctx, `SELECT balance FROM ledger_accounts WHERE id = 1`).Scan(&balance); err != nil {
		return models.Transaction{}, sqliteError(err, "read balance")
	}

	var receiver string
	err = tx.QueryRowContext(ctx,
		`SELECT name FROM contacts WHERE name = ? COLLATE NOCASE`, strings.TrimSpace(receiverName),
	).Scan(&receiver)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Transaction{}, fmt.Errorf("%w: %s", models.ErrContactNotFound, receiverName)
		}
		return models.Transaction{}, sqliteError(err, "look up receiver")
	}

	if balance < amount {
		return models.Transaction{}, fmt.Errorf("%w: balance %d, requested %d", models.ErrInsufficientBalance, balance, amount)
	}

	now := s.now().UTC()
	var balanceAfter int64
	err = tx.QueryRowContext(ctx,
		`UPDATE ledger_accounts SET balance = balance - ?, updated_at = ? WHERE id = 1 RETURNING balance`, amount, now,
	).Scan(&balanceAfter)
	if err != nil {
		return models.Transaction{}, sqliteError(err, "debit balance")
	}

	record := models.Transaction{
		ID:           s.newID(),
		Sender:       models.SenderSelf,
		Receiver:     receiver,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Timestamp:    now,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (id, sender, receiver, amount, balance_after, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, record.Sender, record.Receiver, record.Amount, record.BalanceAfter, record.Timestamp,
	); err != nil {
		return models.Transaction{}, sqliteError(err, "record transaction")
	}

	if err := tx.Commit(); err != nil {
		return models.Transaction{}, sqliteError(err, "commit transfer")
	}

	s.log.Info().Str("transaction_id", record.ID).Str("receiver", receiver).Int64("amount", amount).Msg("Ledger debited")
	return record, nil
}

// UpsertUser records a login keyed by UPI handle
func (s *SQLiteStore) UpsertUser(ctx context.Context, user models.User) (models.User, error) {
	query := `
		INSERT INTO users (upi, name, mobile, is_verified, created_at, last_login)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT (upi)
		DO UPDATE SET name = excluded.name, mobile = excluded.mobile, is_verified = 1, last_login = excluded.last_login
		RETURNING name, mobile, upi, is_verified, created_at, last_login`

	now := s.now().UTC()
	var saved models.User
	err := s.db.QueryRowContext(ctx, query, user.UPI, user.Name, user.Mobile, now, now).Scan(
		&saved.Name, &saved.Mobile, &saved.UPI, &saved.Verified, &saved.CreatedAt, &saved.LastLogin,
	)
	if err != nil {
		return models.User{}, sqliteError(err, "upsert user")
	}
	return saved, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// sqliteError maps constraint failures to domain errors
func sqliteError(err error, action string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %s", models.ErrDuplicateContact, sqliteErr.Error())
		case sqlite3.ErrConstraintCheck:
			return checkViolationError(sqliteErr.Error())
		}
	}
	return fmt.Errorf("%w: failed to %s: %w", models.ErrStoreUnavailable, action, err)
}
