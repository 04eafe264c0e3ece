package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oatsaysai/voice-upi/internal/models"
)

// GetBalance returns the account balance
func (s *PostgresStore) GetBalance(ctx context.Context) (int64, error) {
	var balance int64
	err := s.pool.QueryRow(ctx, `SELECT balance FROM ledger_accounts WHERE id = 1`).Scan(&balance)
	if err != nil {
		return 0, storeError(err, "read balance")
	}
	return balance, nil
}

// GetContacts returns the directory in insertion order
func (s *PostgresStore) GetContacts(ctx context.Context) ([]models.Contact, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, mobile, upi FROM contacts ORDER BY id`)
	if err != nil {
		return nil, storeError(err, "query contacts")
	}
	defer rows.Close()

	contacts := []models.Contact{}
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.Name, &c.Mobile, &c.UPI); err != nil {
			return nil, storeError(err, "scan contact")
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "iterate contacts")
	}
	return contacts, nil
}

// GetTransactions returns all transactions, newest first
func (s *PostgresStore) GetTransactions(ctx context.Context) ([]models.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, sender, receiver, amount, balance_after, created_at FROM transactions ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, storeError(err, "query transactions")
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.Sender, &t.Receiver, &t.Amount, &t.BalanceAfter, &t.Timestamp); err != nil {
			return nil, storeError(err, "scan transaction")
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "iterate transactions")
	}
	return txs, nil
}

// AddContact inserts a contact; the unique index on LOWER(name) rejects duplicates
func (s *PostgresStore) AddContact(ctx context.Context, contact models.Contact) error {
	contact = normalizeContact(contact)
	if contact.Name == "" {
		return fmt.Errorf("contact name is required")
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO contacts (name, mobile, upi) VALUES ($1, $2, $3)`,
		contact.Name, contact.Mobile, contact.UPI,
	)
	if err != nil {
		return storeError(err, "insert contact")
	}
	return nil
}

// DeleteContact removes a contact by name, ignoring case
func (s *PostgresStore) DeleteContact(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM contacts WHERE LOWER(name) = LOWER($1)`, strings.TrimSpace(name))
	if err != nil {
		return storeError(err, "delete contact")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", models.ErrContactNotFound, name)
	}
	return nil
}

// DebitAndRecord locks the account row, re-checks receiver and balance, then
// debits and appends the transaction in the same database transaction
func (s *PostgresStore) DebitAndRecord(ctx context.Context, amount int64, receiverName string) (models.Transaction, error) {
	if amount <= 0 {
		return models.Transaction{}, fmt.Errorf("%w: %d", models.ErrInvalidAmount, amount)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Transaction{}, storeError(err, "begin database transaction")
	}
	defer tx.Rollback(ctx) // Ensure rollback if not committed

	var balance int64
	err = tx.QueryRow(ctx, `SELECT balance FROM ledger_accounts WHERE id = 1 FOR UPDATE`).Scan(&balance)
	if err != nil {
		return models.Transaction{}, storeError(err, "lock ledger account")
	}

	var receiver string
	err = tx.QueryRow(ctx,
		`SELECT name FROM contacts WHERE LOWER(name) = LOWER($1)`, receiverName,
	).Scan(&receiver)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Transaction{}, fmt.Errorf("%w: %s", models.ErrContactNotFound, receiverName)
		}
		return models.Transaction{}, storeError(err, "look up receiver")
	}

	if balance < amount {
		return models.Transaction{}, fmt.Errorf("%w: balance %d, requested %d", models.ErrInsufficientBalance, balance, amount)
	}

	var balanceAfter int64
	err = tx.QueryRow(ctx,
		`UPDATE ledger_accounts SET balance = balance - $1, updated_at = CURRENT_TIMESTAMP WHERE id = 1 RETURNING balance`,
		amount,
	).Scan(&balanceAfter)
	if err != nil {
		return models.Transaction{}, storeError(err, "debit balance")
	}

	record := models.Transaction{
		ID:           s.newID(),
		Sender:       models.SenderSelf,
		Receiver:     receiver,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Timestamp:    s.now().UTC().Truncate(time.Microsecond),
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO transactions (id, sender, receiver, amount, balance_after, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, record.Sender, record.Receiver, record.Amount, record.BalanceAfter, record.Timestamp,
	)
	if err != nil {
		return models.Transaction{}, storeError(err, "record transaction")
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Transaction{}, storeError(err, "commit transfer")
	}

	s.log.Info().Str("transaction_id", record.ID).Str("receiver", receiver).Int64("amount", amount).Msg("Ledger debited")
	return record, nil
}

// UpsertUser records a login keyed by UPI handle
func (s *PostgresStore) UpsertUser(ctx context.Context, user models.User) (models.User, error) {
	query := `
        INSERT INTO users (upi, name, mobile, is_verified, created_at, last_login)
        VALUES ($1, $2, $3, TRUE, $4, $4)
        ON CONFLICT (upi)
        DO UPDATE SET name = EXCLUDED.name, mobile = EXCLUDED.mobile, is_verified = TRUE, last_login = EXCLUDED.last_login
        RETURNING name, mobile, upi, is_verified, created_at, last_login;`

	var saved models.User
	err := s.pool.QueryRow(ctx, query, user.UPI, user.Name, user.Mobile, s.now().UTC()).Scan(
		&saved.Name, &saved.Mobile, &saved.UPI, &saved.Verified, &saved.CreatedAt, &saved.LastLogin,
	)
	if err != nil {
		return models.User{}, storeError(err, "upsert user")
	}
	return saved, nil
}
