package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/oatsaysai/voice-upi/internal/config"
	"github.com/oatsaysai/voice-upi/internal/models"
)

// PostgreSQL error codes the store translates into domain errors
const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// PostgresStore is a Store backed by PostgreSQL
type PostgresStore struct {
	pool  *pgxpool.Pool
	log   zerolog.Logger
	now   Clock
	newID IDGenerator
}

// ConnString builds the pgx connection string from configuration
func ConnString(cfg config.PostgreSQLConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable search_path=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DBName,
		cfg.Schema,
	)
}

// Connect creates the PostgreSQL connection pool
func Connect(ctx context.Context, cfg config.PostgreSQLConfig) (*pgxpool.Pool, error) {
	connectConf, err := pgxpool.ParseConfig(ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("unable to parse PostgreSQL config: %w", err)
	}

	if cfg.PoolMaxConns > 0 {
		connectConf.MaxConns = int32(cfg.PoolMaxConns)
	}
	connectConf.HealthCheckPeriod = 15 * time.Second
	connectConf.ConnConfig.ConnectTimeout = 5 * time.Second

	// Set timezone to PGX runtime
	if s := os.Getenv("TZ"); s != "" {
		connectConf.ConnConfig.RuntimeParams["timezone"] = s
	}

	pool, err := pgxpool.NewWithConfig(ctx, connectConf)
	if err != nil {
		return nil, fmt.Errorf("unable to create PostgreSQL connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach PostgreSQL: %w", err)
	}
	return pool, nil
}

// NewPostgresStore wraps an open pool. Call Migrate and Seed before use.
func NewPostgresStore(pool *pgxpool.Pool, log zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:  pool,
		log:   log,
		now:   time.Now,
		newID: newTransactionID,
	}
}

// OpenPostgresStore connects, migrates and seeds
func OpenPostgresStore(ctx context.Context, cfg config.PostgreSQLConfig, seed Seed, log zerolog.Logger) (*PostgresStore, error) {
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
	}
	log.Info().Str("host", cfg.Host).Str("database", cfg.DBName).Msg("Connected to PostgreSQL successfully")

	store := NewPostgresStore(pool, log)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := store.Seed(ctx, seed); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// Migrate sets up the database schema
func (s *PostgresStore) Migrate(ctx context.Context) error {
	s.log.Info().Msg("Starting database migration...")

	// Single-row account; the CHECK keeps the balance non-negative even for raw SQL
	accountSchema := `
    CREATE TABLE IF NOT EXISTS ledger_accounts (
        id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
        balance BIGINT NOT NULL CONSTRAINT ledger_accounts_balance_check CHECK (balance >= 0),
        created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
        updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
    );`
	if _, err := s.pool.Exec(ctx, accountSchema); err != nil {
		return fmt.Errorf("%w: failed to migrate ledger_accounts table: %w", models.ErrStoreUnavailable, err)
	}

	contactsSchema := `
    CREATE TABLE IF NOT EXISTS contacts (
        id SERIAL PRIMARY KEY,
        name TEXT NOT NULL,
        mobile VARCHAR(20) NOT NULL DEFAULT '',
        upi TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
    );
    CREATE UNIQUE INDEX IF NOT EXISTS idx_contacts_name_lower ON contacts(LOWER(name));`
	if _, err := s.pool.Exec(ctx, contactsSchema); err != nil {
		return fmt.Errorf("%w: failed to migrate contacts table: %w", models.ErrStoreUnavailable, err)
	}

	transactionsSchema := `
    CREATE TABLE IF NOT EXISTS transactions (
        id UUID PRIMARY KEY,
        sender TEXT NOT NULL,
        receiver TEXT NOT NULL,
        amount BIGINT NOT NULL CONSTRAINT transactions_amount_check CHECK (amount > 0),
        balance_after BIGINT NOT NULL DEFAULT 0,
        created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
    );
    ALTER TABLE transactions ADD COLUMN IF NOT EXISTS balance_after BIGINT NOT NULL DEFAULT 0;
    CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at DESC);`
	if _, err := s.pool.Exec(ctx, transactionsSchema); err != nil {
		return fmt.Errorf("%w: failed to migrate transactions table: %w", models.ErrStoreUnavailable, err)
	}

	usersSchema := `
    CREATE TABLE IF NOT EXISTS users (
        upi TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        mobile VARCHAR(20) NOT NULL,
        is_verified BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
        last_login TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
    );`
	if _, err := s.pool.Exec(ctx, usersSchema); err != nil {
		return fmt.Errorf("%w: failed to migrate users table: %w", models.ErrStoreUnavailable, err)
	}

	s.log.Info().Msg("Database migration completed successfully")
	return nil
}

// Seed creates the account with seed's balance and contacts, once
func (s *PostgresStore) Seed(ctx context.Context, seed Seed) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin database transaction: %w", models.ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx) // Ensure rollback if not committed

	tag, err := tx.Exec(ctx,
		`INSERT INTO ledger_accounts (id, balance) VALUES (1, $1) ON CONFLICT (id) DO NOTHING`,
		seed.OpeningBalance,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to create ledger account: %w", models.ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	for _, c := range seed.Contacts {
		c = normalizeContact(c)
		_, err := tx.Exec(ctx,
			`INSERT INTO contacts (name, mobile, upi) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			c.Name, c.Mobile, c.UPI,
		)
		if err != nil {
			return fmt.Errorf("%w: failed to seed contact %s: %w", models.ErrStoreUnavailable, c.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit seed: %w", models.ErrStoreUnavailable, err)
	}
	s.log.Info().Int64("balance", seed.OpeningBalance).Int("contacts", len(seed.Contacts)).Msg("Seeded new ledger")
	return nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// storeError maps driver errors to domain errors
func storeError(err error, action string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", models.ErrDuplicateContact, pgErr.Detail)
		case pgCheckViolation:
			return checkViolationError(pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%w: failed to %s: %w", models.ErrStoreUnavailable, action, err)
}
