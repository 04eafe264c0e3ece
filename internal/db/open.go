package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/oatsaysai/voice-upi/internal/config"
	"github.com/oatsaysai/voice-upi/internal/models"
)

// SeedFromConfig converts the configured opening balance and contacts
func SeedFromConfig(cfg config.LedgerConfig) Seed {
	seed := Seed{OpeningBalance: cfg.OpeningBalance}
	for _, c := range cfg.SeedContacts {
		seed.Contacts = append(seed.Contacts, models.Contact{Name: c.Name, Mobile: c.Mobile, UPI: c.UPI})
	}
	return seed
}

// Open creates the store selected by cfg.Ledger.Backend
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Store, error) {
	seed := SeedFromConfig(cfg.Ledger)

	switch cfg.Ledger.Backend {
	case config.BackendMemory:
		log.Info().Msg("Using in-memory ledger")
		return NewMemoryStore(seed), nil
	case config.BackendFile:
		log.Info().Str("path", cfg.Ledger.FilePath).Msg("Using file ledger")
		return OpenFileStore(cfg.Ledger.FilePath, seed)
	case config.BackendPostgres:
		return OpenPostgresStore(ctx, cfg.PostgreSQL, seed, log)
	case config.BackendSQLite:
		return OpenSQLiteStore(ctx, cfg.Ledger.SQLitePath, seed, log)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}
