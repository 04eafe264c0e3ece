package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oatsaysai/voice-upi/internal/models"
)

// ImportResult summarises a bulk contact import
type ImportResult struct {
	Added   []models.Contact `json:"added"`
	Skipped []string         `json:"skipped"`
}

// AddContacts stores each contact, collecting duplicate names instead of failing.
// Any other error stops the import; contacts added before it stay.
func AddContacts(ctx context.Context, store Store, contacts []models.Contact) (ImportResult, error) {
	result := ImportResult{Added: []models.Contact{}, Skipped: []string{}}
	for _, c := range contacts {
		err := store.AddContact(ctx, c)
		switch {
		case err == nil:
			result.Added = append(result.Added, c)
		case errors.Is(err, models.ErrDuplicateContact):
			result.Skipped = append(result.Skipped, c.Name)
		default:
			return result, err
		}
	}
	return result, nil
}

// LookupContact finds a contact by name, ignoring case
func LookupContact(ctx context.Context, store Store, name string) (models.Contact, error) {
	contacts, err := store.GetContacts(ctx)
	if err != nil {
		return models.Contact{}, err
	}
	if i, ok := findContact(contacts, strings.TrimSpace(name)); ok {
		return contacts[i], nil
	}
	return models.Contact{}, fmt.Errorf("%w: %s", models.ErrContactNotFound, name)
}
