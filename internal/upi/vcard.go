package upi

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/emersion/go-vcard"
	"github.com/rs/zerolog"

	"github.com/oatsaysai/voice-upi/internal/models"
)

// FieldUPI is the vCard extension carrying a UPI handle
const FieldUPI = "X-UPI"

// ImportVCards reads contacts from a .vcf stream. Cards without a name or a
// usable mobile number are skipped; a missing handle is synthesised from the name.
func ImportVCards(ctx context.Context, r io.Reader, log zerolog.Logger) ([]models.Contact, error) {
	decoder := vcard.NewDecoder(r)
	var contacts []models.Contact

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn().Err(err).Msg("Skipped unreadable vCard")
			continue
		}

		contact, ok := contactFromCard(card)
		if !ok {
			log.Debug().Str("name", card.Value(vcard.FieldFormattedName)).Msg("Skipped vCard without name or mobile")
			continue
		}
		contacts = append(contacts, contact)
	}

	return contacts, nil
}

func contactFromCard(card vcard.Card) (models.Contact, bool) {
	name := strings.TrimSpace(card.Value(vcard.FieldFormattedName))
	if name == "" {
		if n := card.Name(); n != nil {
			name = strings.TrimSpace(strings.Join(strings.Fields(n.GivenName+" "+n.FamilyName), " "))
		}
	}
	if name == "" {
		return models.Contact{}, false
	}

	mobile := ""
	for _, tel := range card.Values(vcard.FieldTelephone) {
		if m := NormalizeMobile(tel); ValidateMobile(m) == nil {
			mobile = m
			break
		}
	}
	if mobile == "" {
		return models.Contact{}, false
	}

	handle := strings.TrimSpace(card.Value(FieldUPI))
	if ValidateHandle(handle) != nil {
		handle = SynthesizeHandle(name)
	}

	return models.Contact{Name: name, Mobile: mobile, UPI: handle}, true
}
