package upi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/oatsaysai/voice-upi/internal/models"
)

// Scheme of UPI payment deep links
const Scheme = "upi"

// PayLink is a upi://pay request understood by UPI apps
type PayLink struct {
	Payee    string // pa
	Name     string // pn
	Amount   int64  // am, omitted when zero
	Note     string // tn
	Currency string // cu
}

// PayLinkFor builds a link paying amount to contact
func PayLinkFor(c models.Contact, amount int64, note string) PayLink {
	return PayLink{Payee: c.UPI, Name: c.Name, Amount: amount, Note: note, Currency: "INR"}
}

// String renders the deep link
func (l PayLink) String() string {
	q := url.Values{}
	q.Set("pa", l.Payee)
	if l.Name != "" {
		q.Set("pn", l.Name)
	}
	if l.Amount > 0 {
		q.Set("am", strconv.FormatInt(l.Amount, 10))
	}
	if l.Note != "" {
		q.Set("tn", l.Note)
	}
	currency := l.Currency
	if currency == "" {
		currency = "INR"
	}
	q.Set("cu", currency)

	u := url.URL{Scheme: Scheme, Host: "pay", RawQuery: q.Encode()}
	return u.String()
}

// Contact returns the payee as a directory contact
func (l PayLink) Contact() models.Contact {
	name := l.Name
	if name == "" {
		name, _, _ = strings.Cut(l.Payee, "@")
	}
	return models.Contact{Name: name, UPI: l.Payee}
}

// ParsePayLink parses a upi://pay link, e.g. the payload of a payment QR code
func ParsePayLink(raw string) (PayLink, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return PayLink{}, fmt.Errorf("invalid payment link: %w", err)
	}
	if !strings.EqualFold(u.Scheme, Scheme) || !strings.EqualFold(u.Host, "pay") {
		return PayLink{}, fmt.Errorf("not a UPI payment link: %q", raw)
	}

	q := u.Query()
	link := PayLink{
		Payee:    q.Get("pa"),
		Name:     q.Get("pn"),
		Note:     q.Get("tn"),
		Currency: q.Get("cu"),
	}
	if err := ValidateHandle(link.Payee); err != nil {
		return PayLink{}, err
	}

	if am := q.Get("am"); am != "" {
		// Amounts may carry paise ("150.00"); only whole rupees are kept
		whole, _, _ := strings.Cut(am, ".")
		amount, err := strconv.ParseInt(whole, 10, 64)
		if err != nil || amount < 0 {
			return PayLink{}, fmt.Errorf("%w: %q", models.ErrInvalidAmount, am)
		}
		link.Amount = amount
	}
	return link, nil
}
