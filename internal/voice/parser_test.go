package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oatsaysai/voice-upi/internal/models"
)

func TestParseTranscript(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		amount     int64
		recipient  string
	}{
		{"basic", "Send 500 to Ramesh", 500, "Ramesh"},
		{"pay verb", "pay 20 Sita", 20, "Sita"},
		{"currency word", "send 500 rupees to Ramesh Kumar", 500, "Ramesh Kumar"},
		{"short currency", "Send 75 rs. to Sita", 75, "Sita"},
		{"rupee symbol", "send 100 ₹ to Sita", 100, "Sita"},
		{"inr", "PAY 1000 INR to ram", 1000, "ram"},
		{"colloquial connector", "send 300 ma Ramesh", 300, "Ramesh"},
		{"leading words", "please send 10 to Sita now", 10, "Sita now"},
		{"name starting with to", "send 50 Tom", 50, "Tom"},
		{"trailing spaces", "  send 5 to   Ramesh  ", 5, "Ramesh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, err := ParseTranscript(tt.transcript)
			require.NoError(t, err)
			assert.Equal(t, tt.amount, intent.Amount)
			assert.Equal(t, tt.recipient, intent.RawRecipientName)
		})
	}
}

func TestParseTranscript_Rejects(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
	}{
		{"no command", "hello world"},
		{"empty", ""},
		{"word amount", "send five hundred to Ramesh"},
		{"missing recipient", "send 500 to"},
		{"zero amount", "send 0 to Ramesh"},
		{"overflow", "send 99999999999999999999 to Ramesh"},
		{"verb only", "pay Ramesh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTranscript(tt.transcript)
			assert.ErrorIs(t, err, models.ErrParse)
		})
	}
}
