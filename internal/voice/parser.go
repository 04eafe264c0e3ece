package voice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/oatsaysai/voice-upi/internal/models"
)

// transferPattern matches "send|pay <amount> [currency] [to|ma] <name>".
// The recipient group is everything after the optional connector.
var transferPattern = regexp.MustCompile(
	`(?i)\b(?:send|pay)\s+(\d+)\s*(?:rupees\b|rupee\b|rs\b\.?|₹|inr\b)?\s*(?:\bto\b|\bma\b)?\s*(.+)`,
)

// ParseTranscript extracts the amount and recipient name from a recognised sentence.
// Anything that is not a recognisable transfer command yields models.ErrParse.
func ParseTranscript(text string) (models.Intent, error) {
	m := transferPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return models.Intent{}, models.ErrParse
	}

	amount, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return models.Intent{}, fmt.Errorf("%w: amount %q", models.ErrParse, m[1])
	}
	if amount <= 0 {
		return models.Intent{}, fmt.Errorf("%w: amount must be positive", models.ErrParse)
	}

	name := strings.TrimSpace(m[2])
	switch strings.ToLower(name) {
	case "", "to", "ma":
		return models.Intent{}, models.ErrParse
	}

	return models.Intent{Amount: amount, RawRecipientName: name}, nil
}
