package upi

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oatsaysai/voice-upi/internal/models"
)

var rameshContact = models.Contact{Name: "Ramesh", Mobile: "9999999999", UPI: "ramesh@upi"}

func TestQRPayload(t *testing.T) {
	payload, err := QRPayload(QRSchemeUPI, rameshContact, 250, "")
	require.NoError(t, err)
	assert.Equal(t, "upi://pay?am=250&cu=INR&pa=ramesh%40upi&pn=Ramesh", payload)

	payload, err = QRPayload(QRSchemePromptPay, rameshContact, 250, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(payload, "000201"))

	_, err = QRPayload(QRSchemePromptPay, models.Contact{Name: "X", UPI: "x@upi"}, 1, "")
	assert.ErrorIs(t, err, models.ErrInvalidMobile)

	_, err = QRPayload("bitcoin", rameshContact, 1, "")
	assert.Error(t, err)
}

func TestPaymentQRRoundTrip(t *testing.T) {
	filename, err := GeneratePaymentQR(QRSchemeUPI, rameshContact, 100, "lunch", t.TempDir())
	require.NoError(t, err)

	f, err := os.Open(filename)
	require.NoError(t, err)
	defer f.Close()

	contact, err := ContactFromQR(f)
	require.NoError(t, err)
	assert.Equal(t, models.Contact{Name: "Ramesh", UPI: "ramesh@upi"}, contact)
}
