package upi

import (
	"fmt"
	"io"

	"github.com/oatsaysai/voice-upi/internal/models"
	"github.com/oatsaysai/voice-upi/pkg/qrcode"
)

// QR payload schemes
const (
	QRSchemeUPI       = "upi"
	QRSchemePromptPay = "promptpay"
)

// QRPayload is the text encoded in a payment-request QR for contact
func QRPayload(scheme string, c models.Contact, amount int64, note string) (string, error) {
	switch scheme {
	case QRSchemeUPI, "":
		if err := ValidateHandle(c.UPI); err != nil {
			return "", err
		}
		return PayLinkFor(c, amount, note).String(), nil
	case QRSchemePromptPay:
		if err := ValidateMobile(c.Mobile); err != nil {
			return "", err
		}
		return qrcode.PromptPayPayload(c.Mobile, amount)
	default:
		return "", fmt.Errorf("unknown QR scheme %q", scheme)
	}
}

// GeneratePaymentQR writes a payment-request QR image for contact into dir and returns its path
func GeneratePaymentQR(scheme string, c models.Contact, amount int64, note, dir string) (string, error) {
	payload, err := QRPayload(scheme, c, amount, note)
	if err != nil {
		return "", err
	}
	return qrcode.Generate(payload, dir, c.Name)
}

// ContactFromQR decodes a UPI payment QR image into a contact. The mobile number
// is not part of a UPI link and is left empty.
func ContactFromQR(r io.Reader) (models.Contact, error) {
	text, err := qrcode.Decode(r)
	if err != nil {
		return models.Contact{}, err
	}
	link, err := ParsePayLink(text)
	if err != nil {
		return models.Contact{}, err
	}
	return link.Contact(), nil
}
