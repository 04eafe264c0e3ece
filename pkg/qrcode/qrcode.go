package qrcode

import (
	"fmt"
	"image"
	_ "image/jpeg" // decode JPEG uploads
	_ "image/png"  // decode PNG uploads
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	pp "github.com/Frontware/promptpay"
	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// PromptPayPayload builds an EMVCo PromptPay payload for a phone number or national id
func PromptPayPayload(promptPayID string, amount int64) (string, error) {
	payment := pp.PromptPay{PromptPayID: promptPayID, Amount: float64(amount)}
	payload, err := payment.Gen()
	if err != nil {
		return "", fmt.Errorf("error generating PromptPay data: %w", err)
	}
	return payload, nil
}

// Generate renders text as a PNG QR code in dir (the system temp dir when empty)
// and returns the file path. The caller removes the file when done.
func Generate(text, dir, label string) (string, error) {
	qrc, err := qrcode.New(text)
	if err != nil {
		return "", fmt.Errorf("error creating QR code: %w", err)
	}

	if dir == "" {
		dir = os.TempDir()
	}
	// Generate a unique filename
	filename := filepath.Join(dir, fmt.Sprintf("qr_%s_%d.png", unsafeFileChars.ReplaceAllString(label, "_"), time.Now().UnixNano()))
	fileWriter, err := standard.New(filename, standard.WithBuiltinImageEncoder(standard.PNG_FORMAT))
	if err != nil {
		return "", fmt.Errorf("error creating file writer: %w", err)
	}

	if err = qrc.Save(fileWriter); err != nil {
		os.Remove(filename) // Clean up on error
		return "", fmt.Errorf("error saving QR code: %w", err)
	}

	return filename, nil
}

// Decode reads the text of the first QR code found in a PNG or JPEG image
func Decode(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("error decoding image: %w", err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("error preparing image: %w", err)
	}

	result, err := zxingqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("no QR code found: %w", err)
	}
	return result.GetText(), nil
}

// DecodeFile is Decode for an image on disk
func DecodeFile(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", fmt.Errorf("error opening image: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Remove deletes the QR code file
func Remove(filename string) error {
	return os.Remove(filename)
}
