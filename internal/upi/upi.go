// Package upi holds UPI handle and mobile number rules, payment deep links and
// contact import helpers shared by the HTTP API, the Discord bot and the CLI.
package upi

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oatsaysai/voice-upi/internal/models"
)

// MinHandleMatchLength is the shortest normalised name or handle the
// similarity check accepts
const MinHandleMatchLength = 3

var (
	handlePattern = regexp.MustCompile(`^[\w\-.]+@\w+$`)
	mobilePattern = regexp.MustCompile(`^\d{10}$`)
	nonAlnum      = regexp.MustCompile(`[^a-z0-9]`)
)

// ValidateHandle checks the name@provider shape of a UPI handle
func ValidateHandle(handle string) error {
	if !handlePattern.MatchString(handle) {
		return fmt.Errorf("%w: %q", models.ErrInvalidHandle, handle)
	}
	return nil
}

// ValidateMobile checks for a 10-digit mobile number
func ValidateMobile(mobile string) error {
	if !mobilePattern.MatchString(mobile) {
		return fmt.Errorf("%w: %q", models.ErrInvalidMobile, mobile)
	}
	return nil
}

// NormalizeMobile keeps the last 10 digits of a phone number, dropping
// separators and country codes such as +91
func NormalizeMobile(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) > 10 {
		d = d[len(d)-10:]
	}
	return d
}

// HandleMatchesName reports whether the local part of handle and the contact
// name contain one another once lowercased and stripped to letters and digits.
// It is a typo guard for the user, not an ownership check.
func HandleMatchesName(handle, name string) bool {
	local, _, _ := strings.Cut(handle, "@")
	localKey := nonAlnum.ReplaceAllString(strings.ToLower(local), "")
	nameKey := nonAlnum.ReplaceAllString(strings.ToLower(name), "")

	if len(localKey) < MinHandleMatchLength || len(nameKey) < MinHandleMatchLength {
		return false
	}
	return strings.Contains(localKey, nameKey) || strings.Contains(nameKey, localKey)
}

// ValidateContact applies the format rules and the name similarity check
func ValidateContact(c models.Contact) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("contact name is required")
	}
	if err := ValidateHandle(c.UPI); err != nil {
		return err
	}
	if err := ValidateMobile(c.Mobile); err != nil {
		return err
	}
	if !HandleMatchesName(c.UPI, c.Name) {
		return fmt.Errorf("%w: %s / %s", models.ErrHandleMismatch, c.Name, c.UPI)
	}
	return nil
}

// SynthesizeHandle builds a placeholder handle for a contact imported without one
func SynthesizeHandle(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "")) + "@upi"
}
