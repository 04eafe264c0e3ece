package discord

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/oatsaysai/voice-upi/internal/db"
	"github.com/oatsaysai/voice-upi/internal/upi"
	"github.com/oatsaysai/voice-upi/pkg/qrcode"
)

// maxAttachmentBytes caps downloaded QR images and .vcf files
const maxAttachmentBytes = 1 << 20

// handlePayQR handles the !payqr command
func (b *Bot) handlePayQR(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	name, amount, err := parsePayQRArgs(args[1:])
	if err != nil {
		b.sendErrorMessage(s, m.ChannelID, "Usage: `!payqr <name> [amount]`")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	contact, err := db.LookupContact(ctx, b.store, name)
	if err != nil {
		b.sendErrorMessage(s, m.ChannelID, errorMessage(err))
		return
	}

	filename, err := upi.GeneratePaymentQR(b.cfg.QRScheme, contact, amount, "", b.cfg.QRDir)
	if err != nil {
		b.log.Error().Err(err).Str("name", contact.Name).Msg("Error generating payment QR")
		b.sendErrorMessage(s, m.ChannelID, fmt.Sprintf("Could not create a QR code for %s", contact.Name))
		return
	}
	defer func() {
		if err := qrcode.Remove(filename); err != nil {
			b.log.Warn().Err(err).Str("file", filename).Msg("Failed to remove QR image")
		}
	}()

	file, err := os.Open(filename)
	if err != nil {
		b.log.Error().Err(err).Str("file", filename).Msg("Could not open QR image")
		b.sendErrorMessage(s, m.ChannelID, "Could not send the QR code")
		return
	}
	defer file.Close()

	content := fmt.Sprintf("Scan to pay **%s** (%s)", contact.Name, contact.UPI)
	if amount > 0 {
		content = fmt.Sprintf("Scan to pay **%s** %s (%s)", contact.Name, formatRupees(amount), contact.UPI)
	}
	_, err = s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content: content,
		Files: []*discordgo.File{{
			Name:        filepath.Base(filename),
			ContentType: "image/png",
			Reader:      file,
		}},
	})
	if err != nil {
		b.log.Error().Err(err).Msg("Failed to send QR image")
	}
}

// handleImportQR handles the !importqr command: the attached UPI QR becomes a contact
func (b *Bot) handleImportQR(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(m.Attachments) == 0 {
		b.sendErrorMessage(s, m.ChannelID, "Attach a UPI QR image to `!importqr`")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	data, err := b.downloadAttachment(ctx, m.Attachments[0].URL)
	if err != nil {
		b.log.Error().Err(err).Msg("Failed to download QR attachment")
		b.sendErrorMessage(s, m.ChannelID, "Could not download the attachment")
		return
	}

	contact, err := upi.ContactFromQR(bytes.NewReader(data))
	if err != nil {
		b.log.Info().Err(err).Msg("Attachment is not a UPI QR")
		b.sendErrorMessage(s, m.ChannelID, "No UPI payment QR found in the image")
		return
	}
	if len(args) > 1 {
		contact.Mobile = upi.NormalizeMobile(args[1])
		if err := upi.ValidateMobile(contact.Mobile); err != nil {
			b.sendErrorMessage(s, m.ChannelID, err.Error())
			return
		}
	}

	if err := b.store.AddContact(ctx, contact); err != nil {
		b.sendErrorMessage(s, m.ChannelID, errorMessage(err))
		return
	}
	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("✅ Saved **%s** (%s) from the QR code", contact.Name, contact.UPI))
}

// handleImportVCF handles the !importvcf command
func (b *Bot) handleImportVCF(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(m.Attachments) == 0 {
		b.sendErrorMessage(s, m.ChannelID, "Attach a .vcf file to `!importvcf`")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	data, err := b.downloadAttachment(ctx, m.Attachments[0].URL)
	if err != nil {
		b.log.Error().Err(err).Msg("Failed to download vCard attachment")
		b.sendErrorMessage(s, m.ChannelID, "Could not download the attachment")
		return
	}

	contacts, err := upi.ImportVCards(ctx, bytes.NewReader(data), b.log)
	if err != nil {
		b.sendErrorMessage(s, m.ChannelID, "Could not read the vCard file")
		return
	}

	result, err := db.AddContacts(ctx, b.store, contacts)
	if err != nil {
		b.log.Error().Err(err).Int("added", len(result.Added)).Msg("Contact import stopped")
		b.sendErrorMessage(s, m.ChannelID, fmt.Sprintf("Import stopped after %d contacts: %s", len(result.Added), errorMessage(err)))
		return
	}
	s.ChannelMessageSend(m.ChannelID, formatImportResult(result))
}

// downloadAttachment fetches a Discord attachment into memory
func (b *Bot) downloadAttachment(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s for %s", resp.Status, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxAttachmentBytes {
		return nil, fmt.Errorf("attachment larger than %d bytes", maxAttachmentBytes)
	}
	return data, nil
}

// parsePayQRArgs reads "<name...> [amount]". A trailing integer is the amount.
func parsePayQRArgs(args []string) (string, int64, error) {
	if len(args) == 0 {
		return "", 0, fmt.Errorf("contact name is required")
	}

	var amount int64
	if len(args) > 1 {
		if n, err := strconv.ParseInt(args[len(args)-1], 10, 64); err == nil {
			if n < 0 {
				return "", 0, fmt.Errorf("amount must not be negative")
			}
			amount = n
			args = args[:len(args)-1]
		}
	}
	return strings.Join(args, " "), amount, nil
}

func formatImportResult(result db.ImportResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📇 Imported %d contact(s)", len(result.Added))
	for _, c := range result.Added {
		fmt.Fprintf(&sb, "\n- **%s** · %s · %s", c.Name, c.Mobile, c.UPI)
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintf(&sb, "\nSkipped existing: %s", strings.Join(result.Skipped, ", "))
	}
	return sb.String()
}
