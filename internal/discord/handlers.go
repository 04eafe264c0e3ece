package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/oatsaysai/voice-upi/internal/models"
	"github.com/oatsaysai/voice-upi/internal/upi"
)

const (
	defaultHistoryCount = 10
	maxHistoryCount     = 50
)

// sendErrorMessage sends an error message to the specified Discord channel
func (b *Bot) sendErrorMessage(s *discordgo.Session, channelID, message string) {
	b.log.Debug().Str("channel_id", channelID).Str("message", message).Msg("Error sent to user")
	if _, err := s.ChannelMessageSend(channelID, "⚠️ "+message); err != nil {
		b.log.Error().Err(err).Msg("Failed to send error message to Discord")
	}
}

// handleBalance handles the !balance command
func (b *Bot) handleBalance(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	balance, err := b.store.GetBalance(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("Failed to read balance")
		b.sendErrorMessage(s, m.ChannelID, "Could not read the balance")
		return
	}
	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("💰 Balance: **%s**", formatRupees(balance)))
}

// handleHistory handles the !history command
func (b *Bot) handleHistory(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	count := defaultHistoryCount
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			b.sendErrorMessage(s, m.ChannelID, "Usage: `!history [count]`")
			return
		}
		count = min(n, maxHistoryCount)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	txs, err := b.store.GetTransactions(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("Failed to read transactions")
		b.sendErrorMessage(s, m.ChannelID, "Could not read the transaction history")
		return
	}
	s.ChannelMessageSend(m.ChannelID, formatHistory(txs, count))
}

// handleContacts handles the !contacts command
func (b *Bot) handleContacts(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	contacts, err := b.store.GetContacts(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("Failed to read contacts")
		b.sendErrorMessage(s, m.ChannelID, "Could not read contacts")
		return
	}
	s.ChannelMessageSend(m.ChannelID, formatContacts(contacts))
}

// handleAddContact handles the !addcontact command
func (b *Bot) handleAddContact(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	contact, err := parseContactArgs(args[1:])
	if err != nil {
		b.sendErrorMessage(s, m.ChannelID, err.Error()+"\nUsage: `!addcontact <name> <mobile> <upi>`")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := b.store.AddContact(ctx, contact); err != nil {
		if !errors.Is(err, models.ErrDuplicateContact) {
			b.log.Error().Err(err).Str("name", contact.Name).Msg("Failed to add contact")
		}
		b.sendErrorMessage(s, m.ChannelID, errorMessage(err))
		return
	}

	content := fmt.Sprintf("✅ Saved **%s** (%s, %s)", contact.Name, contact.Mobile, contact.UPI)
	if !upi.HandleMatchesName(contact.UPI, contact.Name) {
		content += "\nNote: the UPI ID does not look like it belongs to this name, please double-check it."
	}
	s.ChannelMessageSend(m.ChannelID, content)
}

// handleDeleteContact handles the !deletecontact command
func (b *Bot) handleDeleteContact(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	name := strings.Join(args[1:], " ")
	if name == "" {
		b.sendErrorMessage(s, m.ChannelID, "Usage: `!deletecontact <name>`")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := b.store.DeleteContact(ctx, name); err != nil {
		b.sendErrorMessage(s, m.ChannelID, errorMessage(err))
		return
	}
	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("🗑️ Removed **%s**", name))
}

// handleHelp handles the !help command
func (b *Bot) handleHelp(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) > 1 {
		cmd, ok := b.GetCommand(strings.TrimPrefix(args[1], commandPrefix))
		if !ok {
			b.sendErrorMessage(s, m.ChannelID, fmt.Sprintf("Unknown command `%s`", args[1]))
			return
		}
		s.ChannelMessageSend(m.ChannelID, commandHelp(cmd))
		return
	}
	s.ChannelMessageSend(m.ChannelID, b.helpMessage())
}

// parseContactArgs reads "<name...> <mobile> <upi>"; the name may contain spaces
func parseContactArgs(args []string) (models.Contact, error) {
	if len(args) < 3 {
		return models.Contact{}, fmt.Errorf("name, mobile, and UPI are required")
	}
	n := len(args)
	contact := models.Contact{
		Name:   strings.Join(args[:n-2], " "),
		Mobile: upi.NormalizeMobile(args[n-2]),
		UPI:    strings.ToLower(args[n-1]),
	}
	if err := upi.ValidateMobile(contact.Mobile); err != nil {
		return models.Contact{}, err
	}
	if err := upi.ValidateHandle(contact.UPI); err != nil {
		return models.Contact{}, err
	}
	return contact, nil
}

// formatHistory lists at most count transactions, which arrive newest first
func formatHistory(txs []models.Transaction, count int) string {
	if len(txs) == 0 {
		return "No transactions yet."
	}

	var sb strings.Builder
	sb.WriteString("**Recent transactions:**\n")
	for _, tx := range txs[:min(count, len(txs))] {
		fmt.Fprintf(&sb, "- %s to **%s** on %s (`%s`)\n",
			formatRupees(tx.Amount), tx.Receiver, tx.Timestamp.Format("02 Jan 2006 15:04"), tx.ID)
	}
	if len(txs) > count {
		fmt.Fprintf(&sb, "…and %d more", len(txs)-count)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatContacts(contacts []models.Contact) string {
	if len(contacts) == 0 {
		return "No contacts saved. Add one with `!addcontact <name> <mobile> <upi>`."
	}

	var sb strings.Builder
	sb.WriteString("**Contacts:**\n")
	for _, c := range contacts {
		fmt.Fprintf(&sb, "- **%s** · %s · %s\n", c.Name, c.Mobile, c.UPI)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) helpMessage() string {
	var sb strings.Builder
	sb.WriteString("**Commands:**\n")
	for _, cmd := range b.Commands() {
		fmt.Fprintf(&sb, "- `%s` - %s\n", cmd.Usage, cmd.Description)
	}
	sb.WriteString("\nUse `!help <command>` for examples.")
	return sb.String()
}

func commandHelp(cmd CommandDefinition) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s%s** - %s\nUsage: `%s`", commandPrefix, cmd.Name, cmd.Description, cmd.Usage)
	if len(cmd.Examples) > 0 {
		sb.WriteString("\nExamples:")
		for _, ex := range cmd.Examples {
			fmt.Fprintf(&sb, "\n`%s`", ex)
		}
	}
	return sb.String()
}
