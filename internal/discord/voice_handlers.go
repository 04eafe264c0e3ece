package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/oatsaysai/voice-upi/internal/models"
	"github.com/oatsaysai/voice-upi/internal/utils"
	"github.com/oatsaysai/voice-upi/internal/voice"
)

// maxSelectOptions is Discord's limit on options in one select menu
const maxSelectOptions = 25

// handleSay handles the !say command: the rest of the message is treated as a
// recognised transcript and fed to the sender's voice session
func (b *Bot) handleSay(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) < 2 {
		b.sendErrorMessage(s, m.ChannelID, "Usage: `!say send 500 to Ramesh`")
		return
	}
	transcript := strings.Join(args[1:], " ")

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	session := b.sessions.Get(sessionKey(m.Author.ID))
	state, err := session.Speak(ctx, voice.TranscriptRecognizer(transcript))
	if err != nil && !state.Phase.Terminal() {
		b.log.Error().Err(err).Str("user_id", m.Author.ID).Msg("Voice flow stopped unexpectedly")
		b.sendErrorMessage(s, m.ChannelID, errorMessage(err))
		return
	}
	if errors.Is(err, models.ErrStoreUnavailable) {
		b.log.Error().Err(err).Str("user_id", m.Author.ID).Msg("Store unavailable during voice flow")
	}

	content, components := renderState(state, m.Author.ID)
	_, err = s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content:    content,
		Components: components,
	})
	if err != nil {
		b.log.Error().Err(err).Msg("Error sending voice state message")
	}
}

// handleCancel handles the !cancel command
func (b *Bot) handleCancel(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	state := b.sessions.Get(sessionKey(m.Author.ID)).Controller.Cancel()
	content, _ := renderState(state, m.Author.ID)
	s.ChannelMessageSend(m.ChannelID, content)
}

// handleSelectCandidate handles a pick from the ambiguity select menu
func (b *Bot) handleSelectCandidate(s *discordgo.Session, i *discordgo.InteractionCreate, owner string) {
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		respondWithError(s, i, "Please pick a contact")
		return
	}
	index, err := strconv.Atoi(values[0])
	if err != nil {
		respondWithError(s, i, "Invalid selection")
		return
	}

	state, err := b.sessions.Get(sessionKey(owner)).Controller.SelectCandidate(index)
	if err != nil {
		respondWithError(s, i, errorMessage(err))
		return
	}

	content, components := renderState(state, owner)
	if err := updateMessage(s, i, content, components); err != nil {
		b.log.Error().Err(err).Msg("Error responding to candidate selection")
	}
}

// handleConfirmButton executes the pending transfer
func (b *Bot) handleConfirmButton(s *discordgo.Session, i *discordgo.InteractionCreate, owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	state, err := b.sessions.Get(sessionKey(owner)).Controller.Confirm(ctx)
	if err != nil && !state.Phase.Terminal() {
		respondWithError(s, i, errorMessage(err))
		return
	}
	if err != nil {
		b.log.Warn().Err(err).Str("user_id", owner).Msg("Transfer failed")
	}

	content, components := renderState(state, owner)
	if err := updateMessage(s, i, content, components); err != nil {
		b.log.Error().Err(err).Msg("Error responding to confirm button")
	}
}

// handleCancelButton abandons the pending transfer
func (b *Bot) handleCancelButton(s *discordgo.Session, i *discordgo.InteractionCreate, owner string) {
	state := b.sessions.Get(sessionKey(owner)).Controller.Cancel()
	content, components := renderState(state, owner)
	if err := updateMessage(s, i, content, components); err != nil {
		b.log.Error().Err(err).Msg("Error responding to cancel button")
	}
}

// renderState turns a voice state into a message for owner, with the select
// menu or buttons the state needs
func renderState(state voice.State, owner string) (string, []discordgo.MessageComponent) {
	mention := fmt.Sprintf("<@%s> ", owner)

	switch state.Phase {
	case voice.PhaseAmbiguityPending:
		content := mention + fmt.Sprintf("Several contacts match **%s** for %s. Pick one:",
			state.Pending.RawRecipientName, formatRupees(state.Pending.Amount))
		return content, []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{candidateMenu(state, owner)}},
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{cancelButton(owner)}},
		}

	case voice.PhaseConfirmationPending:
		contact := state.Pending.SelectedContact
		content := mention + fmt.Sprintf("Send %s to **%s** (%s)?",
			formatRupees(state.Pending.Amount), contact.Name, contact.UPI)
		return content, []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Confirm",
					Style:    discordgo.SuccessButton,
					CustomID: voiceConfirmPrefix + owner,
				},
				cancelButton(owner),
			}},
		}

	case voice.PhaseExecuted:
		tx := state.Transaction
		return mention + fmt.Sprintf("✅ Sent %s to **%s**. Transaction `%s`",
			formatRupees(tx.Amount), tx.Receiver, tx.ID), nil

	case voice.PhaseCancelled:
		return mention + "Transfer cancelled.", nil

	case voice.PhaseNotFound:
		return mention + fmt.Sprintf("⚠️ No contact matches **%s**.", state.Pending.RawRecipientName), nil

	case voice.PhaseFailed:
		return mention + "⚠️ " + errorMessage(state.Err), nil

	default:
		return mention + "Nothing pending.", nil
	}
}

func candidateMenu(state voice.State, owner string) discordgo.SelectMenu {
	options := state.Options()
	if len(options) > maxSelectOptions {
		options = options[:maxSelectOptions]
	}

	menuOptions := make([]discordgo.SelectMenuOption, 0, len(options))
	for _, opt := range options {
		menuOptions = append(menuOptions, discordgo.SelectMenuOption{
			Label:       fmt.Sprintf("%s (%d%% match)", opt.Name, opt.MatchPercent),
			Description: opt.UPI,
			Value:       strconv.Itoa(opt.Index),
		})
	}

	return discordgo.SelectMenu{
		MenuType:    discordgo.StringSelectMenu,
		CustomID:    voiceSelectPrefix + owner,
		Placeholder: "Choose the recipient",
		Options:     menuOptions,
	}
}

func cancelButton(owner string) discordgo.Button {
	return discordgo.Button{
		Label:    "Cancel",
		Style:    discordgo.DangerButton,
		CustomID: voiceCancelPrefix + owner,
	}
}

// errorMessage is the text shown for err. Unknown errors are not echoed.
func errorMessage(err error) string {
	var recErr *voice.RecognitionError
	switch {
	case err == nil:
		return "Something went wrong"
	case errors.As(err, &recErr):
		if recErr.Kind == voice.RecognitionNoSpeech {
			return "No speech detected, please try again"
		}
		return fmt.Sprintf("Speech recognition failed (%s)", recErr.Kind)
	case errors.Is(err, models.ErrInsufficientBalance):
		return "Insufficient balance"
	case errors.Is(err, models.ErrInvalidTransition):
		return "Nothing to do: no transfer is waiting for this"
	}

	for _, sentinel := range []error{
		models.ErrParse,
		models.ErrContactNotFound,
		models.ErrRecipientRemoved,
		models.ErrInvalidAmount,
		models.ErrInvalidSelection,
		models.ErrDuplicateContact,
		models.ErrInvalidHandle,
		models.ErrInvalidMobile,
		models.ErrStoreUnavailable,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "Something went wrong"
}

func formatRupees(amount int64) string {
	return utils.FormatRupees(amount)
}
