package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Component custom IDs. Each is followed by the Discord ID of the user whose
// voice session the component acts on.
const (
	voiceSelectPrefix  = "voice_select_"
	voiceConfirmPrefix = "voice_confirm_"
	voiceCancelPrefix  = "voice_cancel_"
)

// handleInteraction routes component interactions to the appropriate handler
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	customID := i.MessageComponentData().CustomID
	prefix, owner, ok := splitCustomID(customID)
	if !ok {
		b.log.Warn().Str("custom_id", customID).Msg("Unknown component interaction")
		respondWithError(s, i, "Unknown interaction")
		return
	}

	if interactionUserID(i) != owner {
		respondWithError(s, i, "This transfer belongs to someone else")
		return
	}

	switch prefix {
	case voiceSelectPrefix:
		b.handleSelectCandidate(s, i, owner)
	case voiceConfirmPrefix:
		b.handleConfirmButton(s, i, owner)
	case voiceCancelPrefix:
		b.handleCancelButton(s, i, owner)
	}
}

// splitCustomID returns the known prefix of customID and the owner ID after it
func splitCustomID(customID string) (string, string, bool) {
	for _, prefix := range []string{voiceSelectPrefix, voiceConfirmPrefix, voiceCancelPrefix} {
		if owner, found := strings.CutPrefix(customID, prefix); found && owner != "" {
			return prefix, owner, true
		}
	}
	return "", "", false
}

// interactionUserID is the clicking user, in a guild or in DMs
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// respondWithError sends an ephemeral error message
func respondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "⚠️ " + message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// updateMessage replaces the message that carried the clicked component
func updateMessage(s *discordgo.Session, i *discordgo.InteractionCreate, content string, components []discordgo.MessageComponent) error {
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
		},
	})
}
