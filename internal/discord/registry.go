package discord

import (
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// commandPrefix starts every bot command
const commandPrefix = "!"

// CommandHandler defines the function signature for command handlers
type CommandHandler func(s *discordgo.Session, m *discordgo.MessageCreate, args []string)

// CommandDefinition holds information about a command
type CommandDefinition struct {
	Name        string
	Description string
	Usage       string
	Examples    []string
	Handler     CommandHandler
}

// RegisterCommand adds a command to the registry
func (b *Bot) RegisterCommand(cmd CommandDefinition) {
	b.commands[strings.ToLower(cmd.Name)] = cmd
}

// GetCommand retrieves a command from the registry
func (b *Bot) GetCommand(name string) (CommandDefinition, bool) {
	cmd, exists := b.commands[strings.ToLower(name)]
	return cmd, exists
}

// Commands lists the registered commands by name
func (b *Bot) Commands() []CommandDefinition {
	cmds := make([]CommandDefinition, 0, len(b.commands))
	for _, cmd := range b.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// ProcessCommand routes a message to the appropriate command handler
func (b *Bot) ProcessCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Skip messages from the bot itself
	if m.Author == nil || (s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}

	name, args, ok := parseCommand(m.Content)
	if !ok {
		return
	}

	if cmd, exists := b.GetCommand(name); exists {
		go cmd.Handler(s, m, args)
		return
	}

	b.log.Debug().Str("command", name).Msg("Unrecognized command")
}

// parseCommand splits a message into its lowercased command name and its
// whitespace-separated args, args[0] being the command as typed
func parseCommand(content string) (string, []string, bool) {
	args := strings.Fields(strings.TrimSpace(content))
	if len(args) == 0 || !strings.HasPrefix(args[0], commandPrefix) {
		return "", nil, false
	}

	name := strings.ToLower(strings.TrimPrefix(args[0], commandPrefix))
	if name == "" {
		return "", nil, false
	}
	return name, args, true
}
