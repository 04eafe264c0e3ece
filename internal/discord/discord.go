package discord

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/oatsaysai/voice-upi/internal/db"
	"github.com/oatsaysai/voice-upi/internal/voice"
)

// commandTimeout bounds the store and network work of a single command or interaction
const commandTimeout = 30 * time.Second

// Config holds the bot's payment options
type Config struct {
	QRScheme string
	QRDir    string
}

// Bot is the Discord transport for the voice pipeline and the ledger
type Bot struct {
	session  *discordgo.Session
	store    db.Store
	sessions *voice.Sessions
	cfg      Config
	http     *http.Client
	log      zerolog.Logger
	commands map[string]CommandDefinition
}

// New creates a bot and registers its commands. It does not connect.
func New(token string, store db.Store, sessions *voice.Sessions, cfg Config, log zerolog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	b := newBot(store, sessions, cfg, log)
	b.session = session
	return b, nil
}

func newBot(store db.Store, sessions *voice.Sessions, cfg Config, log zerolog.Logger) *Bot {
	b := &Bot{
		store:    store,
		sessions: sessions,
		cfg:      cfg,
		http:     &http.Client{Timeout: commandTimeout},
		log:      log.With().Str("component", "discord").Logger(),
		commands: make(map[string]CommandDefinition),
	}
	b.registerCommands()
	return b
}

// Open registers the event handlers and connects to Discord
func (b *Bot) Open() error {
	b.session.AddHandler(b.ProcessCommand)
	b.session.AddHandler(b.handleInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("error opening connection to Discord: %w", err)
	}

	b.log.Info().Msg("Connected to Discord successfully")
	return nil
}

// Close closes the Discord session
func (b *Bot) Close() error {
	if b.session == nil {
		return nil
	}
	return b.session.Close()
}

// sessionKey is the voice session owned by a Discord user
func sessionKey(userID string) string {
	return "discord:" + userID
}
