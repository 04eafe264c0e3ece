package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oatsaysai/voice-upi/internal/api"
	"github.com/oatsaysai/voice-upi/internal/api/handlers"
	"github.com/oatsaysai/voice-upi/internal/config"
	"github.com/oatsaysai/voice-upi/internal/db"
	"github.com/oatsaysai/voice-upi/internal/discord"
	"github.com/oatsaysai/voice-upi/internal/logger"
	"github.com/oatsaysai/voice-upi/internal/voice"
	"github.com/oatsaysai/voice-upi/pkg/razorpay"
)

func main() {
	// Parse command-line flags
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		bootLog := logger.New("info")
		bootLog.Fatal().Err(err).Str("config", *configFile).Msg("Failed to load configuration")
	}

	log := logger.New(cfg.Log.Level)
	log.Info().Str("config", *configFile).Str("ledger_backend", cfg.Ledger.Backend).Msg("Configuration loaded")

	ctx := context.Background()

	store, err := db.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger store")
	}
	defer store.Close()

	resolver := voice.NewResolver(voice.ScorerByName(cfg.Voice.Scorer), cfg.Voice.MatchThreshold)
	sessions := voice.NewSessions(store, resolver, log)

	// Order creation stays disabled without gateway keys
	var orders handlers.OrderCreator
	rzp := razorpay.NewClient(cfg.Razorpay.BaseURL, cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, log)
	if rzp.Configured() {
		orders = rzp
	} else {
		log.Warn().Msg("Razorpay keys not configured - order creation is disabled")
	}

	handler := api.NewRouter(api.Deps{
		Store:    store,
		Sessions: sessions,
		Orders:   orders,
		QRScheme: cfg.Payment.QRScheme,
		QRDir:    cfg.Payment.QRDir,
		Currency: cfg.Payment.Currency,
		Log:      log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Initialize Discord bot
	if cfg.DiscordBot.Token != "" {
		bot, err := discord.New(cfg.DiscordBot.Token, store, sessions, discord.Config{
			QRScheme: cfg.Payment.QRScheme,
			QRDir:    cfg.Payment.QRDir,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Discord bot")
		}
		if err := bot.Open(); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect Discord bot")
		}
		defer bot.Close()
	} else {
		log.Info().Msg("No Discord token configured - bot is disabled")
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
