package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/oatsaysai/voice-upi/internal/config"
	"github.com/oatsaysai/voice-upi/internal/db"
	"github.com/oatsaysai/voice-upi/internal/logger"
	"github.com/oatsaysai/voice-upi/internal/voice"
)

var Version = "dev"

// app is what every subcommand runs against
type app struct {
	cfg      *config.Config
	store    db.Store
	sessions *voice.Sessions
	log      zerolog.Logger
}

func main() {
	var (
		configFile string
		verbose    bool
	)

	rootCmd := &cobra.Command{
		Use:           "voiceupi",
		Short:         "Voice UPI - send money by sentence from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	open := func(cmd *cobra.Command) (*app, error) {
		level := "warn"
		if verbose {
			level = "debug"
		}
		return openApp(cmd, configFile, level)
	}

	// Add subcommands
	rootCmd.AddCommand(sayCmd(open))
	rootCmd.AddCommand(balanceCmd(open))
	rootCmd.AddCommand(historyCmd(open))
	rootCmd.AddCommand(contactsCmd(open))
	rootCmd.AddCommand(addContactCmd(open))
	rootCmd.AddCommand(deleteContactCmd(open))
	rootCmd.AddCommand(importVCFCmd(open))
	rootCmd.AddCommand(importQRCmd(open))
	rootCmd.AddCommand(qrCmd(open))
	rootCmd.AddCommand(configCmd(func() (*config.Config, error) { return config.Load(configFile) }))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type opener func(cmd *cobra.Command) (*app, error)

func openApp(cmd *cobra.Command, configFile, level string) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	log := logger.NewConsole(cmd.ErrOrStderr(), level)
	store, err := db.Open(cmd.Context(), cfg, log)
	if err != nil {
		return nil, err
	}

	resolver := voice.NewResolver(voice.ScorerByName(cfg.Voice.Scorer), cfg.Voice.MatchThreshold)
	return &app{
		cfg:      cfg,
		store:    store,
		sessions: voice.NewSessions(store, resolver, log),
		log:      log,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
