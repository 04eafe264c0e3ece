package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oatsaysai/voice-upi/internal/utils"
	"github.com/oatsaysai/voice-upi/internal/voice"
)

// cliSession is the voice session key used by the terminal
const cliSession = "cli"

func sayCmd(open opener) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "say [sentence]",
		Short: "Run a transfer sentence through the voice pipeline",
		Long: `Parse a sentence such as "send 500 to Ramesh", resolve the recipient
against your contacts and ask for confirmation before money moves.
When several contacts match you pick one by number.`,
		Example: `  voiceupi say send 500 to Ramesh
  voiceupi say "pay 200 rupees to sita" --yes`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			session := a.sessions.Get(cliSession)
			return runSay(cmd.Context(), session, strings.Join(args, " "), cmd.InOrStdin(), cmd.OutOrStdout(), assumeYes)
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Confirm without asking")

	return cmd
}

// runSay drives one flow to an outcome, prompting on in and reporting on out
func runSay(ctx context.Context, session *voice.Session, sentence string, in io.Reader, out io.Writer, assumeYes bool) error {
	answers := bufio.NewScanner(in)
	ask := func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)
		if !answers.Scan() {
			// EOF counts as no answer
			return "", answers.Err()
		}
		return strings.TrimSpace(answers.Text()), nil
	}

	state, err := session.Speak(ctx, voice.TranscriptRecognizer(sentence))
	if err != nil {
		return err
	}

	if state.Phase == voice.PhaseAmbiguityPending {
		fmt.Fprintf(out, "Several contacts match %q:\n", state.Pending.RawRecipientName)
		for _, opt := range state.Options() {
			fmt.Fprintf(out, "  %d) %s  %s  (%d%% match)\n", opt.Index+1, opt.Name, opt.UPI, opt.MatchPercent)
		}

		answer, err := ask("Pick a number (empty to cancel): ")
		if err != nil || answer == "" {
			session.Controller.Cancel()
			fmt.Fprintln(out, "Transfer cancelled.")
			return err
		}
		n, convErr := strconv.Atoi(answer)
		if convErr != nil {
			n = 0
		}
		state, err = session.Controller.SelectCandidate(n - 1)
		if err != nil {
			session.Controller.Cancel()
			return err
		}
	}

	contact := state.Pending.SelectedContact
	if !assumeYes {
		answer, err := ask(fmt.Sprintf("Send %s to %s (%s)? [y/N] ", utils.FormatRupees(state.Pending.Amount), contact.Name, contact.UPI))
		if err != nil || !isYes(answer) {
			session.Controller.Cancel()
			fmt.Fprintln(out, "Transfer cancelled.")
			return err
		}
	}

	state, err = session.Controller.Confirm(ctx)
	if err != nil {
		return err
	}
	tx := state.Transaction
	fmt.Fprintf(out, "Sent %s to %s (transaction %s)\n", utils.FormatRupees(tx.Amount), tx.Receiver, tx.ID)
	return nil
}

func isYes(answer string) bool {
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}
