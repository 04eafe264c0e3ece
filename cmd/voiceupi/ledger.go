package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oatsaysai/voice-upi/internal/models"
	"github.com/oatsaysai/voice-upi/internal/upi"
	"github.com/oatsaysai/voice-upi/internal/utils"
)

func balanceCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the account balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			balance, err := a.store.GetBalance(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Balance: %s\n", utils.FormatRupees(balance))
			return nil
		},
	}
}

func historyCmd(open opener) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			txs, err := a.store.GetTransactions(cmd.Context())
			if err != nil {
				return err
			}
			printTransactions(cmd.OutOrStdout(), txs, limit)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum transactions to show (0 for all)")

	return cmd
}

func contactsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "contacts",
		Short: "List saved contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			contacts, err := a.store.GetContacts(cmd.Context())
			if err != nil {
				return err
			}
			printContacts(cmd.OutOrStdout(), contacts)
			return nil
		},
	}
}

func addContactCmd(open opener) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:     "add-contact <name> <mobile> <upi>",
		Short:   "Save a contact",
		Example: `  voiceupi add-contact "Ravi Kumar" 9876543210 ravi.kumar@okaxis`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			contact := models.Contact{
				Name:   strings.TrimSpace(args[0]),
				Mobile: upi.NormalizeMobile(args[1]),
				UPI:    strings.ToLower(strings.TrimSpace(args[2])),
			}
			check := func(c models.Contact) error {
				if err := upi.ValidateMobile(c.Mobile); err != nil {
					return err
				}
				return upi.ValidateHandle(c.UPI)
			}
			if strict {
				check = upi.ValidateContact
			}
			if err := check(contact); err != nil {
				return err
			}

			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.AddContact(cmd.Context(), contact); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s, %s)\n", contact.Name, contact.Mobile, contact.UPI)
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Reject a UPI ID that does not resemble the name")

	return cmd
}

func deleteContactCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-contact <name>",
		Short: "Remove a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.DeleteContact(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func printTransactions(w io.Writer, txs []models.Transaction, limit int) {
	if len(txs) == 0 {
		fmt.Fprintln(w, "No transactions yet.")
		return
	}
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	for _, tx := range txs {
		fmt.Fprintf(w, "%s  %-20s %-12s %s\n", tx.Timestamp.Local().Format("2006-01-02 15:04"), tx.Receiver, utils.FormatRupees(tx.Amount), tx.ID)
	}
}

func printContacts(w io.Writer, contacts []models.Contact) {
	if len(contacts) == 0 {
		fmt.Fprintln(w, "No contacts saved.")
		return
	}
	for _, c := range contacts {
		fmt.Fprintf(w, "%-20s %-12s %s\n", c.Name, c.Mobile, c.UPI)
	}
}
