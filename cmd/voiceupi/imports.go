package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oatsaysai/voice-upi/internal/db"
	"github.com/oatsaysai/voice-upi/internal/upi"
)

func importVCFCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "import-vcf <file.vcf>",
		Short: "Import contacts from a vCard file",
		Long: `Import every card that has a name and a mobile number. The UPI ID is read
from the X-UPI field; cards without one get <name>@upi. Names already in the
directory are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			contacts, err := upi.ImportVCards(cmd.Context(), f, a.log)
			if err != nil {
				return err
			}
			result, err := db.AddContacts(cmd.Context(), a.store, contacts)
			out := cmd.OutOrStdout()
			for _, c := range result.Added {
				fmt.Fprintf(out, "Added   %s (%s, %s)\n", c.Name, c.Mobile, c.UPI)
			}
			for _, name := range result.Skipped {
				fmt.Fprintf(out, "Skipped %s (already saved)\n", name)
			}
			return err
		},
	}
}

func importQRCmd(open opener) *cobra.Command {
	var mobile string

	cmd := &cobra.Command{
		Use:   "import-qr <image>",
		Short: "Save the payee of a UPI QR image as a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			contact, err := upi.ContactFromQR(f)
			if err != nil {
				return err
			}
			if mobile != "" {
				contact.Mobile = upi.NormalizeMobile(mobile)
				if err := upi.ValidateMobile(contact.Mobile); err != nil {
					return err
				}
			}

			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.AddContact(cmd.Context(), contact); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", contact.Name, contact.UPI)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mobile, "mobile", "m", "", "Mobile number to store with the contact")

	return cmd
}

func qrCmd(open opener) *cobra.Command {
	var (
		scheme string
		dir    string
		note   string
	)

	cmd := &cobra.Command{
		Use:     "qr <name> [amount]",
		Short:   "Write a payment QR image for a contact",
		Example: "  voiceupi qr Ramesh 250 --dir /tmp",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var amount int64
			if len(args) == 2 {
				n, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil || n < 0 {
					return fmt.Errorf("invalid amount %q", args[1])
				}
				amount = n
			}

			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			contact, err := db.LookupContact(cmd.Context(), a.store, args[0])
			if err != nil {
				return err
			}
			if scheme == "" {
				scheme = a.cfg.Payment.QRScheme
			}
			if dir == "" {
				dir = a.cfg.Payment.QRDir
			}

			filename, err := upi.GeneratePaymentQR(scheme, contact, amount, note, dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), filename)
			return nil
		},
	}

	cmd.Flags().StringVar(&scheme, "scheme", "", "QR payload scheme: upi or promptpay (default from config)")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory for the image (default from config)")
	cmd.Flags().StringVar(&note, "note", "", "Payment note embedded in a UPI link")

	return cmd
}
