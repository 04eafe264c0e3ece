package discord

// registerCommands registers every bot command
func (b *Bot) registerCommands() {
	// Voice pipeline
	b.RegisterCommand(CommandDefinition{
		Name:        "say",
		Description: "Send money by sentence, as if spoken",
		Usage:       "!say <send|pay> <amount> [rupees] [to] <name>",
		Examples:    []string{"!say send 500 to Ramesh", "!say pay 200 rupees to sita"},
		Handler:     b.handleSay,
	})
	b.RegisterCommand(CommandDefinition{
		Name:        "cancel",
		Description: "Cancel your pending transfer",
		Usage:       "!cancel",
		Handler:     b.handleCancel,
	})

	// Ledger
	b.RegisterCommand(CommandDefinition{
		Name:        "balance",
		Description: "Show the account balance",
		Usage:       "!balance",
		Handler:     b.handleBalance,
	})
	b.RegisterCommand(CommandDefinition{
		Name:        "history",
		Description: "Show recent transactions, newest first",
		Usage:       "!history [count]",
		Examples:    []string{"!history", "!history 20"},
		Handler:     b.handleHistory,
	})

	// Contacts
	b.RegisterCommand(CommandDefinition{
		Name:        "contacts",
		Description: "List saved contacts",
		Usage:       "!contacts",
		Handler:     b.handleContacts,
	})
	b.RegisterCommand(CommandDefinition{
		Name:        "addcontact",
		Description: "Save a contact",
		Usage:       "!addcontact <name> <mobile> <upi>",
		Examples:    []string{"!addcontact Ravi Kumar 9876543210 ravi.kumar@okaxis"},
		Handler:     b.handleAddContact,
	})
	b.RegisterCommand(CommandDefinition{
		Name:        "deletecontact",
		Description: "Remove a contact",
		Usage:       "!deletecontact <name>",
		Examples:    []string{"!deletecontact Ravi Kumar"},
		Handler:     b.handleDeleteContact,
	})
	b.RegisterCommand(CommandDefinition{
		Name:        "importqr",
		Description: "Save the payee of an attached UPI QR image as a contact",
		Usage:       "!importqr [mobile] (attach a QR image)",
		Handler:     b.handleImportQR,
	})
	b.RegisterCommand(CommandDefinition{
		Name:        "importvcf",
		Description: "Import contacts from an attached .vcf file",
		Usage:       "!importvcf (attach a .vcf file)",
		Handler:     b.handleImportVCF,
	})

	// Payments
	b.RegisterCommand(CommandDefinition{
		Name:        "payqr",
		Description: "Generate a payment QR for a contact",
		Usage:       "!payqr <name> [amount]",
		Examples:    []string{"!payqr Ramesh", "!payqr Sita 250"},
		Handler:     b.handlePayQR,
	})

	b.RegisterCommand(CommandDefinition{
		Name:        "help",
		Description: "Show help information about available commands",
		Usage:       "!help [command]",
		Examples:    []string{"!help", "!help say"},
		Handler:     b.handleHelp,
	})
}
