package models

import (
	"time"
)

// SenderSelf is the sender recorded on every outgoing transfer
const SenderSelf = "self"

// Contact is one entry of the payee directory. Name is the case-insensitive key.
type Contact struct {
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
	UPI    string `json:"upi"`
}

// Intent is the structured form of a recognised transfer sentence
type Intent struct {
	Amount           int64  `json:"amount"`
	RawRecipientName string `json:"name"`
}

// Candidate pairs a contact with how closely it matched a search name
type Candidate struct {
	Contact Contact `json:"contact"`
	Score   float64 `json:"similarity"`
}

// PendingTransaction is the transfer held by a voice session until it is confirmed or cancelled
type PendingTransaction struct {
	Amount           int64    `json:"amount"`
	RawRecipientName string   `json:"name"`
	SelectedContact  *Contact `json:"contact,omitempty"`
}

// Transaction is an immutable ledger record of a completed debit.
// BalanceAfter is the balance left by this debit, read in the same critical section.
type Transaction struct {
	ID           string    `json:"id"`
	Sender       string    `json:"sender"`
	Receiver     string    `json:"receiver"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balanceAfter"`
	Timestamp    time.Time `json:"date"`
}

// User is the login profile of the account holder
type User struct {
	Name      string    `json:"name"`
	Mobile    string    `json:"mobile"`
	UPI       string    `json:"upi"`
	Verified  bool      `json:"isVerified"`
	CreatedAt time.Time `json:"createdAt"`
	LastLogin time.Time `json:"lastLogin"`
}
