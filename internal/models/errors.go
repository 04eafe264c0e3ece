package models

import "errors"

var (
	// ErrParse means the transcript did not contain a "send/pay <amount> ... <name>" command
	ErrParse = errors.New("could not understand the command, try: 'Send 500 to Ramesh'")
	// ErrContactNotFound means no contact scored above the match threshold, or a named contact is absent
	ErrContactNotFound = errors.New("contact not found")
	// ErrInsufficientBalance means the balance is lower than the requested amount
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrRecipientRemoved means the selected contact left the directory before confirmation
	ErrRecipientRemoved = errors.New("recipient no longer in contacts")
	// ErrStoreUnavailable wraps storage and network failures of the ledger/directory store
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrDuplicateContact = errors.New("contact already exists")

	ErrInvalidTransition = errors.New("action not allowed in current state")
	ErrInvalidSelection  = errors.New("invalid candidate selection")

	ErrInvalidHandle = errors.New("invalid UPI ID format, use format: name@upi")
	ErrInvalidMobile = errors.New("invalid mobile number")
	// ErrHandleMismatch means a UPI handle does not look like it belongs to the named contact
	ErrHandleMismatch = errors.New("UPI ID does not match the provided name, please verify that the UPI ID belongs to this contact")
)
