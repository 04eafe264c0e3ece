package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/oatsaysai/voice-upi/internal/api/middleware"
	"github.com/oatsaysai/voice-upi/internal/db"
	"github.com/oatsaysai/voice-upi/internal/models"
	"github.com/oatsaysai/voice-upi/internal/upi"
	"github.com/oatsaysai/voice-upi/internal/voice"
)

// LedgerHandler serves balance, history, contacts and direct transfers
type LedgerHandler struct {
	store    db.Store
	executor *voice.Executor
	log      zerolog.Logger
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(store db.Store, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{
		store:    store,
		executor: voice.NewExecutor(store, log),
		log:      log,
	}
}

// GetBalance handles GET /api/getBalance
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.store.GetBalance(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read balance")
		writeDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

// GetTransactions handles GET /api/getTransactions, newest first
func (h *LedgerHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.store.GetTransactions(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		writeDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}

// GetContacts handles GET /api/getContacts
func (h *LedgerHandler) GetContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.store.GetContacts(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list contacts")
		writeDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"contacts": contacts})
}

// SendMoney handles POST /api/sendMoney for a transfer to an exactly named contact
func (h *LedgerHandler) SendMoney(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount       int64  `json:"amount"`
		ReceiverName string `json:"receiverName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	ctx := r.Context()
	receiver, err := db.LookupContact(ctx, h.store, req.ReceiverName)
	if err != nil {
		if errors.Is(err, models.ErrContactNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Receiver not found in contacts")
			return
		}
		writeDomainError(w, err)
		return
	}

	tx, err := h.executor.Execute(ctx, receiver, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"balance":     tx.BalanceAfter,
		"transaction": tx,
	})
}

type contactRequest struct {
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
	UPI    string `json:"upi"`
}

func (c contactRequest) contact() models.Contact {
	return models.Contact{
		Name:   strings.TrimSpace(c.Name),
		Mobile: strings.TrimSpace(c.Mobile),
		UPI:    strings.TrimSpace(c.UPI),
	}
}

// AddContact handles POST /api/addContact
func (h *LedgerHandler) AddContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	contact := req.contact()
	if contact.Name == "" || contact.Mobile == "" || contact.UPI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Name, mobile, and UPI are required")
		return
	}

	if err := h.store.AddContact(r.Context(), contact); err != nil {
		if !errors.Is(err, models.ErrDuplicateContact) {
			h.log.Error().Err(err).Str("name", contact.Name).Msg("Failed to add contact")
		}
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "contact": contact})
}

// DeleteContact handles DELETE /api/deleteContact/{name}
func (h *LedgerHandler) DeleteContact(w http.ResponseWriter, r *http.Request, name string) {
	if err := h.store.DeleteContact(r.Context(), name); err != nil {
		writeDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ValidateContactUPI handles POST /api/validateContactUPI.
// The name check only catches typos; it proves nothing about who owns the handle.
func (h *LedgerHandler) ValidateContactUPI(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	contact := req.contact()
	if contact.Name == "" || contact.Mobile == "" || contact.UPI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Name, mobile, and UPI ID are required")
		return
	}

	if err := upi.ValidateContact(contact); err != nil {
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"isValid": true,
		"message": "UPI ID validated successfully",
		"details": contact,
	})
}

// ValidateUPI handles POST /api/validateUPI, the login step that records the user profile
func (h *LedgerHandler) ValidateUPI(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	profile := req.contact()
	if profile.Name == "" || profile.Mobile == "" || profile.UPI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "UPI ID, mobile number, and name are required")
		return
	}
	if err := upi.ValidateHandle(profile.UPI); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := upi.ValidateMobile(profile.Mobile); err != nil {
		writeDomainError(w, err)
		return
	}

	user, err := h.store.UpsertUser(r.Context(), models.User{Name: profile.Name, Mobile: profile.Mobile, UPI: profile.UPI})
	if err != nil {
		h.log.Error().Err(err).Str("upi", profile.UPI).Msg("Failed to save user")
		writeDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "UPI ID validated successfully",
		"user":    user,
	})
}
