// Package api wires the HTTP endpoints of the payment server.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/oatsaysai/voice-upi/internal/api/handlers"
	"github.com/oatsaysai/voice-upi/internal/api/middleware"
	"github.com/oatsaysai/voice-upi/internal/db"
	"github.com/oatsaysai/voice-upi/internal/voice"
)

// Deps are the collaborators the router needs
type Deps struct {
	Store    db.Store
	Sessions *voice.Sessions
	Orders   handlers.OrderCreator
	QRScheme string
	QRDir    string
	Currency string
	Log      zerolog.Logger
}

// NewRouter builds the HTTP handler with all routes and middleware
func NewRouter(deps Deps) http.Handler {
	log := deps.Log
	ledger := handlers.NewLedgerHandler(deps.Store, log)
	payments := handlers.NewPaymentsHandler(deps.Store, deps.Orders, deps.QRScheme, deps.QRDir, deps.Currency, log)
	imports := handlers.NewImportHandler(deps.Store, log)
	voiceHandler := handlers.NewVoiceHandler(deps.Sessions, log)

	mux := http.NewServeMux()

	// Ledger endpoints
	mux.HandleFunc("/api/getBalance", only(http.MethodGet, ledger.GetBalance))
	mux.HandleFunc("/api/getTransactions", only(http.MethodGet, ledger.GetTransactions))
	mux.HandleFunc("/api/getContacts", only(http.MethodGet, ledger.GetContacts))
	mux.HandleFunc("/api/sendMoney", only(http.MethodPost, ledger.SendMoney))
	mux.HandleFunc("/api/addContact", only(http.MethodPost, ledger.AddContact))
	mux.HandleFunc("/api/deleteContact/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		// Extract contact name from path
		name := strings.TrimPrefix(r.URL.Path, "/api/deleteContact/")
		if strings.TrimSpace(name) == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Contact name is required")
			return
		}
		ledger.DeleteContact(w, r, name)
	})
	mux.HandleFunc("/api/validateContactUPI", only(http.MethodPost, ledger.ValidateContactUPI))
	mux.HandleFunc("/api/validateUPI", only(http.MethodPost, ledger.ValidateUPI))
	mux.HandleFunc("/api/importContacts", only(http.MethodPost, imports.ImportContacts))

	// Payment endpoints
	mux.HandleFunc("/api/createOrder", only(http.MethodPost, payments.CreateOrder))
	mux.HandleFunc("/api/paymentQR", only(http.MethodGet, payments.PaymentQR))

	// Voice endpoints
	mux.HandleFunc("/api/voice/transcript", only(http.MethodPost, voiceHandler.Transcript))
	mux.HandleFunc("/api/voice/select", only(http.MethodPost, voiceHandler.Select))
	mux.HandleFunc("/api/voice/confirm", only(http.MethodPost, voiceHandler.Confirm))
	mux.HandleFunc("/api/voice/cancel", only(http.MethodPost, voiceHandler.Cancel))
	mux.HandleFunc("/api/voice/state", only(http.MethodGet, voiceHandler.State))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS,
	)
}

func only(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}
