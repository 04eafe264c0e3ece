package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/oatsaysai/voice-upi/internal/api/middleware"
	"github.com/oatsaysai/voice-upi/internal/db"
	"github.com/oatsaysai/voice-upi/internal/models"
	"github.com/oatsaysai/voice-upi/internal/upi"
	"github.com/oatsaysai/voice-upi/pkg/razorpay"
)

// OrderCreator creates payment gateway orders
type OrderCreator interface {
	CreateOrder(ctx context.Context, rupees int64, currency, receipt string) (*razorpay.Order, error)
}

// PaymentsHandler serves gateway orders and payment-request QR codes
type PaymentsHandler struct {
	store    db.Store
	orders   OrderCreator
	qrScheme string
	qrDir    string
	currency string
	log      zerolog.Logger
}

// NewPaymentsHandler creates a new payments handler. orders may be nil when no gateway is configured.
func NewPaymentsHandler(store db.Store, orders OrderCreator, qrScheme, qrDir, currency string, log zerolog.Logger) *PaymentsHandler {
	if currency == "" {
		currency = "INR"
	}
	return &PaymentsHandler{
		store:    store,
		orders:   orders,
		qrScheme: qrScheme,
		qrDir:    qrDir,
		currency: currency,
		log:      log,
	}
}

// CreateOrder handles POST /api/createOrder
func (h *PaymentsHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if h.orders == nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Razorpay not configured on server")
		return
	}

	var req struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Receipt  string `json:"receipt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	if req.Currency == "" {
		req.Currency = h.currency
	}
	if req.Receipt == "" {
		req.Receipt = fmt.Sprintf("rcpt_%d", time.Now().UnixMilli())
	}

	order, err := h.orders.CreateOrder(r.Context(), req.Amount, req.Currency, req.Receipt)
	if err != nil {
		if errors.Is(err, razorpay.ErrNotConfigured) {
			middleware.WriteError(w, http.StatusInternalServerError, "Razorpay not configured on server")
			return
		}
		h.log.Error().Err(err).Int64("amount", req.Amount).Msg("createOrder failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create order")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "order": order})
}

// PaymentQR handles GET /api/paymentQR?name=<contact>&amount=<rupees>&note=<text>
// and responds with a PNG payment-request QR code
func (h *PaymentsHandler) PaymentQR(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	var amount int64
	if raw := q.Get("amount"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid amount")
			return
		}
		amount = parsed
	}

	contact, err := db.LookupContact(r.Context(), h.store, name)
	if err != nil {
		if errors.Is(err, models.ErrContactNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Contact not found")
			return
		}
		writeDomainError(w, err)
		return
	}

	filename, err := upi.GeneratePaymentQR(h.qrScheme, contact, amount, q.Get("note"), h.qrDir)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer os.Remove(filename)

	data, err := os.ReadFile(filename)
	if err != nil {
		h.log.Error().Err(err).Str("file", filename).Msg("Failed to read QR code")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
