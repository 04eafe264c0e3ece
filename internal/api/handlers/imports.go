package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/oatsaysai/voice-upi/internal/api/middleware"
	"github.com/oatsaysai/voice-upi/internal/db"
	"github.com/oatsaysai/voice-upi/internal/upi"
)

// maxImportBytes bounds an uploaded .vcf file
const maxImportBytes = 1 << 20

// ImportHandler adds contacts from external address books
type ImportHandler struct {
	store db.Store
	log   zerolog.Logger
}

// NewImportHandler creates a new import handler.
func NewImportHandler(store db.Store, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{store: store, log: log}
}

// ImportContacts handles POST /api/importContacts with a vCard body.
// Contacts whose name already exists are skipped.
func (h *ImportHandler) ImportContacts(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	contacts, err := upi.ImportVCards(r.Context(), body, h.log)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid vCard data")
		return
	}

	result, err := db.AddContacts(r.Context(), h.store, contacts)
	if err != nil {
		h.log.Error().Err(err).Msg("Contact import aborted")
		writeDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}
