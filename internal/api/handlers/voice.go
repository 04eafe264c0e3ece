package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/oatsaysai/voice-upi/internal/api/middleware"
	"github.com/oatsaysai/voice-upi/internal/models"
	"github.com/oatsaysai/voice-upi/internal/voice"
)

// VoiceHandler exposes the voice transfer flow. The browser recognises speech
// and posts the final transcript; each X-Session-ID gets its own controller.
type VoiceHandler struct {
	sessions *voice.Sessions
	log      zerolog.Logger
}

// NewVoiceHandler creates a new voice handler.
func NewVoiceHandler(sessions *voice.Sessions, log zerolog.Logger) *VoiceHandler {
	return &VoiceHandler{sessions: sessions, log: log}
}

// StateResponse is the JSON view of a voice session state
type StateResponse struct {
	Phase       string                     `json:"phase"`
	Pending     *models.PendingTransaction `json:"pending,omitempty"`
	Candidates  []models.CandidateOption   `json:"candidates,omitempty"`
	Transaction *models.Transaction        `json:"transaction,omitempty"`
	Error       string                     `json:"error,omitempty"`
}

func newStateResponse(s voice.State) StateResponse {
	resp := StateResponse{
		Phase:       s.Phase.String(),
		Pending:     s.Pending,
		Transaction: s.Transaction,
	}
	if len(s.Candidates) > 0 {
		resp.Candidates = s.Options()
	}
	if s.Err != nil {
		resp.Error = messageFor(s.Err)
	}
	return resp
}

func (h *VoiceHandler) session(w http.ResponseWriter, r *http.Request) (*voice.Session, bool) {
	id := strings.TrimSpace(r.Header.Get(middleware.SessionHeader))
	if id == "" {
		middleware.WriteError(w, http.StatusBadRequest, middleware.SessionHeader+" header is required")
		return nil, false
	}
	return h.sessions.Get(id), true
}

// respond writes the outcome of a command. Flow outcomes such as not-found or a
// failed transfer are reported with the state so the client can render them.
func (h *VoiceHandler) respond(w http.ResponseWriter, state voice.State, err error) {
	if err == nil {
		middleware.WriteJSON(w, http.StatusOK, newStateResponse(state))
		return
	}

	var recErr *voice.RecognitionError
	if errors.As(err, &recErr) {
		middleware.WriteJSON(w, http.StatusUnprocessableEntity, StateResponse{Phase: state.Phase.String(), Error: string(recErr.Kind)})
		return
	}

	if state.Err == nil {
		state.Err = err
	}
	middleware.WriteJSON(w, statusFor(err), newStateResponse(state))
}

// Transcript handles POST /api/voice/transcript {"transcript": "..."}
func (h *VoiceHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := session.Speak(r.Context(), voice.TranscriptRecognizer(req.Transcript))
	h.respond(w, state, err)
}

// Select handles POST /api/voice/select {"index": n}
func (h *VoiceHandler) Select(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Index *int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		middleware.WriteError(w, http.StatusBadRequest, "index is required")
		return
	}

	state, err := session.Controller.SelectCandidate(*req.Index)
	h.respond(w, state, err)
}

// Confirm handles POST /api/voice/confirm
func (h *VoiceHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	state, err := session.Controller.Confirm(r.Context())
	h.respond(w, state, err)
}

// Cancel handles POST /api/voice/cancel
func (h *VoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	session.Listener.Stop()
	h.respond(w, session.Controller.Cancel(), nil)
}

// State handles GET /api/voice/state
func (h *VoiceHandler) State(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respond(w, session.Controller.State(), nil)
}
