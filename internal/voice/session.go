package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// RecognitionErrorKind classifies a speech engine failure
type RecognitionErrorKind string

const (
	RecognitionPermissionDenied RecognitionErrorKind = "permission-denied"
	RecognitionNoSpeech         RecognitionErrorKind = "no-speech"
	RecognitionAudioCapture     RecognitionErrorKind = "audio-capture"
	RecognitionNetwork          RecognitionErrorKind = "network"
	RecognitionAborted          RecognitionErrorKind = "aborted"
	RecognitionOther            RecognitionErrorKind = "other"
)

// RecognitionError ends a listen without producing a transcript
type RecognitionError struct {
	Kind RecognitionErrorKind
	Err  error
}

func (e *RecognitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("speech recognition failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("speech recognition failed (%s)", e.Kind)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// Recognizer produces one final transcript per call
type Recognizer interface {
	Recognize(ctx context.Context) (string, error)
}

// TranscriptRecognizer is a transcript already recognised elsewhere, e.g. by a
// browser or typed into chat
type TranscriptRecognizer string

// Recognize returns the transcript, or no-speech when it is blank
func (t TranscriptRecognizer) Recognize(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &RecognitionError{Kind: RecognitionAborted, Err: err}
	}
	text := strings.TrimSpace(string(t))
	if text == "" {
		return "", &RecognitionError{Kind: RecognitionNoSpeech}
	}
	return text, nil
}

// ErrSuperseded marks a recognition replaced by a newer Listen on the same Listener
var ErrSuperseded = errors.New("recognition superseded by a newer one")

// Listener runs at most one recognition at a time. Starting a new one cancels the previous.
type Listener struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

// Listen cancels any in-flight recognition and runs r
func (l *Listener) Listen(ctx context.Context, r Recognizer) (string, error) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	l.gen++
	gen := l.gen
	l.cancel = cancel
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		if l.gen == gen {
			l.cancel = nil
		}
		l.mu.Unlock()
		cancel()
	}()

	text, err := r.Recognize(ctx)

	// A recognizer that ignores ctx can still return after being replaced or
	// stopped; its result is dropped.
	l.mu.Lock()
	superseded := l.gen != gen
	l.mu.Unlock()
	if superseded {
		return "", &RecognitionError{Kind: RecognitionAborted, Err: ErrSuperseded}
	}
	if err == nil && ctx.Err() != nil {
		return "", &RecognitionError{Kind: RecognitionAborted, Err: ctx.Err()}
	}

	if err != nil {
		var recErr *RecognitionError
		if errors.As(err, &recErr) {
			return "", err
		}
		if ctx.Err() != nil {
			return "", &RecognitionError{Kind: RecognitionAborted, Err: err}
		}
		return "", &RecognitionError{Kind: RecognitionOther, Err: err}
	}
	return text, nil
}

// Stop cancels the in-flight recognition, if any
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// Session is one user's voice pipeline: a listener feeding a controller
type Session struct {
	ID         string
	Listener   *Listener
	Controller *Controller
}

// Speak listens once and submits the transcript. A recognition error drops any
// pending flow and is returned as a failed state.
func (s *Session) Speak(ctx context.Context, r Recognizer) (State, error) {
	text, err := s.Listener.Listen(ctx, r)
	if errors.Is(err, ErrSuperseded) {
		// the newer recognition owns the controller now
		return State{Phase: PhaseFailed, Err: err}, err
	}
	if err != nil {
		s.Controller.Reset()
		return State{Phase: PhaseFailed, Err: err}, err
	}
	return s.Controller.SubmitTranscript(ctx, text)
}

// Sessions keeps one Session per key (Discord user, HTTP session id, ...)
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ledger   Ledger
	resolver *Resolver
	log      zerolog.Logger
}

// NewSessions creates an empty registry whose sessions share ledger and resolver
func NewSessions(ledger Ledger, resolver *Resolver, log zerolog.Logger) *Sessions {
	return &Sessions{
		sessions: make(map[string]*Session),
		ledger:   ledger,
		resolver: resolver,
		log:      log,
	}
}

// Get returns the session for id, creating it on first use
func (s *Sessions) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[id]; ok {
		return session
	}

	log := s.log.With().Str("session_id", id).Logger()
	session := &Session{
		ID:         id,
		Listener:   &Listener{},
		Controller: NewController(s.ledger, s.resolver, log),
	}
	s.sessions[id] = session
	return session
}

// Delete stops and forgets the session for id
func (s *Sessions) Delete(id string) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		session.Listener.Stop()
		session.Controller.Reset()
	}
}

// Len returns the number of live sessions
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
