package voice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oatsaysai/voice-upi/internal/logger"
)

type blockingRecognizer struct {
	started chan struct{}
}

func (b blockingRecognizer) Recognize(ctx context.Context) (string, error) {
	close(b.started)
	<-ctx.Done()
	return "", ctx.Err()
}

// stubbornRecognizer ignores ctx and answers once released
type stubbornRecognizer struct {
	started chan struct{}
	release chan struct{}
	text    string
}

func (r stubbornRecognizer) Recognize(ctx context.Context) (string, error) {
	close(r.started)
	<-r.release
	return r.text, nil
}

type failingRecognizer struct{ err error }

func (f failingRecognizer) Recognize(ctx context.Context) (string, error) {
	return "", f.err
}

func TestTranscriptRecognizer(t *testing.T) {
	text, err := TranscriptRecognizer(" send 5 to Sita ").Recognize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "send 5 to Sita", text)

	_, err = TranscriptRecognizer("  ").Recognize(context.Background())
	var recErr *RecognitionError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, RecognitionNoSpeech, recErr.Kind)
}

func TestListener_NewListenCancelsPrevious(t *testing.T) {
	l := &Listener{}
	first := blockingRecognizer{started: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, err := l.Listen(context.Background(), first)
		done <- err
	}()
	<-first.started

	text, err := l.Listen(context.Background(), TranscriptRecognizer("pay 1 to Ram"))
	require.NoError(t, err)
	assert.Equal(t, "pay 1 to Ram", text)

	select {
	case err := <-done:
		var recErr *RecognitionError
		require.ErrorAs(t, err, &recErr)
		assert.Equal(t, RecognitionAborted, recErr.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("first recognition was not cancelled")
	}
}

func TestListener_DropsSupersededTranscript(t *testing.T) {
	l := &Listener{}
	first := stubbornRecognizer{started: make(chan struct{}), release: make(chan struct{}), text: "send 100 to Ramesh"}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := l.Listen(context.Background(), first)
		done <- result{text, err}
	}()
	<-first.started

	text, err := l.Listen(context.Background(), TranscriptRecognizer("send 200 to Sita"))
	require.NoError(t, err)
	assert.Equal(t, "send 200 to Sita", text)

	close(first.release)
	res := <-done
	assert.Empty(t, res.text)
	var recErr *RecognitionError
	require.ErrorAs(t, res.err, &recErr)
	assert.Equal(t, RecognitionAborted, recErr.Kind)
	assert.ErrorIs(t, res.err, ErrSuperseded)
}

func TestListener_StopDropsLateTranscript(t *testing.T) {
	l := &Listener{}
	r := stubbornRecognizer{started: make(chan struct{}), release: make(chan struct{}), text: "send 100 to Ramesh"}

	done := make(chan error, 1)
	go func() {
		_, err := l.Listen(context.Background(), r)
		done <- err
	}()
	<-r.started
	l.Stop()
	close(r.release)

	var recErr *RecognitionError
	require.ErrorAs(t, <-done, &recErr)
	assert.Equal(t, RecognitionAborted, recErr.Kind)
}

func TestSession_SupersededSpeakKeepsNewerFlow(t *testing.T) {
	sessions := NewSessions(newFakeLedger(5000, ramesh, sita, ram), nil, logger.Nop())
	s := sessions.Get("u1")
	stale := stubbornRecognizer{started: make(chan struct{}), release: make(chan struct{}), text: "send 100 to Ramesh"}

	done := make(chan error, 1)
	go func() {
		_, err := s.Speak(context.Background(), stale)
		done <- err
	}()
	<-stale.started

	state, err := s.Speak(context.Background(), TranscriptRecognizer("send 200 to Sita"))
	require.NoError(t, err)
	require.Equal(t, PhaseConfirmationPending, state.Phase)

	close(stale.release)
	assert.ErrorIs(t, <-done, ErrSuperseded)

	current := s.Controller.State()
	assert.Equal(t, PhaseConfirmationPending, current.Phase)
	assert.Equal(t, int64(200), current.Pending.Amount)
	assert.Equal(t, "Sita", current.Pending.SelectedContact.Name)
}

func TestListener_Stop(t *testing.T) {
	l := &Listener{}
	r := blockingRecognizer{started: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, err := l.Listen(context.Background(), r)
		done <- err
	}()
	<-r.started
	l.Stop()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("recognition was not stopped")
	}
}

func TestListener_WrapsEngineErrors(t *testing.T) {
	_, err := (&Listener{}).Listen(context.Background(), failingRecognizer{err: errors.New("mic unplugged")})
	var recErr *RecognitionError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, RecognitionOther, recErr.Kind)

	denied := &RecognitionError{Kind: RecognitionPermissionDenied}
	_, err = (&Listener{}).Listen(context.Background(), failingRecognizer{err: denied})
	assert.Same(t, denied, err)
}

func TestSession_SpeakRecognitionErrorDropsPending(t *testing.T) {
	sessions := NewSessions(newFakeLedger(5000, ramesh, sita, ram), nil, logger.Nop())
	s := sessions.Get("u1")

	state, err := s.Speak(context.Background(), TranscriptRecognizer("send 10 to ram"))
	require.NoError(t, err)
	assert.Equal(t, PhaseAmbiguityPending, state.Phase)

	state, err = s.Speak(context.Background(), failingRecognizer{err: &RecognitionError{Kind: RecognitionNetwork}})
	assert.Error(t, err)
	assert.Equal(t, PhaseFailed, state.Phase)
	assert.Equal(t, PhaseIdle, s.Controller.State().Phase)
}

func TestSessions(t *testing.T) {
	sessions := NewSessions(newFakeLedger(5000, ramesh), nil, logger.Nop())

	a := sessions.Get("a")
	assert.Same(t, a, sessions.Get("a"))
	assert.NotSame(t, a, sessions.Get("b"))
	assert.Equal(t, 2, sessions.Len())

	_, err := a.Controller.SubmitTranscript(context.Background(), "send 1 to Ramesh")
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, sessions.Get("b").Controller.State().Phase)

	sessions.Delete("a")
	assert.Equal(t, 1, sessions.Len())
	assert.NotSame(t, a, sessions.Get("a"))
}
