// Package speech manages a single speech-capture session on top of an
// stt.Recognizer and surfaces interim and finalized transcript text.
package speech

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"speech-sentiment-service/internal/models"
	"speech-sentiment-service/internal/observability/logging"
	"speech-sentiment-service/internal/observability/metrics"
	"speech-sentiment-service/internal/service/stt"
)

// ResultListener receives each recognition result together with the
// transcript after the result was applied.
type ResultListener func(result stt.Result, transcript models.TranscriptState)

// ErrorListener receives the recording error of a session.
type ErrorListener func(err *Error)

// EndListener is notified when a session terminates on its own.
type EndListener func()

// Manager owns at most one recognizer session at a time.
//
// State transitions:
//
//	IDLE ──Start()──→ RECORDING ──Stop() / OnError / OnEnd──→ IDLE
//	  │
//	  └── Initialize() without capability ──→ UNSUPPORTED (terminal)
//
// Every Start opens a new generation; events carrying an older generation
// are discarded, so nothing from a stopped session reaches listeners.
// Listener calls are serialized and never made while holding the state lock,
// so listeners may call back into the Manager.
type Manager struct {
	factory stt.Factory
	log     zerolog.Logger
	metrics *metrics.Metrics

	mu         sync.Mutex
	state      State
	rec        stt.Recognizer
	gen        uint64
	errored    bool
	destroyed  bool
	sessionID  string
	startedAt  time.Time
	transcript models.TranscriptState

	deliverMu sync.Mutex
	results   listeners[ResultListener]
	errs      listeners[ErrorListener]
	ends      listeners[EndListener]
}

// New creates a Manager. A nil factory means no recognition capability.
func New(factory stt.Factory) *Manager {
	return &Manager{
		factory: factory,
		log:     logging.WithComponent("speech"),
		metrics: metrics.DefaultMetrics,
	}
}

// Initialize builds the recognizer. It fails with a CapabilityError when no
// capability exists, leaving the manager Unsupported. Calling it again after
// success is a no-op.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initLocked()
}

func (m *Manager) initLocked() error {
	if m.destroyed {
		return capabilityError(ErrDestroyed)
	}
	if m.state == StateUnsupported {
		return capabilityError(stt.ErrUnsupported)
	}
	if m.rec != nil {
		return nil
	}

	if m.factory == nil {
		return m.unsupportedLocked(stt.ErrUnsupported)
	}
	rec, err := m.factory()
	if errors.Is(err, stt.ErrUnsupported) {
		return m.unsupportedLocked(err)
	}
	if err != nil {
		m.log.Error().Err(err).Msg("Failed to build recognizer")
		return capabilityError(err)
	}

	m.rec = rec
	m.log.Debug().Str("language", stt.LanguageCode).Msg("Recognizer initialized")
	return nil
}

func (m *Manager) unsupportedLocked(cause error) error {
	m.state = StateUnsupported
	m.metrics.SpeechCapabilityMissing.Inc()
	m.log.Warn().Err(cause).Msg("Speech recognition capability unavailable")
	return capabilityError(cause)
}

// Start begins a recording session, initializing the recognizer first if
// needed. It returns a StartError wrapping ErrAlreadyRecording when a session
// is already active. The session outlives ctx; use Stop to end it.
func (m *Manager) Start(ctx context.Context) error {
	return m.start(ctx, nil)
}

// StartWithTranscript is Start, but seeds the finalized text with seed once
// the session is running. A rejected start leaves the transcript untouched.
func (m *Manager) StartWithTranscript(ctx context.Context, seed string) error {
	return m.start(ctx, &seed)
}

func (m *Manager) start(ctx context.Context, seed *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.initLocked(); err != nil {
		return err
	}
	if m.state == StateRecording {
		return startError(ErrAlreadyRecording)
	}

	m.gen++
	m.errored = false
	id := uuid.NewString()

	// Events from the new session wait on m.mu, so the transcript is seeded
	// before any of them is applied.
	if err := m.rec.Start(ctx, &sessionSink{m: m, gen: m.gen}); err != nil {
		m.metrics.SpeechStartFailures.Inc()
		m.log.Warn().Err(err).Str("sessionId", id).Msg("Recognizer refused to start")
		return startError(err)
	}

	m.sessionID = id
	if seed != nil {
		m.transcript.FinalizedText = *seed
	}
	m.transcript.InterimText = ""
	m.state = StateRecording
	m.startedAt = time.Now()
	m.metrics.RecordSpeechStart()

	logger := logging.WithSession("speech", id)
	logger.Info().Msg("Recording started")
	return nil
}

// Stop ends the active session. Stop while Idle is a no-op. Stop does not
// notify end listeners.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.state != StateRecording {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.finishLocked("stopped")
	rec := m.rec
	m.mu.Unlock()

	if err := rec.Stop(); err != nil {
		m.log.Warn().Err(err).Msg("Recognizer stop failed")
	}
}

// finishLocked moves Recording to Idle and clears interim text.
func (m *Manager) finishLocked(why string) {
	m.state = StateIdle
	m.transcript.InterimText = ""
	m.metrics.RecordSpeechEnd(time.Since(m.startedAt).Seconds())
	logger := logging.WithSession("speech", m.sessionID)
	logger.Info().
		Str("reason", why).
		Dur("duration", time.Since(m.startedAt)).
		Msg("Recording ended")
}

// Destroy stops any active session, releases the recognizer and drops all
// listeners. The manager cannot be used afterwards.
func (m *Manager) Destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.destroyed = true
	if m.state == StateRecording {
		m.finishLocked("destroyed")
	}
	m.gen++
	rec := m.rec
	m.rec = nil
	m.mu.Unlock()

	m.results.clear()
	m.errs.clear()
	m.ends.clear()

	if rec != nil {
		if err := rec.Stop(); err != nil {
			m.log.Debug().Err(err).Msg("Recognizer stop failed during destroy")
		}
		if err := rec.Close(); err != nil {
			m.log.Warn().Err(err).Msg("Recognizer close failed")
		}
	}
}

// OnResult subscribes fn to recognition results and returns its unsubscribe
// func.
func (m *Manager) OnResult(fn ResultListener) func() { return m.results.add(fn) }

// OnError subscribes fn to recording errors, delivered at most once per
// session.
func (m *Manager) OnError(fn ErrorListener) func() { return m.errs.add(fn) }

// OnEnd subscribes fn to natural session termination.
func (m *Manager) OnEnd(fn EndListener) func() { return m.ends.add(fn) }

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsRecording reports whether a session is active.
func (m *Manager) IsRecording() bool {
	return m.State() == StateRecording
}

// SessionID returns the ID of the current or most recent session.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Transcript returns a copy of the transcript state.
func (m *Manager) Transcript() models.TranscriptState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transcript
}

// SetTranscript seeds the finalized text, typically with text the user typed
// before recording, and clears interim text.
func (m *Manager) SetTranscript(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcript = models.TranscriptState{FinalizedText: text}
}

// Reset clears the transcript.
func (m *Manager) Reset() {
	m.SetTranscript("")
}

func (m *Manager) handleResult(gen uint64, r stt.Result) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	m.mu.Lock()
	if gen != m.gen || m.state != StateRecording {
		m.mu.Unlock()
		return
	}
	if r.Interim != "" {
		m.transcript.InterimText = r.Interim
	}
	if r.Final != "" {
		m.transcript.FinalizedText += r.Final
		m.transcript.InterimText = ""
	}
	transcript := m.transcript
	m.mu.Unlock()

	if r.Interim != "" {
		m.metrics.RecordSpeechResult("partial")
	}
	if r.Final != "" {
		m.metrics.RecordSpeechResult("final")
	}
	for _, fn := range m.results.snapshot() {
		fn(r, transcript)
	}
}

func (m *Manager) handleError(gen uint64, reason string) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	m.mu.Lock()
	if gen != m.gen || m.state != StateRecording || m.errored {
		m.mu.Unlock()
		return
	}
	m.errored = true
	m.finishLocked("error")
	m.mu.Unlock()

	err := recordingError(reason)
	m.metrics.RecordSpeechError(string(err.Category))
	m.log.Warn().Str("reason", reason).Str("category", string(err.Category)).Msg("Recording error")

	for _, fn := range m.errs.snapshot() {
		fn(err)
	}
}

func (m *Manager) handleEnd(gen uint64) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	m.mu.Lock()
	if gen != m.gen || m.state != StateRecording {
		m.mu.Unlock()
		return
	}
	m.finishLocked("ended")
	m.mu.Unlock()

	for _, fn := range m.ends.snapshot() {
		fn()
	}
}

// sessionSink tags recognizer events with the generation they belong to.
type sessionSink struct {
	m   *Manager
	gen uint64
}

func (s *sessionSink) OnResult(r stt.Result) { s.m.handleResult(s.gen, r) }

func (s *sessionSink) OnError(reason string) { s.m.handleError(s.gen, reason) }

func (s *sessionSink) OnEnd() { s.m.handleEnd(s.gen) }

// listeners is an ordered subscription list.
type listeners[T any] struct {
	mu      sync.Mutex
	next    int
	entries []listenerEntry[T]
}

type listenerEntry[T any] struct {
	id int
	fn T
}

func (l *listeners[T]) add(fn T) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	id := l.next
	l.entries = append(l.entries, listenerEntry[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *listeners[T]) remove(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return
		}
	}
}

func (l *listeners[T]) snapshot() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	fns := make([]T, len(l.entries))
	for i, e := range l.entries {
		fns[i] = e.fn
	}
	return fns
}

func (l *listeners[T]) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
