// Package mock provides a simulated recognizer for development and tests.
// It emits progressive interim results, one final segment per utterance,
// and ends naturally once its script is exhausted, like a silence timeout.
package mock

import (
	"context"
	"errors"
	"sync"
	"time"

	"speech-sentiment-service/internal/service/stt"
)

// SimulatedUtterance represents a mock utterance with progressive transcripts.
type SimulatedUtterance struct {
	Partials []string // Progressive interim transcripts
	Final    string   // Final transcript text
}

// DefaultUtterances provides sample utterances for simulation.
var DefaultUtterances = []SimulatedUtterance{
	{
		Partials: []string{"I really", "I really love", "I really love this"},
		Final:    "I really love this new phone",
	},
	{
		Partials: []string{"The battery", "The battery lasts"},
		Final:    "The battery lasts all day",
	},
	{
		Partials: []string{"but the", "but the camera is", "but the camera is a bit"},
		Final:    "but the camera is a bit disappointing",
	},
	{
		Partials: []string{"Customer support", "Customer support was"},
		Final:    "Customer support was slow and unhelpful",
	},
	{
		Partials: []string{"Overall"},
		Final:    "Overall I am happy with it",
	},
}

var errAlreadyStarted = errors.New("mock recognizer already started")

// Config controls the simulation.
type Config struct {
	Utterances []SimulatedUtterance
	Interval   time.Duration // delay between events
	StartErr   error         // returned by Start when set
	FailReason string        // when set, emitted via OnError after the first utterance
}

// Recognizer implements stt.Recognizer with scripted results.
type Recognizer struct {
	cfg Config

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	closed  bool
	done    chan struct{}
}

// utteranceCounter rotates the starting utterance across recognizers.
var (
	utteranceCounter int
	counterMu        sync.Mutex
)

// New creates a mock recognizer that plays DefaultUtterances starting at a
// rotating offset.
func New() *Recognizer {
	counterMu.Lock()
	idx := utteranceCounter % len(DefaultUtterances)
	utteranceCounter++
	counterMu.Unlock()

	script := append(append([]SimulatedUtterance{}, DefaultUtterances[idx:]...), DefaultUtterances[:idx]...)
	return NewWithConfig(Config{Utterances: script, Interval: 200 * time.Millisecond})
}

// NewWithConfig creates a mock recognizer with an explicit script.
func NewWithConfig(cfg Config) *Recognizer {
	return &Recognizer{cfg: cfg}
}

// Factory returns an stt.Factory producing mock recognizers.
func Factory() stt.Factory {
	return func() (stt.Recognizer, error) {
		return New(), nil
	}
}

// Start plays the script in a goroutine.
func (r *Recognizer) Start(ctx context.Context, sink stt.Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg.StartErr != nil {
		return r.cfg.StartErr
	}
	if r.closed {
		return errors.New("mock recognizer closed")
	}
	if r.running {
		return errAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.running = true
	r.done = make(chan struct{})

	go r.play(runCtx, sink, r.done)
	return nil
}

func (r *Recognizer) play(ctx context.Context, sink stt.Sink, done chan struct{}) {
	defer close(done)
	defer r.finish(done)

	for i, utt := range r.cfg.Utterances {
		for _, p := range utt.Partials {
			if !r.wait(ctx) {
				return
			}
			sink.OnResult(stt.Merge([]stt.Segment{{Text: p}}))
		}
		if !r.wait(ctx) {
			return
		}
		sink.OnResult(stt.Merge([]stt.Segment{{Text: utt.Final, IsFinal: true}}))

		if i == 0 && r.cfg.FailReason != "" {
			if !r.wait(ctx) {
				return
			}
			sink.OnError(r.cfg.FailReason)
			return
		}
	}

	if r.wait(ctx) {
		sink.OnEnd()
	}
}

func (r *Recognizer) wait(ctx context.Context) bool {
	if r.cfg.Interval <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(r.cfg.Interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (r *Recognizer) finish(done chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == done {
		r.running = false
	}
}

// Stop cancels the script. It does not wait for the playing goroutine so it
// is safe to call from within a sink callback.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	r.running = false
	return nil
}

// Done is closed when the current script stops playing.
func (r *Recognizer) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Close stops playback and marks the recognizer unusable.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}
