// Package stt defines the speech recognition capability consumed by the
// speech session manager.
package stt

import (
	"context"
	"errors"
	"strings"
)

// LanguageCode is the fixed recognition locale.
const LanguageCode = "en-US"

// ErrUnsupported is returned by a Factory when no recognition capability is
// available in this environment.
var ErrUnsupported = errors.New("speech recognition is not supported")

// Raw error reasons reported through Sink.OnError.
const (
	ReasonNetwork          = "network"
	ReasonNotAllowed       = "not-allowed"
	ReasonPermissionDenied = "permission-denied"
	ReasonNoSpeech         = "no-speech"
	ReasonAudioCapture     = "audio-capture"
	ReasonAborted          = "aborted"
)

// Result is one recognition event. Final holds completed segments, each
// followed by a space; Interim is the best guess for the utterance in progress.
type Result struct {
	Interim string
	Final   string
}

// Sink receives recognition events. Calls for one session never overlap.
type Sink interface {
	// OnResult is called zero or more times while recording.
	OnResult(r Result)

	// OnError is called when recognition fails; reason is one of the Reason
	// constants or a provider-specific string.
	OnError(reason string)

	// OnEnd is called when recognition terminates on its own.
	OnEnd()
}

// Recognizer is a continuous, interim-results-enabled recognition capability.
type Recognizer interface {
	// Start begins recognition and delivers events to sink asynchronously.
	// The session outlives ctx's cancellation; use Stop to end it.
	Start(ctx context.Context, sink Sink) error

	// Stop asks recognition to end. No events are guaranteed after Stop returns.
	Stop() error

	// Close releases the recognizer.
	Close() error
}

// Factory builds a Recognizer, or returns ErrUnsupported.
type Factory func() (Recognizer, error)

// Segment is a single provider hypothesis.
type Segment struct {
	Text    string
	IsFinal bool
}

// Merge folds provider hypotheses into a Result: finals are concatenated with
// a trailing space each, interims are concatenated as-is.
func Merge(segments []Segment) Result {
	var interim, final strings.Builder
	for _, s := range segments {
		if s.IsFinal {
			final.WriteString(s.Text)
			final.WriteString(" ")
		} else {
			interim.WriteString(s.Text)
		}
	}
	return Result{Interim: interim.String(), Final: final.String()}
}
