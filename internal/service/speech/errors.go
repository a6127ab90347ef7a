package speech

import (
	"errors"
	"fmt"

	"speech-sentiment-service/internal/service/stt"
)

// Kind classifies speech session failures.
type Kind int

const (
	KindCapability Kind = iota + 1
	KindStart
	KindRecording
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindCapability:
		return "capability"
	case KindStart:
		return "start"
	case KindRecording:
		return "recording"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Category is the user-facing class of a recording error.
type Category string

const (
	CategoryPermissionDenied Category = "permission-denied"
	CategoryNoMicrophone     Category = "no-microphone"
	CategoryNoSpeech         Category = "no-speech-detected"
	CategoryNetwork          Category = "network-unavailable"
	CategoryAborted          Category = "aborted-by-user"
	CategoryUnknown          Category = "unknown"
)

// Error is returned by Initialize and Start and delivered to error
// listeners. Message is safe to show to an end user.
type Error struct {
	Kind     Kind
	Category Category // set for KindRecording
	Reason   string   // raw recognizer reason, for KindRecording
	Message  string
	Err      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrCapability = &Error{Kind: KindCapability, Message: capabilityMessage}
	ErrStart      = &Error{Kind: KindStart, Message: startMessage}
	ErrRecording  = &Error{Kind: KindRecording, Message: "recording error"}

	// ErrAlreadyRecording is wrapped by the StartError returned when Start is
	// called during an active session.
	ErrAlreadyRecording = errors.New("already recording")

	// ErrDestroyed is wrapped when the manager is used after Destroy.
	ErrDestroyed = errors.New("speech manager destroyed")
)

const (
	capabilityMessage = "Speech recognition is not supported in this environment"
	startMessage      = "Failed to start recording. Please check your microphone permissions or internet connection."
)

func capabilityError(cause error) *Error {
	return &Error{Kind: KindCapability, Message: capabilityMessage, Err: cause}
}

func startError(cause error) *Error {
	return &Error{Kind: KindStart, Message: startMessage, Err: cause}
}

// recordingError maps a raw recognizer reason to its category and message.
func recordingError(reason string) *Error {
	e := &Error{Kind: KindRecording, Reason: reason}
	switch reason {
	case stt.ReasonNetwork:
		e.Category = CategoryNetwork
		e.Message = "Network error. Speech recognition requires an internet connection."
	case stt.ReasonNotAllowed, stt.ReasonPermissionDenied:
		e.Category = CategoryPermissionDenied
		e.Message = "Microphone access denied. Please allow microphone permissions in your browser."
	case stt.ReasonNoSpeech:
		e.Category = CategoryNoSpeech
		e.Message = "No speech detected. Please try again."
	case stt.ReasonAudioCapture:
		e.Category = CategoryNoMicrophone
		e.Message = "No microphone found. Please connect a microphone."
	case stt.ReasonAborted:
		e.Category = CategoryAborted
		e.Message = "Recording was stopped."
	default:
		e.Category = CategoryUnknown
		e.Message = fmt.Sprintf("Recording error: %s", reason)
	}
	return e
}
