package models

import "time"

// AnalysisRequest is the body posted to the analysis backend.
type AnalysisRequest struct {
	Text string `json:"text"`
}

// AnalysisResult is the backend's response for one analysis call.
type AnalysisResult struct {
	SentimentScore float64  `json:"sentiment_score"`
	Keywords       []string `json:"keywords"`
}

// AttemptOutcome classifies a single HTTP attempt.
type AttemptOutcome string

const (
	OutcomeSuccess          AttemptOutcome = "success"
	OutcomeRetryableFailure AttemptOutcome = "retryable_failure"
	OutcomeTerminalFailure  AttemptOutcome = "terminal_failure"
)

// RequestAttempt records one attempt within a logical analysis call.
type RequestAttempt struct {
	RequestID     string         `json:"requestId"`
	AttemptNumber int            `json:"attemptNumber"`
	StartedAt     time.Time      `json:"startedAt"`
	Outcome       AttemptOutcome `json:"outcome"`
	StatusCode    int            `json:"statusCode,omitempty"`
}

// AnalysisCompleted is published when a session applies a new result.
type AnalysisCompleted struct {
	EventType      string   `json:"eventType"`
	SessionID      string   `json:"sessionId"`
	Sequence       uint64   `json:"sequence"`
	Timestamp      int64    `json:"timestamp"`
	TextLength     int      `json:"textLength"`
	SentimentScore float64  `json:"sentimentScore"`
	Label          string   `json:"label"`
	Keywords       []string `json:"keywords"`
}

// ResultView is an AnalysisResult decorated for display.
type ResultView struct {
	SentimentScore float64  `json:"sentiment_score"`
	Keywords       []string `json:"keywords"`
	Label          string   `json:"label"`
	Emoji          string   `json:"emoji"`
}

// SessionSnapshot is the consumer view of a session.
type SessionSnapshot struct {
	SessionID      string      `json:"sessionId"`
	Text           string      `json:"text"`
	InterimText    string      `json:"interimText"`
	IsRecording    bool        `json:"isRecording"`
	SpeechState    string      `json:"speechState"`
	RecordingError string      `json:"recordingError,omitempty"`
	AnalysisError  string      `json:"analysisError,omitempty"`
	Loading        bool        `json:"loading"`
	Result         *ResultView `json:"result,omitempty"`
	Sequence       uint64      `json:"sequence"`
}
