// Package models defines the data structures shared across the service.
package models

// TranscriptState is the accumulated speech transcript of a session.
// FinalizedText only grows while recording; InterimText is replaced on every
// partial recognition result.
type TranscriptState struct {
	FinalizedText string `json:"finalizedText"`
	InterimText   string `json:"interimText"`
}

// TranscriptPartial is published for each interim recognition result.
type TranscriptPartial struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	SegmentID string `json:"segmentId"`
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"text"`
}

// TranscriptFinal is published for each finalized segment.
type TranscriptFinal struct {
	EventType     string `json:"eventType"`
	SessionID     string `json:"sessionId"`
	SegmentID     string `json:"segmentId"`
	Timestamp     int64  `json:"timestamp"`
	Text          string `json:"text"`
	FinalizedText string `json:"finalizedText"`
}

const (
	EventTranscriptPartial = "session.transcript.partial"
	EventTranscriptFinal   = "session.transcript.final"
	EventAnalysisCompleted = "session.analysis.completed"
)
