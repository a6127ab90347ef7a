// Package session provides the session controller that coordinates the
// speech manager, the analysis client and the event publisher.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"speech-sentiment-service/internal/models"
	"speech-sentiment-service/internal/observability/logging"
	"speech-sentiment-service/internal/service/analysis"
	"speech-sentiment-service/internal/service/segment"
	"speech-sentiment-service/internal/service/speech"
	"speech-sentiment-service/internal/service/stt"
)

// DefaultAnalysisDebounce delays live analysis after a finalized segment.
const DefaultAnalysisDebounce = 300 * time.Millisecond

// Analyzer submits text for sentiment analysis.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*models.AnalysisResult, error)
}

// Publisher receives session events. *events.Publisher implements it.
type Publisher interface {
	PublishPartial(ctx context.Context, key string, event any) error
	PublishFinal(ctx context.Context, key string, event any) error
	PublishAnalysis(ctx context.Context, key string, event any) error
}

// Config holds controller configuration.
type Config struct {
	AnalysisDebounce time.Duration
}

// Controller holds the edited text, the recording state and the current
// analysis result of one session.
//
// Every analysis request gets a sequence number and its outcome is applied
// only if no newer request has been applied already, so the most recently
// issued request wins regardless of the order in which responses arrive.
type Controller struct {
	id        string
	speech    *speech.Manager
	analyzer  Analyzer
	publisher Publisher
	segments  *segment.Tracker
	debounce  time.Duration
	log       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	unsubs []func()

	mu             sync.Mutex
	text           string
	recordingError string
	analysisError  string
	inFlight       int
	result         *models.ResultView
	seq            uint64 // last issued request
	applied        uint64 // last applied request
	timer          *time.Timer
	closed         bool

	notifyMu sync.Mutex
	subsMu   sync.Mutex
	nextSub  int
	subs     map[int]func(models.SessionSnapshot)
}

// New creates a controller and subscribes it to the speech manager.
// publisher may be nil.
func New(mgr *speech.Manager, analyzer Analyzer, publisher Publisher, cfg Config) *Controller {
	if cfg.AnalysisDebounce <= 0 {
		cfg.AnalysisDebounce = DefaultAnalysisDebounce
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		id:        id,
		speech:    mgr,
		analyzer:  analyzer,
		publisher: publisher,
		segments:  segment.New(id),
		debounce:  cfg.AnalysisDebounce,
		log:       logging.WithSession("session", id),
		ctx:       ctx,
		cancel:    cancel,
		subs:      make(map[int]func(models.SessionSnapshot)),
	}
	c.unsubs = []func(){
		mgr.OnResult(c.onResult),
		mgr.OnError(c.onError),
		mgr.OnEnd(c.onEnd),
	}
	return c
}

// ID returns the session ID.
func (c *Controller) ID() string {
	return c.id
}

// ToggleRecording stops an active recording or starts a new one.
func (c *Controller) ToggleRecording(ctx context.Context) error {
	if c.speech.IsRecording() {
		c.StopRecording()
		return nil
	}
	return c.StartRecording(ctx)
}

// StartRecording seeds the transcript with the current text and starts
// recording. A failure is kept as the recording error and also returned.
// Starting while already recording returns the StartError and changes
// nothing.
func (c *Controller) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	text := c.text
	c.mu.Unlock()

	err := c.speech.StartWithTranscript(ctx, text)
	if errors.Is(err, speech.ErrAlreadyRecording) {
		c.log.Debug().Msg("Start ignored, already recording")
		return err
	}

	c.mu.Lock()
	c.recordingError = ""
	if err != nil {
		c.recordingError = err.Error()
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to start recording")
	}
	c.notify()
	return err
}

// StopRecording stops recording and keeps the finalized transcript as text.
// It is a no-op when not recording.
func (c *Controller) StopRecording() {
	if !c.speech.IsRecording() {
		return
	}
	c.speech.Stop()
	c.syncText()
	c.notify()
}

// SetText replaces the edited text.
func (c *Controller) SetText(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
	c.notify()
}

// Analyze analyzes text synchronously and applies the outcome to the session.
// Empty text is rejected without touching session state.
func (c *Controller) Analyze(ctx context.Context, text string) (*models.ResultView, error) {
	if strings.TrimSpace(text) == "" {
		_, err := c.analyzer.Analyze(ctx, text)
		return nil, err
	}
	return c.analyze(ctx, text)
}

// Clear resets the text, the transcript and the analysis outcome. Results of
// requests still in flight are discarded.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.text = ""
	c.result = nil
	c.analysisError = ""
	c.applied = c.seq
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	c.speech.Reset()
	c.notify()
}

// Snapshot returns the consumer view of the session.
func (c *Controller) Snapshot() models.SessionSnapshot {
	transcript := c.speech.Transcript()
	state := c.speech.State()

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := models.SessionSnapshot{
		SessionID:      c.id,
		Text:           c.text,
		InterimText:    transcript.InterimText,
		IsRecording:    state == speech.StateRecording,
		SpeechState:    state.String(),
		RecordingError: c.recordingError,
		AnalysisError:  c.analysisError,
		Loading:        c.inFlight > 0,
		Sequence:       c.applied,
	}
	if c.result != nil {
		r := *c.result
		r.Keywords = append([]string{}, c.result.Keywords...)
		snap.Result = &r
	}
	return snap
}

// Subscribe registers fn for every state change and returns its unsubscribe
// func. Notifications are serialized.
func (c *Controller) Subscribe(fn func(models.SessionSnapshot)) func() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = fn
	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		delete(c.subs, id)
	}
}

// Close cancels pending analysis, detaches from the speech manager and
// destroys it.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	c.cancel()
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.speech.Destroy()

	c.subsMu.Lock()
	c.subs = make(map[int]func(models.SessionSnapshot))
	c.subsMu.Unlock()
}

func (c *Controller) analyze(ctx context.Context, text string) (*models.ResultView, error) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.inFlight++
	c.analysisError = ""
	c.mu.Unlock()
	c.notify()

	res, err := c.analyzer.Analyze(ctx, text)

	var view *models.ResultView
	if err == nil {
		view = newResultView(res)
	}

	c.mu.Lock()
	c.inFlight--
	applied := seq > c.applied
	if applied {
		c.applied = seq
		if err != nil {
			c.analysisError = err.Error()
		} else {
			c.result = view
		}
	}
	c.mu.Unlock()

	if !applied {
		c.log.Debug().Uint64("sequence", seq).Msg("Discarding superseded analysis outcome")
	} else if err == nil {
		c.publishAnalysis(seq, text, view)
	}
	c.notify()
	return view, err
}

// scheduleAnalysis debounces live analysis of the finalized transcript.
func (c *Controller) scheduleAnalysis(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		if strings.TrimSpace(text) == "" {
			return
		}
		if _, err := c.analyze(c.ctx, text); err != nil {
			c.log.Warn().Err(err).Msg("Live analysis failed")
		}
	})
}

func (c *Controller) onResult(r stt.Result, transcript models.TranscriptState) {
	c.mu.Lock()
	segmentID := c.segments.Current()
	if r.Final != "" {
		c.text = transcript.FinalizedText
		segmentID = c.segments.Finalize()
	}
	c.mu.Unlock()

	now := time.Now().UnixMilli()
	if r.Interim != "" && r.Final == "" {
		c.publish(models.EventTranscriptPartial, func(p Publisher) error {
			return p.PublishPartial(context.Background(), c.id, models.TranscriptPartial{
				EventType: models.EventTranscriptPartial,
				SessionID: c.id,
				SegmentID: segmentID,
				Timestamp: now,
				Text:      r.Interim,
			})
		})
	}
	if r.Final != "" {
		c.publish(models.EventTranscriptFinal, func(p Publisher) error {
			return p.PublishFinal(context.Background(), c.id, models.TranscriptFinal{
				EventType:     models.EventTranscriptFinal,
				SessionID:     c.id,
				SegmentID:     segmentID,
				Timestamp:     now,
				Text:          strings.TrimSpace(r.Final),
				FinalizedText: transcript.FinalizedText,
			})
		})
		c.scheduleAnalysis(transcript.FinalizedText)
	}
	c.notify()
}

func (c *Controller) onError(err *speech.Error) {
	c.mu.Lock()
	c.recordingError = err.Message
	c.mu.Unlock()
	c.syncText()
	c.notify()
}

func (c *Controller) onEnd() {
	c.syncText()
	c.notify()
}

// syncText adopts the finalized transcript as the edited text, unless it is
// empty.
func (c *Controller) syncText() {
	finalized := c.speech.Transcript().FinalizedText
	if finalized == "" {
		return
	}
	c.mu.Lock()
	c.text = finalized
	c.mu.Unlock()
}

func (c *Controller) publishAnalysis(seq uint64, text string, view *models.ResultView) {
	c.publish(models.EventAnalysisCompleted, func(p Publisher) error {
		return p.PublishAnalysis(context.Background(), c.id, models.AnalysisCompleted{
			EventType:      models.EventAnalysisCompleted,
			SessionID:      c.id,
			Sequence:       seq,
			Timestamp:      time.Now().UnixMilli(),
			TextLength:     len(text),
			SentimentScore: view.SentimentScore,
			Label:          view.Label,
			Keywords:       view.Keywords,
		})
	})
}

func (c *Controller) publish(eventType string, fn func(Publisher) error) {
	if c.publisher == nil {
		return
	}
	if err := fn(c.publisher); err != nil {
		c.log.Warn().Err(err).Str("eventType", eventType).Msg("Failed to publish event")
	}
}

func (c *Controller) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.subsMu.Lock()
	fns := make([]func(models.SessionSnapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subsMu.Unlock()
	if len(fns) == 0 {
		return
	}

	snap := c.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

func newResultView(r *models.AnalysisResult) *models.ResultView {
	return &models.ResultView{
		SentimentScore: r.SentimentScore,
		Keywords:       r.Keywords,
		Label:          analysis.Label(r.SentimentScore),
		Emoji:          analysis.Emoji(r.SentimentScore),
	}
}
