// Package analysis provides the client for the remote sentiment analysis
// backend, with per-attempt deadlines and bounded linear retries.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"speech-sentiment-service/internal/models"
	"speech-sentiment-service/internal/observability/logging"
	"speech-sentiment-service/internal/observability/metrics"
	"speech-sentiment-service/internal/schema"
)

const (
	processTextPath = "/process_text"
	maxBodyBytes    = 1 << 20
)

// Config holds analysis client configuration.
type Config struct {
	BaseURL    string
	Timeout    time.Duration // deadline for a single attempt
	MaxRetries int           // retries after the first attempt
	RetryDelay time.Duration // linear backoff base
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:8000",
		Timeout:    15 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// AttemptObserver receives a record for every finished attempt.
type AttemptObserver func(models.RequestAttempt)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSleeper replaces the backoff sleeper.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// WithAttemptObserver registers an observer for attempt records.
func WithAttemptObserver(o AttemptObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithMetrics overrides the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// Client submits text to the analysis backend. It is safe for concurrent
// use; overlapping Analyze calls proceed independently.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleep      Sleeper
	observer   AttemptObserver
	validator  *schema.Validator
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// New creates a new analysis client. An empty BaseURL or non-positive Timeout
// takes the default. MaxRetries and RetryDelay are used as given, clamped at
// zero, so a zero MaxRetries means a single attempt.
func New(cfg Config, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		sleep:      sleepContext,
		validator:  schema.New(),
		metrics:    metrics.DefaultMetrics,
		logger:     logging.WithComponent("analysis"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Analyze posts text to the backend and returns its result. Every failure is
// an *Error.
func (c *Client) Analyze(ctx context.Context, text string) (*models.AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		c.metrics.RecordAnalysisRequest(KindEmptyInput.String(), 0)
		return nil, emptyInputError()
	}

	body, err := json.Marshal(models.AnalysisRequest{Text: text})
	if err != nil {
		return nil, serverResponseError(0, fmt.Errorf("encode request: %w", err))
	}

	requestId := uuid.NewString()
	start := time.Now()
	c.metrics.AnalysisInFlight.Inc()
	defer c.metrics.AnalysisInFlight.Dec()

	result, aerr := c.run(ctx, requestId, body)

	latency := time.Since(start).Seconds()
	if aerr != nil {
		c.metrics.RecordAnalysisRequest(aerr.Kind.String(), latency)
		c.logger.Error().
			Str("requestId", requestId).
			Str("kind", aerr.Kind.String()).
			Int("statusCode", aerr.StatusCode).
			Err(aerr.Err).
			Msg("Analysis failed")
		return nil, aerr
	}

	c.metrics.RecordAnalysisRequest("success", latency)
	c.logger.Info().
		Str("requestId", requestId).
		Float64("sentimentScore", result.SentimentScore).
		Int("keywords", len(result.Keywords)).
		Float64("latencySeconds", latency).
		Msg("Analysis completed")
	return result, nil
}

func (c *Client) run(ctx context.Context, requestId string, body []byte) (*models.AnalysisResult, *Error) {
	var last *Error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * c.cfg.RetryDelay
			reason := "server_error"
			if last.Kind == KindTimeoutExhausted {
				reason = "timeout"
			}
			c.metrics.RecordAnalysisRetry(reason)
			c.logger.Warn().
				Str("requestId", requestId).
				Str("reason", reason).
				Int("retry", attempt).
				Int("maxRetries", c.cfg.MaxRetries).
				Dur("delay", delay).
				Msg("Retrying analysis")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, canceledError(err)
			}
		}

		result, outcome, aerr := c.attempt(ctx, requestId, attempt+1, body)
		switch outcome {
		case models.OutcomeSuccess:
			return result, nil
		case models.OutcomeTerminalFailure:
			return nil, aerr
		default:
			last = aerr
		}
	}
	return nil, last
}

// attempt performs one POST under its own deadline. A retryable timeout is
// reported with KindTimeoutExhausted so the final error is ready if no retries
// remain.
func (c *Client) attempt(ctx context.Context, requestId string, n int, body []byte) (*models.AnalysisResult, models.AttemptOutcome, *Error) {
	rec := models.RequestAttempt{
		RequestID:     requestId,
		AttemptNumber: n,
		StartedAt:     time.Now(),
	}
	logger := logging.WithRequest(requestId, n)

	result, code, outcome, aerr := c.do(ctx, body)

	rec.Outcome = outcome
	rec.StatusCode = code
	c.metrics.RecordAnalysisAttempt(string(outcome))
	if c.observer != nil {
		c.observer(rec)
	}

	ev := logger.Debug()
	if outcome != models.OutcomeSuccess {
		ev = logger.Warn().Str("kind", aerr.Kind.String()).Err(aerr.Err)
	}
	ev.Int("statusCode", code).
		Str("outcome", string(outcome)).
		Dur("duration", time.Since(rec.StartedAt)).
		Msg("Analysis attempt finished")

	return result, outcome, aerr
}

func (c *Client) do(ctx context.Context, body []byte) (*models.AnalysisResult, int, models.AttemptOutcome, *Error) {
	actx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodPost, c.cfg.BaseURL+processTextPath, bytes.NewReader(body))
	if err != nil {
		return nil, 0, models.OutcomeTerminalFailure, connectivityError(c.cfg.BaseURL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome, aerr := c.classifyTransportError(ctx, actx, err)
		return nil, 0, outcome, aerr
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() == nil && isTimeout(actx, err) {
			return nil, resp.StatusCode, models.OutcomeRetryableFailure, timeoutExhaustedError(err)
		}
		if ctx.Err() != nil {
			return nil, resp.StatusCode, models.OutcomeTerminalFailure, canceledError(ctx.Err())
		}
		return nil, resp.StatusCode, models.OutcomeTerminalFailure, serverResponseError(resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, resp.StatusCode, models.OutcomeRetryableFailure, serverResponseError(resp.StatusCode, nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, models.OutcomeTerminalFailure, serverResponseError(resp.StatusCode, nil)
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, resp.StatusCode, models.OutcomeTerminalFailure, serverResponseError(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	c.validator.Normalize(&result)
	if err := c.validator.ValidateResult(&result); err != nil {
		return nil, resp.StatusCode, models.OutcomeTerminalFailure, serverResponseError(resp.StatusCode, err)
	}
	return &result, resp.StatusCode, models.OutcomeSuccess, nil
}

// classifyTransportError separates the caller giving up, the attempt deadline
// firing, and the host being unreachable.
func (c *Client) classifyTransportError(parent, actx context.Context, err error) (models.AttemptOutcome, *Error) {
	if parent.Err() != nil {
		return models.OutcomeTerminalFailure, canceledError(parent.Err())
	}
	if isTimeout(actx, err) {
		return models.OutcomeRetryableFailure, timeoutExhaustedError(err)
	}
	return models.OutcomeTerminalFailure, connectivityError(c.cfg.BaseURL, err)
}

func isTimeout(actx context.Context, err error) bool {
	if errors.Is(actx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// HealthCheck reports whether the backend answers GET / with a 2xx status.
func (c *Client) HealthCheck(ctx context.Context) bool {
	hctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(hctx, http.MethodGet, c.cfg.BaseURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("baseUrl", c.cfg.BaseURL).Msg("Backend health check failed")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
