package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speech-sentiment-service/internal/models"
)

// recordingSleeper captures backoff delays without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration{}, s.delays...)
}

func newTestClient(t *testing.T, url string, cfg Config, opts ...Option) (*Client, *recordingSleeper) {
	t.Helper()
	sleeper := &recordingSleeper{}
	cfg.BaseURL = url
	opts = append([]Option{WithSleeper(sleeper.Sleep)}, opts...)
	return New(cfg, opts...), sleeper
}

func writeResult(t *testing.T, w http.ResponseWriter, r models.AnalysisResult) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(r))
}

func TestAnalyze_EmptyInputMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	client, sleeper := newTestClient(t, srv.URL, DefaultConfig())

	for _, text := range []string{"", "   ", "\n\t "} {
		result, err := client.Analyze(context.Background(), text)
		assert.Nil(t, result)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrEmptyInput), "expected ErrEmptyInput, got %v", err)
		assert.Equal(t, "Text cannot be empty", err.Error())
	}

	assert.Equal(t, int32(0), calls.Load())
	assert.Empty(t, sleeper.Delays())
}

func TestAnalyze_PostsTextAsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/process_text", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req models.AnalysisRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "I love this product", req.Text)

		writeResult(t, w, models.AnalysisResult{SentimentScore: 0.92, Keywords: []string{"product", "love"}})
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL+"/", DefaultConfig())

	result, err := client.Analyze(context.Background(), "I love this product")
	require.NoError(t, err)
	assert.InDelta(t, 0.92, result.SentimentScore, 1e-9)
	assert.Equal(t, []string{"product", "love"}, result.Keywords)
}

func TestAnalyze_RetriesServerErrorsWithLinearBackoff(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeResult(t, w, models.AnalysisResult{SentimentScore: -0.4, Keywords: []string{"delay"}})
	}))
	defer srv.Close()

	var attempts []models.RequestAttempt
	client, sleeper := newTestClient(t, srv.URL, DefaultConfig(),
		WithAttemptObserver(func(a models.RequestAttempt) { attempts = append(attempts, a) }))

	result, err := client.Analyze(context.Background(), "the train was late again")
	require.NoError(t, err)
	assert.InDelta(t, -0.4, result.SentimentScore, 1e-9)

	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, sleeper.Delays())

	require.Len(t, attempts, 4)
	for i, a := range attempts[:3] {
		assert.Equal(t, i+1, a.AttemptNumber)
		assert.Equal(t, models.OutcomeRetryableFailure, a.Outcome)
		assert.Equal(t, http.StatusInternalServerError, a.StatusCode)
	}
	assert.Equal(t, models.OutcomeSuccess, attempts[3].Outcome)
	assert.Equal(t, attempts[0].RequestID, attempts[3].RequestID)
}

func TestAnalyze_ServerErrorsExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, sleeper := newTestClient(t, srv.URL, DefaultConfig())

	_, err := client.Analyze(context.Background(), "hello")
	require.Error(t, err)

	var aerr *Error
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, KindServerResponse, aerr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, aerr.StatusCode)
	assert.Equal(t, int32(4), calls.Load())
	assert.Len(t, sleeper.Delays(), 3)
}

func TestAnalyze_ClientErrorIsTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client, sleeper := newTestClient(t, srv.URL, DefaultConfig())

	_, err := client.Analyze(context.Background(), "hello")

	var aerr *Error
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, KindServerResponse, aerr.Kind)
	assert.Equal(t, http.StatusNotFound, aerr.StatusCode)
	assert.Equal(t, "Server returned 404: Not Found", aerr.Error())
	assert.True(t, errors.Is(err, ErrServerResponse))
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, sleeper.Delays())
}

func TestAnalyze_TimeoutsExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-r.Context().Done()
	}))
	defer srv.Close()

	client, sleeper := newTestClient(t, srv.URL, Config{
		Timeout:    20 * time.Millisecond,
		MaxRetries: 2,
		RetryDelay: time.Second,
	})

	_, err := client.Analyze(context.Background(), "are the models warm yet")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeoutExhausted), "expected timeout exhausted, got %v", err)
	assert.Contains(t, err.Error(), "may be loading")
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.Delays())
}

func TestAnalyze_TimeoutThenSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			<-r.Context().Done()
			return
		}
		writeResult(t, w, models.AnalysisResult{SentimentScore: 0.1})
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL, Config{Timeout: 50 * time.Millisecond, MaxRetries: 3})

	result, err := client.Analyze(context.Background(), "ok")
	require.NoError(t, err)
	assert.Equal(t, []string{}, result.Keywords)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnalyze_ConnectivityIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client, sleeper := newTestClient(t, url, DefaultConfig())

	_, err := client.Analyze(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectivity), "expected connectivity error, got %v", err)
	assert.Contains(t, err.Error(), url)
	assert.Empty(t, sleeper.Delays())
}

func TestAnalyze_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>oops</html>"},
		{"score out of range", `{"sentiment_score": 4.2, "keywords": []}`},
		{"wrong keyword type", `{"sentiment_score": 0.1, "keywords": [1, 2]}`},
		{"empty keyword", `{"sentiment_score": 0.1, "keywords": [""]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, _ := newTestClient(t, srv.URL, DefaultConfig())

			_, err := client.Analyze(context.Background(), "hello")

			var aerr *Error
			require.True(t, errors.As(err, &aerr), "expected *Error, got %T", err)
			assert.Equal(t, KindServerResponse, aerr.Kind)
			assert.Equal(t, http.StatusOK, aerr.StatusCode)
		})
	}
}

func TestAnalyze_CanceledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := New(Config{BaseURL: srv.URL}, WithSleeper(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	_, err := client.Analyze(ctx, "hello")
	assert.True(t, errors.Is(err, ErrCanceled), "expected canceled, got %v", err)
}

func TestAnalyze_AlwaysClassified(t *testing.T) {
	statuses := []int{200, 201, 204, 301, 400, 401, 403, 404, 422, 429, 500, 502, 503, 504}

	for _, status := range statuses {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if status == http.StatusMovedPermanently {
					w.Header().Set("Location", "/elsewhere")
				}
				w.WriteHeader(status)
				if status == 200 || status == 201 {
					_, _ = w.Write([]byte(`{"sentiment_score": -0.75, "keywords": ["refund"]}`))
				}
			}))
			defer srv.Close()

			client, _ := newTestClient(t, srv.URL, DefaultConfig())

			result, err := client.Analyze(context.Background(), "give me a refund")
			if err == nil {
				require.NotNil(t, result)
				assert.GreaterOrEqual(t, result.SentimentScore, -1.0)
				assert.LessOrEqual(t, result.SentimentScore, 1.0)
				assert.NotNil(t, result.Keywords)
				return
			}
			var aerr *Error
			require.True(t, errors.As(err, &aerr), "unclassified error %T: %v", err, err)
			assert.NotZero(t, aerr.Kind)
		})
	}
}

func TestNew_AppliesDefaults(t *testing.T) {
	c := New(Config{MaxRetries: -1, RetryDelay: -time.Second})
	cfg := c.Config()

	assert.Equal(t, "http://localhost:8000", cfg.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, time.Duration(0), cfg.RetryDelay)
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	assert.True(t, New(Config{BaseURL: srv.URL}).HealthCheck(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()
	assert.False(t, New(Config{BaseURL: down.URL}).HealthCheck(context.Background()))

	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	closedURL := closed.URL
	closed.Close()
	assert.False(t, New(Config{BaseURL: closedURL}).HealthCheck(context.Background()))
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
