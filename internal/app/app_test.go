package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speech-sentiment-service/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Service.HTTPPort = "0"
	cfg.Observability.MetricsAddr = "127.0.0.1:0"
	cfg.Observability.LogLevel = "error"
	cfg.Kafka.Enabled = false
	cfg.STT.Provider = "mock"
	return cfg
}

func TestRecognizerFactory(t *testing.T) {
	tests := []struct {
		provider string
		wantNil  bool
		wantErr  bool
	}{
		{"mock", false, false},
		{"MOCK", false, false},
		{"google", false, false},
		{"none", true, false},
		{"", true, false},
		{"whisper", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			f, err := RecognizerFactory(config.STTConfig{Provider: tt.provider})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNil, f == nil)
		})
	}
}

func TestRecognizerFactory_GoogleWithoutAudioIsUnsupported(t *testing.T) {
	f, err := RecognizerFactory(config.STTConfig{Provider: "google"})
	require.NoError(t, err)

	_, err = f()
	assert.Error(t, err)
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.STT.Provider = "whisper"

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNew_ServesAPI(t *testing.T) {
	a, err := New(testConfig())
	require.NoError(t, err)
	defer a.Shutdown()

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/liveness", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/session", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isRecording":false`)
}

func TestRun_StopsOnCancel(t *testing.T) {
	a, err := New(testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, a.ready.Load, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, a.ready.Load())

	// Shutdown after Run is a no-op.
	a.Shutdown()
}
