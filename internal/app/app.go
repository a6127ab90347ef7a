// Package app wires the service components together and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"speech-sentiment-service/internal/config"
	"speech-sentiment-service/internal/events"
	apihttp "speech-sentiment-service/internal/http"
	"speech-sentiment-service/internal/observability"
	"speech-sentiment-service/internal/observability/logging"
	"speech-sentiment-service/internal/service/analysis"
	"speech-sentiment-service/internal/service/session"
	"speech-sentiment-service/internal/service/speech"
	"speech-sentiment-service/internal/service/stt"
	"speech-sentiment-service/internal/service/stt/google"
	"speech-sentiment-service/internal/service/stt/mock"
)

const shutdownTimeout = 10 * time.Second

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config

	Publisher *events.Publisher
	Analysis  *analysis.Client
	Speech    *speech.Manager
	Session   *session.Controller
	Hub       *apihttp.Hub

	api         *http.Server
	obs         *observability.Server
	ready       atomic.Bool
	unsubscribe func()
	closeOnce   sync.Once
}

// New constructs a new Application from the provided configuration.
func New(cfg *config.Config) (*Application, error) {
	a := &Application{Cfg: cfg}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	factory, err := RecognizerFactory(cfg.STT)
	if err != nil {
		return nil, err
	}

	a.Publisher = events.New(&events.Config{
		Brokers:       cfg.Kafka.Brokers,
		TopicPartial:  cfg.Kafka.TopicPartial,
		TopicFinal:    cfg.Kafka.TopicFinal,
		TopicAnalysis: cfg.Kafka.TopicAnalysis,
		Principal:     cfg.Kafka.Principal,
		Enabled:       cfg.Kafka.Enabled,
	})

	a.Analysis = analysis.New(analysis.Config{
		BaseURL:    cfg.Analysis.BaseURL,
		Timeout:    cfg.Analysis.Timeout,
		MaxRetries: cfg.Analysis.MaxRetries,
		RetryDelay: cfg.Analysis.RetryDelay,
	})

	a.Speech = speech.New(factory)
	a.Session = session.New(a.Speech, a.Analysis, a.Publisher, session.Config{
		AnalysisDebounce: cfg.Session.AnalysisDebounce,
	})

	a.Hub = apihttp.NewHub()
	a.unsubscribe = a.Session.Subscribe(a.Hub.Publish)

	a.api = &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           apihttp.NewRouter(a.Session, a.Analysis, a.Hub),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	a.obs = observability.NewServer(cfg.Observability.MetricsAddr, a.ready.Load)

	appLogger.Info().
		Str("sttProvider", cfg.STT.Provider).
		Str("analysisURL", cfg.Analysis.BaseURL).
		Bool("kafka", a.Publisher.Enabled()).
		Str("session", a.Session.ID()).
		Msg("Speech sentiment service application created")
	return a, nil
}

// setupLogger configures zerolog for the service.
func (a *Application) setupLogger() {
	format := a.Cfg.Observability.LogFormat
	if a.Cfg.Service.Env == "dev" {
		format = "console"
	}
	logging.Init(logging.Config{
		Level:      a.Cfg.Observability.LogLevel,
		Format:     format,
		TimeFormat: time.RFC3339,
		Service:    "speech-sentiment-service",
	})
	a.Logger = logging.WithComponent("application")

	a.Logger.Info().
		Str("logLevel", zerolog.GlobalLevel().String()).
		Str("environment", a.Cfg.Service.Env).
		Msg("Logger setup completed")
}

// RecognizerFactory selects the speech recognizer for the configured provider.
// The "none" provider yields a nil factory, which leaves speech unsupported.
func RecognizerFactory(cfg config.STTConfig) (stt.Factory, error) {
	switch strings.ToLower(cfg.Provider) {
	case "mock":
		return mock.Factory(), nil
	case "google":
		gcfg := google.DefaultConfig()
		gcfg.AudioFile = cfg.AudioFile
		gcfg.CredentialsFile = cfg.CredentialsFile
		if cfg.SampleRateHz > 0 {
			gcfg.SampleRateHz = cfg.SampleRateHz
		}
		if cfg.AudioEncoding != "" {
			gcfg.AudioEncoding = cfg.AudioEncoding
		}
		return google.Factory(gcfg), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown STT provider %q", cfg.Provider)
	}
}

// Handler returns the API handler.
func (a *Application) Handler() http.Handler {
	return a.api.Handler
}

// Run serves the API, the observability endpoints and the WebSocket hub until
// ctx is done or one of them fails, then shuts everything down.
func (a *Application) Run(ctx context.Context) error {
	runLogger := a.Logger.With().
		Str("method", "Run").
		Logger()

	a.StartupTime = time.Now().UTC()
	runLogger.Info().
		Time("startupTime", a.StartupTime).
		Str("addr", a.api.Addr).
		Msg("Speech sentiment service starting")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		if err := a.api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(a.obs.ListenAndServe)

	g.Go(func() error {
		<-gctx.Done()
		a.ready.Store(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(a.api.Shutdown(shutdownCtx), a.obs.Shutdown(shutdownCtx))
	})

	a.ready.Store(true)
	err := g.Wait()
	a.Shutdown()
	return err
}

// Shutdown stops the session and releases the event publisher. It is safe to
// call more than once.
func (a *Application) Shutdown() {
	a.closeOnce.Do(func() {
		shutdownLogger := a.Logger.With().
			Str("method", "Shutdown").
			Logger()

		shutdownLogger.Info().Msg("Speech sentiment service shutting down")

		a.unsubscribe()
		a.Session.Close()
		if err := a.Publisher.Close(); err != nil {
			shutdownLogger.Error().Err(err).Msg("Failed to close event publisher")
		}
	})
}
