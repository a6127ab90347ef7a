// Package http exposes the session and analysis operations over HTTP and a
// WebSocket live feed.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"speech-sentiment-service/internal/models"
	"speech-sentiment-service/internal/observability/metrics"
	"speech-sentiment-service/internal/service/analysis"
	"speech-sentiment-service/internal/service/speech"
)

const (
	maxRequestBytes = 1 << 20

	// StatusClientClosedRequest is reported when the caller went away.
	StatusClientClosedRequest = 499
)

// SessionService is the session surface served by the router.
// *session.Controller implements it.
type SessionService interface {
	Snapshot() models.SessionSnapshot
	SetText(text string)
	Analyze(ctx context.Context, text string) (*models.ResultView, error)
	StartRecording(ctx context.Context) error
	StopRecording()
	ToggleRecording(ctx context.Context) error
	Clear()
}

// BackendProber reports whether the analysis backend is reachable.
type BackendProber interface {
	HealthCheck(ctx context.Context) bool
}

type textRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// NewRouter constructs the HTTP router for the service. hub may be nil.
func NewRouter(svc SessionService, backend BackendProber, hub *Hub) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observe(metrics.DefaultMetrics))

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Get("/backend/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]bool{"reachable": backend.HealthCheck(r.Context())})
		})

		r.Post("/analyze", func(w http.ResponseWriter, r *http.Request) {
			var req textRequest
			if !decode(w, r, &req) {
				return
			}
			view, err := svc.Analyze(r.Context(), req.Text)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, view)
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, svc.Snapshot())
			})

			r.Put("/text", func(w http.ResponseWriter, r *http.Request) {
				var req textRequest
				if !decode(w, r, &req) {
					return
				}
				svc.SetText(req.Text)
				writeJSON(w, http.StatusOK, svc.Snapshot())
			})

			r.Post("/recording/{action}", func(w http.ResponseWriter, r *http.Request) {
				var err error
				switch chi.URLParam(r, "action") {
				case "start":
					err = svc.StartRecording(r.Context())
				case "stop":
					svc.StopRecording()
				case "toggle":
					err = svc.ToggleRecording(r.Context())
				default:
					writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown recording action", Kind: "not_found"})
					return
				}
				if err != nil {
					writeError(w, err)
					return
				}
				writeJSON(w, http.StatusOK, svc.Snapshot())
			})

			r.Post("/clear", func(w http.ResponseWriter, _ *http.Request) {
				svc.Clear()
				writeJSON(w, http.StatusOK, svc.Snapshot())
			})

			if hub != nil {
				r.Get("/ws", hub.ServeHTTP)
			}
		})
	})

	return r
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Kind: "bad_request"})
		return false
	}
	return true
}

// statusFor maps a classified error onto an HTTP status and kind label.
func statusFor(err error) (int, string) {
	var ae *analysis.Error
	if errors.As(err, &ae) {
		switch ae.Kind {
		case analysis.KindEmptyInput:
			return http.StatusBadRequest, ae.Kind.String()
		case analysis.KindServerResponse:
			return http.StatusBadGateway, ae.Kind.String()
		case analysis.KindTimeoutExhausted:
			return http.StatusGatewayTimeout, ae.Kind.String()
		case analysis.KindConnectivity:
			return http.StatusServiceUnavailable, ae.Kind.String()
		case analysis.KindCanceled:
			return StatusClientClosedRequest, ae.Kind.String()
		}
	}

	var se *speech.Error
	if errors.As(err, &se) {
		switch {
		case se.Kind == speech.KindCapability:
			return http.StatusNotImplemented, se.Kind.String()
		case errors.Is(se, speech.ErrAlreadyRecording):
			return http.StatusConflict, se.Kind.String()
		default:
			return http.StatusServiceUnavailable, se.Kind.String()
		}
	}

	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, err error) {
	status, kind := statusFor(err)
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
