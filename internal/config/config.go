// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Service       ServiceConfig
	Analysis      AnalysisConfig
	STT           STTConfig
	Session       SessionConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Principal string
	HTTPPort  string
	Env       string
}

// AnalysisConfig configures the sentiment analysis backend client.
type AnalysisConfig struct {
	BaseURL    string
	Timeout    time.Duration // per attempt
	MaxRetries int
	RetryDelay time.Duration // linear backoff base
}

// STTConfig selects and configures the speech recognition provider.
type STTConfig struct {
	Provider        string // mock, google, none
	SampleRateHz    int
	AudioEncoding   string
	AudioFile       string // PCM WAV source for the google provider
	CredentialsFile string
}

// SessionConfig configures the session controller.
type SessionConfig struct {
	AnalysisDebounce time.Duration
}

// KafkaConfig configures transcript and analysis event publishing.
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	TopicPartial  string
	TopicFinal    string
	TopicAnalysis string
	Principal     string
}

// ObservabilityConfig configures logging and the metrics server.
type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// Load reads configuration from the environment, falling back to defaults
// for unset or unparseable values.
func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-speech-sentiment")

	return &Config{
		Service: ServiceConfig{
			Principal: principal,
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
			Env:       envOrDefault("ENV", "prod"),
		},
		Analysis: AnalysisConfig{
			BaseURL:    strings.TrimRight(envOrDefault("ANALYSIS_BASE_URL", "http://localhost:8000"), "/"),
			Timeout:    envOrDefaultDuration("ANALYSIS_TIMEOUT", 15*time.Second),
			MaxRetries: envOrDefaultInt("ANALYSIS_MAX_RETRIES", 3),
			RetryDelay: envOrDefaultDuration("ANALYSIS_RETRY_DELAY", time.Second),
		},
		STT: STTConfig{
			Provider:        envOrDefault("STT_PROVIDER", "mock"),
			SampleRateHz:    envOrDefaultInt("STT_SAMPLE_RATE_HZ", 16000),
			AudioEncoding:   envOrDefault("STT_AUDIO_ENCODING", "LINEAR16"),
			AudioFile:       os.Getenv("STT_AUDIO_FILE"),
			CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		},
		Session: SessionConfig{
			AnalysisDebounce: envOrDefaultDuration("SESSION_ANALYSIS_DEBOUNCE", 300*time.Millisecond),
		},
		Kafka: KafkaConfig{
			Enabled:       envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:       envList("KAFKA_BROKERS"),
			TopicPartial:  envOrDefault("KAFKA_TOPIC_PARTIAL", "session.transcript.partial"),
			TopicFinal:    envOrDefault("KAFKA_TOPIC_FINAL", "session.transcript.final"),
			TopicAnalysis: envOrDefault("KAFKA_TOPIC_ANALYSIS", "session.analysis.completed"),
			Principal:     envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
