// Package google provides a Google Cloud Speech-to-Text recognizer.
package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"speech-sentiment-service/internal/observability/logging"
	"speech-sentiment-service/internal/service/stt"
)

// Config holds Google STT configuration.
type Config struct {
	LanguageCode    string
	SampleRateHz    int
	InterimResults  bool
	AudioEncoding   string
	AudioFile       string // WAV file used as the audio source
	CredentialsFile string // optional; falls back to application default credentials
}

// DefaultConfig returns default Google STT configuration.
func DefaultConfig() Config {
	return Config{
		LanguageCode:   stt.LanguageCode,
		SampleRateHz:   16000,
		InterimResults: true,
		AudioEncoding:  "LINEAR16",
	}
}

// parseAudioEncoding converts string to Google's AudioEncoding enum.
func parseAudioEncoding(enc string) speechpb.RecognitionConfig_AudioEncoding {
	switch enc {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}

// reasonFor maps a streaming error onto an stt reason string.
func reasonFor(err error) string {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return stt.ReasonNotAllowed
	case codes.Unavailable, codes.DeadlineExceeded:
		return stt.ReasonNetwork
	case codes.Canceled:
		return stt.ReasonAborted
	case codes.OutOfRange:
		return stt.ReasonNoSpeech
	case codes.InvalidArgument:
		return stt.ReasonAudioCapture
	default:
		return err.Error()
	}
}

// Factory returns an stt.Factory for Google recognizers. Without an audio
// source there is nothing to recognize, so it reports stt.ErrUnsupported.
func Factory(cfg Config) stt.Factory {
	return func() (stt.Recognizer, error) {
		if cfg.AudioFile == "" {
			return nil, fmt.Errorf("%w: no audio source configured", stt.ErrUnsupported)
		}
		return New(context.Background(), cfg)
	}
}

// Recognizer implements stt.Recognizer using Google Cloud Speech-to-Text
// streaming recognition fed from a WAV file.
type Recognizer struct {
	cfg    Config
	client *speech.Client
	log    zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	session uint64
}

// New creates a new Google recognizer.
// Uses CredentialsFile when set, otherwise GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, cfg Config) (*Recognizer, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = stt.LanguageCode
	}
	return &Recognizer{
		cfg:    cfg,
		client: c,
		log:    logging.WithComponent("stt.google"),
	}, nil
}

// Start opens the audio source and a streaming session, then sends audio and
// receives results in background goroutines.
func (r *Recognizer) Start(ctx context.Context, sink stt.Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("google recognizer already started")
	}

	src, err := openWAV(r.cfg.AudioFile)
	if err != nil {
		return err
	}

	sampleRate := r.cfg.SampleRateHz
	if src.sampleRate != sampleRate {
		r.log.Warn().
			Int("configured", sampleRate).
			Int("file", src.sampleRate).
			Msg("Sample rate mismatch, using the audio file's rate")
		sampleRate = src.sampleRate
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream, err := r.client.StreamingRecognize(runCtx)
	if err != nil {
		cancel()
		src.Close()
		return err
	}

	// Send streaming config as the first message
	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:          parseAudioEncoding(r.cfg.AudioEncoding),
					SampleRateHertz:   int32(sampleRate),
					AudioChannelCount: int32(src.channels),
					LanguageCode:      r.cfg.LanguageCode,
				},
				InterimResults: r.cfg.InterimResults,
			},
		},
	})
	if err != nil {
		cancel()
		src.Close()
		return err
	}

	r.session++
	r.cancel = cancel
	r.running = true

	go r.sendAudio(runCtx, stream, src)
	go r.listen(runCtx, stream, sink, r.session)

	r.log.Info().
		Str("audioFile", r.cfg.AudioFile).
		Int("sampleRateHz", sampleRate).
		Msg("Google streaming recognition started")
	return nil
}

// sendAudio paces audio chunks at real-time speed and half-closes the stream
// once the file is exhausted.
func (r *Recognizer) sendAudio(ctx context.Context, stream speechpb.Speech_StreamingRecognizeClient, src *wavSource) {
	defer src.Close()

	buf := make([]byte, src.chunkSize)
	ticker := time.NewTicker(chunkDuration)
	defer ticker.Stop()

	for {
		n, err := src.Next(buf)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			r.log.Error().Err(err).Msg("Failed to read audio")
			break
		}
		if err := stream.Send(&speechpb.StreamingRecognizeRequest{
			StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
				AudioContent: buf[:n],
			},
		}); err != nil {
			// Recv reports the stream failure.
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}

	if err := stream.CloseSend(); err != nil {
		r.log.Debug().Err(err).Msg("CloseSend failed")
	}
}

// listen receives transcript responses from Google and forwards them to sink.
func (r *Recognizer) listen(ctx context.Context, stream speechpb.Speech_StreamingRecognizeClient, sink stt.Sink, session uint64) {
	defer r.finish(session)

	for {
		resp, err := stream.Recv()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				// Stopped by the caller.
			case errors.Is(err, io.EOF):
				sink.OnEnd()
			default:
				r.log.Warn().Err(err).Str("code", status.Code(err).String()).Msg("Streaming recognition failed")
				sink.OnError(reasonFor(err))
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		segments := make([]stt.Segment, 0, len(resp.Results))
		for _, res := range resp.Results {
			if len(res.Alternatives) == 0 {
				continue
			}
			segments = append(segments, stt.Segment{
				Text:    res.Alternatives[0].Transcript,
				IsFinal: res.IsFinal,
			})
		}
		if len(segments) > 0 {
			sink.OnResult(stt.Merge(segments))
		}
	}
}

func (r *Recognizer) finish(session uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == session {
		r.running = false
		if r.cancel != nil {
			r.cancel()
		}
	}
}

// Stop cancels the streaming session.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	r.running = false
	return nil
}

// Close stops recognition and releases the client.
func (r *Recognizer) Close() error {
	return errors.Join(r.Stop(), r.client.Close())
}
