package google

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"speech-sentiment-service/internal/service/stt"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.LanguageCode)
	}
	if cfg.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.SampleRateHz)
	}
	if cfg.InterimResults != true {
		t.Errorf("expected default interim results true, got %v", cfg.InterimResults)
	}
	if cfg.AudioEncoding != "LINEAR16" {
		t.Errorf("expected default encoding 'LINEAR16', got %s", cfg.AudioEncoding)
	}
}

func TestParseAudioEncoding(t *testing.T) {
	tests := []struct {
		input    string
		expected speechpb.RecognitionConfig_AudioEncoding
	}{
		{"LINEAR16", speechpb.RecognitionConfig_LINEAR16},
		{"MULAW", speechpb.RecognitionConfig_MULAW},
		{"FLAC", speechpb.RecognitionConfig_FLAC},
		{"AMR", speechpb.RecognitionConfig_AMR},
		{"AMR_WB", speechpb.RecognitionConfig_AMR_WB},
		{"OGG_OPUS", speechpb.RecognitionConfig_OGG_OPUS},
		{"SPEEX_WITH_HEADER_BYTE", speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE},
		{"WEBM_OPUS", speechpb.RecognitionConfig_WEBM_OPUS},
		// Unknown and lowercase names fall back to LINEAR16
		{"UNKNOWN", speechpb.RecognitionConfig_LINEAR16},
		{"linear16", speechpb.RecognitionConfig_LINEAR16},
		{"", speechpb.RecognitionConfig_LINEAR16},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseAudioEncoding(tt.input)
			if got != tt.expected {
				t.Errorf("parseAudioEncoding(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestReasonFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"permission denied", status.Error(codes.PermissionDenied, "denied"), stt.ReasonNotAllowed},
		{"unauthenticated", status.Error(codes.Unauthenticated, "no creds"), stt.ReasonNotAllowed},
		{"unavailable", status.Error(codes.Unavailable, "down"), stt.ReasonNetwork},
		{"deadline", status.Error(codes.DeadlineExceeded, "slow"), stt.ReasonNetwork},
		{"canceled", status.Error(codes.Canceled, "stop"), stt.ReasonAborted},
		{"out of range", status.Error(codes.OutOfRange, "audio timeout"), stt.ReasonNoSpeech},
		{"invalid argument", status.Error(codes.InvalidArgument, "bad audio"), stt.ReasonAudioCapture},
		{"other", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reasonFor(tt.err); got != tt.want {
				t.Errorf("reasonFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFactory_NoAudioSourceIsUnsupported(t *testing.T) {
	rec, err := Factory(DefaultConfig())()
	if rec != nil {
		t.Error("expected no recognizer")
	}
	if !errors.Is(err, stt.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

// wavBytes builds a PCM WAV file with the given format and payload.
func wavBytes(format uint16, channels uint16, sampleRate uint32, bits uint16, data []byte) []byte {
	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+len(data)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, format)
	binary.Write(&b, binary.LittleEndian, channels)
	binary.Write(&b, binary.LittleEndian, sampleRate)
	binary.Write(&b, binary.LittleEndian, sampleRate*uint32(channels)*uint32(bits)/8)
	binary.Write(&b, binary.LittleEndian, channels*bits/8)
	binary.Write(&b, binary.LittleEndian, bits)
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(data)))
	b.Write(data)
	return b.Bytes()
}

func TestWAVSource_Chunks(t *testing.T) {
	// 8kHz 16-bit mono = 16000 bytes/second, so 100ms chunks are 1600 bytes
	payload := make([]byte, 4000)
	src, err := newWAVSource(io.NopCloser(bytes.NewReader(wavBytes(1, 1, 8000, 16, payload))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.sampleRate != 8000 || src.channels != 1 || src.bitsPerSample != 16 {
		t.Errorf("unexpected format: %+v", src)
	}
	if src.chunkSize != 1600 {
		t.Fatalf("expected chunk size 1600, got %d", src.chunkSize)
	}

	buf := make([]byte, src.chunkSize)
	var sizes []int
	for {
		n, err := src.Next(buf)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sizes = append(sizes, n)
	}

	want := []int{1600, 1600, 800}
	if len(sizes) != len(want) {
		t.Fatalf("expected chunks %v, got %v", want, sizes)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("chunk %d = %d bytes, want %d", i, sizes[i], want[i])
		}
	}
}

func TestWAVSource_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte("RIFF")},
		{"not riff", bytes.Repeat([]byte{0}, wavHeaderSize)},
		{"not pcm", wavBytes(3, 1, 8000, 32, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := newWAVSource(io.NopCloser(bytes.NewReader(tt.data))); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestOpenWAV_MissingFile(t *testing.T) {
	if _, err := openWAV(t.TempDir() + "/missing.wav"); err == nil {
		t.Error("expected error for missing file")
	}
}

// offlineRecognizer builds a recognizer whose client never dials.
func offlineRecognizer(t *testing.T) *Recognizer {
	t.Helper()
	c, err := speech.NewClient(context.Background(),
		option.WithoutAuthentication(),
		option.WithEndpoint("127.0.0.1:1"),
	)
	if err != nil {
		t.Fatalf("speech client: %v", err)
	}
	return &Recognizer{cfg: DefaultConfig(), client: c, log: zerolog.Nop()}
}

func TestRecognizer_CloseStopsSession(t *testing.T) {
	r := offlineRecognizer(t)

	canceled := false
	r.cancel = func() { canceled = true }
	r.running = true

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !canceled {
		t.Error("expected Close to cancel the running stream")
	}
	if r.running {
		t.Error("expected recognizer to be stopped")
	}
}

func TestRecognizer_StartWithoutAudioFile(t *testing.T) {
	r := offlineRecognizer(t)
	defer r.Close()
	r.cfg.AudioFile = "/nonexistent/audio.wav"

	if err := r.Start(context.Background(), nil); err == nil {
		t.Fatal("expected error for missing audio file")
	}
	if r.running {
		t.Error("expected recognizer not to be running")
	}
}
