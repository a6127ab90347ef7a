package google

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

// chunkDuration is the amount of audio sent per streaming request.
const chunkDuration = 100 * time.Millisecond

var errNotWAV = errors.New("not a valid WAV file")

// wavSource streams PCM audio from a WAV file in real-time sized chunks,
// standing in for a live microphone.
type wavSource struct {
	r             io.ReadCloser
	sampleRate    int
	channels      int
	bitsPerSample int
	chunkSize     int
}

func openWAV(path string) (*wavSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	src, err := newWAVSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}

func newWAVSource(r io.ReadCloser) (*wavSource, error) {
	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read WAV header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, errNotWAV
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	if audioFormat != 1 { // PCM
		return nil, fmt.Errorf("unsupported WAV format %d: only PCM is supported", audioFormat)
	}

	src := &wavSource{
		r:             r,
		channels:      int(binary.LittleEndian.Uint16(header[22:24])),
		sampleRate:    int(binary.LittleEndian.Uint32(header[24:28])),
		bitsPerSample: int(binary.LittleEndian.Uint16(header[34:36])),
	}
	if src.channels == 0 || src.sampleRate == 0 || src.bitsPerSample == 0 {
		return nil, errNotWAV
	}

	bytesPerSecond := src.sampleRate * src.channels * src.bitsPerSample / 8
	src.chunkSize = int(int64(bytesPerSecond) * int64(chunkDuration) / int64(time.Second))
	if src.chunkSize == 0 {
		src.chunkSize = 1
	}
	return src, nil
}

// Next returns the next chunk of audio, or io.EOF when the file is exhausted.
func (s *wavSource) Next(buf []byte) (int, error) {
	n, err := io.ReadFull(s.r, buf[:s.chunkSize])
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return n, nil
	}
	return n, err
}

func (s *wavSource) Close() error {
	return s.r.Close()
}
