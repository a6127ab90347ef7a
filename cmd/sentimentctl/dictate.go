package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"speech-sentiment-service/internal/app"
	"speech-sentiment-service/internal/config"
	"speech-sentiment-service/internal/models"
	"speech-sentiment-service/internal/service/speech"
	"speech-sentiment-service/internal/service/stt"
)

type dictateOptions struct {
	stt      config.STTConfig
	duration time.Duration
	analyze  bool
}

func newDictateCmd(opts *options, cfg *config.Config) *cobra.Command {
	d := &dictateOptions{stt: cfg.STT, analyze: true}

	cmd := &cobra.Command{
		Use:   "dictate",
		Short: "Record one speech session, print the transcript and analyze it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			factory, err := app.RecognizerFactory(d.stt)
			if err != nil {
				return err
			}
			transcript, err := dictate(cmd.Context(), cmd.OutOrStdout(), factory, d.duration)
			if err != nil {
				return err
			}
			if !d.analyze {
				return nil
			}
			if strings.TrimSpace(transcript) == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing was transcribed")
				return nil
			}
			result, err := opts.client().Analyze(cmd.Context(), transcript)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&d.stt.Provider, "provider", cfg.STT.Provider, "speech provider (mock, google)")
	flags.StringVar(&d.stt.AudioFile, "audio", cfg.STT.AudioFile, "PCM WAV file to recognize (google)")
	flags.StringVar(&d.stt.CredentialsFile, "credentials", cfg.STT.CredentialsFile, "Google credentials file")
	flags.DurationVar(&d.duration, "duration", 30*time.Second, "stop recording after this long")
	flags.BoolVar(&d.analyze, "analyze", true, "analyze the transcript when recording ends")
	return cmd
}

// dictate runs one recording session, echoing interim and final results to
// w, and returns the finalized transcript. The session ends when the
// recognizer ends, fails, when limit elapses or when ctx is done.
func dictate(ctx context.Context, w io.Writer, factory stt.Factory, limit time.Duration) (string, error) {
	mgr := speech.New(factory)
	defer mgr.Destroy()

	var (
		mu      sync.Mutex
		recErr  *speech.Error
		done    = make(chan struct{})
		endOnce sync.Once
	)
	finish := func() { endOnce.Do(func() { close(done) }) }

	mgr.OnResult(func(r stt.Result, t models.TranscriptState) {
		mu.Lock()
		defer mu.Unlock()
		if r.Final != "" {
			fmt.Fprintf(w, "final:   %s\n", strings.TrimSpace(r.Final))
		}
		if r.Interim != "" {
			fmt.Fprintf(w, "interim: %s\n", r.Interim)
		}
	})
	mgr.OnError(func(err *speech.Error) {
		mu.Lock()
		recErr = err
		mu.Unlock()
		finish()
	})
	mgr.OnEnd(finish)

	if err := mgr.Start(ctx); err != nil {
		return "", err
	}

	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		mgr.Stop()
	case <-ctx.Done():
		mgr.Stop()
	}

	mu.Lock()
	defer mu.Unlock()
	if recErr != nil {
		return "", recErr
	}
	if ctx.Err() != nil {
		return "", errors.New("dictation interrupted")
	}
	return mgr.Transcript().FinalizedText, nil
}
