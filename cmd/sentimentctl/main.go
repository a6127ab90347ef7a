// Command sentimentctl analyzes text, dictates speech and watches session
// events from the command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"speech-sentiment-service/internal/config"
	"speech-sentiment-service/internal/observability/logging"
	"speech-sentiment-service/internal/service/analysis"
)

type options struct {
	backend    string
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
	logLevel   string
}

func (o *options) client() *analysis.Client {
	return analysis.New(analysis.Config{
		BaseURL:    o.backend,
		Timeout:    o.timeout,
		MaxRetries: o.retries,
		RetryDelay: o.retryDelay,
	})
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()
	opts := &options{}

	root := &cobra.Command{
		Use:           "sentimentctl",
		Short:         "Speech-driven sentiment analysis from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			lc := logging.DefaultConfig()
			lc.Level = opts.logLevel
			lc.Format = "console"
			lc.Service = "sentimentctl"
			logging.Init(lc)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.backend, "backend", cfg.Analysis.BaseURL, "analysis backend base URL (ANALYSIS_BASE_URL)")
	flags.DurationVar(&opts.timeout, "timeout", cfg.Analysis.Timeout, "per-attempt deadline")
	flags.IntVar(&opts.retries, "retries", cfg.Analysis.MaxRetries, "retries after the first attempt")
	flags.DurationVar(&opts.retryDelay, "retry-delay", cfg.Analysis.RetryDelay, "linear backoff base")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newHealthCmd(opts),
		newDictateCmd(opts, cfg),
		newWatchCmd(cfg),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		root.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
