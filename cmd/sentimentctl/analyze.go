package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"speech-sentiment-service/internal/models"
	"speech-sentiment-service/internal/service/analysis"
)

func newAnalyzeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [text|-]",
		Short: "Analyze the sentiment of text, or of stdin when given -",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			result, err := opts.client().Analyze(cmd.Context(), text)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the analysis backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			if !c.HealthCheck(cmd.Context()) {
				return fmt.Errorf("backend %s is unreachable", c.Config().BaseURL)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backend %s is reachable\n", c.Config().BaseURL)
			return nil
		},
	}
}

// readText joins args, or reads all of r when the only arg is "-".
func readText(r io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return "", errors.New("no text given")
	}
	return text, nil
}

func printResult(w io.Writer, r *models.AnalysisResult) {
	fmt.Fprintf(w, "Sentiment: %s %s (%.2f)\n", analysis.Label(r.SentimentScore), analysis.Emoji(r.SentimentScore), r.SentimentScore)
	if len(r.Keywords) == 0 {
		fmt.Fprintln(w, "Keywords: none")
		return
	}
	fmt.Fprintf(w, "Keywords: %s\n", strings.Join(r.Keywords, ", "))
}
