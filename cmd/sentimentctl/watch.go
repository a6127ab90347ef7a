package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"speech-sentiment-service/internal/config"
	"speech-sentiment-service/internal/events"
)

func newWatchCmd(cfg *config.Config) *cobra.Command {
	c := events.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topics:  []string{cfg.Kafka.TopicPartial, cfg.Kafka.TopicFinal, cfg.Kafka.TopicAnalysis},
	}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print session events as they are published to Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var mu sync.Mutex
			return events.Consume(cmd.Context(), c, func(m events.Message) {
				mu.Lock()
				defer mu.Unlock()
				printEvent(cmd.OutOrStdout(), m)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&c.Brokers, "brokers", c.Brokers, "Kafka brokers (KAFKA_BROKERS)")
	flags.StringSliceVar(&c.Topics, "topics", c.Topics, "topics to watch")
	flags.DurationVar(&c.Since, "since", time.Hour, "replay events published within this window")
	return cmd
}

func printEvent(w io.Writer, m events.Message) {
	fmt.Fprintf(w, "%s [%s] %s key=%s %s\n", m.Time.Format(time.TimeOnly), m.Topic, m.EventType, m.Key, m.Payload)
}
