package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"speech-sentiment-service/internal/observability/logging"
)

// Message is an event read back from one of the session topics.
type Message struct {
	Topic     string
	Key       string
	EventType string
	Principal string
	Time      time.Time
	Payload   json.RawMessage
}

// ConsumerConfig configures Consume.
type ConsumerConfig struct {
	Brokers []string
	Topics  []string
	Since   time.Duration // replay window; zero starts at the newest offset
}

// Consume reads partition 0 of every topic and calls fn for each message until
// ctx is done. fn may be called concurrently from different topics.
func Consume(ctx context.Context, cfg ConsumerConfig, fn func(Message)) error {
	if len(cfg.Brokers) == 0 {
		return errors.New("events: no brokers configured")
	}
	if len(cfg.Topics) == 0 {
		return errors.New("events: no topics configured")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, topic := range cfg.Topics {
		g.Go(func() error {
			return consumeTopic(ctx, cfg, topic, fn)
		})
	}
	return g.Wait()
}

func consumeTopic(ctx context.Context, cfg ConsumerConfig, topic string, fn func(Message)) error {
	logger := logging.WithComponent("events-consumer").With().Str("topic", topic).Logger()

	// Partition reader without a consumer group, so every watcher sees every event.
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   cfg.Brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if cfg.Since > 0 {
		if err := reader.SetOffsetAt(ctx, time.Now().Add(-cfg.Since)); err != nil {
			logger.Warn().Err(err).Msg("Failed to rewind reader, starting at the first offset")
		}
	} else if err := reader.SetOffset(kafka.LastOffset); err != nil {
		return err
	}

	logger.Info().Dur("since", cfg.Since).Msg("Consuming events")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error().Err(err).Msg("Kafka read error")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		fn(decodeMessage(msg))
	}
}

func decodeMessage(msg kafka.Message) Message {
	m := Message{
		Topic:   msg.Topic,
		Key:     string(msg.Key),
		Time:    msg.Time,
		Payload: json.RawMessage(msg.Value),
	}
	for _, h := range msg.Headers {
		switch h.Key {
		case "eventType":
			m.EventType = string(h.Value)
		case "principal":
			m.Principal = string(h.Value)
		}
	}
	return m
}
