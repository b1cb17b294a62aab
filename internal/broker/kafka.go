package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ecofinds/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a Kafka producer for topic.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		ReadTimeout:            10 * time.Second,
		AllowAutoTopicCreation: true,
	}

	return &Producer{writer: writer}
}

// PublishEvent marshals event as JSON and writes it under key. Messages with
// the same key land on the same partition, so events of one order stay in
// order.
func (p *Producer) PublishEvent(ctx context.Context, key string, event interface{}) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: eventBytes,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	util.GetLogger().Debug("Published event", zap.String("key", key), zap.String("type", fmt.Sprintf("%T", event)))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// messageReader is the part of *kafka.Reader the consumer loop needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer is a consumer-group reader for one topic.
type Consumer struct {
	reader       messageReader
	topic        string
	retryInitial time.Duration
	retryMax     time.Duration
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	return newConsumer(reader, topic)
}

func newConsumer(reader messageReader, topic string) *Consumer {
	return &Consumer{
		reader:       reader,
		topic:        topic,
		retryInitial: 500 * time.Millisecond,
		retryMax:     30 * time.Second,
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// MessageHandler is a function type for handling messages
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// StartConsuming fetches messages until ctx is cancelled. Offsets are
// committed per partition, so a message is retried with backoff until its
// handler succeeds and nothing after it is committed first. Messages failing
// with ErrMalformedEvent can never succeed and are committed after logging.
func (c *Consumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	logger := util.GetLogger().With(zap.String("topic", c.topic))
	logger.Info("Starting Kafka consumer")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("Consumer context cancelled, stopping")
				return ctx.Err()
			}
			logger.Error("Error fetching message", zap.Error(err))
			if err := sleepContext(ctx, time.Second); err != nil {
				return err
			}
			continue
		}

		if err := c.handleWithRetry(ctx, handler, msg); err != nil {
			logger.Info("Consumer context cancelled, stopping",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset))
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			logger.Error("Error committing message", zap.Error(err))
		}
	}
}

// handleWithRetry runs handler until it succeeds, the message turns out to be
// malformed, or ctx is cancelled. Only the last case returns an error.
func (c *Consumer) handleWithRetry(ctx context.Context, handler MessageHandler, msg kafka.Message) error {
	logger := util.GetLogger().With(
		zap.String("topic", c.topic),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset))

	delay := c.retryInitial
	for attempt := 1; ; attempt++ {
		err := handler(ctx, msg)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrMalformedEvent) {
			logger.Error("Skipping malformed message", zap.Error(err))
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger.Warn("Error handling message, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))
		if err := sleepContext(ctx, delay); err != nil {
			return err
		}
		if delay *= 2; delay > c.retryMax {
			delay = c.retryMax
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
