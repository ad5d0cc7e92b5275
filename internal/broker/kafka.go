package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"putik-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewProducer creates a new Kafka producer
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

	return &Producer{writer: writer, logger: util.GetLogger()}
}

// PublishEvent publishes an event to Kafka
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

	err = p.writer.WriteMessages(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	p.logger.Debug("Published event", zap.String("key", key), zap.String("type", fmt.Sprintf("%T", event)))
	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

const (
	handleAttempts   = 5
	handleRetryDelay = 200 * time.Millisecond
)

// Consumer represents a Kafka consumer
type Consumer struct {
	reader *kafka.Reader
	logger *zap.Logger
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	return &Consumer{reader: reader, logger: util.GetLogger()}
}

// Close closes the consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// MessageHandler is a function type for handling messages
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// StartConsuming fetches messages until ctx is done. A failing handler is
// retried with backoff. Once the attempts run out the message is logged,
// committed and skipped so one bad event cannot stall the partition.
func (c *Consumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	topic := c.reader.Config().Topic
	c.logger.Info("Starting Kafka consumer", zap.String("topic", topic))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("Consumer context cancelled, stopping", zap.String("topic", topic))
				return ctx.Err()
			}
			c.logger.Warn("Error fetching message", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		if err := handleWithRetry(ctx, handler, msg, handleAttempts, handleRetryDelay); err != nil {
			if ctx.Err() != nil {
				// uncommitted, so the group redelivers it after restart
				return ctx.Err()
			}
			c.logger.Error("Dropping message after retries",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Int("attempts", handleAttempts),
				zap.Error(err))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Warn("Error committing message", zap.Error(err))
		}
	}
}

// handleWithRetry calls handler up to attempts times, doubling delay after
// each failure. It returns the last handler error, or ctx.Err() when ctx is
// done while waiting.
func handleWithRetry(ctx context.Context, handler MessageHandler, msg kafka.Message, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = handler(ctx, msg); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		util.LoggerFrom(ctx).Warn("Retrying message",
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", i+1),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
