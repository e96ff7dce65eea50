package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/hybridsearch/pkg/logger"
)

const (
	// maxHandlerRetries bounds handler attempts before a message is committed
	// and skipped.
	maxHandlerRetries = 3
	retryBaseBackoff  = 100 * time.Millisecond
	consumerTracer    = "github.com/utafrali/hybridsearch/pkg/kafka"
)

// Handler processes one decoded event.
type Handler func(ctx context.Context, event *Event) error

type topicCtxKey struct{}

// TopicFromContext returns the topic of the message being handled, if any.
func TopicFromContext(ctx context.Context) string {
	v, _ := ctx.Value(topicCtxKey{}).(string)
	return v
}

// ContextWithTopic returns ctx carrying topic for TopicFromContext.
func ContextWithTopic(ctx context.Context, topic string) context.Context {
	return context.WithValue(ctx, topicCtxKey{}, topic)
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topics   []string
	MinBytes int
	MaxBytes int
}

// MessageReader is the subset of *kafka.Reader the consumer depends on.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer fetches, decodes and dispatches events, committing each message
// once handled or once it is known to be unprocessable.
type Consumer struct {
	reader    MessageReader
	group     string
	logger    *slog.Logger
	handler   Handler
	backoff   time.Duration
	closeOnce sync.Once
}

// NewConsumer creates a group consumer over cfg.Topics.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
	})
	return NewConsumerWithReader(r, cfg.GroupID, handler, logger)
}

// NewConsumerWithReader builds a consumer over an existing reader.
func NewConsumerWithReader(r MessageReader, group string, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:  r,
		group:   group,
		logger:  logger,
		handler: handler,
		backoff: retryBaseBackoff,
	}
}

// Start consumes until ctx is canceled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started", slog.String("group", c.group))
	defer c.Close() //nolint:errcheck

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("consumer stopping", slog.String("group", c.group))
				return nil
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}

		c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to commit message",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

// process handles a single message. Failures are logged and counted; the
// caller commits regardless so one bad message cannot stall the partition.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	ConsumerMessagesReceived.WithLabelValues(msg.Topic, c.group).Inc()

	headers := msg.Headers
	ctx = ContextWithTopic(ctx, msg.Topic)
	ctx = otel.GetTextMapPropagator().Extract(ctx, NewHeaderCarrier(&headers))
	ctx, span := otel.Tracer(consumerTracer).Start(ctx, "kafka.consume "+msg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.Int("messaging.kafka.destination.partition", msg.Partition),
			attribute.Int64("messaging.kafka.message.offset", msg.Offset),
		),
	)
	defer span.End()

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		ConsumerMessagesFailed.WithLabelValues(msg.Topic, c.group).Inc()
		span.SetStatus(codes.Error, err.Error())
		c.logger.ErrorContext(ctx, "skipping undecodable message",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		return
	}
	if event.CorrelationID != "" {
		ctx = logger.WithCorrelationID(ctx, event.CorrelationID)
	}
	l := logger.WithContext(ctx, c.logger)

	start := time.Now()
	err = c.handleWithRetry(ctx, l, msg, event)
	ConsumerProcessingDuration.WithLabelValues(msg.Topic, c.group).Observe(time.Since(start).Seconds())

	if err != nil {
		ConsumerMessagesFailed.WithLabelValues(msg.Topic, c.group).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.ErrorContext(ctx, "handler failed after all retries, skipping message",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		return
	}
	ConsumerMessagesProcessed.WithLabelValues(msg.Topic, c.group).Inc()
}

func (c *Consumer) handleWithRetry(ctx context.Context, l *slog.Logger, msg kafka.Message, event *Event) error {
	var lastErr error
	for attempt := 1; attempt <= maxHandlerRetries; attempt++ {
		lastErr = c.handler(ctx, event)
		if lastErr == nil {
			return nil
		}
		l.WarnContext(ctx, "handler failed, will retry",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.String("topic", msg.Topic),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", maxHandlerRetries),
			slog.String("error", lastErr.Error()),
		)
		if attempt == maxHandlerRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}
	return fmt.Errorf("after %d attempts: %w", maxHandlerRetries, lastErr)
}

// Close closes the reader. It is safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}
