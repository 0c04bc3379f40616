// Package consumer applies Kafka events exactly once per event id by
// recording each one in the inbox inside the handler's transaction.
package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/dentalcare/libs/db"
	"github.com/md-rashed-zaman/dentalcare/libs/kafkax"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/inbox"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/metrics"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Handler applies msg within tx.
type Handler func(ctx context.Context, tx pgx.Tx, msg kafka.Message) error

// Reader is satisfied by *kafka.Reader.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  Reader
	db      db.TxBeginner
	inbox   *inbox.Repository
	logger  *slog.Logger
	metrics *metrics.Metrics
	handler Handler
	// permanent reports handler errors that retrying cannot fix.
	permanent  func(error) bool
	retryDelay time.Duration
	maxRetries int
}

type Options struct {
	Permanent  func(error) bool
	RetryDelay time.Duration
	MaxRetries int
}

func New(reader Reader, b db.TxBeginner, inboxRepo *inbox.Repository, logger *slog.Logger, m *metrics.Metrics, handler Handler, opts Options) *Consumer {
	if opts.Permanent == nil {
		opts.Permanent = func(error) bool { return false }
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	return &Consumer{
		reader:     reader,
		db:         b,
		inbox:      inboxRepo,
		logger:     logger,
		metrics:    m,
		handler:    handler,
		permanent:  opts.Permanent,
		retryDelay: opts.RetryDelay,
		maxRetries: opts.MaxRetries,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			if !sleep(ctx, c.retryDelay) {
				return
			}
			continue
		}

		for attempt := 1; ; attempt++ {
			result, err := c.Process(ctx, msg)
			if err == nil || result != "error" || attempt >= c.maxRetries {
				break
			}
			if !sleep(ctx, c.retryDelay) {
				return
			}
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit failed", "err", err, "offset", msg.Offset)
		}
	}
}

// Process applies one message and returns the outcome: ok, duplicate,
// invalid or error. Only error is worth retrying.
func (c *Consumer) Process(ctx context.Context, msg kafka.Message) (string, error) {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	duplicate := false
	err := db.InTx(ctxSpan, c.db, func(tx pgx.Tx) error {
		ok, err := c.inbox.Record(ctxSpan, tx, meta.EventID, meta.EventType)
		if err != nil {
			return err
		}
		if !ok {
			duplicate = true
			return nil
		}
		return c.handler(ctxSpan, tx, msg)
	})

	result := "ok"
	switch {
	case err != nil && c.permanent(err):
		result = "invalid"
		c.logger.Warn("dropping invalid event", "err", err, "event_id", meta.EventID, "event_type", meta.EventType)
	case err != nil:
		result = "error"
		span.RecordError(err)
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID)
	case duplicate:
		result = "duplicate"
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
	}
	c.metrics.ObserveConsumed(meta.EventType, result)
	if result == "error" {
		return result, err
	}
	return result, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// IsPermanent builds an Options.Permanent func matching any of targets.
func IsPermanent(targets ...error) func(error) bool {
	return func(err error) bool {
		for _, t := range targets {
			if errors.Is(err, t) {
				return true
			}
		}
		return false
	}
}
