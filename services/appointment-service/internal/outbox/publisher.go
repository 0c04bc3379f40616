package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/dentalcare/libs/db"
	"github.com/md-rashed-zaman/dentalcare/libs/kafkax"
	otelx "github.com/md-rashed-zaman/dentalcare/libs/otel"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/metrics"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Publisher struct {
	db        db.TxBeginner
	repo      *Repository
	writer    MessageWriter
	logger    *slog.Logger
	metrics   *metrics.Metrics
	pollEvery time.Duration
	batchSize int
}

type PublisherConfig struct {
	PollEvery time.Duration
	BatchSize int
}

// NewPublisher accepts a nil writer, in which case Run only logs that
// publishing is disabled.
func NewPublisher(b db.TxBeginner, repo *Repository, writer MessageWriter, logger *slog.Logger, m *metrics.Metrics, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Publisher{
		db:        b,
		repo:      repo,
		writer:    writer,
		logger:    logger,
		metrics:   m,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	if p.writer == nil {
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PublishBatch(ctx)
			p.metrics.ObserveOutboxPublished(n, err)
			if err != nil {
				p.logger.Error("outbox publish failed", "err", err)
			}
		}
	}
}

// PublishBatch sends one batch and marks it published in the same
// transaction. A failed write leaves the rows for the next tick, so
// delivery is at least once.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	var published int
	err := db.InTx(ctx, p.db, func(tx pgx.Tx) error {
		records, err := p.repo.FetchUnpublished(ctx, tx, p.batchSize)
		if err != nil || len(records) == 0 {
			return err
		}

		msgs := make([]kafka.Message, 0, len(records))
		ids := make([]int64, 0, len(records))
		for _, r := range records {
			msgCtx := otelx.ContextWithTraceContext(ctx, r.Traceparent, r.Tracestate)
			meta := kafkax.EventMeta{EventID: r.EventID, EventType: r.EventType}
			msgs = append(msgs, kafka.Message{
				Topic:   r.EventType,
				Key:     []byte(r.AggregateID),
				Value:   r.Payload,
				Headers: kafkax.InjectTraceHeaders(msgCtx, meta.Headers()),
			})
			ids = append(ids, r.ID)
		}
		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			return err
		}
		if err := p.repo.MarkPublished(ctx, tx, ids); err != nil {
			return err
		}
		published = len(records)
		return nil
	})
	return published, err
}
