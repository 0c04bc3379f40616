package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/md-rashed-zaman/dentalcare/libs/kafkax"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/segmentio/kafka-go"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

var outboxColumns = []string{"id", "event_id", "aggregate_type", "aggregate_id", "event_type", "payload", "traceparent", "tracestate", "created_at"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInsertUsesCallerTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs(pgxmock.AnyArg(), "appointment", "42", "dental.appointment.confirmed.v1", []byte(`{"id":42}`), "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = NewRepository().Insert(context.Background(), mock, Event{
		AggregateType: "appointment",
		AggregateID:   "42",
		EventType:     "dental.appointment.confirmed.v1",
		Payload:       []byte(`{"id":42}`),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPublishBatchMarksPublished(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("FROM outbox_events").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(outboxColumns).
			AddRow(int64(1), "e-1", "appointment", "7", "dental.appointment.requested.v1", []byte(`{}`), "", "", now).
			AddRow(int64(2), "e-2", "appointment", "7", "dental.appointment.confirmed.v1", []byte(`{}`), "", "", now))
	mock.ExpectExec("UPDATE outbox_events").
		WithArgs([]int64{1, 2}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectCommit()

	w := &recordingWriter{}
	p := NewPublisher(mock, NewRepository(), w, discardLogger(), nil, PublisherConfig{BatchSize: 10})
	n, err := p.PublishBatch(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("publish: n=%d err=%v", n, err)
	}
	if len(w.msgs) != 2 || w.msgs[1].Topic != "dental.appointment.confirmed.v1" || string(w.msgs[1].Key) != "7" {
		t.Fatalf("unexpected messages %+v", w.msgs)
	}
	if meta := kafkax.ExtractEventMeta(w.msgs[0]); meta.EventID != "e-1" {
		t.Fatalf("event id header missing: %+v", meta)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPublishBatchKeepsRowsOnWriteFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM outbox_events").
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows(outboxColumns).
			AddRow(int64(3), "e-3", "appointment", "8", "dental.appointment.cancelled.v1", []byte(`{}`), "", "", time.Now()))
	mock.ExpectRollback()

	p := NewPublisher(mock, NewRepository(), &recordingWriter{err: errors.New("broker down")}, discardLogger(), nil, PublisherConfig{})
	if _, err := p.PublishBatch(context.Background()); err == nil {
		t.Fatal("expected write error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
