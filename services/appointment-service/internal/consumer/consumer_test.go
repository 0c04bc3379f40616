package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/dentalcare/libs/kafkax"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/inbox"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/segmentio/kafka-go"
)

var errBadPayload = errors.New("bad payload")

func newConsumer(t *testing.T, handler Handler) (pgxmock.PgxPoolIface, *Consumer) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mock.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return mock, New(nil, mock, inbox.NewRepository(), logger, nil, handler, Options{Permanent: IsPermanent(errBadPayload)})
}

func message(id string) kafka.Message {
	return kafka.Message{
		Topic:   "auth.user.registered.v1",
		Headers: kafkax.EventMeta{EventID: id, EventType: "auth.user.registered.v1"}.Headers(),
		Value:   []byte(`{}`),
	}
}

func TestProcessAppliesNewEvent(t *testing.T) {
	calls := 0
	mock, c := newConsumer(t, func(context.Context, pgx.Tx, kafka.Message) error {
		calls++
		return nil
	})
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO inbox_events").
		WithArgs("e-1", "auth.user.registered.v1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	result, err := c.Process(context.Background(), message("e-1"))
	if err != nil || result != "ok" || calls != 1 {
		t.Fatalf("result=%s err=%v calls=%d", result, err, calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProcessSkipsDuplicate(t *testing.T) {
	mock, c := newConsumer(t, func(context.Context, pgx.Tx, kafka.Message) error {
		t.Fatal("handler must not run for a duplicate")
		return nil
	})
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO inbox_events").
		WithArgs("e-1", "auth.user.registered.v1").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectCommit()

	if result, err := c.Process(context.Background(), message("e-1")); err != nil || result != "duplicate" {
		t.Fatalf("result=%s err=%v", result, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProcessClassifiesHandlerErrors(t *testing.T) {
	cases := []struct {
		err     error
		result  string
		wantErr bool
	}{
		{errBadPayload, "invalid", false},
		{errors.New("db down"), "error", true},
	}
	for _, tc := range cases {
		mock, c := newConsumer(t, func(context.Context, pgx.Tx, kafka.Message) error { return tc.err })
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO inbox_events").
			WithArgs("e-2", "auth.user.registered.v1").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectRollback()

		result, err := c.Process(context.Background(), message("e-2"))
		if result != tc.result || (err != nil) != tc.wantErr {
			t.Fatalf("handler error %v: result=%s err=%v", tc.err, result, err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("handler error %v: unmet expectations: %v", tc.err, err)
		}
	}
}
