package kafkax

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestEventMetaHeadersRoundTrip(t *testing.T) {
	meta := EventMeta{EventID: "e-1", EventType: "dental.appointment.confirmed.v1"}
	got := ExtractEventMeta(kafka.Message{Headers: meta.Headers(), Topic: "ignored", Key: []byte("ignored")})
	if got != meta {
		t.Fatalf("expected %+v, got %+v", meta, got)
	}
}

func TestExtractEventMetaFallsBack(t *testing.T) {
	got := ExtractEventMeta(kafka.Message{Topic: "auth.user.registered.v1", Key: []byte("u-9")})
	if got.EventID != "u-9" || got.EventType != "auth.user.registered.v1" {
		t.Fatalf("unexpected fallback meta %+v", got)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka:9092, ,kafka-2:9092")
	if len(got) != 2 || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %#v", got)
	}
	if SplitBrokers("") != nil {
		t.Fatal("expected nil for empty list")
	}
}

func TestTraceHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceID, _ := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	spanID, _ := trace.SpanIDFromHex("b7ad6b7169203331")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	headers := InjectTraceHeaders(ctx, EventMeta{EventID: "e-2", EventType: "t"}.Headers())
	if HeaderValue(headers, "traceparent") == "" {
		t.Fatal("traceparent header missing")
	}
	extracted := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), kafka.Message{Headers: headers}))
	if extracted.TraceID() != traceID {
		t.Fatalf("trace id not restored: %s", extracted.TraceID())
	}
}

func TestReadyCheckReportsEveryBroker(t *testing.T) {
	if err := ReadyCheck(nil)(context.Background()); !errors.Is(err, ErrNoBrokers) {
		t.Fatalf("expected ErrNoBrokers, got %v", err)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	down := lis.Addr().String()
	_ = lis.Close()

	err = ReadyCheck([]string{down})(context.Background())
	if err == nil || !strings.Contains(err.Error(), down) {
		t.Fatalf("expected failure naming %s, got %v", down, err)
	}
}
