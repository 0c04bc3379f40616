package kafkax

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrNoBrokers is reported when KAFKA_BROKERS resolved to an empty list.
var ErrNoBrokers = errors.New("kafka: no brokers configured (KAFKA_BROKERS)")

// ReadyCheck passes as soon as one of brokers accepts a connection.
func ReadyCheck(brokers []string) func(context.Context) error {
	return func(ctx context.Context) error {
		if len(brokers) == 0 {
			return ErrNoBrokers
		}
		dialer := kafka.Dialer{Timeout: 2 * time.Second}
		var errs []error
		for _, addr := range brokers {
			conn, err := dialer.DialContext(ctx, "tcp", addr)
			if err == nil {
				_ = conn.Close()
				return nil
			}
			errs = append(errs, fmt.Errorf("broker %s: %w", addr, err))
		}
		return errors.Join(errs...)
	}
}
