package inbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by pgx.Tx. Recording inside the transaction that
// applies the event makes de-duplication and the side effect atomic.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Record reports false when eventID was already processed.
func (r *Repository) Record(ctx context.Context, tx Execer, eventID string, eventType string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, eventType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
