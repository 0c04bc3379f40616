package appointments

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/outbox"
)

// Store runs fn in a single transaction: everything fn did through tx is
// committed when it returns nil and discarded otherwise.
type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the appointment store as seen from inside a transaction. Reads
// exclude soft-deleted appointments and fill OwnerName where the patient is
// known.
type Tx interface {
	// LockDate serializes every transaction that checks or takes a slot on d
	// until the transaction ends.
	LockDate(ctx context.Context, d civil.Date) error
	// List returns every appointment in creation order.
	List(ctx context.Context) ([]model.Appointment, error)
	ListByDate(ctx context.Context, d civil.Date) ([]model.Appointment, error)
	ListByUser(ctx context.Context, userID string) ([]model.Appointment, error)
	// Get returns the appointment locked for update, or model.ErrNotFound.
	Get(ctx context.Context, id int64) (model.Appointment, error)
	// Save inserts a (ID == 0, ID is then assigned) or updates it.
	Save(ctx context.Context, a *model.Appointment) error
	Delete(ctx context.Context, id int64) error
	AppendEvent(ctx context.Context, evt outbox.Event) error
}
