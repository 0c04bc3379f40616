package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/dentalcare/libs/db"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/appointments"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/outbox"
)

// dateLockClass namespaces the advisory locks taken per calendar date.
const dateLockClass int32 = 0x0D07

// ConfirmedSlotIndex is the partial unique index that backs the conflict
// check when two writers race past the date lock.
const ConfirmedSlotIndex = "appointments_confirmed_slot_key"

var epoch = civil.Date{Year: 1970, Month: time.January, Day: 1}

// AppointmentStore is the Postgres implementation of appointments.Store.
type AppointmentStore struct {
	db     db.TxBeginner
	outbox *outbox.Repository
}

func NewAppointmentStore(b db.TxBeginner, outboxRepo *outbox.Repository) *AppointmentStore {
	return &AppointmentStore{db: b, outbox: outboxRepo}
}

func (s *AppointmentStore) Atomic(ctx context.Context, fn func(tx appointments.Tx) error) error {
	return db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&appointmentTx{tx: tx, outbox: s.outbox})
	})
}

type appointmentTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

const selectAppointments = `
	SELECT a.id, a.owner_id, COALESCE(p.display_name, ''), a.service_title, a.requested_date::text,
		a.assigned_minute, a.status, a.current_sitting, a.total_sittings, a.rating, a.review,
		a.feedback_visible, a.created_at, a.updated_at
	FROM appointments a
	LEFT JOIN patients p ON p.user_id = a.owner_id
	WHERE a.deleted_at IS NULL`

func (t *appointmentTx) LockDate(ctx context.Context, d civil.Date) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, dateLockClass, int32(d.DaysSince(epoch)))
	return err
}

func (t *appointmentTx) List(ctx context.Context) ([]model.Appointment, error) {
	return t.query(ctx, selectAppointments+` ORDER BY a.id`)
}

func (t *appointmentTx) ListByDate(ctx context.Context, d civil.Date) ([]model.Appointment, error) {
	return t.query(ctx, selectAppointments+` AND a.requested_date = $1::date ORDER BY a.id`, d.String())
}

func (t *appointmentTx) ListByUser(ctx context.Context, userID string) ([]model.Appointment, error) {
	return t.query(ctx, selectAppointments+` AND a.owner_id = $1 ORDER BY a.id`, userID)
}

func (t *appointmentTx) Get(ctx context.Context, id int64) (model.Appointment, error) {
	rows, err := t.tx.Query(ctx, selectAppointments+` AND a.id = $1 FOR UPDATE OF a`, id)
	if err != nil {
		return model.Appointment{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return model.Appointment{}, err
		}
		return model.Appointment{}, fmt.Errorf("%w: appointment %d", model.ErrNotFound, id)
	}
	return scanAppointment(rows)
}

func (t *appointmentTx) Save(ctx context.Context, a *model.Appointment) error {
	var minute *int
	if a.AssignedTime != nil {
		m := int(*a.AssignedTime)
		minute = &m
	}

	if a.ID == 0 {
		err := t.tx.QueryRow(ctx, `
			INSERT INTO appointments
				(owner_id, service_title, requested_date, assigned_minute, status, current_sitting, total_sittings, rating, review, feedback_visible)
			VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, created_at, updated_at
		`, a.OwnerID, a.ServiceTitle, a.RequestedDate.String(), minute, a.Status.String(), a.CurrentSitting, a.TotalSittings,
			a.Rating, a.Review, a.FeedbackVisible).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
		return mapError(err)
	}

	err := t.tx.QueryRow(ctx, `
		UPDATE appointments
		SET requested_date = $2::date,
			assigned_minute = $3,
			status = $4,
			current_sitting = $5,
			rating = $6,
			review = $7,
			feedback_visible = $8,
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at
	`, a.ID, a.RequestedDate.String(), minute, a.Status.String(), a.CurrentSitting, a.Rating, a.Review, a.FeedbackVisible).Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: appointment %d", model.ErrNotFound, a.ID)
	}
	return mapError(err)
}

func (t *appointmentTx) Delete(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE appointments
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: appointment %d", model.ErrNotFound, id)
	}
	return nil
}

func (t *appointmentTx) AppendEvent(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}

func (t *appointmentTx) query(ctx context.Context, sql string, args ...any) ([]model.Appointment, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appts := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		a      model.Appointment
		date   string
		minute *int
		status string
	)
	if err := row.Scan(
		&a.ID,
		&a.OwnerID,
		&a.OwnerName,
		&a.ServiceTitle,
		&date,
		&minute,
		&status,
		&a.CurrentSitting,
		&a.TotalSittings,
		&a.Rating,
		&a.Review,
		&a.FeedbackVisible,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return model.Appointment{}, err
	}

	var err error
	if a.RequestedDate, err = civil.ParseDate(date); err != nil {
		return model.Appointment{}, fmt.Errorf("appointment %d: %w", a.ID, err)
	}
	if a.Status, err = model.ParseStatus(status); err != nil {
		return model.Appointment{}, fmt.Errorf("appointment %d: %w", a.ID, err)
	}
	if minute != nil {
		c := model.Clock(*minute)
		a.AssignedTime = &c
	}
	return a, nil
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == ConfirmedSlotIndex {
		return fmt.Errorf("%w: %s", model.ErrSlotConflict, pgErr.Detail)
	}
	return err
}

var _ appointments.Store = (*AppointmentStore)(nil)
