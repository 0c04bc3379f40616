// Package appointments runs the lifecycle engine against the store: each
// operation is one transaction that loads, checks, writes and emits its
// event, or changes nothing.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/intake"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/lifecycle"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/metrics"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/sitting"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/triage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Catalog interface {
	intake.Catalog
	Entries() []model.CatalogEntry
}

// Actor is the caller of a patient-facing operation. Patients only see and
// act on their own appointments; staff act on all of them.
type Actor struct {
	UserID string
	Staff  bool
}

func (a Actor) owns(appt model.Appointment) bool {
	return a.Staff || (a.UserID != "" && appt.OwnerID == a.UserID)
}

type Options struct {
	HorizonDays int
	Now         func() time.Time
	Metrics     *metrics.Metrics
}

type Service struct {
	store   Store
	catalog Catalog
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
	horizon int
}

func New(store Store, catalog Catalog, logger *slog.Logger, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = lifecycle.DefaultHorizonDays
	}
	return &Service{
		store:   store,
		catalog: catalog,
		logger:  logger,
		metrics: opts.Metrics,
		tracer:  otel.Tracer("appointments"),
		now:     opts.Now,
		horizon: opts.HorizonDays,
	}
}

func (s *Service) Window() lifecycle.Window {
	return lifecycle.NewWindow(s.now(), s.horizon)
}

func (s *Service) Catalog() []model.CatalogEntry {
	return s.catalog.Entries()
}

// Book creates a pending appointment for owner.
func (s *Service) Book(ctx context.Context, owner string, date civil.Date, serviceTitle string) (model.Appointment, error) {
	var out model.Appointment
	err := s.run(ctx, "book", func(ctx context.Context, tx Tx) error {
		a, err := intake.Book(s.catalog, s.Window(), owner, date, serviceTitle)
		if err != nil {
			return err
		}
		if err := tx.Save(ctx, &a); err != nil {
			return err
		}
		out = a
		return s.emit(ctx, tx, EventRequested, a)
	}, attribute.String("appointment.service", serviceTitle))
	if err == nil {
		s.logTransition("book", out)
	}
	return out, err
}

// Accept confirms a pending appointment at the proposed time.
func (s *Service) Accept(ctx context.Context, id int64, at model.Clock) (model.Appointment, error) {
	return s.transition(ctx, "accept", id, nil, func(ctx context.Context, tx Tx, a *model.Appointment) (string, error) {
		sameDay, err := s.lockedDay(ctx, tx, a.RequestedDate)
		if err != nil {
			return "", err
		}
		if err := lifecycle.Accept(a, at, sameDay); err != nil {
			return "", err
		}
		return EventConfirmed, nil
	})
}

func (s *Service) Decline(ctx context.Context, actor Actor, id int64) (model.Appointment, error) {
	return s.transition(ctx, "decline", id, &actor, func(_ context.Context, _ Tx, a *model.Appointment) (string, error) {
		return EventCancelled, lifecycle.Decline(a)
	})
}

func (s *Service) Complete(ctx context.Context, id int64) (model.Appointment, error) {
	return s.transition(ctx, "complete", id, nil, func(_ context.Context, _ Tx, a *model.Appointment) (string, error) {
		return EventCompleted, lifecycle.Complete(a)
	})
}

// AdvanceSitting moves to the next sitting at next, or completes the
// appointment on its final sitting.
func (s *Service) AdvanceSitting(ctx context.Context, id int64, next sitting.Slot) (model.Appointment, error) {
	return s.transition(ctx, "advance", id, nil, func(ctx context.Context, tx Tx, a *model.Appointment) (string, error) {
		var sameDay []model.Appointment
		if a.Status == model.StatusConfirmed && !a.FinalSitting() && next.Date != nil && next.Time != nil {
			var err error
			if sameDay, err = s.lockedDay(ctx, tx, *next.Date); err != nil {
				return "", err
			}
		}
		outcome, err := sitting.Advance(a, next, civil.DateOf(s.now()), sameDay)
		if err != nil {
			return "", err
		}
		if outcome == sitting.Completed {
			return EventCompleted, nil
		}
		return EventSittingAdvanced, nil
	})
}

// RecordFeedback accepts a rating from the appointment's owner only.
func (s *Service) RecordFeedback(ctx context.Context, actor Actor, id int64, rating int, review string) (model.Appointment, error) {
	owner := Actor{UserID: actor.UserID}
	return s.transition(ctx, "feedback", id, &owner, func(_ context.Context, _ Tx, a *model.Appointment) (string, error) {
		return EventFeedbackRecorded, lifecycle.RecordFeedback(a, rating, review)
	})
}

func (s *Service) SetFeedbackVisibility(ctx context.Context, id int64, visible bool) (model.Appointment, error) {
	return s.transition(ctx, "feedback_visibility", id, nil, func(_ context.Context, _ Tx, a *model.Appointment) (string, error) {
		return EventFeedbackVisibilityChanged, lifecycle.SetFeedbackVisibility(a, visible)
	})
}

// Remove soft-deletes a completed or cancelled appointment.
func (s *Service) Remove(ctx context.Context, actor Actor, id int64) error {
	_, err := s.transition(ctx, "remove", id, &actor, func(ctx context.Context, tx Tx, a *model.Appointment) (string, error) {
		if err := lifecycle.Remove(a); err != nil {
			return "", err
		}
		return EventRemoved, tx.Delete(ctx, a.ID)
	})
	return err
}

func (s *Service) Get(ctx context.Context, actor Actor, id int64) (model.Appointment, error) {
	var out model.Appointment
	err := s.run(ctx, "get", func(ctx context.Context, tx Tx) error {
		a, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if !actor.owns(a) {
			return fmt.Errorf("%w: appointment %d", model.ErrNotFound, id)
		}
		out = a
		return nil
	}, attribute.Int64("appointment.id", id))
	return out, err
}

// Triage builds the staff views over every appointment.
func (s *Service) Triage(ctx context.Context, c triage.Criteria) (triage.Views, error) {
	var v triage.Views
	err := s.run(ctx, "triage", func(ctx context.Context, tx Tx) error {
		all, err := tx.List(ctx)
		if err != nil {
			return err
		}
		v = triage.Build(all, c)
		return nil
	})
	return v, err
}

func (s *Service) History(ctx context.Context, userID string) ([]model.Appointment, error) {
	var out []model.Appointment
	err := s.run(ctx, "history", func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.ListByUser(ctx, userID)
		return err
	})
	return out, err
}

// Unrated lists the user's completed appointments still waiting for a rating.
func (s *Service) Unrated(ctx context.Context, userID string) ([]model.Appointment, error) {
	all, err := s.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []model.Appointment{}
	for _, a := range all {
		if a.Status == model.StatusCompleted && a.Rating == 0 {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Service) Reviews(ctx context.Context) ([]model.Appointment, error) {
	var out []model.Appointment
	err := s.run(ctx, "reviews", func(ctx context.Context, tx Tx) error {
		all, err := tx.List(ctx)
		if err != nil {
			return err
		}
		out = triage.Reviews(all)
		return nil
	})
	return out, err
}

type mutation func(ctx context.Context, tx Tx, a *model.Appointment) (eventType string, err error)

// transition loads id for update, applies fn, then persists the result and
// its event. actor, when set, must own the appointment.
func (s *Service) transition(ctx context.Context, op string, id int64, actor *Actor, fn mutation) (model.Appointment, error) {
	var out model.Appointment
	err := s.run(ctx, op, func(ctx context.Context, tx Tx) error {
		a, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if actor != nil && !actor.owns(a) {
			return fmt.Errorf("%w: appointment %d", model.ErrNotFound, id)
		}
		eventType, err := fn(ctx, tx, &a)
		if err != nil {
			return err
		}
		if eventType != EventRemoved {
			if err := tx.Save(ctx, &a); err != nil {
				return err
			}
		}
		out = a
		return s.emit(ctx, tx, eventType, a)
	}, attribute.Int64("appointment.id", id))
	if err == nil {
		s.logTransition(op, out)
	}
	return out, err
}

func (s *Service) lockedDay(ctx context.Context, tx Tx, d civil.Date) ([]model.Appointment, error) {
	if err := tx.LockDate(ctx, d); err != nil {
		return nil, err
	}
	return tx.ListByDate(ctx, d)
}

func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context, tx Tx) error, attrs ...attribute.KeyValue) error {
	ctx, span := s.tracer.Start(ctx, "appointments."+op, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	err := s.store.Atomic(ctx, func(tx Tx) error { return fn(ctx, tx) })
	result := ResultLabel(err)
	s.metrics.ObserveOperation(op, result, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		if result == "error" {
			s.logger.Error("appointment operation failed", "op", op, "err", err)
		}
	}
	return err
}

func (s *Service) logTransition(op string, a model.Appointment) {
	s.logger.Info("appointment transition",
		"op", op,
		"appointment_id", a.ID,
		"status", a.Status.String(),
		"sitting", a.CurrentSitting,
		"total_sittings", a.TotalSittings,
	)
}

var resultLabels = []struct {
	err   error
	label string
}{
	{model.ErrValidation, "validation"},
	{model.ErrUnknownService, "unknown_service"},
	{model.ErrInvalidTransition, "invalid_transition"},
	{model.ErrOutOfHours, "out_of_hours"},
	{model.ErrSlotConflict, "slot_conflict"},
	{model.ErrMissingNextSlot, "missing_next_slot"},
	{model.ErrAlreadyRated, "already_rated"},
	{model.ErrNotFound, "not_found"},
}

// ResultLabel names the error kind of err for metrics; "ok" for nil and
// "error" for anything that is not a domain error.
func ResultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	for _, r := range resultLabels {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "error"
}
