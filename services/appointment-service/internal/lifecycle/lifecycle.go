// Package lifecycle holds the appointment state machine. Every function
// checks all of its preconditions before touching the appointment, so a
// returned error means nothing changed.
package lifecycle

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/conflict"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/model"
)

var transitions = map[model.Status][]model.Status{
	model.StatusPending:   {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed: {model.StatusCompleted, model.StatusCancelled},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to model.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func invalid(a *model.Appointment, op string) error {
	return fmt.Errorf("%w: cannot %s appointment %d in status %s", model.ErrInvalidTransition, op, a.ID, a.Status)
}

// Request builds a new pending appointment for the given service.
func Request(owner string, date civil.Date, entry model.CatalogEntry, w Window) (model.Appointment, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return model.Appointment{}, fmt.Errorf("%w: owner is required", model.ErrValidation)
	}
	if strings.TrimSpace(entry.Title) == "" || entry.RequiredSittings < 1 {
		return model.Appointment{}, fmt.Errorf("%w: service %q is not in the catalog", model.ErrValidation, entry.Title)
	}
	if err := w.Check(date); err != nil {
		return model.Appointment{}, err
	}
	return model.Appointment{
		OwnerID:        owner,
		ServiceTitle:   entry.Title,
		RequestedDate:  date,
		Status:         model.StatusPending,
		CurrentSitting: 1,
		TotalSittings:  entry.RequiredSittings,
	}, nil
}

// Accept schedules a pending appointment at the proposed time on its
// requested date. all must be a consistent snapshot of the appointments on
// that date.
func Accept(a *model.Appointment, at model.Clock, all []model.Appointment) error {
	if !CanTransition(a.Status, model.StatusConfirmed) {
		return invalid(a, "accept")
	}
	if err := checkHours(at); err != nil {
		return err
	}
	if h := conflict.Holder(a.ID, a.RequestedDate, at, all); h != nil {
		return fmt.Errorf("%w: %s at %s is held by appointment %d", model.ErrSlotConflict, a.RequestedDate, at.Display(), h.ID)
	}
	a.Status = model.StatusConfirmed
	a.AssignedTime = &at
	return nil
}

func Decline(a *model.Appointment) error {
	if !CanTransition(a.Status, model.StatusCancelled) {
		return invalid(a, "decline")
	}
	a.Status = model.StatusCancelled
	return nil
}

// Complete discharges a confirmed appointment on its final sitting.
func Complete(a *model.Appointment) error {
	if !CanTransition(a.Status, model.StatusCompleted) {
		return invalid(a, "complete")
	}
	if !a.FinalSitting() {
		return fmt.Errorf("%w: appointment %d is on sitting %d of %d", model.ErrInvalidTransition, a.ID, a.CurrentSitting, a.TotalSittings)
	}
	a.Status = model.StatusCompleted
	return nil
}

const MaxRating = 5

func RecordFeedback(a *model.Appointment, rating int, review string) error {
	if a.Status != model.StatusCompleted {
		return invalid(a, "rate")
	}
	if a.Rating != 0 {
		return fmt.Errorf("%w: appointment %d", model.ErrAlreadyRated, a.ID)
	}
	if rating < 1 || rating > MaxRating {
		return fmt.Errorf("%w: rating must be between 1 and %d", model.ErrValidation, MaxRating)
	}
	a.Rating = rating
	a.Review = strings.TrimSpace(review)
	return nil
}

func SetFeedbackVisibility(a *model.Appointment, visible bool) error {
	if a.Rating == 0 {
		return fmt.Errorf("%w: appointment %d has no feedback", model.ErrInvalidTransition, a.ID)
	}
	a.FeedbackVisible = visible
	return nil
}

// Remove checks that a may be soft-deleted. It does not modify a.
func Remove(a *model.Appointment) error {
	if !a.Status.Terminal() {
		return invalid(a, "remove")
	}
	return nil
}
