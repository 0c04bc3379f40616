// Package sitting tracks progress through multi-visit treatments.
package sitting

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/conflict"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/lifecycle"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/model"
)

// Slot is the (date, time) of the next sitting. Either field may be nil
// when the caller did not supply it.
type Slot struct {
	Date *civil.Date
	Time *model.Clock
}

// Outcome tells the caller which transition Advance performed.
type Outcome int

const (
	Advanced Outcome = iota + 1
	Completed
)

// Advance moves a confirmed appointment to its next sitting, or completes it
// when the current sitting is the final one (next is then ignored).
//
// The next slot is validated like a fresh acceptance: not a Sunday, not
// before today, inside operating hours and free in all, which must hold the
// appointments on next.Date.
func Advance(a *model.Appointment, next Slot, today civil.Date, all []model.Appointment) (Outcome, error) {
	if a.Status != model.StatusConfirmed {
		return 0, fmt.Errorf("%w: cannot advance appointment %d in status %s", model.ErrInvalidTransition, a.ID, a.Status)
	}
	if a.FinalSitting() {
		if err := lifecycle.Complete(a); err != nil {
			return 0, err
		}
		return Completed, nil
	}
	if next.Date == nil || next.Time == nil {
		return 0, fmt.Errorf("%w: sitting %d of %d needs the next date and time", model.ErrMissingNextSlot, a.CurrentSitting+1, a.TotalSittings)
	}

	date, at := *next.Date, *next.Time
	if !date.IsValid() || lifecycle.IsSunday(date) || date.Before(today) {
		return 0, fmt.Errorf("%w: %s cannot host the next sitting", model.ErrValidation, date)
	}
	if !lifecycle.WithinHours(at) {
		return 0, fmt.Errorf("%w: %s", model.ErrOutOfHours, at.Display())
	}
	if h := conflict.Holder(a.ID, date, at, all); h != nil {
		return 0, fmt.Errorf("%w: %s at %s is held by appointment %d", model.ErrSlotConflict, date, at.Display(), h.ID)
	}

	a.CurrentSitting++
	a.RequestedDate = date
	a.AssignedTime = &at
	return Advanced, nil
}
