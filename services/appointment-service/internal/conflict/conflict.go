// Package conflict decides whether a (date, time) slot is already taken.
package conflict

import (
	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/model"
)

// HasConflict reports whether an appointment other than candidateID is
// confirmed at exactly date and at. Slots are points in time; neighbouring
// minutes never collide.
func HasConflict(candidateID int64, date civil.Date, at model.Clock, all []model.Appointment) bool {
	return Holder(candidateID, date, at, all) != nil
}

// Holder returns the appointment occupying the slot, or nil.
func Holder(candidateID int64, date civil.Date, at model.Clock, all []model.Appointment) *model.Appointment {
	for i := range all {
		a := &all[i]
		if a.ID == candidateID || a.Status != model.StatusConfirmed || a.AssignedTime == nil {
			continue
		}
		if a.RequestedDate == date && *a.AssignedTime == at {
			return a
		}
	}
	return nil
}
