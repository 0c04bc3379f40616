package model

import (
	"time"

	"cloud.google.com/go/civil"
)

type Appointment struct {
	ID              int64
	OwnerID         string
	OwnerName       string
	ServiceTitle    string
	RequestedDate   civil.Date
	AssignedTime    *Clock
	Status          Status
	CurrentSitting  int
	TotalSittings   int
	Rating          int
	Review          string
	FeedbackVisible bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Scheduled reports whether the appointment holds a time slot.
func (a Appointment) Scheduled() bool { return a.AssignedTime != nil }

// FinalSitting reports whether the current sitting is the last one.
func (a Appointment) FinalSitting() bool { return a.CurrentSitting == a.TotalSittings }

// Clone returns a copy that shares no pointers with a.
func (a Appointment) Clone() Appointment {
	if a.AssignedTime != nil {
		t := *a.AssignedTime
		a.AssignedTime = &t
	}
	return a
}

// IsReview reports whether the appointment is shown in the public reviews.
func (a Appointment) IsReview() bool { return a.Rating > 0 && a.FeedbackVisible }

type CatalogEntry struct {
	ID               string
	Title            string
	PriceMinor       int64
	RequiredSittings int
}

// Patient is the local projection of a registered user.
type Patient struct {
	UserID      string
	DisplayName string
	Phone       string
	Role        string
	UpdatedAt   time.Time
}
