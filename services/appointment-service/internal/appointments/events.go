package appointments

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/outbox"
)

const (
	EventRequested                 = "dental.appointment.requested.v1"
	EventConfirmed                 = "dental.appointment.confirmed.v1"
	EventCancelled                 = "dental.appointment.cancelled.v1"
	EventSittingAdvanced           = "dental.appointment.sitting_advanced.v1"
	EventCompleted                 = "dental.appointment.completed.v1"
	EventFeedbackRecorded          = "dental.appointment.feedback_recorded.v1"
	EventFeedbackVisibilityChanged = "dental.appointment.feedback_visibility_changed.v1"
	EventRemoved                   = "dental.appointment.removed.v1"
)

const aggregateType = "appointment"

// EventPayload is the JSON body of every appointment event: the state after
// the transition.
type EventPayload struct {
	AppointmentID   int64     `json:"appointment_id"`
	OwnerID         string    `json:"owner_id"`
	ServiceTitle    string    `json:"service_title"`
	Status          string    `json:"status"`
	RequestedDate   string    `json:"requested_date"`
	AssignedTime    string    `json:"assigned_time,omitempty"`
	CurrentSitting  int       `json:"current_sitting"`
	TotalSittings   int       `json:"total_sittings"`
	Rating          int       `json:"rating,omitempty"`
	FeedbackVisible bool      `json:"feedback_visible"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func (s *Service) emit(ctx context.Context, tx Tx, eventType string, a model.Appointment) error {
	p := EventPayload{
		AppointmentID:   a.ID,
		OwnerID:         a.OwnerID,
		ServiceTitle:    a.ServiceTitle,
		Status:          a.Status.String(),
		RequestedDate:   a.RequestedDate.String(),
		CurrentSitting:  a.CurrentSitting,
		TotalSittings:   a.TotalSittings,
		Rating:          a.Rating,
		FeedbackVisible: a.FeedbackVisible,
		OccurredAt:      s.now().UTC(),
	}
	if a.AssignedTime != nil {
		p.AssignedTime = a.AssignedTime.String()
	}
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return tx.AppendEvent(ctx, outbox.Event{
		AggregateType: aggregateType,
		AggregateID:   strconv.FormatInt(a.ID, 10),
		EventType:     eventType,
		Payload:       body,
	})
}
