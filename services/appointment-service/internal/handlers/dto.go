package handlers

import (
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/triage"
)

type bookRequest struct {
	Service string `json:"service" validate:"required,max=100"`
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
}

type acceptRequest struct {
	Time string `json:"time" validate:"required,max=16"`
}

type advanceRequest struct {
	NextDate *string `json:"next_date" validate:"omitempty,datetime=2006-01-02"`
	NextTime *string `json:"next_time" validate:"omitempty,max=16"`
}

type feedbackRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Review string `json:"review" validate:"max=2000"`
}

type visibilityRequest struct {
	Visible *bool `json:"visible" validate:"required"`
}

type appointmentResponse struct {
	ID              int64  `json:"id"`
	OwnerID         string `json:"owner_id"`
	OwnerName       string `json:"owner_name,omitempty"`
	Service         string `json:"service"`
	Date            string `json:"date"`
	Time            string `json:"time,omitempty"`
	TimeDisplay     string `json:"time_display,omitempty"`
	Status          string `json:"status"`
	CurrentSitting  int    `json:"current_sitting"`
	TotalSittings   int    `json:"total_sittings"`
	Rating          int    `json:"rating"`
	Review          string `json:"review,omitempty"`
	FeedbackVisible bool   `json:"feedback_visible"`
}

func toResponse(a model.Appointment) appointmentResponse {
	resp := appointmentResponse{
		ID:              a.ID,
		OwnerID:         a.OwnerID,
		OwnerName:       a.OwnerName,
		Service:         a.ServiceTitle,
		Date:            a.RequestedDate.String(),
		Status:          a.Status.String(),
		CurrentSitting:  a.CurrentSitting,
		TotalSittings:   a.TotalSittings,
		Rating:          a.Rating,
		Review:          a.Review,
		FeedbackVisible: a.FeedbackVisible,
	}
	if a.AssignedTime != nil {
		resp.Time = a.AssignedTime.String()
		resp.TimeDisplay = a.AssignedTime.Display()
	}
	return resp
}

func toResponses(list []model.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toResponse(a))
	}
	return out
}

type triageResponse struct {
	Pending   []appointmentResponse `json:"pending"`
	Confirmed []appointmentResponse `json:"confirmed"`
	Completed []appointmentResponse `json:"completed"`
	Cancelled []appointmentResponse `json:"cancelled"`
	Feedback  []appointmentResponse `json:"feedback"`
}

func toTriageResponse(v triage.Views) triageResponse {
	return triageResponse{
		Pending:   toResponses(v.Pending),
		Confirmed: toResponses(v.Confirmed),
		Completed: toResponses(v.Completed),
		Cancelled: toResponses(v.Cancelled),
		Feedback:  toResponses(v.Feedback),
	}
}

// reviewResponse is the public face of a review; it carries no ids.
type reviewResponse struct {
	Patient string `json:"patient"`
	Service string `json:"service"`
	Rating  int    `json:"rating"`
	Review  string `json:"review,omitempty"`
	Date    string `json:"date"`
}

type serviceResponse struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	PriceMinor       int64  `json:"price_minor"`
	RequiredSittings int    `json:"required_sittings"`
}
