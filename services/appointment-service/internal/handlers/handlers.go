// Package handlers is the HTTP adapter of the appointment service.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/md-rashed-zaman/dentalcare/libs/auth"
	"github.com/md-rashed-zaman/dentalcare/libs/httpx"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/appointments"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/sitting"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/triage"
)

type Handler struct {
	svc      *appointments.Service
	logger   *slog.Logger
	validate *validator.Validate
}

func New(svc *appointments.Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes holds the middleware the handler needs from its caller.
type Routes struct {
	Auth *auth.Authenticator
	// BookLimit throttles appointment requests; nil disables it.
	BookLimit httpx.Middleware
}

func (h *Handler) Register(mux *http.ServeMux, rt Routes) {
	anyone := rt.Auth.Require()
	staff := rt.Auth.Require(auth.RoleStaff)
	wrap := func(fn http.HandlerFunc, m ...httpx.Middleware) http.Handler {
		return httpx.Chain(fn, m...)
	}
	book := []httpx.Middleware{anyone}
	if rt.BookLimit != nil {
		book = append([]httpx.Middleware{rt.BookLimit}, book...)
	}

	mux.HandleFunc("GET /api/v1/services", h.listServices)
	mux.HandleFunc("GET /api/v1/reviews", h.listReviews)

	mux.Handle("POST /api/v1/appointments", wrap(h.book, book...))
	mux.Handle("GET /api/v1/appointments", wrap(h.triage, staff))
	mux.Handle("GET /api/v1/appointments/{id}", wrap(h.get, anyone))
	mux.Handle("DELETE /api/v1/appointments/{id}", wrap(h.remove, anyone))
	mux.Handle("POST /api/v1/appointments/{id}/accept", wrap(h.accept, staff))
	mux.Handle("POST /api/v1/appointments/{id}/decline", wrap(h.decline, anyone))
	mux.Handle("POST /api/v1/appointments/{id}/complete", wrap(h.complete, staff))
	mux.Handle("POST /api/v1/appointments/{id}/advance", wrap(h.advance, staff))
	mux.Handle("POST /api/v1/appointments/{id}/feedback", wrap(h.feedback, anyone))
	mux.Handle("PUT /api/v1/appointments/{id}/feedback/visibility", wrap(h.visibility, staff))

	mux.Handle("GET /api/v1/me/appointments", wrap(h.history, anyone))
	mux.Handle("GET /api/v1/me/appointments/unrated", wrap(h.unrated, anyone))
}

func (h *Handler) listServices(w http.ResponseWriter, _ *http.Request) {
	entries := h.svc.Catalog()
	out := make([]serviceResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, serviceResponse{
			ID:               e.ID,
			Title:            e.Title,
			PriceMinor:       e.PriceMinor,
			RequiredSittings: e.RequiredSittings,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"services": out})
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Reviews(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]reviewResponse, 0, len(list))
	for _, a := range list {
		out = append(out, reviewResponse{
			Patient: a.OwnerName,
			Service: a.ServiceTitle,
			Rating:  a.Rating,
			Review:  a.Review,
			Date:    a.RequestedDate.String(),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"reviews": out})
}

func (h *Handler) book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := civil.ParseDate(req.Date)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	claims, _ := auth.ClaimsFromContext(r.Context())
	appt, err := h.svc.Book(r.Context(), claims.Subject, date, req.Service)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toResponse(appt))
}

func (h *Handler) triage(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	views, err := h.svc.Triage(r.Context(), c)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTriageResponse(views))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	appt, err := h.svc.Get(r.Context(), actorOf(r), id)
	h.respond(w, r, appt, err)
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req acceptRequest
	if !h.decode(w, r, &req) {
		return
	}
	at, err := model.ParseClock(req.Time)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	appt, err := h.svc.Accept(r.Context(), id, at)
	h.respond(w, r, appt, err)
}

func (h *Handler) decline(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	appt, err := h.svc.Decline(r.Context(), actorOf(r), id)
	h.respond(w, r, appt, err)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	appt, err := h.svc.Complete(r.Context(), id)
	h.respond(w, r, appt, err)
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	// On the final sitting the body may be absent.
	var req advanceRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}
	var next sitting.Slot
	if req.NextDate != nil {
		d, err := civil.ParseDate(*req.NextDate)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "next_date must be YYYY-MM-DD")
			return
		}
		next.Date = &d
	}
	if req.NextTime != nil {
		c, err := model.ParseClock(*req.NextTime)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		next.Time = &c
	}
	appt, err := h.svc.AdvanceSitting(r.Context(), id, next)
	h.respond(w, r, appt, err)
}

func (h *Handler) feedback(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req feedbackRequest
	if !h.decode(w, r, &req) {
		return
	}
	appt, err := h.svc.RecordFeedback(r.Context(), actorOf(r), id, req.Rating, req.Review)
	h.respond(w, r, appt, err)
}

func (h *Handler) visibility(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req visibilityRequest
	if !h.decode(w, r, &req) {
		return
	}
	appt, err := h.svc.SetFeedbackVisibility(r.Context(), id, *req.Visible)
	h.respond(w, r, appt, err)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Remove(r.Context(), actorOf(r), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	list, err := h.svc.History(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"appointments": toResponses(list)})
}

func (h *Handler) unrated(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	list, err := h.svc.Unrated(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"appointments": toResponses(list)})
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, appt model.Appointment, err error) {
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(appt))
}

// decode reads and validates the body, writing a 400 itself on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return h.check(w, dst)
}

// decodeOptional is decode for bodies that may be empty, whatever the
// transfer encoding says.
func (h *Handler) decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil && !errors.Is(err, httpx.ErrEmptyBody) {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return h.check(w, dst)
}

func (h *Handler) check(w http.ResponseWriter, dst any) bool {
	if err := h.validate.Struct(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func actorOf(r *http.Request) appointments.Actor {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return appointments.Actor{}
	}
	return appointments.Actor{UserID: claims.Subject, Staff: claims.IsStaff()}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid appointment id")
		return 0, false
	}
	return id, true
}

func parseCriteria(r *http.Request) (triage.Criteria, error) {
	q := r.URL.Query()
	c := triage.Criteria{Text: q.Get("q")}
	var err error
	if c.Bucket, err = triage.ParseBucket(q.Get("period")); err != nil {
		return c, err
	}
	if c.From, err = queryDate(q.Get("from"), "from"); err != nil {
		return c, err
	}
	if c.To, err = queryDate(q.Get("to"), "to"); err != nil {
		return c, err
	}
	return c, nil
}

func queryDate(raw, name string) (*civil.Date, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", model.ErrValidation, name)
	}
	return &d, nil
}
