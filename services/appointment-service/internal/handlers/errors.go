package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/md-rashed-zaman/dentalcare/libs/httpx"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/model"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{model.ErrValidation, http.StatusBadRequest},
	{model.ErrUnknownService, http.StatusBadRequest},
	{model.ErrMissingNextSlot, http.StatusBadRequest},
	{model.ErrNotFound, http.StatusNotFound},
	{model.ErrInvalidTransition, http.StatusConflict},
	{model.ErrAlreadyRated, http.StatusConflict},
	{model.ErrSlotConflict, http.StatusConflict},
	{model.ErrOutOfHours, http.StatusUnprocessableEntity},
}

// StatusFor maps an error kind to its HTTP status; unknown errors are 500.
func StatusFor(err error) int {
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"err", err,
		)
		httpx.WriteError(w, status, "internal error")
		return
	}
	httpx.WriteError(w, status, err.Error())
}
