// Package intake turns a patient's service selection into a pending request.
package intake

import (
	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/lifecycle"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/model"
)

// Catalog resolves a service title. Unknown titles must yield an error
// wrapping model.ErrUnknownService.
type Catalog interface {
	Lookup(title string) (model.CatalogEntry, error)
}

// Book validates a booking and builds the pending appointment. The date is
// checked against the window before the state machine sees the request.
func Book(c Catalog, w lifecycle.Window, owner string, date civil.Date, serviceTitle string) (model.Appointment, error) {
	entry, err := c.Lookup(serviceTitle)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := w.Check(date); err != nil {
		return model.Appointment{}, err
	}
	return lifecycle.Request(owner, date, entry, w)
}
