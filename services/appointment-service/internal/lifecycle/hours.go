package lifecycle

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/model"
)

// Operating hours. Closing time itself is bookable, anything after is not.
const (
	OpensAt  model.Clock = 9 * 60
	ClosesAt model.Clock = 18 * 60
)

func WithinHours(c model.Clock) bool {
	return c >= OpensAt && c <= ClosesAt
}

func checkHours(c model.Clock) error {
	if !WithinHours(c) {
		return fmt.Errorf("%w: %s is outside %s-%s", model.ErrOutOfHours, c.Display(), OpensAt.Display(), ClosesAt.Display())
	}
	return nil
}

// IsSunday reports whether the clinic is closed on d.
func IsSunday(d civil.Date) bool {
	return d.In(time.UTC).Weekday() == time.Sunday
}

// Window is the range of dates a new request may ask for: Today through
// Today+HorizonDays, both inclusive, Sundays excluded.
type Window struct {
	Today       civil.Date
	HorizonDays int
}

const DefaultHorizonDays = 5

func NewWindow(now time.Time, horizonDays int) Window {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	return Window{Today: civil.DateOf(now), HorizonDays: horizonDays}
}

func (w Window) Last() civil.Date { return w.Today.AddDays(w.HorizonDays) }

// Check validates a requested date against the window.
func (w Window) Check(d civil.Date) error {
	if !d.IsValid() {
		return fmt.Errorf("%w: invalid date", model.ErrValidation)
	}
	if IsSunday(d) {
		return fmt.Errorf("%w: the clinic is closed on Sundays (%s)", model.ErrValidation, d)
	}
	if d.Before(w.Today) || d.After(w.Last()) {
		return fmt.Errorf("%w: %s is outside the booking window %s..%s", model.ErrValidation, d, w.Today, w.Last())
	}
	return nil
}
