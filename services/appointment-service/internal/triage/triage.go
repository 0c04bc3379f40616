// Package triage builds the staff views of the appointment set. Build never
// reorders or modifies its input.
package triage

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/model"
)

// Bucket is a time-of-day filter over assigned times.
type Bucket int

const (
	BucketAll Bucket = iota
	BucketMorning
	BucketAfternoon
	BucketEvening
)

func ParseBucket(raw string) (Bucket, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all":
		return BucketAll, nil
	case "morning":
		return BucketMorning, nil
	case "afternoon":
		return BucketAfternoon, nil
	case "evening":
		return BucketEvening, nil
	default:
		return BucketAll, fmt.Errorf("%w: unknown period %q", model.ErrValidation, raw)
	}
}

func (b Bucket) String() string {
	switch b {
	case BucketAll:
		return "all"
	case BucketMorning:
		return "morning"
	case BucketAfternoon:
		return "afternoon"
	case BucketEvening:
		return "evening"
	default:
		return fmt.Sprintf("Bucket(%d)", int(b))
	}
}

// Match reports whether t falls in the bucket. A nil time only matches
// BucketAll.
func (b Bucket) Match(t *model.Clock) bool {
	if b == BucketAll {
		return true
	}
	if t == nil {
		return false
	}
	h := t.Hour()
	switch b {
	case BucketMorning:
		return h < 12
	case BucketAfternoon:
		return h >= 12 && h < 16
	case BucketEvening:
		return h >= 16
	}
	return false
}

// Criteria narrows the views. The zero value selects everything.
type Criteria struct {
	Text   string
	From   *civil.Date
	To     *civil.Date
	Bucket Bucket
}

func (c Criteria) match(a model.Appointment, term string) bool {
	if term != "" &&
		!strings.Contains(strings.ToLower(a.OwnerName), term) &&
		!strings.Contains(strings.ToLower(a.ServiceTitle), term) {
		return false
	}
	if c.From != nil && a.RequestedDate.Before(*c.From) {
		return false
	}
	if c.To != nil && a.RequestedDate.After(*c.To) {
		return false
	}
	return c.Bucket.Match(a.AssignedTime)
}

type Views struct {
	Pending   []model.Appointment
	Confirmed []model.Appointment
	Completed []model.Appointment
	Cancelled []model.Appointment
	Feedback  []model.Appointment
}

// Build partitions the appointments matching c by status, each partition
// sorted independently. Feedback holds every matching rated appointment in
// input order.
func Build(all []model.Appointment, c Criteria) Views {
	term := strings.ToLower(strings.TrimSpace(c.Text))
	v := Views{
		Pending:   []model.Appointment{},
		Confirmed: []model.Appointment{},
		Completed: []model.Appointment{},
		Cancelled: []model.Appointment{},
		Feedback:  []model.Appointment{},
	}
	for _, a := range all {
		if !c.match(a, term) {
			continue
		}
		a = a.Clone()
		switch a.Status {
		case model.StatusPending:
			v.Pending = append(v.Pending, a)
		case model.StatusConfirmed:
			v.Confirmed = append(v.Confirmed, a)
		case model.StatusCompleted:
			v.Completed = append(v.Completed, a)
		case model.StatusCancelled:
			v.Cancelled = append(v.Cancelled, a)
		}
		if a.Rating > 0 {
			v.Feedback = append(v.Feedback, a)
		}
	}
	slices.SortStableFunc(v.Pending, byDateThenID)
	slices.SortStableFunc(v.Confirmed, byDateThenTime)
	slices.SortStableFunc(v.Completed, byDateThenID)
	slices.SortStableFunc(v.Cancelled, byDateThenID)
	return v
}

// Reviews is the public projection: rated appointments whose feedback staff
// made visible, in input order.
func Reviews(all []model.Appointment) []model.Appointment {
	out := []model.Appointment{}
	for _, a := range all {
		if a.IsReview() {
			out = append(out, a.Clone())
		}
	}
	return out
}

func compareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func byDateThenID(a, b model.Appointment) int {
	if c := compareDates(a.RequestedDate, b.RequestedDate); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func byDateThenTime(a, b model.Appointment) int {
	if c := compareDates(a.RequestedDate, b.RequestedDate); c != 0 {
		return c
	}
	switch {
	case a.AssignedTime == nil && b.AssignedTime == nil:
		return 0
	case a.AssignedTime == nil:
		return 1
	case b.AssignedTime == nil:
		return -1
	}
	return cmp.Compare(*a.AssignedTime, *b.AssignedTime)
}
