package model

import (
	"fmt"
	"strings"
	"time"
)

// Clock is a time of day at minute resolution, stored as minutes since
// midnight. Comparisons are plain integer comparisons, so "10:00 AM" and
// "10:00" are the same slot.
type Clock int

const minutesPerDay = 24 * 60

func NewClock(hour, minute int) (Clock, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: time %02d:%02d out of range", ErrValidation, hour, minute)
	}
	return Clock(hour*60 + minute), nil
}

// ParseClock accepts the 24-hour form ("14:30") and the 12-hour display
// form ("2:30 PM").
func ParseClock(raw string) (Clock, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04", "3:04 PM", "03:04 PM", "3:04PM"} {
		t, err := time.Parse(layout, strings.ToUpper(raw))
		if err == nil {
			return Clock(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("%w: invalid time %q", ErrValidation, raw)
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) Valid() bool { return c >= 0 && c < minutesPerDay }

// String is the canonical 24-hour form.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Display is the 12-hour form shown to patients, e.g. "10:00 AM".
func (c Clock) Display() string {
	h := c.Hour() % 12
	if h == 0 {
		h = 12
	}
	suffix := "AM"
	if c.Hour() >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", h, c.Minute(), suffix)
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ClockOf returns the time of day of t, truncated to the minute.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}
