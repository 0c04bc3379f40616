package model

import "fmt"

// Status is the lifecycle state of an appointment. The zero value is not a
// valid status.
type Status uint8

const (
	StatusPending Status = iota + 1
	StatusConfirmed
	StatusCompleted
	StatusCancelled
)

var statusNames = map[Status]string{
	StatusPending:   "pending",
	StatusConfirmed: "confirmed",
	StatusCompleted: "completed",
	StatusCancelled: "cancelled",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Terminal reports whether no further transition is legal except removal.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func ParseStatus(raw string) (Status, error) {
	for s, name := range statusNames {
		if name == raw {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
