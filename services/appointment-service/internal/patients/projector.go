// Package patients keeps a local copy of the patient directory owned by the
// registration service. Triage searches patient names through it.
package patients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/model"
	"github.com/segmentio/kafka-go"
)

const (
	EventUserRegistered     = "auth.user.registered.v1"
	EventUserProfileUpdated = "auth.user.profile_updated.v1"
)

// Topics lists the events the projector understands.
var Topics = []string{EventUserRegistered, EventUserProfileUpdated}

// ErrInvalidEvent marks a message that will never apply; the consumer drops
// it instead of retrying.
var ErrInvalidEvent = errors.New("invalid patient event")

type userEvent struct {
	UserID      string    `json:"user_id" validate:"required"`
	DisplayName string    `json:"display_name" validate:"required,max=200"`
	Phone       string    `json:"phone" validate:"omitempty,e164"`
	Role        string    `json:"role" validate:"omitempty,oneof=patient staff"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type Projector struct {
	validate *validator.Validate
}

func NewProjector() *Projector {
	return &Projector{validate: validator.New()}
}

// Decode parses and validates a directory event.
func (p *Projector) Decode(msg kafka.Message) (model.Patient, error) {
	var evt userEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return model.Patient{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	evt.UserID = strings.TrimSpace(evt.UserID)
	evt.DisplayName = strings.TrimSpace(evt.DisplayName)
	if err := p.validate.Struct(evt); err != nil {
		return model.Patient{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if evt.Role == "" {
		evt.Role = "patient"
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = msg.Time
	}
	return model.Patient{
		UserID:      evt.UserID,
		DisplayName: evt.DisplayName,
		Phone:       evt.Phone,
		Role:        evt.Role,
		UpdatedAt:   evt.OccurredAt,
	}, nil
}

// Handle applies one message inside tx. Older updates never overwrite
// newer ones, so out-of-order delivery converges.
func (p *Projector) Handle(ctx context.Context, tx pgx.Tx, msg kafka.Message) error {
	patient, err := p.Decode(msg)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO patients (user_id, display_name, phone, role, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
			phone = EXCLUDED.phone,
			role = EXCLUDED.role,
			updated_at = EXCLUDED.updated_at
		WHERE patients.updated_at <= EXCLUDED.updated_at
	`, patient.UserID, patient.DisplayName, patient.Phone, patient.Role, patient.UpdatedAt)
	return err
}
