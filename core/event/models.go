package event

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

type Event struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Venue                string     `json:"venue"`
	StartsAt             time.Time  `json:"starts_at"`             // UTC
	EndsAt               time.Time  `json:"ends_at"`               // UTC
	RegistrationDeadline *time.Time `json:"registration_deadline"` // UTC; defaults to StartsAt
	MaxParticipants      int        `json:"max_participants"`      // 0 = unlimited
	RegistrationCount    int        `json:"registration_count"`
	OrganizerID          string     `json:"organizer_id"`
	CreatedAt            time.Time  `json:"created_at"` // UTC
	UpdatedAt            time.Time  `json:"updated_at"` // UTC
}

func (e Event) deadline() time.Time {
	if e.RegistrationDeadline != nil {
		return *e.RegistrationDeadline
	}
	return e.StartsAt
}

// RegistrationOpen reports whether registrations are still accepted at `now`.
func (e Event) RegistrationOpen(now time.Time) bool {
	return now.Before(e.deadline())
}

func (e Event) IsFull() bool {
	return e.MaxParticipants > 0 && e.RegistrationCount >= e.MaxParticipants
}

type Registration struct {
	EventID      string    `json:"event_id"`
	UserID       string    `json:"user_id"`
	RegisteredAt time.Time `json:"registered_at"` // UTC
}

type NewEvent struct {
	Title                string     `json:"title" validate:"required,notblank,max=200"`
	Description          string     `json:"description" validate:"max=5000"`
	Venue                string     `json:"venue" validate:"required,notblank,max=200"`
	StartsAt             time.Time  `json:"starts_at" validate:"required"`
	EndsAt               time.Time  `json:"ends_at" validate:"required,gtfield=StartsAt"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	MaxParticipants      int        `json:"max_participants" validate:"min=0"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.Venue = core.CleanString(ne.Venue)
	if err := validate.Struct(ne); err != nil {
		return err
	}
	if ne.RegistrationDeadline != nil && ne.RegistrationDeadline.After(ne.StartsAt) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "registration_deadline",
			Error: "registrations must close before the event starts",
		})
	}
	return nil
}

// UpdateEvent holds the fields to change; nil fields are left untouched.
type UpdateEvent struct {
	Title                *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Description          *string    `json:"description" validate:"omitempty,max=5000"`
	Venue                *string    `json:"venue" validate:"omitempty,notblank,max=200"`
	StartsAt             *time.Time `json:"starts_at"`
	EndsAt               *time.Time `json:"ends_at"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	MaxParticipants      *int       `json:"max_participants" validate:"omitempty,min=0"`
}

func (ue *UpdateEvent) Validate(validate *validator.Validate) error {
	for _, s := range []*string{ue.Title, ue.Description, ue.Venue} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	return validate.Struct(ue)
}

// apply returns `e` with the changes of `ue`, checking the resulting schedule and capacity.
func (ue UpdateEvent) apply(e Event) (Event, error) {
	if ue.Title != nil {
		e.Title = *ue.Title
	}
	if ue.Description != nil {
		e.Description = *ue.Description
	}
	if ue.Venue != nil {
		e.Venue = *ue.Venue
	}
	if ue.StartsAt != nil {
		e.StartsAt = ue.StartsAt.UTC()
	}
	if ue.EndsAt != nil {
		e.EndsAt = ue.EndsAt.UTC()
	}
	if ue.RegistrationDeadline != nil {
		deadline := ue.RegistrationDeadline.UTC()
		e.RegistrationDeadline = &deadline
	}
	if ue.MaxParticipants != nil {
		e.MaxParticipants = *ue.MaxParticipants
	}

	if !e.EndsAt.After(e.StartsAt) {
		return e, core.NewValidationError(nil, core.FieldError{Field: "ends_at", Error: "the event must end after it starts"})
	}
	if e.RegistrationDeadline != nil && e.RegistrationDeadline.After(e.StartsAt) {
		return e, core.NewValidationError(nil, core.FieldError{
			Field: "registration_deadline",
			Error: "registrations must close before the event starts",
		})
	}
	if e.MaxParticipants > 0 && e.MaxParticipants < e.RegistrationCount {
		return e, core.NewValidationError(nil, core.FieldError{
			Field: "max_participants",
			Error: "cannot be lower than the current number of registrations",
		})
	}
	return e, nil
}

type QueryFilter struct {
	Search      string `query:"search"`
	Upcoming    bool   `query:"upcoming"`
	OrganizerID string `query:"organizer"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
