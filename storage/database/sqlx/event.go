package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/event"
)

const eventColumns = `id, title, description, venue, starts_at, ends_at, registration_deadline, max_participants,
	registration_count, organizer_id, created_at, updated_at`

type (
	eventRow struct {
		ID                   string      `db:"id"`
		Title                string      `db:"title"`
		Description          null.String `db:"description"`
		Venue                string      `db:"venue"`
		StartsAt             time.Time   `db:"starts_at"`
		EndsAt               time.Time   `db:"ends_at"`
		RegistrationDeadline null.Time   `db:"registration_deadline"`
		MaxParticipants      int         `db:"max_participants"`
		RegistrationCount    int         `db:"registration_count"`
		OrganizerID          string      `db:"organizer_id"`
		CreatedAt            time.Time   `db:"created_at"`
		UpdatedAt            time.Time   `db:"updated_at"`
	}

	registrationRow struct {
		EventID      string    `db:"event_id"`
		UserID       string    `db:"user_id"`
		RegisteredAt time.Time `db:"registered_at"`
	}
)

func newEventRow(e event.Event) eventRow {
	return eventRow{
		ID:                   e.ID,
		Title:                e.Title,
		Description:          null.NewString(e.Description, e.Description != ""),
		Venue:                e.Venue,
		StartsAt:             e.StartsAt.UTC(),
		EndsAt:               e.EndsAt.UTC(),
		RegistrationDeadline: null.TimeFromPtr(e.RegistrationDeadline),
		MaxParticipants:      e.MaxParticipants,
		RegistrationCount:    e.RegistrationCount,
		OrganizerID:          e.OrganizerID,
		CreatedAt:            e.CreatedAt.UTC(),
		UpdatedAt:            e.UpdatedAt.UTC(),
	}
}

func (row eventRow) event() event.Event {
	return event.Event{
		ID:                   row.ID,
		Title:                row.Title,
		Description:          row.Description.String,
		Venue:                row.Venue,
		StartsAt:             row.StartsAt.UTC(),
		EndsAt:               row.EndsAt.UTC(),
		RegistrationDeadline: utcPtr(row.RegistrationDeadline),
		MaxParticipants:      row.MaxParticipants,
		RegistrationCount:    row.RegistrationCount,
		OrganizerID:          row.OrganizerID,
		CreatedAt:            row.CreatedAt.UTC(),
		UpdatedAt:            row.UpdatedAt.UTC(),
	}
}

type eventRepository struct {
	repo
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *sqlx.DB) event.Repository {
	return &eventRepository{repo{db: db}}
}

func (r *eventRepository) CreateEvent(ctx context.Context, e event.Event, exec ...core.DBExecutor) (event.Event, error) {
	e.ID = uuid.New().String()
	row := newEventRow(e)
	q := `INSERT INTO event (` + eventColumns + `) VALUES (:id, :title, :description, :venue, :starts_at, :ends_at,
		:registration_deadline, :max_participants, :registration_count, :organizer_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.getExec(exec), q, row); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return row.event(), nil
}

func (r *eventRepository) QueryEvents(ctx context.Context, filter *event.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]event.Event, error) {
	w := new(where)
	if filter != nil {
		w.search(filter.Search, "title", "description", "venue")
		if filter.Upcoming {
			w.add("ends_at > ?", time.Now().UTC())
		}
		if filter.OrganizerID != "" {
			if !validID(filter.OrganizerID) {
				return []event.Event{}, nil
			}
			w.add("organizer_id = ?", filter.OrganizerID)
		}
	}

	var rows []eventRow
	if err := selectWhere(ctx, r.getExec(exec), &rows, "SELECT "+eventColumns+" FROM event", w, orderBy(ordering, "starts_at ASC")); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.event())
	}
	return events, nil
}

func (r *eventRepository) getEvent(ctx context.Context, exe sqlx.ExtContext, id, suffix string) (event.Event, error) {
	if !validID(id) {
		return event.Event{}, event.ErrNotFound
	}
	var row eventRow
	if err := sqlx.GetContext(ctx, exe, &row, "SELECT "+eventColumns+" FROM event WHERE id = $1"+suffix, id); err != nil {
		return event.Event{}, trapNoRowsErr(err, event.ErrNotFound, "finding event")
	}
	return row.event(), nil
}

func (r *eventRepository) GetEvent(ctx context.Context, id string, exec ...core.DBExecutor) (event.Event, error) {
	return r.getEvent(ctx, r.getExec(exec), id, "")
}

func (r *eventRepository) LockEvent(ctx context.Context, id string, exec core.DBExecutor) (event.Event, error) {
	return r.getEvent(ctx, r.txExec(exec), id, " FOR UPDATE")
}

func (r *eventRepository) UpdateEvent(ctx context.Context, e event.Event, exec ...core.DBExecutor) (event.Event, error) {
	if !validID(e.ID) {
		return event.Event{}, event.ErrNotFound
	}
	row := newEventRow(e)
	q := `UPDATE event SET title = :title, description = :description, venue = :venue, starts_at = :starts_at,
		ends_at = :ends_at, registration_deadline = :registration_deadline, max_participants = :max_participants,
		registration_count = :registration_count, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.getExec(exec), q, row)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.Event{}, event.ErrNotFound
	}
	return row.event(), nil
}

func (r *eventRepository) DeleteEvent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return deleteByID(ctx, r.getExec(exec), "event", id, event.ErrNotFound)
}

func (r *eventRepository) AddRegistration(ctx context.Context, reg event.Registration, exec core.DBExecutor) error {
	row := registrationRow{EventID: reg.EventID, UserID: reg.UserID, RegisteredAt: reg.RegisteredAt.UTC()}
	q := "INSERT INTO event_registration (event_id, user_id, registered_at) VALUES (:event_id, :user_id, :registered_at)"
	if _, err := sqlx.NamedExecContext(ctx, r.txExec(exec), q, row); err != nil {
		return trapUniqueErr(err, event.ErrAlreadyRegistered, "inserting registration")
	}
	return nil
}

func (r *eventRepository) RemoveRegistration(ctx context.Context, eventID, userID string, exec core.DBExecutor) error {
	if !validID(eventID) || !validID(userID) {
		return event.ErrRegistrationNotFound
	}
	res, err := r.txExec(exec).ExecContext(ctx, "DELETE FROM event_registration WHERE event_id = $1 AND user_id = $2", eventID, userID)
	if err != nil {
		return errors.Wrap(err, "deleting registration")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.ErrRegistrationNotFound
	}
	return nil
}

func (r *eventRepository) QueryRegistrations(ctx context.Context, eventID string, exec ...core.DBExecutor) ([]event.Registration, error) {
	if !validID(eventID) {
		return []event.Registration{}, nil
	}
	var rows []registrationRow
	q := "SELECT event_id, user_id, registered_at FROM event_registration WHERE event_id = $1 ORDER BY registered_at"
	if err := sqlx.SelectContext(ctx, r.getExec(exec), &rows, q, eventID); err != nil {
		return nil, errors.Wrap(err, "querying registrations")
	}
	res := make([]event.Registration, 0, len(rows))
	for _, row := range rows {
		res = append(res, event.Registration{EventID: row.EventID, UserID: row.UserID, RegisteredAt: row.RegisteredAt.UTC()})
	}
	return res, nil
}
