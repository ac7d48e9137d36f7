package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/event"
)

type eventRepository struct {
	db            *table[event.Event]
	registrations *table[event.Registration]
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db.event, registrations: db.registration}
}

var eventComparators = comparators[event.Event]{
	"title":              func(a, b event.Event) int { return cmpString(a.Title, b.Title) },
	"venue":              func(a, b event.Event) int { return cmpString(a.Venue, b.Venue) },
	"starts_at":          func(a, b event.Event) int { return cmpTime(a.StartsAt, b.StartsAt) },
	"ends_at":            func(a, b event.Event) int { return cmpTime(a.EndsAt, b.EndsAt) },
	"registration_count": func(a, b event.Event) int { return cmpInt(a.RegistrationCount, b.RegistrationCount) },
	"created_at":         func(a, b event.Event) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

func cloneEvent(e event.Event) event.Event {
	e.RegistrationDeadline = copyTime(e.RegistrationDeadline)
	return e
}

func (repo *eventRepository) CreateEvent(_ context.Context, e event.Event, _ ...core.DBExecutor) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	e = cloneEvent(e)
	e.ID = newID()
	repo.db.rows[e.ID] = &e
	return cloneEvent(e), nil
}

func (repo *eventRepository) QueryEvents(_ context.Context, filter *event.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	now := time.Now()
	events := make([]event.Event, 0, len(repo.db.rows))
	for _, e := range repo.db.rows {
		if filter != nil {
			if filter.Search != "" && !matchesAny(filter.Search, e.Title, e.Description, e.Venue) {
				continue
			}
			if filter.Upcoming && !e.EndsAt.After(now) {
				continue
			}
			if filter.OrganizerID != "" && e.OrganizerID != filter.OrganizerID {
				continue
			}
		}
		events = append(events, cloneEvent(*e))
	}

	sortRecords(events, ordering, eventComparators, func(a, b event.Event) bool { return a.StartsAt.Before(b.StartsAt) })
	return events, nil
}

func (repo *eventRepository) GetEvent(_ context.Context, id string, _ ...core.DBExecutor) (event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.rows[id]; ok {
		return cloneEvent(*e), nil
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) LockEvent(ctx context.Context, id string, _ core.DBExecutor) (event.Event, error) {
	return repo.GetEvent(ctx, id)
}

func (repo *eventRepository) UpdateEvent(_ context.Context, e event.Event, _ ...core.DBExecutor) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[e.ID]; !ok {
		return event.Event{}, event.ErrNotFound
	}
	e = cloneEvent(e)
	repo.db.rows[e.ID] = &e
	return cloneEvent(e), nil
}

func (repo *eventRepository) DeleteEvent(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[id]; !ok {
		return event.ErrNotFound
	}
	delete(repo.db.rows, id)

	repo.registrations.Lock()
	defer repo.registrations.Unlock()
	for key, r := range repo.registrations.rows {
		if r.EventID == id {
			delete(repo.registrations.rows, key)
		}
	}
	return nil
}

func (repo *eventRepository) AddRegistration(_ context.Context, r event.Registration, _ core.DBExecutor) error {
	repo.registrations.Lock()
	defer repo.registrations.Unlock()

	key := pairKey(r.EventID, r.UserID)
	if _, ok := repo.registrations.rows[key]; ok {
		return event.ErrAlreadyRegistered
	}
	repo.registrations.rows[key] = &r
	return nil
}

func (repo *eventRepository) RemoveRegistration(_ context.Context, eventID, userID string, _ core.DBExecutor) error {
	repo.registrations.Lock()
	defer repo.registrations.Unlock()

	key := pairKey(eventID, userID)
	if _, ok := repo.registrations.rows[key]; !ok {
		return event.ErrRegistrationNotFound
	}
	delete(repo.registrations.rows, key)
	return nil
}

func (repo *eventRepository) QueryRegistrations(_ context.Context, eventID string, _ ...core.DBExecutor) ([]event.Registration, error) {
	repo.registrations.RLock()
	defer repo.registrations.RUnlock()

	res := make([]event.Registration, 0)
	for _, r := range repo.registrations.rows {
		if r.EventID == eventID {
			res = append(res, *r)
		}
	}
	sortRecords(res, nil, nil, func(a, b event.Registration) bool { return a.RegisteredAt.Before(b.RegisteredAt) })
	return res, nil
}
