package event

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const (
	Topic            = "events"
	KindRegistration = "event.registration"
)

var (
	ErrNotFound             = core.NewNotFoundError("event not found")
	ErrRegistrationNotFound = core.NewNotFoundError("you are not registered for this event")
	ErrAlreadyRegistered    = core.NewConflictError("you are already registered for this event")
	ErrEventFull            = core.NewConflictError("event is full")
	ErrRegistrationClosed   = core.NewConflictError("registrations are closed")
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, e Event, exec ...core.DBExecutor) (Event, error)
		// QueryEvents returns the soonest first, unless ordering is given.
		QueryEvents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Event, error)
		GetEvent(ctx context.Context, id string, exec ...core.DBExecutor) (Event, error)
		LockEvent(ctx context.Context, id string, exec core.DBExecutor) (Event, error)
		UpdateEvent(ctx context.Context, e Event, exec ...core.DBExecutor) (Event, error)
		DeleteEvent(ctx context.Context, id string, exec ...core.DBExecutor) error
		// AddRegistration returns ErrAlreadyRegistered on duplicates.
		AddRegistration(ctx context.Context, r Registration, exec core.DBExecutor) error
		// RemoveRegistration returns ErrRegistrationNotFound when there is nothing to remove.
		RemoveRegistration(ctx context.Context, eventID, userID string, exec core.DBExecutor) error
		QueryRegistrations(ctx context.Context, eventID string, exec ...core.DBExecutor) ([]Registration, error)
	}

	Service struct {
		repo     Repository
		tx       core.Transactor
		mailSvc  core.EmailService
		notifier core.Notifier
	}
)

func NewService(repo Repository, tx core.Transactor, mailSvc core.EmailService, notifier core.Notifier) *Service {
	return &Service{repo: repo, tx: tx, mailSvc: mailSvc, notifier: notifier}
}

func canOrganize(actor user.User, e Event) bool {
	return actor.IsAdmin() || (actor.IsFaculty() && e.OrganizerID == actor.ID)
}

func (svc *Service) Create(ctx context.Context, actor user.User, ne NewEvent) (Event, error) {
	if !actor.IsStaff() {
		return Event{}, core.NewPermissionError("only admins and faculty can create events")
	}
	now := time.Now().UTC()
	e := Event{
		Title:           ne.Title,
		Description:     ne.Description,
		Venue:           ne.Venue,
		StartsAt:        ne.StartsAt.UTC(),
		EndsAt:          ne.EndsAt.UTC(),
		MaxParticipants: ne.MaxParticipants,
		OrganizerID:     actor.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if ne.RegistrationDeadline != nil {
		deadline := ne.RegistrationDeadline.UTC()
		e.RegistrationDeadline = &deadline
	}
	e, err := svc.repo.CreateEvent(ctx, e)
	if err != nil {
		return Event{}, errors.Wrap(err, "creating event")
	}
	return e, nil
}

func (svc *Service) Update(ctx context.Context, actor user.User, id string, ue UpdateEvent) (Event, error) {
	var e Event
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if e, err = svc.repo.LockEvent(ctx, id, exec); err != nil {
			return err
		}
		if !canOrganize(actor, e) {
			return core.ErrPermissionDenied
		}
		if e, err = ue.apply(e); err != nil {
			return err
		}
		e.UpdatedAt = time.Now().UTC()
		e, err = svc.repo.UpdateEvent(ctx, e, exec)
		return err
	})
	if err != nil {
		return Event{}, err
	}
	return e, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error) {
	ordering = core.FilterOrderings(ordering, "title", "venue", "starts_at", "ends_at", "registration_count", "created_at")
	return svc.repo.QueryEvents(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEvent(ctx, id)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	e, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if !canOrganize(actor, e) {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteEvent(ctx, id)
}

// Register signs actor up for an event, keeping RegistrationCount in step with the registrations.
func (svc *Service) Register(ctx context.Context, actor user.User, id string) (Event, error) {
	var e Event
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if e, err = svc.repo.LockEvent(ctx, id, exec); err != nil {
			return err
		}
		now := time.Now().UTC()
		if !e.RegistrationOpen(now) {
			return ErrRegistrationClosed
		}
		if e.IsFull() {
			return ErrEventFull
		}
		if err = svc.repo.AddRegistration(ctx, Registration{EventID: e.ID, UserID: actor.ID, RegisteredAt: now}, exec); err != nil {
			return err
		}
		e.RegistrationCount++
		e.UpdatedAt = now
		e, err = svc.repo.UpdateEvent(ctx, e, exec)
		return err
	})
	if err != nil {
		return Event{}, err
	}
	svc.publish(ctx, e)
	svc.sendRegistrationMail(actor, e)
	return e, nil
}

func (svc *Service) Unregister(ctx context.Context, actor user.User, id string) (Event, error) {
	var e Event
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if e, err = svc.repo.LockEvent(ctx, id, exec); err != nil {
			return err
		}
		if err = svc.repo.RemoveRegistration(ctx, e.ID, actor.ID, exec); err != nil {
			return err
		}
		e.RegistrationCount--
		e.UpdatedAt = time.Now().UTC()
		e, err = svc.repo.UpdateEvent(ctx, e, exec)
		return err
	})
	if err != nil {
		return Event{}, err
	}
	svc.publish(ctx, e)
	return e, nil
}

// Registrations lists who registered for an event, to its organizer or an admin.
func (svc *Service) Registrations(ctx context.Context, actor user.User, id string) ([]Registration, error) {
	e, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canOrganize(actor, e) {
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.QueryRegistrations(ctx, e.ID)
}

func (svc *Service) publish(ctx context.Context, e Event) {
	svc.notifier.Publish(ctx, core.Notification{
		Kind:  KindRegistration,
		Topic: Topic,
		Data: map[string]interface{}{
			"event_id":           e.ID,
			"registration_count": e.RegistrationCount,
			"max_participants":   e.MaxParticipants,
		},
	})
}

func (svc *Service) sendRegistrationMail(usr user.User, e Event) {
	if usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Registered: " + e.Title,
		TemplateName: "event_registration",
		TemplateData: map[string]interface{}{
			"Name":     usr.Name,
			"ID":       e.ID,
			"Title":    e.Title,
			"Venue":    e.Venue,
			"StartsAt": e.StartsAt.Format("Mon 02 Jan 2006 15:04 MST"),
		},
	})
}
