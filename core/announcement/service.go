package announcement

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const (
	Topic       = "announcements"
	KindCreated = "announcement.created"
)

var ErrNotFound = core.NewNotFoundError("announcement not found")

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, a Announcement, exec ...core.DBExecutor) (Announcement, error)
		// QueryAnnouncements returns pinned announcements first, then applies ordering (default: newest first).
		QueryAnnouncements(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Announcement, error)
		GetAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) (Announcement, error)
		UpdateAnnouncement(ctx context.Context, a Announcement, exec ...core.DBExecutor) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo     Repository
		notifier core.Notifier
	}
)

func NewService(repo Repository, notifier core.Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// Create publishes a new announcement. Only staff may announce.
func (svc *Service) Create(ctx context.Context, actor user.User, na NewAnnouncement) (Announcement, error) {
	if !actor.IsStaff() {
		return Announcement{}, core.ErrPermissionDenied
	}
	now := time.Now().UTC()
	a := Announcement{
		Title:      na.Title,
		Content:    na.Content,
		Audience:   na.Audience,
		Department: na.Department,
		Pinned:     na.Pinned && actor.IsAdmin(), // only admins pin
		AuthorID:   actor.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if na.ExpiresAt != nil {
		exp := na.ExpiresAt.UTC()
		a.ExpiresAt = &exp
	}

	a, err := svc.repo.CreateAnnouncement(ctx, a)
	if err != nil {
		return Announcement{}, errors.Wrap(err, "creating announcement")
	}

	svc.notifier.Publish(ctx, core.Notification{
		Kind:  KindCreated,
		Topic: Topic,
		Title: a.Title,
		Body:  a.Content,
		Data:  a,
	})
	return a, nil
}

// Query lists the announcements visible to actor. Expired ones are only listed to staff asking for them.
func (svc *Service) Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Announcement, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if !actor.IsStaff() {
		filter.IncludeExpired = false
	}
	ordering = core.FilterOrderings(ordering, "title", "created_at", "updated_at", "expires_at")

	all, err := svc.repo.QueryAnnouncements(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	res := make([]Announcement, 0, len(all))
	for _, a := range all {
		if a.VisibleTo(actor) {
			res = append(res, a)
		}
	}
	return res, nil
}

func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Announcement, error) {
	a, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	if !a.VisibleTo(actor) || (a.IsExpired(time.Now()) && !actor.IsStaff()) {
		return Announcement{}, ErrNotFound
	}
	return a, nil
}

// Update modifies an announcement. Only its author or an admin may do so.
func (svc *Service) Update(ctx context.Context, actor user.User, id string, ua UpdateAnnouncement) (Announcement, error) {
	a, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	if !(actor.IsAdmin() || a.AuthorID == actor.ID) {
		return Announcement{}, core.ErrPermissionDenied
	}

	if ua.Title != nil {
		a.Title = core.CleanString(*ua.Title)
	}
	if ua.Content != nil {
		a.Content = core.CleanString(*ua.Content)
	}
	if ua.Audience != nil {
		a.Audience = *ua.Audience
	}
	if ua.Department != nil {
		a.Department = core.CleanString(*ua.Department)
	}
	if a.Audience == AudienceDepartment && a.Department == "" {
		return Announcement{}, core.NewValidationError(nil, core.FieldError{Field: "department", Error: "this field is required"})
	}
	if ua.Pinned != nil {
		if !actor.IsAdmin() {
			return Announcement{}, core.ErrPermissionDenied
		}
		a.Pinned = *ua.Pinned
	}
	if ua.ExpiresAt != nil {
		exp := ua.ExpiresAt.UTC()
		a.ExpiresAt = &exp
	}
	a.UpdatedAt = time.Now().UTC()

	a, err = svc.repo.UpdateAnnouncement(ctx, a)
	return a, errors.Wrap(err, "updating announcement")
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	a, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return err
	}
	if !(actor.IsAdmin() || a.AuthorID == actor.ID) {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteAnnouncement(ctx, id)
}
