package poll

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

var (
	ErrFormNotFound     = core.NewNotFoundError("form not found")
	ErrAlreadyResponded = core.NewConflictError("you already responded to this form")
	ErrFormClosed       = core.NewConflictError("form is closed")
)

type (
	FormRepository interface {
		CreateForm(ctx context.Context, f Form, exec ...core.DBExecutor) (Form, error)
		QueryForms(ctx context.Context, filter *FormQueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Form, error)
		GetForm(ctx context.Context, id string, exec ...core.DBExecutor) (Form, error)
		// CreateResponse returns ErrAlreadyResponded if the user already responded to the form.
		CreateResponse(ctx context.Context, r Response, exec ...core.DBExecutor) (Response, error)
		QueryResponses(ctx context.Context, formID string, exec ...core.DBExecutor) ([]Response, error)
		DeleteForm(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	FormService struct {
		repo FormRepository
	}
)

func NewFormService(repo FormRepository) *FormService {
	return &FormService{repo: repo}
}

func (svc *FormService) Create(ctx context.Context, actor user.User, nf NewForm) (Form, error) {
	if !actor.IsStaff() {
		return Form{}, core.NewPermissionError("only admins and faculty can create forms")
	}
	now := time.Now().UTC()
	f := Form{
		Title:       nf.Title,
		Description: nf.Description,
		Fields:      nf.Fields,
		CreatorID:   actor.ID,
		ClosesAt:    nf.ClosesAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if f.ClosesAt != nil {
		closesAt := f.ClosesAt.UTC()
		f.ClosesAt = &closesAt
	}
	f, err := svc.repo.CreateForm(ctx, f)
	if err != nil {
		return Form{}, errors.Wrap(err, "creating form")
	}
	return f, nil
}

func (svc *FormService) Query(ctx context.Context, filter *FormQueryFilter, ordering []core.DBOrdering) ([]Form, error) {
	ordering = core.FilterOrderings(ordering, "title", "closes_at", "created_at")
	return svc.repo.QueryForms(ctx, filter, ordering)
}

func (svc *FormService) Get(ctx context.Context, id string) (Form, error) {
	return svc.repo.GetForm(ctx, id)
}

// Submit stores actor's response. The answers must have been validated against the form.
func (svc *FormService) Submit(ctx context.Context, actor user.User, form Form, nr NewResponse) (Response, error) {
	if form.IsClosed(time.Now()) {
		return Response{}, ErrFormClosed
	}
	return svc.repo.CreateResponse(ctx, Response{
		FormID:      form.ID,
		UserID:      actor.ID,
		Answers:     nr.Answers,
		SubmittedAt: time.Now().UTC(),
	})
}

// Responses lists the responses of a form to its creator or an admin.
func (svc *FormService) Responses(ctx context.Context, actor user.User, id string) ([]Response, error) {
	f, err := svc.repo.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	if !(actor.IsAdmin() || f.CreatorID == actor.ID) {
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.QueryResponses(ctx, f.ID)
}

func (svc *FormService) Delete(ctx context.Context, actor user.User, id string) error {
	f, err := svc.repo.GetForm(ctx, id)
	if err != nil {
		return err
	}
	if !(actor.IsAdmin() || f.CreatorID == actor.ID) {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteForm(ctx, id)
}
