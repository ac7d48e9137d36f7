package complaint

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const KindUpdated = "complaint.updated"

var (
	ErrNotFound       = core.NewNotFoundError("complaint not found")
	ErrAlreadyUpvoted = core.NewConflictError("you already upvoted this complaint")
	ErrClosed         = core.NewConflictError("complaint is closed")
	ErrNotPending     = core.NewConflictError("only pending complaints can be withdrawn")
	errNoRoom         = errors.New("hostel and room are required")
	errBadTransition  = errors.New("invalid status transition")
)

type (
	Repository interface {
		CreateComplaint(ctx context.Context, c Complaint, exec ...core.DBExecutor) (Complaint, error)
		// QueryComplaints returns the most upvoted first, then the newest, unless ordering is given.
		QueryComplaints(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Complaint, error)
		GetComplaint(ctx context.Context, id string, exec ...core.DBExecutor) (Complaint, error)
		LockComplaint(ctx context.Context, id string, exec core.DBExecutor) (Complaint, error)
		UpdateComplaint(ctx context.Context, c Complaint, exec ...core.DBExecutor) (Complaint, error)
		// AddUpvote records the upvote of `userID`; it returns ErrAlreadyUpvoted on a second attempt.
		AddUpvote(ctx context.Context, complaintID, userID string, exec core.DBExecutor) error
		DeleteComplaint(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// UserGetter looks up the student to email on status changes.
	UserGetter interface {
		GetByID(id string) (user.User, error)
	}

	Service struct {
		repo     Repository
		tx       core.Transactor
		users    UserGetter
		mailSvc  core.EmailService
		notifier core.Notifier
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	tx core.Transactor,
	users UserGetter,
	mailSvc core.EmailService,
	notifier core.Notifier,
	logger core.Logger,
) *Service {
	return &Service{repo: repo, tx: tx, users: users, mailSvc: mailSvc, notifier: notifier, logger: logger}
}

func canManage(usr user.User) bool {
	return usr.IsWarden() || usr.IsAdmin()
}

func (svc *Service) File(ctx context.Context, actor user.User, nc NewComplaint) (Complaint, error) {
	if !actor.IsStudent() {
		return Complaint{}, core.NewPermissionError("only students can file hostel complaints")
	}
	now := time.Now().UTC()
	c := Complaint{
		Hostel:      nc.Hostel,
		Room:        nc.Room,
		Category:    nc.Category,
		Description: nc.Description,
		Status:      StatusPending,
		StudentID:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if c.Hostel == "" {
		c.Hostel = actor.Hostel
	}
	if c.Room == "" {
		c.Room = actor.HostelRoom
	}
	if c.Hostel == "" || c.Room == "" {
		return Complaint{}, core.NewValidationError(errNoRoom, core.FieldError{Field: "room", Error: errNoRoom.Error()})
	}
	c, err := svc.repo.CreateComplaint(ctx, c)
	if err != nil {
		return Complaint{}, errors.Wrap(err, "creating complaint")
	}
	return c, nil
}

// Query lists complaints. Students only ever see their own.
func (svc *Service) Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Complaint, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if !canManage(actor) {
		filter.StudentID = actor.ID
	}
	ordering = core.FilterOrderings(ordering, "hostel", "room", "category", "status", "upvotes", "created_at", "updated_at")
	return svc.repo.QueryComplaints(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Complaint, error) {
	c, err := svc.repo.GetComplaint(ctx, id)
	if err != nil {
		return Complaint{}, err
	}
	if !canManage(actor) && c.StudentID != actor.ID {
		return Complaint{}, ErrNotFound
	}
	return c, nil
}

// UpdateStatus moves a complaint along its workflow and emails the student about it.
func (svc *Service) UpdateStatus(ctx context.Context, actor user.User, id string, us UpdateStatus) (Complaint, error) {
	if !canManage(actor) {
		return Complaint{}, core.ErrPermissionDenied
	}
	var c Complaint
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if c, err = svc.repo.LockComplaint(ctx, id, exec); err != nil {
			return err
		}
		if !CanTransition(c.Status, us.Status) {
			return core.NewValidationError(errBadTransition, core.FieldError{
				Field: "status",
				Error: "cannot go from " + c.Status + " to " + us.Status,
			})
		}
		now := time.Now().UTC()
		c.Status = us.Status
		if us.Resolution != "" {
			c.Resolution = us.Resolution
		}
		if c.IsClosed() {
			c.ResolvedAt = &now
		}
		c.UpdatedAt = now
		c, err = svc.repo.UpdateComplaint(ctx, c, exec)
		return err
	})
	if err != nil {
		return Complaint{}, err
	}

	svc.notifier.Publish(ctx, core.Notification{
		Kind:  KindUpdated,
		Topic: core.UserTopic(c.StudentID),
		Title: "Complaint " + strings.ReplaceAll(c.Status, "_", " "),
		Data:  c,
	})
	svc.sendStatusMail(c)
	return c, nil
}

// Upvote adds actor's support to an open complaint, once.
func (svc *Service) Upvote(ctx context.Context, actor user.User, id string) (Complaint, error) {
	var c Complaint
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if c, err = svc.repo.LockComplaint(ctx, id, exec); err != nil {
			return err
		}
		if c.IsClosed() {
			return ErrClosed
		}
		if err = svc.repo.AddUpvote(ctx, c.ID, actor.ID, exec); err != nil {
			return err
		}
		c.Upvotes++
		c.UpdatedAt = time.Now().UTC()
		c, err = svc.repo.UpdateComplaint(ctx, c, exec)
		return err
	})
	if err != nil {
		return Complaint{}, err
	}
	return c, nil
}

// Delete lets students withdraw their pending complaints; admins can delete any.
func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	return svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		c, err := svc.repo.LockComplaint(ctx, id, exec)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() {
			if c.StudentID != actor.ID {
				return core.ErrPermissionDenied
			}
			if c.Status != StatusPending {
				return ErrNotPending
			}
		}
		return svc.repo.DeleteComplaint(ctx, id, exec)
	})
}

func (svc *Service) sendStatusMail(c Complaint) {
	student, err := svc.users.GetByID(c.StudentID)
	if err != nil {
		if !core.IsNotFound(err) {
			svc.logger.Error("complaint.sendStatusMail: "+err.Error(), err)
		}
		return
	}
	if student.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject:      "Hostel complaint update",
		TemplateName: "complaint_status",
		TemplateData: map[string]interface{}{
			"Name":       student.Name,
			"ID":         c.ID,
			"Category":   c.Category,
			"Hostel":     c.Hostel,
			"Room":       c.Room,
			"Status":     strings.ReplaceAll(c.Status, "_", " "),
			"Resolution": c.Resolution,
		},
	})
}
