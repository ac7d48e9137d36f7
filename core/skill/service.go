package skill

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const (
	Topic         = "courses"
	KindEnrolment = "course.enrolment"
)

var (
	ErrNotFound         = core.NewNotFoundError("course not found")
	ErrNotEnrolled      = core.NewConflictError("you are not enrolled in this course")
	ErrAlreadyEnrolled  = core.NewConflictError("you are already enrolled in this course")
	ErrOwnCourse        = core.NewConflictError("you cannot enroll in your own course")
	ErrCourseFull       = core.NewConflictError("course is full")
	ErrCourseClosed     = core.NewConflictError("course is closed")
	ErrAlreadyRated     = core.NewConflictError("you already rated this course")
	errCapacityTooSmall = errors.New("cannot be lower than the current number of learners")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		// QueryCourses returns the newest first, unless ordering is given.
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Course, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		LockCourse(ctx context.Context, id string, exec core.DBExecutor) (Course, error)
		// UpdateCourse saves the course along with its learners.
		UpdateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		// AddRating returns ErrAlreadyRated if the user already rated the course.
		AddRating(ctx context.Context, courseID, userID string, score int, exec core.DBExecutor) error
		DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo     Repository
		tx       core.Transactor
		notifier core.Notifier
	}
)

func NewService(repo Repository, tx core.Transactor, notifier core.Notifier) *Service {
	return &Service{repo: repo, tx: tx, notifier: notifier}
}

func canManage(actor user.User, c Course) bool {
	return actor.IsAdmin() || c.InstructorID == actor.ID
}

// Offer publishes a new course taught by actor.
func (svc *Service) Offer(ctx context.Context, actor user.User, nc NewCourse) (Course, error) {
	if !(actor.IsStudent() || actor.IsAdmin()) {
		return Course{}, core.NewPermissionError("only students can offer courses")
	}
	now := time.Now().UTC()
	c := Course{
		Title:        nc.Title,
		Description:  nc.Description,
		Category:     nc.Category,
		InstructorID: actor.ID,
		MaxLearners:  nc.MaxLearners,
		Learners:     []string{},
		Schedule:     nc.Schedule,
		Status:       StatusOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	c, err := svc.repo.CreateCourse(ctx, c)
	if err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	return c, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	ordering = core.FilterOrderings(ordering, "title", "category", "status", "rating", "max_learners", "created_at")
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

// Enroll adds actor to the learners of an open course.
func (svc *Service) Enroll(ctx context.Context, actor user.User, id string) (Course, error) {
	return svc.changeLearners(ctx, id, func(c *Course) error {
		switch {
		case c.InstructorID == actor.ID:
			return ErrOwnCourse
		case c.IsLearner(actor.ID):
			return ErrAlreadyEnrolled
		case c.Status == StatusClosed:
			return ErrCourseClosed
		case len(c.Learners) >= c.MaxLearners:
			return ErrCourseFull
		}
		c.Learners = append(c.Learners, actor.ID)
		return nil
	})
}

func (svc *Service) Leave(ctx context.Context, actor user.User, id string) (Course, error) {
	return svc.changeLearners(ctx, id, func(c *Course) error {
		learners := make([]string, 0, len(c.Learners))
		for _, uid := range c.Learners {
			if uid != actor.ID {
				learners = append(learners, uid)
			}
		}
		if len(learners) == len(c.Learners) {
			return ErrNotEnrolled
		}
		c.Learners = learners
		return nil
	})
}

func (svc *Service) changeLearners(ctx context.Context, id string, change func(c *Course) error) (Course, error) {
	var c Course
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if c, err = svc.repo.LockCourse(ctx, id, exec); err != nil {
			return err
		}
		if err = change(&c); err != nil {
			return err
		}
		c.syncStatus()
		c.UpdatedAt = time.Now().UTC()
		c, err = svc.repo.UpdateCourse(ctx, c, exec)
		return err
	})
	if err != nil {
		return Course{}, err
	}
	svc.notifier.Publish(ctx, core.Notification{
		Kind:  KindEnrolment,
		Topic: Topic,
		Data: map[string]interface{}{
			"course_id":    c.ID,
			"learners":     len(c.Learners),
			"max_learners": c.MaxLearners,
			"status":       c.Status,
		},
	})
	return c, nil
}

// SetCapacity changes MaxLearners; it cannot drop below the current number of learners.
func (svc *Service) SetCapacity(ctx context.Context, actor user.User, id string, maxLearners int) (Course, error) {
	var c Course
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if c, err = svc.repo.LockCourse(ctx, id, exec); err != nil {
			return err
		}
		if !canManage(actor, c) {
			return core.ErrPermissionDenied
		}
		if maxLearners < 1 || maxLearners < len(c.Learners) {
			return core.NewValidationError(errCapacityTooSmall, core.FieldError{Field: "max_learners", Error: errCapacityTooSmall.Error()})
		}
		c.MaxLearners = maxLearners
		c.syncStatus()
		c.UpdatedAt = time.Now().UTC()
		c, err = svc.repo.UpdateCourse(ctx, c, exec)
		return err
	})
	if err != nil {
		return Course{}, err
	}
	return c, nil
}

// Close stops enrolments for good.
func (svc *Service) Close(ctx context.Context, actor user.User, id string) (Course, error) {
	var c Course
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if c, err = svc.repo.LockCourse(ctx, id, exec); err != nil {
			return err
		}
		if !canManage(actor, c) {
			return core.ErrPermissionDenied
		}
		c.Status = StatusClosed
		c.UpdatedAt = time.Now().UTC()
		c, err = svc.repo.UpdateCourse(ctx, c, exec)
		return err
	})
	if err != nil {
		return Course{}, err
	}
	return c, nil
}

// Rate records the score given by an enrolled learner and updates the course average.
func (svc *Service) Rate(ctx context.Context, actor user.User, id string, nr NewRating) (Course, error) {
	var c Course
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if c, err = svc.repo.LockCourse(ctx, id, exec); err != nil {
			return err
		}
		if !c.IsLearner(actor.ID) {
			return ErrNotEnrolled
		}
		if err = svc.repo.AddRating(ctx, c.ID, actor.ID, nr.Score, exec); err != nil {
			return err
		}
		c.addRating(nr.Score)
		c.UpdatedAt = time.Now().UTC()
		c, err = svc.repo.UpdateCourse(ctx, c, exec)
		return err
	})
	if err != nil {
		return Course{}, err
	}
	return c, nil
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, c) {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteCourse(ctx, id)
}
