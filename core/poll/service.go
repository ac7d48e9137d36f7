package poll

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

const (
	Topic     = "polls"
	KindVoted = "poll.voted"
)

var (
	ErrNotFound       = core.NewNotFoundError("poll not found")
	ErrBallotNotFound = core.NewNotFoundError("you have not voted on this poll")
	ErrAlreadyVoted   = core.NewConflictError("you already voted on this poll")
	ErrPollClosed     = core.NewConflictError("poll is closed")
	errUnknownOption  = errors.New("unknown option")
	errSingleChoice   = errors.New("this poll accepts a single option")
)

type (
	Repository interface {
		// CreatePoll saves the poll and its options; run it within a transaction.
		CreatePoll(ctx context.Context, p Poll, exec ...core.DBExecutor) (Poll, error)
		// QueryPolls returns the newest first, unless ordering is given.
		QueryPolls(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Poll, error)
		GetPoll(ctx context.Context, id string, exec ...core.DBExecutor) (Poll, error)
		LockPoll(ctx context.Context, id string, exec core.DBExecutor) (Poll, error)
		// UpdatePoll saves the poll along with its option tallies.
		UpdatePoll(ctx context.Context, p Poll, exec ...core.DBExecutor) (Poll, error)
		// AddBallot returns ErrAlreadyVoted if the user has a ballot on the poll.
		AddBallot(ctx context.Context, b Ballot, exec core.DBExecutor) error
		GetBallot(ctx context.Context, pollID, userID string, exec ...core.DBExecutor) (Ballot, error)
		DeletePoll(ctx context.Context, id string, exec ...core.DBExecutor) error
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

func (svc *Service) Create(ctx context.Context, actor user.User, np NewPoll) (Poll, error) {
	if !actor.IsStaff() {
		return Poll{}, core.NewPermissionError("only admins and faculty can create polls")
	}
	now := time.Now().UTC()
	p := Poll{
		Question:       np.Question,
		Options:        np.options(),
		MultipleChoice: np.MultipleChoice,
		ClosesAt:       np.ClosesAt,
		CreatorID:      actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if p.ClosesAt != nil {
		closesAt := p.ClosesAt.UTC()
		p.ClosesAt = &closesAt
	}
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		p, err = svc.repo.CreatePoll(ctx, p, exec)
		return errors.Wrap(err, "creating poll")
	})
	if err != nil {
		return Poll{}, err
	}
	return p, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Poll, error) {
	ordering = core.FilterOrderings(ordering, "question", "total_votes", "closes_at", "created_at")
	return svc.repo.QueryPolls(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, id string) (Poll, error) {
	return svc.repo.GetPoll(ctx, id)
}

// Vote casts actor's ballot. The ballot and the tallies are saved in one transaction.
func (svc *Service) Vote(ctx context.Context, actor user.User, id string, nb NewBallot) (Poll, error) {
	var p Poll
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if p, err = svc.repo.LockPoll(ctx, id, exec); err != nil {
			return err
		}
		now := time.Now().UTC()
		if !p.AcceptsVotes(now) {
			return ErrPollClosed
		}
		if len(nb.OptionIDs) > 1 && !p.MultipleChoice {
			return core.NewValidationError(errSingleChoice, core.FieldError{Field: "option_ids", Error: errSingleChoice.Error()})
		}
		idx := make([]int, len(nb.OptionIDs))
		for i, optID := range nb.OptionIDs {
			if idx[i] = p.option(optID); idx[i] < 0 {
				return core.NewValidationError(errUnknownOption, core.FieldError{Field: "option_ids", Error: errUnknownOption.Error() + ": " + optID})
			}
		}

		if err = svc.repo.AddBallot(ctx, Ballot{PollID: p.ID, UserID: actor.ID, OptionIDs: nb.OptionIDs, CastAt: now}, exec); err != nil {
			return err
		}
		for _, i := range idx {
			p.Options[i].Votes++
		}
		p.TotalVotes++
		p.UpdatedAt = now
		p, err = svc.repo.UpdatePoll(ctx, p, exec)
		return err
	})
	if err != nil {
		return Poll{}, err
	}
	svc.notifier.Publish(ctx, core.Notification{Kind: KindVoted, Topic: Topic, Data: NewResults(p, time.Now())})
	return p, nil
}

// MyBallot returns actor's ballot on a poll, or ErrBallotNotFound.
func (svc *Service) MyBallot(ctx context.Context, actor user.User, id string) (Ballot, error) {
	return svc.repo.GetBallot(ctx, id, actor.ID)
}

func (svc *Service) Close(ctx context.Context, actor user.User, id string) (Poll, error) {
	var p Poll
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if p, err = svc.repo.LockPoll(ctx, id, exec); err != nil {
			return err
		}
		if !(actor.IsAdmin() || p.CreatorID == actor.ID) {
			return core.ErrPermissionDenied
		}
		if p.IsClosed {
			return nil
		}
		p.IsClosed = true
		p.UpdatedAt = time.Now().UTC()
		p, err = svc.repo.UpdatePoll(ctx, p, exec)
		return err
	})
	if err != nil {
		return Poll{}, err
	}
	return p, nil
}

func (svc *Service) Results(ctx context.Context, id string) (Results, error) {
	p, err := svc.repo.GetPoll(ctx, id)
	if err != nil {
		return Results{}, err
	}
	return NewResults(p, time.Now()), nil
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	p, err := svc.repo.GetPoll(ctx, id)
	if err != nil {
		return err
	}
	if !(actor.IsAdmin() || p.CreatorID == actor.ID) {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeletePoll(ctx, id)
}
