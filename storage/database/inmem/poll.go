package inmemdb

import (
	"context"
	"strings"
	"time"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/poll"
)

type pollRepository struct {
	db      *table[poll.Poll]
	ballots *table[poll.Ballot]
}

var _ poll.Repository = (*pollRepository)(nil) // interface compliance check

func NewPollRepository(db *DB) poll.Repository {
	return &pollRepository{db: db.poll, ballots: db.ballot}
}

var pollComparators = comparators[poll.Poll]{
	"question":    func(a, b poll.Poll) int { return cmpString(a.Question, b.Question) },
	"total_votes": func(a, b poll.Poll) int { return cmpInt(a.TotalVotes, b.TotalVotes) },
	"closes_at":   func(a, b poll.Poll) int { return cmpTimePtr(a.ClosesAt, b.ClosesAt) },
	"created_at":  func(a, b poll.Poll) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

func clonePoll(p poll.Poll) poll.Poll {
	p.Options = append([]poll.Option(nil), p.Options...)
	p.ClosesAt = copyTime(p.ClosesAt)
	return p
}

func (repo *pollRepository) CreatePoll(_ context.Context, p poll.Poll, _ ...core.DBExecutor) (poll.Poll, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p = clonePoll(p)
	p.ID = newID()
	repo.db.rows[p.ID] = &p
	return clonePoll(p), nil
}

func (repo *pollRepository) QueryPolls(_ context.Context, filter *poll.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]poll.Poll, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	now := time.Now()
	polls := make([]poll.Poll, 0, len(repo.db.rows))
	for _, p := range repo.db.rows {
		if filter != nil {
			if filter.Search != "" && !icontains(p.Question, filter.Search) {
				continue
			}
			if filter.Open != nil && p.AcceptsVotes(now) != *filter.Open {
				continue
			}
			if filter.CreatorID != "" && p.CreatorID != filter.CreatorID {
				continue
			}
		}
		polls = append(polls, clonePoll(*p))
	}

	sortRecords(polls, ordering, pollComparators, func(a, b poll.Poll) bool { return a.CreatedAt.After(b.CreatedAt) })
	return polls, nil
}

func (repo *pollRepository) GetPoll(_ context.Context, id string, _ ...core.DBExecutor) (poll.Poll, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.rows[id]; ok {
		return clonePoll(*p), nil
	}
	return poll.Poll{}, poll.ErrNotFound
}

func (repo *pollRepository) LockPoll(ctx context.Context, id string, _ core.DBExecutor) (poll.Poll, error) {
	return repo.GetPoll(ctx, id)
}

func (repo *pollRepository) UpdatePoll(_ context.Context, p poll.Poll, _ ...core.DBExecutor) (poll.Poll, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[p.ID]; !ok {
		return poll.Poll{}, poll.ErrNotFound
	}
	p = clonePoll(p)
	repo.db.rows[p.ID] = &p
	return clonePoll(p), nil
}

func (repo *pollRepository) AddBallot(_ context.Context, b poll.Ballot, _ core.DBExecutor) error {
	repo.ballots.Lock()
	defer repo.ballots.Unlock()

	key := pairKey(b.PollID, b.UserID)
	if _, ok := repo.ballots.rows[key]; ok {
		return poll.ErrAlreadyVoted
	}
	b.OptionIDs = copyStrings(b.OptionIDs)
	repo.ballots.rows[key] = &b
	return nil
}

func (repo *pollRepository) GetBallot(_ context.Context, pollID, userID string, _ ...core.DBExecutor) (poll.Ballot, error) {
	repo.ballots.RLock()
	defer repo.ballots.RUnlock()

	if b, ok := repo.ballots.rows[pairKey(pollID, userID)]; ok {
		ballot := *b
		ballot.OptionIDs = copyStrings(b.OptionIDs)
		return ballot, nil
	}
	return poll.Ballot{}, poll.ErrBallotNotFound
}

func (repo *pollRepository) DeletePoll(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[id]; !ok {
		return poll.ErrNotFound
	}
	delete(repo.db.rows, id)

	repo.ballots.Lock()
	defer repo.ballots.Unlock()
	for key := range repo.ballots.rows {
		if strings.HasPrefix(key, id+"/") {
			delete(repo.ballots.rows, key)
		}
	}
	return nil
}
