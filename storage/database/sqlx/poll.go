package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/poll"
)

const pollColumns = "id, question, total_votes, multiple_choice, closes_at, is_closed, creator_id, created_at, updated_at"

type (
	pollRow struct {
		ID             string    `db:"id"`
		Question       string    `db:"question"`
		TotalVotes     int       `db:"total_votes"`
		MultipleChoice bool      `db:"multiple_choice"`
		ClosesAt       null.Time `db:"closes_at"`
		IsClosed       bool      `db:"is_closed"`
		CreatorID      string    `db:"creator_id"`
		CreatedAt      time.Time `db:"created_at"`
		UpdatedAt      time.Time `db:"updated_at"`
	}

	optionRow struct {
		PollID   string `db:"poll_id"`
		ID       string `db:"id"`
		Position int    `db:"position"`
		Text     string `db:"text"`
		Votes    int    `db:"votes"`
	}

	ballotRow struct {
		PollID    string         `db:"poll_id"`
		UserID    string         `db:"user_id"`
		OptionIDs pq.StringArray `db:"option_ids"`
		CastAt    time.Time      `db:"cast_at"`
	}
)

func newPollRow(p poll.Poll) pollRow {
	return pollRow{
		ID:             p.ID,
		Question:       p.Question,
		TotalVotes:     p.TotalVotes,
		MultipleChoice: p.MultipleChoice,
		ClosesAt:       null.TimeFromPtr(p.ClosesAt),
		IsClosed:       p.IsClosed,
		CreatorID:      p.CreatorID,
		CreatedAt:      p.CreatedAt.UTC(),
		UpdatedAt:      p.UpdatedAt.UTC(),
	}
}

func (row pollRow) poll(options []optionRow) poll.Poll {
	p := poll.Poll{
		ID:             row.ID,
		Question:       row.Question,
		Options:        make([]poll.Option, 0, len(options)),
		TotalVotes:     row.TotalVotes,
		MultipleChoice: row.MultipleChoice,
		ClosesAt:       utcPtr(row.ClosesAt),
		IsClosed:       row.IsClosed,
		CreatorID:      row.CreatorID,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
	for _, opt := range options {
		p.Options = append(p.Options, poll.Option{ID: opt.ID, Text: opt.Text, Votes: opt.Votes})
	}
	return p
}

type pollRepository struct {
	repo
}

var _ poll.Repository = (*pollRepository)(nil) // interface compliance check

func NewPollRepository(db *sqlx.DB) poll.Repository {
	return &pollRepository{repo{db: db}}
}

func (r *pollRepository) CreatePoll(ctx context.Context, p poll.Poll, exec ...core.DBExecutor) (poll.Poll, error) {
	exe := r.getExec(exec)
	p.ID = uuid.New().String()
	q := `INSERT INTO poll (` + pollColumns + `) VALUES (:id, :question, :total_votes, :multiple_choice, :closes_at,
		:is_closed, :creator_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exe, q, newPollRow(p)); err != nil {
		return poll.Poll{}, errors.Wrap(err, "inserting poll")
	}

	for i, opt := range p.Options {
		row := optionRow{PollID: p.ID, ID: opt.ID, Position: i, Text: opt.Text, Votes: opt.Votes}
		q = "INSERT INTO poll_option (poll_id, id, position, text, votes) VALUES (:poll_id, :id, :position, :text, :votes)"
		if _, err := sqlx.NamedExecContext(ctx, exe, q, row); err != nil {
			return poll.Poll{}, errors.Wrap(err, "inserting poll option")
		}
	}
	return p, nil
}

// withOptions loads the options of every poll row.
func (r *pollRepository) withOptions(ctx context.Context, exe sqlx.ExtContext, rows []pollRow) ([]poll.Poll, error) {
	if len(rows) == 0 {
		return []poll.Poll{}, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var opts []optionRow
	q := "SELECT poll_id, id, position, text, votes FROM poll_option WHERE poll_id = ANY($1::uuid[]) ORDER BY poll_id, position"
	if err := sqlx.SelectContext(ctx, exe, &opts, q, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "querying poll options")
	}
	byPoll := make(map[string][]optionRow, len(rows))
	for _, opt := range opts {
		byPoll[opt.PollID] = append(byPoll[opt.PollID], opt)
	}

	polls := make([]poll.Poll, 0, len(rows))
	for _, row := range rows {
		polls = append(polls, row.poll(byPoll[row.ID]))
	}
	return polls, nil
}

func (r *pollRepository) QueryPolls(ctx context.Context, filter *poll.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]poll.Poll, error) {
	exe := r.getExec(exec)
	w := new(where)
	if filter != nil {
		w.search(filter.Search, "question")
		if filter.Open != nil {
			open := "NOT is_closed AND (closes_at IS NULL OR closes_at > ?)"
			if *filter.Open {
				w.add(open, time.Now().UTC())
			} else {
				w.add("NOT ("+open+")", time.Now().UTC())
			}
		}
		if filter.CreatorID != "" {
			if !validID(filter.CreatorID) {
				return []poll.Poll{}, nil
			}
			w.add("creator_id = ?", filter.CreatorID)
		}
	}

	var rows []pollRow
	if err := selectWhere(ctx, exe, &rows, "SELECT "+pollColumns+" FROM poll", w, orderBy(ordering, "created_at DESC")); err != nil {
		return nil, errors.Wrap(err, "querying polls")
	}
	return r.withOptions(ctx, exe, rows)
}

func (r *pollRepository) getPoll(ctx context.Context, exe sqlx.ExtContext, id, suffix string) (poll.Poll, error) {
	if !validID(id) {
		return poll.Poll{}, poll.ErrNotFound
	}
	var row pollRow
	if err := sqlx.GetContext(ctx, exe, &row, "SELECT "+pollColumns+" FROM poll WHERE id = $1"+suffix, id); err != nil {
		return poll.Poll{}, trapNoRowsErr(err, poll.ErrNotFound, "finding poll")
	}
	polls, err := r.withOptions(ctx, exe, []pollRow{row})
	if err != nil {
		return poll.Poll{}, err
	}
	return polls[0], nil
}

func (r *pollRepository) GetPoll(ctx context.Context, id string, exec ...core.DBExecutor) (poll.Poll, error) {
	return r.getPoll(ctx, r.getExec(exec), id, "")
}

func (r *pollRepository) LockPoll(ctx context.Context, id string, exec core.DBExecutor) (poll.Poll, error) {
	return r.getPoll(ctx, r.txExec(exec), id, " FOR UPDATE")
}

func (r *pollRepository) UpdatePoll(ctx context.Context, p poll.Poll, exec ...core.DBExecutor) (poll.Poll, error) {
	if !validID(p.ID) {
		return poll.Poll{}, poll.ErrNotFound
	}
	exe := r.getExec(exec)
	q := `UPDATE poll SET question = :question, total_votes = :total_votes, multiple_choice = :multiple_choice,
		closes_at = :closes_at, is_closed = :is_closed, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, exe, q, newPollRow(p))
	if err != nil {
		return poll.Poll{}, errors.Wrap(err, "updating poll")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return poll.Poll{}, poll.ErrNotFound
	}

	for _, opt := range p.Options {
		q := "UPDATE poll_option SET text = $1, votes = $2 WHERE poll_id = $3 AND id = $4"
		if _, err = exe.ExecContext(ctx, q, opt.Text, opt.Votes, p.ID, opt.ID); err != nil {
			return poll.Poll{}, errors.Wrap(err, "updating poll option")
		}
	}
	return p, nil
}

func (r *pollRepository) AddBallot(ctx context.Context, b poll.Ballot, exec core.DBExecutor) error {
	row := ballotRow{PollID: b.PollID, UserID: b.UserID, OptionIDs: b.OptionIDs, CastAt: b.CastAt.UTC()}
	q := "INSERT INTO poll_ballot (poll_id, user_id, option_ids, cast_at) VALUES (:poll_id, :user_id, :option_ids, :cast_at)"
	if _, err := sqlx.NamedExecContext(ctx, r.txExec(exec), q, row); err != nil {
		return trapUniqueErr(err, poll.ErrAlreadyVoted, "inserting ballot")
	}
	return nil
}

func (r *pollRepository) GetBallot(ctx context.Context, pollID, userID string, exec ...core.DBExecutor) (poll.Ballot, error) {
	if !validID(pollID) || !validID(userID) {
		return poll.Ballot{}, poll.ErrBallotNotFound
	}
	var row ballotRow
	q := "SELECT poll_id, user_id, option_ids, cast_at FROM poll_ballot WHERE poll_id = $1 AND user_id = $2"
	if err := sqlx.GetContext(ctx, r.getExec(exec), &row, q, pollID, userID); err != nil {
		return poll.Ballot{}, trapNoRowsErr(err, poll.ErrBallotNotFound, "finding ballot")
	}
	return poll.Ballot{PollID: row.PollID, UserID: row.UserID, OptionIDs: row.OptionIDs, CastAt: row.CastAt.UTC()}, nil
}

func (r *pollRepository) DeletePoll(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return deleteByID(ctx, r.getExec(exec), "poll", id, poll.ErrNotFound)
}
