package poll

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

const (
	MinOptions = 2
	MaxOptions = 10
)

type Option struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

type Poll struct {
	ID             string     `json:"id"`
	Question       string     `json:"question"`
	Options        []Option   `json:"options"`
	TotalVotes     int        `json:"total_votes"` // number of ballots
	MultipleChoice bool       `json:"multiple_choice"`
	ClosesAt       *time.Time `json:"closes_at"` // UTC
	IsClosed       bool       `json:"is_closed"`
	CreatorID      string     `json:"creator_id"`
	CreatedAt      time.Time  `json:"created_at"` // UTC
	UpdatedAt      time.Time  `json:"updated_at"` // UTC
}

// AcceptsVotes is false once the poll got closed or its deadline passed.
func (p Poll) AcceptsVotes(now time.Time) bool {
	return !p.IsClosed && (p.ClosesAt == nil || now.Before(*p.ClosesAt))
}

func (p Poll) option(id string) int {
	for i, opt := range p.Options {
		if opt.ID == id {
			return i
		}
	}
	return -1
}

// Ballot is the vote of one user on a poll.
type Ballot struct {
	PollID    string    `json:"poll_id"`
	UserID    string    `json:"user_id"`
	OptionIDs []string  `json:"option_ids"`
	CastAt    time.Time `json:"cast_at"` // UTC
}

type NewPoll struct {
	Question       string     `json:"question" validate:"required,notblank,max=300"`
	Options        []string   `json:"options" validate:"required,min=2,max=10,unique,dive,required,notblank,max=200"`
	MultipleChoice bool       `json:"multiple_choice"`
	ClosesAt       *time.Time `json:"closes_at"`
}

func (np *NewPoll) Validate(validate *validator.Validate) error {
	np.Question = core.CleanString(np.Question)
	for i := range np.Options {
		np.Options[i] = core.CleanString(np.Options[i])
	}
	if err := validate.Struct(np); err != nil {
		return err
	}
	if np.ClosesAt != nil && !np.ClosesAt.After(time.Now()) {
		return core.NewValidationError(nil, core.FieldError{Field: "closes_at", Error: "closing time must be in the future"})
	}
	return nil
}

func (np NewPoll) options() []Option {
	opts := make([]Option, len(np.Options))
	for i, text := range np.Options {
		opts[i] = Option{ID: strconv.Itoa(i + 1), Text: text}
	}
	return opts
}

type NewBallot struct {
	OptionIDs []string `json:"option_ids" validate:"required,min=1,unique,dive,required"`
}

func (nb *NewBallot) Validate(validate *validator.Validate) error {
	for i := range nb.OptionIDs {
		nb.OptionIDs[i] = core.CleanString(nb.OptionIDs[i])
	}
	return validate.Struct(nb)
}

type QueryFilter struct {
	Search    string `query:"search"`
	Open      *bool  `query:"open"`
	CreatorID string `query:"creator"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// OptionResult is an option with its share of the votes, in percent.
type OptionResult struct {
	Option
	Percent float64 `json:"percent"`
}

type Results struct {
	PollID     string         `json:"poll_id"`
	Question   string         `json:"question"`
	TotalVotes int            `json:"total_votes"`
	Options    []OptionResult `json:"options"`
	Closed     bool           `json:"closed"`
}

// NewResults computes option percentages over the number of selections.
func NewResults(p Poll, now time.Time) Results {
	var selections int
	for _, opt := range p.Options {
		selections += opt.Votes
	}
	res := Results{
		PollID:     p.ID,
		Question:   p.Question,
		TotalVotes: p.TotalVotes,
		Options:    make([]OptionResult, len(p.Options)),
		Closed:     !p.AcceptsVotes(now),
	}
	for i, opt := range p.Options {
		res.Options[i] = OptionResult{Option: opt}
		if selections > 0 {
			res.Options[i].Percent = float64(opt.Votes) * 100 / float64(selections)
		}
	}
	return res
}
