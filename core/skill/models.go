package skill

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

// Statuses
const (
	StatusOpen   = "open"
	StatusFull   = "full"
	StatusClosed = "closed"
)

type Course struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	InstructorID string    `json:"instructor_id"`
	MaxLearners  int       `json:"max_learners"`
	Learners     []string  `json:"learners"` // user IDs, in enrolment order
	Schedule     string    `json:"schedule"`
	Status       string    `json:"status"`
	Rating       float64   `json:"rating"` // average of all ratings
	RatingCount  int       `json:"rating_count"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (c Course) IsLearner(userID string) bool {
	return core.ContainsString(c.Learners, userID)
}

// syncStatus sets Status to full when the course reached capacity, open otherwise. Closed courses stay closed.
func (c *Course) syncStatus() {
	if c.Status == StatusClosed {
		return
	}
	if len(c.Learners) >= c.MaxLearners {
		c.Status = StatusFull
	} else {
		c.Status = StatusOpen
	}
}

func (c *Course) addRating(score int) {
	total := c.Rating*float64(c.RatingCount) + float64(score)
	c.RatingCount++
	c.Rating = total / float64(c.RatingCount)
}

// RemoveRating takes back a score, e.g. when its author's account is deleted.
func (c *Course) RemoveRating(score int) {
	if c.RatingCount <= 1 {
		c.Rating, c.RatingCount = 0, 0
		return
	}
	total := c.Rating*float64(c.RatingCount) - float64(score)
	c.RatingCount--
	c.Rating = total / float64(c.RatingCount)
}

type NewCourse struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Category    string `json:"category" validate:"required,notblank,max=60"`
	MaxLearners int    `json:"max_learners" validate:"required,min=1,max=500"`
	Schedule    string `json:"schedule" validate:"max=200"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Category = core.CleanString(nc.Category, true /* lower */)
	nc.Schedule = core.CleanString(nc.Schedule)
	return validate.Struct(nc)
}

type NewRating struct {
	Score int `json:"score" validate:"required,min=1,max=5"`
}

func (nr NewRating) Validate(validate *validator.Validate) error { return validate.Struct(nr) }

type QueryFilter struct {
	Search       string `query:"search"`
	Category     string `query:"category"`
	Status       string `query:"status"`
	InstructorID string `query:"instructor"`
	LearnerID    string `query:"learner"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category, true /* lower */)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
