package lostfound

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

// Kinds
const (
	KindLost  = "lost"
	KindFound = "found"
)

// Statuses
const (
	StatusOpen     = "open"
	StatusClaimed  = "claimed"
	StatusResolved = "resolved"
)

type Item struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Contact     string    `json:"contact"`
	ImageURL    string    `json:"image_url"`
	Status      string    `json:"status"`
	ReporterID  string    `json:"reporter_id"`
	ClaimantID  string    `json:"claimant_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type NewItem struct {
	Kind        string `json:"kind" validate:"required,oneof=lost found"`
	Title       string `json:"title" validate:"required,notblank,max=120"`
	Description string `json:"description" validate:"max=2000"`
	Location    string `json:"location" validate:"required,notblank,max=200"`
	Contact     string `json:"contact" validate:"max=200"`
}

func (ni *NewItem) Validate(validate *validator.Validate) error {
	ni.Kind = core.CleanString(ni.Kind, true /* lower */)
	ni.Title = core.CleanString(ni.Title)
	ni.Description = core.CleanString(ni.Description)
	ni.Location = core.CleanString(ni.Location)
	ni.Contact = core.CleanString(ni.Contact)
	return validate.Struct(ni)
}

type QueryFilter struct {
	Search     string `query:"search"`
	Kind       string `query:"kind"`
	Status     string `query:"status"`
	ReporterID string `query:"reporter"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Kind = core.CleanString(qf.Kind, true /* lower */)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
