package poll

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

// Field types
const (
	FieldText   = "text"
	FieldNumber = "number"
	FieldChoice = "choice"
	FieldEmail  = "email"
)

type Field struct {
	Name     string   `json:"name" validate:"required,alphanum_,max=60"`
	Label    string   `json:"label" validate:"required,notblank,max=200"`
	Type     string   `json:"type" validate:"required,oneof=text number choice email"`
	Required bool     `json:"required"`
	Choices  []string `json:"choices,omitempty" validate:"required_if=Type choice,unique,dive,required,notblank"`
}

type Form struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Fields      []Field    `json:"fields"`
	CreatorID   string     `json:"creator_id"`
	ClosesAt    *time.Time `json:"closes_at"`  // UTC
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

func (f Form) IsClosed(now time.Time) bool {
	return f.ClosesAt != nil && !now.Before(*f.ClosesAt)
}

// Response is a user's submission to a form. Answers are keyed by Field.Name.
type Response struct {
	ID          string            `json:"id"`
	FormID      string            `json:"form_id"`
	UserID      string            `json:"user_id"`
	Answers     map[string]string `json:"answers"`
	SubmittedAt time.Time         `json:"submitted_at"` // UTC
}

type NewForm struct {
	Title       string     `json:"title" validate:"required,notblank,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Fields      []Field    `json:"fields" validate:"required,min=1,max=50,dive"`
	ClosesAt    *time.Time `json:"closes_at"`
}

func (nf *NewForm) Validate(validate *validator.Validate) error {
	nf.Title = core.CleanString(nf.Title)
	nf.Description = core.CleanString(nf.Description)
	for i := range nf.Fields {
		fld := &nf.Fields[i]
		fld.Name = core.CleanString(fld.Name, true /* lower */)
		fld.Label = core.CleanString(fld.Label)
		fld.Type = core.CleanString(fld.Type, true /* lower */)
		for j := range fld.Choices {
			fld.Choices[j] = core.CleanString(fld.Choices[j])
		}
		if fld.Type != FieldChoice {
			fld.Choices = nil
		}
	}
	if err := validate.Struct(nf); err != nil {
		return err
	}

	seen := make(map[string]bool, len(nf.Fields))
	for i, fld := range nf.Fields {
		if seen[fld.Name] {
			return core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("fields[%d].name", i),
				Error: "duplicate field name " + fld.Name,
			})
		}
		seen[fld.Name] = true
		if fld.Type == FieldChoice && len(fld.Choices) < 2 {
			return core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("fields[%d].choices", i),
				Error: "a choice field needs at least 2 choices",
			})
		}
	}
	if nf.ClosesAt != nil && !nf.ClosesAt.After(time.Now()) {
		return core.NewValidationError(nil, core.FieldError{Field: "closes_at", Error: "closing time must be in the future"})
	}
	return nil
}

type NewResponse struct {
	Answers map[string]string `json:"answers"`
}

// Validate checks the answers against the fields of `form`.
// Unknown answers are rejected, blank optional answers are dropped.
func (nr *NewResponse) Validate(form Form, validate *validator.Validate) error {
	answers := make(map[string]string, len(nr.Answers))
	var flds []core.FieldError
	for name, value := range nr.Answers {
		value = core.CleanString(value)
		if value == "" {
			continue
		}
		answers[name] = value
	}

	known := make(map[string]bool, len(form.Fields))
	for _, fld := range form.Fields {
		known[fld.Name] = true
		value, ok := answers[fld.Name]
		if !ok {
			if fld.Required {
				flds = append(flds, core.FieldError{Field: fld.Name, Error: "this field is required"})
			}
			continue
		}
		switch fld.Type {
		case FieldNumber:
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				flds = append(flds, core.FieldError{Field: fld.Name, Error: "must be a number"})
			}
		case FieldEmail:
			if err := validate.Var(value, "email"); err != nil {
				flds = append(flds, core.FieldError{Field: fld.Name, Error: "must be a valid email address"})
			}
		case FieldChoice:
			if !core.ContainsString(fld.Choices, value) {
				flds = append(flds, core.FieldError{Field: fld.Name, Error: "must be one of the listed choices"})
			}
		}
	}
	for name := range answers {
		if !known[name] {
			flds = append(flds, core.FieldError{Field: name, Error: "unknown field"})
		}
	}

	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	nr.Answers = answers
	return nil
}

type FormQueryFilter struct {
	Search    string `query:"search"`
	Open      *bool  `query:"open"`
	CreatorID string `query:"creator"`
}

func (qf *FormQueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
