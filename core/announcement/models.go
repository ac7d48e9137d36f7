package announcement

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

// Audiences
const (
	AudienceAll        = "all"
	AudienceStudents   = "students"
	AudienceFaculty    = "faculty"
	AudienceDepartment = "department"
)

var Audiences = []string{AudienceAll, AudienceStudents, AudienceFaculty, AudienceDepartment}

type Announcement struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Audience   string     `json:"audience"`
	Department string     `json:"department,omitempty"`
	Pinned     bool       `json:"pinned"`
	AuthorID   string     `json:"author_id"`
	ExpiresAt  *time.Time `json:"expires_at"` // UTC
	CreatedAt  time.Time  `json:"created_at"` // UTC
	UpdatedAt  time.Time  `json:"updated_at"` // UTC
}

// IsExpired reports whether the announcement stopped being visible at `now`.
func (a Announcement) IsExpired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

// VisibleTo reports whether `usr` is part of the announcement's audience.
// Staff see everything.
func (a Announcement) VisibleTo(usr user.User) bool {
	if usr.IsAdmin() || usr.ID == a.AuthorID {
		return true
	}
	switch a.Audience {
	case AudienceAll:
		return true
	case AudienceStudents:
		return usr.IsStudent()
	case AudienceFaculty:
		return usr.IsFaculty()
	case AudienceDepartment:
		return usr.IsFaculty() || (a.Department != "" && a.Department == usr.Department)
	}
	return false
}

type NewAnnouncement struct {
	Title      string     `json:"title" validate:"required,notblank,max=200"`
	Content    string     `json:"content" validate:"required,notblank"`
	Audience   string     `json:"audience" validate:"omitempty,oneof=all students faculty department"`
	Department string     `json:"department" validate:"required_if=Audience department"`
	Pinned     bool       `json:"pinned"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Content = core.CleanString(na.Content)
	na.Department = core.CleanString(na.Department)
	if na.Audience == "" {
		na.Audience = AudienceAll
	}
	if err := validate.Struct(na); err != nil {
		return err
	}
	if na.ExpiresAt != nil && !na.ExpiresAt.After(time.Now()) {
		return core.NewValidationError(nil, core.FieldError{Field: "expires_at", Error: "expiry must be in the future"})
	}
	return nil
}

type UpdateAnnouncement struct {
	Title      *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Content    *string    `json:"content" validate:"omitempty,notblank"`
	Audience   *string    `json:"audience" validate:"omitempty,oneof=all students faculty department"`
	Department *string    `json:"department"`
	Pinned     *bool      `json:"pinned"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

func (ua *UpdateAnnouncement) Validate(validate *validator.Validate) error {
	return validate.Struct(ua)
}

type QueryFilter struct {
	Search         string `query:"search"`
	Audience       string `query:"audience"`
	Department     string `query:"department"`
	Pinned         *bool  `query:"pinned"`
	AuthorID       string `query:"author"`
	IncludeExpired bool   `query:"include_expired"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Audience = core.CleanString(qf.Audience, true /* lower */)
	qf.Department = core.CleanString(qf.Department)
}
