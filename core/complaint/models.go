package complaint

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

// Categories
const (
	CategoryElectrical = "electrical"
	CategoryPlumbing   = "plumbing"
	CategoryCleaning   = "cleaning"
	CategoryFurniture  = "furniture"
	CategoryInternet   = "internet"
	CategoryOther      = "other"
)

// Statuses
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusRejected   = "rejected"
)

var transitions = map[string][]string{
	StatusPending:    {StatusInProgress, StatusRejected},
	StatusInProgress: {StatusResolved, StatusRejected},
}

// CanTransition reports whether a complaint may move from status `from` to `to`.
func CanTransition(from, to string) bool {
	return core.ContainsString(transitions[from], to)
}

type Complaint struct {
	ID          string     `json:"id"`
	Hostel      string     `json:"hostel"`
	Room        string     `json:"room"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Upvotes     int        `json:"upvotes"`
	StudentID   string     `json:"student_id"`
	Resolution  string     `json:"resolution,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`  // UTC
	UpdatedAt   time.Time  `json:"updated_at"`  // UTC
	ResolvedAt  *time.Time `json:"resolved_at"` // UTC
}

// IsClosed is true once the complaint got resolved or rejected.
func (c Complaint) IsClosed() bool {
	return c.Status == StatusResolved || c.Status == StatusRejected
}

// NewComplaint holds a filed complaint. Hostel and Room default to the student's own.
type NewComplaint struct {
	Hostel      string `json:"hostel" validate:"max=80"`
	Room        string `json:"room" validate:"max=20"`
	Category    string `json:"category" validate:"required,oneof=electrical plumbing cleaning furniture internet other"`
	Description string `json:"description" validate:"required,notblank,max=2000"`
}

func (nc *NewComplaint) Validate(validate *validator.Validate) error {
	nc.Hostel = core.CleanString(nc.Hostel)
	nc.Room = core.CleanString(nc.Room)
	nc.Category = core.CleanString(nc.Category, true /* lower */)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

type UpdateStatus struct {
	Status     string `json:"status" validate:"required,oneof=pending in_progress resolved rejected"`
	Resolution string `json:"resolution" validate:"max=2000"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	us.Status = core.CleanString(us.Status, true /* lower */)
	us.Resolution = core.CleanString(us.Resolution)
	return validate.Struct(us)
}

type QueryFilter struct {
	Hostel    string `query:"hostel"`
	Status    string `query:"status"`
	Category  string `query:"category"`
	StudentID string `query:"student"`
}

func (qf *QueryFilter) Clean() {
	qf.Hostel = core.CleanString(qf.Hostel)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.Category = core.CleanString(qf.Category, true /* lower */)
}
