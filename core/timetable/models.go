package timetable

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
)

// Days, in week order.
var Days = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

func dayIndex(day string) int {
	for i, d := range Days {
		if d == day {
			return i
		}
	}
	return len(Days)
}

type Entry struct {
	ID        string    `json:"id"`
	Section   string    `json:"section"` // e.g. "CSE-3A"
	Day       string    `json:"day"`
	StartTime string    `json:"start_time"` // HH:MM
	EndTime   string    `json:"end_time"`   // HH:MM
	Course    string    `json:"course"`
	Room      string    `json:"room"`
	Faculty   string    `json:"faculty"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Overlaps reports whether both entries share part of the same day.
// "HH:MM" strings compare lexicographically in time order.
func (e Entry) Overlaps(other Entry) bool {
	return e.Day == other.Day && e.StartTime < other.EndTime && other.StartTime < e.EndTime
}

type NewEntry struct {
	Section   string `json:"section" validate:"required,notblank,max=40"`
	Day       string `json:"day" validate:"required,oneof=mon tue wed thu fri sat sun"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
	Course    string `json:"course" validate:"required,notblank,max=120"`
	Room      string `json:"room" validate:"max=40"`
	Faculty   string `json:"faculty" validate:"max=120"`
}

func (ne *NewEntry) Validate(validate *validator.Validate) error {
	ne.Section = core.CleanString(ne.Section)
	ne.Day = core.CleanString(ne.Day, true /* lower */)
	ne.StartTime = core.CleanString(ne.StartTime)
	ne.EndTime = core.CleanString(ne.EndTime)
	ne.Course = core.CleanString(ne.Course)
	ne.Room = core.CleanString(ne.Room)
	ne.Faculty = core.CleanString(ne.Faculty)
	if err := validate.Struct(ne); err != nil {
		return err
	}
	if ne.StartTime >= ne.EndTime {
		return core.NewValidationError(nil, core.FieldError{Field: "end_time", Error: "end time must be after start time"})
	}
	return nil
}

type QueryFilter struct {
	Section string `query:"section"`
	Day     string `query:"day"`
	Room    string `query:"room"`
	Faculty string `query:"faculty"`
}

func (qf *QueryFilter) Clean() {
	qf.Section = core.CleanString(qf.Section)
	qf.Day = core.CleanString(qf.Day, true /* lower */)
	qf.Room = core.CleanString(qf.Room)
	qf.Faculty = core.CleanString(qf.Faculty)
}

// Day groups the entries of one week day.
type Day struct {
	Day     string  `json:"day"`
	Entries []Entry `json:"entries"`
}
