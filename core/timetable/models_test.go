package timetable

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core"
)

func TestEntry_Overlaps(t *testing.T) {
	base := Entry{Day: "mon", StartTime: "09:00", EndTime: "10:00"}

	tests := []struct {
		name  string
		other Entry
		want  bool
	}{
		{name: "same slot", other: base, want: true},
		{name: "inside", other: Entry{Day: "mon", StartTime: "09:15", EndTime: "09:45"}, want: true},
		{name: "straddles start", other: Entry{Day: "mon", StartTime: "08:30", EndTime: "09:30"}, want: true},
		{name: "back to back", other: Entry{Day: "mon", StartTime: "10:00", EndTime: "11:00"}},
		{name: "ends at start", other: Entry{Day: "mon", StartTime: "08:00", EndTime: "09:00"}},
		{name: "other day", other: Entry{Day: "tue", StartTime: "09:00", EndTime: "10:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base))
		})
	}
}

func TestDayIndex(t *testing.T) {
	assert.Equal(t, 0, dayIndex("mon"))
	assert.Equal(t, 6, dayIndex("sun"))
	assert.Equal(t, len(Days), dayIndex("someday"))
}

func TestNewEntry_Validate(t *testing.T) {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	tests := []struct {
		name    string
		entry   NewEntry
		wantErr bool
	}{
		{name: "valid", entry: NewEntry{Section: " CSE-3A ", Day: "Mon", StartTime: "09:00", EndTime: "10:00", Course: "Algo"}},
		{name: "unknown day", entry: NewEntry{Section: "A", Day: "monday", StartTime: "09:00", EndTime: "10:00", Course: "Algo"}, wantErr: true},
		{name: "not HH:MM", entry: NewEntry{Section: "A", Day: "mon", StartTime: "9:00", EndTime: "10:00", Course: "Algo"}, wantErr: true},
		{name: "out of range", entry: NewEntry{Section: "A", Day: "mon", StartTime: "09:00", EndTime: "24:00", Course: "Algo"}, wantErr: true},
		{name: "empty slot", entry: NewEntry{Section: "A", Day: "mon", StartTime: "10:00", EndTime: "10:00", Course: "Algo"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ne := tt.entry
			err := ne.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			if assert.NoError(t, err) {
				assert.Equal(t, "CSE-3A", ne.Section)
				assert.Equal(t, "mon", ne.Day)
			}
		})
	}
}
