package sqlxrepos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlotLockKeys(t *testing.T) {
	tests := []struct {
		name               string
		day, section, room string
		want               []string
	}{
		{name: "section only", day: "mon", section: "cs-1", want: []string{"timetable:section:mon:cs-1"}},
		{name: "section and room", day: "tue", section: "cs-1", room: "b12", want: []string{"timetable:room:tue:b12", "timetable:section:tue:cs-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slotLockKeys(tt.day, tt.section, tt.room))
		})
	}
}
