package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvent_RegistrationOpen(t *testing.T) {
	now := time.Now()
	deadline := now.Add(-time.Hour)

	assert.True(t, Event{StartsAt: now.Add(time.Hour)}.RegistrationOpen(now))
	assert.False(t, Event{StartsAt: now}.RegistrationOpen(now))
	assert.False(t, Event{StartsAt: now.Add(time.Hour), RegistrationDeadline: &deadline}.RegistrationOpen(now))
}

func TestEvent_IsFull(t *testing.T) {
	assert.False(t, Event{RegistrationCount: 100}.IsFull()) // unlimited
	assert.False(t, Event{MaxParticipants: 2, RegistrationCount: 1}.IsFull())
	assert.True(t, Event{MaxParticipants: 2, RegistrationCount: 2}.IsFull())
}

func TestUpdateEvent_apply(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	e := Event{Title: "Fest", StartsAt: start, EndsAt: start.Add(2 * time.Hour), MaxParticipants: 10, RegistrationCount: 5}

	title := "Spring fest"
	later := start.Add(3 * time.Hour)
	tooLate := start.Add(time.Hour)
	three, zero := 3, 0

	tests := []struct {
		name    string
		update  UpdateEvent
		wantErr bool
		check   func(t *testing.T, got Event)
	}{
		{
			name:   "title only",
			update: UpdateEvent{Title: &title},
			check: func(t *testing.T, got Event) {
				assert.Equal(t, "Spring fest", got.Title)
				assert.Equal(t, e.StartsAt, got.StartsAt)
			},
		},
		{name: "starts after end", update: UpdateEvent{StartsAt: &later}, wantErr: true},
		{name: "deadline after start", update: UpdateEvent{RegistrationDeadline: &tooLate}, wantErr: true},
		{name: "capacity below registrations", update: UpdateEvent{MaxParticipants: &three}, wantErr: true},
		{
			name:   "unlimited capacity",
			update: UpdateEvent{MaxParticipants: &zero},
			check: func(t *testing.T, got Event) {
				assert.Equal(t, 0, got.MaxParticipants)
				assert.False(t, got.IsFull())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.update.apply(e)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			if assert.NoError(t, err) {
				tt.check(t, got)
			}
		})
	}
}
