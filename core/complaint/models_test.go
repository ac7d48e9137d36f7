package complaint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{from: StatusPending, to: StatusInProgress, want: true},
		{from: StatusPending, to: StatusRejected, want: true},
		{from: StatusPending, to: StatusResolved},
		{from: StatusInProgress, to: StatusResolved, want: true},
		{from: StatusInProgress, to: StatusRejected, want: true},
		{from: StatusInProgress, to: StatusPending},
		{from: StatusResolved, to: StatusInProgress},
		{from: StatusRejected, to: StatusPending},
		{from: StatusPending, to: StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestComplaint_IsClosed(t *testing.T) {
	for status, want := range map[string]bool{
		StatusPending:    false,
		StatusInProgress: false,
		StatusResolved:   true,
		StatusRejected:   true,
	} {
		assert.Equal(t, want, Complaint{Status: status}.IsClosed(), status)
	}
}
