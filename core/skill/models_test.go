package skill

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCourse_syncStatus(t *testing.T) {
	tests := []struct {
		name   string
		course Course
		want   string
	}{
		{name: "room left", course: Course{MaxLearners: 2, Learners: []string{"a"}, Status: StatusFull}, want: StatusOpen},
		{name: "at capacity", course: Course{MaxLearners: 1, Learners: []string{"a"}, Status: StatusOpen}, want: StatusFull},
		{name: "closed stays closed", course: Course{MaxLearners: 5, Status: StatusClosed}, want: StatusClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.course
			c.syncStatus()
			assert.Equal(t, tt.want, c.Status)
		})
	}
}

func TestCourse_addRating(t *testing.T) {
	var c Course
	for _, score := range []int{5, 4, 3} {
		c.addRating(score)
	}
	assert.Equal(t, 3, c.RatingCount)
	assert.InDelta(t, 4.0, c.Rating, 1e-9)

	c.addRating(1)
	assert.Equal(t, 4, c.RatingCount)
	assert.InDelta(t, 3.25, c.Rating, 1e-9)
}
