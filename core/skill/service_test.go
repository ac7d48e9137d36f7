package skill_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/skill"
	"github.com/trezcool/campus/core/user"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
)

func newService() *skill.Service {
	db := inmemdb.Open()
	return skill.NewService(inmemdb.NewSkillRepository(db), inmemdb.NewTransactor(db), core.NopNotifier{})
}

func TestService_Enroll_concurrent(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	instructor := user.User{ID: "instructor", Roles: []string{user.RoleStudent}}

	c, err := svc.Offer(ctx, instructor, skill.NewCourse{Title: "Guitar", Category: "music", MaxLearners: 5})
	if err != nil {
		t.Fatalf("Offer() failed: %v", err)
	}

	const learners = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		full     int
	)
	for i := 0; i < learners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Enroll(ctx, user.User{ID: fmt.Sprintf("learner-%d", i), Roles: []string{user.RoleStudent}}, c.ID)
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				accepted++
			case skill.ErrCourseFull:
				full++
			default:
				t.Errorf("Enroll() unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, accepted)
	assert.Equal(t, learners-5, full)

	got, err := svc.Get(ctx, c.ID)
	if assert.NoError(t, err) {
		assert.Len(t, got.Learners, 5)
		assert.Equal(t, skill.StatusFull, got.Status)
	}
}

func TestService_Enroll(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	instructor := user.User{ID: "instructor", Roles: []string{user.RoleStudent}}
	learner := user.User{ID: "learner", Roles: []string{user.RoleStudent}}

	c, err := svc.Offer(ctx, instructor, skill.NewCourse{Title: "Chess", Category: "games", MaxLearners: 1})
	if err != nil {
		t.Fatalf("Offer() failed: %v", err)
	}

	tests := []struct {
		name       string
		actor      user.User
		wantErr    error
		wantStatus string
	}{
		{name: "own course", actor: instructor, wantErr: skill.ErrOwnCourse},
		{name: "enroll", actor: learner, wantStatus: skill.StatusFull},
		{name: "twice", actor: learner, wantErr: skill.ErrAlreadyEnrolled},
		{name: "full", actor: user.User{ID: "late"}, wantErr: skill.ErrCourseFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Enroll(ctx, tt.actor, c.ID)
			assert.Equal(t, tt.wantErr, err)
			if err == nil {
				assert.Equal(t, tt.wantStatus, got.Status)
			}
		})
	}

	got, err := svc.Leave(ctx, learner, c.ID)
	if assert.NoError(t, err) {
		assert.Empty(t, got.Learners)
		assert.Equal(t, skill.StatusOpen, got.Status)
	}
}
