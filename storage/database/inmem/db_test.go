package inmemdb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/announcement"
	"github.com/trezcool/campus/core/complaint"
	"github.com/trezcool/campus/core/event"
	"github.com/trezcool/campus/core/lostfound"
	"github.com/trezcool/campus/core/poll"
	"github.com/trezcool/campus/core/skill"
	"github.com/trezcool/campus/core/user"
)

func TestSortRecords(t *testing.T) {
	now := time.Now()
	users := []user.User{
		{Name: "b", Year: 2, CreatedAt: now.Add(2 * time.Second)},
		{Name: "A", Year: 1, CreatedAt: now},
		{Name: "c", Year: 1, CreatedAt: now.Add(time.Second)},
	}
	names := func() []string {
		res := make([]string, len(users))
		for i, u := range users {
			res[i] = u.Name
		}
		return res
	}
	byCreatedAt := func(a, b user.User) bool { return a.CreatedAt.Before(b.CreatedAt) }

	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "default", want: []string{"A", "c", "b"}},
		{name: "unknown field ignored", ordering: []core.DBOrdering{{Field: "lol", Ascending: true}}, want: []string{"A", "c", "b"}},
		{name: "case insensitive", ordering: []core.DBOrdering{{Field: "name", Ascending: true}}, want: []string{"A", "b", "c"}},
		{name: "descending", ordering: []core.DBOrdering{{Field: "name"}}, want: []string{"c", "b", "A"}},
		{
			name:     "several fields",
			ordering: []core.DBOrdering{{Field: "year", Ascending: true}, {Field: "name"}},
			want:     []string{"c", "A", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sortRecords(users, tt.ordering, userComparators, byCreatedAt)
			assert.Equal(t, tt.want, names())
		})
	}
}

func TestTransactor_WithinTx(t *testing.T) {
	db := Open()
	tx := NewTransactor(db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := tx.WithinTx(ctx, func(core.DBExecutor) error { called = true; return nil })
	assert.Equal(t, context.Canceled, err)
	assert.False(t, called)

	// transactions never interleave
	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tx.WithinTx(context.Background(), func(core.DBExecutor) error {
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				time.Sleep(time.Millisecond)
				inside--
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(Open())

	usr, err := repo.CreateUser(ctx, user.User{Name: "Hero", Username: "hero", Email: "hero@test.cd", Roles: []string{user.RoleStudent}})
	if !assert.NoError(t, err) {
		return
	}
	assert.NotEmpty(t, usr.ID)

	// returned copies do not alias the stored row
	usr.Roles[0] = user.RoleAdmin
	got, err := repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: "hero@test.cd"})
	if assert.NoError(t, err) {
		assert.Equal(t, []string{user.RoleStudent}, got.Roles)
	}

	assert.Equal(t, user.ErrUsernameExists, repo.CheckUsernameUniqueness(ctx, "hero", "", nil))
	assert.Equal(t, user.ErrEmailExists, repo.CheckUsernameUniqueness(ctx, "", "hero@test.cd", nil))
	assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "hero", "hero@test.cd", []user.User{got}))

	_, err = repo.GetUser(ctx, user.GetFilter{ID: "lol"})
	assert.Equal(t, user.ErrNotFound, err)
	_, err = repo.UpdateUser(ctx, user.User{ID: "lol"})
	assert.Equal(t, user.ErrNotFound, err)

	cnt, err := repo.DeleteUsersByID(ctx, []string{got.ID, "lol"})
	assert.NoError(t, err)
	assert.Equal(t, 1, cnt)
}

func TestUserRepository_DeleteUsersByID_fixesTallies(t *testing.T) {
	ctx := context.Background()
	db := Open()
	users := NewUserRepository(db)
	polls := NewPollRepository(db)
	events := NewEventRepository(db)
	complaints := NewComplaintRepository(db)
	courses := NewSkillRepository(db)
	items := NewLostFoundRepository(db)
	announcements := NewAnnouncementRepository(db)

	staff, err := users.CreateUser(ctx, user.User{Username: "prof", Email: "prof@test.cd"})
	assert.NoError(t, err)
	stay, err := users.CreateUser(ctx, user.User{Username: "stay", Email: "stay@test.cd"})
	assert.NoError(t, err)
	leave, err := users.CreateUser(ctx, user.User{Username: "leave", Email: "leave@test.cd"})
	assert.NoError(t, err)

	p, err := polls.CreatePoll(ctx, poll.Poll{
		CreatorID:  staff.ID,
		Options:    []poll.Option{{ID: "1", Votes: 2}, {ID: "2"}},
		TotalVotes: 2,
	})
	assert.NoError(t, err)
	assert.NoError(t, polls.AddBallot(ctx, poll.Ballot{PollID: p.ID, UserID: stay.ID, OptionIDs: []string{"1"}}, nil))
	assert.NoError(t, polls.AddBallot(ctx, poll.Ballot{PollID: p.ID, UserID: leave.ID, OptionIDs: []string{"1"}}, nil))

	e, err := events.CreateEvent(ctx, event.Event{OrganizerID: staff.ID, MaxParticipants: 2, RegistrationCount: 2})
	assert.NoError(t, err)
	assert.NoError(t, events.AddRegistration(ctx, event.Registration{EventID: e.ID, UserID: stay.ID}, nil))
	assert.NoError(t, events.AddRegistration(ctx, event.Registration{EventID: e.ID, UserID: leave.ID}, nil))

	c, err := complaints.CreateComplaint(ctx, complaint.Complaint{StudentID: stay.ID, Upvotes: 1})
	assert.NoError(t, err)
	assert.NoError(t, complaints.AddUpvote(ctx, c.ID, leave.ID, nil))
	own, err := complaints.CreateComplaint(ctx, complaint.Complaint{StudentID: leave.ID})
	assert.NoError(t, err)

	course, err := courses.CreateCourse(ctx, skill.Course{
		InstructorID: staff.ID,
		MaxLearners:  2,
		Learners:     []string{leave.ID, stay.ID},
		Status:       skill.StatusFull,
		Rating:       3,
		RatingCount:  2,
	})
	assert.NoError(t, err)
	assert.NoError(t, courses.AddRating(ctx, course.ID, stay.ID, 4, nil))
	assert.NoError(t, courses.AddRating(ctx, course.ID, leave.ID, 2, nil))

	claimed, err := items.CreateItem(ctx, lostfound.Item{ReporterID: stay.ID, ClaimantID: leave.ID, Status: lostfound.StatusClaimed})
	assert.NoError(t, err)
	reported, err := items.CreateItem(ctx, lostfound.Item{ReporterID: leave.ID})
	assert.NoError(t, err)
	a, err := announcements.CreateAnnouncement(ctx, announcement.Announcement{AuthorID: leave.ID})
	assert.NoError(t, err)

	cnt, err := users.DeleteUsersByID(ctx, []string{leave.ID})
	assert.NoError(t, err)
	assert.Equal(t, 1, cnt)

	gotPoll, err := polls.GetPoll(ctx, p.ID)
	if assert.NoError(t, err) {
		assert.Equal(t, 1, gotPoll.TotalVotes)
		assert.Equal(t, 1, gotPoll.Options[0].Votes)
	}
	_, err = polls.GetBallot(ctx, p.ID, leave.ID)
	assert.Equal(t, poll.ErrBallotNotFound, err)

	gotEvent, err := events.GetEvent(ctx, e.ID)
	if assert.NoError(t, err) {
		assert.Equal(t, 1, gotEvent.RegistrationCount)
	}
	regs, err := events.QueryRegistrations(ctx, e.ID)
	if assert.NoError(t, err) && assert.Len(t, regs, 1) {
		assert.Equal(t, stay.ID, regs[0].UserID)
	}

	gotComplaint, err := complaints.GetComplaint(ctx, c.ID)
	if assert.NoError(t, err) {
		assert.Equal(t, 0, gotComplaint.Upvotes)
	}
	_, err = complaints.GetComplaint(ctx, own.ID)
	assert.Equal(t, complaint.ErrNotFound, err)

	gotCourse, err := courses.GetCourse(ctx, course.ID)
	if assert.NoError(t, err) {
		assert.Equal(t, []string{stay.ID}, gotCourse.Learners)
		assert.Equal(t, skill.StatusOpen, gotCourse.Status)
		assert.Equal(t, 1, gotCourse.RatingCount)
		assert.InDelta(t, 4, gotCourse.Rating, 0.001)
	}

	gotClaimed, err := items.GetItem(ctx, claimed.ID)
	if assert.NoError(t, err) {
		assert.Empty(t, gotClaimed.ClaimantID)
	}
	_, err = items.GetItem(ctx, reported.ID)
	assert.Equal(t, lostfound.ErrNotFound, err)
	_, err = announcements.GetAnnouncement(ctx, a.ID)
	assert.Equal(t, announcement.ErrNotFound, err)
}
