package poll_test

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/poll"
	"github.com/trezcool/campus/core/user"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
)

func newService() *poll.Service {
	db := inmemdb.Open()
	return poll.NewService(inmemdb.NewPollRepository(db), inmemdb.NewTransactor(db), core.NopNotifier{})
}

func TestService_Vote_concurrent(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	faculty := user.User{ID: "prof", Roles: []string{user.RoleFaculty}}

	p, err := svc.Create(ctx, faculty, poll.NewPoll{Question: "Best day for the fest?", Options: []string{"Friday", "Saturday", "Sunday"}})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	// every voter tries twice; only the first ballot counts
	const voters = 30
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		repeated int
	)
	for i := 0; i < voters*2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			voter := user.User{ID: fmt.Sprintf("voter-%d", i%voters), Roles: []string{user.RoleStudent}}
			_, err := svc.Vote(ctx, voter, p.ID, poll.NewBallot{OptionIDs: []string{strconv.Itoa(i%voters%3 + 1)}})
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				accepted++
			case poll.ErrAlreadyVoted:
				repeated++
			default:
				t.Errorf("Vote() unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, voters, accepted)
	assert.Equal(t, voters, repeated)

	got, err := svc.Get(ctx, p.ID)
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, voters, got.TotalVotes)
	sum := 0
	for _, opt := range got.Options {
		assert.Equal(t, voters/3, opt.Votes, opt.Text)
		sum += opt.Votes
	}
	assert.Equal(t, got.TotalVotes, sum)
}

func TestService_Vote(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	faculty := user.User{ID: "prof", Roles: []string{user.RoleFaculty}}
	student := user.User{ID: "student", Roles: []string{user.RoleStudent}}

	p, err := svc.Create(ctx, faculty, poll.NewPoll{Question: "Lunch?", Options: []string{"Rice", "Pasta"}})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	_, err = svc.Vote(ctx, student, p.ID, poll.NewBallot{OptionIDs: []string{"1", "2"}})
	assert.IsType(t, &core.ValidationError{}, err)
	_, err = svc.Vote(ctx, student, p.ID, poll.NewBallot{OptionIDs: []string{"3"}})
	assert.IsType(t, &core.ValidationError{}, err)

	_, err = svc.Close(ctx, faculty, p.ID)
	if !assert.NoError(t, err) {
		return
	}
	_, err = svc.Vote(ctx, student, p.ID, poll.NewBallot{OptionIDs: []string{"1"}})
	assert.Equal(t, poll.ErrPollClosed, err)
}
