package echoapi_test

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core/poll"
	"github.com/trezcool/campus/core/user"
)

func Test_pollApi(t *testing.T) {
	setup(t)

	faculty := createUser(t, "Prof", "prof", "prof@test.cd", "", []string{user.RoleFaculty}, true)
	student := createUser(t, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	other := createUser(t, "Other", "other", "other@test.cd", "", []string{user.RoleStudent}, true)
	facultyToken, studentToken := getToken(t, faculty), getToken(t, student)

	newPoll := marshalObj(t, poll.NewPoll{Question: " Best language? ", Options: []string{"Go", "Rust", "Zig"}})

	runHTTPTests(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/api/polls", body: newPoll, wantCode: http.StatusUnauthorized},
		{name: "students cannot create", method: http.MethodPost, path: "/api/polls", token: studentToken, body: newPoll, wantCode: http.StatusForbidden},
		{
			name: "one option", method: http.MethodPost, path: "/api/polls", token: facultyToken,
			body: marshalObj(t, poll.NewPoll{Question: "?", Options: []string{"Go"}}), wantCode: http.StatusBadRequest,
		},
		{
			name: "duplicate options", method: http.MethodPost, path: "/api/polls", token: facultyToken,
			body: marshalObj(t, poll.NewPoll{Question: "?", Options: []string{"Go", "Go"}}), wantCode: http.StatusBadRequest,
		},
	})

	rec := do(http.MethodPost, "/api/polls", facultyToken, newPoll)
	if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		return
	}
	var p poll.Poll
	decode(t, rec, &p)
	assert.Equal(t, "Best language?", p.Question)
	assert.Equal(t, []poll.Option{{ID: "1", Text: "Go"}, {ID: "2", Text: "Rust"}, {ID: "3", Text: "Zig"}}, p.Options)

	path := "/api/polls/" + p.ID
	ballot := func(ids ...string) []byte { return marshalObj(t, poll.NewBallot{OptionIDs: ids}) }

	runHTTPTests(t, []httpTest{
		{name: "unknown poll", method: http.MethodPost, path: "/api/polls/lol/vote", token: studentToken, body: ballot("1"), wantCode: http.StatusNotFound},
		{name: "no option", method: http.MethodPost, path: path + "/vote", token: studentToken, body: ballot(), wantCode: http.StatusBadRequest},
		{name: "unknown option", method: http.MethodPost, path: path + "/vote", token: studentToken, body: ballot("9"), wantCode: http.StatusBadRequest},
		{name: "single choice", method: http.MethodPost, path: path + "/vote", token: studentToken, body: ballot("1", "2"), wantCode: http.StatusBadRequest},
		{name: "no ballot yet", path: path + "/ballot", token: studentToken, wantCode: http.StatusNotFound},
		{name: "vote", method: http.MethodPost, path: path + "/vote", token: studentToken, body: ballot("1")},
		{
			name: "vote twice", method: http.MethodPost, path: path + "/vote", token: studentToken, body: ballot("2"),
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: poll.ErrAlreadyVoted.Error()}),
		},
		{name: "only the creator closes", method: http.MethodPost, path: path + "/close", token: studentToken, wantCode: http.StatusForbidden},
	})

	rec = do(http.MethodGet, path+"/ballot", studentToken)
	var b poll.Ballot
	decode(t, rec, &b)
	assert.Equal(t, []string{"1"}, b.OptionIDs)

	rec = do(http.MethodGet, path+"/results", studentToken)
	var res poll.Results
	decode(t, rec, &res)
	assert.Equal(t, 1, res.TotalVotes)
	assert.Equal(t, float64(100), res.Options[0].Percent)

	runHTTPTests(t, []httpTest{
		{name: "close", method: http.MethodPost, path: path + "/close", token: facultyToken},
		{
			name: "closed poll", method: http.MethodPost, path: path + "/vote", token: getToken(t, other), body: ballot("2"),
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: poll.ErrPollClosed.Error()}),
		},
		{name: "delete", method: http.MethodDelete, path: path, token: facultyToken, wantCode: http.StatusNoContent},
		{name: "deleted", path: path, token: facultyToken, wantCode: http.StatusNotFound},
	})
}

func Test_pollApi_concurrentVotes(t *testing.T) {
	setup(t)

	faculty := createUser(t, "Prof", "prof", "prof@test.cd", "", []string{user.RoleFaculty}, true)
	rec := do(http.MethodPost, "/api/polls", getToken(t, faculty),
		marshalObj(t, poll.NewPoll{Question: "Lunch?", Options: []string{"Yes", "No"}, MultipleChoice: true}))
	var p poll.Poll
	decode(t, rec, &p)

	voters := make([]string, 20)
	for i := range voters {
		usr := createUser(t, "Voter", "", "", "", []string{user.RoleStudent}, true)
		voters[i] = getToken(t, usr)
	}

	var wg sync.WaitGroup
	for _, token := range voters {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			// every voter tries twice; only the first ballot counts
			do(http.MethodPost, "/api/polls/"+p.ID+"/vote", token, marshalObj(t, poll.NewBallot{OptionIDs: []string{"1", "2"}}))
			do(http.MethodPost, "/api/polls/"+p.ID+"/vote", token, marshalObj(t, poll.NewBallot{OptionIDs: []string{"1"}}))
		}(token)
	}
	wg.Wait()

	rec = do(http.MethodGet, "/api/polls/"+p.ID+"/results", voters[0])
	var res poll.Results
	decode(t, rec, &res)
	assert.Equal(t, len(voters), res.TotalVotes)
	assert.Equal(t, len(voters), res.Options[0].Votes)
	assert.Equal(t, len(voters), res.Options[1].Votes)
	assert.Equal(t, float64(50), res.Options[0].Percent)
}
