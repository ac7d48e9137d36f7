package echoapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/poll"
	"github.com/trezcool/campus/core/user"
)

func Test_realtimeApi(t *testing.T) {
	setup(t)

	faculty := createUser(t, "Prof", "prof", "prof@test.cd", "", []string{user.RoleFaculty}, true)
	student := createUser(t, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	facultyToken, studentToken := getToken(t, faculty), getToken(t, student)

	srv := httptest.NewServer(app)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"

	t.Run("token required", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?topics=polls", nil)
		assert.Error(t, err)
		if assert.NotNil(t, resp) {
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		}
	})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+studentToken+"&topics=polls,user:"+faculty.ID, nil)
	if err != nil {
		t.Fatalf("Dial(): %v", err)
	}
	defer conn.Close()
	assert.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	rec := do(http.MethodPost, "/api/polls", facultyToken, marshalObj(t, poll.NewPoll{Question: "Lunch?", Options: []string{"Yes", "No"}}))
	var p poll.Poll
	decode(t, rec, &p)
	rec = do(http.MethodPost, "/api/polls/"+p.ID+"/vote", studentToken, marshalObj(t, poll.NewBallot{OptionIDs: []string{"1"}}))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage(): %v", err)
	}
	var n struct {
		core.Notification
		Data poll.Results `json:"data"`
	}
	if err = json.Unmarshal(msg, &n); err != nil {
		t.Fatalf("Unmarshal(): %v", err)
	}
	assert.Equal(t, poll.KindVoted, n.Kind)
	assert.Equal(t, poll.Topic, n.Topic)
	assert.Equal(t, p.ID, n.Data.PollID)
	assert.Equal(t, 1, n.Data.TotalVotes)
}
