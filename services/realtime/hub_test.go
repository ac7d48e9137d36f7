package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core"
	logsvc "github.com/trezcool/campus/services/logger"
)

func TestTopics(t *testing.T) {
	tests := []struct {
		name      string
		requested []string
		want      []string
	}{
		{name: "own topic only", want: []string{"user:u1"}},
		{name: "public topics", requested: []string{"polls", " events ", "polls"}, want: []string{"user:u1", "polls", "events"}},
		{name: "other users dropped", requested: []string{"user:u2", "user:u1", ""}, want: []string{"user:u1"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Topics("u1", tc.requested))
		})
	}
}

func TestHub_Publish(t *testing.T) {
	hub := NewHub(logsvc.NewRollbarLogger(log.New(new(bytes.Buffer), "", 0), core.NewTestConfig()))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		topics := strings.Split(r.URL.Query().Get("topics"), ",")
		_ = hub.Serve(w, r, r.URL.Query().Get("user"), Topics(r.URL.Query().Get("user"), topics))
	}))
	defer srv.Close()

	dial := func(userID, topics string) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user=" + userID + "&topics=" + topics
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("Dial(): %v", err)
		}
		return conn
	}
	alice := dial("alice", "polls")
	defer alice.Close()
	bob := dial("bob", "events")
	defer bob.Close()
	assert.Eventually(t, func() bool { return hub.Len() == 2 }, time.Second, 10*time.Millisecond)

	ctx := context.Background()
	hub.Publish(ctx, core.Notification{Kind: "poll.voted", Topic: "polls", Data: map[string]int{"total_votes": 3}})
	hub.Publish(ctx, core.Notification{Kind: "complaint.updated", Topic: core.UserTopic("bob"), Title: "resolved"})

	read := func(conn *websocket.Conn) core.Notification {
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage(): %v", err)
		}
		var n core.Notification
		if err = json.Unmarshal(msg, &n); err != nil {
			t.Fatalf("Unmarshal(): %v", err)
		}
		return n
	}

	got := read(alice)
	assert.Equal(t, "poll.voted", got.Kind)
	assert.Equal(t, map[string]interface{}{"total_votes": float64(3)}, got.Data)

	got = read(bob)
	assert.Equal(t, "complaint.updated", got.Kind)
	assert.Equal(t, "resolved", got.Title)

	assert.NoError(t, hub.Close())
	assert.Equal(t, 0, hub.Len())
}
