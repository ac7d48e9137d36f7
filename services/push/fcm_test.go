package push

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core"
)

func TestNewFCMNotifier_withoutCredentials(t *testing.T) {
	n, err := NewFCMNotifier(context.Background(), core.NewTestConfig(), nil)
	assert.NoError(t, err)
	assert.IsType(t, core.NopNotifier{}, n)
}

func Test_message(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Firebase.AnnouncementsTopic = "campus-news"
	topics := Topics(conf)

	tests := []struct {
		name      string
		n         core.Notification
		wantOK    bool
		wantTopic string
		wantBody  string
	}{
		{
			name:   "user topics are not pushed",
			n:      core.Notification{Kind: "complaint.updated", Topic: core.UserTopic("u1"), Title: "resolved"},
			wantOK: false,
		},
		{
			name:   "untitled",
			n:      core.Notification{Kind: "announcement.created", Topic: "announcements"},
			wantOK: false,
		},
		{
			name:      "announcement",
			n:         core.Notification{Kind: "announcement.created", Topic: "announcements", Title: "Exams", Body: "Start on Monday"},
			wantOK:    true,
			wantTopic: "campus-news",
			wantBody:  "Start on Monday",
		},
		{
			name:      "long body truncated",
			n:         core.Notification{Kind: "event.registration", Topic: "events", Title: "Fest", Body: strings.Repeat("a", 300)},
			wantOK:    true,
			wantTopic: "events",
			wantBody:  strings.Repeat("a", 237) + "...",
		},
		{
			name:      "truncated on a rune boundary",
			n:         core.Notification{Kind: "event.registration", Topic: "events", Title: "Fête", Body: strings.Repeat("é", 300)},
			wantOK:    true,
			wantTopic: "events",
			wantBody:  strings.Repeat("é", 237) + "...",
		},
		{
			name:      "multibyte body within the limit",
			n:         core.Notification{Kind: "event.registration", Topic: "events", Title: "Fête", Body: strings.Repeat("日", 240)},
			wantOK:    true,
			wantTopic: "events",
			wantBody:  strings.Repeat("日", 240),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg, ok := message(topics, tc.n)
			assert.Equal(t, tc.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tc.wantTopic, msg.Topic)
			assert.Equal(t, tc.n.Title, msg.Notification.Title)
			assert.Equal(t, tc.wantBody, msg.Notification.Body)
			assert.True(t, utf8.ValidString(msg.Notification.Body))
			assert.Equal(t, tc.n.Kind, msg.Data["kind"])
		})
	}
}
