package emailsvc

import (
	"bytes"
	"io"
	"log"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core"
	logsvc "github.com/trezcool/campus/services/logger"
)

func TestOutbox(t *testing.T) {
	conf := core.NewTestConfig()
	outbox := NewOutbox(conf, logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf))
	to := []mail.Address{{Name: "Hero", Address: "hero@test.cd"}}

	outbox.SendMessages(
		&core.EmailMessage{To: to, Subject: "Hi", BodyStr: "Hello"},
		&core.EmailMessage{Subject: "no recipient", BodyStr: "lost"},
		&core.EmailMessage{To: to, Subject: "no content"},
	)

	msgs := outbox.Messages()
	if assert.Len(t, msgs, 1) {
		assert.Equal(t, "Hi", msgs[0].Subject)
		assert.Equal(t, "Hello", msgs[0].TextContent)
	}

	outbox.Reset()
	assert.Empty(t, outbox.Messages())
}

func TestConsoleService_mime(t *testing.T) {
	conf := core.NewTestConfig()
	out := new(bytes.Buffer)
	svc := &consoleService{
		from:       conf.DefaultFromAddress(),
		subjPrefix: "[" + conf.AppName + "] ",
		out:        out,
		logger:     logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf),
		sync:       true,
	}

	msg := &core.EmailMessage{
		To:          []mail.Address{{Address: "a@test.cd"}, {Address: "b@test.cd"}},
		Subject:     "Report",
		BodyStr:     "See below",
		HTMLContent: "<p>See below</p>",
	}
	svc.SendMessages(msg)

	got := out.String()
	assert.Contains(t, got, "Subject: ["+conf.AppName+"] Report\r\n")
	assert.Contains(t, got, "To: <a@test.cd>, <b@test.cd>\r\n")
	assert.Contains(t, got, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, got, "text/plain; charset=utf-8")
	assert.Contains(t, got, "See below\r\n")
	assert.Contains(t, got, "<p>See below</p>")
	assert.Len(t, svc.sent, 1)
}
