package push

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/trezcool/campus/core"
)

const sendTimeout = 10 * time.Second

// FCMNotifier forwards notifications of whitelisted topics to Firebase Cloud Messaging topics.
type FCMNotifier struct {
	client *messaging.Client
	topics map[string]string // notification topic -> FCM topic
	logger core.Logger
}

var _ core.Notifier = (*FCMNotifier)(nil)

// NewFCMNotifier returns a core.NopNotifier when no credentials file is configured.
func NewFCMNotifier(ctx context.Context, conf *core.Config, logger core.Logger) (core.Notifier, error) {
	if conf.Firebase.CredentialsFile == "" {
		return core.NopNotifier{}, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(conf.Firebase.CredentialsFile))
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase app")
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting messaging client")
	}
	return &FCMNotifier{
		client: client,
		topics: Topics(conf),
		logger: logger,
	}, nil
}

// Topics maps the notification topics pushed to mobile clients.
func Topics(conf *core.Config) map[string]string {
	return map[string]string{
		"announcements": conf.Firebase.AnnouncementsTopic,
		"events":        "events",
	}
}

const maxBodyRunes = 240

// message builds the FCM message of n; false when n is not pushed.
func message(topics map[string]string, n core.Notification) (*messaging.Message, bool) {
	topic, ok := topics[n.Topic]
	if !ok || topic == "" || n.Title == "" {
		return nil, false
	}
	body := n.Body
	if r := []rune(body); len(r) > maxBodyRunes {
		body = string(r[:maxBodyRunes-3]) + "..."
	}
	return &messaging.Message{
		Topic: topic,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  body,
		},
		Data: map[string]string{"kind": n.Kind},
	}, true
}

func (fcm *FCMNotifier) Publish(_ context.Context, n core.Notification) {
	msg, ok := message(fcm.topics, n)
	if !ok {
		return
	}
	// the request context ends with the response
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if _, err := fcm.client.Send(ctx, msg); err != nil {
			fcm.logger.Error(fmt.Sprintf("sending push notification: %v", err), err, map[string]interface{}{"kind": n.Kind, "topic": msg.Topic})
		}
	}()
}
