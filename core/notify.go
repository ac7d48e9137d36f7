package core

import (
	"context"
	"io"
)

// Notification is a domain event pushed to interested clients.
type Notification struct {
	Kind  string      `json:"kind"`
	Topic string      `json:"topic"`
	Title string      `json:"title,omitempty"`
	Body  string      `json:"body,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// Notifier publishes notifications. Publishing never blocks the caller on delivery.
type Notifier interface {
	Publish(ctx context.Context, n Notification)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, Notification) {}

// UserTopic is the topic only the given user is subscribed to.
func UserTopic(userID string) string {
	return "user:" + userID
}

// FileStore stores uploaded files and returns their public URL.
type FileStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// Notifiers publishes to every notifier in order.
type Notifiers []Notifier

func (ns Notifiers) Publish(ctx context.Context, n Notification) {
	for _, notifier := range ns {
		notifier.Publish(ctx, n)
	}
}
