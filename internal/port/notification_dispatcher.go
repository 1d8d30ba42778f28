package port

import "context"

// NotificationMessage is a transport-agnostic envelope for multi-channel delivery.
type NotificationMessage struct {
	Event    string
	UserID   string
	EntityID string
	Payload  []byte
	Channels []string
}

// NotificationDispatcher routes notification message to configured channel sinks.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, msg NotificationMessage) error
}

// NotificationInAppSink delivers notifications via "in_app" channel.
type NotificationInAppSink interface {
	Send(ctx context.Context, msg NotificationMessage) error
}
