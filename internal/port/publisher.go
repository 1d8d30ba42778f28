package port

import "context"

// Publisher delivers an encoded event to subscribers of topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}
