package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/strogmv/walletd/internal/domain"
	"github.com/strogmv/walletd/internal/port"
)

// Dispatcher routes notification messages to configured channel sinks.
type Dispatcher struct {
	InAppSink port.NotificationInAppSink
}

type dispatchPolicy struct {
	Event    string
	Channels []string
}

var dispatchPolicies = []dispatchPolicy{
	{Event: domain.TopicTransferCompleted, Channels: []string{"in_app"}},
}

var _ port.NotificationDispatcher = (*Dispatcher)(nil)

// NewDispatcher builds a runtime dispatcher with channel-specific sinks.
func NewDispatcher(inApp port.NotificationInAppSink) *Dispatcher {
	return &Dispatcher{InAppSink: inApp}
}

// Dispatch delivers message to requested channels, or to the event's policy channels when omitted.
func (d *Dispatcher) Dispatch(ctx context.Context, msg port.NotificationMessage) error {
	msg = applyDispatchPolicy(msg)
	if strings.TrimSpace(msg.UserID) == "" {
		return fmt.Errorf("notification %q has no recipient", msg.Event)
	}
	for _, channel := range msg.Channels {
		channel = strings.TrimSpace(channel)
		switch channel {
		case "in_app":
			if d.InAppSink == nil {
				return fmt.Errorf("notification sink %q is not configured", channel)
			}
			if err := d.InAppSink.Send(ctx, msg); err != nil {
				return fmt.Errorf("send via %s: %w", channel, err)
			}
		default:
			return fmt.Errorf("notification channel %q is not supported", channel)
		}
	}
	return nil
}

func applyDispatchPolicy(msg port.NotificationMessage) port.NotificationMessage {
	if len(msg.Channels) > 0 {
		return msg
	}
	for _, rule := range dispatchPolicies {
		if strings.EqualFold(rule.Event, strings.TrimSpace(msg.Event)) {
			msg.Channels = append([]string(nil), rule.Channels...)
			return msg
		}
	}
	msg.Channels = []string{"in_app"}
	return msg
}
