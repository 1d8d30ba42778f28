package nats

import (
	"context"
	"fmt"
	"time"

	natspkg "github.com/nats-io/nats.go"

	"github.com/strogmv/walletd/internal/port"
)

type Client struct {
	nc *natspkg.Conn
}

var _ port.Publisher = (*Client)(nil)

func NewClient(url string) (*Client, error) {
	nc, err := natspkg.Connect(url,
		natspkg.Name("walletd"),
		natspkg.MaxReconnects(-1),
		natspkg.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Client{nc: nc}, nil
}

func (c *Client) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

func (c *Client) IsConnected() bool {
	return c.nc != nil && c.nc.Status() == natspkg.CONNECTED
}

// Publish sends payload on subject topic and waits for the server to
// acknowledge the flush so the outbox only marks delivered events.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := c.nc.Publish(topic, payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", topic, err)
	}
	if err := c.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	return nil
}

// Ping reports whether the connection is usable.
func (c *Client) Ping(ctx context.Context) error {
	if !c.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (c *Client) Subscribe(subject string, handler func(data []byte) error) (*natspkg.Subscription, error) {
	return c.nc.Subscribe(subject, func(msg *natspkg.Msg) {
		_ = handler(msg.Data)
	})
}
