package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/walletd/internal/adapter/notifications"
	"github.com/strogmv/walletd/internal/adapter/repository/memory"
	"github.com/strogmv/walletd/internal/domain"
	"github.com/strogmv/walletd/internal/port"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	fail   error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.topics)
}

func saveTransferEvent(t *testing.T, outbox port.OutboxRepository, id string) {
	t.Helper()
	payload, err := json.Marshal(domain.TransferCompleted{TransferID: "t-" + id, PayerID: "alice", PayeeID: "bob", Asset: "XLM", Amount: 5})
	require.NoError(t, err)
	require.NoError(t, outbox.SaveEvent(context.Background(), id, domain.TopicTransferCompleted, payload))
}

func TestOutboxRelay_FlushDeliversInOrder(t *testing.T) {
	store := memory.NewStore(nil)
	outbox := memory.NewOutboxRepository(store)
	saveTransferEvent(t, outbox, "e1")
	saveTransferEvent(t, outbox, "e2")

	hub := NewFeedHub(4)
	feed, cancel := hub.Subscribe("bob")
	defer cancel()

	pub := &recordingPublisher{}
	relay := NewOutboxRelay(outbox, pub, notifications.NewDispatcher(hub), RelayConfig{})

	n, err := relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, pub.count())
	assert.Len(t, feed, 2)

	pending, err := outbox.ListPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxRelay_PublishFailureKeepsEvent(t *testing.T) {
	store := memory.NewStore(nil)
	outbox := memory.NewOutboxRepository(store)
	saveTransferEvent(t, outbox, "e1")

	pub := &recordingPublisher{fail: errors.New("nats down")}
	relay := NewOutboxRelay(outbox, pub, nil, RelayConfig{MaxAttempts: 2})
	ctx := context.Background()

	_, err := relay.Flush(ctx)
	require.ErrorContains(t, err, "nats down")

	pending, err := outbox.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)

	_, err = relay.Flush(ctx)
	require.Error(t, err)

	// The third pass gives up on the event.
	n, err := relay.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	pending, err = outbox.ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxRelay_RunStopsOnCancel(t *testing.T) {
	store := memory.NewStore(nil)
	outbox := memory.NewOutboxRepository(store)
	saveTransferEvent(t, outbox, "e1")

	pub := &recordingPublisher{}
	relay := NewOutboxRelay(outbox, pub, nil, RelayConfig{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
