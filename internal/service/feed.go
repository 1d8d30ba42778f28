package service

import (
	"context"
	"sync"

	"github.com/strogmv/walletd/internal/port"
)

const defaultFeedBuffer = 16

// FeedHub fans transfer notifications out to each user's live connections.
// A subscriber that falls behind loses messages instead of blocking the
// sender.
type FeedHub struct {
	mu     sync.RWMutex
	subs   map[string]map[*feedSub]struct{}
	buffer int
}

type feedSub struct {
	ch chan []byte
}

var _ port.NotificationInAppSink = (*FeedHub)(nil)

func NewFeedHub(buffer int) *FeedHub {
	if buffer <= 0 {
		buffer = defaultFeedBuffer
	}
	return &FeedHub{subs: make(map[string]map[*feedSub]struct{}), buffer: buffer}
}

// Subscribe registers a listener for userID. The returned cancel func
// unregisters it and closes the channel; it is safe to call twice.
func (h *FeedHub) Subscribe(userID string) (<-chan []byte, func()) {
	sub := &feedSub{ch: make(chan []byte, h.buffer)}

	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[*feedSub]struct{})
		h.subs[userID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], sub)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			close(sub.ch)
			h.mu.Unlock()
		})
	}
}

// Send delivers msg.Payload to every live subscriber of msg.UserID.
func (h *FeedHub) Send(ctx context.Context, msg port.NotificationMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[msg.UserID] {
		select {
		case sub.ch <- msg.Payload:
		default:
		}
	}
	return nil
}

// Subscribers returns the number of live subscribers for userID.
func (h *FeedHub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
