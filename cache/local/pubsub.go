package local

import (
	"context"
	"sync"
)

// LocalMessage is an in-process pub/sub message.
type LocalMessage struct {
	Channel string
	Payload string
}

// subscription is one Subscribe call; it may span several channels but
// delivers into a single buffered channel.
type subscription struct {
	ch   chan *LocalMessage
	once sync.Once
}

// LocalPubSub is an in-process fan-out pub/sub implementation.
// Delivery is best effort: a full subscriber buffer drops the message.
type LocalPubSub struct {
	mu      sync.RWMutex
	subs    map[string]map[*subscription]struct{}
	bufSize int
}

// NewPubSub creates a new LocalPubSub with the given per-subscriber buffer size.
func NewPubSub(bufSize int) *LocalPubSub {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &LocalPubSub{
		subs:    make(map[string]map[*subscription]struct{}),
		bufSize: bufSize,
	}
}

// Publish sends a message to all subscribers of the given channel.
func (ps *LocalPubSub) Publish(_ context.Context, channel, message string) error {
	msg := &LocalMessage{Channel: channel, Payload: message}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for s := range ps.subs[channel] {
		select {
		case s.ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of messages for the given channels, and a cancel
// function that unsubscribes and closes it.
func (ps *LocalPubSub) Subscribe(_ context.Context, channels ...string) (<-chan *LocalMessage, func(), error) {
	s := &subscription{ch: make(chan *LocalMessage, ps.bufSize)}

	ps.mu.Lock()
	for _, c := range channels {
		set, ok := ps.subs[c]
		if !ok {
			set = make(map[*subscription]struct{})
			ps.subs[c] = set
		}
		set[s] = struct{}{}
	}
	ps.mu.Unlock()

	cancel := func() {
		s.once.Do(func() {
			ps.mu.Lock()
			defer ps.mu.Unlock()
			for _, c := range channels {
				delete(ps.subs[c], s)
				if len(ps.subs[c]) == 0 {
					delete(ps.subs, c)
				}
			}
			close(s.ch)
		})
	}
	return s.ch, cancel, nil
}
