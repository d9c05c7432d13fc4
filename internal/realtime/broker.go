// Package realtime carries change signals for live friend-request
// subscriptions over Redis pub/sub.
package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const channelPrefix = "friend_requests:"

// Listener receives a signal each time a watched user's requests change.
// Signals are coalesced: a burst of changes may arrive as a single signal.
type Listener interface {
	Changes() <-chan struct{}
	Close() error
}

// RedisBroker publishes and subscribes change signals per user.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func channelFor(userID string) string {
	return channelPrefix + userID
}

// Publish signals a change to every listed user.
func (b *RedisBroker) Publish(ctx context.Context, userIDs ...string) error {
	pipe := b.client.Pipeline()
	for _, id := range userIDs {
		pipe.Publish(ctx, channelFor(id), "changed")
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Subscribe starts listening for userID. The subscription is confirmed by
// Redis before Subscribe returns, so no publish after it is missed.
func (b *RedisBroker) Subscribe(ctx context.Context, userID string) (Listener, error) {
	pubsub := b.client.Subscribe(ctx, channelFor(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to changes: %w", err)
	}

	l := &redisListener{
		pubsub:  pubsub,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go l.forward(pubsub.Channel())

	logrus.WithField("userID", userID).Debug("Subscribed to friend request changes")
	return l, nil
}

type redisListener struct {
	pubsub    *redis.PubSub
	changes   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func (l *redisListener) forward(in <-chan *redis.Message) {
	defer close(l.changes)
	for {
		select {
		case <-l.done:
			return
		case _, ok := <-in:
			if !ok {
				return
			}
			select {
			case l.changes <- struct{}{}:
			default:
				// a signal is already pending
			}
		}
	}
}

func (l *redisListener) Changes() <-chan struct{} {
	return l.changes
}

func (l *redisListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		err = l.pubsub.Close()
	})
	return err
}
