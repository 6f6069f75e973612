package realtime

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/game-schedule/schedule-backend/internal/logging"
)

const channelPrefix = "schedule:events:"

// ChannelFor returns the pub/sub channel carrying events of projectID.
func ChannelFor(projectID string) string {
	return channelPrefix + projectID
}

// RedisFeed fans change events out over Redis pub/sub, one channel per project.
type RedisFeed struct {
	client          *redis.Client
	eventsPerSecond int
	log             *logging.Logger
}

func NewRedisFeed(client *redis.Client, eventsPerSecond int) *RedisFeed {
	return &RedisFeed{
		client:          client,
		eventsPerSecond: eventsPerSecond,
		log:             logging.New("realtime_redis"),
	}
}

func (f *RedisFeed) Publish(ctx context.Context, ev ChangeEvent) error {
	data, err := encodeEvent(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err := f.client.Publish(ctx, ChannelFor(ev.ProjectID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

// Subscribe listens on the project's channel until the subscription is
// cancelled. The subscribe is confirmed before returning.
func (f *RedisFeed) Subscribe(ctx context.Context, projectID string, h Handler) (*Subscription, error) {
	ps := f.client.Subscribe(ctx, ChannelFor(projectID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", ChannelFor(projectID), err)
	}

	events := make(chan ChangeEvent, 16)
	msgs := ps.Channel()
	go func() {
		defer close(events)
		for msg := range msgs {
			ev, err := decodeEvent(msg.Payload)
			if err != nil {
				f.log.LogErrorf("subscribe", "dropping malformed event on %s: %v", msg.Channel, err)
				continue
			}
			if ev.ProjectID != projectID {
				continue
			}
			offer(events, ev)
		}
	}()

	sub, _ := newSubscription(projectID, f.eventsPerSecond, events, h, ps.Close)
	f.log.LogInfof("subscribe", "subscribed to project %s", projectID)
	return sub, nil
}
