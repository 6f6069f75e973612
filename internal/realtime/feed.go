// Package realtime carries project change events between devices. Writers
// publish an event per changed table; subscribers receive the events for one
// project through a cancellable Subscription.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Table names a remote table an event refers to.
type Table string

const (
	TableProjects Table = "projects"
	TableTasks    Table = "tasks"
)

// Op is the kind of row change.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// ChangeEvent announces that rows of Table changed for ProjectID.
type ChangeEvent struct {
	Table     Table     `json:"table"`
	Op        Op        `json:"op"`
	ProjectID string    `json:"project_id"`
	At        time.Time `json:"at"`
}

// Handler receives events for a subscribed project.
type Handler func(ChangeEvent)

// Feed publishes and delivers change events.
type Feed interface {
	Publish(ctx context.Context, ev ChangeEvent) error
	Subscribe(ctx context.Context, projectID string, h Handler) (*Subscription, error)
}

// DefaultEventsPerSecond is the dispatch rate when none is configured.
const DefaultEventsPerSecond = 10

// Subscription is the handle of one live listener.
type Subscription struct {
	projectID string
	cancel    context.CancelFunc
	closeFn   func() error
	done      chan struct{}
	once      sync.Once
}

// ProjectID is the project the subscription listens to.
func (s *Subscription) ProjectID() string { return s.projectID }

// Done is closed once the dispatch goroutine has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Cancel stops delivery and waits for the dispatcher to exit. It must not be
// called from inside the subscription's own Handler.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.cancel()
		if s.closeFn != nil {
			_ = s.closeFn()
		}
		<-s.done
	})
}

// newSubscription starts the dispatcher for events and returns its handle.
func newSubscription(projectID string, eventsPerSecond int, events <-chan ChangeEvent, h Handler, closeFn func() error) (*Subscription, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscription{
		projectID: projectID,
		cancel:    cancel,
		closeFn:   closeFn,
		done:      make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		dispatch(ctx, events, newLimiter(eventsPerSecond), h)
	}()
	return s, ctx
}

func newLimiter(eventsPerSecond int) *rate.Limiter {
	if eventsPerSecond <= 0 {
		eventsPerSecond = DefaultEventsPerSecond
	}
	return rate.NewLimiter(rate.Limit(eventsPerSecond), eventsPerSecond)
}

// dispatch delivers events to h at most at the limiter's rate. Events queued
// while waiting are coalesced into the latest one since every delivery
// triggers a full reload anyway.
func dispatch(ctx context.Context, events <-chan ChangeEvent, limiter *rate.Limiter, h Handler) {
	for {
		var ev ChangeEvent
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			ev = e
		}

		if err := limiter.Wait(ctx); err != nil {
			return
		}

	drain:
		for {
			select {
			case e, ok := <-events:
				if !ok {
					break drain
				}
				ev = e
			default:
				break drain
			}
		}

		if ctx.Err() != nil {
			return
		}
		h(ev)
	}
}

// offer hands ev to the dispatcher without blocking the reader.
func offer(events chan<- ChangeEvent, ev ChangeEvent) {
	select {
	case events <- ev:
	default:
	}
}

func decodeEvent(payload string) (ChangeEvent, error) {
	var ev ChangeEvent
	err := json.Unmarshal([]byte(payload), &ev)
	return ev, err
}

func encodeEvent(ev ChangeEvent) ([]byte, error) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return json.Marshal(ev)
}
