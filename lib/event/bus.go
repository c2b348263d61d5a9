// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	goevents "github.com/docker/go-events"

	"github.com/slipway-systems/slipway/lib/clock"
)

// Envelope wraps a published event with its topic and publication
// time. Subscribers receive envelopes; the Event field holds one of
// the payload types defined in this package.
type Envelope struct {
	Timestamp time.Time `json:"timestamp"`
	Topic     string    `json:"topic"`
	Event     any       `json:"event"`
}

// Bus broadcasts envelopes to subscribers. The zero value is not
// usable; construct with NewBus. A Bus lives for the whole session —
// subscriptions end when their contexts are cancelled.
type Bus struct {
	broadcaster *goevents.Broadcaster

	// Clock stamps envelopes. Nil means clock.Real().
	Clock clock.Clock
}

// NewBus creates an empty bus with no subscribers.
func NewBus() *Bus {
	return &Bus{broadcaster: goevents.NewBroadcaster()}
}

func (b *Bus) now() time.Time {
	if b.Clock != nil {
		return b.Clock.Now()
	}
	return time.Now()
}

// Publish sends ev to every subscriber whose filter matches topic.
// Publishing to a bus with no subscribers is cheap and always
// succeeds. A nil Bus accepts and discards everything, so producers
// do not need to guard their publish sites.
func (b *Bus) Publish(ctx context.Context, topic string, ev any) error {
	if b == nil {
		return nil
	}
	if err := validateTopic(topic); err != nil {
		return err
	}
	envelope := &Envelope{
		Timestamp: b.now(),
		Topic:     topic,
		Event:     ev,
	}
	return b.broadcaster.Write(envelope)
}

// Subscribe returns a channel of envelopes matching the given topic
// filters and a channel that reports the subscription's terminal
// error, if any. With no filters, every envelope is delivered.
//
// Each filter is either a full topic ("load/progress") or a prefix
// ending in "/" ("load/") that matches every topic underneath it.
//
// The subscription ends when ctx is cancelled; both channels are then
// drained of their backing resources. Each subscriber has its own
// unbounded queue, so a slow consumer delays only itself.
func (b *Bus) Subscribe(ctx context.Context, filters ...string) (<-chan *Envelope, <-chan error) {
	var (
		evch    = make(chan *Envelope)
		errq    = make(chan error, 1)
		channel = goevents.NewChannel(0)
		queue   = goevents.NewQueue(channel)
	)
	var dst goevents.Sink = queue

	closeAll := func() {
		channel.Close()
		queue.Close()
		b.broadcaster.Remove(dst)
		close(errq)
	}

	for _, filter := range filters {
		if err := validateTopic(strings.TrimSuffix(filter, "/")); err != nil {
			errq <- fmt.Errorf("invalid subscription filter %q: %w", filter, err)
			channel.Close()
			queue.Close()
			close(errq)
			return evch, errq
		}
	}

	if len(filters) > 0 {
		dst = goevents.NewFilter(queue, goevents.MatcherFunc(func(raw goevents.Event) bool {
			envelope, ok := raw.(*Envelope)
			if !ok {
				return false
			}
			return matchTopic(filters, envelope.Topic)
		}))
	}

	b.broadcaster.Add(dst)

	go func() {
		defer closeAll()

		for {
			select {
			case raw := <-channel.C:
				envelope, ok := raw.(*Envelope)
				if !ok {
					errq <- fmt.Errorf("non-envelope event on bus: %#v", raw)
					return
				}
				select {
				case evch <- envelope:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				if cerr := ctx.Err(); cerr != context.Canceled {
					errq <- cerr
				}
				return
			}
		}
	}()

	return evch, errq
}

// matchTopic reports whether topic matches any of the filters. A
// filter ending in "/" matches by prefix; any other filter matches
// exactly.
func matchTopic(filters []string, topic string) bool {
	for _, filter := range filters {
		if strings.HasSuffix(filter, "/") {
			if strings.HasPrefix(topic, filter) {
				return true
			}
			continue
		}
		if topic == filter {
			return true
		}
	}
	return false
}

// validateTopic rejects topics that would be unmatchable or ambiguous:
// empty strings, whitespace, or empty path segments.
func validateTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("topic must not be empty: %w", errdefs.ErrInvalidArgument)
	}
	for _, segment := range strings.Split(topic, "/") {
		if segment == "" {
			return fmt.Errorf("topic %q has an empty segment: %w", topic, errdefs.ErrInvalidArgument)
		}
		if strings.ContainsAny(segment, " \t\n") {
			return fmt.Errorf("topic %q contains whitespace: %w", topic, errdefs.ErrInvalidArgument)
		}
	}
	return nil
}
