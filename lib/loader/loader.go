// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/slipway-systems/slipway/lib/clock"
	"github.com/slipway-systems/slipway/lib/event"
	"github.com/slipway-systems/slipway/lib/resource"
)

// DefaultProgressInterval is the minimum spacing between progress
// events for one transfer. Finer ticks are dropped; the final tick for
// each file is always delivered.
const DefaultProgressInterval = 100 * time.Millisecond

// Loader resolves resource requests in order. The zero value works for
// silent, uncached loading; wire the fields for events, caching, and
// custom transports.
type Loader struct {
	// Bus receives progress, failure, and completion events. Nil means
	// no events.
	Bus *event.Bus

	// Clock throttles progress events. Nil means clock.Real().
	Clock clock.Clock

	// Logger receives per-request diagnostics. Nil means
	// slog.Default().
	Logger *slog.Logger

	// Client is used for HTTP sources. Nil means http.DefaultClient.
	Client *http.Client

	// Cache, when set, serves whole-resource HTTP fetches.
	Cache resource.Cache

	// ProgressInterval overrides DefaultProgressInterval.
	ProgressInterval time.Duration
}

// TransportError reports the request that stopped the pipeline: a
// network or local-read failure at Index, with requests Index+1..N
// guaranteed untouched.
type TransportError struct {
	Name  string // failing resource name
	Index int    // position in the request list
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("loading resource %d (%q): %v", e.Index, e.Name, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a *TransportError.
func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// ResultSet holds the loaded buffers, keyed by request name, in load
// order.
type ResultSet struct {
	names   []string
	buffers map[string]resource.Buffer
}

// Len returns the number of loaded resources.
func (r *ResultSet) Len() int { return len(r.names) }

// Names returns the resource names in load order.
func (r *ResultSet) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Buffer returns the loaded buffer for name.
func (r *ResultSet) Buffer(name string) (resource.Buffer, bool) {
	buffer, ok := r.buffers[name]
	return buffer, ok
}

// Run loads every request, in order, one at a time. It returns exactly
// once: a full ResultSet after publishing a completion event, or a
// *TransportError after publishing a failure event for the request
// that stopped the pipeline. Buffer-construction errors (invalid
// mode/source combinations) are returned as-is — they are
// configuration faults, not transport faults, and assembly normally
// rejects them before Run.
func (l *Loader) Run(ctx context.Context, requests []resource.Request) (*ResultSet, error) {
	seen := make(map[string]struct{}, len(requests))
	for _, req := range requests {
		if _, dup := seen[req.Name]; dup {
			return nil, fmt.Errorf("duplicate resource name %q", req.Name)
		}
		seen[req.Name] = struct{}{}
	}

	count := len(requests)
	results := &ResultSet{
		names:   make([]string, 0, count),
		buffers: make(map[string]resource.Buffer, count),
	}

	for index, req := range requests {
		if err := ctx.Err(); err != nil {
			return nil, l.fail(ctx, req.Name, index, err)
		}

		buffer, err := resource.NewBuffer(req, resource.BuildOptions{
			Client:   l.Client,
			Cache:    l.Cache,
			Logger:   l.logger(),
			Progress: l.progressFunc(ctx, index, count),
		})
		if err != nil {
			return nil, err
		}

		l.logger().Debug("loading resource",
			"name", req.Name, "index", index, "count", count,
			"source", req.Source.String())

		if err := buffer.Load(ctx); err != nil {
			return nil, l.fail(ctx, req.Name, index, err)
		}

		// The definitive per-file tick: delivered even when the
		// throttle dropped every transfer tick, and the only tick
		// resident sources get.
		size := buffer.Size()
		l.publish(ctx, event.TopicDownloadProgress, event.DownloadProgress{
			FileIndex: index,
			FileCount: count,
			Loaded:    size,
			Total:     size,
		})

		results.names = append(results.names, req.Name)
		results.buffers[req.Name] = buffer
	}

	l.publish(ctx, event.TopicLoadComplete, event.LoadComplete{FileCount: count})
	return results, nil
}

// fail publishes the failure event and wraps the cause in a
// *TransportError.
func (l *Loader) fail(ctx context.Context, name string, index int, cause error) error {
	transportErr := &TransportError{Name: name, Index: index, Err: cause}
	l.logger().Error("resource load failed",
		"name", name, "index", index, "error", cause)
	l.publish(ctx, event.TopicLoadFailed, event.LoadFailed{
		Name:      name,
		FileIndex: index,
		Error:     cause.Error(),
	})
	return transportErr
}

// progressFunc returns the throttled transfer-progress callback for
// one request, or nil when no bus is wired.
func (l *Loader) progressFunc(ctx context.Context, index, count int) func(loaded, total int64) {
	if l.Bus == nil {
		return nil
	}
	interval := l.ProgressInterval
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	clk := l.clock()

	var last time.Time
	return func(loaded, total int64) {
		now := clk.Now()
		if !last.IsZero() && now.Sub(last) < interval {
			return
		}
		last = now
		l.publish(ctx, event.TopicDownloadProgress, event.DownloadProgress{
			FileIndex: index,
			FileCount: count,
			Loaded:    loaded,
			Total:     total,
		})
	}
}

func (l *Loader) publish(ctx context.Context, topic string, ev any) {
	if err := l.Bus.Publish(ctx, topic, ev); err != nil {
		l.logger().Debug("event publish failed", "topic", topic, "error", err)
	}
}

func (l *Loader) clock() clock.Clock {
	if l.Clock != nil {
		return l.Clock
	}
	return clock.Real()
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
