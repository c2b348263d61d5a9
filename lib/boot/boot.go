// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package boot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/slipway-systems/slipway/lib/event"
	"github.com/slipway-systems/slipway/lib/guestfs"
	"github.com/slipway-systems/slipway/lib/loader"
	"github.com/slipway-systems/slipway/lib/resource"
	"github.com/slipway-systems/slipway/lib/snapshot"
)

// Deps are the collaborators the boot pipeline drives. All fields are
// optional: a nil Loader is replaced by a zero loader publishing on
// Bus, a nil Bus discards events, a nil FS only fails if the
// filesystem slot is actually used, and a nil Logger falls back to
// slog.Default().
type Deps struct {
	// Loader resolves the plan's requests. Leave nil to use a plain
	// sequential loader wired to Bus and Logger.
	Loader *loader.Loader

	// FS receives the guest filesystem manifest when the fs slot is
	// present.
	FS guestfs.FileSystem

	// Bus carries progress, failure, and lifecycle events.
	Bus *event.Bus

	// Logger receives structured log output.
	Logger *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Boot runs the full pipeline: assemble the plan, load its resources
// in order, freeze the configuration, initialize the machine core, and
// bring the machine to ready. When the plan carries a saved state it
// is decoded and restored immediately after Init; when it carries a
// filesystem manifest the guest tree is loaded before the ready
// signal. With Options.Autostart, Boot then runs the core and blocks
// until it returns.
//
// Every failure path publishes a load-failure event on the bus and
// returns a typed error: *ViolationError for configuration mistakes
// (the core is never initialized on these), *loader.TransportError for
// transfer failures. The returned Config is non-nil only on success.
func Boot(ctx context.Context, core Core, deps Deps, opts Options) (*Config, error) {
	logger := deps.logger()

	plan, err := Assemble(opts)
	if err != nil {
		publishFailure(ctx, deps, "", err)
		return nil, err
	}
	if opts.Filesystem != nil && deps.FS == nil {
		err := &ViolationError{Slot: SlotFilesystem, Err: errors.New("no filesystem collaborator supplied")}
		publishFailure(ctx, deps, SlotFilesystem, err)
		return nil, err
	}
	logger.Debug("boot plan assembled",
		"requests", len(plan.Requests),
		"memory_size", plan.MemorySize,
		"vga_memory_size", plan.VGAMemorySize,
		"boot_order", fmt.Sprintf("%#x", plan.BootOrder),
	)

	ld := deps.Loader
	if ld == nil {
		ld = &loader.Loader{Bus: deps.Bus, Logger: deps.Logger}
	}
	results, err := ld.Run(ctx, plan.Requests)
	if err != nil {
		// The loader already published the failure event for
		// transport errors; everything else is published here.
		if !loader.IsTransport(err) {
			publishFailure(ctx, deps, "", err)
		}
		return nil, fmt.Errorf("loading boot resources: %w", err)
	}

	config, err := plan.Finalize(results)
	if err != nil {
		publishFailure(ctx, deps, "", err)
		return nil, err
	}

	if err := core.Init(ctx, config); err != nil {
		publishFailure(ctx, deps, "", err)
		return nil, fmt.Errorf("initializing machine core: %w", err)
	}
	logger.Info("machine core initialized",
		"memory_size", config.MemorySize,
		"resources", len(plan.Requests),
	)

	restored := false
	if config.InitialState != nil {
		payload, info, err := snapshot.Decode(config.InitialState.Bytes(), snapshot.Options{
			Identities: opts.SnapshotIdentities,
		})
		if err != nil {
			publishFailure(ctx, deps, SlotInitialState, err)
			return nil, fmt.Errorf("decoding saved state: %w", err)
		}
		if err := core.RestoreState(ctx, payload); err != nil {
			publishFailure(ctx, deps, SlotInitialState, err)
			return nil, fmt.Errorf("restoring saved state: %w", err)
		}
		restored = true
		logger.Info("saved state restored",
			"size", info.Size,
			"encrypted", info.Encrypted,
			"compressed", info.Compressed,
		)
	}

	if config.Filesystem != nil {
		manifest, err := bufferBytes(ctx, config.Filesystem)
		if err != nil {
			publishFailure(ctx, deps, SlotFilesystem, err)
			return nil, fmt.Errorf("reading filesystem manifest: %w", err)
		}
		if err := deps.FS.LoadManifest(manifest); err != nil {
			publishFailure(ctx, deps, SlotFilesystem, err)
			return nil, fmt.Errorf("loading filesystem manifest: %w", err)
		}
		logger.Info("guest filesystem loaded", "manifest_size", len(manifest))
	}

	publish(ctx, deps, event.TopicMachineReady, event.MachineReady{Restored: restored})
	logger.Info("machine ready", "restored", restored)

	if opts.Autostart {
		if err := core.Run(ctx); err != nil {
			return config, fmt.Errorf("running machine core: %w", err)
		}
	}
	return config, nil
}

// bufferBytes returns a buffer's full content, fetching through ReadAt
// when the buffer is not resident (a lazily loaded manifest).
func bufferBytes(ctx context.Context, buffer resource.Buffer) ([]byte, error) {
	if data := buffer.Bytes(); data != nil {
		return data, nil
	}
	size := buffer.Size()
	if size < 0 {
		return nil, errors.New("buffer size unknown")
	}
	data := make([]byte, size)
	if _, err := buffer.ReadAt(ctx, data, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return data, nil
}

func publish(ctx context.Context, deps Deps, topic string, payload any) {
	if err := deps.Bus.Publish(ctx, topic, payload); err != nil {
		deps.logger().Debug("publishing event failed", "topic", topic, "error", err)
	}
}

// publishFailure emits the fatal boot event. FileIndex -1 marks a
// failure outside the transfer loop.
func publishFailure(ctx context.Context, deps Deps, slot string, err error) {
	deps.logger().Error("boot failed", "slot", slot, "error", err)
	publish(ctx, deps, event.TopicLoadFailed, event.LoadFailed{
		Name:      slot,
		FileIndex: -1,
		Error:     err.Error(),
	})
}
