// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package event

// Topics. Subscribers pass these to Bus.Subscribe; an empty filter
// list receives everything.
const (
	// TopicDownloadProgress carries DownloadProgress payloads, one
	// per perceptible transfer tick during resource loading.
	TopicDownloadProgress = "load/progress"

	// TopicLoadComplete carries a single LoadComplete payload per
	// loader run, published after every request has resolved.
	TopicLoadComplete = "load/complete"

	// TopicLoadFailed carries LoadFailed payloads. Published at most
	// once per loader run: the pipeline stops at the first failure.
	TopicLoadFailed = "load/failed"

	// TopicMachineReady carries MachineReady payloads, published once
	// the machine core has been initialized (and, when requested,
	// restored from a snapshot).
	TopicMachineReady = "machine/ready"
)

// DownloadProgress reports transfer progress for the resource at
// FileIndex within an ordered load of FileCount resources. Loaded and
// Total are byte counts for the current resource; Total is -1 when the
// transfer length is unknown (chunked responses, in-memory sources).
//
// Ordering guarantee: progress for index i is published only after all
// indices below i have fully completed.
type DownloadProgress struct {
	FileIndex int   `json:"file_index"`
	FileCount int   `json:"file_count"`
	Loaded    int64 `json:"loaded"`
	Total     int64 `json:"total"`
}

// LoadComplete signals that every request in a loader run resolved.
// Published exactly once per run, before Run returns.
type LoadComplete struct {
	FileCount int `json:"file_count"`
}

// LoadFailed signals that the boot pipeline stopped. For transfer
// failures, FileIndex is the position of the failing request and
// requests after it were never started. FileIndex is -1 when the
// failure happened outside the transfer loop — configuration
// assembly, snapshot decoding, or machine-core initialization.
type LoadFailed struct {
	Name      string `json:"name"`
	FileIndex int    `json:"file_index"`
	Error     string `json:"error"`
}

// MachineReady signals that the assembled configuration was handed to
// the machine core and the core finished initializing. Restored is
// true when a saved-state snapshot was applied before the signal.
type MachineReady struct {
	Restored bool `json:"restored"`
}
