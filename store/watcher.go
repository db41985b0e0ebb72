// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RecordChange describes one observed change to a record file.
type RecordChange struct {
	// ID is the record id derived from the file name.
	ID string

	// Op is the kind of change.
	Op ChangeOp

	// At is when the change was detected.
	At time.Time
}

// ChangeOp is the kind of record file change.
type ChangeOp int

const (
	// ChangeOpSave indicates a record file was created or replaced.
	ChangeOpSave ChangeOp = iota

	// ChangeOpDelete indicates a record file was removed.
	ChangeOpDelete
)

// String returns the string representation of the operation.
func (op ChangeOp) String() string {
	switch op {
	case ChangeOpSave:
		return "save"
	case ChangeOpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ChangeHandler is called with a debounced batch of record changes.
type ChangeHandler func(changes []RecordChange)

// Watcher observes a records directory and reports record-file changes.
//
// # Description
//
// The watcher is observational only: it never reads or mutates records.
// Staging temp files and the manifest are filtered out, so a handler only
// ever sees completed saves and deletes. Changes are debounced so a burst
// of writes (a batch save, a restore) arrives as one batch.
//
// # Thread Safety
//
// Safe for concurrent use. The handler runs on a single goroutine.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	handler  ChangeHandler
	debounce time.Duration
	logger   *slog.Logger

	changes  chan RecordChange
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// DebounceWindow is how long to wait for more changes before the
	// handler fires. Default: 100ms.
	DebounceWindow time.Duration

	// BufferSize is the capacity of the change buffer. Default: 256.
	BufferSize int

	// Logger receives watch errors. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultWatcherOptions returns sensible defaults.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		DebounceWindow: 100 * time.Millisecond,
		BufferSize:     256,
		Logger:         slog.Default(),
	}
}

// NewWatcher creates a watcher for the given records directory. Call
// Start to begin watching and Stop to release the inotify handle.
func NewWatcher(dir string, handler ChangeHandler, opts *WatcherOptions) (*Watcher, error) {
	if opts == nil {
		defaults := DefaultWatcherOptions()
		opts = &defaults
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = 100 * time.Millisecond
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 256
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		dir:      dir,
		watcher:  fsw,
		handler:  handler,
		debounce: opts.DebounceWindow,
		logger:   opts.Logger,
		changes:  make(chan RecordChange, opts.BufferSize),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. The records directory is flat, so only the one
// directory is registered. Both goroutines exit when Stop is called or
// the context is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)

	return nil
}

// Stop stops the watcher and releases its OS resources.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching returns true while the watcher is active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// recordID extracts the record id from an event path, or "" when the
// path is not a record file (temp staging files, the manifest, subdirs).
func recordID(path string) string {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordFileExt) {
		return ""
	}
	return strings.TrimSuffix(name, recordFileExt)
}

// processEvents converts fsnotify events to RecordChange and feeds the
// debouncer.
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			id := recordID(event.Name)
			if id == "" {
				continue
			}

			change := RecordChange{
				ID: id,
				At: time.Now(),
				Op: convertOp(event.Op),
			}

			select {
			case w.changes <- change:
			default:
				// Buffer full; the debouncer catches up on the next
				// event for this record.
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("record watch error", "dir", w.dir, "error", err)
		}
	}
}

// convertOp maps fsnotify operations onto save/delete. A staged write
// lands as a rename onto the record path, which fsnotify reports as
// Create for the destination, so Create and Write both mean save.
func convertOp(op fsnotify.Op) ChangeOp {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return ChangeOpDelete
	default:
		return ChangeOpSave
	}
}

// debounceLoop batches changes and calls the handler once the window
// expires with no new events.
func (w *Watcher) debounceLoop(ctx context.Context) {
	var batch []RecordChange
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) > 0 {
			deduped := dedupeChanges(batch)
			if len(deduped) > 0 && w.handler != nil {
				w.handler(deduped)
			}
			batch = batch[:0]
		}
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-w.done:
			flush()
			return
		case change := <-w.changes:
			batch = append(batch, change)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			flush()
		}
	}
}

// dedupeChanges keeps the most recent change per record id, preserving
// first-seen order.
func dedupeChanges(changes []RecordChange) []RecordChange {
	seen := make(map[string]int)
	result := make([]RecordChange, 0, len(changes))
	for _, change := range changes {
		if idx, ok := seen[change.ID]; ok {
			result[idx] = change
			continue
		}
		seen[change.ID] = len(result)
		result = append(result, change)
	}
	return result
}
