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
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

// -----------------------------------------------------------------------------
// Event Mapping Tests
// -----------------------------------------------------------------------------

// TestRecordID verifies non-record paths map to empty ids.
func TestRecordID(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/records/r-001.risk", "r-001"},
		{"r-002.risk", "r-002"},
		{"/data/records/.riskfile-123.tmp", ""},
		{"/data/records/manifest.idx", ""},
		{"/data/records/notes.txt", ""},
		{"/data/records/.hidden.risk", ""},
	}
	for _, tt := range tests {
		if got := recordID(tt.path); got != tt.want {
			t.Errorf("recordID(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

// TestConvertOp verifies the fsnotify mapping.
func TestConvertOp(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want ChangeOp
	}{
		{fsnotify.Create, ChangeOpSave},
		{fsnotify.Write, ChangeOpSave},
		{fsnotify.Chmod, ChangeOpSave},
		{fsnotify.Remove, ChangeOpDelete},
		{fsnotify.Rename, ChangeOpDelete},
	}
	for _, tt := range tests {
		if got := convertOp(tt.op); got != tt.want {
			t.Errorf("convertOp(%v) = %v, want %v", tt.op, got, tt.want)
		}
	}
}

// TestDedupeChanges verifies the latest change per id wins, order preserved.
func TestDedupeChanges(t *testing.T) {
	at := time.Now()
	changes := []RecordChange{
		{ID: "r-1", Op: ChangeOpSave, At: at},
		{ID: "r-2", Op: ChangeOpSave, At: at.Add(time.Millisecond)},
		{ID: "r-1", Op: ChangeOpDelete, At: at.Add(2 * time.Millisecond)},
	}

	got := dedupeChanges(changes)
	if len(got) != 2 {
		t.Fatalf("dedupeChanges() returned %d changes, want 2", len(got))
	}
	if got[0].ID != "r-1" || got[0].Op != ChangeOpDelete {
		t.Errorf("got[0] = {%s %v}, want r-1 delete", got[0].ID, got[0].Op)
	}
	if got[1].ID != "r-2" || got[1].Op != ChangeOpSave {
		t.Errorf("got[1] = {%s %v}, want r-2 save", got[1].ID, got[1].Op)
	}
}

// TestChangeOp_String verifies the labels.
func TestChangeOp_String(t *testing.T) {
	if ChangeOpSave.String() != "save" || ChangeOpDelete.String() != "delete" {
		t.Errorf("ChangeOp strings = %q/%q, want save/delete", ChangeOpSave, ChangeOpDelete)
	}
	if ChangeOp(99).String() != "unknown" {
		t.Errorf("ChangeOp(99).String() = %q, want unknown", ChangeOp(99))
	}
}

// -----------------------------------------------------------------------------
// Watch Loop Tests
// -----------------------------------------------------------------------------

// changeCollector accumulates handler batches safely across goroutines.
type changeCollector struct {
	mu      sync.Mutex
	changes []RecordChange
}

func (c *changeCollector) handle(changes []RecordChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, changes...)
}

func (c *changeCollector) snapshot() []RecordChange {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RecordChange, len(c.changes))
	copy(out, c.changes)
	return out
}

// waitFor polls until cond passes or the deadline expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

// TestWatcher_ObservesRecordLifecycle verifies saves and deletes arrive,
// and staging/manifest noise does not.
func TestWatcher_ObservesRecordLifecycle(t *testing.T) {
	dir := t.TempDir()
	collector := &changeCollector{}

	w, err := NewWatcher(dir, collector.handle, &WatcherOptions{
		DebounceWindow: 50 * time.Millisecond,
		Logger:         quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !w.IsWatching() {
		t.Error("IsWatching() = false after Start()")
	}

	// Noise the watcher must filter.
	if err := os.WriteFile(filepath.Join(dir, ".riskfile-abc.tmp"), []byte("partial"), 0o644); err != nil {
		t.Fatalf("WriteFile(temp) error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFileName), []byte(manifestHeader+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile(manifest) error = %v", err)
	}

	recordPath := filepath.Join(dir, "r-watched"+recordFileExt)
	if err := os.WriteFile(recordPath, encodeRecord(testRecord("r-watched")), 0o644); err != nil {
		t.Fatalf("WriteFile(record) error = %v", err)
	}

	sawSave := waitFor(t, 3*time.Second, func() bool {
		for _, change := range collector.snapshot() {
			if change.ID == "r-watched" && change.Op == ChangeOpSave {
				return true
			}
		}
		return false
	})
	if !sawSave {
		t.Fatalf("save for r-watched never observed; changes = %v", collector.snapshot())
	}

	if err := os.Remove(recordPath); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	sawDelete := waitFor(t, 3*time.Second, func() bool {
		for _, change := range collector.snapshot() {
			if change.ID == "r-watched" && change.Op == ChangeOpDelete {
				return true
			}
		}
		return false
	})
	if !sawDelete {
		t.Fatalf("delete for r-watched never observed; changes = %v", collector.snapshot())
	}

	for _, change := range collector.snapshot() {
		if change.ID == "" || change.ID == "manifest" {
			t.Errorf("watcher reported filtered path as change: %+v", change)
		}
	}
}

// TestWatcher_StopIsIdempotent verifies Stop can be called repeatedly.
func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), nil, &WatcherOptions{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	w.Stop()
	w.Stop()
	if w.IsWatching() {
		t.Error("IsWatching() = true after Stop()")
	}
}

// TestWatcher_StartTwice verifies a second Start is a no-op.
func TestWatcher_StartTwice(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), nil, &WatcherOptions{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(ctx); err != nil {
		t.Errorf("Start() twice error = %v, want nil", err)
	}
}
