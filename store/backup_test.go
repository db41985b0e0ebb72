// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Backup manager tests.

# Testing Strategy

These tests verify:
  - Create/verify/restore round-trip on a live store
  - Restore replaces post-backup state wholesale
  - Tampered snapshots fail verification and refuse to restore
  - Listing orders snapshots newest-first
  - Pruning keeps the newest snapshots
*/
package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeFakeBackup lays down a synthetic snapshot with a chosen creation
// time, for listing and pruning tests that need distinct timestamps.
func writeFakeBackup(t *testing.T, path string, createdAt time.Time) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	rec := testRecord("r-" + filepath.Base(path))
	if err := os.WriteFile(filepath.Join(path, rec.ID+recordFileExt), encodeRecord(rec), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	checksum, count, err := backupDigest(path)
	if err != nil {
		t.Fatalf("backupDigest() error = %v", err)
	}

	var b strings.Builder
	writeIntField(&b, "version", backupVersion)
	writeStringField(&b, "created_at", createdAt.UTC().Format(timeLayout))
	writeIntField(&b, "record_count", count)
	writeStringField(&b, "checksum", checksum)
	if err := os.WriteFile(filepath.Join(path, backupMetaName), []byte(b.String()), 0o644); err != nil {
		t.Fatalf("WriteFile(meta) error = %v", err)
	}
}

// -----------------------------------------------------------------------------
// Create and Verify Tests
// -----------------------------------------------------------------------------

// TestBackup_CreateAndVerify verifies a fresh snapshot passes verification.
func TestBackup_CreateAndVerify(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"r-1", "r-2", "r-3"} {
		if err := s.Save(ctx, testRecord(id)); err != nil {
			t.Fatalf("Save(%q) error = %v", id, err)
		}
	}

	target := filepath.Join(t.TempDir(), "snap-1")
	if err := s.CreateBackup(ctx, target); err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	ok, err := s.VerifyBackup(ctx, target)
	if err != nil {
		t.Fatalf("VerifyBackup() error = %v", err)
	}
	if !ok {
		t.Error("VerifyBackup() = false for a fresh snapshot")
	}

	// The snapshot carries every record file plus meta and manifest.
	entries, err := os.ReadDir(target)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	names := make(map[string]bool, len(entries))
	for _, entry := range entries {
		names[entry.Name()] = true
	}
	for _, want := range []string{"r-1" + recordFileExt, "r-2" + recordFileExt, "r-3" + recordFileExt, backupMetaName, manifestFileName} {
		if !names[want] {
			t.Errorf("snapshot missing %q (have %v)", want, names)
		}
	}
}

// TestBackup_Create_EmptyStore verifies a zero-record snapshot is valid.
func TestBackup_Create_EmptyStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	target := filepath.Join(t.TempDir(), "snap-empty")
	if err := s.CreateBackup(ctx, target); err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	ok, err := s.VerifyBackup(ctx, target)
	if err != nil {
		t.Fatalf("VerifyBackup() error = %v", err)
	}
	if !ok {
		t.Error("VerifyBackup() = false for an empty snapshot")
	}
}

// TestBackup_Create_RefusesNonEmptyTarget verifies existing data is never
// clobbered.
func TestBackup_Create_RefusesNonEmptyTarget(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	target := t.TempDir()
	if err := os.WriteFile(filepath.Join(target, "keep.txt"), []byte("precious\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := s.CreateBackup(ctx, target); err == nil {
		t.Error("CreateBackup() into non-empty target error = nil, want error")
	}
}

// TestBackup_Verify_MissingMeta verifies a bare directory is cleanly invalid.
func TestBackup_Verify_MissingMeta(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.VerifyBackup(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("VerifyBackup() error = %v, want nil for missing meta", err)
	}
	if ok {
		t.Error("VerifyBackup() = true for a directory with no meta")
	}
}

// TestBackup_Verify_TamperedRecord verifies content drift fails the checksum.
func TestBackup_Verify_TamperedRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, testRecord("r-1")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	target := filepath.Join(t.TempDir(), "snap")
	if err := s.CreateBackup(ctx, target); err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	tampered := testRecord("r-1")
	tampered.Description = "altered after the fact"
	if err := os.WriteFile(filepath.Join(target, "r-1"+recordFileExt), encodeRecord(tampered), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	ok, err := s.VerifyBackup(ctx, target)
	if err != nil {
		t.Fatalf("VerifyBackup() error = %v", err)
	}
	if ok {
		t.Error("VerifyBackup() = true for a tampered snapshot")
	}
}

// TestBackup_Verify_MalformedMeta verifies unparseable meta is cleanly invalid.
func TestBackup_Verify_MalformedMeta(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, backupMetaName), []byte("not meta\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	ok, err := s.VerifyBackup(context.Background(), dir)
	if err != nil {
		t.Fatalf("VerifyBackup() error = %v, want nil for malformed meta", err)
	}
	if ok {
		t.Error("VerifyBackup() = true for malformed meta")
	}
}

// -----------------------------------------------------------------------------
// Restore Tests
// -----------------------------------------------------------------------------

// TestBackup_Restore_RoundTrip verifies restore returns the store to the
// snapshot state, discarding later writes.
func TestBackup_Restore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, testRecord("r-keep")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	target := filepath.Join(t.TempDir(), "snap")
	if err := s.CreateBackup(ctx, target); err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}

	// Diverge from the snapshot: one new record, one mutation.
	if err := s.Save(ctx, testRecord("r-later")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	mutated := testRecord("r-keep")
	mutated.Description = "changed after snapshot"
	mutated.UpdatedAt = mutated.UpdatedAt.Add(time.Hour)
	if err := s.Save(ctx, mutated); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := s.RestoreBackup(ctx, target); err != nil {
		t.Fatalf("RestoreBackup() error = %v", err)
	}

	if _, err := s.Load(ctx, "r-later"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(r-later) after restore error = %v, want ErrNotFound", err)
	}
	got, err := s.Load(ctx, "r-keep")
	if err != nil {
		t.Fatalf("Load(r-keep) error = %v", err)
	}
	if got.Description != testRecord("r-keep").Description {
		t.Errorf("Description = %q, want snapshot value", got.Description)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() after restore = %d, want 1", n)
	}
}

// TestBackup_Restore_RefusesTamperedSnapshot verifies a failed verification
// blocks the restore and leaves the store untouched.
func TestBackup_Restore_RefusesTamperedSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, testRecord("r-live")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	target := filepath.Join(t.TempDir(), "snap")
	if err := s.CreateBackup(ctx, target); err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(target, "r-live"+recordFileExt), []byte("junk\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	err := s.RestoreBackup(ctx, target)
	if !errors.Is(err, ErrBackupInvalid) {
		t.Fatalf("RestoreBackup() error = %v, want ErrBackupInvalid", err)
	}

	// The live store still reads.
	if _, err := s.Load(ctx, "r-live"); err != nil {
		t.Errorf("Load() after refused restore error = %v", err)
	}
}

// TestBackup_Restore_MissingSnapshot verifies a nonexistent path refuses.
func TestBackup_Restore_MissingSnapshot(t *testing.T) {
	s := newTestStore(t)
	err := s.RestoreBackup(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrBackupInvalid) {
		t.Errorf("RestoreBackup() error = %v, want ErrBackupInvalid", err)
	}
}

// -----------------------------------------------------------------------------
// Listing and Pruning Tests
// -----------------------------------------------------------------------------

// TestBackup_ListBackups_NewestFirst verifies ordering and metadata.
func TestBackup_ListBackups_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	writeFakeBackup(t, filepath.Join(dir, "snap-old"), base)
	writeFakeBackup(t, filepath.Join(dir, "snap-mid"), base.Add(time.Hour))
	writeFakeBackup(t, filepath.Join(dir, "snap-new"), base.Add(2*time.Hour))

	infos, err := s.ListBackups(context.Background(), dir)
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("ListBackups() returned %d snapshots, want 3", len(infos))
	}

	wantOrder := []string{"snap-new", "snap-mid", "snap-old"}
	for i, want := range wantOrder {
		if got := filepath.Base(infos[i].Path); got != want {
			t.Errorf("infos[%d] = %q, want %q", i, got, want)
		}
	}
	for _, info := range infos {
		if info.RecordCount != 1 {
			t.Errorf("RecordCount for %s = %d, want 1", info.Path, info.RecordCount)
		}
		if info.SizeBytes <= 0 {
			t.Errorf("SizeBytes for %s = %d, want > 0", info.Path, info.SizeBytes)
		}
	}
}

// TestBackup_ListBackups_SkipsForeignDirs verifies non-snapshot entries are
// ignored.
func TestBackup_ListBackups_SkipsForeignDirs(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()

	writeFakeBackup(t, filepath.Join(dir, "snap"), time.Now())
	if err := os.MkdirAll(filepath.Join(dir, "not-a-backup"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "loose.txt"), []byte("x\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	infos, err := s.ListBackups(context.Background(), dir)
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if len(infos) != 1 {
		t.Errorf("ListBackups() returned %d snapshots, want 1", len(infos))
	}
}

// TestBackup_ListBackups_MissingDir verifies a nonexistent directory lists
// empty.
func TestBackup_ListBackups_MissingDir(t *testing.T) {
	s := newTestStore(t)
	infos, err := s.ListBackups(context.Background(), filepath.Join(t.TempDir(), "none"))
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("ListBackups() returned %d snapshots, want 0", len(infos))
	}
}

// TestBackup_PruneBackups verifies the oldest snapshots go first.
func TestBackup_PruneBackups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	writeFakeBackup(t, filepath.Join(dir, "snap-old"), base)
	writeFakeBackup(t, filepath.Join(dir, "snap-mid"), base.Add(time.Hour))
	writeFakeBackup(t, filepath.Join(dir, "snap-new"), base.Add(2*time.Hour))

	removed, err := s.PruneBackups(ctx, dir, 1)
	if err != nil {
		t.Fatalf("PruneBackups() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("PruneBackups() removed = %d, want 2", removed)
	}

	infos, err := s.ListBackups(ctx, dir)
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if len(infos) != 1 || filepath.Base(infos[0].Path) != "snap-new" {
		t.Errorf("surviving snapshots = %v, want only snap-new", infos)
	}
}

// TestBackup_PruneBackups_KeepAll verifies no-op when under the limit.
func TestBackup_PruneBackups_KeepAll(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	writeFakeBackup(t, filepath.Join(dir, "snap"), time.Now())

	removed, err := s.PruneBackups(context.Background(), dir, 5)
	if err != nil {
		t.Fatalf("PruneBackups() error = %v", err)
	}
	if removed != 0 {
		t.Errorf("PruneBackups() removed = %d, want 0", removed)
	}
}

// TestBackup_PruneBackups_NegativeKeep verifies the argument guard.
func TestBackup_PruneBackups_NegativeKeep(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.PruneBackups(context.Background(), t.TempDir(), -1); err == nil {
		t.Error("PruneBackups(keep=-1) error = nil, want error")
	}
}
