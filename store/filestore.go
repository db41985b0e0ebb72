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
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/AleutianAI/riskfile/risk"
)

// On-disk layout constants.
const (
	recordFileExt    = ".risk"
	manifestFileName = "manifest.idx"
	backupMetaName   = "backup.meta"
	dirPerm          = 0o755
)

// FileRecordStore implements every storage capability on a flat records
// directory: one text file per record named `<id>.risk`, plus a manifest
// file enumerating known ids.
//
// # Description
//
// Record writes are whole-file replacements staged through a temp file in
// the records directory and renamed into place, so an interrupted write
// leaves the previous complete file or no file, never a truncated one.
// The manifest is a best-effort optimization: LoadAll enumerates the
// directory as the source of truth and rewrites the manifest whenever the
// two disagree, so a stale or missing manifest never hides a record.
//
// # Thread Safety
//
// Safe for concurrent use within one process: an RWMutex guards the
// in-memory manifest. The store takes no file locks; one writer process
// per records directory is the caller's responsibility, and calls writing
// the same record id must be serialized by the caller.
type FileRecordStore struct {
	dir    string
	logger *slog.Logger

	mu       sync.RWMutex
	manifest map[string]struct{}
}

// Option configures a FileRecordStore.
type Option func(*FileRecordStore)

// WithLogger sets the structured logger. Nil loggers are ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(s *FileRecordStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileRecordStore opens (creating if needed) the records directory and
// loads the manifest, rebuilding it from the directory when it is missing
// or unreadable.
func NewFileRecordStore(dir string, opts ...Option) (*FileRecordStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("records directory must not be empty")
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create records directory %s: %w", dir, err)
	}

	s := &FileRecordStore{
		dir:      dir,
		logger:   slog.Default(),
		manifest: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadManifestLocked(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("manifest unreadable, rebuilding from directory",
				"dir", dir, "error", err)
		}
		if err := s.rebuildManifestLocked(); err != nil {
			s.logger.Warn("manifest rebuild failed", "dir", dir, "error", err)
		}
	}
	return s, nil
}

// Dir returns the records directory.
func (s *FileRecordStore) Dir() string {
	return s.dir
}

// ----------------------------------------------------------------------------
// Reader
// ----------------------------------------------------------------------------

// Load reads and decodes one record by id. Unknown ids return ErrNotFound;
// undecodable files return ErrCorruptRecord.
func (s *FileRecordStore) Load(ctx context.Context, id string) (*risk.Record, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	path := s.recordPath(id)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("record %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read record file %s: %w", path, err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("record file %s: %w", path, err)
	}
	return rec, nil
}

// LoadAll reads every record in the directory, in unspecified order.
// Unreadable or corrupt files are logged and skipped so one damaged record
// never hides the rest. The manifest is reconciled against the directory
// as a side effect.
func (s *FileRecordStore) LoadAll(ctx context.Context) ([]*risk.Record, error) {
	ids, err := s.listRecordIDs()
	if err != nil {
		return nil, err
	}
	s.reconcileManifest(ids)

	records := make([]*risk.Record, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := s.Load(ctx, id)
		if err != nil {
			s.logger.Warn("skipping unreadable record", "id", id, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Exists reports whether a record file exists for the id. It checks the
// directory, not the manifest, so it never trusts a stale index.
func (s *FileRecordStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}
	path := s.recordPath(id)
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat record file %s: %w", path, err)
	}
	return true, nil
}

// Count returns the number of known records from the manifest. The
// manifest tracks every in-process save and delete; LoadAll reconciles it
// after out-of-band directory changes, which are unsupported for writes.
func (s *FileRecordStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.manifest), nil
}

// ----------------------------------------------------------------------------
// Writer
// ----------------------------------------------------------------------------

// Save validates and persists one record, creating or overwriting its
// file, then updates the manifest. Validation failures leave the directory
// untouched. A manifest write failure after a successful record write is
// logged, not surfaced: the record file is the source of truth.
func (s *FileRecordStore) Save(ctx context.Context, rec *risk.Record) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", risk.ErrValidation)
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	if err := validateID(rec.ID); err != nil {
		return err
	}

	path := s.recordPath(rec.ID)
	if err := writeFileAtomic(s.dir, path, encodeRecord(rec)); err != nil {
		return fmt.Errorf("write record file %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifest[rec.ID] = struct{}{}
	if err := s.writeManifestLocked(); err != nil {
		s.logger.Warn("manifest update failed after save", "id", rec.ID, "error", err)
	}
	return nil
}

// Delete removes the record file and its manifest entry. The file removal
// is the authoritative deletion; if the manifest update then fails, the
// stale entry is logged and healed on the next LoadAll reconciliation, so
// no state leaves a record readable but unindexed or the reverse.
func (s *FileRecordStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	path := s.recordPath(id)
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("record %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete record file %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.manifest, id)
	if err := s.writeManifestLocked(); err != nil {
		s.logger.Warn("manifest update failed after delete", "id", id, "error", err)
	}
	return nil
}

// SaveBatch saves records sequentially and reports a per-record outcome.
// Best-effort: one record's failure never blocks the rest, and there is no
// rollback of earlier successes. Context cancellation fails the remaining
// records individually.
func (s *FileRecordStore) SaveBatch(ctx context.Context, recs []*risk.Record) []BatchResult {
	results := make([]BatchResult, 0, len(recs))
	for _, rec := range recs {
		id := ""
		if rec != nil {
			id = rec.ID
		}
		if err := ctx.Err(); err != nil {
			results = append(results, BatchResult{ID: id, Err: err})
			continue
		}
		results = append(results, BatchResult{ID: id, Err: s.Save(ctx, rec)})
	}
	return results
}

// ----------------------------------------------------------------------------
// Indexer
// ----------------------------------------------------------------------------

// UpdateIndexEntry ensures the record's id is present in the manifest.
// Save already maintains the manifest, so for this store the call is an
// idempotent repair hook; it exists so callers composing capabilities can
// treat any Indexer uniformly.
func (s *FileRecordStore) UpdateIndexEntry(ctx context.Context, rec *risk.Record) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", risk.ErrValidation)
	}
	if err := validateID(rec.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.manifest[rec.ID]; ok {
		return nil
	}
	s.manifest[rec.ID] = struct{}{}
	return s.writeManifestLocked()
}

// RemoveIndexEntry ensures the id is absent from the manifest. Idempotent;
// see UpdateIndexEntry.
func (s *FileRecordStore) RemoveIndexEntry(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.manifest[id]; !ok {
		return nil
	}
	delete(s.manifest, id)
	return s.writeManifestLocked()
}

// ----------------------------------------------------------------------------
// Searcher
// ----------------------------------------------------------------------------

// Search returns the records matching every present predicate, via a full
// scan. Zero matches is an empty slice, not an error.
func (s *FileRecordStore) Search(ctx context.Context, c Criteria) ([]*risk.Record, error) {
	records, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	matches := make([]*risk.Record, 0, len(records))
	for _, rec := range records {
		if c.Matches(rec) {
			matches = append(matches, rec)
		}
	}
	return matches, nil
}

// FindBySeverity returns records whose severity equals sev.
func (s *FileRecordStore) FindBySeverity(ctx context.Context, sev risk.Severity) ([]*risk.Record, error) {
	return s.Search(ctx, Criteria{Severity: &sev})
}

// FindByStatus returns records whose lifecycle status equals status.
func (s *FileRecordStore) FindByStatus(ctx context.Context, status risk.Status) ([]*risk.Record, error) {
	return s.Search(ctx, Criteria{Status: &status})
}

// FindOverdue returns open records at or above the high-priority RPN
// threshold. The record model has no due date; the threshold is a known
// proxy for "needs review", not a schedule.
func (s *FileRecordStore) FindOverdue(ctx context.Context) ([]*risk.Record, error) {
	open, err := s.FindByStatus(ctx, risk.StatusOpen)
	if err != nil {
		return nil, err
	}
	overdue := make([]*risk.Record, 0, len(open))
	for _, rec := range open {
		if rec.RPN >= risk.HighPriorityRPN {
			overdue = append(overdue, rec)
		}
	}
	return overdue, nil
}

// ----------------------------------------------------------------------------
// Internals
// ----------------------------------------------------------------------------

func (s *FileRecordStore) recordPath(id string) string {
	return filepath.Join(s.dir, id+recordFileExt)
}

// validateID rejects ids that cannot safely name a file in the records
// directory: empty, dot-prefixed (reserved for staging files), relative
// path elements, or anything containing a separator.
func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if strings.HasPrefix(id, ".") || strings.ContainsAny(id, `/\`) || id != filepath.Base(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// writeFileAtomic stages data in a temp file inside dir, syncs it, and
// renames it over path. The temp file is removed on any failure, so the
// destination only ever holds the old complete content or the new.
func writeFileAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".riskfile-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	success = true
	return nil
}

// Compile-time capability checks.
var (
	_ Reader        = (*FileRecordStore)(nil)
	_ Writer        = (*FileRecordStore)(nil)
	_ Indexer       = (*FileRecordStore)(nil)
	_ Searcher      = (*FileRecordStore)(nil)
	_ BackupManager = (*FileRecordStore)(nil)
	_ Store         = (*FileRecordStore)(nil)
)
