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
	"time"

	"github.com/AleutianAI/riskfile/risk"
)

// BatchResult reports the outcome for one record of a batch write.
type BatchResult struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
}

// BackupInfo describes one backup snapshot on disk.
type BackupInfo struct {
	Path        string    `json:"path"`
	CreatedAt   time.Time `json:"created_at"`
	RecordCount int       `json:"record_count"`
	SizeBytes   int64     `json:"size_bytes"`
}

// Reader provides read access to the record set.
//
// LoadAll returns records in unspecified order; callers must not depend on
// ordering.
type Reader interface {
	Load(ctx context.Context, id string) (*risk.Record, error)
	LoadAll(ctx context.Context) ([]*risk.Record, error)
	Exists(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// Writer provides write access to the record set.
//
// Save creates or overwrites, keyed by record id. SaveBatch is best-effort:
// it reports a per-record outcome and never rolls back earlier successes
// when a later record fails.
type Writer interface {
	Save(ctx context.Context, rec *risk.Record) error
	Delete(ctx context.Context, id string) error
	SaveBatch(ctx context.Context, recs []*risk.Record) []BatchResult
}

// Indexer maintains a secondary lookup structure alongside the primary
// store. Implementations whose Reader scans the primary store directly may
// make both methods no-ops; the interface exists so an index can be added
// without changing callers.
type Indexer interface {
	UpdateIndexEntry(ctx context.Context, rec *risk.Record) error
	RemoveIndexEntry(ctx context.Context, id string) error
}

// Searcher filters the record set by a conjunction of optional predicates.
// Zero matches is a valid empty result, never an error.
type Searcher interface {
	Search(ctx context.Context, c Criteria) ([]*risk.Record, error)
	FindBySeverity(ctx context.Context, sev risk.Severity) ([]*risk.Record, error)
	FindByStatus(ctx context.Context, status risk.Status) ([]*risk.Record, error)
	FindOverdue(ctx context.Context) ([]*risk.Record, error)
}

// BackupManager creates, verifies, and restores full-store snapshots.
//
// RestoreBackup must verify the snapshot first and refuse to proceed when
// verification fails. Backups are full snapshots, never incremental.
type BackupManager interface {
	CreateBackup(ctx context.Context, targetPath string) error
	RestoreBackup(ctx context.Context, sourcePath string) error
	VerifyBackup(ctx context.Context, path string) (bool, error)
	ListBackups(ctx context.Context, dir string) ([]BackupInfo, error)
	PruneBackups(ctx context.Context, dir string, keep int) (int, error)
}

// Store is the full capability set. Concrete stores implement it;
// consumers keep depending on the narrowest capability they need.
type Store interface {
	Reader
	Writer
	Indexer
	Searcher
	BackupManager
}
