// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists risk records. It defines the segregated storage
// capabilities (Reader, Writer, Indexer, Searcher, BackupManager) and the
// FileRecordStore, which implements all five on a flat directory of
// human-readable record files plus a best-effort manifest.
//
// # Capability Segregation
//
// The five interfaces are deliberately independent: a caller that only
// aggregates statistics depends on Reader alone, and a test exercises a
// capability through a narrow stand-in instead of a full store. Nothing in
// this package or its callers requires one object to implement more than
// the capability it consumes.
//
// # Concurrency
//
// One writer process per records directory; the package takes no file
// locks. Within a process FileRecordStore serializes its own manifest
// bookkeeping, but callers sharing a store must serialize writes to the
// same record id themselves.
package store

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/riskfile/risk"
)

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when no record exists for the requested id.
	ErrNotFound = errors.New("record not found")

	// ErrCorruptRecord is returned when a record file exists but cannot be
	// decoded. LoadAll logs and skips such files instead of failing the
	// whole listing.
	ErrCorruptRecord = errors.New("corrupt record file")

	// ErrBackupInvalid is returned when a backup fails verification.
	// Restore refuses to proceed past this error.
	ErrBackupInvalid = errors.New("backup failed verification")

	// ErrInvalidID is returned for ids that cannot name a record file:
	// empty, path-like, or containing separators. It wraps
	// risk.ErrValidation.
	ErrInvalidID = fmt.Errorf("%w: invalid record id", risk.ErrValidation)
)
