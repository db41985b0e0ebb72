// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badgerindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/riskfile/risk"
	"github.com/AleutianAI/riskfile/store"
)

// Key layout. Forward keys carry no value; the reverse entry records the
// attributes a record was last indexed under so updates can clear them.
//
//	sev/<severity>/<id>    -> ""
//	level/<level>/<id>     -> ""
//	status/<status>/<id>   -> ""
//	rec/<id>               -> "<severity>|<level>|<status>"
const (
	prefixSeverity = "sev/"
	prefixLevel    = "level/"
	prefixStatus   = "status/"
	prefixReverse  = "rec/"
)

// Index is a BadgerDB-backed store.Indexer with attribute lookups.
//
// # Thread Safety
//
// Safe for concurrent use; Badger transactions provide isolation.
type Index struct {
	db *badger.DB
}

// Open opens (creating if needed) the index database.
func Open(cfg Config) (*Index, error) {
	db, err := open(cfg)
	if err != nil {
		return nil, err
	}
	return &Index{db: db}, nil
}

// Close releases the index database.
func (i *Index) Close() error {
	return i.db.Close()
}

// UpdateIndexEntry (re)indexes one record: stale attribute keys from the
// previous version are cleared and current ones written, all in one
// transaction.
func (i *Index) UpdateIndexEntry(ctx context.Context, rec *risk.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: nil record", risk.ErrValidation)
	}
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("%w: empty", store.ErrInvalidID)
	}

	return i.db.Update(func(txn *badger.Txn) error {
		if err := clearDerivedKeys(txn, rec.ID); err != nil {
			return err
		}
		for _, key := range derivedKeys(rec.ID, rec.Severity, rec.Level, rec.Status) {
			if err := txn.Set(key, nil); err != nil {
				return err
			}
		}
		return txn.Set(reverseKey(rec.ID), []byte(reverseValue(rec.Severity, rec.Level, rec.Status)))
	})
}

// RemoveIndexEntry drops every key for the id. Unknown ids are a no-op.
func (i *Index) RemoveIndexEntry(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty", store.ErrInvalidID)
	}

	return i.db.Update(func(txn *badger.Txn) error {
		if err := clearDerivedKeys(txn, id); err != nil {
			return err
		}
		err := txn.Delete(reverseKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// IDsBySeverity returns the indexed record ids with the given severity,
// in lexicographic id order.
func (i *Index) IDsBySeverity(ctx context.Context, sev risk.Severity) ([]string, error) {
	return i.idsByPrefix(ctx, fmt.Sprintf("%s%d/", prefixSeverity, sev))
}

// IDsByLevel returns the indexed record ids classified at the given level.
func (i *Index) IDsByLevel(ctx context.Context, level risk.Level) ([]string, error) {
	return i.idsByPrefix(ctx, fmt.Sprintf("%s%s/", prefixLevel, level))
}

// IDsByStatus returns the indexed record ids in the given lifecycle status.
func (i *Index) IDsByStatus(ctx context.Context, status risk.Status) ([]string, error) {
	return i.idsByPrefix(ctx, fmt.Sprintf("%s%s/", prefixStatus, status))
}

// Len returns the number of indexed records.
func (i *Index) Len(ctx context.Context) (int, error) {
	ids, err := i.idsByPrefix(ctx, prefixReverse)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Rebuild drops the index and re-derives it from the reader's records.
// Returns the number of records indexed.
func (i *Index) Rebuild(ctx context.Context, reader store.Reader) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := i.db.DropAll(); err != nil {
		return 0, fmt.Errorf("drop index: %w", err)
	}

	records, err := reader.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load records for reindex: %w", err)
	}
	for n, rec := range records {
		if err := i.UpdateIndexEntry(ctx, rec); err != nil {
			return n, fmt.Errorf("reindex record %q: %w", rec.ID, err)
		}
	}
	return len(records), nil
}

// idsByPrefix collects the id suffix of every key under prefix.
func (i *Index) idsByPrefix(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ids []string
	err := i.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			key := it.Item().Key()
			ids = append(ids, string(key[len(p):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// clearDerivedKeys removes the attribute keys recorded in the reverse
// entry, if any.
func clearDerivedKeys(txn *badger.Txn, id string) error {
	item, err := txn.Get(reverseKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var raw string
	if err := item.Value(func(val []byte) error {
		raw = string(val)
		return nil
	}); err != nil {
		return err
	}

	sev, level, status, err := parseReverseValue(raw)
	if err != nil {
		// A reverse entry this index cannot parse is from a newer layout;
		// leave its derived keys for Rebuild to reconcile.
		return nil
	}
	for _, key := range derivedKeys(id, sev, level, status) {
		if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
	}
	return nil
}

func derivedKeys(id string, sev risk.Severity, level risk.Level, status risk.Status) [][]byte {
	return [][]byte{
		[]byte(fmt.Sprintf("%s%d/%s", prefixSeverity, sev, id)),
		[]byte(fmt.Sprintf("%s%s/%s", prefixLevel, level, id)),
		[]byte(fmt.Sprintf("%s%s/%s", prefixStatus, status, id)),
	}
}

func reverseKey(id string) []byte {
	return []byte(prefixReverse + id)
}

func reverseValue(sev risk.Severity, level risk.Level, status risk.Status) string {
	return fmt.Sprintf("%d|%s|%s", sev, level, status)
}

func parseReverseValue(raw string) (risk.Severity, risk.Level, risk.Status, error) {
	parts := strings.SplitN(raw, "|", 3)
	if len(parts) != 3 {
		return 0, "", "", fmt.Errorf("malformed reverse entry %q", raw)
	}
	sev, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", "", fmt.Errorf("malformed severity in reverse entry %q", raw)
	}
	return risk.Severity(sev), risk.Level(parts[1]), risk.Status(parts[2]), nil
}

var _ store.Indexer = (*Index)(nil)
