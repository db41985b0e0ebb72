// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine composes assessment and persistence into the operations
// a risk register actually runs: create-with-assessment, reassessment,
// batch scoring, derived views, statistics, and backup lifecycle.
//
// The engine owns the single active assessment strategy. Swapping it
// affects subsequent assessments only; stored records keep the scores
// they were last assessed with until reassessed.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/riskfile/assess"
	"github.com/AleutianAI/riskfile/risk"
	"github.com/AleutianAI/riskfile/store"
)

// indexRebuilder is the optional capability a secondary index exposes for
// re-deriving itself after wholesale record changes (restore).
type indexRebuilder interface {
	Rebuild(ctx context.Context, reader store.Reader) (int, error)
}

// Engine is the risk-register facade over one record store and one
// assessment context.
//
// # Thread Safety
//
// Safe for concurrent reads. Writes to the same record id must be
// serialized by the caller, matching the store's contract.
type Engine struct {
	records  store.Store
	assessor *assess.Context
	index    store.Indexer
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Nil loggers are ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithStrategy sets the initial assessment strategy by name. Unrecognized
// names fall back to the standard strategy.
func WithStrategy(name string) Option {
	return func(e *Engine) {
		e.assessor.SetStrategy(assess.ForName(name))
	}
}

// WithIndexer attaches a secondary index. The engine keeps it current on
// every create, reassess, and delete; index failures are logged, never
// fatal, because the record files stay authoritative.
func WithIndexer(index store.Indexer) Option {
	return func(e *Engine) {
		e.index = index
	}
}

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides record id generation, for tests.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// New creates an Engine over the given record store. The default strategy
// is standard, timestamps are UTC at second precision, and ids are UUIDs.
func New(records store.Store, opts ...Option) *Engine {
	e := &Engine{
		records:  records,
		assessor: assess.NewContext(nil),
		logger:   slog.Default(),
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Second)
		},
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateRequest carries the caller-supplied fields for a new record.
// RPN and risk level are always derived, never accepted from input.
type CreateRequest struct {
	// ID is optional; a UUID is generated when empty.
	ID string

	Description   string
	Severity      risk.Severity
	Occurrence    risk.Occurrence
	Detectability risk.Detectability

	// Mitigation is optional free text.
	Mitigation string

	// Status defaults to open when empty.
	Status risk.Status
}

// Create assesses the request under the active strategy and persists the
// resulting record. A validation failure at any step means nothing is
// persisted.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*risk.Record, *assess.Result, error) {
	strategy := e.assessor.StrategyName()
	id := req.ID
	if id == "" {
		id = e.newID()
	}

	ctx, span := startAssessSpan(ctx, "Create", id, strategy)
	defer span.End()
	started := time.Now()

	result, err := e.assessor.Assess(req.Severity, req.Occurrence, req.Detectability)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordAssessMetrics(ctx, strategy, "", time.Since(started), false)
		e.logger.Warn("assessment rejected, record not persisted",
			"id", id, "strategy", strategy, "error", err)
		return nil, nil, fmt.Errorf("assess risk %q: %w", id, err)
	}

	status := req.Status
	if status == "" {
		status = risk.StatusOpen
	}
	now := e.now()
	rec := &risk.Record{
		ID:            id,
		Description:   req.Description,
		Severity:      req.Severity,
		Occurrence:    req.Occurrence,
		Detectability: req.Detectability,
		RPN:           result.RPN,
		Level:         result.Level,
		Mitigation:    req.Mitigation,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := e.records.Save(ctx, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordAssessMetrics(ctx, strategy, "", time.Since(started), false)
		return nil, nil, err
	}
	e.updateIndex(ctx, rec)

	setAssessSpanResult(span, result.RPN, string(result.Level))
	recordAssessMetrics(ctx, strategy, string(result.Level), time.Since(started), true)
	e.logger.Info("risk record created",
		"id", rec.ID, "rpn", rec.RPN, "level", rec.Level, "strategy", strategy)
	return rec, result, nil
}

// Get loads one record by id.
func (e *Engine) Get(ctx context.Context, id string) (*risk.Record, error) {
	return e.records.Load(ctx, id)
}

// List returns every stored record, in unspecified order.
func (e *Engine) List(ctx context.Context) ([]*risk.Record, error) {
	return e.records.LoadAll(ctx)
}

// Reassess rescores one record under the active strategy, updating its
// RPN, risk level, and updated-at timestamp. The stored factors are not
// changed. A strategy that rejects the record's factors leaves it
// untouched.
func (e *Engine) Reassess(ctx context.Context, id string) (*risk.Record, *assess.Result, error) {
	strategy := e.assessor.StrategyName()
	ctx, span := startAssessSpan(ctx, "Reassess", id, strategy)
	defer span.End()
	started := time.Now()

	rec, err := e.records.Load(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordAssessMetrics(ctx, strategy, "", time.Since(started), false)
		return nil, nil, err
	}

	result, err := e.assessor.Assess(rec.Severity, rec.Occurrence, rec.Detectability)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordAssessMetrics(ctx, strategy, "", time.Since(started), false)
		e.logger.Warn("reassessment rejected, record unchanged",
			"id", id, "strategy", strategy, "error", err)
		return nil, nil, fmt.Errorf("reassess risk %q: %w", id, err)
	}

	rec.RPN = result.RPN
	rec.Level = result.Level
	rec.Touch(e.now())

	if err := e.records.Save(ctx, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordAssessMetrics(ctx, strategy, "", time.Since(started), false)
		return nil, nil, err
	}
	e.updateIndex(ctx, rec)

	setAssessSpanResult(span, result.RPN, string(result.Level))
	recordAssessMetrics(ctx, strategy, string(result.Level), time.Since(started), true)
	e.logger.Info("risk record reassessed",
		"id", rec.ID, "rpn", rec.RPN, "level", rec.Level, "strategy", strategy)
	return rec, result, nil
}

// Delete removes one record and its index entries.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := e.records.Delete(ctx, id); err != nil {
		return err
	}
	if e.index != nil {
		if err := e.index.RemoveIndexEntry(ctx, id); err != nil {
			e.logger.Warn("secondary index removal failed", "id", id, "error", err)
		}
	}
	e.logger.Info("risk record deleted", "id", id)
	return nil
}

// Search returns the records matching every present criterion.
func (e *Engine) Search(ctx context.Context, criteria store.Criteria) ([]*risk.Record, error) {
	return e.records.Search(ctx, criteria)
}

// FindOverdue returns open records needing review.
func (e *Engine) FindOverdue(ctx context.Context) ([]*risk.Record, error) {
	return e.records.FindOverdue(ctx)
}

// HighPriority returns the records at or above the high-priority RPN
// threshold, highest RPN first (ties broken by id for stable output).
func (e *Engine) HighPriority(ctx context.Context) ([]*risk.Record, error) {
	records, err := e.records.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	high := make([]*risk.Record, 0, len(records))
	for _, rec := range records {
		if rec.RPN >= risk.HighPriorityRPN {
			high = append(high, rec)
		}
	}
	sort.Slice(high, func(i, j int) bool {
		if high[i].RPN != high[j].RPN {
			return high[i].RPN > high[j].RPN
		}
		return high[i].ID < high[j].ID
	})
	return high, nil
}

// ChangeStrategy swaps the active assessment strategy by name and returns
// the effective strategy name. Unrecognized names fall back to standard.
// Stored records are not touched; only subsequent assessments see the new
// strategy.
func (e *Engine) ChangeStrategy(name string) string {
	before := e.assessor.StrategyName()
	if !assess.KnownName(name) {
		e.logger.Warn("unknown strategy name, using standard",
			"requested", name, "known", assess.Names())
	}
	e.assessor.SetStrategy(assess.ForName(name))
	after := e.assessor.StrategyName()
	e.logger.Info("assessment strategy changed", "from", before, "to", after)
	return after
}

// ChangeStrategyForDeviceClass selects the strategy mandated for a device
// class (I, II, III) and returns the effective strategy name.
func (e *Engine) ChangeStrategyForDeviceClass(class string) string {
	before := e.assessor.StrategyName()
	parsed := assess.ParseDeviceClass(class)
	e.assessor.SetStrategy(assess.ForDeviceClass(parsed))
	after := e.assessor.StrategyName()
	e.logger.Info("assessment strategy changed",
		"from", before, "to", after, "device_class", parsed)
	return after
}

// StrategyName returns the active strategy's name.
func (e *Engine) StrategyName() string {
	return e.assessor.StrategyName()
}

// CreateBackup writes a verified full snapshot to targetPath.
func (e *Engine) CreateBackup(ctx context.Context, targetPath string) error {
	err := e.records.CreateBackup(ctx, targetPath)
	recordBackupMetrics(ctx, "create", err == nil)
	if err != nil {
		return err
	}
	e.logger.Info("backup created", "target", targetPath)
	return nil
}

// RestoreFromBackup verifies and restores a snapshot, then rebuilds the
// secondary index if one is attached, since every record may have changed.
func (e *Engine) RestoreFromBackup(ctx context.Context, sourcePath string) error {
	err := e.records.RestoreBackup(ctx, sourcePath)
	recordBackupMetrics(ctx, "restore", err == nil)
	if err != nil {
		return err
	}
	if rebuilder, ok := e.index.(indexRebuilder); ok {
		n, err := rebuilder.Rebuild(ctx, e.records)
		if err != nil {
			e.logger.Warn("index rebuild after restore failed", "error", err)
		} else {
			e.logger.Info("secondary index rebuilt", "records", n)
		}
	}
	e.logger.Info("backup restored", "source", sourcePath)
	return nil
}

// ListBackups returns the snapshots under dir, newest first.
func (e *Engine) ListBackups(ctx context.Context, dir string) ([]store.BackupInfo, error) {
	return e.records.ListBackups(ctx, dir)
}

// PruneBackups removes the oldest snapshots beyond keep.
func (e *Engine) PruneBackups(ctx context.Context, dir string, keep int) (int, error) {
	return e.records.PruneBackups(ctx, dir, keep)
}

// updateIndex refreshes the secondary index for one record, best-effort.
func (e *Engine) updateIndex(ctx context.Context, rec *risk.Record) {
	if e.index == nil {
		return
	}
	if err := e.index.UpdateIndexEntry(ctx, rec); err != nil {
		e.logger.Warn("secondary index update failed", "id", rec.ID, "error", err)
	}
}
