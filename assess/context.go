// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assess

import (
	"sync"

	"github.com/AleutianAI/riskfile/risk"
)

// Result is the transient outcome of one assessment. It is returned to the
// caller for audit logging and for populating a risk record; it is never
// persisted on its own.
type Result struct {
	RPN           int                `json:"rpn"`
	Level         risk.Level         `json:"risk_level"`
	Strategy      string             `json:"strategy"`
	Severity      risk.Severity      `json:"severity"`
	Occurrence    risk.Occurrence    `json:"occurrence"`
	Detectability risk.Detectability `json:"detectability"`
}

// Context holds exactly one active strategy and runs the fixed assessment
// pipeline against it.
//
// # Behavior
//
// Assess calls Validate, then CalculateRPN, then Classify, in that order.
// A validation failure short-circuits before any score is computed.
// SetStrategy swaps the active strategy immediately; the swap affects only
// subsequent assessments, never previously returned Results.
//
// # Thread Safety
//
// Safe for concurrent use. The strategy pointer is guarded by an RWMutex;
// an assessment in flight keeps the strategy it started with.
type Context struct {
	mu       sync.RWMutex
	strategy Strategy
}

// NewContext returns a Context holding the given strategy, or Standard
// when strategy is nil, so a zero-configuration context still assesses.
func NewContext(strategy Strategy) *Context {
	if strategy == nil {
		strategy = NewStandard()
	}
	return &Context{strategy: strategy}
}

// Assess validates the factors under the active strategy, computes the
// RPN, classifies it, and packages everything with the strategy's name.
// On validation failure it returns nil and the strategy's error.
func (c *Context) Assess(sev risk.Severity, occ risk.Occurrence, det risk.Detectability) (*Result, error) {
	c.mu.RLock()
	strategy := c.strategy
	c.mu.RUnlock()

	if err := strategy.Validate(sev, occ, det); err != nil {
		return nil, err
	}
	rpn := strategy.CalculateRPN(sev, occ, det)
	return &Result{
		RPN:           rpn,
		Level:         strategy.Classify(rpn),
		Strategy:      strategy.Name(),
		Severity:      sev,
		Occurrence:    occ,
		Detectability: det,
	}, nil
}

// SetStrategy swaps the active strategy. A nil strategy is ignored: the
// context always holds a usable strategy.
func (c *Context) SetStrategy(strategy Strategy) {
	if strategy == nil {
		return
	}
	c.mu.Lock()
	c.strategy = strategy
	c.mu.Unlock()
}

// Strategy returns the active strategy.
func (c *Context) Strategy() Strategy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.strategy
}

// StrategyName returns the active strategy's stable identifier, for audit
// logging.
func (c *Context) StrategyName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.strategy.Name()
}
