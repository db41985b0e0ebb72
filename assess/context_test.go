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
	"errors"
	"testing"

	"github.com/AleutianAI/riskfile/risk"
)

// spyStrategy records the order of calls so tests can assert the
// validate -> calculate -> classify pipeline.
type spyStrategy struct {
	calls       []string
	validateErr error
}

func (s *spyStrategy) Validate(risk.Severity, risk.Occurrence, risk.Detectability) error {
	s.calls = append(s.calls, "validate")
	return s.validateErr
}

func (s *spyStrategy) CalculateRPN(risk.Severity, risk.Occurrence, risk.Detectability) int {
	s.calls = append(s.calls, "calculate")
	return 42
}

func (s *spyStrategy) Classify(int) risk.Level {
	s.calls = append(s.calls, "classify")
	return risk.LevelALARP
}

func (s *spyStrategy) Name() string { return "spy" }

// TestContext_Assess_Order tests the fixed pipeline order.
func TestContext_Assess_Order(t *testing.T) {
	spy := &spyStrategy{}
	ctx := NewContext(spy)

	result, err := ctx.Assess(2, 2, 2)
	if err != nil {
		t.Fatalf("Assess() = %v, want nil", err)
	}
	want := []string{"validate", "calculate", "classify"}
	if len(spy.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", spy.calls, want)
	}
	for i := range want {
		if spy.calls[i] != want[i] {
			t.Fatalf("call %d = %s, want %s", i, spy.calls[i], want[i])
		}
	}
	if result.RPN != 42 || result.Level != risk.LevelALARP || result.Strategy != "spy" {
		t.Errorf("result = %+v, want rpn=42 level=ALARP strategy=spy", result)
	}
}

// TestContext_Assess_ShortCircuit tests that validation failure stops the
// pipeline before any score is computed.
func TestContext_Assess_ShortCircuit(t *testing.T) {
	spy := &spyStrategy{validateErr: ErrRejected}
	ctx := NewContext(spy)

	result, err := ctx.Assess(2, 2, 2)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("Assess() err = %v, want ErrRejected", err)
	}
	if result != nil {
		t.Errorf("Assess() result = %+v, want nil", result)
	}
	if len(spy.calls) != 1 || spy.calls[0] != "validate" {
		t.Errorf("calls = %v, want [validate] only", spy.calls)
	}
}

// TestContext_Assess_PackagesFactors tests that the result echoes the
// assessed factors and the active strategy name.
func TestContext_Assess_PackagesFactors(t *testing.T) {
	ctx := NewContext(NewStandard())

	result, err := ctx.Assess(risk.SeveritySerious, risk.OccurrenceRemote, risk.DetectabilityHigh)
	if err != nil {
		t.Fatalf("Assess() = %v, want nil", err)
	}
	if result.Severity != risk.SeveritySerious ||
		result.Occurrence != risk.OccurrenceRemote ||
		result.Detectability != risk.DetectabilityHigh {
		t.Errorf("result factors = %d/%d/%d, want 3/2/2",
			result.Severity, result.Occurrence, result.Detectability)
	}
	if result.Strategy != StrategyStandard {
		t.Errorf("result.Strategy = %q, want %q", result.Strategy, StrategyStandard)
	}
	if result.RPN != 12 || result.Level != risk.LevelAcceptable {
		t.Errorf("result = rpn %d level %s, want 12 ACCEPTABLE", result.RPN, result.Level)
	}
}

// TestContext_SetStrategy tests that a swap affects only subsequent
// assessments and that nil swaps are ignored.
func TestContext_SetStrategy(t *testing.T) {
	ctx := NewContext(NewStandard())

	before, err := ctx.Assess(4, 4, 4)
	if err != nil {
		t.Fatalf("Assess() = %v, want nil", err)
	}
	if before.RPN != 64 || before.Level != risk.LevelALARP {
		t.Fatalf("standard assess = rpn %d level %s, want 64 ALARP", before.RPN, before.Level)
	}

	ctx.SetStrategy(NewWeighted())
	if got := ctx.StrategyName(); got != StrategyWeighted {
		t.Errorf("StrategyName() = %q, want %q", got, StrategyWeighted)
	}

	// The earlier result is untouched; the same factors are now refused by
	// the weighted admission rule.
	if before.RPN != 64 || before.Strategy != StrategyStandard {
		t.Errorf("prior result mutated by swap: %+v", before)
	}
	if _, err := ctx.Assess(4, 4, 4); !errors.Is(err, ErrRejected) {
		t.Errorf("weighted Assess(4,4,4) err = %v, want ErrRejected", err)
	}

	ctx.SetStrategy(nil)
	if got := ctx.StrategyName(); got != StrategyWeighted {
		t.Errorf("nil swap changed strategy to %q", got)
	}
}

// TestNewContext_NilDefaultsToStandard tests the zero-configuration path.
func TestNewContext_NilDefaultsToStandard(t *testing.T) {
	ctx := NewContext(nil)
	if got := ctx.StrategyName(); got != StrategyStandard {
		t.Errorf("StrategyName() = %q, want %q", got, StrategyStandard)
	}
}
