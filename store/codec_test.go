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
Package store tests for the record codec.

# Testing Strategy

These tests verify:
  - Encode/decode round-trip preserves every field
  - Unknown keys and missing optional fields are tolerated
  - Missing required fields and malformed lines reject as corrupt
  - Values containing quotes, newlines, and separators survive quoting
*/
package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/riskfile/risk"
)

// codecRecord returns a fully populated record for codec tests.
func codecRecord() *risk.Record {
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return &risk.Record{
		ID:            "r-codec-001",
		Description:   "infusion line occlusion alarm missed",
		Severity:      risk.SeverityCritical,
		Occurrence:    risk.OccurrenceProbable,
		Detectability: risk.DetectabilityLow,
		RPN:           64,
		Level:         risk.LevelALARP,
		Mitigation:    "add redundant pressure sensor",
		Status:        risk.StatusOpen,
		CreatedAt:     created,
		UpdatedAt:     created.Add(48 * time.Hour),
	}
}

// -----------------------------------------------------------------------------
// Round-Trip Tests
// -----------------------------------------------------------------------------

// TestCodec_RoundTrip verifies every field survives encode/decode.
func TestCodec_RoundTrip(t *testing.T) {
	want := codecRecord()

	got, err := decodeRecord(encodeRecord(want))
	if err != nil {
		t.Fatalf("decodeRecord() error = %v", err)
	}

	if got.ID != want.ID {
		t.Errorf("ID = %q, want %q", got.ID, want.ID)
	}
	if got.Description != want.Description {
		t.Errorf("Description = %q, want %q", got.Description, want.Description)
	}
	if got.Severity != want.Severity || got.Occurrence != want.Occurrence || got.Detectability != want.Detectability {
		t.Errorf("factors = (%d,%d,%d), want (%d,%d,%d)",
			got.Severity, got.Occurrence, got.Detectability,
			want.Severity, want.Occurrence, want.Detectability)
	}
	if got.RPN != want.RPN {
		t.Errorf("RPN = %d, want %d", got.RPN, want.RPN)
	}
	if got.Level != want.Level {
		t.Errorf("Level = %q, want %q", got.Level, want.Level)
	}
	if got.Mitigation != want.Mitigation {
		t.Errorf("Mitigation = %q, want %q", got.Mitigation, want.Mitigation)
	}
	if got.Status != want.Status {
		t.Errorf("Status = %q, want %q", got.Status, want.Status)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	if !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, want.UpdatedAt)
	}
}

// TestCodec_RoundTrip_AwkwardStrings verifies quoting handles hostile values.
func TestCodec_RoundTrip_AwkwardStrings(t *testing.T) {
	want := codecRecord()
	want.Description = `pump says "OK": but line
contains a break and a \ backslash`
	want.Mitigation = `quote " colon : done`

	got, err := decodeRecord(encodeRecord(want))
	if err != nil {
		t.Fatalf("decodeRecord() error = %v", err)
	}
	if got.Description != want.Description {
		t.Errorf("Description = %q, want %q", got.Description, want.Description)
	}
	if got.Mitigation != want.Mitigation {
		t.Errorf("Mitigation = %q, want %q", got.Mitigation, want.Mitigation)
	}
}

// TestCodec_Encode_OmitsEmptyMitigation verifies optional field omission.
func TestCodec_Encode_OmitsEmptyMitigation(t *testing.T) {
	rec := codecRecord()
	rec.Mitigation = ""

	text := string(encodeRecord(rec))
	if strings.Contains(text, "mitigation") {
		t.Errorf("encoded record contains mitigation key:\n%s", text)
	}
}

// TestCodec_Encode_FieldOrder verifies id leads the document.
func TestCodec_Encode_FieldOrder(t *testing.T) {
	text := string(encodeRecord(codecRecord()))
	if !strings.HasPrefix(text, `"id": `) {
		t.Errorf("encoded record does not start with id field:\n%s", text)
	}
}

// -----------------------------------------------------------------------------
// Tolerance Tests
// -----------------------------------------------------------------------------

// TestCodec_Decode_UnknownKeysIgnored verifies forward compatibility.
func TestCodec_Decode_UnknownKeysIgnored(t *testing.T) {
	data := append(encodeRecord(codecRecord()),
		[]byte("\"reviewer\": \"j.doe\"\n\"revision\": 7\n")...)

	got, err := decodeRecord(data)
	if err != nil {
		t.Fatalf("decodeRecord() error = %v", err)
	}
	if got.ID != "r-codec-001" {
		t.Errorf("ID = %q, want %q", got.ID, "r-codec-001")
	}
}

// TestCodec_Decode_MissingOptionalsDefault verifies a minimal document decodes.
func TestCodec_Decode_MissingOptionalsDefault(t *testing.T) {
	minimal := strings.Join([]string{
		`"id": "r-min"`,
		`"description": "reservoir leak"`,
		`"severity": 3`,
		`"occurrence": 2`,
		`"detectability": 2`,
	}, "\n")

	got, err := decodeRecord([]byte(minimal))
	if err != nil {
		t.Fatalf("decodeRecord() error = %v", err)
	}
	if got.Status != risk.StatusOpen {
		t.Errorf("Status = %q, want %q", got.Status, risk.StatusOpen)
	}
	if got.Mitigation != "" {
		t.Errorf("Mitigation = %q, want empty", got.Mitigation)
	}
	if !got.CreatedAt.IsZero() || !got.UpdatedAt.IsZero() {
		t.Errorf("timestamps = %v/%v, want zero", got.CreatedAt, got.UpdatedAt)
	}
}

// TestCodec_Decode_UpdatedAtDefaultsToCreatedAt verifies timestamp backfill.
func TestCodec_Decode_UpdatedAtDefaultsToCreatedAt(t *testing.T) {
	doc := strings.Join([]string{
		`"id": "r-ts"`,
		`"description": "sensor drift"`,
		`"severity": 2`,
		`"occurrence": 2`,
		`"detectability": 3`,
		`"created_at": "2025-06-01T09:00:00Z"`,
	}, "\n")

	got, err := decodeRecord([]byte(doc))
	if err != nil {
		t.Fatalf("decodeRecord() error = %v", err)
	}
	if !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Errorf("UpdatedAt = %v, want CreatedAt %v", got.UpdatedAt, got.CreatedAt)
	}
}

// TestCodec_Decode_BlankLinesSkipped verifies padding lines are harmless.
func TestCodec_Decode_BlankLinesSkipped(t *testing.T) {
	doc := "\n" + string(encodeRecord(codecRecord())) + "\n\n"
	if _, err := decodeRecord([]byte(doc)); err != nil {
		t.Fatalf("decodeRecord() error = %v", err)
	}
}

// -----------------------------------------------------------------------------
// Corruption Tests
// -----------------------------------------------------------------------------

// TestCodec_Decode_Corrupt verifies malformed documents reject as corrupt.
func TestCodec_Decode_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty document", ""},
		{"missing required field", `"id": "r-x"` + "\n" + `"description": "d"` + "\n" + `"severity": 1` + "\n" + `"occurrence": 1`},
		{"string where number expected", `"id": "r-x"` + "\n" + `"description": "d"` + "\n" + `"severity": "high"` + "\n" + `"occurrence": 1` + "\n" + `"detectability": 1`},
		{"number where string expected", `"id": 7` + "\n" + `"description": "d"` + "\n" + `"severity": 1` + "\n" + `"occurrence": 1` + "\n" + `"detectability": 1`},
		{"unquoted key", `id: "r-x"`},
		{"missing separator", `"id" "r-x"`},
		{"trailing data after value", `"id": "r-x" extra`},
		{"unparseable number", `"id": "r-x"` + "\n" + `"severity": 1.5`},
		{"bad timestamp", `"id": "r-x"` + "\n" + `"description": "d"` + "\n" + `"severity": 1` + "\n" + `"occurrence": 1` + "\n" + `"detectability": 1` + "\n" + `"created_at": "yesterday"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeRecord([]byte(tt.doc))
			if err == nil {
				t.Fatal("decodeRecord() error = nil, want corrupt record error")
			}
			if !errors.Is(err, ErrCorruptRecord) {
				t.Errorf("decodeRecord() error = %v, want ErrCorruptRecord", err)
			}
		})
	}
}

// TestCodec_Decode_CRLFTolerated verifies Windows line endings decode.
func TestCodec_Decode_CRLFTolerated(t *testing.T) {
	doc := strings.ReplaceAll(string(encodeRecord(codecRecord())), "\n", "\r\n")
	got, err := decodeRecord([]byte(doc))
	if err != nil {
		t.Fatalf("decodeRecord() error = %v", err)
	}
	if got.ID != "r-codec-001" {
		t.Errorf("ID = %q, want %q", got.ID, "r-codec-001")
	}
}
