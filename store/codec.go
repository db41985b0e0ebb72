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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/riskfile/risk"
)

// Record files use a line-oriented `"key": value` format: keys and string
// values quoted (strconv.Quote escaping), numeric values bare, one field
// per line, no nesting. The format is deliberately hand-rolled so record
// files stay human-readable and the on-disk layout never shifts under a
// serialization library upgrade.
//
// Decoding is driven by the ordered field table below: unknown keys are
// ignored and missing optional fields fall back to defaults, so newer code
// keeps reading older files. A present-but-malformed value is damage, not
// schema drift, and fails decoding with ErrCorruptRecord.

// Timestamps are stored as quoted RFC 3339 in UTC at second precision.
const timeLayout = time.RFC3339

// fieldValue is one parsed `"key": value` right-hand side.
type fieldValue struct {
	text     string
	number   int
	isString bool
}

// fieldSpec binds a record file key to its decoder.
type fieldSpec struct {
	key      string
	required bool
	set      func(*risk.Record, fieldValue) error
}

// recordFields is the encode order and the decode table. Append new
// optional fields at the end; never reorder or repurpose existing keys.
var recordFields = []fieldSpec{
	{key: "id", required: true, set: setString(func(r *risk.Record, v string) {
		r.ID = v
	})},
	{key: "description", required: true, set: setString(func(r *risk.Record, v string) {
		r.Description = v
	})},
	{key: "severity", required: true, set: setInt(func(r *risk.Record, v int) {
		r.Severity = risk.Severity(v)
	})},
	{key: "occurrence", required: true, set: setInt(func(r *risk.Record, v int) {
		r.Occurrence = risk.Occurrence(v)
	})},
	{key: "detectability", required: true, set: setInt(func(r *risk.Record, v int) {
		r.Detectability = risk.Detectability(v)
	})},
	{key: "rpn", required: false, set: setInt(func(r *risk.Record, v int) {
		r.RPN = v
	})},
	{key: "risk_level", required: false, set: setString(func(r *risk.Record, v string) {
		r.Level = risk.ParseLevel(v)
	})},
	{key: "mitigation", required: false, set: setString(func(r *risk.Record, v string) {
		r.Mitigation = v
	})},
	{key: "status", required: false, set: setString(func(r *risk.Record, v string) {
		r.Status = risk.ParseStatus(v)
	})},
	{key: "created_at", required: false, set: setTime(func(r *risk.Record, v time.Time) {
		r.CreatedAt = v
	})},
	{key: "updated_at", required: false, set: setTime(func(r *risk.Record, v time.Time) {
		r.UpdatedAt = v
	})},
}

func setString(assign func(*risk.Record, string)) func(*risk.Record, fieldValue) error {
	return func(r *risk.Record, v fieldValue) error {
		if !v.isString {
			return fmt.Errorf("expected quoted string, got number %d", v.number)
		}
		assign(r, v.text)
		return nil
	}
}

func setInt(assign func(*risk.Record, int)) func(*risk.Record, fieldValue) error {
	return func(r *risk.Record, v fieldValue) error {
		if v.isString {
			return fmt.Errorf("expected bare number, got string %q", v.text)
		}
		assign(r, v.number)
		return nil
	}
}

func setTime(assign func(*risk.Record, time.Time)) func(*risk.Record, fieldValue) error {
	return func(r *risk.Record, v fieldValue) error {
		if !v.isString {
			return fmt.Errorf("expected quoted timestamp, got number %d", v.number)
		}
		ts, err := time.Parse(timeLayout, v.text)
		if err != nil {
			return fmt.Errorf("bad timestamp %q: %v", v.text, err)
		}
		assign(r, ts.UTC())
		return nil
	}
}

// encodeRecord renders the record in field-table order. Mitigation is the
// only field omitted when empty; everything else is always written.
func encodeRecord(rec *risk.Record) []byte {
	var b strings.Builder
	writeStringField(&b, "id", rec.ID)
	writeStringField(&b, "description", rec.Description)
	writeIntField(&b, "severity", int(rec.Severity))
	writeIntField(&b, "occurrence", int(rec.Occurrence))
	writeIntField(&b, "detectability", int(rec.Detectability))
	writeIntField(&b, "rpn", rec.RPN)
	writeStringField(&b, "risk_level", string(rec.Level))
	if rec.Mitigation != "" {
		writeStringField(&b, "mitigation", rec.Mitigation)
	}
	writeStringField(&b, "status", string(rec.Status))
	writeStringField(&b, "created_at", rec.CreatedAt.UTC().Format(timeLayout))
	writeStringField(&b, "updated_at", rec.UpdatedAt.UTC().Format(timeLayout))
	return []byte(b.String())
}

func writeStringField(b *strings.Builder, key, value string) {
	b.WriteString(strconv.Quote(key))
	b.WriteString(": ")
	b.WriteString(strconv.Quote(value))
	b.WriteByte('\n')
}

func writeIntField(b *strings.Builder, key string, value int) {
	b.WriteString(strconv.Quote(key))
	b.WriteString(": ")
	b.WriteString(strconv.Itoa(value))
	b.WriteByte('\n')
}

// decodeRecord parses record file contents. Malformed lines, malformed
// values, and missing required fields fail with ErrCorruptRecord; unknown
// keys and missing optional fields do not.
func decodeRecord(data []byte) (*risk.Record, error) {
	fields := make(map[string]fieldValue)
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, err := decodeLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptRecord, i+1, err)
		}
		fields[key] = value
	}

	rec := &risk.Record{Status: risk.StatusOpen}
	for _, spec := range recordFields {
		value, ok := fields[spec.key]
		if !ok {
			if spec.required {
				return nil, fmt.Errorf("%w: missing required field %q", ErrCorruptRecord, spec.key)
			}
			continue
		}
		if err := spec.set(rec, value); err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrCorruptRecord, spec.key, err)
		}
	}

	// Records written before updated_at existed update in place of the
	// creation time, keeping the timestamp invariant intact.
	if rec.UpdatedAt.IsZero() && !rec.CreatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	return rec, nil
}

// decodeLine splits one `"key": value` line.
func decodeLine(line string) (string, fieldValue, error) {
	quotedKey, err := strconv.QuotedPrefix(line)
	if err != nil {
		return "", fieldValue{}, fmt.Errorf("no quoted key in %q", line)
	}
	key, err := strconv.Unquote(quotedKey)
	if err != nil {
		return "", fieldValue{}, fmt.Errorf("bad key in %q: %v", line, err)
	}

	rest := line[len(quotedKey):]
	if !strings.HasPrefix(rest, ": ") {
		return "", fieldValue{}, fmt.Errorf("missing separator after key %q", key)
	}
	raw := strings.TrimRight(rest[2:], " \t")
	if raw == "" {
		return "", fieldValue{}, fmt.Errorf("empty value for key %q", key)
	}

	if strings.HasPrefix(raw, "\"") {
		quoted, err := strconv.QuotedPrefix(raw)
		if err != nil {
			return "", fieldValue{}, fmt.Errorf("bad quoted value for key %q: %v", key, err)
		}
		if len(quoted) != len(raw) {
			return "", fieldValue{}, fmt.Errorf("trailing data after value for key %q", key)
		}
		text, err := strconv.Unquote(quoted)
		if err != nil {
			return "", fieldValue{}, fmt.Errorf("bad quoted value for key %q: %v", key, err)
		}
		return key, fieldValue{text: text, isString: true}, nil
	}

	number, err := strconv.Atoi(raw)
	if err != nil {
		return "", fieldValue{}, fmt.Errorf("bad numeric value %q for key %q", raw, key)
	}
	return key, fieldValue{number: number}, nil
}
