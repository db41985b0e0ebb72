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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// manifestHeader is the first line of every manifest file. A manifest
// without it is treated as unreadable and rebuilt from the directory.
const manifestHeader = "# riskfile manifest v1"

// loadManifestLocked replaces the in-memory manifest with the contents of
// the manifest file. Caller holds mu.
func (s *FileRecordStore) loadManifestLocked() error {
	path := filepath.Join(s.dir, manifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r") != manifestHeader {
		return fmt.Errorf("manifest %s: missing header", path)
	}
	manifest := make(map[string]struct{}, len(lines)-1)
	for _, line := range lines[1:] {
		id := strings.TrimSpace(line)
		if id == "" || strings.HasPrefix(id, "#") {
			continue
		}
		manifest[id] = struct{}{}
	}
	s.manifest = manifest
	return nil
}

// rebuildManifestLocked repopulates the manifest from the directory
// listing and persists it. Caller holds mu.
func (s *FileRecordStore) rebuildManifestLocked() error {
	ids, err := s.listRecordIDs()
	if err != nil {
		return err
	}
	manifest := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		manifest[id] = struct{}{}
	}
	s.manifest = manifest
	return s.writeManifestLocked()
}

// writeManifestLocked persists the in-memory manifest atomically, ids
// sorted for stable diffs. Caller holds mu.
func (s *FileRecordStore) writeManifestLocked() error {
	ids := make([]string, 0, len(s.manifest))
	for id := range s.manifest {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString(manifestHeader)
	b.WriteByte('\n')
	for _, id := range ids {
		b.WriteString(id)
		b.WriteByte('\n')
	}

	path := filepath.Join(s.dir, manifestFileName)
	if err := writeFileAtomic(s.dir, path, []byte(b.String())); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}

// reconcileManifest compares the manifest against the directory listing
// and rewrites it when they disagree or the manifest file itself is gone.
// The directory always wins.
func (s *FileRecordStore) reconcileManifest(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stale := len(ids) != len(s.manifest)
	if !stale {
		for _, id := range ids {
			if _, ok := s.manifest[id]; !ok {
				stale = true
				break
			}
		}
	}
	if !stale {
		if _, err := os.Stat(filepath.Join(s.dir, manifestFileName)); errors.Is(err, fs.ErrNotExist) {
			stale = true
		}
	}
	if !stale {
		return
	}

	s.logger.Warn("manifest out of sync with records directory, rebuilding",
		"dir", s.dir, "records", len(ids))
	manifest := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		manifest[id] = struct{}{}
	}
	s.manifest = manifest
	if err := s.writeManifestLocked(); err != nil {
		s.logger.Warn("manifest rewrite failed", "dir", s.dir, "error", err)
	}
}

// listRecordIDs enumerates record files in the directory. Staging temp
// files (dot-prefixed) and the manifest itself are excluded.
func (s *FileRecordStore) listRecordIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list records directory %s: %w", s.dir, err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordFileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, recordFileExt))
	}
	return ids, nil
}
