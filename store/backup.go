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
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// backupVersion identifies the snapshot layout. Bump only with a reader
// that still accepts every older version.
const backupVersion = 1

const copyBufferSize = 64 * 1024

// backupMeta is the parsed content of a snapshot's backup.meta file.
type backupMeta struct {
	Version     int
	CreatedAt   time.Time
	RecordCount int
	Checksum    string
}

// CreateBackup writes a full snapshot of the records directory into
// targetPath: every record file, the manifest, and a backup.meta carrying
// a content checksum. The target must not already hold files.
func (s *FileRecordStore) CreateBackup(ctx context.Context, targetPath string) error {
	if strings.TrimSpace(targetPath) == "" {
		return errors.New("backup target must not be empty")
	}
	entries, err := os.ReadDir(targetPath)
	if err == nil && len(entries) > 0 {
		return fmt.Errorf("backup target %s is not empty", targetPath)
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read backup target %s: %w", targetPath, err)
	}
	if err := os.MkdirAll(targetPath, dirPerm); err != nil {
		return fmt.Errorf("create backup target %s: %w", targetPath, err)
	}

	// Hold the read lock for the whole copy so the snapshot sees a
	// consistent set of record files.
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, err := s.listRecordIDs()
	if err != nil {
		return err
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := id + recordFileExt
		if err := copyFile(filepath.Join(targetPath, name), filepath.Join(s.dir, name)); err != nil {
			return fmt.Errorf("snapshot record %q: %w", id, err)
		}
	}

	manifestSrc := filepath.Join(s.dir, manifestFileName)
	if _, err := os.Stat(manifestSrc); err == nil {
		if err := copyFile(filepath.Join(targetPath, manifestFileName), manifestSrc); err != nil {
			return fmt.Errorf("snapshot manifest: %w", err)
		}
	}

	checksum, count, err := backupDigest(targetPath)
	if err != nil {
		return fmt.Errorf("checksum backup %s: %w", targetPath, err)
	}

	var b strings.Builder
	writeIntField(&b, "version", backupVersion)
	writeStringField(&b, "created_at", time.Now().UTC().Format(timeLayout))
	writeIntField(&b, "record_count", count)
	writeStringField(&b, "checksum", checksum)
	metaPath := filepath.Join(targetPath, backupMetaName)
	if err := writeFileAtomic(targetPath, metaPath, []byte(b.String())); err != nil {
		return fmt.Errorf("write backup meta %s: %w", metaPath, err)
	}

	s.logger.Info("backup created", "target", targetPath, "records", count)
	return nil
}

// VerifyBackup recomputes the snapshot checksum and compares it to the
// recorded one. A missing or malformed backup.meta means "not a valid
// backup" (false, nil); only genuine read failures return an error.
func (s *FileRecordStore) VerifyBackup(ctx context.Context, path string) (bool, error) {
	meta, err := readBackupMeta(path)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, ErrBackupInvalid) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if meta.Version != backupVersion {
		return false, nil
	}

	checksum, count, err := backupDigest(path)
	if err != nil {
		return false, fmt.Errorf("checksum backup %s: %w", path, err)
	}
	return count == meta.RecordCount && checksum == meta.Checksum, nil
}

// RestoreBackup replaces the records directory with the snapshot's
// contents. The snapshot is verified first and the restore refuses to run
// when verification fails, so a damaged backup can never clobber a healthy
// store. The swap is staged: the snapshot is copied beside the records
// directory, then the two are exchanged by rename.
func (s *FileRecordStore) RestoreBackup(ctx context.Context, sourcePath string) error {
	ok, err := s.VerifyBackup(ctx, sourcePath)
	if err != nil {
		return fmt.Errorf("verify backup %s: %w", sourcePath, err)
	}
	if !ok {
		return fmt.Errorf("backup %s: %w", sourcePath, ErrBackupInvalid)
	}

	parent := filepath.Dir(s.dir)
	staging, err := os.MkdirTemp(parent, ".riskfile-restore-*")
	if err != nil {
		return fmt.Errorf("create restore staging dir: %w", err)
	}
	success := false
	defer func() {
		if !success {
			os.RemoveAll(staging)
		}
	}()

	entries, err := os.ReadDir(sourcePath)
	if err != nil {
		return fmt.Errorf("read backup %s: %w", sourcePath, err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := entry.Name()
		if entry.IsDir() || name == backupMetaName {
			continue
		}
		if err := copyFile(filepath.Join(staging, name), filepath.Join(sourcePath, name)); err != nil {
			return fmt.Errorf("stage restore of %q: %w", name, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	aside := s.dir + ".restore-old"
	if err := os.RemoveAll(aside); err != nil {
		return fmt.Errorf("clear previous restore remnant %s: %w", aside, err)
	}
	if err := os.Rename(s.dir, aside); err != nil {
		return fmt.Errorf("set aside records directory %s: %w", s.dir, err)
	}
	if err := os.Rename(staging, s.dir); err != nil {
		// Put the original back; the store must never be left without
		// a records directory.
		if rbErr := os.Rename(aside, s.dir); rbErr != nil {
			return fmt.Errorf("restore swap failed (%v) and rollback failed: %w", err, rbErr)
		}
		return fmt.Errorf("swap in restored records directory: %w", err)
	}
	success = true
	if err := os.RemoveAll(aside); err != nil {
		s.logger.Warn("could not remove pre-restore records", "path", aside, "error", err)
	}

	if err := s.loadManifestLocked(); err != nil {
		if rbErr := s.rebuildManifestLocked(); rbErr != nil {
			s.logger.Warn("manifest rebuild after restore failed", "error", rbErr)
		}
	}

	s.logger.Info("backup restored", "source", sourcePath, "records", len(s.manifest))
	return nil
}

// ListBackups returns every snapshot found directly under dir, newest
// first. Subdirectories without a readable backup.meta are skipped.
func (s *FileRecordStore) ListBackups(ctx context.Context, dir string) ([]BackupInfo, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list backups in %s: %w", dir, err)
	}

	infos := make([]BackupInfo, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		meta, err := readBackupMeta(path)
		if err != nil {
			continue
		}
		size, err := dirSize(path)
		if err != nil {
			return nil, fmt.Errorf("size backup %s: %w", path, err)
		}
		infos = append(infos, BackupInfo{
			Path:        path,
			CreatedAt:   meta.CreatedAt,
			RecordCount: meta.RecordCount,
			SizeBytes:   size,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

// PruneBackups deletes the oldest snapshots under dir until at most keep
// remain, reporting how many were removed.
func (s *FileRecordStore) PruneBackups(ctx context.Context, dir string, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must be non-negative, got %d", keep)
	}
	infos, err := s.ListBackups(ctx, dir)
	if err != nil {
		return 0, err
	}
	if len(infos) <= keep {
		return 0, nil
	}

	removed := 0
	for _, info := range infos[keep:] {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := os.RemoveAll(info.Path); err != nil {
			return removed, fmt.Errorf("remove backup %s: %w", info.Path, err)
		}
		s.logger.Info("backup pruned", "path", info.Path, "created_at", info.CreatedAt)
		removed++
	}
	return removed, nil
}

// ----------------------------------------------------------------------------
// Snapshot internals
// ----------------------------------------------------------------------------

// backupDigest hashes every record file in dir in sorted-name order: each
// file contributes its name and the SHA-256 of its content. Returns the
// hex digest and the record count.
func backupDigest(dir string) (string, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordFileExt) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	digest := sha256.New()
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return "", 0, err
		}
		sum := sha256.Sum256(data)
		digest.Write([]byte(name))
		digest.Write(sum[:])
	}
	return hex.EncodeToString(digest.Sum(nil)), len(names), nil
}

// readBackupMeta parses dir's backup.meta. Malformed content wraps
// ErrBackupInvalid; a missing file surfaces fs.ErrNotExist.
func readBackupMeta(dir string) (backupMeta, error) {
	path := filepath.Join(dir, backupMetaName)
	data, err := os.ReadFile(path)
	if err != nil {
		return backupMeta{}, err
	}

	meta := backupMeta{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, val, err := decodeLine(line)
		if err != nil {
			return backupMeta{}, fmt.Errorf("%w: meta %s: %v", ErrBackupInvalid, path, err)
		}
		switch key {
		case "version":
			if val.isString {
				return backupMeta{}, fmt.Errorf("%w: meta %s: version must be a number", ErrBackupInvalid, path)
			}
			meta.Version = val.number
		case "created_at":
			t, err := time.Parse(timeLayout, val.text)
			if err != nil {
				return backupMeta{}, fmt.Errorf("%w: meta %s: bad created_at: %v", ErrBackupInvalid, path, err)
			}
			meta.CreatedAt = t.UTC()
		case "record_count":
			if val.isString {
				return backupMeta{}, fmt.Errorf("%w: meta %s: record_count must be a number", ErrBackupInvalid, path)
			}
			meta.RecordCount = val.number
		case "checksum":
			meta.Checksum = val.text
		}
	}
	if meta.Version == 0 || meta.Checksum == "" {
		return backupMeta{}, fmt.Errorf("%w: meta %s: incomplete", ErrBackupInvalid, path)
	}
	return meta, nil
}

// copyFile copies src to dst through the store's staging idiom so a
// partial copy never leaves a truncated destination.
func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	dir := filepath.Dir(dst)
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

	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(tmp, in, buf); err != nil {
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("rename into %s: %w", dst, err)
	}
	success = true
	return nil
}

// dirSize sums the sizes of the regular files directly under dir.
func dirSize(dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}
