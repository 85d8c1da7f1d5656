// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package nrio

import (
	"fmt"

	"github.com/nrcore/nrio/internal/unsafestring"
)

// CreateFile creates the trie path for key if needed and attaches a new,
// empty file record with the given block size to it.  It fails with
// ErrAlreadyExists if the key already has a record.
func (s *Store) CreateFile(key []byte, blockSize uint32) (*FileRecord, error) {
	if blockSize == 0 {
		return nil, fmt.Errorf("CreateFile(%q): %w: block size must be positive", key, ErrOutOfRange)
	}
	n, err := s.resolve(key, true)
	if err != nil {
		return nil, fmt.Errorf("CreateFile(%q): %w", key, err)
	}
	if n.File != 0 {
		return nil, fmt.Errorf("CreateFile(%q): %w", key, ErrAlreadyExists)
	}

	r := &FileRecord{off: uint64(s.f.Len())}
	r.rec.BlockSize = blockSize
	if err := s.storeFileRecord(r); err != nil {
		return nil, fmt.Errorf("CreateFile(%q): %w", key, err)
	}
	n.File = r.off
	if err := s.storeNode(n); err != nil {
		return nil, fmt.Errorf("CreateFile(%q): %w", key, err)
	}

	s.logger.Debug("created file record", "key", string(key), "off", r.off, "blockSize", blockSize)
	return r, nil
}

// GetFile returns the file record attached to key.  The key's trie path
// must exist, otherwise ErrKeyNotFound is returned; if it exists but has no
// record attached GetFile returns false and no error.
func (s *Store) GetFile(key []byte) (*FileRecord, bool, error) {
	n, err := s.resolve(key, false)
	if err != nil {
		return nil, false, fmt.Errorf("GetFile(%q): %w", key, err)
	}
	if n.File == 0 {
		return nil, false, nil
	}
	r, err := s.loadFileRecord(n.File)
	if err != nil {
		return nil, false, fmt.Errorf("GetFile(%q): %w", key, err)
	}
	return r, true, nil
}

// GetOrCreateFile returns the record attached to key, creating the path
// and the record as needed.  blockSize is only used for a new record, but
// must be positive either way; a rejected call leaves the store untouched.
func (s *Store) GetOrCreateFile(key []byte, blockSize uint32) (*FileRecord, error) {
	if blockSize == 0 {
		return nil, fmt.Errorf("GetOrCreateFile(%q): %w: block size must be positive", key, ErrOutOfRange)
	}
	n, err := s.resolve(key, true)
	if err != nil {
		return nil, fmt.Errorf("GetOrCreateFile(%q): %w", key, err)
	}
	if n.File != 0 {
		r, err := s.loadFileRecord(n.File)
		if err != nil {
			return nil, fmt.Errorf("GetOrCreateFile(%q): %w", key, err)
		}
		return r, nil
	}
	return s.CreateFile(key, blockSize)
}

// CreateFileString is CreateFile for a string key, without copying it.
func (s *Store) CreateFileString(key string, blockSize uint32) (*FileRecord, error) {
	return s.CreateFile(unsafestring.ToBytes(key), blockSize)
}

// GetFileString is GetFile for a string key, without copying it.
func (s *Store) GetFileString(key string) (*FileRecord, bool, error) {
	return s.GetFile(unsafestring.ToBytes(key))
}

// FileSize returns the current logical size of the value behind r, as
// stored on disk.
func (s *Store) FileSize(r *FileRecord) (uint64, error) {
	cur, err := s.loadFileRecord(r.off)
	if err != nil {
		return 0, err
	}
	r.rec = cur.rec
	return cur.rec.Size, nil
}
