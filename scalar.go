// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package nrio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Set writes value at the start of key's value, creating the key and its
// record if needed.  A new record gets a single block sized to fit value.
// A shorter value overwrites only a prefix of an existing longer one.
func (s *Store) Set(key, value []byte) error {
	blockSize := uint32(len(value))
	if blockSize == 0 {
		blockSize = s.defaultBlockSize
	}
	r, err := s.GetOrCreateFile(key, blockSize)
	if err != nil {
		return err
	}
	if _, err := s.WriteToFile(r, value, 0); err != nil {
		return fmt.Errorf("Set(%q): %w", key, err)
	}
	return nil
}

// Read returns up to n bytes from the start of key's value.  It fails with
// ErrKeyNotFound if the key has no record.
func (s *Store) Read(key []byte, n int) ([]byte, error) {
	r, ok, err := s.GetFile(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("Read(%q): %w: no file record", key, ErrKeyNotFound)
	}
	return s.ReadFromFile(r, 0, n)
}

// ReadOrSet returns the first len(def) bytes of key's value, first storing
// def if the value is missing or shorter than that.
//
// The read and the write are separate steps: two callers racing on the
// same new key can both end up writing their default.
func (s *Store) ReadOrSet(key, def []byte) ([]byte, error) {
	b, err := s.Read(key, len(def))
	if err == nil && len(b) == len(def) {
		return b, nil
	}
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}
	if err := s.Set(key, def); err != nil {
		return nil, err
	}
	return def, nil
}

func (s *Store) readFixed(key []byte, n int) ([]byte, error) {
	b, err := s.Read(key, n)
	if err != nil {
		return nil, err
	}
	if len(b) < n {
		return nil, fmt.Errorf("reading %d-byte value of %q: %w", n, key, io.ErrUnexpectedEOF)
	}
	return b, nil
}

func (s *Store) SetInt32(key []byte, v int32) error {
	return s.SetUint32(key, uint32(v))
}

func (s *Store) SetUint32(key []byte, v uint32) error {
	return s.Set(key, binary.LittleEndian.AppendUint32(nil, v))
}

func (s *Store) SetInt64(key []byte, v int64) error {
	return s.SetUint64(key, uint64(v))
}

func (s *Store) SetUint64(key []byte, v uint64) error {
	return s.Set(key, binary.LittleEndian.AppendUint64(nil, v))
}

func (s *Store) ReadInt32(key []byte) (int32, error) {
	v, err := s.ReadUint32(key)
	return int32(v), err
}

func (s *Store) ReadUint32(key []byte) (uint32, error) {
	b, err := s.readFixed(key, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (s *Store) ReadInt64(key []byte) (int64, error) {
	v, err := s.ReadUint64(key)
	return int64(v), err
}

func (s *Store) ReadUint64(key []byte) (uint64, error) {
	b, err := s.readFixed(key, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (s *Store) ReadOrSetInt32(key []byte, def int32) (int32, error) {
	v, err := s.ReadOrSetUint32(key, uint32(def))
	return int32(v), err
}

func (s *Store) ReadOrSetUint32(key []byte, def uint32) (uint32, error) {
	b, err := s.ReadOrSet(key, binary.LittleEndian.AppendUint32(nil, def))
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (s *Store) ReadOrSetInt64(key []byte, def int64) (int64, error) {
	v, err := s.ReadOrSetUint64(key, uint64(def))
	return int64(v), err
}

func (s *Store) ReadOrSetUint64(key []byte, def uint64) (uint64, error) {
	b, err := s.ReadOrSet(key, binary.LittleEndian.AppendUint64(nil, def))
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
