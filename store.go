// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package nrio

import (
	"fmt"
	"log/slog"

	"github.com/nrcore/nrio/internal/bfile"
	"github.com/nrcore/nrio/internal/format"
)

const (
	// BankSize is the number of key-byte values one index node covers.
	BankSize = format.BankSize
	// DefaultBlockSize is the block size used for records created from
	// empty values.
	DefaultBlockSize = 4096
)

// Store is an open store file.
type Store struct {
	f                *bfile.File
	logger           *slog.Logger
	defaultBlockSize uint32
}

// Open opens the store at path, creating and initializing it if the file
// doesn't exist or is empty.
func Open(path string, opts ...Option) (*Store, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.defaultBlockSize == 0 {
		return nil, fmt.Errorf("nrio.Open: default block size must be positive")
	}

	f, err := bfile.Open(path,
		bfile.WithCacheSize(options.cacheSize),
		bfile.WithWriteCaching(options.writeCaching),
		bfile.WithLogger(options.logger))
	if err != nil {
		return nil, fmt.Errorf("nrio.Open: %w", err)
	}

	s := &Store{
		f:                f,
		logger:           options.logger,
		defaultBlockSize: options.defaultBlockSize,
	}

	if f.Len() == 0 {
		if err := f.Write(0, format.InitialLayout()); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("nrio.Open: writing initial layout: %w", err)
		}
		s.logger.Info("initialized new store", "path", path)
	}

	// catch a file that isn't a store before anything is appended to it
	if _, err := s.loadNode(format.UserOffset); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("nrio.Open(%s): %w", path, err)
	}

	return s, nil
}

// Path returns the path of the store file.
func (s *Store) Path() string {
	return s.f.Path()
}

// Flush writes any cached bytes back and syncs the store file.
func (s *Store) Flush() error {
	return s.f.Flush()
}

// Close flushes and closes the store.  Multiple closes are fine.
func (s *Store) Close() error {
	return s.f.Close()
}

// node is an index node along with its location in the store.
type node struct {
	off uint64
	format.IndexNode
}

// block is a data block descriptor along with its location in the store.
// The payload starts at off + format.DataBlockHeaderSize.
type block struct {
	off uint64
	format.DataBlock
}

func (b *block) payload() int64 {
	return int64(b.off) + format.DataBlockHeaderSize
}

// FileRecord is a handle to the record describing one value stream.  The
// Store refreshes it on every read or write through it.
type FileRecord struct {
	off uint64
	rec format.FileRecord
}

// Offset returns the record's location in the store file.
func (r *FileRecord) Offset() uint64 {
	return r.off
}

// Size returns the logical size of the value as of the last operation
// through this handle.
func (r *FileRecord) Size() uint64 {
	return r.rec.Size
}

// BlockSize returns the payload capacity of each of the value's blocks.
func (r *FileRecord) BlockSize() uint32 {
	return r.rec.BlockSize
}

func (s *Store) readRecord(what string, off uint64, n int) ([]byte, error) {
	if off == 0 || off > uint64(s.f.Len()) {
		return nil, fmt.Errorf("%w: %s offset %d outside of %d-byte store", ErrCorruptFormat, what, off, s.f.Len())
	}
	b, err := s.f.Read(int64(off), n)
	if err != nil {
		return nil, fmt.Errorf("reading %s at %d: %w", what, off, err)
	}
	return b, nil
}

func (s *Store) loadNode(off uint64) (*node, error) {
	var b []byte
	var err error
	if off == format.RootOffset {
		b, err = s.f.Read(0, format.IndexNodeSize)
	} else {
		b, err = s.readRecord("index node", off, format.IndexNodeSize)
	}
	if err != nil {
		return nil, err
	}
	n := &node{off: off}
	if err := n.UnmarshalBytes(b); err != nil {
		return nil, fmt.Errorf("index node at %d: %w", off, err)
	}
	return n, nil
}

func (s *Store) storeNode(n *node) error {
	var buf [format.IndexNodeSize]byte
	if err := n.MarshalTo(buf[:]); err != nil {
		return err
	}
	return s.f.Write(int64(n.off), buf[:])
}

// appendNode writes a fresh index node at the end of the store.
func (s *Store) appendNode(rangeStart uint8, next format.Ptr) (*node, error) {
	n := &node{
		off:       uint64(s.f.Len()),
		IndexNode: format.IndexNode{RangeStart: rangeStart, Next: next},
	}
	if err := s.storeNode(n); err != nil {
		return nil, fmt.Errorf("appending index node: %w", err)
	}
	s.logger.Debug("allocated index node", "off", n.off, "rangeStart", rangeStart)
	return n, nil
}

func (s *Store) loadBankMap(off uint64) (*format.BankMap, error) {
	b, err := s.readRecord("bank map", off, format.BankMapSize)
	if err != nil {
		return nil, err
	}
	m := new(format.BankMap)
	if err := m.UnmarshalBytes(b); err != nil {
		return nil, fmt.Errorf("bank map at %d: %w", off, err)
	}
	return m, nil
}

func (s *Store) storeBankMap(off uint64, m *format.BankMap) error {
	var buf [format.BankMapSize]byte
	if err := m.MarshalTo(buf[:]); err != nil {
		return err
	}
	return s.f.Write(int64(off), buf[:])
}

func (s *Store) loadFileRecord(off uint64) (*FileRecord, error) {
	b, err := s.readRecord("file record", off, format.FileRecordSize)
	if err != nil {
		return nil, err
	}
	r := &FileRecord{off: off}
	if err := r.rec.UnmarshalBytes(b); err != nil {
		return nil, fmt.Errorf("file record at %d: %w", off, err)
	}
	return r, nil
}

func (s *Store) storeFileRecord(r *FileRecord) error {
	var buf [format.FileRecordSize]byte
	if err := r.rec.MarshalTo(buf[:]); err != nil {
		return err
	}
	return s.f.Write(int64(r.off), buf[:])
}

func (s *Store) loadBlock(off uint64) (*block, error) {
	b, err := s.readRecord("data block", off, format.DataBlockHeaderSize)
	if err != nil {
		return nil, err
	}
	blk := &block{off: off}
	if err := blk.UnmarshalBytes(b); err != nil {
		return nil, fmt.Errorf("data block at %d: %w", off, err)
	}
	return blk, nil
}

func (s *Store) storeBlock(blk *block) error {
	var buf [format.DataBlockHeaderSize]byte
	if err := blk.MarshalTo(buf[:]); err != nil {
		return err
	}
	return s.f.Write(int64(blk.off), buf[:])
}
