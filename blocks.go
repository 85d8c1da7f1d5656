// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package nrio

import (
	"fmt"

	"github.com/dgryski/go-farm"

	"github.com/nrcore/nrio/internal/format"
)

// Every block in a chain but the last is full, so the block holding logical
// offset o is block o/blockSize.  The one exception is an offset at the end
// of a value whose size is a multiple of the block size: it starts a block
// that doesn't exist yet.

// WriteToFile writes data into the value behind r starting at offset,
// overwriting what is there and extending the value past its end as
// needed.  offset may be at most the current size; values have no holes.
// It reports whether every byte was written.
func (s *Store) WriteToFile(r *FileRecord, data []byte, offset uint64) (bool, error) {
	cur, err := s.loadFileRecord(r.off)
	if err != nil {
		return false, err
	}
	if offset > cur.rec.Size {
		return false, fmt.Errorf("WriteToFile: %w: offset %d past end of %d-byte value", ErrOutOfRange, offset, cur.rec.Size)
	}
	if len(data) == 0 {
		r.rec = cur.rec
		return true, nil
	}
	if cur.rec.BlockSize == 0 {
		return false, fmt.Errorf("%w: file record at %d has zero block size", ErrCorruptFormat, cur.off)
	}

	if cur.rec.FirstBlock == 0 {
		if _, err := s.appendBlock(cur, nil); err != nil {
			return false, err
		}
	}

	blk, start, err := s.locate(cur, offset, true)
	if err != nil {
		return false, err
	}

	bs := uint64(cur.rec.BlockSize)
	written := 0
	for {
		local := offset + uint64(written) - start
		n := bs - local
		if rem := uint64(len(data) - written); n > rem {
			n = rem
		}
		if err := s.f.Write(blk.payload()+int64(local), data[written:written+int(n)]); err != nil {
			return false, fmt.Errorf("WriteToFile: %w", err)
		}
		written += int(n)
		if used := uint32(local + n); used > blk.UsedBytes {
			blk.UsedBytes = used
			if err := s.storeBlock(blk); err != nil {
				return false, fmt.Errorf("WriteToFile: %w", err)
			}
		}
		if written == len(data) {
			break
		}

		if blk, err = s.nextBlock(cur, blk, true); err != nil {
			return false, err
		}
		start += bs
	}

	if end := offset + uint64(len(data)); end > cur.rec.Size {
		cur.rec.Size = end
		if err := s.storeFileRecord(cur); err != nil {
			return false, fmt.Errorf("WriteToFile: %w", err)
		}
	}
	r.rec = cur.rec
	return true, nil
}

// ReadFromFile returns up to length bytes of the value behind r starting at
// offset.  Reads past the end of the value are short, and reads starting at
// or past it are empty; neither is an error.
func (s *Store) ReadFromFile(r *FileRecord, offset uint64, length int) ([]byte, error) {
	cur, err := s.loadFileRecord(r.off)
	if err != nil {
		return nil, err
	}
	r.rec = cur.rec
	if length < 0 {
		return nil, fmt.Errorf("ReadFromFile: %w: negative length %d", ErrOutOfRange, length)
	}
	if offset >= cur.rec.Size || length == 0 || cur.rec.FirstBlock == 0 {
		return []byte{}, nil
	}
	if rem := cur.rec.Size - offset; uint64(length) > rem {
		length = int(rem)
	}

	blk, start, err := s.locate(cur, offset, false)
	if err != nil {
		return nil, err
	}
	if blk == nil {
		return []byte{}, nil
	}

	out := make([]byte, 0, length)
	local := offset - start
	for len(out) < length {
		if used := uint64(blk.UsedBytes); local < used {
			n := used - local
			if want := uint64(length - len(out)); n > want {
				n = want
			}
			b, err := s.f.Read(blk.payload()+int64(local), int(n))
			if err != nil {
				return nil, fmt.Errorf("ReadFromFile: %w", err)
			}
			if uint64(len(b)) < n {
				return nil, fmt.Errorf("%w: data block at %d runs past end of store", ErrCorruptFormat, blk.off)
			}
			out = append(out, b...)
		}
		if len(out) == length || blk.Next == 0 {
			break
		}
		if blk, err = s.nextBlock(cur, blk, false); err != nil {
			return nil, err
		}
		local = 0
	}
	return out, nil
}

// Fingerprint returns the farmhash fingerprint of the entire value behind r.
func (s *Store) Fingerprint(r *FileRecord) (uint64, error) {
	size, err := s.FileSize(r)
	if err != nil {
		return 0, err
	}
	b, err := s.ReadFromFile(r, 0, int(size))
	if err != nil {
		return 0, err
	}
	return farm.Fingerprint64(b), nil
}

// locate returns the block holding logical offset, along with the logical
// offset of its first byte.  With create set a missing block at the end of
// the chain is allocated; otherwise a nil block is returned for it.
func (s *Store) locate(cur *FileRecord, offset uint64, create bool) (*block, uint64, error) {
	bs := uint64(cur.rec.BlockSize)

	if size := cur.rec.Size; offset == size && size%bs == 0 {
		last, err := s.chainBlock(cur, cur.rec.LastBlock)
		if err != nil {
			return nil, 0, err
		}
		start := size - uint64(last.UsedBytes)
		if !last.Full() {
			return last, start, nil
		}
		if !create {
			return nil, 0, nil
		}
		next, err := s.appendBlock(cur, last)
		return next, size, err
	}

	blk, err := s.chainBlock(cur, cur.rec.FirstBlock)
	if err != nil {
		return nil, 0, err
	}
	var start uint64
	for blk.Full() && start+bs <= offset {
		if blk.Next == 0 && !create {
			return nil, 0, nil
		}
		if blk, err = s.nextBlock(cur, blk, create); err != nil {
			return nil, 0, err
		}
		start += bs
	}
	return blk, start, nil
}

// nextBlock follows blk's link, appending a new block to the chain if there
// is none and create is set.
func (s *Store) nextBlock(cur *FileRecord, blk *block, create bool) (*block, error) {
	if blk.Next != 0 {
		return s.chainBlock(cur, blk.Next)
	}
	if !create {
		return nil, fmt.Errorf("%w: data block chain of record at %d ends early", ErrCorruptFormat, cur.off)
	}
	return s.appendBlock(cur, blk)
}

// chainBlock loads a block belonging to cur's chain.
func (s *Store) chainBlock(cur *FileRecord, off uint64) (*block, error) {
	blk, err := s.loadBlock(off)
	if err != nil {
		return nil, err
	}
	if blk.BlockSize != cur.rec.BlockSize {
		return nil, fmt.Errorf("%w: data block at %d has size %d, its record at %d says %d",
			ErrCorruptFormat, off, blk.BlockSize, cur.off, cur.rec.BlockSize)
	}
	return blk, nil
}

// appendBlock allocates a zero-filled block at the end of the store and
// links it after prev, or as the first block if prev is nil.  The new block
// is on disk before anything points at it.
func (s *Store) appendBlock(cur *FileRecord, prev *block) (*block, error) {
	blk := &block{
		off:       uint64(s.f.Len()),
		DataBlock: format.DataBlock{BlockSize: cur.rec.BlockSize},
	}
	if err := s.storeBlock(blk); err != nil {
		return nil, fmt.Errorf("appending data block: %w", err)
	}
	if err := s.f.Grow(int64(blk.BlockSize)); err != nil {
		return nil, fmt.Errorf("appending data block: %w", err)
	}

	if prev != nil {
		prev.Next = blk.off
		if err := s.storeBlock(prev); err != nil {
			return nil, err
		}
	} else {
		cur.rec.FirstBlock = blk.off
	}
	cur.rec.LastBlock = blk.off
	if err := s.storeFileRecord(cur); err != nil {
		return nil, err
	}

	s.logger.Debug("allocated data block", "record", cur.off, "off", blk.off, "size", blk.BlockSize)
	return blk, nil
}
