// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package format

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	MagicIndexNode  = 0xAAAAAAAA
	MagicFileRecord = 0xBBBBBBBB
	MagicDataBlock  = 0xCCCCCCCC
	MagicBankMap    = 0xDDDDDDDD

	// BankSize is the number of key-byte values covered by one index node,
	// and the number of values per bank map bucket.
	BankSize = 16
	// BankCount is the number of buckets in a bank map.
	BankCount = 256 / BankSize

	IndexNodeSize  = 4 + 1 + 3 + 8 + 8 + 8*BankSize
	BankMapSize    = 4 + 4 + 8*BankCount
	FileRecordSize = 4 + 4 + 8 + 8 + 8
	// DataBlockHeaderSize is the size of a block descriptor; the payload
	// follows it directly.
	DataBlockHeaderSize = 4 + 4 + 4 + 4 + 8

	RootOffset      = 0
	SystemOffset    = IndexNodeSize
	UserOffset      = 2 * IndexNodeSize
	RecyclingOffset = 3 * IndexNodeSize
	// LayoutSize is the size of a freshly initialized store.
	LayoutSize = RecyclingOffset + FileRecordSize
)

// ErrCorrupt is returned when a record fails validation, most commonly
// because its magic number does not match the kind being loaded.
var ErrCorrupt = errors.New("corrupt store format")

func checkLen(kind string, b []byte, want int) error {
	if len(b) < want {
		return fmt.Errorf("%w: %s needs %d bytes, have %d", ErrCorrupt, kind, want, len(b))
	}
	return nil
}

func checkMagic(kind string, b []byte, want uint32) error {
	if got := binary.LittleEndian.Uint32(b[:4]); got != want {
		return fmt.Errorf("%w: bad %s magic %#x (want %#x)", ErrCorrupt, kind, got, want)
	}
	return nil
}

// IndexNode is one trie level covering key bytes [RangeStart, RangeStart+16).
type IndexNode struct {
	RangeStart uint8
	Next       Ptr
	File       uint64
	Slots      [BankSize]Ptr
}

// Covers reports whether b falls in the node's window.
func (n *IndexNode) Covers(b byte) bool {
	return int(b) >= int(n.RangeStart) && int(b) < int(n.RangeStart)+BankSize
}

func (n *IndexNode) MarshalTo(b []byte) error {
	if len(b) < IndexNodeSize {
		return fmt.Errorf("IndexNode.MarshalTo: buffer too short: %d < %d", len(b), IndexNodeSize)
	}
	b = b[:IndexNodeSize]
	binary.LittleEndian.PutUint32(b[0:4], MagicIndexNode)
	b[4] = n.RangeStart
	b[5], b[6], b[7] = 0, 0, 0
	binary.LittleEndian.PutUint64(b[8:16], encodeNext(n.Next))
	binary.LittleEndian.PutUint64(b[16:24], n.File)
	for i, p := range n.Slots {
		off := 24 + 8*i
		binary.LittleEndian.PutUint64(b[off:off+8], encodeSlot(p))
	}
	return nil
}

func (n *IndexNode) UnmarshalBytes(b []byte) error {
	if err := checkLen("index node", b, IndexNodeSize); err != nil {
		return err
	}
	if err := checkMagic("index node", b, MagicIndexNode); err != nil {
		return err
	}
	n.RangeStart = b[4]
	if n.RangeStart%BankSize != 0 {
		return fmt.Errorf("%w: index node range start %d not a multiple of %d", ErrCorrupt, n.RangeStart, BankSize)
	}
	n.Next = decodeNext(binary.LittleEndian.Uint64(b[8:16]))
	n.File = binary.LittleEndian.Uint64(b[16:24])
	for i := range n.Slots {
		off := 24 + 8*i
		p, err := decodeSlot(binary.LittleEndian.Uint64(b[off : off+8]))
		if err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
		n.Slots[i] = p
	}
	return nil
}

// BankMap is the direct-lookup replacement for a chain of sibling nodes.
// Banks[b] is the offset of the node covering bucket b, or 0.
type BankMap struct {
	Banks [BankCount]uint64
}

func (m *BankMap) MarshalTo(b []byte) error {
	if len(b) < BankMapSize {
		return fmt.Errorf("BankMap.MarshalTo: buffer too short: %d < %d", len(b), BankMapSize)
	}
	binary.LittleEndian.PutUint32(b[0:4], MagicBankMap)
	binary.LittleEndian.PutUint32(b[4:8], 0)
	for i, off := range m.Banks {
		binary.LittleEndian.PutUint64(b[8+8*i:16+8*i], off)
	}
	return nil
}

func (m *BankMap) UnmarshalBytes(b []byte) error {
	if err := checkLen("bank map", b, BankMapSize); err != nil {
		return err
	}
	if err := checkMagic("bank map", b, MagicBankMap); err != nil {
		return err
	}
	for i := range m.Banks {
		m.Banks[i] = binary.LittleEndian.Uint64(b[8+8*i : 16+8*i])
	}
	return nil
}

// FileRecord describes one logical value stream.
type FileRecord struct {
	BlockSize  uint32
	FirstBlock uint64
	LastBlock  uint64
	Size       uint64
}

func (r *FileRecord) MarshalTo(b []byte) error {
	if len(b) < FileRecordSize {
		return fmt.Errorf("FileRecord.MarshalTo: buffer too short: %d < %d", len(b), FileRecordSize)
	}
	binary.LittleEndian.PutUint32(b[0:4], MagicFileRecord)
	binary.LittleEndian.PutUint32(b[4:8], r.BlockSize)
	binary.LittleEndian.PutUint64(b[8:16], r.FirstBlock)
	binary.LittleEndian.PutUint64(b[16:24], r.LastBlock)
	binary.LittleEndian.PutUint64(b[24:32], r.Size)
	return nil
}

func (r *FileRecord) UnmarshalBytes(b []byte) error {
	if err := checkLen("file record", b, FileRecordSize); err != nil {
		return err
	}
	if err := checkMagic("file record", b, MagicFileRecord); err != nil {
		return err
	}
	r.BlockSize = binary.LittleEndian.Uint32(b[4:8])
	r.FirstBlock = binary.LittleEndian.Uint64(b[8:16])
	r.LastBlock = binary.LittleEndian.Uint64(b[16:24])
	r.Size = binary.LittleEndian.Uint64(b[24:32])
	return nil
}

// DataBlock is the descriptor in front of one fixed-capacity payload segment.
type DataBlock struct {
	BlockSize uint32
	UsedBytes uint32
	Next      uint64
}

// Full reports whether every payload byte of the block is in use.
func (d *DataBlock) Full() bool {
	return d.UsedBytes == d.BlockSize
}

func (d *DataBlock) MarshalTo(b []byte) error {
	if len(b) < DataBlockHeaderSize {
		return fmt.Errorf("DataBlock.MarshalTo: buffer too short: %d < %d", len(b), DataBlockHeaderSize)
	}
	binary.LittleEndian.PutUint32(b[0:4], MagicDataBlock)
	binary.LittleEndian.PutUint32(b[4:8], d.BlockSize)
	binary.LittleEndian.PutUint32(b[8:12], d.UsedBytes)
	binary.LittleEndian.PutUint32(b[12:16], 0)
	binary.LittleEndian.PutUint64(b[16:24], d.Next)
	return nil
}

func (d *DataBlock) UnmarshalBytes(b []byte) error {
	if err := checkLen("data block", b, DataBlockHeaderSize); err != nil {
		return err
	}
	if err := checkMagic("data block", b, MagicDataBlock); err != nil {
		return err
	}
	d.BlockSize = binary.LittleEndian.Uint32(b[4:8])
	d.UsedBytes = binary.LittleEndian.Uint32(b[8:12])
	d.Next = binary.LittleEndian.Uint64(b[16:24])
	if d.UsedBytes > d.BlockSize {
		return fmt.Errorf("%w: data block uses %d of %d bytes", ErrCorrupt, d.UsedBytes, d.BlockSize)
	}
	return nil
}
