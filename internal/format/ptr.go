// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package format

import "fmt"

const (
	tagBit     = uint64(1) << 63
	offsetMask = tagBit - 1
)

// PtrKind says what, if anything, a tagged pointer refers to.
type PtrKind uint8

const (
	Empty PtrKind = iota
	Node
	BankMapRef
)

func (k PtrKind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Node:
		return "node"
	case BankMapRef:
		return "bankmap"
	default:
		return fmt.Sprintf("PtrKind(%d)", uint8(k))
	}
}

// Ptr is a decoded tagged pointer.
type Ptr struct {
	kind PtrKind
	off  uint64
}

// NodePtr returns a pointer to the index node at off.
func NodePtr(off uint64) Ptr {
	return Ptr{kind: Node, off: off & offsetMask}
}

// BankMapPtr returns a pointer to the bank map at off.
func BankMapPtr(off uint64) Ptr {
	return Ptr{kind: BankMapRef, off: off & offsetMask}
}

func (p Ptr) Kind() PtrKind   { return p.kind }
func (p Ptr) Offset() uint64  { return p.off }
func (p Ptr) IsEmpty() bool   { return p.kind == Empty }
func (p Ptr) IsNode() bool    { return p.kind == Node }
func (p Ptr) IsBankMap() bool { return p.kind == BankMapRef }

func (p Ptr) String() string {
	if p.kind == Empty {
		return "empty"
	}
	return fmt.Sprintf("%s@%d", p.kind, p.off)
}

// decodeSlot decodes a child slot: zero is empty and anything else must
// carry the tag bit.
func decodeSlot(w uint64) (Ptr, error) {
	if w == 0 {
		return Ptr{}, nil
	}
	if w&tagBit == 0 {
		return Ptr{}, fmt.Errorf("%w: untagged child slot %#x", ErrCorrupt, w)
	}
	return NodePtr(w), nil
}

func encodeSlot(p Ptr) uint64 {
	if p.kind == Empty {
		return 0
	}
	return p.off | tagBit
}

// decodeNext decodes the next field of an index node: zero is empty, an
// untagged offset is the next sibling and a tagged one is a bank map.
func decodeNext(w uint64) Ptr {
	switch {
	case w == 0:
		return Ptr{}
	case w&tagBit != 0:
		return BankMapPtr(w)
	default:
		return NodePtr(w)
	}
}

func encodeNext(p Ptr) uint64 {
	switch p.kind {
	case Node:
		return p.off
	case BankMapRef:
		return p.off | tagBit
	default:
		return 0
	}
}
