// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package nrio

import (
	"fmt"

	"github.com/nrcore/nrio/internal/bitset"
	"github.com/nrcore/nrio/internal/format"
)

// resolve walks the trie from the user node, one level per key byte.  With
// create set, missing levels are allocated on the way down; otherwise a
// missing level is reported as ErrKeyNotFound.
func (s *Store) resolve(key []byte, create bool) (*node, error) {
	n, err := s.loadNode(format.UserOffset)
	if err != nil {
		return nil, err
	}
	for i, b := range key {
		child, err := s.childOf(n, b, create)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, fmt.Errorf("%w: %q (no level for byte %#x at key index %d)", ErrKeyNotFound, key, b, i)
		}
		n = child
	}
	return n, nil
}

// childOf returns the node one level below n for key byte b, or nil if
// there is none and create is false.
func (s *Store) childOf(n *node, b byte, create bool) (*node, error) {
	bank, err := s.bankFor(n, b, create)
	if err != nil || bank == nil {
		return nil, err
	}

	slot := &bank.Slots[b-bank.RangeStart]
	if !slot.IsEmpty() {
		return s.loadNode(slot.Offset())
	}
	if !create {
		return nil, nil
	}

	child, err := s.appendNode(0, format.Ptr{})
	if err != nil {
		return nil, err
	}
	*slot = format.NodePtr(child.off)
	if err := s.storeNode(bank); err != nil {
		return nil, err
	}
	return child, nil
}

// bankFor finds the node in n's chain whose window covers b, following
// sibling links or the chain's bank map.
func (s *Store) bankFor(n *node, b byte, create bool) (*node, error) {
	for !n.Covers(b) {
		switch {
		case n.Next.IsBankMap():
			return s.bankFromMap(n.Next.Offset(), b, create)
		case n.Next.IsNode():
			next, err := s.loadNode(n.Next.Offset())
			if err != nil {
				return nil, err
			}
			n = next
		case !create:
			return nil, nil
		default:
			sib, err := s.appendNode(b&^(BankSize-1), format.Ptr{})
			if err != nil {
				return nil, err
			}
			n.Next = format.NodePtr(sib.off)
			if err := s.storeNode(n); err != nil {
				return nil, err
			}
			n = sib
		}
	}
	return n, nil
}

func (s *Store) bankFromMap(mapOff uint64, b byte, create bool) (*node, error) {
	m, err := s.loadBankMap(mapOff)
	if err != nil {
		return nil, err
	}
	i := b / BankSize
	if off := m.Banks[i]; off != 0 {
		n, err := s.loadNode(off)
		if err != nil {
			return nil, err
		}
		if !n.Covers(b) {
			return nil, fmt.Errorf("%w: bank map at %d maps byte %d to node covering [%d, %d)",
				ErrCorruptFormat, mapOff, b, n.RangeStart, int(n.RangeStart)+BankSize)
		}
		return n, nil
	}
	if !create {
		return nil, nil
	}

	n, err := s.appendNode(b&^(BankSize-1), format.BankMapPtr(mapOff))
	if err != nil {
		return nil, err
	}
	m.Banks[i] = n.off
	if err := s.storeBankMap(mapOff, m); err != nil {
		return nil, err
	}
	return n, nil
}

// chain returns every node in the chain starting at head.  For a compacted
// chain that is the set of nodes the bank map points at, in bank order.
func (s *Store) chain(head *node) ([]*node, error) {
	if head.Next.IsBankMap() {
		m, err := s.loadBankMap(head.Next.Offset())
		if err != nil {
			return nil, err
		}
		var nodes []*node
		for _, off := range m.Banks {
			if off == 0 {
				continue
			}
			n, err := s.loadNode(off)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		}
		return nodes, nil
	}

	nodes := []*node{head}
	for n := head; n.Next.IsNode(); {
		next, err := s.loadNode(n.Next.Offset())
		if err != nil {
			return nil, err
		}
		if len(nodes) >= format.BankCount {
			return nil, fmt.Errorf("%w: sibling chain at %d longer than %d nodes", ErrCorruptFormat, head.off, format.BankCount)
		}
		nodes = append(nodes, next)
		n = next
	}
	return nodes, nil
}

// Compact replaces the sibling chain under key with a bank map, so later
// lookups through it take one hop instead of a walk.  It returns false if
// the chain was already compacted.
func (s *Store) Compact(key []byte) (bool, error) {
	head, err := s.resolve(key, false)
	if err != nil {
		return false, err
	}
	if head.Next.IsBankMap() {
		return false, nil
	}

	nodes, err := s.chain(head)
	if err != nil {
		return false, err
	}
	var m format.BankMap
	for _, n := range nodes {
		m.Banks[n.RangeStart/BankSize] = n.off
	}

	mapOff := uint64(s.f.Len())
	if err := s.storeBankMap(mapOff, &m); err != nil {
		return false, fmt.Errorf("Compact(%q): %w", key, err)
	}
	for _, n := range nodes {
		n.Next = format.BankMapPtr(mapOff)
		if err := s.storeNode(n); err != nil {
			return false, fmt.Errorf("Compact(%q): %w", key, err)
		}
	}

	s.logger.Info("compacted sibling chain", "key", string(key), "nodes", len(nodes), "bankMap", mapOff)
	return true, nil
}

// ChildIndexes returns, in ascending order, every byte value b for which
// key+b has been created.
func (s *Store) ChildIndexes(key []byte) ([]int, error) {
	head, err := s.resolve(key, false)
	if err != nil {
		return nil, err
	}
	nodes, err := s.chain(head)
	if err != nil {
		return nil, err
	}

	children := bitset.New(256)
	for _, n := range nodes {
		for i, slot := range n.Slots {
			if !slot.IsEmpty() {
				children.Set(int(n.RangeStart) + i)
			}
		}
	}
	return children.AppendSet(make([]int, 0, children.Count())), nil
}
