// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package format

// InitialLayout returns the bytes of an empty store: the root, system and
// user index nodes followed by the reserved block-recycling record. The
// root's first two slots point at the system and user nodes.
//
// Nothing reads or writes the recycling record after initialization.
func InitialLayout() []byte {
	buf := make([]byte, LayoutSize)

	root := IndexNode{File: RecyclingOffset}
	root.Slots[0] = NodePtr(SystemOffset)
	root.Slots[1] = NodePtr(UserOffset)

	var system, user IndexNode
	var recycling FileRecord

	// buffer sizes are fixed above, so these can't fail
	_ = root.MarshalTo(buf[RootOffset:])
	_ = system.MarshalTo(buf[SystemOffset:])
	_ = user.MarshalTo(buf[UserOffset:])
	_ = recycling.MarshalTo(buf[RecyclingOffset:])

	return buf
}
