// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package format contains the fixed-size on-disk records of an nrio
// store and their little-endian encodings.
//
// A store file generally looks like:
//
//	┌───────────────────┐ 0
//	│ root index node   │
//	├───────────────────┤ 152
//	│ system index node │
//	├───────────────────┤ 304
//	│ user index node   │
//	├───────────────────┤ 456
//	│ recycling record  │
//	├───────────────────┤ 488
//	│ index nodes, bank │
//	│ maps, file        │
//	│ records and data  │
//	│ blocks, appended  │
//	│ in creation order │
//	└───────────────────┘
//
// Every record starts with a 32-bit magic number identifying its kind.
// An index node covers 16 consecutive key-byte values:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	| magic             |rs  | padding      |
//	+----+----+----+----+----+----+----+----+
//	| next (tagged)                         |
//	+----+----+----+----+----+----+----+----+
//	| attached file record                  |
//	+----+----+----+----+----+----+----+----+
//	| slot[0] (tagged) ... slot[15]         |
//	+----+----+----+----+----+----+----+----+
//
// The most significant bit of a tagged pointer is the tag bit. Callers
// never see raw pointer words: they are decoded into a Ptr here and
// encoded back when a record is marshaled.
package format
