// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package nrio is an embedded, single-file data store.  Keys are arbitrary
// byte strings resolved through an on-disk trie, one level per key byte.
// Any trie node can carry a file record: a growable byte stream stored as a
// chain of fixed-capacity blocks that supports random-offset reads and
// writes, including appends.
//
// Everything lives in one file that only ever grows.  Nothing is freed, so
// overwriting a value in place is cheap and deleting one is not possible.
//
// A Store is not safe for concurrent use, and nothing guards the file
// against other processes.  Writes may sit in the store's cache window
// until Flush or Close.
//
//	s, err := nrio.Open("app.nrio")
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//	if err := s.SetUint64([]byte("counter"), 42); err != nil {
//		return err
//	}
package nrio
