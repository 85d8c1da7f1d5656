// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package nrio

import (
	"errors"

	"github.com/nrcore/nrio/internal/bfile"
	"github.com/nrcore/nrio/internal/format"
)

var (
	// ErrIO is returned when the operating system rejects an open, read,
	// write or sync of the store file.
	ErrIO = bfile.ErrIO
	// ErrCorruptFormat is returned when a record read from the store has
	// the wrong magic number or otherwise fails validation.
	ErrCorruptFormat = format.ErrCorrupt
	// ErrOutOfRange is returned for offsets past the end of a value or file.
	ErrOutOfRange = bfile.ErrOutOfRange
	// ErrClosed is returned by every operation on a closed Store.
	ErrClosed = bfile.ErrClosed

	ErrKeyNotFound   = errors.New("key not found")
	ErrAlreadyExists = errors.New("file record already exists")
)
