// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build linux

package bfile

import (
	"os"

	"golang.org/x/sys/unix"
)

func adviseRandom(f *os.File) error {
	return unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_RANDOM)
}

// datasync flushes file data and size, but not timestamps.
func datasync(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}
