// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build !linux

package bfile

import "os"

// adviseRandom is a no-op where posix_fadvise isn't available.
func adviseRandom(*os.File) error {
	return nil
}

func datasync(f *os.File) error {
	return f.Sync()
}
