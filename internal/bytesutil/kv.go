// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package bytesutil

import (
	"bytes"
)

// CutKeyValue splits a single `key<sep>value` line around the first
// instance of sep, after dropping any trailing "\n" or "\r\n".  ok is false
// if sep does not appear or the key is empty.
//
// The results are slices of line, not copies.
func CutKeyValue(line []byte, sep byte) (key, value []byte, ok bool) {
	line = bytes.TrimSuffix(line, []byte{'\n'})
	line = bytes.TrimSuffix(line, []byte{'\r'})
	i := bytes.IndexByte(line, sep)
	if i <= 0 {
		return line, nil, false
	}
	return line[:i], line[i+1:], true
}
