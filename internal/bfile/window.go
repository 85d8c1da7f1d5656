// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package bfile

// window is the cached byte range [off, off+fill) of a File.  buf has the
// window's full capacity; bytes past fill are meaningless.
type window struct {
	buf   []byte
	off   int64
	fill  int
	dirty bool

	hits   uint64
	misses uint64
}

func (w *window) align(off int64) int64 {
	return off - off%int64(len(w.buf))
}

// contains reports whether [off, off+n) is entirely cached.
func (w *window) contains(off int64, n int) bool {
	return off >= w.off && off+int64(n) <= w.off+int64(w.fill)
}

// absorbs reports whether a write of n bytes at off can be taken by the
// window: it must start inside or right after the filled range and end
// within capacity.
func (w *window) absorbs(off int64, n int) bool {
	return off >= w.off &&
		off <= w.off+int64(w.fill) &&
		off+int64(n) <= w.off+int64(len(w.buf))
}

// fitsAligned reports whether [off, off+n) lies in a single aligned window.
func (w *window) fitsAligned(off int64, n int) bool {
	return off%int64(len(w.buf))+int64(n) <= int64(len(w.buf))
}

// patch copies the part of a write-through that overlaps the filled range
// into buf, keeping the window coherent with the file.
func (w *window) patch(off int64, p []byte) {
	start, end := off, off+int64(len(p))
	if start < w.off {
		start = w.off
	}
	if wEnd := w.off + int64(w.fill); end > wEnd {
		end = wEnd
	}
	if start >= end {
		return
	}
	copy(w.buf[start-w.off:end-w.off], p[start-off:end-off])
}

func (w *window) reset() {
	w.off = 0
	w.fill = 0
	w.dirty = false
}
