// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package bfile provides a random-access file with a single sliding
// cache window.  Everything above it treats the file as a flat,
// growable byte array addressed by absolute offset.
package bfile

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// DefaultCacheSize is the size of the cache window in bytes.
const DefaultCacheSize = 4096

var (
	ErrIO         = errors.New("i/o failure")
	ErrOutOfRange = errors.New("offset out of range")
	ErrClosed     = errors.New("file already closed")
)

// Option configures a File.
type Option func(*options)

type options struct {
	cacheSize    int
	writeCaching bool
	logger       *slog.Logger
}

// WithCacheSize sets the size of the cache window.
func WithCacheSize(n int) Option {
	return func(opts *options) {
		opts.cacheSize = n
	}
}

// WithWriteCaching controls whether writes that land inside the cache
// window are held there until the window moves or the file is flushed.
// When disabled every write goes straight to the file.
func WithWriteCaching(enabled bool) Option {
	return func(opts *options) {
		opts.writeCaching = enabled
	}
}

// WithLogger sets an optional logger.  If not provided, no logging output
// will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// File is a buffered random-access file.  It is not safe for concurrent use.
type File struct {
	f            *os.File
	path         string
	size         int64
	c            window
	writeCaching bool
	logger       *slog.Logger
	isClosed     atomic.Bool
}

// Open opens the file at path for reading and writing, creating it if it
// can't be opened.
func Open(path string, opts ...Option) (*File, error) {
	options := options{
		cacheSize:    DefaultCacheSize,
		writeCaching: true,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.cacheSize <= 0 {
		return nil, fmt.Errorf("bfile.Open: cache size must be positive, got %d", options.cacheSize)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return nil, fmt.Errorf("%w: os.OpenFile(%s): %w", ErrIO, path, err)
		}
	}

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: seek to end of %s: %w", ErrIO, path, err)
	}

	// access through the trie is scattered; readahead mostly wastes IO
	if err := adviseRandom(f); err != nil {
		options.logger.Warn("fadvise failed, continuing anyway", "path", path, "err", err)
	}

	bf := &File{
		f:            f,
		path:         path,
		size:         size,
		c:            window{buf: make([]byte, options.cacheSize)},
		writeCaching: options.writeCaching,
		logger:       options.logger,
	}
	if err := bf.load(0); err != nil {
		_ = f.Close()
		return nil, err
	}
	return bf, nil
}

// Path returns the path the file was opened with.
func (f *File) Path() string {
	return f.path
}

// Len returns the current size of the file, including bytes still held in
// the cache window.
func (f *File) Len() int64 {
	return f.size
}

func (f *File) checkOpen() error {
	if f.isClosed.Load() {
		return ErrClosed
	}
	return nil
}

// Read returns up to n bytes starting at off.  The result is short if the
// end of the file is reached, and empty if off is at or past the end.
func (f *File) Read(off int64, n int) ([]byte, error) {
	if err := f.checkOpen(); err != nil {
		return nil, err
	}
	if off < 0 || n < 0 {
		return nil, fmt.Errorf("%w: read of %d bytes at %d", ErrOutOfRange, n, off)
	}
	if off >= f.size || n == 0 {
		return []byte{}, nil
	}
	if rem := f.size - off; int64(n) > rem {
		n = int(rem)
	}
	out := make([]byte, n)
	if err := f.readInto(out, off); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadAt implements io.ReaderAt.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if err := f.checkOpen(); err != nil {
		return 0, err
	}
	if off < 0 {
		return 0, fmt.Errorf("%w: read at %d", ErrOutOfRange, off)
	}
	if off >= f.size {
		return 0, io.EOF
	}
	n := len(p)
	if rem := f.size - off; int64(n) > rem {
		n = int(rem)
	}
	if err := f.readInto(p[:n], off); err != nil {
		return 0, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// readInto fills p from off; the caller guarantees p lies inside the file.
func (f *File) readInto(p []byte, off int64) error {
	c := &f.c
	if c.contains(off, len(p)) {
		c.hits++
		copy(p, c.buf[off-c.off:])
		return nil
	}
	c.misses++

	if err := f.persist(); err != nil {
		return err
	}
	if c.fitsAligned(off, len(p)) {
		if err := f.load(off); err != nil {
			return err
		}
		if c.contains(off, len(p)) {
			copy(p, c.buf[off-c.off:])
			return nil
		}
	}

	// bigger than the window: the window is clean, so the file is current
	n, err := f.f.ReadAt(p, off)
	if err != nil && !(errors.Is(err, io.EOF) && n == len(p)) {
		return fmt.Errorf("%w: f.ReadAt(%d, len: %d): %w", ErrIO, off, len(p), err)
	}
	return nil
}

// Write stores p at off, growing the file if needed.
func (f *File) Write(off int64, p []byte) error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	if off < 0 {
		return fmt.Errorf("%w: write at %d", ErrOutOfRange, off)
	}
	if len(p) == 0 {
		return nil
	}
	if !f.writeCaching {
		return f.writeThrough(off, p)
	}

	c := &f.c
	if c.absorbs(off, len(p)) {
		c.hits++
	} else {
		c.misses++
		if err := f.persist(); err != nil {
			return err
		}
		if off <= f.size && c.fitsAligned(off, len(p)) {
			if err := f.load(off); err != nil {
				return err
			}
		}
		if !c.absorbs(off, len(p)) {
			return f.writeThrough(off, p)
		}
	}

	copy(c.buf[off-c.off:], p)
	if fill := int(off-c.off) + len(p); fill > c.fill {
		c.fill = fill
	}
	c.dirty = true
	if end := off + int64(len(p)); end > f.size {
		f.size = end
	}
	return nil
}

// WriteAt implements io.WriterAt.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	if err := f.Write(off, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (f *File) writeThrough(off int64, p []byte) error {
	if _, err := f.f.WriteAt(p, off); err != nil {
		return fmt.Errorf("%w: f.WriteAt(%d, len: %d): %w", ErrIO, off, len(p), err)
	}
	f.c.patch(off, p)
	if end := off + int64(len(p)); end > f.size {
		f.size = end
	}
	return nil
}

// Grow appends n zero bytes to the end of the file.
func (f *File) Grow(n int64) error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("%w: grow by %d", ErrOutOfRange, n)
	}
	if n == 0 {
		return nil
	}
	// any dirty bytes past the old end of file are rewritten when the
	// window is persisted, so extending underneath them is safe
	if err := f.f.Truncate(f.size + n); err != nil {
		return fmt.Errorf("%w: f.Truncate(%d): %w", ErrIO, f.size+n, err)
	}
	f.size += n
	return nil
}

// Truncate discards the cache window and empties the file.
func (f *File) Truncate() error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	f.c.reset()
	if err := f.f.Truncate(0); err != nil {
		return fmt.Errorf("%w: f.Truncate(0): %w", ErrIO, err)
	}
	f.size = 0
	return nil
}

// At returns the byte at index i.
func (f *File) At(i int64) (byte, error) {
	if err := f.checkOpen(); err != nil {
		return 0, err
	}
	if i < 0 || i >= f.size {
		return 0, fmt.Errorf("%w: index %d (len %d)", ErrOutOfRange, i, f.size)
	}
	var b [1]byte
	if err := f.readInto(b[:], i); err != nil {
		return 0, err
	}
	return b[0], nil
}

// SetAt replaces the byte at index i.  Unlike Write it never grows the file.
func (f *File) SetAt(i int64, b byte) error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	if i < 0 || i >= f.size {
		return fmt.Errorf("%w: index %d (len %d)", ErrOutOfRange, i, f.size)
	}
	return f.Write(i, []byte{b})
}

// Flush writes the cache window back if it is dirty and asks the kernel to
// push the file's data to stable storage.
func (f *File) Flush() error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	if err := f.persist(); err != nil {
		return err
	}
	if err := datasync(f.f); err != nil {
		return fmt.Errorf("%w: sync %s: %w", ErrIO, f.path, err)
	}
	return nil
}

// Close flushes the cache window and releases the file handle.  Multiple
// closes are fine.
func (f *File) Close() error {
	if f.isClosed.Swap(true) {
		return nil
	}
	persistErr := f.persist()
	if err := f.f.Close(); err != nil {
		return errors.Join(persistErr, fmt.Errorf("%w: close %s: %w", ErrIO, f.path, err))
	}
	return persistErr
}

// Stats describes the cache window, for tests and diagnostics.
type Stats struct {
	Hits         uint64
	Misses       uint64
	WindowOffset int64
	WindowFill   int
	Dirty        bool
}

func (f *File) Stats() Stats {
	return Stats{
		Hits:         f.c.hits,
		Misses:       f.c.misses,
		WindowOffset: f.c.off,
		WindowFill:   f.c.fill,
		Dirty:        f.c.dirty,
	}
}

// persist writes the window back to the file if it holds unwritten bytes.
func (f *File) persist() error {
	c := &f.c
	if !c.dirty {
		return nil
	}
	if _, err := f.f.WriteAt(c.buf[:c.fill], c.off); err != nil {
		return fmt.Errorf("%w: persisting cache window at %d: %w", ErrIO, c.off, err)
	}
	c.dirty = false
	return nil
}

// load replaces the window with the aligned block containing off.  The
// caller must have persisted a dirty window first.
func (f *File) load(off int64) error {
	c := &f.c
	aligned := c.align(off)
	n, err := f.f.ReadAt(c.buf, aligned)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: loading cache window at %d: %w", ErrIO, aligned, err)
	}
	c.off = aligned
	c.fill = n
	c.dirty = false
	f.logger.Debug("cache window loaded", "path", f.path, "off", aligned, "fill", n)
	return nil
}
