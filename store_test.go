// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package nrio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/dgryski/go-farm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrcore/nrio/internal/format"
)

const digits = "1234567890"

type safeBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (s *safeBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return string(s.buf)
}

func (s *safeBuffer) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, p...)
	return len(p), nil
}

// tempStorePath returns the path of a file that doesn't exist yet and is
// removed when the test finishes.
func tempStorePath(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp("", "nrio-test.*.db")
	require.NoError(t, err)
	path := f.Name()
	require.NoError(t, f.Close())
	require.NoError(t, os.Remove(path))
	t.Cleanup(func() {
		_ = os.Remove(path)
	})
	return path
}

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(tempStorePath(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func reopen(t *testing.T, s *Store, opts ...Option) *Store {
	t.Helper()
	require.NoError(t, s.Close())
	s, err := Open(s.Path(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func randBytes(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	rng.Read(b)
	return b
}

func TestOpen_InitializesLayout(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Flush())

	st, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, int64(format.LayoutSize), st.Size())

	// opening an existing store doesn't touch it
	s = reopen(t, s)
	require.NoError(t, s.Flush())
	st, err = os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, int64(format.LayoutSize), st.Size())

	children, err := s.ChildIndexes(nil)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestOpen_NotAStore(t *testing.T) {
	path := tempStorePath(t)
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte(digits), 100), 0644))

	_, err := Open(path)
	assert.True(t, errors.Is(err, ErrCorruptFormat))

	_, err = Open(tempStorePath(t), WithDefaultBlockSize(0))
	assert.Error(t, err)

	_, err = Open("/doesnt/exist/nrio.db")
	assert.True(t, errors.Is(err, ErrIO))
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, caching := range []bool{true, false} {
		s := openTestStore(t, WithWriteCaching(caching))
		type stored struct {
			key  string
			data []byte
		}
		var all []stored

		for _, bs := range []uint32{1, 16, 4096} {
			for _, n := range []int{0, 1, 3 * int(bs), 3*int(bs) + int(bs)/2 + 1} {
				key := fmt.Sprintf("bs%d/len%d", bs, n)
				data := randBytes(rng, n)

				r, err := s.CreateFileString(key, bs)
				require.NoError(t, err)
				assert.Equal(t, bs, r.BlockSize())

				ok, err := s.WriteToFile(r, data, 0)
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, uint64(n), r.Size())

				got, err := s.ReadFromFile(r, 0, n)
				require.NoError(t, err)
				require.Equal(t, data, got, key)

				all = append(all, stored{key, data})
			}
		}

		s = reopen(t, s)
		for _, st := range all {
			r, ok, err := s.GetFileString(st.key)
			require.NoError(t, err)
			require.True(t, ok)

			size, err := s.FileSize(r)
			require.NoError(t, err)
			require.Equal(t, uint64(len(st.data)), size)

			got, err := s.ReadFromFile(r, 0, len(st.data)+10)
			require.NoError(t, err)
			require.Equal(t, st.data, got, st.key)
		}
	}
}

func TestZeroLengthWrite(t *testing.T) {
	s := openTestStore(t)
	r, err := s.CreateFile([]byte("empty"), 16)
	require.NoError(t, err)

	ok, err := s.WriteToFile(r, nil, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	// nothing gets allocated
	cur, err := s.loadFileRecord(r.Offset())
	require.NoError(t, err)
	assert.Zero(t, cur.rec.FirstBlock)
	assert.Zero(t, cur.rec.LastBlock)
	assert.Zero(t, cur.rec.Size)

	got, err := s.ReadFromFile(r, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAppendEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	data := randBytes(rng, 1000)

	for _, bs := range []uint32{1, 7, 16, 4096} {
		s := openTestStore(t, WithCacheSize(64))

		whole, err := s.CreateFile([]byte("whole"), bs)
		require.NoError(t, err)
		ok, err := s.WriteToFile(whole, data, 0)
		require.NoError(t, err)
		require.True(t, ok)

		pieces, err := s.CreateFile([]byte("pieces"), bs)
		require.NoError(t, err)
		for off := 0; off < len(data); {
			n := rng.Intn(40) + 1
			if off+n > len(data) {
				n = len(data) - off
			}
			ok, err := s.WriteToFile(pieces, data[off:off+n], uint64(off))
			require.NoError(t, err)
			require.True(t, ok)
			off += n
		}

		assert.Equal(t, whole.Size(), pieces.Size())

		a, err := s.ReadFromFile(whole, 0, len(data))
		require.NoError(t, err)
		b, err := s.ReadFromFile(pieces, 0, len(data))
		require.NoError(t, err)
		require.Equal(t, data, a)
		require.Equal(t, data, b)

		fa, err := s.Fingerprint(whole)
		require.NoError(t, err)
		fb, err := s.Fingerprint(pieces)
		require.NoError(t, err)
		assert.Equal(t, farm.Fingerprint64(data), fa)
		assert.Equal(t, fa, fb)
	}
}

// Appends at a block boundary jump straight to the last block: with the
// first block of the chain damaged they still succeed, while a write that
// has to walk the chain from the start trips over it.
func TestAlignedAppendSkipsWalk(t *testing.T) {
	s := openTestStore(t)
	r, err := s.CreateFile([]byte("log"), 4)
	require.NoError(t, err)
	_, err = s.WriteToFile(r, []byte("abcdefgh"), 0)
	require.NoError(t, err)

	cur, err := s.loadFileRecord(r.Offset())
	require.NoError(t, err)
	require.NotEqual(t, cur.rec.FirstBlock, cur.rec.LastBlock)
	require.NoError(t, s.f.Write(int64(cur.rec.FirstBlock), []byte{0, 0, 0, 0}))

	ok, err := s.WriteToFile(r, []byte("ijkl"), 8)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.WriteToFile(r, []byte("mnop"), 12)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(16), r.Size())

	_, err = s.WriteToFile(r, []byte("q"), 16)
	require.NoError(t, err)

	// once the size is off a block boundary, appends walk from the start,
	// and so do rewrites
	_, err = s.WriteToFile(r, []byte("r"), 17)
	assert.True(t, errors.Is(err, ErrCorruptFormat))
	_, err = s.WriteToFile(r, []byte("X"), 1)
	assert.True(t, errors.Is(err, ErrCorruptFormat))
}

func TestOverlappingRewrite(t *testing.T) {
	for _, bs := range []uint32{1, 16, 4096} {
		s := openTestStore(t)
		r, err := s.CreateFile([]byte("digits"), bs)
		require.NoError(t, err)

		ok, err := s.WriteToFile(r, bytes.Repeat([]byte(digits), 10), 0)
		require.NoError(t, err)
		require.True(t, ok)

		got, err := s.ReadFromFile(r, 55, 10)
		require.NoError(t, err)
		assert.Equal(t, "6789012345", string(got))

		ok, err = s.WriteToFile(r, []byte("AAAAA"), 55)
		require.NoError(t, err)
		require.True(t, ok)

		got, err = s.ReadFromFile(r, 55, 10)
		require.NoError(t, err)
		assert.Equal(t, "AAAAA12345", string(got))
		assert.Equal(t, uint64(100), r.Size())

		// rewrite across the end: the overlap is replaced, the rest appended
		ok, err = s.WriteToFile(r, []byte("zzzzzzzzzz"), 95)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, uint64(105), r.Size())

		got, err = s.ReadFromFile(r, 90, 100)
		require.NoError(t, err)
		assert.Equal(t, "12345zzzzzzzzzz", string(got))
	}
}

func TestShortReads(t *testing.T) {
	s := openTestStore(t)
	r, err := s.CreateFile([]byte("short"), 4)
	require.NoError(t, err)
	_, err = s.WriteToFile(r, []byte(digits), 0)
	require.NoError(t, err)

	for _, tt := range []struct {
		offset uint64
		length int
		want   string
	}{
		{0, 100, digits},
		{5, 100, "67890"},
		{3, 2, "45"},
		{9, 1, "0"},
		{10, 1, ""},
		{20, 1, ""},
		{0, 0, ""},
	} {
		got, err := s.ReadFromFile(r, tt.offset, tt.length)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got), "read %d at %d", tt.length, tt.offset)
	}

	_, err = s.ReadFromFile(r, 0, -1)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestWriteToFile_NoHoles(t *testing.T) {
	s := openTestStore(t)
	r, err := s.CreateFile([]byte("holes"), 16)
	require.NoError(t, err)

	ok, err := s.WriteToFile(r, []byte("x"), 1)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = s.WriteToFile(r, []byte("abc"), 0)
	require.NoError(t, err)
	ok, err = s.WriteToFile(r, []byte("d"), 3)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.WriteToFile(r, []byte("x"), 5)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestStaleHandle(t *testing.T) {
	s := openTestStore(t)
	a, err := s.CreateFile([]byte("k"), 8)
	require.NoError(t, err)
	b, _, err := s.GetFile([]byte("k"))
	require.NoError(t, err)

	_, err = s.WriteToFile(a, []byte("hello"), 0)
	require.NoError(t, err)

	// b was loaded before the write but sees it
	assert.Equal(t, uint64(0), b.Size())
	ok, err := s.WriteToFile(b, []byte(" world"), 5)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.ReadFromFile(a, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
	assert.Equal(t, uint64(11), a.Size())
}

func TestMissingKeys(t *testing.T) {
	s := openTestStore(t)

	_, _, err := s.GetFile([]byte("nope"))
	assert.True(t, errors.Is(err, ErrKeyNotFound))

	_, err = s.CreateFile([]byte("abc"), 16)
	require.NoError(t, err)

	// the path exists, but nothing is attached to it
	r, ok, err := s.GetFile([]byte("ab"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, r)

	_, ok, err = s.GetFile([]byte("abc"))
	require.NoError(t, err)
	assert.True(t, ok)

	_, _, err = s.GetFile([]byte("abcd"))
	assert.True(t, errors.Is(err, ErrKeyNotFound))
	_, _, err = s.GetFile([]byte("abd"))
	assert.True(t, errors.Is(err, ErrKeyNotFound))

	_, err = s.Read([]byte("ab"), 1)
	assert.True(t, errors.Is(err, ErrKeyNotFound))
	_, err = s.Read([]byte("zzz"), 1)
	assert.True(t, errors.Is(err, ErrKeyNotFound))
	_, err = s.ChildIndexes([]byte("zzz"))
	assert.True(t, errors.Is(err, ErrKeyNotFound))
	_, err = s.Compact([]byte("zzz"))
	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestCreateFile(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CreateFile([]byte("k"), 0)
	assert.Error(t, err)

	r, err := s.CreateFile([]byte("k"), 32)
	require.NoError(t, err)
	assert.NotZero(t, r.Offset())
	assert.Zero(t, r.Size())

	_, err = s.CreateFile([]byte("k"), 32)
	assert.True(t, errors.Is(err, ErrAlreadyExists))

	// the empty key is the user node itself
	_, err = s.CreateFile(nil, 8)
	require.NoError(t, err)
	_, ok, err := s.GetFile([]byte{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetOrCreateFile(t *testing.T) {
	s := openTestStore(t)

	a, err := s.GetOrCreateFile([]byte("key"), 16)
	require.NoError(t, err)
	b, err := s.GetOrCreateFile([]byte("key"), 99)
	require.NoError(t, err)
	assert.Equal(t, a.Offset(), b.Offset())
	assert.Equal(t, uint32(16), b.BlockSize())

	// "ke" exists as a path without a record
	_, ok, err := s.GetFile([]byte("ke"))
	require.NoError(t, err)
	require.False(t, ok)
	c, err := s.GetOrCreateFile([]byte("ke"), 8)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), c.BlockSize())
	assert.NotEqual(t, a.Offset(), c.Offset())
}

func TestGetOrCreateFile_ZeroBlockSize(t *testing.T) {
	s := openTestStore(t)
	before := s.f.Len()

	_, err := s.GetOrCreateFile([]byte("ghost"), 0)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	// the rejected call must not have allocated the path
	assert.Equal(t, before, s.f.Len())
	_, _, err = s.GetFile([]byte("ghost"))
	assert.True(t, errors.Is(err, ErrKeyNotFound))
	children, err := s.ChildIndexes(nil)
	require.NoError(t, err)
	assert.Empty(t, children)

	_, err = s.CreateFile([]byte("ghost"), 0)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	assert.Equal(t, before, s.f.Len())
}

func TestKeyNotFoundMessage(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Set([]byte("ab"), []byte("v")))

	_, _, err := s.GetFile([]byte("abz"))
	require.True(t, errors.Is(err, ErrKeyNotFound))
	assert.Contains(t, err.Error(), "byte 0x7a at key index 2")
}

func TestSiblingChains(t *testing.T) {
	s := openTestStore(t)

	bytesUsed := []int{0xff, 0x05, 0x20, 0x00, 0x41, 0x10, 0x2f, 0x06}
	for _, b := range bytesUsed {
		key := []byte{'k', byte(b)}
		require.NoError(t, s.Set(key, []byte{byte(b)}))
	}

	children, err := s.ChildIndexes([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []int{0x00, 0x05, 0x06, 0x10, 0x20, 0x2f, 0x41, 0xff}, children)

	children, err = s.ChildIndexes(nil)
	require.NoError(t, err)
	assert.Equal(t, []int{'k'}, children)

	// the chain under "k" holds one node per 16-value window in use
	head, err := s.resolve([]byte("k"), false)
	require.NoError(t, err)
	nodes, err := s.chain(head)
	require.NoError(t, err)
	var starts []uint8
	for _, n := range nodes {
		starts = append(starts, n.RangeStart)
	}
	assert.Equal(t, []uint8{0x00, 0xf0, 0x20, 0x40, 0x10}, starts)

	s = reopen(t, s)
	for _, b := range bytesUsed {
		got, err := s.Read([]byte{'k', byte(b)}, 1)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(b)}, got)
	}
}

func TestCompact(t *testing.T) {
	var logs safeBuffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	s := openTestStore(t, WithLogger(logger))

	for _, b := range []byte{1, 40, 200} {
		require.NoError(t, s.Set([]byte{'p', b}, []byte{b, b}))
	}

	ok, err := s.Compact([]byte("p"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, logs.String(), "compacted sibling chain")

	// a second compaction is a no-op
	ok, err = s.Compact([]byte("p"))
	require.NoError(t, err)
	assert.False(t, ok)

	for _, b := range []byte{1, 40, 200} {
		got, err := s.Read([]byte{'p', b}, 2)
		require.NoError(t, err)
		assert.Equal(t, []byte{b, b}, got)
	}

	_, _, err = s.GetFile([]byte{'p', 41})
	assert.True(t, errors.Is(err, ErrKeyNotFound))
	_, _, err = s.GetFile([]byte{'p', 100})
	assert.True(t, errors.Is(err, ErrKeyNotFound))

	// children land in existing banks and in new ones
	require.NoError(t, s.Set([]byte{'p', 41}, []byte("41")))
	require.NoError(t, s.Set([]byte{'p', 100}, []byte("100")))

	s = reopen(t, s)
	got, err := s.Read([]byte{'p', 41}, 10)
	require.NoError(t, err)
	assert.Equal(t, "41", string(got))
	got, err = s.Read([]byte{'p', 100}, 10)
	require.NoError(t, err)
	assert.Equal(t, "100", string(got))

	ok, err = s.Compact([]byte("p"))
	require.NoError(t, err)
	assert.False(t, ok)

	// a single-node chain can be compacted too
	require.NoError(t, s.Set([]byte("q"), []byte("q")))
	ok, err = s.Compact([]byte("q"))
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, s.Set([]byte("qr"), []byte("qr")))
	got, err = s.Read([]byte("qr"), 2)
	require.NoError(t, err)
	assert.Equal(t, "qr", string(got))
}

// ChildIndexes keeps working once a chain has been replaced by a bank map.
func TestChildIndexes_Compacted(t *testing.T) {
	s := openTestStore(t)
	for _, b := range []byte{3, 17, 18, 250} {
		require.NoError(t, s.Set([]byte{'c', b}, []byte{b}))
	}
	before, err := s.ChildIndexes([]byte("c"))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 17, 18, 250}, before)

	ok, err := s.Compact([]byte("c"))
	require.NoError(t, err)
	require.True(t, ok)

	after, err := s.ChildIndexes([]byte("c"))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	require.NoError(t, s.Set([]byte{'c', 128}, []byte{128}))
	after, err = s.ChildIndexes([]byte("c"))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 17, 18, 128, 250}, after)
}

func TestCorruptRecord(t *testing.T) {
	s := openTestStore(t)
	r, err := s.CreateFile([]byte("victim"), 16)
	require.NoError(t, err)
	_, err = s.WriteToFile(r, []byte(digits), 0)
	require.NoError(t, err)
	path := s.Path()
	require.NoError(t, s.Close())

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0xde, 0xad, 0xbe, 0xef}, int64(r.Offset()))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() {
		_ = s.Close()
	}()

	_, _, err = s.GetFile([]byte("victim"))
	assert.True(t, errors.Is(err, ErrCorruptFormat))
	_, err = s.Read([]byte("victim"), 1)
	assert.True(t, errors.Is(err, ErrCorruptFormat))
	_, err = s.ReadOrSet([]byte("victim"), []byte("x"))
	assert.True(t, errors.Is(err, ErrCorruptFormat))
}

func TestTypedValues(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SetInt32([]byte("i32"), -5))
	require.NoError(t, s.SetUint32([]byte("u32"), 0xdeadbeef))
	require.NoError(t, s.SetInt64([]byte("i64"), -1<<40))
	require.NoError(t, s.SetUint64([]byte("u64"), ^uint64(0)))

	s = reopen(t, s)

	i32, err := s.ReadInt32([]byte("i32"))
	require.NoError(t, err)
	assert.Equal(t, int32(-5), i32)
	u32, err := s.ReadUint32([]byte("u32"))
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), u32)
	i64, err := s.ReadInt64([]byte("i64"))
	require.NoError(t, err)
	assert.Equal(t, int64(-1<<40), i64)
	u64, err := s.ReadUint64([]byte("u64"))
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), u64)

	// stored little-endian
	raw, err := s.Read([]byte("u32"), 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xef, 0xbe, 0xad, 0xde}, raw)

	_, err = s.ReadUint64([]byte("u32"))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	_, err = s.ReadInt32([]byte("missing"))
	assert.True(t, errors.Is(err, ErrKeyNotFound))

	// a narrower value overwrites only a prefix
	require.NoError(t, s.SetUint32([]byte("u64"), 0))
	u64, err = s.ReadUint64([]byte("u64"))
	require.NoError(t, err)
	assert.Equal(t, uint64(0xffffffff00000000), u64)
}

func TestReadOrSet(t *testing.T) {
	s := openTestStore(t)

	got, err := s.ReadOrSet([]byte("greeting"), []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	got, err = s.ReadOrSet([]byte("greeting"), []byte("howdy"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	// an existing value that is too short is replaced
	require.NoError(t, s.Set([]byte("short"), []byte("ab")))
	got, err = s.ReadOrSet([]byte("short"), []byte("xyz"))
	require.NoError(t, err)
	assert.Equal(t, "xyz", string(got))

	// a path without a record gets one
	_, ok, err := s.GetFile([]byte("greet"))
	require.NoError(t, err)
	require.False(t, ok)
	got, err = s.ReadOrSet([]byte("greet"), []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))

	v, err := s.ReadOrSetUint64([]byte("counter"), 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)
	v, err = s.ReadOrSetUint64([]byte("counter"), 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)

	i, err := s.ReadOrSetInt32([]byte("i"), -3)
	require.NoError(t, err)
	assert.Equal(t, int32(-3), i)
	u, err := s.ReadOrSetUint32([]byte("i"), 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xfffffffd), u)
	i64, err := s.ReadOrSetInt64([]byte("i64"), -3)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), i64)
}

func TestEmptyValueUsesDefaultBlockSize(t *testing.T) {
	s := openTestStore(t, WithDefaultBlockSize(64))
	require.NoError(t, s.Set([]byte("empty"), nil))

	r, ok, err := s.GetFile([]byte("empty"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(64), r.BlockSize())
	assert.Zero(t, r.Size())
}

func TestClosed(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Set([]byte("k"), []byte("v")))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, _, err := s.GetFile([]byte("k"))
	assert.True(t, errors.Is(err, ErrClosed))
	assert.True(t, errors.Is(s.Set([]byte("k"), []byte("v")), ErrClosed))
}

// TestRandomOperations checks many values against an in-memory model
// through a small cache window, reopening the store partway through.
func TestRandomOperations(t *testing.T) {
	for _, caching := range []bool{true, false} {
		opts := []Option{WithCacheSize(128), WithWriteCaching(caching)}
		s := openTestStore(t, opts...)
		rng := rand.New(rand.NewSource(3))

		keys := []string{"a", "ab", "abc", "b", "ba", "\x00", "\xff\x00", strings.Repeat("z", 20)}
		model := make(map[string][]byte)
		records := make(map[string]*FileRecord)
		for _, k := range keys {
			r, err := s.CreateFileString(k, uint32(rng.Intn(20)+1))
			require.NoError(t, err)
			records[k] = r
		}

		for i := 0; i < 3000; i++ {
			if i == 1500 {
				s = reopen(t, s, opts...)
				for _, k := range keys {
					r, ok, err := s.GetFileString(k)
					require.NoError(t, err)
					require.True(t, ok)
					records[k] = r
				}
			}

			k := keys[rng.Intn(len(keys))]
			r := records[k]
			cur := model[k]
			off := rng.Intn(len(cur) + 1)

			if rng.Intn(2) == 0 {
				p := randBytes(rng, rng.Intn(50))
				ok, err := s.WriteToFile(r, p, uint64(off))
				require.NoError(t, err)
				require.True(t, ok)
				if end := off + len(p); end > len(cur) {
					cur = append(cur, make([]byte, end-len(cur))...)
				}
				copy(cur[off:], p)
				model[k] = cur
			} else {
				n := rng.Intn(60)
				got, err := s.ReadFromFile(r, uint64(off), n)
				require.NoError(t, err)
				end := off + n
				if end > len(cur) {
					end = len(cur)
				}
				require.Equal(t, cur[off:end], got, "key %q read %d at %d", k, n, off)
			}
			require.Equal(t, uint64(len(model[k])), r.Size())
		}

		for _, k := range keys {
			fp, err := s.Fingerprint(records[k])
			require.NoError(t, err)
			require.Equal(t, farm.Fingerprint64(model[k]), fp, k)
		}
	}
}
