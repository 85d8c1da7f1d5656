// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package nrio

import (
	"io"
	"log/slog"

	"github.com/nrcore/nrio/internal/bfile"
)

type options struct {
	logger           *slog.Logger
	cacheSize        int
	writeCaching     bool
	defaultBlockSize uint32
}

// Option configures a Store.
type Option func(*options)

// WithLogger sets an optional logger for the store to report allocations
// and compactions to.  If not provided, no logging output will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithCacheSize sets the size in bytes of the store file's cache window.
func WithCacheSize(n int) Option {
	return func(opts *options) {
		opts.cacheSize = n
	}
}

// WithWriteCaching controls whether small writes are held in the cache
// window until it moves or the store is flushed.  It is enabled by default.
func WithWriteCaching(enabled bool) Option {
	return func(opts *options) {
		opts.writeCaching = enabled
	}
}

// WithDefaultBlockSize sets the block size Set and ReadOrSet use when
// creating a record for an empty value.
func WithDefaultBlockSize(n uint32) Option {
	return func(opts *options) {
		opts.defaultBlockSize = n
	}
}

func defaultOptions() options {
	return options{
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		cacheSize:        bfile.DefaultCacheSize,
		writeCaching:     true,
		defaultBlockSize: DefaultBlockSize,
	}
}
