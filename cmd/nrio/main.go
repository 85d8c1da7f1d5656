// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// The nrio command inspects and edits nrio store files.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/nrcore/nrio"
	"github.com/nrcore/nrio/internal/bytesutil"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "nrio: %s\n", err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "nrio",
		Usage:     "inspect and edit nrio store files",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Required: true, TakesFile: true, Usage: "Path to the store file, created if missing", EnvVars: []string{"NRIO_DB"}},
			&cli.IntFlag{Name: "cache-size", Value: 4096, Usage: "Size in bytes of the store's cache window", EnvVars: []string{"NRIO_CACHE_SIZE"}},
			&cli.BoolFlag{Name: "verbose", Usage: "Log allocations and compactions to stderr"},
		},
		Commands: []*cli.Command{
			{
				Name:      "put",
				Usage:     "Write VALUE at the start of KEY's value",
				ArgsUsage: "KEY VALUE",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "block-size", Usage: "Block size for a newly created record (default: the value's length)"},
				},
				Action: withStore(put),
			},
			{
				Name:      "get",
				Usage:     "Print KEY's value",
				ArgsUsage: "KEY",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "offset", Usage: "Offset to start reading at"},
					&cli.IntFlag{Name: "length", Value: -1, Usage: "Maximum number of bytes to print (default: all)"},
				},
				Action: withStore(get),
			},
			{
				Name:      "stat",
				Usage:     "Describe KEY's file record",
				ArgsUsage: "KEY",
				Action:    withStore(stat),
			},
			{
				Name:      "ls",
				Usage:     "List the byte values that extend KEY",
				ArgsUsage: "[KEY]",
				Action:    withStore(ls),
			},
			{
				Name:      "compact",
				Usage:     "Replace the sibling chain under KEY with a bank map",
				ArgsUsage: "KEY",
				Action:    withStore(compact),
			},
			{
				Name:      "import",
				Usage:     "Set every key:value line of FILE",
				ArgsUsage: "FILE",
				Action:    withStore(importFile),
			},
		},
	}
}

// withStore opens the store named by the global flags around a command.
func withStore(action func(c *cli.Context, s *nrio.Store) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		level := slog.LevelWarn
		if c.Bool("verbose") {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))

		s, err := nrio.Open(c.String("db"), nrio.WithLogger(logger), nrio.WithCacheSize(c.Int("cache-size")))
		if err != nil {
			return err
		}
		if err := action(c, s); err != nil {
			_ = s.Close()
			return err
		}
		return s.Close()
	}
}

func args(c *cli.Context, lo, hi int) ([]string, error) {
	n := c.Args().Len()
	if n < lo || n > hi {
		return nil, fmt.Errorf("%s: expected arguments %s, got %d", c.Command.Name, c.Command.ArgsUsage, n)
	}
	return c.Args().Slice(), nil
}

func put(c *cli.Context, s *nrio.Store) error {
	a, err := args(c, 2, 2)
	if err != nil {
		return err
	}
	key, value := []byte(a[0]), []byte(a[1])

	if !c.IsSet("block-size") {
		return s.Set(key, value)
	}
	r, err := s.GetOrCreateFile(key, uint32(c.Uint("block-size")))
	if err != nil {
		return err
	}
	_, err = s.WriteToFile(r, value, 0)
	return err
}

func lookup(s *nrio.Store, key string) (*nrio.FileRecord, error) {
	r, ok, err := s.GetFileString(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%q: %w: no file record", key, nrio.ErrKeyNotFound)
	}
	return r, nil
}

func get(c *cli.Context, s *nrio.Store) error {
	a, err := args(c, 1, 1)
	if err != nil {
		return err
	}
	r, err := lookup(s, a[0])
	if err != nil {
		return err
	}
	length := c.Int("length")
	if length < 0 {
		length = int(r.Size())
	}
	b, err := s.ReadFromFile(r, c.Uint64("offset"), length)
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(b)
	return err
}

func stat(c *cli.Context, s *nrio.Store) error {
	a, err := args(c, 1, 1)
	if err != nil {
		return err
	}
	r, err := lookup(s, a[0])
	if err != nil {
		return err
	}
	fp, err := s.Fingerprint(r)
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "offset:      %d\n", r.Offset())
	fmt.Fprintf(w, "size:        %d\n", r.Size())
	fmt.Fprintf(w, "block size:  %d\n", r.BlockSize())
	fmt.Fprintf(w, "fingerprint: %016x\n", fp)
	return nil
}

func ls(c *cli.Context, s *nrio.Store) error {
	a, err := args(c, 0, 1)
	if err != nil {
		return err
	}
	var key []byte
	if len(a) == 1 {
		key = []byte(a[0])
	}
	children, err := s.ChildIndexes(key)
	if err != nil {
		return err
	}
	for _, b := range children {
		fmt.Fprintf(c.App.Writer, "%3d %q\n", b, string(rune(b)))
	}
	return nil
}

func compact(c *cli.Context, s *nrio.Store) error {
	a, err := args(c, 1, 1)
	if err != nil {
		return err
	}
	ok, err := s.Compact([]byte(a[0]))
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(c.App.Writer, "compacted")
	} else {
		fmt.Fprintln(c.App.Writer, "already compacted")
	}
	return nil
}

// maxImportLine bounds a single key:value line; values are stored in one
// block sized to fit, so this is also the largest block import creates.
const maxImportLine = 64 << 20

func importFile(c *cli.Context, s *nrio.Store) error {
	a, err := args(c, 1, 1)
	if err != nil {
		return err
	}
	f, err := os.Open(a[0])
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	n := 0
	sc := bufio.NewScanner(bufio.NewReaderSize(f, 16*1024))
	sc.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	for line := 1; sc.Scan(); line++ {
		k, v, ok := bytesutil.CutKeyValue(sc.Bytes(), ':')
		if !ok {
			return fmt.Errorf("%s:%d: expected key:value", a[0], line)
		}
		if err := s.Set(k, v); err != nil {
			return fmt.Errorf("%s:%d: %w", a[0], line, err)
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "imported %d keys\n", n)
	return nil
}
