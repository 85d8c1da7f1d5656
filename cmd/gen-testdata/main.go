// Copyright 2026 The nrio Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// gen-testdata writes key:value lines suitable for `nrio import`.  Keys
// share a prefix per group so the trie grows both deep and wide.
package main

import (
	"bufio"
	"crypto/hmac"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/urfave/cli/v2"
)

const (
	prefix    = "pref_"
	suffixLen = 16
	hmacKey   = "d259c7f656caf7f1"
)

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		var seedBytes [8]byte
		_, _ = crand.Read(seedBytes[:])
		seed = int64(binary.LittleEndian.Uint64(seedBytes[:]))
	}
	return rand.New(rand.NewSource(seed))
}

// generate writes n pairs.  Keys are hex HMACs of the values, truncated to
// keyLen bytes; values grow up to maxRepeat copies of a random suffix so
// some of them span several blocks.
func generate(w io.Writer, rng *rand.Rand, n, keyLen, maxRepeat int) error {
	h := hmac.New(sha256.New, []byte(hmacKey))
	bw := bufio.NewWriter(w)

	for i := 0; i < n; i++ {
		var buf [suffixLen / 2]byte
		if _, err := rng.Read(buf[:]); err != nil {
			return err
		}
		value := fmt.Sprintf("%s%x", prefix, buf)
		for r := rng.Intn(maxRepeat); r > 0; r-- {
			value += fmt.Sprintf("%x", buf)
		}
		h.Reset()
		h.Write([]byte(value))
		key := hex.EncodeToString(h.Sum(nil))
		if keyLen < len(key) {
			key = key[:keyLen]
		}

		if _, err := fmt.Fprintf(bw, "%s:%s\n", key, value); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func main() {
	app := &cli.App{
		Name:  "gen-testdata",
		Usage: "write random key:value lines to stdout",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "pairs", Value: 1000000, Usage: "Number of lines to write"},
			&cli.IntFlag{Name: "key-len", Value: 64, Usage: "Maximum key length in hex digits"},
			&cli.IntFlag{Name: "max-repeat", Value: 1, Usage: "Upper bound on how many times a value's suffix is repeated"},
			&cli.Int64Flag{Name: "seed", Usage: "Random seed (default: random)"},
		},
		Action: func(c *cli.Context) error {
			if c.Int("max-repeat") < 1 {
				return fmt.Errorf("--max-repeat must be at least 1")
			}
			return generate(os.Stdout, newRand(c.Int64("seed")), c.Int("pairs"), c.Int("key-len"), c.Int("max-repeat"))
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "gen-testdata: %s\n", err)
		os.Exit(1)
	}
}
