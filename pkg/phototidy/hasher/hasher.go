// Package hasher computes content digests for media files. Files are
// streamed in bounded chunks so peak memory stays flat regardless of file
// size. The strong BLAKE3 digest is the durable identity used for duplicate
// detection; an MD5 digest is computed over the same stream for
// compatibility with prior outputs.
package hasher

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	"lukechampine.com/blake3"
)

// ChunkSize bounds how much of a file is held in memory while hashing.
const ChunkSize = 4 * 1024 * 1024

// Digest holds both hashes of one byte stream.
type Digest struct {
	// Content is the hex-encoded BLAKE3 digest.
	Content string

	// Legacy is the hex-encoded MD5 digest, retained during the
	// compatibility window.
	Legacy string
}

// File streams the file at path once and computes both digests.
// On any read error the partial state is discarded and only the error is
// returned.
func File(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	strong := blake3.New(32, nil)
	legacy := md5.New()

	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(io.MultiWriter(strong, legacy), f, buf); err != nil {
		return Digest{}, fmt.Errorf("read %s: %w", path, err)
	}

	return Digest{
		Content: hex.EncodeToString(strong.Sum(nil)),
		Legacy:  hex.EncodeToString(legacy.Sum(nil)),
	}, nil
}

// Result is the outcome of hashing one file.
type Result struct {
	Path   string
	Digest Digest
	Err    error
}

// Pool hashes independent files concurrently with a bounded worker count.
// Chunks within a single file are always processed sequentially.
type Pool struct {
	workers int
}

// NewPool creates a pool with the given worker count. Counts below one are
// raised to one.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Run hashes every path, invoking onDone once per file from worker
// goroutines. onDone must be safe for concurrent use. Run stops dispatching
// new files once ctx is cancelled and returns ctx.Err(); files already in
// flight still complete and report through onDone.
func (p *Pool) Run(ctx context.Context, paths []string, onDone func(Result)) error {
	jobs := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				digest, err := File(path)
				onDone(Result{Path: path, Digest: digest, Err: err})
			}
		}()
	}

	var cancelled error
dispatch:
	for _, path := range paths {
		select {
		case jobs <- path:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	return cancelled
}
