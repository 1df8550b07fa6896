// Package fileio bounds every read the pipeline makes: an optional rate
// limit on opens, a per-file deadline checked between chunks, and a
// stale-size check against the stat snapshot.
package fileio

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/ratelimit"

	"github.com/autobrr/dupescan/pkg/filerecord"
	"github.com/autobrr/dupescan/pkg/scanerr"
)

// BlockSize is the chunk size used for full reads.
const BlockSize = 32 * 1024

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, BlockSize)
		return &b
	},
}

// OpenFunc opens a file for reading.
type OpenFunc func(path string) (*os.File, error)

// Options apply to every file opened through Read.
type Options struct {
	// Limiter paces file opens. Nil means unlimited.
	Limiter ratelimit.Limiter
	// Timeout bounds the time spent on a single file. Zero disables it.
	Timeout time.Duration
	// Open replaces os.Open, e.g. to take a lock first.
	Open OpenFunc
}

// Read opens path and hands fn a reader that stops once ctx is done or the
// per-file timeout expires.
func (o Options) Read(ctx context.Context, path string, fn func(r io.Reader) error) error {
	if o.Limiter != nil {
		o.Limiter.Take()
	}

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "read %s", path)
	}

	open := o.Open
	if open == nil {
		open = os.Open
	}

	f, err := open(path)
	if err != nil {
		return errors.Wrap(err, "open file")
	}
	defer f.Close()

	if err := fn(&ctxReader{ctx: ctx, r: f}); err != nil {
		return errors.Wrapf(err, "read %s", path)
	}

	return nil
}

// Copy streams the whole file into w and fails with scanerr.ErrStale when
// the number of bytes differs from the snapshot size.
func (o Options) Copy(ctx context.Context, rec filerecord.FileRecord, w io.Writer) error {
	return o.Read(ctx, rec.Path, func(r io.Reader) error {
		bufPtr := bufferPool.Get().(*[]byte)
		defer bufferPool.Put(bufPtr)

		n, err := io.CopyBuffer(w, r, *bufPtr)
		if err != nil {
			return err
		}

		if n != rec.Size {
			return errors.Wrapf(scanerr.ErrStale, "expected %d bytes, read %d", rec.Size, n)
		}

		return nil
	})
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
