package dedupe

import (
	"context"

	"github.com/pkg/errors"

	"github.com/autobrr/dupescan/pkg/filerecord"
	"github.com/autobrr/dupescan/pkg/scanerr"
)

// Source yields the records of one scan. Implementations must not call fn
// concurrently and must return an error wrapping scanerr.ErrInterrupted
// when ctx is cancelled.
type Source interface {
	Walk(ctx context.Context, fn func(filerecord.FileRecord)) error
}

// Records is an in-memory Source.
type Records []filerecord.FileRecord

func (r Records) Walk(ctx context.Context, fn func(filerecord.FileRecord)) error {
	for _, rec := range r {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(scanerr.ErrInterrupted, err.Error())
		}
		fn(rec)
	}
	return nil
}
