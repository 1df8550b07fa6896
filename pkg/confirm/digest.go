package confirm

import (
	"context"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/autobrr/dupescan/pkg/fileio"
	"github.com/autobrr/dupescan/pkg/filerecord"
	"github.com/autobrr/dupescan/pkg/scanerr"
)

// Digest groups files by a BLAKE2b-256 digest of their full content.
type Digest struct {
	IO fileio.Options
}

func NewDigest(opts fileio.Options) *Digest {
	return &Digest{IO: opts}
}

func (d *Digest) Name() string {
	return "digest"
}

// Sum returns the hex digest of the whole file.
func (d *Digest) Sum(ctx context.Context, rec filerecord.FileRecord) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}

	if err := d.IO.Copy(ctx, rec, h); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func (d *Digest) Partition(ctx context.Context, members []filerecord.FileRecord) (Outcome, error) {
	var drops []scanerr.Drop

	buckets := make(map[string][]filerecord.FileRecord)
	for _, rec := range members {
		sum, err := d.Sum(ctx, rec)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{}, ctx.Err()
			}
			drops = append(drops, scanerr.NewDrop(rec.Path, err))
			continue
		}

		buckets[sum] = append(buckets[sum], rec)
	}

	return collect(buckets, drops), nil
}
