package sampler

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/autobrr/dupescan/pkg/fileio"
	"github.com/autobrr/dupescan/pkg/filerecord"
	"github.com/autobrr/dupescan/pkg/progress"
	"github.com/autobrr/dupescan/pkg/scanerr"
)

// DefaultBlockSize is used when a Sampler has no block size set.
const DefaultBlockSize = 4 * 1024

// hashPool reuses digest state
var hashPool = sync.Pool{
	New: func() any {
		return xxhash.New()
	},
}

// Sampler fingerprints files from a bounded sample of leading blocks.
// Equal fingerprints do not prove equal content; different fingerprints
// prove different content. Sampling more blocks only ever splits groups.
type Sampler struct {
	BlockSize int
	Blocks    int
	IO        fileio.Options
	Progress  *progress.Counter
}

// Group holds members of one size group sharing a fingerprint.
type Group struct {
	Fingerprint uint64
	Members     []filerecord.FileRecord
}

// Outcome is the result of splitting one size group.
type Outcome struct {
	// Groups have at least two members.
	Groups []Group
	// Unique counts members that were alone with their fingerprint.
	Unique int
	// Drops lists members that could not be read.
	Drops []scanerr.Drop
}

// SampleBytes returns the number of leading bytes fingerprinted per file.
func (s *Sampler) SampleBytes() int64 {
	blockSize := s.BlockSize
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	blocks := s.Blocks
	if blocks <= 0 {
		blocks = 1
	}
	return int64(blockSize) * int64(blocks)
}

// Fingerprint hashes the sampled region of rec.
func (s *Sampler) Fingerprint(ctx context.Context, rec filerecord.FileRecord) (uint64, error) {
	limit := s.SampleBytes()
	want := min(limit, rec.Size)

	h := hashPool.Get().(*xxhash.Digest)
	h.Reset()
	defer hashPool.Put(h)

	err := s.IO.Read(ctx, rec.Path, func(r io.Reader) error {
		n, err := io.Copy(h, io.LimitReader(r, limit))
		if err != nil {
			return err
		}
		if n != want {
			return errors.Wrapf(scanerr.ErrStale, "expected %d sampled bytes, read %d", want, n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.Progress.Tick()

	return h.Sum64(), nil
}

// Split fingerprints every member of a size group and keeps the
// fingerprint groups with two or more members. It only fails when ctx is
// cancelled; per-file errors are reported as drops.
func (s *Sampler) Split(ctx context.Context, members []filerecord.FileRecord) (Outcome, error) {
	var out Outcome

	byFingerprint := make(map[uint64][]filerecord.FileRecord)
	for _, rec := range members {
		fp, err := s.Fingerprint(ctx, rec)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{}, ctx.Err()
			}
			out.Drops = append(out.Drops, scanerr.NewDrop(rec.Path, err))
			continue
		}

		byFingerprint[fp] = append(byFingerprint[fp], rec)
	}

	for fp, recs := range byFingerprint {
		if len(recs) < 2 {
			out.Unique++
			continue
		}
		out.Groups = append(out.Groups, Group{Fingerprint: fp, Members: recs})
	}

	sort.Slice(out.Groups, func(i, j int) bool {
		return out.Groups[i].Members[0].Path < out.Groups[j].Members[0].Path
	})

	return out, nil
}
