package confirm

import (
	"context"

	"github.com/autobrr/dupescan/pkg/filerecord"
)

// Sample accepts a fingerprint group as-is. It is the fastest and least
// certain level: members only share size and sampled blocks.
type Sample struct{}

func (Sample) Name() string {
	return "sample"
}

func (Sample) Partition(ctx context.Context, members []filerecord.FileRecord) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	if len(members) < 2 {
		return Outcome{Unique: len(members)}, nil
	}

	return Outcome{Groups: []Group{{Members: members}}}, nil
}
