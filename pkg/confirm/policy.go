package confirm

import (
	"github.com/pkg/errors"

	"github.com/autobrr/dupescan/pkg/fileio"
	"github.com/autobrr/dupescan/pkg/scanerr"
)

// Thoroughness levels, strictest and slowest first.
const (
	LevelExclusive  = 1
	LevelDigest     = 2
	LevelCompare    = 3
	LevelDeepSample = 4
	LevelSample     = 5

	DefaultLevel = LevelDigest
)

// deepSampleBlocks is the number of leading blocks fingerprinted at LevelDeepSample.
const deepSampleBlocks = 64

// ValidateLevel fails for levels outside 1-5.
func ValidateLevel(level int) error {
	if level < LevelExclusive || level > LevelSample {
		return errors.Wrapf(scanerr.ErrConfiguration, "thoroughness level %d out of range %d-%d",
			level, LevelExclusive, LevelSample)
	}
	return nil
}

// SampleBlocks returns how many leading blocks are fingerprinted at level.
func SampleBlocks(level int) int {
	if level == LevelDeepSample {
		return deepSampleBlocks
	}
	return 1
}

// ForLevel returns the Confirmer for a thoroughness level.
func ForLevel(level int, opts fileio.Options) (Confirmer, error) {
	if err := ValidateLevel(level); err != nil {
		return nil, err
	}

	switch level {
	case LevelExclusive:
		return NewExclusive(opts), nil
	case LevelDigest:
		return NewDigest(opts), nil
	case LevelCompare:
		return NewCompare(opts), nil
	default:
		return Sample{}, nil
	}
}
