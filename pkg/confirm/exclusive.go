package confirm

import (
	"github.com/autobrr/dupescan/pkg/fileio"
	"github.com/autobrr/dupescan/pkg/logger"
)

// Exclusive digests files while holding an exclusive non-blocking lock on
// each one, so a file being written by a cooperating process is dropped
// instead of hashed mid-write. Without elevated privileges it behaves
// exactly like Digest.
type Exclusive struct {
	*Digest
	locking bool
}

func NewExclusive(opts fileio.Options) *Exclusive {
	e := &Exclusive{locking: canLock()}
	if e.locking {
		opts.Open = openLocked
	} else {
		logger.GetLogger("confirm").Debug("not running as root, exclusive level falls back to digest")
	}
	e.Digest = NewDigest(opts)
	return e
}

func (e *Exclusive) Name() string {
	return "exclusive"
}

// Locking reports whether files are locked before hashing.
func (e *Exclusive) Locking() bool {
	return e.locking
}
