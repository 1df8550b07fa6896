package hardlinkfilemap

import (
	"sync"

	"github.com/scylladb/go-set/strset"
	"github.com/sirupsen/logrus"

	"github.com/autobrr/dupescan/pkg/filerecord"
)

type HardlinkFileMap struct {
	// hardlinkFileMap maps FileID to the records that share that inode
	hardlinkFileMap map[filerecord.FileID][]filerecord.FileRecord
	// noIdentity holds records whose platform exposed no inode
	noIdentity      []filerecord.FileRecord
	noIdentityPaths *strset.Set
	log             *logrus.Entry
	mu              sync.Mutex
}

// Group is a set of paths sharing one on-disk data object.
type Group struct {
	ID      filerecord.FileID
	Members []filerecord.FileRecord
}

// Partition is the outcome of splitting scanned records by inode.
type Partition struct {
	// Groups have two or more members inside the scanned tree.
	Groups []Group
	// Singletons are the only name of their inode and are eligible for size analysis.
	Singletons []filerecord.FileRecord
	// External records are alone in the scan but have other names outside it.
	External []filerecord.FileRecord
}
