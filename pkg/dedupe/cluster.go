package dedupe

import (
	"sort"
	"time"

	"github.com/autobrr/dupescan/pkg/filerecord"
)

type Kind string

const (
	// KindContent members are separate files with identical content.
	KindContent Kind = "content"
	// KindHardlink members are names of the same inode.
	KindHardlink Kind = "hardlink"
)

// Cluster is a reportable set of two or more identical files.
type Cluster struct {
	Kind Kind
	Size int64
	// Digest is the content digest in hex, the sample fingerprint when the
	// level computes no digest, or dev:ino for hardlink clusters.
	Digest  string
	Members []filerecord.FileRecord
}

// Timestamp returns the earliest modification time among the members.
func (c Cluster) Timestamp() time.Time {
	var ts time.Time
	for _, m := range c.Members {
		if ts.IsZero() || m.Modified.Before(ts) {
			ts = m.Modified
		}
	}
	return ts
}

// Reclaimable returns the bytes freed by keeping a single member.
// Hardlinks share their data and free nothing.
func (c Cluster) Reclaimable() int64 {
	if c.Kind != KindContent || len(c.Members) < 2 {
		return 0
	}
	return c.Size * int64(len(c.Members)-1)
}

// sortClusters orders by size descending, content before hardlink, then by
// first member path. Members are sorted by path.
func sortClusters(clusters []Cluster) {
	for i := range clusters {
		members := clusters[i].Members
		sort.Slice(members, func(a, b int) bool {
			return members[a].Path < members[b].Path
		})
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		a, b := clusters[i], clusters[j]
		if a.Size != b.Size {
			return a.Size > b.Size
		}
		if a.Kind != b.Kind {
			return a.Kind == KindContent
		}
		return a.Members[0].Path < b.Members[0].Path
	})
}
