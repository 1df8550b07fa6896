// Package confirm decides true content equality inside a fingerprint group.
//
// Each thoroughness level maps to one Confirmer. The confirming strategies
// (exclusive, digest, compare) produce the same partition for the same
// group and differ only in cost and mechanism. Files that cannot be read
// are dropped from the group without failing it.
package confirm

import (
	"context"
	"sort"

	"github.com/autobrr/dupescan/pkg/filerecord"
	"github.com/autobrr/dupescan/pkg/scanerr"
)

type Confirmer interface {
	Name() string
	// Partition splits members into equal-content groups. It only fails
	// when ctx is cancelled.
	Partition(ctx context.Context, members []filerecord.FileRecord) (Outcome, error)
}

// Group holds members proven (or, for sampling, assumed) identical.
// Digest is empty when the strategy computes none.
type Group struct {
	Digest  string
	Members []filerecord.FileRecord
}

type Outcome struct {
	// Groups have at least two members.
	Groups []Group
	// Unique counts members whose content matched no other member.
	Unique int
	Drops  []scanerr.Drop
}

// collect turns digest buckets into an Outcome, discarding singletons.
func collect(buckets map[string][]filerecord.FileRecord, drops []scanerr.Drop) Outcome {
	out := Outcome{Drops: drops}

	for digest, recs := range buckets {
		if len(recs) < 2 {
			out.Unique++
			continue
		}
		out.Groups = append(out.Groups, Group{Digest: digest, Members: recs})
	}

	sortGroups(out.Groups)
	return out
}

func sortGroups(groups []Group) {
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Members[0].Path < groups[j].Members[0].Path
	})
}

// fileError attributes a comparison failure to one of the two files.
type fileError struct {
	path string
	err  error
}

func (e *fileError) Error() string {
	return e.path + ": " + e.err.Error()
}

func (e *fileError) Unwrap() error {
	return e.err
}
