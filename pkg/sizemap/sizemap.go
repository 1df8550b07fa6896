package sizemap

import (
	"sort"

	"github.com/autobrr/dupescan/pkg/filerecord"
)

// SizeMap groups single-link records by byte length.
type SizeMap struct {
	sizeMap map[int64][]filerecord.FileRecord
}

// Group holds records of one size.
type Group struct {
	Size    int64
	Members []filerecord.FileRecord
}

func New(records []filerecord.FileRecord) *SizeMap {
	sm := &SizeMap{
		sizeMap: make(map[int64][]filerecord.FileRecord),
	}

	for _, rec := range records {
		sm.Add(rec)
	}

	return sm
}

func (s *SizeMap) Add(rec filerecord.FileRecord) {
	s.sizeMap[rec.Size] = append(s.sizeMap[rec.Size], rec)
}

// Candidates returns the groups with at least two members, largest size
// first, and the number of records discarded because no other record
// shares their size.
func (s *SizeMap) Candidates() ([]Group, int) {
	var (
		groups []Group
		unique int
	)

	for size, recs := range s.sizeMap {
		if len(recs) < 2 {
			unique++
			continue
		}

		members := make([]filerecord.FileRecord, len(recs))
		copy(members, recs)
		sort.Slice(members, func(i, j int) bool {
			return members[i].Path < members[j].Path
		})

		groups = append(groups, Group{Size: size, Members: members})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Size > groups[j].Size
	})

	return groups, unique
}

// Length returns the number of distinct sizes.
func (s *SizeMap) Length() int {
	return len(s.sizeMap)
}
