package hardlinkfilemap

import (
	"sort"

	"github.com/scylladb/go-set/strset"

	"github.com/autobrr/dupescan/pkg/filerecord"
	"github.com/autobrr/dupescan/pkg/logger"
)

func New() *HardlinkFileMap {
	return &HardlinkFileMap{
		hardlinkFileMap: make(map[filerecord.FileID][]filerecord.FileRecord),
		noIdentityPaths: strset.New(),
		log:             logger.GetLogger("hardlinkfilemap"),
	}
}

// Add files a record under its inode. It is safe for concurrent use.
func (t *HardlinkFileMap) Add(rec filerecord.FileRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !rec.HasID {
		if t.noIdentityPaths.Has(rec.Path) {
			return
		}
		t.noIdentityPaths.Add(rec.Path)
		t.noIdentity = append(t.noIdentity, rec)
		return
	}

	if recs, exists := t.hardlinkFileMap[rec.ID]; exists {
		// file id already associated with other paths
		// Check if path already exists to avoid duplicates
		for _, existing := range recs {
			if existing.Path == rec.Path {
				return
			}
		}

		t.hardlinkFileMap[rec.ID] = append(recs, rec)
		return
	}

	// file id has not been seen before, create id entry
	t.hardlinkFileMap[rec.ID] = []filerecord.FileRecord{rec}
}

// Partition splits the records added so far into hardlink groups,
// singletons and externally linked files. Every slice is sorted by path.
func (t *HardlinkFileMap) Partition() Partition {
	t.mu.Lock()
	defer t.mu.Unlock()

	var p Partition

	for id, recs := range t.hardlinkFileMap {
		switch {
		case len(recs) > 1:
			members := make([]filerecord.FileRecord, len(recs))
			copy(members, recs)
			sortByPath(members)
			p.Groups = append(p.Groups, Group{ID: id, Members: members})
		case recs[0].LinkCount > 1:
			t.log.Tracef("Excluding file linked outside the scanned tree: %s (%d links)", recs[0].Path, recs[0].LinkCount)
			p.External = append(p.External, recs[0])
		default:
			p.Singletons = append(p.Singletons, recs[0])
		}
	}

	p.Singletons = append(p.Singletons, t.noIdentity...)

	sort.Slice(p.Groups, func(i, j int) bool {
		return p.Groups[i].Members[0].Path < p.Groups[j].Members[0].Path
	})
	sortByPath(p.Singletons)
	sortByPath(p.External)

	return p
}

// Length returns the number of distinct inodes seen.
func (t *HardlinkFileMap) Length() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.hardlinkFileMap) + len(t.noIdentity)
}

func sortByPath(recs []filerecord.FileRecord) {
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].Path < recs[j].Path
	})
}
