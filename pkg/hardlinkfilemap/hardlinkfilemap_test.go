package hardlinkfilemap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/dupescan/pkg/filerecord"
)

func rec(path string, dev, ino, nlink uint64) filerecord.FileRecord {
	return filerecord.FileRecord{
		Path:      path,
		Size:      100,
		ID:        filerecord.FileID{Device: dev, Inode: ino},
		HasID:     true,
		LinkCount: nlink,
	}
}

func TestPartition(t *testing.T) {
	hfm := New()
	hfm.Add(rec("/data/b", 1, 10, 2))
	hfm.Add(rec("/data/a", 1, 10, 2))
	hfm.Add(rec("/data/c", 1, 11, 1))
	hfm.Add(rec("/data/d", 1, 12, 3))
	hfm.Add(rec("/data/e", 2, 10, 1))

	p := hfm.Partition()

	require.Len(t, p.Groups, 1)
	assert.Equal(t, filerecord.FileID{Device: 1, Inode: 10}, p.Groups[0].ID)
	require.Len(t, p.Groups[0].Members, 2)
	assert.Equal(t, "/data/a", p.Groups[0].Members[0].Path)
	assert.Equal(t, "/data/b", p.Groups[0].Members[1].Path)

	// same inode number on another device is a different file
	require.Len(t, p.Singletons, 2)
	assert.Equal(t, "/data/c", p.Singletons[0].Path)
	assert.Equal(t, "/data/e", p.Singletons[1].Path)

	require.Len(t, p.External, 1)
	assert.Equal(t, "/data/d", p.External[0].Path)
}

func TestPartition_NeverBothGroupAndSingleton(t *testing.T) {
	hfm := New()
	hfm.Add(rec("/x/1", 1, 1, 2))
	hfm.Add(rec("/x/2", 1, 1, 2))
	hfm.Add(rec("/x/3", 1, 2, 1))

	p := hfm.Partition()

	grouped := map[string]bool{}
	for _, g := range p.Groups {
		for _, m := range g.Members {
			grouped[m.Path] = true
		}
	}
	for _, s := range p.Singletons {
		assert.False(t, grouped[s.Path], "%s is both hardlinked and a singleton", s.Path)
	}
}

func TestAdd_DuplicatePathStoredOnce(t *testing.T) {
	hfm := New()
	hfm.Add(rec("/x/1", 1, 1, 1))
	hfm.Add(rec("/x/1", 1, 1, 1))

	p := hfm.Partition()
	assert.Empty(t, p.Groups)
	assert.Len(t, p.Singletons, 1)
}

func TestAdd_NoIdentityIsSingleton(t *testing.T) {
	hfm := New()
	hfm.Add(filerecord.FileRecord{Path: "/x/1", LinkCount: 1})
	hfm.Add(filerecord.FileRecord{Path: "/x/2", LinkCount: 1})

	p := hfm.Partition()
	assert.Empty(t, p.Groups)
	assert.Len(t, p.Singletons, 2)
	assert.Equal(t, 2, hfm.Length())
}

func TestAdd_NoIdentityDuplicatePathStoredOnce(t *testing.T) {
	hfm := New()
	hfm.Add(filerecord.FileRecord{Path: "/x/1", LinkCount: 1})
	hfm.Add(filerecord.FileRecord{Path: "/x/1", LinkCount: 1})

	p := hfm.Partition()
	assert.Empty(t, p.Groups)
	require.Len(t, p.Singletons, 1)
	assert.Equal(t, "/x/1", p.Singletons[0].Path)
	assert.Equal(t, 1, hfm.Length())
}

func TestAdd_Concurrent(t *testing.T) {
	hfm := New()

	var wg sync.WaitGroup
	for i := uint64(0); i < 100; i++ {
		wg.Add(1)
		go func(i uint64) {
			defer wg.Done()
			hfm.Add(rec("/c/"+string(rune('a'+i%26))+string(rune('a'+i/26)), 1, i%10, 2))
		}(i)
	}
	wg.Wait()

	p := hfm.Partition()
	assert.Len(t, p.Groups, 10)
	total := 0
	for _, g := range p.Groups {
		total += len(g.Members)
	}
	assert.Equal(t, 100, total)
}
