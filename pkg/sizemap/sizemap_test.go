package sizemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/dupescan/pkg/filerecord"
)

func TestCandidates(t *testing.T) {
	sm := New([]filerecord.FileRecord{
		{Path: "/b", Size: 4096},
		{Path: "/a", Size: 4096},
		{Path: "/unique", Size: 12345},
		{Path: "/c", Size: 8192},
		{Path: "/d", Size: 8192},
		{Path: "/e", Size: 8192},
	})

	groups, unique := sm.Candidates()

	assert.Equal(t, 1, unique)
	assert.Equal(t, 3, sm.Length())
	require.Len(t, groups, 2)

	assert.EqualValues(t, 8192, groups[0].Size)
	assert.Len(t, groups[0].Members, 3)
	assert.EqualValues(t, 4096, groups[1].Size)
	assert.Equal(t, "/a", groups[1].Members[0].Path)
	assert.Equal(t, "/b", groups[1].Members[1].Path)

	for _, g := range groups {
		for _, m := range g.Members {
			assert.NotEqual(t, "/unique", m.Path)
		}
	}
}

func TestCandidates_Empty(t *testing.T) {
	groups, unique := New(nil).Candidates()
	assert.Empty(t, groups)
	assert.Zero(t, unique)
}
