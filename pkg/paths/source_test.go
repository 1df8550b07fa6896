package paths

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/dupescan/pkg/filerecord"
	"github.com/autobrr/dupescan/pkg/scanerr"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func collect(t *testing.T, s *Source) []string {
	t.Helper()

	var got []string
	require.NoError(t, s.Walk(context.Background(), func(rec filerecord.FileRecord) {
		rel, err := filepath.Rel(s.Root, rec.Path)
		require.NoError(t, err)
		got = append(got, filepath.ToSlash(rel))
	}))
	sort.Strings(got)
	return got
}

func tree(t *testing.T) string {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "sub", "b.txt"), "b")
	writeFile(t, filepath.Join(root, "sub", ".hidden"), "h")
	writeFile(t, filepath.Join(root, ".git", "config"), "c")
	writeFile(t, filepath.Join(root, "cache", "c.bin"), "c")
	return root
}

func TestWalk_SkipsHidden(t *testing.T) {
	root := tree(t)
	s := &Source{Root: root}

	assert.Equal(t, []string{"a.txt", "cache/c.bin", "sub/b.txt"}, collect(t, s))

	st := s.Stats()
	assert.EqualValues(t, 3, st.Visited)
	assert.EqualValues(t, 2, st.Hidden)
}

func TestWalk_IncludeHidden(t *testing.T) {
	root := tree(t)
	s := &Source{Root: root, IncludeHidden: true}

	assert.Equal(t, []string{".git/config", "a.txt", "cache/c.bin", "sub/.hidden", "sub/b.txt"}, collect(t, s))
}

func TestWalk_Exclude(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{"plain directory", []string{"/cache/"}, []string{"a.txt", "sub/b.txt"}},
		{"plain substring", []string{"b.txt"}, []string{"a.txt", "cache/c.bin"}},
		{"regex", []string{`re:\.txt$`}, []string{"cache/c.bin"}},
		{"regex lookahead", []string{`re:^(?!.*/sub/).*\.txt$`}, []string{"cache/c.bin", "sub/b.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := tree(t)
			ex, err := NewExcluder(tt.patterns)
			require.NoError(t, err)

			s := &Source{Root: root, Exclude: ex}
			assert.Equal(t, tt.want, collect(t, s))
			assert.NotZero(t, s.Stats().Excluded)
		})
	}
}

func TestNewExcluder_InvalidRegex(t *testing.T) {
	_, err := NewExcluder([]string{"re:(unclosed"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, scanerr.ErrConfiguration))
}

func TestExcluder_DirectoryTrailingSlash(t *testing.T) {
	ex, err := NewExcluder(DefaultExcludes)
	require.NoError(t, err)

	_, ok := ex.Match("/var", true)
	assert.True(t, ok)
	_, ok = ex.Match("/variable.txt", false)
	assert.False(t, ok)
	_, ok = ex.Match("/home/user/process", true)
	assert.False(t, ok)
}

func TestWalk_Limit(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, filepath.Join(root, "f", string(rune('a'+i))), "x")
	}

	s := &Source{Root: root, Limit: 5}
	got := collect(t, s)

	assert.Equal(t, []string{"f/a", "f/b", "f/c", "f/d", "f/e"}, got)
	assert.EqualValues(t, 5, s.Stats().Visited)
	assert.True(t, s.Stats().LimitReached)
}

func TestWalk_LimitNotReached(t *testing.T) {
	root := tree(t)

	s := &Source{Root: root, Limit: 3}
	assert.Len(t, collect(t, s), 3)
	assert.False(t, s.Stats().LimitReached)
}

func TestWalk_LimitSameFilesEveryRun(t *testing.T) {
	root := t.TempDir()
	var all []string
	for d := 0; d < 8; d++ {
		for f := 0; f < 10; f++ {
			rel := fmt.Sprintf("d%d/f%02d", d, f)
			writeFile(t, filepath.Join(root, filepath.FromSlash(rel)), "x")
			all = append(all, rel)
		}
	}
	sort.Strings(all)

	want := all[:25]
	for i := 0; i < 10; i++ {
		s := &Source{Root: root, Limit: 25, Workers: 4}
		require.Equal(t, want, collect(t, s), "run %d", i)
	}
}

func TestWalk_PathOrder(t *testing.T) {
	root := t.TempDir()
	for d := 0; d < 4; d++ {
		for f := 0; f < 5; f++ {
			writeFile(t, filepath.Join(root, fmt.Sprintf("d%d", d), fmt.Sprintf("f%d", f)), "x")
		}
	}

	var got []string
	s := &Source{Root: root, Workers: 4}
	require.NoError(t, s.Walk(context.Background(), func(rec filerecord.FileRecord) {
		got = append(got, rec.Path)
	}))

	assert.Len(t, got, 20)
	assert.True(t, sort.StringsAreSorted(got))
}

func TestWalk_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "data", "file"), "content")
	require.NoError(t, os.Symlink(filepath.Join(root, "data", "file"), filepath.Join(root, "alias")))

	s := &Source{Root: root}
	assert.Equal(t, []string{"data/file"}, collect(t, s))
	assert.EqualValues(t, 1, s.Stats().Symlinks)

	// "alias" sorts first but the real path wins
	s = &Source{Root: root, FollowLinks: true}
	assert.Equal(t, []string{"data/file"}, collect(t, s))
	assert.EqualValues(t, 1, s.Stats().Aliases)
}

func TestWalk_SymlinkOutsideRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "target"), "content")

	root := t.TempDir()
	for _, name := range []string{"b-link", "a-link", "c-link"} {
		require.NoError(t, os.Symlink(filepath.Join(outside, "target"), filepath.Join(root, name)))
	}

	// only aliases were reached, the lexically smallest one is kept
	s := &Source{Root: root, FollowLinks: true}
	assert.Equal(t, []string{"a-link"}, collect(t, s))
	assert.EqualValues(t, 2, s.Stats().Aliases)
}

func TestWalk_SymlinksSameChoiceEveryRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	root := t.TempDir()
	var want []string
	for d := 0; d < 4; d++ {
		for f := 0; f < 10; f++ {
			rel := fmt.Sprintf("data%d/f%02d", d, f)
			target := filepath.Join(root, filepath.FromSlash(rel))
			writeFile(t, target, rel)
			link := filepath.Join(root, fmt.Sprintf("links%d", d), fmt.Sprintf("f%02d", f))
			require.NoError(t, os.MkdirAll(filepath.Dir(link), 0o755))
			require.NoError(t, os.Symlink(target, link))
			want = append(want, rel)
		}
	}
	sort.Strings(want)

	for i := 0; i < 10; i++ {
		s := &Source{Root: root, FollowLinks: true, Workers: 4}
		require.Equal(t, want, collect(t, s), "run %d", i)
		require.EqualValues(t, 40, s.Stats().Aliases)
	}
}

func TestWalk_BadRoot(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file")
	writeFile(t, file, "x")

	for _, r := range []string{file, filepath.Join(root, "missing")} {
		s := &Source{Root: r}
		err := s.Walk(context.Background(), func(filerecord.FileRecord) {})
		assert.True(t, errors.Is(err, scanerr.ErrConfiguration), r)
	}
}

func TestWalk_Cancelled(t *testing.T) {
	root := tree(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Source{Root: root}
	err := s.Walk(ctx, func(filerecord.FileRecord) {})
	assert.True(t, errors.Is(err, scanerr.ErrInterrupted))
}

func TestIsHidden(t *testing.T) {
	assert.True(t, isHidden("/r", "/r/.a"))
	assert.True(t, isHidden("/r", "/r/x/.a/b"))
	assert.False(t, isHidden("/r", "/r/x/a.b"))
	assert.False(t, isHidden("/home/.me/r", "/home/.me/r/x"))
}
