// Package paths walks a directory tree and yields file records for the
// regular files it contains.
package paths

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"github.com/pkg/errors"
	"github.com/scylladb/go-set/strset"

	"github.com/autobrr/dupescan/pkg/filerecord"
	"github.com/autobrr/dupescan/pkg/logger"
	"github.com/autobrr/dupescan/pkg/scanerr"
)

var log = logger.GetLogger("paths")

// Source walks Root with a parallel directory reader.
type Source struct {
	Root          string
	Exclude       *Excluder
	IncludeHidden bool
	FollowLinks   bool
	// Limit caps the number of files visited, taken in path order. Zero
	// means no cap.
	Limit int64
	// Workers is the number of directory readers, zero picks a default.
	Workers int

	stats stats
}

type stats struct {
	visited  atomic.Int64
	excluded atomic.Int64
	hidden   atomic.Int64
	symlinks atomic.Int64
	special  atomic.Int64
	aliases  atomic.Int64
	errors   atomic.Int64
	limited  atomic.Bool
}

// Stats counts what a walk visited and skipped.
type Stats struct {
	Visited      int64 `json:"visited"`
	Excluded     int64 `json:"excluded"`
	Hidden       int64 `json:"hidden"`
	Symlinks     int64 `json:"symlinks"`
	Special      int64 `json:"special"`
	Aliases      int64 `json:"aliases"`
	Errors       int64 `json:"errors"`
	LimitReached bool  `json:"limit_reached"`
}

func (s *Source) Stats() Stats {
	return Stats{
		Visited:      s.stats.visited.Load(),
		Excluded:     s.stats.excluded.Load(),
		Hidden:       s.stats.hidden.Load(),
		Symlinks:     s.stats.symlinks.Load(),
		Special:      s.stats.special.Load(),
		Aliases:      s.stats.aliases.Load(),
		Errors:       s.stats.errors.Load(),
		LimitReached: s.stats.limited.Load(),
	}
}

// Walk calls fn once per regular file under Root, in path order. fn is
// never called concurrently. With FollowLinks, a file reached through
// several paths is yielded once. Reaching Limit is not an error;
// cancelling ctx ends the walk with scanerr.ErrInterrupted.
func (s *Source) Walk(ctx context.Context, fn func(filerecord.FileRecord)) error {
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return errors.Wrapf(err, "resolve absolute path %s", s.Root)
	}

	info, err := os.Stat(root)
	if err != nil {
		return errors.Wrapf(scanerr.ErrConfiguration, "scan root %s: %v", root, err)
	}
	if !info.IsDir() {
		return errors.Wrapf(scanerr.ErrConfiguration, "scan root %s is not a directory", root)
	}

	// a root reached through a symlink does not make every file an alias
	realRoot := root
	if s.FollowLinks {
		if realRoot, err = filepath.EvalSymlinks(root); err != nil {
			return errors.Wrapf(scanerr.ErrConfiguration, "scan root %s: %v", root, err)
		}
	}

	var (
		mu         sync.Mutex
		candidates []candidate
	)

	conf := fastwalk.Config{
		Follow:     s.FollowLinks,
		NumWorkers: s.Workers,
	}

	err = fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			s.stats.errors.Add(1)
			log.WithError(err).Debugf("Failed reading %s", path)
			return nil
		}

		if path == root {
			return nil
		}

		if !s.IncludeHidden && isHidden(root, path) {
			s.stats.hidden.Add(1)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if pattern, ok := s.Exclude.Match(path, d.IsDir()); ok {
			log.Tracef("Excluding %s (pattern %q)", path, pattern)
			s.stats.excluded.Add(1)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		var info fs.FileInfo
		if d.Type()&fs.ModeSymlink != 0 {
			if !s.FollowLinks {
				s.stats.symlinks.Add(1)
				return nil
			}

			info, err = os.Stat(path)
			if err != nil {
				s.stats.errors.Add(1)
				log.WithError(err).Debugf("Failed resolving symlink %s", path)
				return nil
			}
			if info.IsDir() {
				// fastwalk descends into it
				return nil
			}
		} else {
			info, err = d.Info()
			if err != nil {
				s.stats.errors.Add(1)
				log.WithError(err).Debugf("Failed stat %s", path)
				return nil
			}
		}

		if !info.Mode().IsRegular() {
			s.stats.special.Add(1)
			return nil
		}

		c := candidate{rec: filerecord.FromFileInfo(path, info), realPath: path, direct: true}
		if s.FollowLinks {
			c.realPath, err = filepath.EvalSymlinks(path)
			if err != nil {
				s.stats.errors.Add(1)
				log.WithError(err).Debugf("Failed resolving real path of %s", path)
				return nil
			}
			c.direct = c.realPath == filepath.Join(realRoot, strings.TrimPrefix(path, root))
		}

		mu.Lock()
		candidates = append(candidates, c)
		mu.Unlock()
		return nil
	})

	switch {
	case err == nil:
	case ctx.Err() != nil:
		return errors.Wrapf(scanerr.ErrInterrupted, "walk %s: %v", root, ctx.Err())
	default:
		return errors.Wrapf(err, "walk %s", root)
	}

	// workers deliver entries in any order, so everything below runs on
	// the path-sorted candidate list
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].rec.Path < candidates[j].rec.Path
	})

	if s.FollowLinks {
		candidates = s.dropAliases(candidates)
	}

	if s.Limit > 0 && int64(len(candidates)) > s.Limit {
		s.stats.limited.Store(true)
		candidates = candidates[:s.Limit]
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(scanerr.ErrInterrupted, "walk %s: %v", root, err)
		}
		s.stats.visited.Add(1)
		fn(c.rec)
	}

	return nil
}

type candidate struct {
	rec      filerecord.FileRecord
	realPath string
	// direct is set when no symlink was crossed below the root
	direct bool
}

// dropAliases keeps one path per real file: the one reached without
// crossing a symlink when there is one, otherwise the lexically smallest.
// candidates must be sorted by path and stay sorted.
func (s *Source) dropAliases(candidates []candidate) []candidate {
	chosen := make(map[string]int, len(candidates))
	for i, c := range candidates {
		j, ok := chosen[c.realPath]
		if !ok {
			chosen[c.realPath] = i
			continue
		}
		s.stats.aliases.Add(1)
		if c.direct && !candidates[j].direct {
			chosen[c.realPath] = i
		}
	}

	keep := strset.NewWithSize(len(chosen))
	for _, i := range chosen {
		keep.Add(candidates[i].rec.Path)
	}

	out := candidates[:0]
	for _, c := range candidates {
		if keep.Has(c.rec.Path) {
			out = append(out, c)
		}
	}
	return out
}

// isHidden reports whether any component of path below root starts with a dot.
func isHidden(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}
