// Package dedupe runs the duplicate detection pipeline: hardlink
// partitioning, size partitioning, boundary sampling and content
// confirmation, then assembles the reportable clusters.
package dedupe

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"

	"github.com/autobrr/dupescan/pkg/confirm"
	"github.com/autobrr/dupescan/pkg/expression"
	"github.com/autobrr/dupescan/pkg/fileio"
	"github.com/autobrr/dupescan/pkg/filerecord"
	"github.com/autobrr/dupescan/pkg/hardlinkfilemap"
	"github.com/autobrr/dupescan/pkg/logger"
	"github.com/autobrr/dupescan/pkg/progress"
	"github.com/autobrr/dupescan/pkg/sampler"
	"github.com/autobrr/dupescan/pkg/scanerr"
	"github.com/autobrr/dupescan/pkg/sizemap"
)

type Options struct {
	// MinSize excludes files smaller than this many bytes.
	MinSize int64
	// MinAge excludes files created or modified more recently.
	MinAge time.Duration
	// Level is the thoroughness level, see confirm.ForLevel.
	Level int
	// SampleBlockSize defaults to the OS page size.
	SampleBlockSize int
	// SampleBlocks defaults to confirm.SampleBlocks(Level).
	SampleBlocks int
	// Workers is the number of size groups processed at once, NumCPU by default.
	Workers int
	// FileTimeout bounds the time spent reading one file. Zero disables it.
	FileTimeout time.Duration
	// IORate caps file opens per second. Zero means unlimited.
	IORate int
	// Ignore excludes records matching any expression.
	Ignore []expression.CompiledExpression

	// Progress receives a marker every ProgressEvery sampled files.
	Progress      io.Writer
	ProgressEvery int
}

func (o Options) validate() error {
	if err := confirm.ValidateLevel(o.Level); err != nil {
		return err
	}

	for name, v := range map[string]int64{
		"min size":          o.MinSize,
		"min age":           int64(o.MinAge),
		"sample block size": int64(o.SampleBlockSize),
		"sample blocks":     int64(o.SampleBlocks),
		"workers":           int64(o.Workers),
		"file timeout":      int64(o.FileTimeout),
		"io rate":           int64(o.IORate),
		"progress":          int64(o.ProgressEvery),
	} {
		if v < 0 {
			return errors.Wrapf(scanerr.ErrConfiguration, "%s must not be negative", name)
		}
	}

	return nil
}

// Engine holds a validated policy. It keeps no state between runs and is
// safe to use from several goroutines.
type Engine struct {
	opts      Options
	io        fileio.Options
	confirmer confirm.Confirmer
	log       *logrus.Entry
}

func New(opts Options) (*Engine, error) {
	if opts.Level == 0 {
		opts.Level = confirm.DefaultLevel
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}

	if opts.SampleBlockSize == 0 {
		opts.SampleBlockSize = os.Getpagesize()
	}
	if opts.SampleBlocks == 0 {
		opts.SampleBlocks = confirm.SampleBlocks(opts.Level)
	}
	if opts.Workers == 0 {
		opts.Workers = runtime.NumCPU()
	}

	fio := fileio.Options{Timeout: opts.FileTimeout}
	if opts.IORate > 0 {
		fio.Limiter = ratelimit.New(opts.IORate)
	}

	c, err := confirm.ForLevel(opts.Level, fio)
	if err != nil {
		return nil, err
	}

	return &Engine{
		opts:      opts,
		io:        fio,
		confirmer: c,
		log:       logger.GetLogger("dedupe"),
	}, nil
}

// Options returns the options with defaults applied.
func (e *Engine) Options() Options {
	return e.opts
}

// Strategy names the confirmation strategy.
func (e *Engine) Strategy() string {
	return e.confirmer.Name()
}

type Result struct {
	Clusters []Cluster
	Summary  Summary
}

// Run scans src and returns the duplicate clusters, largest first.
//
// Cancellation during traversal yields no clusters. Cancellation while
// hashing yields the hardlink clusters and the clusters of every size group
// that finished; groups in flight are discarded. Both set
// Summary.Interrupted and return a nil error.
func (e *Engine) Run(ctx context.Context, src Source) (*Result, error) {
	start := time.Now()

	res := &Result{}
	res.Summary.Strategy = e.confirmer.Name()
	defer func() {
		res.Summary.Duration = time.Since(start)
	}()

	// intake
	hlm := hardlinkfilemap.New()
	if err := src.Walk(ctx, func(rec filerecord.FileRecord) {
		if e.admit(ctx, rec, start, &res.Summary) {
			hlm.Add(rec)
		}
	}); err != nil {
		if ctx.Err() != nil || errors.Is(err, scanerr.ErrInterrupted) {
			e.log.Warn("Scan interrupted during traversal")
			res.Summary.Interrupted = true
			return res, nil
		}
		return nil, errors.Wrap(err, "traverse")
	}

	e.log.Debugf("Accepted %d of %d files (%d distinct inodes)",
		res.Summary.FilesSeen-res.Summary.SmallFiles-res.Summary.YoungFiles-res.Summary.FilteredFiles,
		res.Summary.FilesSeen, hlm.Length())

	// hardlinks
	part := hlm.Partition()
	for _, g := range part.Groups {
		res.Summary.HardlinkGroups++
		res.Summary.HardlinkedFiles += int64(len(g.Members))
		res.Clusters = append(res.Clusters, Cluster{
			Kind:    KindHardlink,
			Size:    g.Members[0].Size,
			Digest:  g.ID.String(),
			Members: g.Members,
		})
	}
	res.Summary.ExternalHardlinks = int64(len(part.External))

	// sizes
	sizeGroups, unique := sizemap.New(part.Singletons).Candidates()
	res.Summary.UniqueSizes = int64(unique)
	res.Summary.SizeGroups = int64(len(sizeGroups))
	for _, g := range sizeGroups {
		res.Summary.SizeCandidates += int64(len(g.Members))
	}

	e.log.Debugf("Found %d hardlink groups, %d size groups (%d candidates, %d unique sizes)",
		res.Summary.HardlinkGroups, res.Summary.SizeGroups, res.Summary.SizeCandidates, unique)

	// content
	clusters, err := e.hashGroups(ctx, sizeGroups, &res.Summary)
	if err != nil {
		return nil, err
	}
	res.Clusters = append(res.Clusters, clusters...)

	if ctx.Err() != nil {
		e.log.Warn("Scan interrupted during hashing, reporting completed groups only")
		res.Summary.Interrupted = true
	}

	sortClusters(res.Clusters)
	res.Summary.addClusters(res.Clusters)

	return res, nil
}

// admit applies the intake filters to rec.
func (e *Engine) admit(ctx context.Context, rec filerecord.FileRecord, now time.Time, s *Summary) bool {
	s.FilesSeen++

	if rec.Size < e.opts.MinSize {
		s.SmallFiles++
		return false
	}

	if e.opts.MinAge > 0 && now.Sub(rec.Newest()) < e.opts.MinAge {
		s.YoungFiles++
		return false
	}

	if len(e.opts.Ignore) > 0 {
		match, reason, err := expression.CheckRecordSingleMatchWithReason(ctx, rec, e.opts.Ignore)
		if err != nil {
			e.log.WithError(err).Warnf("Failed checking ignore expressions for %s", rec.Path)
		} else if match {
			e.log.Tracef("Ignoring %s (%s)", rec.Path, reason)
			s.FilteredFiles++
			return false
		}
	}

	return true
}

// groupStats are merged into the summary only when a group completes.
type groupStats struct {
	fingerprintEliminated atomic.Int64
	contentEliminated     atomic.Int64
	dropped               scanerr.Tally
}

func (e *Engine) hashGroups(ctx context.Context, groups []sizemap.Group, s *Summary) ([]Cluster, error) {
	var (
		mu       sync.Mutex
		clusters []Cluster
		stats    groupStats
	)

	marker := progress.New(e.opts.Progress, e.opts.ProgressEvery, '.')
	defer marker.Done()

	smp := &sampler.Sampler{
		BlockSize: e.opts.SampleBlockSize,
		Blocks:    e.opts.SampleBlocks,
		IO:        e.io,
		Progress:  marker,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	for _, group := range groups {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			found, err := e.hashGroup(gctx, smp, group, &stats)
			if err != nil {
				// in-flight group, discarded
				return err
			}

			mu.Lock()
			clusters = append(clusters, found...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return nil, errors.Wrap(err, "hash size groups")
	}

	s.FingerprintEliminated = stats.fingerprintEliminated.Load()
	s.ContentEliminated = stats.contentEliminated.Load()
	s.Dropped = stats.dropped.Counts()

	return clusters, nil
}

// hashGroup samples one size group and confirms each fingerprint group.
// It only fails when ctx is cancelled.
func (e *Engine) hashGroup(ctx context.Context, smp *sampler.Sampler, group sizemap.Group, stats *groupStats) ([]Cluster, error) {
	sampled, err := smp.Split(ctx, group.Members)
	if err != nil {
		return nil, err
	}

	var (
		found             []Cluster
		drops             = sampled.Drops
		contentEliminated int
	)

	for _, fg := range sampled.Groups {
		confirmed, err := e.confirmer.Partition(ctx, fg.Members)
		if err != nil {
			return nil, err
		}

		drops = append(drops, confirmed.Drops...)
		contentEliminated += confirmed.Unique

		for i, cg := range confirmed.Groups {
			digest := cg.Digest
			if digest == "" {
				digest = fmt.Sprintf("%016x", fg.Fingerprint)
				if len(confirmed.Groups) > 1 {
					digest = fmt.Sprintf("%s/%d", digest, i+1)
				}
			}

			found = append(found, Cluster{
				Kind:    KindContent,
				Size:    group.Size,
				Digest:  digest,
				Members: cg.Members,
			})
		}
	}

	for _, d := range drops {
		e.log.WithError(d.Err).Debugf("Dropped %s (%s)", d.Path, d.Kind)
	}

	stats.fingerprintEliminated.Add(int64(sampled.Unique))
	stats.contentEliminated.Add(int64(contentEliminated))
	stats.dropped.Add(drops...)

	return found, nil
}
