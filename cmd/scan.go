package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/autobrr/dupescan/pkg/config"
	"github.com/autobrr/dupescan/pkg/dedupe"
	"github.com/autobrr/dupescan/pkg/expression"
	"github.com/autobrr/dupescan/pkg/logger"
	"github.com/autobrr/dupescan/pkg/notification"
	"github.com/autobrr/dupescan/pkg/paths"
	"github.com/autobrr/dupescan/pkg/report"
)

// scanFlagKeys maps scan flags to the config keys they override.
var scanFlagKeys = map[string]string{
	"exclude":           "scan.exclude",
	"default-excludes":  "scan.default_excludes",
	"hidden":            "scan.include_hidden",
	"follow-links":      "scan.follow_links",
	"min-size":          "scan.min_size",
	"min-age":           "scan.min_age",
	"level":             "scan.level",
	"limit":             "scan.limit",
	"workers":           "scan.workers",
	"file-timeout":      "scan.file_timeout",
	"io-rate":           "scan.io_rate",
	"sample-block-size": "scan.sample_block_size",
	"sample-blocks":     "scan.sample_blocks",
	"progress":          "scan.progress",
	"ignore":            "filter.ignore",
	"output":            "output.path",
	"format":            "output.format",
	"units":             "output.units",
	"quiet":             "output.quiet",
}

func ScanCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "scan [DIR]",
		Short: "Find duplicate files under a directory",
		Long: `This command walks DIR (or scan.root) and reports groups of identical files.

Candidates are narrowed by hardlink identity, then size, then a fingerprint of
their first blocks, before the remaining files are confirmed according to the
thoroughness level:

  1  digest while holding an exclusive lock (root only, otherwise as 2)
  2  full BLAKE2b digest (default)
  3  byte-by-byte comparison
  4  accept files whose first 64 blocks match
  5  accept files whose first block matches`,
		Example: `  dupescan scan /srv/media
  dupescan scan /srv/media --level 3 --format json -o dupes
  dupescan scan . --min-size 1MiB --ignore 'Ext == "nfo"'`,
		Args: cobra.MaximumNArgs(1),
	}

	flags := command.Flags()
	flags.StringSliceP("exclude", "x", nil, `Also exclude paths containing this text, or matching a "re:" regular expression`)
	flags.Bool("default-excludes", true, "Exclude "+strings.Join(paths.DefaultExcludes, " ")+" in addition to --exclude")
	flags.Bool("hidden", false, "Include hidden files and directories")
	flags.Bool("follow-links", false, "Follow symbolic links")
	flags.String("min-size", "", "Ignore files smaller than this, e.g. 4097 or 10MiB")
	flags.Float64("min-age", 0, "Ignore files created or modified within this many days")
	flags.IntP("level", "t", 2, "Thoroughness level, 1 (strictest) to 5 (fastest)")
	flags.Int64("limit", 0, "Stop after visiting this many files (0 = no limit)")
	flags.Int("workers", 0, "Size groups hashed in parallel (0 = number of CPUs)")
	flags.Duration("file-timeout", 10*time.Minute, "Give up reading a single file after this long (0 = never)")
	flags.Int("io-rate", 0, "Maximum file opens per second (0 = unlimited)")
	flags.Int("sample-block-size", 0, "Fingerprint block size in bytes (default page size)")
	flags.Int("sample-blocks", 0, "Fingerprint block count (default depends on level)")
	flags.Int("progress", 1000, "Print a progress marker every n sampled files (0 = off)")
	flags.StringSlice("ignore", nil, "Leave out files matching this expression")
	flags.StringP("output", "o", "", "Report path, the format extension is added when missing")
	flags.StringP("format", "f", "", "Report format: csv, tsv, json, yaml or text")
	flags.StringP("units", "u", "", "Report size units: B, K, M, G or X (auto)")
	flags.BoolP("quiet", "q", false, "Do not print the report to the terminal")

	command.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start := time.Now()

		// init core
		if err := initCore(); err != nil {
			return err
		}

		if err := config.ApplyFlags(cmd.Flags(), scanFlagKeys); err != nil {
			return err
		}

		cfg := config.Config
		if len(args) == 1 {
			cfg.Scan.Root = args[0]
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		// set log
		log := logger.GetLogger("scan")

		engine, src, err := buildScan(cfg)
		if err != nil {
			return err
		}

		opts := engine.Options()
		log.Infof("Scanning %s (level %d: %s, %d workers, min size %s)", cfg.Scan.Root, opts.Level,
			engine.Strategy(), opts.Workers, humanize.IBytes(uint64(opts.MinSize)))

		res, err := engine.Run(ctx, src)
		if err != nil {
			return err
		}

		logWalkStats(log, src.Stats())

		if res.Summary.Interrupted {
			log.Warn("Scan was interrupted, results are incomplete")
		}

		format, _ := report.ParseFormat(cfg.Output.Format)
		units, _ := report.ParseUnit(cfg.Output.Units)

		if !cfg.Output.Quiet && len(res.Clusters) > 0 {
			if err := report.Write(os.Stdout, report.FormatText, res.Clusters, report.Options{
				Unit:  units,
				Color: !color.NoColor,
			}); err != nil {
				log.WithError(err).Error("Failed printing report")
			}
		}

		if cfg.Output.Path != "" {
			written, err := report.WriteFile(cfg.Output.Path, format, res.Clusters, report.Options{Unit: units})
			if err != nil {
				return err
			}
			log.Infof("Wrote %d clusters to %s", len(res.Clusters), written)
		}

		logSummary(log, res.Summary)

		notify(log, cfg.Notifications, res, time.Since(start))
		return nil
	}

	return command
}

func buildScan(cfg *config.Configuration) (*dedupe.Engine, *paths.Source, error) {
	minSize, err := cfg.MinSizeBytes()
	if err != nil {
		return nil, nil, err
	}

	ignore, err := expression.Compile(cfg.Filter.Ignore)
	if err != nil {
		return nil, nil, err
	}

	exclude, err := paths.NewExcluder(cfg.Excludes())
	if err != nil {
		return nil, nil, err
	}

	opts := dedupe.Options{
		MinSize:         minSize,
		MinAge:          time.Duration(cfg.Scan.MinAge * float64(24*time.Hour)),
		Level:           cfg.Scan.Level,
		SampleBlockSize: cfg.Scan.SampleBlockSize,
		SampleBlocks:    cfg.Scan.SampleBlocks,
		Workers:         cfg.Scan.Workers,
		FileTimeout:     cfg.Scan.FileTimeout,
		IORate:          cfg.Scan.IORate,
		Ignore:          ignore,
	}
	if !cfg.Output.Quiet {
		opts.Progress = os.Stderr
		opts.ProgressEvery = cfg.Scan.Progress
	}

	engine, err := dedupe.New(opts)
	if err != nil {
		return nil, nil, err
	}

	src := &paths.Source{
		Root:          cfg.Scan.Root,
		Exclude:       exclude,
		IncludeHidden: cfg.Scan.IncludeHidden,
		FollowLinks:   cfg.Scan.FollowLinks,
		Limit:         cfg.Scan.Limit,
	}

	return engine, src, nil
}

func logWalkStats(log *logrus.Entry, st paths.Stats) {
	log.Debugf("Visited %d files (excluded: %d, hidden: %d, symlinks: %d, special: %d, aliases: %d, errors: %d)",
		st.Visited, st.Excluded, st.Hidden, st.Symlinks, st.Special, st.Aliases, st.Errors)

	if st.LimitReached {
		log.Warnf("Stopped after %d files, raise scan.limit to scan everything", st.Visited)
	}
	if st.Errors > 0 {
		log.Warnf("Failed reading %d entries, run with -v for details", st.Errors)
	}
}

func logSummary(log *logrus.Entry, s dedupe.Summary) {
	log.Debugf("Eliminated %d files by size, %d by fingerprint, %d by content",
		s.UniqueSizes, s.FingerprintEliminated, s.ContentEliminated)

	if dropped := s.Dropped.Total(); dropped > 0 {
		log.WithFields(logrus.Fields{
			"transient":  s.Dropped.Transient,
			"permission": s.Dropped.Permission,
			"timeout":    s.Dropped.Timeout,
		}).Warnf("Skipped %d files that could not be read", dropped)
	}

	log.WithFields(logrus.Fields{
		"reclaimable_space": humanize.IBytes(uint64(s.WastedBytes)),
		"biggest_waste":     humanize.IBytes(uint64(s.BiggestWaste)),
		"hardlink_groups":   s.HardlinkGroups,
		"external_links":    s.ExternalHardlinks,
	}).Infof("Found %d clusters (%d duplicated files) in %d files, took %s",
		s.Clusters, s.DuplicatedFiles, s.FilesSeen, s.Duration.Truncate(time.Millisecond))
}

func notify(log *logrus.Entry, cfg config.NotificationsConfig, res *dedupe.Result, runTime time.Duration) {
	noti := notification.NewDiscordSender(log, cfg)
	if !noti.CanSend() {
		return
	}

	fields := make([]notification.Field, 0, len(res.Clusters))
	for i, c := range res.Clusters {
		fields = append(fields, noti.BuildField(notification.ActionFor(c), notification.BuildOptions{
			Cluster: c,
			Index:   i + 1,
		}))
	}

	title := "dupescan"
	if res.Summary.Interrupted {
		title += " (interrupted)"
	}

	description := fmt.Sprintf("Found %d clusters, %s reclaimable across %d files scanned",
		res.Summary.Clusters, humanize.IBytes(uint64(res.Summary.WastedBytes)), res.Summary.FilesSeen)

	if err := noti.Send(title, description, runTime, fields); err != nil {
		log.WithError(err).Error("Failed sending notification")
	}
}
