package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/autobrr/dupefind/pkg/checksum"
	"github.com/autobrr/dupefind/pkg/config"
	"github.com/autobrr/dupefind/pkg/duplicate"
	"github.com/autobrr/dupefind/pkg/finder"
	"github.com/autobrr/dupefind/pkg/logger"
	"github.com/autobrr/dupefind/pkg/metrics"
	"github.com/autobrr/dupefind/pkg/notification"
	"github.com/autobrr/dupefind/pkg/paths"
	"github.com/autobrr/dupefind/pkg/report"
)

type scanFlags struct {
	minSize        string
	include        []string
	exclude        []string
	excludeRegex   []string
	filter         string
	followSymlinks bool
	foldCase       bool
	keep           string
	format         string
	metricsFile    string
	noNotify       bool
	noHardlinks    bool
}

func ScanCommand() *cobra.Command {
	var flags scanFlags

	command := &cobra.Command{
		Use:   "scan [PATH...]",
		Short: "Find duplicate files",
		Long: `This command searches the given folders, or the configured roots, for files with identical content.
Files are first grouped by size, only files sharing a size are read to compare their CRC-32 checksum.`,
		Example: `  dupefind scan ~/Downloads ~/Documents
  dupefind scan --min-size 1MiB --exclude node_modules --format json .`,
	}

	fs := command.Flags()
	fs.StringVar(&flags.minSize, "min-size", "", "Ignore files smaller than this size, e.g. 4KiB (default from config)")
	fs.StringSliceVar(&flags.include, "include", nil, "Only consider files whose name matches one of these globs")
	fs.StringSliceVar(&flags.exclude, "exclude", nil, "Skip files and folders matching these globs by name or relative path")
	fs.StringSliceVar(&flags.excludeRegex, "exclude-regex", nil, "Skip files and folders whose path matches these patterns")
	fs.StringVar(&flags.filter, "filter", "", "Only consider files matching this expression, e.g. 'Ext == \".jpg\"'")
	fs.BoolVar(&flags.followSymlinks, "follow-symlinks", false, "Follow symbolic links")
	fs.BoolVar(&flags.foldCase, "fold-case", config.DefaultFoldCase(), "Treat paths differing only in case as the same file")
	fs.StringVar(&flags.keep, "keep", "", "Which file of a group to present as the original: first, shortest, longest, oldest, newest")
	fs.StringVarP(&flags.format, "format", "f", "text", "Report format: text, json, yaml")
	fs.StringVar(&flags.metricsFile, "metrics-file", "", "Write prometheus metrics to this textfile")
	fs.BoolVar(&flags.noNotify, "no-notify", false, "Do not send notifications")
	fs.BoolVar(&flags.noHardlinks, "no-hardlinks", false, "Do not detect duplicates that are hardlinks")

	command.Run = func(cmd *cobra.Command, args []string) {
		// init core
		if !initialized {
			initCore()
			initialized = true
		}

		// set log
		log := logger.GetLogger("scan")

		opts, err := scanOptions(cmd, args, flags, config.Config.Scan)
		if err != nil {
			log.WithError(err).Fatal("Failed validating scan options")
		}

		format, err := report.ParseFormat(flags.format)
		if err != nil {
			log.WithError(err).Fatal("Failed validating report format")
		}

		keep, err := duplicate.ParseKeepStrategy(opts.Keep)
		if err != nil {
			log.WithError(err).Fatal("Failed validating keep strategy")
		}

		walker, err := paths.NewWalker(paths.WalkerOptions{
			Roots:          opts.Roots,
			Include:        opts.Include,
			Exclude:        opts.Exclude,
			ExcludeRegex:   opts.ExcludeRegex,
			Filter:         opts.Filter,
			FollowSymlinks: opts.FollowSymlinks,
			FoldCase:       opts.FoldCase,
		})
		if err != nil {
			log.WithError(err).Fatal("Failed preparing folder walker")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cache := checksum.NewCache()
		f := finder.New(finder.Options{
			MinSize:  opts.MinSize,
			FoldCase: opts.FoldCase,
		}, finder.WithCache(cache), finder.WithProgress(newLogProgress(log)))

		log.Infof("Searching for duplicates in: %v", walker.Roots())
		log.Debugf("Ignoring files smaller than %s", humanize.IBytes(uint64(opts.MinSize)))

		res, err := f.Find(ctx, walker)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, finder.ErrCancelled) {
				log.Warn("Scan cancelled")
				stop()
				os.Exit(130)
			}
			log.WithError(err).Fatal("Failed searching for duplicates")
		}

		stats := cache.Stats()
		log.WithField("elapsed", res.Outcome.Elapsed.Truncate(time.Millisecond)).
			Debugf("Checksummed %d files, %d served from cache, %d failed", stats.Computed, stats.Hits, stats.Failures)

		r := report.Build(res, walker.Roots(), keep, !flags.noHardlinks)
		if err := report.Write(os.Stdout, r, format); err != nil {
			log.WithError(err).Fatal("Failed writing report")
		}

		log.WithField("reclaimable_space", humanize.IBytes(r.Summary.ReclaimableBytes)).Info(r.Summary.Description())

		// metrics
		if path := metricsPath(cmd, flags); path != "" {
			m := metrics.New()
			m.Observe(res, stats)
			if err := m.WriteTextfile(path); err != nil {
				log.WithError(err).Error("Failed writing metrics")
			} else {
				log.Debugf("Wrote metrics to: %q", path)
			}
		}

		// notification
		noti := notification.NewDiscordSender(log, config.Config.Notifications)
		if !flags.noNotify && noti.CanSend() {
			fields := make([]notification.Field, 0, len(r.Groups))
			for _, g := range r.Groups {
				fields = append(fields, noti.BuildField(notification.BuildOptions{
					Original:   g.Original,
					Duplicates: g.DuplicatePaths(),
					Size:       g.Size,
					Hardlinks:  g.HardlinkCount(),
				}))
			}

			if err := noti.Send("Duplicate Scan", r.Summary.Description(), res.Outcome.Elapsed, fields); err != nil {
				log.WithError(err).Errorf("Failed sending %s notification", noti.Name())
			}
		}
	}

	return command
}

// scanOptions merges command line flags over the configured scan settings.
func scanOptions(cmd *cobra.Command, args []string, flags scanFlags, cfg config.ScanConfig) (config.ScanConfig, error) {
	opts := cfg

	if len(args) > 0 {
		opts.Roots = args
	}

	changed := cmd.Flags().Changed

	if changed("min-size") {
		size, err := humanize.ParseBytes(flags.minSize)
		if err != nil {
			return opts, errors.Wrapf(err, "parse min-size %q", flags.minSize)
		}
		opts.MinSize = int64(size)
	}
	if changed("include") {
		opts.Include = flags.include
	}
	if changed("exclude") {
		opts.Exclude = append(append([]string{}, opts.Exclude...), flags.exclude...)
	}
	if changed("exclude-regex") {
		opts.ExcludeRegex = append(append([]string{}, opts.ExcludeRegex...), flags.excludeRegex...)
	}
	if changed("filter") {
		opts.Filter = flags.filter
	}
	if changed("follow-symlinks") {
		opts.FollowSymlinks = flags.followSymlinks
	}
	if changed("fold-case") {
		opts.FoldCase = flags.foldCase
	}
	if changed("keep") {
		opts.Keep = flags.keep
	}

	if len(opts.Roots) == 0 {
		return opts, errors.New("no folders to search")
	}
	if opts.MinSize < 1 {
		opts.MinSize = 1
	}

	return opts, nil
}

func metricsPath(cmd *cobra.Command, flags scanFlags) string {
	if cmd.Flags().Changed("metrics-file") {
		return flags.metricsFile
	}

	return config.Config.Metrics.Textfile
}
