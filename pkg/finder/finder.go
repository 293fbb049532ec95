package finder

import (
	"context"
	"sort"
	"time"

	"github.com/scylladb/go-set/strset"
	"github.com/sirupsen/logrus"

	"github.com/autobrr/dupefind/pkg/checksum"
	"github.com/autobrr/dupefind/pkg/duplicate"
	"github.com/autobrr/dupefind/pkg/logger"
	"github.com/autobrr/dupefind/pkg/paths"
)

// Enumerator delivers candidate files serially and reports the number of
// directories it searched. An error returned by yield must be returned
// unchanged.
type Enumerator interface {
	Enumerate(ctx context.Context, yield func(paths.Path) error) (int, error)
}

type Options struct {
	// MinSize is the smallest file size considered, in bytes.
	MinSize  int64
	FoldCase bool
}

type Option func(*Finder)

// WithCache sets the checksum source. By default every Finder gets its own
// checksum.Cache.
func WithCache(source duplicate.Crc32Source) Option {
	return func(f *Finder) {
		f.source = source
	}
}

func WithProgress(p Progress) Option {
	return func(f *Finder) {
		f.progress = p
	}
}

type Outcome struct {
	Elapsed            time.Duration
	FoundFileCount     int
	SearchedDirCount   int
	IgnoredCount       int
	DuplicateFileCount int
	WastedBytes        uint64
}

type Result struct {
	// Groups are sorted by the path of their original, the items of each
	// group by path.
	Groups  []*duplicate.Group
	Outcome Outcome
}

type candidate struct {
	path    string
	size    int64
	modTime time.Time
}

// Finder runs the discover, group by size and group by checksum stages.
type Finder struct {
	opts     Options
	source   duplicate.Crc32Source
	progress Progress
	log      *logrus.Entry
}

func New(opts Options, options ...Option) *Finder {
	if opts.MinSize < 1 {
		opts.MinSize = 1
	}

	f := &Finder{
		opts:     opts,
		progress: NopProgress{},
		log:      logger.GetLogger("finder"),
	}
	for _, o := range options {
		o(f)
	}

	if f.source == nil {
		f.source = checksum.NewCache()
	}

	return f
}

// Find scans the files delivered by enum and returns the duplicate groups.
// Cancellation through ctx or Progress aborts the scan, discards all partial
// state and returns the cancelling error unchanged.
func (f *Finder) Find(ctx context.Context, enum Enumerator) (*Result, error) {
	start := time.Now()
	outcome := Outcome{}

	// discover
	found, dirs, err := f.discover(ctx, enum)
	if err != nil {
		return nil, err
	}
	outcome.FoundFileCount = len(found)
	outcome.SearchedDirCount = dirs

	f.log.Debugf("Discovered %d files in %d folders", len(found), dirs)

	// group by size
	store := duplicate.NewStore(f.opts.FoldCase)
	if err := f.groupBySize(ctx, store, found); err != nil {
		store.Clear()
		return nil, err
	}

	f.log.Debugf("Registered %d files in %d size groups", store.ItemCount(), store.Len())

	// group by crc32
	groups, ignored, err := f.groupByCrc32(ctx, store)
	if err != nil {
		return nil, err
	}
	outcome.IgnoredCount = ignored

	for _, g := range groups {
		g.SortByPath()
		outcome.DuplicateFileCount += g.Len() - 1
		outcome.WastedBytes += g.WastedBytes()
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Original().Path < groups[j].Original().Path
	})

	outcome.Elapsed = time.Since(start)

	return &Result{
		Groups:  groups,
		Outcome: outcome,
	}, nil
}

func (f *Finder) discover(ctx context.Context, enum Enumerator) ([]candidate, int, error) {
	if err := f.begin(ctx, StageDiscover, -1); err != nil {
		return nil, 0, err
	}

	var (
		found []candidate
		seen  = strset.New()
	)

	dirs, err := enum.Enumerate(ctx, func(p paths.Path) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f.progress.Advance(StageDiscover, p.Path); err != nil {
			return err
		}

		key := paths.Key(p.Path, f.opts.FoldCase)
		if seen.Has(key) {
			return nil
		}
		seen.Add(key)

		if p.Size < f.opts.MinSize {
			return nil
		}

		found = append(found, candidate{
			path:    p.Path,
			size:    p.Size,
			modTime: p.ModifiedTime,
		})
		return nil
	})
	if err != nil {
		return nil, dirs, err
	}

	return found, dirs, nil
}

func (f *Finder) groupBySize(ctx context.Context, store *duplicate.Store, found []candidate) error {
	if err := f.begin(ctx, StageGroupBySize, len(found)); err != nil {
		return err
	}

	for _, c := range found {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f.progress.Advance(StageGroupBySize, c.path); err != nil {
			return err
		}

		store.RegisterPath(c.path, c.modTime, duplicate.NewWeakKey(c.size))
	}

	return nil
}

func (f *Finder) groupByCrc32(ctx context.Context, store *duplicate.Store) ([]*duplicate.Group, int, error) {
	total := 0
	for _, g := range store.Groups() {
		if g.HasDuplicates() {
			total += g.Len()
		}
	}
	if err := f.begin(ctx, StageGroupByCrc32, total); err != nil {
		store.Clear()
		return nil, 0, err
	}

	return store.ExtractDuplicateGroups(ctx, f.source, func(path string) error {
		return f.progress.Advance(StageGroupByCrc32, path)
	})
}

// begin is the checkpoint at the start of every stage, so that a stage
// without any items still observes cancellation.
func (f *Finder) begin(ctx context.Context, stage Stage, total int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return f.progress.Begin(stage, total)
}
