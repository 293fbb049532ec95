package paths

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/pkg/errors"
	"github.com/scylladb/go-set/strset"
	"github.com/sirupsen/logrus"

	"github.com/autobrr/dupefind/pkg/expression"
	"github.com/autobrr/dupefind/pkg/logger"
	"github.com/autobrr/dupefind/pkg/regex"
)

type WalkerOptions struct {
	Roots []string
	// Include holds globs matched against file names; empty accepts every file.
	Include []string
	// Exclude holds globs matched against entry names, paths relative to their
	// root and absolute paths. Matching directories are pruned.
	Exclude []string
	// ExcludeRegex holds patterns matched against the slash separated absolute path.
	ExcludeRegex   []string
	Filter         string
	FollowSymlinks bool
	// FoldCase treats folders whose paths differ only in case as the same
	// folder when roots overlap.
	FoldCase   bool
	NumWorkers int
}

// Walker enumerates regular files below a set of roots.
type Walker struct {
	roots           []string
	include         []string
	exclude         []string
	excludePatterns []*regex.Pattern
	filter          *expression.CompiledExpression
	foldCase        bool
	conf            fastwalk.Config
	log             *logrus.Entry
}

func NewWalker(opts WalkerOptions) (*Walker, error) {
	if len(opts.Roots) == 0 {
		return nil, errors.New("no search roots")
	}

	roots := make([]string, 0, len(opts.Roots))
	for _, r := range opts.Roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve root %q", r)
		}
		roots = append(roots, abs)
	}

	for _, g := range append(append([]string{}, opts.Include...), opts.Exclude...) {
		if _, err := path.Match(g, ""); err != nil {
			return nil, errors.Wrapf(err, "invalid glob %q", g)
		}
	}

	patterns, err := regex.CompileAll(opts.ExcludeRegex)
	if err != nil {
		return nil, err
	}

	filter, err := expression.Compile(opts.Filter)
	if err != nil {
		return nil, err
	}

	exclude := make([]string, 0, len(opts.Exclude))
	for _, e := range opts.Exclude {
		exclude = append(exclude, strings.TrimSuffix(filepath.ToSlash(e), "/"))
	}

	return &Walker{
		roots:           roots,
		include:         opts.Include,
		exclude:         exclude,
		excludePatterns: patterns,
		filter:          filter,
		foldCase:        opts.FoldCase,
		conf: fastwalk.Config{
			Follow:     opts.FollowSymlinks,
			NumWorkers: opts.NumWorkers,
		},
		log: logger.GetLogger("paths"),
	}, nil
}

func (w *Walker) Roots() []string {
	return w.roots
}

// Enumerate walks every root and passes the files found to yield, root by
// root and sorted by path. It returns the number of directories searched.
// Folders already walked under an earlier root are skipped, so overlapping
// roots search and count each folder once. An error returned by yield stops
// the walk and is returned unchanged.
func (w *Walker) Enumerate(ctx context.Context, yield func(Path) error) (int, error) {
	var (
		dirs   int
		walked = strset.New()
	)

	for _, root := range w.roots {
		if walked.Has(Key(root, w.foldCase)) {
			w.log.Debugf("Skipping root already searched: %q", root)
			continue
		}

		info, err := os.Stat(root)
		if err != nil {
			return dirs, errors.Wrapf(err, "access root %q", root)
		}
		if !info.IsDir() {
			return dirs, errors.Errorf("root is not a directory: %q", root)
		}

		found, n, err := w.walkRoot(ctx, root, walked)
		dirs += n
		if err != nil {
			return dirs, err
		}

		w.log.Debugf("Retrieved %d files from %d folders in: %q", len(found), n, root)

		for _, p := range found {
			if err := yield(p); err != nil {
				return dirs, err
			}
		}
	}

	return dirs, nil
}

// walkRoot walks root, recording every folder it enters in walked and
// pruning folders that are already recorded.
func (w *Walker) walkRoot(ctx context.Context, root string, walked *strset.Set) ([]Path, int, error) {
	var (
		mu    sync.Mutex
		found []Path
		dirs  int
		now   = time.Now()
	)

	conf := w.conf
	err := fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			w.log.WithError(err).Warnf("Failed accessing path, skipping: %q", p)
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel := relative(root, p)

		if d.IsDir() {
			if p != root && w.isExcluded(p, rel, d.Name()) {
				w.log.Tracef("Skipping excluded folder: %s", p)
				return fs.SkipDir
			}

			key := Key(p, w.foldCase)

			mu.Lock()
			defer mu.Unlock()

			if walked.Has(key) {
				w.log.Tracef("Skipping folder already searched: %s", p)
				return fs.SkipDir
			}
			walked.Add(key)
			dirs++
			return nil
		}

		if w.isExcluded(p, rel, d.Name()) || !w.isIncluded(d.Name()) {
			w.log.Tracef("Skipping rejected path: %s", p)
			return nil
		}

		info, err := w.fileInfo(p, d)
		if err != nil {
			w.log.WithError(err).Warnf("Failed to get file info for %s", p)
			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		foundPath := Path{
			Path:         p,
			FileName:     d.Name(),
			Directory:    filepath.Dir(p),
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
		}

		if w.filter != nil {
			match, err := expression.CheckFile(ctx, &expression.File{
				Path:    filepath.ToSlash(p),
				Name:    foundPath.FileName,
				Ext:     strings.ToLower(filepath.Ext(foundPath.FileName)),
				Dir:     filepath.ToSlash(foundPath.Directory),
				Size:    foundPath.Size,
				ModTime: foundPath.ModifiedTime,
				AgeDays: now.Sub(foundPath.ModifiedTime).Hours() / 24,
			}, w.filter)
			if err != nil {
				return err
			}
			if !match {
				w.log.Tracef("Skipping path rejected by filter: %s", p)
				return nil
			}
		}

		mu.Lock()
		found = append(found, foundPath)
		mu.Unlock()

		return nil
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, dirs, ctxErr
	}
	if err != nil {
		return nil, dirs, errors.Wrapf(err, "walk %q", root)
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].Path < found[j].Path
	})

	return found, dirs, nil
}

// fileInfo resolves symlinks only when they are followed; otherwise they are
// reported with their own mode and dropped by the caller.
func (w *Walker) fileInfo(p string, d fs.DirEntry) (fs.FileInfo, error) {
	if d.Type()&fs.ModeSymlink != 0 && w.conf.Follow {
		return os.Stat(p)
	}

	return d.Info()
}

func (w *Walker) isIncluded(name string) bool {
	if len(w.include) == 0 {
		return true
	}

	for _, g := range w.include {
		if ok, _ := path.Match(g, name); ok {
			return true
		}
	}

	return false
}

func (w *Walker) isExcluded(abs string, rel string, name string) bool {
	slashed := filepath.ToSlash(abs)

	for _, e := range w.exclude {
		if e == rel || e == slashed {
			return true
		}

		if ok, _ := path.Match(e, name); ok {
			return true
		}

		if ok, _ := path.Match(e, rel); ok {
			return true
		}
	}

	if len(w.excludePatterns) > 0 {
		match, err := regex.CheckAny(slashed, w.excludePatterns)
		if err != nil {
			w.log.WithError(err).Warnf("Failed matching exclude patterns: %q", abs)
			return false
		}
		return match
	}

	return false
}

func relative(root string, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}

	return filepath.ToSlash(rel)
}
