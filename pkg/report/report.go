package report

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/autobrr/dupefind/pkg/duplicate"
	"github.com/autobrr/dupefind/pkg/finder"
	"github.com/autobrr/dupefind/pkg/hardlinkfilemap"
	"github.com/autobrr/dupefind/pkg/runtime"
)

type Report struct {
	Metadata Metadata `json:"metadata" yaml:"metadata"`
	Summary  Summary  `json:"summary" yaml:"summary"`
	Groups   []Group  `json:"groups" yaml:"groups"`
}

type Metadata struct {
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Version     string    `json:"version" yaml:"version"`
	Roots       []string  `json:"roots" yaml:"roots"`
	Keep        string    `json:"keep" yaml:"keep"`
}

type Summary struct {
	Files       int    `json:"files" yaml:"files"`
	Dirs        int    `json:"dirs" yaml:"dirs"`
	Ignored     int    `json:"ignored" yaml:"ignored"`
	Groups      int    `json:"groups" yaml:"groups"`
	Duplicates  int    `json:"duplicates" yaml:"duplicates"`
	Hardlinks   int    `json:"hardlinks" yaml:"hardlinks"`
	WastedBytes uint64 `json:"wasted_bytes" yaml:"wasted_bytes"`
	// ReclaimableBytes excludes duplicates that are hardlinks of a file
	// earlier in their group.
	ReclaimableBytes uint64 `json:"reclaimable_bytes" yaml:"reclaimable_bytes"`
	Elapsed          string `json:"elapsed" yaml:"elapsed"`
}

type Group struct {
	Key        string      `json:"key" yaml:"key"`
	Size       uint64      `json:"size" yaml:"size"`
	Crc32      string      `json:"crc32" yaml:"crc32"`
	Original   string      `json:"original" yaml:"original"`
	Duplicates []Duplicate `json:"duplicates" yaml:"duplicates"`
}

type Duplicate struct {
	Path string `json:"path" yaml:"path"`
	// HardlinkOf names the earlier item of the group sharing this file's storage.
	HardlinkOf string `json:"hardlink_of,omitempty" yaml:"hardlink_of,omitempty"`
}

// Build applies keep to every group and summarises the result. Hardlinks are
// only looked up when detectHardlinks is set, as it stats every item again.
func Build(res *finder.Result, roots []string, keep duplicate.KeepStrategy, detectHardlinks bool) *Report {
	o := res.Outcome

	r := &Report{
		Metadata: Metadata{
			GeneratedAt: time.Now().UTC(),
			Version:     runtime.Version,
			Roots:       roots,
			Keep:        keep.String(),
		},
		Summary: Summary{
			Files:       o.FoundFileCount,
			Dirs:        o.SearchedDirCount,
			Ignored:     o.IgnoredCount,
			Groups:      len(res.Groups),
			Duplicates:  o.DuplicateFileCount,
			WastedBytes: o.WastedBytes,
			Elapsed:     o.Elapsed.Truncate(time.Millisecond).String(),
		},
		Groups: make([]Group, 0, len(res.Groups)),
	}

	for _, g := range res.Groups {
		keep.Apply(g)

		var links *hardlinkfilemap.HardlinkFileMap
		if detectHardlinks {
			links = hardlinkfilemap.New()
			links.Add(g.Original().Path)
		}

		key := g.Key()
		rg := Group{
			Key:      g.String(),
			Size:     key.Size,
			Crc32:    fmt.Sprintf("%08x", key.Crc32),
			Original: g.Original().Path,
		}

		for _, item := range g.Duplicates() {
			d := Duplicate{Path: item.Path}
			if links != nil {
				if first, linked := links.Add(item.Path); linked {
					d.HardlinkOf = first
				}
			}

			if d.HardlinkOf != "" {
				r.Summary.Hardlinks++
			} else {
				r.Summary.ReclaimableBytes += key.Size
			}

			rg.Duplicates = append(rg.Duplicates, d)
		}

		r.Groups = append(r.Groups, rg)
	}

	return r
}

// HardlinkCount returns the number of duplicates of g sharing storage with
// an earlier item.
func (g Group) HardlinkCount() int {
	n := 0
	for _, d := range g.Duplicates {
		if d.HardlinkOf != "" {
			n++
		}
	}

	return n
}

func (g Group) DuplicatePaths() []string {
	out := make([]string, 0, len(g.Duplicates))
	for _, d := range g.Duplicates {
		out = append(out, d.Path)
	}

	return out
}

// Description is a one line human readable summary.
func (s Summary) Description() string {
	return fmt.Sprintf("Found %d duplicate files in %d groups (%s reclaimable) among %d files in %d folders",
		s.Duplicates, s.Groups, humanize.IBytes(s.ReclaimableBytes), s.Files, s.Dirs)
}
