package duplicate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves checksums from a map and counts lookups.
type fakeSource struct {
	crcs  map[string]uint32
	calls map[string]int
}

func newFakeSource(crcs map[string]uint32) *fakeSource {
	return &fakeSource{crcs: crcs, calls: make(map[string]int)}
}

func (f *fakeSource) AcquireCrc32(path string) (uint32, error) {
	f.calls[path]++
	crc, ok := f.crcs[path]
	if !ok {
		return 0, os.ErrNotExist
	}
	return crc, nil
}

func itemPaths(items []*Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Path)
	}
	return out
}

func weakGroup(size int64, names ...string) *Group {
	g := newGroup(NewWeakKey(size))
	for _, p := range names {
		g.add(&Item{Path: p})
	}
	return g
}

func TestContentKey(t *testing.T) {
	weak := NewWeakKey(10)
	strong := weak.WithCrc32(0xABCD)

	assert.True(t, weak.IsWeak())
	assert.False(t, weak.HasCrc32())
	assert.True(t, strong.HasCrc32())
	assert.False(t, weak.Equal(strong))
	assert.True(t, strong.Equal(ContentKey{Size: 10, Crc32: 0xABCD}))

	assert.True(t, weak.Less(strong))
	assert.True(t, strong.Less(NewWeakKey(11)))
	assert.False(t, strong.Less(strong))

	assert.Equal(t, "10:0000abcd", strong.String())
	assert.Equal(t, "10:--------", weak.String())
}

func TestComputeFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0o644))

	key, err := ComputeFileSize(path)
	require.NoError(t, err)
	assert.Equal(t, NewWeakKey(5), key)

	strong, err := key.ComputeCrc32(path, newFakeSource(map[string]uint32{path: 7}))
	require.NoError(t, err)
	assert.Equal(t, ContentKey{Size: 5, Crc32: 7}, strong)

	_, err = ComputeFileSize(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestGroup_ExtractCrc32Duplicates(t *testing.T) {
	tests := []struct {
		name        string
		items       []string
		crcs        map[string]uint32
		wantGroups  [][]string
		wantIgnored int
	}{
		{
			name:       "single_content",
			items:      []string{"c", "a", "b"},
			crcs:       map[string]uint32{"a": 1, "b": 1, "c": 1},
			wantGroups: [][]string{{"a", "b", "c"}},
		},
		{
			name:       "false_positive_of_size",
			items:      []string{"a", "b"},
			crcs:       map[string]uint32{"a": 1, "b": 2},
			wantGroups: nil,
		},
		{
			name:       "split_by_content_ordered_by_key",
			items:      []string{"z", "y", "x", "w", "v"},
			crcs:       map[string]uint32{"z": 9, "y": 3, "x": 9, "w": 3, "v": 5},
			wantGroups: [][]string{{"w", "y"}, {"x", "z"}},
		},
		{
			name:        "io_failure_is_ignored",
			items:       []string{"a", "b", "gone"},
			crcs:        map[string]uint32{"a": 4, "b": 4},
			wantGroups:  [][]string{{"a", "b"}},
			wantIgnored: 1,
		},
		{
			name:        "io_failure_leaves_singleton",
			items:       []string{"a", "gone"},
			crcs:        map[string]uint32{"a": 4},
			wantGroups:  nil,
			wantIgnored: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := weakGroup(3, tt.items...)
			items := g.Items()

			groups, ignored, err := g.ExtractCrc32Duplicates(context.Background(), newFakeSource(tt.crcs), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIgnored, ignored)
			assert.Equal(t, 0, g.Len(), "weak group is emptied")

			var got [][]string
			owned := 0
			for _, ng := range groups {
				assert.True(t, ng.HasCrc32())
				assert.True(t, ng.HasDuplicates())
				assert.Equal(t, uint64(3), ng.Key().Size)
				for _, it := range ng.Items() {
					assert.Same(t, ng, it.Group())
				}
				owned += ng.Len()
				got = append(got, itemPaths(ng.Items()))
			}
			assert.Equal(t, tt.wantGroups, got)

			released := 0
			for _, it := range items {
				if it.Group() == nil {
					released++
				}
			}
			assert.Equal(t, len(items)-owned, released, "discarded items are released")
		})
	}
}

func TestGroup_ExtractCrc32Duplicates_ZeroChecksum(t *testing.T) {
	g := weakGroup(3, "a", "b", "c")
	src := newFakeSource(map[string]uint32{"a": 0, "b": 0, "c": 7})

	groups, ignored, err := g.ExtractCrc32Duplicates(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ignored)
	require.Len(t, groups, 1)

	zero := groups[0]
	assert.Equal(t, []string{"a", "b"}, itemPaths(zero.Items()))
	assert.True(t, zero.HasCrc32(), "a computed checksum of 0 is still a checksum")
	assert.Equal(t, "3:00000000", zero.String())
	assert.Equal(t, "3:--------", weakGroup(3, "x", "y").String())

	assert.Panics(t, func() {
		_, _, _ = zero.ExtractCrc32Duplicates(context.Background(), src, nil)
	}, "resolved group cannot be extracted again")
}

func TestGroup_ExtractCrc32Duplicates_Preconditions(t *testing.T) {
	src := newFakeSource(nil)

	assert.Panics(t, func() {
		_, _, _ = weakGroup(3, "a").ExtractCrc32Duplicates(context.Background(), src, nil)
	}, "single item")

	strong := newGroup(ContentKey{Size: 3, Crc32: 1})
	strong.add(&Item{Path: "a"})
	strong.add(&Item{Path: "b"})
	assert.Panics(t, func() {
		_, _, _ = strong.ExtractCrc32Duplicates(context.Background(), src, nil)
	}, "already strong")
}

func TestGroup_ExtractCrc32Duplicates_Abort(t *testing.T) {
	g := weakGroup(3, "a", "b", "c")
	src := newFakeSource(map[string]uint32{"a": 1, "b": 1, "c": 1})
	stop := errors.New("stop")

	calls := 0
	groups, _, err := g.ExtractCrc32Duplicates(context.Background(), src, func(string) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})

	assert.Same(t, stop, err)
	assert.Nil(t, groups)
	assert.Equal(t, []string{"a", "b", "c"}, itemPaths(g.Items()), "aborted group keeps its items")
	for _, it := range g.Items() {
		assert.Same(t, g, it.Group())
	}
	assert.Equal(t, 1, src.calls["a"])
	assert.Equal(t, 0, src.calls["b"])
}

func TestGroup_MakeOriginalItem(t *testing.T) {
	g := weakGroup(1, "a", "d", "c", "b")
	items := g.Items()

	require.True(t, g.MakeOriginalItem(items[2]))
	assert.Equal(t, []string{"c", "a", "b", "d"}, itemPaths(g.Items()))
	assert.Equal(t, "c", g.Original().Path)
	assert.Equal(t, []string{"a", "b", "d"}, itemPaths(g.Duplicates()))

	assert.False(t, g.MakeOriginalItem(&Item{Path: "x"}))
}

func TestGroup_MakeDuplicateItem(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		move  int
		want  []string
	}{
		{name: "duplicate_to_back", items: []string{"b", "d", "a", "c"}, move: 1, want: []string{"b", "a", "c", "d"}},
		{name: "original_to_back", items: []string{"b", "d", "a", "c"}, move: 0, want: []string{"a", "c", "d", "b"}},
		{name: "pair", items: []string{"a", "b"}, move: 0, want: []string{"b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := weakGroup(1, tt.items...)
			require.True(t, g.MakeDuplicateItem(g.Items()[tt.move]))
			assert.Equal(t, tt.want, itemPaths(g.Items()))
		})
	}
}

func TestGroup_Accessors(t *testing.T) {
	g := weakGroup(100, "b", "a", "c")

	assert.True(t, g.HasDuplicates())
	assert.False(t, g.HasCrc32())
	assert.Equal(t, uint64(200), g.WastedBytes())
	assert.True(t, g.Contains(g.Items()[1]))

	g.SortByPath()
	assert.Equal(t, []string{"a", "b", "c"}, itemPaths(g.Items()))

	single := weakGroup(100, "a")
	assert.False(t, single.HasDuplicates())
	assert.Nil(t, single.Duplicates())
	assert.Equal(t, uint64(0), single.WastedBytes())
	assert.Nil(t, newGroup(NewWeakKey(1)).Original())
}

func TestKeepStrategy(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	newKeepGroup := func() *Group {
		g := newGroup(ContentKey{Size: 1, Crc32: 1})
		g.add(&Item{Path: "/a/long/path/x.txt", ModTime: base.Add(time.Hour)})
		g.add(&Item{Path: "/b/x.txt", ModTime: base})
		g.add(&Item{Path: "/c/mid/x.txt", ModTime: base.Add(2 * time.Hour)})
		g.add(&Item{Path: "/a/x.txt", ModTime: base})
		return g
	}

	tests := []struct {
		strategy string
		want     string
	}{
		{strategy: "first", want: "/a/long/path/x.txt"},
		{strategy: "shortest", want: "/a/x.txt"},
		{strategy: "longest", want: "/a/long/path/x.txt"},
		{strategy: "oldest", want: "/a/x.txt"},
		{strategy: "newest", want: "/c/mid/x.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			k, err := ParseKeepStrategy(tt.strategy)
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, k.String())

			g := newKeepGroup()
			k.Apply(g)
			assert.Equal(t, tt.want, g.Original().Path)
			assert.Equal(t, 4, g.Len())
		})
	}

	_, err := ParseKeepStrategy("largest")
	assert.Error(t, err)
}
