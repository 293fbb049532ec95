package duplicate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RegisterPath(t *testing.T) {
	tests := []struct {
		name      string
		foldCase  bool
		paths     []string
		wantItems int
	}{
		{name: "distinct", paths: []string{"/a/x", "/a/y", "/b/x"}, wantItems: 3},
		{name: "same_path_twice", paths: []string{"/a/x", "/a/x"}, wantItems: 1},
		{name: "unclean_path", paths: []string{"/a/x", "/a/./b/../x"}, wantItems: 1},
		{name: "backslash_separator", paths: []string{"C:/a/x", `C:\a\x`}, wantItems: 1},
		{name: "case_sensitive", paths: []string{"/a/X", "/a/x"}, wantItems: 2},
		{name: "case_folded", foldCase: true, paths: []string{"/a/X", "/a/x"}, wantItems: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(tt.foldCase)
			for _, p := range tt.paths {
				s.RegisterPath(p, time.Time{}, NewWeakKey(10))
			}

			assert.Equal(t, 1, s.Len())
			assert.Equal(t, tt.wantItems, s.ItemCount())
		})
	}
}

func TestStore_RegisterPath_SamePathOtherKey(t *testing.T) {
	s := NewStore(false)

	assert.True(t, s.RegisterPath("/a/x", time.Time{}, NewWeakKey(10)))
	assert.False(t, s.RegisterPath("/a/x", time.Time{}, NewWeakKey(10)))
	assert.True(t, s.RegisterPath("/a/x", time.Time{}, NewWeakKey(20)))

	assert.Equal(t, 2, s.Len())

	g, ok := s.Group(NewWeakKey(20))
	require.True(t, ok)
	assert.Equal(t, []string{"/a/x"}, itemPaths(g.Items()))

	_, ok = s.Group(NewWeakKey(30))
	assert.False(t, ok)
}

func TestStore_ExtractDuplicateGroups(t *testing.T) {
	s := NewStore(false)

	// strong group, kept without any lookups
	s.RegisterPath("/s1", time.Time{}, ContentKey{Size: 5, Crc32: 0xAA})
	s.RegisterPath("/s2", time.Time{}, ContentKey{Size: 5, Crc32: 0xAA})
	// unique size, dropped without any lookups
	s.RegisterPath("/unique", time.Time{}, NewWeakKey(7))
	// weak group splitting into one duplicate pair and one singleton
	s.RegisterPath("/w1", time.Time{}, NewWeakKey(3))
	s.RegisterPath("/w2", time.Time{}, NewWeakKey(3))
	s.RegisterPath("/w3", time.Time{}, NewWeakKey(3))
	// weak group with one unreadable file
	s.RegisterPath("/f1", time.Time{}, NewWeakKey(9))
	s.RegisterPath("/f2", time.Time{}, NewWeakKey(9))
	s.RegisterPath("/f3", time.Time{}, NewWeakKey(9))

	src := newFakeSource(map[string]uint32{
		"/w1": 1, "/w2": 2, "/w3": 1,
		"/f1": 4, "/f2": 4,
	})

	var visited []string
	groups, ignored, err := s.ExtractDuplicateGroups(context.Background(), src, func(path string) error {
		visited = append(visited, path)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, ignored)
	assert.Equal(t, 0, s.Len(), "store is empty after extraction")
	assert.Equal(t, 0, s.ItemCount())

	require.Len(t, groups, 3)
	assert.Equal(t, []string{"/s1", "/s2"}, itemPaths(groups[0].Items()))
	assert.Equal(t, []string{"/w1", "/w3"}, itemPaths(groups[1].Items()))
	assert.Equal(t, []string{"/f1", "/f2"}, itemPaths(groups[2].Items()))

	for _, g := range groups {
		assert.True(t, g.HasCrc32())
		assert.True(t, g.HasDuplicates())
	}

	assert.Equal(t, []string{"/w1", "/w2", "/w3", "/f1", "/f2", "/f3"}, visited)
	assert.Zero(t, src.calls["/unique"])
	assert.Zero(t, src.calls["/s1"])
	assert.Zero(t, src.calls["/s2"])
}

func TestStore_ExtractDuplicateGroups_MergesEqualKeys(t *testing.T) {
	s := NewStore(false)

	strongKey := ContentKey{Size: 5, Crc32: 0xAA}
	s.RegisterPath("/s1", time.Time{}, strongKey)
	s.RegisterPath("/s2", time.Time{}, strongKey)
	s.RegisterPath("/s1", time.Time{}, NewWeakKey(5))
	s.RegisterPath("/w1", time.Time{}, NewWeakKey(5))
	s.RegisterPath("/w2", time.Time{}, NewWeakKey(5))

	weak, ok := s.Group(NewWeakKey(5))
	require.True(t, ok)
	weakItems := weak.Items()

	src := newFakeSource(map[string]uint32{"/s1": 0xAA, "/w1": 0xAA, "/w2": 0xAA})
	groups, ignored, err := s.ExtractDuplicateGroups(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ignored)

	require.Len(t, groups, 1, "one group per key")
	assert.Equal(t, strongKey, groups[0].Key())
	assert.Equal(t, []string{"/s1", "/s2", "/w1", "/w2"}, itemPaths(groups[0].Items()))

	for _, it := range groups[0].Items() {
		assert.Same(t, groups[0], it.Group())
	}
	assert.Nil(t, weakItems[0].Group(), "second registration of /s1 is released")
}

func TestStore_ExtractDuplicateGroups_Abort(t *testing.T) {
	s := NewStore(false)
	s.RegisterPath("/a1", time.Time{}, NewWeakKey(1))
	s.RegisterPath("/a2", time.Time{}, NewWeakKey(1))
	s.RegisterPath("/b1", time.Time{}, NewWeakKey(2))
	s.RegisterPath("/b2", time.Time{}, NewWeakKey(2))
	s.RegisterPath("/c1", time.Time{}, ContentKey{Size: 3, Crc32: 3})
	s.RegisterPath("/c2", time.Time{}, ContentKey{Size: 3, Crc32: 3})

	var items []*Item
	for _, g := range s.Groups() {
		items = append(items, g.Items()...)
	}
	require.Len(t, items, 6)

	src := newFakeSource(map[string]uint32{"/a1": 1, "/a2": 1, "/b1": 2, "/b2": 2})
	stop := errors.New("stop")

	groups, ignored, err := s.ExtractDuplicateGroups(context.Background(), src, func(path string) error {
		if path == "/b2" {
			return stop
		}
		return nil
	})

	assert.Same(t, stop, err)
	assert.Nil(t, groups)
	assert.Equal(t, 0, ignored)
	assert.Equal(t, 0, s.Len())

	for _, it := range items {
		assert.Nil(t, it.Group(), "item %s is released", it.Path)
	}
}

func TestStore_ExtractDuplicateGroups_Cancelled(t *testing.T) {
	s := NewStore(false)
	s.RegisterPath("/a1", time.Time{}, NewWeakKey(1))
	s.RegisterPath("/a2", time.Time{}, NewWeakKey(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := newFakeSource(map[string]uint32{"/a1": 1, "/a2": 1})
	groups, _, err := s.ExtractDuplicateGroups(ctx, src, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, groups)
	assert.Empty(t, src.calls)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore(false)
	s.RegisterPath("/a", time.Time{}, NewWeakKey(1))
	s.RegisterPath("/b", time.Time{}, NewWeakKey(1))

	items := s.Groups()[0].Items()
	s.Clear()

	assert.Equal(t, 0, s.Len())
	for _, it := range items {
		assert.Nil(t, it.Group())
	}

	assert.True(t, s.RegisterPath("/a", time.Time{}, NewWeakKey(1)), "registrations are forgotten")
}
