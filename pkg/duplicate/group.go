package duplicate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/autobrr/dupefind/pkg/logger"
	"github.com/autobrr/dupefind/pkg/paths"
)

var log = logger.GetLogger("duplicate")

// Checkpoint is called before each item is processed. A non-nil error aborts
// the operation and is returned unchanged.
type Checkpoint func(path string) error

// Item is a candidate file. It belongs to exactly one group until released.
type Item struct {
	Path    string
	ModTime time.Time

	group *Group
}

// Group returns the owning group, or nil once the item has been released.
func (i *Item) Group() *Group {
	return i.group
}

// Group is a bucket of files sharing a content key. The first item is the
// original, the remaining items are its duplicates.
type Group struct {
	key   ContentKey
	items []*Item
	// resolved marks groups built from computed checksums, including a
	// genuine checksum of 0 that the key alone cannot tell from a weak key.
	resolved bool
}

func newGroup(key ContentKey) *Group {
	return &Group{key: key}
}

func (g *Group) Key() ContentKey {
	return g.key
}

func (g *Group) HasCrc32() bool {
	return g.resolved || g.key.HasCrc32()
}

// String renders the key of g, with the checksum shown whenever it was computed.
func (g *Group) String() string {
	if g.HasCrc32() {
		return fmt.Sprintf("%d:%08x", g.key.Size, g.key.Crc32)
	}

	return g.key.String()
}

func (g *Group) HasDuplicates() bool {
	return len(g.items) > 1
}

func (g *Group) Len() int {
	return len(g.items)
}

// Items returns a copy of the group's items in order.
func (g *Group) Items() []*Item {
	return append([]*Item(nil), g.items...)
}

func (g *Group) Original() *Item {
	if len(g.items) == 0 {
		return nil
	}

	return g.items[0]
}

func (g *Group) Duplicates() []*Item {
	if len(g.items) < 2 {
		return nil
	}

	return append([]*Item(nil), g.items[1:]...)
}

// WastedBytes is the space taken by the duplicates of the original.
func (g *Group) WastedBytes() uint64 {
	if len(g.items) < 2 {
		return 0
	}

	return g.key.Size * uint64(len(g.items)-1)
}

func (g *Group) Contains(item *Item) bool {
	return g.indexOf(item) >= 0
}

func (g *Group) containsPath(p string, foldCase bool) bool {
	key := paths.Key(p, foldCase)
	for _, it := range g.items {
		if paths.Key(it.Path, foldCase) == key {
			return true
		}
	}

	return false
}

func (g *Group) add(item *Item) {
	item.group = g
	g.items = append(g.items, item)
}

// release detaches every item and empties the group.
func (g *Group) release() {
	for _, item := range g.items {
		if item.group == g {
			item.group = nil
		}
	}
	g.items = nil
}

func (g *Group) indexOf(item *Item) int {
	for i, it := range g.items {
		if it == item {
			return i
		}
	}

	return -1
}

// SortByPath orders all items, including the original, by path.
func (g *Group) SortByPath() {
	sortItemsByPath(g.items)
}

// MakeOriginalItem moves item to the front and sorts the remaining items by path.
func (g *Group) MakeOriginalItem(item *Item) bool {
	idx := g.indexOf(item)
	if idx < 0 {
		return false
	}

	rest := make([]*Item, 0, len(g.items)-1)
	rest = append(rest, g.items[:idx]...)
	rest = append(rest, g.items[idx+1:]...)
	sortItemsByPath(rest)

	g.items = append([]*Item{item}, rest...)
	return true
}

// MakeDuplicateItem moves item to the back and sorts the remaining duplicates
// by path. When item was the original, the first remaining item by path
// becomes the new original.
func (g *Group) MakeDuplicateItem(item *Item) bool {
	idx := g.indexOf(item)
	if idx < 0 {
		return false
	}

	rest := make([]*Item, 0, len(g.items)-1)
	rest = append(rest, g.items[:idx]...)
	rest = append(rest, g.items[idx+1:]...)

	if idx == 0 {
		sortItemsByPath(rest)
	} else if len(rest) > 1 {
		sortItemsByPath(rest[1:])
	}

	g.items = append(rest, item)
	return true
}

// ExtractCrc32Duplicates splits a weak group into groups of identical content.
// Items that cannot be checksummed are released and counted as ignored, items
// with unique content are released silently. Ownership only moves once every
// item has been checksummed, so an aborted extraction leaves g untouched.
func (g *Group) ExtractCrc32Duplicates(ctx context.Context, source Crc32Source, checkpoint Checkpoint) ([]*Group, int, error) {
	if !g.HasDuplicates() || g.HasCrc32() {
		panic(fmt.Sprintf("duplicate: extract on group %s with %d items", g, len(g.items)))
	}

	type keyedItem struct {
		key  ContentKey
		item *Item
	}

	var (
		keyed  = make([]keyedItem, 0, len(g.items))
		failed []*Item
	)

	for _, item := range g.items {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		if checkpoint != nil {
			if err := checkpoint(item.Path); err != nil {
				return nil, 0, err
			}
		}

		key, err := g.key.ComputeCrc32(item.Path, source)
		if err != nil {
			log.WithError(err).Debugf("Failed computing checksum, ignoring: %q", item.Path)
			failed = append(failed, item)
			continue
		}

		keyed = append(keyed, keyedItem{key: key, item: item})
	}

	sort.Slice(keyed, func(i, j int) bool {
		if !keyed[i].key.Equal(keyed[j].key) {
			return keyed[i].key.Less(keyed[j].key)
		}
		return keyed[i].item.Path < keyed[j].item.Path
	})

	var groups []*Group
	for start := 0; start < len(keyed); {
		end := start + 1
		for end < len(keyed) && keyed[end].key.Equal(keyed[start].key) {
			end++
		}

		if end-start > 1 {
			ng := newGroup(keyed[start].key)
			ng.resolved = true
			for _, k := range keyed[start:end] {
				ng.add(k.item)
			}
			groups = append(groups, ng)
		} else {
			keyed[start].item.group = nil
		}

		start = end
	}

	for _, item := range failed {
		item.group = nil
	}
	g.items = nil

	return groups, len(failed), nil
}

func sortItemsByPath(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Path < items[j].Path
	})
}
