package duplicate

import (
	"strings"

	"github.com/pkg/errors"
)

// KeepStrategy decides which item of a group is presented as the original.
type KeepStrategy int

const (
	// KeepFirst leaves the positional original in place.
	KeepFirst KeepStrategy = iota
	KeepShortestPath
	KeepLongestPath
	KeepOldest
	KeepNewest
)

func ParseKeepStrategy(s string) (KeepStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return KeepFirst, nil
	case "shortest":
		return KeepShortestPath, nil
	case "longest":
		return KeepLongestPath, nil
	case "oldest":
		return KeepOldest, nil
	case "newest":
		return KeepNewest, nil
	}

	return KeepFirst, errors.Errorf("unknown keep strategy: %q", s)
}

func (k KeepStrategy) String() string {
	switch k {
	case KeepShortestPath:
		return "shortest"
	case KeepLongestPath:
		return "longest"
	case KeepOldest:
		return "oldest"
	case KeepNewest:
		return "newest"
	default:
		return "first"
	}
}

// Apply promotes the preferred item of g to original. Ties keep the item
// that comes first by path.
func (k KeepStrategy) Apply(g *Group) {
	if k == KeepFirst || g.Len() < 2 {
		return
	}

	best := g.items[0]
	for _, item := range g.items[1:] {
		if k.prefers(item, best) {
			best = item
		}
	}

	g.MakeOriginalItem(best)
}

func (k KeepStrategy) prefers(a *Item, b *Item) bool {
	switch k {
	case KeepShortestPath:
		if len(a.Path) != len(b.Path) {
			return len(a.Path) < len(b.Path)
		}
	case KeepLongestPath:
		if len(a.Path) != len(b.Path) {
			return len(a.Path) > len(b.Path)
		}
	case KeepOldest:
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.Before(b.ModTime)
		}
	case KeepNewest:
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.After(b.ModTime)
		}
	}

	return a.Path < b.Path
}
