package duplicate

import (
	"context"
	"time"

	"github.com/autobrr/dupefind/pkg/paths"
)

type registration struct {
	key  ContentKey
	path string
}

// Store keeps groups by content key in order of first registration.
type Store struct {
	byKey      map[ContentKey]*Group
	groups     []*Group
	registered map[registration]struct{}
	foldCase   bool
}

// NewStore creates an empty store. With foldCase, paths differing only in
// case are treated as the same file.
func NewStore(foldCase bool) *Store {
	return &Store{
		byKey:      make(map[ContentKey]*Group),
		registered: make(map[registration]struct{}),
		foldCase:   foldCase,
	}
}

// RegisterPath adds path to the group for key, creating the group on first
// use. It returns false without adding anything when an equivalent path is
// already registered under the same key.
func (s *Store) RegisterPath(path string, modTime time.Time, key ContentKey) bool {
	reg := registration{key: key, path: paths.Key(path, s.foldCase)}
	if _, exists := s.registered[reg]; exists {
		return false
	}

	g, ok := s.byKey[key]
	if !ok {
		g = newGroup(key)
		s.byKey[key] = g
		s.groups = append(s.groups, g)
	}

	g.add(&Item{Path: path, ModTime: modTime})
	s.registered[reg] = struct{}{}

	return true
}

// Len returns the number of groups.
func (s *Store) Len() int {
	return len(s.groups)
}

// ItemCount returns the number of items over all groups.
func (s *Store) ItemCount() int {
	n := 0
	for _, g := range s.groups {
		n += g.Len()
	}

	return n
}

// Groups returns the groups in order of first registration.
func (s *Store) Groups() []*Group {
	return append([]*Group(nil), s.groups...)
}

// Group returns the group registered for key.
func (s *Store) Group(key ContentKey) (*Group, bool) {
	g, ok := s.byKey[key]
	return g, ok
}

// Clear releases every group and item.
func (s *Store) Clear() {
	for _, g := range s.groups {
		g.release()
	}
	s.reset()
}

func (s *Store) reset() {
	s.byKey = make(map[ContentKey]*Group)
	s.groups = nil
	s.registered = make(map[registration]struct{})
}

// ExtractDuplicateGroups moves every group holding duplicates out of the
// store. Strong groups are taken as they are, weak groups are resolved by
// checksum. A resolved group whose key matches a group already in the result
// is merged into it, skipping paths that group already holds. Groups without
// duplicates are released. The store is empty afterwards. When the
// checkpoint or ctx aborts the extraction, every group and item, including
// those already resolved, is released and the error is returned unchanged.
func (s *Store) ExtractDuplicateGroups(ctx context.Context, source Crc32Source, checkpoint Checkpoint) ([]*Group, int, error) {
	var (
		result  []*Group
		byKey   = make(map[ContentKey]*Group)
		ignored int
	)

	for _, g := range s.groups {
		if !g.HasDuplicates() {
			g.release()
			continue
		}

		if g.HasCrc32() {
			result = s.splice(result, byKey, g)
			continue
		}

		resolved, n, err := g.ExtractCrc32Duplicates(ctx, source, checkpoint)
		if err != nil {
			for _, r := range result {
				r.release()
			}
			s.Clear()
			return nil, 0, err
		}

		ignored += n
		for _, r := range resolved {
			result = s.splice(result, byKey, r)
		}
	}

	s.reset()

	return result, ignored, nil
}

// splice appends g to result, or moves its items into the result group
// already holding the same key.
func (s *Store) splice(result []*Group, byKey map[ContentKey]*Group, g *Group) []*Group {
	existing, ok := byKey[g.key]
	if !ok {
		byKey[g.key] = g
		return append(result, g)
	}

	for _, item := range g.items {
		if existing.containsPath(item.Path, s.foldCase) {
			item.group = nil
			continue
		}
		existing.add(item)
	}
	g.items = nil

	return result
}
