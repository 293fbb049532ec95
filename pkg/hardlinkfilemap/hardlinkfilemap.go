package hardlinkfilemap

import (
	"github.com/autobrr/dupefind/pkg/logger"
)

func New() *HardlinkFileMap {
	return &HardlinkFileMap{
		hardlinkFileMap: make(map[FileID][]string),
		log:             logger.GetLogger("hardlinkfilemap"),
	}
}

func (t *HardlinkFileMap) linkInfoByPath(path string) (FileID, uint64, bool) {
	id, nlink, err := getFileID(path)
	if err != nil {
		t.log.Warnf("Failed to get file identifier: %s - %s", path, err)
		return FileID{}, 0, false
	}

	return id, nlink, true
}

// Add registers path. When an earlier registered path is a hardlink of the
// same file, that path is returned together with true.
func (t *HardlinkFileMap) Add(path string) (string, bool) {
	id, _, ok := t.linkInfoByPath(path)
	if !ok {
		return "", false
	}

	if paths, exists := t.hardlinkFileMap[id]; exists {
		for _, existingPath := range paths {
			if existingPath == path {
				// registering the same path again is not a link
				if paths[0] == path {
					return "", false
				}
				return paths[0], true
			}
		}

		t.hardlinkFileMap[id] = append(paths, path)
		return paths[0], true
	}

	t.hardlinkFileMap[id] = []string{path}
	return "", false
}

// Links returns every registered path sharing the file of path, including
// path itself when it was registered.
func (t *HardlinkFileMap) Links(path string) []string {
	id, _, ok := t.linkInfoByPath(path)
	if !ok {
		return nil
	}

	return append([]string(nil), t.hardlinkFileMap[id]...)
}

// HardlinkedOutside reports whether path has more links on disk than were
// registered with the map.
func (t *HardlinkFileMap) HardlinkedOutside(path string) bool {
	id, nlink, ok := t.linkInfoByPath(path)
	if !ok {
		return false
	}

	return uint64(len(t.hardlinkFileMap[id])) < nlink
}

// Length returns the number of distinct files registered.
func (t *HardlinkFileMap) Length() int {
	return len(t.hardlinkFileMap)
}
