package hardlinkfilemap

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// FileID identifies a file independently of its path (device + inode).
type FileID struct {
	Device uint64
	Inode  uint64
}

func (f FileID) String() string {
	return fmt.Sprintf("%d:%d", f.Device, f.Inode)
}

func (f FileID) Equal(other FileID) bool {
	return f.Device == other.Device && f.Inode == other.Inode
}

// HardlinkFileMap tracks which registered paths point to the same file.
type HardlinkFileMap struct {
	// hardlinkFileMap maps FileID to the paths sharing it, in order of registration
	hardlinkFileMap map[FileID][]string
	log             *logrus.Entry
}
