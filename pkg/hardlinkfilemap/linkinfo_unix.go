//go:build !windows

package hardlinkfilemap

import (
	"syscall"

	"github.com/pkg/errors"
)

// getFileID returns the device + inode identifier and link count of a file.
// Field widths of syscall.Stat_t differ per platform, hence the conversions.
func getFileID(path string) (FileID, uint64, error) {
	var stat syscall.Stat_t
	if err := syscall.Stat(path, &stat); err != nil {
		return FileID{}, 0, errors.Wrap(err, "stat file")
	}

	return FileID{
		Device: uint64(stat.Dev),
		Inode:  uint64(stat.Ino),
	}, uint64(stat.Nlink), nil
}
