package hardlinkfilemap

import (
	"os"
	"reflect"
	"syscall"

	"github.com/pkg/errors"
)

// getFileID returns the volume serial + file index identifier and link count
// of a file.
func getFileID(path string) (FileID, uint64, error) {
	pathp, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return FileID{}, 0, errors.Wrap(err, "convert path to UTF16")
	}

	fi, err := os.Lstat(path)
	if err != nil {
		return FileID{}, 0, errors.Wrap(err, "lstat file")
	}

	attrs := uint32(syscall.FILE_FLAG_BACKUP_SEMANTICS)
	if isSymlink(fi) {
		// do not let CreateFile follow the link
		attrs |= syscall.FILE_FLAG_OPEN_REPARSE_POINT
	}

	h, err := syscall.CreateFile(pathp, 0, 0, nil, syscall.OPEN_EXISTING, attrs, 0)
	if err != nil {
		return FileID{}, 0, errors.Wrap(err, "open file")
	}
	defer syscall.CloseHandle(h)

	var info syscall.ByHandleFileInformation
	if err := syscall.GetFileInformationByHandle(h, &info); err != nil {
		return FileID{}, 0, errors.Wrap(err, "get file info")
	}

	return FileID{
		Device: uint64(info.VolumeSerialNumber),
		Inode:  (uint64(info.FileIndexHigh) << 32) | uint64(info.FileIndexLow),
	}, uint64(info.NumberOfLinks), nil
}

// https://devblogs.microsoft.com/oldnewthing/20100212-00/?p=14963
func isSymlink(fi os.FileInfo) bool {
	if fi.Sys().(*syscall.Win32FileAttributeData).FileAttributes&syscall.FILE_ATTRIBUTE_REPARSE_POINT == 0 {
		return false
	}

	v := reflect.Indirect(reflect.ValueOf(fi))
	reserved0 := v.FieldByName("Reserved0").Uint()

	return reserved0 == syscall.IO_REPARSE_TAG_SYMLINK ||
		reserved0 == 0xA0000003
}
