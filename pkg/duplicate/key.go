package duplicate

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// ContentKey identifies file content by size and CRC-32. A zero Crc32 means
// the checksum has not been computed yet: such a key is weak and only says
// that files have the same size.
type ContentKey struct {
	Size  uint64
	Crc32 uint32
}

// Crc32Source resolves the checksum of a file, e.g. *checksum.Cache.
type Crc32Source interface {
	AcquireCrc32(path string) (uint32, error)
}

func NewWeakKey(size int64) ContentKey {
	return ContentKey{Size: uint64(size)}
}

// ComputeFileSize returns a weak key for the current size of path.
func ComputeFileSize(path string) (ContentKey, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ContentKey{}, errors.Wrap(err, "stat file")
	}

	return NewWeakKey(info.Size()), nil
}

// ComputeCrc32 returns k with the checksum of path filled in.
func (k ContentKey) ComputeCrc32(path string, source Crc32Source) (ContentKey, error) {
	crc, err := source.AcquireCrc32(path)
	if err != nil {
		return k, err
	}

	return k.WithCrc32(crc), nil
}

func (k ContentKey) WithCrc32(crc uint32) ContentKey {
	k.Crc32 = crc
	return k
}

func (k ContentKey) HasCrc32() bool {
	return k.Crc32 != 0
}

func (k ContentKey) IsWeak() bool {
	return !k.HasCrc32()
}

func (k ContentKey) Equal(other ContentKey) bool {
	return k.Size == other.Size && k.Crc32 == other.Crc32
}

// Less orders keys by size, then by checksum.
func (k ContentKey) Less(other ContentKey) bool {
	if k.Size != other.Size {
		return k.Size < other.Size
	}

	return k.Crc32 < other.Crc32
}

func (k ContentKey) String() string {
	if k.IsWeak() {
		return fmt.Sprintf("%d:--------", k.Size)
	}

	return fmt.Sprintf("%d:%08x", k.Size, k.Crc32)
}
