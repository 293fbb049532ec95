package checksum

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// BlockSize is the read buffer used when checksumming file content.
const BlockSize = 32 * 1024

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, BlockSize)
		return &b
	},
}

// File returns the CRC-32 of the whole content of path.
// On failure it returns 0 together with the error.
func File(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open file")
	}
	defer f.Close()

	bufPtr := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bufPtr)

	d := NewDigest()
	if _, err := io.CopyBuffer(d, f, *bufPtr); err != nil {
		return 0, errors.Wrap(err, "read file")
	}

	return d.Sum32(), nil
}
