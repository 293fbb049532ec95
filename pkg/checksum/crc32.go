package checksum

import (
	"hash"
	"hash/crc32"
	"sync"
)

// Size of a CRC-32 checksum in bytes.
const Size = 4

const initial = 0xFFFFFFFF

var ieeeTable = sync.OnceValue(func() *crc32.Table {
	return crc32.MakeTable(crc32.IEEE)
})

// Update advances a running CRC-32 value over p without the pre and post
// inversion, so Update(Update(s, a), b) == Update(s, a+b).
func Update(seed uint32, p []byte) uint32 {
	// crc32.Update complements on the way in and out.
	return ^crc32.Update(^seed, ieeeTable(), p)
}

// Checksum returns the IEEE CRC-32 of p.
func Checksum(p []byte) uint32 {
	d := NewDigest()
	_, _ = d.Write(p)
	return d.Sum32()
}

// Digest is an incremental CRC-32 computation.
type Digest struct {
	crc uint32
}

var _ hash.Hash32 = (*Digest)(nil)

func NewDigest() *Digest {
	return &Digest{crc: initial}
}

func (d *Digest) Reset() {
	d.crc = initial
}

func (d *Digest) Write(p []byte) (int, error) {
	d.crc = Update(d.crc, p)
	return len(p), nil
}

// Sum32 returns the complement of the running value.
func (d *Digest) Sum32() uint32 {
	return ^d.crc
}

func (d *Digest) Sum(in []byte) []byte {
	s := d.Sum32()
	return append(in, byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
}

func (d *Digest) Size() int {
	return Size
}

func (d *Digest) BlockSize() int {
	return 1
}
