//go:build linux

package hostmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Alloc returns a zeroed, page-aligned (hence Alignment-aligned)
// anonymous mapping, locked into physical memory where the RLIMIT
// allows it. mlock failure is tolerated: the mapping still satisfies
// the alignment contract and small test allocations stay resident
// anyway.
func Alloc(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, ErrBadSize
	}
	b, err := unix.Mmap(
		-1,
		0,
		size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS,
	)
	if err != nil {
		return nil, fmt.Errorf("map %d bytes: %w", size, err)
	}
	_ = unix.Mlock(b)
	return &Buffer{b: b, mapd: true}, nil
}

func (b *Buffer) release() error {
	if !b.mapd {
		return nil
	}
	m := b.b
	b.b = nil
	return unix.Munmap(m)
}
