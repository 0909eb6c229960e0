//go:build !linux

package hostmem

import "unsafe"

// Alloc falls back to an Alignment-aligned heap slice on platforms
// without anonymous mappings. Go heap objects do not move, so the
// address handed to descriptors stays valid, but the memory is not
// locked; this path exists for development hosts, not production DMA.
func Alloc(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, ErrBadSize
	}
	raw := make([]byte, size+Alignment-1)
	off := 0
	if rem := int(uintptr(unsafe.Pointer(&raw[0])) % Alignment); rem != 0 {
		off = Alignment - rem
	}
	return &Buffer{b: raw[off : off+size : off+size]}, nil
}

func (b *Buffer) release() error {
	b.b = nil
	return nil
}
