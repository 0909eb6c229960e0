// Package hostmem allocates the pinned, alignment-guaranteed host
// buffers that address descriptors point at. The accelerator reaches
// these buffers by physical access, so they must stay resident and
// unmoved from the moment a job is armed until it reaches a terminal
// state; callers keep the Buffer alive for that whole span and free it
// afterwards.
package hostmem

import (
	"errors"
	"unsafe"
)

// Alignment is the minimum byte alignment of every allocation, matching
// the burst alignment the hardware DMA engine expects.
const Alignment = 64

var ErrBadSize = errors.New("allocation size must be positive")

// Buffer is one pinned host allocation. Do not append to Bytes(): a
// reallocation would hand the hardware a dangling address.
type Buffer struct {
	b     []byte
	mapd  bool
	freed bool
}

// Bytes returns the allocation, zero-filled at birth.
func (b *Buffer) Bytes() []byte { return b.b }

func (b *Buffer) Len() int { return len(b.b) }

// Addr returns the location a descriptor should carry for this buffer.
// Stable for the lifetime of the Buffer.
func (b *Buffer) Addr() uint64 {
	if b.freed || len(b.b) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&b.b[0])))
}

// Free releases the allocation. Safe to call more than once.
func (b *Buffer) Free() error {
	if b.freed {
		return nil
	}
	b.freed = true
	return b.release()
}
