// Package accel defines the wire protocol between a host program and a
// memory-mapped accelerator action: address descriptors, the fixed-size
// job window transferred into the action's register space, and the
// register layout profile that locates control and result fields.
//
// The package only builds and inspects in-memory images; all MMIO
// happens behind the card handle.
package accel

import (
	"encoding/binary"
	"fmt"
)

// AddrType selects the memory space an address descriptor refers to.
type AddrType uint16

const (
	AddrTypeHostDRAM AddrType = iota // host virtual address, pinned for the job
	AddrTypeCardDRAM                 // offset into card-local DRAM
	AddrTypeNVMe                     // offset into NVMe-backed storage
)

var addrTypeNames = [...]string{"HOST_DRAM", "CARD_DRAM", "TYPE_NVME"}

func (t AddrType) String() string {
	if int(t) < len(addrTypeNames) {
		return addrTypeNames[t]
	}
	return fmt.Sprintf("AddrType(%d)", uint16(t))
}

// ParseAddrType maps a memory-space selector as it appears on the
// command line to an AddrType.
func ParseAddrType(s string) (AddrType, error) {
	for i, name := range addrTypeNames {
		if s == name {
			return AddrType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown memory space %q: %w", s, ErrInvalidRegion)
}

// AddrFlag is the role bitset carried by each descriptor.
type AddrFlag uint16

const (
	AddrFlagAddr AddrFlag = 1 << iota // Addr field holds a valid location
	AddrFlagSrc                       // region is read by the action
	AddrFlagDst                       // region is written by the action
	AddrFlagEnd                       // last descriptor in the chain
)

// Addr describes one memory region handed to the accelerator. It records
// intent only; the caller owns the memory and must keep it alive and
// unmoved from arm until the job reaches a terminal state.
type Addr struct {
	Addr  uint64
	Size  uint32
	Type  AddrType
	Flags AddrFlag
}

// addrBytes is the packed size of one descriptor in the job window:
// u64 addr, u32 size, u16 type, u16 flags, little-endian.
const addrBytes = 16

// Set constructs a descriptor. It performs no I/O and creates no state
// beyond the returned value.
func Set(addr uint64, size uint32, typ AddrType, flags AddrFlag) (Addr, error) {
	a := Addr{Addr: addr, Size: size, Type: typ, Flags: flags}
	if err := a.validate(); err != nil {
		return Addr{}, err
	}
	return a, nil
}

func (a Addr) validate() error {
	if int(a.Type) >= len(addrTypeNames) {
		return fmt.Errorf("memory space %d: %w", uint16(a.Type), ErrInvalidRegion)
	}
	if a.Size > 0 && a.Addr == 0 && a.Flags&AddrFlagAddr != 0 {
		return fmt.Errorf("nil address with size %d: %w", a.Size, ErrInvalidRegion)
	}
	return nil
}

func (a Addr) pack(p []byte) {
	binary.LittleEndian.PutUint64(p[0:8], a.Addr)
	binary.LittleEndian.PutUint32(p[8:12], a.Size)
	binary.LittleEndian.PutUint16(p[12:14], uint16(a.Type))
	binary.LittleEndian.PutUint16(p[14:16], uint16(a.Flags))
}

func unpackAddr(p []byte) Addr {
	return Addr{
		Addr:  binary.LittleEndian.Uint64(p[0:8]),
		Size:  binary.LittleEndian.Uint32(p[8:12]),
		Type:  AddrType(binary.LittleEndian.Uint16(p[12:14])),
		Flags: AddrFlag(binary.LittleEndian.Uint16(p[14:16])),
	}
}

// UnpackChain walks the packed descriptor chain at the start of a job
// window, stopping after the descriptor carrying AddrFlagEnd. It fails
// if the window runs out before a terminator.
func UnpackChain(window []byte) ([]Addr, error) {
	var out []Addr
	for off := 0; off+addrBytes <= len(window); off += addrBytes {
		a := unpackAddr(window[off:])
		out = append(out, a)
		if a.Flags&AddrFlagEnd != 0 {
			return out, nil
		}
	}
	return nil, fmt.Errorf("descriptor chain not terminated: %w", ErrInvalidRegion)
}
