package accel

import (
	"errors"
	"testing"
)

func TestSetValidDescriptors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		addr  uint64
		size  uint32
		typ   AddrType
		flags AddrFlag
	}{
		{"host source", 0x1000, 4096, AddrTypeHostDRAM, AddrFlagAddr | AddrFlagSrc},
		{"card destination", 0x0, 0, AddrTypeCardDRAM, AddrFlagDst},
		{"nvme end", 0x200, 512, AddrTypeNVMe, AddrFlagAddr | AddrFlagDst | AddrFlagEnd},
		{"zero size zero addr", 0, 0, AddrTypeHostDRAM, AddrFlagAddr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := Set(tc.addr, tc.size, tc.typ, tc.flags)
			if err != nil {
				t.Fatalf("Set: %v", err)
			}
			if a.Addr != tc.addr || a.Size != tc.size || a.Type != tc.typ || a.Flags != tc.flags {
				t.Fatalf("got %+v, want inputs back", a)
			}
		})
	}
}

func TestSetInvalidRegion(t *testing.T) {
	t.Parallel()

	if _, err := Set(0, 64, AddrTypeHostDRAM, AddrFlagAddr|AddrFlagSrc); !errors.Is(err, ErrInvalidRegion) {
		t.Fatalf("nil address with size: got %v, want ErrInvalidRegion", err)
	}
	if _, err := Set(0x1000, 64, AddrType(7), AddrFlagAddr); !errors.Is(err, ErrInvalidRegion) {
		t.Fatalf("unknown memory space: got %v, want ErrInvalidRegion", err)
	}
}

func TestAddrTypeString(t *testing.T) {
	t.Parallel()

	want := map[AddrType]string{
		AddrTypeHostDRAM: "HOST_DRAM",
		AddrTypeCardDRAM: "CARD_DRAM",
		AddrTypeNVMe:     "TYPE_NVME",
	}
	for typ, name := range want {
		if got := typ.String(); got != name {
			t.Errorf("%d.String() = %q, want %q", typ, got, name)
		}
		parsed, err := ParseAddrType(name)
		if err != nil {
			t.Errorf("ParseAddrType(%q): %v", name, err)
		}
		if parsed != typ {
			t.Errorf("ParseAddrType(%q) = %v, want %v", name, parsed, typ)
		}
	}
	if _, err := ParseAddrType("FPGA_BRAM"); !errors.Is(err, ErrInvalidRegion) {
		t.Fatalf("unknown selector: got %v, want ErrInvalidRegion", err)
	}
}
