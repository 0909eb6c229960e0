package accel

import (
	"bytes"
	"errors"
	"testing"
)

func mustSet(t *testing.T, addr uint64, size uint32, typ AddrType, flags AddrFlag) Addr {
	t.Helper()
	a, err := Set(addr, size, typ, flags)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	return a
}

func TestJobRoundTrip(t *testing.T) {
	t.Parallel()

	in := []Addr{
		mustSet(t, 0xdead0000, 1024, AddrTypeHostDRAM, AddrFlagAddr|AddrFlagSrc),
		mustSet(t, 0x2000, 512, AddrTypeCardDRAM, AddrFlagAddr|AddrFlagDst),
		mustSet(t, 0xbeef0000, 1024, AddrTypeNVMe, AddrFlagAddr|AddrFlagDst|AddrFlagEnd),
	}
	job, err := NewJob(in, []byte{0xa5, 0x5a})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	// The window is what executed hardware hands back; loading it
	// unchanged must reproduce the inputs in order.
	job.LoadResult(job.Window(), RetcSuccess)
	retc, out, err := job.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if !retc.Ok() {
		t.Fatalf("retc = %v, want SUCCESS", retc)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d descriptors, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("descriptor %d: got %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestJobTooLarge(t *testing.T) {
	t.Parallel()

	addrs := make([]Addr, JobSize/16)
	for i := range addrs {
		addrs[i] = mustSet(t, 0x1000, 64, AddrTypeHostDRAM, AddrFlagAddr|AddrFlagSrc)
	}
	addrs[len(addrs)-1].Flags |= AddrFlagEnd

	// Descriptors alone fill the window; one param byte overflows it.
	if _, err := NewJob(addrs, []byte{1}); !errors.Is(err, ErrJobTooLarge) {
		t.Fatalf("got %v, want ErrJobTooLarge", err)
	}
	if _, err := NewJob(addrs, nil); err != nil {
		t.Fatalf("exactly full window should build: %v", err)
	}
}

func TestJobChainTermination(t *testing.T) {
	t.Parallel()

	src := mustSet(t, 0x1000, 64, AddrTypeHostDRAM, AddrFlagAddr|AddrFlagSrc)
	dst := mustSet(t, 0x2000, 64, AddrTypeHostDRAM, AddrFlagAddr|AddrFlagDst)

	if _, err := NewJob([]Addr{src, dst}, nil); !errors.Is(err, ErrInvalidRegion) {
		t.Fatalf("no end marker: got %v, want ErrInvalidRegion", err)
	}

	src.Flags |= AddrFlagEnd
	dst.Flags |= AddrFlagEnd
	if _, err := NewJob([]Addr{src, dst}, nil); !errors.Is(err, ErrInvalidRegion) {
		t.Fatalf("two end markers: got %v, want ErrInvalidRegion", err)
	}
}

func TestJobWindowZeroedAndParamsPlaced(t *testing.T) {
	t.Parallel()

	end := mustSet(t, 0x1000, 8, AddrTypeHostDRAM, AddrFlagAddr|AddrFlagDst|AddrFlagEnd)
	params := []byte{1, 2, 3, 4}
	job, err := NewJob([]Addr{end}, params)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	w := job.Window()
	if !bytes.Equal(w[16:20], params) {
		t.Fatalf("params region = % x, want % x", w[16:20], params)
	}
	for i, b := range w[20:] {
		if b != 0 {
			t.Fatalf("residual byte at %d: 0x%x, want zeroed window", 20+i, b)
		}
	}
}

func TestJobResultBeforeExecution(t *testing.T) {
	t.Parallel()

	end := mustSet(t, 0x1000, 8, AddrTypeHostDRAM, AddrFlagAddr|AddrFlagDst|AddrFlagEnd)
	job, err := NewJob([]Addr{end}, nil)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if _, _, err := job.Result(); !errors.Is(err, ErrNotExecuted) {
		t.Fatalf("got %v, want ErrNotExecuted", err)
	}
}
