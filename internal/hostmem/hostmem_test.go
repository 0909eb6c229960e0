package hostmem

import (
	"errors"
	"testing"
)

func TestAllocAlignedAndZeroed(t *testing.T) {
	t.Parallel()

	buf, err := Alloc(4096 + 13)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	defer buf.Free()

	if buf.Len() != 4096+13 {
		t.Fatalf("Len = %d, want %d", buf.Len(), 4096+13)
	}
	if buf.Addr() == 0 {
		t.Fatal("Addr = 0")
	}
	if buf.Addr()%Alignment != 0 {
		t.Fatalf("Addr 0x%x not %d-byte aligned", buf.Addr(), Alignment)
	}
	for i, b := range buf.Bytes() {
		if b != 0 {
			t.Fatalf("byte %d = 0x%x, want zeroed allocation", i, b)
		}
	}
}

func TestAllocRejectsBadSize(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, -1} {
		if _, err := Alloc(size); !errors.Is(err, ErrBadSize) {
			t.Fatalf("Alloc(%d): got %v, want ErrBadSize", size, err)
		}
	}
}

func TestFreeIdempotent(t *testing.T) {
	t.Parallel()

	buf, err := Alloc(64)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := buf.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := buf.Free(); err != nil {
		t.Fatalf("second Free: %v", err)
	}
	if buf.Addr() != 0 {
		t.Fatalf("Addr after Free = 0x%x, want 0", buf.Addr())
	}
}
