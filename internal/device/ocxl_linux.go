//go:build linux

package device

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmioSize is the per-action register window mapped from the device
// node. Registers live in the first page; the job window inside it.
const mmioSize = 0x10000

// irqEventBytes is the size of one kernel event record delivered on the
// device fd when the action raises its done interrupt.
const irqEventBytes = 16

// OCXL drives a real accelerator through its ocxl device node: the
// register window is mmap'd and interrupts arrive as event records
// readable from the fd.
type OCXL struct {
	f      *os.File
	mmio   []byte
	closed atomic.Bool
}

// OpenOCXL opens and maps the action at the given device node path.
func OpenOCXL(path string) (*OCXL, error) {
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	mmio, err := unix.Mmap(
		int(f.Fd()),
		0,
		mmioSize,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("map register window of %s: %w", path, err)
	}
	return &OCXL{f: f, mmio: mmio}, nil
}

func (d *OCXL) reg(off uint32) (*uint32, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	if int(off)+4 > len(d.mmio) {
		return nil, fmt.Errorf("register 0x%x outside mapped window: %w", off, ErrGone)
	}
	return (*uint32)(unsafe.Pointer(&d.mmio[off])), nil
}

func (d *OCXL) ReadReg(off uint32) (uint32, error) {
	r, err := d.reg(off)
	if err != nil {
		return 0, err
	}
	return atomic.LoadUint32(r), nil
}

func (d *OCXL) WriteReg(off uint32, val uint32) error {
	r, err := d.reg(off)
	if err != nil {
		return err
	}
	atomic.StoreUint32(r, val)
	return nil
}

func (d *OCXL) ReadWindow(off uint32, p []byte) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if int(off)+len(p) > len(d.mmio) {
		return fmt.Errorf("window read at 0x%x outside mapping: %w", off, ErrGone)
	}
	copy(p, d.mmio[off:int(off)+len(p)])
	return nil
}

func (d *OCXL) WriteWindow(off uint32, p []byte) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if int(off)+len(p) > len(d.mmio) {
		return fmt.Errorf("window write at 0x%x outside mapping: %w", off, ErrGone)
	}
	copy(d.mmio[off:], p)
	return nil
}

// WaitIRQ blocks until an interrupt event record is readable on the
// device fd. Polling the fd in short slices keeps ctx cancellation
// responsive without a signal-handling thread.
func (d *OCXL) WaitIRQ(ctx context.Context) error {
	fds := []unix.PollFd{{Fd: int32(d.f.Fd()), Events: unix.POLLIN}}
	var buf [irqEventBytes]byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.closed.Load() {
			return ErrClosed
		}
		n, err := unix.Poll(fds, 10)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("wait for interrupt: %w", ErrGone)
		}
		if n == 0 {
			continue
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return ErrGone
		}
		if _, err := unix.Read(int(d.f.Fd()), buf[:]); err != nil && err != unix.EAGAIN {
			return fmt.Errorf("read interrupt event: %w", ErrGone)
		}
		return nil
	}
}

func (d *OCXL) DrainIRQ() {
	if d.closed.Load() {
		return
	}
	fds := []unix.PollFd{{Fd: int32(d.f.Fd()), Events: unix.POLLIN}}
	var buf [irqEventBytes]byte
	if n, err := unix.Poll(fds, 0); err == nil && n > 0 {
		_, _ = unix.Read(int(d.f.Fd()), buf[:])
	}
}

func (d *OCXL) Close() error {
	if d.closed.Swap(true) {
		return ErrClosed
	}
	err := unix.Munmap(d.mmio)
	if cerr := d.f.Close(); err == nil {
		err = cerr
	}
	return err
}
