// Package device provides register-level access to one attached
// accelerator action: a memory-mapped ocxl device on Linux and an
// in-process simulator everywhere. A Device is owned by exactly one
// card handle; it is never shared and never a package-level singleton,
// so multiple simulated accelerators can coexist in tests.
package device

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned for any access after Close.
	ErrClosed = errors.New("device closed")
	// ErrGone means the underlying connection disappeared mid-use
	// (hot-unplug); the owning handle is unusable afterwards.
	ErrGone = errors.New("device disconnected")
	// ErrUnsupported is returned by the ocxl path on platforms
	// without ocxl device nodes.
	ErrUnsupported = errors.New("ocxl devices not supported on this platform")
)

// Device is the register window of one attached action. All offsets are
// relative to the action's MMIO base.
type Device interface {
	ReadReg(off uint32) (uint32, error)
	WriteReg(off uint32, val uint32) error

	// ReadWindow and WriteWindow move the job image; WriteWindow must
	// be complete before any start strobe is written.
	ReadWindow(off uint32, p []byte) error
	WriteWindow(off uint32, p []byte) error

	// WaitIRQ blocks until the action delivers its done interrupt or
	// ctx is cancelled. Only meaningful while the done IRQ is enabled.
	WaitIRQ(ctx context.Context) error
	// DrainIRQ discards an undelivered interrupt so a late signal from
	// an abandoned job cannot wake the next wait.
	DrainIRQ()

	Close() error
}
