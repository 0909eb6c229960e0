package card

import (
	"github.com/samcharles93/ocrun/internal/device"
	"github.com/samcharles93/ocrun/pkg/accel"
)

// The register transport is the only MMIO path in the subsystem: every
// other component works on in-memory structures. writeJob must complete
// before the start strobe is written, and readResult must not run until
// completion has been observed; the controller enforces both orderings.

// writeJob copies the packed job image into the action's register
// window. The whole image lands before any start trigger, so no partial
// job can be observed as started.
func writeJob(dev device.Device, l accel.Layout, job *accel.Job) error {
	return dev.WriteWindow(l.JobOff, job.Window())
}

// readResult reads the return code and the descriptor window back out
// of the action and installs them on the job.
func readResult(dev device.Device, l accel.Layout, job *accel.Job) error {
	retc, err := dev.ReadReg(l.RetcOff)
	if err != nil {
		return err
	}
	window := make([]byte, l.JobSize)
	if err := dev.ReadWindow(l.JobOff, window); err != nil {
		return err
	}
	job.LoadResult(window, accel.Retc(retc))
	return nil
}
