package card

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samcharles93/ocrun/internal/device"
	"github.com/samcharles93/ocrun/pkg/accel"
)

// Poll cadence: fast enough that short jobs see sub-millisecond
// latency, bounded so a stuck action never busy-spins the host.
const (
	pollInitial = 250 * time.Microsecond
	pollMax     = 5 * time.Millisecond
)

// completionWaiter decouples how the done signal arrives from what the
// controller does with it; interrupt and polling implementations sit
// behind the same call.
type completionWaiter interface {
	wait(ctx context.Context) error
}

type irqWaiter struct{ dev device.Device }

func (w irqWaiter) wait(ctx context.Context) error { return w.dev.WaitIRQ(ctx) }

type pollWaiter struct {
	dev    device.Device
	layout accel.Layout
}

func (w pollWaiter) wait(ctx context.Context) error {
	delay := pollInitial
	for {
		st, err := w.dev.ReadReg(w.layout.StatusOff)
		if err != nil {
			return err
		}
		if st&accel.StatusDone != 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay < pollMax {
			delay *= 2
		}
	}
}

// Execute drives one job to a terminal state: arm the register image,
// strobe start, wait for completion, read the result back. The action's
// return code is a result the caller inspects on the job; Execute's
// error reports subsystem outcomes only.
//
// ErrTimedOut means the action never signaled completion within
// timeout; ErrFaulted means the device itself became unreachable. After
// either, the handle refuses further jobs and must be detached and
// closed. The wait step is the only point where Execute blocks.
func (a *Action) Execute(ctx context.Context, job *accel.Job, timeout time.Duration) error {
	a.mu.Lock()
	switch {
	case a.detached:
		a.mu.Unlock()
		return ErrDetached
	case a.unusable:
		a.mu.Unlock()
		return ErrUnusable
	case a.inFlight:
		a.mu.Unlock()
		return ErrBusy
	}
	a.inFlight = true
	a.mu.Unlock()

	start := time.Now()
	err := a.run(ctx, job, timeout)

	a.mu.Lock()
	a.inFlight = false
	a.last = a.state
	a.state = StateIdle // per-invocation state is released on every path
	terminal := a.last
	a.mu.Unlock()

	a.log.Debug("job finished",
		"state", terminal.String(),
		"elapsed_us", time.Since(start).Microseconds(),
	)
	return err
}

func (a *Action) run(ctx context.Context, job *accel.Job, timeout time.Duration) error {
	if a.mode == NotifyIRQ {
		if err := a.dev.WriteReg(a.layout.IrqOff, accel.IrqDoneEnable); err != nil {
			return a.fault("enable done irq", err)
		}
	}
	if err := writeJob(a.dev, a.layout, job); err != nil {
		return a.fault("load job window", err)
	}
	a.setState(StateArmed)

	// The full register image is in place; only now may the action
	// observe a start.
	if err := a.dev.WriteReg(a.layout.ControlOff, accel.CtrlStart); err != nil {
		return a.fault("start strobe", err)
	}
	a.setState(StateRunning)

	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := a.waiter().wait(wctx)
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		a.quiesce()
		a.setState(StateTimedOut)
		return fmt.Errorf("no completion within %v: %w", timeout, ErrTimedOut)
	default:
		return a.fault("wait for completion", err)
	}

	if err := readResult(a.dev, a.layout, job); err != nil {
		return a.fault("read result", err)
	}
	if a.mode == NotifyIRQ {
		// Disarm the source and swallow any second edge; a late signal
		// must not wake the next job's wait.
		_ = a.dev.WriteReg(a.layout.IrqOff, 0)
		a.dev.DrainIRQ()
	}
	a.setState(StateCompleted)
	return nil
}

func (a *Action) waiter() completionWaiter {
	if a.mode == NotifyPoll {
		return pollWaiter{dev: a.dev, layout: a.layout}
	}
	return irqWaiter{dev: a.dev}
}

// quiesce is the best-effort stop after a timeout: an action left
// running would keep writing into the caller's buffers and poison the
// next job. The handle is unusable afterwards whether or not the reset
// lands.
func (a *Action) quiesce() {
	a.markUnusable()
	if a.mode == NotifyIRQ {
		_ = a.dev.WriteReg(a.layout.IrqOff, 0)
	}
	if err := a.dev.WriteReg(a.layout.ControlOff, accel.CtrlReset); err != nil {
		a.log.Warn("quiesce failed, card must be torn down", "err", err)
	}
	a.dev.DrainIRQ()
}

func (a *Action) fault(op string, err error) error {
	a.markUnusable()
	a.setState(StateFaulted)
	return fmt.Errorf("%s: %v: %w", op, err, ErrFaulted)
}

func (a *Action) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *Action) markUnusable() {
	a.mu.Lock()
	a.unusable = true
	a.mu.Unlock()
}
