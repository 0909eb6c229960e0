package card

import (
	"fmt"
	"sync"
	"time"

	"github.com/samcharles93/ocrun/internal/device"
	"github.com/samcharles93/ocrun/internal/logger"
	"github.com/samcharles93/ocrun/pkg/accel"
)

// NotifyMode selects how job completion is detected. Fixed at attach
// time, never per job.
type NotifyMode int

const (
	NotifyIRQ  NotifyMode = iota // block on the action's done interrupt
	NotifyPoll                   // sample the status register with backoff
)

func (m NotifyMode) String() string {
	if m == NotifyPoll {
		return "poll"
	}
	return "irq"
}

// AttachOptions tune Attach. The zero value attaches in interrupt mode
// with the default readiness timeout.
type AttachOptions struct {
	Mode    NotifyMode
	Timeout time.Duration // how long to wait for the action to go idle
}

const defaultAttachTimeout = 60 * time.Second

// State tracks the controller through one job. Terminal states return
// to StateIdle; whether the handle may run another job is a separate
// question answered by the unusable flag.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateRunning
	StateCompleted
	StateTimedOut
	StateFaulted
)

var stateNames = [...]string{"idle", "armed", "running", "completed", "timed-out", "faulted"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Action is the handle for one attached action. One job at a time; the
// only blocking operation is Execute's wait step.
type Action struct {
	card   *Card
	dev    device.Device
	layout accel.Layout
	mode   NotifyMode
	log    logger.Logger

	mu       sync.Mutex
	state    State
	last     State // terminal state of the most recent job
	inFlight bool
	detached bool
	unusable bool
}

// Attach binds the card's action, verifying its type register and
// waiting for it to report idle. Nothing acquired by a failed Attach
// stays registered; the caller still owns (and must Close) the card.
func (c *Card) Attach(actionType uint32, opts AttachOptions) (*Action, error) {
	if c.closed {
		return nil, fmt.Errorf("card closed: %w", ErrAttachFailed)
	}
	if c.action != nil && !c.action.detached {
		return nil, fmt.Errorf("card busy: %w", ErrAttachFailed)
	}

	got, err := c.dev.ReadReg(c.layout.TypeOff)
	if err != nil {
		return nil, fmt.Errorf("read action type: %v: %w", err, ErrAttachFailed)
	}
	if got != actionType {
		return nil, fmt.Errorf("action type 0x%08x, want 0x%08x: %w", got, actionType, ErrAttachFailed)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultAttachTimeout
	}
	deadline := time.Now().Add(timeout)
	for {
		st, err := c.dev.ReadReg(c.layout.StatusOff)
		if err != nil {
			return nil, fmt.Errorf("read action status: %v: %w", err, ErrAttachFailed)
		}
		if st&accel.StatusIdle != 0 {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("action busy after %v: %w", timeout, ErrAttachFailed)
		}
		time.Sleep(time.Millisecond)
	}

	a := &Action{
		card:   c,
		dev:    c.dev,
		layout: c.layout,
		mode:   opts.Mode,
		log:    c.log.With("card", c.ident, "notify", opts.Mode.String()),
	}
	c.action = a
	a.log.Debug("action attached", "type", fmt.Sprintf("0x%08x", actionType))
	return a, nil
}

// Mode returns the notification mode fixed at attach time.
func (a *Action) Mode() NotifyMode { return a.mode }

// State returns the controller state of the current or most recent job.
func (a *Action) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateIdle {
		return a.state
	}
	return a.last
}

// Usable reports whether the handle may run another job.
func (a *Action) Usable() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.detached && !a.unusable
}

// Detach releases the action, dropping any interrupt registration so a
// stale signal cannot reach a future attach. Exactly-once: a second
// Detach fails with ErrDetached. Must run before the card is closed.
func (a *Action) Detach() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detached {
		return ErrDetached
	}
	a.detached = true
	a.dev.DrainIRQ()
	if a.card.action == a {
		a.card.action = nil
	}
	a.log.Debug("action detached")
	return nil
}
