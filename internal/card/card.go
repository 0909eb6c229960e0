// Package card owns the accelerator handle lifecycle: opening a card,
// attaching its action, executing jobs through the register transport,
// and tearing everything down in reverse order on every exit path.
package card

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/samcharles93/ocrun/internal/device"
	"github.com/samcharles93/ocrun/internal/logger"
	"github.com/samcharles93/ocrun/pkg/accel"
)

// Card is one open device connection. It executes jobs for at most one
// attached action at a time.
type Card struct {
	dev    device.Device
	layout accel.Layout
	log    logger.Logger
	ident  string

	action *Action
	closed bool
}

// Options tune how a card is opened. The zero value is usable.
type Options struct {
	Layout *accel.Layout // register layout profile; nil = DefaultLayout
	Logger logger.Logger // nil = logger.Default
}

func (o Options) layout() accel.Layout {
	if o.Layout != nil {
		return *o.Layout
	}
	return accel.DefaultLayout()
}

func (o Options) logger() logger.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logger.Default()
}

// New wraps an already-open device. The card takes ownership: Close
// closes the device.
func New(dev device.Device, opts Options) *Card {
	return &Card{
		dev:    dev,
		layout: opts.layout(),
		log:    opts.logger(),
		ident:  "device",
	}
}

// Open resolves an identifier to an accelerator and opens it.
//
// Accepted forms: a card number ("0".."3"), an explicit device node
// path, or "sim"/"sim:memcopy"/"sim:helloworld" for the in-process
// simulator.
func Open(identifier string, opts Options) (*Card, error) {
	layout := opts.layout()

	if sim, ok := simFor(identifier, layout); ok {
		c := New(sim, opts)
		c.ident = identifier
		return c, nil
	}

	path := identifier
	if n, err := strconv.Atoi(identifier); err == nil {
		path = devicePath(n)
	}
	dev, err := device.OpenOCXL(path)
	if err != nil {
		if os.IsNotExist(err) || err == device.ErrUnsupported {
			return nil, fmt.Errorf("%s: %w", identifier, ErrDeviceNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	c := New(dev, opts)
	c.ident = identifier
	return c, nil
}

// devicePath follows the platform naming convention: card 0 is the
// default alias, higher numbers address a specific function.
func devicePath(n int) string {
	if n == 0 {
		return "/dev/ocxl/IBM,oc-accel"
	}
	return fmt.Sprintf("/dev/ocxl/IBM,oc-accel.000%d:00:00.1.0", n)
}

func simFor(identifier string, layout accel.Layout) (device.Device, bool) {
	if identifier != "sim" && !strings.HasPrefix(identifier, "sim:") {
		return nil, false
	}
	cfg := device.SimConfig{}
	switch strings.TrimPrefix(identifier, "sim:") {
	case "sim", "", "memcopy":
		cfg.ActionType = device.ActionTypeMemcopy
	case "helloworld":
		cfg.ActionType = device.ActionTypeHelloWorld
	default:
		return nil, false
	}
	return device.NewSim(layout, cfg), true
}

// Identifier returns the string the card was opened with.
func (c *Card) Identifier() string { return c.ident }

// Layout returns the negotiated register layout.
func (c *Card) Layout() accel.Layout { return c.layout }

// ActionType reads the type register of the card's action.
func (c *Card) ActionType() (uint32, error) {
	if c.closed {
		return 0, device.ErrClosed
	}
	return c.dev.ReadReg(c.layout.TypeOff)
}

// Close releases the device connection. A still-attached action is
// detached first: detach-before-close is a hardware-level ordering
// invariant, so Close preserves it even for sloppy unwind paths.
func (c *Card) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.action != nil {
		_ = c.action.Detach()
	}
	return c.dev.Close()
}
