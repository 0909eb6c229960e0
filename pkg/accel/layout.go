package accel

import (
	"fmt"

	"github.com/goccy/go-json"
)

// LayoutVersion is the register layout revision this package speaks.
const LayoutVersion = 1

// Layout locates the job window and control registers inside an action's
// MMIO space. The byte layout is accelerator-specific: each hardware
// variant ships a profile and the host negotiates on the version field
// rather than assuming offsets.
type Layout struct {
	Version    int    `json:"version"`
	ControlOff uint32 `json:"control_off"`
	StatusOff  uint32 `json:"status_off"`
	IrqOff     uint32 `json:"irq_off"`
	TypeOff    uint32 `json:"type_off"`
	RetcOff    uint32 `json:"retc_off"`
	JobOff     uint32 `json:"job_off"`
	JobSize    uint32 `json:"job_size"`
}

// Control register bits.
const (
	CtrlStart uint32 = 1 << 0
	CtrlReset uint32 = 1 << 4
)

// Status register bits.
const (
	StatusDone uint32 = 1 << 0
	StatusIdle uint32 = 1 << 1
)

// IRQ control register bits.
const IrqDoneEnable uint32 = 1 << 0

// DefaultLayout returns the version-1 layout used by the stock action
// wrapper.
func DefaultLayout() Layout {
	return Layout{
		Version:    LayoutVersion,
		ControlOff: 0x000,
		StatusOff:  0x004,
		IrqOff:     0x008,
		TypeOff:    0x010,
		RetcOff:    0x014,
		JobOff:     0x100,
		JobSize:    JobSize,
	}
}

// LoadLayout decodes and validates a layout profile.
func LoadLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	if l.Version != LayoutVersion {
		return Layout{}, fmt.Errorf("layout version %d: %w", l.Version, ErrLayoutVersion)
	}
	if err := l.validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

func (l Layout) validate() error {
	if l.JobSize != JobSize {
		return fmt.Errorf("job window size %d, want %d: %w", l.JobSize, JobSize, ErrBadLayout)
	}
	if l.JobOff <= l.RetcOff {
		return fmt.Errorf("job window at 0x%x overlaps result fields: %w", l.JobOff, ErrBadLayout)
	}
	return nil
}
