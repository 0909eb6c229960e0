package device

import (
	"context"
	"sync"
	"time"
	"unsafe"

	"github.com/samcharles93/ocrun/pkg/accel"
)

// Action type codes the simulator understands.
const (
	ActionTypeMemcopy    uint32 = 0x10140000 // identity copy src -> dst
	ActionTypeHelloWorld uint32 = 0x10141008 // uppercase transform src -> dst
)

// SimConfig scripts a simulated action. The zero value is a memcopy
// action with 1 MiB of card DRAM that completes immediately.
type SimConfig struct {
	ActionType  uint32        // reported in the type register
	Delay       time.Duration // latency between start strobe and completion
	NeverDone   bool          // swallow starts; the job never completes
	Retc        accel.Retc    // forced return code (0 reports the real outcome)
	Scribble    int           // bytes of 0xee written past each destination
	DropOnStart bool          // connection vanishes when the job starts
	CardDRAM    int           // bytes of simulated card-local DRAM
}

// Sim is an in-process accelerator with the same register contract as
// the hardware. Host-DRAM descriptors are dereferenced directly, the
// way the software-action (CPU) execution mode runs a job on the host.
type Sim struct {
	mu     sync.Mutex
	cfg    SimConfig
	layout accel.Layout
	regs   map[uint32]uint32
	window []byte
	dram   []byte
	timer  *time.Timer

	irq  chan struct{}
	gone chan struct{}

	writes int
	closed bool
	dead   bool
}

func NewSim(layout accel.Layout, cfg SimConfig) *Sim {
	if cfg.ActionType == 0 {
		cfg.ActionType = ActionTypeMemcopy
	}
	if cfg.CardDRAM == 0 {
		cfg.CardDRAM = 1 << 20
	}
	s := &Sim{
		cfg:    cfg,
		layout: layout,
		regs:   make(map[uint32]uint32),
		window: make([]byte, layout.JobSize),
		dram:   make([]byte, cfg.CardDRAM),
		irq:    make(chan struct{}, 1),
		gone:   make(chan struct{}),
	}
	s.regs[layout.TypeOff] = cfg.ActionType
	s.regs[layout.StatusOff] = accel.StatusIdle
	return s
}

// WriteCount reports how many register or window writes the host has
// issued. A handle lifecycle with no job must leave this at zero.
func (s *Sim) WriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Unplug drops the simulated connection, as a hot-unplugged card would.
func (s *Sim) Unplug() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markGone()
}

func (s *Sim) markGone() {
	if !s.dead {
		s.dead = true
		close(s.gone)
	}
}

func (s *Sim) check() error {
	if s.closed {
		return ErrClosed
	}
	if s.dead {
		return ErrGone
	}
	return nil
}

func (s *Sim) ReadReg(off uint32) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return 0, err
	}
	return s.regs[off], nil
}

func (s *Sim) WriteReg(off uint32, val uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	s.writes++
	if off == s.layout.ControlOff {
		s.control(val)
		return nil
	}
	s.regs[off] = val
	return nil
}

func (s *Sim) ReadWindow(off uint32, p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	idx := int(off) - int(s.layout.JobOff)
	if idx < 0 || idx+len(p) > len(s.window) {
		return accel.ErrBadLayout
	}
	copy(p, s.window[idx:])
	return nil
}

func (s *Sim) WriteWindow(off uint32, p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	idx := int(off) - int(s.layout.JobOff)
	if idx < 0 || idx+len(p) > len(s.window) {
		return accel.ErrBadLayout
	}
	s.writes++
	copy(s.window[idx:], p)
	return nil
}

func (s *Sim) WaitIRQ(ctx context.Context) error {
	select {
	case <-s.irq:
		return nil
	case <-s.gone:
		return ErrGone
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sim) DrainIRQ() {
	select {
	case <-s.irq:
	default:
	}
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	return nil
}

// control handles writes to the control register while s.mu is held.
func (s *Sim) control(val uint32) {
	switch {
	case val&accel.CtrlReset != 0:
		// Quiesce: abandon any in-flight job and return to idle.
		if s.timer != nil {
			s.timer.Stop()
		}
		s.regs[s.layout.StatusOff] = accel.StatusIdle
	case val&accel.CtrlStart != 0:
		if s.cfg.DropOnStart {
			s.markGone()
			return
		}
		s.regs[s.layout.StatusOff] = 0 // running
		if s.cfg.NeverDone {
			return
		}
		s.timer = time.AfterFunc(s.cfg.Delay, s.complete)
	}
}

func (s *Sim) complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.dead {
		return
	}
	retc := s.run()
	if s.cfg.Retc != 0 {
		retc = s.cfg.Retc
	}
	s.regs[s.layout.RetcOff] = uint32(retc)
	s.regs[s.layout.StatusOff] = accel.StatusDone | accel.StatusIdle
	if s.regs[s.layout.IrqOff]&accel.IrqDoneEnable != 0 {
		select {
		case s.irq <- struct{}{}:
		default:
		}
	}
}

// run executes the job currently in the window and returns its retc.
func (s *Sim) run() accel.Retc {
	addrs, err := accel.UnpackChain(s.window)
	if err != nil {
		return accel.RetcFailure
	}
	var src, dst *accel.Addr
	for i := range addrs {
		switch {
		case addrs[i].Flags&accel.AddrFlagSrc != 0:
			src = &addrs[i]
		case addrs[i].Flags&accel.AddrFlagDst != 0:
			dst = &addrs[i]
		}
	}
	if src == nil || dst == nil || dst.Size < src.Size {
		return accel.RetcFailure
	}
	n := int(src.Size)
	in := s.resolve(*src, n)
	out := s.resolve(*dst, n+s.cfg.Scribble)
	if in == nil || out == nil {
		return accel.RetcFailure
	}
	switch s.cfg.ActionType {
	case ActionTypeHelloWorld:
		for i := 0; i < n; i++ {
			c := in[i]
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			out[i] = c
		}
	default:
		copy(out[:n], in[:n])
	}
	for i := 0; i < s.cfg.Scribble; i++ {
		out[n+i] = 0xee
	}
	return accel.RetcSuccess
}

// resolve maps a descriptor to host-visible bytes. Host regions are the
// caller's pinned buffers, addressed exactly as the hardware would DMA
// them.
func (s *Sim) resolve(a accel.Addr, n int) []byte {
	if n == 0 {
		return []byte{}
	}
	switch a.Type {
	case accel.AddrTypeHostDRAM:
		if a.Addr == 0 {
			return nil
		}
		return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(a.Addr))), n)
	case accel.AddrTypeCardDRAM:
		end := int(a.Addr) + n
		if int(a.Addr) < 0 || end > len(s.dram) {
			return nil
		}
		return s.dram[a.Addr:end]
	default:
		return nil
	}
}
