package device

import (
	"context"
	"errors"
	"testing"
	"time"
	"unsafe"

	"github.com/samcharles93/ocrun/pkg/accel"
)

func bufAddr(b []byte) uint64 {
	return uint64(uintptr(unsafe.Pointer(&b[0])))
}

func startJob(t *testing.T, s *Sim, layout accel.Layout, src, dst []byte, n uint32) {
	t.Helper()
	in, err := accel.Set(bufAddr(src), n, accel.AddrTypeHostDRAM, accel.AddrFlagAddr|accel.AddrFlagSrc)
	if err != nil {
		t.Fatalf("Set src: %v", err)
	}
	out, err := accel.Set(bufAddr(dst), n, accel.AddrTypeHostDRAM, accel.AddrFlagAddr|accel.AddrFlagDst|accel.AddrFlagEnd)
	if err != nil {
		t.Fatalf("Set dst: %v", err)
	}
	job, err := accel.NewJob([]accel.Addr{in, out}, nil)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if err := s.WriteWindow(layout.JobOff, job.Window()); err != nil {
		t.Fatalf("WriteWindow: %v", err)
	}
	if err := s.WriteReg(layout.ControlOff, accel.CtrlStart); err != nil {
		t.Fatalf("start: %v", err)
	}
}

func waitDone(t *testing.T, s *Sim, layout accel.Layout) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st, err := s.ReadReg(layout.StatusOff)
		if err != nil {
			t.Fatalf("ReadReg status: %v", err)
		}
		if st&accel.StatusDone != 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("simulator never reported done")
}

func TestSimInitialRegisters(t *testing.T) {
	t.Parallel()

	layout := accel.DefaultLayout()
	s := NewSim(layout, SimConfig{ActionType: ActionTypeHelloWorld})
	defer s.Close()

	typ, err := s.ReadReg(layout.TypeOff)
	if err != nil {
		t.Fatalf("ReadReg type: %v", err)
	}
	if typ != ActionTypeHelloWorld {
		t.Fatalf("type reg = 0x%x, want 0x%x", typ, ActionTypeHelloWorld)
	}
	st, err := s.ReadReg(layout.StatusOff)
	if err != nil {
		t.Fatalf("ReadReg status: %v", err)
	}
	if st&accel.StatusIdle == 0 {
		t.Fatalf("status = 0x%x, want idle", st)
	}
	if s.WriteCount() != 0 {
		t.Fatalf("reads must not count as writes, got %d", s.WriteCount())
	}
}

func TestSimMemcopy(t *testing.T) {
	t.Parallel()

	layout := accel.DefaultLayout()
	s := NewSim(layout, SimConfig{})
	defer s.Close()

	src := []byte("hello accelerator")
	dst := make([]byte, len(src))
	startJob(t, s, layout, src, dst, uint32(len(src)))
	waitDone(t, s, layout)

	retc, err := s.ReadReg(layout.RetcOff)
	if err != nil {
		t.Fatalf("ReadReg retc: %v", err)
	}
	if accel.Retc(retc) != accel.RetcSuccess {
		t.Fatalf("retc = 0x%x, want SUCCESS", retc)
	}
	if string(dst) != string(src) {
		t.Fatalf("dst = %q, want %q", dst, src)
	}
}

func TestSimHelloWorldUppercases(t *testing.T) {
	t.Parallel()

	layout := accel.DefaultLayout()
	s := NewSim(layout, SimConfig{ActionType: ActionTypeHelloWorld})
	defer s.Close()

	src := []byte("Hello world 123")
	dst := make([]byte, len(src))
	startJob(t, s, layout, src, dst, uint32(len(src)))
	waitDone(t, s, layout)

	if string(dst) != "HELLO WORLD 123" {
		t.Fatalf("dst = %q", dst)
	}
}

func TestSimIRQDelivery(t *testing.T) {
	t.Parallel()

	layout := accel.DefaultLayout()
	s := NewSim(layout, SimConfig{Delay: 5 * time.Millisecond})
	defer s.Close()

	if err := s.WriteReg(layout.IrqOff, accel.IrqDoneEnable); err != nil {
		t.Fatalf("enable irq: %v", err)
	}
	src := []byte("abc")
	dst := make([]byte, len(src))
	startJob(t, s, layout, src, dst, uint32(len(src)))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.WaitIRQ(ctx); err != nil {
		t.Fatalf("WaitIRQ: %v", err)
	}
}

func TestSimResetAbandonsJob(t *testing.T) {
	t.Parallel()

	layout := accel.DefaultLayout()
	s := NewSim(layout, SimConfig{Delay: time.Hour})
	defer s.Close()

	src := []byte("abc")
	dst := make([]byte, len(src))
	startJob(t, s, layout, src, dst, uint32(len(src)))

	if err := s.WriteReg(layout.ControlOff, accel.CtrlReset); err != nil {
		t.Fatalf("reset: %v", err)
	}
	st, err := s.ReadReg(layout.StatusOff)
	if err != nil {
		t.Fatalf("ReadReg status: %v", err)
	}
	if st != accel.StatusIdle {
		t.Fatalf("status after reset = 0x%x, want idle only", st)
	}
}

func TestSimUnplug(t *testing.T) {
	t.Parallel()

	layout := accel.DefaultLayout()
	s := NewSim(layout, SimConfig{})
	defer s.Close()

	s.Unplug()
	if _, err := s.ReadReg(layout.StatusOff); !errors.Is(err, ErrGone) {
		t.Fatalf("ReadReg after unplug: got %v, want ErrGone", err)
	}
	ctx := context.Background()
	if err := s.WaitIRQ(ctx); !errors.Is(err, ErrGone) {
		t.Fatalf("WaitIRQ after unplug: got %v, want ErrGone", err)
	}
}
