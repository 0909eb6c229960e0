package api

import (
	"context"
	"fmt"
	"time"

	"github.com/samcharles93/ocrun/internal/card"
	"github.com/samcharles93/ocrun/internal/hostmem"
	"github.com/samcharles93/ocrun/pkg/accel"
)

// Runner executes one host-to-host copy job and reports the outcome.
// The server depends on this interface so tests can script results.
type Runner interface {
	Run(ctx context.Context, payload []byte) (RunResult, error)
}

// RunResult is what a Runner observed for one job.
type RunResult struct {
	Retc    accel.Retc
	State   string
	Output  []byte
	Elapsed time.Duration
}

// ActionRunner drives jobs through a real (or simulated) action handle.
type ActionRunner struct {
	Action  *card.Action
	Timeout time.Duration
}

func (r *ActionRunner) Run(ctx context.Context, payload []byte) (RunResult, error) {
	size := len(payload)
	if size == 0 {
		return RunResult{}, fmt.Errorf("empty payload")
	}

	src, err := hostmem.Alloc(size)
	if err != nil {
		return RunResult{}, fmt.Errorf("allocate source: %w", err)
	}
	defer src.Free()
	dst, err := hostmem.Alloc(size)
	if err != nil {
		return RunResult{}, fmt.Errorf("allocate destination: %w", err)
	}
	defer dst.Free()
	copy(src.Bytes(), payload)

	in, err := accel.Set(src.Addr(), uint32(size), accel.AddrTypeHostDRAM,
		accel.AddrFlagAddr|accel.AddrFlagSrc)
	if err != nil {
		return RunResult{}, err
	}
	out, err := accel.Set(dst.Addr(), uint32(size), accel.AddrTypeHostDRAM,
		accel.AddrFlagAddr|accel.AddrFlagDst|accel.AddrFlagEnd)
	if err != nil {
		return RunResult{}, err
	}
	job, err := accel.NewJob([]accel.Addr{in, out}, nil)
	if err != nil {
		return RunResult{}, err
	}

	start := time.Now()
	execErr := r.Action.Execute(ctx, job, r.Timeout)
	res := RunResult{
		State:   r.Action.State().String(),
		Elapsed: time.Since(start),
	}
	if execErr != nil {
		return res, execErr
	}
	res.Retc = job.Retc()
	res.Output = append([]byte(nil), dst.Bytes()...)
	return res, nil
}
