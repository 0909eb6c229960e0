package accel

import "fmt"

// JobSize is the capacity in bytes of the register-resident job window:
// the packed descriptor chain followed by action-specific parameters.
// A job whose packed form exceeds JobSize is a construction error and
// never reaches hardware.
const JobSize = 96

// Retc is the return code the action writes after execution.
type Retc uint32

// RetcSuccess is the code a well-behaved action reports on logical
// success. Anything else means the job ran but signaled failure; it is
// a result value, not a transport error.
const RetcSuccess Retc = 0x0102

// RetcFailure is the generic failure code actions report for a job they
// could parse but not execute.
const RetcFailure Retc = 0x0104

func (r Retc) Ok() bool { return r == RetcSuccess }

func (r Retc) String() string {
	if r.Ok() {
		return "SUCCESS"
	}
	return fmt.Sprintf("RETC(0x%x)", uint32(r))
}

// Job is the unit transferred into the accelerator's register space.
// It is built per invocation and describes exactly one execution; reuse
// requires building a fresh Job.
type Job struct {
	window [JobSize]byte
	naddrs int
	retc   Retc
	done   bool
}

// NewJob packs the descriptors, in caller order, followed by the opaque
// action parameters into a zeroed window. The chain must terminate:
// exactly one descriptor carries AddrFlagEnd. On any error no window
// bytes are written.
func NewJob(addrs []Addr, params []byte) (*Job, error) {
	need := len(addrs)*addrBytes + len(params)
	if need > JobSize {
		return nil, fmt.Errorf("packed size %d > %d: %w", need, JobSize, ErrJobTooLarge)
	}
	ends := 0
	for i, a := range addrs {
		if err := a.validate(); err != nil {
			return nil, fmt.Errorf("descriptor %d: %w", i, err)
		}
		if a.Flags&AddrFlagEnd != 0 {
			ends++
		}
	}
	if len(addrs) > 0 && ends != 1 {
		return nil, fmt.Errorf("chain has %d end markers, want 1: %w", ends, ErrInvalidRegion)
	}

	j := &Job{naddrs: len(addrs)}
	for i, a := range addrs {
		a.pack(j.window[i*addrBytes:])
	}
	copy(j.window[len(addrs)*addrBytes:], params)
	return j, nil
}

// Window exposes the packed register image. The transport writes these
// bytes verbatim; callers must not mutate them.
func (j *Job) Window() []byte { return j.window[:] }

// NumAddrs reports how many descriptors were packed into the window.
func (j *Job) NumAddrs() int { return j.naddrs }

// LoadResult installs the post-execution register image and return code
// read back from the action. The controller calls this exactly once,
// after completion has been observed.
func (j *Job) LoadResult(window []byte, retc Retc) {
	copy(j.window[:], window)
	j.retc = retc
	j.done = true
}

// Retc returns the action's return code. Zero until LoadResult.
func (j *Job) Retc() Retc { return j.retc }

// Result returns the return code and the descriptor chain as the action
// left it (an action may update sizes to reflect partial output). It
// fails with ErrNotExecuted before completion, since the window contents
// are stale until then.
func (j *Job) Result() (Retc, []Addr, error) {
	if !j.done {
		return 0, nil, ErrNotExecuted
	}
	addrs := make([]Addr, j.naddrs)
	for i := range addrs {
		addrs[i] = unpackAddr(j.window[i*addrBytes:])
	}
	return j.retc, addrs, nil
}
