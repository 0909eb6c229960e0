package card

import "errors"

var (
	ErrDeviceNotFound = errors.New("no accelerator at identifier")
	ErrAttachFailed   = errors.New("attach failed")
	ErrTimedOut       = errors.New("job timed out")
	ErrFaulted        = errors.New("device faulted")
	ErrBusy           = errors.New("job already in flight")
	ErrDetached       = errors.New("action detached")
	ErrUnusable       = errors.New("action handle unusable")
)
