package accel

import "errors"

var (
	ErrInvalidRegion = errors.New("invalid address region")
	ErrJobTooLarge   = errors.New("job exceeds register window")
	ErrNotExecuted   = errors.New("job has not executed")
	ErrLayoutVersion = errors.New("unsupported register layout version")
	ErrBadLayout     = errors.New("malformed register layout")
)
