package main

import (
	"bytes"
	"fmt"
)

// verifyCopy checks that the first size bytes of out match in, and that
// the over-allocated tail of out is still zero. A nonzero tail means
// the action wrote past the region it was given.
func verifyCopy(in, out []byte, size int) error {
	if len(in) < size || len(out) < size {
		return fmt.Errorf("buffers shorter than %d bytes", size)
	}
	if !bytes.Equal(in[:size], out[:size]) {
		return fmt.Errorf("output differs from input")
	}
	for i, b := range out[size:] {
		if b != 0 {
			return fmt.Errorf("trailing zero check failed at offset %d", size+i)
		}
	}
	return nil
}
