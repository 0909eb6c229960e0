//go:build !linux

package device

// OpenOCXL is only available on Linux, where ocxl device nodes exist.
func OpenOCXL(path string) (Device, error) {
	return nil, ErrUnsupported
}
