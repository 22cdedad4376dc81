//go:build !unix

// Package membuf provides platform-specific helpers for allocating pool
// backing storage outside the Go heap.
package membuf

import "fmt"

// Alloc returns n zeroed bytes from the Go heap when anonymous mappings are
// not available. The release function only drops the reference.
func Alloc(n int) ([]byte, func() error, error) {
	if n <= 0 {
		return nil, nil, fmt.Errorf("membuf: allocation size must be positive, got %d", n)
	}
	data := make([]byte, n)
	return data, func() error { return nil }, nil
}
