//go:build unix

// Package membuf provides platform-specific helpers for allocating pool
// backing storage outside the Go heap.
package membuf

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Alloc returns n zeroed bytes backed by an anonymous private mapping, plus
// a release function that returns the pages to the OS. Keeping pool storage
// off the Go heap means the garbage collector never scans it.
func Alloc(n int) ([]byte, func() error, error) {
	if n <= 0 {
		return nil, nil, fmt.Errorf("membuf: allocation size must be positive, got %d", n)
	}
	data, err := unix.Mmap(-1, 0, n,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("membuf: mmap %d bytes: %w", n, err)
	}
	release := func() error {
		if data == nil {
			return nil
		}
		err := unix.Munmap(data)
		if errors.Is(err, unix.EINVAL) {
			// Treat double-release as a no-op for callers.
			return nil
		}
		return err
	}
	return data, release, nil
}
