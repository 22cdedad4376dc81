package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPool indicates a request named a pool that is not registered.
	ErrUnknownPool = errors.New("pool: unknown pool")

	// ErrInvalidSize indicates an allocation request for a non-positive size.
	ErrInvalidSize = errors.New("pool: allocation size must be positive")

	// ErrAlignmentOverflow indicates alignment padding would push a request
	// past the end of its reserved block run.
	ErrAlignmentOverflow = errors.New("pool: alignment padding exceeds reserved run")

	// ErrOutOfMemory indicates no contiguous free run large enough was found,
	// even after the garbage-collect retry.
	ErrOutOfMemory = errors.New("pool: no contiguous run large enough")

	// ErrStaleHandle indicates a Handle invalidated by deallocation or
	// defragmentation of its pool.
	ErrStaleHandle = errors.New("pool: handle invalidated by free or defragment")

	// ErrBadConfig indicates an invalid pool definition. Fatal at startup.
	ErrBadConfig = errors.New("pool: invalid pool definition")

	// ErrClosed indicates the allocator has been torn down.
	ErrClosed = errors.New("pool: allocator closed")
)

// ConfigError reports one invalid pool definition. Construction fails before
// any pool is created, so these only ever surface at startup.
type ConfigError struct {
	Pool   string // pool name, may be empty if the name itself is the problem
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("pool: invalid definition for %q: %s", e.Pool, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrBadConfig }

// AlignmentOverflowError reports a request whose aligned offset no longer
// fits the block run that would have been reserved for it. The reservation
// is abandoned rather than silently widened.
type AlignmentOverflowError struct {
	Pool      string
	Requested int64 // requested size in bytes
	Alignment int64 // alignment that produced the overflow
}

func (e *AlignmentOverflowError) Error() string {
	return fmt.Sprintf("pool: %q: %d-byte request does not fit its run at alignment %d",
		e.Pool, e.Requested, e.Alignment)
}

func (e *AlignmentOverflowError) Unwrap() error { return ErrAlignmentOverflow }

// OutOfMemoryError reports an allocation that found no contiguous run, with
// the largest run currently available for diagnostics.
type OutOfMemoryError struct {
	Pool       string
	Requested  int64 // requested size in bytes
	LargestRun int   // largest contiguous free run, in blocks
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("pool: %q out of memory: requested %d bytes, largest free run is %d blocks",
		e.Pool, e.Requested, e.LargestRun)
}

func (e *OutOfMemoryError) Unwrap() error { return ErrOutOfMemory }
