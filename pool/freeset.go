package pool

import "math/bits"

// freeSet tracks the free/used state of a pool's blocks as a bit vector.
// A set bit means the block is free. All searches walk ascending indices, so
// allocation placement is deterministic and reproducible.
type freeSet struct {
	words []uint64
	n     int // block count
	free  int // number of free blocks
}

func newFreeSet(n int) *freeSet {
	s := &freeSet{
		words: make([]uint64, (n+63)/64),
		n:     n,
		free:  n,
	}
	for i := range s.words {
		s.words[i] = ^uint64(0)
	}
	// Mask off the tail bits past n so popcounts stay honest.
	if rem := n % 64; rem != 0 {
		s.words[len(s.words)-1] = (uint64(1) << rem) - 1
	}
	return s
}

func (s *freeSet) isFree(i int) bool {
	return s.words[i>>6]&(uint64(1)<<(i&63)) != 0
}

func (s *freeSet) freeCount() int { return s.free }

// reserve marks [start, start+count) used. The caller guarantees the range
// is currently free.
func (s *freeSet) reserve(start, count int) {
	for i := start; i < start+count; i++ {
		s.words[i>>6] &^= uint64(1) << (i & 63)
	}
	s.free -= count
}

// release marks [start, start+count) free. The caller guarantees the range
// is currently used.
func (s *freeSet) release(start, count int) {
	for i := start; i < start+count; i++ {
		s.words[i>>6] |= uint64(1) << (i & 63)
	}
	s.free += count
}

// findRun returns the lowest start index of a run of count contiguous free
// blocks, or -1 if none exists. First-fit by ascending index.
func (s *freeSet) findRun(count int) int {
	if count <= 0 || count > s.free {
		return -1
	}
	run := 0
	for i := 0; i < s.n; i++ {
		// Skip whole fully-used words when not extending a run.
		if run == 0 && i&63 == 0 {
			for i < s.n && s.words[i>>6] == 0 {
				i += 64
			}
			if i >= s.n {
				return -1
			}
		}
		if s.isFree(i) {
			run++
			if run == count {
				return i - count + 1
			}
		} else {
			run = 0
		}
	}
	return -1
}

// largestRun returns the length in blocks of the largest contiguous free
// run. Used for out-of-memory diagnostics and fragmentation reporting.
func (s *freeSet) largestRun() int {
	best, run := 0, 0
	for i := 0; i < s.n; i++ {
		if s.isFree(i) {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
	}
	return best
}

// reset marks every block free, clearing any stale reservations.
func (s *freeSet) reset() {
	for i := range s.words {
		s.words[i] = ^uint64(0)
	}
	if rem := s.n % 64; rem != 0 {
		s.words[len(s.words)-1] = (uint64(1) << rem) - 1
	}
	s.free = s.n
}

// snapshot copies the raw bit vector, for exact state comparison in tests.
func (s *freeSet) snapshot() []uint64 {
	out := make([]uint64, len(s.words))
	copy(out, s.words)
	return out
}

// popcount recounts free blocks from the words. Cross-checked against the
// incremental counter in invariant tests.
func (s *freeSet) popcount() int {
	total := 0
	for _, w := range s.words {
		total += bits.OnesCount64(w)
	}
	return total
}
