package pool

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// DefragResult summarizes one defragmentation pass.
type DefragResult struct {
	Pool             string
	Moved            int   // allocations relocated
	BytesCopied      int64 // payload bytes moved
	LargestRunBefore int   // largest contiguous free run before, in blocks
	LargestRunAfter  int   // largest contiguous free run after, in blocks
}

// Defragment relocates the named pool's live allocations to the low end of
// its address range, coalescing all free space into one trailing run.
//
// Live allocations are walked in ascending start-block order; each one is
// copied down to the next free low-address slot and its record's start block
// and byte offset updated. Ids, sizes, and byte contents are unchanged.
// Total live bytes are unchanged — only physical placement moves.
//
// Every Handle issued for this pool before the call becomes stale and must
// be reissued; the pool's generation counter is bumped so Handle.Bytes fails
// with ErrStaleHandle instead of reading relocated memory.
//
// Defragmentation never runs automatically. Callers invoke it when reporting
// shows a large free-block count with a small largest contiguous run.
func (a *Allocator) Defragment(poolName string) (DefragResult, error) {
	p, ok := a.pools[poolName]
	if !ok {
		return DefragResult{}, fmt.Errorf("%w: %q", ErrUnknownPool, poolName)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	res := DefragResult{
		Pool:             p.name,
		LargestRunBefore: p.free.largestRun(),
	}

	recs := make([]*Allocation, 0, len(p.live))
	for _, rec := range p.live {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].StartBlock < recs[j].StartBlock })

	cursor := 0
	for _, rec := range recs {
		if rec.StartBlock == cursor {
			cursor = rec.endBlock()
			continue
		}

		newOffset := alignUp(int64(cursor)*p.blockSize, rec.Alignment)
		if newOffset+rec.Size > int64(cursor+rec.BlockCount)*p.blockSize {
			// Alignment padding at the new position would overrun the run.
			// Leave the allocation where it is; the gap before it stays.
			a.log.WithFields(logrus.Fields{
				"allocation": rec.ID,
				"pool":       p.name,
				"alignment":  rec.Alignment,
			}).Debug("defragment: allocation pinned by alignment, not moved")
			cursor = rec.endBlock()
			continue
		}

		copy(p.storage[newOffset:newOffset+rec.Size], p.storage[rec.Offset:rec.Offset+rec.Size])
		rec.StartBlock = cursor
		rec.Offset = newOffset
		res.Moved++
		res.BytesCopied += rec.Size
		cursor += rec.BlockCount
	}

	// Rebuild the free set from the relocated records. Everything from the
	// cursor to the last block is free; any stale reservation is cleared.
	p.free.reset()
	for _, rec := range recs {
		p.free.reserve(rec.StartBlock, rec.BlockCount)
	}

	// Invalidate every Handle issued before this pass.
	p.generation++

	res.LargestRunAfter = p.free.largestRun()
	a.log.WithFields(logrus.Fields{
		"pool":   p.name,
		"moved":  res.Moved,
		"before": res.LargestRunBefore,
		"after":  res.LargestRunAfter,
	}).Debug("defragmentation complete")
	return res, nil
}
