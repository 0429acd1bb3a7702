package advect

import (
	"fmt"
	"sort"
)

// passSequential runs each block's round to exhaustion, one block at a time in
// ascending block-id order
func (r *run) passSequential(q queues) error {
	bids := make([]int, 0, len(q))
	for bid, ids := range q {
		if len(ids) > 0 {
			bids = append(bids, bid)
		}
	}
	sort.Ints(bids)
	for _, bid := range bids {
		if err := r.advectBlock(bid, q[bid]); err != nil {
			return fmt.Errorf("block %d: %w", bid, err)
		}
	}
	return nil
}
