package advect

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// passThreaded runs every block's round concurrently. Blocks share the worker pool
// for their particles; a block's particle set is owned by its round until the
// barrier, so no two goroutines touch the same particle.
func (r *run) passThreaded(q queues) error {
	var g errgroup.Group
	g.SetLimit(r.cfg.workers())
	for bid, ids := range q {
		if len(ids) == 0 {
			continue
		}
		bid, ids := bid, ids
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("block %d: %v", bid, p)
				}
			}()
			if err := r.advectBlock(bid, ids); err != nil {
				return fmt.Errorf("block %d: %w", bid, err)
			}
			return nil
		})
	}
	return g.Wait()
}
