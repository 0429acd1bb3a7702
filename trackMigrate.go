package advect

// migrate hands an exited particle to the block owning its exit point. The block it
// left is skipped. When the point lies on an edge or vertex shared by several blocks,
// the block whose centroid is closest to the line from the previous block's centroid
// through the exit point is chosen. A particle with no new owner has left the domain.
// It returns the destination and false when the particle is done for good.
func (r *run) migrate(id int) (int, bool) {
	p := r.store.Particle(id)
	pids := r.bm.FindBlocks(p.Pos, p.Block)

	var bid int
	switch len(pids) {
	case 0:
		r.store.SetCause(id, CauseUnresolvedExit)
		return -1, false
	case 1:
		bid = pids[0]
	default:
		bid = closestToTrajectory(p.Pos, r.blocks[r.idx[p.Block]].Bounds, pids, r.blocks, r.idx)
	}

	r.store.Assign(id, bid)
	r.stats.Migrations++

	// cycles between blocks without stepping
	if n := r.cfg.MaxStalledHops; n > 0 && r.store.StalledHops(id) >= n {
		r.store.SetCause(id, CauseStalled)
		r.store.SetTerminated(id)
		return bid, false
	}
	return bid, true
}
