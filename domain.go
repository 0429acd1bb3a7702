package advect

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/spatial/r3"
)

// Block is a spatial partition of the domain together with the field that holds
// within it. Blocks are borrowed by a run and must not change while it executes.
type Block struct {
	ID     int
	Bounds Box
	Field  VelocityFielder
}

// BoundsEntry maps a region to the block that owns it
type BoundsEntry struct {
	Box
	BlockID int
}

// BoundsMap resolves a position to the blocks owning it. It is immutable once built
// and safe for concurrent reads.
type BoundsMap struct {
	entries []BoundsEntry // sorted by block id
	extent  Box
}

// NewBoundsMap builds a bounds map from the blocks' own bounding boxes
func NewBoundsMap(blocks []Block) (*BoundsMap, error) {
	es := make([]BoundsEntry, len(blocks))
	for i, b := range blocks {
		es[i] = BoundsEntry{Box: b.Bounds, BlockID: b.ID}
	}
	return NewBoundsMapFromEntries(es, blocks)
}

// NewBoundsMapFromEntries builds a bounds map from explicit entries, validated
// against the blocks of a run. A block may own several regions.
func NewBoundsMapFromEntries(entries []BoundsEntry, blocks []Block) (*BoundsMap, error) {
	if len(blocks) == 0 {
		return nil, ErrNoBlocks
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrMalformedBoundsMap)
	}
	ids := make(map[int]bool, len(blocks))
	for _, b := range blocks {
		if ids[b.ID] {
			return nil, fmt.Errorf("%w: duplicate block id %d", ErrMalformedBoundsMap, b.ID)
		}
		if b.Field == nil {
			return nil, fmt.Errorf("%w: block %d has no field", ErrMalformedBoundsMap, b.ID)
		}
		ids[b.ID] = true
	}

	bm := &BoundsMap{entries: make([]BoundsEntry, len(entries))}
	copy(bm.entries, entries)
	for i, e := range bm.entries {
		if !e.Valid() {
			return nil, fmt.Errorf("%w: entry %d has invalid bounds %v", ErrMalformedBoundsMap, i, e.Box)
		}
		if !ids[e.BlockID] {
			return nil, fmt.Errorf("%w: entry %d references unknown block %d", ErrMalformedBoundsMap, i, e.BlockID)
		}
		if i == 0 {
			bm.extent = e.Box
		} else {
			bm.extent = bm.extent.Union(e.Box)
		}
	}
	sort.SliceStable(bm.entries, func(i, j int) bool { return bm.entries[i].BlockID < bm.entries[j].BlockID })
	return bm, nil
}

// Len returns the number of regions in the map
func (bm *BoundsMap) Len() int { return len(bm.entries) }

// GlobalBounds returns the extent of every region in the map
func (bm *BoundsMap) GlobalBounds() Box { return bm.extent }

// FindBlocks returns the ids of every block owning pos, in ascending order,
// skipping the ids given in ignore
func (bm *BoundsMap) FindBlocks(pos r3.Vec, ignore ...int) []int {
	var bids []int
	if !bm.extent.Contains(pos) {
		return bids
	}
outer:
	for _, e := range bm.entries {
		if !e.Contains(pos) {
			continue
		}
		for _, ig := range ignore {
			if e.BlockID == ig {
				continue outer
			}
		}
		if n := len(bids); n > 0 && bids[n-1] == e.BlockID {
			continue
		}
		bids = append(bids, e.BlockID)
	}
	return bids
}

// Owner returns the lowest block id owning pos
func (bm *BoundsMap) Owner(pos r3.Vec) (int, bool) {
	if bids := bm.FindBlocks(pos); len(bids) > 0 {
		return bids[0], true
	}
	return -1, false
}

// Print properties of the domain
func (bm *BoundsMap) Print(w io.Writer) {
	e := bm.extent
	fmt.Fprintf(w, "  Nregion: %d\n  Extent X = [%.1f, %.1f]; Y = [%.1f, %.1f]; Z = [%.1f, %.1f]\n", bm.Len(), e.Min.X, e.Max.X, e.Min.Y, e.Max.Y, e.Min.Z, e.Max.Z)
}

type boundsRow struct {
	BlockID int     `csv:"bid"`
	Xn      float64 `csv:"xmin"`
	Xx      float64 `csv:"xmax"`
	Yn      float64 `csv:"ymin"`
	Yx      float64 `csv:"ymax"`
	Zn      float64 `csv:"zmin"`
	Zx      float64 `csv:"zmax"`
	Diag    float64 `csv:"diagonal"`
}

// PrintToCSV writes one row per region
func (bm *BoundsMap) PrintToCSV(w io.Writer) error {
	rows := make([]boundsRow, len(bm.entries))
	for i, e := range bm.entries {
		rows[i] = boundsRow{e.BlockID, e.Min.X, e.Max.X, e.Min.Y, e.Max.Y, e.Min.Z, e.Max.Z, e.Diagonal()}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing bounds map: %w", err)
	}
	return nil
}

// blockIndex maps block ids to positions in a block slice
func blockIndex(blocks []Block) map[int]int {
	m := make(map[int]int, len(blocks))
	for i, b := range blocks {
		m[b.ID] = i
	}
	return m
}

// closestToTrajectory selects, from several candidate blocks, the one whose centroid
// lies closest to the line from the centroid of the block being left through the
// exit point. Ties go to the lowest id.
func closestToTrajectory(pos r3.Vec, from Box, cands []int, blocks []Block, idx map[int]int) int {
	dsv, isv := math.MaxFloat64, cands[0]
	c0 := from.Centroid()
	for _, bid := range cands {
		d := pointToLine(blocks[idx[bid]].Bounds.Centroid(), c0, pos)
		if d < dsv {
			dsv, isv = d, bid
		}
	}
	return isv
}
