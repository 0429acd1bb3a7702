package advect

import (
	"encoding/gob"
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
)

// ExportPathlinesGob saves pathlines keyed by particle id
func ExportPathlinesGob(fp string, pl [][]r3.Vec, xr []int) error {
	if len(pl) != len(xr) {
		return fmt.Errorf("ExportPathlinesGob: %d pathlines, %d ids", len(pl), len(xr))
	}
	mp := make(map[int][]r3.Vec, len(pl))
	for i, pid := range xr {
		mp[pid] = pl[i]
	}
	f, err := os.Create(fp)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(mp); err != nil {
		return fmt.Errorf("encoding pathlines: %w", err)
	}
	return f.Close()
}

// LoadPathlinesGob reads pathlines saved by ExportPathlinesGob
func LoadPathlinesGob(fp string) (map[int][]r3.Vec, error) {
	var d map[int][]r3.Vec
	f, err := os.Open(fp)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(&d); err != nil {
		return nil, fmt.Errorf("decoding pathlines: %w", err)
	}
	return d, nil
}
