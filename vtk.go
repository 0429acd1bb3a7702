package advect

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// ExportVTKpathlines saves particle tracking results as a *.vtk file for visualization.
func ExportVTKpathlines(filepath string, pl [][]r3.Vec) error {
	// write to data buffer
	buf, endi, np := new(bytes.Buffer), binary.BigEndian, 0
	for _, a := range pl {
		np += len(a)
	}

	write := func(v interface{}) {
		binary.Write(buf, endi, v) // writes to a bytes.Buffer never fail
	}
	write([]byte("# vtk DataFile Version 3.0\n"))
	write([]byte(fmt.Sprintf("Pathline: %d vertices, %s\n", np, time.Now().Format("2006-01-02 15:04:05"))))
	write([]byte("BINARY\n"))
	write([]byte("DATASET UNSTRUCTURED_GRID\n"))

	write([]byte(fmt.Sprintf("POINTS %d float\n", np)))
	for _, a := range pl {
		for _, aa := range a {
			write([3]float32{float32(aa.X), float32(aa.Y), float32(aa.Z)})
		}
	}

	write([]byte(fmt.Sprintf("\nCELLS %d %d\n", len(pl), np+len(pl))))
	ii := 0
	for _, a := range pl {
		write(int32(len(a)))
		for i := range a {
			write(int32(ii + i))
		}
		ii += len(a)
	}

	write([]byte(fmt.Sprintf("\nCELL_TYPES %d\n", len(pl))))
	for i := 0; i < len(pl); i++ {
		write(int32(4)) // VTK_POLY_LINE
	}

	// pathline index
	write([]byte(fmt.Sprintf("\nCELL_DATA %d\n", len(pl))))
	write([]byte("SCALARS pathlineID int\n"))
	write([]byte("LOOKUP_TABLE default\n"))
	for i := 0; i < len(pl); i++ {
		write(int32(i))
	}

	if err := os.WriteFile(filepath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing vtk file: %w", err)
	}
	return nil
}
