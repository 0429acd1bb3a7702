package advect

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box is an axis-aligned bounding box; bounds are inclusive
type Box struct {
	Min, Max r3.Vec
}

// NewBox box constructor
func NewBox(xn, yn, zn, xx, yx, zx float64) Box {
	return Box{Min: r3.Vec{X: xn, Y: yn, Z: zn}, Max: r3.Vec{X: xx, Y: yx, Z: zx}}
}

// Contains returns true if the given point is contained by the box bounds
func (b Box) Contains(p r3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Centroid returns the coordinates of the box centroid
func (b Box) Centroid() r3.Vec {
	return r3.Scale(.5, r3.Add(b.Min, b.Max))
}

// Extent returns the per-axis lengths of the box
func (b Box) Extent() r3.Vec {
	return r3.Sub(b.Max, b.Min)
}

// Diagonal returns the length of the box diagonal
func (b Box) Diagonal() float64 {
	return r3.Norm(b.Extent())
}

// Union returns the smallest box containing both boxes
func (b Box) Union(o Box) Box {
	return Box{
		Min: r3.Vec{X: math.Min(b.Min.X, o.Min.X), Y: math.Min(b.Min.Y, o.Min.Y), Z: math.Min(b.Min.Z, o.Min.Z)},
		Max: r3.Vec{X: math.Max(b.Max.X, o.Max.X), Y: math.Max(b.Max.Y, o.Max.Y), Z: math.Max(b.Max.Z, o.Max.Z)},
	}
}

// Valid reports whether the bounds are finite and not inverted
func (b Box) Valid() bool {
	for _, v := range []float64{b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z
}

func (b Box) String() string {
	return fmt.Sprintf("[(%.3f %.3f) (%.3f %.3f) (%.3f %.3f)]", b.Min.X, b.Max.X, b.Min.Y, b.Max.Y, b.Min.Z, b.Max.Z)
}

// pointToLine returns the distance from p to the infinite line through a and b
func pointToLine(p, a, b r3.Vec) float64 {
	ab := r3.Sub(b, a)
	l := r3.Norm(ab)
	if l == 0. {
		return r3.Norm(r3.Sub(p, a))
	}
	return r3.Norm(r3.Cross(r3.Sub(p, a), ab)) / l
}
