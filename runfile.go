package advect

import (
	"fmt"
	"os"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// RunFile is a complete run description: configuration, blocks and seeds
type RunFile struct {
	Config `yaml:",inline"`
	Blocks []BlockSpec `yaml:"blocks"`
	Seeds  []SeedSpec  `yaml:"seeds"`
}

// BlockSpec describes a block and the analytic field within it
type BlockSpec struct {
	ID     int        `yaml:"id"`
	Bounds [6]float64 `yaml:"bounds"` // xmin ymin zmin xmax ymax zmax
	Field  FieldSpec  `yaml:"field"`
}

// FieldSpec selects and parameterises an analytic field
type FieldSpec struct {
	Kind     string      `yaml:"kind"`               // uniform | linear | pollock | rotation | well
	Velocity [3]float64  `yaml:"velocity,omitempty"` // uniform velocity, or v0 of a linear field
	Origin   *[3]float64 `yaml:"origin,omitempty"`   // x0 of a linear field (default: box minimum)
	Gradient [9]float64  `yaml:"gradient,omitempty"` // row-major velocity gradient of a linear field
	Faces    [6]float64  `yaml:"faces,omitempty"`    // pollock face velocities: x0 x1 y0 y1 z0 z1
	Center   [3]float64  `yaml:"center,omitempty"`   // rotation centre
	Omega    float64     `yaml:"omega,omitempty"`    // rotation rate [rad/T]
	Well     [3]float64  `yaml:"well,omitempty"`     // well x, y and discharge per unit thickness
	Radius   float64     `yaml:"radius,omitempty"`   // well capture radius
	Porosity float64     `yaml:"porosity,omitempty"` // well field porosity (default 1)
	Time     *[2]float64 `yaml:"time,omitempty"`     // restrict the field to [t0, t1]
	Reverse  bool        `yaml:"reverse,omitempty"`  // trace backward
}

// SeedSpec is a seed position and optional start time
type SeedSpec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
	T float64 `yaml:"t,omitempty"`
}

// LoadRunFile reads a run description over the embedded default configuration
func LoadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run file: %w", err)
	}
	rf := &RunFile{Config: DefaultConfig()}
	if err := yaml.Unmarshal(data, rf); err != nil {
		return nil, fmt.Errorf("parsing run file: %w", err)
	}
	if err := rf.Config.Validate(); err != nil {
		return nil, err
	}
	return rf, nil
}

// Build returns the blocks and seeds of the run
func (rf *RunFile) Build() ([]Block, []Seed, error) {
	blocks := make([]Block, len(rf.Blocks))
	for i, bs := range rf.Blocks {
		b := bs.Bounds
		bx := NewBox(b[0], b[1], b[2], b[3], b[4], b[5])
		f, err := bs.Field.build(bx)
		if err != nil {
			return nil, nil, fmt.Errorf("block %d: %w", bs.ID, err)
		}
		blocks[i] = Block{ID: bs.ID, Bounds: bx, Field: f}
	}
	seeds := make([]Seed, len(rf.Seeds))
	for i, s := range rf.Seeds {
		seeds[i] = Seed{Pos: r3.Vec{X: s.X, Y: s.Y, Z: s.Z}, T: s.T}
	}
	return blocks, seeds, nil
}

func (fs FieldSpec) build(bx Box) (VelocityFielder, error) {
	var f VelocityFielder
	switch strings.ToLower(fs.Kind) {
	case "uniform", "":
		f = NewUniformField(bx, r3.Vec{X: fs.Velocity[0], Y: fs.Velocity[1], Z: fs.Velocity[2]})
	case "linear":
		x0 := bx.Min
		if fs.Origin != nil {
			x0 = r3.Vec{X: fs.Origin[0], Y: fs.Origin[1], Z: fs.Origin[2]}
		}
		g := fs.Gradient
		lf, err := NewLinearField(bx, x0, r3.Vec{X: fs.Velocity[0], Y: fs.Velocity[1], Z: fs.Velocity[2]}, mat.NewDense(3, 3, g[:]))
		if err != nil {
			return nil, err
		}
		f = lf
	case "pollock":
		v := fs.Faces
		f = NewPollockField(bx, v[0], v[1], v[2], v[3], v[4], v[5])
	case "rotation":
		f = NewRotationField(bx, r3.Vec{X: fs.Center[0], Y: fs.Center[1], Z: fs.Center[2]}, fs.Omega)
	case "well":
		f = NewWellField(bx, fs.Velocity[0], fs.Velocity[1], complex(fs.Well[0], fs.Well[1]), fs.Well[2], fs.Radius, fs.Porosity)
	default:
		return nil, fmt.Errorf("%w: unknown field kind %q", ErrInvalidConfig, fs.Kind)
	}
	if fs.Time != nil {
		if !(fs.Time[0] <= fs.Time[1]) {
			return nil, fmt.Errorf("%w: time window [%v, %v]", ErrInvalidConfig, fs.Time[0], fs.Time[1])
		}
		f = TimeWindow{VelocityFielder: f, T0: fs.Time[0], T1: fs.Time[1]}
	}
	if fs.Reverse {
		f = Reversed{f}
	}
	return f, nil
}
