package advect

import (
	_ "embed"
	"fmt"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Policy selects how blocks are scheduled within a pass
type Policy int

const (
	Sequential Policy = iota // blocks one at a time, in id order
	Threaded                 // all blocks concurrently, merged at the barrier
)

// ParsePolicy parses "sequential" or "threaded"
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sequential", "serial":
		return Sequential, nil
	case "threaded", "parallel":
		return Threaded, nil
	}
	return 0, fmt.Errorf("%w: unknown policy %q", ErrInvalidConfig, s)
}

func (p Policy) String() string {
	if p == Threaded {
		return "threaded"
	}
	return "sequential"
}

func (p Policy) MarshalYAML() (interface{}, error) { return p.String(), nil }

func (p *Policy) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParsePolicy(n.Value)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ResultMode selects what a run reports for each particle
type ResultMode int

const (
	ParticleAdvect ResultMode = iota // final position and status
	Streamline                       // full position history
)

// ParseResultMode parses "particle_advect" or "streamline"
func ParseResultMode(s string) (ResultMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "particle_advect", "particleadvect", "advect":
		return ParticleAdvect, nil
	case "streamline", "pathline":
		return Streamline, nil
	}
	return 0, fmt.Errorf("%w: unknown result mode %q", ErrInvalidConfig, s)
}

func (m ResultMode) String() string {
	if m == Streamline {
		return "streamline"
	}
	return "particle_advect"
}

func (m ResultMode) MarshalYAML() (interface{}, error) { return m.String(), nil }

func (m *ResultMode) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParseResultMode(n.Value)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Config holds the parameters of an advection run
type Config struct {
	Integrator     IntegratorKind `yaml:"integrator"`
	StepLength     float64        `yaml:"step_length"`
	MaxSteps       int            `yaml:"max_steps"`
	Policy         Policy         `yaml:"policy"`
	Result         ResultMode     `yaml:"result"`
	Window         int            `yaml:"window"`           // streamline history window (0 = unbounded)
	Workers        int            `yaml:"workers"`          // threaded worker count (0 = GOMAXPROCS)
	Tolerance      float64        `yaml:"tolerance"`        // small-step convergence
	MaxStalledHops int            `yaml:"max_stalled_hops"` // 0 disables the stall check
}

// DefaultConfig returns the embedded defaults
func DefaultConfig() Config {
	var c Config
	if err := yaml.Unmarshal(defaultsYAML, &c); err != nil {
		panic(fmt.Sprintf("parsing embedded defaults: %v", err))
	}
	return c
}

// LoadConfig reads a YAML file over the embedded defaults. An empty path returns
// the defaults.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("reading config file: %w", err)
		}
		// only overwrites fields present in the file
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parsing config file: %w", err)
		}
	}
	return c, c.Validate()
}

// Validate checks the configuration, wrapping ErrInvalidConfig
func (c Config) Validate() error {
	switch {
	case !(c.StepLength > 0.):
		return fmt.Errorf("%w: step_length must be positive, got %v", ErrInvalidConfig, c.StepLength)
	case c.MaxSteps < 1:
		return fmt.Errorf("%w: max_steps must be at least 1, got %d", ErrInvalidConfig, c.MaxSteps)
	case c.Window < 0:
		return fmt.Errorf("%w: window must not be negative, got %d", ErrInvalidConfig, c.Window)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	case c.Tolerance < 0.:
		return fmt.Errorf("%w: tolerance must not be negative, got %v", ErrInvalidConfig, c.Tolerance)
	case c.MaxStalledHops < 0:
		return fmt.Errorf("%w: max_stalled_hops must not be negative, got %d", ErrInvalidConfig, c.MaxStalledHops)
	case c.Integrator != Euler && c.Integrator != RK4:
		return fmt.Errorf("%w: unknown integrator %d", ErrInvalidConfig, c.Integrator)
	case c.Policy != Sequential && c.Policy != Threaded:
		return fmt.Errorf("%w: unknown policy %d", ErrInvalidConfig, c.Policy)
	case c.Result != ParticleAdvect && c.Result != Streamline:
		return fmt.Errorf("%w: unknown result mode %d", ErrInvalidConfig, c.Result)
	}
	return nil
}

// HistoryMode returns how much history the particle store keeps for this run
func (c Config) HistoryMode() HistoryMode {
	switch {
	case c.Result != Streamline:
		return NoHistory
	case c.Window > 0 && c.Window < c.MaxSteps:
		return WindowedHistory
	}
	return FullHistory
}

// workers returns the number of goroutines stepping a block's particles
func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// integrator returns the stepping scheme of the run
func (c Config) integrator() Integrator {
	return Integrator{Kind: c.Integrator, StepLength: c.StepLength, Tolerance: c.Tolerance}
}

// WriteYAML saves the configuration
func (c Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
