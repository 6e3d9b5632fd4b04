package ring

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arbor-sim/arbortools/sim"
)

// Generator kinds.
const (
	GeneratorExplicit = "explicit"
	GeneratorRegular  = "regular"
	GeneratorPoisson  = "poisson"
)

// ValidGeneratorKinds is the set of recognized generator kinds.
var ValidGeneratorKinds = map[string]bool{GeneratorExplicit: true, GeneratorRegular: true, GeneratorPoisson: true}

// GeneratorConfig describes the event generator attached to one cell of the ring.
type GeneratorConfig struct {
	Kind   string    `yaml:"kind"`
	Target int       `yaml:"target"` // gid receiving the events
	Weight float64   `yaml:"weight"`
	Times  []float64 `yaml:"times"`  // explicit
	Start  float64   `yaml:"start"`  // regular, poisson
	Period float64   `yaml:"period"` // regular
	Stop   float64   `yaml:"stop"`   // regular; 0 means never
	Freq   float64   `yaml:"freq"`   // poisson, events per ms
}

// Config holds the parameters of a ring network run, loadable from a YAML file.
type Config struct {
	Cells   int     `yaml:"cells"`
	Threads int     `yaml:"threads"`
	GPUID   *int    `yaml:"gpu_id"`
	Seed    int64   `yaml:"seed"`
	TFinal  float64 `yaml:"tfinal"`
	DT      float64 `yaml:"dt"`

	Weight float64 `yaml:"weight"`
	Delay  float64 `yaml:"delay"`

	Cell      sim.CellParameters `yaml:"cell"`
	Generator GeneratorConfig    `yaml:"generator"`
	Partition sim.PartitionHint  `yaml:"partition"`

	Probes         []int   `yaml:"probes"`
	SampleInterval float64 `yaml:"sample_interval"`
}

// DefaultConfig returns the classic ring: 100 cells, each exciting the next
// with weight 0.01 after 10 ms, started by a single event on cell 0 at t=1,
// run for 1 s on 4 threads with a GPU preferred when one is available.
func DefaultConfig() Config {
	return Config{
		Cells:   100,
		Threads: 4,
		Seed:    42,
		TFinal:  1000,
		DT:      0.025,
		Weight:  0.01,
		Delay:   10,
		Cell:    sim.DefaultCellParameters(),
		Generator: GeneratorConfig{
			Kind:   GeneratorExplicit,
			Target: 0,
			Weight: 0.1,
			Times:  []float64{1},
		},
		Partition: sim.PartitionHint{
			CPUGroupSize: 1,
			GPUGroupSize: 1000,
			PreferGPU:    true,
		},
		SampleInterval: 0.1,
	}
}

// LoadConfig reads a YAML run configuration. Keys absent from the file keep
// their DefaultConfig values; unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading ring config: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing ring config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validating ring config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that all parameters are in range.
func (c Config) Validate() error {
	if c.Cells < 1 {
		return fmt.Errorf("cells must be at least 1, got %d", c.Cells)
	}
	if err := (sim.ExecutionContext{Threads: c.Threads, GPUID: c.GPUID}).Validate(); err != nil {
		return err
	}
	if !(c.TFinal > 0) || math.IsInf(c.TFinal, 0) {
		return fmt.Errorf("tfinal must be positive and finite, got %v", c.TFinal)
	}
	if !(c.DT > 0) {
		return fmt.Errorf("dt must be positive, got %v", c.DT)
	}
	if !(c.Delay > 0) || math.IsInf(c.Delay, 0) {
		return fmt.Errorf("delay must be positive and finite, got %v", c.Delay)
	}
	if c.Delay < c.DT {
		return fmt.Errorf("delay %v must not be shorter than dt %v", c.Delay, c.DT)
	}
	if math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) {
		return fmt.Errorf("weight must be finite, got %v", c.Weight)
	}
	if err := c.Cell.Validate(); err != nil {
		return fmt.Errorf("cell: %w", err)
	}
	if err := c.Generator.validate(c.Cells); err != nil {
		return fmt.Errorf("generator: %w", err)
	}
	if c.Partition.CPUGroupSize < 1 {
		return fmt.Errorf("partition cpu_group_size must be at least 1, got %d", c.Partition.CPUGroupSize)
	}
	if c.Partition.GPUGroupSize < 1 {
		return fmt.Errorf("partition gpu_group_size must be at least 1, got %d", c.Partition.GPUGroupSize)
	}
	probed := make(map[int]bool, len(c.Probes))
	for _, gid := range c.Probes {
		if gid < 0 || gid >= c.Cells {
			return fmt.Errorf("probe gid %d out of range [0, %d)", gid, c.Cells)
		}
		if probed[gid] {
			return fmt.Errorf("duplicate probe gid %d", gid)
		}
		probed[gid] = true
	}
	if len(c.Probes) > 0 && (!(c.SampleInterval > 0) || math.IsInf(c.SampleInterval, 0)) {
		return fmt.Errorf("sample_interval must be positive and finite, got %v", c.SampleInterval)
	}
	return nil
}

func (g GeneratorConfig) validate(cells int) error {
	if !ValidGeneratorKinds[g.Kind] {
		return fmt.Errorf("unknown kind %q", g.Kind)
	}
	if g.Target < 0 || g.Target >= cells {
		return fmt.Errorf("target %d out of range [0, %d)", g.Target, cells)
	}
	if math.IsNaN(g.Weight) || math.IsInf(g.Weight, 0) {
		return fmt.Errorf("weight must be finite, got %v", g.Weight)
	}
	_, err := g.schedule(0)
	return err
}

// schedule builds a fresh schedule; seed is only used by Poisson generators.
func (g GeneratorConfig) schedule(seed uint64) (sim.Schedule, error) {
	switch g.Kind {
	case GeneratorExplicit:
		return sim.NewExplicitSchedule(g.Times...), nil
	case GeneratorRegular:
		stop := g.Stop
		if stop == 0 {
			stop = math.Inf(1)
		}
		s, err := sim.NewRegularSchedule(g.Start, g.Period, stop)
		if err != nil {
			return nil, err
		}
		return s, nil
	case GeneratorPoisson:
		s, err := sim.NewPoissonSchedule(g.Start, g.Freq, seed)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown kind %q", g.Kind)
}
