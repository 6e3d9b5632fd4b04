package ring

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbor-sim/arbortools/sim/internal/testutil"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.Cells)
	assert.Equal(t, 4, cfg.Threads)
	assert.Nil(t, cfg.GPUID)
	assert.Equal(t, 0.01, cfg.Weight)
	assert.Equal(t, 10.0, cfg.Delay)
	assert.Equal(t, []float64{1}, cfg.Generator.Times)
	assert.Equal(t, 0.1, cfg.Generator.Weight)
	assert.Equal(t, 1000, cfg.Partition.GPUGroupSize)
	assert.True(t, cfg.Partition.PreferGPU)
}

func TestLoadConfig_OverridesOnlyGivenKeys(t *testing.T) {
	// GIVEN a file setting a few keys, including a nested one
	path := testutil.WriteFixture(t, "ring.yaml", testutil.Lines(
		"cells: 12",
		"gpu_id: 0",
		"probes: [0, 3]",
		"generator:",
		"  kind: poisson",
		"  freq: 0.5",
		"  weight: 0.2",
	))

	// WHEN loaded
	cfg, err := LoadConfig(path)

	// THEN given keys are applied and the rest keep their defaults
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Cells)
	require.NotNil(t, cfg.GPUID)
	assert.Equal(t, 0, *cfg.GPUID)
	assert.Equal(t, []int{0, 3}, cfg.Probes)
	assert.Equal(t, GeneratorPoisson, cfg.Generator.Kind)
	assert.Equal(t, 0.5, cfg.Generator.Freq)
	assert.Equal(t, 0.2, cfg.Generator.Weight)
	assert.Equal(t, 10.0, cfg.Delay)
	assert.Equal(t, 4, cfg.Threads)
}

func TestLoadConfig_EmptyFile_GivesDefaults(t *testing.T) {
	path := testutil.WriteFixture(t, "ring.yaml", "")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_UnknownKey_IsError(t *testing.T) {
	path := testutil.WriteFixture(t, "ring.yaml", "cels: 12\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cels")
}

func TestLoadConfig_InvalidValue_IsError(t *testing.T) {
	path := testutil.WriteFixture(t, "ring.yaml", "delay: 0\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delay")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("does-not-exist.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestConfig_Validate_Rejects(t *testing.T) {
	gpu := -1
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"no cells", func(c *Config) { c.Cells = 0 }, "cells"},
		{"no threads", func(c *Config) { c.Threads = 0 }, "thread count"},
		{"negative gpu id", func(c *Config) { c.GPUID = &gpu }, "gpu"},
		{"zero tfinal", func(c *Config) { c.TFinal = 0 }, "tfinal"},
		{"zero dt", func(c *Config) { c.DT = 0 }, "dt"},
		{"zero delay", func(c *Config) { c.Delay = 0 }, "delay"},
		{"delay below dt", func(c *Config) { c.Delay = 1e-20 }, "shorter than dt"},
		{"bad cell", func(c *Config) { c.Cell.Refractory = -1 }, "cell"},
		{"unknown generator", func(c *Config) { c.Generator.Kind = "burst" }, "generator"},
		{"generator target out of range", func(c *Config) { c.Generator.Target = 100 }, "target"},
		{"regular without period", func(c *Config) { c.Generator.Kind = GeneratorRegular }, "generator"},
		{"poisson without freq", func(c *Config) { c.Generator.Kind = GeneratorPoisson }, "generator"},
		{"zero cpu group", func(c *Config) { c.Partition.CPUGroupSize = 0 }, "cpu_group_size"},
		{"zero gpu group", func(c *Config) { c.Partition.GPUGroupSize = 0 }, "gpu_group_size"},
		{"probe out of range", func(c *Config) { c.Probes = []int{100} }, "probe"},
		{"duplicate probe", func(c *Config) { c.Probes = []int{3, 0, 3} }, "duplicate probe gid 3"},
		{"probe without interval", func(c *Config) { c.Probes = []int{0}; c.SampleInterval = 0 }, "sample_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
