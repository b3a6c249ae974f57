// Package config holds the run configuration: YAML loading and saving,
// defaults, presets and schema validation.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/modular"
)

const (
	DefaultNAtoms         = 64
	DefaultNSteps         = 1000
	DefaultDt             = 0.002
	DefaultNstxout        = 100
	DefaultNstenergy      = 50
	DefaultSpringConstant = 500.0
	DefaultMass           = 12.0
	DefaultTemperature    = 300.0
	DefaultBox            = 4.0
	DefaultGridSpacing    = 0.12
)

// Integrator names.
const (
	IntegratorMD   = "md"
	IntegratorMDVV = "md-vv"
)

// Output kinds.
const (
	OutputCSV    = "csv"
	OutputSQLite = "sqlite"
	OutputMemory = "memory"
)

type Config struct {
	NAtoms     int     `yaml:"natoms" json:"natoms"`
	NSteps     int64   `yaml:"nsteps" json:"nsteps"`
	InitStep   int64   `yaml:"init_step" json:"init_step"`
	Dt         float64 `yaml:"dt" json:"dt"`
	Integrator string  `yaml:"integrator" json:"integrator"`

	Nstxout           int64 `yaml:"nstxout" json:"nstxout"`
	Nstvout           int64 `yaml:"nstvout" json:"nstvout"`
	Nstfout           int64 `yaml:"nstfout" json:"nstfout"`
	NstxoutCompressed int64 `yaml:"nstxout_compressed" json:"nstxout_compressed"`
	Nstenergy         int64 `yaml:"nstenergy" json:"nstenergy"`

	// Nstpartition is the repartitioning interval; 0 partitions never.
	Nstpartition int64 `yaml:"nstpartition" json:"nstpartition"`

	UseGPU         bool    `yaml:"use_gpu" json:"use_gpu"`
	SpringConstant float64 `yaml:"spring_constant" json:"spring_constant"`
	Mass           float64 `yaml:"mass" json:"mass"`
	Temperature    float64 `yaml:"temperature" json:"temperature"`
	Seed           int64   `yaml:"seed" json:"seed"`
	Box            float64 `yaml:"box" json:"box"`
	GridSpacing    float64 `yaml:"grid_spacing" json:"grid_spacing"`

	Output    string `yaml:"output" json:"output"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		NAtoms:         DefaultNAtoms,
		NSteps:         DefaultNSteps,
		Dt:             DefaultDt,
		Integrator:     IntegratorMD,
		Nstxout:        DefaultNstxout,
		Nstenergy:      DefaultNstenergy,
		SpringConstant: DefaultSpringConstant,
		Mass:           DefaultMass,
		Temperature:    DefaultTemperature,
		Seed:           1,
		Box:            DefaultBox,
		GridSpacing:    DefaultGridSpacing,
		Output:         OutputCSV,
		OutputDir:      "runs",
		LogLevel:       "info",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

//go:embed schema.cue
var schema string

// Validate checks the config against the CUE schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	def := ctx.CompileString(schema).LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("config: schema: %w", err)
	}
	v := def.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrInvalidConfig, err)
	}
	return nil
}

// Intervals returns the trajectory output intervals.
func (c *Config) Intervals() modular.WriteIntervals {
	return modular.WriteIntervals{
		Position:           c.Nstxout,
		Velocity:           c.Nstvout,
		Force:              c.Nstfout,
		CompressedPosition: c.NstxoutCompressed,
		Energy:             c.Nstenergy,
	}
}

// Loop returns the loop parameters.
func (c *Config) Loop() modular.Config {
	return modular.Config{
		InitialStep: dynamo.Step(c.InitStep),
		InitialTime: dynamo.Time(float64(c.InitStep) * c.Dt),
		NSteps:      c.NSteps,
		Dt:          c.Dt,
	}
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
