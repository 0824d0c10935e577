package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/san-kum/blobsim/internal/dynamo"
	"github.com/san-kum/blobsim/internal/forces"
	"github.com/san-kum/blobsim/internal/integrators"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt          = 0.01
	DefaultDuration    = 5.0
	DefaultKT          = 1.0
	DefaultDelta       = 1e-6
	DefaultTolerance   = 1e-10
	DefaultMaxIters    = 50
	DefaultMaxHalvings = 4
)

type Config struct {
	Scenario    string    `yaml:"scenario"`
	Scheme      string    `yaml:"scheme"`
	Dt          float64   `yaml:"dt"`
	Duration    float64   `yaml:"duration"`
	Seed        int64     `yaml:"seed"`
	KT          float64   `yaml:"kt"`
	Delta       float64   `yaml:"delta"`
	RFDVariant  string    `yaml:"rfd_variant"`
	Tolerance   float64   `yaml:"tolerance"`
	MaxIters    int       `yaml:"max_iters"`
	MaxHalvings int       `yaml:"max_halvings"`
	Replicas    int       `yaml:"replicas"`
	RecordEvery int       `yaml:"record_every"`
	InitState   []float64 `yaml:"init_state,omitempty"`

	Surface  SurfaceConfig  `yaml:"surface"`
	Mobility MobilityConfig `yaml:"mobility"`
	Forces   ForcesConfig   `yaml:"forces"`
	Logger   LoggerConfig   `yaml:"logger"`
}

type SurfaceConfig struct {
	Kind   string    `yaml:"kind"` // sphere | plane | cluster
	Radius float64   `yaml:"radius,omitempty"`
	Center []float64 `yaml:"center,omitempty"`
	Normal []float64 `yaml:"normal,omitempty"`
	Offset float64   `yaml:"offset,omitempty"`
	// Stride applies a sphere or plane to every Stride-sized block.
	Stride int      `yaml:"stride,omitempty"`
	Bonds  [][2]int `yaml:"bonds,omitempty"`
}

type MobilityConfig struct {
	Kind   string      `yaml:"kind"` // constant | field | wall
	M0     float64     `yaml:"m0,omitempty"`
	Slope  float64     `yaml:"slope,omitempty"`
	Axis   int         `yaml:"axis,omitempty"`
	Matrix [][]float64 `yaml:"matrix,omitempty"`
	Eta    float64     `yaml:"eta,omitempty"`
	Radius float64     `yaml:"radius,omitempty"`
}

type ForcesConfig struct {
	Backend string `yaml:"backend"` // none | serial | parallel
	// Tether adds a harmonic spring of this stiffness pulling every
	// coordinate toward init_state; 0 disables it.
	Tether        float64 `yaml:"tether,omitempty"`
	forces.Params `yaml:",inline"`
}

type LoggerConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"` // console | json
	LogFile     string `yaml:"log_file,omitempty"`
	MaxSize     int    `yaml:"max_size,omitempty"`
	MaxBackups  int    `yaml:"max_backups,omitempty"`
	MaxAge      int    `yaml:"max_age,omitempty"`
	Compress    bool   `yaml:"compress,omitempty"`
	AddSource   bool   `yaml:"add_source,omitempty"`
	ServiceName string `yaml:"service_name,omitempty"`
}

func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:       "info",
		Format:      "console",
		MaxSize:     10,
		MaxBackups:  3,
		MaxAge:      7,
		ServiceName: "blobsim",
	}
}

// DefaultConfig is the RFD scheme on the unit circle with mobility
// m(x) = 1 + x/2.
func DefaultConfig() *Config {
	return &Config{
		Scenario:    "circle",
		Scheme:      "RFD",
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		Seed:        1,
		KT:          DefaultKT,
		Delta:       DefaultDelta,
		RFDVariant:  "central",
		Tolerance:   DefaultTolerance,
		MaxIters:    DefaultMaxIters,
		MaxHalvings: DefaultMaxHalvings,
		Replicas:    1,
		RecordEvery: 1,
		InitState:   []float64{1, 0},
		Surface:     SurfaceConfig{Kind: "sphere", Radius: 1.0, Center: []float64{0, 0}},
		Mobility:    MobilityConfig{Kind: "field", M0: 1.0, Slope: 0.5},
		Forces:      ForcesConfig{Backend: "none", Params: forces.DefaultParams()},
		Logger:      DefaultLoggerConfig(),
	}
}

// WallConfig is a rigid blob trimer above a no-slip wall under gravity.
func WallConfig() *Config {
	cfg := DefaultConfig()
	cfg.Scenario = "wall"
	cfg.Dt = 0.005
	cfg.Duration = 2.0
	cfg.RecordEvery = 10
	cfg.InitState = []float64{
		0, 0, 2.0,
		1, 0, 2.0,
		0.5, 0.866, 2.0,
	}
	cfg.Surface = SurfaceConfig{Kind: "cluster"}
	cfg.Mobility = MobilityConfig{Kind: "wall", Eta: 1.0, Radius: 0.5}
	cfg.Forces = ForcesConfig{Backend: "parallel", Params: forces.DefaultParams()}
	cfg.Forces.G = 0.2
	return cfg
}

func Load(path string) (*Config, error) {
	return LoadOnto(path, DefaultConfig())
}

// LoadOnto reads path over a copy of base, so keys missing from the file
// keep base's values.
func LoadOnto(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := *base
	cfg.InitState = append([]float64(nil), base.InitState...)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, errors.Join(dynamo.ErrConfiguration, err))
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks every field an experiment needs before anything is built.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, err := integrators.ParseScheme(c.Scheme); err != nil {
		errs = append(errs, err)
	}
	if _, err := integrators.ParseVariant(c.RFDVariant); err != nil {
		errs = append(errs, err)
	}
	if !(c.Dt > 0) {
		fail("dt must be positive, got %g", c.Dt)
	}
	if !(c.Duration > 0) {
		fail("duration must be positive, got %g", c.Duration)
	}
	if !(c.KT >= 0) {
		fail("kt must be non-negative, got %g", c.KT)
	}
	if !(c.Delta > 0) {
		fail("delta must be positive, got %g", c.Delta)
	}
	if !(c.Tolerance > 0) {
		fail("tolerance must be positive, got %g", c.Tolerance)
	}
	if c.MaxIters < 1 {
		fail("max_iters must be at least 1, got %d", c.MaxIters)
	}
	if c.MaxHalvings < 0 {
		fail("max_halvings must be non-negative, got %d", c.MaxHalvings)
	}
	if c.Replicas < 1 {
		fail("replicas must be at least 1, got %d", c.Replicas)
	}
	if c.RecordEvery < 0 {
		fail("record_every must be non-negative, got %d", c.RecordEvery)
	}
	if len(c.InitState) == 0 {
		fail("init_state is empty")
	}

	switch strings.ToLower(c.Surface.Kind) {
	case "sphere", "plane", "cluster":
	default:
		fail("unknown surface kind %q", c.Surface.Kind)
	}
	switch strings.ToLower(c.Mobility.Kind) {
	case "constant", "field", "wall":
	default:
		fail("unknown mobility kind %q", c.Mobility.Kind)
	}
	if !(c.Forces.Tether >= 0) || math.IsInf(c.Forces.Tether, 0) {
		fail("forces.tether must be non-negative, got %g", c.Forces.Tether)
	}
	if b := c.Forces.Backend; b != "" && !contains(forces.Names(), b) {
		fail("unknown force backend %q (available: %v)", b, forces.Names())
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{dynamo.ErrConfiguration}, errs...)...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
