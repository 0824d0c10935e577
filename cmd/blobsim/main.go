package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/san-kum/blobsim/internal/config"
	"github.com/san-kum/blobsim/internal/observability"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app holds the flag values and resolved configuration of one invocation.
type app struct {
	v   *viper.Viper
	cfg *config.Config

	configFile string
	preset     string
	scheme     string
	variant    string
	dt         float64
	duration   float64
	seed       int64
	kt         float64
	replicas   int
	every      int
	backend    string

	burnIn  float64
	bins    int
	compare bool
	out     string
	xAxis   int
	yAxis   int
	boxX    float64
	boxY    float64
	grBins  int
	grBurn  float64
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		observability.GetLogger().Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		observability.Sync()
		os.Exit(1)
	}
	observability.Sync()
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "blobsim",
		Short:         "constrained Brownian dynamics of rigid blob clusters",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("data", ".blobsim", "data directory")
	flags.StringVarP(&a.configFile, "config", "c", "", "config file path (yaml)")
	flags.StringVar(&a.preset, "preset", "", "preset as scenario/name, e.g. circle/euler")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	_ = a.v.BindPFlag("data", flags.Lookup("data"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		a.runCmd(),
		a.ensembleCmd(),
		a.biasCmd(),
		a.liveCmd(),
		a.listCmd(),
		a.plotCmd(),
		a.radialCmd(),
		a.exportJSONCmd(),
		a.exportSVGCmd(),
		a.presetsCmd(),
	)
	return rootCmd
}

// initialize resolves the configuration (defaults, then preset, then config
// file, then flags) and starts the logger.
func (a *app) initialize(cmd *cobra.Command) error {
	a.v.SetEnvPrefix("BLOBSIM")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	cfg, err := a.resolveConfig(cmd)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		observability.InitializeLogger(config.DefaultLoggerConfig())
		return err
	}
	if level := a.v.GetString("log_level"); level != "" {
		cfg.Logger.Level = level
	}
	observability.InitializeLogger(cfg.Logger)
	a.cfg = cfg
	return nil
}

func (a *app) resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if a.preset != "" {
		scenario, name, ok := strings.Cut(a.preset, "/")
		if !ok {
			return nil, fmt.Errorf("preset must be scenario/name, got %q", a.preset)
		}
		if cfg = config.GetPreset(scenario, name); cfg == nil {
			return nil, fmt.Errorf("unknown preset %q (available for %s: %v)", a.preset, scenario, config.ListPresets(scenario))
		}
	}

	path := a.configFile
	if path == "" {
		path = a.v.GetString("config")
	}
	if path != "" {
		loaded, err := config.LoadOnto(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("scheme") {
		cfg.Scheme = a.scheme
	}
	if f.Changed("variant") {
		cfg.RFDVariant = a.variant
	}
	if f.Changed("dt") {
		cfg.Dt = a.dt
	}
	if f.Changed("time") {
		cfg.Duration = a.duration
	}
	if f.Changed("seed") {
		cfg.Seed = a.seed
	}
	if f.Changed("kt") {
		cfg.KT = a.kt
	}
	if f.Changed("replicas") {
		cfg.Replicas = a.replicas
	}
	if f.Changed("every") {
		cfg.RecordEvery = a.every
	}
	if f.Changed("backend") {
		cfg.Forces.Backend = a.backend
	}
	return cfg, nil
}

// addSimFlags registers the overrides shared by every simulating command.
func (a *app) addSimFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&a.scheme, "scheme", "RFD", "integration scheme (RFD or EULER)")
	f.StringVar(&a.variant, "variant", "central", "RFD stencil (central or forward)")
	f.Float64Var(&a.dt, "dt", config.DefaultDt, "timestep")
	f.Float64Var(&a.duration, "time", config.DefaultDuration, "duration")
	f.Int64Var(&a.seed, "seed", 1, "random seed")
	f.Float64Var(&a.kt, "kt", config.DefaultKT, "thermal energy kT")
	f.IntVar(&a.every, "every", 1, "record every n-th step (0: endpoints only)")
	f.StringVar(&a.backend, "backend", "none", "force backend (none, serial, parallel)")
}

func (a *app) dataDir() string { return a.v.GetString("data") }
