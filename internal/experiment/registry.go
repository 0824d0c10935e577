package experiment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/blobsim/internal/config"
	"github.com/san-kum/blobsim/internal/dynamo"
	"github.com/san-kum/blobsim/internal/forces"
	"github.com/san-kum/blobsim/internal/metrics"
	"github.com/san-kum/blobsim/internal/mobility"
	"github.com/san-kum/blobsim/internal/sim"
	"github.com/san-kum/blobsim/internal/surface"
)

type surfaceBuilder func(cfg config.SurfaceConfig, x0 dynamo.State) (dynamo.SurfaceFunction, error)
type mobilityBuilder func(cfg config.MobilityConfig, dim int) (dynamo.MobilityOperator, error)

// Registry maps configuration kinds to collaborator constructors.
type Registry struct {
	surfaces   map[string]surfaceBuilder
	mobilities map[string]mobilityBuilder
}

func NewRegistry() *Registry {
	r := &Registry{
		surfaces:   make(map[string]surfaceBuilder),
		mobilities: make(map[string]mobilityBuilder),
	}

	r.surfaces["sphere"] = func(cfg config.SurfaceConfig, _ dynamo.State) (dynamo.SurfaceFunction, error) {
		if !(cfg.Radius > 0) {
			return nil, fmt.Errorf("sphere radius must be positive, got %g: %w", cfg.Radius, dynamo.ErrConfiguration)
		}
		return perBlob(surface.Sphere{Center: cfg.Center, Radius: cfg.Radius}, cfg.Stride), nil
	}
	r.surfaces["plane"] = func(cfg config.SurfaceConfig, _ dynamo.State) (dynamo.SurfaceFunction, error) {
		if len(cfg.Normal) == 0 {
			return nil, fmt.Errorf("plane needs a normal: %w", dynamo.ErrConfiguration)
		}
		return perBlob(surface.Plane{Normal: cfg.Normal, Offset: cfg.Offset}, cfg.Stride), nil
	}
	r.surfaces["cluster"] = func(cfg config.SurfaceConfig, x0 dynamo.State) (dynamo.SurfaceFunction, error) {
		return surface.RigidCluster(x0, cfg.Bonds)
	}

	r.mobilities["constant"] = func(cfg config.MobilityConfig, dim int) (dynamo.MobilityOperator, error) {
		if len(cfg.Matrix) > 0 {
			return mobility.Constant(cfg.Matrix), nil
		}
		if !(cfg.M0 > 0) {
			return nil, fmt.Errorf("isotropic mobility must be positive, got %g: %w", cfg.M0, dynamo.ErrConfiguration)
		}
		return mobility.Isotropic(dim, cfg.M0), nil
	}
	r.mobilities["field"] = func(cfg config.MobilityConfig, dim int) (dynamo.MobilityOperator, error) {
		if cfg.Axis < 0 || cfg.Axis >= dim {
			return nil, fmt.Errorf("mobility axis %d out of range for %d coordinates: %w", cfg.Axis, dim, dynamo.ErrConfiguration)
		}
		return mobility.LinearField(dim, cfg.M0, cfg.Slope, cfg.Axis), nil
	}
	r.mobilities["wall"] = func(cfg config.MobilityConfig, _ int) (dynamo.MobilityOperator, error) {
		return mobility.SingleWall{Eta: cfg.Eta, Radius: cfg.Radius}, nil
	}

	return r
}

func perBlob(s dynamo.SurfaceFunction, stride int) dynamo.SurfaceFunction {
	if stride > 0 {
		return surface.PerBlob{Inner: s, Stride: stride}
	}
	return s
}

func (r *Registry) GetSurface(cfg config.SurfaceConfig, x0 dynamo.State) (dynamo.SurfaceFunction, error) {
	fn, ok := r.surfaces[strings.ToLower(cfg.Kind)]
	if !ok {
		return nil, fmt.Errorf("unknown surface %q (available: %v): %w", cfg.Kind, r.ListSurfaces(), dynamo.ErrConfiguration)
	}
	return fn(cfg, x0)
}

func (r *Registry) GetMobility(cfg config.MobilityConfig, dim int) (dynamo.MobilityOperator, error) {
	fn, ok := r.mobilities[strings.ToLower(cfg.Kind)]
	if !ok {
		return nil, fmt.Errorf("unknown mobility %q (available: %v): %w", cfg.Kind, r.ListMobilities(), dynamo.ErrConfiguration)
	}
	return fn(cfg, dim)
}

func (r *Registry) GetForce(cfg config.ForcesConfig) (dynamo.ForceCalculator, error) {
	return forces.New(cfg.Backend, cfg.Params)
}

func (r *Registry) ListSurfaces() []string   { return sortedKeys(r.surfaces) }
func (r *Registry) ListMobilities() []string { return sortedKeys(r.mobilities) }
func (r *Registry) ListForces() []string     { return forces.Names() }

// DefaultMetrics returns fresh metrics suited to the configuration.
func (r *Registry) DefaultMetrics(cfg *config.Config, s dynamo.SurfaceFunction) []sim.Metric {
	ms := []sim.Metric{metrics.NewMaxResidual(s)}
	if len(cfg.InitState) == 2 {
		ms = append(ms, metrics.NewMeanCosine(0, 1))
	}
	if strings.EqualFold(cfg.Mobility.Kind, "wall") {
		ms = append(ms, metrics.NewWallContact(cfg.Mobility.Radius), metrics.NewMinHeight())
	}
	return ms
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
