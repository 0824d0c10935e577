package sim

import (
	"context"
	"fmt"
	"runtime"

	"github.com/san-kum/blobsim/internal/dynamo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StepperFactory builds an independent stepper seeded with seed.
type StepperFactory func(seed int64) (Stepper, error)

type Ensemble struct {
	factory   StepperFactory
	numRuns   int
	seedStart int64
	workers   int
	metrics   func() []Metric
	logger    *zap.Logger
}

// NewEnsemble runs numRuns replicas; replica i is seeded with seedStart+i.
func NewEnsemble(factory StepperFactory, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{
		factory:   factory,
		numRuns:   numRuns,
		seedStart: seedStart,
		workers:   runtime.NumCPU(),
		logger:    zap.NewNop(),
	}
}

func (e *Ensemble) SetWorkers(n int) {
	if n > 0 {
		e.workers = n
	}
}

// SetMetrics installs a constructor called once per replica, so replicas
// never share metric state.
func (e *Ensemble) SetMetrics(fn func() []Metric) { e.metrics = fn }

func (e *Ensemble) SetLogger(l *zap.Logger) {
	if l != nil {
		e.logger = l
	}
}

// Run executes every replica and returns the results in replica order. The
// first failing replica cancels the rest.
func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	if e.numRuns <= 0 {
		return nil, fmt.Errorf("ensemble needs at least one replica, got %d: %w", e.numRuns, dynamo.ErrConfiguration)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	results := make([]*Result, e.numRuns)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := 0; i < e.numRuns; i++ {
		idx := i
		g.Go(func() error {
			seed := e.seedStart + int64(idx)
			stepper, err := e.factory(seed)
			if err != nil {
				return fmt.Errorf("replica %d: %w", idx, err)
			}

			sim := New(stepper)
			sim.SetLogger(e.logger.With(zap.Int("replica", idx), zap.Int64("seed", seed)))
			if e.metrics != nil {
				for _, m := range e.metrics() {
					sim.AddMetric(m)
				}
			}

			res, err := sim.Run(ctx, cfg)
			results[idx] = res
			if err != nil {
				return fmt.Errorf("replica %d: %w", idx, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
