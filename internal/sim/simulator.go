package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/blobsim/internal/dynamo"
	"go.uber.org/zap"
)

type Simulator struct {
	stepper   Stepper
	metrics   []Metric
	observers []Observer
	logger    *zap.Logger
}

func New(stepper Stepper) *Simulator {
	return &Simulator{
		stepper:   stepper,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		logger:    zap.NewNop(),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	s.logger = l
}

// Run advances the stepper for cfg.Duration in steps of cfg.Dt. On error the
// partial result recorded so far is returned alongside it.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	capacity := 2
	if cfg.RecordEvery > 0 {
		capacity = steps/cfg.RecordEvery + 2
	}
	result := &Result{
		States:  make([]dynamo.State, 0, capacity),
		Times:   make([]float64, 0, capacity),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	record := func() {
		result.States = append(result.States, s.stepper.State())
		result.Times = append(result.Times, s.stepper.Time())
	}
	lastObserved := s.stepper.Time()
	observe := func() {
		x, t := s.stepper.State(), s.stepper.Time()
		for _, m := range s.metrics {
			m.Observe(x, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, t)
		}
		lastObserved = t
	}
	record()

	var runErr error
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			runErr = fmt.Errorf("step %d: %w", i, errors.Join(dynamo.ErrContextCanceled, ctx.Err()))
		default:
		}
		if runErr != nil {
			break
		}

		if err := s.step(cfg.Dt, 0, cfg.MaxHalvings, &result.Retries); err != nil {
			runErr = err
			break
		}
		result.StepsTaken++
		observe()

		if cfg.RecordEvery > 0 && result.StepsTaken%cfg.RecordEvery == 0 {
			record()
		}
	}

	// A failed halved step may still have committed some of its sub-steps.
	if s.stepper.Time() != lastObserved {
		observe()
	}
	if s.stepper.Time() != result.Times[len(result.Times)-1] {
		record()
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	if runErr != nil {
		s.logger.Warn("run stopped",
			zap.Int("steps", result.StepsTaken),
			zap.Int("retries", result.Retries),
			zap.Error(runErr))
		return result, runErr
	}

	s.logger.Info("run complete",
		zap.Int("steps", result.StepsTaken),
		zap.Int("retries", result.Retries),
		zap.Float64("time", s.stepper.Time()))
	return result, nil
}

// step takes one step of size dt. A projection failure is retried as two
// steps of dt/2, recursively up to maxHalvings levels.
func (s *Simulator) step(dt float64, depth, maxHalvings int, retries *int) error {
	err := s.stepper.TimeStep(dt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, dynamo.ErrProjection) || depth >= maxHalvings {
		return err
	}

	*retries++
	s.logger.Debug("projection failed, halving step",
		zap.Float64("dt", dt),
		zap.Int("depth", depth+1),
		zap.Error(err))

	if err := s.step(dt/2, depth+1, maxHalvings, retries); err != nil {
		return err
	}
	return s.step(dt/2, depth+1, maxHalvings, retries)
}

func validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) || math.IsInf(cfg.Dt, 0) {
		return fmt.Errorf("dt must be positive, got %g: %w", cfg.Dt, dynamo.ErrConfiguration)
	}
	if !(cfg.Duration > 0) || math.IsInf(cfg.Duration, 0) {
		return fmt.Errorf("duration must be positive, got %g: %w", cfg.Duration, dynamo.ErrConfiguration)
	}
	if cfg.MaxHalvings < 0 {
		return fmt.Errorf("max halvings must be non-negative, got %d: %w", cfg.MaxHalvings, dynamo.ErrConfiguration)
	}
	return nil
}
