package main

import (
	"context"
	"fmt"
	"math"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/blobsim/internal/config"
	"github.com/san-kum/blobsim/internal/experiment"
	"github.com/san-kum/blobsim/internal/observability"
	"github.com/san-kum/blobsim/internal/sim"
	"github.com/san-kum/blobsim/internal/storage"
	"github.com/san-kum/blobsim/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run one trajectory and save it",
		Args:  cobra.NoArgs,
		RunE:  a.runSimulation,
	}
	a.addSimFlags(cmd)
	return cmd
}

func (a *app) ensembleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run independent replicas in parallel",
		Args:  cobra.NoArgs,
		RunE:  a.runEnsemble,
	}
	a.addSimFlags(cmd)
	cmd.Flags().IntVar(&a.replicas, "replicas", 8, "number of replicas")
	return cmd
}

func (a *app) biasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bias",
		Short: "measure the stationary angle distribution on the circle",
		Args:  cobra.NoArgs,
		RunE:  a.runBias,
	}
	a.addSimFlags(cmd)
	cmd.Flags().IntVar(&a.replicas, "replicas", 400, "number of replicas")
	cmd.Flags().Float64Var(&a.burnIn, "burn-in", 2.0, "discard samples before this time")
	cmd.Flags().IntVar(&a.bins, "bins", 12, "histogram bins")
	cmd.Flags().BoolVar(&a.compare, "compare", false, "run both RFD and EULER")
	return cmd
}

func (a *app) liveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "run one trajectory with live visualization",
		Args:  cobra.NoArgs,
		RunE:  a.runLive,
	}
	a.addSimFlags(cmd)
	return cmd
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func (a *app) newExperiment(cfg *config.Config) (*experiment.Experiment, error) {
	exp, err := experiment.New(cfg)
	if err != nil {
		return nil, err
	}
	exp.SetLogger(observability.GetLogger())
	return exp, nil
}

func metadataFor(cfg *config.Config) storage.RunMetadata {
	return storage.RunMetadata{
		Scenario:   cfg.Scenario,
		Scheme:     cfg.Scheme,
		RFDVariant: cfg.RFDVariant,
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		KT:         cfg.KT,
		Replicas:   cfg.Replicas,
	}
}

func (a *app) runSimulation(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	cfg.Replicas = 1
	exp, err := a.newExperiment(cfg)
	if err != nil {
		return err
	}

	st := storage.New(a.dataDir())
	if err := st.Init(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "running %s (%s) ...\n", cfg.Scenario, cfg.Scheme)
	start := time.Now()

	result, err := exp.Run(ctx)
	if err != nil {
		if result == nil {
			return err
		}
		observability.GetLogger().Warn("saving partial run", zap.Error(err))
	}

	runID, saveErr := st.Save(metadataFor(cfg), result)
	if saveErr != nil {
		return saveErr
	}

	fmt.Fprintf(out, "completed in %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(out, "run id: %s\n", runID)
	fmt.Fprintf(out, "steps: %d  retries: %d\n", result.StepsTaken, result.Retries)
	printMetrics(cmd, result.Metrics)
	return err
}

func (a *app) runEnsemble(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	exp, err := a.newExperiment(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "running %d replicas of %s (%s) ...\n", cfg.Replicas, cfg.Scenario, cfg.Scheme)
	start := time.Now()

	results, err := exp.RunEnsemble(ctx)
	if err != nil {
		return err
	}

	summary := &sim.Result{Metrics: averageMetrics(results)}
	for _, r := range results {
		summary.StepsTaken += r.StepsTaken
		summary.Retries += r.Retries
	}
	summary.States, summary.Times = results[0].States, results[0].Times

	st := storage.New(a.dataDir())
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(metadataFor(cfg), summary)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "completed in %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(out, "run id: %s (trajectory of replica 0)\n", runID)
	fmt.Fprintf(out, "total steps: %d  retries: %d\n", summary.StepsTaken, summary.Retries)
	printMetrics(cmd, summary.Metrics)
	return nil
}

func averageMetrics(results []*sim.Result) map[string]float64 {
	avg := make(map[string]float64)
	for _, r := range results {
		for name, v := range r.Metrics {
			avg[name] += v / float64(len(results))
		}
	}
	return avg
}

func printMetrics(cmd *cobra.Command, metrics map[string]float64) {
	if len(metrics) == 0 {
		return
	}
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, fmt.Sprintf("%.6g", metrics[name])})
	}
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprint(cmd.OutOrStdout(), viz.Table([]string{"METRIC", "VALUE"}, rows))
}

func (a *app) runBias(cmd *cobra.Command, args []string) error {
	if len(a.cfg.InitState) != 2 {
		return fmt.Errorf("bias needs a planar scenario, %s has %d coordinates", a.cfg.Scenario, len(a.cfg.InitState))
	}

	schemes := []string{a.cfg.Scheme}
	if a.compare {
		schemes = []string{"RFD", "EULER"}
	}

	ctx, cancel := signalContext()
	defer cancel()

	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(schemes))
	for _, scheme := range schemes {
		cfg := *a.cfg
		cfg.Scheme = scheme

		exp, err := a.newExperiment(&cfg)
		if err != nil {
			return err
		}
		results, err := exp.RunEnsemble(ctx)
		if err != nil {
			return err
		}
		report, err := experiment.Bias(results, a.burnIn, a.bins)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, asciigraph.Plot(report.Counts,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption(fmt.Sprintf("%s angle histogram (-π..π)", scheme)),
		))
		fmt.Fprintln(out)

		rows = append(rows, []string{
			scheme,
			fmt.Sprintf("%d", report.Samples),
			fmt.Sprintf("%+.4f ± %.4f", report.MeanCos.Mean, report.MeanCos.StdErr),
			fmt.Sprintf("%.1f (df %d)", report.Uniformity.Statistic, report.Uniformity.DF),
			fmt.Sprintf("%.3g", report.Uniformity.PValue),
			verdict(report),
		})
	}

	fmt.Fprint(out, viz.Table([]string{"SCHEME", "SAMPLES", "<cos θ>", "CHI²", "P", "VERDICT"}, rows))
	return nil
}

func verdict(r *experiment.BiasReport) string {
	if math.Abs(r.MeanCos.Mean) > 3*r.MeanCos.StdErr && r.Uniformity.PValue < 1e-3 {
		return "biased"
	}
	return "consistent with uniform"
}

func (a *app) runLive(cmd *cobra.Command, args []string) error {
	exp, err := a.newExperiment(a.cfg)
	if err != nil {
		return err
	}
	integ, err := exp.NewIntegrator(a.cfg.Seed)
	if err != nil {
		return err
	}
	title := fmt.Sprintf("%s · %s", a.cfg.Scenario, exp.Scheme())
	return viz.Run(integ, a.cfg.Dt, title)
}
