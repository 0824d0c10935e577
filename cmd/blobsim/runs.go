package main

import (
	"fmt"
	"math"
	"os"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/blobsim/internal/analysis"
	"github.com/san-kum/blobsim/internal/config"
	"github.com/san-kum/blobsim/internal/dynamo"
	"github.com/san-kum/blobsim/internal/forces"
	"github.com/san-kum/blobsim/internal/sim"
	"github.com/san-kum/blobsim/internal/storage"
	"github.com/san-kum/blobsim/internal/viz"
	"github.com/spf13/cobra"
)

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  a.listRuns,
	}
}

func (a *app) plotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  a.plotRun,
	}
	cmd.Flags().IntVar(&a.xAxis, "x-axis", 0, "coordinate index for the scatter x-axis")
	cmd.Flags().IntVar(&a.yAxis, "y-axis", 1, "coordinate index for the scatter y-axis")
	return cmd
}

func (a *app) radialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gr [run_id]",
		Short: "radial distribution function of the blobs in a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  a.radialRun,
	}
	cmd.Flags().Float64Var(&a.boxX, "lx", 10, "periodic box length along x")
	cmd.Flags().Float64Var(&a.boxY, "ly", 10, "periodic box length along y")
	cmd.Flags().IntVar(&a.grBins, "bins", 20, "number of bins over [0, min(lx, ly)/2]")
	cmd.Flags().Float64Var(&a.grBurn, "burn-in", 0, "discard samples before this time")
	return cmd
}

func (a *app) exportJSONCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a saved run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  a.exportJSON,
	}
	cmd.Flags().StringVarP(&a.out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func (a *app) exportSVGCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export the projected trajectory of a saved run to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  a.exportSVG,
	}
	cmd.Flags().StringVarP(&a.out, "out", "o", "", "output file (default <run_id>.svg)")
	cmd.Flags().IntVar(&a.xAxis, "x-axis", 0, "coordinate index for the x-axis")
	cmd.Flags().IntVar(&a.yAxis, "y-axis", 1, "coordinate index for the y-axis")
	return cmd
}

func (a *app) presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [scenario]",
		Short: "list scenarios, presets and force backends",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			scenarios := config.ListScenarios()
			if len(args) == 1 {
				if config.ListPresets(args[0]) == nil {
					fmt.Fprintf(out, "no presets for scenario: %s\n", args[0])
					return nil
				}
				scenarios = args
			}
			for _, s := range scenarios {
				fmt.Fprintf(out, "presets for %s:\n", s)
				for _, p := range config.ListPresets(s) {
					fmt.Fprintf(out, "  %s/%s\n", s, p)
				}
			}
			fmt.Fprintf(out, "force backends: %v\n", forces.Names())
			return nil
		},
	}
}

func (a *app) listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(a.dataDir()).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs found")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.Scenario,
			run.Scheme,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.2f", run.Duration),
			fmt.Sprintf("%.4g", run.Dt),
			fmt.Sprintf("%d", run.Replicas),
			fmt.Sprintf("%d", run.Retries),
		})
	}
	fmt.Fprint(cmd.OutOrStdout(), viz.Table(
		[]string{"ID", "SCENARIO", "SCHEME", "TIME", "DURATION", "DT", "REPLICAS", "RETRIES"}, rows))
	return nil
}

func (a *app) plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(a.dataDir())

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "scenario: %s  scheme: %s\n", meta.Scenario, meta.Scheme)
	fmt.Fprintf(out, "samples: %d\n\n", len(states))

	numVars := min(len(states[0]), 6)
	for varIdx := 0; varIdx < numVars; varIdx++ {
		data := make([]float64, len(states))
		for i := range states {
			if varIdx < len(states[i]) {
				data[i] = states[i][varIdx]
			}
		}
		fmt.Fprintln(out, asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("x%d vs time (tau_int %.1f samples)", varIdx, analysis.IntegratedTime(data))),
		))
		fmt.Fprintln(out)
	}

	if len(states[0]) >= 2 {
		fmt.Fprintf(out, "x%d vs x%d:\n", a.xAxis, a.yAxis)
		fmt.Fprint(out, analysis.ScatterToASCII(analysis.NewScatter(states, a.xAxis, a.yAxis), 60, 24))
	}
	return nil
}

func (a *app) exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(a.dataDir())

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	result := &sim.Result{
		States:     states,
		Times:      times,
		StepsTaken: meta.StepsTaken,
		Retries:    meta.Retries,
		Metrics:    meta.Metrics,
	}

	if a.out == "" {
		return storage.ExportJSONTo(cmd.OutOrStdout(), *meta, result)
	}
	if err := storage.ExportJSON(a.out, *meta, result); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "exported %s to %s\n", runID, a.out)
	return nil
}

func (a *app) exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]
	states, _, err := storage.New(a.dataDir()).LoadStates(runID)
	if err != nil {
		return err
	}

	path := a.out
	if path == "" {
		path = runID + ".svg"
	}
	opts := storage.DefaultSVGOptions()
	opts.XIdx, opts.YIdx = a.xAxis, a.yAxis
	if err := storage.ExportSVG(path, states, opts); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", runID, path)
	return nil
}

func (a *app) radialRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	states, times, err := storage.New(a.dataDir()).LoadStates(runID)
	if err != nil {
		return err
	}

	kept := make([]dynamo.State, 0, len(states))
	for i, x := range states {
		if times[i] >= a.grBurn {
			kept = append(kept, x)
		}
	}
	if len(kept) == 0 {
		return fmt.Errorf("no samples after burn-in %g", a.grBurn)
	}

	rdf, err := analysis.RadialDistribution(kept, a.boxX, a.boxY, a.grBins)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s  frames: %d  box: %g x %g\n\n", runID, rdf.Frames, a.boxX, a.boxY)
	fmt.Fprintln(out, asciigraph.Plot(rdf.G,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("g(r), r in [0, %g]", math.Min(a.boxX, a.boxY)/2)),
	))
	return nil
}
