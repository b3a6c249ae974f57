package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/san-kum/modsim/internal/config"
	"github.com/san-kum/modsim/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool
	live       bool

	natoms            int
	nsteps            int64
	dt                float64
	integrator        string
	nstxout           int64
	nstvout           int64
	nstfout           int64
	nstxoutCompressed int64
	nstenergy         int64
	nstpartition      int64
	useGPU            bool
	output            string
	seed              int64

	// plot, analyze and phase
	term  string
	atom  int
	dim   int
	width int
)

// main registers the modsim commands and runs the root command, exiting with
// status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "modsim",
		Short:         "modular molecular dynamics loop",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "run directory (default: output_dir of the config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().IntVar(&natoms, "natoms", config.DefaultNAtoms, "number of atoms")
	runCmd.Flags().Int64Var(&nsteps, "nsteps", config.DefaultNSteps, "number of steps")
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "time step (ps)")
	runCmd.Flags().StringVar(&integrator, "integrator", config.IntegratorMD, "integrator (md, md-vv)")
	runCmd.Flags().Int64Var(&nstxout, "nstxout", config.DefaultNstxout, "position output interval")
	runCmd.Flags().Int64Var(&nstvout, "nstvout", 0, "velocity output interval")
	runCmd.Flags().Int64Var(&nstfout, "nstfout", 0, "force output interval")
	runCmd.Flags().Int64Var(&nstxoutCompressed, "nstxout-compressed", 0, "compressed position output interval")
	runCmd.Flags().Int64Var(&nstenergy, "nstenergy", config.DefaultNstenergy, "energy output interval")
	runCmd.Flags().Int64Var(&nstpartition, "nstpartition", 0, "repartitioning interval")
	runCmd.Flags().BoolVar(&useGPU, "gpu", false, "use the device backend when available")
	runCmd.Flags().StringVar(&output, "output", config.OutputCSV, "output format (csv, sqlite, memory)")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "velocity seed")
	runCmd.Flags().BoolVar(&live, "live", false, "show live progress")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot energies and displacement of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&term, "term", "", "energy term to plot (default: all)")
	plotCmd.Flags().IntVar(&width, "width", 80, "plot width")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of an atom coordinate",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&atom, "atom", 0, "atom index")
	analyzeCmd.Flags().IntVar(&dim, "dim", 0, "coordinate (0=x, 1=y, 2=z)")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot of an atom coordinate",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&atom, "atom", 0, "atom index")
	phaseCmd.Flags().IntVar(&dim, "dim", 0, "coordinate (0=x, 1=y, 2=z)")
	phaseCmd.Flags().IntVar(&width, "width", 60, "plot width")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [integrator]",
		Short: "list available presets for an integrator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for integrator: %s\n", args[0])
				return nil
			}
			sort.Strings(presets)
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, analyzeCmd, phaseCmd, exportJSONCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, tui.Error(err.Error()))
		os.Exit(1)
	}
}

func newLogger(level slog.Level) *slog.Logger {
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
