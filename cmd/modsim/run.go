package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/san-kum/modsim/internal/builder"
	"github.com/san-kum/modsim/internal/config"
	"github.com/san-kum/modsim/internal/metrics"
	"github.com/san-kum/modsim/internal/modular"
	"github.com/san-kum/modsim/internal/storage"
	"github.com/san-kum/modsim/internal/tui"
)

// stabilityThreshold is the RMSD in nm above which a frame counts as unstable.
const stabilityThreshold = 1.0

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(integrator, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(integrator))
		}
		cfg = p
	}

	// config file overrides the preset
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	}

	// flags override both
	flags := cmd.Flags()
	if flags.Changed("natoms") {
		cfg.NAtoms = natoms
	}
	if flags.Changed("nsteps") {
		cfg.NSteps = nsteps
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("nstxout") {
		cfg.Nstxout = nstxout
	}
	if flags.Changed("nstvout") {
		cfg.Nstvout = nstvout
	}
	if flags.Changed("nstfout") {
		cfg.Nstfout = nstfout
	}
	if flags.Changed("nstxout-compressed") {
		cfg.NstxoutCompressed = nstxoutCompressed
	}
	if flags.Changed("nstenergy") {
		cfg.Nstenergy = nstenergy
	}
	if flags.Changed("nstpartition") {
		cfg.Nstpartition = nstpartition
	}
	if flags.Changed("gpu") {
		cfg.UseGPU = useGPU
	}
	if flags.Changed("output") {
		cfg.Output = output
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if dataDir != "" {
		cfg.OutputDir = dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runTarget is where a run's output goes: a stored run directory or, for
// memory output, nowhere past the process.
type runTarget struct {
	modular.Sink
	run *storage.Run
}

func openTarget(ctx context.Context, cfg *config.Config) (*runTarget, error) {
	if cfg.Output == config.OutputMemory {
		return &runTarget{Sink: storage.NewMemorySink()}, nil
	}
	st := storage.New(cfg.OutputDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	run, err := st.Create(ctx, storage.RunMetadata{
		Format:     cfg.Output,
		Integrator: cfg.Integrator,
		NAtoms:     cfg.NAtoms,
		NSteps:     cfg.NSteps,
		Dt:         cfg.Dt,
		Seed:       cfg.Seed,
		UseGPU:     cfg.UseGPU,
		Intervals:  cfg.Intervals(),
	})
	if err != nil {
		return nil, err
	}
	return &runTarget{Sink: run, run: run}, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	level := cfg.SlogLevel()
	if live && level < slog.LevelWarn {
		// the progress view owns the terminal
		level = slog.LevelWarn
	}
	logger := newLogger(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	target, err := openTarget(ctx, cfg)
	if err != nil {
		return err
	}
	observed := metrics.NewObservingSink(target, metrics.NewDisplacement(), metrics.NewStability(stabilityThreshold))

	sim, err := builder.Build(cfg, observed, logger)
	if err != nil {
		if target.run != nil {
			_ = target.run.Close(0, nil)
		}
		return err
	}
	defer sim.Close()

	var res *modular.Result
	start := time.Now()
	if live {
		loop := sim.Loop
		title := fmt.Sprintf("%s · %d atoms", cfg.Integrator, cfg.NAtoms)
		err = tui.RunLive(ctx, title, loop.InitialStep, loop.LastStep(), func(ctx context.Context, send func(tea.Msg)) error {
			sim.Simulator.AddObserver(tui.StepObserver(send, max(1, cfg.NSteps/200), sim.Temperature))
			var runErr error
			res, runErr = sim.Run(ctx)
			return runErr
		})
	} else {
		res, err = sim.Run(ctx)
	}
	elapsed := time.Since(start)

	summary := sim.Summary()
	for name, v := range observed.Values() {
		summary[name] = v
	}
	if target.run != nil {
		if cerr := target.run.Close(elapsed, summary); cerr != nil && err == nil {
			err = cerr
		}
	}
	title := "run complete"
	if errors.Is(err, context.Canceled) && res != nil {
		title = fmt.Sprintf("run stopped at step %d", res.LastStep)
		err = nil
	}
	if err != nil {
		return err
	}

	fmt.Print(tui.Summary(title, runRows(cfg, target, res, elapsed, summary)))
	return nil
}

func runRows(cfg *config.Config, target *runTarget, res *modular.Result, elapsed time.Duration, summary map[string]float64) [][2]string {
	rows := [][2]string{}
	if target.run != nil {
		rows = append(rows, [2]string{"run id", target.run.ID()})
	} else {
		rows = append(rows, [2]string{"run id", tui.Muted("not stored")})
	}
	rate := float64(res.StepsTaken) / elapsed.Seconds()
	rows = append(rows,
		[2]string{"integrator", cfg.Integrator},
		[2]string{"atoms", humanize.Comma(int64(cfg.NAtoms))},
		[2]string{"steps", humanize.Comma(res.StepsTaken)},
		[2]string{"frames", humanize.Comma(int64(res.Frames))},
		[2]string{"elapsed", elapsed.Round(time.Millisecond).String()},
		[2]string{"steps/s", humanize.CommafWithDigits(rate, 1)},
		[2]string{"energy drift", fmt.Sprintf("%.3e", summary["energy_drift"])},
		[2]string{"rmsd", fmt.Sprintf("%.4f nm", summary["rmsd"])},
		[2]string{"stability", fmt.Sprintf("%.2f", summary["stability"])},
		[2]string{"temperature", fmt.Sprintf("%.1f K", summary["final_temperature"])},
		[2]string{"partitions", fmt.Sprintf("%.0f", summary["partitions"])},
	)
	return rows
}
