package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/modsim/internal/analysis"
	"github.com/san-kum/modsim/internal/config"
	"github.com/san-kum/modsim/internal/metrics"
	"github.com/san-kum/modsim/internal/modular"
	"github.com/san-kum/modsim/internal/storage"
	"github.com/san-kum/modsim/internal/tui"
)

func openStore() *storage.Store {
	dir := dataDir
	if dir == "" {
		dir = config.DefaultConfig().OutputDir
	}
	return storage.New(dir)
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := openStore().List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tINTEG\tATOMS\tSTEPS\tDT\tFRAMES\tFORMAT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%.4fps\t%d\t%s\n",
			run.ID,
			humanize.Time(run.Timestamp),
			run.Integrator,
			run.NAtoms,
			humanize.Comma(run.NSteps),
			run.Dt,
			run.Frames,
			run.Format,
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, []*modular.Frame, []*modular.EnergyFrame, error) {
	ctx := context.Background()
	st := openStore()
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	frames, err := st.LoadFrames(ctx, runID)
	if err != nil {
		return nil, nil, nil, err
	}
	energies, err := st.LoadEnergies(ctx, runID)
	if err != nil {
		return nil, nil, nil, err
	}
	return meta, frames, energies, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, frames, energies, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Println(tui.Title(meta.ID))
	fmt.Printf("integrator: %s\n", meta.Integrator)
	fmt.Printf("frames: %d  energies: %d\n\n", len(frames), len(energies))

	if len(energies) > 1 {
		terms := make([]string, 0, len(energies[0].Terms))
		for name := range energies[0].Terms {
			if term == "" || name == term {
				terms = append(terms, name)
			}
		}
		if len(terms) == 0 {
			return fmt.Errorf("unknown energy term: %s", term)
		}
		sort.Strings(terms)

		for _, name := range terms {
			data := make([]float64, len(energies))
			for i, e := range energies {
				data[i] = e.Terms[name]
			}
			graph := asciigraph.Plot(data,
				asciigraph.Height(10),
				asciigraph.Width(width),
				asciigraph.Caption(name),
			)
			fmt.Println(graph)
			fmt.Println()
		}
	}

	rmsd := metrics.NewDisplacement()
	var data []float64
	for _, f := range frames {
		if len(f.X) == 0 {
			continue
		}
		rmsd.Observe(f)
		data = append(data, rmsd.Value())
	}
	if len(data) > 1 {
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(width),
			asciigraph.Caption("rmsd from first frame (nm)"),
		)
		fmt.Println(graph)
	}

	if len(energies) < 2 && len(data) < 2 {
		return fmt.Errorf("no data to plot")
	}
	return nil
}

// coordinateSeries extracts one coordinate of one atom from every frame with
// positions, together with the spacing of those frames in time.
func coordinateSeries(frames []*modular.Frame, atom, dim int) ([]float64, float64, error) {
	if dim < 0 || dim > 2 {
		return nil, 0, fmt.Errorf("invalid coordinate: %d", dim)
	}
	var data, times []float64
	for _, f := range frames {
		if atom < 0 || atom >= len(f.X) {
			continue
		}
		data = append(data, f.X[atom][dim])
		times = append(times, float64(f.Time))
	}
	if len(data) < 4 {
		return nil, 0, fmt.Errorf("not enough position frames for atom %d", atom)
	}
	return data, times[1] - times[0], nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, frames, _, err := loadRun(args[0])
	if err != nil {
		return err
	}

	data, spacing, err := coordinateSeries(frames, atom, dim)
	if err != nil {
		return err
	}

	freq, power := analysis.DominantFrequency(data, spacing)
	ps := analysis.PowerSpectrum(data)

	fmt.Print(tui.Summary("frequency analysis", [][2]string{
		{"run", meta.ID},
		{"atom", fmt.Sprintf("%d (%c)", atom, "xyz"[dim])},
		{"samples", humanize.Comma(int64(len(data)))},
		{"spacing", fmt.Sprintf("%.4f ps", spacing)},
		{"dominant frequency", fmt.Sprintf("%.4f 1/ps", freq)},
		{"period", fmt.Sprintf("%.4f ps", period(freq))},
		{"power", fmt.Sprintf("%.4e", power)},
	}))
	fmt.Println()
	fmt.Println(asciigraph.Plot(ps[1:],
		asciigraph.Height(10),
		asciigraph.Width(60),
		asciigraph.Caption("power spectrum"),
	))
	return nil
}

func period(freq float64) float64 {
	if freq == 0 {
		return 0
	}
	return 1 / freq
}

func phasePlot(cmd *cobra.Command, args []string) error {
	meta, frames, _, err := loadRun(args[0])
	if err != nil {
		return err
	}

	portrait := analysis.NewPhasePortrait(frames, atom, dim)
	if portrait == nil {
		return fmt.Errorf("invalid coordinate: %d", dim)
	}
	if len(portrait.Points) == 0 {
		return fmt.Errorf("no frames with positions and velocities for atom %d", atom)
	}

	fmt.Println(tui.Title(meta.ID))
	fmt.Printf("phase space of atom %d (%c): %d points\n\n", atom, "xyz"[dim], len(portrait.Points))
	fmt.Print(analysis.PhasePortraitToASCII(portrait, width, 20))
	fmt.Println(tui.Muted("x: position (nm)  y: velocity (nm/ps)"))
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, frames, energies, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, meta, frames, energies)
}
