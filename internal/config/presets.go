package config

// Presets are keyed by integrator, then preset name.
var Presets = map[string]map[string]*Config{
	IntegratorMD: {
		"crystal": {
			NAtoms: 64, NSteps: 5000, Dt: 0.002, Integrator: IntegratorMD,
			Nstxout: 100, Nstvout: 100, Nstenergy: 50, Nstpartition: 1000,
			SpringConstant: 500, Mass: 12, Temperature: 300, Seed: 1, Box: 4, GridSpacing: 0.12,
			Output: OutputCSV, OutputDir: "runs", LogLevel: "info",
		},
		"hot": {
			NAtoms: 125, NSteps: 10000, Dt: 0.001, Integrator: IntegratorMD,
			Nstxout: 250, Nstfout: 250, Nstenergy: 100, Nstpartition: 500,
			SpringConstant: 200, Mass: 12, Temperature: 1200, Seed: 7, Box: 5, GridSpacing: 0.12,
			Output: OutputCSV, OutputDir: "runs", LogLevel: "info",
		},
	},
	IntegratorMDVV: {
		"crystal": {
			NAtoms: 64, NSteps: 5000, Dt: 0.002, Integrator: IntegratorMDVV,
			Nstxout: 100, Nstvout: 100, Nstenergy: 50, Nstpartition: 1000,
			SpringConstant: 500, Mass: 12, Temperature: 300, Seed: 1, Box: 4, GridSpacing: 0.12,
			Output: OutputCSV, OutputDir: "runs", LogLevel: "info",
		},
		"large": {
			NAtoms: 4096, NSteps: 2000, Dt: 0.002, Integrator: IntegratorMDVV,
			Nstxout: 0, NstxoutCompressed: 100, Nstenergy: 100, Nstpartition: 200,
			UseGPU: true, SpringConstant: 500, Mass: 12, Temperature: 300, Seed: 3, Box: 16, GridSpacing: 0.16,
			Output: OutputSQLite, OutputDir: "runs", LogLevel: "info",
		},
	},
}

func GetPreset(integrator, preset string) *Config {
	integratorPresets, ok := Presets[integrator]
	if !ok {
		return nil
	}
	cfg, ok := integratorPresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets(integrator string) []string {
	integratorPresets, ok := Presets[integrator]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(integratorPresets))
	for name := range integratorPresets {
		names = append(names, name)
	}
	return names
}
