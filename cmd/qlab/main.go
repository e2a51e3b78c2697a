package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/san-kum/qlab/internal/backend"
	"github.com/san-kum/qlab/internal/config"
	"github.com/san-kum/qlab/internal/experiment"
	"github.com/san-kum/qlab/internal/export"
	"github.com/san-kum/qlab/internal/logging"
	"github.com/san-kum/qlab/internal/storage"
	"github.com/san-kum/qlab/internal/viz"
)

var (
	dataDir     string
	configFile  string
	presetName  string
	logLevel    string
	logFormat   string
	seed        int64
	svgDir      string
	backendName string
	shots       int
	themeName   string
	noSave      bool
)

// set up by the root command before any subcommand runs
var (
	cfg      *config.Config
	runStore *storage.Store
	registry *experiment.Registry
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "qlab",
		Short: "Quantum computing experiments in the terminal",
		Long: `qlab simulates small quantum circuits, runs the textbook algorithms
(Grover, Shor) and the sampler/estimator primitives, and talks to the
IBM Quantum runtime for calibration data and hardware runs.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".qlab", "data directory for runs")
	pf.StringVar(&configFile, "config", "", "YAML config file")
	pf.StringVar(&presetName, "preset", "", "start from a preset, kind/name (see 'qlab presets')")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", logging.FormatText, "log format (text, json, logfmt)")
	pf.Int64Var(&seed, "seed", 0, "random seed")
	pf.StringVar(&svgDir, "svg", "", "write SVG figures to this directory")
	pf.StringVar(&backendName, "backend", "statevector", "backend (statevector, noisy, ibm)")
	pf.IntVar(&shots, "shots", config.DefaultShots, "shots per circuit")
	pf.StringVar(&themeName, "theme", "quantum", "color theme")
	pf.BoolVar(&noSave, "no-save", false, "do not store results")

	rootCmd.AddCommand(
		bitsCmd(),
		blochCmd(),
		groverCmd(),
		shorCmd(),
		estimateCmd(),
		sampleCmd(),
		sweepCmd(),
		minimizeCmd(),
		transpileCmd(),
		backendsCmd(),
		hardwareCmd(),
		runCmd(),
		listCmd(),
		showCmd(),
		exportJSONCmd(),
		exportCSVCmd(),
		presetsCmd(),
		configCmd(),
		exploreCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the config, applies explicitly set flags over it and puts
// the logger into the command context.
func setup(cmd *cobra.Command, _ []string) error {
	logger, err := logging.New(logLevel, logFormat, os.Stderr)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.WithLogger(ctx, logger))

	switch {
	case configFile != "":
		if cfg, err = config.Load(configFile); err != nil {
			return err
		}
	case presetName != "":
		kind, name, ok := strings.Cut(presetName, "/")
		if !ok {
			return fmt.Errorf("preset %q: expected kind/name", presetName)
		}
		if cfg = config.GetPreset(kind, name); cfg == nil {
			return fmt.Errorf("unknown preset %q", presetName)
		}
	default:
		cfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = backendName
	}
	if flags.Changed("shots") {
		cfg.Shots = shots
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	viz.SetTheme(themeName)
	runStore = storage.New(dataDir)
	registry = experiment.NewRegistry()
	logger.Debug("config ready", "backend", cfg.Backend, "shots", cfg.Shots, "seed", cfg.Seed)
	return nil
}

// openBackend builds the configured backend. The caller closes it with
// experiment.Close.
func openBackend(ctx context.Context) (backend.Backend, error) {
	b, err := registry.GetBackend(ctx, cfg.Backend, cfg)
	if err != nil {
		return nil, err
	}
	log.FromContext(ctx).Debug("backend", "name", b.Name(), "qubits", backend.NumQubits(b))
	return b, nil
}

func saveRuns(ctx context.Context, runs ...*storage.Run) error {
	if noSave {
		return nil
	}
	if err := runStore.Init(); err != nil {
		return err
	}
	for _, run := range runs {
		id, err := runStore.Save(run)
		if err != nil {
			return err
		}
		fmt.Printf("saved: %s\n", id)
		log.FromContext(ctx).Debug("run saved", "id", id, "dir", runStore.Dir(id))
	}
	return nil
}

func writeSVG(name, svg string) error {
	if svgDir == "" {
		return nil
	}
	path, err := export.WriteFile(svgDir, name, svg)
	if err != nil {
		return err
	}
	fmt.Printf("figure: %s\n", path)
	return nil
}
