package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/san-kum/qlab/internal/backend"
	"github.com/san-kum/qlab/internal/circuits"
	"github.com/san-kum/qlab/internal/experiment"
	"github.com/san-kum/qlab/internal/export"
	"github.com/san-kum/qlab/internal/primitives"
	"github.com/san-kum/qlab/internal/qasm"
	"github.com/san-kum/qlab/internal/quantum"
	"github.com/san-kum/qlab/internal/storage"
	"github.com/san-kum/qlab/internal/transpile"
	"github.com/san-kum/qlab/internal/viz"
)

var (
	transpileBasis    []string
	transpileCoupling string
	transpileLevel    int
	transpileQASM     bool

	remoteBackends bool
	hardwareMode   string
	hardwareCirc   string
	qasmFile       string
)

// withExperiment opens the configured backend, runs fn and closes the
// backend again.
func withExperiment(ctx context.Context, fn func(*experiment.Experiment) error) error {
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := experiment.Close(ctx, b); err != nil {
			log.FromContext(ctx).Warn("closing backend", "err", err)
		}
	}()
	return fn(experiment.New(cfg, b))
}

func estimateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "estimate",
		Short: "Evaluate the configured Hamiltonians on their ansatz circuits",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withExperiment(ctx, func(exp *experiment.Experiment) error {
				_, run, err := exp.Estimate(ctx)
				if err != nil {
					return err
				}

				bars := make([]viz.Bar, len(run.Values))
				rows := make([][]string, len(run.Values))
				for i, v := range run.Values {
					bars[i] = viz.Bar{Label: v.Label, Value: v.Value}
					rows[i] = []string{v.Label, fmt.Sprintf("%+.4f", v.Value), fmt.Sprintf("%.4f", v.Std)}
				}
				fmt.Println(viz.BarChart(fmt.Sprintf("expectation values on %s", exp.Backend().Name()), bars, chartWidth))
				fmt.Println(viz.Table([]string{"pub", "value", "std"}, rows))

				if err := writeSVG("estimate", export.BarChartSVG("Expectation values", bars, nil, 720, 400)); err != nil {
					return err
				}
				return saveRuns(ctx, run)
			})
		},
	}
}

func sampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Sample the Bell circuit and the configured parameterized circuits",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withExperiment(ctx, func(exp *experiment.Experiment) error {
				bell, err := exp.Sample(ctx, primitives.SamplerPub{Circuit: circuits.Bell()}, cfg.Sampler.BellShots)
				if err != nil {
					return err
				}
				pubs, err := exp.SamplerPubs()
				if err != nil {
					return err
				}
				runs := bell
				for _, pub := range pubs {
					rs, err := exp.Sample(ctx, pub, cfg.Shots)
					if err != nil {
						return err
					}
					runs = append(runs, rs...)
				}

				for i, run := range runs {
					title := fmt.Sprintf("%s, %d shots", run.Meta.Circuit, run.Meta.Shots)
					if len(run.Meta.Parameters) > 0 {
						title += fmt.Sprintf(", θ=%v", run.Meta.Parameters)
					}
					fmt.Println(viz.Histogram(title, run.Counts, chartWidth))

					bars := make([]viz.Bar, 0, len(run.Counts))
					for _, k := range run.Counts.Keys() {
						bars = append(bars, viz.Bar{Label: k, Value: float64(run.Counts[k])})
					}
					if err := writeSVG(fmt.Sprintf("sample_%d_%s", i, run.Meta.Circuit), export.BarChartSVG(title, bars, nil, 480, 320)); err != nil {
						return err
					}
				}
				return saveRuns(ctx, runs...)
			})
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Sweep the ansatz parameters and track outcome probabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withExperiment(ctx, func(exp *experiment.Experiment) error {
				res, run, err := exp.Sweep(ctx)
				if err != nil {
					return err
				}

				series := make([]viz.Series, len(res.Track))
				for i, key := range res.Track {
					series[i] = viz.Series{Name: key, Values: res.Series[key]}
				}
				fmt.Println(viz.LinePlot(fmt.Sprintf("%s sweep, %d sets", cfg.Sweep.Circuit, len(res.Sets)), series, 12, 60))

				rows := make([][]string, len(res.Sets))
				xs := make([]float64, len(res.Sets))
				for i, set := range res.Sets {
					xs[i] = set[0]
					row := []string{strconv.Itoa(i), fmt.Sprint(set)}
					for _, key := range res.Track {
						row = append(row, fmt.Sprintf("%.3f", res.Series[key][i]))
					}
					rows[i] = row
				}
				fmt.Println(viz.Table(append([]string{"set", "θ"}, res.Track...), rows))

				if err := writeSVG("sweep", export.LineChartSVG("Parameter sweep", series, xs, 640, 360)); err != nil {
					return err
				}
				return saveRuns(ctx, run)
			})
		},
	}
}

func minimizeCmd() *cobra.Command {
	var hamiltonian, circuit string
	cmd := &cobra.Command{
		Use:   "minimize",
		Short: "Grid-search the ansatz parameters for the lowest energy",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("hamiltonian") {
				cfg.Minimize.Hamiltonian = hamiltonian
			}
			if cmd.Flags().Changed("circuit") {
				cfg.Minimize.Circuit = circuit
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return withExperiment(ctx, func(exp *experiment.Experiment) error {
				res, run, err := exp.Minimize(ctx)
				if err != nil {
					return err
				}
				fmt.Println(viz.TitleStyle.Render(fmt.Sprintf("min <%s> over %s", cfg.Minimize.Hamiltonian, cfg.Minimize.Circuit)))
				fmt.Printf("energy %+.6f after %d evaluations\n", res.Value, res.Evaluations)
				fmt.Printf("θ = %v\n", res.Best)
				return saveRuns(ctx, run)
			})
		},
	}
	cmd.Flags().StringVar(&hamiltonian, "hamiltonian", "", "Hamiltonian name (config default)")
	cmd.Flags().StringVar(&circuit, "circuit", "", "ansatz name (config default)")
	return cmd
}

func transpileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transpile [circuit]",
		Short: "Rewrite a circuit into a basis gate set and coupling map",
		Args:  cobra.ExactArgs(1),
		RunE:  runTranspile,
	}
	cmd.Flags().StringSliceVar(&transpileBasis, "basis", nil, "basis gates (config default)")
	cmd.Flags().StringVar(&transpileCoupling, "coupling", "", "directed couplings, e.g. 0-1,1-2")
	cmd.Flags().IntVar(&transpileLevel, "level", -1, "optimization level 0-3 (config default)")
	cmd.Flags().BoolVar(&transpileQASM, "qasm", false, "print the result as OpenQASM 2.0")
	return cmd
}

func runTranspile(cmd *cobra.Command, args []string) error {
	c, err := registry.GetCircuit(args[0], cfg)
	if err != nil {
		return err
	}
	if c.NumParameters() > 0 {
		if c, err = c.Bind(cfg.SweepSets()[0]); err != nil {
			return err
		}
	}

	target := transpile.Target{NumQubits: c.NumQubits, BasisGates: cfg.BasisGates}
	if len(transpileBasis) > 0 {
		target.BasisGates = transpileBasis
	}
	if transpileCoupling != "" {
		if target.CouplingMap, err = parseCoupling(transpileCoupling); err != nil {
			return err
		}
	}
	level := cfg.OptimizationLevel
	if transpileLevel >= 0 {
		level = transpileLevel
	}

	out, err := transpile.Transpile(c, target, transpile.Options{OptimizationLevel: level})
	if err != nil {
		return err
	}
	log.FromContext(cmd.Context()).Debug("transpiled", "circuit", c.Name, "level", level, "basis", target.BasisGates)

	fmt.Println(viz.TitleStyle.Render(fmt.Sprintf("%s → %s", c.Name, strings.Join(target.BasisGates, ","))))
	fmt.Println(viz.Table([]string{"", "depth", "ops"}, [][]string{
		{"before", strconv.Itoa(c.Depth()), formatOps(c.CountOps())},
		{"after", strconv.Itoa(out.Depth()), formatOps(out.CountOps())},
	}))
	if transpileQASM {
		src, err := qasm.Emit(out)
		if err != nil {
			return err
		}
		fmt.Print(src)
		return nil
	}
	fmt.Println(out.String())
	return nil
}

func parseCoupling(s string) ([][2]int, error) {
	var out [][2]int
	for _, pair := range strings.Split(s, ",") {
		a, b, ok := strings.Cut(strings.TrimSpace(pair), "-")
		if !ok {
			return nil, fmt.Errorf("invalid coupling %q", pair)
		}
		x, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid coupling %q: %w", pair, err)
		}
		y, err := strconv.Atoi(b)
		if err != nil {
			return nil, fmt.Errorf("invalid coupling %q: %w", pair, err)
		}
		out = append(out, [2]int{x, y})
	}
	return out, nil
}

func formatOps(ops map[string]int) string {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s:%d", name, ops[name])
	}
	return strings.Join(parts, " ")
}

func backendsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "List local backends and circuits, or the devices of the runtime account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !remoteBackends {
				fmt.Println(viz.LabelStyle.Render("backends:"), strings.Join(registry.ListBackends(), ", "))
				fmt.Println(viz.LabelStyle.Render("circuits:"), strings.Join(registry.ListCircuits(), ", "))
				return nil
			}

			ctx := cmd.Context()
			svc, err := experiment.NewService(ctx, cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			names, err := svc.Backends(ctx)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				st, err := svc.Status(ctx, name)
				if err != nil {
					log.FromContext(ctx).Warn("backend status", "backend", name, "err", err)
					rows = append(rows, []string{name, "?", "?", "?"})
					continue
				}
				rows = append(rows, []string{name, st.Status, strconv.FormatBool(st.Operational), strconv.Itoa(st.PendingJobs)})
			}
			fmt.Println(viz.Table([]string{"backend", "status", "operational", "pending"}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&remoteBackends, "remote", false, "query the runtime account")
	return cmd
}

func hardwareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hardware",
		Short: "Run a circuit against an IBM device, simulated from its calibration or on the device",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Backend = "ibm"
			if cmd.Flags().Changed("mode") {
				cfg.Runtime.Mode = hardwareMode
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			c, err := registry.GetCircuit(hardwareCirc, cfg)
			if err != nil {
				return err
			}
			return runCircuit(cmd.Context(), c, storage.KindHardware)
		},
	}
	cmd.Flags().StringVar(&hardwareMode, "mode", "noisy", "noisy (local simulation) or hardware")
	cmd.Flags().StringVar(&hardwareCirc, "circuit", "bell", "circuit to run")
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an OpenQASM 2.0 file on the configured backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(qasmFile)
			if err != nil {
				return err
			}
			c, err := qasm.Parse(string(src))
			if err != nil {
				return fmt.Errorf("%s: %w", qasmFile, err)
			}
			c.Name = strings.TrimSuffix(filepath.Base(qasmFile), filepath.Ext(qasmFile))
			if len(c.Measurements()) == 0 {
				c.MeasureAll()
			}
			return runCircuit(cmd.Context(), c, storage.KindSample)
		},
	}
	cmd.Flags().StringVar(&qasmFile, "qasm", "", "OpenQASM 2.0 file")
	cmd.MarkFlagRequired("qasm")
	return cmd
}

func runCircuit(ctx context.Context, c *quantum.Circuit, kind storage.Kind) error {
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer experiment.Close(ctx, b)

	if c.NumQubits > backend.NumQubits(b) {
		return fmt.Errorf("%w: %s needs %d qubits, %s has %d", backend.ErrTooWide, c.Name, c.NumQubits, b.Name(), backend.NumQubits(b))
	}
	counts, err := b.Run(ctx, c, cfg.Shots)
	if err != nil {
		return err
	}
	fmt.Println(viz.Histogram(fmt.Sprintf("%s on %s, %d shots", c.Name, b.Name(), cfg.Shots), counts, chartWidth))

	return saveRuns(ctx, &storage.Run{
		Meta: storage.RunMetadata{
			Kind:    kind,
			Circuit: c.Name,
			Backend: b.Name(),
			Seed:    cfg.Seed,
			Shots:   cfg.Shots,
			Qubits:  c.NumQubits,
		},
		Counts: counts,
	})
}
