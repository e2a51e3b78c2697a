package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/san-kum/qlab/internal/algorithms"
	"github.com/san-kum/qlab/internal/experiment"
	"github.com/san-kum/qlab/internal/export"
	"github.com/san-kum/qlab/internal/quantum"
	"github.com/san-kum/qlab/internal/storage"
	"github.com/san-kum/qlab/internal/tui"
	"github.com/san-kum/qlab/internal/viz"
)

const chartWidth = 40

var (
	groverQubits     int
	groverMarked     []int
	groverIterations int
	groverAnimate    bool
	groverDelay      time.Duration

	shorA        int
	shorAttempts int
	shorCounting int
)

func bitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bits [word]",
		Short: "Compare the classical bits of a word with the qubits that would hold it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			word := cfg.Bits.Word
			if len(args) == 1 {
				word = args[0]
			}
			t, err := algorithms.BitsVsQubits(word)
			if err != nil {
				return err
			}

			fmt.Println(viz.TitleStyle.Render("bits vs qubits"))
			fmt.Printf("word %q: %d characters, %d bits, %d qubits\n", t.Word, t.Chars, t.Bits, t.Qubits)
			fmt.Printf("first character %q = %s\n\n", t.First, t.Binary)

			rows := make([][]string, len(t.Rows))
			for i, r := range t.Rows {
				rows[i] = []string{strconv.Itoa(r.Index), string(r.Bit), r.Ket}
			}
			fmt.Println(viz.Table([]string{"index", "bit", "qubit"}, rows))

			bit, qubit := algorithms.Superposition(cfg.Bits.Alpha, cfg.Bits.Beta)
			fmt.Println()
			fmt.Println(viz.BarChart("classical bit", []viz.Bar{{Label: "0", Value: bit[0]}, {Label: "1", Value: bit[1]}}, chartWidth))
			fmt.Println(viz.BarChart("qubit amplitudes", []viz.Bar{{Label: "α", Value: qubit[0]}, {Label: "β", Value: qubit[1]}}, chartWidth))
			return nil
		},
	}
}

func blochCmd() *cobra.Command {
	var width, height int
	cmd := &cobra.Command{
		Use:   "bloch",
		Short: "Draw the configured Bloch vectors on a sphere",
		RunE: func(cmd *cobra.Command, args []string) error {
			vectors := make([]viz.Vec3, len(cfg.Bloch.Vectors))
			for i, v := range cfg.Bloch.Vectors {
				vectors[i] = viz.Vec3{X: v[0], Y: v[1], Z: v[2]}
			}
			cam := viz.NewCamera()

			fmt.Println(viz.TitleStyle.Render("bloch sphere"))
			fmt.Println(viz.BlochSphere(vectors, width, height, cam))
			for i, v := range vectors {
				fmt.Printf("%s %s\n", viz.LabelStyle.Render(fmt.Sprintf("v%d", i)), viz.DescribeVector(v))
			}
			return writeSVG("bloch", export.BlochSVG("Bloch vectors", vectors, cam, 480))
		},
	}
	cmd.Flags().IntVar(&width, "width", 40, "sphere width in terminal cells")
	cmd.Flags().IntVar(&height, "height", 20, "sphere height in terminal cells")
	return cmd
}

func groverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grover",
		Short: "Run Grover search and show the amplitudes at every stage",
		RunE:  runGrover,
	}
	cmd.Flags().IntVar(&groverQubits, "qubits", 0, "search register width (config default)")
	cmd.Flags().IntSliceVar(&groverMarked, "marked", nil, "marked basis states")
	cmd.Flags().IntVar(&groverIterations, "iterations", 0, "iterations (0 = optimal)")
	cmd.Flags().BoolVar(&groverAnimate, "animate", false, "replay the stages as an animation")
	cmd.Flags().DurationVar(&groverDelay, "delay", 800*time.Millisecond, "delay between animation frames")
	return cmd
}

func runGrover(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if cmd.Flags().Changed("qubits") {
		cfg.Grover.Qubits = groverQubits
	}
	if cmd.Flags().Changed("marked") {
		cfg.Grover.Marked = groverMarked
	}
	if cmd.Flags().Changed("iterations") {
		cfg.Grover.Iterations = groverIterations
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	res, err := algorithms.Grover(cfg.Grover.Qubits, cfg.Grover.Marked, cfg.Grover.Iterations)
	if err != nil {
		return err
	}

	stages := tui.NewStageRenderer(os.Stdout, groverDelay, chartWidth, isatty.IsTerminal(os.Stdout.Fd()))
	if groverAnimate {
		if err := stages.Play(ctx, res); err != nil {
			return err
		}
	} else {
		for i := range res.Stages {
			fmt.Println(stages.Frame(res, i))
		}
	}
	fmt.Println(viz.ProbabilityChart("final probabilities", res.Probabilities, res.NumQubits, chartWidth))
	fmt.Printf("iterations %d  success %.4f  most likely %s\n\n",
		res.Iterations, res.Success, quantum.BasisLabel(res.Found, res.NumQubits))

	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer experiment.Close(ctx, b)
	counts, err := b.Run(ctx, res.Circuit, cfg.Shots)
	if err != nil {
		return err
	}
	fmt.Println(viz.Histogram(fmt.Sprintf("%s, %d shots", b.Name(), cfg.Shots), counts, chartWidth))

	last := res.Stages[len(res.Stages)-1]
	bars := make([]viz.Bar, len(last.Amplitudes))
	for i, a := range last.Amplitudes {
		bars[i] = viz.Bar{Label: quantum.BasisLabel(i, res.NumQubits), Value: a}
	}
	if err := writeSVG("grover", export.BarChartSVG("Grover amplitudes", bars, &last.Mean, 640, 360)); err != nil {
		return err
	}

	return saveRuns(ctx, &storage.Run{
		Meta: storage.RunMetadata{
			Kind:    storage.KindGrover,
			Circuit: res.Circuit.Name,
			Backend: b.Name(),
			Seed:    cfg.Seed,
			Shots:   cfg.Shots,
			Qubits:  res.NumQubits,
			Metrics: map[string]float64{
				"iterations": float64(res.Iterations),
				"success":    res.Success,
				"found":      float64(res.Found),
			},
		},
		Counts: counts,
	})
}

func shorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shor",
		Short: "Shor's algorithm: factoring, period finding and the QFT spectrum",
	}

	factor := &cobra.Command{
		Use:   "factor [N]",
		Short: "Factor N with order finding",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFactor,
	}
	factor.Flags().IntVar(&shorA, "a", 0, "base of the first attempt (0 = random)")
	factor.Flags().IntVar(&shorAttempts, "attempts", 0, "maximum attempts (config default)")
	factor.Flags().IntVar(&shorCounting, "counting", 0, "counting qubits (0 = 2*bitlen(N))")

	period := &cobra.Command{
		Use:   "period",
		Short: "Plot a^x mod N and the measured phase peaks",
		RunE:  runPeriod,
	}

	spectrum := &cobra.Command{
		Use:   "spectrum",
		Short: "Compare the QFT peak spectrum with its classical FFT counterpart",
		RunE:  runSpectrum,
	}

	cmd.AddCommand(factor, period, spectrum)
	return cmd
}

func runFactor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sc := cfg.Shor
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid N %q: %w", args[0], err)
		}
		sc.N = n
	}
	flags := cmd.Flags()
	if flags.Changed("a") {
		sc.A = shorA
	}
	if flags.Changed("attempts") {
		sc.Attempts = shorAttempts
	}
	if flags.Changed("shots") {
		sc.Shots = cfg.Shots
	}

	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer experiment.Close(ctx, b)

	start := time.Now()
	res, err := algorithms.Factor(ctx, sc.N, algorithms.ShorOptions{
		A:           sc.A,
		MaxAttempts: sc.Attempts,
		Counting:    shorCounting,
		Shots:       sc.Shots,
		Seed:        cfg.Seed,
		Backend:     b,
	})
	if err != nil {
		return err
	}
	log.FromContext(ctx).Info("factored", "n", res.N, "method", res.Method, "elapsed", time.Since(start).Round(time.Millisecond))

	fmt.Println(viz.TitleStyle.Render(fmt.Sprintf("shor N=%d", res.N)))
	if len(res.Attempts) > 0 {
		rows := make([][]string, len(res.Attempts))
		for i, a := range res.Attempts {
			rows[i] = []string{
				strconv.Itoa(i + 1),
				strconv.Itoa(a.A),
				fmt.Sprint(a.Measured),
				strconv.Itoa(a.Period),
				strconv.FormatBool(a.Success),
			}
		}
		fmt.Println(viz.Table([]string{"attempt", "a", "measured", "period", "success"}, rows))
	}
	fmt.Printf("%d = %d × %d  (method %s", res.N, res.Factors[0], res.Factors[1], res.Method)
	if res.Method == algorithms.MethodOrderFinding {
		fmt.Printf(", a=%d, r=%d, %d qubits", res.A, res.Period, res.Qubits)
	}
	fmt.Println(")")

	return saveRuns(ctx, &storage.Run{
		Meta: storage.RunMetadata{
			Kind:    storage.KindShor,
			Circuit: "order_finding",
			Backend: b.Name(),
			Seed:    cfg.Seed,
			Shots:   sc.Shots,
			Qubits:  res.Qubits,
			Metrics: map[string]float64{
				"n":        float64(res.N),
				"factor_1": float64(res.Factors[0]),
				"factor_2": float64(res.Factors[1]),
				"a":        float64(res.A),
				"period":   float64(res.Period),
				"attempts": float64(len(res.Attempts)),
			},
		},
	})
}

func runPeriod(cmd *cobra.Command, args []string) error {
	sc := cfg.Shor
	f := algorithms.PeriodicFunction(sc.PeriodA, sc.PeriodN, sc.Points)
	r := algorithms.Order(sc.PeriodA, sc.PeriodN)

	fmt.Println(viz.LinePlot(fmt.Sprintf("f(x) = %d^x mod %d", sc.PeriodA, sc.PeriodN),
		[]viz.Series{{Name: "f(x)", Values: viz.Ints(f)}}, 12, 60))
	if r == 0 {
		fmt.Printf("%d and %d share a factor, f has no period\n", sc.PeriodA, sc.PeriodN)
		return nil
	}
	fmt.Printf("period r = %d\n\n", r)

	peaks, err := algorithms.QFTPeaks(sc.PeriodA, sc.PeriodN, sc.Counting)
	if err != nil {
		return err
	}
	fmt.Println(viz.ProbabilityChart(fmt.Sprintf("counting register, %d qubits", sc.Counting), peaks, sc.Counting, chartWidth))

	xs := make([]float64, len(peaks))
	for i := range xs {
		xs[i] = float64(i)
	}
	return writeSVG("period", export.LineChartSVG("Order-finding peaks", []viz.Series{
		{Name: "measured", Values: peaks},
		{Name: "ideal", Values: algorithms.IdealPeaks(sc.Counting, r)},
	}, xs, 640, 360))
}

func runSpectrum(cmd *cobra.Command, args []string) error {
	sc := cfg.Shor
	quantumPeaks := algorithms.PeakSpectrum(sc.SpectrumQubits, sc.SpectrumPeriod, sc.SpectrumS)
	classical, err := algorithms.ClassicalSpectrum(sc.PeriodA, sc.PeriodN, sc.SpectrumQubits)
	if err != nil {
		return err
	}

	fmt.Println(viz.LinePlot(
		fmt.Sprintf("QFT peaks, n=%d r=%d s=%d", sc.SpectrumQubits, sc.SpectrumPeriod, sc.SpectrumS),
		[]viz.Series{{Name: "qft", Values: quantumPeaks}}, 12, 64))
	fmt.Println(viz.LinePlot(
		fmt.Sprintf("FFT of %d^x mod %d", sc.PeriodA, sc.PeriodN),
		[]viz.Series{{Name: "fft", Values: classical}}, 12, 64))

	peak, at := 0.0, 0
	for k, p := range quantumPeaks {
		if p > peak+1e-12 {
			peak, at = p, k
		}
	}
	fmt.Printf("strongest peak k=%d  p=%.4f  k/2^n=%.4f\n", at, peak, float64(at)/math.Exp2(float64(sc.SpectrumQubits)))

	xs := make([]float64, len(quantumPeaks))
	for i := range xs {
		xs[i] = float64(i)
	}
	return writeSVG("spectrum", export.LineChartSVG("QFT spectrum", []viz.Series{
		{Name: "qft", Values: quantumPeaks},
		{Name: "fft", Values: classical},
	}, xs, 640, 360))
}
