package primitives

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/qlab/internal/backend"
	"github.com/san-kum/qlab/internal/circuits"
	"github.com/san-kum/qlab/internal/quantum"
	"github.com/san-kum/qlab/internal/runtime"
)

func pauli(label string) quantum.SparsePauliOp {
	return quantum.MustFromList(quantum.PauliTerm{Label: label, Coeff: 1})
}

func TestSamplerDefaultShots(t *testing.T) {
	s := NewSampler(backend.NewStatevector(1))
	res, err := s.Run(context.Background(), []SamplerPub{{Circuit: circuits.Bell()}}, 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res) != 1 || len(res[0].Counts) != 1 {
		t.Fatalf("expected one result with one counts map, got %+v", res)
	}
	counts := res[0].Counts[0]
	if res[0].Shots != DefaultShots || counts.Total() != DefaultShots {
		t.Errorf("expected %d shots, got %d (%d counted)", DefaultShots, res[0].Shots, counts.Total())
	}
	if counts["01"]+counts["10"] != 0 {
		t.Errorf("bell state produced odd parity: %v", counts)
	}
}

func TestSamplerParameterSets(t *testing.T) {
	ansatz, err := circuits.RealAmplitudes(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	ansatz.MeasureAll()

	s := NewSampler(backend.NewStatevector(1))
	res, err := s.Run(context.Background(), []SamplerPub{
		{Circuit: ansatz, ParameterValues: [][]float64{{0}, {math.Pi}}},
		{Circuit: circuits.Bell()},
	}, 64)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res) != 2 || len(res[0].Counts) != 2 {
		t.Fatalf("unexpected shape: %+v", res)
	}
	if res[0].Counts[0]["0"] != 64 {
		t.Errorf("ry(0): expected all zeros, got %v", res[0].Counts[0])
	}
	if res[0].Counts[1]["1"] != 64 {
		t.Errorf("ry(pi): expected all ones, got %v", res[0].Counts[1])
	}
	if res[1].Counts[0].Total() != 64 {
		t.Errorf("second pub: expected 64 shots, got %d", res[1].Counts[0].Total())
	}
}

func TestSamplerErrors(t *testing.T) {
	s := NewSampler(backend.NewStatevector(1))
	ctx := context.Background()

	if _, err := s.Run(ctx, nil, 10); !errors.Is(err, ErrNoPubs) {
		t.Errorf("expected ErrNoPubs, got %v", err)
	}

	ansatz, _ := circuits.RealAmplitudes(2, 1)
	ansatz.MeasureAll()
	if _, err := s.Run(ctx, []SamplerPub{{Circuit: ansatz}}, 10); !errors.Is(err, quantum.ErrUnboundParameter) {
		t.Errorf("expected ErrUnboundParameter, got %v", err)
	}
	if _, err := s.Run(ctx, []SamplerPub{{Circuit: ansatz, ParameterValues: [][]float64{{1, 2}}}}, 10); !errors.Is(err, quantum.ErrParameterCount) {
		t.Errorf("expected ErrParameterCount, got %v", err)
	}
}

// truncating drops the last result of every batch.
type truncating struct {
	*backend.Statevector
}

func (b truncating) RunBatch(ctx context.Context, cs []*quantum.Circuit, shots int) ([]quantum.Counts, error) {
	out := make([]quantum.Counts, 0, len(cs))
	for _, c := range cs[:len(cs)-1] {
		counts, err := b.Run(ctx, c, shots)
		if err != nil {
			return nil, err
		}
		out = append(out, counts)
	}
	return out, nil
}

func (b truncating) Estimate(_ context.Context, cs []*quantum.Circuit, _ [][]quantum.SparsePauliOp, _ float64) ([]runtime.EstimatorValues, error) {
	return make([]runtime.EstimatorValues, len(cs)-1), nil
}

func TestShortBackendResults(t *testing.T) {
	b := truncating{backend.NewStatevector(1)}
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
	}{
		{"sampler", func() error {
			_, err := NewSampler(b).Run(ctx, []SamplerPub{{Circuit: circuits.Bell()}, {Circuit: circuits.Bell()}}, 16)
			return err
		}},
		{"estimator", func() error {
			_, err := NewEstimator(b, 1).Run(ctx, []EstimatorPub{
				{Circuit: circuits.Bell(), Observables: []quantum.SparsePauliOp{pauli("ZZ")}},
				{Circuit: circuits.Bell(), Observables: []quantum.SparsePauliOp{pauli("XX")}},
			}, 0)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, backend.ErrResultCount) {
				t.Errorf("expected ErrResultCount, got %v", err)
			}
		})
	}
}

func TestEstimatorExactBell(t *testing.T) {
	e := NewEstimator(backend.NewStatevector(1), 1)
	res, err := e.Run(context.Background(), []EstimatorPub{{
		Circuit:     circuits.Bell(),
		Observables: []quantum.SparsePauliOp{pauli("ZZ"), pauli("XX"), pauli("YY"), pauli("ZI")},
	}}, 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []float64{1, 1, -1, 0}
	for i, w := range want {
		if math.Abs(res[0].Values[i]-w) > 1e-9 {
			t.Errorf("observable %d: expected %g, got %g", i, w, res[0].Values[i])
		}
		if res[0].Stds[i] != 0 {
			t.Errorf("observable %d: expected exact std 0, got %g", i, res[0].Stds[i])
		}
	}
}

func TestEstimatorBroadcast(t *testing.T) {
	ansatz, _ := circuits.RealAmplitudes(1, 0)
	e := NewEstimator(backend.NewStatevector(1), 1)
	ctx := context.Background()

	sets := [][]float64{{0}, {math.Pi / 2}, {math.Pi}}
	res, err := e.Run(ctx, []EstimatorPub{{
		Circuit:         ansatz,
		Observables:     []quantum.SparsePauliOp{pauli("Z")},
		ParameterValues: sets,
	}}, 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for i, w := range []float64{1, 0, -1} {
		if math.Abs(res[0].Values[i]-w) > 1e-9 {
			t.Errorf("set %d: expected <Z>=%g, got %g", i, w, res[0].Values[i])
		}
	}

	_, err = e.Run(ctx, []EstimatorPub{{
		Circuit:         ansatz,
		Observables:     []quantum.SparsePauliOp{pauli("Z"), pauli("X")},
		ParameterValues: sets,
	}}, 0)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}

	_, err = e.Run(ctx, []EstimatorPub{{Circuit: ansatz, ParameterValues: sets}}, 0)
	if !errors.Is(err, ErrNoObservables) {
		t.Errorf("expected ErrNoObservables, got %v", err)
	}
}

func TestEstimatorPrecisionNoise(t *testing.T) {
	e := NewEstimator(backend.NewStatevector(1), 42)
	res, err := e.Run(context.Background(), []EstimatorPub{{
		Circuit:     circuits.Bell(),
		Observables: []quantum.SparsePauliOp{pauli("ZZ")},
	}}, 0.01)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if math.Abs(res[0].Values[0]-1) > 0.05 {
		t.Errorf("expected value near 1, got %g", res[0].Values[0])
	}
	if res[0].Stds[0] != 0.01 {
		t.Errorf("expected std 0.01, got %g", res[0].Stds[0])
	}
}

func TestEstimatorBySampling(t *testing.T) {
	cal := backend.Calibration{
		Name:         "ideal",
		NumQubits:    2,
		BasisGates:   []string{"ecr", "id", "rz", "sx", "x"},
		ReadoutError: []float64{0, 0},
		GateError:    map[string]float64{},
	}
	e := NewEstimator(backend.NewNoisy(cal, 3), 1)
	h := quantum.MustFromList(
		quantum.PauliTerm{Label: "ZZ", Coeff: 0.5},
		quantum.PauliTerm{Label: "XX", Coeff: 0.25},
		quantum.PauliTerm{Label: "II", Coeff: 2},
	)
	res, err := e.Run(context.Background(), []EstimatorPub{{
		Circuit:     circuits.Bell(),
		Observables: []quantum.SparsePauliOp{h},
	}}, 0.1)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if math.Abs(res[0].Values[0]-2.75) > 1e-9 {
		t.Errorf("expected 2.75, got %g", res[0].Values[0])
	}
	if res[0].Stds[0] != 0 {
		t.Errorf("eigenstate should have zero spread, got %g", res[0].Stds[0])
	}
}

func TestShotsFor(t *testing.T) {
	cases := []struct {
		precision float64
		want      int
	}{
		{0, DefaultShots},
		{0.5, 4},
		{0.25, 16},
	}
	for _, tc := range cases {
		if got := ShotsFor(tc.precision); got != tc.want {
			t.Errorf("ShotsFor(%g): expected %d, got %d", tc.precision, tc.want, got)
		}
	}
}

func TestParityExpectation(t *testing.T) {
	got := parityExpectation(quantum.Counts{"00": 3, "01": 1, "11": 2, "10": 2})
	if math.Abs(got-0.25) > 1e-12 {
		t.Errorf("expected 0.25, got %g", got)
	}
}
