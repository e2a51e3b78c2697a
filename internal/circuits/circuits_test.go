package circuits

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/san-kum/qlab/internal/quantum"
)

func simulate(t *testing.T, c *quantum.Circuit) *quantum.State {
	t.Helper()
	st, err := quantum.Simulate(c)
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	return st
}

func TestBell(t *testing.T) {
	c := Bell()
	probs := simulate(t, c).Probabilities()
	if math.Abs(probs[0]-0.5) > 1e-9 || math.Abs(probs[3]-0.5) > 1e-9 {
		t.Errorf("expected half on |00> and |11>, got %v", probs)
	}
	if c.NumClbits != 2 {
		t.Errorf("expected 2 clbits, got %d", c.NumClbits)
	}
}

func TestGHZ(t *testing.T) {
	c, err := GHZ(4)
	if err != nil {
		t.Fatalf("ghz failed: %v", err)
	}
	probs := simulate(t, c).Probabilities()
	if math.Abs(probs[0]-0.5) > 1e-9 || math.Abs(probs[15]-0.5) > 1e-9 {
		t.Errorf("expected cat state, got %v", probs)
	}
	if _, err := GHZ(1); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}

func TestRealAmplitudesParameters(t *testing.T) {
	tests := []struct {
		n, reps int
		params  int
		cx      int
	}{
		{2, 2, 6, 2},
		{2, 3, 8, 3},
		{4, 1, 8, 3},
		{1, 0, 1, 0},
	}
	for _, tt := range tests {
		c, err := RealAmplitudes(tt.n, tt.reps)
		if err != nil {
			t.Fatalf("real amplitudes failed: %v", err)
		}
		if c.NumParameters() != tt.params {
			t.Errorf("n=%d reps=%d: expected %d params, got %d", tt.n, tt.reps, tt.params, c.NumParameters())
		}
		if got := c.CountOps()["cx"]; got != tt.cx {
			t.Errorf("n=%d reps=%d: expected %d cx, got %d", tt.n, tt.reps, tt.cx, got)
		}
	}
}

func TestRealAmplitudesZeroIsIdentity(t *testing.T) {
	c, _ := RealAmplitudes(3, 2)
	bound, err := c.Bind(make([]float64, c.NumParameters()))
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if p := simulate(t, bound).Probabilities()[0]; math.Abs(p-1) > 1e-9 {
		t.Errorf("expected |000>, got p=%g", p)
	}
}

func TestQFT(t *testing.T) {
	const n = 3
	size := 1 << n
	qft, err := QFT(n, true)
	if err != nil {
		t.Fatalf("qft failed: %v", err)
	}
	for x := 0; x < size; x++ {
		prep := quantum.NewCircuit(n, 0)
		for q := 0; q < n; q++ {
			if x&(1<<q) != 0 {
				prep.X(q)
			}
		}
		if _, err := prep.Compose(qft, nil); err != nil {
			t.Fatalf("compose failed: %v", err)
		}
		st := simulate(t, prep)
		for k := 0; k < size; k++ {
			want := cmplx.Exp(complex(0, 2*math.Pi*float64(x*k)/float64(size))) / complex(math.Sqrt(float64(size)), 0)
			if cmplx.Abs(st.Amplitudes[k]-want) > 1e-9 {
				t.Errorf("x=%d k=%d: expected %v, got %v", x, k, want, st.Amplitudes[k])
			}
		}
	}
}

func TestInverseQFTUndoesQFT(t *testing.T) {
	qft, _ := QFT(4, true)
	iqft, _ := InverseQFT(4, true)
	c := quantum.NewCircuit(4, 0).X(0).X(2)
	c.Compose(qft, nil)
	c.Compose(iqft, nil)
	if p := simulate(t, c).Probabilities()[5]; math.Abs(p-1) > 1e-9 {
		t.Errorf("expected |0101>, got p=%g", p)
	}
}

func TestGroverOneIteration(t *testing.T) {
	oracle, err := GroverOracle(2, []int{3})
	if err != nil {
		t.Fatalf("oracle failed: %v", err)
	}
	diffuser, _ := GroverDiffuser(2)
	c := quantum.NewCircuit(2, 0).H(0).H(1)
	c.Compose(oracle, nil)
	c.Compose(diffuser, nil)
	st := simulate(t, c)
	if cmplx.Abs(st.Amplitudes[3]-1) > 1e-9 {
		t.Errorf("expected amplitude +1 on |11>, got %v", st.Amplitudes[3])
	}
}

func TestGroverOracleRejectsOutOfRange(t *testing.T) {
	if _, err := GroverOracle(2, []int{4}); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}

func TestOrderFindingPeaks(t *testing.T) {
	// 2 has order 4 modulo 15: peaks at multiples of 16/4.
	c, err := OrderFinding(2, 15, 4)
	if err != nil {
		t.Fatalf("order finding failed: %v", err)
	}
	st := simulate(t, c)
	probs := st.Marginal([]int{0, 1, 2, 3})
	for k, p := range probs {
		want := 0.0
		if k%4 == 0 {
			want = 0.25
		}
		if math.Abs(p-want) > 1e-9 {
			t.Errorf("k=%d: expected %.2f, got %.4f", k, want, p)
		}
	}
}
