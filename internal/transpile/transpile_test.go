package transpile

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/qlab/internal/circuits"
	"github.com/san-kum/qlab/internal/quantum"
)

var eagle = Target{
	NumQubits:   3,
	BasisGates:  []string{"ecr", "id", "rz", "sx", "x"},
	CouplingMap: [][2]int{{0, 1}, {2, 1}},
}

// fidelity runs both circuits after the same entangling preparation and
// returns |<a|b>|.
func fidelity(t *testing.T, a, b *quantum.Circuit) float64 {
	t.Helper()
	run := func(c *quantum.Circuit) *quantum.State {
		prep := quantum.NewCircuit(c.NumQubits, c.NumClbits)
		for q := 0; q < c.NumQubits; q++ {
			prep.RY(quantum.Fixed(0.3+0.2*float64(q)), q).RZ(quantum.Fixed(0.1+0.7*float64(q)), q)
		}
		for q := 0; q+1 < c.NumQubits; q++ {
			prep.CX(q, q+1)
		}
		_, err := prep.Compose(c, nil)
		require.NoError(t, err)
		st, err := quantum.Simulate(prep)
		require.NoError(t, err)
		return st
	}
	sa, sb := run(a), run(b)
	var inner complex128
	for i := range sa.Amplitudes {
		inner += cmplx.Conj(sa.Amplitudes[i]) * sb.Amplitudes[i]
	}
	return cmplx.Abs(inner)
}

func assertInBasis(t *testing.T, c *quantum.Circuit, target Target) {
	t.Helper()
	for _, o := range c.Ops {
		switch o.Name {
		case "measure", "barrier", "reset":
			continue
		}
		assert.Contains(t, target.BasisGates, o.Name, "gate %s outside basis", o.Name)
		if len(o.Qubits) == 2 {
			assert.True(t, target.coupled(o.Qubits[0], o.Qubits[1]), "%s on uncoupled %v", o.Name, o.Qubits)
		}
	}
}

func TestTranspileBellToECR(t *testing.T) {
	bell := quantum.NewCircuit(2, 0).H(1).CX(1, 0)
	for level := 0; level <= 3; level++ {
		out, err := Transpile(bell, eagle, Options{OptimizationLevel: level})
		require.NoError(t, err)
		assertInBasis(t, out, eagle)
		assert.InDelta(t, 1.0, fidelity(t, bell, out), 1e-9, "level %d", level)
	}
}

func TestTranspileKeepsMeasurements(t *testing.T) {
	out, err := Transpile(circuits.Bell(), eagle, Options{OptimizationLevel: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumClbits)
	assert.Equal(t, 2, out.CountOps()["measure"])
	assert.Equal(t, []int{0, 1}, out.Measurements())
}

func TestTranspileTwoQubitGates(t *testing.T) {
	c := quantum.NewCircuit(3, 0).
		CZ(0, 1).Swap(2, 1).ECR(1, 0).CX(0, 1).ECR(0, 1).
		U(quantum.Fixed(0.4), quantum.Fixed(1.2), quantum.Fixed(-0.3), 2).
		T(0).Sdg(1).Y(2).MCZ(1, 2)
	for level := 0; level <= 3; level++ {
		out, err := Transpile(c, eagle, Options{OptimizationLevel: level})
		require.NoError(t, err)
		assertInBasis(t, out, eagle)
		assert.InDelta(t, 1.0, fidelity(t, c, out), 1e-9, "level %d", level)
	}
}

func TestTranspileUBasis(t *testing.T) {
	target := Target{BasisGates: []string{"u", "cx"}}
	c := quantum.NewCircuit(2, 0).H(0).S(1).CZ(0, 1).RX(quantum.Fixed(0.9), 0).ECR(0, 1)
	out, err := Transpile(c, target, Options{OptimizationLevel: 2})
	require.NoError(t, err)
	assertInBasis(t, out, target)
	assert.InDelta(t, 1.0, fidelity(t, c, out), 1e-9)
}

func TestTranspileSymbolicParameters(t *testing.T) {
	ansatz, err := circuits.RealAmplitudes(2, 2)
	require.NoError(t, err)

	out, err := Transpile(ansatz, eagle, Options{OptimizationLevel: 1})
	require.NoError(t, err)
	assertInBasis(t, out, eagle)
	require.Equal(t, ansatz.NumParameters(), out.NumParameters())

	values := []float64{0, 1, 2, 3, 4, 5}
	want, err := ansatz.Bind(values)
	require.NoError(t, err)
	got, err := out.Bind(values)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, fidelity(t, want, got), 1e-9)
}

func TestTranspileKeepsParameterCount(t *testing.T) {
	c := quantum.NewCircuit(1, 0).
		RY(quantum.Param(0), 0).
		RZ(quantum.Param(1), 0).RZ(quantum.Param(1).Neg(), 0).
		RX(quantum.Param(2), 0).RX(quantum.Param(2).Neg(), 0)
	require.Equal(t, 3, c.NumParameters())

	values := []float64{0.7, 1.1, -0.4}
	want, err := c.Bind(values)
	require.NoError(t, err)
	for level := 0; level <= 3; level++ {
		out, err := Transpile(c, eagle, Options{OptimizationLevel: level})
		require.NoError(t, err)
		assert.Equal(t, 3, out.NumParameters(), "level %d", level)
		got, err := out.Bind(values)
		require.NoError(t, err, "level %d", level)
		assert.InDelta(t, 1.0, fidelity(t, want, got), 1e-9, "level %d", level)
	}
}

func TestOptimizationLevels(t *testing.T) {
	c := quantum.NewCircuit(1, 0).
		X(0).X(0).H(0).H(0).RZ(quantum.Fixed(0.3), 0).RZ(quantum.Fixed(-0.3), 0)

	l0, err := Transpile(c, eagle, Options{OptimizationLevel: 0})
	require.NoError(t, err)
	l1, err := Transpile(c, eagle, Options{OptimizationLevel: 1})
	require.NoError(t, err)
	l2, err := Transpile(c, eagle, Options{OptimizationLevel: 2})
	require.NoError(t, err)

	assert.Less(t, len(l1.Ops), len(l0.Ops))
	assert.Empty(t, l2.Ops)
	assert.InDelta(t, 1.0, fidelity(t, c, l1), 1e-9)
}

func TestTranspileErrors(t *testing.T) {
	line := Target{NumQubits: 3, BasisGates: eagle.BasisGates, CouplingMap: [][2]int{{0, 1}, {1, 2}}}

	_, err := Transpile(quantum.NewCircuit(3, 0).CX(0, 2), line, Options{})
	assert.ErrorIs(t, err, ErrNotCoupled)

	_, err = Transpile(quantum.NewCircuit(4, 0), line, Options{})
	assert.ErrorIs(t, err, ErrTooWide)

	_, err = Transpile(quantum.NewCircuit(3, 0).MCZ(0, 2, 1), line, Options{})
	assert.ErrorIs(t, err, ErrNotCoupled)

	_, err = Transpile(quantum.NewCircuit(3, 0).CModMul(0, 2, 3, []int{1, 2}), line, Options{})
	assert.ErrorIs(t, err, ErrUntranslatable)
}

func TestTranspileMCZOnLine(t *testing.T) {
	line := Target{
		NumQubits:   5,
		BasisGates:  eagle.BasisGates,
		CouplingMap: [][2]int{{0, 1}, {2, 1}, {2, 3}, {4, 3}},
	}
	diffuser, err := circuits.GroverDiffuser(3)
	require.NoError(t, err)
	oracle, err := circuits.GroverOracle(4, []int{5})
	require.NoError(t, err)

	tests := []struct {
		name string
		c    *quantum.Circuit
	}{
		{"mcz3", quantum.NewCircuit(3, 0).MCZ(0, 1, 2)},
		{"mcz4", quantum.NewCircuit(4, 0).MCZ(0, 1, 2, 3)},
		{"mcz5", quantum.NewCircuit(5, 0).MCZ(0, 1, 2, 3, 4)},
		{"diffuser", diffuser},
		{"oracle", oracle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for level := 0; level <= 3; level++ {
				out, err := Transpile(tt.c, line, Options{OptimizationLevel: level})
				require.NoError(t, err)
				assertInBasis(t, out, line)
				assert.InDelta(t, 1.0, fidelity(t, tt.c, out), 1e-9, "level %d", level)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.InDelta(t, math.Pi, normalize(-math.Pi), 1e-12)
	assert.InDelta(t, -math.Pi/2, normalize(3*math.Pi/2), 1e-12)
	assert.InDelta(t, 0.5, normalize(0.5+4*math.Pi), 1e-12)
}
