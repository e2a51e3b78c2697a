// Package circuits is a library of ready-made circuits built on
// internal/quantum: Bell and GHZ preparation, the RealAmplitudes ansatz,
// the quantum Fourier transform, Grover's oracle and diffuser and the
// order-finding circuit behind Shor's algorithm.
package circuits

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/san-kum/qlab/internal/quantum"
)

var ErrInvalidSize = errors.New("circuits: invalid size")

// Bell prepares (|00> + |11>)/sqrt(2) with h on qubit 1 and cx(1, 0),
// then measures both qubits.
func Bell() *quantum.Circuit {
	c := quantum.NewCircuit(2, 0).H(1).CX(1, 0).MeasureAll()
	c.Name = "bell"
	return c
}

// GHZ prepares the n-qubit cat state and measures every qubit.
func GHZ(n int) (*quantum.Circuit, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: ghz needs at least 2 qubits, got %d", ErrInvalidSize, n)
	}
	c := quantum.NewCircuit(n, 0).H(0)
	for i := 0; i+1 < n; i++ {
		c.CX(i, i+1)
	}
	c.MeasureAll()
	c.Name = fmt.Sprintf("ghz_%d", n)
	return c, nil
}

// RealAmplitudes is the hardware-efficient ansatz: reps rounds of an ry
// layer followed by reverse-linear cx entanglement, closed by a final ry
// layer. Parameter k*n + q drives the ry of layer k on qubit q.
func RealAmplitudes(n, reps int) (*quantum.Circuit, error) {
	if n < 1 || reps < 0 {
		return nil, fmt.Errorf("%w: real amplitudes with %d qubits and %d reps", ErrInvalidSize, n, reps)
	}
	c := quantum.NewCircuit(n, 0)
	c.Name = "real_amplitudes"
	param := 0
	layer := func() {
		for q := 0; q < n; q++ {
			c.RY(quantum.Param(param), q)
			param++
		}
	}
	for r := 0; r < reps; r++ {
		layer()
		for i := n - 2; i >= 0; i-- {
			c.CX(i, i+1)
		}
	}
	layer()
	return c, nil
}

// ControlledPhase appends cp(theta) on (control, target) expressed with
// p and cx.
func ControlledPhase(c *quantum.Circuit, theta float64, control, target int) {
	c.P(quantum.Fixed(theta/2), control)
	c.CX(control, target)
	c.P(quantum.Fixed(-theta/2), target)
	c.CX(control, target)
	c.P(quantum.Fixed(theta/2), target)
}

// QFT maps |x> to sum_k exp(2*pi*i*x*k/2^n)|k>/sqrt(2^n). Without the
// final swaps the output register is bit-reversed.
func QFT(n int, swaps bool) (*quantum.Circuit, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: qft on %d qubits", ErrInvalidSize, n)
	}
	c := quantum.NewCircuit(n, 0)
	c.Name = "qft"
	for j := n - 1; j >= 0; j-- {
		c.H(j)
		for k := j - 1; k >= 0; k-- {
			ControlledPhase(c, math.Pi/float64(int(1)<<(j-k)), k, j)
		}
	}
	if swaps {
		for i := 0; i < n/2; i++ {
			c.Swap(i, n-1-i)
		}
	}
	return c, nil
}

// InverseQFT is the adjoint of QFT.
func InverseQFT(n int, swaps bool) (*quantum.Circuit, error) {
	qft, err := QFT(n, swaps)
	if err != nil {
		return nil, err
	}
	inv, err := qft.Inverse()
	if err != nil {
		return nil, err
	}
	inv.Name = "iqft"
	return inv, nil
}

// GroverOracle flips the phase of every marked basis state.
func GroverOracle(n int, marked []int) (*quantum.Circuit, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: oracle on %d qubits", ErrInvalidSize, n)
	}
	c := quantum.NewCircuit(n, 0)
	c.Name = "oracle"
	all := register(0, n)
	for _, m := range marked {
		if m < 0 || m >= 1<<n {
			return nil, fmt.Errorf("%w: marked state %d outside %d qubits", ErrInvalidSize, m, n)
		}
		flips := zeroBits(m, n)
		for _, q := range flips {
			c.X(q)
		}
		c.MCZ(all...)
		for _, q := range flips {
			c.X(q)
		}
	}
	return c, nil
}

// GroverDiffuser reflects about the uniform superposition, 2|s><s| - I.
func GroverDiffuser(n int) (*quantum.Circuit, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: diffuser on %d qubits", ErrInvalidSize, n)
	}
	c := quantum.NewCircuit(n, 0)
	c.Name = "diffuser"
	all := register(0, n)
	for _, q := range all {
		c.H(q)
	}
	for _, q := range all {
		c.X(q)
	}
	c.MCZ(all...)
	for _, q := range all {
		c.X(q)
	}
	for _, q := range all {
		c.H(q)
	}
	// H X MCZ X H is I - 2|s><s|.
	c.GPhase(quantum.Fixed(math.Pi))
	return c, nil
}

// OrderFinding estimates the order of a modulo n. Qubits [0, counting)
// form the counting register, the next bitlen(n) qubits hold the work
// register initialised to |1>. Only the counting register is measured.
func OrderFinding(a, n, counting int) (*quantum.Circuit, error) {
	if n < 3 || counting < 1 {
		return nil, fmt.Errorf("%w: order finding for n=%d with %d counting qubits", ErrInvalidSize, n, counting)
	}
	width := bits.Len(uint(n))
	total := counting + width
	if total > quantum.MaxQubits {
		return nil, fmt.Errorf("%w: %d qubits", quantum.ErrTooManyQubits, total)
	}
	c := quantum.NewCircuit(total, counting)
	c.Name = fmt.Sprintf("order_%d_mod_%d", a, n)
	work := register(counting, width)

	c.X(work[0])
	for q := 0; q < counting; q++ {
		c.H(q)
	}
	mult := a % n
	for q := 0; q < counting; q++ {
		c.CModMul(q, mult, n, work)
		mult = mult * mult % n
	}
	iqft, err := InverseQFT(counting, true)
	if err != nil {
		return nil, err
	}
	if _, err := c.Compose(iqft, register(0, counting)); err != nil {
		return nil, err
	}
	for q := 0; q < counting; q++ {
		c.Measure(q, q)
	}
	return c, nil
}

func register(start, n int) []int {
	r := make([]int, n)
	for i := range r {
		r[i] = start + i
	}
	return r
}

func zeroBits(m, n int) []int {
	var out []int
	for q := 0; q < n; q++ {
		if m&(1<<q) == 0 {
			out = append(out, q)
		}
	}
	return out
}
