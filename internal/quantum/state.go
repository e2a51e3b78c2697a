package quantum

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"
	"sort"
	"strings"
)

// State is a statevector over NumQubits qubits, little-endian.
type State struct {
	NumQubits  int
	Amplitudes []complex128
}

// NewState returns |0...0>.
func NewState(n int) (*State, error) {
	if n < 0 || n > MaxQubits {
		return nil, fmt.Errorf("%w: %d", ErrTooManyQubits, n)
	}
	amps := make([]complex128, 1<<n)
	amps[0] = 1
	return &State{NumQubits: n, Amplitudes: amps}, nil
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	amps := make([]complex128, len(s.Amplitudes))
	copy(amps, s.Amplitudes)
	return &State{NumQubits: s.NumQubits, Amplitudes: amps}
}

// Simulate evolves |0...0> through every unitary op of a bound circuit.
func Simulate(c *Circuit) (*State, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.NumParameters() > 0 {
		return nil, ErrUnboundParameter
	}
	st, err := NewState(c.NumQubits)
	if err != nil {
		return nil, err
	}
	if err := st.Evolve(c); err != nil {
		return nil, err
	}
	return st, nil
}

// Evolve applies every op of c in order; measure and barrier are skipped.
func (s *State) Evolve(c *Circuit) error {
	for i, op := range c.Ops {
		if err := s.Apply(op); err != nil {
			return &GateError{Index: i, Gate: op.Name, Err: err}
		}
	}
	return nil
}

// Apply performs a single bound operation in place.
func (s *State) Apply(op Op) error {
	for _, q := range op.Qubits {
		if q < 0 || q >= s.NumQubits {
			return fmt.Errorf("%w: qubit %d", ErrQubitRange, q)
		}
	}
	values := make([]float64, len(op.Params))
	for i, p := range op.Params {
		if !p.IsFixed() {
			return ErrUnboundParameter
		}
		values[i] = p.Offset
	}

	switch op.Name {
	case "measure", "barrier":
		return nil
	case "reset":
		s.reset(op.Qubits[0])
		return nil
	case "gphase":
		phase := cmplx.Exp(complex(0, values[0]))
		for i := range s.Amplitudes {
			s.Amplitudes[i] *= phase
		}
		return nil
	case "cx":
		s.applyCX(op.Qubits[0], op.Qubits[1])
		return nil
	case "mcz":
		s.applyMCZ(op.Qubits)
		return nil
	case "cmodmul":
		s.applyModMul(op.Qubits[0], op.Qubits[1:], op.Data[0], op.Data[1])
		return nil
	}

	if m, ok := SingleQubitMatrix(op.Name, values); ok {
		if len(op.Qubits) != 1 {
			return ErrArity
		}
		s.apply1(m, op.Qubits[0])
		return nil
	}
	if m, ok := TwoQubitMatrix(op.Name); ok {
		if len(op.Qubits) != 2 {
			return ErrArity
		}
		s.apply2(m, op.Qubits[0], op.Qubits[1])
		return nil
	}
	return ErrUnknownGate
}

func (s *State) apply1(m Matrix2, q int) {
	bit := 1 << q
	for i := range s.Amplitudes {
		if i&bit != 0 {
			continue
		}
		j := i | bit
		a, b := s.Amplitudes[i], s.Amplitudes[j]
		s.Amplitudes[i] = m[0][0]*a + m[0][1]*b
		s.Amplitudes[j] = m[1][0]*a + m[1][1]*b
	}
}

func (s *State) apply2(m Matrix4, q0, q1 int) {
	b0, b1 := 1<<q0, 1<<q1
	var in [4]complex128
	for i := range s.Amplitudes {
		if i&b0 != 0 || i&b1 != 0 {
			continue
		}
		idx := [4]int{i, i | b0, i | b1, i | b0 | b1}
		for k := 0; k < 4; k++ {
			in[k] = s.Amplitudes[idx[k]]
		}
		for r := 0; r < 4; r++ {
			var sum complex128
			for k := 0; k < 4; k++ {
				sum += m[r][k] * in[k]
			}
			s.Amplitudes[idx[r]] = sum
		}
	}
}

func (s *State) applyCX(control, target int) {
	cBit, tBit := 1<<control, 1<<target
	for i := range s.Amplitudes {
		if i&cBit != 0 && i&tBit == 0 {
			j := i | tBit
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

func (s *State) applyMCZ(qubits []int) {
	mask := 0
	for _, q := range qubits {
		mask |= 1 << q
	}
	for i := range s.Amplitudes {
		if i&mask == mask {
			s.Amplitudes[i] = -s.Amplitudes[i]
		}
	}
}

func (s *State) applyModMul(control int, work []int, a, n int) {
	cBit := 1 << control
	out := make([]complex128, len(s.Amplitudes))
	for i, amp := range s.Amplitudes {
		if amp == 0 {
			continue
		}
		if i&cBit == 0 {
			out[i] += amp
			continue
		}
		y := 0
		cleared := i
		for k, q := range work {
			if i&(1<<q) != 0 {
				y |= 1 << k
			}
			cleared &^= 1 << q
		}
		if y < n {
			y = (a * y) % n
		}
		j := cleared
		for k, q := range work {
			if y&(1<<k) != 0 {
				j |= 1 << q
			}
		}
		out[j] += amp
	}
	s.Amplitudes = out
}

// reset projects qubit q onto |0>; a qubit certainly in |1> is flipped.
func (s *State) reset(q int) {
	bit := 1 << q
	prob0 := 0.0
	for i, amp := range s.Amplitudes {
		if i&bit == 0 {
			prob0 += real(amp * cmplx.Conj(amp))
		}
	}
	if prob0 < 1e-12 {
		for i := range s.Amplitudes {
			if i&bit == 0 {
				j := i | bit
				s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], 0
			}
		}
		return
	}
	norm := complex(math.Sqrt(prob0), 0)
	for i := range s.Amplitudes {
		if i&bit == 0 {
			s.Amplitudes[i] /= norm
		} else {
			s.Amplitudes[i] = 0
		}
	}
}

// Norm returns the squared norm, 1 for a valid state.
func (s *State) Norm() float64 {
	sum := 0.0
	for _, a := range s.Amplitudes {
		sum += real(a * cmplx.Conj(a))
	}
	return sum
}

// Probabilities returns |amplitude|^2 per basis index.
func (s *State) Probabilities() []float64 {
	probs := make([]float64, len(s.Amplitudes))
	for i, a := range s.Amplitudes {
		probs[i] = real(a * cmplx.Conj(a))
	}
	return probs
}

// Marginal returns the distribution of the listed qubits; qubits[0] is
// the least significant bit of the result index.
func (s *State) Marginal(qubits []int) []float64 {
	out := make([]float64, 1<<len(qubits))
	for i, p := range s.Probabilities() {
		k := 0
		for b, q := range qubits {
			if i&(1<<q) != 0 {
				k |= 1 << b
			}
		}
		out[k] += p
	}
	return out
}

// BlochVector returns (<X>, <Y>, <Z>) of qubit q's reduced state.
func (s *State) BlochVector(q int) (x, y, z float64) {
	bit := 1 << q
	var coh complex128
	for i, a := range s.Amplitudes {
		if i&bit != 0 {
			continue
		}
		b := s.Amplitudes[i|bit]
		coh += cmplx.Conj(a) * b
		z += real(a*cmplx.Conj(a)) - real(b*cmplx.Conj(b))
	}
	return 2 * real(coh), 2 * imag(coh), z
}

// Counts maps a measured bitstring to the number of shots that produced it.
type Counts map[string]int

// Total returns the number of shots.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Keys returns the bitstrings in ascending order.
func (c Counts) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Probabilities normalizes counts by the number of shots.
func (c Counts) Probabilities() map[string]float64 {
	total := float64(c.Total())
	out := make(map[string]float64, len(c))
	if total == 0 {
		return out
	}
	for k, v := range c {
		out[k] = float64(v) / total
	}
	return out
}

// Sample draws shots outcomes of c's measurements from the state.
func (s *State) Sample(c *Circuit, shots int, rng *rand.Rand) (Counts, error) {
	measured := c.Measurements()
	measures := false
	for _, q := range measured {
		if q >= 0 {
			measures = true
			break
		}
	}
	if !measures {
		return nil, ErrNoMeasurements
	}

	cdf := s.Probabilities()
	for i := 1; i < len(cdf); i++ {
		cdf[i] += cdf[i-1]
	}
	total := cdf[len(cdf)-1]

	counts := make(Counts)
	for shot := 0; shot < shots; shot++ {
		r := rng.Float64() * total
		idx := sort.SearchFloat64s(cdf, r)
		if idx >= len(cdf) {
			idx = len(cdf) - 1
		}
		counts[Bitstring(idx, measured)]++
	}
	return counts, nil
}

// Bitstring renders the clbits of a basis index, highest clbit first.
// measured[c] is the qubit read into clbit c, or -1.
func Bitstring(index int, measured []int) string {
	var sb strings.Builder
	sb.Grow(len(measured))
	for c := len(measured) - 1; c >= 0; c-- {
		q := measured[c]
		if q >= 0 && index&(1<<q) != 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// BasisLabel formats index as an n-bit ket label such as "|01>".
func BasisLabel(index, n int) string {
	return "|" + FormatBits(index, n) + ">"
}

// FormatBits formats index as n bits, most significant first.
func FormatBits(index, n int) string {
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		if index&(1<<(n-1-i)) != 0 {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}
