package quantum

import (
	"fmt"
	"math/cmplx"
	"strings"
)

// PauliTerm is a weighted Pauli string. The rightmost character of
// Label acts on qubit 0.
type PauliTerm struct {
	Label string  `json:"label" yaml:"label"`
	Coeff float64 `json:"coeff" yaml:"coeff"`
}

// SparsePauliOp is a real linear combination of Pauli strings.
type SparsePauliOp struct {
	NumQubits int
	Terms     []PauliTerm
}

// FromList builds an operator from (label, coefficient) terms. Every
// label must have the same length and use only I, X, Y and Z.
func FromList(terms []PauliTerm) (SparsePauliOp, error) {
	if len(terms) == 0 {
		return SparsePauliOp{}, fmt.Errorf("%w: empty operator", ErrInvalidPauli)
	}
	n := len(terms[0].Label)
	out := SparsePauliOp{NumQubits: n, Terms: make([]PauliTerm, 0, len(terms))}
	for _, t := range terms {
		label := strings.ToUpper(t.Label)
		if len(label) != n {
			return SparsePauliOp{}, fmt.Errorf("%w: %q has %d qubits, want %d", ErrInvalidPauli, t.Label, len(label), n)
		}
		if strings.Trim(label, "IXYZ") != "" {
			return SparsePauliOp{}, fmt.Errorf("%w: %q", ErrInvalidPauli, t.Label)
		}
		out.Terms = append(out.Terms, PauliTerm{Label: label, Coeff: t.Coeff})
	}
	return out, nil
}

// MustFromList is FromList for literals known to be valid.
func MustFromList(terms ...PauliTerm) SparsePauliOp {
	op, err := FromList(terms)
	if err != nil {
		panic(err)
	}
	return op
}

func (p SparsePauliOp) String() string {
	parts := make([]string, len(p.Terms))
	for i, t := range p.Terms {
		parts[i] = fmt.Sprintf("%g*%s", t.Coeff, t.Label)
	}
	return strings.Join(parts, " + ")
}

// pauliMasks returns the X-flip mask, Z-phase mask and count of Y factors.
func pauliMasks(label string) (xmask, zmask, ys int) {
	n := len(label)
	for i := 0; i < n; i++ {
		q := n - 1 - i
		switch label[i] {
		case 'X':
			xmask |= 1 << q
		case 'Y':
			xmask |= 1 << q
			zmask |= 1 << q
			ys++
		case 'Z':
			zmask |= 1 << q
		}
	}
	return xmask, zmask, ys
}

// Amplitude returns the amplitude of basis index i.
func (s *State) Amplitude(i int) complex128 {
	if i < 0 || i >= len(s.Amplitudes) {
		return 0
	}
	return s.Amplitudes[i]
}

// Expectation returns <psi|P|psi> for a Hermitian Pauli sum.
func (s *State) Expectation(op SparsePauliOp) (float64, error) {
	if op.NumQubits != s.NumQubits {
		return 0, fmt.Errorf("%w: operator on %d qubits, state has %d", ErrInvalidPauli, op.NumQubits, s.NumQubits)
	}
	total := 0.0
	for _, t := range op.Terms {
		total += t.Coeff * s.pauliExpectation(t.Label)
	}
	return total, nil
}

func (s *State) pauliExpectation(label string) float64 {
	xmask, zmask, ys := pauliMasks(label)
	// Y = i*X*Z: each Y adds a factor i on top of the Z sign.
	var yphase complex128 = 1
	switch ys % 4 {
	case 1:
		yphase = 1i
	case 2:
		yphase = -1
	case 3:
		yphase = -1i
	}
	var sum complex128
	for i, a := range s.Amplitudes {
		if a == 0 {
			continue
		}
		phase := yphase
		if parity(i&zmask) == 1 {
			phase = -phase
		}
		sum += cmplx.Conj(s.Amplitudes[i^xmask]) * phase * a
	}
	return real(sum)
}

func parity(x int) int {
	p := 0
	for x != 0 {
		p ^= 1
		x &= x - 1
	}
	return p
}
