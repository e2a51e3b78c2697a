package algorithms

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/qlab/internal/circuits"
	"github.com/san-kum/qlab/internal/quantum"
)

// Stage is a snapshot of the search register. Amplitudes are real
// throughout Grover's algorithm.
type Stage struct {
	Label      string
	Amplitudes []float64
	Mean       float64
}

type GroverResult struct {
	NumQubits  int
	Marked     []int
	Iterations int
	Stages     []Stage
	// Probabilities of every basis state after the last iteration.
	Probabilities []float64
	Success       float64
	Found         int
	Circuit       *quantum.Circuit
}

// OptimalIterations is floor(pi/4 * sqrt(N/M)), at least 1.
func OptimalIterations(n, marked int) int {
	if marked < 1 {
		return 0
	}
	k := int(math.Floor(math.Pi / 4 * math.Sqrt(float64(int(1)<<n)/float64(marked))))
	if k < 1 {
		k = 1
	}
	return k
}

// Grover searches n qubits for the marked basis states. iterations <= 0
// picks OptimalIterations. The returned circuit measures every qubit and
// can be sent to any backend.
func Grover(n int, marked []int, iterations int) (*GroverResult, error) {
	if n < 1 || n > quantum.MaxQubits {
		return nil, fmt.Errorf("%w: grover on %d qubits", ErrInvalidInput, n)
	}
	marked = dedupe(marked)
	if len(marked) == 0 {
		return nil, fmt.Errorf("%w: no marked states", ErrInvalidInput)
	}
	if len(marked) >= 1<<n {
		return nil, fmt.Errorf("%w: every state is marked", ErrInvalidInput)
	}
	if iterations <= 0 {
		iterations = OptimalIterations(n, len(marked))
	}

	oracle, err := circuits.GroverOracle(n, marked)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	diffuser, err := circuits.GroverDiffuser(n)
	if err != nil {
		return nil, err
	}

	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	prep := quantum.NewCircuit(n, 0)
	for _, q := range all {
		prep.H(q)
	}

	st, err := quantum.Simulate(prep)
	if err != nil {
		return nil, err
	}
	res := &GroverResult{NumQubits: n, Marked: marked, Iterations: iterations}
	res.Stages = append(res.Stages, snapshot("initial superposition", st))

	full := prep.Copy()
	full.Name = fmt.Sprintf("grover_%d", n)
	for it := 1; it <= iterations; it++ {
		if err := st.Evolve(oracle); err != nil {
			return nil, err
		}
		res.Stages = append(res.Stages, snapshot(fmt.Sprintf("oracle %d", it), st))
		if err := st.Evolve(diffuser); err != nil {
			return nil, err
		}
		res.Stages = append(res.Stages, snapshot(fmt.Sprintf("diffusion %d", it), st))

		if _, err := full.Compose(oracle, all); err != nil {
			return nil, err
		}
		if _, err := full.Compose(diffuser, all); err != nil {
			return nil, err
		}
	}
	full.MeasureAll()
	res.Circuit = full

	res.Probabilities = st.Probabilities()
	for _, m := range marked {
		res.Success += res.Probabilities[m]
	}
	for i, p := range res.Probabilities {
		if p > res.Probabilities[res.Found] {
			res.Found = i
		}
	}
	return res, nil
}

func snapshot(label string, st *quantum.State) Stage {
	s := Stage{Label: label, Amplitudes: make([]float64, len(st.Amplitudes))}
	for i, a := range st.Amplitudes {
		s.Amplitudes[i] = real(a)
		s.Mean += real(a)
	}
	s.Mean /= float64(len(st.Amplitudes))
	return s
}

// InvertAboutMean applies the diffusion step directly to real amplitudes:
// a -> 2*mean - a.
func InvertAboutMean(amps []float64) []float64 {
	mean := 0.0
	for _, a := range amps {
		mean += a
	}
	mean /= float64(len(amps))
	out := make([]float64, len(amps))
	for i, a := range amps {
		out[i] = 2*mean - a
	}
	return out
}

func dedupe(xs []int) []int {
	seen := make(map[int]bool, len(xs))
	out := make([]int, 0, len(xs))
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	sort.Ints(out)
	return out
}
