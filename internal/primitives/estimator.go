package primitives

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/san-kum/qlab/internal/backend"
	"github.com/san-kum/qlab/internal/quantum"
)

// EstimatorPub evaluates observables on a circuit. Observables and
// ParameterValues broadcast: a length-1 side pairs with every entry of
// the other; otherwise both must have the same length.
type EstimatorPub struct {
	Circuit         *quantum.Circuit
	Observables     []quantum.SparsePauliOp
	ParameterValues [][]float64
}

// EstimatorResult holds one expectation value per broadcast entry.
type EstimatorResult struct {
	Values []float64
	Stds   []float64
}

// Estimator computes expectation values exactly on a statevector
// backend, natively on a remote one, and from Pauli-basis sampling
// otherwise.
type Estimator struct {
	backend backend.Backend

	mu  sync.Mutex
	rng *rand.Rand
}

func NewEstimator(b backend.Backend, seed int64) *Estimator {
	return &Estimator{backend: b, rng: rand.New(rand.NewSource(seed))}
}

// entry is one (circuit, observable) pair after broadcasting.
type entry struct {
	circuit *quantum.Circuit
	obs     quantum.SparsePauliOp
}

func broadcast(pub EstimatorPub) ([]entry, error) {
	if len(pub.Observables) == 0 {
		return nil, ErrNoObservables
	}
	bound, err := bind(pub.Circuit, pub.ParameterValues)
	if err != nil {
		return nil, err
	}
	nObs, nPar := len(pub.Observables), len(bound)
	k := nObs
	switch {
	case nObs == nPar:
	case nObs == 1:
		k = nPar
	case nPar == 1:
	default:
		return nil, fmt.Errorf("%w: %d observables, %d parameter sets", ErrShapeMismatch, nObs, nPar)
	}

	out := make([]entry, k)
	for i := range out {
		c, o := bound[0], pub.Observables[0]
		if nPar > 1 {
			c = bound[i]
		}
		if nObs > 1 {
			o = pub.Observables[i]
		}
		if o.NumQubits != c.NumQubits {
			return nil, fmt.Errorf("observable %d acts on %d qubits, circuit has %d", i, o.NumQubits, c.NumQubits)
		}
		out[i] = entry{circuit: c.RemoveFinalMeasurements(), obs: o}
	}
	return out, nil
}

// Run evaluates every pub. precision 0 asks for exact values where the
// backend allows it; otherwise values carry shot noise of that size.
func (e *Estimator) Run(ctx context.Context, pubs []EstimatorPub, precision float64) ([]EstimatorResult, error) {
	if len(pubs) == 0 {
		return nil, ErrNoPubs
	}
	if precision < 0 {
		return nil, fmt.Errorf("primitives: negative precision %g", precision)
	}

	entries := make([][]entry, len(pubs))
	for i, pub := range pubs {
		es, err := broadcast(pub)
		if err != nil {
			return nil, fmt.Errorf("pub %d: %w", i, err)
		}
		entries[i] = es
	}
	log.FromContext(ctx).Debug("estimator run", "backend", e.backend.Name(), "pubs", len(pubs), "precision", precision)

	if eb, ok := e.backend.(backend.EstimatorBackend); ok {
		return e.runNative(ctx, eb, entries, precision)
	}

	results := make([]EstimatorResult, len(pubs))
	errs := make([]error, len(pubs))

	var wg sync.WaitGroup
	for i := range entries {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = e.evaluate(ctx, entries[idx], precision)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("pub %d: %w", i, err)
		}
	}
	return results, nil
}

func (e *Estimator) evaluate(ctx context.Context, es []entry, precision float64) (EstimatorResult, error) {
	res := EstimatorResult{Values: make([]float64, len(es)), Stds: make([]float64, len(es))}
	for i, en := range es {
		var (
			v, std float64
			err    error
		)
		if sb, ok := e.backend.(backend.StateBackend); ok {
			v, std, err = e.exact(ctx, sb, en, precision)
		} else {
			v, std, err = e.sampled(ctx, en, precision)
		}
		if err != nil {
			return res, fmt.Errorf("entry %d: %w", i, err)
		}
		res.Values[i], res.Stds[i] = v, std
	}
	return res, nil
}

func (e *Estimator) exact(ctx context.Context, sb backend.StateBackend, en entry, precision float64) (float64, float64, error) {
	st, err := sb.State(ctx, en.circuit)
	if err != nil {
		return 0, 0, err
	}
	v, err := st.Expectation(en.obs)
	if err != nil {
		return 0, 0, err
	}
	if precision > 0 {
		e.mu.Lock()
		v += e.rng.NormFloat64() * precision
		e.mu.Unlock()
	}
	return v, precision, nil
}

// ShotsFor returns the shots whose standard error on a unit-norm Pauli
// is at most precision.
func ShotsFor(precision float64) int {
	if precision <= 0 {
		return DefaultShots
	}
	return int(math.Ceil(1 / (precision * precision)))
}

// sampled measures every distinct Pauli label of the observable in its
// eigenbasis and combines the parities.
func (e *Estimator) sampled(ctx context.Context, en entry, precision float64) (float64, float64, error) {
	shots := ShotsFor(precision)
	value, variance := 0.0, 0.0
	for _, term := range en.obs.Terms {
		if strings.Trim(term.Label, "I") == "" {
			value += term.Coeff
			continue
		}
		c := basisCircuit(en.circuit, term.Label)
		counts, err := e.backend.Run(ctx, c, shots)
		if err != nil {
			return 0, 0, err
		}
		p := parityExpectation(counts)
		value += term.Coeff * p
		variance += term.Coeff * term.Coeff * (1 - p*p) / float64(shots)
	}
	return value, math.Sqrt(variance), nil
}

// basisCircuit appends rotations that map the label's eigenbasis onto Z
// and measures every qubit the label touches.
func basisCircuit(c *quantum.Circuit, label string) *quantum.Circuit {
	n := len(label)
	out := c.Copy()
	var qubits []int
	for q := 0; q < n; q++ {
		switch label[n-1-q] {
		case 'X':
			out.H(q)
		case 'Y':
			out.Sdg(q).H(q)
		case 'Z':
		default:
			continue
		}
		qubits = append(qubits, q)
	}
	out.NumClbits = len(qubits)
	for i, q := range qubits {
		out.Measure(q, i)
	}
	return out
}

func parityExpectation(counts quantum.Counts) float64 {
	total := counts.Total()
	if total == 0 {
		return 0
	}
	sum := 0
	for bits, k := range counts {
		if strings.Count(bits, "1")%2 == 0 {
			sum += k
		} else {
			sum -= k
		}
	}
	return float64(sum) / float64(total)
}

func (e *Estimator) runNative(ctx context.Context, eb backend.EstimatorBackend, entries [][]entry, precision float64) ([]EstimatorResult, error) {
	var (
		cs  []*quantum.Circuit
		obs [][]quantum.SparsePauliOp
	)
	for _, es := range entries {
		for _, en := range es {
			cs = append(cs, en.circuit)
			obs = append(obs, []quantum.SparsePauliOp{en.obs})
		}
	}
	vals, err := eb.Estimate(ctx, cs, obs, precision)
	if err != nil {
		return nil, err
	}
	if len(vals) != len(cs) {
		return nil, fmt.Errorf("%w: got %d values for %d circuits", backend.ErrResultCount, len(vals), len(cs))
	}

	out := make([]EstimatorResult, len(entries))
	k := 0
	for i, es := range entries {
		out[i] = EstimatorResult{Values: make([]float64, len(es)), Stds: make([]float64, len(es))}
		for j := range es {
			if len(vals[k].Values) > 0 {
				out[i].Values[j] = vals[k].Values[0]
			}
			if len(vals[k].Stds) > 0 {
				out[i].Stds[j] = vals[k].Stds[0]
			}
			k++
		}
	}
	return out, nil
}
