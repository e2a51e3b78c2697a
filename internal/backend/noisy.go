package backend

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/san-kum/qlab/internal/quantum"
	"github.com/san-kum/qlab/internal/runtime"
	"github.com/san-kum/qlab/internal/transpile"
)

// DefaultTrajectories caps how many noisy state evolutions a run uses.
const DefaultTrajectories = 256

// Calibration is the noise model of a device snapshot.
type Calibration struct {
	Name         string             `json:"name" yaml:"name"`
	NumQubits    int                `json:"num_qubits" yaml:"num_qubits" validate:"gt=0"`
	BasisGates   []string           `json:"basis_gates" yaml:"basis_gates" validate:"min=1"`
	CouplingMap  [][2]int           `json:"coupling_map,omitempty" yaml:"coupling_map,omitempty"`
	ReadoutError []float64          `json:"readout_error" yaml:"readout_error" validate:"dive,gte=0,lte=1"`
	T1           []float64          `json:"t1,omitempty" yaml:"t1,omitempty"`
	T2           []float64          `json:"t2,omitempty" yaml:"t2,omitempty"`
	GateError    map[string]float64 `json:"gate_error" yaml:"gate_error"`
}

// FakeEagle is a five-qubit slice of an Eagle-class heavy-hex device
// with typical error rates.
func FakeEagle() Calibration {
	return Calibration{
		Name:         "fake_eagle",
		NumQubits:    5,
		BasisGates:   []string{"ecr", "id", "rz", "sx", "x"},
		CouplingMap:  [][2]int{{0, 1}, {2, 1}, {2, 3}, {4, 3}},
		ReadoutError: []float64{0.012, 0.018, 0.009, 0.021, 0.015},
		T1:           []float64{231e-6, 198e-6, 287e-6, 164e-6, 245e-6},
		T2:           []float64{143e-6, 120e-6, 201e-6, 98e-6, 177e-6},
		GateError: map[string]float64{
			"sx":  2.4e-4,
			"x":   2.4e-4,
			"ecr": 7.6e-3,
		},
	}
}

// CalibrationFromProperties builds a noise model from a device's
// configuration and calibration snapshot. Gate errors are averaged over
// all qubits a gate acts on.
func CalibrationFromProperties(cfg *runtime.BackendConfiguration, props *runtime.Properties) Calibration {
	cal := Calibration{
		Name:         "noisy_" + cfg.Name,
		NumQubits:    cfg.NumQubits,
		BasisGates:   cfg.BasisGates,
		CouplingMap:  cfg.CouplingMap,
		ReadoutError: make([]float64, cfg.NumQubits),
		T1:           make([]float64, cfg.NumQubits),
		T2:           make([]float64, cfg.NumQubits),
		GateError:    make(map[string]float64),
	}
	for q := 0; q < cfg.NumQubits; q++ {
		cal.ReadoutError[q], _ = props.QubitValue(q, "readout_error")
		cal.T1[q], _ = props.QubitValue(q, "T1")
		cal.T2[q], _ = props.QubitValue(q, "T2")
	}
	for _, g := range cfg.BasisGates {
		if e, ok := props.MeanGateError(g); ok {
			cal.GateError[g] = e
		}
	}
	return cal
}

func (c Calibration) Target() transpile.Target {
	return transpile.Target{NumQubits: c.NumQubits, BasisGates: c.BasisGates, CouplingMap: c.CouplingMap}
}

// Noisy simulates a device with depolarizing gate errors and readout
// bit flips. Circuits are transpiled to the calibration's basis first.
type Noisy struct {
	cal          Calibration
	trajectories int

	mu  sync.Mutex
	rng *rand.Rand
}

func NewNoisy(cal Calibration, seed int64) *Noisy {
	return &Noisy{cal: cal, trajectories: DefaultTrajectories, rng: rand.New(rand.NewSource(seed))}
}

// WithTrajectories overrides DefaultTrajectories.
func (n *Noisy) WithTrajectories(t int) *Noisy {
	if t > 0 {
		n.trajectories = t
	}
	return n
}

func (n *Noisy) Name() string             { return n.cal.Name }
func (n *Noisy) IsSimulator() bool        { return true }
func (n *Noisy) Target() transpile.Target { return n.cal.Target() }
func (n *Noisy) Calibration() Calibration { return n.cal }

func (n *Noisy) Run(ctx context.Context, c *quantum.Circuit, shots int) (quantum.Counts, error) {
	if shots <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidShots, shots)
	}
	if c.NumQubits > n.cal.NumQubits {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooWide, c.NumQubits, n.cal.NumQubits)
	}
	if c.NumParameters() > 0 {
		return nil, quantum.ErrUnboundParameter
	}
	compiled, err := transpile.Transpile(c, n.Target(), transpile.Options{OptimizationLevel: 1})
	if err != nil {
		return nil, err
	}
	measured := compiled.Measurements()

	n.mu.Lock()
	defer n.mu.Unlock()

	traj := n.trajectories
	if shots < traj {
		traj = shots
	}
	counts := make(quantum.Counts)
	for t := 0; t < traj; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st, err := n.evolve(compiled)
		if err != nil {
			return nil, err
		}
		share := shots / traj
		if t < shots%traj {
			share++
		}
		sampled, err := st.Sample(compiled, share, n.rng)
		if err != nil {
			return nil, err
		}
		for bits, k := range sampled {
			for i := 0; i < k; i++ {
				counts[n.readout(bits, measured)]++
			}
		}
	}
	return counts, nil
}

// evolve runs one trajectory, inserting a random Pauli after a gate with
// the gate's error probability.
func (n *Noisy) evolve(c *quantum.Circuit) (*quantum.State, error) {
	st, err := quantum.NewState(c.NumQubits)
	if err != nil {
		return nil, err
	}
	paulis := [4]string{"id", "x", "y", "z"}
	for i, op := range c.Ops {
		if err := st.Apply(op); err != nil {
			return nil, &quantum.GateError{Index: i, Gate: op.Name, Err: err}
		}
		p := n.cal.GateError[op.Name]
		if p <= 0 || n.rng.Float64() >= p {
			continue
		}
		// uniform over the non-identity Paulis on the gate's qubits
		k := 1 + n.rng.Intn(1<<(2*len(op.Qubits))-1)
		for _, q := range op.Qubits {
			if name := paulis[k&3]; name != "id" {
				if err := st.Apply(quantum.Op{Name: name, Qubits: []int{q}}); err != nil {
					return nil, err
				}
			}
			k >>= 2
		}
	}
	return st, nil
}

func (n *Noisy) readout(bits string, measured []int) string {
	out := []byte(bits)
	for c, q := range measured {
		if q < 0 || q >= len(n.cal.ReadoutError) {
			continue
		}
		if n.rng.Float64() < n.cal.ReadoutError[q] {
			i := len(out) - 1 - c
			if out[i] == '0' {
				out[i] = '1'
			} else {
				out[i] = '0'
			}
		}
	}
	return string(out)
}
