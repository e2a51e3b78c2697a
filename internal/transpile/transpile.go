package transpile

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/san-kum/qlab/internal/quantum"
)

var (
	ErrTooWide        = errors.New("transpile: circuit has more qubits than the target")
	ErrNotCoupled     = errors.New("transpile: two-qubit gate on uncoupled qubits")
	ErrUntranslatable = errors.New("transpile: gate cannot be expressed in the target basis")
)

// Target describes the device a circuit is compiled for. An empty
// coupling map means all-to-all connectivity.
type Target struct {
	NumQubits   int      `json:"num_qubits" yaml:"num_qubits"`
	BasisGates  []string `json:"basis_gates" yaml:"basis_gates"`
	CouplingMap [][2]int `json:"coupling_map,omitempty" yaml:"coupling_map,omitempty"`
}

type Options struct {
	// OptimizationLevel 0 translates only; 1 merges rotations and cancels
	// inverse pairs; 2 also fuses runs of single-qubit gates; 3 repeats
	// until nothing changes.
	OptimizationLevel int
}

func (t Target) supports(name string) bool {
	for _, g := range t.BasisGates {
		if g == name {
			return true
		}
	}
	return false
}

func (t Target) coupled(a, b int) bool {
	if len(t.CouplingMap) == 0 {
		return true
	}
	for _, e := range t.CouplingMap {
		if e[0] == a && e[1] == b {
			return true
		}
	}
	return false
}

// Transpile rewrites c into the target's basis gates and coupling
// directions. The result implements the same unitary up to global phase.
// Qubits are not remapped.
func Transpile(c *quantum.Circuit, target Target, opts Options) (*quantum.Circuit, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if target.NumQubits > 0 && c.NumQubits > target.NumQubits {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooWide, c.NumQubits, target.NumQubits)
	}

	ops, err := unrollMultiQubit(c.Ops, target)
	if err != nil {
		return nil, err
	}
	ops, err = fixDirection(ops, target)
	if err != nil {
		return nil, err
	}
	ops, err = translateCX(ops, target)
	if err != nil {
		return nil, err
	}
	ops, err = translateSingle(ops, target)
	if err != nil {
		return nil, err
	}
	ops = optimize(ops, target, opts.OptimizationLevel)

	out := quantum.NewCircuit(c.NumQubits, c.NumClbits)
	out.Name = c.Name
	out.Parameters = c.NumParameters()
	out.Ops = ops
	return out, nil
}

func op(name string, qubits ...int) quantum.Op {
	return quantum.Op{Name: name, Qubits: qubits}
}

func rot(name string, a quantum.Angle, q int) quantum.Op {
	return quantum.Op{Name: name, Qubits: []int{q}, Params: []quantum.Angle{a}}
}

// unrollMultiQubit lowers cz, swap, ecr and mcz that the target lacks
// into cx plus single-qubit gates.
func unrollMultiQubit(in []quantum.Op, target Target) ([]quantum.Op, error) {
	out := make([]quantum.Op, 0, len(in))
	for i, o := range in {
		switch {
		case o.Name == "gphase":
			continue
		case o.Name == "ecr" && target.supports("ecr") && target.coupled(o.Qubits[0], o.Qubits[1]):
			out = append(out, o)
		case len(o.Qubits) < 2 || o.Name == "barrier":
			if o.Name == "mcz" {
				out = append(out, op("z", o.Qubits[0]))
				continue
			}
			out = append(out, o)
		case o.Name == "cx":
			out = append(out, o)
		case target.supports(o.Name) && o.Name != "ecr":
			out = append(out, o)
		case o.Name == "cz" || (o.Name == "mcz" && len(o.Qubits) == 2):
			a, b := o.Qubits[0], o.Qubits[1]
			out = append(out, op("h", b), op("cx", a, b), op("h", b))
		case o.Name == "swap":
			a, b := o.Qubits[0], o.Qubits[1]
			out = append(out, op("cx", a, b), op("cx", b, a), op("cx", a, b))
		case o.Name == "ecr":
			a, b := o.Qubits[0], o.Qubits[1]
			out = append(out,
				op("x", a), op("sxdg", b), op("cx", a, b),
				rot("rz", quantum.Fixed(-math.Pi/2), a))
		case o.Name == "mcz":
			out = append(out, mczParity(o.Qubits)...)
		default:
			return nil, &quantum.GateError{Index: i, Gate: o.Name, Err: ErrUntranslatable}
		}
	}
	return out, nil
}

// mczParity expands an mcz on k qubits into phase rotations on the
// parities of every non-empty subset: x1*...*xk equals the sum over
// subsets S of (-1)^(|S|+1) parity(S) / 2^(k-1). Each parity is carried
// along the qubit list as a chain of cx and swap between neighbours, so
// only consecutive list entries need to be coupled.
func mczParity(qubits []int) []quantum.Op {
	k := len(qubits)
	scale := math.Pi / float64(uint(1)<<(k-1))
	var out []quantum.Op
	for mask := 1; mask < 1<<k; mask++ {
		lo, hi := bits.TrailingZeros(uint(mask)), bits.Len(uint(mask))-1
		var chain []quantum.Op
		for i := lo; i < hi; i++ {
			a, b := qubits[i], qubits[i+1]
			if mask&(1<<(i+1)) != 0 {
				chain = append(chain, op("cx", a, b))
			} else {
				chain = append(chain, op("cx", a, b), op("cx", b, a), op("cx", a, b))
			}
		}
		angle := scale
		if bits.OnesCount(uint(mask))%2 == 0 {
			angle = -scale
		}
		out = append(out, chain...)
		out = append(out, rot("rz", quantum.Fixed(angle), qubits[hi]))
		for i := len(chain) - 1; i >= 0; i-- {
			out = append(out, chain[i])
		}
	}
	return out
}

// fixDirection flips cx gates that run against the coupling map.
func fixDirection(in []quantum.Op, target Target) ([]quantum.Op, error) {
	out := make([]quantum.Op, 0, len(in))
	for i, o := range in {
		if len(o.Qubits) != 2 || o.Name == "barrier" {
			out = append(out, o)
			continue
		}
		a, b := o.Qubits[0], o.Qubits[1]
		switch {
		case target.coupled(a, b):
			out = append(out, o)
		case o.Name == "cx" && target.coupled(b, a):
			out = append(out,
				op("h", a), op("h", b), op("cx", b, a), op("h", a), op("h", b))
		case (o.Name == "cz" || o.Name == "swap") && target.coupled(b, a):
			o.Qubits = []int{b, a}
			out = append(out, o)
		default:
			return nil, &quantum.GateError{Index: i, Gate: o.Name, Err: fmt.Errorf("%w: (%d, %d)", ErrNotCoupled, a, b)}
		}
	}
	return out, nil
}

// translateCX maps cx onto ecr or cz when cx itself is not native.
func translateCX(in []quantum.Op, target Target) ([]quantum.Op, error) {
	if target.supports("cx") {
		return in, nil
	}
	out := make([]quantum.Op, 0, len(in))
	for i, o := range in {
		if o.Name != "cx" {
			out = append(out, o)
			continue
		}
		c, t := o.Qubits[0], o.Qubits[1]
		switch {
		case target.supports("ecr"):
			out = append(out,
				op("x", c), op("sx", t), op("ecr", c, t),
				rot("rz", quantum.Fixed(math.Pi/2), c))
		case target.supports("cz"):
			out = append(out, op("h", t), op("cz", c, t), op("h", t))
		default:
			return nil, &quantum.GateError{Index: i, Gate: o.Name, Err: ErrUntranslatable}
		}
	}
	return out, nil
}

// translateSingle rewrites every single-qubit gate outside the basis.
func translateSingle(in []quantum.Op, target Target) ([]quantum.Op, error) {
	out := make([]quantum.Op, 0, len(in))
	for i, o := range in {
		if !quantum.IsSingleQubit(o.Name) || target.supports(o.Name) {
			out = append(out, o)
			continue
		}
		if o.Name == "id" {
			continue
		}
		seq, err := synthesize(o, target)
		if err != nil {
			return nil, &quantum.GateError{Index: i, Gate: o.Name, Err: err}
		}
		out = append(out, seq...)
	}
	return out, nil
}

func fixedParams(o quantum.Op) ([]float64, bool) {
	values := make([]float64, len(o.Params))
	for i, p := range o.Params {
		if !p.IsFixed() {
			return nil, false
		}
		values[i] = p.Offset
	}
	return values, true
}

func synthesize(o quantum.Op, target Target) ([]quantum.Op, error) {
	q := o.Qubits[0]
	if values, ok := fixedParams(o); ok {
		m, _ := quantum.SingleQubitMatrix(o.Name, values)
		return synthesizeMatrix(m, q, target)
	}

	// Symbolic angles map onto U3(theta, phi, lambda) with angle arithmetic.
	var theta, phi, lambda quantum.Angle
	switch o.Name {
	case "rx":
		theta, phi, lambda = o.Params[0], quantum.Fixed(-math.Pi/2), quantum.Fixed(math.Pi/2)
	case "ry":
		theta, phi, lambda = o.Params[0], quantum.Fixed(0), quantum.Fixed(0)
	case "rz", "p":
		if target.supports("rz") {
			return []quantum.Op{rot("rz", o.Params[0], q)}, nil
		}
		theta, phi, lambda = quantum.Fixed(0), quantum.Fixed(0), o.Params[0]
	case "u":
		theta, phi, lambda = o.Params[0], o.Params[1], o.Params[2]
	default:
		return nil, ErrUntranslatable
	}
	return emitU3(theta, phi, lambda, q, target)
}

func emitU3(theta, phi, lambda quantum.Angle, q int, target Target) ([]quantum.Op, error) {
	switch {
	case target.supports("u"):
		return []quantum.Op{{Name: "u", Qubits: []int{q}, Params: []quantum.Angle{theta, phi, lambda}}}, nil
	case target.supports("rz") && target.supports("sx"):
		return []quantum.Op{
			rot("rz", lambda, q),
			op("sx", q),
			rot("rz", theta.Shift(math.Pi), q),
			op("sx", q),
			rot("rz", phi.Shift(math.Pi), q),
		}, nil
	}
	return nil, ErrUntranslatable
}

const angleTol = 1e-9

// synthesizeMatrix emits the shortest rz/sx/x sequence for a fixed
// unitary, or a single u gate on u-based targets.
func synthesizeMatrix(m quantum.Matrix2, q int, target Target) ([]quantum.Op, error) {
	theta, phi, lambda := m.ZYZ()
	if target.supports("u") {
		return []quantum.Op{{Name: "u", Qubits: []int{q}, Params: []quantum.Angle{
			quantum.Fixed(theta), quantum.Fixed(phi), quantum.Fixed(lambda),
		}}}, nil
	}
	if !target.supports("rz") || !target.supports("sx") {
		return nil, ErrUntranslatable
	}

	var seq []quantum.Op
	addRZ := func(a float64) {
		if !quantum.Fixed(a).IsZeroMod(2 * math.Pi) {
			seq = append(seq, rot("rz", quantum.Fixed(normalize(a)), q))
		}
	}
	switch {
	case math.Abs(theta) < angleTol:
		addRZ(phi + lambda)
	case math.Abs(theta-math.Pi/2) < angleTol:
		addRZ(lambda - math.Pi/2)
		seq = append(seq, op("sx", q))
		addRZ(phi + math.Pi/2)
	case math.Abs(theta-math.Pi) < angleTol && target.supports("x"):
		addRZ(lambda)
		seq = append(seq, op("x", q))
		addRZ(phi - math.Pi)
	default:
		addRZ(lambda)
		seq = append(seq, op("sx", q))
		addRZ(theta + math.Pi)
		seq = append(seq, op("sx", q))
		addRZ(phi + math.Pi)
	}
	return seq, nil
}

// normalize wraps an angle into (-pi, pi].
func normalize(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
